package permission

// RoleExpander maps a role held by a credential to the permissions it grants
// inside a tenant. It is the extension point for role-based access beyond the
// admin bypass.
type RoleExpander interface {
	// Expand returns the permissions role grants within tenantID.
	Expand(tenantID, role string) []string
}

// Evaluator checks credentials against required permissions.
// The zero value applies only direct permissions and the admin bypass.
type Evaluator struct {
	roles RoleExpander
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithRoleExpander enables role to permission expansion.
func WithRoleExpander(r RoleExpander) EvaluatorOption {
	return func(e *Evaluator) {
		e.roles = r
	}
}

// NewEvaluator creates an evaluator with the given options.
func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEvaluator = &Evaluator{}

// HasPermission reports whether cred satisfies required.
//
// A non-empty resourceTenantID that differs from the credential's tenant
// always denies, even for admins. Otherwise a direct permission grants, the
// admin role grants, and finally any configured role expansion is consulted.
func (e *Evaluator) HasPermission(cred *Credential, required, resourceTenantID string) bool {
	if cred == nil {
		return false
	}
	if resourceTenantID != "" && resourceTenantID != cred.TenantID {
		return false
	}
	if cred.DirectPermissions.Has(required) {
		return true
	}
	if cred.IsAdmin() {
		return true
	}
	if e == nil || e.roles == nil {
		return false
	}
	for _, role := range cred.Roles.List() {
		for _, p := range e.roles.Expand(cred.TenantID, role) {
			if p == required {
				return true
			}
		}
	}
	return false
}

// CheckMultiplePermissions checks a list of requirements.
// With requireAll every entry must hold (an empty list holds vacuously);
// otherwise at least one must (an empty list never holds).
func (e *Evaluator) CheckMultiplePermissions(cred *Credential, required []string, resourceTenantID string, requireAll bool) bool {
	if requireAll {
		for _, p := range required {
			if !e.HasPermission(cred, p, resourceTenantID) {
				return false
			}
		}
		return true
	}
	for _, p := range required {
		if e.HasPermission(cred, p, resourceTenantID) {
			return true
		}
	}
	return false
}

// Allows is the visibility rule for gated contributions. An empty
// requirement list means unrestricted and is visible to every caller,
// including an anonymous one. Otherwise the caller needs any one of the
// permissions within its own tenant.
func (e *Evaluator) Allows(cred *Credential, required []string) bool {
	if len(required) == 0 {
		return true
	}
	if cred == nil {
		return false
	}
	return e.CheckMultiplePermissions(cred, required, cred.TenantID, false)
}

// HasPermission reports whether cred satisfies required using direct
// permissions and the admin bypass only.
func HasPermission(cred *Credential, required, resourceTenantID string) bool {
	return defaultEvaluator.HasPermission(cred, required, resourceTenantID)
}

// CheckMultiplePermissions is Evaluator.CheckMultiplePermissions on the
// default evaluator.
func CheckMultiplePermissions(cred *Credential, required []string, resourceTenantID string, requireAll bool) bool {
	return defaultEvaluator.CheckMultiplePermissions(cred, required, resourceTenantID, requireAll)
}

// Allows is Evaluator.Allows on the default evaluator.
func Allows(cred *Credential, required []string) bool {
	return defaultEvaluator.Allows(cred, required)
}
