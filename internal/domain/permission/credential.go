// Package permission decides whether a caller may see or use a resource.
//
// Tenant isolation is absolute: a credential never satisfies a requirement
// for a resource owned by another tenant, whatever its roles. Inside its own
// tenant a credential is granted a permission when it holds it directly or
// carries the admin role.
package permission

import "strings"

// RoleAdmin bypasses permission checks within the credential's own tenant.
const RoleAdmin = "admin"

// Credential is the caller identity used for permission checks.
// It is built per request or session by the authentication layer and is
// read-only to the evaluator and the plugin registry.
type Credential struct {
	UserID            string
	TenantID          string
	Roles             Set
	DirectPermissions Set
}

// NewCredential creates a credential for a tenant with the given roles and
// direct permissions.
func NewCredential(tenantID string, roles, permissions []string) *Credential {
	return &Credential{
		TenantID:          tenantID,
		Roles:             NewSet(roles...),
		DirectPermissions: NewSet(permissions...),
	}
}

// WithUser returns a copy of the credential bound to a user id.
func (c *Credential) WithUser(userID string) *Credential {
	cp := *c
	cp.UserID = userID
	return &cp
}

// IsAdmin reports whether the credential carries the admin role.
func (c *Credential) IsAdmin() bool {
	return c != nil && c.Roles.Has(RoleAdmin)
}

// String returns a short human-readable form, e.g. "t1[admin]".
func (c *Credential) String() string {
	if c == nil {
		return "<anonymous>"
	}
	var b strings.Builder
	if c.UserID != "" {
		b.WriteString(c.UserID)
		b.WriteString("@")
	}
	b.WriteString(c.TenantID)
	if roles := c.Roles.List(); len(roles) > 0 {
		b.WriteString("[")
		b.WriteString(strings.Join(roles, ","))
		b.WriteString("]")
	}
	return b.String()
}
