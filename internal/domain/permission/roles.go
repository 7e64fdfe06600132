package permission

import (
	"errors"
	"fmt"
)

// ErrInvalidRole is returned when a role definition is malformed.
var ErrInvalidRole = errors.New("invalid role")

// Role is a named bundle of permissions scoped to one tenant.
type Role struct {
	ID          string   `yaml:"id" toml:"id"`
	Name        string   `yaml:"name,omitempty" toml:"name,omitempty"`
	Description string   `yaml:"description,omitempty" toml:"description,omitempty"`
	TenantID    string   `yaml:"tenant" toml:"tenant"`
	Permissions []string `yaml:"permissions" toml:"permissions"`
}

// Validate checks that the role can be used for expansion.
func (r Role) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRole)
	}
	if r.ID == RoleAdmin {
		return fmt.Errorf("%w: %q is built in and cannot be redefined", ErrInvalidRole, RoleAdmin)
	}
	if r.TenantID == "" {
		return fmt.Errorf("%w: role %q has no tenant", ErrInvalidRole, r.ID)
	}
	return nil
}

// StaticRoles expands roles from a fixed table keyed by tenant and role id.
type StaticRoles struct {
	byTenant map[string]map[string][]string
}

// NewStaticRoles builds a role table. Duplicate (tenant, id) pairs are
// rejected.
func NewStaticRoles(roles ...Role) (*StaticRoles, error) {
	s := &StaticRoles{byTenant: make(map[string]map[string][]string)}
	for _, r := range roles {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		tenant := s.byTenant[r.TenantID]
		if tenant == nil {
			tenant = make(map[string][]string)
			s.byTenant[r.TenantID] = tenant
		}
		if _, dup := tenant[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate role %q in tenant %q", ErrInvalidRole, r.ID, r.TenantID)
		}
		perms := make([]string, len(r.Permissions))
		copy(perms, r.Permissions)
		tenant[r.ID] = perms
	}
	return s, nil
}

// Expand returns the permissions role grants inside tenantID.
func (s *StaticRoles) Expand(tenantID, role string) []string {
	if s == nil {
		return nil
	}
	return s.byTenant[tenantID][role]
}

// Ensure StaticRoles implements RoleExpander.
var _ RoleExpander = (*StaticRoles)(nil)
