package model

import "strings"

// Role is one of the three fixed account roles. Anything else is not a role.
type Role string

const (
	RoleEmployee           Role = "employee"
	RoleProcurementManager Role = "procurement_manager"
	RoleAdmin              Role = "admin"

	// RoleUnresolved is returned by ResolveRole when no domain matches.
	RoleUnresolved Role = ""
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleProcurementManager, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// AllRoles lists the known roles in a stable order.
func AllRoles() []Role {
	return []Role{RoleEmployee, RoleProcurementManager, RoleAdmin}
}

type domainRule struct {
	role   Role
	suffix string
}

// Order matters: the first matching suffix wins.
var domainRules = []domainRule{
	{role: RoleEmployee, suffix: "@gmail.com"},
	{role: RoleProcurementManager, suffix: "@manager.com"},
	{role: RoleAdmin, suffix: "@admin.com"},
}

// ResolveRole derives the role for an email address from its domain suffix.
func ResolveRole(email string) Role {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, rule := range domainRules {
		if strings.HasSuffix(email, rule.suffix) {
			return rule.role
		}
	}
	return RoleUnresolved
}
