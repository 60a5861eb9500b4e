package auth

import "slices"

// Admin role constants. Viewers read games, tickets and prizes; admins and
// superadmins also create, close, award and cancel.
const (
	RoleViewer     = "viewer"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// AllAdminRoles returns all valid admin roles.
func AllAdminRoles() []string {
	return []string{RoleViewer, RoleAdmin, RoleSuperAdmin}
}

// WriteRoles returns roles that can change game state or balances.
func WriteRoles() []string {
	return []string{RoleAdmin, RoleSuperAdmin}
}

// IsAdminRole reports whether role is one of AllAdminRoles.
func IsAdminRole(role string) bool {
	return slices.Contains(AllAdminRoles(), role)
}
