package domain

import "slices"

const (
	RoleAdmin  = "Admin"
	RoleMis    = "Mis"
	RoleUser   = "User"
	RoleMember = "Member"
)

// Roles that land in the back office after sign in.
var adminAreaRoles = []string{RoleAdmin, RoleMis, RoleUser}

// AdminAreaRoles returns the roles allowed into the back office.
func AdminAreaRoles() []string { return slices.Clone(adminAreaRoles) }

// LandingPath is where a freshly signed in account is sent.
func LandingPath(role string) string {
	if slices.Contains(adminAreaRoles, role) {
		return "/Admin"
	}
	return "/"
}
