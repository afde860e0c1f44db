package constants

import roles "autostand-backend/internal/pkg/constants"

// PermissionRoles maps each permission to the roles allowed to perform it.
var PermissionRoles = map[string][]string{
	PublishListing:   {roles.Seller, roles.Admin},
	ModerateListings: {roles.Admin},
	ReviewReports:    {roles.Admin},
	ManageUsers:      {roles.Admin},
	ViewBackoffice:   {roles.Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	allowed, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// AllowedAny returns true if any of the held roles grants the permission.
func AllowedAny(permission string, held []string) bool {
	for _, r := range held {
		if AllowedRole(permission, r) {
			return true
		}
	}
	return false
}
