package constants

const (
	Buyer  = "buyer"
	Seller = "seller"
	Admin  = "admin"
)

// ValidRoles lists every role a user can hold. Every account is a buyer; approved
// sellers and administrators add a role on top.
var ValidRoles = []string{Buyer, Seller, Admin}

// IsValidRole returns true if role is one of the known roles.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// RolesFor expands capability flags into role names.
func RolesFor(seller, admin bool) []string {
	roles := []string{Buyer}
	if seller {
		roles = append(roles, Seller)
	}
	if admin {
		roles = append(roles, Admin)
	}
	return roles
}
