package constants

const (
	User      = "user"
	Moderator = "moderator"
	Admin     = "admin"
)

// ValidRoles is the set of roles the auth service writes into sessions.
var ValidRoles = []string{User, Moderator, Admin}

// IsValidRole returns true if role is one of the allowed values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// CanModerate reports whether the role may approve, refuse, suspend or expire listings.
func CanModerate(role string) bool {
	return role == Moderator || role == Admin
}
