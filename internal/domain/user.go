package domain

import "time"

// Role enumerates handler roles.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	return r == RoleAdmin || r == RoleSuperadmin
}

// User is a ticket handler. An admin is bound to exactly one category at
// creation time; a superadmin has no category and sees everything.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         Role
	CategoryID   *string
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName renders the handler name shown next to comments and assignments.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Identity is the authenticated actor as seen by the lifecycle engine: just
// enough to compute the access scope.
type Identity struct {
	UserID     string
	Role       Role
	CategoryID *string
}

// IdentityOf derives the actor identity from a loaded user record.
func IdentityOf(u *User) Identity {
	return Identity{UserID: u.ID, Role: u.Role, CategoryID: u.CategoryID}
}
