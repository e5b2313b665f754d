package domain

import "time"

// Role is the closed set of roles an account can hold.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Authority strings carried in authentication contexts and required by
// protected routes.
const (
	AuthorityUser  = "ROLE_USER"
	AuthorityAdmin = "ROLE_ADMIN"
)

// roleAuthorities maps each role to its authority string. An explicit
// table so an unknown role yields "" instead of minting a new authority
// at runtime.
var roleAuthorities = map[Role]string{
	RoleUser:  AuthorityUser,
	RoleAdmin: AuthorityAdmin,
}

// Valid reports whether the role is a known member of the enum.
func (r Role) Valid() bool {
	_, ok := roleAuthorities[r]
	return ok
}

// Authority returns the authority string for the role, or "" for an
// unknown role.
func (r Role) Authority() string {
	return roleAuthorities[r]
}

// User is the domain model for registered accounts.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
