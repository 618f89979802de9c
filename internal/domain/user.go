package domain

import "time"

// Role enumerates marketplace roles supplied by the identity provider.
type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleSeller Role = "SELLER"
	RoleAdmin  Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// User is a marketplace account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor is the resolved identity of the caller. A nil *Actor means unauthenticated.
type Actor struct {
	ID   string
	Role Role
}

// ActorID returns the id of a, or "" when a is nil.
func ActorID(a *Actor) string {
	if a == nil {
		return ""
	}
	return a.ID
}
