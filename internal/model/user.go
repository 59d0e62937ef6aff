package model

import "time"

// Role names the two kinds of marketplace accounts.  The value is stored in
// users.role and carried in the JWT "role" claim.
type Role string

const (
	RoleSeeker   Role = "SEEKER"
	RoleProvider Role = "PROVIDER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleSeeker || r == RoleProvider }

// AccountStatus values for users.account_status.  Only Active accounts may
// log in.
const (
	AccountStatusActive    = "Active"
	AccountStatusSuspended = "Suspended"
)

// User represents an account record as stored in the `users` table.
// Seekers and providers share the table and are told apart by Role.
//
// Fields:
//
//	ID            – primary key identifier of the account.
//	Email         – unique, lower-cased email address.
//	PasswordHash  – bcrypt hashed password.
//	Role          – SEEKER or PROVIDER.
//	FirstName     – given name.
//	LastName      – family name.
//	Phone         – contact number.
//	BusinessName  – provider trading name (empty for seekers).
//	AccountStatus – Active or Suspended.
//	IsVerified    – identity verification flag.
//	CreatedAt     – timestamp of creation.
//	UpdatedAt     – timestamp of last update.
type User struct {
	ID            uint64    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Role          Role      `json:"role"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Phone         string    `json:"phone"`
	BusinessName  string    `json:"business_name,omitempty"`
	AccountStatus string    `json:"account_status"`
	IsVerified    bool      `json:"is_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FullName joins first and last name the way dashboards display them.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the raw token is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
