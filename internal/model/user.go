package model

import "time"

// Account roles stored in users.role and carried in the JWT role claim.
const (
	RoleUser   = "user"
	RoleDriver = "driver"
	RoleAdmin  = "admin"
)

// User represents a row of the `users` table. The password hash never
// leaves the service; handlers answer with the json-tagged fields only.
type User struct {
	ID           uint64    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone,omitempty"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// ValidRole reports whether r is one of the account roles.
func ValidRole(r string) bool {
	return r == RoleUser || r == RoleDriver || r == RoleAdmin
}
