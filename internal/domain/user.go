package domain

import "time"

// Roles.
const (
	RoleAdmin  = "admin"
	RoleSeller = "seller"
)

// User is a store operator.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func IsValidRole(role string) bool {
	return role == RoleAdmin || role == RoleSeller
}
