package domain

import (
	"errors"
	"time"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

var (
	ErrInvalidInput       = errors.New("username and password are required")
	ErrInvalidRole        = errors.New("role must be one of: user, admin")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("access denied")
)

// ValidRole reports whether role is one the system knows how to authorize.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}

// User models an account that can obtain bearer tokens.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is what a verified bearer token proves about its holder.
type Identity struct {
	UserID    string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
