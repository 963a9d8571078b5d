package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserRole is the account role.
type UserRole string

const (
	RoleUser     UserRole = "user"
	RoleReseller UserRole = "reseller"
	RoleAdmin    UserRole = "admin"
)

// ParseUserRole converts a stored or token value into a UserRole.
func ParseUserRole(s string) (UserRole, error) {
	switch r := UserRole(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleReseller, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// User is a registered customer, reseller or admin.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin returns true for admin accounts.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Actor is the authenticated caller of a core operation.
type Actor struct {
	UserID   uuid.UUID
	Role     UserRole
	Email    string
	FullName string
	IP       string
}
