package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account that can sign in and belong to projects.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	AccountRole  string     `json:"account_role"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// Account-level roles. These are not project roles and grant nothing inside
// a project; project permissions come from membership.
const (
	AccountRoleAdmin    = "ADMIN"
	AccountRoleAttorney = "ATTORNEY"
	AccountRoleAnalyst  = "ANALYST"
	AccountRoleViewer   = "VIEWER"
)

// ValidAccountRoles contains all valid account role values.
var ValidAccountRoles = []string{AccountRoleAdmin, AccountRoleAttorney, AccountRoleAnalyst, AccountRoleViewer}

// IsValidAccountRole checks if the given account role is valid.
func IsValidAccountRole(role string) bool {
	for _, r := range ValidAccountRoles {
		if r == role {
			return true
		}
	}
	return false
}

// UserSummary is the public view of a user embedded in other responses.
type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

// Summary returns the public view of u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email}
}
