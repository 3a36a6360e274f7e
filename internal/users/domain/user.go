// Package domain holds the user account type shared by administration and assignment.
package domain

import (
	"errors"
	"time"

	"callcenter_backend/internal/access"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned when no live user matches.
var ErrUserNotFound = errors.New("user not found")

// User is a staff account with its role set.
type User struct {
	ID           uuid.UUID
	Email        string
	FullName     string
	PasswordHash string
	Roles        []string
	IsSuspended  bool
	SuspendedAt  *time.Time
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoleSet returns the user's known roles.
func (u User) RoleSet() access.RoleSet {
	return access.NewRoleSet(u.Roles...)
}

// IsActive reports whether the account can sign in and take work.
func (u User) IsActive() bool {
	return !u.IsSuspended && u.DeletedAt == nil
}
