package models

import (
	"time"
)

type User struct {
	ID           string
	Name         string
	LastName     string
	Email        string // stored lowercased, unique case-insensitively
	PasswordHash string
	RoleID       string
	Role         *Role

	EmailVerifiedAt  *time.Time
	VerificationCode *string

	PasswordResetToken     *string
	PasswordResetExpiresAt *time.Time
	PasswordChangedAt      *time.Time

	// Lockout state. Mutated only by the lockout policy and the
	// authentication service; CRUD paths must never touch these.
	FailedLoginAttempts int
	LastFailedLoginAt   *time.Time
	LockedUntil         *time.Time
	LockoutCount        int
	LastLockoutAt       *time.Time
	IsPermanentlyLocked bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EmailVerified reports whether the user's email address has been confirmed.
func (u *User) EmailVerified() bool {
	return u.EmailVerifiedAt != nil
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role != nil && u.Role.IsAdmin()
}

// IsSuperadmin reports whether the user carries the superadmin role.
func (u *User) IsSuperadmin() bool {
	return u.Role != nil && u.Role.IsSuperadmin()
}
