// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

// usernameRegex matches usernames that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, and underscores
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// Account is a registered identity.
type Account struct {
	ID             ulid.ULID
	Username       string
	PasswordHash   string
	Role           Role
	FailedAttempts int
	LockedUntil    *time.Time
	LastLoginAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsLockedAt returns true if the account is locked out at the given instant.
func (a *Account) IsLockedAt(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// RecordFailure increments the failure counter and applies the lockout policy.
func (a *Account) RecordFailure(policy LockoutPolicy, now time.Time) {
	a.FailedAttempts++
	a.LockedUntil = policy.LockoutTime(a.FailedAttempts, now)
	a.UpdatedAt = now
}

// RecordSuccess resets the failure counter and stamps the login time.
func (a *Account) RecordSuccess(now time.Time) {
	a.FailedAttempts = 0
	a.LockedUntil = nil
	a.LastLoginAt = &now
	a.UpdatedAt = now
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.LockedUntil != nil {
		t := *a.LockedUntil
		c.LockedUntil = &t
	}
	if a.LastLoginAt != nil {
		t := *a.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}

// NormalizeUsername returns the key usernames are compared by.
// Uniqueness is case-insensitive: "Alice" and "alice" are the same account.
func NormalizeUsername(username string) string {
	return strings.ToLower(username)
}

// ValidateUsername validates a username against rules.
// Username requirements:
// - Length: MinUsernameLength to MaxUsernameLength characters
// - Must start with a letter
// - Can contain only letters (a-z, A-Z), numbers (0-9), and underscores (_)
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code(CodeInvalidUsername).Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code(CodeInvalidUsername).
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code(CodeInvalidUsername).
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code(CodeInvalidUsername).
			Errorf("username must start with a letter and contain only letters, numbers, and underscores")
	}
	return nil
}

// SessionRevoker removes every session belonging to an account.
type SessionRevoker interface {
	RevokeAllForAccount(ctx context.Context, accountID ulid.ULID) (int, error)
}

// AccountRegistry stores accounts. Implementations must make username
// check-and-insert atomic and must return copies, never shared pointers.
// Registries never make authorization decisions.
type AccountRegistry interface {
	// Create stores a new account and assigns its ID.
	// Returns ErrDuplicateUsername if the normalized username is taken.
	Create(ctx context.Context, username, passwordHash string, role Role) (*Account, error)

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByUsername retrieves an account by username (case-insensitive).
	GetByUsername(ctx context.Context, username string) (*Account, error)

	// SetRole changes the role of an account.
	SetRole(ctx context.Context, id ulid.ULID, role Role) error

	// UpdatePassword replaces the password hash of an account.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// Update applies fn to the stored account atomically and returns the result.
	// The ID, Username and CreatedAt fields cannot be changed through fn.
	Update(ctx context.Context, id ulid.ULID, fn func(*Account) error) (*Account, error)

	// Delete removes an account. Its sessions are left to the caller.
	Delete(ctx context.Context, id ulid.ULID) error

	// Count returns the number of stored accounts.
	Count(ctx context.Context) (int, error)
}
