// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

// Package memory provides in-process implementations of the auth
// AccountRegistry and SessionStore. State lives only as long as the process.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/bento-baas/bento/internal/auth"
)

// Compile-time interface check.
var _ auth.AccountRegistry = (*AccountRegistry)(nil)

// AccountRegistry is an in-memory auth.AccountRegistry.
type AccountRegistry struct {
	mu         sync.RWMutex
	byID       map[ulid.ULID]*auth.Account
	byUsername map[string]ulid.ULID // normalized username -> id
	clock      func() time.Time
	newID      func() ulid.ULID
}

// RegistryOption configures an AccountRegistry.
type RegistryOption func(*AccountRegistry)

// WithRegistryClock sets the time source for CreatedAt/UpdatedAt.
func WithRegistryClock(clock func() time.Time) RegistryOption {
	return func(r *AccountRegistry) { r.clock = clock }
}

// NewAccountRegistry creates an empty registry.
func NewAccountRegistry(opts ...RegistryOption) *AccountRegistry {
	r := &AccountRegistry{
		byID:       make(map[ulid.ULID]*auth.Account),
		byUsername: make(map[string]ulid.ULID),
		clock:      time.Now,
		newID:      NewULID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create stores a new account. The username check and insert happen under
// one write lock so concurrent registrations of a name cannot both succeed.
func (r *AccountRegistry) Create(_ context.Context, username, passwordHash string, role auth.Role) (*auth.Account, error) {
	if passwordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	if !role.Assignable() {
		return nil, oops.Code("ACCOUNT_INVALID_ROLE").
			With("role", role.String()).
			Errorf("role cannot be assigned to an account")
	}

	key := auth.NormalizeUsername(username)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[key]; exists {
		return nil, oops.With("username", username).Wrap(auth.ErrDuplicateUsername)
	}

	now := r.clock()
	account := &auth.Account{
		ID:           r.newID(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byID[account.ID] = account
	r.byUsername[key] = account.ID

	return account.Clone(), nil
}

// GetByID retrieves an account by ID.
func (r *AccountRegistry) GetByID(_ context.Context, id ulid.ULID) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, notFound(id)
	}
	return account.Clone(), nil
}

// GetByUsername retrieves an account by username (case-insensitive).
func (r *AccountRegistry) GetByUsername(_ context.Context, username string) (*auth.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[auth.NormalizeUsername(username)]
	if !ok {
		return nil, oops.With("username", username).Wrap(auth.ErrNotFound)
	}
	return r.byID[id].Clone(), nil
}

// SetRole changes the role of an account.
func (r *AccountRegistry) SetRole(ctx context.Context, id ulid.ULID, role auth.Role) error {
	if !role.Assignable() {
		return oops.Code("ACCOUNT_INVALID_ROLE").
			With("role", role.String()).
			Errorf("role cannot be assigned to an account")
	}
	_, err := r.Update(ctx, id, func(a *auth.Account) error {
		a.Role = role
		return nil
	})
	return err
}

// UpdatePassword replaces the password hash of an account.
func (r *AccountRegistry) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	if passwordHash == "" {
		return oops.Code("ACCOUNT_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	_, err := r.Update(ctx, id, func(a *auth.Account) error {
		a.PasswordHash = passwordHash
		return nil
	})
	return err
}

// Update applies fn to a copy of the account and stores the copy if fn
// succeeds. Identity fields are restored after fn runs.
func (r *AccountRegistry) Update(_ context.Context, id ulid.ULID, fn func(*auth.Account) error) (*auth.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return nil, notFound(id)
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, oops.With("account_id", id.String()).Wrap(err)
	}
	if next.PasswordHash == "" {
		return nil, oops.Code("ACCOUNT_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	if !next.Role.Assignable() {
		return nil, oops.Code("ACCOUNT_INVALID_ROLE").
			With("role", next.Role.String()).
			Errorf("role cannot be assigned to an account")
	}

	next.ID = current.ID
	next.Username = current.Username
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = r.clock()
	r.byID[id] = next

	return next.Clone(), nil
}

// Delete removes an account. Sessions are not touched; callers revoke them
// through the session store.
func (r *AccountRegistry) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byID[id]
	if !ok {
		return notFound(id)
	}
	delete(r.byID, id)
	delete(r.byUsername, auth.NormalizeUsername(account.Username))
	return nil
}

// Count returns the number of stored accounts.
func (r *AccountRegistry) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID), nil
}

func notFound(id ulid.ULID) error {
	return oops.With("account_id", id.String()).Wrap(auth.ErrNotFound)
}
