// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

// Package mocks provides testify mocks of the auth storage and hashing
// interfaces for exercising Service failure paths.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/bento-baas/bento/internal/auth"
)

// Compile-time interface checks.
var (
	_ auth.AccountRegistry = (*MockAccountRegistry)(nil)
	_ auth.SessionStore    = (*MockSessionStore)(nil)
	_ auth.PasswordHasher  = (*MockPasswordHasher)(nil)
)

// testingT is the subset of *testing.T the constructors need.
type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// account returns the first return value as an *auth.Account, tolerating nil.
func account(args mock.Arguments, i int) *auth.Account {
	if a, ok := args.Get(i).(*auth.Account); ok {
		return a
	}
	return nil
}

func session(args mock.Arguments, i int) *auth.Session {
	if s, ok := args.Get(i).(*auth.Session); ok {
		return s
	}
	return nil
}

// MockAccountRegistry is a mock auth.AccountRegistry.
type MockAccountRegistry struct {
	mock.Mock
}

// NewMockAccountRegistry creates a mock that asserts its expectations on cleanup.
func NewMockAccountRegistry(t testingT) *MockAccountRegistry {
	m := &MockAccountRegistry{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create implements auth.AccountRegistry.
func (m *MockAccountRegistry) Create(ctx context.Context, username, passwordHash string, role auth.Role) (*auth.Account, error) {
	args := m.Called(ctx, username, passwordHash, role)
	return account(args, 0), args.Error(1)
}

// GetByID implements auth.AccountRegistry.
func (m *MockAccountRegistry) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	args := m.Called(ctx, id)
	return account(args, 0), args.Error(1)
}

// GetByUsername implements auth.AccountRegistry.
func (m *MockAccountRegistry) GetByUsername(ctx context.Context, username string) (*auth.Account, error) {
	args := m.Called(ctx, username)
	return account(args, 0), args.Error(1)
}

// SetRole implements auth.AccountRegistry.
func (m *MockAccountRegistry) SetRole(ctx context.Context, id ulid.ULID, role auth.Role) error {
	return m.Called(ctx, id, role).Error(0)
}

// UpdatePassword implements auth.AccountRegistry.
func (m *MockAccountRegistry) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

// Update implements auth.AccountRegistry.
func (m *MockAccountRegistry) Update(ctx context.Context, id ulid.ULID, fn func(*auth.Account) error) (*auth.Account, error) {
	args := m.Called(ctx, id, fn)
	return account(args, 0), args.Error(1)
}

// Delete implements auth.AccountRegistry.
func (m *MockAccountRegistry) Delete(ctx context.Context, id ulid.ULID) error {
	return m.Called(ctx, id).Error(0)
}

// Count implements auth.AccountRegistry.
func (m *MockAccountRegistry) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockSessionStore is a mock auth.SessionStore.
type MockSessionStore struct {
	mock.Mock
}

// NewMockSessionStore creates a mock that asserts its expectations on cleanup.
func NewMockSessionStore(t testingT) *MockSessionStore {
	m := &MockSessionStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create implements auth.SessionStore.
func (m *MockSessionStore) Create(ctx context.Context, accountID ulid.ULID, ttl time.Duration, clientIP string) (*auth.Session, string, error) {
	args := m.Called(ctx, accountID, ttl, clientIP)
	return session(args, 0), args.String(1), args.Error(2)
}

// Validate implements auth.SessionStore.
func (m *MockSessionStore) Validate(ctx context.Context, token string) (*auth.Session, error) {
	args := m.Called(ctx, token)
	return session(args, 0), args.Error(1)
}

// Extend implements auth.SessionStore.
func (m *MockSessionStore) Extend(ctx context.Context, token string, ttl time.Duration) (*auth.Session, error) {
	args := m.Called(ctx, token, ttl)
	return session(args, 0), args.Error(1)
}

// Revoke implements auth.SessionStore.
func (m *MockSessionStore) Revoke(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

// RevokeAllForAccount implements auth.SessionStore.
func (m *MockSessionStore) RevokeAllForAccount(ctx context.Context, accountID ulid.ULID) (int, error) {
	args := m.Called(ctx, accountID)
	return args.Int(0), args.Error(1)
}

// ListForAccount implements auth.SessionStore.
func (m *MockSessionStore) ListForAccount(ctx context.Context, accountID ulid.ULID) ([]*auth.Session, error) {
	args := m.Called(ctx, accountID)
	sessions, _ := args.Get(0).([]*auth.Session)
	return sessions, args.Error(1)
}

// DeleteExpired implements auth.SessionStore.
func (m *MockSessionStore) DeleteExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// Len implements auth.SessionStore.
func (m *MockSessionStore) Len() int {
	return m.Called().Int(0)
}

// MockPasswordHasher is a mock auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t testingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Hash implements auth.PasswordHasher.
func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

// Verify implements auth.PasswordHasher.
func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

// NeedsUpgrade implements auth.PasswordHasher.
func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	return m.Called(hash).Bool(0)
}
