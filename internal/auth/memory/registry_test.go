// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bento-baas/bento/internal/auth"
	"github.com/bento-baas/bento/internal/auth/memory"
	"github.com/bento-baas/bento/pkg/errutil"
)

func TestAccountRegistry_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	r := memory.NewAccountRegistry(memory.WithRegistryClock(func() time.Time { return now }))

	account, err := r.Create(ctx, "Alice", "hash", auth.RoleUser)
	require.NoError(t, err)
	assert.NotEqual(t, ulid.ULID{}, account.ID)
	assert.Equal(t, "Alice", account.Username)
	assert.Equal(t, now, account.CreatedAt)
	assert.Equal(t, now, account.UpdatedAt)

	t.Run("duplicate differs only by case", func(t *testing.T) {
		_, err := r.Create(ctx, "ALICE", "hash", auth.RoleUser)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrDuplicateUsername)
	})

	t.Run("empty hash rejected", func(t *testing.T) {
		_, err := r.Create(ctx, "bob", "", auth.RoleUser)
		errutil.AssertErrorCode(t, err, "ACCOUNT_INVALID_HASH")
	})

	t.Run("anonymous role rejected", func(t *testing.T) {
		_, err := r.Create(ctx, "bob", "hash", auth.RoleAnonymous)
		errutil.AssertErrorCode(t, err, "ACCOUNT_INVALID_ROLE")
	})

	count, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAccountRegistry_Lookups(t *testing.T) {
	ctx := context.Background()
	r := memory.NewAccountRegistry()
	created, err := r.Create(ctx, "alice", "hash", auth.RoleAdmin)
	require.NoError(t, err)

	byID, err := r.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, byID)

	byName, err := r.GetByUsername(ctx, "AlIcE")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	_, err = r.GetByID(ctx, ulid.Make())
	assert.ErrorIs(t, err, auth.ErrNotFound)

	_, err = r.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestAccountRegistry_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := memory.NewAccountRegistry()
	created, err := r.Create(ctx, "alice", "hash", auth.RoleUser)
	require.NoError(t, err)

	created.Role = auth.RoleAdmin
	created.PasswordHash = "tampered"

	stored, err := r.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleUser, stored.Role)
	assert.Equal(t, "hash", stored.PasswordHash)
}

func TestAccountRegistry_Mutations(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	r := memory.NewAccountRegistry(memory.WithRegistryClock(func() time.Time { return clock }))
	created, err := r.Create(ctx, "alice", "hash", auth.RoleUser)
	require.NoError(t, err)

	clock = clock.Add(time.Hour)

	t.Run("set role", func(t *testing.T) {
		require.NoError(t, r.SetRole(ctx, created.ID, auth.RoleAdmin))
		stored, err := r.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, stored.Role)
		assert.Equal(t, clock, stored.UpdatedAt)

		errutil.AssertErrorCode(t, r.SetRole(ctx, created.ID, auth.RoleAnonymous), "ACCOUNT_INVALID_ROLE")
		assert.ErrorIs(t, r.SetRole(ctx, ulid.Make(), auth.RoleUser), auth.ErrNotFound)
	})

	t.Run("update password", func(t *testing.T) {
		require.NoError(t, r.UpdatePassword(ctx, created.ID, "new-hash"))
		stored, err := r.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "new-hash", stored.PasswordHash)

		errutil.AssertErrorCode(t, r.UpdatePassword(ctx, created.ID, ""), "ACCOUNT_INVALID_HASH")
		assert.ErrorIs(t, r.UpdatePassword(ctx, ulid.Make(), "x"), auth.ErrNotFound)
	})

	t.Run("update cannot change identity", func(t *testing.T) {
		updated, err := r.Update(ctx, created.ID, func(a *auth.Account) error {
			a.ID = ulid.Make()
			a.Username = "mallory"
			a.FailedAttempts = 3
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "alice", updated.Username)
		assert.Equal(t, 3, updated.FailedAttempts)

		_, err = r.GetByUsername(ctx, "mallory")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("failed update leaves account untouched", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := r.Update(ctx, created.ID, func(a *auth.Account) error {
			a.FailedAttempts = 99
			return boom
		})
		assert.ErrorIs(t, err, boom)

		stored, err := r.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, stored.FailedAttempts)
	})
}

func TestAccountRegistry_Delete(t *testing.T) {
	ctx := context.Background()
	r := memory.NewAccountRegistry()
	created, err := r.Create(ctx, "alice", "hash", auth.RoleUser)
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, created.ID))
	assert.ErrorIs(t, r.Delete(ctx, created.ID), auth.ErrNotFound)

	_, err = r.GetByUsername(ctx, "alice")
	assert.ErrorIs(t, err, auth.ErrNotFound)

	// Name can be reused after deletion.
	again, err := r.Create(ctx, "alice", "hash", auth.RoleUser)
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, again.ID)
}
