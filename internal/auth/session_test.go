// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package auth_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bento-baas/bento/internal/auth"
	"github.com/bento-baas/bento/pkg/errutil"
)

func TestRandomTokenGenerator(t *testing.T) {
	gen := auth.NewRandomTokenGenerator()

	t.Run("generates 64 hex chars", func(t *testing.T) {
		token, err := gen.Generate()
		require.NoError(t, err)
		assert.Len(t, token, 64) // 32 bytes hex-encoded
		assert.Equal(t, strings.ToLower(token), token)
	})

	t.Run("generates unique tokens", func(t *testing.T) {
		seen := make(map[string]struct{})
		for range 100 {
			token, err := gen.Generate()
			require.NoError(t, err)
			_, dup := seen[token]
			require.False(t, dup)
			seen[token] = struct{}{}
		}
	})

	t.Run("deterministic source yields deterministic token", func(t *testing.T) {
		g := auth.NewTokenGeneratorFromReader(bytes.NewReader(bytes.Repeat([]byte{0xab}, 32)))
		token, err := g.Generate()
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("ab", 32), token)
	})

	t.Run("short source fails", func(t *testing.T) {
		g := auth.NewTokenGeneratorFromReader(bytes.NewReader([]byte{1, 2, 3}))
		_, err := g.Generate()
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "SESSION_TOKEN_GENERATE_FAILED")
	})
}

func TestHashSessionToken(t *testing.T) {
	t.Run("produces consistent hash", func(t *testing.T) {
		assert.Equal(t, auth.HashSessionToken("testtoken123"), auth.HashSessionToken("testtoken123"))
	})

	t.Run("produces different hashes for different tokens", func(t *testing.T) {
		assert.NotEqual(t, auth.HashSessionToken("token1"), auth.HashSessionToken("token2"))
	})

	t.Run("hash is SHA256 hex-encoded", func(t *testing.T) {
		// sha256("abc")
		assert.Equal(t,
			"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
			auth.HashSessionToken("abc"))
	})
}

func TestNewSession(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	accountID := ulid.Make()

	t.Run("valid session", func(t *testing.T) {
		s, err := auth.NewSession(accountID, "hash", "10.0.0.1", now, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, accountID, s.AccountID)
		assert.Equal(t, now, s.IssuedAt)
		assert.Equal(t, now.Add(time.Hour), s.ExpiresAt)
		assert.Equal(t, "10.0.0.1", s.ClientIP)
	})

	tests := []struct {
		name      string
		accountID ulid.ULID
		hash      string
		ttl       time.Duration
		code      string
	}{
		{"zero account", ulid.ULID{}, "hash", time.Hour, "SESSION_INVALID_ACCOUNT"},
		{"empty hash", accountID, "", time.Hour, "SESSION_INVALID_HASH"},
		{"zero ttl", accountID, "hash", 0, "SESSION_INVALID_TTL"},
		{"negative ttl", accountID, "hash", -time.Second, "SESSION_INVALID_TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := auth.NewSession(tt.accountID, tt.hash, "", now, tt.ttl)
			require.Error(t, err)
			assert.Nil(t, s)
			errutil.AssertErrorCode(t, err, tt.code)
		})
	}
}

func TestSession_IsExpiredAt(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s, err := auth.NewSession(ulid.Make(), "hash", "", now, 3600*time.Second)
	require.NoError(t, err)

	assert.False(t, s.IsExpiredAt(now))
	assert.False(t, s.IsExpiredAt(now.Add(3599*time.Second)))
	assert.True(t, s.IsExpiredAt(now.Add(3600*time.Second)), "expiry instant is already expired")
	assert.True(t, s.IsExpiredAt(now.Add(3601*time.Second)))
}

func TestSession_Clone(t *testing.T) {
	s := &auth.Session{TokenHash: "h", AccountID: ulid.Make()}
	c := s.Clone()
	c.TokenHash = "changed"
	assert.Equal(t, "h", s.TokenHash)
	assert.Nil(t, (*auth.Session)(nil).Clone())
}

func TestHasCode(t *testing.T) {
	_, err := auth.ParseRole("root")
	assert.True(t, auth.HasCode(err, auth.CodeInvalidRole))
	assert.False(t, auth.HasCode(err, auth.CodeForbidden))
	assert.False(t, auth.HasCode(errors.New("plain"), auth.CodeInvalidRole))
	assert.False(t, auth.HasCode(nil, auth.CodeInvalidRole))
}
