// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bento-baas/bento/internal/auth"
	"github.com/bento-baas/bento/pkg/errutil"
)

// fastParams keeps argon2 cheap in tests.
func fastParams() auth.Argon2Params {
	return auth.Argon2Params{Time: 1, Memory: 64, Threads: 1, SaltLen: 16, KeyLen: 32}
}

func newFastHasher(t *testing.T) *auth.Argon2idHasher {
	t.Helper()
	h, err := auth.NewArgon2idHasherWithParams(fastParams())
	require.NoError(t, err)
	return h
}

func TestHashPassword(t *testing.T) {
	hasher := newFastHasher(t)

	t.Run("produces PHC encoded argon2id hash", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=64,t=1,p=1$"))
		assert.Len(t, strings.Split(hash, "$"), 6)
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
	})
}

func TestDefaultHasherUsesOWASPParams(t *testing.T) {
	p := auth.NewArgon2idHasher().Params()
	assert.Equal(t, uint32(1), p.Time)
	assert.Equal(t, uint32(64*1024), p.Memory)
	assert.Equal(t, uint8(4), p.Threads)
	assert.Equal(t, uint32(16), p.SaltLen)
	assert.Equal(t, uint32(32), p.KeyLen)
}

func TestNewArgon2idHasherWithParams_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*auth.Argon2Params)
	}{
		{"zero time", func(p *auth.Argon2Params) { p.Time = 0 }},
		{"zero threads", func(p *auth.Argon2Params) { p.Threads = 0 }},
		{"memory below 8 KiB per thread", func(p *auth.Argon2Params) { p.Threads = 16; p.Memory = 64 }},
		{"short salt", func(p *auth.Argon2Params) { p.SaltLen = 4 }},
		{"short key", func(p *auth.Argon2Params) { p.KeyLen = 8 }},
		{"memory above 4 GiB", func(p *auth.Argon2Params) { p.Memory = 4<<20 + 1 }},
		{"time above cap", func(p *auth.Argon2Params) { p.Time = 65 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fastParams()
			tt.mutate(&p)
			h, err := auth.NewArgon2idHasherWithParams(p)
			require.Error(t, err)
			assert.Nil(t, h)
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH_PARAMS")
		})
	}
}

func TestVerifyPassword(t *testing.T) {
	hasher := newFastHasher(t)

	t.Run("correct password verifies", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify("correctpassword", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		hash, err := hasher.Hash("correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify("wrongpassword", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("hash from other parameters still verifies", func(t *testing.T) {
		other, err := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 2, Memory: 128, Threads: 2, SaltLen: 8, KeyLen: 16})
		require.NoError(t, err)
		hash, err := other.Hash("portable")
		require.NoError(t, err)

		ok, err := hasher.Verify("portable", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	malformed := []struct {
		name     string
		hash     string
		contains string
	}{
		{"invalid format", "not-a-valid-hash", "invalid hash format"},
		{"wrong algorithm", "$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA", "unsupported hash algorithm"},
		{"invalid version format", "$argon2id$vXX$m=65536,t=1,p=4$c2FsdA$aGFzaA", ""},
		{"unsupported version", "$argon2id$v=16$m=65536,t=1,p=4$c2FsdA$aGFzaA", "unsupported argon2 version"},
		{"invalid parameters", "$argon2id$v=19$invalid$c2FsdA$aGFzaA", ""},
		{"invalid salt base64", "$argon2id$v=19$m=65536,t=1,p=4$!!!invalid!!!$aGFzaA", ""},
		{"invalid key base64", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!invalid!!!", ""},
		{"threads overflow", "$argon2id$v=19$m=65536,t=1,p=256$c2FsdA$aGFzaA", "threads value"},
		{"zero threads", "$argon2id$v=19$m=65536,t=1,p=0$c2FsdA$aGFzaA", "threads value"},
		{"empty key", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$", "key length"},
		{"memory above 4 GiB", "$argon2id$v=19$m=4294967295,t=1,p=4$c2FsdA$aGFzaA", "memory value"},
		{"zero memory", "$argon2id$v=19$m=0,t=1,p=4$c2FsdA$aGFzaA", "memory value"},
		{"time above cap", "$argon2id$v=19$m=65536,t=1000000,p=4$c2FsdA$aGFzaA", "time value"},
	}
	for _, tt := range malformed {
		t.Run(tt.name+" returns error", func(t *testing.T) {
			ok, err := hasher.Verify("password", tt.hash)
			require.Error(t, err)
			assert.False(t, ok)
			errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

func TestNeedsUpgrade(t *testing.T) {
	hasher := newFastHasher(t)

	t.Run("non-argon2id hash needs upgrade", func(t *testing.T) {
		bcryptHash := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIvNq.Uf3hE9tQALNP1Qn9sNp5x5x5x5"
		assert.True(t, hasher.NeedsUpgrade(bcryptHash))
	})

	t.Run("hash with current parameters does not", func(t *testing.T) {
		hash, err := hasher.Hash("password")
		require.NoError(t, err)
		assert.False(t, hasher.NeedsUpgrade(hash))
	})

	t.Run("hash with other cost parameters does", func(t *testing.T) {
		stronger := fastParams()
		stronger.Time = 2
		other, err := auth.NewArgon2idHasherWithParams(stronger)
		require.NoError(t, err)
		hash, err := other.Hash("password")
		require.NoError(t, err)
		assert.True(t, hasher.NeedsUpgrade(hash))
	})
}
