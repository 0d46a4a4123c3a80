// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/samber/oops"
)

// SessionTokenBytes is the amount of entropy in a session token.
const SessionTokenBytes = 32 // 32 bytes = 64 hex chars

// TokenGenerator mints opaque bearer tokens.
type TokenGenerator interface {
	Generate() (string, error)
}

// RandomTokenGenerator reads SessionTokenBytes from a cryptographic source
// and hex-encodes them.
type RandomTokenGenerator struct {
	source io.Reader
}

// NewRandomTokenGenerator returns a generator backed by crypto/rand.
func NewRandomTokenGenerator() *RandomTokenGenerator {
	return &RandomTokenGenerator{source: rand.Reader}
}

// NewTokenGeneratorFromReader returns a generator reading from r.
// Only tests should pass anything other than crypto/rand.Reader.
func NewTokenGeneratorFromReader(r io.Reader) *RandomTokenGenerator {
	return &RandomTokenGenerator{source: r}
}

// Generate returns a new token.
func (g *RandomTokenGenerator) Generate() (string, error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err := io.ReadFull(g.source, tokenBytes); err != nil {
		return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}
	return hex.EncodeToString(tokenBytes), nil
}

// HashSessionToken computes the SHA256 hash of a session token.
// Stores key sessions by this digest so a leaked store does not leak tokens.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
