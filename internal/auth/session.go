// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultSessionTTL is the lifetime of a session when none is configured.
const DefaultSessionTTL = 24 * time.Hour

// Session is an authenticated login. The bearer token itself is never
// stored; TokenHash is its SHA256 digest.
type Session struct {
	TokenHash string
	AccountID ulid.ULID
	ClientIP  string // audit only
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NewSession creates a validated Session issued at now.
func NewSession(accountID ulid.ULID, tokenHash, clientIP string, now time.Time, ttl time.Duration) (*Session, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT").Errorf("account ID cannot be zero")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if ttl <= 0 {
		return nil, oops.Code("SESSION_INVALID_TTL").
			With("ttl", ttl.String()).
			Errorf("session ttl must be positive")
	}
	return &Session{
		TokenHash: tokenHash,
		AccountID: accountID,
		ClientIP:  clientIP,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// IsExpiredAt reports whether the session is dead at t.
// A session whose expiry equals t is already expired.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// Clone returns a copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// SessionStore holds live sessions.
type SessionStore interface {
	SessionRevoker

	// Create mints a token and stores a session for the account.
	// The plaintext token is returned exactly once.
	// Returns ErrSessionLimitReached when the account is at its session cap.
	Create(ctx context.Context, accountID ulid.ULID, ttl time.Duration, clientIP string) (*Session, string, error)

	// Validate returns the session for a token.
	// Returns ErrNotFound for unknown tokens and ErrSessionExpired (after
	// evicting the entry) for expired ones.
	Validate(ctx context.Context, token string) (*Session, error)

	// Extend resets the expiry of a live session to now + ttl.
	Extend(ctx context.Context, token string, ttl time.Duration) (*Session, error)

	// Revoke removes the session for a token. Returns ErrNotFound if absent.
	Revoke(ctx context.Context, token string) error

	// ListForAccount returns the live sessions of an account.
	ListForAccount(ctx context.Context, accountID ulid.ULID) ([]*Session, error)

	// DeleteExpired removes every expired session and returns how many were removed.
	DeleteExpired(ctx context.Context) (int, error)

	// Len returns the number of stored sessions, including expired ones not yet evicted.
	Len() int
}
