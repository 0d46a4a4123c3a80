// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package memory

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/bento-baas/bento/internal/auth"
)

// Compile-time interface check.
var _ auth.SessionStore = (*SessionManager)(nil)

// DefaultMaxSessionsPerAccount caps live sessions per account.
const DefaultMaxSessionsPerAccount = 5

// defaultTokenAttempts bounds how many tokens Create mints before giving up
// on a collision.
const defaultTokenAttempts = 3

// SessionPolicy limits how many sessions an account may hold.
type SessionPolicy struct {
	// MaxPerAccount caps live sessions per account. Zero means unlimited.
	MaxPerAccount int
	// SingleSession makes a new session replace all others of the account.
	SingleSession bool
}

// DefaultSessionPolicy returns the default session policy.
func DefaultSessionPolicy() SessionPolicy {
	return SessionPolicy{MaxPerAccount: DefaultMaxSessionsPerAccount}
}

// SessionManager is an in-memory auth.SessionStore keyed by token digest.
// Expiry is evaluated lazily on access against the injected clock.
type SessionManager struct {
	mu        sync.RWMutex
	byHash    map[string]*auth.Session
	byAccount map[ulid.ULID]map[string]struct{}

	policy        SessionPolicy
	tokens        auth.TokenGenerator
	clock         func() time.Time
	tokenAttempts uint64
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithSessionClock sets the time source used for issuance and expiry.
func WithSessionClock(clock func() time.Time) SessionOption {
	return func(m *SessionManager) { m.clock = clock }
}

// WithTokenGenerator sets the token source.
func WithTokenGenerator(g auth.TokenGenerator) SessionOption {
	return func(m *SessionManager) { m.tokens = g }
}

// WithSessionPolicy sets the per-account session policy.
func WithSessionPolicy(p SessionPolicy) SessionOption {
	return func(m *SessionManager) { m.policy = p }
}

// WithTokenAttempts sets how many tokens Create tries before reporting
// auth.ErrTokenCollision. Values below 1 are treated as 1.
func WithTokenAttempts(n int) SessionOption {
	return func(m *SessionManager) {
		m.tokenAttempts = uint64(max(n, 1))
	}
}

// NewSessionManager creates an empty session store.
func NewSessionManager(opts ...SessionOption) *SessionManager {
	m := &SessionManager{
		byHash:        make(map[string]*auth.Session),
		byAccount:     make(map[ulid.ULID]map[string]struct{}),
		policy:        DefaultSessionPolicy(),
		tokens:        auth.NewRandomTokenGenerator(),
		clock:         time.Now,
		tokenAttempts: defaultTokenAttempts,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create mints a token and stores a session. Token generation happens
// outside the lock; the uniqueness check and insert happen under it.
func (m *SessionManager) Create(ctx context.Context, accountID ulid.ULID, ttl time.Duration, clientIP string) (*auth.Session, string, error) {
	var (
		session *auth.Session
		token   string
	)

	backoff := retry.WithMaxRetries(m.tokenAttempts-1, retry.NewConstant(time.Millisecond))
	err := retry.Do(ctx, backoff, func(_ context.Context) error {
		candidate, err := m.tokens.Generate()
		if err != nil {
			return err //nolint:wrapcheck // already an oops error
		}
		s, err := m.insert(accountID, candidate, ttl, clientIP)
		if errors.Is(err, auth.ErrTokenCollision) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		session, token = s, candidate
		return nil
	})
	if err != nil {
		return nil, "", oops.With("account_id", accountID.String()).Wrap(err)
	}
	return session, token, nil
}

func (m *SessionManager) insert(accountID ulid.ULID, token string, ttl time.Duration, clientIP string) (*auth.Session, error) {
	hash := auth.HashSessionToken(token)
	now := m.clock()

	session, err := auth.NewSession(accountID, hash, clientIP, now, ttl)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byHash[hash]; exists {
		return nil, auth.ErrTokenCollision
	}

	switch {
	case m.policy.SingleSession:
		m.removeAccountLocked(accountID)
	case m.policy.MaxPerAccount > 0:
		m.pruneExpiredLocked(accountID, now)
		if len(m.byAccount[accountID]) >= m.policy.MaxPerAccount {
			return nil, oops.With("max_per_account", m.policy.MaxPerAccount).Wrap(auth.ErrSessionLimitReached)
		}
	}

	m.byHash[hash] = session
	owned, ok := m.byAccount[accountID]
	if !ok {
		owned = make(map[string]struct{})
		m.byAccount[accountID] = owned
	}
	owned[hash] = struct{}{}

	return session.Clone(), nil
}

// Validate returns the session for token. The common path only takes the
// read lock; an expired entry is evicted under the write lock.
func (m *SessionManager) Validate(_ context.Context, token string) (*auth.Session, error) {
	hash := auth.HashSessionToken(token)
	now := m.clock()

	m.mu.RLock()
	session, ok := m.byHash[hash]
	if !ok {
		m.mu.RUnlock()
		return nil, auth.ErrNotFound
	}
	if !session.IsExpiredAt(now) {
		c := session.Clone()
		m.mu.RUnlock()
		return c, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-check: the entry may have been evicted or extended meanwhile.
	session, ok = m.byHash[hash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if !session.IsExpiredAt(now) {
		return session.Clone(), nil
	}
	m.removeLocked(session)
	return nil, oops.With("expired_at", session.ExpiresAt).Wrap(auth.ErrSessionExpired)
}

// Extend resets the expiry of a live session to now + ttl.
func (m *SessionManager) Extend(_ context.Context, token string, ttl time.Duration) (*auth.Session, error) {
	if ttl <= 0 {
		return nil, oops.Code("SESSION_INVALID_TTL").
			With("ttl", ttl.String()).
			Errorf("session ttl must be positive")
	}
	hash := auth.HashSessionToken(token)
	now := m.clock()

	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.byHash[hash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	if session.IsExpiredAt(now) {
		m.removeLocked(session)
		return nil, oops.With("expired_at", session.ExpiresAt).Wrap(auth.ErrSessionExpired)
	}
	session.ExpiresAt = now.Add(ttl)
	return session.Clone(), nil
}

// Revoke removes the session for token.
func (m *SessionManager) Revoke(_ context.Context, token string) error {
	hash := auth.HashSessionToken(token)

	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.byHash[hash]
	if !ok {
		return auth.ErrNotFound
	}
	m.removeLocked(session)
	return nil
}

// RevokeAllForAccount removes every session of an account.
func (m *SessionManager) RevokeAllForAccount(_ context.Context, accountID ulid.ULID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeAccountLocked(accountID), nil
}

// ListForAccount returns the live sessions of an account, oldest first.
func (m *SessionManager) ListForAccount(_ context.Context, accountID ulid.ULID) ([]*auth.Session, error) {
	now := m.clock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*auth.Session, 0, len(m.byAccount[accountID]))
	for hash := range m.byAccount[accountID] {
		s := m.byHash[hash]
		if s.IsExpiredAt(now) {
			continue
		}
		sessions = append(sessions, s.Clone())
	}
	slices.SortFunc(sessions, func(a, b *auth.Session) int {
		return a.IssuedAt.Compare(b.IssuedAt)
	})
	return sessions, nil
}

// DeleteExpired evicts every expired session.
func (m *SessionManager) DeleteExpired(_ context.Context) (int, error) {
	now := m.clock()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for _, s := range m.byHash {
		if s.IsExpiredAt(now) {
			m.removeLocked(s)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored sessions, including expired ones not yet evicted.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byHash)
}

// removeLocked deletes a session from both indexes. Caller holds the write lock.
func (m *SessionManager) removeLocked(s *auth.Session) {
	delete(m.byHash, s.TokenHash)
	if owned, ok := m.byAccount[s.AccountID]; ok {
		delete(owned, s.TokenHash)
		if len(owned) == 0 {
			delete(m.byAccount, s.AccountID)
		}
	}
}

func (m *SessionManager) removeAccountLocked(accountID ulid.ULID) int {
	owned := m.byAccount[accountID]
	for hash := range owned {
		delete(m.byHash, hash)
	}
	delete(m.byAccount, accountID)
	return len(owned)
}

func (m *SessionManager) pruneExpiredLocked(accountID ulid.ULID, now time.Time) {
	for hash := range m.byAccount[accountID] {
		if s := m.byHash[hash]; s.IsExpiredAt(now) {
			m.removeLocked(s)
		}
	}
}
