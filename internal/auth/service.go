// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bento-baas/bento/pkg/errutil"
)

const tracerName = "github.com/bento-baas/bento/internal/auth"

// fallbackDummyHash is verified against when the configured hasher could not
// produce a dummy hash. It never matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const fallbackDummyHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// dummyPassword seeds the hash used for unknown usernames.
const dummyPassword = "bento-unknown-account-placeholder"

// Config holds the tunable behaviour of Service.
type Config struct {
	SessionTTL             time.Duration
	SlidingExpiry          bool
	RevokeOnRoleChange     bool
	RequireAdminToRegister bool
	Password               PasswordPolicy
	Lockout                LockoutPolicy
}

// DefaultConfig returns the default service configuration.
func DefaultConfig() Config {
	return Config{
		SessionTTL:         DefaultSessionTTL,
		RevokeOnRoleChange: true,
		Password:           DefaultPasswordPolicy(),
		Lockout:            DefaultLockoutPolicy(),
	}
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Account *Account
	Session *Session
	Token   string // plaintext bearer token, returned only here
}

// Service composes the hasher, account registry and session store into the
// register/login/authorize/logout/delete operations.
type Service struct {
	accounts  AccountRegistry
	sessions  SessionStore
	hasher    PasswordHasher
	cfg       Config
	usernames *UsernamePolicy
	logger    *slog.Logger
	tracer    trace.Tracer
	clock     func() time.Time

	// dummyHash is verified against for unknown usernames.
	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the service configuration.
func WithConfig(cfg Config) Option {
	return func(s *Service) { s.cfg = cfg }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithTracer sets the tracer. Defaults to the global tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

// WithClock sets the time source used for lockout bookkeeping.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithUsernamePolicy sets the registration username policy.
func WithUsernamePolicy(p *UsernamePolicy) Option {
	return func(s *Service) { s.usernames = p }
}

// NewService creates a new Service.
func NewService(accounts AccountRegistry, sessions SessionStore, hasher PasswordHasher, opts ...Option) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("accounts registry is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("session store is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}

	s := &Service{
		accounts:  accounts,
		sessions:  sessions,
		hasher:    hasher,
		cfg:       DefaultConfig(),
		usernames: &UsernamePolicy{},
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("logger is required")
	}
	if s.tracer == nil || s.clock == nil || s.usernames == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("tracer, clock and username policy must not be nil")
	}
	if s.cfg.SessionTTL <= 0 {
		return nil, oops.Code("AUTH_INVALID_CONFIG").
			With("session_ttl", s.cfg.SessionTTL.String()).
			Errorf("session ttl must be positive")
	}

	s.dummyHash = s.newDummyHash()
	return s, nil
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "auth.Service."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) hashPassword(password string) (string, error) {
	start := time.Now()
	hash, err := s.hasher.Hash(password)
	RecordPasswordHash("hash", time.Since(start))
	return hash, err //nolint:wrapcheck // callers attach operation context
}

func (s *Service) verifyPassword(password, hash string) (bool, error) {
	start := time.Now()
	ok, err := s.hasher.Verify(password, hash)
	RecordPasswordHash("verify", time.Since(start))
	return ok, err //nolint:wrapcheck // callers attach operation context
}

// newDummyHash returns a hash with the same cost as real hashes so that
// logins for unknown usernames take as long as logins with a wrong password.
func (s *Service) newDummyHash() string {
	hash, err := s.hasher.Hash(dummyPassword)
	if err != nil {
		errutil.LogError(s.logger, "dummy hash generation failed, using fallback", err)
		return fallbackDummyHash
	}
	return hash
}

func errInvalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf("invalid username or password")
}

func errAccountLocked(account *Account, limit RateLimitResult) error {
	return oops.Code(CodeAccountLocked).
		With("locked_until", *account.LockedUntil).
		With("retry_after", limit.LockoutRemaining).
		Errorf("account is temporarily locked")
}

func errUnauthenticated(reason string, cause error) error {
	b := oops.Code(CodeUnauthenticated).With("reason", reason)
	if cause != nil {
		return b.Wrapf(cause, "authentication required")
	}
	return b.Errorf("authentication required")
}

func errForbidden(operation string, caller Role) error {
	return oops.Code(CodeForbidden).
		With("operation", operation).
		With("caller_role", caller.String()).
		Errorf("admin role required")
}

// Register creates an account. caller is the role of whoever is asking:
// RoleAnonymous for self-registration, RoleAdmin for an administrator.
func (s *Service) Register(ctx context.Context, username, password string, requested, caller Role) (_ *Account, err error) {
	ctx, span := s.startSpan(ctx, "Register", attribute.String("requested_role", requested.String()))
	defer func() { endSpan(span, err) }()

	if !requested.Assignable() {
		RecordRegistration(StatusRejected)
		return nil, oops.Code(CodeInvalidRole).
			With("role", requested.String()).
			Errorf("role cannot be assigned to an account")
	}
	if requested == RoleAdmin && caller != RoleAdmin {
		RecordRegistration(StatusForbidden)
		return nil, errForbidden("register admin", caller)
	}
	if s.cfg.RequireAdminToRegister && caller != RoleAdmin {
		RecordRegistration(StatusForbidden)
		return nil, errForbidden("register", caller)
	}
	if err := s.usernames.Validate(username); err != nil {
		RecordRegistration(StatusRejected)
		return nil, err
	}
	if err := s.cfg.Password.Validate(password); err != nil {
		RecordRegistration(StatusRejected)
		return nil, err
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		RecordRegistration(StatusError)
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := s.accounts.Create(ctx, username, hash, requested)
	if err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			RecordRegistration(StatusDuplicate)
			return nil, oops.Code(CodeDuplicateUsername).
				With("username", username).
				Wrap(err)
		}
		RecordRegistration(StatusError)
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create account").
			Wrap(err)
	}

	RecordRegistration(StatusSuccess)
	s.logger.InfoContext(ctx, "account registered",
		"account_id", account.ID.String(),
		"role", account.Role.String())
	return account, nil
}

// Login verifies credentials and issues a session.
// Unknown usernames and wrong passwords produce identical errors.
func (s *Service) Login(ctx context.Context, username, password, clientIP string) (_ *LoginResult, err error) {
	ctx, span := s.startSpan(ctx, "Login")
	defer func() { endSpan(span, err) }()

	account, lookupErr := s.accounts.GetByUsername(ctx, username)
	found := lookupErr == nil
	if lookupErr != nil && !errors.Is(lookupErr, ErrNotFound) {
		RecordLogin(StatusError)
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get account by username").
			Wrap(lookupErr)
	}

	targetHash := s.dummyHash
	if found {
		targetHash = account.PasswordHash
	}

	// Always verify, even for unknown usernames, to keep timing uniform.
	valid, verifyErr := s.verifyPassword(password, targetHash)
	if verifyErr != nil {
		valid = false
		if found {
			errutil.LogError(s.logger, "stored password hash is unreadable", verifyErr)
		}
	}

	now := s.clock()
	if !found || !valid {
		if found {
			s.recordFailure(ctx, account.ID, now)
		}
		RecordLogin(StatusInvalidCredentials)
		s.logger.DebugContext(ctx, "login rejected", "reason", "invalid_credentials")
		return nil, errInvalidCredentials()
	}

	// Lockout is checked after verification so only a caller holding the
	// password learns that the account is locked.
	if limit := s.cfg.Lockout.CheckFailures(account.FailedAttempts, account.LockedUntil, now); limit.IsLockedOut {
		RecordLogin(StatusLocked)
		return nil, errAccountLocked(account, limit)
	}

	var upgraded string
	if s.hasher.NeedsUpgrade(account.PasswordHash) {
		if upgraded, err = s.hashPassword(password); err != nil {
			errutil.LogError(s.logger, "password rehash failed", err)
			upgraded = ""
		}
	}

	previousHash := account.PasswordHash
	updated, err := s.accounts.Update(ctx, account.ID, func(a *Account) error {
		a.RecordSuccess(now)
		if upgraded != "" && a.PasswordHash == previousHash {
			a.PasswordHash = upgraded
		}
		return nil
	})
	switch {
	case errors.Is(err, ErrNotFound):
		// Deleted between lookup and bookkeeping.
		RecordLogin(StatusInvalidCredentials)
		return nil, errInvalidCredentials()
	case err != nil:
		errutil.LogError(s.logger, "login bookkeeping failed", err)
		updated = account
	}

	session, token, err := s.sessions.Create(ctx, updated.ID, s.cfg.SessionTTL, clientIP)
	if err != nil {
		if errors.Is(err, ErrSessionLimitReached) {
			RecordLogin(StatusSessionLimit)
			return nil, oops.Code(CodeSessionLimit).
				With("account_id", updated.ID.String()).
				Wrap(err)
		}
		RecordLogin(StatusError)
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create session").
			With("account_id", updated.ID.String()).
			Wrap(err)
	}

	RecordLogin(StatusSuccess)
	s.logger.InfoContext(ctx, "login succeeded",
		"account_id", updated.ID.String(),
		"client_ip", clientIP,
		"expires_at", session.ExpiresAt)
	return &LoginResult{Account: updated, Session: session, Token: token}, nil
}

// recordFailure counts a failed password check against the account and
// returns the updated account, or nil if it could not be updated.
func (s *Service) recordFailure(ctx context.Context, id ulid.ULID, now time.Time) *Account {
	updated, err := s.accounts.Update(ctx, id, func(a *Account) error {
		a.RecordFailure(s.cfg.Lockout, now)
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			errutil.LogErrorContext(ctx, s.logger, "record login failure", err)
		}
		return nil
	}
	return updated
}

// Authorize resolves a bearer token to its account and checks that the
// account holds at least the required role.
func (s *Service) Authorize(ctx context.Context, token string, required Role) (_ *Account, err error) {
	ctx, span := s.startSpan(ctx, "Authorize", attribute.String("required_role", required.String()))
	defer func() { endSpan(span, err) }()

	if token == "" {
		RecordAuthorization(StatusUnauthenticated)
		return nil, errUnauthenticated("missing", nil)
	}

	session, err := s.sessions.Validate(ctx, token)
	if err != nil {
		return nil, s.sessionError(err, "AUTH_AUTHORIZE_FAILED")
	}

	if s.cfg.SlidingExpiry {
		if session, err = s.sessions.Extend(ctx, token, s.cfg.SessionTTL); err != nil {
			return nil, s.sessionError(err, "AUTH_AUTHORIZE_FAILED")
		}
	}

	account, err := s.accounts.GetByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			if revokeErr := s.sessions.Revoke(ctx, token); revokeErr == nil {
				RecordSessionsRevoked(ReasonAccountGone, 1)
			}
			RecordAuthorization(StatusUnauthenticated)
			return nil, errUnauthenticated("account_gone", err)
		}
		RecordAuthorization(StatusError)
		return nil, oops.Code("AUTH_AUTHORIZE_FAILED").
			With("operation", "get account by id").
			With("account_id", session.AccountID.String()).
			Wrap(err)
	}

	if !account.Role.Satisfies(required) {
		RecordAuthorization(StatusInsufficientRole)
		return nil, oops.Code(CodeInsufficientRole).
			With("account_id", account.ID.String()).
			With("role", account.Role.String()).
			With("required_role", required.String()).
			Errorf("insufficient role")
	}

	RecordAuthorization(StatusSuccess)
	return account, nil
}

// sessionError maps a session store lookup failure to a service error.
func (s *Service) sessionError(err error, failureCode string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		RecordAuthorization(StatusUnauthenticated)
		return errUnauthenticated("not_found", err)
	case errors.Is(err, ErrSessionExpired):
		RecordAuthorization(StatusUnauthenticated)
		RecordSessionsRevoked(ReasonExpired, 1)
		return errUnauthenticated("expired", err)
	default:
		RecordAuthorization(StatusError)
		return oops.Code(failureCode).
			With("operation", "validate session").
			Wrap(err)
	}
}

// Logout revokes the session for a token. Unknown, expired or empty tokens
// are not an error.
func (s *Service) Logout(ctx context.Context, token string) (err error) {
	ctx, span := s.startSpan(ctx, "Logout")
	defer func() { endSpan(span, err) }()

	if token == "" {
		return nil
	}
	if err := s.sessions.Revoke(ctx, token); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "revoke session").
			Wrap(err)
	}
	RecordSessionsRevoked(ReasonLogout, 1)
	s.logger.DebugContext(ctx, "session revoked", "reason", ReasonLogout)
	return nil
}

// DeleteAccount removes an account and every session it owns.
// Only administrators may delete accounts.
func (s *Service) DeleteAccount(ctx context.Context, id ulid.ULID, caller Role) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteAccount", attribute.String("account_id", id.String()))
	defer func() { endSpan(span, err) }()

	if caller != RoleAdmin {
		return errForbidden("delete account", caller)
	}

	if err := s.accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeNotFound).
				With("account_id", id.String()).
				Wrap(err)
		}
		return oops.Code("AUTH_DELETE_FAILED").
			With("operation", "delete account").
			With("account_id", id.String()).
			Wrap(err)
	}

	revoked, err := s.sessions.RevokeAllForAccount(ctx, id)
	if err != nil {
		return oops.Code("AUTH_DELETE_FAILED").
			With("operation", "revoke sessions").
			With("account_id", id.String()).
			Wrap(err)
	}
	RecordSessionsRevoked(ReasonAccountDeleted, revoked)
	s.logger.InfoContext(ctx, "account deleted",
		"account_id", id.String(),
		"sessions_revoked", revoked)
	return nil
}

// SetRole changes the role of an account. Only administrators may change roles.
func (s *Service) SetRole(ctx context.Context, id ulid.ULID, role, caller Role) (err error) {
	ctx, span := s.startSpan(ctx, "SetRole",
		attribute.String("account_id", id.String()),
		attribute.String("role", role.String()))
	defer func() { endSpan(span, err) }()

	if caller != RoleAdmin {
		return errForbidden("set role", caller)
	}
	if !role.Assignable() {
		return oops.Code(CodeInvalidRole).
			With("role", role.String()).
			Errorf("role cannot be assigned to an account")
	}

	if err := s.accounts.SetRole(ctx, id, role); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeNotFound).
				With("account_id", id.String()).
				Wrap(err)
		}
		return oops.Code("AUTH_SET_ROLE_FAILED").
			With("account_id", id.String()).
			Wrap(err)
	}

	if s.cfg.RevokeOnRoleChange {
		revoked, err := s.sessions.RevokeAllForAccount(ctx, id)
		if err != nil {
			return oops.Code("AUTH_SET_ROLE_FAILED").
				With("operation", "revoke sessions").
				With("account_id", id.String()).
				Wrap(err)
		}
		RecordSessionsRevoked(ReasonRoleChange, revoked)
	}

	s.logger.InfoContext(ctx, "account role changed",
		"account_id", id.String(),
		"role", role.String())
	return nil
}

// ChangePassword replaces an account's password after verifying the current
// one, then revokes every session of the account. Wrong current passwords
// count toward the login lockout, and a locked account cannot change its
// password.
func (s *Service) ChangePassword(ctx context.Context, id ulid.ULID, current, next string) (err error) {
	ctx, span := s.startSpan(ctx, "ChangePassword", attribute.String("account_id", id.String()))
	defer func() { endSpan(span, err) }()

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeNotFound).
				With("account_id", id.String()).
				Wrap(err)
		}
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "get account by id").
			Wrap(err)
	}

	now := s.clock()
	valid, verifyErr := s.verifyPassword(current, account.PasswordHash)
	if verifyErr != nil {
		errutil.LogErrorContext(ctx, s.logger, "stored password hash is unreadable", verifyErr)
	}
	if verifyErr != nil || !valid {
		b := oops.Code(CodeInvalidCredentials).With("account_id", id.String())
		if failed := s.recordFailure(ctx, id, now); failed != nil {
			limit := s.cfg.Lockout.CheckFailures(failed.FailedAttempts, failed.LockedUntil, now)
			b = b.With("retry_after", limit.RetryAfter())
		}
		return b.Errorf("current password is incorrect")
	}
	if limit := s.cfg.Lockout.CheckFailures(account.FailedAttempts, account.LockedUntil, now); limit.IsLockedOut {
		return errAccountLocked(account, limit)
	}
	if err := s.cfg.Password.Validate(next); err != nil {
		return err
	}

	hash, err := s.hashPassword(next)
	if err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}
	if err := s.accounts.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeNotFound).
				With("account_id", id.String()).
				Wrap(err)
		}
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "update password").
			Wrap(err)
	}

	revoked, err := s.sessions.RevokeAllForAccount(ctx, id)
	if err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "revoke sessions").
			Wrap(err)
	}
	RecordSessionsRevoked(ReasonPasswordChange, revoked)
	s.logger.InfoContext(ctx, "password changed",
		"account_id", id.String(),
		"sessions_revoked", revoked)
	return nil
}

// RefreshSession extends a live session by the configured TTL.
func (s *Service) RefreshSession(ctx context.Context, token string) (_ *Session, err error) {
	ctx, span := s.startSpan(ctx, "RefreshSession")
	defer func() { endSpan(span, err) }()

	if token == "" {
		return nil, errUnauthenticated("missing", nil)
	}
	session, err := s.sessions.Extend(ctx, token, s.cfg.SessionTTL)
	if err != nil {
		return nil, s.sessionError(err, "AUTH_REFRESH_FAILED")
	}
	return session, nil
}

// Sessions returns the live sessions of an account.
func (s *Service) Sessions(ctx context.Context, id ulid.ULID) ([]*Session, error) {
	sessions, err := s.sessions.ListForAccount(ctx, id)
	if err != nil {
		return nil, oops.Code("AUTH_LIST_SESSIONS_FAILED").
			With("account_id", id.String()).
			Wrap(err)
	}
	return sessions, nil
}

// BootstrapAdmin ensures an administrator named username exists.
// Exactly one of password or passwordHash must be set; passwordHash must be
// a hash the configured hasher can verify. An existing account with that
// name is promoted to admin. An empty username does nothing.
func (s *Service) BootstrapAdmin(ctx context.Context, username, password, passwordHash string) (_ *Account, err error) {
	if username == "" {
		return nil, nil //nolint:nilnil // nothing configured
	}
	ctx, span := s.startSpan(ctx, "BootstrapAdmin")
	defer func() { endSpan(span, err) }()

	existing, err := s.accounts.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.Role != RoleAdmin {
			if err := s.accounts.SetRole(ctx, existing.ID, RoleAdmin); err != nil {
				return nil, oops.Code("AUTH_BOOTSTRAP_FAILED").
					With("operation", "promote account").
					Wrap(err)
			}
			existing.Role = RoleAdmin
			s.logger.InfoContext(ctx, "bootstrap admin promoted", "account_id", existing.ID.String())
		}
		return existing, nil
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code("AUTH_BOOTSTRAP_FAILED").
			With("operation", "get account by username").
			Wrap(err)
	}

	if (password == "") == (passwordHash == "") {
		return nil, oops.Code("AUTH_BOOTSTRAP_FAILED").
			Errorf("exactly one of admin password or password hash must be set")
	}
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	hash := passwordHash
	if password != "" {
		if err := s.cfg.Password.Validate(password); err != nil {
			return nil, err
		}
		if hash, err = s.hashPassword(password); err != nil {
			return nil, oops.Code("AUTH_BOOTSTRAP_FAILED").
				With("operation", "hash password").
				Wrap(err)
		}
	} else if _, err := s.hasher.Verify(dummyPassword, hash); err != nil {
		return nil, oops.Code("AUTH_BOOTSTRAP_FAILED").
			With("operation", "parse password hash").
			Wrap(err)
	}

	account, err := s.accounts.Create(ctx, username, hash, RoleAdmin)
	if err != nil {
		return nil, oops.Code("AUTH_BOOTSTRAP_FAILED").
			With("operation", "create account").
			Wrap(err)
	}
	s.logger.InfoContext(ctx, "bootstrap admin created", "account_id", account.ID.String())
	return account, nil
}
