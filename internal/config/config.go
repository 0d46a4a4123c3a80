// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

// Package config defines the bento configuration file, its defaults and validation,
// and converts it into the settings consumed by the auth packages.
package config

import (
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/bento-baas/bento/internal/auth"
	"github.com/bento-baas/bento/internal/auth/memory"
	"github.com/bento-baas/bento/internal/logging"
)

// CurrentVersion is the config format version written by `bento config init`.
const CurrentVersion = "1.0.0"

// versionConstraint is the range of config versions this build understands.
const versionConstraint = "^1"

// CodeInvalid is the oops code for every validation failure.
const CodeInvalid = "CONFIG_INVALID"

// Config is the root of the bento configuration file.
type Config struct {
	Version      string             `koanf:"version" yaml:"version" json:"version" jsonschema:"description=Config format version"`
	Session      SessionConfig      `koanf:"session" yaml:"session" json:"session"`
	Registration RegistrationConfig `koanf:"registration" yaml:"registration" json:"registration"`
	Password     PasswordConfig     `koanf:"password" yaml:"password" json:"password"`
	Lockout      LockoutConfig      `koanf:"lockout" yaml:"lockout" json:"lockout"`
	Admin        AdminConfig        `koanf:"admin" yaml:"admin" json:"admin"`
	Log          LogConfig          `koanf:"log" yaml:"log" json:"log"`
	Metrics      MetricsConfig      `koanf:"metrics" yaml:"metrics" json:"metrics"`
}

// SessionConfig controls session lifetime and per-account limits.
type SessionConfig struct {
	TTL                time.Duration `koanf:"ttl" yaml:"ttl" json:"ttl" jsonschema:"type=string,description=Session lifetime such as 24h"`
	MaxPerAccount      int           `koanf:"max_per_account" yaml:"max_per_account" json:"max_per_account" jsonschema:"minimum=0,description=Live sessions per account (0 is unlimited)"`
	SingleSession      bool          `koanf:"single_session" yaml:"single_session" json:"single_session" jsonschema:"description=Login revokes earlier sessions"`
	SlidingExpiry      bool          `koanf:"sliding_expiry" yaml:"sliding_expiry" json:"sliding_expiry" jsonschema:"description=Authorize pushes expiry forward"`
	RevokeOnRoleChange bool          `koanf:"revoke_on_role_change" yaml:"revoke_on_role_change" json:"revoke_on_role_change"`
	SweepInterval      time.Duration `koanf:"sweep_interval" yaml:"sweep_interval" json:"sweep_interval" jsonschema:"type=string,description=Expired session sweep period (0 disables)"`
}

// RegistrationConfig controls who may register and which names are refused.
type RegistrationConfig struct {
	RequireAdmin      bool     `koanf:"require_admin" yaml:"require_admin" json:"require_admin"`
	ReservedUsernames []string `koanf:"reserved_usernames" yaml:"reserved_usernames" json:"reserved_usernames" jsonschema:"description=Glob patterns refused at registration"`
}

// PasswordConfig holds credential strength and hashing cost.
type PasswordConfig struct {
	MinLength int          `koanf:"min_length" yaml:"min_length" json:"min_length" jsonschema:"minimum=1"`
	MaxLength int          `koanf:"max_length" yaml:"max_length" json:"max_length" jsonschema:"minimum=1"`
	Argon2    Argon2Config `koanf:"argon2" yaml:"argon2" json:"argon2"`
}

// Argon2Config is the argon2id cost.
type Argon2Config struct {
	Time      uint32 `koanf:"time" yaml:"time" json:"time" jsonschema:"minimum=1,maximum=64"`
	MemoryKiB uint32 `koanf:"memory_kib" yaml:"memory_kib" json:"memory_kib" jsonschema:"minimum=8,maximum=4194304"`
	Threads   uint8  `koanf:"threads" yaml:"threads" json:"threads" jsonschema:"minimum=1,maximum=255"`
}

// LockoutConfig controls temporary account lockout after failed logins.
type LockoutConfig struct {
	Threshold int           `koanf:"threshold" yaml:"threshold" json:"threshold" jsonschema:"minimum=0,description=Failures before lockout (0 disables)"`
	Duration  time.Duration `koanf:"duration" yaml:"duration" json:"duration" jsonschema:"type=string"`
}

// AdminConfig seeds an administrator at startup. Set exactly one of Password
// and PasswordHash, or leave Username empty to skip.
type AdminConfig struct {
	Username     string `koanf:"username" yaml:"username,omitempty" json:"username"`
	Password     string `koanf:"password" yaml:"password,omitempty" json:"password"`
	PasswordHash string `koanf:"password_hash" yaml:"password_hash,omitempty" json:"password_hash" jsonschema:"description=PHC-encoded argon2id hash"`
}

// LogConfig selects log output.
type LogConfig struct {
	Format string `koanf:"format" yaml:"format" json:"format" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" yaml:"level" json:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// MetricsConfig configures the observability listener.
type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr" json:"addr" jsonschema:"description=host:port for /metrics and health probes (empty disables)"`
}

// Default returns the built-in configuration.
func Default() Config {
	argon := auth.DefaultArgon2Params()
	return Config{
		Version: CurrentVersion,
		Session: SessionConfig{
			TTL:                auth.DefaultSessionTTL,
			MaxPerAccount:      memory.DefaultMaxSessionsPerAccount,
			RevokeOnRoleChange: true,
			SweepInterval:      auth.DefaultSweepInterval,
		},
		Registration: RegistrationConfig{ReservedUsernames: []string{}},
		Password: PasswordConfig{
			MinLength: auth.DefaultMinPasswordLength,
			MaxLength: auth.DefaultMaxPasswordLength,
			Argon2: Argon2Config{
				Time:      argon.Time,
				MemoryKiB: argon.Memory,
				Threads:   argon.Threads,
			},
		},
		Lockout: LockoutConfig{
			Threshold: auth.DefaultLockoutThreshold,
			Duration:  auth.DefaultLockoutDuration,
		},
		Log: LogConfig{
			Format: logging.FormatJSON,
			Level:  "info",
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
	}
}

func invalid(key string, format string, args ...any) error {
	return oops.Code(CodeInvalid).With("key", key).Errorf(format, args...)
}

// Validate reports the first setting that is out of range. Every failure
// carries the CONFIG_INVALID code and the offending key.
func (c Config) Validate() error {
	version, err := semver.NewVersion(c.Version)
	if err != nil {
		return oops.Code(CodeInvalid).With("key", "version").With("version", c.Version).
			Wrapf(err, "config version is not semver")
	}
	constraint, err := semver.NewConstraint(versionConstraint)
	if err != nil {
		return oops.Code(CodeInvalid).Wrapf(err, "parse version constraint")
	}
	if !constraint.Check(version) {
		return invalid("version", "config version %s is not supported (want %s)", c.Version, versionConstraint)
	}

	if c.Session.TTL <= 0 {
		return invalid("session.ttl", "session ttl must be positive")
	}
	if c.Session.MaxPerAccount < 0 {
		return invalid("session.max_per_account", "max sessions per account must not be negative")
	}
	if c.Session.SweepInterval < 0 {
		return invalid("session.sweep_interval", "sweep interval must not be negative")
	}

	for _, pattern := range c.Registration.ReservedUsernames {
		if _, err := glob.Compile(auth.NormalizeUsername(pattern)); err != nil {
			return oops.Code(CodeInvalid).With("key", "registration.reserved_usernames").With("pattern", pattern).
				Wrapf(err, "invalid reserved username pattern")
		}
	}

	if c.Password.MinLength < 1 {
		return invalid("password.min_length", "minimum password length must be at least 1")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return invalid("password.max_length", "maximum password length %d is below minimum %d",
			c.Password.MaxLength, c.Password.MinLength)
	}
	if err := c.Argon2Params().Validate(); err != nil {
		return invalid("password.argon2", "invalid argon2 parameters: %v", err)
	}

	if c.Lockout.Threshold < 0 {
		return invalid("lockout.threshold", "lockout threshold must not be negative")
	}
	if c.Lockout.Threshold > 0 && c.Lockout.Duration <= 0 {
		return invalid("lockout.duration", "lockout duration must be positive when lockout is enabled")
	}

	if c.Admin.Password != "" && c.Admin.PasswordHash != "" {
		return invalid("admin", "set only one of admin.password and admin.password_hash")
	}
	if c.Admin.Username != "" {
		if c.Admin.Password == "" && c.Admin.PasswordHash == "" {
			return invalid("admin", "admin.username requires admin.password or admin.password_hash")
		}
		if err := auth.ValidateUsername(c.Admin.Username); err != nil {
			return invalid("admin.username", "invalid admin username: %v", err)
		}
	}

	if !logging.ValidFormat(c.Log.Format) {
		return invalid("log.format", "unknown log format %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "%v", err)
	}
	return nil
}

// AuthConfig converts the file settings into the auth service configuration.
func (c Config) AuthConfig() auth.Config {
	return auth.Config{
		SessionTTL:             c.Session.TTL,
		SlidingExpiry:          c.Session.SlidingExpiry,
		RevokeOnRoleChange:     c.Session.RevokeOnRoleChange,
		RequireAdminToRegister: c.Registration.RequireAdmin,
		Password: auth.PasswordPolicy{
			MinLength: c.Password.MinLength,
			MaxLength: c.Password.MaxLength,
		},
		Lockout: auth.LockoutPolicy{
			Threshold: c.Lockout.Threshold,
			Duration:  c.Lockout.Duration,
		},
	}
}

// SessionPolicy returns the session store limits.
func (c Config) SessionPolicy() memory.SessionPolicy {
	return memory.SessionPolicy{
		MaxPerAccount: c.Session.MaxPerAccount,
		SingleSession: c.Session.SingleSession,
	}
}

// Argon2Params returns the hasher cost with default salt and key lengths.
func (c Config) Argon2Params() auth.Argon2Params {
	p := auth.DefaultArgon2Params()
	p.Time = c.Password.Argon2.Time
	p.Memory = c.Password.Argon2.MemoryKiB
	p.Threads = c.Password.Argon2.Threads
	return p
}
