// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/bento-baas/bento/internal/xdg"
)

// RegisterFlags adds one flag per overridable key to fs, named by its dotted key.
// Admin credentials are file-only.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()

	fs.Duration("session.ttl", d.Session.TTL, "session lifetime")
	fs.Int("session.max_per_account", d.Session.MaxPerAccount, "live sessions per account (0 is unlimited)")
	fs.Bool("session.single_session", d.Session.SingleSession, "login revokes earlier sessions")
	fs.Bool("session.sliding_expiry", d.Session.SlidingExpiry, "authorize pushes session expiry forward")
	fs.Bool("session.revoke_on_role_change", d.Session.RevokeOnRoleChange, "role change revokes sessions")
	fs.Duration("session.sweep_interval", d.Session.SweepInterval, "expired session sweep period (0 disables)")

	fs.Bool("registration.require_admin", d.Registration.RequireAdmin, "only admins may register accounts")
	fs.StringSlice("registration.reserved_usernames", d.Registration.ReservedUsernames, "glob patterns refused at registration")

	fs.Int("password.min_length", d.Password.MinLength, "minimum password length")
	fs.Int("password.max_length", d.Password.MaxLength, "maximum password length")
	fs.Uint32("password.argon2.time", d.Password.Argon2.Time, "argon2id iterations")
	fs.Uint32("password.argon2.memory_kib", d.Password.Argon2.MemoryKiB, "argon2id memory in KiB")
	fs.Uint8("password.argon2.threads", d.Password.Argon2.Threads, "argon2id parallelism")

	fs.Int("lockout.threshold", d.Lockout.Threshold, "failed logins before lockout (0 disables)")
	fs.Duration("lockout.duration", d.Lockout.Duration, "lockout length")

	fs.String("admin.username", d.Admin.Username, "bootstrap administrator username")

	fs.String("log.format", d.Log.Format, "log format (json, text)")
	fs.String("log.level", d.Log.Level, "log level (debug, info, warn, error)")

	fs.String("metrics.addr", d.Metrics.Addr, "observability listen address (empty disables)")
}

// ResolvePath returns explicit when set. Otherwise it returns the XDG default
// config file if one exists, or "" to run on defaults and flags alone.
func ResolvePath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	path, err := xdg.DefaultConfigFile()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
	}
	return path, nil
}

// Load merges defaults, the YAML file at path (skipped when empty) and the
// flags in flags that were set, in that order, then validates the result.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
		if err != nil {
			return Config{}, oops.Code("CONFIG_READ_FAILED").With("path", path).Wrap(err)
		}
		if len(bytes.TrimSpace(data)) > 0 {
			if err := ValidateSchema(data); err != nil {
				return Config{}, oops.With("path", path).Wrap(err)
			}
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
			}
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, oops.Code("CONFIG_PARSE_FAILED").Wrapf(err, "load flags")
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_PARSE_FAILED").Wrapf(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
