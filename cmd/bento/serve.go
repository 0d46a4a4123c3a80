// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/bento-baas/bento/internal/auth"
	"github.com/bento-baas/bento/internal/auth/memory"
	"github.com/bento-baas/bento/internal/config"
	"github.com/bento-baas/bento/internal/logging"
	"github.com/bento-baas/bento/internal/observability"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the auth store",
		Long: `Run the in-memory auth store: seed the bootstrap administrator, sweep
expired sessions and expose metrics and health probes until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

// loadConfig resolves --config and merges it with the command's flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := config.ResolvePath(configFile)
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(path, cmd.Flags())
}

// newLogger builds the process logger from cfg, writing to the command's stderr.
func newLogger(cmd *cobra.Command, cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.Setup("bento", version, cfg.Log.Format, level, cmd.ErrOrStderr()), nil
}

// buildService wires the hasher, stores and service described by cfg.
func buildService(cfg config.Config, logger *slog.Logger) (*auth.Service, *memory.SessionManager, error) {
	hasher, err := auth.NewArgon2idHasherWithParams(cfg.Argon2Params())
	if err != nil {
		return nil, nil, err
	}
	usernames, err := auth.NewUsernamePolicy(cfg.Registration.ReservedUsernames)
	if err != nil {
		return nil, nil, err
	}

	accounts := memory.NewAccountRegistry()
	sessions := memory.NewSessionManager(memory.WithSessionPolicy(cfg.SessionPolicy()))

	svc, err := auth.NewService(accounts, sessions, hasher,
		auth.WithConfig(cfg.AuthConfig()),
		auth.WithLogger(logger),
		auth.WithUsernamePolicy(usernames),
	)
	if err != nil {
		return nil, nil, err
	}
	return svc, sessions, nil
}

// runServeWithDeps runs the store until ctx is cancelled or a signal arrives.
// A nil deps uses default implementations.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, isReady observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, isReady, logger)
		}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return oops.Wrapf(err, "load config")
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	svc, sessions, err := buildService(cfg, logger)
	if err != nil {
		return oops.Wrapf(err, "build auth service")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := svc.BootstrapAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password, cfg.Admin.PasswordHash); err != nil {
		return oops.Wrapf(err, "bootstrap admin")
	}

	var ready atomic.Bool

	var obsServer ObservabilityServer
	var obsErrCh <-chan error
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, ready.Load, logger)
		auth.RegisterMetrics(obsServer.Registry())
		if err := obsServer.Registry().Register(auth.NewActiveSessionsGauge(sessions)); err != nil {
			return oops.Code("SERVE_METRICS_FAILED").Wrap(err)
		}
		obsErrCh, err = obsServer.Start()
		if err != nil {
			return oops.Wrapf(err, "start observability server")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := obsServer.Stop(shutdownCtx); err != nil {
				logger.Warn("error stopping observability server", "error", err)
			}
		}()
	}

	if cfg.Session.SweepInterval > 0 {
		sweeper, err := auth.NewSessionSweeper(cfg.Session.SweepInterval, sessions, logger)
		if err != nil {
			return err
		}
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	ready.Store(true)
	logger.Info("bento ready",
		"session_ttl", cfg.Session.TTL.String(),
		"max_sessions_per_account", cfg.Session.MaxPerAccount,
		"metrics_addr", cfg.Metrics.Addr,
	)
	if deps.OnReady != nil {
		deps.OnReady(ctx, svc)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err, ok := <-obsErrCh:
		if ok && err != nil {
			return oops.Code("SERVE_OBSERVABILITY_FAILED").Wrap(err)
		}
	}
	ready.Store(false)
	return nil
}
