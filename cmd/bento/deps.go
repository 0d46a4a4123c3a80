// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bento-baas/bento/internal/auth"
	"github.com/bento-baas/bento/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// Nil fields use their default implementations.
type ServeDeps struct {
	// ObservabilityServerFactory creates the metrics and health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, isReady observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// OnReady is called with the running service once startup completes.
	OnReady func(ctx context.Context, svc *auth.Service)
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Registry() prometheus.Registerer
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// HashDeps contains injectable dependencies for the hash-password command.
type HashDeps struct {
	// IsTerminal reports whether fd is an interactive terminal.
	// Default: term.IsTerminal
	IsTerminal func(fd int) bool

	// ReadPassword reads a line from fd without echo.
	// Default: term.ReadPassword
	ReadPassword func(fd int) ([]byte, error)
}
