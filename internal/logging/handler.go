// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

// Package logging builds the process slog.Logger and stamps trace context onto records.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/trace"
)

// Supported output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// contextHandler decorates every record with the service identity and, when
// the context carries a span, its trace and span IDs.
type contextHandler struct {
	next    slog.Handler
	service string
	version string
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(
		slog.String("service", h.service),
		slog.String("version", h.version),
	)

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	//nolint:wrapcheck // Handler interface requires unwrapped error passthrough
	return h.next.Handle(ctx, r)
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs), service: h.service, version: h.version}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name), service: h.service, version: h.version}
}

// ParseLevel maps debug, info, warn and error (case-insensitive) to a slog level.
// An empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, oops.Code("LOG_INVALID_LEVEL").With("level", s).Errorf("unknown log level %q", s)
	}
}

// ValidFormat reports whether format names a supported output format.
func ValidFormat(format string) bool {
	return format == "" || format == FormatJSON || format == FormatText
}

// Setup creates a configured slog.Logger writing to w (os.Stderr when nil).
// format is "json" or "text"; anything else falls back to JSON.
func Setup(service, version, format string, level slog.Level, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}

	var base slog.Handler
	if format == FormatText {
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}

	return slog.New(&contextHandler{next: base, service: service, version: version})
}

// SetDefault installs a configured logger as the slog default and returns it.
func SetDefault(service, version, format string, level slog.Level) *slog.Logger {
	logger := Setup(service, version, format, level, nil)
	slog.SetDefault(logger)
	return logger
}
