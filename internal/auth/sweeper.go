// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/bento-baas/bento/pkg/errutil"
)

// DefaultSweepInterval is how often expired sessions are evicted.
const DefaultSweepInterval = 5 * time.Minute

// ExpiredSessionDeleter removes expired sessions in bulk.
type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context) (int, error)
}

// SessionSweeper periodically evicts expired sessions. Lookups already evict
// lazily; the sweeper bounds memory held by sessions nobody asks about again.
type SessionSweeper struct {
	interval time.Duration
	store    ExpiredSessionDeleter
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSessionSweeper creates a sweeper. A nil logger uses slog.Default().
func NewSessionSweeper(interval time.Duration, store ExpiredSessionDeleter, logger *slog.Logger) (*SessionSweeper, error) {
	if interval <= 0 {
		return nil, oops.Code("AUTH_INVALID_CONFIG").
			With("interval", interval.String()).
			Errorf("sweep interval must be positive")
	}
	if store == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("session store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionSweeper{
		interval: interval,
		store:    store,
		logger:   logger,
	}, nil
}

// RunOnce executes a single sweep and returns how many sessions were evicted.
func (w *SessionSweeper) RunOnce(ctx context.Context) (int, error) {
	n, err := w.store.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("AUTH_SWEEP_FAILED").Wrap(err)
	}
	RecordSessionsRevoked(ReasonExpired, n)
	if n > 0 {
		w.logger.Debug("evicted expired sessions", "count", n)
	}
	return n, nil
}

// Start begins periodic sweeping. Calling Start on a running sweeper is a no-op.
func (w *SessionSweeper) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop stops the sweeper and waits for the current pass to finish.
func (w *SessionSweeper) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *SessionSweeper) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately
	if _, err := w.RunOnce(ctx); err != nil {
		errutil.LogErrorContext(ctx, w.logger, "session sweep failed", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				errutil.LogErrorContext(ctx, w.logger, "session sweep failed", err)
			}
		}
	}
}
