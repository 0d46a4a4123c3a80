// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package auth_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/bento-baas/bento/internal/auth"
	"github.com/bento-baas/bento/internal/auth/memory"
	"github.com/bento-baas/bento/pkg/errutil"
)

type countingDeleter struct {
	calls atomic.Int32
	err   error
}

func (d *countingDeleter) DeleteExpired(context.Context) (int, error) {
	d.calls.Add(1)
	return 0, d.err
}

// lockedBuffer is an io.Writer safe to read while a sweeper goroutine logs.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNewSessionSweeper_Validation(t *testing.T) {
	_, err := auth.NewSessionSweeper(0, &countingDeleter{}, nil)
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_CONFIG")

	_, err = auth.NewSessionSweeper(time.Second, nil, nil)
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_CONFIG")
}

func TestSessionSweeper_RunOnce(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := memory.NewSessionManager(memory.WithSessionClock(clock.Now))
	for range 2 {
		_, _, err := store.Create(ctx, ulid.Make(), time.Minute, "")
		require.NoError(t, err)
	}
	clock.Advance(time.Minute)

	sweeper, err := auth.NewSessionSweeper(time.Hour, store, discardLogger())
	require.NoError(t, err)

	before := testutil.ToFloat64(auth.SessionsRevoked.WithLabelValues(auth.ReasonExpired))
	n, err := sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, store.Len())
	assert.InDelta(t, 2, testutil.ToFloat64(auth.SessionsRevoked.WithLabelValues(auth.ReasonExpired))-before, 0)
}

func TestSessionSweeper_RunOnceError(t *testing.T) {
	sweeper, err := auth.NewSessionSweeper(time.Hour, &countingDeleter{err: errors.New("boom")}, discardLogger())
	require.NoError(t, err)

	_, err = sweeper.RunOnce(context.Background())
	errutil.AssertErrorCode(t, err, "AUTH_SWEEP_FAILED")
}

func TestSessionSweeper_LogsFailureCode(t *testing.T) {
	defer goleak.VerifyNone(t)

	var out lockedBuffer
	logger := slog.New(slog.NewJSONHandler(&out, nil))
	sweeper, err := auth.NewSessionSweeper(time.Hour, &countingDeleter{err: errors.New("boom")}, logger)
	require.NoError(t, err)

	sweeper.Start(context.Background())
	defer sweeper.Stop()

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), `"code":"AUTH_SWEEP_FAILED"`)
	}, time.Second, time.Millisecond)
	assert.Contains(t, out.String(), `"msg":"session sweep failed"`)
}

func TestSessionSweeper_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	deleter := &countingDeleter{}
	sweeper, err := auth.NewSessionSweeper(10*time.Millisecond, deleter, discardLogger())
	require.NoError(t, err)

	sweeper.Start(context.Background())
	sweeper.Start(context.Background()) // no-op while running

	assert.Eventually(t, func() bool { return deleter.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	sweeper.Stop()
	calls := deleter.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, deleter.calls.Load(), "no sweeps after Stop")

	sweeper.Stop() // idempotent
}

func TestSessionSweeper_StopsWithParentContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	deleter := &countingDeleter{}
	sweeper, err := auth.NewSessionSweeper(time.Hour, deleter, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	sweeper.Start(ctx)
	assert.Eventually(t, func() bool { return deleter.calls.Load() == 1 }, time.Second, time.Millisecond,
		"runs once immediately")

	cancel()
	sweeper.Stop()
}

func TestActiveSessionsGauge(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionManager()
	gauge := auth.NewActiveSessionsGauge(store)

	assert.InDelta(t, 0, testutil.ToFloat64(gauge), 0)
	_, _, err := store.Create(ctx, ulid.Make(), time.Hour, "")
	require.NoError(t, err)
	assert.InDelta(t, 1, testutil.ToFloat64(gauge), 0)
}
