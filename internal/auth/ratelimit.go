// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package auth

import (
	"time"
)

// Login lockout defaults.
const (
	// DefaultLockoutDuration is the time an account is locked after too many failures.
	DefaultLockoutDuration = 15 * time.Minute

	// DefaultLockoutThreshold is the number of failures that triggers a lockout.
	DefaultLockoutThreshold = 7

	// maxLoginDelay caps the progressive delay suggested before lockout.
	maxLoginDelay = 32 * time.Second
)

// LockoutPolicy locks an account after repeated failed logins.
// A zero Threshold disables lockout.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// DefaultLockoutPolicy returns the default lockout policy.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		Threshold: DefaultLockoutThreshold,
		Duration:  DefaultLockoutDuration,
	}
}

// Enabled reports whether the policy ever locks an account.
func (p LockoutPolicy) Enabled() bool {
	return p.Threshold > 0 && p.Duration > 0
}

// LockoutTime returns the lockout expiry for the given failure count,
// or nil if the count is below the threshold.
func (p LockoutPolicy) LockoutTime(failures int, now time.Time) *time.Time {
	if !p.Enabled() || failures < p.Threshold {
		return nil
	}
	until := now.Add(p.Duration)
	return &until
}

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	// Delay is the time a client should wait before another attempt.
	Delay time.Duration

	// IsLockedOut indicates the account is temporarily locked.
	IsLockedOut bool

	// LockoutRemaining is the time until the lockout expires.
	LockoutRemaining time.Duration
}

// CheckFailures evaluates the rate limit state for a failure count at now.
// Only an unexpired lockedUntil locks the account; the failure count alone
// drives the progressive delay.
func (p LockoutPolicy) CheckFailures(failures int, lockedUntil *time.Time, now time.Time) RateLimitResult {
	if lockedUntil != nil && lockedUntil.After(now) {
		return RateLimitResult{
			IsLockedOut:      true,
			LockoutRemaining: lockedUntil.Sub(now),
		}
	}

	var result RateLimitResult
	// Progressive delay: 2^(failures-1) seconds
	if failures > 0 {
		shift := min(failures-1, 5)
		result.Delay = min(time.Duration(1<<shift)*time.Second, maxLoginDelay)
	}
	return result
}

// RetryAfter is the time a client should wait before trying again.
func (r RateLimitResult) RetryAfter() time.Duration {
	if r.IsLockedOut {
		return r.LockoutRemaining
	}
	return r.Delay
}
