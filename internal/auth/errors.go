// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// Store-level sentinel errors. Registry and session store implementations
// return these (optionally wrapped) so callers can use errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUsername is returned when a username is already taken.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrSessionExpired is returned when a session exists but its expiry has passed.
	ErrSessionExpired = errors.New("session expired")

	// ErrSessionLimitReached is returned when an account already holds the
	// maximum number of live sessions.
	ErrSessionLimitReached = errors.New("session limit reached")

	// ErrTokenCollision is returned when no unique session token could be minted.
	ErrTokenCollision = errors.New("session token collision")
)

// Error codes attached to errors returned by Service.
const (
	CodeDuplicateUsername  = "AUTH_DUPLICATE_USERNAME"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeForbidden          = "AUTH_FORBIDDEN"
	CodeInsufficientRole   = "AUTH_INSUFFICIENT_ROLE"
	CodeUnauthenticated    = "AUTH_UNAUTHENTICATED"
	CodeNotFound           = "AUTH_NOT_FOUND"
	CodeAccountLocked      = "AUTH_ACCOUNT_LOCKED"
	CodeWeakPassword       = "AUTH_WEAK_PASSWORD"
	CodeInvalidUsername    = "AUTH_INVALID_USERNAME"
	CodeInvalidRole        = "AUTH_INVALID_ROLE"
	CodeSessionLimit       = "AUTH_SESSION_LIMIT"
)

// HasCode reports whether err is an oops error carrying the given code.
func HasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	return oopsErr.Code() == code
}
