// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

// Package auth provides the credential and session core of Bento.
//
// # Domain Types
//
//   - Account - a registered identity with a Role and an argon2id password hash
//   - Session - a login, keyed by the SHA256 digest of its bearer token
//   - Role - RoleAnonymous < RoleUser < RoleAdmin
//
// Storage is behind the AccountRegistry and SessionStore interfaces; the
// memory subpackage provides the in-process implementations.
//
// # Service
//
// Service composes a PasswordHasher, an AccountRegistry and a SessionStore:
//   - Register - create an account, admin-only for admin accounts
//   - Login - verify credentials and issue a session
//   - Authorize - resolve a token and check the required role
//   - Logout - revoke a session, idempotent
//   - DeleteAccount - admin-only removal that also revokes sessions
//
// Errors returned by Service carry stable oops codes (Code* constants).
// Wrong passwords and unknown usernames are indistinguishable to callers.
//
// SessionSweeper optionally evicts expired sessions in the background.
package auth
