// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package auth

import (
	"strings"

	"github.com/samber/oops"
)

// Role is an account privilege level. Roles are totally ordered:
// RoleAnonymous < RoleUser < RoleAdmin.
type Role int

// Known roles. RoleAnonymous is the zero value and describes a caller that
// has not authenticated; it is never stored on an account.
const (
	RoleAnonymous Role = iota
	RoleUser
	RoleAdmin
)

// String returns the lower-case role name.
func (r Role) String() string {
	switch r {
	case RoleAnonymous:
		return "anonymous"
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Assignable reports whether the role may be stored on an account.
func (r Role) Assignable() bool {
	return r == RoleUser || r == RoleAdmin
}

// Satisfies reports whether an authenticated holder of r meets the required role.
// Anonymous never satisfies anything, including RoleAnonymous.
func (r Role) Satisfies(required Role) bool {
	if !r.Assignable() {
		return false
	}
	return r >= required
}

// ParseRole converts a role name to a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return RoleAnonymous, oops.Code(CodeInvalidRole).
			With("role", s).
			Errorf("unknown role %q", s)
	}
}
