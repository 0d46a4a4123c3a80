// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bento-baas/bento/internal/auth"
	"github.com/bento-baas/bento/pkg/errutil"
)

func TestRole_Satisfies(t *testing.T) {
	tests := []struct {
		role     auth.Role
		required auth.Role
		want     bool
	}{
		{auth.RoleAdmin, auth.RoleAdmin, true},
		{auth.RoleAdmin, auth.RoleUser, true},
		{auth.RoleUser, auth.RoleUser, true},
		{auth.RoleUser, auth.RoleAdmin, false},
		{auth.RoleAnonymous, auth.RoleUser, false},
		{auth.RoleAnonymous, auth.RoleAnonymous, false},
		{auth.Role(42), auth.RoleUser, false},
	}
	for _, tt := range tests {
		t.Run(tt.role.String()+"_requires_"+tt.required.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.Satisfies(tt.required))
		})
	}
}

func TestRole_String(t *testing.T) {
	assert.Equal(t, "anonymous", auth.RoleAnonymous.String())
	assert.Equal(t, "user", auth.RoleUser.String())
	assert.Equal(t, "admin", auth.RoleAdmin.String())
	assert.Equal(t, "unknown", auth.Role(-1).String())
}

func TestParseRole(t *testing.T) {
	r, err := auth.ParseRole(" Admin ")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, r)

	r, err = auth.ParseRole("user")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleUser, r)

	_, err = auth.ParseRole("anonymous")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, auth.CodeInvalidRole)
	errutil.AssertErrorContext(t, err, "role", "anonymous")
}

func TestRole_Assignable(t *testing.T) {
	assert.False(t, auth.RoleAnonymous.Assignable())
	assert.True(t, auth.RoleUser.Assignable())
	assert.True(t, auth.RoleAdmin.Assignable())
}
