// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package errutil

import (
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// T is the part of testing.TB the assertions use.
type T interface {
	require.TestingT
	Helper()
}

// RequireOops stops the test unless err is a non-nil oops error, and returns it.
func RequireOops(t T, err error) oops.OopsError {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.Truef(t, ok, "want an oops error, got %T: %v", err, err)
	return oopsErr
}

// AssertErrorCode checks the code of an oops error. When several layers set
// a code the innermost one is compared.
func AssertErrorCode(t T, err error, code string) bool {
	t.Helper()
	return assert.Equalf(t, code, RequireOops(t, err).Code(), "code of %q", err)
}

// AssertErrorContext checks one key of the merged oops context.
func AssertErrorContext(t T, err error, key string, value any) bool {
	t.Helper()
	got, ok := RequireOops(t, err).Context()[key]
	if !ok {
		return assert.Failf(t, "missing error context", "key %q not set on %q", key, err)
	}
	return assert.Equalf(t, value, got, "context %q of %q", key, err)
}
