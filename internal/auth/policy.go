// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package auth

import (
	"unicode/utf8"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Password length defaults.
const (
	DefaultMinPasswordLength = 8
	DefaultMaxPasswordLength = 128
)

// PasswordPolicy bounds credential strength.
type PasswordPolicy struct {
	MinLength int
	MaxLength int
}

// DefaultPasswordPolicy returns the default password policy.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength: DefaultMinPasswordLength,
		MaxLength: DefaultMaxPasswordLength,
	}
}

// Validate checks password against the policy. Lengths count runes.
func (p PasswordPolicy) Validate(password string) error {
	n := utf8.RuneCountInString(password)
	if n == 0 {
		return oops.Code(CodeWeakPassword).Errorf("password cannot be empty")
	}
	if p.MinLength > 0 && n < p.MinLength {
		return oops.Code(CodeWeakPassword).
			With("min", p.MinLength).
			Errorf("password must be at least %d characters", p.MinLength)
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		return oops.Code(CodeWeakPassword).
			With("max", p.MaxLength).
			Errorf("password must be at most %d characters", p.MaxLength)
	}
	return nil
}

// UsernamePolicy validates usernames at registration.
type UsernamePolicy struct {
	patterns []string
	reserved []glob.Glob
}

// NewUsernamePolicy compiles reserved username patterns.
// Patterns are glob expressions matched against the normalized username,
// e.g. "admin*" or "{root,system}".
func NewUsernamePolicy(reserved []string) (*UsernamePolicy, error) {
	p := &UsernamePolicy{}
	for _, pattern := range reserved {
		g, err := glob.Compile(NormalizeUsername(pattern))
		if err != nil {
			return nil, oops.Code("AUTH_INVALID_RESERVED_PATTERN").
				With("pattern", pattern).
				Wrap(err)
		}
		p.patterns = append(p.patterns, pattern)
		p.reserved = append(p.reserved, g)
	}
	return p, nil
}

// Validate checks the username format and reserved names.
func (p *UsernamePolicy) Validate(username string) error {
	if err := ValidateUsername(username); err != nil {
		return err
	}
	if p == nil {
		return nil
	}
	normalized := NormalizeUsername(username)
	for i, g := range p.reserved {
		if g.Match(normalized) {
			return oops.Code(CodeInvalidUsername).
				With("pattern", p.patterns[i]).
				Errorf("username is reserved")
		}
	}
	return nil
}
