// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bento Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// Upper bounds on argon2id cost, for configured parameters and stored hashes.
const (
	maxArgon2Memory = 4 << 20 // KiB, 4 GiB
	maxArgon2Time   = 64
)

// Argon2Params are the cost parameters of an argon2id hash.
type Argon2Params struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB
	Threads uint8  // parallelism
	SaltLen uint32 // bytes
	KeyLen  uint32 // bytes
}

// DefaultArgon2Params returns the OWASP-recommended argon2id parameters.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Time:    1,
		Memory:  64 * 1024, // 64 MB
		Threads: 4,
		SaltLen: 16,
		KeyLen:  32,
	}
}

// Validate checks that the parameters can produce a hash.
func (p Argon2Params) Validate() error {
	switch {
	case p.Time == 0:
		return oops.Code("AUTH_INVALID_HASH_PARAMS").Errorf("argon2 time must be at least 1")
	case p.Time > maxArgon2Time:
		return oops.Code("AUTH_INVALID_HASH_PARAMS").
			With("time", p.Time).
			Errorf("argon2 time must be at most %d", maxArgon2Time)
	case p.Memory > maxArgon2Memory:
		return oops.Code("AUTH_INVALID_HASH_PARAMS").
			With("memory", p.Memory).
			Errorf("argon2 memory must be at most %d KiB", maxArgon2Memory)
	case p.Memory < 8*uint32(p.Threads):
		return oops.Code("AUTH_INVALID_HASH_PARAMS").
			With("memory", p.Memory).
			With("threads", p.Threads).
			Errorf("argon2 memory must be at least 8 KiB per thread")
	case p.Threads == 0:
		return oops.Code("AUTH_INVALID_HASH_PARAMS").Errorf("argon2 threads must be at least 1")
	case p.SaltLen < 8:
		return oops.Code("AUTH_INVALID_HASH_PARAMS").Errorf("argon2 salt must be at least 8 bytes")
	case p.KeyLen < 16:
		return oops.Code("AUTH_INVALID_HASH_PARAMS").Errorf("argon2 key must be at least 16 bytes")
	}
	return nil
}

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted hash of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on invalid hash.
	Verify(password, hash string) (bool, error)

	// NeedsUpgrade returns true if the hash should be recomputed with the
	// hasher's current parameters.
	NeedsUpgrade(hash string) bool
}

// Argon2idHasher implements PasswordHasher using argon2id.
type Argon2idHasher struct {
	params Argon2Params
}

// NewArgon2idHasher creates a hasher with the default parameters.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{params: DefaultArgon2Params()}
}

// NewArgon2idHasherWithParams creates a hasher with explicit parameters.
func NewArgon2idHasherWithParams(params Argon2Params) (*Argon2idHasher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Argon2idHasher{params: params}, nil
}

// Params returns the parameters new hashes are computed with.
func (h *Argon2idHasher) Params() Argon2Params {
	return h.params
}

// Hash produces an argon2id hash of the password.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// encodedHash is a parsed PHC argon2id string.
type encodedHash struct {
	version int
	memory  uint32
	time    uint32
	threads uint32
	salt    []byte
	key     []byte
}

func parseArgon2id(encoded string) (*encodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var eh encodedHash
	if _, err := fmt.Sscanf(parts[2], "v=%d", &eh.version); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if eh.version != argon2.Version {
		return nil, oops.Code("AUTH_INVALID_HASH").
			With("version", eh.version).
			Errorf("unsupported argon2 version")
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &eh.memory, &eh.time, &eh.threads); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	var err error
	if eh.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if eh.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	// threads must fit in uint8 without truncation
	if eh.threads == 0 || eh.threads > 255 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("threads value %d out of range", eh.threads)
	}
	if eh.time == 0 || eh.time > maxArgon2Time {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("time value %d out of range", eh.time)
	}
	// checked before Verify allocates m KiB
	if eh.memory == 0 || eh.memory > maxArgon2Memory {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("memory value %d out of range", eh.memory)
	}
	if keyLen := len(eh.key); keyLen == 0 || keyLen > 1<<30 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", keyLen)
	}
	return &eh, nil
}

// Verify checks if the password matches the hash.
func (h *Argon2idHasher) Verify(password, encoded string) (bool, error) {
	eh, err := parseArgon2id(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), eh.salt, eh.time, eh.memory, uint8(eh.threads), uint32(len(eh.key)))

	return subtle.ConstantTimeCompare(computed, eh.key) == 1, nil
}

// NeedsUpgrade returns true if the hash is not argon2id or was computed with
// parameters other than the hasher's current ones.
func (h *Argon2idHasher) NeedsUpgrade(encoded string) bool {
	eh, err := parseArgon2id(encoded)
	if err != nil {
		return true
	}
	return eh.memory != h.params.Memory ||
		eh.time != h.params.Time ||
		eh.threads != uint32(h.params.Threads) ||
		uint32(len(eh.salt)) != h.params.SaltLen ||
		uint32(len(eh.key)) != h.params.KeyLen
}
