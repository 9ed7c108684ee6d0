// Package cryptox derives and verifies salted password digests.
//
// Two key derivation functions are supported: argon2id (default) and
// PBKDF2-HMAC-SHA256. Both digest and salt are returned hex encoded so they
// can be stored as opaque strings. A fresh random salt is drawn for every
// Hash call.
package cryptox

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophident/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/sync/semaphore"
)

const (
	AlgorithmArgon2id = "argon2id"
	AlgorithmPBKDF2   = "pbkdf2-sha256"
)

// ErrUnsupportedAlgorithm is returned by NewPasswordHasher for unknown KDF names.
var ErrUnsupportedAlgorithm = errors.New("unsupported password hashing algorithm")

// PasswordHasher is implemented by Hasher; services depend on the interface.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (digest, salt string, err error)
	Verify(ctx context.Context, plaintext, salt, digest string) bool
}

// Params configures the derivation.
//
// Memory is in KiB and only used by argon2id; Iterations only by PBKDF2.
// MaxConcurrent bounds the number of derivations running at once, since each
// argon2id call allocates Memory KiB.
type Params struct {
	Algorithm     string
	Time          uint32
	Memory        uint32
	Threads       uint8
	Iterations    int
	KeyLength     uint32
	SaltLength    int
	MaxConcurrent int64
}

// DefaultParams returns the argon2id parameters recommended by RFC 9106
// for memory-constrained environments.
func DefaultParams() Params {
	return Params{
		Algorithm:     AlgorithmArgon2id,
		Time:          1,
		Memory:        64 * 1024,
		Threads:       4,
		Iterations:    600_000,
		KeyLength:     32,
		SaltLength:    16,
		MaxConcurrent: 4,
	}
}

type deriveFunc func(password, salt []byte) []byte

// Hasher derives digests with the configured KDF. It holds no mutable state
// apart from the concurrency limiter and is safe for concurrent use.
type Hasher struct {
	algorithm  string
	derive     deriveFunc
	saltLength int
	sem        *semaphore.Weighted
}

// NewPasswordHasher validates p and builds a Hasher. An error here is a
// startup failure: the process cannot authenticate anyone without it.
func NewPasswordHasher(p Params) (*Hasher, error) {
	if p.KeyLength < 16 {
		return nil, fmt.Errorf("key length %d is too short", p.KeyLength)
	}
	if p.SaltLength < 8 {
		return nil, fmt.Errorf("salt length %d is too short", p.SaltLength)
	}
	if p.MaxConcurrent <= 0 {
		return nil, fmt.Errorf("max concurrent derivations must be positive, got %d", p.MaxConcurrent)
	}

	var derive deriveFunc
	switch p.Algorithm {
	case AlgorithmArgon2id:
		if p.Time == 0 || p.Memory == 0 || p.Threads == 0 {
			return nil, errors.New("argon2id time, memory and threads must be positive")
		}
		derive = func(password, salt []byte) []byte {
			return argon2.IDKey(password, salt, p.Time, p.Memory, p.Threads, p.KeyLength)
		}
	case AlgorithmPBKDF2:
		if p.Iterations <= 0 {
			return nil, errors.New("pbkdf2 iterations must be positive")
		}
		derive = func(password, salt []byte) []byte {
			return pbkdf2.Key(password, salt, p.Iterations, int(p.KeyLength), sha256.New)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, p.Algorithm)
	}

	return &Hasher{
		algorithm:  p.Algorithm,
		derive:     derive,
		saltLength: p.SaltLength,
		sem:        semaphore.NewWeighted(p.MaxConcurrent),
	}, nil
}

// Algorithm reports the KDF name.
func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// Hash draws a new salt and derives the digest of plaintext.
// The only errors are ctx cancellation while waiting for a free slot.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, string, error) {
	salt := common.GenerateRandByteArray(h.saltLength)

	key, err := h.run(ctx, plaintext, salt)
	if err != nil {
		return "", "", err
	}

	return hex.EncodeToString(key), hex.EncodeToString(salt), nil
}

// Verify recomputes the digest with the stored salt and compares it in
// constant time. Any decoding problem is reported as a mismatch.
func (h *Hasher) Verify(ctx context.Context, plaintext, salt, digest string) bool {
	rawSalt, err := hex.DecodeString(salt)
	if err != nil || len(rawSalt) == 0 {
		return false
	}
	want, err := hex.DecodeString(digest)
	if err != nil || len(want) == 0 {
		return false
	}

	got, err := h.run(ctx, plaintext, rawSalt)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(got, want) == 1
}

func (h *Hasher) run(ctx context.Context, plaintext string, salt []byte) ([]byte, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer h.sem.Release(1)

	password := []byte(plaintext)
	defer common.WipeByteArray(password)

	return h.derive(password, salt), nil
}
