package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// MinIterations is the lowest PBKDF2 iteration count DeriveKey accepts.
	MinIterations = 100_000
	// DefaultIterations is used for both key wrapping and session keys.
	DefaultIterations = MinIterations

	KeySize  = chacha20poly1305.KeySize
	SaltSize = 16
)

var (
	ErrWeakIterations = errors.New("kdf iteration count below minimum")
	ErrEmptySalt      = errors.New("kdf salt is empty")
)

// DeriveKey stretches secret into a KeySize symmetric key. The result depends
// only on its inputs.
func DeriveKey(secret, salt []byte, iterations int) ([]byte, error) {
	if iterations < MinIterations {
		return nil, fmt.Errorf("%w: %d < %d", ErrWeakIterations, iterations, MinIterations)
	}
	if len(salt) == 0 {
		return nil, ErrEmptySalt
	}
	return pbkdf2.Key(secret, salt, iterations, KeySize, sha256.New), nil
}

// NewSalt returns SaltSize random bytes.
func NewSalt() ([]byte, error) { return RandomBytes(SaltSize) }
