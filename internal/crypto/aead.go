package crypto

import (
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"pairchat/internal/domain"
)

// IVSize is the AEAD nonce length in bytes.
const IVSize = chacha20poly1305.NonceSize

// Sealed is an AEAD ciphertext (tag included) and the IV it was sealed under.
type Sealed struct {
	IV         []byte
	Ciphertext []byte
}

// Seal encrypts plaintext under key with a freshly drawn IV.
//
// The IV is never chosen by the caller, so a (key, IV) pair cannot be reused
// except by random collision.
func Seal(plaintext, key []byte) (Sealed, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return Sealed{}, fmt.Errorf("aead key: %w", err)
	}
	iv, err := RandomBytes(IVSize)
	if err != nil {
		return Sealed{}, fmt.Errorf("aead iv: %w", err)
	}
	return Sealed{IV: iv, Ciphertext: aead.Seal(nil, iv, plaintext, nil)}, nil
}

// Open authenticates and decrypts s. Any failure, including a malformed IV,
// returns domain.ErrAuthentication and no plaintext.
func Open(s Sealed, key []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("aead key: %w", err)
	}
	if len(s.IV) != IVSize {
		return nil, domain.ErrAuthentication
	}
	pt, err := aead.Open(nil, s.IV, s.Ciphertext, nil)
	if err != nil {
		return nil, domain.ErrAuthentication
	}
	return pt, nil
}
