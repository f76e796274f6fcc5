package custody

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"

	"pairchat/internal/crypto"
	"pairchat/internal/domain"
	"pairchat/internal/util/memzero"
)

const headerSize = crypto.SaltSize + crypto.IVSize

// WrappedKey is salt || iv || ciphertext. It encodes as base64 text.
type WrappedKey []byte

// Salt returns the key-derivation salt, or nil if w is truncated.
func (w WrappedKey) Salt() []byte {
	if len(w) < headerSize {
		return nil
	}
	return w[:crypto.SaltSize]
}

// IV returns the AEAD nonce, or nil if w is truncated.
func (w WrappedKey) IV() []byte {
	if len(w) < headerSize {
		return nil
	}
	return w[crypto.SaltSize:headerSize]
}

// Ciphertext returns the sealed key, or nil if w is truncated.
func (w WrappedKey) Ciphertext() []byte {
	if len(w) < headerSize {
		return nil
	}
	return w[headerSize:]
}

// MarshalText implements encoding.TextMarshaler.
func (w WrappedKey) MarshalText() ([]byte, error) {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(w)))
	base64.StdEncoding.Encode(out, w)
	return out, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *WrappedKey) UnmarshalText(text []byte) error {
	b := make([]byte, base64.StdEncoding.DecodedLen(len(text)))
	n, err := base64.StdEncoding.Decode(b, text)
	if err != nil {
		return fmt.Errorf("wrapped key: %w", err)
	}
	*w = b[:n]
	return nil
}

// Wrap seals privateKey under a key derived from password.
func Wrap(privateKey []byte, password string) (WrappedKey, error) {
	salt, err := crypto.NewSalt()
	if err != nil {
		return nil, fmt.Errorf("wrap salt: %w", err)
	}
	key, err := crypto.DeriveKey([]byte(password), salt, crypto.DefaultIterations)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)

	sealed, err := crypto.Seal(privateKey, key)
	if err != nil {
		return nil, err
	}
	blob := make(WrappedKey, 0, headerSize+len(sealed.Ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, sealed.IV...)
	blob = append(blob, sealed.Ciphertext...)
	return blob, nil
}

// Unwrap reverses Wrap. The caller owns the returned plaintext and should
// wipe it.
func Unwrap(blob WrappedKey, password string) ([]byte, error) {
	salt := blob.Salt()
	short := salt == nil
	if short {
		// Derive anyway so a truncated blob costs the same as a wrong password.
		salt = make([]byte, crypto.SaltSize)
	}
	key, err := crypto.DeriveKey([]byte(password), salt, crypto.DefaultIterations)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(key)
	if short {
		return nil, domain.ErrAuthentication
	}

	pt, err := crypto.Open(crypto.Sealed{IV: blob.IV(), Ciphertext: blob.Ciphertext()}, key)
	if err != nil {
		return nil, domain.ErrAuthentication
	}
	return pt, nil
}

// WrapRSA wraps the PKCS#8 encoding of priv.
func WrapRSA(priv *rsa.PrivateKey, password string) (WrappedKey, error) {
	der, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("encode private key: %w", err)
	}
	defer memzero.Zero(der)
	return Wrap(der, password)
}

// UnwrapRSA unwraps and parses an RSA private key.
func UnwrapRSA(blob WrappedKey, password string) (*rsa.PrivateKey, error) {
	der, err := Unwrap(blob, password)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(der)
	priv, err := crypto.ParsePrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("unwrapped key: %w", err)
	}
	return priv, nil
}
