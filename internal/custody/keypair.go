package custody

import (
	"fmt"

	"pairchat/internal/crypto"
)

// KeyPair is a public key and its password-wrapped private half. The
// plaintext private key is not retained.
type KeyPair struct {
	PublicKey []byte     // PKIX DER
	Wrapped   WrappedKey // PKCS#8 DER under password
}

// NewKeyPair generates an RSA keypair and wraps the private key with
// password before returning.
func NewKeyPair(password string) (KeyPair, error) {
	priv, err := crypto.GenerateKeyPair()
	if err != nil {
		return KeyPair{}, err
	}
	pub, err := crypto.MarshalPublicKey(&priv.PublicKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("encode public key: %w", err)
	}
	wrapped, err := WrapRSA(priv, password)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{PublicKey: pub, Wrapped: wrapped}, nil
}

// Signer signs with a wrapped RSA key, unwrapping it only for the duration
// of each Sign call.
type Signer struct {
	pair     KeyPair
	password string
}

// NewSigner returns a Signer over pair, unlocked with password.
func NewSigner(pair KeyPair, password string) *Signer {
	return &Signer{pair: pair, password: password}
}

// PublicKey returns the DER public key receivers verify against.
func (s *Signer) PublicKey() []byte { return s.pair.PublicKey }

// KeyPair returns the wrapped signing key for export.
func (s *Signer) KeyPair() KeyPair { return s.pair }

// Sign unwraps the signing key and produces a PSS signature over message.
func (s *Signer) Sign(message []byte) ([]byte, error) {
	priv, err := UnwrapRSA(s.pair.Wrapped, s.password)
	if err != nil {
		return nil, fmt.Errorf("unlock signing key: %w", err)
	}
	return crypto.Sign(message, priv)
}
