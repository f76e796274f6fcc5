package crypto

import (
	gocrypto "crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"fmt"

	"pairchat/internal/domain"
)

const (
	RSABits = 2048

	// MaxOAEPPlaintext is the largest message EncryptOAEP accepts for a
	// 2048-bit key with SHA-256.
	MaxOAEPPlaintext = RSABits/8 - 2*sha256.Size - 2

	pssSaltLength = 32
)

var (
	ErrInvalidPublicKey  = errors.New("invalid rsa public key")
	ErrInvalidPrivateKey = errors.New("invalid rsa private key")
)

// GenerateKeyPair returns a fresh RSA-2048 keypair.
func GenerateKeyPair() (*rsa.PrivateKey, error) {
	priv, err := rsa.GenerateKey(randReader, RSABits)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrKeyGeneration, err)
	}
	return priv, nil
}

// MarshalPublicKey encodes pub as PKIX DER.
func MarshalPublicKey(pub *rsa.PublicKey) ([]byte, error) {
	return x509.MarshalPKIXPublicKey(pub)
}

// ParsePublicKey decodes a PKIX DER RSA public key of at least RSABits.
func ParsePublicKey(der []byte) (*rsa.PublicKey, error) {
	k, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	pub, ok := k.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an rsa key", ErrInvalidPublicKey)
	}
	if pub.N.BitLen() < RSABits {
		return nil, fmt.Errorf("%w: %d bits", ErrInvalidPublicKey, pub.N.BitLen())
	}
	return pub, nil
}

// MarshalPrivateKey encodes priv as PKCS#8 DER. Callers should wipe the
// result once it is no longer needed.
func MarshalPrivateKey(priv *rsa.PrivateKey) ([]byte, error) {
	return x509.MarshalPKCS8PrivateKey(priv)
}

// ParsePrivateKey decodes a PKCS#8 DER RSA private key.
func ParsePrivateKey(der []byte) (*rsa.PrivateKey, error) {
	k, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPrivateKey, err)
	}
	priv, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an rsa key", ErrInvalidPrivateKey)
	}
	return priv, nil
}

// EncryptOAEP encrypts plaintext for pub with randomized OAEP-SHA256.
func EncryptOAEP(plaintext []byte, pub *rsa.PublicKey) ([]byte, error) {
	if len(plaintext) > MaxOAEPPlaintext {
		return nil, fmt.Errorf("oaep plaintext too long: %d > %d", len(plaintext), MaxOAEPPlaintext)
	}
	return rsa.EncryptOAEP(sha256.New(), randReader, pub, plaintext, nil)
}

// DecryptOAEP reverses EncryptOAEP. Padding failures return
// domain.ErrAuthentication.
func DecryptOAEP(ciphertext []byte, priv *rsa.PrivateKey) ([]byte, error) {
	pt, err := rsa.DecryptOAEP(sha256.New(), nil, priv, ciphertext, nil)
	if err != nil {
		return nil, domain.ErrAuthentication
	}
	return pt, nil
}

// Sign produces an RSA-PSS signature over SHA-256(message) with a random salt.
func Sign(message []byte, priv *rsa.PrivateKey) ([]byte, error) {
	digest := sha256.Sum256(message)
	return rsa.SignPSS(randReader, priv, gocrypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: pssSaltLength,
	})
}

// Verify reports whether signature is a valid PSS signature of message under
// the DER-encoded public key. It never panics or errors.
func Verify(message, signature, publicKey []byte) bool {
	if len(signature) == 0 || len(publicKey) == 0 {
		return false
	}
	pub, err := ParsePublicKey(publicKey)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(message)
	return rsa.VerifyPSS(pub, gocrypto.SHA256, digest[:], signature, &rsa.PSSOptions{
		SaltLength: pssSaltLength,
	}) == nil
}
