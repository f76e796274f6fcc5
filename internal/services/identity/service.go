package identity

import (
	"errors"
	"fmt"

	passwordvalidator "github.com/wagslane/go-password-validator"

	"pairchat/internal/crypto"
	"pairchat/internal/domain"
	"pairchat/internal/store"
)

// DefaultMinEntropyBits is the password strength required when none is
// configured.
const DefaultMinEntropyBits = 50

var (
	// ErrEmptyPassword is returned for an empty password regardless of policy.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrWeakPassword is returned when the password scores below the minimum.
	ErrWeakPassword = errors.New("password is not strong enough")
)

// Service checks passwords and fingerprints public keys.
type Service struct {
	minEntropy float64
}

// New returns a Service requiring minEntropy bits. Negative values are
// treated as zero.
func New(minEntropy float64) *Service {
	if minEntropy < 0 {
		minEntropy = 0
	}
	return &Service{minEntropy: minEntropy}
}

var _ domain.IdentityService = (*Service)(nil)

// MinEntropy returns the configured threshold in bits.
func (s *Service) MinEntropy() float64 { return s.minEntropy }

// CheckPassword rejects empty passwords and, unless the threshold is zero,
// passwords below it.
func (s *Service) CheckPassword(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if s.minEntropy == 0 {
		return nil
	}
	if err := passwordvalidator.Validate(password, s.minEntropy); err != nil {
		return fmt.Errorf("%w (%.0f bits, need %.0f): %v",
			ErrWeakPassword, passwordvalidator.GetEntropy(password), s.minEntropy, err)
	}
	return nil
}

// Fingerprint returns the display fingerprint of a DER public key.
func (s *Service) Fingerprint(publicKey []byte) domain.Fingerprint {
	return crypto.Fingerprint(publicKey)
}

// FingerprintRecord fingerprints the transport key of a stored record and,
// when present, its signing key.
func (s *Service) FingerprintRecord(rec store.KeyRecord) (transport, signing domain.Fingerprint, err error) {
	if _, err := crypto.ParsePublicKey(rec.PublicKey); err != nil {
		return "", "", fmt.Errorf("transport key: %w", err)
	}
	transport = s.Fingerprint(rec.PublicKey)
	if len(rec.SigningPublicKey) > 0 {
		if _, err := crypto.ParsePublicKey(rec.SigningPublicKey); err != nil {
			return "", "", fmt.Errorf("signing key: %w", err)
		}
		signing = s.Fingerprint(rec.SigningPublicKey)
	}
	return transport, signing, nil
}
