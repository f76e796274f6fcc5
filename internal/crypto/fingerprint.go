package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"pairchat/internal/domain"
)

// Fingerprint returns a short fingerprint of a public key or session key for
// out-of-band comparison.
//
// It hashes with SHA-256, keeps 10 bytes and groups the hex in fours
// ("a1b2:c3d4:...").
func Fingerprint(material []byte) domain.Fingerprint {
	sum := sha256.Sum256(material)
	h := hex.EncodeToString(sum[:10])
	groups := make([]string, 0, len(h)/4)
	for i := 0; i < len(h); i += 4 {
		groups = append(groups, h[i:i+4])
	}
	return domain.Fingerprint(strings.Join(groups, ":"))
}
