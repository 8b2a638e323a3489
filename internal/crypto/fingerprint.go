package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"keyrelay/internal/domain"
)

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes with SHA-256 and truncates to 10 bytes, printed as five groups of
// four hex digits.
func Fingerprint(pub []byte) domain.Fingerprint {
	sum := sha256.Sum256(pub)
	h := hex.EncodeToString(sum[:10])
	groups := make([]string, 0, len(h)/4)
	for i := 0; i < len(h); i += 4 {
		groups = append(groups, h[i:i+4])
	}
	return domain.Fingerprint(strings.Join(groups, " "))
}
