package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"qchat/internal/domain"
)

// fingerprintHexLen matches the backend's key_fingerprint length.
const fingerprintHexLen = 16

// Fingerprint returns a short hex fingerprint of a quantum key.
//
// It hashes the key's string form with SHA-256 and keeps the first 8 bytes
// (16 hex chars), the same derivation the backend reports as
// key_fingerprint, so the two can be compared by eye.
func Fingerprint(quantumKey string) domain.Fingerprint {
	sum := sha256.Sum256([]byte(quantumKey))
	return domain.Fingerprint(hex.EncodeToString(sum[:])[:fingerprintHexLen])
}
