package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// FingerprintDisplayLength is the number of hex characters shown when a
// fingerprint is truncated for human display.
const FingerprintDisplayLength = 16

// Fingerprint computes the SHA-256 hash of raw key bytes and returns it as a
// lowercase hex string. The fingerprint identifies a key in audit records
// without exposing the key material; it is deterministic and one-way.
func Fingerprint(keyBytes []byte) string {
	hash := sha256.Sum256(keyBytes)
	return hex.EncodeToString(hash[:])
}

// TruncateFingerprint shortens a fingerprint for display. Fingerprints are
// only compared in full; the truncated form is informational.
func TruncateFingerprint(fp string) string {
	if len(fp) <= FingerprintDisplayLength {
		return fp
	}
	return fp[:FingerprintDisplayLength]
}
