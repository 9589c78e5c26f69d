package domain

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/allisson/configvault/internal/errors"
)

// MasterKey represents the symmetric key currently authoritative for
// encrypting and decrypting the configuration artifact.
//
// The key is supplied by the environment at process start and lives only in
// process memory. It is never persisted; audit records store its fingerprint
// instead. Call Close when the key is no longer needed to clear the raw
// bytes from memory.
type MasterKey struct {
	Key []byte
}

// NewMasterKey validates raw key bytes and wraps them in a MasterKey.
// Returns ErrInvalidKeyFormat if the key is not exactly 32 bytes.
// The returned MasterKey owns the slice; callers must not reuse it.
func NewMasterKey(raw []byte) (*MasterKey, error) {
	if len(raw) != KeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKeyFormat, KeySize, len(raw))
	}
	return &MasterKey{Key: raw}, nil
}

// GenerateMasterKey creates a new random 32-byte master key using crypto/rand.
func GenerateMasterKey() (*MasterKey, error) {
	raw := make([]byte, KeySize)
	if _, err := rand.Read(raw); err != nil {
		return nil, errors.Wrap(err, "failed to generate master key")
	}
	return &MasterKey{Key: raw}, nil
}

// DecodeMasterKey decodes a standard base64-encoded key string and validates it.
// Returns ErrInvalidKeyFormat if the value is not valid base64 or decodes to a
// key of the wrong length. The intermediate decode buffer becomes the key; no
// copy is left behind.
func DecodeMasterKey(encoded string) (*MasterKey, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
	}
	key, err := NewMasterKey(raw)
	if err != nil {
		Zero(raw)
		return nil, err
	}
	return key, nil
}

// LoadMasterKeyFromEnv loads the active master key from the CONFIG_ENCRYPTION_KEY
// environment variable.
//
// Returns ErrEncryptionKeyNotSet when the variable is absent or empty, and
// ErrInvalidKeyFormat when the value is not base64 or not a 32-byte key.
// The environment is the only key source; there is no default secret.
func LoadMasterKeyFromEnv() (*MasterKey, error) {
	encoded := os.Getenv(KeyEnvVar)
	if encoded == "" {
		return nil, fmt.Errorf("%w: %s", ErrEncryptionKeyNotSet, KeyEnvVar)
	}
	return DecodeMasterKey(encoded)
}

// Encode returns the key material as a standard base64 string, suitable for
// installing into the environment variable after a rotation.
func (m *MasterKey) Encode() string {
	return base64.StdEncoding.EncodeToString(m.Key)
}

// Fingerprint returns the SHA-256 fingerprint of the raw key bytes.
func (m *MasterKey) Fingerprint() string {
	return Fingerprint(m.Key)
}

// Close clears the raw key bytes from memory. The key must not be used
// afterwards. Safe to call on a nil receiver.
func (m *MasterKey) Close() {
	if m == nil {
		return
	}
	Zero(m.Key)
	m.Key = nil
}
