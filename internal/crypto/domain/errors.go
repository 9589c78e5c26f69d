package domain

import (
	"github.com/allisson/configvault/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// to provide context for cryptographic failures. The CLI layer maps them
// to human-readable messages and a non-zero exit status.
var (
	// ErrUnsupportedAlgorithm indicates the requested encryption algorithm is not supported.
	//
	// Supported algorithms: AESGCM (AES-256-GCM), ChaCha20 (ChaCha20-Poly1305)
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeyFormat indicates the supplied master key bytes do not match the
	// cipher's requirement: standard base64 decoding to exactly 32 bytes.
	// Always fatal, never retried automatically.
	ErrInvalidKeyFormat = errors.Wrap(errors.ErrInvalidInput, "invalid master key format")

	// ErrEncryptionKeyNotSet indicates no master key is available in the process
	// environment. Fatal at startup for any operation that needs the key; there
	// is no fallback to a default secret.
	ErrEncryptionKeyNotSet = errors.Wrap(errors.ErrUnavailable, "encryption key not set in environment")

	// ErrDecryptionFailed indicates a decryption operation failed.
	//
	// This error can occur due to:
	//   - Wrong decryption key used
	//   - Ciphertext has been tampered with (authentication failure)
	//   - Corrupted or truncated encrypted data
	//
	// For security reasons, the specific cause is not disclosed and no partial
	// plaintext is ever returned.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrMalformedBlob indicates an encrypted artifact does not carry the
	// expected header (magic, version, algorithm, nonce) and cannot be decrypted.
	ErrMalformedBlob = errors.Wrap(errors.ErrInvalidInput, "malformed encrypted blob")
)
