// Package service provides cryptographic services for the configuration-secrets store.
// Implements AEAD ciphers (AES-256-GCM, ChaCha20-Poly1305) and the encrypted
// artifact blob codec used by key rotation.
package service

import (
	"context"

	cryptoDomain "github.com/allisson/configvault/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// Cipher defines the byte-to-byte contract for encrypting and decrypting
// configuration bundles against a single master key. Implementations perform
// no I/O; reading and writing artifact files is the orchestrator's concern.
type Cipher interface {
	// Encrypt produces a self-describing encrypted blob from plaintext.
	Encrypt(plaintext []byte, key *cryptoDomain.MasterKey, alg cryptoDomain.Algorithm) ([]byte, error)

	// Decrypt recovers plaintext from an encrypted blob. Fails with
	// ErrDecryptionFailed on a wrong key or corrupted blob and never
	// returns partial plaintext.
	Decrypt(blob []byte, key *cryptoDomain.MasterKey) ([]byte, error)
}

// KMSKeeper abstracts an opened KMS keeper used to wrap freshly generated
// master keys before they are handed to the operator.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// KMSService opens KMS keepers from provider URIs.
type KMSService interface {
	// OpenKeeper opens a keeper for the configured KMS provider.
	// Returns an error if the KMS provider URI is invalid or connection fails.
	OpenKeeper(ctx context.Context, keyURI string) (KMSKeeper, error)
}
