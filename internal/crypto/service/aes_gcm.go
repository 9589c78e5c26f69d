package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

// AESGCMCipher implements the AEAD interface using AES-256-GCM
// (Advanced Encryption Standard with Galois/Counter Mode).
//
// AES-GCM provides authenticated encryption with associated data (AEAD), combining
// the confidentiality of AES encryption with the authenticity of GMAC. This
// implementation uses AES-256 with a 256-bit key.
//
// Security properties:
//   - 256-bit key size
//   - 12-byte nonce (96 bits, randomly generated per encryption)
//   - 16-byte authentication tag (128 bits, appended to ciphertext)
//   - Authenticated encryption prevents tampering and forgery
//
// Thread safety:
//
//	The cipher instance is stateless and safe for concurrent use from multiple
//	goroutines. Each encryption operation generates a unique nonce independently.
type AESGCMCipher struct {
	aead cipher.AEAD
}

// NewAESGCM creates a new AES-256-GCM cipher instance.
//
// The key must be exactly 32 bytes (256 bits) for AES-256. Keys should be
// generated using crypto/rand for cryptographic security.
//
// Returns an error if the key size is invalid or cipher initialization fails.
func NewAESGCM(key []byte) (*AESGCMCipher, error) {
	if len(key) != 32 {
		return nil, errors.New("key must be exactly 32 bytes")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESGCMCipher{aead: aead}, nil
}

// Encrypt encrypts plaintext using AES-256-GCM with optional additional authenticated data.
//
// A unique 12-byte nonce is randomly generated for each encryption operation using
// crypto/rand. The nonce must be stored alongside the ciphertext for later decryption.
// With GCM, nonces must never be reused with the same key.
//
// The returned ciphertext includes the 16-byte authentication tag appended to the end.
func (a *AESGCMCipher) Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, a.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext = a.aead.Seal(nil, nonce, plaintext, aad)
	return ciphertext, nonce, nil
}

// Decrypt decrypts ciphertext using AES-256-GCM with the provided nonce and AAD.
//
// This method verifies the authentication tag before returning plaintext, ensuring
// the ciphertext hasn't been tampered with. If verification fails, no plaintext is
// returned.
func (a *AESGCMCipher) Decrypt(ciphertext, nonce, aad []byte) ([]byte, error) {
	plaintext, err := a.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}
	return plaintext, nil
}
