package service

import (
	"bytes"
	"fmt"

	cryptoDomain "github.com/allisson/configvault/internal/crypto/domain"
)

// Encrypted blob wire format:
//
//	[4 bytes: magic "CVLT"]
//	[1 byte:  format version]
//	[1 byte:  algorithm identifier]
//	[12 bytes: nonce]
//	[N bytes: ciphertext + authentication tag]
//
// The header makes the blob self-describing: decryption picks the cipher from
// the algorithm byte, and any header mismatch is rejected before the AEAD
// open is attempted.
var blobMagic = []byte("CVLT")

const (
	blobVersion   = 0x01
	blobNonceSize = 12

	algIDAESGCM   = 0x01
	algIDChaCha20 = 0x02
)

// blobHeaderSize is the fixed number of bytes preceding the ciphertext.
const blobHeaderSize = len("CVLT") + 2 + blobNonceSize

// BlobCipher implements the Cipher interface on top of the AEAD ciphers,
// framing ciphertext in the self-describing blob format above. It is
// stateless apart from the manager used to construct cipher instances;
// a cipher is created per operation and no key is cached across calls.
type BlobCipher struct {
	aeadManager AEADManager
}

// NewBlobCipher creates a BlobCipher using the provided AEADManager.
func NewBlobCipher(aeadManager AEADManager) *BlobCipher {
	return &BlobCipher{aeadManager: aeadManager}
}

// Encrypt encrypts plaintext under the master key with the requested algorithm
// and returns a self-describing encrypted blob.
func (b *BlobCipher) Encrypt(
	plaintext []byte,
	key *cryptoDomain.MasterKey,
	alg cryptoDomain.Algorithm,
) ([]byte, error) {
	algID, err := algorithmID(alg)
	if err != nil {
		return nil, err
	}

	aead, err := b.aeadManager.CreateCipher(key.Key, alg)
	if err != nil {
		return nil, err
	}

	ciphertext, nonce, err := aead.Encrypt(plaintext, blobMagic)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt blob: %w", err)
	}

	blob := make([]byte, 0, blobHeaderSize+len(ciphertext))
	blob = append(blob, blobMagic...)
	blob = append(blob, blobVersion, algID)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)
	return blob, nil
}

// Decrypt recovers plaintext from an encrypted blob using the master key.
//
// Returns ErrMalformedBlob when the header is missing or unrecognized and
// ErrDecryptionFailed when the authentication check fails (wrong key or
// tampered ciphertext). No partial plaintext is ever returned.
func (b *BlobCipher) Decrypt(blob []byte, key *cryptoDomain.MasterKey) ([]byte, error) {
	if len(blob) < blobHeaderSize {
		return nil, cryptoDomain.ErrMalformedBlob
	}
	if !bytes.Equal(blob[:len(blobMagic)], blobMagic) {
		return nil, cryptoDomain.ErrMalformedBlob
	}
	if blob[len(blobMagic)] != blobVersion {
		return nil, fmt.Errorf("%w: unknown version %d", cryptoDomain.ErrMalformedBlob, blob[len(blobMagic)])
	}

	alg, err := algorithmFromID(blob[len(blobMagic)+1])
	if err != nil {
		return nil, err
	}

	nonce := blob[len(blobMagic)+2 : blobHeaderSize]
	ciphertext := blob[blobHeaderSize:]

	aead, err := b.aeadManager.CreateCipher(key.Key, alg)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Decrypt(ciphertext, nonce, blobMagic)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return plaintext, nil
}

// algorithmID maps an Algorithm to its single-byte wire identifier.
func algorithmID(alg cryptoDomain.Algorithm) (byte, error) {
	switch alg {
	case cryptoDomain.AESGCM:
		return algIDAESGCM, nil
	case cryptoDomain.ChaCha20:
		return algIDChaCha20, nil
	default:
		return 0, cryptoDomain.ErrUnsupportedAlgorithm
	}
}

// algorithmFromID maps a wire identifier back to its Algorithm.
func algorithmFromID(id byte) (cryptoDomain.Algorithm, error) {
	switch id {
	case algIDAESGCM:
		return cryptoDomain.AESGCM, nil
	case algIDChaCha20:
		return cryptoDomain.ChaCha20, nil
	default:
		return "", fmt.Errorf("%w: unknown algorithm id %d", cryptoDomain.ErrMalformedBlob, id)
	}
}
