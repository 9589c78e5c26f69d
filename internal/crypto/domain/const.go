package domain

// Algorithm represents the cryptographic algorithm used for encryption.
//
// All supported algorithms provide Authenticated Encryption with Associated Data (AEAD),
// ensuring both confidentiality and authenticity of encrypted configuration data.
//
// Algorithm selection guidelines:
//   - Use AESGCM on modern CPUs with AES-NI hardware acceleration
//   - Use ChaCha20 on systems without AES-NI
//   - Both provide equivalent 256-bit security when used correctly
type Algorithm string

const (
	// AESGCM represents the AES-256-GCM authenticated encryption algorithm.
	//
	// AES-GCM (Advanced Encryption Standard in Galois/Counter Mode) combines
	// AES encryption with GMAC authentication. It uses a 256-bit key and
	// provides excellent performance on hardware with AES-NI acceleration.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents the ChaCha20-Poly1305 authenticated encryption algorithm.
	//
	// ChaCha20-Poly1305 combines the ChaCha20 stream cipher with the Poly1305 MAC
	// for authentication. It's designed for high performance on platforms without
	// AES hardware acceleration and is resistant to timing attacks.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// KeySize is the required master key length in bytes (256 bits).
// Both supported AEAD algorithms take a 32-byte key.
const KeySize = 32

// KeyEnvVar is the environment variable that supplies the active master key
// as a standard base64-encoded 32-byte value. The key is never persisted;
// it must be present in the process environment before any cryptographic
// operation.
const KeyEnvVar = "CONFIG_ENCRYPTION_KEY"
