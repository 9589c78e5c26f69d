package commands

import (
	"fmt"
	"io"
	"os"

	cryptoDomain "github.com/allisson/configvault/internal/crypto/domain"
	cryptoService "github.com/allisson/configvault/internal/crypto/service"
	"github.com/allisson/configvault/internal/envfile"
	apperrors "github.com/allisson/configvault/internal/errors"
)

// EncryptInput carries the encrypt command parameters.
type EncryptInput struct {
	// ArtifactPath is the plaintext artifact to encrypt.
	ArtifactPath string

	// OutputPath is the destination for the encrypted artifact. Empty
	// selects the conventional "<artifact>.encrypted" path.
	OutputPath string

	// Overwrite confirms replacing an existing destination file.
	Overwrite bool
}

// RunEncrypt encrypts the plaintext configuration artifact with the master
// key from the environment. The encrypted artifact is written next to the
// plaintext one with the ".encrypted" suffix unless an explicit output path
// is given; an existing destination is never replaced without confirmation.
// The plaintext file is left in place; removing it after verifying the
// encrypted copy is the operator's call.
func RunEncrypt(
	cipher cryptoService.Cipher,
	writer io.Writer,
	algorithm cryptoDomain.Algorithm,
	input EncryptInput,
) error {
	encryptedPath := input.OutputPath
	if encryptedPath == "" {
		encryptedPath = envfile.EncryptedPath(input.ArtifactPath)
	}
	if err := ensureWritable(encryptedPath, input.Overwrite); err != nil {
		return err
	}

	key, err := cryptoDomain.LoadMasterKeyFromEnv()
	if err != nil {
		return err
	}
	defer key.Close()

	plaintext, err := os.ReadFile(input.ArtifactPath)
	if err != nil {
		return fmt.Errorf("failed to read plaintext artifact: %w", err)
	}
	defer cryptoDomain.Zero(plaintext)

	blob, err := cipher.Encrypt(plaintext, key, algorithm)
	if err != nil {
		return err
	}

	if err := os.WriteFile(encryptedPath, blob, 0o600); err != nil {
		return fmt.Errorf("failed to write encrypted artifact: %w", err)
	}

	_, _ = fmt.Fprintf(writer, "Encrypted %s -> %s (%d bytes, algorithm %s, key %s)\n",
		input.ArtifactPath, encryptedPath, len(blob), algorithm,
		cryptoDomain.TruncateFingerprint(key.Fingerprint()))

	return nil
}

// ensureWritable refuses to replace an existing file unless the operator
// confirmed the overwrite.
func ensureWritable(path string, overwrite bool) error {
	if overwrite {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return apperrors.Wrapf(apperrors.ErrConflict, "output %s already exists, pass --yes to overwrite", path)
	}
	return nil
}
