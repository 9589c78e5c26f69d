package commands

import (
	"fmt"
	"io"
	"os"

	cryptoDomain "github.com/allisson/configvault/internal/crypto/domain"
	cryptoService "github.com/allisson/configvault/internal/crypto/service"
	"github.com/allisson/configvault/internal/envfile"
	"github.com/allisson/configvault/internal/masking"
)

// DecryptInput carries the decrypt command parameters.
type DecryptInput struct {
	// ArtifactPath is the plaintext artifact path; the encrypted artifact
	// is read from the conventional "<artifact>.encrypted" location.
	ArtifactPath string

	// OutputPath is an explicit destination file for the plaintext. Empty
	// prints to the writer unless WriteFile is set.
	OutputPath string

	// WriteFile restores the plaintext file at the conventional location,
	// the encrypted artifact's path with the ".encrypted" suffix stripped.
	WriteFile bool

	// Overwrite confirms replacing an existing destination file.
	Overwrite bool

	// Masked redacts values under sensitive keys before printing, so the
	// output is safe for terminals and shared sessions. Ignored for file
	// output.
	Masked bool
}

// RunDecrypt decrypts the encrypted configuration artifact with the master
// key from the environment. By default the plaintext goes to the writer;
// with an explicit output path or WriteFile it is restored to a file
// instead, never replacing an existing one without confirmation.
func RunDecrypt(
	cipher cryptoService.Cipher,
	writer io.Writer,
	input DecryptInput,
) error {
	encryptedPath := envfile.EncryptedPath(input.ArtifactPath)

	outputPath := input.OutputPath
	if outputPath == "" && input.WriteFile {
		outputPath, _ = envfile.PlaintextPath(encryptedPath)
	}
	if outputPath != "" {
		if err := ensureWritable(outputPath, input.Overwrite); err != nil {
			return err
		}
	}

	key, err := cryptoDomain.LoadMasterKeyFromEnv()
	if err != nil {
		return err
	}
	defer key.Close()

	blob, err := envfile.ReadEncrypted(encryptedPath)
	if err != nil {
		return err
	}

	plaintext, err := cipher.Decrypt(blob, key)
	if err != nil {
		return err
	}
	defer cryptoDomain.Zero(plaintext)

	if outputPath != "" {
		if err := os.WriteFile(outputPath, plaintext, 0o600); err != nil {
			return fmt.Errorf("failed to write plaintext artifact: %w", err)
		}
		_, _ = fmt.Fprintf(writer, "Decrypted %s -> %s (%d bytes)\n",
			encryptedPath, outputPath, len(plaintext))
		return nil
	}

	if !input.Masked {
		_, err := writer.Write(plaintext)
		return err
	}

	values, err := envfile.Parse(plaintext)
	if err != nil {
		return fmt.Errorf("failed to parse decrypted artifact: %w", err)
	}

	maskedValues, ok := masking.MaskStructure(values).(map[string]string)
	if !ok {
		return fmt.Errorf("unexpected masked structure type")
	}

	_, err = writer.Write(envfile.Serialize(maskedValues))
	return err
}
