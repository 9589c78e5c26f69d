package commands

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	cryptoDomain "github.com/allisson/configvault/internal/crypto/domain"
	cryptoService "github.com/allisson/configvault/internal/crypto/service"
)

// RunGenerateKey generates a cryptographically secure 32-byte master key.
// Key material is zeroed from memory after encoding.
//
// When kmsKeyURI is set, a KMS-wrapped copy of the key is printed alongside
// the plaintext export, for offline recovery storage. For local development,
// use "base64key://<32-byte-base64-key>"; production deployments should use
// cloud keepers (gcpkms://..., awskms://..., azurekeyvault://...,
// hashivault://...).
func RunGenerateKey(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	writer io.Writer,
	kmsKeyURI string,
) error {
	key, err := cryptoDomain.GenerateMasterKey()
	if err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}
	defer key.Close()

	_, _ = fmt.Fprintln(writer, "# Master Key Configuration")
	_, _ = fmt.Fprintln(writer, "# Install this environment variable where the store runs")
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintf(writer, "%s=\"%s\"\n", cryptoDomain.KeyEnvVar, key.Encode())
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintf(writer, "# Key fingerprint: %s\n", key.Fingerprint())

	if kmsKeyURI == "" {
		return nil
	}

	keeper, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			_, _ = fmt.Fprintf(writer, "Warning: failed to close KMS keeper: %v\n", closeErr)
		}
	}()

	wrapped, err := keeper.Encrypt(ctx, key.Key)
	if err != nil {
		return fmt.Errorf("failed to wrap master key with KMS: %w", err)
	}

	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintln(writer, "# KMS-wrapped copy (store offline for recovery)")
	_, _ = fmt.Fprintf(writer, "# KMS Key URI: %s\n", kmsKeyURI)
	_, _ = fmt.Fprintf(writer, "%s_WRAPPED=\"%s\"\n", cryptoDomain.KeyEnvVar, base64.StdEncoding.EncodeToString(wrapped))

	return nil
}
