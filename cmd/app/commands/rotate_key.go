package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/allisson/configvault/internal/crypto/domain"
	rotationUsecase "github.com/allisson/configvault/internal/rotation/usecase"
)

// RunRotateKey runs the key rotation protocol: backup, decrypt with the
// current key, re-encrypt with a freshly generated key, verify, commit.
//
// The backup is skipped when the operator passes --no-backup or when
// ROTATION_BACKUP_ENABLED turns backups off for the deployment.
//
// On success the new key is printed exactly once; it exists nowhere else.
// On failure the artifact is rolled back and the current key stays valid.
//
// Requirements: Database must be migrated and accessible.
func RunRotateKey(
	ctx context.Context,
	useCase rotationUsecase.KeyRotationUseCase,
	logger *slog.Logger,
	writer io.Writer,
	reason string,
	noBackup bool,
	backupEnabled bool,
	format string,
) error {
	disableBackup := noBackup || !backupEnabled

	logger.Info("starting key rotation",
		slog.String("reason", reason),
		slog.Bool("backup_disabled", disableBackup),
	)

	output, err := useCase.Rotate(ctx, rotationUsecase.RotateInput{
		Reason:        reason,
		DisableBackup: disableBackup,
	})
	if err != nil {
		return fmt.Errorf("key rotation failed: %w", err)
	}

	if format == "json" {
		return outputRotateJSON(writer, output)
	}
	outputRotateText(writer, output)
	return nil
}

// outputRotateText outputs the result in human-readable text format.
func outputRotateText(writer io.Writer, output *rotationUsecase.RotateOutput) {
	record := output.Record

	_, _ = fmt.Fprintln(writer, "# Key Rotation Completed")
	_, _ = fmt.Fprintf(writer, "# Rotation ID:         %s\n", record.ID)
	if record.OldKeyFingerprint != "" {
		_, _ = fmt.Fprintf(writer, "# Old key fingerprint: %s\n",
			cryptoDomain.TruncateFingerprint(record.OldKeyFingerprint))
	}
	_, _ = fmt.Fprintf(writer, "# New key fingerprint: %s\n",
		cryptoDomain.TruncateFingerprint(record.NewKeyFingerprint))
	if record.BackupPath != "" {
		_, _ = fmt.Fprintf(writer, "# Backup:              %s\n", record.BackupPath)
	}
	if record.NextRotationDue != nil {
		_, _ = fmt.Fprintf(writer, "# Next rotation due:   %s\n", record.NextRotationDue.Format("2006-01-02"))
	}
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintln(writer, "# Install the new key; the old key no longer opens the artifact")
	_, _ = fmt.Fprintf(writer, "%s=\"%s\"\n", cryptoDomain.KeyEnvVar, output.NewKeyBase64)
}

// outputRotateJSON outputs the result in JSON format for machine consumption.
func outputRotateJSON(writer io.Writer, output *rotationUsecase.RotateOutput) error {
	record := output.Record

	result := map[string]any{
		"rotation_id":         record.ID,
		"status":              record.Status,
		"old_key_fingerprint": record.OldKeyFingerprint,
		"new_key_fingerprint": record.NewKeyFingerprint,
		"backup_path":         record.BackupPath,
		"reencrypted_paths":   record.ReencryptedPaths,
		"next_rotation_due":   record.NextRotationDue,
		"new_key":             output.NewKeyBase64,
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	_, _ = fmt.Fprintln(writer, string(jsonBytes))
	return nil
}
