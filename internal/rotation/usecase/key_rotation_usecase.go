package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofrs/flock"
	validation "github.com/jellydator/validation"

	cryptoDomain "github.com/allisson/configvault/internal/crypto/domain"
	cryptoService "github.com/allisson/configvault/internal/crypto/service"
	"github.com/allisson/configvault/internal/envfile"
	apperrors "github.com/allisson/configvault/internal/errors"
	rotationDomain "github.com/allisson/configvault/internal/rotation/domain"
	appvalidation "github.com/allisson/configvault/internal/validation"
)

// backupTimestampLayout names backups by rotation time so multiple backups
// of the same artifact can coexist.
const backupTimestampLayout = "20060102T150405Z"

// keyRotationUseCase implements the KeyRotationUseCase interface.
type keyRotationUseCase struct {
	recordRepo   RotationRecordRepository
	cipher       cryptoService.Cipher
	artifactPath string
	algorithm    cryptoDomain.Algorithm
	interval     time.Duration
	logger       *slog.Logger
}

// Rotate runs the rotation protocol end to end.
//
// The audit record is persisted in the initiated state before any
// cryptographic work, so even a crash leaves an "attempted" trace. An
// advisory file lock on <artifact>.lock serializes rotations against the
// same artifact; a held lock refuses the rotation instead of queueing it.
func (k *keyRotationUseCase) Rotate(ctx context.Context, input RotateInput) (*RotateOutput, error) {
	if err := validation.Validate(input.Reason, appvalidation.NotBlank); err != nil {
		return nil, appvalidation.WrapValidationError(err)
	}

	record := rotationDomain.NewRotationRecord(input.Reason)
	if err := record.Validate(); err != nil {
		return nil, err
	}
	if err := k.recordRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	lock := flock.New(k.artifactPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, k.fail(ctx, record, "", apperrors.Wrap(err, "failed to acquire rotation lock"))
	}
	if !locked {
		return nil, k.fail(ctx, record, "", rotationDomain.ErrRotationInProgress)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	encryptedPath := envfile.EncryptedPath(k.artifactPath)

	// Recover the plaintext bundle: decrypt the encrypted artifact with the
	// current key, or read the plaintext artifact on the very first rotation.
	plaintext, oldFingerprint, encryptedExists, err := k.loadPlaintext(encryptedPath)
	if err != nil {
		return nil, k.fail(ctx, record, "", err)
	}
	defer cryptoDomain.Zero(plaintext)

	newKey, err := cryptoDomain.GenerateMasterKey()
	if err != nil {
		return nil, k.fail(ctx, record, "", err)
	}
	defer newKey.Close()

	if err := record.Begin(oldFingerprint, newKey.Fingerprint()); err != nil {
		return nil, k.fail(ctx, record, "", err)
	}
	if err := record.Validate(); err != nil {
		return nil, k.fail(ctx, record, "", err)
	}
	if err := k.recordRepo.Update(ctx, record); err != nil {
		return nil, k.fail(ctx, record, "", err)
	}

	// Move the current encrypted artifact aside. A rename keeps the backup
	// on the same filesystem so rollback is a rename too.
	var backupPath string
	if encryptedExists && !input.DisableBackup {
		backupPath = fmt.Sprintf("%s.backup.%s", encryptedPath, time.Now().UTC().Format(backupTimestampLayout))
		if err := os.Rename(encryptedPath, backupPath); err != nil {
			return nil, k.fail(ctx, record, "", apperrors.Wrap(err, "failed to back up encrypted artifact"))
		}
		record.BackupPath = backupPath
	}

	blob, err := k.cipher.Encrypt(plaintext, newKey, k.algorithm)
	if err != nil {
		return nil, k.fail(ctx, record, backupPath, err)
	}

	if err := writeFileAtomic(encryptedPath, blob); err != nil {
		return nil, k.fail(ctx, record, backupPath, err)
	}

	// Verify by reading back what was committed to disk, not the in-memory
	// blob: a torn or failed write must surface here.
	if err := k.verify(encryptedPath, newKey, plaintext, record); err != nil {
		return nil, k.fail(ctx, record, backupPath, err)
	}

	record.ReencryptedPaths = []string{encryptedPath}
	if err := record.Complete(time.Now(), k.interval); err != nil {
		return nil, k.fail(ctx, record, backupPath, err)
	}
	if err := k.recordRepo.Update(ctx, record); err != nil {
		// The artifact would be unreadable without the new key nobody has
		// seen yet, so an unpersistable completion rolls the artifact back.
		// The completed transition was never stored; revert it in memory so
		// the record can take the failed transition instead.
		record.Status = rotationDomain.StatusInProgress
		record.CompletedAt = nil
		record.NextRotationDue = nil
		record.VerificationPassed = false
		return nil, k.fail(ctx, record, backupPath, apperrors.Wrap(err, "failed to persist completed rotation"))
	}

	k.logger.Info("key rotation completed",
		slog.String("rotation_id", record.ID.String()),
		slog.String("old_key_fingerprint", cryptoDomain.TruncateFingerprint(oldFingerprint)),
		slog.String("new_key_fingerprint", cryptoDomain.TruncateFingerprint(record.NewKeyFingerprint)),
		slog.String("artifact", encryptedPath))

	return &RotateOutput{
		Record:       record,
		NewKeyBase64: newKey.Encode(),
	}, nil
}

// loadPlaintext recovers the configuration bundle to re-encrypt. When the
// encrypted artifact exists the current key from the environment decrypts
// it; otherwise this is the first rotation and the plaintext artifact is
// read directly, with no old-key fingerprint to record.
func (k *keyRotationUseCase) loadPlaintext(encryptedPath string) (plaintext []byte, oldFingerprint string, encryptedExists bool, err error) {
	_, statErr := os.Stat(encryptedPath)
	switch {
	case statErr == nil:
		oldKey, err := cryptoDomain.LoadMasterKeyFromEnv()
		if err != nil {
			return nil, "", true, err
		}
		defer oldKey.Close()

		blob, err := envfile.ReadEncrypted(encryptedPath)
		if err != nil {
			return nil, "", true, err
		}
		plaintext, err = k.cipher.Decrypt(blob, oldKey)
		if err != nil {
			return nil, "", true, apperrors.Wrap(err, "failed to decrypt artifact with current key")
		}
		return plaintext, oldKey.Fingerprint(), true, nil

	case os.IsNotExist(statErr):
		plaintext, err = os.ReadFile(k.artifactPath)
		if err != nil {
			return nil, "", false, apperrors.Wrap(err, "failed to read plaintext artifact")
		}
		return plaintext, "", false, nil

	default:
		return nil, "", false, apperrors.Wrap(statErr, "failed to stat encrypted artifact")
	}
}

// verify decrypts the committed artifact with the new key and compares the
// result byte for byte against the original plaintext, recording the
// evidence on the audit record.
func (k *keyRotationUseCase) verify(
	encryptedPath string,
	newKey *cryptoDomain.MasterKey,
	plaintext []byte,
	record *rotationDomain.RotationRecord,
) error {
	written, err := envfile.ReadEncrypted(encryptedPath)
	if err != nil {
		return err
	}

	roundTrip, err := k.cipher.Decrypt(written, newKey)
	if err != nil {
		return apperrors.Wrap(err, "verification decrypt failed")
	}
	defer cryptoDomain.Zero(roundTrip)

	if !bytes.Equal(roundTrip, plaintext) {
		return apperrors.New("verification mismatch: decrypted artifact differs from original")
	}

	detail := map[string]any{
		"algorithm":  string(k.algorithm),
		"blob_bytes": len(written),
	}
	if values, err := envfile.Parse(roundTrip); err == nil {
		detail["entries"] = len(values)
	}
	record.VerificationDetail = detail

	return nil
}

// fail rolls the artifact back from its backup when one was taken, moves
// the record to the failed state, and persists it. The returned error
// always matches rotationDomain.ErrKeyRotation.
func (k *keyRotationUseCase) fail(
	ctx context.Context,
	record *rotationDomain.RotationRecord,
	backupPath string,
	cause error,
) error {
	encryptedPath := envfile.EncryptedPath(k.artifactPath)

	if backupPath != "" {
		if err := os.Rename(backupPath, encryptedPath); err != nil {
			k.logger.Error("rotation rollback failed, encrypted artifact left in backup",
				slog.String("rotation_id", record.ID.String()),
				slog.String("backup_path", backupPath),
				slog.String("error", err.Error()))
		}
	}

	if err := record.Fail(time.Now(), cause.Error()); err != nil {
		k.logger.Error("failed to mark rotation record as failed",
			slog.String("rotation_id", record.ID.String()),
			slog.String("error", err.Error()))
	}
	if err := k.recordRepo.Update(ctx, record); err != nil {
		k.logger.Error("failed to persist rotation failure",
			slog.String("rotation_id", record.ID.String()),
			slog.String("error", err.Error()))
	}

	k.logger.Error("key rotation failed",
		slog.String("rotation_id", record.ID.String()),
		slog.String("error", cause.Error()))

	return fmt.Errorf("%w: %w", rotationDomain.ErrKeyRotation, cause)
}

// Status reports the latest completed rotation and the quarterly deadline.
func (k *keyRotationUseCase) Status(ctx context.Context) (*RotationStatus, error) {
	latest, err := k.recordRepo.LatestCompleted(ctx)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			// No rotation ever completed; nothing to be overdue against.
			return &RotationStatus{}, nil
		}
		return nil, err
	}

	return &RotationStatus{
		Latest:          latest,
		NextRotationDue: latest.NextRotationDue,
		Overdue:         latest.Overdue(time.Now().UTC()),
	}, nil
}

// List returns audit records newest first, optionally filtered by status.
func (k *keyRotationUseCase) List(
	ctx context.Context,
	status rotationDomain.Status,
	offset, limit int,
) ([]*rotationDomain.RotationRecord, error) {
	return k.recordRepo.List(ctx, status, offset, limit)
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers never observe a partially written artifact.
func writeFileAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return apperrors.Wrap(err, "failed to write encrypted artifact")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return apperrors.Wrap(err, "failed to commit encrypted artifact")
	}
	return nil
}

// NewKeyRotationUseCase creates a new key rotation use case instance with
// the provided dependencies.
func NewKeyRotationUseCase(
	recordRepo RotationRecordRepository,
	cipher cryptoService.Cipher,
	artifactPath string,
	algorithm cryptoDomain.Algorithm,
	interval time.Duration,
	logger *slog.Logger,
) KeyRotationUseCase {
	return &keyRotationUseCase{
		recordRepo:   recordRepo,
		cipher:       cipher,
		artifactPath: artifactPath,
		algorithm:    algorithm,
		interval:     interval,
		logger:       logger,
	}
}
