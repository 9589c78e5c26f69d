// Package usecase defines the interfaces and implementation for the key
// rotation protocol. The use case orchestrates repositories, the artifact
// cipher, and filesystem steps to rotate the master encryption key while
// keeping an auditable trail of every attempt.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	rotationDomain "github.com/allisson/configvault/internal/rotation/domain"
)

// RotationRecordRepository defines the interface for rotation audit-trail
// persistence operations.
type RotationRecordRepository interface {
	Create(ctx context.Context, record *rotationDomain.RotationRecord) error
	Update(ctx context.Context, record *rotationDomain.RotationRecord) error
	Get(ctx context.Context, id uuid.UUID) (*rotationDomain.RotationRecord, error)
	List(ctx context.Context, status rotationDomain.Status, offset, limit int) ([]*rotationDomain.RotationRecord, error)
	LatestCompleted(ctx context.Context) (*rotationDomain.RotationRecord, error)
}

// RotateInput carries per-invocation rotation parameters.
type RotateInput struct {
	// Reason is recorded on the audit record ("quarterly rotation",
	// "suspected key exposure", ...).
	Reason string

	// DisableBackup skips the pre-rotation backup of the encrypted artifact.
	// Without a backup a failed rotation cannot be rolled back automatically.
	DisableBackup bool
}

// RotateOutput is the result of a committed rotation.
type RotateOutput struct {
	// Record is the completed audit record.
	Record *rotationDomain.RotationRecord

	// NewKeyBase64 is the freshly generated master key, base64-encoded for
	// the operator to install. It is the only copy; the in-memory key
	// material is zeroed before Rotate returns.
	NewKeyBase64 string
}

// RotationStatus summarizes the rotation posture of the store.
type RotationStatus struct {
	// Latest is the most recently completed rotation, nil when no rotation
	// has ever completed.
	Latest *rotationDomain.RotationRecord

	// NextRotationDue is the quarterly deadline derived from the latest
	// completed rotation, nil when Latest is nil.
	NextRotationDue *time.Time

	// Overdue reports whether the deadline has passed.
	Overdue bool
}

// KeyRotationUseCase defines the interface for the rotation protocol.
type KeyRotationUseCase interface {
	// Rotate runs the full protocol against the configured artifact:
	// backup, decrypt with the old key, re-encrypt with a new key, verify,
	// then commit. Any failure rolls the artifact back to its pre-rotation
	// state and returns an error matching rotationDomain.ErrKeyRotation;
	// the outcome either way is persisted as a RotationRecord.
	Rotate(ctx context.Context, input RotateInput) (*RotateOutput, error)

	// Status reports the latest completed rotation and whether the
	// quarterly deadline has passed.
	Status(ctx context.Context) (*RotationStatus, error)

	// List returns audit records newest first, optionally filtered by
	// status. An empty status returns all records.
	List(ctx context.Context, status rotationDomain.Status, offset, limit int) ([]*rotationDomain.RotationRecord, error)
}
