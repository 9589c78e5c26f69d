package domain

import (
	"github.com/allisson/configvault/internal/errors"
)

// Rotation protocol error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors.
// The rotation protocol never retries automatically: a failed attempt is
// rolled back, recorded, and surfaced to the operator.
var (
	// ErrKeyRotation indicates the rotation protocol failed: the verification
	// step did not pass or an I/O step failed. Always accompanied by a
	// rollback attempt and a failed RotationRecord; the old key remains valid.
	ErrKeyRotation = errors.New("key rotation failed")

	// ErrInvalidStatusTransition indicates an attempt to move a RotationRecord
	// against its one-way state machine (e.g., resurrecting a failed record).
	ErrInvalidStatusTransition = errors.Wrap(errors.ErrConflict, "invalid rotation status transition")

	// ErrRecordNotFound indicates the requested rotation record does not exist
	// in the audit store.
	ErrRecordNotFound = errors.Wrap(errors.ErrNotFound, "rotation record")

	// ErrRotationInProgress indicates another rotation holds the artifact lock.
	// Concurrent rotations against the same artifact are refused, not queued.
	ErrRotationInProgress = errors.Wrap(errors.ErrConflict, "another rotation is in progress")
)
