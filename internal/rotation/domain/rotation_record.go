// Package domain defines the rotation audit-trail model.
//
// A RotationRecord is created per rotation attempt and walks a one-way state
// machine: initiated -> in_progress -> completed or failed. Terminal states
// are final; a retry after a failure creates a brand-new record rather than
// resurrecting the old one.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	appvalidation "github.com/allisson/configvault/internal/validation"
)

// Status represents the lifecycle state of a rotation attempt.
type Status string

const (
	// StatusInitiated is the creation state, set before any cryptographic
	// work begins so a crash still leaves an auditable "attempted" trace.
	StatusInitiated Status = "initiated"

	// StatusInProgress is entered once the old-key fingerprint is recorded
	// and new-key generation begins.
	StatusInProgress Status = "in_progress"

	// StatusCompleted marks a verified, committed rotation. Terminal.
	StatusCompleted Status = "completed"

	// StatusFailed marks a rolled-back rotation. Terminal.
	StatusFailed Status = "failed"
)

// DefaultRotationInterval is the quarterly cadence used to compute
// NextRotationDue from a completed rotation's timestamp.
const DefaultRotationInterval = 90 * 24 * time.Hour

// allowedTransitions encodes the monotonic state machine. Absent entries
// are invalid; terminal states have no outgoing transitions.
var allowedTransitions = map[Status][]Status{
	StatusInitiated:  {StatusInProgress, StatusFailed},
	StatusInProgress: {StatusCompleted, StatusFailed},
}

// RotationRecord is one entry in the rotation audit trail.
//
// The orchestrator exclusively creates and mutates a record during a single
// rotation invocation; after the terminal transition the record is immutable
// history owned by the audit store. Key material never appears here, only
// fingerprints.
type RotationRecord struct {
	ID                 uuid.UUID
	Status             Status
	OldKeyFingerprint  string
	NewKeyFingerprint  string
	Reason             string
	ReencryptedPaths   []string
	BackupPath         string
	VerificationPassed bool
	VerificationDetail map[string]any
	ErrorMessage       string
	CreatedAt          time.Time
	CompletedAt        *time.Time
	NextRotationDue    *time.Time
}

// NewRotationRecord creates a record in the initiated state.
func NewRotationRecord(reason string) *RotationRecord {
	return &RotationRecord{
		ID:        uuid.Must(uuid.NewV7()),
		Status:    StatusInitiated,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}
}

// transition moves the record to a new status, enforcing the one-way state
// machine. Returns ErrInvalidStatusTransition for any disallowed move,
// including any attempt to leave a terminal state.
func (r *RotationRecord) transition(to Status) error {
	for _, allowed := range allowedTransitions[r.Status] {
		if allowed == to {
			r.Status = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, r.Status, to)
}

// Begin records both key fingerprints and moves the record to in_progress.
func (r *RotationRecord) Begin(oldFingerprint, newFingerprint string) error {
	if err := r.transition(StatusInProgress); err != nil {
		return err
	}
	r.OldKeyFingerprint = oldFingerprint
	r.NewKeyFingerprint = newFingerprint
	return nil
}

// Complete marks the rotation verified and committed. CompletedAt is set
// exactly once, on this terminal transition, and NextRotationDue is derived
// from it using the provided interval.
func (r *RotationRecord) Complete(now time.Time, interval time.Duration) error {
	if err := r.transition(StatusCompleted); err != nil {
		return err
	}
	completed := now.UTC()
	due := completed.Add(interval)
	r.CompletedAt = &completed
	r.NextRotationDue = &due
	r.VerificationPassed = true
	return nil
}

// Fail marks the rotation rolled back with an explanatory message.
// Valid from both initiated and in_progress. CompletedAt is set exactly
// once, on this terminal transition.
func (r *RotationRecord) Fail(now time.Time, message string) error {
	if err := r.transition(StatusFailed); err != nil {
		return err
	}
	completed := now.UTC()
	r.CompletedAt = &completed
	r.ErrorMessage = message
	return nil
}

// Terminal reports whether the record reached a final state.
func (r *RotationRecord) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// Overdue reports whether the quarterly rotation deadline has passed.
// Only a completed record carries a meaningful NextRotationDue; records in
// any other state are never overdue.
func (r *RotationRecord) Overdue(now time.Time) bool {
	if r.Status != StatusCompleted || r.NextRotationDue == nil {
		return false
	}
	return now.After(*r.NextRotationDue)
}

// Validate checks the record's field constraints.
func (r *RotationRecord) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.ID, validation.Required),
		validation.Field(&r.Status, validation.Required, validation.In(
			StatusInitiated, StatusInProgress, StatusCompleted, StatusFailed,
		)),
		validation.Field(&r.Reason, validation.Length(0, 500)),
		validation.Field(&r.OldKeyFingerprint, appvalidation.HexFingerprint),
		validation.Field(&r.NewKeyFingerprint, appvalidation.HexFingerprint),
		validation.Field(&r.CreatedAt, validation.Required),
	)
	return appvalidation.WrapValidationError(err)
}
