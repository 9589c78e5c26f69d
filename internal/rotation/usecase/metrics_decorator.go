package usecase

import (
	"context"
	"time"

	"github.com/allisson/configvault/internal/metrics"
	rotationDomain "github.com/allisson/configvault/internal/rotation/domain"
)

// keyRotationUseCaseWithMetrics decorates KeyRotationUseCase with metrics
// instrumentation.
type keyRotationUseCaseWithMetrics struct {
	next    KeyRotationUseCase
	metrics metrics.OperationMetrics
}

// NewKeyRotationUseCaseWithMetrics wraps a KeyRotationUseCase with metrics recording.
func NewKeyRotationUseCaseWithMetrics(useCase KeyRotationUseCase, m metrics.OperationMetrics) KeyRotationUseCase {
	return &keyRotationUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Rotate records metrics for rotation attempts.
func (k *keyRotationUseCaseWithMetrics) Rotate(ctx context.Context, input RotateInput) (*RotateOutput, error) {
	start := time.Now()
	output, err := k.next.Rotate(ctx, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	k.metrics.RecordOperation(ctx, "rotation", "rotate_key", status)
	k.metrics.RecordDuration(ctx, "rotation", "rotate_key", time.Since(start), status)

	return output, err
}

// Status records metrics for rotation status queries.
func (k *keyRotationUseCaseWithMetrics) Status(ctx context.Context) (*RotationStatus, error) {
	start := time.Now()
	status, err := k.next.Status(ctx)

	result := "success"
	if err != nil {
		result = "error"
	}

	k.metrics.RecordOperation(ctx, "rotation", "rotation_status", result)
	k.metrics.RecordDuration(ctx, "rotation", "rotation_status", time.Since(start), result)

	return status, err
}

// List records metrics for audit-trail listings.
func (k *keyRotationUseCaseWithMetrics) List(
	ctx context.Context,
	status rotationDomain.Status,
	offset, limit int,
) ([]*rotationDomain.RotationRecord, error) {
	start := time.Now()
	records, err := k.next.List(ctx, status, offset, limit)

	result := "success"
	if err != nil {
		result = "error"
	}

	k.metrics.RecordOperation(ctx, "rotation", "rotation_list", result)
	k.metrics.RecordDuration(ctx, "rotation", "rotation_list", time.Since(start), result)

	return records, err
}
