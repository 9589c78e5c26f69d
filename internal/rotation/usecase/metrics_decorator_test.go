package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/configvault/internal/metrics"
	rotationDomain "github.com/allisson/configvault/internal/rotation/domain"
)

// stubRotationUseCase returns canned values so the decorator's pass-through
// behavior can be asserted.
type stubRotationUseCase struct {
	output  *RotateOutput
	status  *RotationStatus
	records []*rotationDomain.RotationRecord
	err     error
}

func (s *stubRotationUseCase) Rotate(context.Context, RotateInput) (*RotateOutput, error) {
	return s.output, s.err
}

func (s *stubRotationUseCase) Status(context.Context) (*RotationStatus, error) {
	return s.status, s.err
}

func (s *stubRotationUseCase) List(
	context.Context,
	rotationDomain.Status,
	int, int,
) ([]*rotationDomain.RotationRecord, error) {
	return s.records, s.err
}

func TestKeyRotationUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()

	provider, err := metrics.NewProvider("configvault")
	require.NoError(t, err)
	operationMetrics, err := metrics.NewOperationMetrics(provider.MeterProvider(), "configvault")
	require.NoError(t, err)

	t.Run("Rotate_PassesThroughResult", func(t *testing.T) {
		record := rotationDomain.NewRotationRecord("test")
		stub := &stubRotationUseCase{output: &RotateOutput{Record: record, NewKeyBase64: "key"}}

		uc := NewKeyRotationUseCaseWithMetrics(stub, operationMetrics)
		output, err := uc.Rotate(ctx, RotateInput{Reason: "test"})
		require.NoError(t, err)
		assert.Equal(t, record, output.Record)
		assert.Equal(t, "key", output.NewKeyBase64)
	})

	t.Run("Rotate_PassesThroughError", func(t *testing.T) {
		stub := &stubRotationUseCase{err: rotationDomain.ErrKeyRotation}

		uc := NewKeyRotationUseCaseWithMetrics(stub, metrics.NewNoOpOperationMetrics())
		_, err := uc.Rotate(ctx, RotateInput{})
		assert.ErrorIs(t, err, rotationDomain.ErrKeyRotation)
	})

	t.Run("Status_PassesThrough", func(t *testing.T) {
		stub := &stubRotationUseCase{status: &RotationStatus{Overdue: true}}

		uc := NewKeyRotationUseCaseWithMetrics(stub, operationMetrics)
		status, err := uc.Status(ctx)
		require.NoError(t, err)
		assert.True(t, status.Overdue)
	})

	t.Run("List_PassesThrough", func(t *testing.T) {
		records := []*rotationDomain.RotationRecord{rotationDomain.NewRotationRecord("test")}
		stub := &stubRotationUseCase{records: records}

		uc := NewKeyRotationUseCaseWithMetrics(stub, operationMetrics)
		got, err := uc.List(ctx, "", 0, 10)
		require.NoError(t, err)
		assert.Equal(t, records, got)
	})
}
