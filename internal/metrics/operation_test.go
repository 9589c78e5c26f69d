package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOperationMetrics(t *testing.T) {
	provider, err := NewProvider("configvault")
	require.NoError(t, err)

	m, err := NewOperationMetrics(provider.MeterProvider(), "configvault")
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestOperationMetrics_Record(t *testing.T) {
	provider, err := NewProvider("configvault")
	require.NoError(t, err)

	m, err := NewOperationMetrics(provider.MeterProvider(), "configvault")
	require.NoError(t, err)

	ctx := context.Background()

	// Recording must not panic for any status.
	m.RecordOperation(ctx, "rotation", "rotate_key", "success")
	m.RecordOperation(ctx, "rotation", "rotate_key", "error")
	m.RecordDuration(ctx, "crypto", "artifact_encrypt", 25*time.Millisecond, "success")
}

func TestNoOpOperationMetrics(t *testing.T) {
	m := NewNoOpOperationMetrics()

	ctx := context.Background()
	m.RecordOperation(ctx, "rotation", "rotate_key", "success")
	m.RecordDuration(ctx, "rotation", "rotate_key", time.Second, "success")
}
