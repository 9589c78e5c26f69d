package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OperationMetrics defines the interface for recording operation metrics.
// Implementations track operation counts and durations per domain
// ("crypto", "rotation") and operation ("artifact_encrypt", "rotate_key").
type OperationMetrics interface {
	// RecordOperation records an operation with its status ("success", "error").
	RecordOperation(ctx context.Context, domain, operation, status string)

	// RecordDuration records the duration of an operation with its status.
	// Duration is recorded in seconds as a histogram for percentile calculations.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)
}

// operationMetrics implements OperationMetrics using OpenTelemetry metrics.
type operationMetrics struct {
	operationCounter metric.Int64Counter
	durationHisto    metric.Float64Histogram
}

// NewOperationMetrics creates a new OperationMetrics implementation using the
// provided meter provider. The namespace prefixes all metric names.
func NewOperationMetrics(meterProvider metric.MeterProvider, namespace string) (OperationMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	return &operationMetrics{
		operationCounter: operationCounter,
		durationHisto:    durationHisto,
	}, nil
}

// RecordOperation increments the operation counter with domain, operation, and status labels.
func (o *operationMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	o.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

// RecordDuration records the operation duration in seconds with domain, operation, and status labels.
func (o *operationMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	o.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

// NoOpOperationMetrics is a no-op implementation for when metrics are disabled.
type NoOpOperationMetrics struct{}

// NewNoOpOperationMetrics creates a no-op OperationMetrics implementation.
func NewNoOpOperationMetrics() OperationMetrics {
	return &NoOpOperationMetrics{}
}

// RecordOperation does nothing when metrics are disabled.
func (n *NoOpOperationMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	// No-op
}

// RecordDuration does nothing when metrics are disabled.
func (n *NoOpOperationMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	// No-op
}
