package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// StatusSource supplies the values the observable gauges sample on demand.
// The manager implements this so metrics stay a pure reader of its state.
type StatusSource interface {
	CurrentKeyVersion() int64
	KeyAgeSeconds() float64
}

// KeyManagerMetrics records rotation counts/durations and exposes the
// current key version and age as observable gauges.
type KeyManagerMetrics interface {
	// RecordRotation increments rotations_total, labeled by reason and
	// status ("success"/"error").
	RecordRotation(ctx context.Context, reason, status string)

	// RecordRotationDuration records how long a rotation attempt took.
	RecordRotationDuration(ctx context.Context, seconds float64, status string)

	// Bind attaches source as the sampling target for the
	// current_key_version/key_age_seconds gauges. Call after the manager
	// that implements StatusSource is constructed; a later call replaces
	// the previously bound source.
	Bind(source StatusSource) error
}

type keyManagerMetrics struct {
	meter metric.Meter

	rotationsTotal   metric.Int64Counter
	rotationDuration metric.Float64Histogram

	versionGauge metric.Int64ObservableGauge
	ageGauge     metric.Float64ObservableGauge

	registration metric.Registration
}

// NewKeyManagerMetrics creates a KeyManagerMetrics implementation using the
// provided meter provider. namespace prefixes every metric name.
func NewKeyManagerMetrics(meterProvider metric.MeterProvider, namespace string) (KeyManagerMetrics, error) {
	meter := meterProvider.Meter(namespace)

	rotationsTotal, err := meter.Int64Counter(
		fmt.Sprintf("%s_rotations_total", namespace),
		metric.WithDescription("Total number of key rotation attempts"),
		metric.WithUnit("{rotation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rotations counter: %w", err)
	}

	rotationDuration, err := meter.Float64Histogram(
		fmt.Sprintf("%s_rotation_duration_seconds", namespace),
		metric.WithDescription("Duration of key rotation attempts in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rotation duration histogram: %w", err)
	}

	versionGauge, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_current_key_version", namespace),
		metric.WithDescription("Version number of the current key pair"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create current key version gauge: %w", err)
	}

	ageGauge, err := meter.Float64ObservableGauge(
		fmt.Sprintf("%s_key_age_seconds", namespace),
		metric.WithDescription("Age of the current key pair in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create key age gauge: %w", err)
	}

	return &keyManagerMetrics{
		meter:            meter,
		rotationsTotal:   rotationsTotal,
		rotationDuration: rotationDuration,
		versionGauge:     versionGauge,
		ageGauge:         ageGauge,
	}, nil
}

func (m *keyManagerMetrics) RecordRotation(ctx context.Context, reason, status string) {
	m.rotationsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("reason", reason),
			attribute.String("status", status),
		),
	)
}

func (m *keyManagerMetrics) RecordRotationDuration(ctx context.Context, seconds float64, status string) {
	m.rotationDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

func (m *keyManagerMetrics) Bind(source StatusSource) error {
	if m.registration != nil {
		if err := m.registration.Unregister(); err != nil {
			return fmt.Errorf("failed to unbind previous status source: %w", err)
		}
	}

	reg, err := m.meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(m.versionGauge, source.CurrentKeyVersion())
			o.ObserveFloat64(m.ageGauge, source.KeyAgeSeconds())
			return nil
		},
		m.versionGauge, m.ageGauge,
	)
	if err != nil {
		return fmt.Errorf("failed to register status callback: %w", err)
	}
	m.registration = reg
	return nil
}

// NoOpKeyManagerMetrics is a no-op implementation for when metrics are disabled.
type NoOpKeyManagerMetrics struct{}

// NewNoOpKeyManagerMetrics creates a no-op KeyManagerMetrics implementation.
func NewNoOpKeyManagerMetrics() KeyManagerMetrics {
	return &NoOpKeyManagerMetrics{}
}

func (n *NoOpKeyManagerMetrics) RecordRotation(ctx context.Context, reason, status string)            {}
func (n *NoOpKeyManagerMetrics) RecordRotationDuration(ctx context.Context, seconds float64, status string) {}
func (n *NoOpKeyManagerMetrics) Bind(source StatusSource) error                                        { return nil }
