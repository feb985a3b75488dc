// internal/billing/metrics.go
package billing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type batchMetrics struct {
	created  metric.Int64Counter
	failed   metric.Int64Counter
	duration metric.Float64Histogram
}

func newBatchMetrics(provider metric.MeterProvider) *batchMetrics {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter("clubledger/billing")

	m := &batchMetrics{}
	// Instrument creation only fails on invalid names; fall back to no recording.
	m.created, _ = meter.Int64Counter("billing.invoices.created")
	m.failed, _ = meter.Int64Counter("billing.invoices.failed")
	m.duration, _ = meter.Float64Histogram("billing.batch.duration_ms")
	return m
}

func (m *batchMetrics) record(ctx context.Context, period string, s *CommitSummary, took time.Duration) {
	attrs := metric.WithAttributes(attribute.String("period", period))
	if m.created != nil {
		m.created.Add(ctx, int64(len(s.Succeeded)), attrs)
	}
	if m.failed != nil {
		m.failed.Add(ctx, int64(len(s.Failed)), attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, float64(took.Milliseconds()), attrs)
	}
}
