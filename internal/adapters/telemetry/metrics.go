package telemetry

import (
	"context"
	"strconv"
	"time"

	"github.com/carpoolnetwork/trust-service/internal/ports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/carpoolnetwork/trust-service"

// Metrics publishes scoring and request instruments through OpenTelemetry.
// Without a configured MeterProvider the global no-op provider swallows them.
type Metrics struct {
	scoreCalculations metric.Int64Counter
	scoreValue        metric.Int64Histogram
	scoreLatency      metric.Float64Histogram
	fetchFailures     metric.Int64Counter
	scorePersisted    metric.Int64Counter
	requestCount      metric.Int64Counter
	requestDuration   metric.Float64Histogram
}

func NewMetrics() (*Metrics, error) {
	return NewMetricsWithMeter(otel.Meter(instrumentationName))
}

func NewMetricsWithMeter(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error
	if m.scoreCalculations, err = meter.Int64Counter(
		"trust.score.calculations",
		metric.WithDescription("Number of trust score calculations"),
	); err != nil {
		return nil, err
	}
	if m.scoreValue, err = meter.Int64Histogram(
		"trust.score.value",
		metric.WithDescription("Distribution of calculated trust scores"),
		metric.WithExplicitBucketBoundaries(0, 20, 40, 60, 80, 100),
	); err != nil {
		return nil, err
	}
	if m.scoreLatency, err = meter.Float64Histogram(
		"trust.score.duration",
		metric.WithDescription("Trust score calculation latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.fetchFailures, err = meter.Int64Counter(
		"trust.fact.fetch_failures",
		metric.WithDescription("Number of failed trust fact lookups"),
	); err != nil {
		return nil, err
	}
	if m.scorePersisted, err = meter.Int64Counter(
		"trust.score.persisted",
		metric.WithDescription("Number of trust scores written to storage"),
	); err != nil {
		return nil, err
	}
	if m.requestCount, err = meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Number of HTTP requests"),
	); err != nil {
		return nil, err
	}
	if m.requestDuration, err = meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) RecordTrustScore(ctx context.Context, total int, incomplete bool, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.Bool("incomplete", incomplete))
	m.scoreCalculations.Add(ctx, 1, attrs)
	m.scoreValue.Record(ctx, int64(total), attrs)
	m.scoreLatency.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}

func (m *Metrics) RecordFetchFailure(ctx context.Context, source string) {
	m.fetchFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

func (m *Metrics) RecordScorePersisted(ctx context.Context) {
	m.scorePersisted.Add(ctx, 1)
}

// RecordRequest is called by the HTTP middleware with the matched route
// pattern, not the raw path.
func (m *Metrics) RecordRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.String("http.status_code", strconv.Itoa(status)),
	)
	m.requestCount.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}

var _ ports.Metrics = (*Metrics)(nil)
