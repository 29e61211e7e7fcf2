package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/transcriptcheck/logger"
)

const meterName = "github.com/kbukum/transcriptcheck"

// InitMeter installs a periodic OTLP/HTTP MeterProvider as the global
// provider, exporting to the same collector as the tracer. The returned
// provider must be shut down on exit. A disabled config returns (nil, nil).
func InitMeter(ctx context.Context, cfg Config, res Resource) (*sdkmetric.MeterProvider, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	cfg.ApplyDefaults()

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	r, err := newResource(res)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.MetricInterval))),
		sdkmetric.WithResource(r),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", res.ServiceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.MetricInterval.String(),
	))
	return mp, nil
}

// Meter returns the transcriptcheck meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(meterName)
}

// AuditMetrics holds the instruments recorded once per finished audit.
type AuditMetrics struct {
	verdicts metric.Int64Counter
	score    metric.Float64Histogram
	duration metric.Float64Histogram
}

// NewAuditMetrics creates the audit instruments on meter.
func NewAuditMetrics(meter metric.Meter) (*AuditMetrics, error) {
	verdicts, err := meter.Int64Counter("audit.verdicts",
		metric.WithDescription("Finished audits by verdict status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating audit.verdicts counter: %w", err)
	}

	score, err := meter.Float64Histogram("audit.score",
		metric.WithDescription("Transcript score of scored audits"),
		metric.WithExplicitBucketBoundaries(0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1),
	)
	if err != nil {
		return nil, fmt.Errorf("creating audit.score histogram: %w", err)
	}

	duration, err := meter.Float64Histogram("audit.duration",
		metric.WithDescription("Wall time of an audit in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating audit.duration histogram: %w", err)
	}

	return &AuditMetrics{verdicts: verdicts, score: score, duration: duration}, nil
}

// RecordAudit counts one finished audit. status is empty for audits that
// failed without a verdict; errCode is empty on success. The score is
// recorded only when scored is true.
func (m *AuditMetrics) RecordAudit(ctx context.Context, status, errCode string, score float64, scored bool, d time.Duration) {
	if status == "" {
		status = "failed"
	}
	attrs := []attribute.KeyValue{attribute.String(AttrStatus, status)}
	if errCode != "" {
		attrs = append(attrs, attribute.String("error.code", errCode))
	}
	m.verdicts.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(AttrStatus, status)))
	if scored {
		m.score.Record(ctx, score)
	}
}
