package observability

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestAuditMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewAuditMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	m.RecordAudit(ctx, "valid", "", 0.9, true, 2*time.Second)
	m.RecordAudit(ctx, "valid", "", 0.8, true, time.Second)
	m.RecordAudit(ctx, "inconclusive", "TIMEOUT", 0, false, time.Minute)
	m.RecordAudit(ctx, "", "CONFIGURATION_ERROR", 0, false, 0)

	data := collect(t, reader)

	verdicts, ok := data["audit.verdicts"].(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("audit.verdicts = %T", data["audit.verdicts"])
	}
	counts := map[string]int64{}
	for _, dp := range verdicts.DataPoints {
		status, _ := dp.Attributes.Value(attribute.Key(AttrStatus))
		counts[status.AsString()] += dp.Value
	}
	if counts["valid"] != 2 || counts["inconclusive"] != 1 || counts["failed"] != 1 {
		t.Errorf("verdict counts = %v", counts)
	}

	score, ok := data["audit.score"].(metricdata.Histogram[float64])
	if !ok || len(score.DataPoints) != 1 || score.DataPoints[0].Count != 2 {
		t.Errorf("audit.score = %+v, want 2 scored audits", data["audit.score"])
	}

	duration, ok := data["audit.duration"].(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("audit.duration = %T", data["audit.duration"])
	}
	var n uint64
	for _, dp := range duration.DataPoints {
		n += dp.Count
	}
	if n != 4 {
		t.Errorf("audit.duration count = %d, want 4", n)
	}
}

func TestInitMeter_DisabledIsNoop(t *testing.T) {
	mp, err := InitMeter(context.Background(), Config{}, Resource{ServiceName: "transcriptcheck"})
	if err != nil || mp != nil {
		t.Errorf("expected (nil, nil), got (%v, %v)", mp, err)
	}
}

func TestMetricIntervalDefault(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.MetricInterval != 15*time.Second {
		t.Errorf("MetricInterval = %v", cfg.MetricInterval)
	}
}
