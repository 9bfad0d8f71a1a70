package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jonwraymond/vmcatalog/apierr"
)

func newTestMetrics(t *testing.T) (Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func TestMetrics_TotalCounterIncrements(t *testing.T) {
	m, reader := newTestMetrics(t)
	meta := OperationMeta{Service: "catalog", Operation: "publishers"}

	m.RecordRequest(context.Background(), meta, 100*time.Millisecond, nil)
	m.RecordRequest(context.Background(), meta, 50*time.Millisecond, nil)

	found := findMetric(collect(t, reader), "arm.request.total")
	if found == nil {
		t.Fatal("arm.request.total metric not found")
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", found.Data)
	}
	if len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 2 {
		t.Errorf("unexpected data points: %+v", sum.DataPoints)
	}

	op, ok := sum.DataPoints[0].Attributes.Value(attribute.Key("arm.operation"))
	if !ok || op.AsString() != "catalog.publishers" {
		t.Errorf("arm.operation attribute = %v", op.AsString())
	}
}

func TestMetrics_ErrorCounterOnSuccess(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordRequest(context.Background(), OperationMeta{Service: "catalog", Operation: "offers"}, time.Millisecond, nil)

	found := findMetric(collect(t, reader), "arm.request.errors")
	if found == nil {
		return
	}
	sum := found.Data.(metricdata.Sum[int64])
	for _, dp := range sum.DataPoints {
		if dp.Value != 0 {
			t.Errorf("errors counter = %d on success, want 0", dp.Value)
		}
	}
}

func TestMetrics_ErrorCounterCarriesKind(t *testing.T) {
	m, reader := newTestMetrics(t)
	meta := OperationMeta{Service: "catalog", Operation: "skus"}

	m.RecordRequest(context.Background(), meta, time.Millisecond, apierr.ClassifyHTTPStatus(429, "", "1"))
	m.RecordRequest(context.Background(), meta, time.Millisecond, errors.New("connection refused"))

	found := findMetric(collect(t, reader), "arm.request.errors")
	if found == nil {
		t.Fatal("arm.request.errors metric not found")
	}
	sum := found.Data.(metricdata.Sum[int64])

	kinds := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("error.kind"))
		kinds[v.AsString()] += dp.Value
	}
	if kinds["rate_limit"] != 1 || kinds["network"] != 1 {
		t.Errorf("error kinds = %v, want rate_limit:1 network:1", kinds)
	}
}

func TestMetrics_DurationHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordRequest(context.Background(), OperationMeta{Service: "catalog", Operation: "versions"}, 250*time.Millisecond, nil)

	found := findMetric(collect(t, reader), "arm.request.duration_ms")
	if found == nil {
		t.Fatal("arm.request.duration_ms metric not found")
	}
	hist, ok := found.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", found.Data)
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Sum != 250 {
		t.Errorf("unexpected histogram: %+v", hist.DataPoints)
	}
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}
