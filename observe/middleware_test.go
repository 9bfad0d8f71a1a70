package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/vmcatalog/apierr"
)

type testMiddleware struct {
	mw       *Middleware
	spans    *tracetest.SpanRecorder
	reader   *sdkmetric.ManualReader
	logBuf   *bytes.Buffer
	metadata OperationMeta
}

func newTestMiddleware(t *testing.T) testMiddleware {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	var buf bytes.Buffer
	return testMiddleware{
		mw:       NewMiddleware(NewTracer(tp.Tracer("test")), metrics, NewLoggerWithWriter("debug", &buf)),
		spans:    recorder,
		reader:   reader,
		logBuf:   &buf,
		metadata: OperationMeta{Service: "catalog", Operation: "publishers", SubscriptionID: "sub1"},
	}
}

func TestMiddleware_SuccessPath(t *testing.T) {
	tm := newTestMiddleware(t)

	var spanCtx trace.SpanContext
	err := tm.mw.Run(context.Background(), tm.metadata, func(ctx context.Context) error {
		spanCtx = trace.SpanContextFromContext(ctx)
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	spans := tm.spans.Ended()
	if len(spans) != 1 || spans[0].Name() != "arm.catalog.publishers" {
		t.Fatalf("unexpected spans: %v", spans)
	}
	if !spanCtx.IsValid() || spanCtx.SpanID() != spans[0].SpanContext().SpanID() {
		t.Error("wrapped function should run inside the operation span")
	}

	if findMetric(collect(t, tm.reader), "arm.request.total") == nil {
		t.Error("arm.request.total metric not found")
	}

	entries := decodeEntries(t, tm.logBuf)
	if len(entries) != 1 || entries[0]["level"] != "debug" {
		t.Fatalf("unexpected log entries: %v", entries)
	}
	if _, ok := entries[0]["duration_ms"]; !ok {
		t.Error("duration_ms should be logged")
	}
}

func TestMiddleware_ErrorPath(t *testing.T) {
	tm := newTestMiddleware(t)
	want := apierr.ClassifyHTTPStatus(503, "", "")

	err := tm.mw.Run(context.Background(), tm.metadata, func(ctx context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("Run() error = %v, want passthrough", err)
	}

	entries := decodeEntries(t, tm.logBuf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	e := entries[0]
	if e["level"] != "error" || e["error.kind"] != "service_unavailable" {
		t.Errorf("unexpected error entry: %v", e)
	}
	if findMetric(collect(t, tm.reader), "arm.request.errors") == nil {
		t.Error("arm.request.errors metric not found")
	}
}

func TestMiddleware_Wrap(t *testing.T) {
	tm := newTestMiddleware(t)

	calls := 0
	fn := tm.mw.Wrap(tm.metadata, func(ctx context.Context) error {
		calls++
		return nil
	})
	_ = fn(context.Background())
	_ = fn(context.Background())

	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(tm.spans.Ended()) != 2 {
		t.Errorf("spans = %d, want 2", len(tm.spans.Ended()))
	}
}

func TestNopMiddleware(t *testing.T) {
	mw := NopMiddleware()
	called := false
	err := mw.Run(context.Background(), OperationMeta{Operation: "x"}, func(ctx context.Context) error {
		called = true
		return nil
	})
	if err != nil || !called {
		t.Errorf("Run() = %v, called = %v", err, called)
	}
	if mw.Logger() == nil {
		t.Error("Logger() should not be nil")
	}
}

func TestMiddlewareFromObserver(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "vmcatalog"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}

	mw, err := MiddlewareFromObserver(obs)
	if err != nil {
		t.Fatalf("MiddlewareFromObserver() error = %v", err)
	}
	if err := mw.Run(context.Background(), OperationMeta{Operation: "x"}, func(context.Context) error { return nil }); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}
