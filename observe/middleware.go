package observe

import (
	"context"
	"time"

	"github.com/jonwraymond/vmcatalog/apierr"
)

// OperationFunc is a single observed operation.
type OperationFunc func(ctx context.Context) error

// Middleware wraps an operation with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: the span context is passed to the wrapped function.
//   - Errors: errors from the wrapped function are recorded and propagated unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware. Nil components are replaced with
// no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// NopMiddleware returns a Middleware that only runs the operation.
func NopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// Run executes fn inside a span, records its metrics and logs the outcome.
func (m *Middleware) Run(ctx context.Context, meta OperationMeta, fn OperationFunc) error {
	ctx, span := m.tracer.StartSpan(ctx, meta)
	start := time.Now()

	err := fn(ctx)

	duration := time.Since(start)
	m.tracer.EndSpan(span, err)
	m.metrics.RecordRequest(ctx, meta, duration, err)

	logger := m.logger.With(meta)
	fields := []Field{
		{Key: "duration_ms", Value: float64(duration.Milliseconds())},
	}

	if err != nil {
		if e, ok := apierr.As(err); ok {
			fields = append(fields, Field{Key: "error.kind", Value: e.Kind.String()})
		}
		fields = append(fields, Field{Key: "error", Value: err.Error()})
		logger.Error(ctx, "arm operation failed", fields...)
	} else {
		logger.Debug(ctx, "arm operation completed", fields...)
	}

	return err
}

// Wrap returns fn wrapped by Run.
func (m *Middleware) Wrap(meta OperationMeta, fn OperationFunc) OperationFunc {
	return func(ctx context.Context) error {
		return m.Run(ctx, meta, fn)
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
