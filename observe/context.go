package observe

import "context"

type contextKey int

const correlationIDKey contextKey = iota

// WithCorrelationID attaches a request correlation id to ctx. Loggers add it
// to every entry as correlation_id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID returns the correlation id attached to ctx, if any.
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}
