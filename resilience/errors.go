package resilience

import "errors"

// Sentinel causes carried inside classified errors.
var (
	// ErrCircuitOpen is the cause of the ServiceUnavailable error returned
	// while a circuit breaker is failing fast.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrTimeout is the cause of the Network error returned when an attempt
	// exceeds its timeout.
	ErrTimeout = errors.New("resilience: operation timed out")
)
