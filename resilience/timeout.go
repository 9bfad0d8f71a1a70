package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/vmcatalog/apierr"
)

// DefaultAttemptTimeout bounds an attempt when TimeoutConfig leaves it unset.
const DefaultAttemptTimeout = 30 * time.Second

// TimeoutConfig configures the timeout wrapper.
type TimeoutConfig struct {
	// Timeout is the maximum duration for a single attempt.
	// Default: DefaultAttemptTimeout
	Timeout time.Duration
}

// Timeout bounds a single attempt.
//
// The attempt runs on the caller's goroutine and must honor its context;
// HTTP requests do. An attempt that overruns its deadline is reported as a
// timeout even if it returned late with a result.
type Timeout struct {
	config TimeoutConfig
}

// NewTimeout creates a new timeout wrapper.
func NewTimeout(config TimeoutConfig) *Timeout {
	if config.Timeout <= 0 {
		config.Timeout = DefaultAttemptTimeout
	}
	return &Timeout{config: config}
}

// Execute runs op under the attempt deadline.
//
// Cancellation of ctx itself is returned as ctx.Err(). An expired attempt
// deadline yields a Network error wrapping ErrTimeout, which the retry
// engine treats as transient.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	err := op(attemptCtx)

	if parentErr := ctx.Err(); parentErr != nil {
		return parentErr
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return apierr.Wrap(apierr.KindNetwork, ErrTimeout, "The request timed out. Please try again.")
	}
	return err
}

// Config returns the timeout configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}
