package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/jonwraymond/vmcatalog/apierr"
)

// DefaultRetryableKinds are the kinds retried when RetryConfig.RetryableKinds is empty.
var DefaultRetryableKinds = []apierr.Kind{
	apierr.KindNetwork,
	apierr.KindRateLimit,
	apierr.KindServer,
	apierr.KindServiceUnavailable,
}

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxRetries is the number of retries after the initial attempt.
	// MaxRetries = N yields at most N+1 attempts. Negative values mean 0.
	MaxRetries int

	// BaseDelay is the delay before the first retry.
	// Default: 1s
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff (Retry-After may exceed it).
	// Default: 30s
	MaxDelay time.Duration

	// Multiplier is the exponential backoff multiplier.
	// Default: 2.0
	Multiplier float64

	// MaxJitter is the upper bound of the random delay added to each backoff.
	// Default: 1s
	MaxJitter time.Duration

	// DisableJitter turns jitter off, mostly for tests.
	DisableJitter bool

	// RetryableKinds lists the kinds that trigger a retry.
	// Default: DefaultRetryableKinds
	RetryableKinds []apierr.Kind

	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, err *apierr.Error, delay time.Duration)

	// Sleep waits for d or until ctx is done. Default: a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryConfig returns the retry policy used by the ARM clients.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		MaxJitter:  time.Second,
	}
}

// Retry implements exponential backoff with jitter driven by the error taxonomy.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.MaxJitter <= 0 {
		config.MaxJitter = time.Second
	}
	if len(config.RetryableKinds) == 0 {
		config.RetryableKinds = DefaultRetryableKinds
	}
	if config.Sleep == nil {
		config.Sleep = sleepContext
	}

	return &Retry{config: config}
}

// Execute runs op, retrying retryable failures.
//
// The returned error is nil or a classified *apierr.Error; raw errors never
// escape.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		classified := apierr.Classify(err)

		if !r.shouldRetry(classified) || attempt >= r.config.MaxRetries {
			return classified
		}

		// Caller gave up; don't schedule another attempt.
		if ctx.Err() != nil {
			return classified
		}

		delay := r.calculateDelay(attempt, classified)

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt+1, classified, delay)
		}

		if err := r.config.Sleep(ctx, delay); err != nil {
			return classified
		}
	}
}

func (r *Retry) shouldRetry(err *apierr.Error) bool {
	return slices.Contains(r.config.RetryableKinds, err.Kind)
}

// calculateDelay returns min(base * multiplier^attempt, max), raised to the
// server's Retry-After when that is larger, plus jitter.
func (r *Retry) calculateDelay(attempt int, err *apierr.Error) time.Duration {
	multiplier := math.Pow(r.config.Multiplier, float64(attempt))
	delay := time.Duration(float64(r.config.BaseDelay) * multiplier)

	if delay > r.config.MaxDelay || delay < 0 {
		delay = r.config.MaxDelay
	}

	if err.RetryAfter > delay {
		delay = err.RetryAfter
	}

	if !r.config.DisableJitter {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay += time.Duration(rand.Int64N(int64(r.config.MaxJitter)))
	}

	return delay
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

// Do runs fn under r and returns its value.
func Do[T any](ctx context.Context, r *Retry, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := r.Execute(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
