package arm

import (
	"context"
	"net/http"
	"time"

	"github.com/jonwraymond/vmcatalog/cache"
	"github.com/jonwraymond/vmcatalog/observe"
	"github.com/jonwraymond/vmcatalog/resilience"
)

// DefaultBaseURL is the public cloud Resource Manager endpoint.
const DefaultBaseURL = "https://management.azure.com"

// Option configures a client.
type Option func(*options)

type options struct {
	baseURL    string
	transport  http.RoundTripper
	middleware *observe.Middleware
	retry      resilience.RetryConfig
	breaker    resilience.CircuitBreakerConfig
	limiter    resilience.WindowLimiterConfig
	cache      cache.Policy
	timeout    time.Duration
	now        func() time.Time
}

func defaultOptions() options {
	return options{
		baseURL:    DefaultBaseURL,
		middleware: observe.NopMiddleware(),
		retry:      resilience.DefaultRetryConfig(),
		breaker: resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     60 * time.Second,
		},
		limiter: resilience.WindowLimiterConfig{
			MaxRequests: 100,
			Window:      time.Minute,
		},
		cache: cache.DefaultPolicy(),
		now:   time.Now,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// breakerConfig returns the breaker policy for the client called name.
// Transitions are logged before any configured callback runs.
func (o options) breakerConfig(name string) resilience.CircuitBreakerConfig {
	cfg := o.breaker
	cfg.Name = name
	logger := o.middleware.Logger()
	next := cfg.OnStateChange
	cfg.OnStateChange = func(name string, from, to resilience.State) {
		log := logger.Info
		if to == resilience.StateOpen {
			log = logger.Warn
		}
		log(context.Background(), "circuit breaker state changed",
			observe.Field{Key: "breaker", Value: name},
			observe.Field{Key: "from", Value: from.String()},
			observe.Field{Key: "to", Value: to.String()},
		)
		if next != nil {
			next(name, from, to)
		}
	}
	return cfg
}

// WithBaseURL overrides the Resource Manager endpoint.
func WithBaseURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithTransport sets the transport under the bearer token transport.
// Default: http.DefaultTransport
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// WithMiddleware sets the telemetry middleware.
func WithMiddleware(m *observe.Middleware) Option {
	return func(o *options) {
		if m != nil {
			o.middleware = m
		}
	}
}

// WithRetry sets the retry policy.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(o *options) {
		o.retry = cfg
	}
}

// WithCircuitBreaker sets the breaker policy. Each client still owns its own
// breaker instance.
func WithCircuitBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(o *options) {
		o.breaker = cfg
	}
}

// WithRateLimit sets the catalog request window.
func WithRateLimit(cfg resilience.WindowLimiterConfig) Option {
	return func(o *options) {
		o.limiter = cfg
	}
}

// WithCachePolicy sets the catalog cache TTLs.
func WithCachePolicy(p cache.Policy) Option {
	return func(o *options) {
		o.cache = p
	}
}

// WithAttemptTimeout bounds each HTTP attempt. Zero disables the bound.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithClock sets the clock used by the caches.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
