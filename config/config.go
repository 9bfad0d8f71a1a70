package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jonwraymond/vmcatalog/arm"
	"github.com/jonwraymond/vmcatalog/auth"
	"github.com/jonwraymond/vmcatalog/cache"
	"github.com/jonwraymond/vmcatalog/observe"
	"github.com/jonwraymond/vmcatalog/resilience"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VMCATALOG"

// Config is the complete vmcatalog configuration.
type Config struct {
	// ClientID is the application (client) ID of the public client
	// registration used for sign-in.
	ClientID    string `mapstructure:"client_id" validate:"required"`
	Authority   string `mapstructure:"authority" validate:"required,url"`
	TenantID    string `mapstructure:"tenant_id"`
	RedirectURI string `mapstructure:"redirect_uri" validate:"omitempty,url"`

	ManagementURL   string `mapstructure:"management_url" validate:"required,url"`
	DefaultLocation string `mapstructure:"default_location" validate:"required"`

	// AttemptTimeout bounds each HTTP attempt. Zero disables the bound.
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout" validate:"gte=0"`

	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// CacheConfig sets the catalog TTLs. A zero TTL disables caching for that
// level.
type CacheConfig struct {
	PublishersTTL time.Duration `mapstructure:"publishers_ttl" validate:"gte=0"`
	OffersTTL     time.Duration `mapstructure:"offers_ttl" validate:"gte=0"`
	SKUsTTL       time.Duration `mapstructure:"skus_ttl" validate:"gte=0"`
	MaxTTL        time.Duration `mapstructure:"max_ttl" validate:"gte=0"`
}

// RateLimitConfig sets the catalog request window.
type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests" validate:"gt=0"`
	Window      time.Duration `mapstructure:"window" validate:"gt=0"`
}

// RetryConfig sets the retry backoff.
type RetryConfig struct {
	MaxRetries int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	BaseDelay  time.Duration `mapstructure:"base_delay" validate:"gt=0"`
	MaxDelay   time.Duration `mapstructure:"max_delay" validate:"gtefield=BaseDelay"`
	Multiplier float64       `mapstructure:"multiplier" validate:"gte=1"`
}

// BreakerConfig sets the circuit breaker thresholds.
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold" validate:"gt=0"`
	ResetTimeout     time.Duration `mapstructure:"reset_timeout" validate:"gt=0"`
}

// LoggingConfig selects the log level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// TelemetryConfig selects the trace and metric exporters.
type TelemetryConfig struct {
	Tracing ExporterConfig `mapstructure:"tracing"`
	Metrics ExporterConfig `mapstructure:"metrics"`
}

// ExporterConfig enables one telemetry signal.
type ExporterConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Exporter string `mapstructure:"exporter" validate:"omitempty,oneof=otlp jaeger prometheus stdout none"`
}

// defaults are registered with viper so every key is also reachable from
// the environment.
var defaults = map[string]any{
	"client_id":        "",
	"authority":        auth.DefaultAuthority,
	"tenant_id":        "",
	"redirect_uri":     "",
	"management_url":   arm.DefaultBaseURL,
	"default_location": arm.DefaultLocation,
	"attempt_timeout":  30 * time.Second,

	"cache.publishers_ttl": cache.DefaultTTL,
	"cache.offers_ttl":     cache.DefaultTTL,
	"cache.skus_ttl":       cache.DefaultTTL,
	"cache.max_ttl":        time.Hour,

	"rate_limit.max_requests": 100,
	"rate_limit.window":       time.Minute,

	"retry.max_retries": 3,
	"retry.base_delay":  time.Second,
	"retry.max_delay":   30 * time.Second,
	"retry.multiplier":  2.0,

	"breaker.failure_threshold": 5,
	"breaker.reset_timeout":     60 * time.Second,

	"logging.level":  "warn",
	"logging.format": "console",

	"telemetry.tracing.enabled":  false,
	"telemetry.tracing.exporter": "none",
	"telemetry.metrics.enabled":  false,
	"telemetry.metrics.exporter": "none",
}

// loadOptions configures Load.
type loadOptions struct {
	path     string
	resolver *Resolver
}

// LoadOption configures Load.
type LoadOption func(*loadOptions)

// WithFile reads settings from path. An empty path searches the default
// location and skips the file when none exists.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// WithResolver sets the secret resolver. Default: env and file providers.
func WithResolver(r *Resolver) LoadOption {
	return func(o *loadOptions) {
		if r != nil {
			o.resolver = r
		}
	}
}

// Load reads, expands and validates the configuration.
func Load(ctx context.Context, opts ...LoadOption) (*Config, error) {
	o := loadOptions{resolver: NewResolver(true, EnvProvider{}, FileProvider{})}
	for _, opt := range opts {
		opt(&o)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := o.path
	if path == "" {
		if found, ok := FindConfigFile(); ok {
			path = found
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.resolve(ctx, o.resolver); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolve expands the string settings in place.
func (c *Config) resolve(ctx context.Context, r *Resolver) error {
	fields := []struct {
		key   string
		value *string
	}{
		{"client_id", &c.ClientID},
		{"authority", &c.Authority},
		{"tenant_id", &c.TenantID},
		{"redirect_uri", &c.RedirectURI},
		{"management_url", &c.ManagementURL},
		{"default_location", &c.DefaultLocation},
	}
	for _, f := range fields {
		resolved, err := r.ResolveValue(ctx, *f.value)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", f.key, err)
		}
		*f.value = resolved
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SignInAuthority returns the sign-in authority, scoped to TenantID when set.
func (c *Config) SignInAuthority() string {
	return auth.TenantAuthority(c.Authority, c.TenantID)
}

// CachePolicy returns the catalog cache policy.
func (c *Config) CachePolicy() cache.Policy {
	return cache.Policy{
		PublishersTTL: c.Cache.PublishersTTL,
		OffersTTL:     c.Cache.OffersTTL,
		SKUsTTL:       c.Cache.SKUsTTL,
		MaxTTL:        c.Cache.MaxTTL,
	}
}

// RetryPolicy returns the retry configuration.
func (c *Config) RetryPolicy() resilience.RetryConfig {
	r := resilience.DefaultRetryConfig()
	r.MaxRetries = c.Retry.MaxRetries
	r.BaseDelay = c.Retry.BaseDelay
	r.MaxDelay = c.Retry.MaxDelay
	r.Multiplier = c.Retry.Multiplier
	return r
}

// ClientOptions returns the ARM client options the settings describe.
func (c *Config) ClientOptions(middleware *observe.Middleware) []arm.Option {
	opts := []arm.Option{
		arm.WithBaseURL(c.ManagementURL),
		arm.WithRetry(c.RetryPolicy()),
		arm.WithCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: c.Breaker.FailureThreshold,
			ResetTimeout:     c.Breaker.ResetTimeout,
		}),
		arm.WithRateLimit(resilience.WindowLimiterConfig{
			MaxRequests: c.RateLimit.MaxRequests,
			Window:      c.RateLimit.Window,
		}),
		arm.WithCachePolicy(c.CachePolicy()),
		arm.WithAttemptTimeout(c.AttemptTimeout),
	}
	if middleware != nil {
		opts = append(opts, arm.WithMiddleware(middleware))
	}
	return opts
}

// ObserveConfig returns the telemetry configuration for observe.NewObserver.
func (c *Config) ObserveConfig(version string) observe.Config {
	return observe.Config{
		ServiceName: "vmcatalog",
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Telemetry.Tracing.Enabled,
			Exporter:  c.Telemetry.Tracing.Exporter,
			SamplePct: 1.0,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Telemetry.Metrics.Enabled,
			Exporter: c.Telemetry.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.Logging.Level,
			Format:  c.Logging.Format,
		},
	}
}
