package health

import (
	"context"
	"time"

	"github.com/jonwraymond/vmcatalog/apierr"
	"github.com/jonwraymond/vmcatalog/auth"
	"github.com/jonwraymond/vmcatalog/resilience"
)

// BreakerChecker reports the state of a client's circuit breaker.
// Closed is healthy, half-open is degraded and open is unhealthy.
type BreakerChecker struct {
	name    string
	breaker *resilience.CircuitBreaker
}

// NewBreakerChecker creates a checker for breaker.
func NewBreakerChecker(name string, breaker *resilience.CircuitBreaker) *BreakerChecker {
	return &BreakerChecker{name: name, breaker: breaker}
}

// Name returns the name of this checker.
func (c *BreakerChecker) Name() string {
	return c.name
}

// Check reports the breaker state without issuing a request.
func (c *BreakerChecker) Check(context.Context) Result {
	if c.breaker == nil {
		return Degraded("no circuit breaker configured")
	}

	m := c.breaker.Metrics()
	details := map[string]any{
		"state":    m.State.String(),
		"failures": m.Failures,
	}

	switch m.State {
	case resilience.StateOpen:
		details["next_attempt"] = m.NextAttempt.UTC().Format(time.RFC3339)
		return Unhealthy("circuit open", resilience.ErrCircuitOpen).WithDetails(details)
	case resilience.StateHalfOpen:
		return Degraded("circuit half-open, probing").WithDetails(details)
	default:
		return Healthy("circuit closed").WithDetails(details)
	}
}

// TokenChecker reports whether a bearer token can be acquired.
type TokenChecker struct {
	name   string
	tokens auth.TokenProvider
}

// NewTokenChecker creates a checker for tokens.
func NewTokenChecker(name string, tokens auth.TokenProvider) *TokenChecker {
	return &TokenChecker{name: name, tokens: tokens}
}

// Name returns the name of this checker.
func (c *TokenChecker) Name() string {
	return c.name
}

// Check acquires a token. A token carrying an exp claim in the past reports
// degraded, since the next request will refresh it.
func (c *TokenChecker) Check(ctx context.Context) Result {
	if c.tokens == nil {
		return Unhealthy("not signed in", auth.ErrNoAccount)
	}

	tok, err := c.tokens.GetAccessToken(ctx)
	if err != nil {
		return Unhealthy(apierr.UserMessage(err), err)
	}

	claims, err := auth.ParseClaims(tok)
	if err != nil {
		// Opaque tokens are still usable bearer tokens.
		return Healthy("token acquired")
	}

	details := map[string]any{}
	if claims.TenantID != "" {
		details["tenant_id"] = claims.TenantID
	}
	if claims.ExpiresAt != nil {
		details["expires_at"] = claims.ExpiresAt.UTC().Format(time.RFC3339)
		if claims.ExpiresAt.Before(time.Now()) {
			return Degraded("token expired").WithDetails(details)
		}
	}
	return Healthy("token acquired").WithDetails(details)
}

var (
	_ Checker = (*BreakerChecker)(nil)
	_ Checker = (*TokenChecker)(nil)
	_ Checker = (*CheckerFunc)(nil)
)
