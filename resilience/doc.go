// Package resilience provides the request policies used by the ARM clients.
//
// Each policy is an independent object with an Execute method, so it can be
// tested alone and composed explicitly.
//
// # Patterns
//
//   - Circuit Breaker: fails fast with a ServiceUnavailable error after
//     FailureThreshold consecutive failures and lets a single probe through
//     once ResetTimeout has elapsed.
//
//   - Retry: exponential backoff with jitter. Whether an error is retried is
//     decided by its apierr kind, and a server Retry-After overrides a shorter
//     computed delay.
//
//   - Window Limiter: a sliding window of request timestamps. Requests over
//     the limit wait for the oldest timestamp to leave the window.
//
//   - Timeout: bounds a single attempt.
//
// # Usage
//
//	executor := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	        Name:             "catalog",
//	        FailureThreshold: 5,
//	        ResetTimeout:     time.Minute,
//	    })),
//	    resilience.WithRetry(resilience.NewRetry(resilience.DefaultRetryConfig())),
//	    resilience.WithRateLimiter(resilience.NewWindowLimiter(resilience.WindowLimiterConfig{
//	        MaxRequests: 100,
//	        Window:      time.Minute,
//	    })),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return callARM(ctx)
//	})
//
// Errors returned by Retry and Executor are always classified *apierr.Error
// values.
package resilience
