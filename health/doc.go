// Package health reports whether a catalog session can serve requests.
//
// A Checker reports one component as healthy, degraded or unhealthy.
// BreakerChecker maps a client's circuit breaker state and TokenChecker tries
// to acquire a bearer token. An Aggregator runs a set of checkers under one
// deadline and folds their results into a Report:
//
//	agg := health.NewAggregator()
//	agg.Register(health.NewTokenChecker("token", tokens))
//	agg.Register(health.NewBreakerChecker("catalog", catalog.CircuitBreaker()))
//
//	report := agg.Run(ctx)
//	if report.Status == health.StatusUnhealthy {
//	    // offer a retry
//	}
package health
