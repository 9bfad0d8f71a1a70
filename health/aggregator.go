package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout bounds the whole run.
	// Default: 10 seconds
	Timeout time.Duration

	// Sequential runs checks one at a time in registration order.
	// Default: false (parallel)
	Sequential bool

	// Now returns the current time. Default: time.Now
	Now func() time.Time
}

// Aggregator runs a set of checkers and folds their results.
type Aggregator struct {
	config AggregatorConfig

	mu       sync.RWMutex
	checkers []Checker
}

// NewAggregator creates a new health aggregator.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	var cfg AggregatorConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Aggregator{config: cfg}
}

// Register adds checker, replacing a checker of the same name in place.
func (a *Aggregator) Register(checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, c := range a.checkers {
		if c.Name() == checker.Name() {
			a.checkers[i] = checker
			return
		}
	}
	a.checkers = append(a.checkers, checker)
}

// Unregister removes the checker called name.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, c := range a.checkers {
		if c.Name() == name {
			a.checkers = append(a.checkers[:i], a.checkers[i+1:]...)
			return
		}
	}
}

// CheckerNames returns the registered names in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.checkers))
	for _, c := range a.checkers {
		names = append(names, c.Name())
	}
	return names
}

// Check runs the checker called name.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	var checker Checker
	for _, c := range a.checkers {
		if c.Name() == name {
			checker = c
			break
		}
	}
	a.mu.RUnlock()

	if checker == nil {
		return Result{}, ErrCheckerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	return a.runCheck(ctx, checker), nil
}

// Run runs every checker and returns the report. Results are in registration
// order.
func (a *Aggregator) Run(ctx context.Context) Report {
	a.mu.RLock()
	checkers := append([]Checker(nil), a.checkers...)
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	results := make([]Result, len(checkers))
	if a.config.Sequential {
		for i, c := range checkers {
			results[i] = a.runCheck(ctx, c)
		}
	} else {
		var g errgroup.Group
		for i, c := range checkers {
			g.Go(func() error {
				results[i] = a.runCheck(ctx, c)
				return nil
			})
		}
		_ = g.Wait()
	}

	report := Report{
		Status:    StatusHealthy,
		Timestamp: a.config.Now().UTC(),
		Checks:    make([]CheckReport, 0, len(checkers)),
	}
	for i, c := range checkers {
		report.Status = report.Status.Worse(results[i].Status)
		report.Checks = append(report.Checks, newCheckReport(c.Name(), results[i]))
	}
	return report
}

// runCheck runs checker and gives up when ctx is done, even if the checker
// ignores ctx.
func (a *Aggregator) runCheck(ctx context.Context, checker Checker) Result {
	start := a.config.Now()
	resultCh := make(chan Result, 1)

	go func() {
		result := checker.Check(ctx)
		result.Duration = a.config.Now().Sub(start)
		if result.Timestamp.IsZero() {
			result.Timestamp = start
		}
		resultCh <- result
	}()

	select {
	case result := <-resultCh:
		return result
	case <-ctx.Done():
		return Result{
			Status:    StatusUnhealthy,
			Message:   "check timed out",
			Error:     ErrCheckTimeout,
			Duration:  a.config.Now().Sub(start),
			Timestamp: start,
		}
	}
}
