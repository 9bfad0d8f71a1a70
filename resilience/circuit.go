package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/vmcatalog/apierr"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is blocking all requests.
	StateOpen
	// StateHalfOpen means the circuit is letting a single probe through.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the guarded dependency in errors and callbacks.
	Name string

	// FailureThreshold is the number of consecutive failures that opens the circuit.
	// Default: 5
	FailureThreshold int

	// ResetTimeout is how long the circuit stays open before a probe is allowed.
	// Default: 60 seconds
	ResetTimeout time.Duration

	// OnStateChange is called when the circuit state changes.
	OnStateChange func(name string, from, to State)

	// IsFailure determines if an error should count as a failure.
	// Default: all non-nil errors are failures.
	IsFailure func(err error) bool

	// Now returns the current time. Default: time.Now
	Now func() time.Time
}

// CircuitBreaker fails fast after sustained failures of one downstream
// dependency and self-heals after a cooldown.
//
// Failure counts are per instance; breakers never share state.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	lastFailure time.Time
	nextAttempt time.Time
	probing     bool

	// pending holds transitions to report once mu is released.
	pending []transition
}

type transition struct{ from, to State }

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 60 * time.Second
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Execute runs op through the circuit breaker.
//
// While open and cooling down, op is not invoked and a ServiceUnavailable
// error wrapping ErrCircuitOpen is returned.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := op(ctx)
	cb.afterRequest(err)
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.unlock()
	return cb.currentStateLocked()
}

// Name returns the configured name.
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// Reset returns the circuit breaker to the closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.unlock()

	oldState := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
	cb.probing = false
	cb.nextAttempt = time.Time{}

	cb.notifyLocked(oldState)
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.unlock()

	switch cb.currentStateLocked() {
	case StateOpen:
		return cb.openError()
	case StateHalfOpen:
		// One probe at a time.
		if cb.probing {
			return cb.openError()
		}
		cb.probing = true
	}

	return nil
}

func (cb *CircuitBreaker) openError() error {
	e := apierr.Wrap(apierr.KindServiceUnavailable, ErrCircuitOpen, "")
	if cb.config.Name != "" {
		e.Detail = cb.config.Name + ": " + ErrCircuitOpen.Error()
	}
	return e
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.unlock()

	isFailure := cb.config.IsFailure(err)
	oldState := cb.state
	now := cb.config.Now()

	if isFailure {
		cb.failures++
		cb.lastFailure = now
		if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
			cb.state = StateOpen
			cb.nextAttempt = now.Add(cb.config.ResetTimeout)
		}
	} else {
		cb.successes++
		cb.failures = 0
		cb.state = StateClosed
	}
	cb.probing = false

	cb.notifyLocked(oldState)
}

func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && !cb.config.Now().Before(cb.nextAttempt) {
		cb.state = StateHalfOpen
		cb.probing = false
		cb.notifyLocked(StateOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) notifyLocked(from State) {
	if from != cb.state && cb.config.OnStateChange != nil {
		cb.pending = append(cb.pending, transition{from: from, to: cb.state})
	}
}

// unlock releases mu, then runs OnStateChange for the transitions recorded
// while it was held.
func (cb *CircuitBreaker) unlock() {
	pending := cb.pending
	cb.pending = nil
	cb.mu.Unlock()

	for _, t := range pending {
		cb.config.OnStateChange(cb.config.Name, t.from, t.to)
	}
}

// Metrics returns current circuit breaker metrics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.unlock()

	return CircuitBreakerMetrics{
		State:       cb.currentStateLocked(),
		Failures:    cb.failures,
		Successes:   cb.successes,
		LastFailure: cb.lastFailure,
		NextAttempt: cb.nextAttempt,
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State       State
	Failures    int
	Successes   int
	LastFailure time.Time
	NextAttempt time.Time
}
