package resilience

import (
	"context"
	"sync"
	"time"
)

// WindowLimiterConfig configures the sliding window rate limiter.
type WindowLimiterConfig struct {
	// MaxRequests is the number of requests allowed within Window.
	// Default: 100
	MaxRequests int

	// Window is the length of the sliding window.
	// Default: 1 minute
	Window time.Duration

	// Now returns the current time. Default: time.Now
	Now func() time.Time

	// Sleep waits for d or until ctx is done. Default: a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// WindowLimiter is a sliding window rate limiter over request timestamps.
//
// Requests over the limit are delayed until the oldest timestamp leaves the
// window; they are never dropped.
type WindowLimiter struct {
	config WindowLimiterConfig

	mu     sync.Mutex
	stamps []time.Time
}

// NewWindowLimiter creates a new sliding window rate limiter.
func NewWindowLimiter(config WindowLimiterConfig) *WindowLimiter {
	if config.MaxRequests <= 0 {
		config.MaxRequests = 100
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Sleep == nil {
		config.Sleep = sleepContext
	}

	return &WindowLimiter{
		config: config,
		stamps: make([]time.Time, 0, config.MaxRequests),
	}
}

// Wait blocks until a request may be issued, then records it.
func (l *WindowLimiter) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		wait, ok := l.reserve()
		if ok {
			return nil
		}

		if err := l.config.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// reserve records a request if the window has room, otherwise reports how
// long until the oldest request exits the window.
func (l *WindowLimiter) reserve() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.config.Now()
	l.pruneLocked(now)

	if len(l.stamps) < l.config.MaxRequests {
		l.stamps = append(l.stamps, now)
		return 0, true
	}

	return l.config.Window - now.Sub(l.stamps[0]), false
}

func (l *WindowLimiter) pruneLocked(now time.Time) {
	i := 0
	for i < len(l.stamps) && now.Sub(l.stamps[i]) >= l.config.Window {
		i++
	}
	if i > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[i:]...)
	}
}

// Execute waits for capacity and runs op.
func (l *WindowLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := l.Wait(ctx); err != nil {
		return err
	}
	return op(ctx)
}

// Len returns the number of requests currently inside the window.
func (l *WindowLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked(l.config.Now())
	return len(l.stamps)
}

// Reset forgets all recorded requests.
func (l *WindowLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stamps = l.stamps[:0]
}
