package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/vmcatalog/apierr"
)

func newTestRetry(clock *fakeClock, maxRetries int) *Retry {
	return NewRetry(RetryConfig{
		MaxRetries:    maxRetries,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      time.Second,
		Multiplier:    2,
		DisableJitter: true,
		Sleep:         clock.Sleep,
	})
}

func TestNewRetry_Defaults(t *testing.T) {
	r := NewRetry(RetryConfig{})

	if r.config.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", r.config.MaxRetries)
	}
	if r.config.BaseDelay != time.Second {
		t.Errorf("BaseDelay = %v, want 1s", r.config.BaseDelay)
	}
	if r.config.MaxDelay != 30*time.Second {
		t.Errorf("MaxDelay = %v, want 30s", r.config.MaxDelay)
	}
	if r.config.Multiplier != 2.0 {
		t.Errorf("Multiplier = %f, want 2.0", r.config.Multiplier)
	}
	if r.config.MaxJitter != time.Second {
		t.Errorf("MaxJitter = %v, want 1s", r.config.MaxJitter)
	}
	if len(r.config.RetryableKinds) != len(DefaultRetryableKinds) {
		t.Errorf("RetryableKinds = %v, want defaults", r.config.RetryableKinds)
	}
}

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	clock := newFakeClock()
	r := newTestRetry(clock, 3)

	attempts := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if len(clock.Sleeps()) != 0 {
		t.Errorf("sleeps = %v, want none", clock.Sleeps())
	}
}

func TestRetry_SuccessOnRetry(t *testing.T) {
	clock := newFakeClock()
	r := newTestRetry(clock, 3)

	attempts := 0
	err := r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return apierr.ClassifyHTTPStatus(500, "", "")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetry_AttemptBound(t *testing.T) {
	for _, n := range []int{0, 1, 3, 5} {
		clock := newFakeClock()
		r := newTestRetry(clock, n)

		attempts := 0
		err := r.Execute(context.Background(), func(ctx context.Context) error {
			attempts++
			return errors.New("503 service unavailable")
		})

		if attempts != n+1 {
			t.Errorf("MaxRetries=%d: attempts = %d, want %d", n, attempts, n+1)
		}
		e, ok := apierr.As(err)
		if !ok {
			t.Fatalf("MaxRetries=%d: error %T is not classified", n, err)
		}
		if e.Kind != apierr.KindServiceUnavailable {
			t.Errorf("MaxRetries=%d: kind = %v, want service_unavailable", n, e.Kind)
		}
	}
}

func TestRetry_FatalKindsNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"authentication", apierr.ClassifyHTTPStatus(401, "", "")},
		{"authorization", errors.New("403 forbidden")},
		{"validation", apierr.NewValidation("subscription ID is required")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			r := newTestRetry(clock, 5)

			attempts := 0
			err := r.Execute(context.Background(), func(ctx context.Context) error {
				attempts++
				return tt.err
			})

			if attempts != 1 {
				t.Errorf("attempts = %d, want 1", attempts)
			}
			if _, ok := apierr.As(err); !ok {
				t.Errorf("error %T is not classified", err)
			}
		})
	}
}

func TestRetry_ExponentialBackoffCapped(t *testing.T) {
	clock := newFakeClock()
	r := newTestRetry(clock, 5)

	_ = r.Execute(context.Background(), func(ctx context.Context) error {
		return apierr.ClassifyHTTPStatus(502, "", "")
	})

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
	}
	got := clock.Sleeps()
	if len(got) != len(want) {
		t.Fatalf("sleeps = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sleep[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRetry_RetryAfterOverridesShorterDelay(t *testing.T) {
	clock := newFakeClock()
	r := newTestRetry(clock, 1)

	_ = r.Execute(context.Background(), func(ctx context.Context) error {
		return apierr.ClassifyHTTPStatus(429, "", "5")
	})

	got := clock.Sleeps()
	if len(got) != 1 || got[0] != 5*time.Second {
		t.Errorf("sleeps = %v, want [5s]", got)
	}
}

func TestRetry_JitterBounded(t *testing.T) {
	clock := newFakeClock()
	r := NewRetry(RetryConfig{
		MaxRetries: 20,
		BaseDelay:  10 * time.Millisecond,
		MaxDelay:   10 * time.Millisecond,
		MaxJitter:  time.Second,
		Sleep:      clock.Sleep,
	})

	_ = r.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("network down")
	})

	for i, d := range clock.Sleeps() {
		if d < 10*time.Millisecond || d >= 10*time.Millisecond+time.Second {
			t.Errorf("sleep[%d] = %v, outside [10ms, 1.01s)", i, d)
		}
	}
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	r := NewRetry(RetryConfig{
		MaxRetries:    3,
		BaseDelay:     time.Hour,
		DisableJitter: true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- r.Execute(ctx, func(ctx context.Context) error {
			attempts++
			return errors.New("500 internal server error")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if _, ok := apierr.As(err); !ok {
			t.Errorf("error %T is not classified", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Execute did not return after cancellation")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetry_OnRetry(t *testing.T) {
	clock := newFakeClock()
	var seen []int
	r := NewRetry(RetryConfig{
		MaxRetries:    2,
		BaseDelay:     time.Millisecond,
		DisableJitter: true,
		Sleep:         clock.Sleep,
		OnRetry: func(attempt int, err *apierr.Error, delay time.Duration) {
			seen = append(seen, attempt)
		},
	})

	_ = r.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("network unreachable")
	})

	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", seen)
	}
}

func TestRetry_CustomRetryableKinds(t *testing.T) {
	clock := newFakeClock()
	r := NewRetry(RetryConfig{
		MaxRetries:     3,
		DisableJitter:  true,
		RetryableKinds: []apierr.Kind{apierr.KindRateLimit},
		Sleep:          clock.Sleep,
	})

	attempts := 0
	_ = r.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return apierr.ClassifyHTTPStatus(500, "", "")
	})

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (server errors excluded)", attempts)
	}
}

func TestDo(t *testing.T) {
	clock := newFakeClock()
	r := newTestRetry(clock, 2)

	calls := 0
	got, err := Do(context.Background(), r, func(ctx context.Context) ([]string, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("network blip")
		}
		return []string{"Canonical"}, nil
	})

	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if len(got) != 1 || got[0] != "Canonical" {
		t.Errorf("Do() = %v", got)
	}
}
