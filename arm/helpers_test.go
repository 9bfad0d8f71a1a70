package arm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/vmcatalog/auth"
	"github.com/jonwraymond/vmcatalog/resilience"
)

// armServer records requests and serves them from a handler.
type armServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []*http.Request
}

func newARMServer(t *testing.T, handler http.HandlerFunc) *armServer {
	t.Helper()
	s := &armServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Clone(context.Background()))
		s.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *armServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *armServer) last() *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func noSleep(context.Context, time.Duration) error { return nil }

// testOptions points a client at srv with fast, deterministic policies.
func testOptions(srv *armServer, extra ...Option) []Option {
	opts := []Option{
		WithBaseURL(srv.URL),
		WithRetry(resilience.RetryConfig{
			MaxRetries:    2,
			BaseDelay:     time.Millisecond,
			DisableJitter: true,
			Sleep:         noSleep,
		}),
		WithCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute}),
	}
	return append(opts, extra...)
}

var testToken = auth.StaticProvider("test-token")

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
