package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/vmcatalog/arm"
	"github.com/jonwraymond/vmcatalog/auth"
	"github.com/jonwraymond/vmcatalog/resilience"
	"github.com/jonwraymond/vmcatalog/store"
)

var testAccount = auth.Account{HomeAccountID: "u1.t1", Username: "alice@example.com", TenantID: "t1"}

// fakeIdentity issues signed tokens for the tenant a request names.
type fakeIdentity struct {
	mu       sync.Mutex
	accounts []auth.Account
	userID   string
	silentN  int
	interN   int
	tenants  []string
	hints    []string
	removed  bool
	err      error
}

func newFakeIdentity(accounts ...auth.Account) *fakeIdentity {
	return &fakeIdentity{accounts: accounts, userID: "u1"}
}

func (f *fakeIdentity) Accounts(context.Context) ([]auth.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]auth.Account(nil), f.accounts...), nil
}

func (f *fakeIdentity) AcquireTokenSilent(_ context.Context, req auth.TokenRequest) (auth.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.silentN++
	if f.err != nil {
		return auth.Token{}, f.err
	}
	return f.issueLocked(req, *req.Account), nil
}

func (f *fakeIdentity) AcquireTokenInteractive(_ context.Context, req auth.TokenRequest) (auth.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interN++
	if f.err != nil {
		return auth.Token{}, f.err
	}
	account := testAccount
	if req.Account != nil {
		f.hints = append(f.hints, req.Account.Username)
		if req.Account.HomeAccountID != "" {
			account = *req.Account
		}
	}
	f.accounts = []auth.Account{account}
	return f.issueLocked(req, account), nil
}

func (f *fakeIdentity) RemoveAccounts(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = nil
	f.removed = true
	return nil
}

func (f *fakeIdentity) issueLocked(req auth.TokenRequest, account auth.Account) auth.Token {
	tenant := req.TenantID
	if tenant == "" {
		tenant = account.TenantID
	}
	f.tenants = append(f.tenants, tenant)

	claims := auth.Claims{
		ObjectID: f.userID,
		TenantID: tenant,
		Name:     "Alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		panic(err)
	}
	return auth.Token{AccessToken: s, ExpiresOn: time.Now().Add(time.Hour), Account: account}
}

func (f *fakeIdentity) issuedTenants() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tenants...)
}

// fakeARM serves a small catalog and counts requests per resource.
type fakeARM struct {
	*httptest.Server

	mu     sync.Mutex
	counts map[string]int
	// block, when set, holds publisher requests until it is closed.
	block   chan struct{}
	entered chan struct{}
	status  int
}

const subscriptionsBody = `{"value":[
	{"subscriptionId":"sub1","displayName":"One","state":"Enabled","tenantId":"t1"},
	{"subscriptionId":"sub2","displayName":"Two","state":"Enabled","tenantId":"t1"},
	{"subscriptionId":"sub3","displayName":"Three","state":"Enabled","tenantId":"t2"}
]}`

func newFakeARM(t *testing.T) *fakeARM {
	t.Helper()
	s := &fakeARM{counts: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *fakeARM) serve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	resource := "subscriptions"
	switch {
	case strings.HasSuffix(path, "/versions"):
		resource = "versions"
	case strings.HasSuffix(path, "/skus"):
		resource = "skus"
	case strings.HasSuffix(path, "/offers"):
		resource = "offers"
	case strings.HasSuffix(path, "/publishers"):
		resource = "publishers"
	case strings.HasSuffix(path, "/locations"):
		resource = "locations"
	}

	s.mu.Lock()
	s.counts[resource]++
	block, entered, status := s.block, s.entered, s.status
	s.mu.Unlock()

	if resource == "publishers" && block != nil {
		entered <- struct{}{}
		<-block
	}

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"code":"Failed","message":"failed"}}`))
		return
	}

	switch resource {
	case "subscriptions":
		_, _ = w.Write([]byte(subscriptionsBody))
	case "locations":
		_, _ = w.Write([]byte(`{"value":[{"name":"westeurope","displayName":"West Europe"},{"name":"eastus","displayName":"East US"}]}`))
	case "publishers":
		_, _ = w.Write([]byte(`[{"name":"Canonical","location":"eastus"},{"name":"MicrosoftWindowsServer","location":"eastus"}]`))
	case "offers":
		_, _ = w.Write([]byte(`[{"name":"ubuntu-24_04-lts","location":"eastus"}]`))
	case "skus":
		_, _ = w.Write([]byte(`[{"name":"server","location":"eastus"},{"name":"minimal","location":"eastus"}]`))
	case "versions":
		_, _ = w.Write([]byte(`[{"name":"24.04.202401010"},{"name":"latest"},{"name":"24.04.202312010"}]`))
	}
}

func (s *fakeARM) count(resource string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[resource]
}

func (s *fakeARM) setStatus(status int) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *fakeARM) blockPublishers() (entered, release chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.block = make(chan struct{})
	s.entered = make(chan struct{}, 1)
	return s.entered, s.block
}

func noSleep(context.Context, time.Duration) error { return nil }

func testFactory(identity auth.IdentityClient, srv *fakeARM) *Factory {
	return &Factory{
		Identity: identity,
		Options: []arm.Option{
			arm.WithBaseURL(srv.URL),
			arm.WithRetry(resilience.RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond, DisableJitter: true, Sleep: noSleep}),
			arm.WithCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 5, ResetTimeout: time.Minute}),
		},
	}
}

// signedIn returns a coordinator that has completed Login.
func signedIn(t *testing.T) (*Coordinator, *fakeIdentity, *fakeARM) {
	t.Helper()
	identity := newFakeIdentity(testAccount)
	srv := newFakeARM(t)
	c := NewCoordinator(store.New(), testFactory(identity, srv))
	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	return c, identity, srv
}
