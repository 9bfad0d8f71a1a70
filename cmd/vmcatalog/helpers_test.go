package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jonwraymond/vmcatalog/auth"
)

var alice = auth.Account{HomeAccountID: "u1.t1", Username: "alice@example.com", TenantID: "t1"}

type fakeIdentity struct {
	mu       sync.Mutex
	accounts []auth.Account
	prompts  int
	hints    []string
	removed  bool
}

func (f *fakeIdentity) Accounts(context.Context) ([]auth.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]auth.Account(nil), f.accounts...), nil
}

func (f *fakeIdentity) AcquireTokenSilent(_ context.Context, req auth.TokenRequest) (auth.Token, error) {
	return issue(req, *req.Account), nil
}

func (f *fakeIdentity) AcquireTokenInteractive(_ context.Context, req auth.TokenRequest) (auth.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts++
	if req.Account != nil {
		f.hints = append(f.hints, req.Account.Username)
	}
	f.accounts = []auth.Account{alice}
	return issue(req, alice), nil
}

func (f *fakeIdentity) RemoveAccounts(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = nil
	f.removed = true
	return nil
}

func issue(req auth.TokenRequest, account auth.Account) auth.Token {
	tenant := req.TenantID
	if tenant == "" {
		tenant = account.TenantID
	}
	claims := auth.Claims{
		ObjectID: "u1",
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

// newFakeARM serves two subscriptions and a small eastus catalog.
func newFakeARM(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/versions"):
			_, _ = w.Write([]byte(`[{"name":"22.04.202401010"},{"name":"22.04.202312010"}]`))
		case strings.HasSuffix(path, "/skus"):
			_, _ = w.Write([]byte(`[{"name":"22_04-lts-gen2","location":"eastus"}]`))
		case strings.HasSuffix(path, "/offers"):
			_, _ = w.Write([]byte(`[{"name":"0001-com-ubuntu-server-jammy","location":"eastus"}]`))
		case strings.HasSuffix(path, "/publishers"):
			_, _ = w.Write([]byte(`[{"name":"Canonical","location":"eastus"},{"name":"MicrosoftWindowsServer","location":"eastus"},{"name":"RedHat","location":"eastus"}]`))
		case strings.HasSuffix(path, "/locations"):
			_, _ = w.Write([]byte(`{"value":[{"name":"eastus","displayName":"East US"},{"name":"westeurope","displayName":"West Europe"}]}`))
		default:
			_, _ = w.Write([]byte(`{"value":[
				{"subscriptionId":"sub1","displayName":"One","state":"Enabled","tenantId":"t1"},
				{"subscriptionId":"sub2","displayName":"Two","state":"Enabled","tenantId":"t1"}
			]}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// harness holds the files and fakes one test runs commands against.
type harness struct {
	identity  *fakeIdentity
	config    string
	stateFile string
}

func newHarness(t *testing.T, accounts ...auth.Account) *harness {
	t.Helper()
	srv := newFakeARM(t)
	dir := t.TempDir()

	config := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf("client_id: test-app\nmanagement_url: %s\nretry:\n  max_retries: 0\nlogging:\n  level: error\n", srv.URL)
	if err := os.WriteFile(config, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &harness{
		identity:  &fakeIdentity{accounts: accounts},
		config:    config,
		stateFile: filepath.Join(dir, "state.json"),
	}
}

// run executes one command line and returns its standard output.
func (h *harness) run(args ...string) (string, error) {
	cmd := newRootCommand(&deps{identity: h.identity})
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", h.config, "--state-file", h.stateFile}, args...))
	err := cmd.Execute()
	return out.String(), err
}
