package session

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jonwraymond/vmcatalog/apierr"
	"github.com/jonwraymond/vmcatalog/auth"
	"github.com/jonwraymond/vmcatalog/health"
	"github.com/jonwraymond/vmcatalog/store"
)

func TestLogin_LoadsSubscriptionsAndLocations(t *testing.T) {
	c, identity, srv := signedIn(t)

	st := c.Store().Snapshot()
	if !st.Authenticated {
		t.Fatal("store should be authenticated")
	}
	if diff := cmp.Diff(&auth.User{ID: "u1", TenantID: "t1", Name: "Alice"}, st.User); diff != "" {
		t.Errorf("User mismatch (-want +got):\n%s", diff)
	}
	if st.SelectedSubscription != "sub1" {
		t.Errorf("SelectedSubscription = %q, want sub1", st.SelectedSubscription)
	}
	if len(st.Locations) != 2 || st.SelectedLocation != "eastus" {
		t.Errorf("Locations = %v, selected %q", st.Locations, st.SelectedLocation)
	}
	if srv.count("subscriptions") != 1 || srv.count("locations") != 1 {
		t.Errorf("requests = %v", srv.counts)
	}
	if identity.interN != 0 {
		t.Error("a cached account should not prompt")
	}
}

func TestLogin_PromptsWithoutCachedAccount(t *testing.T) {
	identity := newFakeIdentity()
	srv := newFakeARM(t)
	c := NewCoordinator(store.New(), testFactory(identity, srv))

	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if identity.interN != 1 {
		t.Errorf("interactive sign-ins = %d, want 1", identity.interN)
	}
	if c.Account() == nil || c.Account().HomeAccountID != testAccount.HomeAccountID {
		t.Errorf("Account() = %+v", c.Account())
	}
}

func TestLogin_ReplacesSelectionFromOtherTenant(t *testing.T) {
	st := store.New()
	st.Restore(store.Persisted{SelectedSubscription: "old-tenant-sub"})
	c := NewCoordinator(st, testFactory(newFakeIdentity(testAccount), newFakeARM(t)))
	ctx := context.Background()

	if err := c.Login(ctx); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	snap := c.Store().Snapshot()
	if snap.SelectedSubscription != "sub1" {
		t.Errorf("SelectedSubscription = %q, want sub1", snap.SelectedSubscription)
	}
	if len(snap.Locations) != 2 {
		t.Errorf("Locations = %v, want the new subscription's locations", snap.Locations)
	}
	if err := c.LoadPublishers(ctx); err != nil {
		t.Errorf("LoadPublishers() error = %v", err)
	}
}

func TestLogin_Hint(t *testing.T) {
	bob := auth.Account{HomeAccountID: "u2.t1", Username: "Bob@example.com", TenantID: "t1"}

	tests := []struct {
		name        string
		hint        string
		wantAccount string
		wantPrompts int
		wantHints   []string
	}{
		{name: "cached match", hint: "bob@example.com", wantAccount: "u2.t1"},
		{name: "no hint takes first", hint: "", wantAccount: "u1.t1"},
		{name: "unknown prompts", hint: "carol@example.com", wantAccount: "u1.t1", wantPrompts: 1, wantHints: []string{"carol@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := newFakeIdentity(testAccount, bob)
			c := NewCoordinator(store.New(), testFactory(identity, newFakeARM(t)), WithLoginHint(tt.hint))

			if err := c.Login(context.Background()); err != nil {
				t.Fatalf("Login() error = %v", err)
			}
			if got := c.Account().HomeAccountID; got != tt.wantAccount {
				t.Errorf("Account().HomeAccountID = %q, want %q", got, tt.wantAccount)
			}
			if identity.interN != tt.wantPrompts {
				t.Errorf("interactive sign-ins = %d, want %d", identity.interN, tt.wantPrompts)
			}
			if diff := cmp.Diff(tt.wantHints, identity.hints); diff != "" {
				t.Errorf("hints mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLogin_FailureSetsAuthError(t *testing.T) {
	identity := newFakeIdentity(testAccount)
	identity.err = errors.New("user cancelled")
	srv := newFakeARM(t)
	c := NewCoordinator(store.New(), testFactory(identity, srv))

	err := c.Login(context.Background())
	if !apierr.IsKind(err, apierr.KindAuthentication) {
		t.Fatalf("Login() error = %v, want authentication", err)
	}
	st := c.Store().Snapshot()
	if st.Authenticated || st.AuthError == "" {
		t.Errorf("Authenticated = %v, AuthError = %q", st.Authenticated, st.AuthError)
	}
}

func TestResume_NoAccount(t *testing.T) {
	c := NewCoordinator(store.New(), testFactory(newFakeIdentity(), newFakeARM(t)))

	if err := c.Resume(context.Background()); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("Resume() error = %v, want ErrNotSignedIn", err)
	}
}

func TestLoads_BeforeSignIn(t *testing.T) {
	c := NewCoordinator(store.New(), testFactory(newFakeIdentity(), newFakeARM(t)))

	if err := c.LoadSubscriptions(context.Background()); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("LoadSubscriptions() error = %v, want ErrNotSignedIn", err)
	}
	if err := c.LoadPublishers(context.Background()); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("LoadPublishers() error = %v, want ErrNotSignedIn", err)
	}
}

func TestCatalogDrillDown(t *testing.T) {
	c, _, _ := signedIn(t)
	ctx := context.Background()

	if err := c.LoadPublishers(ctx); err != nil {
		t.Fatalf("LoadPublishers() error = %v", err)
	}
	if err := c.LoadOffers(ctx, "Canonical"); err != nil {
		t.Fatalf("LoadOffers() error = %v", err)
	}
	if err := c.LoadSKUs(ctx, "Canonical", "ubuntu-24_04-lts"); err != nil {
		t.Fatalf("LoadSKUs() error = %v", err)
	}
	versions, err := c.LoadVersions(ctx, "Canonical", "ubuntu-24_04-lts", "server")
	if err != nil {
		t.Fatalf("LoadVersions() error = %v", err)
	}

	want := []string{"latest", "24.04.202401010", "24.04.202312010"}
	if diff := cmp.Diff(want, versions); diff != "" {
		t.Errorf("versions mismatch (-want +got):\n%s", diff)
	}

	st := c.Store().Snapshot()
	if len(st.Publishers) != 2 || len(st.Offers) != 1 || len(st.SKUs) != 2 {
		t.Fatalf("catalog = %d/%d/%d", len(st.Publishers), len(st.Offers), len(st.SKUs))
	}
	if st.SelectedPublisher != "Canonical" || st.SelectedOffer != "ubuntu-24_04-lts" {
		t.Errorf("selection = %q/%q", st.SelectedPublisher, st.SelectedOffer)
	}
	if diff := cmp.Diff(want, st.SKUs[0].Versions); diff != "" {
		t.Errorf("SKU versions mismatch (-want +got):\n%s", diff)
	}
	if st.Loading {
		t.Error("Loading should be false once loads finish")
	}
}

func TestSelectSubscription_ClearsOldSubscriptionCache(t *testing.T) {
	c, _, srv := signedIn(t)
	ctx := context.Background()

	if err := c.LoadPublishers(ctx); err != nil {
		t.Fatalf("LoadPublishers() error = %v", err)
	}
	if err := c.LoadPublishers(ctx); err != nil {
		t.Fatalf("LoadPublishers() error = %v", err)
	}
	if srv.count("publishers") != 1 {
		t.Fatalf("second load should hit the cache, requests = %d", srv.count("publishers"))
	}

	if err := c.SelectSubscription(ctx, "sub2"); err != nil {
		t.Fatalf("SelectSubscription() error = %v", err)
	}
	if err := c.SelectSubscription(ctx, "sub1"); err != nil {
		t.Fatalf("SelectSubscription() error = %v", err)
	}

	// sub1, sub2, then sub1 again after its entries were cleared.
	if got := srv.count("publishers"); got != 3 {
		t.Errorf("publisher requests = %d, want 3", got)
	}
}

func TestSelectSubscription_Unknown(t *testing.T) {
	c, _, _ := signedIn(t)

	err := c.SelectSubscription(context.Background(), "missing")
	if !apierr.IsKind(err, apierr.KindAuthorization) {
		t.Errorf("SelectSubscription() error = %v, want authorization", err)
	}
	if got := c.Store().Snapshot().SelectedSubscription; got != "sub1" {
		t.Errorf("SelectedSubscription = %q, want sub1", got)
	}
}

func TestSelectSubscription_OtherTenantUsesTenantToken(t *testing.T) {
	c, identity, _ := signedIn(t)

	if err := c.SelectSubscription(context.Background(), "sub3"); err != nil {
		t.Fatalf("SelectSubscription() error = %v", err)
	}

	tenants := identity.issuedTenants()
	if tenants[len(tenants)-1] != "t2" {
		t.Errorf("last token tenant = %q, want t2", tenants[len(tenants)-1])
	}
}

func TestSelectLocation_ReloadsPublishers(t *testing.T) {
	c, _, srv := signedIn(t)
	ctx := context.Background()

	if err := c.LoadPublishers(ctx); err != nil {
		t.Fatalf("LoadPublishers() error = %v", err)
	}
	if err := c.SelectLocation(ctx, "westeurope"); err != nil {
		t.Fatalf("SelectLocation() error = %v", err)
	}
	if err := c.SelectLocation(ctx, "eastus"); err != nil {
		t.Fatalf("SelectLocation() error = %v", err)
	}

	if got := srv.count("publishers"); got != 3 {
		t.Errorf("publisher requests = %d, want 3 (location change clears the cache)", got)
	}
}

func TestLoad_DiscardsStaleResult(t *testing.T) {
	c, _, srv := signedIn(t)
	entered, release := srv.blockPublishers()

	done := make(chan error, 1)
	go func() { done <- c.LoadPublishers(context.Background()) }()

	<-entered
	c.Store().SelectLocation("westeurope")
	close(release)

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("LoadPublishers() error = %v, want ErrStale", err)
	}
	st := c.Store().Snapshot()
	if st.PublishersLoaded || len(st.Publishers) != 0 {
		t.Error("a stale result must not reach the store")
	}
	if st.Loading {
		t.Error("Loading should be reset after a discarded load")
	}
}

func TestLoad_ErrorGoesToStore(t *testing.T) {
	c, _, srv := signedIn(t)
	srv.setStatus(http.StatusForbidden)

	err := c.LoadPublishers(context.Background())
	if !apierr.IsKind(err, apierr.KindAuthorization) {
		t.Fatalf("LoadPublishers() error = %v, want authorization", err)
	}
	if got := c.Store().Snapshot().Error; got != apierr.UserMessage(err) {
		t.Errorf("store error = %q, want %q", got, apierr.UserMessage(err))
	}

	srv.setStatus(0)
	if err := c.LoadPublishers(context.Background()); err != nil {
		t.Fatalf("LoadPublishers() error = %v", err)
	}
	if got := c.Store().Snapshot().Error; got != "" {
		t.Errorf("a successful load should clear the error, got %q", got)
	}
}

func TestLogout(t *testing.T) {
	c, identity, _ := signedIn(t)

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	st := c.Store().Snapshot()
	if st.Authenticated || st.SelectedSubscription != "" || len(st.Subscriptions) != 0 {
		t.Errorf("store not reset: %+v", st)
	}
	if c.Account() != nil {
		t.Error("account should be forgotten")
	}
	if !identity.removed {
		t.Error("cached accounts should be removed")
	}
}

func TestTenantSwitch_ClearsCatalogCache(t *testing.T) {
	c, identity, srv := signedIn(t)
	ctx := context.Background()

	if err := c.LoadPublishers(ctx); err != nil {
		t.Fatalf("LoadPublishers() error = %v", err)
	}

	identity.mu.Lock()
	identity.userID = "u2"
	identity.mu.Unlock()
	c.factory.Home(testAccount).Tokens.(*auth.CachingProvider).Invalidate()

	if err := c.Login(ctx); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if got := c.Store().Snapshot().User.ID; got != "u2" {
		t.Fatalf("User.ID = %q, want u2", got)
	}
	if err := c.LoadPublishers(ctx); err != nil {
		t.Fatalf("LoadPublishers() error = %v", err)
	}
	// Same tenant clients, but the switch cleared their cache.
	if got := srv.count("publishers"); got != 2 {
		t.Errorf("publisher requests = %d, want 2", got)
	}
}

func TestHealth(t *testing.T) {
	c := NewCoordinator(store.New(), testFactory(newFakeIdentity(), newFakeARM(t)))
	if r := c.Health(context.Background()); r.Status != health.StatusUnhealthy {
		t.Errorf("signed out: status = %v, want unhealthy", r.Status)
	}

	c, _, _ = signedIn(t)
	r := c.Health(context.Background())
	if r.Status != health.StatusHealthy {
		t.Errorf("signed in: status = %v, want healthy (%+v)", r.Status, r.Checks)
	}
	names := make([]string, 0, len(r.Checks))
	for _, ch := range r.Checks {
		names = append(names, ch.Name)
	}
	if diff := cmp.Diff([]string{"token", "subscriptions", "catalog"}, names); diff != "" {
		t.Errorf("checks mismatch (-want +got):\n%s", diff)
	}
}
