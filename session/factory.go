package session

import (
	"sync"

	"github.com/jonwraymond/vmcatalog/arm"
	"github.com/jonwraymond/vmcatalog/auth"
	"github.com/jonwraymond/vmcatalog/observe"
)

// Services are the clients for one selected subscription.
type Services struct {
	// Subscription is the resolved selected subscription.
	Subscription arm.Subscription

	Tokens        auth.TokenProvider
	Subscriptions *arm.SubscriptionClient
	Catalog       *arm.CatalogClient
}

// Home are the clients scoped to an account's home authority. They list
// subscriptions before any subscription is selected.
type Home struct {
	Account       auth.Account
	Tokens        auth.TokenProvider
	Subscriptions *arm.SubscriptionClient
}

// Factory builds Services for the current selection. Results are memoized
// on the account, the selected subscription and its tenant.
//
// Clients are shared per (account, tenant), so cached catalog pages survive a
// switch between two subscriptions of the same tenant. The zero Factory is
// not usable; set Identity.
type Factory struct {
	Identity auth.IdentityClient

	// Scopes default to auth.ManagementScope.
	Scopes []string

	// Authority defaults to auth.DefaultAuthority.
	Authority string

	// Options are applied to every client the factory builds.
	Options []arm.Option

	Logger observe.Logger

	mu      sync.Mutex
	key     servicesKey
	current *Services
	tenants map[tenantKey]*tenantClients
	homes   map[string]*Home
}

type servicesKey struct {
	account      string
	subscription string
	tenant       string
}

type tenantKey struct {
	account string
	tenant  string
}

type tenantClients struct {
	tokens        *auth.CachingProvider
	subscriptions *arm.SubscriptionClient
	catalog       *arm.CatalogClient
}

// Services returns the clients for selectedID. It reports false, with no
// error, when there is no account or selectedID is not in subscriptions;
// callers treat that as "not ready".
//
// The first account is the active one.
func (f *Factory) Services(accounts []auth.Account, subscriptions []arm.Subscription, selectedID string) (*Services, bool) {
	if len(accounts) == 0 || selectedID == "" {
		return nil, false
	}
	account := accounts[0]

	var sub arm.Subscription
	found := false
	for _, s := range subscriptions {
		if s.SubscriptionID == selectedID {
			sub, found = s, true
			break
		}
	}
	if !found {
		return nil, false
	}

	key := servicesKey{account: account.HomeAccountID, subscription: sub.SubscriptionID, tenant: sub.TenantID}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current != nil && f.key == key {
		return f.current, true
	}

	tc := f.tenantLocked(account, sub.TenantID)
	f.key = key
	f.current = &Services{
		Subscription:  sub,
		Tokens:        tc.tokens,
		Subscriptions: tc.subscriptions,
		Catalog:       tc.catalog,
	}
	return f.current, true
}

// Home returns the home-authority clients for account.
func (f *Factory) Home(account auth.Account) *Home {
	f.mu.Lock()
	defer f.mu.Unlock()

	if h, ok := f.homes[account.HomeAccountID]; ok {
		return h
	}
	if f.homes == nil {
		f.homes = make(map[string]*Home)
	}

	tokens := auth.NewCachingProvider(auth.NewInteractiveProvider(f.Identity, &account, f.providerOptions()...))
	h := &Home{
		Account:       account,
		Tokens:        tokens,
		Subscriptions: arm.NewSubscriptionClient(tokens, f.Options...),
	}
	f.homes[account.HomeAccountID] = h
	return h
}

func (f *Factory) tenantLocked(account auth.Account, tenantID string) *tenantClients {
	k := tenantKey{account: account.HomeAccountID, tenant: tenantID}
	if tc, ok := f.tenants[k]; ok {
		return tc
	}
	if f.tenants == nil {
		f.tenants = make(map[tenantKey]*tenantClients)
	}

	tokens := auth.NewCachingProvider(auth.NewTenantProvider(f.Identity, &account, tenantID, f.providerOptions()...))
	tc := &tenantClients{
		tokens:        tokens,
		subscriptions: arm.NewSubscriptionClient(tokens, f.Options...),
		catalog:       arm.NewCatalogClient(tokens, f.Options...),
	}
	f.tenants[k] = tc
	return tc
}

func (f *Factory) providerOptions() []auth.ProviderOption {
	opts := []auth.ProviderOption{
		auth.WithScopes(f.Scopes...),
		auth.WithAuthority(f.Authority),
	}
	if f.Logger != nil {
		opts = append(opts, auth.WithLogger(f.Logger))
	}
	return opts
}

// signInRequest is the request for a first, interactive sign-in.
func (f *Factory) signInRequest() auth.TokenRequest {
	return auth.NewInteractiveProvider(f.Identity, nil, f.providerOptions()...).Request()
}

// ClearCache clears the catalog cache of every client the factory built.
func (f *Factory) ClearCache() {
	for _, c := range f.catalogs() {
		c.ClearCache()
	}
}

// ClearCacheForSubscription drops the cached catalog entries of
// subscriptionID and returns how many were removed.
func (f *Factory) ClearCacheForSubscription(subscriptionID string) int {
	n := 0
	for _, c := range f.catalogs() {
		n += c.ClearCacheForSubscription(subscriptionID)
	}
	return n
}

func (f *Factory) catalogs() []*arm.CatalogClient {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*arm.CatalogClient, 0, len(f.tenants))
	for _, tc := range f.tenants {
		out = append(out, tc.catalog)
	}
	return out
}

// Reset forgets every client and cached token.
func (f *Factory) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, tc := range f.tenants {
		tc.tokens.Invalidate()
	}
	for _, h := range f.homes {
		if c, ok := h.Tokens.(*auth.CachingProvider); ok {
			c.Invalidate()
		}
	}
	f.tenants = nil
	f.homes = nil
	f.current = nil
	f.key = servicesKey{}
}
