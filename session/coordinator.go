package session

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/jonwraymond/vmcatalog/apierr"
	"github.com/jonwraymond/vmcatalog/auth"
	"github.com/jonwraymond/vmcatalog/health"
	"github.com/jonwraymond/vmcatalog/observe"
	"github.com/jonwraymond/vmcatalog/store"
)

// accountRemover is implemented by identity clients that can sign out.
type accountRemover interface {
	RemoveAccounts(ctx context.Context) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger.
func WithLogger(logger observe.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLoginHint selects the cached account with username. When no cached
// account matches, Login prompts with username as the sign-in hint.
func WithLoginHint(username string) Option {
	return func(c *Coordinator) {
		c.loginHint = username
	}
}

// Coordinator sequences sign-in, selection changes and catalog loads
// against one store and one factory.
//
// Every load captures the store generation before it starts and applies its
// result only if the generation is unchanged. Applying and selecting are
// serialized so a result can never land after the change that made it stale.
type Coordinator struct {
	store     *store.Store
	factory   *Factory
	logger    observe.Logger
	loginHint string

	// applyMu serializes selection changes with result application.
	applyMu sync.Mutex

	mu       sync.Mutex
	account  *auth.Account
	inflight int
}

// NewCoordinator creates a coordinator and registers its invalidation hook
// on st.
func NewCoordinator(st *store.Store, factory *Factory, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:   st,
		factory: factory,
		logger:  observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	st.OnInvalidate(c.invalidate)
	return c
}

// Store returns the coordinated store.
func (c *Coordinator) Store() *store.Store {
	return c.store
}

// Account returns the signed-in account, or nil.
func (c *Coordinator) Account() *auth.Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.account
}

func (c *Coordinator) invalidate(inv store.Invalidation) {
	switch inv.Change {
	case store.ChangeTenant, store.ChangeLocation:
		c.factory.ClearCache()
	case store.ChangeSubscription:
		n := c.factory.ClearCacheForSubscription(inv.Previous)
		c.logger.Debug(context.Background(), "cleared catalog cache for subscription",
			observe.Field{Key: "subscription_id", Value: inv.Previous},
			observe.Field{Key: "entries", Value: n},
		)
	}
}

// Login signs in and loads subscriptions and locations. A cached account is
// used when present; otherwise the user is prompted.
func (c *Coordinator) Login(ctx context.Context) error {
	account, err := c.cachedAccount(ctx)
	if err != nil && !errors.Is(err, ErrNotSignedIn) {
		return c.authFailed(err)
	}

	if account == nil {
		req := c.factory.signInRequest()
		if c.loginHint != "" {
			req.Account = &auth.Account{Username: c.loginHint}
		}
		tok, err := c.factory.Identity.AcquireTokenInteractive(ctx, req)
		if err != nil {
			return c.authFailed(apierr.NewAuthentication("", err))
		}
		acct := tok.Account
		account = &acct
	}
	return c.signIn(ctx, *account)
}

// Resume restores a cached sign-in without prompting for a new account.
// It returns ErrNotSignedIn when the token cache holds no account.
func (c *Coordinator) Resume(ctx context.Context) error {
	account, err := c.cachedAccount(ctx)
	if err != nil {
		return err
	}
	return c.signIn(ctx, *account)
}

func (c *Coordinator) cachedAccount(ctx context.Context) (*auth.Account, error) {
	accounts, err := c.factory.Identity.Accounts(ctx)
	if err != nil {
		return nil, apierr.NewAuthentication("", err)
	}
	if len(accounts) == 0 {
		return nil, ErrNotSignedIn
	}
	if c.loginHint == "" {
		return &accounts[0], nil
	}
	for _, a := range accounts {
		if strings.EqualFold(a.Username, c.loginHint) {
			return &a, nil
		}
	}
	return nil, ErrNotSignedIn
}

func (c *Coordinator) signIn(ctx context.Context, account auth.Account) error {
	home := c.factory.Home(account)
	token, err := home.Tokens.GetAccessToken(ctx)
	if err != nil {
		return c.authFailed(err)
	}

	user, err := auth.ClaimsFromToken(token)
	if err != nil {
		c.logger.Debug(ctx, "token carries no identity claims, using account",
			observe.Field{Key: "error", Value: err},
		)
		user = &auth.User{ID: account.HomeAccountID, TenantID: account.TenantID, Name: account.Username}
	}

	c.mu.Lock()
	c.account = &account
	c.mu.Unlock()

	c.applyMu.Lock()
	switched := c.store.Login(user)
	c.applyMu.Unlock()

	c.logger.Info(ctx, "signed in",
		observe.Field{Key: "tenant_id", Value: user.TenantID},
		observe.Field{Key: "tenant_switch", Value: switched},
	)

	if err := c.LoadSubscriptions(ctx); err != nil {
		return err
	}
	// An account without subscriptions is signed in but not ready.
	if err := c.LoadLocations(ctx); err != nil && !errors.Is(err, ErrNotReady) {
		return err
	}
	return nil
}

func (c *Coordinator) authFailed(err error) error {
	e := apierr.Classify(err)
	c.store.SetAuthError(e.Message)
	return e
}

// Logout signs out, resets the store and forgets every client.
func (c *Coordinator) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.account = nil
	c.mu.Unlock()

	c.applyMu.Lock()
	c.store.Logout()
	c.applyMu.Unlock()
	c.factory.Reset()

	if r, ok := c.factory.Identity.(accountRemover); ok {
		if err := r.RemoveAccounts(ctx); err != nil {
			return errors.Wrap(err, "remove cached accounts")
		}
	}
	return nil
}

// SelectSubscription selects id, then reloads its locations and publishers.
func (c *Coordinator) SelectSubscription(ctx context.Context, id string) error {
	c.applyMu.Lock()
	_, err := c.store.SelectSubscription(id)
	c.applyMu.Unlock()
	if err != nil {
		return err
	}

	if err := c.LoadLocations(ctx); err != nil {
		return err
	}
	return c.LoadPublishers(ctx)
}

// SelectLocation selects name and reloads publishers.
func (c *Coordinator) SelectLocation(ctx context.Context, name string) error {
	c.applyMu.Lock()
	c.store.SelectLocation(name)
	c.applyMu.Unlock()
	return c.LoadPublishers(ctx)
}

// Services returns the clients for the current selection.
func (c *Coordinator) Services() (*Services, error) {
	account := c.Account()
	if account == nil {
		return nil, ErrNotSignedIn
	}
	st := c.store.Snapshot()
	svc, ok := c.factory.Services([]auth.Account{*account}, st.Subscriptions, st.SelectedSubscription)
	if !ok {
		return nil, ErrNotReady
	}
	return svc, nil
}

// LoadSubscriptions lists the account's subscriptions.
func (c *Coordinator) LoadSubscriptions(ctx context.Context) error {
	ctx = c.withUser(ctx)
	account := c.Account()
	if account == nil {
		return ErrNotSignedIn
	}
	home := c.factory.Home(*account)

	gen := c.begin()
	list, err := home.Subscriptions.GetSubscriptions(ctx)
	return c.finish(ctx, "subscriptions", gen, err, func() {
		c.store.SetSubscriptions(list)
	})
}

// LoadLocations lists the locations of the selected subscription.
func (c *Coordinator) LoadLocations(ctx context.Context) error {
	ctx = c.withUser(ctx)
	svc, err := c.Services()
	if err != nil {
		return err
	}

	gen := c.begin()
	list, err := svc.Subscriptions.GetLocations(ctx, svc.Subscription.SubscriptionID)
	return c.finish(ctx, "locations", gen, err, func() {
		c.store.SetLocations(list)
	})
}

// LoadPublishers lists publishers in the selected location.
func (c *Coordinator) LoadPublishers(ctx context.Context) error {
	ctx = c.withUser(ctx)
	svc, err := c.Services()
	if err != nil {
		return err
	}
	st := c.store.Snapshot()

	gen := c.begin()
	list, err := svc.Catalog.GetPublishers(ctx, st.SelectedSubscription, st.SelectedLocation)
	return c.finish(ctx, "publishers", gen, err, func() {
		c.store.SetPublishers(list)
	})
}

// LoadOffers lists the offers of publisher.
func (c *Coordinator) LoadOffers(ctx context.Context, publisher string) error {
	ctx = c.withUser(ctx)
	svc, err := c.Services()
	if err != nil {
		return err
	}
	st := c.store.Snapshot()

	gen := c.begin()
	list, err := svc.Catalog.GetOffers(ctx, st.SelectedSubscription, publisher, st.SelectedLocation)
	return c.finish(ctx, "offers", gen, err, func() {
		c.store.SetOffers(list, publisher)
	})
}

// LoadSKUs lists the SKUs of an offer.
func (c *Coordinator) LoadSKUs(ctx context.Context, publisher, offer string) error {
	ctx = c.withUser(ctx)
	svc, err := c.Services()
	if err != nil {
		return err
	}
	st := c.store.Snapshot()

	gen := c.begin()
	list, err := svc.Catalog.GetSKUs(ctx, st.SelectedSubscription, publisher, offer, st.SelectedLocation)
	return c.finish(ctx, "skus", gen, err, func() {
		c.store.SetSKUs(list, publisher, offer)
	})
}

// LoadVersions lists the versions of a SKU, latest first, and records them on
// the loaded SKU when present.
func (c *Coordinator) LoadVersions(ctx context.Context, publisher, offer, sku string) ([]string, error) {
	ctx = c.withUser(ctx)
	svc, err := c.Services()
	if err != nil {
		return nil, err
	}
	st := c.store.Snapshot()

	gen := c.begin()
	versions, err := svc.Catalog.GetSKUVersions(ctx, st.SelectedSubscription, publisher, offer, sku, st.SelectedLocation)
	if err := c.finish(ctx, "versions", gen, err, func() {
		c.store.SetSKUVersions(sku, versions)
	}); err != nil {
		return nil, err
	}
	return versions, nil
}

// withUser attaches the signed-in user to ctx for request telemetry.
func (c *Coordinator) withUser(ctx context.Context) context.Context {
	if u := c.store.Snapshot().User; u != nil {
		return auth.WithUser(ctx, u)
	}
	return ctx
}

// begin marks a load in flight and returns the generation it belongs to.
func (c *Coordinator) begin() uint64 {
	c.mu.Lock()
	c.inflight++
	c.mu.Unlock()
	c.store.SetLoading(true)
	return c.store.Generation()
}

// finish applies a load result if gen is still current.
func (c *Coordinator) finish(ctx context.Context, what string, gen uint64, err error, apply func()) error {
	defer func() {
		c.mu.Lock()
		c.inflight--
		idle := c.inflight == 0
		c.mu.Unlock()
		if idle {
			c.store.SetLoading(false)
		}
	}()

	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	if c.store.Generation() != gen {
		c.logger.Debug(ctx, "discarding stale result", observe.Field{Key: "resource", Value: what})
		return ErrStale
	}
	if err != nil {
		c.store.SetError(err)
		return err
	}
	c.store.SetError(nil)
	apply()
	return nil
}

// Health checks the token and the circuit breakers of the current clients.
func (c *Coordinator) Health(ctx context.Context) health.Report {
	agg := health.NewAggregator()

	svc, err := c.Services()
	switch {
	case err == nil:
		agg.Register(health.NewTokenChecker("token", svc.Tokens))
		agg.Register(health.NewBreakerChecker("subscriptions", svc.Subscriptions.CircuitBreaker()))
		agg.Register(health.NewBreakerChecker("catalog", svc.Catalog.CircuitBreaker()))
	case c.Account() != nil:
		home := c.factory.Home(*c.Account())
		agg.Register(health.NewTokenChecker("token", home.Tokens))
		agg.Register(health.NewBreakerChecker("subscriptions", home.Subscriptions.CircuitBreaker()))
		agg.Register(health.NewCheckerFunc("catalog", func(context.Context) health.Result {
			return health.Degraded("no subscription selected")
		}))
	default:
		agg.Register(health.NewTokenChecker("token", nil))
	}
	return agg.Run(ctx)
}
