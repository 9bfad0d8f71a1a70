package auth

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/jonwraymond/vmcatalog/apierr"
	"github.com/jonwraymond/vmcatalog/observe"
)

// ManagementScope is the delegated scope for Azure Resource Manager.
const ManagementScope = "https://management.azure.com/user_impersonation"

// DefaultAuthority is the multi-tenant work and school authority.
const DefaultAuthority = "https://login.microsoftonline.com/organizations"

// TokenProvider supplies bearer tokens for ARM requests.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: failures are *apierr.Error of kind Authentication.
type TokenProvider interface {
	GetAccessToken(ctx context.Context) (string, error)
}

// TokenProviderFunc adapts a function to TokenProvider.
type TokenProviderFunc func(ctx context.Context) (string, error)

// GetAccessToken calls f.
func (f TokenProviderFunc) GetAccessToken(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticProvider returns a fixed token.
type StaticProvider string

// GetAccessToken returns the token, or an Authentication error when empty.
func (p StaticProvider) GetAccessToken(context.Context) (string, error) {
	if p == "" {
		return "", apierr.NewAuthentication("", ErrEmptyToken)
	}
	return string(p), nil
}

// IdentityClient is the boundary to the external identity SDK.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - AcquireTokenInteractive may block until the user completes sign-in.
type IdentityClient interface {
	// Accounts lists the accounts in the client's token cache.
	Accounts(ctx context.Context) ([]Account, error)

	// AcquireTokenSilent returns a cached or refreshed token without user interaction.
	AcquireTokenSilent(ctx context.Context, req TokenRequest) (Token, error)

	// AcquireTokenInteractive signs the user in.
	AcquireTokenInteractive(ctx context.Context, req TokenRequest) (Token, error)
}

// TenantAuthority replaces the tenant segment of base with tenantID.
// An empty tenantID returns base unchanged.
//
//	TenantAuthority("https://login.microsoftonline.com/organizations", "t1")
//	// https://login.microsoftonline.com/t1
func TenantAuthority(base, tenantID string) string {
	if tenantID == "" {
		return base
	}
	if base == "" {
		base = DefaultAuthority
	}
	base = strings.TrimRight(base, "/")
	i := strings.LastIndex(base, "/")
	if i < 0 || strings.HasSuffix(base[:i], ":/") {
		return base + "/" + tenantID
	}
	return base[:i] + "/" + tenantID
}

// ProviderOption configures an InteractiveProvider.
type ProviderOption func(*InteractiveProvider)

// WithScopes overrides the requested scopes. Default: ManagementScope.
func WithScopes(scopes ...string) ProviderOption {
	return func(p *InteractiveProvider) {
		if len(scopes) > 0 {
			p.scopes = scopes
		}
	}
}

// WithAuthority sets the base authority. Default: DefaultAuthority.
func WithAuthority(authority string) ProviderOption {
	return func(p *InteractiveProvider) {
		if authority != "" {
			p.authority = authority
		}
	}
}

// WithTenant scopes acquisition to tenantID.
func WithTenant(tenantID string) ProviderOption {
	return func(p *InteractiveProvider) {
		p.tenantID = tenantID
	}
}

// WithForceRefresh bypasses cached tokens on silent acquisition.
func WithForceRefresh(force bool) ProviderOption {
	return func(p *InteractiveProvider) {
		p.forceRefresh = force
	}
}

// WithLogger sets the logger used to report interactive fallback.
func WithLogger(logger observe.Logger) ProviderOption {
	return func(p *InteractiveProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// InteractiveProvider acquires tokens silently and falls back to interactive
// sign-in with the same request when silent acquisition fails.
type InteractiveProvider struct {
	client       IdentityClient
	account      *Account
	scopes       []string
	authority    string
	tenantID     string
	forceRefresh bool
	logger       observe.Logger
}

// NewInteractiveProvider creates a provider bound to account. A nil account
// yields a provider whose every call fails with an Authentication error.
func NewInteractiveProvider(client IdentityClient, account *Account, opts ...ProviderOption) *InteractiveProvider {
	p := &InteractiveProvider{
		client:    client,
		account:   account,
		scopes:    []string{ManagementScope},
		authority: DefaultAuthority,
		logger:    observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewTenantProvider creates a provider that acquires tokens from the
// authority of tenantID instead of the multi-tenant authority.
func NewTenantProvider(client IdentityClient, account *Account, tenantID string, opts ...ProviderOption) *InteractiveProvider {
	return NewInteractiveProvider(client, account, append(opts, WithTenant(tenantID))...)
}

// TenantID returns the tenant the provider is scoped to, or "".
func (p *InteractiveProvider) TenantID() string {
	return p.tenantID
}

// Request returns the token request the provider issues.
func (p *InteractiveProvider) Request() TokenRequest {
	return TokenRequest{
		Scopes:       p.scopes,
		Account:      p.account,
		Authority:    TenantAuthority(p.authority, p.tenantID),
		TenantID:     p.tenantID,
		ForceRefresh: p.forceRefresh,
	}
}

// GetAccessToken implements TokenProvider.
func (p *InteractiveProvider) GetAccessToken(ctx context.Context) (string, error) {
	if p.account == nil || p.client == nil {
		return "", apierr.NewAuthentication("No account found. Please sign in.", ErrNoAccount)
	}

	req := p.Request()

	tok, silentErr := p.client.AcquireTokenSilent(ctx, req)
	if silentErr == nil && tok.AccessToken != "" {
		return tok.AccessToken, nil
	}
	if silentErr == nil {
		silentErr = ErrEmptyToken
	}

	// Don't open a sign-in prompt for a caller that already gave up.
	if ctx.Err() != nil {
		return "", apierr.Classify(ctx.Err())
	}

	p.logger.Warn(ctx, "silent token acquisition failed, falling back to interactive",
		observe.Field{Key: "tenant_id", Value: p.tenantID},
		observe.Field{Key: "error", Value: silentErr},
	)

	tok, err := p.client.AcquireTokenInteractive(ctx, req)
	if err != nil {
		return "", apierr.NewAuthentication("", errors.WithSecondaryError(err, silentErr))
	}
	if tok.AccessToken == "" {
		return "", apierr.NewAuthentication("", ErrEmptyToken)
	}
	return tok.AccessToken, nil
}

var (
	_ TokenProvider = (*InteractiveProvider)(nil)
	_ TokenProvider = StaticProvider("")
	_ TokenProvider = TokenProviderFunc(nil)
)
