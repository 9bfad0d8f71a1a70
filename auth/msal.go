package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/public"
)

// MSALConfig configures an MSALClient.
type MSALConfig struct {
	// ClientID is the application (client) id of the app registration.
	ClientID string

	// Authority is the base authority. Default: DefaultAuthority
	Authority string

	// RedirectURI is the loopback redirect for interactive sign-in.
	// Default: MSAL picks a free localhost port.
	RedirectURI string

	// CacheFile persists the MSAL token cache between runs when set.
	CacheFile string
}

// MSALClient implements IdentityClient with the Microsoft Authentication
// Library public client.
type MSALClient struct {
	client      public.Client
	redirectURI string
}

// NewMSALClient creates a public client application.
func NewMSALClient(cfg MSALConfig) (*MSALClient, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("msal: client id is required")
	}
	authority := cfg.Authority
	if authority == "" {
		authority = DefaultAuthority
	}

	opts := []public.Option{public.WithAuthority(authority)}
	if cfg.CacheFile != "" {
		opts = append(opts, public.WithCache(&FileTokenCache{Path: cfg.CacheFile}))
	}

	client, err := public.New(cfg.ClientID, opts...)
	if err != nil {
		return nil, fmt.Errorf("msal: failed to create public client: %w", err)
	}
	return &MSALClient{client: client, redirectURI: cfg.RedirectURI}, nil
}

// Accounts implements IdentityClient.
func (c *MSALClient) Accounts(ctx context.Context) ([]Account, error) {
	accounts, err := c.client.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Account, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, fromMSALAccount(a))
	}
	return out, nil
}

// AcquireTokenSilent implements IdentityClient.
//
// The public client has no force-refresh switch, so ForceRefresh fails the
// silent attempt and leaves refresh to the interactive fallback.
func (c *MSALClient) AcquireTokenSilent(ctx context.Context, req TokenRequest) (Token, error) {
	if req.ForceRefresh {
		return Token{}, ErrRefreshNotAllowed
	}
	if req.Account == nil {
		return Token{}, ErrNoAccount
	}

	account, err := c.lookup(ctx, req.Account.HomeAccountID)
	if err != nil {
		return Token{}, err
	}

	opts := []public.AcquireSilentOption{public.WithSilentAccount(account)}
	if req.TenantID != "" {
		opts = append(opts, public.WithTenantID(req.TenantID))
	}

	res, err := c.client.AcquireTokenSilent(ctx, req.Scopes, opts...)
	if err != nil {
		return Token{}, err
	}
	return fromMSALResult(res), nil
}

// AcquireTokenInteractive implements IdentityClient.
func (c *MSALClient) AcquireTokenInteractive(ctx context.Context, req TokenRequest) (Token, error) {
	var opts []public.AcquireInteractiveOption
	if req.TenantID != "" {
		opts = append(opts, public.WithTenantID(req.TenantID))
	}
	if c.redirectURI != "" {
		opts = append(opts, public.WithRedirectURI(c.redirectURI))
	}
	if req.Account != nil && req.Account.Username != "" {
		opts = append(opts, public.WithLoginHint(req.Account.Username))
	}

	res, err := c.client.AcquireTokenInteractive(ctx, req.Scopes, opts...)
	if err != nil {
		return Token{}, err
	}
	return fromMSALResult(res), nil
}

// RemoveAccounts signs every cached account out.
func (c *MSALClient) RemoveAccounts(ctx context.Context) error {
	accounts, err := c.client.Accounts(ctx)
	if err != nil {
		return err
	}
	for _, a := range accounts {
		if err := c.client.RemoveAccount(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (c *MSALClient) lookup(ctx context.Context, homeAccountID string) (public.Account, error) {
	accounts, err := c.client.Accounts(ctx)
	if err != nil {
		return public.Account{}, err
	}
	for _, a := range accounts {
		if a.HomeAccountID == homeAccountID {
			return a, nil
		}
	}
	return public.Account{}, ErrAccountNotFound
}

func fromMSALAccount(a public.Account) Account {
	return Account{
		HomeAccountID: a.HomeAccountID,
		Username:      a.PreferredUsername,
		TenantID:      a.Realm,
	}
}

func fromMSALResult(res public.AuthResult) Token {
	return Token{
		AccessToken: res.AccessToken,
		ExpiresOn:   res.ExpiresOn,
		Account:     fromMSALAccount(res.Account),
	}
}

// FileTokenCache persists the MSAL token cache in a single file.
type FileTokenCache struct {
	Path string
}

// Replace loads the cache file into c. A missing file leaves c empty.
func (f *FileTokenCache) Replace(_ context.Context, c cache.Unmarshaler, _ cache.ReplaceHints) error {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read token cache: %w", err)
	}
	return c.Unmarshal(data)
}

// Export writes c to the cache file atomically with owner-only permissions.
func (f *FileTokenCache) Export(_ context.Context, c cache.Marshaler, _ cache.ExportHints) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	return writeFileAtomic(f.Path, data, 0o600)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var (
	_ IdentityClient       = (*MSALClient)(nil)
	_ cache.ExportReplace = (*FileTokenCache)(nil)
)
