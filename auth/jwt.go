package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the Microsoft identity platform claims read from an ARM access
// token.
type Claims struct {
	ObjectID          string `json:"oid"`
	TenantID          string `json:"tid"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	UPN               string `json:"upn"`
	jwt.RegisteredClaims
}

// ParseClaims decodes token without verifying its signature.
//
// The token was just issued to this process by the identity platform and is
// only inspected for display and cache expiry; ARM verifies it on use.
func ParseClaims(token string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}
	return &claims, nil
}

// ClaimsFromToken returns the user an access token was issued to.
func ClaimsFromToken(token string) (*User, error) {
	claims, err := ParseClaims(token)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:       firstNonEmpty(claims.ObjectID, claims.Subject),
		TenantID: claims.TenantID,
		Name:     firstNonEmpty(claims.Name, claims.PreferredUsername, claims.UPN),
	}
	if u.ID == "" {
		return nil, fmt.Errorf("%w: no oid or sub claim", ErrTokenMalformed)
	}
	return u, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// DefaultExpirySkew is how long before exp a cached token is refreshed.
const DefaultExpirySkew = 2 * time.Minute

// CachingOption configures a CachingProvider.
type CachingOption func(*CachingProvider)

// WithExpirySkew sets how early a cached token is refreshed.
func WithExpirySkew(skew time.Duration) CachingOption {
	return func(p *CachingProvider) {
		if skew >= 0 {
			p.skew = skew
		}
	}
}

// WithTokenClock sets the clock used for expiry checks.
func WithTokenClock(now func() time.Time) CachingOption {
	return func(p *CachingProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// CachingProvider reuses a token from next until shortly before its exp
// claim. Tokens without a readable exp are returned but never cached.
//
// Acquisition is serialized so concurrent callers never trigger more than one
// sign-in prompt.
type CachingProvider struct {
	next TokenProvider
	skew time.Duration
	now  func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewCachingProvider wraps next.
func NewCachingProvider(next TokenProvider, opts ...CachingOption) *CachingProvider {
	p := &CachingProvider{
		next: next,
		skew: DefaultExpirySkew,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetAccessToken implements TokenProvider.
func (p *CachingProvider) GetAccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && p.now().Add(p.skew).Before(p.expires) {
		return p.token, nil
	}

	token, err := p.next.GetAccessToken(ctx)
	if err != nil {
		p.token = ""
		return "", err
	}

	p.token = ""
	if claims, err := ParseClaims(token); err == nil && claims.ExpiresAt != nil {
		p.token = token
		p.expires = claims.ExpiresAt.Time
	}
	return token, nil
}

// Invalidate drops the cached token.
func (p *CachingProvider) Invalidate() {
	p.mu.Lock()
	p.token = ""
	p.mu.Unlock()
}

var _ TokenProvider = (*CachingProvider)(nil)
