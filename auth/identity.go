package auth

import "time"

// Account is a signed-in identity known to the identity client.
type Account struct {
	// HomeAccountID uniquely identifies the account across tenants.
	HomeAccountID string

	// Username is the preferred username, usually an email address.
	Username string

	// TenantID is the home tenant.
	TenantID string
}

// User is the signed-in user as shown to the application.
type User struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	Name     string `json:"name"`
}

// IsTenantSwitch reports whether signing in as next replaces a different
// identity. The first sign-in (prev == nil) is not a switch.
func IsTenantSwitch(prev, next *User) bool {
	if prev == nil || next == nil {
		return false
	}
	return prev.ID != next.ID || prev.TenantID != next.TenantID
}

// TokenRequest is one token acquisition.
type TokenRequest struct {
	Scopes       []string
	Account      *Account
	Authority    string
	TenantID     string
	ForceRefresh bool
}

// Token is an acquired access token.
type Token struct {
	AccessToken string
	ExpiresOn   time.Time
	Account     Account
}

// Expired reports whether the token is expired at now, allowing skew.
func (t Token) Expired(now time.Time, skew time.Duration) bool {
	if t.ExpiresOn.IsZero() {
		return false
	}
	return !now.Add(skew).Before(t.ExpiresOn)
}
