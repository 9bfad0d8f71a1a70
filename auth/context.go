package auth

import (
	"context"
)

type contextKey int

const userKey contextKey = iota

// WithUser returns a new context with the signed-in user attached.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext retrieves the user from the context.
// Returns nil if no user is present.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userKey).(*User)
	return u
}

// TenantIDFromContext retrieves the tenant ID of the user in the context.
// Returns empty string if no user is present.
func TenantIDFromContext(ctx context.Context) string {
	u := UserFromContext(ctx)
	if u == nil {
		return ""
	}
	return u.TenantID
}
