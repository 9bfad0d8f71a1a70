// Package auth acquires Azure Resource Manager access tokens.
//
// TokenProvider is the capability every ARM client depends on. The reference
// implementation, InteractiveProvider, asks an IdentityClient for a token
// silently and falls back to interactive sign-in with the same request.
// NewTenantProvider scopes acquisition to the tenant that owns a subscription,
// which matters when a user's subscription lives outside their home tenant.
// MSALClient adapts the Microsoft Authentication Library to IdentityClient.
//
// The package also decodes the signed-in user from an access token and
// defines when a new sign-in counts as a tenant switch.
package auth
