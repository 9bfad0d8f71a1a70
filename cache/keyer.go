package cache

import "strings"

// KeySeparator joins the parts of a cache key.
const KeySeparator = "-"

// Key builds a subscription scoped cache key.
//
// The subscription ID always comes first so that
// DeletePrefix(SubscriptionPrefix(id)) drops every entry of one subscription:
//
//	Key(sub, location)                   // publishers
//	Key(sub, publisher, location)        // offers
//	Key(sub, publisher, offer, location) // SKUs
func Key(subscriptionID string, parts ...string) string {
	var b strings.Builder
	b.WriteString(subscriptionID)
	for _, p := range parts {
		b.WriteString(KeySeparator)
		b.WriteString(p)
	}
	return b.String()
}

// SubscriptionPrefix returns the key prefix shared by every entry of
// subscriptionID.
func SubscriptionPrefix(subscriptionID string) string {
	return subscriptionID + KeySeparator
}
