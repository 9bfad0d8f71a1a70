package cache

import "time"

// DefaultTTL is the lifetime of catalog list entries.
const DefaultTTL = 5 * time.Minute

// Policy configures the TTL of each catalog level.
type Policy struct {
	// PublishersTTL, OffersTTL and SKUsTTL are the per-level lifetimes.
	// Zero disables caching for that level.
	PublishersTTL time.Duration
	OffersTTL     time.Duration
	SKUsTTL       time.Duration

	// MaxTTL is the maximum allowed TTL. Level TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration
}

// DefaultPolicy returns the default caching policy.
// Every level: 5 minutes, MaxTTL: 1 hour
func DefaultPolicy() Policy {
	return Policy{
		PublishersTTL: DefaultTTL,
		OffersTTL:     DefaultTTL,
		SKUsTTL:       DefaultTTL,
		MaxTTL:        time.Hour,
	}
}

// UniformPolicy returns a policy with the same TTL at every level.
func UniformPolicy(ttl time.Duration) Policy {
	return Policy{
		PublishersTTL: ttl,
		OffersTTL:     ttl,
		SKUsTTL:       ttl,
	}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// ShouldCache returns true if any level is cached.
func (p Policy) ShouldCache() bool {
	return p.PublishersTTL > 0 || p.OffersTTL > 0 || p.SKUsTTL > 0
}

// EffectiveTTL clamps ttl to MaxTTL. Non-positive values stay zero.
func (p Policy) EffectiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}
