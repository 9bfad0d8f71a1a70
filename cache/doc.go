// Package cache provides the time-bounded memoization used by the catalog
// client.
//
// TTLCache is a generic in-memory cache with lazy expiry: an entry older than
// its TTL is evicted when it is next read. Keys are built with Key, which
// scopes every entry to a subscription so a subscription switch can drop
// exactly its entries with DeletePrefix. Loader layers per-key in-flight
// coalescing on top of a TTLCache so concurrent misses for the same key issue
// a single upstream request.
package cache
