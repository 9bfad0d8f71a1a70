package cache

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry is a cached value with the time it was stored.
type Entry[T any] struct {
	Data      T
	Timestamp time.Time
	TTL       time.Duration
}

// Expired reports whether the entry is older than its TTL at now.
func (e Entry[T]) Expired(now time.Time) bool {
	return now.Sub(e.Timestamp) > e.TTL
}

// Option configures a TTLCache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock sets the clock used to stamp and expire entries.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// TTLCache is an in-memory cache whose entries expire after a fixed TTL.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Expiry is lazy; expired entries are removed on Get, Len and Keys.
// - A TTL <= 0 disables caching: Set is a no-op.
type TTLCache[T any] struct {
	ttl time.Duration
	now func() time.Time

	mu         sync.RWMutex
	entries    map[string]Entry[T]
	generation uint64
}

// NewTTLCache creates a cache whose entries live for ttl.
func NewTTLCache[T any](ttl time.Duration, opts ...Option) *TTLCache[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTLCache[T]{
		ttl:     ttl,
		now:     o.now,
		entries: make(map[string]Entry[T]),
	}
}

// TTL returns the default entry lifetime.
func (c *TTLCache[T]) TTL() time.Duration {
	return c.ttl
}

// Get returns the value for key. Returns the zero value and false on miss or
// expiry.
func (c *TTLCache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	var zero T
	if !ok {
		return zero, false
	}

	if entry.Expired(c.now()) {
		c.mu.Lock()
		// Re-check; a concurrent Set may have refreshed the entry.
		if cur, ok := c.entries[key]; ok && cur.Timestamp.Equal(entry.Timestamp) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return zero, false
	}

	return entry.Data, true
}

// Set stores value under key with the cache's TTL.
func (c *TTLCache[T]) Set(key string, value T) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key with an explicit TTL.
func (c *TTLCache[T]) SetWithTTL(key string, value T, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	c.entries[key] = Entry[T]{Data: value, Timestamp: c.now(), TTL: ttl}
	c.mu.Unlock()
}

// setIfGeneration stores value only if no Clear or DeletePrefix happened
// since gen was read.
func (c *TTLCache[T]) setIfGeneration(key string, value T, gen uint64) bool {
	if c.ttl <= 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return false
	}
	c.entries[key] = Entry[T]{Data: value, Timestamp: c.now(), TTL: c.ttl}
	return true
}

// Delete removes key. Idempotent.
func (c *TTLCache[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *TTLCache[T]) Clear() {
	c.mu.Lock()
	clear(c.entries)
	c.generation++
	c.mu.Unlock()
}

// DeletePrefix removes every entry whose key starts with prefix and returns
// how many were removed.
func (c *TTLCache[T]) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			n++
		}
	}
	c.generation++
	return n
}

// Len returns the number of live entries.
func (c *TTLCache[T]) Len() int {
	return len(c.Keys())
}

// Keys returns the live keys in sorted order.
func (c *TTLCache[T]) Keys() []string {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for key, entry := range c.entries {
		if entry.Expired(now) {
			delete(c.entries, key)
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Generation returns a counter bumped by Clear and DeletePrefix.
func (c *TTLCache[T]) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}
