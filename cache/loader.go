package cache

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// Loader is a read-through cache.
//
// On hit the cached value is returned without calling fetch. On miss,
// concurrent callers for the same key share one fetch. Errors are not cached,
// and a result is dropped if the cache was cleared while it was in flight.
//
// The shared fetch does not inherit cancellation from the caller that started
// it. A cancelled caller returns its own context error and the fetch carries
// on for the others.
type Loader[T any] struct {
	cache *TTLCache[T]
	group singleflight.Group
}

// NewLoader wraps c with read-through loading.
func NewLoader[T any](c *TTLCache[T]) *Loader[T] {
	return &Loader[T]{cache: c}
}

// Cache returns the underlying cache.
func (l *Loader[T]) Cache() *TTLCache[T] {
	return l.cache
}

// Load returns the value for key, calling fetch on a miss.
// hit reports whether the value came from the cache.
func (l *Loader[T]) Load(ctx context.Context, key string, fetch func(context.Context) (T, error)) (v T, hit bool, err error) {
	if cached, ok := l.cache.Get(key); ok {
		return cached, true, nil
	}
	if err := ctx.Err(); err != nil {
		return v, false, err
	}

	gen := l.cache.Generation()
	fetchCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(key, func() (any, error) {
		result, err := fetch(fetchCtx)
		if err != nil {
			return result, err
		}
		l.cache.setIfGeneration(key, result, gen)
		return result, nil
	})

	select {
	case <-ctx.Done():
		return v, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return v, false, res.Err
		}
		typed, ok := res.Val.(T)
		if !ok {
			return v, false, fmt.Errorf("cache: unexpected result type %T", res.Val)
		}
		return typed, false, nil
	}
}

// Clear drops every cached entry. Fetches already in flight still return to
// their callers but are not stored.
func (l *Loader[T]) Clear() {
	l.cache.Clear()
}

// DeletePrefix drops the entries under prefix.
func (l *Loader[T]) DeletePrefix(prefix string) int {
	return l.cache.DeletePrefix(prefix)
}
