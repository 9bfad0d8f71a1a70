package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestTTLCache_GetSetDelete(t *testing.T) {
	c := NewTTLCache[[]string](time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache should return ok=false")
	}

	c.Set("sub-eastus", []string{"Canonical"})

	got, ok := c.Get("sub-eastus")
	if !ok {
		t.Fatal("Get after Set should return ok=true")
	}
	if diff := cmp.Diff([]string{"Canonical"}, got); diff != "" {
		t.Errorf("Get mismatch (-want +got):\n%s", diff)
	}

	c.Delete("sub-eastus")
	if _, ok := c.Get("sub-eastus"); ok {
		t.Error("Get after Delete should return ok=false")
	}

	// Delete is idempotent.
	c.Delete("sub-eastus")
}

func TestTTLCache_LazyExpiry(t *testing.T) {
	clock := newTestClock()
	c := NewTTLCache[int](5*time.Minute, WithClock(clock.Now))

	c.Set("k", 1)

	clock.Advance(5 * time.Minute)
	if _, ok := c.Get("k"); !ok {
		t.Error("entry at exactly TTL age should still be fresh")
	}

	clock.Advance(time.Nanosecond)
	if _, ok := c.Get("k"); ok {
		t.Error("entry older than TTL should be expired")
	}

	c.mu.RLock()
	_, stored := c.entries["k"]
	c.mu.RUnlock()
	if stored {
		t.Error("expired entry should be evicted on read")
	}
}

func TestTTLCache_ZeroTTLDisablesCaching(t *testing.T) {
	c := NewTTLCache[string](0)
	c.Set("k", "v")

	if _, ok := c.Get("k"); ok {
		t.Error("TTL=0 cache should not store values")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestTTLCache_SetWithTTL(t *testing.T) {
	clock := newTestClock()
	c := NewTTLCache[string](time.Hour, WithClock(clock.Now))

	c.SetWithTTL("short", "v", time.Second)
	c.Set("long", "v")

	clock.Advance(2 * time.Second)

	if _, ok := c.Get("short"); ok {
		t.Error("short entry should have expired")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("long entry should still be fresh")
	}
}

func TestTTLCache_DeletePrefix(t *testing.T) {
	c := NewTTLCache[int](time.Minute)
	c.Set(Key("sub1", "eastus"), 1)
	c.Set(Key("sub1", "Canonical", "eastus"), 2)
	c.Set(Key("sub10", "eastus"), 3)
	c.Set(Key("sub2", "eastus"), 4)

	n := c.DeletePrefix(SubscriptionPrefix("sub1"))
	if n != 2 {
		t.Errorf("DeletePrefix() = %d, want 2", n)
	}

	want := []string{"sub10-eastus", "sub2-eastus"}
	if diff := cmp.Diff(want, c.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
}

func TestTTLCache_Clear(t *testing.T) {
	c := NewTTLCache[int](time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	gen := c.Generation()
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", c.Len())
	}
	if c.Generation() == gen {
		t.Error("Clear should bump the generation")
	}
}

func TestTTLCache_KeysSkipsExpired(t *testing.T) {
	clock := newTestClock()
	c := NewTTLCache[int](time.Minute, WithClock(clock.Now))

	c.Set("old", 1)
	clock.Advance(2 * time.Minute)
	c.Set("new", 2)

	if diff := cmp.Diff([]string{"new"}, c.Keys()); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}
}

func TestTTLCache_Concurrent(t *testing.T) {
	c := NewTTLCache[int](time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := Key("sub", "loc", string(rune('a'+i%26)))
			c.Set(key, i)
			c.Get(key)
			if i%10 == 0 {
				c.DeletePrefix("sub-")
			}
			_ = c.Keys()
		}(i)
	}
	wg.Wait()
}

func TestEntry_Expired(t *testing.T) {
	now := time.Now()
	e := Entry[string]{Data: "x", Timestamp: now, TTL: time.Minute}

	if e.Expired(now.Add(time.Minute)) {
		t.Error("entry should not be expired at exactly TTL")
	}
	if !e.Expired(now.Add(time.Minute + time.Millisecond)) {
		t.Error("entry should be expired past TTL")
	}
}
