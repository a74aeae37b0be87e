package cache

import (
	"context"
	"testing"
	"time"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestLRU(size int) (*LRUCache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache(size)
	c.now = clock.now
	return c, clock
}

func TestLRUCache(t *testing.T) {
	cache, clock := newTestLRU(100)
	ctx := context.Background()
	scope := "session-001"

	t.Run("SetAndGet", func(t *testing.T) {
		if err := cache.Set(ctx, scope, "state", []byte("v1"), time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		val, err := cache.Get(ctx, scope, "state")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(val) != "v1" {
			t.Errorf("expected 'v1', got '%s'", string(val))
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		val, err := cache.Get(ctx, scope, "nonexistent")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil for cache miss, got: %v", val)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, scope, "profile", []byte("p"), time.Minute)

		if err := cache.Delete(ctx, scope, "profile"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		val, _ := cache.Get(ctx, scope, "profile")
		if val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		_ = cache.Set(ctx, scope, "expiring", []byte("temp"), 10*time.Second)

		if val, _ := cache.Get(ctx, scope, "expiring"); val == nil {
			t.Error("expected value before expiration")
		}

		clock.advance(10 * time.Second)

		if val, _ := cache.Get(ctx, scope, "expiring"); val != nil {
			t.Error("expected nil after expiration")
		}
	})

	t.Run("NonPositiveTTLRemoves", func(t *testing.T) {
		_ = cache.Set(ctx, scope, "gone", []byte("x"), time.Minute)
		_ = cache.Set(ctx, scope, "gone", []byte("y"), 0)

		if val, _ := cache.Get(ctx, scope, "gone"); val != nil {
			t.Error("expected zero ttl to remove the entry")
		}
	})

	t.Run("LRUEviction", func(t *testing.T) {
		small, _ := newTestLRU(3)

		_ = small.Set(ctx, scope, "a", []byte("1"), time.Minute)
		_ = small.Set(ctx, scope, "b", []byte("2"), time.Minute)
		_ = small.Set(ctx, scope, "c", []byte("3"), time.Minute)

		// Touch 'a' so 'b' becomes least recently used
		_, _ = small.Get(ctx, scope, "a")
		_ = small.Set(ctx, scope, "d", []byte("4"), time.Minute)

		if val, _ := small.Get(ctx, scope, "b"); val != nil {
			t.Error("expected 'b' to be evicted")
		}
		if val, _ := small.Get(ctx, scope, "a"); val == nil {
			t.Error("expected 'a' to still exist")
		}
	})

	t.Run("ScopeIsolation", func(t *testing.T) {
		_ = cache.Set(ctx, "session-a", "state", []byte("a"), time.Minute)
		_ = cache.Set(ctx, "session-b", "state", []byte("b"), time.Minute)

		valA, _ := cache.Get(ctx, "session-a", "state")
		valB, _ := cache.Get(ctx, "session-b", "state")

		if string(valA) != "a" {
			t.Errorf("expected 'a', got '%s'", string(valA))
		}
		if string(valB) != "b" {
			t.Errorf("expected 'b', got '%s'", string(valB))
		}
	})

	t.Run("RequiresScope", func(t *testing.T) {
		if err := cache.Set(ctx, "", "key", []byte("value"), time.Minute); err == nil {
			t.Error("expected error for empty scope")
		}
		if _, err := cache.Get(ctx, "", "key"); err == nil {
			t.Error("expected error for empty scope")
		}
		if _, err := cache.IncrementCounter(ctx, "", "key", time.Minute); err == nil {
			t.Error("expected error for empty scope")
		}
	})

	t.Run("IncrementCounter", func(t *testing.T) {
		window := time.Minute

		count1, err := cache.IncrementCounter(ctx, scope, "analyses", window)
		if err != nil {
			t.Fatalf("IncrementCounter failed: %v", err)
		}
		if count1 != 1 {
			t.Errorf("expected count 1, got %d", count1)
		}

		if count2, _ := cache.IncrementCounter(ctx, scope, "analyses", window); count2 != 2 {
			t.Errorf("expected count 2, got %d", count2)
		}

		clock.advance(window)

		if count3, _ := cache.IncrementCounter(ctx, scope, "analyses", window); count3 != 1 {
			t.Errorf("expected count 1 after window reset, got %d", count3)
		}
	})

	t.Run("CounterSweep", func(t *testing.T) {
		tiny, tinyClock := newTestLRU(2)
		_, _ = tiny.IncrementCounter(ctx, "s1", "n", time.Second)
		_, _ = tiny.IncrementCounter(ctx, "s2", "n", time.Second)
		tinyClock.advance(2 * time.Second)
		_, _ = tiny.IncrementCounter(ctx, "s3", "n", time.Second)

		if len(tiny.counters) != 1 {
			t.Errorf("expected expired counters swept, got %d", len(tiny.counters))
		}
	})

	t.Run("JSONHelpers", func(t *testing.T) {
		type profile struct {
			Email string `json:"email"`
		}

		if err := SetJSON(ctx, cache, scope, "profile", profile{Email: "a@b.c"}, time.Minute); err != nil {
			t.Fatalf("SetJSON failed: %v", err)
		}

		var got profile
		found, err := GetJSON(ctx, cache, scope, "profile", &got)
		if err != nil || !found {
			t.Fatalf("GetJSON failed: found=%v err=%v", found, err)
		}
		if got.Email != "a@b.c" {
			t.Errorf("expected email 'a@b.c', got '%s'", got.Email)
		}

		found, err = GetJSON(ctx, cache, scope, "missing", &got)
		if err != nil || found {
			t.Errorf("expected miss, got found=%v err=%v", found, err)
		}

		_ = cache.Set(ctx, scope, "broken", []byte("{"), time.Minute)
		if _, err := GetJSON(ctx, cache, scope, "broken", &got); err == nil {
			t.Error("expected decode error")
		}
	})

	t.Run("Stats", func(t *testing.T) {
		statsCache := NewLRUCache(50)
		_ = statsCache.Set(ctx, scope, "k1", []byte("v1"), time.Minute)
		_ = statsCache.Set(ctx, scope, "k2", []byte("v2"), time.Minute)

		size, capacity := statsCache.Stats()
		if size != 2 {
			t.Errorf("expected size 2, got %d", size)
		}
		if capacity != 50 {
			t.Errorf("expected capacity 50, got %d", capacity)
		}
	})

	t.Run("Close", func(t *testing.T) {
		testCache := NewLRUCache(10)
		_ = testCache.Set(ctx, scope, "k", []byte("v"), time.Minute)

		if err := testCache.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
		if val, _ := testCache.Get(ctx, scope, "k"); val != nil {
			t.Error("expected cache to be cleared after close")
		}
	})
}

func TestNewCache(t *testing.T) {
	t.Run("MemoryType", func(t *testing.T) {
		cache, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 100})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer cache.Close()

		if _, ok := cache.(*LRUCache); !ok {
			t.Error("expected LRUCache for memory type")
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		if _, err := New(domain.CacheConfig{Type: "memcached"}); err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}

func TestTwoPhaseLocalTTL(t *testing.T) {
	c := newTwoPhase(NewLRUCache(10), nil, time.Minute)

	if got := c.localTTL(10 * time.Second); got != 10*time.Second {
		t.Errorf("expected shorter ttl kept, got %v", got)
	}
	if got := c.localTTL(time.Hour); got != time.Minute {
		t.Errorf("expected L1 ttl cap, got %v", got)
	}
	if got := c.localTTL(0); got != time.Minute {
		t.Errorf("expected L1 ttl for no expiry, got %v", got)
	}
}

func TestRedisKey(t *testing.T) {
	if got := redisKey("sess", "state"); got != "fraudguard:sess:state" {
		t.Errorf("unexpected key %q", got)
	}
}
