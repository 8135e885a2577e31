package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryCache_GetSet(t *testing.T) {
	c := NewMemoryCache[string](0)

	t.Run("set and get", func(t *testing.T) {
		c.Set("key", "value", time.Hour)

		val, ok := c.Get("key")
		if !ok {
			t.Fatal("expected key to exist")
		}
		if val != "value" {
			t.Errorf("Get() = %v, want %v", val, "value")
		}
	})

	t.Run("missing key", func(t *testing.T) {
		if _, ok := c.Get("missing"); ok {
			t.Error("expected key to not exist")
		}
	})

	t.Run("expired entry", func(t *testing.T) {
		c.Set("expired", "value", -time.Hour)

		if _, ok := c.Get("expired"); ok {
			t.Error("expected expired key to not exist")
		}
	})
}

func TestMemoryCache_DeleteClear(t *testing.T) {
	c := NewMemoryCache[int](0)
	c.Set("a", 1, time.Hour)
	c.Set("b", 2, time.Hour)

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("expected key to be deleted")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", c.Len())
	}
}

func TestMemoryCache_Cleanup(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache[int](0)
	c.now = func() time.Time { return now }

	c.Set("short", 1, time.Minute)
	c.Set("long", 2, time.Hour)
	now = now.Add(2 * time.Minute)

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 before cleanup", c.Len())
	}
	c.Cleanup()
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after cleanup", c.Len())
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("live entry removed by cleanup")
	}
}

func TestMemoryCache_MaxEntries(t *testing.T) {
	c := NewMemoryCache[int](2)
	c.Set("a", 1, time.Hour)
	c.Set("b", 2, time.Hour)
	c.Set("a", 10, time.Hour) // overwrite does not evict
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}

	c.Set("c", 3, time.Hour)
	if _, ok := c.Get("b"); ok {
		t.Error("oldest insertion should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 10 {
		t.Errorf("Get(a) = %v, %v; want 10, true", v, ok)
	}

	c = NewMemoryCache[int](2)
	c.Set("stale", 0, -time.Hour)
	c.Set("live", 1, time.Hour)
	c.Set("new", 2, time.Hour)
	if _, ok := c.Get("live"); !ok {
		t.Error("expired entries should be dropped before live ones")
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c := NewMemoryCache[int](8)
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%4)
			c.Set(key, i, time.Hour)
			c.Get(key)
		}()
	}
	wg.Wait()
	if c.Len() > 8 {
		t.Errorf("Len() = %d exceeds bound", c.Len())
	}
}

func TestComputeKey(t *testing.T) {
	a := ComputeKey([]byte("model A { id Int @id }"))
	b := ComputeKey([]byte("model A { id Int @id }"))
	if a != b || len(a) != 32 {
		t.Fatalf("ComputeKey not stable: %q %q", a, b)
	}
	if ComputeKey([]byte("model B { id Int @id }")) == a {
		t.Fatal("distinct content produced the same key")
	}
	if got := ComputeKeyWithPrefix("strict", []byte("x")); got != "strict:"+ComputeKey([]byte("x")) {
		t.Fatalf("ComputeKeyWithPrefix = %q", got)
	}
}
