package cache

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *clock) {
	clk := &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUCache_Expiry(t *testing.T) {
	c, clk := newTestCache(4, time.Minute)
	c.Set("registry", "v1")

	if got, ok := c.Get("registry"); !ok || got != "v1" {
		t.Fatalf("Get() = %q, %v; want v1, true", got, ok)
	}

	clk.t = clk.t.Add(2 * time.Minute)
	if _, ok := c.Get("registry"); ok {
		t.Fatal("expired entry must not be returned")
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d after expiry, want 0", c.Size())
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be cached", k)
		}
	}
}

func TestLRUCache_DeleteAndOverwrite(t *testing.T) {
	c, _ := newTestCache(2, time.Hour)
	c.Set("a", "1")
	c.Set("a", "2")
	if got, _ := c.Get("a"); got != "2" || c.Size() != 1 {
		t.Fatalf("overwrite: got %q size %d", got, c.Size())
	}
	c.Delete("a")
	c.Delete("missing")
	if c.Size() != 0 {
		t.Errorf("Size() = %d after delete, want 0", c.Size())
	}
}

func TestLRUCache_Stats(t *testing.T) {
	c, clk := newTestCache(2, time.Minute)
	c.Get("registry")
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")
	c.Set("c", "3")
	clk.t = clk.t.Add(2 * time.Minute)
	c.Get("c")

	want := Stats{Hits: 1, Misses: 2, Evictions: 1, Expirations: 1, Size: 1}
	if got := c.Stats(); got != want {
		t.Fatalf("Stats() = %+v, want %+v", got, want)
	}
	if n := c.CleanExpired(); n != 1 || c.Stats().Expirations != 2 || c.Stats().Size != 0 {
		t.Fatalf("CleanExpired() = %d, stats %+v", n, c.Stats())
	}
}

func TestLRUCache_OverwriteRefreshesDeadline(t *testing.T) {
	c, clk := newTestCache(2, time.Minute)
	c.Set("a", "1")
	clk.t = clk.t.Add(50 * time.Second)
	c.Set("a", "2")
	clk.t = clk.t.Add(50 * time.Second)
	if got, ok := c.Get("a"); !ok || got != "2" {
		t.Fatalf("Get() = %q, %v; a rewrite must restart the ttl", got, ok)
	}
	clk.t = clk.t.Add(20 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("a read must not extend the ttl")
	}
}

func TestJanitor_Sweep(t *testing.T) {
	c, clk := newTestCache(8, time.Minute)
	c.Set("old", "x")
	clk.t = clk.t.Add(30 * time.Second)
	c.Set("new", "y")
	clk.t = clk.t.Add(45 * time.Second)

	j := NewJanitor(c)
	if n := j.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
	if _, ok := c.Get("new"); !ok {
		t.Error("unexpired entry must survive the sweep")
	}
}
