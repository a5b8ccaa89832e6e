package confstore

import "testing"

func TestCacheGetPut(t *testing.T) {
	t.Parallel()

	c := NewCache[int](3)

	if _, ok := c.Get("a"); ok {
		t.Fatal("Get on empty cache reported a hit")
	}

	c.Put("a", 1)
	c.Put("b", 2)
	if got, ok := c.Get("a"); !ok || got != 1 {
		t.Fatalf("Get(a) = %d, %v, want 1, true", got, ok)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
}

func TestCachePutExistingUpdatesWithoutEviction(t *testing.T) {
	t.Parallel()

	c := NewCache[int](2)
	c.Put("a", 1)
	c.Put("b", 2)

	if evicted := c.Put("a", 10); evicted {
		t.Fatal("updating an existing key reported an eviction")
	}
	if got, _ := c.Get("a"); got != 10 {
		t.Fatalf("Get(a) = %d, want 10", got)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	c := NewCache[string](2)
	c.Put("a", "A")
	c.Put("b", "B")

	// Touch "a" so "b" becomes the eviction candidate.
	c.Get("a")

	if evicted := c.Put("c", "C"); !evicted {
		t.Fatal("Put over capacity did not report an eviction")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry survived eviction")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry was evicted")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("newly inserted entry missing")
	}
}

func TestCacheSaturated(t *testing.T) {
	t.Parallel()

	c := NewCache[int](2)
	if c.Saturated() {
		t.Fatal("empty cache reported saturated")
	}
	c.Put("a", 1)
	if c.Saturated() {
		t.Fatal("half-full cache reported saturated")
	}
	c.Put("b", 2)
	if !c.Saturated() {
		t.Fatal("full cache not reported saturated")
	}
	// Saturation is sticky even after churn.
	c.Put("c", 3)
	if !c.Saturated() {
		t.Fatal("saturation flag reset after eviction")
	}
}

func TestNewCachePanicsOnNonPositiveCapacity(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("NewCache(0) did not panic")
		}
	}()
	NewCache[int](0)
}
