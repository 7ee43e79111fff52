package pcache

import "testing"

func TestCacheLookupMiss(t *testing.T) {
	c := New()
	if _, _, ok := c.Lookup(1); ok {
		t.Errorf("expected miss on empty cache")
	}
}

func TestCacheStoreThenLookup(t *testing.T) {
	c := New()
	name := c.Store(42, nil)
	if name == "" {
		t.Fatalf("expected a non-empty generated name")
	}
	stmt, gotName, ok := c.Lookup(42)
	if !ok {
		t.Fatalf("expected hit after store")
	}
	if stmt != nil {
		t.Errorf("expected nil stmt passed through unchanged")
	}
	if gotName != name {
		t.Errorf("expected stored name to round-trip, got %q want %q", gotName, name)
	}
}

func TestCacheStoreGeneratesDistinctNames(t *testing.T) {
	c := New()
	a := c.Store(1, nil)
	b := c.Store(2, nil)
	if a == b {
		t.Errorf("expected distinct statement names, got %q twice", a)
	}
}

func TestCacheLen(t *testing.T) {
	c := New()
	c.Store(1, nil)
	c.Store(2, nil)
	if c.Len() != 2 {
		t.Errorf("expected Len() == 2, got %d", c.Len())
	}
}

func TestCacheInvalidateClearsEntries(t *testing.T) {
	c := New()
	c.Store(1, nil)
	c.Invalidate()
	if c.Len() != 0 {
		t.Errorf("expected Len() == 0 after Invalidate, got %d", c.Len())
	}
	if _, _, ok := c.Lookup(1); ok {
		t.Errorf("expected miss after Invalidate")
	}
}
