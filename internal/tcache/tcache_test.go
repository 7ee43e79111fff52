package tcache

import (
	"testing"

	"github.com/sqldef/plexpg/internal/translate"
)

func TestCacheInsertLookupHit(t *testing.T) {
	c := &Cache{}
	result := translate.Translation{SQL: "SELECT 1", Success: true}
	c.Insert(42, result)
	got, ok := c.Lookup(42)
	if !ok {
		t.Fatalf("expected hit")
	}
	if got.SQL != "SELECT 1" {
		t.Errorf("unexpected cached SQL %q", got.SQL)
	}
}

func TestCacheLookupMiss(t *testing.T) {
	c := &Cache{}
	if _, ok := c.Lookup(1234); ok {
		t.Errorf("expected miss on empty cache")
	}
}

func TestCacheOverwriteSameFingerprint(t *testing.T) {
	c := &Cache{}
	c.Insert(7, translate.Translation{SQL: "first"})
	c.Insert(7, translate.Translation{SQL: "second"})
	got, ok := c.Lookup(7)
	if !ok || got.SQL != "second" {
		t.Errorf("expected second insert to overwrite, got %#v ok=%v", got, ok)
	}
}

func TestCacheCollisionEvictsWithinProbeDistance(t *testing.T) {
	c := &Cache{}
	base := uint64(3)
	for i := uint64(0); i < maxProbe+2; i++ {
		fp := base + i*capacity // all collide on the same slot index
		c.Insert(fp, translate.Translation{SQL: "v"})
	}
	// the very first inserted fingerprint must have been evicted by now
	if _, ok := c.Lookup(base); ok {
		t.Errorf("expected oldest colliding fingerprint to be evicted")
	}
	// the most recently inserted fingerprint must still be present
	last := base + (maxProbe+1)*capacity
	if _, ok := c.Lookup(last); !ok {
		t.Errorf("expected most recent colliding fingerprint to survive")
	}
}

func TestForCurrentThreadReturnsSameInstance(t *testing.T) {
	a := ForCurrentThread()
	b := ForCurrentThread()
	if a != b {
		t.Errorf("expected the same cache instance for the same OS thread")
	}
}
