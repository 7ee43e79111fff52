package defense

import (
	"sync"
	"testing"
)

func TestTryLockBoundedSucceedsWhenFree(t *testing.T) {
	var mu sync.Mutex
	if !TryLockBounded(&mu) {
		t.Fatalf("expected an uncontended mutex to lock")
	}
	mu.Unlock()
}

func TestTryLockBoundedFailsWhenHeld(t *testing.T) {
	var mu sync.Mutex
	mu.Lock()
	defer mu.Unlock()
	if TryLockBounded(&mu) {
		t.Fatalf("expected a held mutex to fail after bounded retries")
	}
}
