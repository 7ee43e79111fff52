// Package tcache implements the translation cache (C3): a per-OS-thread,
// lock-free, fixed-capacity map from SQL fingerprint to translation
// result. Because it is never shared across threads there is nothing to
// synchronise; the only correctness requirement is that a lookup never
// costs more than a small constant number of probes.
package tcache

import (
	"sync"

	"github.com/sqldef/plexpg/internal/translate"
	"golang.org/x/sys/unix"
)

// capacity is the fixed power-of-two table size (§4.3: "a fixed table
// size that is a power of two").
const capacity = 512

// maxProbe bounds linear probing on insert and lookup; a fingerprint that
// doesn't resolve within this many slots is treated as a miss, and on
// insert the home slot of the probe sequence is overwritten. Entry ages
// are not tracked, so the overwritten entry is not necessarily the
// oldest of those slots.
const maxProbe = 8

type entry struct {
	occupied bool
	fp       uint64
	result   translate.Translation
}

// Cache is one thread's translation cache. It is not safe for concurrent
// use from more than one goroutine; callers must obtain theirs via
// ForCurrentThread, which already guarantees single-thread ownership.
type Cache struct {
	slots [capacity]entry
}

var (
	mu    sync.Mutex
	byTid = map[int]*Cache{}
)

// ForCurrentThread returns the calling OS thread's cache, creating it on
// first use. This relies on cgo callbacks from the host genuinely running
// on the calling OS thread — a property that does not hold for ordinary
// goroutines, but does hold for every entry point this shim exposes,
// since each is invoked synchronously from C on the host's thread.
func ForCurrentThread() *Cache {
	tid := unix.Gettid()
	mu.Lock()
	defer mu.Unlock()
	c, ok := byTid[tid]
	if !ok {
		c = &Cache{}
		byTid[tid] = c
	}
	return c
}

// Forget drops the calling thread's cache. Called when the shim detects
// its owning OS thread has exited (best-effort; there is no portable
// thread-exit notification, so in practice this is invoked from the
// host's thread-cleanup hooks where available).
func Forget() {
	tid := unix.Gettid()
	mu.Lock()
	defer mu.Unlock()
	delete(byTid, tid)
}

func slotFor(fp uint64) int {
	return int(fp & (capacity - 1))
}

// Lookup returns the cached translation for fp, if present. Constant-time
// on hit: a single hash (done by the caller via fp), a single slot index,
// and up to maxProbe comparisons.
func (c *Cache) Lookup(fp uint64) (translate.Translation, bool) {
	idx := slotFor(fp)
	for p := 0; p < maxProbe; p++ {
		slot := &c.slots[(idx+p)%capacity]
		if !slot.occupied {
			return translate.Translation{}, false
		}
		if slot.fp == fp {
			return slot.result, true
		}
	}
	return translate.Translation{}, false
}

// Insert stores result under fp, probing linearly up to maxProbe slots. If
// none are free or already hold fp, the bucket's home slot (the first in
// the probe sequence) is evicted and overwritten, whichever entry it
// holds; it is not chosen by age.
func (c *Cache) Insert(fp uint64, result translate.Translation) {
	idx := slotFor(fp)
	for p := 0; p < maxProbe; p++ {
		pos := (idx + p) % capacity
		slot := &c.slots[pos]
		if !slot.occupied || slot.fp == fp {
			slot.occupied = true
			slot.fp = fp
			slot.result = result
			return
		}
	}
	home := &c.slots[idx]
	home.occupied = true
	home.fp = fp
	home.result = result
}
