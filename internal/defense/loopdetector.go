package defense

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// loopSlots is the per-thread open-addressed hash table size (§9 Open
// Questions: "the loop detector's slot count (16) ... are tuned
// empirically").
const loopSlots = 16

// loopThreshold and loopWindow are the two-tier trigger condition (§4.9
// "if the same fingerprint appears >= 50 times within 100 ms").
const (
	loopThreshold = 50
	loopWindow    = 100 * time.Millisecond
	cooldown      = 250 * time.Millisecond
)

type loopBucket struct {
	fp        uint64
	count     int
	windowAt  time.Time
	cooldownAt time.Time
}

type loopTable struct {
	buckets [loopSlots]loopBucket
}

var (
	loopMu sync.Mutex
	loops  = map[int]*loopTable{}
)

func tableForCurrentThread() *loopTable {
	tid := unix.Gettid()
	loopMu.Lock()
	defer loopMu.Unlock()
	t, ok := loops[tid]
	if !ok {
		t = &loopTable{}
		loops[tid] = t
	}
	return t
}

// CheckLoop records an occurrence of fp at now and reports whether the
// call should be rejected because this fingerprint has now appeared at
// least loopThreshold times within loopWindow, or is still in its
// post-trigger cool-down.
func CheckLoop(fp uint64, now time.Time) bool {
	t := tableForCurrentThread()
	idx := int(fp % loopSlots)
	b := &t.buckets[idx]

	if b.fp != fp {
		// slot reassigned to a different fingerprint; a single eviction
		// is an acceptable refinement per §9's tuning note
		*b = loopBucket{fp: fp, count: 1, windowAt: now}
		return false
	}

	if !b.cooldownAt.IsZero() && now.Before(b.cooldownAt) {
		return true
	}

	if now.Sub(b.windowAt) > loopWindow {
		b.count = 1
		b.windowAt = now
		b.cooldownAt = time.Time{}
		return false
	}

	b.count++
	if b.count >= loopThreshold {
		b.cooldownAt = now.Add(cooldown)
		return true
	}
	return false
}

// ForgetThread drops the calling thread's loop-detector state, e.g. when
// the thread is known to have exited.
func ForgetThread() {
	tid := unix.Gettid()
	loopMu.Lock()
	defer loopMu.Unlock()
	delete(loops, tid)
}
