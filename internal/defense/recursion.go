// Package defense implements the self-defense envelope (C9): the
// recursion-depth gate, the stack-remaining gate, the loop detector, and
// the try-lock discipline that keeps the shim from crashing or
// deadlocking the host when a single request re-enters the pipeline
// pathologically.
package defense

import (
	"sync"

	"golang.org/x/sys/unix"
)

// MaxRecursionDepth is the constant depth a per-thread prepare counter
// may reach before the call is aborted (§4.9 "Recursion gate ... if it
// exceeds a constant (100)").
const MaxRecursionDepth = 100

var (
	recursionMu sync.Mutex
	recursion   = map[int]int{}
)

// EnterPrepare increments the calling OS thread's recursion counter and
// reports whether the call should proceed. The counter is incremented even
// when the call is rejected, so every call, accepted or rejected, must be
// matched with a LeavePrepare once the prepare returns.
func EnterPrepare() bool {
	tid := unix.Gettid()
	recursionMu.Lock()
	defer recursionMu.Unlock()
	recursion[tid]++
	return recursion[tid] <= MaxRecursionDepth
}

// LeavePrepare decrements the calling thread's recursion counter. Safe
// to call even when EnterPrepare rejected the call, so callers can use a
// single defer unconditionally.
func LeavePrepare() {
	tid := unix.Gettid()
	recursionMu.Lock()
	defer recursionMu.Unlock()
	if recursion[tid] > 0 {
		recursion[tid]--
	}
	if recursion[tid] == 0 {
		delete(recursion, tid)
	}
}

// RecursionDepth reports the calling thread's current depth, for tests
// and diagnostics.
func RecursionDepth() int {
	tid := unix.Gettid()
	recursionMu.Lock()
	defer recursionMu.Unlock()
	return recursion[tid]
}
