package defense

import "time"

// TryLockRetries and TryLockInterval bound the try-lock discipline used
// for every cross-subsystem acquisition (§4.9 "all cross-subsystem
// acquisitions use try-lock with a bounded retry (10 attempts at ~1 ms);
// on failure the call falls back to the embedded engine rather than
// blocking").
const (
	TryLockRetries  = 10
	TryLockInterval = time.Millisecond
)

// Locker is the subset of sync.Mutex's TryLock-capable API this package
// needs; satisfied by *sync.Mutex on Go 1.18+.
type Locker interface {
	TryLock() bool
	Unlock()
}

// TryLockBounded attempts to acquire l up to TryLockRetries times,
// sleeping TryLockInterval between attempts, and returns whether it
// succeeded. Callers that fail must fall back to the embedded engine
// rather than block (§4.9, §7 locking hierarchy: connection -> statement
// -> fake-value -> error-mirror; TryLockBounded is how code that must
// acquire out of that order avoids deadlock).
func TryLockBounded(l Locker) bool {
	for attempt := 0; attempt < TryLockRetries; attempt++ {
		if l.TryLock() {
			return true
		}
		if attempt < TryLockRetries-1 {
			time.Sleep(TryLockInterval)
		}
	}
	return false
}
