package defense

// HardStackThreshold and SoftStackThreshold bound the stack-remaining
// gate (§4.9 "below a hard threshold ... abort with out-of-memory.
// Between hard and soft thresholds, skip translation stages that are
// known stack-hungry"). Boundary behaviour (§8): 450 KB remaining is
// accepted, 350 KB is rejected, placing the hard threshold at 400 KB.
const (
	HardStackThreshold = 400 * 1024
	SoftStackThreshold = 480 * 1024
)

// StackDecision is the outcome of the stack-remaining gate.
type StackDecision int

const (
	StackOK StackDecision = iota
	StackDegraded         // between hard and soft: skip stack-hungry stages
	StackAbort            // below hard: out-of-memory abort
)

// RemainingStackBytes reports the calling OS thread's estimated
// remaining stack. There is no portable way to measure this from pure
// Go; the cgo entry-point layer (the only place that genuinely knows the
// host thread's stack bounds, via e.g. pthread_getattr_np on the thread
// that called into the shim) overrides this at init time. The default
// always reports an ample margin so pure-Go callers (tests, the debug
// CLI) never trip the gate.
var RemainingStackBytes = func() uintptr {
	return SoftStackThreshold * 4
}

// CheckStack evaluates the stack-remaining gate (§4.9 step 2).
func CheckStack() StackDecision {
	remaining := RemainingStackBytes()
	switch {
	case remaining < HardStackThreshold:
		return StackAbort
	case remaining < SoftStackThreshold:
		return StackDegraded
	default:
		return StackOK
	}
}
