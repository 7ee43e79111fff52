package main

/*
#include <pthread.h>
#include <stdint.h>

static uintptr_t plexpg_remaining_stack(void) {
	pthread_attr_t attr;
	void *stackaddr;
	size_t stacksize;

	if (pthread_getattr_np(pthread_self(), &attr) != 0) {
		return (uintptr_t)-1; // unknown: report an ample margin, never abort spuriously
	}
	if (pthread_attr_getstack(&attr, &stackaddr, &stacksize) != 0) {
		pthread_attr_destroy(&attr);
		return (uintptr_t)-1;
	}
	pthread_attr_destroy(&attr);

	// the stack grows down from stackaddr+stacksize; approximate the
	// remainder as the distance from a local's address to the low bound
	char probe;
	uintptr_t low = (uintptr_t)stackaddr;
	uintptr_t here = (uintptr_t)&probe;
	if (here < low) {
		return 0;
	}
	return here - low;
}
*/
import "C"

import "github.com/sqldef/plexpg/internal/defense"

// installStackGate overrides defense.RemainingStackBytes with a real
// pthread_getattr_np-backed measurement of the calling OS thread's
// stack (§5 "Model as explicit context parameters ... with a thin
// entry-point layer that fetches the global context for ABI
// compatibility" applied here to the one piece of state that generally
// cannot be modeled in pure Go: the actual C stack bounds of the host
// thread that called into this library).
func installStackGate() {
	defense.RemainingStackBytes = func() uintptr {
		return uintptr(C.plexpg_remaining_stack())
	}
}

func init() {
	installStackGate()
}
