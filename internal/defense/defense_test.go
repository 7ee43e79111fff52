package defense

import (
	"testing"
	"time"
)

func TestRecursionGateAcceptsUpToLimit(t *testing.T) {
	defer drainRecursion(t)
	for i := 0; i < MaxRecursionDepth; i++ {
		if !EnterPrepare() {
			t.Fatalf("expected depth %d to be accepted", i+1)
		}
	}
	if RecursionDepth() != MaxRecursionDepth {
		t.Fatalf("expected depth == %d, got %d", MaxRecursionDepth, RecursionDepth())
	}
}

func TestRecursionGateRejectsBeyondLimit(t *testing.T) {
	defer drainRecursion(t)
	for i := 0; i < MaxRecursionDepth; i++ {
		if !EnterPrepare() {
			t.Fatalf("expected depth %d to be accepted", i+1)
		}
	}
	if EnterPrepare() {
		t.Fatalf("expected depth %d to be rejected", MaxRecursionDepth+1)
	}
	LeavePrepare() // balance the rejected call's increment
}

func drainRecursion(t *testing.T) {
	t.Helper()
	for RecursionDepth() > 0 {
		LeavePrepare()
	}
}

func TestStackGateAccepts450KB(t *testing.T) {
	old := RemainingStackBytes
	defer func() { RemainingStackBytes = old }()
	RemainingStackBytes = func() uintptr { return 450 * 1024 }
	if CheckStack() == StackAbort {
		t.Errorf("expected 450 KB remaining not to abort")
	}
}

func TestStackGateRejects350KB(t *testing.T) {
	old := RemainingStackBytes
	defer func() { RemainingStackBytes = old }()
	RemainingStackBytes = func() uintptr { return 350 * 1024 }
	if CheckStack() != StackAbort {
		t.Errorf("expected 350 KB remaining to abort")
	}
}

func TestStackGateDegradedBetweenThresholds(t *testing.T) {
	old := RemainingStackBytes
	defer func() { RemainingStackBytes = old }()
	RemainingStackBytes = func() uintptr { return HardStackThreshold + 1024 }
	if CheckStack() != StackDegraded {
		t.Errorf("expected a value just above the hard threshold to degrade, not abort or pass clean")
	}
}

func TestLoopDetectorTriggersAtThreshold(t *testing.T) {
	defer ForgetThread()
	base := time.Now()
	var triggered bool
	for i := 0; i < loopThreshold; i++ {
		triggered = CheckLoop(777, base.Add(time.Duration(i)*time.Microsecond))
	}
	if !triggered {
		t.Errorf("expected the %dth identical fingerprint within the window to trigger", loopThreshold)
	}
}

func TestLoopDetectorDoesNotTriggerForDistinctFingerprints(t *testing.T) {
	defer ForgetThread()
	base := time.Now()
	for i := 0; i < 100; i++ {
		if CheckLoop(uint64(i), base.Add(time.Duration(i)*time.Microsecond)) {
			t.Fatalf("did not expect distinct fingerprint #%d to trigger", i)
		}
	}
}

func TestLoopDetectorResetsOutsideWindow(t *testing.T) {
	defer ForgetThread()
	base := time.Now()
	for i := 0; i < loopThreshold-1; i++ {
		CheckLoop(42, base.Add(time.Duration(i)*time.Microsecond))
	}
	// arrive well after the window has elapsed: count should reset
	triggered := CheckLoop(42, base.Add(time.Second))
	if triggered {
		t.Errorf("did not expect a trigger right after the window reset")
	}
}

func TestDelegateToWorkerRunsAndReturns(t *testing.T) {
	var ran bool
	DelegateToWorker(func() { ran = true })
	if !ran {
		t.Errorf("expected delegated function to run")
	}
}

func TestDelegateToWorkerRecoversPanicAndKeepsServicing(t *testing.T) {
	recovered := DelegateToWorker(func() { panic("boom") })
	if recovered != "boom" {
		t.Fatalf("expected the panic value to be returned, got %v", recovered)
	}

	// the worker goroutine must still be alive and draining workerCh;
	// a prior unrecovered panic would have crashed it and left every
	// subsequent delegation blocked forever.
	var ran bool
	done := make(chan struct{})
	go func() {
		DelegateToWorker(func() { ran = true })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("worker did not service a call after recovering a panic")
	}
	if !ran {
		t.Errorf("expected the follow-up delegated function to run")
	}
}
