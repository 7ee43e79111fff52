// Package pool implements the connection pool (C4): a fixed-capacity
// array of remote sessions whose slots transition only via
// compare-and-swap, plus an OS-thread-affinity fast path so that a thread
// that has already acquired a slot can skip the scan entirely as long as
// its cached (slot, generation) pair is still valid.
package pool

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sqldef/plexpg/internal/pcache"
	"github.com/sqldef/plexpg/internal/session"
	"golang.org/x/sys/unix"
)

// slotState is the state word of one pool slot (§4.4). Transitions:
// FREE -> RESERVED -> READY -> {FREE, ERROR}; ERROR -> RECONNECTING ->
// {READY, ERROR}.
type slotState uint32

const (
	stateFree slotState = iota
	stateReserved
	stateReady
	stateError
	stateReconnecting
)

const (
	// DefaultCapacity is the default pool size (§4.4).
	DefaultCapacity = 50
	// MaxCapacity is the hard maximum pool size (§4.4).
	MaxCapacity = 100

	scanRetries    = 10
	scanRetrySleep = 200 * time.Microsecond
)

var (
	// ErrUnavailable is returned when every slot is occupied after the
	// bounded scan-retry loop (§4.4 step 3).
	ErrUnavailable = errors.New("pool: no connection slot available")
)

// slot is one entry in the pool's fixed array.
type slot struct {
	state      atomic.Uint32 // slotState
	generation atomic.Uint32
	owner      atomic.Int64 // OS thread id of the current occupant, 0 when FREE
	mu         sync.Mutex   // guards session, serialises open/teardown of this slot
	session    *session.Session
	statements *pcache.Cache // prepared statements live and die with the session
}

// Handle is a caller's reference to an acquired slot, including the
// generation it observed at acquisition time — this is what a per-thread
// cache stores to validate its fast path (§4.4 step 1, §3).
type Handle struct {
	Index      int
	Generation uint32
}

// Pool is the fixed-capacity array of remote sessions.
type Pool struct {
	slots  []slot
	dialer func() (*session.Session, error)
}

// New creates a Pool with capacity slots (clamped to [1, MaxCapacity]),
// using dial to open a new remote session when a slot transitions to
// READY or RECONNECTING.
func New(capacity int, dial func() (*session.Session, error)) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if capacity > MaxCapacity {
		capacity = MaxCapacity
	}
	return &Pool{
		slots:  make([]slot, capacity),
		dialer: dial,
	}
}

// Valid reports whether a previously obtained Handle is still usable
// without rescanning: the slot must be READY, its generation must match,
// and the calling OS thread must be the owner (§3 thread-local fast
// path).
func (p *Pool) Valid(h Handle) bool {
	if h.Index < 0 || h.Index >= len(p.slots) {
		return false
	}
	s := &p.slots[h.Index]
	return slotState(s.state.Load()) == stateReady &&
		s.generation.Load() == h.Generation &&
		s.owner.Load() == int64(unix.Gettid())
}

// Session returns the remote session for a validated handle. Callers
// must check Valid first.
func (p *Pool) Session(h Handle) *session.Session {
	return p.slots[h.Index].session
}

// Statements returns the prepared-statement cache bound to a validated
// handle's connection (C5). Callers must check Valid first.
func (p *Pool) Statements(h Handle) *pcache.Cache {
	return p.slots[h.Index].statements
}

// Acquire returns a Handle to a READY slot owned by the calling thread,
// opening a new remote session if necessary (§4.4 acquisition steps 2-3).
func (p *Pool) Acquire() (Handle, error) {
	tid := int64(unix.Gettid())

	for attempt := 0; attempt <= scanRetries; attempt++ {
		for i := range p.slots {
			s := &p.slots[i]
			if slotState(s.state.Load()) == stateError {
				if s.state.CompareAndSwap(uint32(stateError), uint32(stateReconnecting)) {
					if h, ok := p.reconnect(i, tid); ok {
						return h, nil
					}
					continue
				}
			}
			if s.state.CompareAndSwap(uint32(stateFree), uint32(stateReserved)) {
				if h, ok := p.open(i, tid); ok {
					return h, nil
				}
				continue
			}
		}
		if attempt < scanRetries {
			time.Sleep(scanRetrySleep)
		}
	}
	return Handle{}, ErrUnavailable
}

func (p *Pool) open(i int, tid int64) (Handle, bool) {
	s := &p.slots[i]
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := p.dialer()
	if err != nil {
		s.state.Store(uint32(stateError))
		return Handle{}, false
	}
	s.session = sess
	if s.statements == nil {
		s.statements = pcache.New()
	}
	s.owner.Store(tid)
	s.state.Store(uint32(stateReady))
	return Handle{Index: i, Generation: s.generation.Load()}, true
}

func (p *Pool) reconnect(i int, tid int64) (Handle, bool) {
	s := &p.slots[i]
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		s.session.Close()
		s.session = nil
	}
	if s.statements != nil {
		s.statements.Invalidate()
	}
	sess, err := p.dialer()
	if err != nil {
		s.state.Store(uint32(stateError))
		return Handle{}, false
	}
	s.session = sess
	if s.statements == nil {
		s.statements = pcache.New()
	}
	s.owner.Store(tid)
	s.generation.Add(1)
	s.state.Store(uint32(stateReady))
	return Handle{Index: i, Generation: s.generation.Load()}, true
}

// Release returns the slot to FREE and bumps its generation, invalidating
// any thread-local handle that still refers to the old generation
// (§4.4 "Release returns the slot to FREE and increments the
// generation").
func (p *Pool) Release(h Handle) {
	if h.Index < 0 || h.Index >= len(p.slots) {
		return
	}
	s := &p.slots[h.Index]
	if s.generation.Load() != h.Generation {
		return // stale release from a handle that's already been recycled
	}
	s.generation.Add(1)
	s.owner.Store(0)
	s.state.Store(uint32(stateFree))
}

// MarkError transitions a slot to ERROR after its session has failed
// (e.g. a query returned a connection-lost condition). The next acquirer
// will reconnect it.
func (p *Pool) MarkError(h Handle) {
	if h.Index < 0 || h.Index >= len(p.slots) {
		return
	}
	s := &p.slots[h.Index]
	if s.generation.Load() != h.Generation {
		return
	}
	s.state.CompareAndSwap(uint32(stateReady), uint32(stateError))
}

// Len returns the pool's fixed capacity.
func (p *Pool) Len() int { return len(p.slots) }
