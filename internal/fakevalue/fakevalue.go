// Package fakevalue implements the fake-value pool (C7): a ring of
// opaque value handles impersonating the embedded engine's native
// pointer-sized column-value handles, so the host's existing value-
// accessor calls (which dispatch on an opaque pointer) keep working
// unmodified when the value actually came from the remote server.
package fakevalue

import "sync/atomic"

// size is the ring capacity; must be a power of two so allocation can
// mask instead of mod (§4.7 "N a power of two, default 256").
const size = 256

// magic is a sentinel distinct from any value the embedded engine would
// ever hand back as a real pointer, letting Validate tell a fake handle
// apart from a genuine one before dereferencing it.
const magic uint32 = 0xFA4E5A1F

// Ref identifies where a decoded value lives: which statement, which
// column, and which row of its materialised result set.
type Ref struct {
	Statement uintptr
	Col       int
	Row       int
}

type record struct {
	magic uint32
	ref   Ref
}

// Pool is the fixed-size ring of records. Allocation never frees a slot;
// reuse is safe because a consumer only ever asks for the value of the
// currently visible row (§4.7 "Records are not freed; reuse is permitted
// ...").
type Pool struct {
	counter atomic.Uint64
	records [size]record
}

// New creates an empty ring.
func New() *Pool {
	return &Pool{}
}

// Handle is the opaque value returned to the host in place of a native
// column-value pointer.
type Handle uintptr

// Alloc records ref and returns a handle for it. The index is taken by
// masking the allocation counter with size-1 — never a signed modulo,
// which is what caused the historical overflow bug this design avoids
// (§4.7).
func (p *Pool) Alloc(ref Ref) Handle {
	idx := p.counter.Add(1) & (size - 1)
	p.records[idx] = record{magic: magic, ref: ref}
	return Handle(idx + 1) // 0 is reserved so a zero-valued Handle is never mistaken for slot 0
}

// Validate checks whether h looks like a handle this pool allocated and,
// if so, returns the Ref it carries. A zero or out-of-range handle, or
// one whose slot's magic doesn't match, is reported as not-ours so the
// caller can forward the value to the embedded engine instead (§4.7
// "Validation ... checks the magic before dereferencing; if absent, the
// call is forwarded to the embedded engine").
func (p *Pool) Validate(h Handle) (Ref, bool) {
	if h == 0 {
		return Ref{}, false
	}
	idx := uint64(h) - 1
	if idx >= size {
		return Ref{}, false
	}
	rec := &p.records[idx]
	if rec.magic != magic {
		return Ref{}, false
	}
	return rec.ref, true
}
