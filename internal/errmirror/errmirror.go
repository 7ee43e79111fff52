// Package errmirror implements the error-state mirror (C11): the last
// (kind, message) pair observed on a connection, so that the host's
// subsequent errmsg/errcode calls see the shim's diagnosis rather than
// whatever the embedded engine's own last-error slot happens to hold.
package errmirror

import "sync"

// Kind is a coarse error classification surfaced to the host (§4.11 /
// §7 "error codes are mapped to the embedded engine's error constants").
type Kind int

const (
	KindOK Kind = iota
	KindNoMem
	KindConstraint
	KindConnectionLost
	KindTranslationFailed
	KindGeneric
	KindNotFound
	KindSyntax
	KindBusy
)

// Mirror holds the last error observed on one connection.
type Mirror struct {
	mu      sync.Mutex
	kind    Kind
	message string
}

// New creates a Mirror in the OK state.
func New() *Mirror {
	return &Mirror{kind: KindOK}
}

// Set records a new error, overwriting whatever was previously mirrored.
func (m *Mirror) Set(kind Kind, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kind = kind
	m.message = message
}

// Clear resets the mirror to OK, e.g. after a statement finishes
// successfully.
func (m *Mirror) Clear() {
	m.Set(KindOK, "")
}

// Last returns the most recently mirrored (kind, message) pair.
func (m *Mirror) Last() (Kind, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kind, m.message
}
