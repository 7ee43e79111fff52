// Package router implements the per-database router (C10): a whitelist
// of filename substrings identifying intercepted databases, and the map
// from the host's opaque per-database handle to the acquired pool
// connection serving it.
package router

import (
	"strings"
	"sync"

	"github.com/sqldef/plexpg/internal/pool"
	"github.com/sqldef/plexpg/internal/statement"
	"github.com/sqldef/plexpg/internal/translate"
)

// Router owns the whitelist and the handle->Conn association.
type Router struct {
	whitelist []string
	pool      *pool.Pool
	options   translate.Options

	mu    sync.Mutex
	conns map[uintptr]*statement.Conn
}

// New creates a Router. whitelist entries are matched as plain substrings
// of the filename passed to Intercepts, case-sensitively, mirroring the
// embedded engine's own filename handling (§4.10 "A whitelist of
// filename substrings identifies intercepted databases").
func New(p *pool.Pool, whitelist []string, opt translate.Options) *Router {
	return &Router{
		whitelist: whitelist,
		pool:      p,
		options:   opt,
		conns:     make(map[uintptr]*statement.Conn),
	}
}

// Intercepts reports whether filename matches the whitelist.
func (r *Router) Intercepts(filename string) bool {
	for _, w := range r.whitelist {
		if strings.Contains(filename, w) {
			return true
		}
	}
	return false
}

// Attach is called from the open-family intercept once the embedded
// engine has already opened filename for shadow/fallback use; it
// acquires a pool connection and associates it with hostHandle (§4.10
// "On attach ... the router attempts a pool acquisition; the host's
// returned opaque handle is associated with the acquired pool connection
// via a small map").
func (r *Router) Attach(hostHandle uintptr) (*statement.Conn, error) {
	h, err := r.pool.Acquire()
	if err != nil {
		return nil, err
	}
	conn := statement.NewConn(r.pool, h, r.options)

	r.mu.Lock()
	r.conns[hostHandle] = conn
	r.mu.Unlock()
	return conn, nil
}

// Lookup returns the Conn associated with hostHandle, if any. A miss
// means hostHandle belongs to a non-intercepted database and every
// subsequent call for it must be passed through unchanged (§4.10 "Non-
// intercepted handles are passed through unchanged for every subsequent
// call").
func (r *Router) Lookup(hostHandle uintptr) (*statement.Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[hostHandle]
	return c, ok
}

// Detach removes the association for hostHandle and releases its pool
// connection back to the pool without destroying it (§4.10 "On detach
// ... the association is removed and the pool connection is released
// (not destroyed)").
func (r *Router) Detach(hostHandle uintptr) {
	r.mu.Lock()
	conn, ok := r.conns[hostHandle]
	delete(r.conns, hostHandle)
	r.mu.Unlock()
	if ok {
		r.pool.Release(conn.Handle)
	}
}

// Len reports how many databases are currently attached, for tests and
// diagnostics.
func (r *Router) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
