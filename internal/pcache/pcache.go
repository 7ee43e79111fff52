// Package pcache implements the prepared-statement cache (C5): a
// per-connection map from SQL fingerprint to the server-side prepared
// statement it was compiled into. Unlike the translation cache (C3) this
// is keyed off a live remote connection, not an OS thread, because a
// server-side PREPARE only exists for the lifetime of the session that
// created it — a reconnect must invalidate every entry wholesale.
package pcache

import (
	"database/sql"
	"fmt"
	"sync"
)

// entry is one cached server-side prepared statement.
type entry struct {
	name string
	stmt *sql.Stmt
}

// Cache is the prepared-statement cache for a single pool slot. It is
// safe for concurrent use, mirroring the teacher's own use of mutex-
// guarded maps for per-database state in database/postgres.
type Cache struct {
	mu      sync.Mutex
	entries map[uint64]entry
	next    int
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[uint64]entry)}
}

// Lookup returns the prepared statement for fp, if one has already been
// compiled on this connection.
func (c *Cache) Lookup(fp uint64) (*sql.Stmt, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[fp]
	if !ok {
		return nil, "", false
	}
	return e.stmt, e.name, true
}

// Store records a freshly prepared statement under fp, generating a
// unique statement name for Go-side diagnostics. The name is never sent
// to the remote server, since lib/pq manages the wire-level PREPARE and
// its statement names itself.
func (c *Cache) Store(fp uint64, stmt *sql.Stmt) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	name := fmt.Sprintf("plexpg_%d", c.next)
	c.entries[fp] = entry{name: name, stmt: stmt}
	return name
}

// Len reports how many statements are currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Invalidate drops every cached statement without closing them (the
// caller's connection is assumed already gone, e.g. after a reconnect;
// closing a *sql.Stmt bound to a dead *sql.Conn is a no-op that can block
// on a context the caller no longer controls, so invalidation here is
// purely bookkeeping) (§4.5 "reconnect invalidates the prepared-statement
// cache wholesale").
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]entry)
	c.next = 0
}
