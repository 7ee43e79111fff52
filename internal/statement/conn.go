// Package statement implements the statement object (C6): the
// prepare/bind/step/column/reset/finalize lifecycle that sits between
// the host ABI and the translation, pool, prepared-statement-cache,
// fake-value, and decode packages.
package statement

import (
	"context"

	"github.com/sqldef/plexpg/internal/errmirror"
	"github.com/sqldef/plexpg/internal/fakevalue"
	"github.com/sqldef/plexpg/internal/fingerprint"
	"github.com/sqldef/plexpg/internal/pool"
	"github.com/sqldef/plexpg/internal/tcache"
	"github.com/sqldef/plexpg/internal/translate"
)

// Conn is one intercepted per-database connection: the pool handle it is
// pinned to, its fake-value ring (C7), and its error mirror (C11). C10's
// router owns a Conn per attached database handle; statements are always
// prepared against one.
type Conn struct {
	Pool    *pool.Pool
	Handle  pool.Handle
	Values  *fakevalue.Pool
	Errors  *errmirror.Mirror
	Options translate.Options
}

// NewConn wires a freshly acquired pool handle into a Conn ready to serve
// statements.
func NewConn(p *pool.Pool, h pool.Handle, opt translate.Options) *Conn {
	return &Conn{
		Pool:    p,
		Handle:  h,
		Values:  fakevalue.New(),
		Errors:  errmirror.New(),
		Options: opt,
	}
}

// cache returns the calling OS thread's translation cache (C3). Declared
// as a var so tests can stub it without touching the tcache package's
// real thread-affinity machinery.
var cache = func() *tcache.Cache { return tcache.ForCurrentThread() }

func fingerprintOf(sql string) uint64 {
	return fingerprint.FNV1a(sql)
}

func (c *Conn) translate(_ context.Context, sql string) translate.Translation {
	fp := fingerprint.FNV1a(sql)
	tc := cache()
	if t, ok := tc.Lookup(fp); ok {
		return t
	}
	t := translate.Translate(sql, c.Options)
	tc.Insert(fp, t)
	return t
}
