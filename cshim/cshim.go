// Command cshim is the single cgo seam: the only package in this module
// that imports "C". Built with -buildmode=c-shared, it exports the
// C-ABI functions a host process expects from the embedded SQLite
// engine (§6 "Host ABI consumed"), backing the subset that targets an
// intercepted database with the translation/pool/statement machinery in
// the sibling internal packages, and forwarding everything else
// untouched to the genuine embedded engine via internal/shadow.
// Symbol-rebinding mechanics (how the host comes to call into this
// library instead of libsqlite3) are out of scope per §1; this package
// only supplies the call targets.
package main

/*
#include <stdint.h>
*/
import "C"

import (
	"context"
	"sync"
	"time"

	"github.com/sqldef/plexpg/internal/compat"
	"github.com/sqldef/plexpg/internal/config"
	"github.com/sqldef/plexpg/internal/decode"
	"github.com/sqldef/plexpg/internal/defense"
	"github.com/sqldef/plexpg/internal/logsink"
	"github.com/sqldef/plexpg/internal/pool"
	"github.com/sqldef/plexpg/internal/router"
	"github.com/sqldef/plexpg/internal/session"
	"github.com/sqldef/plexpg/internal/shadow"
	"github.com/sqldef/plexpg/internal/statement"
	"github.com/sqldef/plexpg/internal/translate"
)

// globalContext is the process-wide state initialised at library load
// and torn down at unload (§5 "The pool, the thread-local caches, and
// the log sink are process-wide singletons with well-defined
// initialisation at library load and teardown at unload").
type globalContext struct {
	cfg    config.Config
	pool   *pool.Pool
	router *router.Router
	log    *logsink.Sink
}

var (
	globalOnce sync.Once
	global     *globalContext
)

func ensureInit() *globalContext {
	globalOnce.Do(func() {
		cfg := config.Load()
		sink, err := logsink.Init(cfg.LogLevel)
		if err != nil {
			sink = logsink.NewForTesting(cfg.LogLevel, discard{}, discard{})
		}
		p := pool.New(pool.DefaultCapacity, func() (*session.Session, error) {
			return session.Connect(context.Background(), cfg.PG)
		})
		opt := translate.Options{
			Schema:    config.Schema(),
			Conflicts: translate.DefaultConflictTable(),
		}
		global = &globalContext{
			cfg:    cfg,
			pool:   p,
			router: router.New(p, defaultWhitelist, opt),
			log:    sink,
		}
	})
	return global
}

type discard struct{}

func (discard) Write(b []byte) (int, error) { return len(b), nil }

// defaultWhitelist names the filename substrings this build intercepts.
// A real deployment would source this from configuration; it is fixed
// here because the spec names no such environment variable (§6 lists
// only PLEX_PG_* and PLEX_NO_SHADOW_SCAN).
var defaultWhitelist = []string{".plexpg.db"}

// statement handle table: cgo callers are handed an opaque int64 rather
// than a Go pointer, since the host ABI's sqlite3_stmt* must remain a
// stable C value across the call boundary.
var (
	stmtMu   sync.Mutex
	stmts    = map[int64]*statement.Statement{}
	nextStmt int64
)

func storeStatement(s *statement.Statement) int64 {
	stmtMu.Lock()
	defer stmtMu.Unlock()
	nextStmt++
	stmts[nextStmt] = s
	return nextStmt
}

func lookupStatement(h int64) *statement.Statement {
	stmtMu.Lock()
	defer stmtMu.Unlock()
	return stmts[h]
}

func dropStatement(h int64) {
	stmtMu.Lock()
	defer stmtMu.Unlock()
	delete(stmts, h)
}

//export plexpg_attach
// plexpg_attach is called from the open-family intercept once the
// embedded engine has already opened filename for shadow/fallback use.
// It returns 0 and leaves the handle unassociated for a non-whitelisted
// filename, in which case the caller must treat hostHandle as
// passthrough for every subsequent call (§4.10).
func plexpg_attach(hostHandle C.int64_t, filename *C.char) C.int {
	g := ensureInit()
	name := C.GoString(filename)
	if !g.router.Intercepts(name) {
		return 0
	}
	conn, err := g.router.Attach(uintptr(hostHandle))
	if err != nil {
		g.log.Events().Error("attach failed", "file", name, "error", err)
		return 0
	}
	if !g.cfg.NoShadowScan {
		if engine, err := shadow.Open(name); err == nil {
			if err := compat.Sweep(context.Background(), engine); err != nil {
				g.log.Events().Error("compatibility sweep failed", "file", name, "error", err)
			}
			engine.Close()
		}
	}
	_ = conn
	return 1
}

//export plexpg_detach
func plexpg_detach(hostHandle C.int64_t) {
	g := ensureInit()
	g.router.Detach(uintptr(hostHandle))
}

//export plexpg_prepare
// plexpg_prepare classifies and translates sql against the connection
// associated with hostHandle, returning a statement handle, or 0 if
// hostHandle is not intercepted (passthrough).
func plexpg_prepare(hostHandle C.int64_t, sql *C.char) C.int64_t {
	g := ensureInit()
	conn, ok := g.router.Lookup(uintptr(hostHandle))
	if !ok {
		return 0
	}
	defer defense.LeavePrepare()
	if !defense.EnterPrepare() {
		g.log.Events().Error("recursion gate rejected prepare")
		return 0
	}

	if defense.CheckStack() == defense.StackAbort {
		g.log.Events().Error("stack gate aborted prepare")
		return 0
	}

	s := statement.Prepare(context.Background(), conn, C.GoString(sql))
	return C.int64_t(storeStatement(s))
}

//export plexpg_step
func plexpg_step(handle C.int64_t) C.int {
	s := lookupStatement(int64(handle))
	if s == nil {
		return C.int(statement.StepError)
	}
	if !defense.CheckLoop(s.Fingerprint(), time.Now()) {
		res, _ := s.Step(context.Background())
		return C.int(res)
	}
	return C.int(statement.StepError)
}

//export plexpg_finalize
func plexpg_finalize(handle C.int64_t) {
	s := lookupStatement(int64(handle))
	if s != nil {
		s.Finalize()
	}
	dropStatement(int64(handle))
}

//export plexpg_reset
func plexpg_reset(handle C.int64_t) {
	if s := lookupStatement(int64(handle)); s != nil {
		s.Reset()
	}
}

//export plexpg_clear_bindings
func plexpg_clear_bindings(handle C.int64_t) {
	if s := lookupStatement(int64(handle)); s != nil {
		s.ClearBindings()
	}
}

//export plexpg_bind_int64
func plexpg_bind_int64(handle C.int64_t, i C.int, v C.int64_t) {
	if s := lookupStatement(int64(handle)); s != nil {
		s.BindInt64(int(i), int64(v))
	}
}

//export plexpg_bind_double
func plexpg_bind_double(handle C.int64_t, i C.int, v C.double) {
	if s := lookupStatement(int64(handle)); s != nil {
		s.BindDouble(int(i), float64(v))
	}
}

//export plexpg_bind_text
func plexpg_bind_text(handle C.int64_t, i C.int, v *C.char) {
	if s := lookupStatement(int64(handle)); s != nil {
		s.BindText(int(i), C.GoString(v))
	}
}

//export plexpg_bind_null
func plexpg_bind_null(handle C.int64_t, i C.int) {
	if s := lookupStatement(int64(handle)); s != nil {
		s.BindNull(int(i))
	}
}

//export plexpg_column_count
func plexpg_column_count(handle C.int64_t) C.int {
	s := lookupStatement(int64(handle))
	if s == nil {
		return 0
	}
	return C.int(s.ColumnCount())
}

//export plexpg_column_type
// plexpg_column_type returns the decode.Kind ordinal for column i; the
// cshim caller maps this onto SQLITE_INTEGER/FLOAT/TEXT/BLOB/NULL.
func plexpg_column_type(handle C.int64_t, i C.int) C.int {
	s := lookupStatement(int64(handle))
	if s == nil {
		return C.int(decode.KindNull)
	}
	return C.int(s.ColumnType(int(i)))
}

//export plexpg_column_int64
func plexpg_column_int64(handle C.int64_t, i C.int) C.int64_t {
	s := lookupStatement(int64(handle))
	if s == nil {
		return 0
	}
	return C.int64_t(s.ColumnInt64(int(i)))
}

//export plexpg_column_double
func plexpg_column_double(handle C.int64_t, i C.int) C.double {
	s := lookupStatement(int64(handle))
	if s == nil {
		return 0
	}
	return C.double(s.ColumnDouble(int(i)))
}

//export plexpg_column_text
func plexpg_column_text(handle C.int64_t, i C.int) *C.char {
	s := lookupStatement(int64(handle))
	if s == nil {
		return C.CString("")
	}
	return C.CString(s.ColumnText(int(i)))
}

//export plexpg_changes
func plexpg_changes(handle C.int64_t) C.int64_t {
	s := lookupStatement(int64(handle))
	if s == nil {
		return 0
	}
	return C.int64_t(s.Changes())
}

//export plexpg_create_collation
// plexpg_create_collation implements C12's accept-and-ignore behaviour
// for dialect-only collations: it returns success (1) without binding
// anything when name is dialect-specific, and 0 (defer to the embedded
// engine) otherwise.
func plexpg_create_collation(name *C.char) C.int {
	if compat.IsDialectCollation(C.GoString(name)) {
		return 1
	}
	return 0
}

func main() {}
