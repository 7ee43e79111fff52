// Package shadow wraps the embedded SQLite engine that backs
// non-intercepted databases and the schema introspection the C12
// compatibility sweep needs, grounded in the teacher's
// adapter/sqlite3 and database/sqlite3 adapters.
package shadow

import (
	"context"
	"database/sql"
	"strings"
)

// Engine is one opened shadow database file.
type Engine struct {
	db *sql.DB
}

// Open opens filename against the embedded engine, using whichever
// driver this build was compiled with (see driver_modernc.go and
// driver_mattn.go).
func Open(filename string) (*Engine, error) {
	db, err := sql.Open(driverName, filename)
	if err != nil {
		return nil, err
	}
	return &Engine{db: db}, nil
}

// DB exposes the underlying *sql.DB for callers that need to run raw
// statements (the passthrough path for non-intercepted handles).
func (e *Engine) DB() *sql.DB {
	return e.db
}

// Close closes the shadow database.
func (e *Engine) Close() error {
	return e.db.Close()
}

// Object is one sqlite_master row naming a schema object the C12 sweep
// may need to drop.
type Object struct {
	Type string // "index" or "trigger"
	Name string
}

// ICUBackedObjects returns every index/trigger in sqlite_master whose
// name or defining SQL mentions an ICU collation or FTS construct —
// candidates for the C12 DROP sweep (§4.12 "ICU-backed indexes, FTS
// triggers").
func (e *Engine) ICUBackedObjects(ctx context.Context) ([]Object, error) {
	const query = `
		select type, name, coalesce(sql, '')
		from sqlite_master
		where type in ('index', 'trigger')`
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var objs []Object
	for rows.Next() {
		var typ, name, ddl string
		if err := rows.Scan(&typ, &name, &ddl); err != nil {
			return nil, err
		}
		if mentionsDialectConstruct(name) || mentionsDialectConstruct(ddl) {
			objs = append(objs, Object{Type: typ, Name: name})
		}
	}
	return objs, rows.Err()
}

func mentionsDialectConstruct(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "icu") || strings.Contains(lower, "fts")
}
