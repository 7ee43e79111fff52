// Package compat implements the collation/DDL compatibility shims (C12):
// at first attach to an intercepted file, a fixed list of dialect-
// specific schema objects is dropped from the shadow engine because they
// would error under the remote server's strict semantics, and
// registrations of dialect-only collations are accepted without binding
// anything.
package compat

import (
	"context"
	"fmt"
	"strings"

	"github.com/sqldef/plexpg/internal/shadow"
	"golang.org/x/sync/errgroup"
)

// Sweep drops every ICU-backed index and FTS trigger it finds in engine,
// fanned out with bounded concurrency the way the teacher's
// database.ConcurrentMapFuncWithError spreads per-table DDL dumps across
// goroutines (§4.12 "the shim executes DROP INDEX IF EXISTS ... and DROP
// TRIGGER IF EXISTS ... for a fixed list of dialect-specific objects").
// A failure to drop one object does not abort the others; failures are
// collected through a buffered channel — the same mechanism
// database/concurrent.go:27,52 uses to gather goroutine results without
// a shared slice — and returned joined so attach can log them and
// proceed.
func Sweep(ctx context.Context, engine *shadow.Engine) error {
	objs, err := engine.ICUBackedObjects(ctx)
	if err != nil {
		return fmt.Errorf("compat: listing dialect-specific objects: %w", err)
	}
	if len(objs) == 0 {
		return nil
	}

	eg, egCtx := errgroup.WithContext(context.Background())
	eg.SetLimit(4)

	failureCh := make(chan string, len(objs))
	for _, o := range objs {
		o := o
		eg.Go(func() error {
			stmt := dropStatement(o)
			if _, err := engine.DB().ExecContext(egCtx, stmt); err != nil {
				failureCh <- fmt.Sprintf("%s %s: %v", o.Type, o.Name, err)
			}
			return nil
		})
	}
	_ = eg.Wait()
	close(failureCh)

	var failures []string
	for f := range failureCh {
		failures = append(failures, f)
	}

	if len(failures) > 0 {
		return fmt.Errorf("compat: %s", strings.Join(failures, "; "))
	}
	return nil
}

func dropStatement(o shadow.Object) string {
	switch o.Type {
	case "trigger":
		return fmt.Sprintf("DROP TRIGGER IF EXISTS %s", quoteIdent(o.Name))
	default:
		return fmt.Sprintf("DROP INDEX IF EXISTS %s", quoteIdent(o.Name))
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// IsDialectCollation reports whether a collation name registered via
// create_collation(_v2) is one of the dialect-only names this shim
// accepts and ignores rather than binding (§4.12 "Registrations of
// dialect-only collations (names containing icu) are accepted with
// success without binding anything").
func IsDialectCollation(name string) bool {
	return strings.Contains(strings.ToLower(name), "icu")
}
