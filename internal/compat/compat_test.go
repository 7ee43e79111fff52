package compat

import (
	"context"
	"strings"
	"testing"

	"github.com/sqldef/plexpg/internal/shadow"
)

func TestSweepDropsICUIndexesAndFTSTriggers(t *testing.T) {
	e, err := shadow.Open(":memory:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer e.Close()

	ctx := context.Background()
	stmts := []string{
		`create table t (a text, b text)`,
		`create index idx_icu_sort on t (a)`,
		`create trigger trg_fts_sync after insert on t begin select 1; end`,
		`create index idx_plain on t (b)`,
	}
	for _, s := range stmts {
		if _, err := e.DB().ExecContext(ctx, s); err != nil {
			t.Fatalf("setup statement %q failed: %v", s, err)
		}
	}

	if err := Sweep(ctx, e); err != nil {
		t.Fatalf("unexpected sweep error: %v", err)
	}

	remaining, err := e.ICUBackedObjects(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected the sweep to drop every dialect-specific object, got %+v", remaining)
	}

	var plainCount int
	if err := e.DB().QueryRowContext(ctx,
		`select count(*) from sqlite_master where name = 'idx_plain'`).Scan(&plainCount); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plainCount != 1 {
		t.Errorf("expected idx_plain to survive the sweep, got count=%d", plainCount)
	}
}

func TestSweepIsNoOpWhenNothingMatches(t *testing.T) {
	e, err := shadow.Open(":memory:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer e.Close()

	if err := Sweep(context.Background(), e); err != nil {
		t.Fatalf("expected a no-op sweep to succeed, got %v", err)
	}
}

func TestSweepCollectsConcurrentFailuresWithoutRace(t *testing.T) {
	e, err := shadow.Open(":memory:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer e.Close()
	// force every DROP to serialize on the same connection so a single
	// PRAGMA query_only applies to all of them regardless of which
	// goroutine the pool happens to schedule it on.
	e.DB().SetMaxOpenConns(1)

	ctx := context.Background()
	stmts := []string{
		`create table t (a text, b text, c text)`,
		`create index idx_icu_one on t (a)`,
		`create index idx_icu_two on t (b)`,
		`create trigger trg_fts_three after insert on t begin select 1; end`,
	}
	for _, s := range stmts {
		if _, err := e.DB().ExecContext(ctx, s); err != nil {
			t.Fatalf("setup statement %q failed: %v", s, err)
		}
	}
	if _, err := e.DB().ExecContext(ctx, `PRAGMA query_only = ON`); err != nil {
		t.Fatalf("unexpected error enabling query_only: %v", err)
	}

	// three dialect-specific objects now exist and every DROP against
	// them will fail concurrently (bounded 4-way fan-out, §Sweep) since
	// the connection is read-only; this exercises the channel-based
	// failure collection under genuine concurrent writers.
	err = Sweep(ctx, e)
	if err == nil {
		t.Fatalf("expected Sweep to report failures once every DROP fails")
	}
	for _, want := range []string{"idx_icu_one", "idx_icu_two", "trg_fts_three"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected the joined failure message to mention %q, got %q", want, err.Error())
		}
	}
}

func TestIsDialectCollation(t *testing.T) {
	cases := map[string]bool{
		"icu_en_US": true,
		"ICU_CI":    true,
		"nocase":    false,
		"binary":    false,
	}
	for name, want := range cases {
		if got := IsDialectCollation(name); got != want {
			t.Errorf("IsDialectCollation(%q) = %v, want %v", name, got, want)
		}
	}
}
