package statement

import (
	"context"
	"strings"
	"testing"

	"github.com/sqldef/plexpg/internal/decode"
	"github.com/sqldef/plexpg/internal/errmirror"
	"github.com/sqldef/plexpg/internal/fakevalue"
	"github.com/sqldef/plexpg/internal/session"
	"github.com/sqldef/plexpg/internal/translate"
)

func testConn() *Conn {
	return &Conn{
		Values:  fakevalue.New(),
		Errors:  errmirror.New(),
		Options: translate.Options{Conflicts: translate.DefaultConflictTable()},
	}
}

func TestClassifyWrite(t *testing.T) {
	for _, sql := range []string{"INSERT INTO tags (id) VALUES (1)", "UPDATE tags SET tag = 'x'", "DELETE FROM tags", "REPLACE INTO tags (id) VALUES (1)"} {
		if classify(sql) != ClassWrite {
			t.Errorf("expected WRITE for %q", sql)
		}
	}
}

func TestClassifyRead(t *testing.T) {
	if classify("  select * from tags") != ClassRead {
		t.Errorf("expected READ")
	}
	if classify("WITH x AS (SELECT 1) SELECT * FROM x") != ClassRead {
		t.Errorf("expected READ for WITH")
	}
}

func TestClassifyDDL(t *testing.T) {
	for _, sql := range []string{"CREATE TABLE t (id int)", "DROP TABLE t", "ALTER TABLE t ADD COLUMN x int"} {
		if classify(sql) != ClassDDL {
			t.Errorf("expected DDL for %q", sql)
		}
	}
}

func TestClassifySuppressed(t *testing.T) {
	for _, sql := range []string{"PRAGMA journal_mode=WAL", "VACUUM", "ATTACH DATABASE 'x' AS y"} {
		if classify(sql) != ClassSuppressed {
			t.Errorf("expected SUPPRESSED for %q", sql)
		}
	}
}

func TestClassifyPassthroughForUnknown(t *testing.T) {
	if classify("EXPLAIN QUERY PLAN SELECT 1") != ClassPassthrough {
		t.Errorf("expected PASSTHROUGH for unrecognised statement")
	}
}

func TestWriteTargetTable(t *testing.T) {
	cases := map[string]string{
		"INSERT INTO tags (id, tag) VALUES (1, 'x')":    "tags",
		"INSERT OR REPLACE INTO tags (id) VALUES (1)":   "tags",
		"UPDATE metadata_items SET title = 'x'":         "metadata_items",
		"DELETE FROM media_parts WHERE id = 1":          "media_parts",
		"REPLACE INTO views (id) VALUES (1)":            "views",
	}
	for sql, want := range cases {
		if got := writeTargetTable(sql); got != want {
			t.Errorf("writeTargetTable(%q) = %q, want %q", sql, got, want)
		}
	}
}

func TestPrepareClassifiesAndTranslates(t *testing.T) {
	conn := testConn()
	s := Prepare(context.Background(), conn, "INSERT OR REPLACE INTO tags (id, tag) VALUES (?, ?)")
	if s.Class() != ClassWrite {
		t.Fatalf("expected WRITE, got %v", s.Class())
	}
	if !strings.Contains(s.translatedSQL, "ON CONFLICT") {
		t.Errorf("expected upsert synthesis in translated SQL, got %q", s.translatedSQL)
	}
	if !s.returning {
		t.Errorf("expected returning flag set for a table with an id surrogate")
	}
	if !strings.Contains(s.translatedSQL, "RETURNING id") {
		t.Errorf("expected RETURNING id appended, got %q", s.translatedSQL)
	}
}

func TestPrepareSuppressedSkipsTranslation(t *testing.T) {
	conn := testConn()
	s := Prepare(context.Background(), conn, "PRAGMA foreign_keys=ON")
	if s.Class() != ClassSuppressed {
		t.Fatalf("expected SUPPRESSED, got %v", s.Class())
	}
	if s.translatedSQL != "" {
		t.Errorf("expected no translation for a suppressed statement")
	}
}

func TestStepSuppressedAlwaysDone(t *testing.T) {
	conn := testConn()
	s := Prepare(context.Background(), conn, "VACUUM")
	res, err := s.Step(context.Background())
	if err != nil || res != StepDone {
		t.Errorf("expected (StepDone, nil), got (%v, %v)", res, err)
	}
}

func TestStepPassthroughReturnsError(t *testing.T) {
	conn := testConn()
	s := Prepare(context.Background(), conn, "EXPLAIN SELECT 1")
	_, err := s.Step(context.Background())
	if err != ErrPassthrough {
		t.Errorf("expected ErrPassthrough, got %v", err)
	}
}

func TestBindByNameResolvesPosition(t *testing.T) {
	conn := testConn()
	s := Prepare(context.Background(), conn, "UPDATE tags SET tag = :tag WHERE id = :id")
	pos, ok := s.BindByName("id")
	if !ok {
		t.Fatalf("expected :id to resolve")
	}
	s.BindInt64(pos, 7)
	if !s.params[pos-1].set || s.params[pos-1].i64 != 7 {
		t.Errorf("expected bound param at resolved position")
	}
}

func TestBindOutOfRangeIsIgnored(t *testing.T) {
	conn := testConn()
	s := Prepare(context.Background(), conn, "UPDATE tags SET tag = ?")
	s.BindInt64(99, 1) // should not panic
}

func TestClearBindingsResetsParams(t *testing.T) {
	conn := testConn()
	s := Prepare(context.Background(), conn, "UPDATE tags SET tag = ?")
	s.BindText(1, "x")
	s.ClearBindings()
	if s.params[0].set {
		t.Errorf("expected ClearBindings to reset the parameter")
	}
}

func TestResetClearsResultAndReturnsToPrepared(t *testing.T) {
	conn := testConn()
	s := Prepare(context.Background(), conn, "SELECT 1")
	s.result = &session.Result{Columns: []string{"c"}, Rows: [][]session.Cell{{{Text: "1", Valid: true}}}}
	s.state = StateExecuted
	s.Reset()
	if s.result != nil || s.state != StatePrepared {
		t.Errorf("expected Reset to clear result and return to PREPARED")
	}
}

func TestFinalizeMovesToFinalizedState(t *testing.T) {
	conn := testConn()
	s := Prepare(context.Background(), conn, "SELECT 1")
	s.Finalize()
	if s.state != StateFinalized {
		t.Errorf("expected FINALIZED state after Finalize")
	}
}

func TestColumnAccessorsReadCurrentRow(t *testing.T) {
	conn := testConn()
	s := Prepare(context.Background(), conn, "SELECT id, active, amount, data FROM t")
	s.result = &session.Result{
		Columns:    []string{"id", "active", "amount", "data"},
		ColumnOIDs: []string{"INT8", "BOOL", "FLOAT8", "BYTEA"},
		Rows: [][]session.Cell{
			{{Text: "5", Valid: true}, {Text: "t", Valid: true}, {Text: "3.5", Valid: true}, {Text: `\x68690a`, Valid: true}},
		},
	}
	if s.ColumnCount() != 4 {
		t.Fatalf("expected 4 columns, got %d", s.ColumnCount())
	}
	if s.ColumnInt64(0) != 5 {
		t.Errorf("expected id == 5")
	}
	if s.ColumnInt64(1) != 1 {
		t.Errorf("expected boolean 't' to decode as 1")
	}
	if s.ColumnDouble(2) != 3.5 {
		t.Errorf("expected amount == 3.5")
	}
	if s.ColumnType(3) != decode.KindBlob {
		t.Errorf("expected BYTEA classified as blob")
	}
	blob := s.ColumnBlob(3)
	if string(blob) != "hi\n" {
		t.Errorf("expected decoded hex bytes, got %q", blob)
	}
}

func TestColumnValueReturnsValidatableHandle(t *testing.T) {
	conn := testConn()
	s := Prepare(context.Background(), conn, "SELECT id FROM t")
	s.result = &session.Result{Columns: []string{"id"}, Rows: [][]session.Cell{{{Text: "1", Valid: true}}}}
	h := s.ColumnValue(0)
	ref, ok := conn.Values.Validate(h)
	if !ok {
		t.Fatalf("expected the handle to validate")
	}
	if ref.Col != 0 || ref.Row != 0 {
		t.Errorf("unexpected ref %#v", ref)
	}
}

func TestChangesReflectsRowsAffected(t *testing.T) {
	conn := testConn()
	s := Prepare(context.Background(), conn, "UPDATE tags SET tag = 'x'")
	s.result = &session.Result{RowsAffected: 3}
	if s.Changes() != 3 {
		t.Errorf("expected Changes() == 3, got %d", s.Changes())
	}
}

func TestIsIdempotentDDLError(t *testing.T) {
	if !isIdempotentDDLError(`relation "tags" already exists`) {
		t.Errorf("expected already-exists message recognised")
	}
	if !isIdempotentDDLError(`column "x" of relation "tags" already exists`) {
		t.Errorf("expected duplicate-column phrasing recognised")
	}
	if isIdempotentDDLError("syntax error at or near") {
		t.Errorf("did not expect unrelated error recognised as idempotent")
	}
}
