//go:build !windows

package session

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"

	"github.com/lib/pq"
)

func TestConfigDSNDefaultsToSSLDisable(t *testing.T) {
	cfg := Config{Host: "127.0.0.1", Port: 5432, Database: "plex", User: "plex", Password: "s3cret"}
	dsn := cfg.dsn()
	if want := "sslmode=disable"; !contains(dsn, want) {
		t.Errorf("expected %q in dsn, got %q", want, dsn)
	}
	if !contains(dsn, "127.0.0.1:5432") {
		t.Errorf("expected host:port in dsn, got %q", dsn)
	}
}

func TestConfigDSNEscapesCredentials(t *testing.T) {
	cfg := Config{Host: "127.0.0.1", Port: 5432, Database: "plex", User: "p@lex", Password: "s/s"}
	dsn := cfg.dsn()
	if contains(dsn, "p@lex") {
		t.Errorf("expected user to be escaped, got %q", dsn)
	}
}

func TestClassifyNilError(t *testing.T) {
	kind, msg := Classify(nil)
	if kind != ErrGeneric || msg != "" {
		t.Errorf("expected zero-value classification for nil error, got %v %q", kind, msg)
	}
}

func TestClassifyConstraintViolation(t *testing.T) {
	err := &pq.Error{Code: "23505", Message: "duplicate key value"}
	kind, msg := Classify(err)
	if kind != ErrConstraint {
		t.Errorf("expected ErrConstraint for SQLSTATE 23505, got %v", kind)
	}
	if msg != "duplicate key value" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestClassifySyntaxError(t *testing.T) {
	err := &pq.Error{Code: "42601"}
	kind, _ := Classify(err)
	if kind != ErrSyntax {
		t.Errorf("expected ErrSyntax for SQLSTATE 42601, got %v", kind)
	}
}

func TestClassifyConnectionException(t *testing.T) {
	err := &pq.Error{Code: "08006"}
	kind, _ := Classify(err)
	if kind != ErrConnectionLost {
		t.Errorf("expected ErrConnectionLost for SQLSTATE 08006, got %v", kind)
	}
}

func TestClassifyNonPQErrorTreatedAsConnectionLost(t *testing.T) {
	kind, msg := Classify(fmt.Errorf("dial tcp: connection refused"))
	if kind != ErrConnectionLost {
		t.Errorf("expected ErrConnectionLost for a non-pq error, got %v", kind)
	}
	if msg == "" {
		t.Errorf("expected a message to be preserved")
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

// The remaining tests exercise a real PostgreSQL connection and are gated
// the same way the teacher's database/postgres tests are: on PGHOST /
// PGPORT / PGUSER / PGPASSWORD, defaulting to a local instance.

func testConfig(t *testing.T) Config {
	t.Helper()
	port := 5432
	if p := os.Getenv("PGPORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}
	host := "127.0.0.1"
	if h := os.Getenv("PGHOST"); h != "" {
		host = h
	}
	user := "postgres"
	if u := os.Getenv("PGUSER"); u != "" {
		user = u
	}
	return Config{
		Host:     host,
		Port:     port,
		Database: "plexpg_session_test",
		User:     user,
		Password: os.Getenv("PGPASSWORD"),
		SSLMode:  "disable",
	}
}

func TestSessionExecAndPrepareLifecycle(t *testing.T) {
	if os.Getenv("PLEXPG_TEST_PG") == "" {
		t.Skip("set PLEXPG_TEST_PG=1 to run against a live PostgreSQL instance")
	}
	ctx := context.Background()
	s, err := Connect(ctx, testConfig(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	if _, err := s.ExecOnly(ctx, "CREATE TABLE IF NOT EXISTS session_smoke (id INTEGER PRIMARY KEY, tag TEXT)"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stmt, err := s.Prepare(ctx, "insert_tag", "INSERT INTO session_smoke (id, tag) VALUES ($1, $2)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := s.ExecPreparedOnly(ctx, stmt, 1, "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RowsAffected != 1 {
		t.Errorf("expected 1 row affected, got %d", res.RowsAffected)
	}

	result, err := s.Exec(ctx, "SELECT id, tag FROM session_smoke WHERE id = $1", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NTuples() != 1 || result.NFields() != 2 {
		t.Fatalf("unexpected shape %dx%d", result.NTuples(), result.NFields())
	}
	if result.GetValue(0, 1) != "hello" {
		t.Errorf("expected tag 'hello', got %q", result.GetValue(0, 1))
	}
	if result.GetIsNull(0, 0) {
		t.Errorf("id column should not be null")
	}

	if _, err := s.ExecOnly(ctx, "DROP TABLE session_smoke"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
