// Package session implements the remote-server wire-protocol adapter
// consumed by the rest of the shim (§6 "Remote-server wire protocol
// consumed"): synchronous exec, prepare, exec_prepared, result
// inspection, and error classification, built on database/sql and
// lib/pq rather than speaking the wire protocol directly — the same
// layering the teacher corpus uses for every SQL dialect it drives.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/lib/pq"
)

// DefaultConnectTimeout is the connect timeout enforced by the session
// layer (§5 "each remote call carries a connect timeout (default 10s)").
const DefaultConnectTimeout = 10 * time.Second

// Config names the remote PostgreSQL server (§6 configuration).
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

func (c Config) dsn() string {
	host := fmt.Sprintf("%s:%d", c.Host, c.Port)
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s&connect_timeout=%d",
		url.QueryEscape(c.User), url.QueryEscape(c.Password), host, c.Database,
		sslmode, int(DefaultConnectTimeout.Seconds()))
}

// Session is one pool slot's remote connection: a single pinned
// *sql.Conn and the *sql.DB that owns it. Prepared statements are not
// held here; callers keep them (C5's pcache).
type Session struct {
	db   *sql.DB
	conn *sql.Conn
}

// Connect opens a new Session against cfg (§6 "connect").
func Connect(ctx context.Context, cfg Config) (*Session, error) {
	db, err := sql.Open("postgres", cfg.dsn())
	if err != nil {
		return nil, err
	}
	connectCtx, cancel := context.WithTimeout(ctx, DefaultConnectTimeout)
	defer cancel()
	conn, err := db.Conn(connectCtx)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := conn.PingContext(connectCtx); err != nil {
		conn.Close()
		db.Close()
		return nil, err
	}
	return &Session{db: db, conn: conn}, nil
}

// Close tears down the session (§6 "finish"). Safe to call on a
// zero-value Session, which callers never dial but tests sometimes
// construct directly as a closable stand-in.
func (s *Session) Close() error {
	var connErr, dbErr error
	if s.conn != nil {
		connErr = s.conn.Close()
	}
	if s.db != nil {
		dbErr = s.db.Close()
	}
	if connErr != nil {
		return connErr
	}
	return dbErr
}

// Status reports whether the underlying connection is still usable.
func (s *Session) Status(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Result is a fully materialised result set (§4.6: "the entire result set
// is materialised into the statement; rows are not streamed").
type Result struct {
	Columns      []string
	ColumnOIDs   []string // DatabaseTypeName(), a stand-in for the server's numeric OID
	Rows         [][]Cell
	RowsAffected int64
}

// Cell is one materialised column value in text-protocol form (§6
// "Result format is text only").
type Cell struct {
	Text  string
	Valid bool // false means SQL NULL
}

// NTuples returns the number of rows (§6 "ntuples").
func (r *Result) NTuples() int { return len(r.Rows) }

// NFields returns the number of columns (§6 "nfields").
func (r *Result) NFields() int { return len(r.Columns) }

// FName returns the name of column i (§6 "fname").
func (r *Result) FName(i int) string { return r.Columns[i] }

// FType returns the server type name of column i (§6 "ftype"). This
// session layer reports PostgreSQL's informal type name
// (ColumnTypes().DatabaseTypeName()) rather than a raw numeric OID; C8's
// decoders classify off of this name instead of an OID table.
func (r *Result) FType(i int) string { return r.ColumnOIDs[i] }

// GetValue returns the text-protocol value of row/col (§6 "getvalue").
func (r *Result) GetValue(row, col int) string { return r.Rows[row][col].Text }

// GetLength returns the byte length of row/col's text value (§6 "getlength").
func (r *Result) GetLength(row, col int) int { return len(r.Rows[row][col].Text) }

// GetIsNull reports whether row/col is SQL NULL (§6 "getisnull").
func (r *Result) GetIsNull(row, col int) bool { return !r.Rows[row][col].Valid }

// Exec runs sql directly, unprepared (§6 "exec"), returning a
// materialised Result. Used for SELECT and any WRITE/DDL statement that
// carries a RETURNING clause, where the caller needs the returned rows.
func (s *Session) Exec(ctx context.Context, query string, args ...any) (*Result, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return materialize(rows)
}

// ExecOnly runs a statement known to return no rows (INSERT/UPDATE/
// DELETE without RETURNING, DDL), reporting the true affected-row count
// from the server's command tag rather than a materialised row count.
func (s *Session) ExecOnly(ctx context.Context, query string, args ...any) (*Result, error) {
	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	affected, _ := res.RowsAffected()
	return &Result{RowsAffected: affected}, nil
}

// Prepare creates a server-side prepared statement (§6 "prepare").
// lib/pq names statements internally, so name is not used: it is neither
// sent to the server nor stored anywhere.
func (s *Session) Prepare(ctx context.Context, name, query string) (*sql.Stmt, error) {
	return s.conn.PrepareContext(ctx, query)
}

// ExecPrepared runs a previously prepared statement by name and
// materialises its result rows (§6 "exec_prepared"), used when the
// statement is a SELECT or carries RETURNING.
func (s *Session) ExecPrepared(ctx context.Context, stmt *sql.Stmt, args ...any) (*Result, error) {
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	return materialize(rows)
}

// ExecPreparedOnly runs a previously prepared statement known to return
// no rows, reporting the true affected-row count from the command tag.
func (s *Session) ExecPreparedOnly(ctx context.Context, stmt *sql.Stmt, args ...any) (*Result, error) {
	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	affected, _ := res.RowsAffected()
	return &Result{RowsAffected: affected}, nil
}

func materialize(rows *sql.Rows) (*Result, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	r := &Result{
		Columns:    cols,
		ColumnOIDs: make([]string, len(types)),
	}
	for i, t := range types {
		r.ColumnOIDs[i] = t.DatabaseTypeName()
	}

	scanDest := make([]any, len(cols))
	rawValues := make([]sql.NullString, len(cols))
	for i := range rawValues {
		scanDest[i] = &rawValues[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanDest...); err != nil {
			return nil, err
		}
		row := make([]Cell, len(cols))
		for i, v := range rawValues {
			row[i] = Cell{Text: v.String, Valid: v.Valid}
		}
		r.Rows = append(r.Rows, row)
		r.RowsAffected++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return r, nil
}

// ErrorKind classifies a remote error for the error mirror (§7 / §4.11).
type ErrorKind int

const (
	ErrGeneric ErrorKind = iota
	ErrConstraint
	ErrSyntax
	ErrConnectionLost
)

// Classify maps a lib/pq error to a coarse ErrorKind using *pq.Error's
// SQLSTATE class and name (§7 "remote returned a unique/foreign-key
// violation" / "remote rejected translated SQL").
func Classify(err error) (ErrorKind, string) {
	if err == nil {
		return ErrGeneric, ""
	}
	pqErr, ok := err.(*pq.Error)
	if !ok {
		return ErrConnectionLost, err.Error()
	}
	switch pqErr.Code.Class() {
	case "23": // integrity constraint violation
		return ErrConstraint, pqErr.Message
	case "42": // syntax error or access rule violation
		return ErrSyntax, pqErr.Message
	case "08": // connection exception
		return ErrConnectionLost, pqErr.Message
	default:
		return ErrGeneric, pqErr.Message
	}
}

// CodeName exposes pq.Error.Code.Name() for diagnostics/logging (the error
// mirror stores it alongside the coarse ErrorKind; control flow always
// goes through Classify's Class()-based switch, never this name).
func CodeName(err error) string {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code.Name()
	}
	return ""
}
