package statement

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sqldef/plexpg/internal/decode"
	"github.com/sqldef/plexpg/internal/fakevalue"
	"github.com/sqldef/plexpg/internal/session"
)

// Classification is the outcome of prepare's dialect sniff (§4.6
// "prepare classifies the SQL").
type Classification int

const (
	ClassWrite Classification = iota
	ClassRead
	ClassDDL
	ClassSuppressed
	ClassPassthrough
)

// State is the statement's lifecycle position (§4.3 "Statement state
// machine: CREATED -> PREPARED -> (BOUND <-> EXECUTED) -> FINALIZED").
type State int

const (
	StateCreated State = iota
	StatePrepared
	StateBound
	StateExecuted
	StateFinalized
)

// StepResult mirrors the embedded engine's ROW/DONE step outcomes.
type StepResult int

const (
	StepError StepResult = iota
	StepRow
	StepDone
)

// ErrPassthrough is returned by Step when called on a PASSTHROUGH
// statement; callers must forward such statements to the embedded engine
// instead of stepping them here (§4.6 "on failure the statement becomes
// PASSTHROUGH to the embedded engine").
var ErrPassthrough = errors.New("statement: passthrough statements are not executed by this shim")

type paramValue struct {
	set  bool
	null bool
	i64  int64
	f64  float64
	text string
	blob []byte
	kind byte // 'i','f','t','b', 0 for unset/null
}

func (p paramValue) any() any {
	if p.null || !p.set {
		return nil
	}
	switch p.kind {
	case 'i':
		return p.i64
	case 'f':
		return p.f64
	case 't':
		return p.text
	case 'b':
		return p.blob
	default:
		return nil
	}
}

var nextStatementID uint64

// Statement is the C6 statement object.
type Statement struct {
	mu sync.Mutex

	id   uint64
	conn *Conn

	originalSQL    string
	translatedSQL  string
	fingerprint    uint64
	returning      bool
	class          Classification
	insertOrIgnore bool
	targetTable    string

	paramNames []string
	params     []paramValue

	state  State
	failed bool

	result *session.Result
	row    int

	textCache map[int]string
	blobCache map[int][]byte
}

// Prepare classifies and (for WRITE/READ/DDL) translates sql, returning a
// Statement ready for binding. Translation failure degrades the
// statement to PASSTHROUGH rather than erroring (§4.6 "prepare").
func Prepare(ctx context.Context, conn *Conn, sql string) *Statement {
	s := &Statement{
		id:          atomic.AddUint64(&nextStatementID, 1),
		conn:        conn,
		originalSQL: sql,
		state:       StatePrepared,
	}

	class := classify(sql)
	s.class = class
	s.insertOrIgnore = class == ClassWrite && hasPrefixWord(sql, "INSERT OR IGNORE")
	if class == ClassSuppressed {
		return s
	}
	if class != ClassWrite && class != ClassRead && class != ClassDDL {
		s.class = ClassPassthrough
		return s
	}

	tr := conn.translate(ctx, sql)
	if !tr.Success {
		s.class = ClassPassthrough
		return s
	}
	s.translatedSQL = tr.SQL
	s.paramNames = tr.ParamNames
	s.params = make([]paramValue, tr.ParamCount)
	s.returning = strings.Contains(strings.ToUpper(tr.SQL), "RETURNING")
	if class == ClassWrite {
		s.targetTable = writeTargetTable(sql)
		if !s.returning && s.targetTable != "" && conn.Options.Conflicts.HasIDSurrogate(s.targetTable) {
			s.translatedSQL += " RETURNING id"
			s.returning = true
		}
	}
	s.fingerprint = fingerprintOf(s.translatedSQL)
	return s
}

// Class reports the statement's classification.
func (s *Statement) Class() Classification { return s.class }

// Fingerprint returns the translated SQL's cache key, the same value
// C9's loop detector keys its per-thread occurrence table on.
func (s *Statement) Fingerprint() uint64 { return s.fingerprint }

// Failed reports whether the statement is in a terminal error state;
// subsequent step/column calls should be treated as no-ops (§4.6
// "any terminal error sets a failure flag that subsequent step/column
// calls honour").
func (s *Statement) Failed() bool { return s.failed }

// BindInt64 stores an integer parameter at 1-based position i (§4.6
// "bind[i] stores the parameter; i is 1-based in the host ABI").
func (s *Statement) BindInt64(i int, v int64) {
	s.setParam(i, paramValue{set: true, kind: 'i', i64: v})
}

// BindDouble stores a float parameter.
func (s *Statement) BindDouble(i int, v float64) {
	s.setParam(i, paramValue{set: true, kind: 'f', f64: v})
}

// BindText stores a text parameter.
func (s *Statement) BindText(i int, v string) {
	s.setParam(i, paramValue{set: true, kind: 't', text: v})
}

// BindBlob stores a blob parameter.
func (s *Statement) BindBlob(i int, v []byte) {
	s.setParam(i, paramValue{set: true, kind: 'b', blob: v})
}

// BindNull stores a SQL NULL parameter.
func (s *Statement) BindNull(i int) {
	s.setParam(i, paramValue{set: true, null: true})
}

func (s *Statement) setParam(i int, v paramValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := i - 1
	if idx < 0 || idx >= len(s.params) {
		return
	}
	s.params[idx] = v
	if s.state == StatePrepared || s.state == StateExecuted {
		s.state = StateBound
	}
}

// BindByName resolves a named parameter (`:name`) to its 1-based
// position via the parameter-name vector recorded at translate time
// (§4.6 "For named parameters, the parameter-name vector records :name
// at position i-1; a later bind-by-name resolves through this vector.").
func (s *Statement) BindByName(name string) (int, bool) {
	for i, n := range s.paramNames {
		if n == name {
			return i + 1, true
		}
	}
	return 0, false
}

// ClearBindings resets all bound parameters without discarding the
// result (§4.6 "clear_bindings").
func (s *Statement) ClearBindings() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.params {
		s.params[i] = paramValue{}
	}
}

// Reset discards the result and parameter buffers, moving the statement
// back to PREPARED (§4.6 "reset discards the result and parameter
// buffers").
func (s *Statement) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = nil
	s.row = 0
	s.textCache = nil
	s.blobCache = nil
	s.failed = false
	for i := range s.params {
		s.params[i] = paramValue{}
	}
	if s.state != StateFinalized {
		s.state = StatePrepared
	}
}

// Finalize releases the statement; the owning pool session is not
// released here, only reclaimed by the caller that owns the database
// handle (§4.6 "finalize releases the prepared-statement reference ...
// pool session is not released here").
func (s *Statement) Finalize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateFinalized
	s.result = nil
}

// Step executes the statement (§4.6 "step").
func (s *Statement) Step(ctx context.Context) (StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.class {
	case ClassSuppressed:
		return StepDone, nil
	case ClassPassthrough:
		return StepError, ErrPassthrough
	}

	if s.failed {
		return StepError, errors.New("statement: step called after a terminal failure")
	}

	if s.result == nil {
		if err := s.execute(ctx); err != nil {
			s.failed = true
			return StepError, err
		}
		s.state = StateExecuted
		s.row = 0
		if s.result.NTuples() > 0 {
			return StepRow, nil
		}
		return StepDone, nil
	}

	s.row++
	s.textCache = nil
	s.blobCache = nil
	if s.row < s.result.NTuples() {
		return StepRow, nil
	}
	return StepDone, nil
}

func (s *Statement) execute(ctx context.Context) error {
	sess := s.conn.Pool.Session(s.conn.Handle)
	pc := s.conn.Pool.Statements(s.conn.Handle)
	args := make([]any, len(s.params))
	for i, p := range s.params {
		args[i] = p.any()
	}

	needsRows := s.class == ClassRead || s.returning

	stmt, _, ok := pc.Lookup(s.fingerprint)
	if !ok {
		prepared, err := sess.Prepare(ctx, "", s.translatedSQL)
		if err != nil {
			kind, msg := session.Classify(err)
			s.mirrorError(kind, msg)
			return err
		}
		pc.Store(s.fingerprint, prepared)
		stmt = prepared
	}

	var res *session.Result
	var err error
	if needsRows {
		res, err = sess.ExecPrepared(ctx, stmt, args...)
	} else {
		res, err = sess.ExecPreparedOnly(ctx, stmt, args...)
	}
	if err != nil {
		kind, msg := session.Classify(err)
		if s.class == ClassDDL && isIdempotentDDLError(msg) {
			s.result = &session.Result{}
			return nil
		}
		if s.class == ClassWrite && s.insertOrIgnore && kind == session.ErrConstraint {
			s.result = &session.Result{}
			return nil
		}
		s.mirrorError(kind, msg)
		return err
	}
	s.result = res
	s.conn.Errors.Clear()
	return nil
}

func (s *Statement) mirrorError(kind session.ErrorKind, msg string) {
	s.conn.Errors.Set(errKindFromSession(kind), msg)
}

func isIdempotentDDLError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "already exists") || strings.Contains(lower, "duplicate column")
}

// ColumnCount returns the number of columns in the current result
// (§4.6 "column_count").
func (s *Statement) ColumnCount() int {
	if s.result == nil {
		return 0
	}
	return s.result.NFields()
}

// ColumnName returns the name of column i (§4.6 "column_name").
func (s *Statement) ColumnName(i int) string {
	return s.result.FName(i)
}

// ColumnType classifies column i using C8's OID-to-kind mapping (§4.6
// "column_type").
func (s *Statement) ColumnType(i int) decode.Kind {
	if s.result.GetIsNull(s.row, i) {
		return decode.KindNull
	}
	return decode.ClassifyType(s.result.FType(i))
}

// ColumnInt64 returns the integer accessor form of column i (§4.8).
func (s *Statement) ColumnInt64(i int) int64 {
	return decode.Int(s.result.GetValue(s.row, i), s.result.GetIsNull(s.row, i))
}

// ColumnDouble returns the float accessor form of column i (§4.8).
func (s *Statement) ColumnDouble(i int) float64 {
	return decode.Float(s.result.GetValue(s.row, i), s.result.GetIsNull(s.row, i))
}

// ColumnText returns the text accessor form of column i, caching the
// value for the lifetime of the current row (§4.6 "text ... values are
// copied into a per-column per-row cache so returned pointers remain
// valid until the cursor moves or the statement resets").
func (s *Statement) ColumnText(i int) string {
	if s.textCache == nil {
		s.textCache = make(map[int]string)
	}
	if v, ok := s.textCache[i]; ok {
		return v
	}
	v := decode.Text(s.result.GetValue(s.row, i))
	s.textCache[i] = v
	return v
}

// ColumnBlob returns the blob accessor form of column i, caching the
// decoded bytes for the lifetime of the current row (§4.8).
func (s *Statement) ColumnBlob(i int) []byte {
	if s.blobCache == nil {
		s.blobCache = make(map[int][]byte)
	}
	if v, ok := s.blobCache[i]; ok {
		return v
	}
	v := decode.Blob(s.result.GetValue(s.row, i), s.result.FType(i), s.result.GetIsNull(s.row, i))
	s.blobCache[i] = v
	return v
}

// ColumnValue returns an opaque fake-value handle for column i at the
// current row (§4.6 "column_value returns a fake-value handle from C7").
func (s *Statement) ColumnValue(i int) fakevalue.Handle {
	return s.conn.Values.Alloc(fakevalue.Ref{Statement: uintptr(s.id), Col: i, Row: s.row})
}

// Changes reports the row count from the most recent WRITE (§4.6 "step
// ... changes-count is updated").
func (s *Statement) Changes() int64 {
	if s.result == nil {
		return 0
	}
	return s.result.RowsAffected
}
