// Package translate implements the SQL translation pipeline (C1, C2): a
// multi-stage, source-to-source rewriter that converts the embedded
// engine's SQL dialect into the strict dialect of the remote server.
//
// The pipeline is deliberately lexical, not syntactic. There is no parse
// tree: each stage is a pure function from string to string that uses the
// scanner primitives in scanner.go to avoid rewriting inside string
// literals, quoted identifiers, or comments. This mirrors the scope of
// the embedded-engine shim this package serves: dialect translation for a
// known, bounded set of constructs, not general SQL understanding.
package translate

import (
	"github.com/sqldef/plexpg/internal/fingerprint"
)

// FailureKind classifies why a statement could not be translated.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureBufferOverflow
	FailureUnsupported
)

// Translation is the immutable result of running the pipeline over one
// SQL string (§3 "Translation").
type Translation struct {
	SQL        string
	ParamNames []string // positional index i holds the :name bound to $i+1, or "" for ?
	ParamCount int
	Success    bool
	Failure    FailureKind
	Fingerprint uint64
}

// maxSQLLength bounds the size of SQL this pipeline will attempt to
// rewrite; beyond this a stage is assumed to be stack/heap hungry enough
// that it's safer to pass the statement through untouched (§4.2 failure
// semantics: "a stage that overflows its string buffer returns the input
// unchanged and increments a counter").
const maxSQLLength = 1 << 20 // 1 MiB

// Options configures stages that need external context (§4.2 stage 1 and
// stage 6).
type Options struct {
	// Schema is the configured schema to qualify bare table names with
	// (PLEX_PG_SCHEMA). Empty disables stage 1.
	Schema string
	// SchemaTables is the whitelist of bare table names eligible for
	// schema-qualification in stage 1.
	SchemaTables map[string]bool
	// SkipStackHungryStages disables GROUP BY exhaustion (stage 10) and
	// all function rewrites (stage 3) when C9's stack gate is in its soft
	// zone.
	SkipStackHungryStages bool
	// Conflicts is the static per-table upsert conflict-target table used
	// by stage 6.
	Conflicts ConflictTable
}

// stage is one pass of the pipeline. Every stage must return the input
// unchanged rather than panicking or erroring; overflowCount is
// incremented when a stage bails out due to size.
type stage struct {
	name string
	run  func(sql string, opt Options) string
}

// stages is the fixed, contractual order from §4.2.
func stages() []stage {
	return []stage{
		{"schema_prefix", stageSchemaPrefix},
		{"placeholders", stagePlaceholdersWrapper},
		{"functions", stageFunctionRewrites},
		{"types", stageTypeRewrites},
		{"keywords", stageKeywordRewrites},
		{"upsert", stageUpsertSynthesis},
		{"quoting", stageIdentifierQuoting},
		{"ddl_idempotence", stageDDLIdempotence},
		{"empty_set_grouping", stageEmptySetAndGroupingFixups},
		{"exhaustive_group_by", stageExhaustiveGroupBy},
		{"operator_spacing", stageOperatorSpacing},
		{"system_tables", stageSystemTableRewrite},
		{"collation_strip", stageCollationStrip},
	}
}

// global overflow counter, incremented whenever a stage declines to run
// because its input exceeded maxSQLLength. Exposed for tests and metrics;
// not reset between calls.
var overflowCount uint64

// OverflowCount returns how many times a stage has bailed out on an
// oversized statement since process start.
func OverflowCount() uint64 { return overflowCount }

// Translate runs the full pipeline over sql and returns the result. It
// never errors: an oversized statement comes back unchanged with
// Success=false and Failure=FailureBufferOverflow, and callers (C6
// statement.prepare) fall back to PASSTHROUGH. Every other statement comes
// back with Success=true; no statement is reported as FailureUnsupported.
func Translate(sql string, opt Options) Translation {
	fp := fingerprint.FNV1a(sql)

	if len(sql) > maxSQLLength {
		overflowCount++
		return Translation{SQL: sql, Success: false, Failure: FailureBufferOverflow, Fingerprint: fp}
	}

	out := sql
	var paramNames []string
	for _, st := range stages() {
		if st.name == "placeholders" {
			var p placeholderResult
			out, p = placeholders(out)
			paramNames = p.names
			continue
		}
		if opt.SkipStackHungryStages && (st.name == "exhaustive_group_by" || st.name == "functions") {
			continue
		}
		next := st.run(out, opt)
		if len(next) == 0 && len(out) > 0 {
			// A stage that legitimately empties a non-empty statement is
			// not a known rewrite in this pipeline; treat as a no-op to
			// stay on the safe side (§4.2 failure semantics).
			continue
		}
		out = next
	}

	return Translation{
		SQL:         out,
		ParamNames:  paramNames,
		ParamCount:  len(paramNames),
		Success:     true,
		Failure:     FailureNone,
		Fingerprint: fp,
	}
}

// stagePlaceholdersWrapper exists only so stage 2 has the same `stage`
// shape as the rest; Translate special-cases it above to thread
// paramNames out without changing the stage[] type. It is never invoked
// directly (guarded by the name check in Translate), but is kept in the
// slice so the contractual order in stages() stays readable end to end.
func stagePlaceholdersWrapper(sql string, _ Options) string {
	out, _ := placeholders(sql)
	return out
}
