package statement

import (
	"strings"

	"github.com/sqldef/plexpg/internal/errmirror"
	"github.com/sqldef/plexpg/internal/session"
)

// suppressedKeywords are dialect-only statements with no remote
// equivalent; they become a sentinel statement whose step always yields
// DONE (§4.6 "SUPPRESSED (dialect-only PRAGMA/ATTACH/VACUUM/etc.)").
var suppressedKeywords = []string{
	"PRAGMA", "ATTACH", "DETACH", "VACUUM", "REINDEX", "ANALYZE",
}

var writeKeywords = []string{"INSERT", "UPDATE", "DELETE", "REPLACE"}
var ddlKeywords = []string{"CREATE", "DROP", "ALTER"}

// classify sniffs the first significant keyword of sql (§4.6 "prepare
// classifies the SQL").
func classify(sql string) Classification {
	word := firstWord(sql)
	switch {
	case matchesAny(word, suppressedKeywords):
		return ClassSuppressed
	case matchesAny(word, writeKeywords):
		return ClassWrite
	case word == "SELECT", word == "WITH":
		return ClassRead
	case matchesAny(word, ddlKeywords):
		return ClassDDL
	default:
		return ClassPassthrough
	}
}

func firstWord(sql string) string {
	trimmed := strings.TrimLeft(sql, " \t\r\n")
	end := 0
	for end < len(trimmed) && isWordByte(trimmed[end]) {
		end++
	}
	return strings.ToUpper(trimmed[:end])
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

func matchesAny(word string, candidates []string) bool {
	for _, c := range candidates {
		if word == c {
			return true
		}
	}
	return false
}

// hasPrefixWord reports whether sql begins with prefix (case-insensitive,
// ignoring leading whitespace), used to detect INSERT OR IGNORE for the
// CONSTRAINT-downgrade rule in §7 Recovery.
func hasPrefixWord(sql, prefix string) bool {
	trimmed := strings.TrimLeft(sql, " \t\r\n")
	if len(trimmed) < len(prefix) {
		return false
	}
	return strings.EqualFold(trimmed[:len(prefix)], prefix)
}

// writeTargetTable extracts the table name following INSERT INTO/UPDATE/
// DELETE FROM/REPLACE INTO, used to look up the id-surrogate table for
// the RETURNING id appension (§4.6 "step ... appends RETURNING id").
func writeTargetTable(sql string) string {
	upper := strings.ToUpper(sql)
	markers := []string{"INSERT INTO", "INSERT OR IGNORE INTO", "INSERT OR REPLACE INTO", "REPLACE INTO", "UPDATE", "DELETE FROM"}
	best := -1
	bestLen := 0
	for _, m := range markers {
		if idx := strings.Index(upper, m); idx >= 0 && (best == -1 || idx < best) {
			best = idx
			bestLen = len(m)
		}
	}
	if best == -1 {
		return ""
	}
	rest := strings.TrimLeft(sql[best+bestLen:], " \t\r\n")
	end := 0
	for end < len(rest) && (isWordByte(rest[end]) || rest[end] == '_' || (rest[end] >= '0' && rest[end] <= '9') || rest[end] == '"' || rest[end] == '`') {
		end++
	}
	return strings.Trim(rest[:end], `"`+"`")
}

// errKindFromSession maps a session.ErrorKind to the error mirror's Kind
// (§4.11 / §7 "error codes are mapped to the embedded engine's error
// constants").
func errKindFromSession(kind session.ErrorKind) errmirror.Kind {
	switch kind {
	case session.ErrConstraint:
		return errmirror.KindConstraint
	case session.ErrSyntax:
		return errmirror.KindSyntax
	case session.ErrConnectionLost:
		return errmirror.KindConnectionLost
	default:
		return errmirror.KindGeneric
	}
}
