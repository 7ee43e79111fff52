package translate

import (
	"regexp"
	"strings"
)

// stageTypeRewrites implements §4.2 stage 4: AUTOINCREMENT -> SERIAL,
// BLOB -> BYTEA, dt_integer(n) -> a fixed-width integer type, applied
// only inside DDL statements (CREATE TABLE / ALTER TABLE).
func stageTypeRewrites(sql string, _ Options) string {
	if len(sql) > maxSQLLength {
		overflowCount++
		return sql
	}
	if !isDDLStatement(sql) {
		return sql
	}

	sql = replaceWordCaseInsensitive(sql, "autoincrement", "SERIAL")
	sql = replaceWordCaseInsensitive(sql, "blob", "BYTEA")
	sql = rewriteDtInteger(sql)
	return sql
}

func isDDLStatement(sql string) bool {
	trimmed := strings.TrimSpace(sql)
	for _, kw := range []string{"create", "alter"} {
		if len(trimmed) >= len(kw) && strings.EqualFold(trimmed[:len(kw)], kw) {
			return true
		}
	}
	return false
}

// replaceWordCaseInsensitive replaces whole-word, non-literal occurrences
// of word with replacement.
func replaceWordCaseInsensitive(sql, word, replacement string) string {
	var b strings.Builder
	b.Grow(len(sql))
	i := 0
	for i < len(sql) {
		if end := nextSignificant(sql, i); end > i {
			b.WriteString(sql[i:end])
			i = end
			continue
		}
		if matchesKeywordAt(sql, i, word) {
			b.WriteString(replacement)
			i += len(word)
			continue
		}
		b.WriteByte(sql[i])
		i++
	}
	return b.String()
}

var dtIntegerPattern = regexp.MustCompile(`(?i)dt_integer\s*\(\s*(\d+)\s*\)`)

// widthToIntType maps the enumerated dt_integer(n) widths (in bytes) to
// the remote server's fixed-width integer types. n values outside this
// table are left as smallint/integer/bigint's nearest wider type.
func widthToIntType(n int) string {
	switch {
	case n <= 2:
		return "smallint"
	case n <= 4:
		return "integer"
	default:
		return "bigint"
	}
}

func rewriteDtInteger(sql string) string {
	return dtIntegerPattern.ReplaceAllStringFunc(sql, func(m string) string {
		sub := dtIntegerPattern.FindStringSubmatch(m)
		if len(sub) != 2 {
			return m
		}
		var n int
		for _, c := range sub[1] {
			n = n*10 + int(c-'0')
		}
		return widthToIntType(n)
	})
}
