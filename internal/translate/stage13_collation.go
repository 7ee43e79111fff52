package translate

import (
	"strings"
)

// stageCollationStrip implements §4.2 stage 13: any remaining
// "COLLATE icu_xx" clause (the embedded engine's ICU collation extension,
// registered as a no-op accepted name by C12 but never understood by the
// remote server) is removed. Stage 5's rewriteCollateNocase already
// handles COLLATE NOCASE; this stage mops up any COLLATE with an icu_
// prefixed name that survives.
func stageCollationStrip(sql string, _ Options) string {
	if len(sql) > maxSQLLength {
		overflowCount++
		return sql
	}

	lower := strings.ToLower(sql)
	for {
		idx := indexKeywordSequence(lower, sql, []string{"collate"})
		if idx < 0 {
			return sql
		}
		end := keywordSequenceEnd(sql, idx, []string{"collate"})
		j := end
		for j < len(sql) && isSpace(sql[j]) {
			j++
		}
		nameStart := j
		for j < len(sql) && (isAlnum(sql[j]) || sql[j] == '_') {
			j++
		}
		name := sql[nameStart:j]
		if !strings.HasPrefix(strings.ToLower(name), "icu") {
			// not ours to strip; advance past this occurrence to avoid
			// looping on a COLLATE this stage doesn't touch.
			lower2 := lower[:idx] + strings.Repeat("x", end-idx) + lower[end:]
			lower = lower2
			continue
		}
		trimmedHead := strings.TrimRight(sql[:idx], " \t\r\n")
		sql = trimmedHead + sql[j:]
		lower = strings.ToLower(sql)
	}
}
