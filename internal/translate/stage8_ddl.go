package translate

import "strings"

// stageDDLIdempotence implements §4.2 stage 8: CREATE TABLE|INDEX|UNIQUE
// INDEX receive IF NOT EXISTS; ALTER TABLE ADD receives
// ADD COLUMN IF NOT EXISTS.
func stageDDLIdempotence(sql string, _ Options) string {
	if len(sql) > maxSQLLength {
		overflowCount++
		return sql
	}

	lower := strings.ToLower(sql)
	if strings.Contains(lower, "if not exists") {
		return sql // already idempotent; running the pipeline twice must be a no-op (§8)
	}

	if idx := indexKeywordSequence(lower, sql, []string{"create", "unique", "index"}); idx >= 0 {
		return insertAfterKeywords(sql, idx, []string{"create", "unique", "index"}, "IF NOT EXISTS")
	}
	if idx := indexKeywordSequence(lower, sql, []string{"create", "index"}); idx >= 0 {
		return insertAfterKeywords(sql, idx, []string{"create", "index"}, "IF NOT EXISTS")
	}
	if idx := indexKeywordSequence(lower, sql, []string{"create", "table"}); idx >= 0 {
		return insertAfterKeywords(sql, idx, []string{"create", "table"}, "IF NOT EXISTS")
	}
	if idx := indexKeywordSequence(lower, sql, []string{"alter", "table"}); idx >= 0 {
		return rewriteAlterTableAdd(sql, lower)
	}
	return sql
}

func insertAfterKeywords(sql string, idx int, words []string, insertion string) string {
	end := keywordSequenceEnd(sql, idx, words)
	return sql[:end] + " " + insertion + sql[end:]
}

func rewriteAlterTableAdd(sql, lower string) string {
	idx := indexKeywordSequence(lower, sql, []string{"alter", "table"})
	if idx < 0 {
		return sql
	}
	// find ADD after the table name; ADD CONSTRAINT is left unchanged.
	addIdx := indexKeywordSequenceFrom(lower, sql, []string{"add"}, keywordSequenceEnd(sql, idx, []string{"alter", "table"}))
	if addIdx < 0 {
		return sql
	}
	after := keywordSequenceEnd(sql, addIdx, []string{"add"})
	j := after
	for j < len(sql) && isSpace(sql[j]) {
		j++
	}
	if matchesKeywordAt(sql, j, "constraint") || matchesKeywordAt(sql, j, "column") {
		if matchesKeywordAt(sql, j, "column") {
			end := j + len("column")
			return sql[:end] + " IF NOT EXISTS" + sql[end:]
		}
		return sql
	}
	return sql[:after] + " COLUMN IF NOT EXISTS" + sql[after:]
}

func indexKeywordSequenceFrom(lower, sql string, words []string, from int) int {
	for {
		idx := strings.Index(lower[from:], words[0])
		if idx < 0 {
			return -1
		}
		at := from + idx
		if matchesKeywordSequenceAt(sql, at, words) {
			return at
		}
		from = at + 1
	}
}
