package translate

import "strings"

// stageKeywordRewrites implements §4.2 stage 5.
func stageKeywordRewrites(sql string, _ Options) string {
	if len(sql) > maxSQLLength {
		overflowCount++
		return sql
	}

	sql = rewriteBeginModifiers(sql)
	sql = rewriteGlob(sql)
	sql = rewriteCollateNocase(sql)
	sql = rewriteWhereBoolLiteral(sql)
	sql = rewriteLimitNegativeOne(sql)
	sql = rewriteInsertOrIgnore(sql)
	sql = rewriteReplaceInto(sql)
	return sql
}

func rewriteBeginModifiers(sql string) string {
	for _, mod := range []string{"immediate", "deferred", "exclusive"} {
		sql = replaceKeywordSequence(sql, []string{"begin", mod}, "BEGIN")
	}
	return sql
}

func rewriteGlob(sql string) string {
	return replaceWordCaseInsensitive(sql, "glob", "LIKE")
}

// rewriteCollateNocase turns "x = y COLLATE NOCASE" / "x LIKE y COLLATE
// NOCASE" binary comparisons into ILIKE, and otherwise (e.g. inside an
// index expression) wraps the preceding operand in LOWER(...). Detecting
// "is this an index expression" lexically is approximate: if the text
// before COLLATE NOCASE contains CREATE INDEX or CREATE UNIQUE INDEX, the
// LOWER() form is used; otherwise ILIKE is used when '=' or LIKE
// immediately precedes the right-hand operand.
func rewriteCollateNocase(sql string) string {
	lower := strings.ToLower(sql)
	const needle = "collate nocase"
	for {
		idx := strings.Index(lower, needle)
		if idx < 0 {
			break
		}
		if inLiteralOrComment(sql, idx) || !isWordBoundary(sql, idx-1) || !isWordBoundary(sql, idx+len(needle)) {
			lower = lower[:idx] + strings.Repeat("x", len(needle)) + lower[idx+len(needle):]
			continue
		}

		if isInsideIndexColumnList(sql, idx) {
			sql = wrapPrecedingOperandInLower(sql, idx)
		} else {
			sql = replaceComparisonBeforeCollate(sql, idx)
		}
		lower = strings.ToLower(sql)
	}
	return sql
}

func isInsideIndexColumnList(sql string, at int) bool {
	prefix := strings.ToLower(sql[:at])
	return strings.Contains(prefix, "create index") || strings.Contains(prefix, "create unique index")
}

// wrapPrecedingOperandInLower wraps the identifier/expression immediately
// before "COLLATE NOCASE" at collateIdx in LOWER(...) and removes the
// COLLATE clause.
func wrapPrecedingOperandInLower(sql string, collateIdx int) string {
	end := collateIdx
	for end > 0 && isSpace(sql[end-1]) {
		end--
	}
	start := end
	for start > 0 && (isAlnum(sql[start-1]) || sql[start-1] == '_' || sql[start-1] == '.') {
		start--
	}
	if start == end {
		return sql
	}
	operand := sql[start:end]
	after := collateIdx + len("collate nocase")
	return sql[:start] + "LOWER(" + operand + ")" + sql[after:]
}

// replaceComparisonBeforeCollate converts "lhs = rhs COLLATE NOCASE" (or
// LIKE) into "lhs ILIKE rhs", stripping the COLLATE clause. Only the
// common case of an immediately preceding '=' or LIKE is handled; any
// other shape leaves COLLATE NOCASE removed but the operator untouched,
// which remote-side comparisons already do the right thing for via
// default collation in the common case.
func replaceComparisonBeforeCollate(sql string, collateIdx int) string {
	after := collateIdx + len("collate nocase")
	before := sql[:collateIdx]
	trimmedBefore := strings.TrimRight(before, " \t\r\n")

	// Step back over the right-hand operand (a quoted literal or a bare
	// token such as a column or placeholder) to reach the operator.
	start := len(trimmedBefore)
	if start > 0 && trimmedBefore[start-1] == '\'' {
		start = strings.LastIndexByte(trimmedBefore[:start-1], '\'')
	} else {
		for start > 0 && (isAlnum(trimmedBefore[start-1]) || strings.IndexByte("_.$:?", trimmedBefore[start-1]) >= 0) {
			start--
		}
	}
	if start > 0 && start < len(trimmedBefore) {
		rhs := trimmedBefore[start:]
		op := strings.TrimRight(trimmedBefore[:start], " \t\r\n")
		if idx := lastWordIndex(op, "like"); idx >= 0 && idx+4 == len(op) {
			return op[:idx] + "ILIKE " + rhs + sql[after:]
		}
		if strings.HasSuffix(op, "=") && !strings.HasSuffix(op, "<=") && !strings.HasSuffix(op, ">=") && !strings.HasSuffix(op, "!=") {
			return op[:len(op)-1] + "ILIKE " + rhs + sql[after:]
		}
	}
	// Fall back to simply dropping the COLLATE clause.
	return trimmedBefore + sql[after:]
}

func lastWordIndex(s, word string) int {
	lower := strings.ToLower(s)
	last := -1
	from := 0
	for {
		idx := strings.Index(lower[from:], word)
		if idx < 0 {
			return last
		}
		at := from + idx
		if isWordBoundary(s, at-1) && isWordBoundary(s, at+len(word)) {
			last = at
		}
		from = at + 1
	}
}

func rewriteWhereBoolLiteral(sql string) string {
	sql = replaceKeywordSequence(sql, []string{"where", "0"}, "WHERE FALSE")
	sql = replaceKeywordSequence(sql, []string{"where", "1"}, "WHERE TRUE")
	return sql
}

// rewriteLimitNegativeOne removes "LIMIT -1" entirely, since the remote
// server treats a negative limit as an error rather than "no limit".
func rewriteLimitNegativeOne(sql string) string {
	lower := strings.ToLower(sql)
	const needle = "limit -1"
	for {
		idx := strings.Index(lower, needle)
		if idx < 0 {
			break
		}
		if inLiteralOrComment(sql, idx) || !isWordBoundary(sql, idx-1) {
			lower = lower[:idx] + strings.Repeat("x", len(needle)) + lower[idx+len(needle):]
			continue
		}
		after := idx + len(needle)
		sql = strings.TrimRight(sql[:idx], " \t\r\n") + sql[after:]
		lower = strings.ToLower(sql)
	}
	return sql
}

// rewriteInsertOrIgnore rewrites "INSERT OR IGNORE INTO" to "INSERT INTO"
// and appends ON CONFLICT DO NOTHING unless the statement already has an
// ON CONFLICT clause. Classification in the statement package inspects
// the original SQL for "insert or ignore" to downgrade CONSTRAINT errors
// to DONE per §7, so no other trace is left in the rewritten text.
func rewriteInsertOrIgnore(sql string) string {
	lower := strings.ToLower(sql)
	idx := indexKeywordSequence(lower, sql, []string{"insert", "or", "ignore", "into"})
	if idx < 0 {
		return sql
	}
	end := keywordSequenceEnd(sql, idx, []string{"insert", "or", "ignore", "into"})
	rewritten := sql[:idx] + "INSERT INTO" + sql[end:]
	if !strings.Contains(strings.ToLower(rewritten), "on conflict") {
		rewritten = strings.TrimRight(rewritten, " \t\r\n;") + " ON CONFLICT DO NOTHING"
	}
	return rewritten
}

// rewriteReplaceInto rewrites a bare "REPLACE INTO" (not already handled
// as INSERT OR REPLACE, which stage 6 owns) to "INSERT INTO".
func rewriteReplaceInto(sql string) string {
	words := []string{"replace", "into"}
	from := 0
	for {
		idx := indexKeywordSequenceFrom(strings.ToLower(sql), sql, words, from)
		if idx < 0 {
			return sql
		}
		end := keywordSequenceEnd(sql, idx, words)
		head := strings.TrimRight(sql[:idx], " \t\r\n")
		if len(head) >= 2 && strings.EqualFold(head[len(head)-2:], "or") && isWordBoundary(head, len(head)-3) {
			from = end
			continue
		}
		sql = sql[:idx] + "INSERT INTO" + sql[end:]
		from = idx + len("INSERT INTO")
	}
}

// replaceKeywordSequence replaces the first case-insensitive, word-bounded,
// whitespace-separated occurrence of the keyword sequence words with
// replacement, repeating until no more occurrences remain.
func replaceKeywordSequence(sql string, words []string, replacement string) string {
	for {
		lower := strings.ToLower(sql)
		idx := indexKeywordSequence(lower, sql, words)
		if idx < 0 {
			return sql
		}
		end := keywordSequenceEnd(sql, idx, words)
		sql = sql[:idx] + replacement + sql[end:]
	}
}

func indexKeywordSequence(lower, sql string, words []string) int {
	from := 0
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

func matchesKeywordSequenceAt(sql string, at int, words []string) bool {
	i := at
	for wi, w := range words {
		if !matchesKeywordAt(sql, i, w) {
			return false
		}
		i += len(w)
		if wi < len(words)-1 {
			wsStart := i
			for i < len(sql) && isSpace(sql[i]) {
				i++
			}
			if i == wsStart {
				return false
			}
		}
	}
	return true
}

func keywordSequenceEnd(sql string, at int, words []string) int {
	i := at
	for wi, w := range words {
		i += len(w)
		if wi < len(words)-1 {
			for i < len(sql) && isSpace(sql[i]) {
				i++
			}
		}
	}
	return i
}
