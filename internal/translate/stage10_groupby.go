package translate

import "strings"

// stageExhaustiveGroupBy implements §4.2 stage 10: a remote server with
// strict GROUP BY (unlike the embedded engine's lenient grouping) requires
// every non-aggregate SELECT-list expression to appear in GROUP BY. This
// stage enumerates the SELECT list, skips aggregates/literals/subqueries,
// and appends anything missing, case/quote-insensitively de-duplicated
// against what's already there.
func stageExhaustiveGroupBy(sql string, _ Options) string {
	if len(sql) > maxSQLLength {
		overflowCount++
		return sql
	}

	lower := strings.ToLower(sql)
	groupIdx := indexKeywordSequence(lower, sql, []string{"group", "by"})
	if groupIdx < 0 {
		return sql
	}
	selectIdx := indexKeywordSequence(lower, sql, []string{"select"})
	if selectIdx < 0 || selectIdx > groupIdx {
		return sql
	}
	fromIdx := indexKeywordSequence(lower, sql, []string{"from"})
	if fromIdx < 0 || fromIdx > groupIdx {
		return sql
	}

	selectList := sql[selectIdx+len("select") : fromIdx]
	exprs := nonAggregateSelectExprs(selectList)
	if len(exprs) == 0 {
		return sql
	}

	groupEnd := keywordSequenceEnd(sql, groupIdx, []string{"group", "by"})
	clauseEnd := findClauseEnd(sql, groupEnd)
	existing := splitTopLevelArgs(sql[groupEnd:clauseEnd])
	existingSet := map[string]bool{}
	for _, e := range existing {
		existingSet[normalizeGroupByKey(e)] = true
	}

	var missing []string
	for _, e := range exprs {
		key := normalizeGroupByKey(e)
		if existingSet[key] {
			continue
		}
		existingSet[key] = true
		missing = append(missing, e)
	}
	if len(missing) == 0 {
		return sql
	}

	insertion := ", " + strings.Join(missing, ", ")
	insertAt := len(strings.TrimRight(sql[:clauseEnd], " \t\r\n"))
	return sql[:insertAt] + insertion + sql[insertAt:]
}

func normalizeGroupByKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, `"`, "")
	s = strings.ReplaceAll(s, "`", "")
	return s
}

// nonAggregateSelectExprs returns the SELECT-list expressions (stripped of
// their alias) that are not aggregate calls, CASE expressions, subqueries,
// or literals, in source order.
func nonAggregateSelectExprs(selectList string) []string {
	var out []string
	for _, item := range splitTopLevelArgs(selectList) {
		item = strings.TrimSpace(item)
		if item == "" || item == "*" {
			continue
		}
		expr := stripSelectAlias(item)
		if isAggregateOrSkippable(expr) {
			continue
		}
		out = append(out, expr)
	}
	return out
}

func stripSelectAlias(item string) string {
	lower := strings.ToLower(item)
	if asIdx := strings.LastIndex(lower, " as "); asIdx >= 0 && isSimpleIdentifier(strings.TrimSpace(item[asIdx+4:])) {
		return strings.TrimSpace(item[:asIdx])
	}
	fields := strings.Fields(item)
	if len(fields) >= 2 && isSimpleIdentifier(fields[len(fields)-1]) && !endsWithOperatorOrParen(item, fields[len(fields)-1]) {
		return strings.TrimSpace(item[:len(item)-len(fields[len(fields)-1])])
	}
	return item
}

func endsWithOperatorOrParen(item, lastField string) bool {
	prefix := strings.TrimSpace(item[:len(item)-len(lastField)])
	return prefix == "" || strings.HasSuffix(prefix, "(") || strings.HasSuffix(prefix, ",")
}

var aggregateFuncNames = []string{"count", "sum", "avg", "min", "max", "group_concat", "total"}

func isAggregateOrSkippable(expr string) bool {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return true
	}
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "case") {
		return true
	}
	if strings.HasPrefix(trimmed, "(") {
		return true // subquery or parenthesised expression, treated conservatively
	}
	if isNumericLiteral(trimmed) || strings.HasPrefix(trimmed, "'") {
		return true
	}
	for _, fn := range aggregateFuncNames {
		if matchesKeywordAt(lower, 0, fn) {
			j := len(fn)
			for j < len(trimmed) && isSpace(trimmed[j]) {
				j++
			}
			if j < len(trimmed) && trimmed[j] == '(' {
				return true
			}
		}
	}
	return false
}

func isNumericLiteral(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9') && c != '.' && c != '-' && c != '+' {
			return false
		}
	}
	return true
}
