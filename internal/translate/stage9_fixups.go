package translate

import "strings"

// stageEmptySetAndGroupingFixups implements §4.2 stage 9: IN () -> IN
// (SELECT -1 WHERE FALSE); GROUP BY NULL removed; HAVING aliases resolved
// to their aggregate expression (best-effort: only the common case of a
// SELECT-list alias referenced verbatim in HAVING is substituted).
func stageEmptySetAndGroupingFixups(sql string, _ Options) string {
	if len(sql) > maxSQLLength {
		overflowCount++
		return sql
	}

	sql = rewriteEmptyIn(sql)
	sql = removeGroupByNull(sql)
	sql = resolveHavingAliases(sql)
	return sql
}

// rewriteEmptyIn rewrites "IN ()" and "IN (  )" (any amount of whitespace
// inside) to "IN (SELECT -1 WHERE FALSE)".
func rewriteEmptyIn(sql string) string {
	lower := strings.ToLower(sql)
	from := 0
	for {
		idx := strings.Index(lower[from:], "in")
		if idx < 0 {
			return sql
		}
		at := from + idx
		if !matchesKeywordAt(sql, at, "in") {
			from = at + 1
			continue
		}
		j := at + 2
		for j < len(sql) && isSpace(sql[j]) {
			j++
		}
		if j >= len(sql) || sql[j] != '(' {
			from = at + 1
			continue
		}
		close := findMatchingParen(sql, j)
		if close < 0 {
			from = at + 1
			continue
		}
		inner := strings.TrimSpace(sql[j+1 : close])
		if inner != "" {
			from = close + 1
			lower = strings.ToLower(sql)
			continue
		}
		sql = sql[:j] + "(SELECT -1 WHERE FALSE)" + sql[close+1:]
		lower = strings.ToLower(sql)
		from = j + len("(SELECT -1 WHERE FALSE)")
	}
}

func removeGroupByNull(sql string) string {
	return replaceKeywordSequence(sql, []string{"group", "by", "null"}, "")
}

// resolveHavingAliases substitutes a HAVING-clause bare identifier that
// matches a SELECT-list "expr AS alias" with expr, since the remote
// server (unlike the embedded engine) does not resolve HAVING aliases
// against the SELECT list.
func resolveHavingAliases(sql string) string {
	lower := strings.ToLower(sql)
	havingIdx := indexKeywordSequence(lower, sql, []string{"having"})
	if havingIdx < 0 {
		return sql
	}
	selectIdx := indexKeywordSequence(lower, sql, []string{"select"})
	groupIdx := indexKeywordSequence(lower, sql, []string{"group", "by"})
	if selectIdx < 0 || groupIdx < 0 || groupIdx > havingIdx {
		return sql
	}
	aliases := extractSelectAliases(sql[selectIdx:groupIdx])
	if len(aliases) == 0 {
		return sql
	}

	havingEnd := findClauseEnd(sql, havingIdx+len("having"))
	clause := sql[havingIdx+len("having") : havingEnd]
	for alias, expr := range aliases {
		clause = replaceIdentifierToken(clause, alias, "("+expr+")")
	}
	return sql[:havingIdx+len("having")] + clause + sql[havingEnd:]
}

// extractSelectAliases returns a map of alias -> expression for top-level
// "expr AS alias" or "expr alias" entries in a SELECT list span.
func extractSelectAliases(selectList string) map[string]string {
	result := map[string]string{}
	// trim the leading "select" keyword
	lower := strings.ToLower(selectList)
	if strings.HasPrefix(lower, "select") {
		selectList = selectList[len("select"):]
	}
	fromIdx := indexKeywordSequence(strings.ToLower(selectList), selectList, []string{"from"})
	if fromIdx >= 0 {
		selectList = selectList[:fromIdx]
	}
	for _, item := range splitTopLevelArgs(selectList) {
		item = strings.TrimSpace(item)
		lowerItem := strings.ToLower(item)
		asIdx := strings.LastIndex(lowerItem, " as ")
		var expr, alias string
		if asIdx >= 0 && isSimpleIdentifier(strings.TrimSpace(item[asIdx+4:])) {
			expr = strings.TrimSpace(item[:asIdx])
			alias = strings.TrimSpace(item[asIdx+4:])
		} else if fields := strings.Fields(item); len(fields) >= 2 && isSimpleIdentifier(fields[len(fields)-1]) {
			alias = fields[len(fields)-1]
			expr = strings.TrimSpace(item[:len(item)-len(alias)])
		} else {
			continue
		}
		if alias != "" && expr != "" {
			result[strings.ToLower(alias)] = expr
		}
	}
	return result
}

func isSimpleIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isAlnum(s[i]) && s[i] != '_' {
			return false
		}
	}
	return true
}

func findClauseEnd(sql string, from int) int {
	for _, kw := range []string{"having", "order by", "limit", "union", ";"} {
		if idx := indexKeywordSequence(strings.ToLower(sql[from:]), sql[from:], strings.Fields(kw)); idx >= 0 {
			return from + idx
		}
	}
	return len(sql)
}

func replaceIdentifierToken(s, ident, replacement string) string {
	var b strings.Builder
	i := 0
	for i < len(s) {
		if matchesKeywordAt(s, i, ident) {
			b.WriteString(replacement)
			i += len(ident)
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}
