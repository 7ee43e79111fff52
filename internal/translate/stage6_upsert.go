package translate

import "strings"

// stageUpsertSynthesis implements §4.2 stage 6. "INSERT OR REPLACE INTO
// T(cols) VALUES(...)" becomes "INSERT INTO T(cols) VALUES(...)
// ON CONFLICT (target_cols) DO UPDATE SET c1 = EXCLUDED.c1, … [RETURNING
// id]" using opt.Conflicts as the static per-table conflict-target table.
// Tables with no column list cannot be synthesised; per §4.2 the
// statement falls back unchanged in that case.
func stageUpsertSynthesis(sql string, opt Options) string {
	if len(sql) > maxSQLLength {
		overflowCount++
		return sql
	}

	lower := strings.ToLower(sql)
	idx := indexKeywordSequence(lower, sql, []string{"insert", "or", "replace", "into"})
	if idx < 0 {
		return sql
	}
	afterInto := keywordSequenceEnd(sql, idx, []string{"insert", "or", "replace", "into"})

	j := afterInto
	for j < len(sql) && isSpace(sql[j]) {
		j++
	}
	table, j2 := readIdentifier(sql, j)
	if table == "" {
		return sql
	}
	j = j2
	for j < len(sql) && isSpace(sql[j]) {
		j++
	}
	if j >= len(sql) || sql[j] != '(' {
		// No column list: cannot synthesise a conflict target; fall back
		// unchanged per §4.2 stage 6.
		return sql
	}
	colsClose := findMatchingParen(sql, j)
	if colsClose < 0 {
		return sql
	}
	cols := splitTopLevelArgs(sql[j+1 : colsClose])
	for i, c := range cols {
		cols[i] = strings.Trim(strings.TrimSpace(c), `"`+"`")
	}

	rule, ok := opt.Conflicts.lookup(table)
	if !ok || len(rule.TargetColumns) == 0 {
		// No static conflict-target rule for this table: the engine-specific
		// OR REPLACE can't be synthesised into an ON CONFLICT clause without
		// knowing the target, so it is simply dropped, leaving a plain
		// INSERT for the remote server.
		rewritten := sql[:idx] + "INSERT INTO" + sql[afterInto:]
		return rewritten
	}

	setClauses := make([]string, 0, len(cols))
	for _, c := range cols {
		if custom, ok := rule.CustomSet[strings.ToLower(c)]; ok {
			setClauses = append(setClauses, c+" = "+custom)
			continue
		}
		if containsFold(rule.TargetColumns, c) {
			continue
		}
		setClauses = append(setClauses, c+" = EXCLUDED."+c)
	}

	var b strings.Builder
	b.WriteString(sql[:idx])
	b.WriteString("INSERT INTO")
	b.WriteString(sql[afterInto : colsClose+1])
	// copy VALUES(...) and anything up to end of statement (sans trailing ;)
	rest := sql[colsClose+1:]
	restTrimmed := strings.TrimRight(rest, " \t\r\n;")
	trailingSemi := rest[len(restTrimmed):]
	b.WriteString(restTrimmed)

	if len(setClauses) == 0 {
		b.WriteString(" ON CONFLICT (")
		b.WriteString(strings.Join(rule.TargetColumns, ", "))
		b.WriteString(") DO NOTHING")
	} else {
		b.WriteString(" ON CONFLICT (")
		b.WriteString(strings.Join(rule.TargetColumns, ", "))
		b.WriteString(") DO UPDATE SET ")
		b.WriteString(strings.Join(setClauses, ", "))
	}

	// §9 Open Question: RETURNING id is emitted only when the target's
	// conflict-target table entry names id, never guessed from the
	// statement's own column list.
	if rule.ReturningID && containsFold(rule.TargetColumns, "id") {
		b.WriteString(" RETURNING id")
	}
	b.WriteString(trailingSemi)
	return b.String()
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
