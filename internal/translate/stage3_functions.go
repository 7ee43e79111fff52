package translate

import "strings"

// stageFunctionRewrites implements §4.2 stage 3. All rewrites are
// case-insensitive and argument-depth tracked via findMatchingParen so
// that nested calls and embedded commas are not mistaken for argument
// separators.
func stageFunctionRewrites(sql string, _ Options) string {
	if len(sql) > maxSQLLength {
		overflowCount++
		return sql
	}

	sql = rewriteIif(sql)
	sql = rewriteTypeof(sql)
	sql = rewriteStrftime(sql)
	sql = rewriteUnixepoch(sql)
	sql = rewriteDatetimeNow(sql)
	sql = rewriteSimpleRenames(sql)
	sql = rewriteJSONEach(sql)
	return sql
}

// callAt reports whether sql has a case-insensitive call to name starting
// at i (i.e. "name(" with name on a word boundary), returning the index of
// the '(' and the index of the matching ')' when found.
func callAt(sql string, i int, name string) (openParen, closeParen int, ok bool) {
	if !matchesKeywordAt(sql, i, name) {
		return 0, 0, false
	}
	j := i + len(name)
	for j < len(sql) && isSpace(sql[j]) {
		j++
	}
	if j >= len(sql) || sql[j] != '(' {
		return 0, 0, false
	}
	close := findMatchingParen(sql, j)
	if close < 0 {
		return 0, 0, false
	}
	return j, close, true
}

// splitTopLevelArgs splits the interior of a (..) span (exclusive of the
// parens) into top-level comma-separated arguments, ignoring commas
// nested inside parens, literals, or quoted identifiers.
func splitTopLevelArgs(s string) []string {
	var args []string
	depth := 0
	start := 0
	i := 0
	for i < len(s) {
		switch s[i] {
		case '\'', '"':
			i = skipString(s, i)
			continue
		case '`', '[':
			i = skipQuotedIdentifier(s, i)
			continue
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
		i++
	}
	if start <= len(s) {
		args = append(args, strings.TrimSpace(s[start:]))
	}
	return args
}

func rewriteIif(sql string) string {
	for {
		idx := findCallCaseInsensitive(sql, "iif")
		if idx < 0 {
			break
		}
		open, close, ok := callAt(sql, idx, "iif")
		if !ok {
			break
		}
		args := splitTopLevelArgs(sql[open+1 : close])
		if len(args) != 3 {
			break
		}
		replacement := "CASE WHEN " + args[0] + " THEN " + args[1] + " ELSE " + args[2] + " END"
		sql = sql[:idx] + replacement + sql[close+1:]
	}
	return sql
}

func rewriteTypeof(sql string) string {
	for {
		idx := findCallCaseInsensitive(sql, "typeof")
		if idx < 0 {
			break
		}
		open, close, ok := callAt(sql, idx, "typeof")
		if !ok {
			break
		}
		args := splitTopLevelArgs(sql[open+1 : close])
		if len(args) != 1 {
			break
		}
		replacement := "pg_typeof(" + args[0] + ")::text"
		sql = sql[:idx] + replacement + sql[close+1:]
	}
	return sql
}

// rewriteStrftime rewrites strftime('%s', expr[, modifier...]) and the
// SQLite relative-time modifier grammar into EXTRACT(EPOCH FROM …) plus
// INTERVAL arithmetic.
func rewriteStrftime(sql string) string {
	for {
		idx := findCallCaseInsensitive(sql, "strftime")
		if idx < 0 {
			break
		}
		open, close, ok := callAt(sql, idx, "strftime")
		if !ok {
			break
		}
		args := splitTopLevelArgs(sql[open+1 : close])
		if len(args) < 2 {
			break
		}
		replacement := buildEpochExpr(args[1], args[2:])
		sql = sql[:idx] + replacement + sql[close+1:]
	}
	return sql
}

func rewriteUnixepoch(sql string) string {
	for {
		idx := findCallCaseInsensitive(sql, "unixepoch")
		if idx < 0 {
			break
		}
		open, close, ok := callAt(sql, idx, "unixepoch")
		if !ok {
			break
		}
		args := splitTopLevelArgs(sql[open+1 : close])
		if len(args) < 1 {
			break
		}
		replacement := buildEpochExpr(args[0], args[1:])
		sql = sql[:idx] + replacement + sql[close+1:]
	}
	return sql
}

// buildEpochExpr renders base (already resolved to NOW() if it was the
// literal 'now') plus any trailing +/-N unit modifiers as INTERVAL
// arithmetic, wrapped in EXTRACT(EPOCH FROM …)::bigint.
func buildEpochExpr(base string, modifiers []string) string {
	expr := resolveTimeBase(base)
	for _, m := range modifiers {
		m = strings.Trim(strings.TrimSpace(m), "'\"")
		interval := modifierToInterval(m)
		if interval == "" {
			continue
		}
		expr = "(" + expr + " " + interval + ")"
	}
	return "EXTRACT(EPOCH FROM " + expr + ")::bigint"
}

func resolveTimeBase(base string) string {
	trimmed := strings.Trim(strings.TrimSpace(base), "'\"")
	if strings.EqualFold(trimmed, "now") {
		return "NOW()"
	}
	return base
}

// modifierToInterval turns a SQLite relative modifier like "-3 days" or
// "+1 hour" into "- INTERVAL '3 days'" / "+ INTERVAL '1 hour'".
func modifierToInterval(m string) string {
	m = strings.TrimSpace(m)
	if m == "" {
		return ""
	}
	sign := "+"
	rest := m
	if strings.HasPrefix(m, "-") {
		sign = "-"
		rest = strings.TrimSpace(m[1:])
	} else if strings.HasPrefix(m, "+") {
		rest = strings.TrimSpace(m[1:])
	}
	parts := strings.Fields(rest)
	if len(parts) != 2 {
		return ""
	}
	return sign + " INTERVAL '" + parts[0] + " " + parts[1] + "'"
}

func rewriteDatetimeNow(sql string) string {
	from := 0
	for {
		idx := findCallCaseInsensitiveFrom(sql, "datetime", from)
		if idx < 0 {
			break
		}
		open, close, ok := callAt(sql, idx, "datetime")
		if !ok {
			from = idx + 1
			continue
		}
		args := splitTopLevelArgs(sql[open+1 : close])
		if len(args) != 1 || strings.Trim(strings.TrimSpace(args[0]), "'\"") != "now" {
			// leave other datetime() forms untouched; not in the
			// enumerated rewrite set (§4.2 Non-goals).
			from = close + 1
			continue
		}
		sql = sql[:idx] + "NOW()" + sql[close+1:]
		from = idx + len("NOW()")
	}
	return sql
}

// rewriteSimpleRenames handles the remaining function substitutions of
// §4.2 stage 3: IFNULL/COALESCE and last_insert_rowid/lastval are plain
// renames, while INSTR(a, b) becomes POSITION(b IN a) and SUBSTR(a, b[, c])
// becomes SUBSTRING(a FROM b [FOR c]).
func rewriteSimpleRenames(sql string) string {
	sql = renameBareFunc(sql, "ifnull", "coalesce")
	sql = renameNoArgFunc(sql, "last_insert_rowid", "lastval")
	sql = rewriteInstr(sql)
	sql = rewriteSubstr(sql)
	return sql
}

func renameBareFunc(sql, from, to string) string {
	for {
		idx := findCallCaseInsensitive(sql, from)
		if idx < 0 {
			break
		}
		open, _, ok := callAt(sql, idx, from)
		if !ok {
			break
		}
		sql = sql[:idx] + to + sql[open:]
	}
	return sql
}

func renameNoArgFunc(sql, from, to string) string {
	for {
		idx := findCallCaseInsensitive(sql, from)
		if idx < 0 {
			break
		}
		_, close, ok := callAt(sql, idx, from)
		if !ok {
			break
		}
		sql = sql[:idx] + to + "()" + sql[close+1:]
	}
	return sql
}

func rewriteInstr(sql string) string {
	for {
		idx := findCallCaseInsensitive(sql, "instr")
		if idx < 0 {
			break
		}
		open, close, ok := callAt(sql, idx, "instr")
		if !ok {
			break
		}
		args := splitTopLevelArgs(sql[open+1 : close])
		if len(args) != 2 {
			break
		}
		replacement := "POSITION(" + args[1] + " IN " + args[0] + ")"
		sql = sql[:idx] + replacement + sql[close+1:]
	}
	return sql
}

func rewriteSubstr(sql string) string {
	for _, name := range []string{"substr", "substring"} {
		for {
			idx := findCallCaseInsensitive(sql, name)
			if idx < 0 {
				break
			}
			open, close, ok := callAt(sql, idx, name)
			if !ok {
				break
			}
			args := splitTopLevelArgs(sql[open+1 : close])
			if len(args) < 2 {
				break
			}
			var replacement string
			if len(args) == 3 {
				replacement = "SUBSTRING(" + args[0] + " FROM " + args[1] + " FOR " + args[2] + ")"
			} else {
				replacement = "SUBSTRING(" + args[0] + " FROM " + args[1] + ")"
			}
			sql = sql[:idx] + replacement + sql[close+1:]
		}
	}
	return sql
}

// rewriteJSONEach rewrites json_each(x) to json_array_elements(x::json)
// and casts the produced `value` column to text in simple projections, to
// avoid integer/text confusion at comparison sites (§4.2 stage 3).
func rewriteJSONEach(sql string) string {
	for {
		idx := findCallCaseInsensitive(sql, "json_each")
		if idx < 0 {
			break
		}
		open, close, ok := callAt(sql, idx, "json_each")
		if !ok {
			break
		}
		args := splitTopLevelArgs(sql[open+1 : close])
		if len(args) != 1 {
			break
		}
		replacement := "json_array_elements(" + args[0] + "::json)"
		sql = sql[:idx] + replacement + sql[close+1:]
	}
	sql = castJSONEachValueColumn(sql)
	return sql
}

// castJSONEachValueColumn rewrites a bare "value" column reference (the
// implicit column json_array_elements produces) to "value::text" wherever
// it appears in a statement that uses json_array_elements, unless it is
// already followed by ':' or '.'. This is a best-effort fixup — it only
// touches the exact token "value" on a word boundary, never inside
// literals or identifiers.
func castJSONEachValueColumn(sql string) string {
	if !containsCaseInsensitive(sql, "json_array_elements") {
		return sql
	}
	var b strings.Builder
	b.Grow(len(sql) + 8)
	i := 0
	for i < len(sql) {
		if end := nextSignificant(sql, i); end > i {
			b.WriteString(sql[i:end])
			i = end
			continue
		}
		if matchesKeywordAt(sql, i, "value") {
			// Don't double-cast "value::text" or "value.x".
			after := i + 5
			if after < len(sql) && (sql[after] == ':' || sql[after] == '.') {
				b.WriteString(sql[i:after])
				i = after
				continue
			}
			b.WriteString("value::text")
			i = after
			continue
		}
		b.WriteByte(sql[i])
		i++
	}
	return b.String()
}

func findCallCaseInsensitive(sql, name string) int {
	return findCallCaseInsensitiveFrom(sql, name, 0)
}

func findCallCaseInsensitiveFrom(sql, name string, from int) int {
	lower := strings.ToLower(sql)
	lowerName := strings.ToLower(name)
	pos := from
	for {
		idx := strings.Index(lower[pos:], lowerName)
		if idx < 0 {
			return -1
		}
		at := pos + idx
		if matchesKeywordAt(sql, at, name) {
			j := at + len(name)
			for j < len(sql) && isSpace(sql[j]) {
				j++
			}
			if j < len(sql) && sql[j] == '(' {
				return at
			}
		}
		pos = at + 1
	}
}

func containsCaseInsensitive(sql, substr string) bool {
	return strings.Contains(strings.ToLower(sql), strings.ToLower(substr))
}
