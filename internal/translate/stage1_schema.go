package translate

import "strings"

// stageSchemaPrefix qualifies bare table names with the configured schema
// (§4.2 stage 1) when they appear in a whitelist. This is lexical: it
// looks for "FROM <name>", "JOIN <name>", "INTO <name>", "UPDATE <name>",
// and "TABLE <name>" (for DDL) and prefixes name with "schema." when name
// (case-insensitively, without existing qualification) is in
// opt.SchemaTables.
func stageSchemaPrefix(sql string, opt Options) string {
	if opt.Schema == "" || len(opt.SchemaTables) == 0 {
		return sql
	}
	if len(sql) > maxSQLLength {
		overflowCount++
		return sql
	}

	anchors := []string{"from", "join", "into", "update", "table"}
	var b strings.Builder
	b.Grow(len(sql) + 16)

	i := 0
	for i < len(sql) {
		if end := nextSignificant(sql, i); end > i {
			b.WriteString(sql[i:end])
			i = end
			continue
		}
		matched := false
		for _, kw := range anchors {
			if !matchesKeywordAt(sql, i, kw) {
				continue
			}
			b.WriteString(sql[i : i+len(kw)])
			j := i + len(kw)
			// skip whitespace
			wsStart := j
			for j < len(sql) && isSpace(sql[j]) {
				j++
			}
			b.WriteString(sql[wsStart:j])

			name, nameEnd := readIdentifier(sql, j)
			if name != "" && !strings.Contains(name, ".") && !strings.Contains(name, `"`) &&
				opt.SchemaTables[strings.ToLower(name)] {
				b.WriteString(opt.Schema)
				b.WriteByte('.')
			}
			b.WriteString(sql[j:nameEnd])
			i = nameEnd
			matched = true
			break
		}
		if matched {
			continue
		}
		b.WriteByte(sql[i])
		i++
	}
	return b.String()
}

func matchesKeywordAt(sql string, i int, kw string) bool {
	if i+len(kw) > len(sql) {
		return false
	}
	if !strings.EqualFold(sql[i:i+len(kw)], kw) {
		return false
	}
	if !isWordBoundary(sql, i-1) || !isWordBoundary(sql, i+len(kw)) {
		return false
	}
	if inLiteralOrComment(sql, i) {
		return false
	}
	return true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// readIdentifier reads a bare or quoted identifier starting at i and
// returns its text (unquoted form for bare identifiers, including quotes
// for quoted ones) and the index just past it.
func readIdentifier(sql string, i int) (string, int) {
	if i >= len(sql) {
		return "", i
	}
	switch sql[i] {
	case '"', '`':
		end := skipQuotedIdentifier(sql, i)
		return sql[i:end], end
	case '[':
		end := skipQuotedIdentifier(sql, i)
		return sql[i:end], end
	}
	start := i
	for i < len(sql) && (isAlnum(sql[i]) || sql[i] == '_' || sql[i] == '.') {
		i++
	}
	return sql[start:i], i
}
