package translate

import "strings"

// stageIdentifierQuoting implements §4.2 stage 7: backtick/bracket
// identifiers become double-quoted identifiers everywhere, single-quoted
// names in DDL identifier position (right after TABLE, ADD, DROP or
// COLUMN) become double-quoted identifiers, and qualified references like
// T.'c' become T."c".
func stageIdentifierQuoting(sql string, _ Options) string {
	if len(sql) > maxSQLLength {
		overflowCount++
		return sql
	}

	var b strings.Builder
	b.Grow(len(sql))
	i := 0
	for i < len(sql) {
		switch {
		case sql[i] == '`':
			end := skipQuotedIdentifier(sql, i)
			body := sql[i+1 : end-1]
			b.WriteString(normalizeQuotedIdentifier(body))
			i = end
		case sql[i] == '[' && looksLikeBracketIdentifier(sql, i):
			end := skipQuotedIdentifier(sql, i)
			body := sql[i+1 : end-1]
			b.WriteString(normalizeQuotedIdentifier(body))
			i = end
		case sql[i] == '\'' && i > 0 && precededByDDLIdentifierPosition(sql, i):
			end := skipString(sql, i)
			body := sql[i+1 : end-1]
			b.WriteString(normalizeQuotedIdentifier(body))
			i = end
		case sql[i] == '\'':
			end := skipString(sql, i)
			b.WriteString(sql[i:end])
			i = end
		case sql[i] == '"':
			end := skipString(sql, i)
			b.WriteString(sql[i:end])
			i = end
		default:
			b.WriteByte(sql[i])
			i++
		}
	}
	return rewriteDotSingleQuoteColumn(b.String())
}

// looksLikeBracketIdentifier guards against matching array-index-like
// uses of '[' that this dialect doesn't otherwise have; in practice the
// embedded engine only uses [x] for identifiers, so this is permissive.
func looksLikeBracketIdentifier(sql string, i int) bool {
	return true
}

// precededByDDLIdentifierPosition reports whether the quote at i follows
// (ignoring whitespace) one of the words TABLE, ADD, DROP, or COLUMN — the DDL
// identifier positions named in §4.1/§4.2 where a single-quoted name
// denotes an identifier rather than a value.
func precededByDDLIdentifierPosition(sql string, i int) bool {
	j := i
	for j > 0 && isSpace(sql[j-1]) {
		j--
	}
	for _, kw := range []string{"table", "add", "drop", "column"} {
		if j-len(kw) >= 0 && strings.EqualFold(sql[j-len(kw):j], kw) && isWordBoundary(sql, j-len(kw)-1) {
			return true
		}
	}
	return false
}

// rewriteDotSingleQuoteColumn turns T."c" patterns that originated as
// T.'c' (already converted to double quotes by the pass above when in DDL
// identifier position) — this pass instead targets the remaining
// T.'c' shape for qualified column references outside DDL, where the
// single quote denotes a quoted column name rather than a string value.
func rewriteDotSingleQuoteColumn(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))
	i := 0
	for i < len(sql) {
		if sql[i] == '.' && i+1 < len(sql) && sql[i+1] == '\'' && !inLiteralOrComment(sql, i) {
			end := skipString(sql, i+1)
			if end > i+2 {
				body := sql[i+2 : end-1]
				b.WriteByte('.')
				b.WriteString(normalizeQuotedIdentifier(body))
				i = end
				continue
			}
		}
		b.WriteByte(sql[i])
		i++
	}
	return b.String()
}
