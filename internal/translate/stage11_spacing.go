package translate

import "strings"

// stageOperatorSpacing implements §4.2 stage 11: the remote server's
// tokenizer requires a space between a comparison operator and a
// following unary minus (">=-1" is read as a single ">=-" token by some
// wire-protocol parsers); this stage inserts one, skipping literals and
// comments.
func stageOperatorSpacing(sql string, _ Options) string {
	if len(sql) > maxSQLLength {
		overflowCount++
		return sql
	}

	var b strings.Builder
	b.Grow(len(sql) + 8)
	ops := []string{">=", "<=", "<>", "!=", "=", "<", ">"}
	i := 0
	for i < len(sql) {
		if inLiteralOrComment(sql, i) {
			b.WriteByte(sql[i])
			i++
			continue
		}
		matched := ""
		for _, op := range ops {
			if strings.HasPrefix(sql[i:], op) {
				matched = op
				break
			}
		}
		if matched == "" {
			b.WriteByte(sql[i])
			i++
			continue
		}
		b.WriteString(matched)
		i += len(matched)
		if i < len(sql) && sql[i] == '-' && !inLiteralOrComment(sql, i) {
			b.WriteByte(' ')
		}
	}
	return b.String()
}
