package translate

import "strings"

// placeholderResult carries the ordered parameter-name vector produced by
// stage 2 out to Translate, which cannot thread extra return values
// through the generic stage signature.
type placeholderResult struct {
	names []string
}

// placeholders implements §4.2 stage 2: '?' and ':name' become '$1',
// '$2', …. A ':name' repeated in the same statement maps to the same
// position. Occurrences inside string literals (and quoted identifiers,
// and comments) are left untouched. The returned vector's index i holds
// the name bound to $i+1 ("" for a positional '?').
func placeholders(sql string) (string, placeholderResult) {
	if len(sql) > maxSQLLength {
		overflowCount++
		return sql, placeholderResult{}
	}

	var b strings.Builder
	b.Grow(len(sql) + 8)

	var names []string
	seen := map[string]int{} // :name -> 1-based $N already assigned

	i := 0
	for i < len(sql) {
		if end := nextSignificant(sql, i); end > i {
			b.WriteString(sql[i:end])
			i = end
			continue
		}

		switch {
		case sql[i] == '?':
			names = append(names, "")
			b.WriteByte('$')
			b.WriteString(itoa(len(names)))
			i++

		case sql[i] == ':' && i+1 < len(sql) && isNameStart(sql[i+1]):
			start := i + 1
			j := start
			for j < len(sql) && isNameContinue(sql[j]) {
				j++
			}
			name := sql[start:j]
			if n, ok := seen[name]; ok {
				b.WriteByte('$')
				b.WriteString(itoa(n))
			} else {
				names = append(names, name)
				n := len(names)
				seen[name] = n
				b.WriteByte('$')
				b.WriteString(itoa(n))
			}
			i = j

		// Already-translated $N placeholders (idempotence: re-running the
		// pipeline on its own output must be a no-op, §8).
		case sql[i] == '$' && i+1 < len(sql) && isDigit(sql[i+1]):
			j := i + 1
			for j < len(sql) && isDigit(sql[j]) {
				j++
			}
			names = append(names, "")
			b.WriteString(sql[i:j])
			i = j

		default:
			b.WriteByte(sql[i])
			i++
		}
	}

	return b.String(), placeholderResult{names: names}
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameContinue(c byte) bool {
	return isNameStart(c) || isDigit(c)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
