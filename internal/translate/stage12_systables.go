package translate

import "strings"

// systemCatalogView is the UNION ALL view synthesised in place of the
// embedded engine's sqlite_master / sqlite_temp_master, built from
// information_schema and pg_catalog so that schema-introspection queries
// issued by the host application still return a name/type/tbl_name/rootpage/sql
// shaped result set against the remote server.
const systemCatalogView = `(SELECT table_name AS name, 'table' AS type, table_name AS tbl_name, 0 AS rootpage, '' AS sql FROM information_schema.tables WHERE table_schema = current_schema() UNION ALL SELECT indexname AS name, 'index' AS type, tablename AS tbl_name, 0 AS rootpage, indexdef AS sql FROM pg_indexes WHERE schemaname = current_schema())`

var systemTableNames = []string{"sqlite_master", "sqlite_temp_master"}

// stageSystemTableRewrite implements §4.2 stage 12: references to the
// embedded engine's schema-catalog tables are replaced with a UNION ALL
// view over the remote server's catalogs, and a trailing
// "ORDER BY rowid" (meaningless without the catalog's rowid) is stripped.
func stageSystemTableRewrite(sql string, _ Options) string {
	if len(sql) > maxSQLLength {
		overflowCount++
		return sql
	}

	for _, name := range systemTableNames {
		sql = replaceTableReference(sql, name, systemCatalogView)
	}
	sql = stripOrderByRowid(sql)
	return sql
}

func replaceTableReference(sql, tableName, replacement string) string {
	lower := strings.ToLower(sql)
	target := strings.ToLower(tableName)
	var b strings.Builder
	b.Grow(len(sql))
	i := 0
	for i < len(sql) {
		if inLiteralOrComment(sql, i) {
			b.WriteByte(sql[i])
			i++
			continue
		}
		if matchesKeywordAt(lower, i, target) {
			b.WriteString(replacement)
			i += len(target)
			continue
		}
		b.WriteByte(sql[i])
		i++
	}
	return b.String()
}

func stripOrderByRowid(sql string) string {
	lower := strings.ToLower(sql)
	idx := indexKeywordSequence(lower, sql, []string{"order", "by", "rowid"})
	if idx < 0 {
		return sql
	}
	end := keywordSequenceEnd(sql, idx, []string{"order", "by", "rowid"})
	trimmedHead := strings.TrimRight(sql[:idx], " \t\r\n")
	return trimmedHead + sql[end:]
}
