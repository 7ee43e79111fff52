package translate

import "strings"

// ConflictRule describes how stage 6 (upsert synthesis, §4.2) should turn
// an "INSERT OR REPLACE INTO table(cols) VALUES(...)" into an
// ON CONFLICT ... DO UPDATE. TargetColumns names the conflict target
// (usually the primary key or a unique index); CustomSet overrides the
// default "col = EXCLUDED.col" assignment for specific columns (e.g.
// counters that should only increase, or timestamps that should track
// NOW()).
type ConflictRule struct {
	TargetColumns []string
	CustomSet     map[string]string // column -> SET expression (EXCLUDED available)
	ReturningID   bool
}

// ConflictTable is the static per-table conflict-target table referenced
// by §4.2 stage 6 and §9's Open Question about RETURNING id. Keys are
// lowercased table names.
type ConflictTable map[string]ConflictRule

// DefaultConflictTable is grounded in the metadata-store schema implied
// by the host application's dialect-specific functions (iif/strftime over
// metadata_items, tags, views — §8 scenarios 1-2): the common library
// tables that receive INSERT OR REPLACE churn from bulk scan/refresh
// operations.
func DefaultConflictTable() ConflictTable {
	return ConflictTable{
		"tags": {
			TargetColumns: []string{"id"},
			ReturningID:   true,
		},
		"metadata_items": {
			TargetColumns: []string{"guid"},
			ReturningID:   true,
		},
		"media_parts": {
			TargetColumns: []string{"id"},
			ReturningID:   true,
		},
		"views": {
			TargetColumns: []string{"id"},
			CustomSet: map[string]string{
				"view_count": "GREATEST(views.view_count, EXCLUDED.view_count)",
				"updated_at": "COALESCE(EXCLUDED.updated_at, NOW())",
			},
			ReturningID: true,
		},
	}
}

func (t ConflictTable) lookup(table string) (ConflictRule, bool) {
	rule, ok := t[strings.ToLower(stripQuotesAndSchema(table))]
	return rule, ok
}

// HasIDSurrogate reports whether table is known (via this same static
// table) to have an `id` primary-key surrogate — the same determination
// stage 6 uses to decide RETURNING id, reused by C6's Prepare to decide
// whether a WRITE statement should grow a RETURNING id clause so a
// following last_insert_rowid() inquiry succeeds (§4.6 "step").
func (t ConflictTable) HasIDSurrogate(table string) bool {
	rule, ok := t.lookup(table)
	return ok && containsFold(rule.TargetColumns, "id")
}

func stripQuotesAndSchema(name string) string {
	name = strings.Trim(name, `"`+"`"+"[]")
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.Trim(name, `"`+"`"+"[]")
}
