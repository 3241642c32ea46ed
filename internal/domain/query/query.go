// Package query is a small AST for the list and count queries the engine
// synthesizes. It carries no SQL; renderers turn it into a concrete dialect
// and bind every user-supplied value as a parameter.
package query

// RootAlias is the alias of the root table in every rendered query.
const RootAlias = "x"

// JoinAlias returns the deterministic alias of the join for an association.
func JoinAlias(attribute string) string {
	return "j_" + attribute
}

// ColumnRef addresses a column through a table alias.
type ColumnRef struct {
	Alias  string
	Column string
}

// Join is a LEFT JOIN of Table AS Alias ON root.LocalColumn = Alias.TargetColumn.
type Join struct {
	Table        string
	Alias        string
	LocalColumn  string
	TargetColumn string
}

// Search is a disjunction of case-insensitive substring predicates
// over Columns. Pattern is already lower-cased and wildcard-wrapped.
type Search struct {
	Columns []ColumnRef
	Pattern string
}

// Order is a single ordering term.
type Order struct {
	Column ColumnRef
	Desc   bool
}

// Select is a root selection with ordered joins, an optional search
// disjunction, an optional ordering and optional paging.
type Select struct {
	From    string
	Alias   string
	Columns []string
	Joins   []Join
	Search  *Search
	Order   *Order
	Paged   bool
	Offset  uint64
	Limit   uint64
}

// HasJoin reports whether an alias is already joined.
func (s *Select) HasJoin(alias string) bool {
	for _, j := range s.Joins {
		if j.Alias == alias {
			return true
		}
	}
	return false
}

// Filtered reports whether the select carries at least one predicate.
func (s *Select) Filtered() bool {
	return s.Search != nil && len(s.Search.Columns) > 0
}
