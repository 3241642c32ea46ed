package postgres

import (
	"fmt"
	"regexp"

	"github.com/Masterminds/squirrel"

	"adminkit/internal/domain/query"
)

// identifierRe restricts table, alias and column names to plain SQL
// identifiers. They come from registered metadata, never from requests, but
// are spliced into the statement text, so they are checked anyway.
var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// RenderSelect renders the list query.
func RenderSelect(q query.Select) (string, []any, error) {
	if err := validate(q); err != nil {
		return "", nil, err
	}

	cols := make([]string, len(q.Columns))
	for i, c := range q.Columns {
		cols[i] = ref(q.Alias, c)
	}
	sb := applyFilter(Builder().Select(cols...), q)

	if q.Order != nil {
		dir := "ASC"
		if q.Order.Desc {
			dir = "DESC"
		}
		sb = sb.OrderBy(ref(q.Order.Column.Alias, q.Order.Column.Column) + " " + dir)
	}
	if q.Paged {
		sb = sb.Limit(q.Limit).Offset(q.Offset)
	}
	return sb.ToSql()
}

// RenderCount renders the count query: same joins and predicates as
// RenderSelect, no ordering or paging.
func RenderCount(q query.Select) (string, []any, error) {
	if err := validate(q); err != nil {
		return "", nil, err
	}
	return applyFilter(Builder().Select("COUNT(*)"), q).ToSql()
}

func applyFilter(sb squirrel.SelectBuilder, q query.Select) squirrel.SelectBuilder {
	sb = sb.From(q.From + " " + q.Alias)
	for _, j := range q.Joins {
		sb = sb.LeftJoin(fmt.Sprintf("%s %s ON %s = %s",
			j.Table, j.Alias, ref(q.Alias, j.LocalColumn), ref(j.Alias, j.TargetColumn)))
	}
	if q.Filtered() {
		or := make(squirrel.Or, 0, len(q.Search.Columns))
		for _, c := range q.Search.Columns {
			or = append(or, squirrel.Expr("LOWER("+ref(c.Alias, c.Column)+") LIKE ?", q.Search.Pattern))
		}
		sb = sb.Where(or)
	}
	return sb
}

func ref(alias, column string) string {
	return alias + "." + column
}

func validate(q query.Select) error {
	names := []string{q.From, q.Alias}
	names = append(names, q.Columns...)
	for _, j := range q.Joins {
		names = append(names, j.Table, j.Alias, j.LocalColumn, j.TargetColumn)
	}
	if q.Search != nil {
		for _, c := range q.Search.Columns {
			names = append(names, c.Alias, c.Column)
		}
	}
	if q.Order != nil {
		names = append(names, q.Order.Column.Alias, q.Order.Column.Column)
	}
	for _, n := range names {
		if !identifierRe.MatchString(n) {
			return fmt.Errorf("invalid identifier %q in query", n)
		}
	}
	if len(q.Columns) == 0 {
		return fmt.Errorf("query on %s selects no columns", q.From)
	}
	return nil
}
