package pg

import (
	"fmt"
	"strings"

	"github.com/vstorage-dev/vstorage/query"
)

// compiledSelect is a SELECT statement plus its positional arguments.
type compiledSelect struct {
	sql  string
	args []any
}

func compileSelect(table string, shape query.Shape) compiledSelect {
	var b strings.Builder
	var args []any

	b.WriteString("SELECT ")
	if cols := shape.DistinctOnColumns(); len(cols) > 0 {
		b.WriteString("DISTINCT ON (")
		b.WriteString(strings.Join(qualifyAll(table, cols), ", "))
		b.WriteString(") ")
	}
	fmt.Fprintf(&b, "%s.* FROM %s", table, table)

	for _, j := range shape.Joins() {
		kind := "JOIN"
		if j.Kind == query.LeftJoin {
			kind = "LEFT JOIN"
		}
		fmt.Fprintf(&b, " %s %s ON %s.%s = %s.%s", kind, j.Table, table, j.LeftColumn, j.Table, j.RightColumn)
	}

	if where, whereArgs := compileWhere(table, shape.Filters(), len(args)+1); where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
		args = append(args, whereArgs...)
	}

	if order := shape.OrderClauses(); len(order) > 0 {
		parts := make([]string, len(order))
		for i, o := range order {
			dir := "ASC"
			if o.Direction == query.Desc {
				dir = "DESC"
			}
			parts[i] = fmt.Sprintf("%s.%s %s", table, o.Column, dir)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(parts, ", "))
	}

	if limit, ok := shape.LimitValue(); ok {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	if offset, ok := shape.OffsetValue(); ok {
		fmt.Fprintf(&b, " OFFSET %d", offset)
	}

	return compiledSelect{sql: b.String(), args: args}
}

type compiledDelete struct {
	sql  string
	args []any
}

func compileDelete(table string, shape query.DeleteShape) compiledDelete {
	var b strings.Builder
	fmt.Fprintf(&b, "DELETE FROM %s", table)
	where, args := compileWhere(table, shape.Filters(), 1)
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	return compiledDelete{sql: b.String(), args: args}
}

// compileWhere renders filters as a single AND-joined predicate string,
// with positional placeholders starting at startIdx, and returns the bound
// argument slice in the same order the placeholders appear.
func compileWhere(table string, filters []query.Filter, startIdx int) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	var parts []string
	var args []any
	idx := startIdx
	for _, f := range filters {
		col := fmt.Sprintf("%s.%s", table, f.Column)
		switch f.Op {
		case query.OpEq:
			parts = append(parts, fmt.Sprintf("%s = $%d", col, idx))
			args = append(args, f.Value.Native())
			idx++
		case query.OpNe:
			parts = append(parts, fmt.Sprintf("%s != $%d", col, idx))
			args = append(args, f.Value.Native())
			idx++
		case query.OpGt:
			parts = append(parts, fmt.Sprintf("%s > $%d", col, idx))
			args = append(args, f.Value.Native())
			idx++
		case query.OpGte:
			parts = append(parts, fmt.Sprintf("%s >= $%d", col, idx))
			args = append(args, f.Value.Native())
			idx++
		case query.OpLt:
			parts = append(parts, fmt.Sprintf("%s < $%d", col, idx))
			args = append(args, f.Value.Native())
			idx++
		case query.OpLte:
			parts = append(parts, fmt.Sprintf("%s <= $%d", col, idx))
			args = append(args, f.Value.Native())
			idx++
		case query.OpIn:
			placeholders := make([]string, len(f.Values))
			for i, v := range f.Values {
				placeholders[i] = fmt.Sprintf("$%d", idx)
				args = append(args, v.Native())
				idx++
			}
			parts = append(parts, fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", ")))
		case query.OpIsNull:
			parts = append(parts, fmt.Sprintf("%s IS NULL", col))
		case query.OpIsNotNull:
			parts = append(parts, fmt.Sprintf("%s IS NOT NULL", col))
		}
	}
	return strings.Join(parts, " AND "), args
}

func qualifyAll(table string, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = fmt.Sprintf("%s.%s", table, c)
	}
	return out
}
