package rethink

import (
	"context"
	"fmt"

	r "gopkg.in/rethinkdb/rethinkdb-go.v6"

	"github.com/vstorage-dev/vstorage/query"
	"github.com/vstorage-dev/vstorage/vserr"
)

func (c *Conn) RunQuery(ctx context.Context, table string, q any) ([]map[string]any, error) {
	shape, ok := q.(query.Shape)
	if !ok {
		return nil, fmt.Errorf("rethink: RunQuery requires a query.Shape")
	}
	term := c.database().Table(table)
	term = applyJoins(term, shape.Joins())
	term = applyFilters(term, shape.Filters())
	term = applyOrder(term, shape.OrderClauses())

	distinct := len(shape.DistinctOnColumns()) > 0
	if distinct {
		// Realize DISTINCT ON via group-then-take-first-row-per-group, the
		// document backend's analogue of Postgres's native DISTINCT ON.
		// Order clauses must already be applied so each group's first
		// reduction row is the one DISTINCT ON would have kept.
		cols := make([]any, len(shape.DistinctOnColumns()))
		for i, c := range shape.DistinctOnColumns() {
			cols[i] = c
		}
		term = term.Group(cols...).Ungroup().ConcatMap(func(group r.Term) r.Term {
			return group.Field("reduction").Slice(0, 1)
		})
	}

	if offset, ok := shape.OffsetValue(); ok {
		term = term.Skip(offset)
	}
	if limit, ok := shape.LimitValue(); ok {
		term = term.Limit(limit)
	}

	cur, err := term.Run(c.sess)
	if err != nil {
		return nil, vserr.StorageError("rethink: run query", err)
	}
	defer cur.Close()

	var rows []map[string]any
	if err := cur.All(&rows); err != nil {
		return nil, vserr.StorageError("rethink: decode rows", err)
	}
	return rows, nil
}

func applyJoins(term r.Term, joins []query.Join) r.Term {
	for _, j := range joins {
		var joined r.Term
		if j.Kind == query.LeftJoin {
			joined = term.OuterJoin(r.Table(j.Table), func(left, right r.Term) r.Term {
				return left.Field(j.LeftColumn).Eq(right.Field(j.RightColumn))
			})
		} else {
			joined = term.InnerJoin(r.Table(j.Table), func(left, right r.Term) r.Term {
				return left.Field(j.LeftColumn).Eq(right.Field(j.RightColumn))
			})
		}
		term = joined.Zip()
	}
	return term
}

func applyFilters(term r.Term, filters []query.Filter) r.Term {
	for _, f := range filters {
		col := f.Column
		switch f.Op {
		case query.OpEq:
			term = term.Filter(r.Row.Field(col).Eq(f.Value.Native()))
		case query.OpNe:
			term = term.Filter(r.Row.Field(col).Ne(f.Value.Native()))
		case query.OpGt:
			term = term.Filter(r.Row.Field(col).Gt(f.Value.Native()))
		case query.OpGte:
			term = term.Filter(r.Row.Field(col).Ge(f.Value.Native()))
		case query.OpLt:
			term = term.Filter(r.Row.Field(col).Lt(f.Value.Native()))
		case query.OpLte:
			term = term.Filter(r.Row.Field(col).Le(f.Value.Native()))
		case query.OpIn:
			natives := make([]any, len(f.Values))
			for i, v := range f.Values {
				natives[i] = v.Native()
			}
			term = term.Filter(func(row r.Term) r.Term {
				return r.Expr(natives).Contains(row.Field(col))
			})
		case query.OpIsNull:
			term = term.Filter(r.Row.Field(col).Eq(nil))
		case query.OpIsNotNull:
			term = term.Filter(r.Row.Field(col).Eq(nil).Not())
		}
	}
	return term
}

func applyOrder(term r.Term, order []query.Order) r.Term {
	if len(order) == 0 {
		return term
	}
	keys := make([]any, len(order))
	for i, o := range order {
		if o.Direction == query.Desc {
			keys[i] = r.Desc(o.Column)
		} else {
			keys[i] = r.Asc(o.Column)
		}
	}
	return term.OrderBy(keys...)
}

// RunInsert upserts row keyed on its "said" primary key, matching
// spec.md's per-record upsert requirement for the document backend.
func (c *Conn) RunInsert(ctx context.Context, table string, row map[string]any) error {
	_, err := c.database().Table(table).Insert(row, r.InsertOpts{Conflict: "update"}).RunWrite(c.sess)
	if err != nil {
		return vserr.StorageError("rethink: insert", err)
	}
	return nil
}

func (c *Conn) RunDelete(ctx context.Context, table string, d any) (int64, error) {
	shape, ok := d.(query.DeleteShape)
	if !ok {
		return 0, fmt.Errorf("rethink: RunDelete requires a query.DeleteShape")
	}
	term := applyFilters(c.database().Table(table), shape.Filters())
	res, err := term.Delete().RunWrite(c.sess)
	if err != nil {
		return 0, vserr.StorageError("rethink: delete", err)
	}
	return int64(res.Deleted), nil
}
