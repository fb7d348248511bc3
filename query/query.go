package query

import "context"

// Query[T] is a fluent, immutable builder describing a read against T's
// registered table. Each builder method returns a new Query value; none
// mutate the receiver, so a partially built Query can be safely reused as
// the base for several variants.
type Query[T any] struct {
	filters    []Filter
	joins      []Join
	order      []Order
	limit      *int
	offset     *int
	distinctOn []string
}

// New starts an empty Query against T's table.
func New[T any]() Query[T] { return Query[T]{} }

func (q Query[T]) Where(f Filter) Query[T] {
	q.filters = append(append([]Filter{}, q.filters...), f)
	return q
}

func (q Query[T]) Join(j Join) Query[T] {
	q.joins = append(append([]Join{}, q.joins...), j)
	return q
}

func (q Query[T]) OrderBy(column string, dir Direction) Query[T] {
	q.order = append(append([]Order{}, q.order...), Order{Column: column, Direction: dir})
	return q
}

func (q Query[T]) Limit(n int) Query[T] {
	q.limit = &n
	return q
}

func (q Query[T]) Offset(n int) Query[T] {
	q.offset = &n
	return q
}

// DistinctOn restricts the result set to at most one row per distinct
// combination of the given columns, the first row per group being
// determined by the query's Order clauses. Only the relational backend
// implements this natively (Postgres DISTINCT ON); the document backend
// realizes it via grouping.
func (q Query[T]) DistinctOn(columns ...string) Query[T] {
	q.distinctOn = append(append([]string{}, q.distinctOn...), columns...)
	return q
}

func (q Query[T]) Filters() []Filter      { return q.filters }
func (q Query[T]) Joins() []Join          { return q.joins }
func (q Query[T]) OrderClauses() []Order  { return q.order }
func (q Query[T]) LimitValue() (int, bool) {
	if q.limit == nil {
		return 0, false
	}
	return *q.limit, true
}
func (q Query[T]) OffsetValue() (int, bool) {
	if q.offset == nil {
		return 0, false
	}
	return *q.offset, true
}
func (q Query[T]) DistinctOnColumns() []string { return q.distinctOn }

// Delete[T] is a builder describing a bulk delete against T's registered
// table, sharing the same filter vocabulary as Query but none of the
// read-shaping clauses.
type Delete[T any] struct {
	filters []Filter
}

func NewDelete[T any]() Delete[T] { return Delete[T]{} }

func (d Delete[T]) Where(f Filter) Delete[T] {
	d.filters = append(append([]Filter{}, d.filters...), f)
	return d
}

func (d Delete[T]) Filters() []Filter { return d.filters }

// Shape is the type-erased view of a Query[T] a backend compiles against,
// without needing to know T.
type Shape interface {
	Filters() []Filter
	Joins() []Join
	OrderClauses() []Order
	LimitValue() (int, bool)
	OffsetValue() (int, bool)
	DistinctOnColumns() []string
}

// DeleteShape is the type-erased view of a Delete[T].
type DeleteShape interface {
	Filters() []Filter
}

// QueryExecutor is implemented by each backend to run a Query[T] or
// Delete[T] outside of a transaction. Every method takes a context so
// long-running calls can be cancelled or carry deadlines; this is the Go
// realization of the suspension points the original async engine placed at
// every I/O boundary.
type QueryExecutor interface {
	RunQuery(ctx context.Context, table string, q any) ([]map[string]any, error)
	RunInsert(ctx context.Context, table string, row map[string]any) error
	RunDelete(ctx context.Context, table string, d any) (int64, error)
}

// TransactionExecutor extends QueryExecutor with transaction demarcation.
// The document backend's implementation of Begin/Commit/Rollback is a
// no-op pass-through, since RethinkDB has no multi-statement transaction
// primitive to bind to.
type TransactionExecutor interface {
	QueryExecutor
	Begin(ctx context.Context) (TransactionExecutor, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	AdvisoryLock(ctx context.Context, key int64) error
}
