package query

// Op identifies a Filter's comparison operator.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
	OpIsNull
	OpIsNotNull
)

// Filter is one predicate in a Query or Delete's WHERE clause: a column
// compared against either a single Value (Eq/Ne/Gt/Gte/Lt/Lte), a set of
// Values (In), or nothing (IsNull/IsNotNull).
type Filter struct {
	Column string
	Op     Op
	Value  Value
	Values []Value
}

func Eq(column string, v Value) Filter  { return Filter{Column: column, Op: OpEq, Value: v} }
func Ne(column string, v Value) Filter  { return Filter{Column: column, Op: OpNe, Value: v} }
func Gt(column string, v Value) Filter  { return Filter{Column: column, Op: OpGt, Value: v} }
func Gte(column string, v Value) Filter { return Filter{Column: column, Op: OpGte, Value: v} }
func Lt(column string, v Value) Filter  { return Filter{Column: column, Op: OpLt, Value: v} }
func Lte(column string, v Value) Filter { return Filter{Column: column, Op: OpLte, Value: v} }

func In(column string, vs ...Value) Filter {
	return Filter{Column: column, Op: OpIn, Values: vs}
}

func IsNull(column string) Filter    { return Filter{Column: column, Op: OpIsNull} }
func IsNotNull(column string) Filter { return Filter{Column: column, Op: OpIsNotNull} }

// Direction is the sort direction for an Order clause.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// Order is one ORDER BY clause element.
type Order struct {
	Column    string
	Direction Direction
}

// JoinKind identifies how a Join relates to the base relation.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
)

// Join describes a single join against another table, equating one of the
// base relation's columns with one of the joined table's columns.
type Join struct {
	Kind       JoinKind
	Table      string
	LeftColumn string
	RightColumn string
}
