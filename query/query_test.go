package query

import "testing"

type widget struct{}

func TestQueryBuilderIsImmutable(t *testing.T) {
	base := New[widget]()
	withFilter := base.Where(Eq("name", Text("a")))

	if len(base.Filters()) != 0 {
		t.Fatal("base query should be unaffected by Where on derived query")
	}
	if len(withFilter.Filters()) != 1 {
		t.Fatalf("expected 1 filter, got %d", len(withFilter.Filters()))
	}
}

func TestQueryChaining(t *testing.T) {
	q := New[widget]().
		Where(Eq("status", Text("active"))).
		Where(Gt("score", Int(10))).
		OrderBy("created_at", Desc).
		Limit(5).
		Offset(10).
		DistinctOn("owner")

	if len(q.Filters()) != 2 {
		t.Fatalf("expected 2 filters, got %d", len(q.Filters()))
	}
	if limit, ok := q.LimitValue(); !ok || limit != 5 {
		t.Fatalf("LimitValue = %d, %v", limit, ok)
	}
	if offset, ok := q.OffsetValue(); !ok || offset != 10 {
		t.Fatalf("OffsetValue = %d, %v", offset, ok)
	}
	if cols := q.DistinctOnColumns(); len(cols) != 1 || cols[0] != "owner" {
		t.Fatalf("DistinctOnColumns = %v", cols)
	}
}

func TestDeleteBuilder(t *testing.T) {
	d := NewDelete[widget]().Where(IsNull("archived_at"))
	if len(d.Filters()) != 1 {
		t.Fatalf("expected 1 filter, got %d", len(d.Filters()))
	}
	if d.Filters()[0].Op != OpIsNull {
		t.Fatalf("expected OpIsNull, got %v", d.Filters()[0].Op)
	}
}

func TestValueNative(t *testing.T) {
	cases := []struct {
		v    Value
		want any
	}{
		{Text("x"), "x"},
		{Int(5), int64(5)},
		{Bool(true), true},
		{Null(), nil},
	}
	for _, c := range cases {
		if got := c.v.Native(); got != c.want {
			t.Fatalf("Native() = %v, want %v", got, c.want)
		}
	}
}

func TestInFilterCollectsValues(t *testing.T) {
	f := In("status", Text("a"), Text("b"), Text("c"))
	if len(f.Values) != 3 {
		t.Fatalf("expected 3 values, got %d", len(f.Values))
	}
	if f.Op != OpIn {
		t.Fatalf("expected OpIn, got %v", f.Op)
	}
}
