package repository

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/google/uuid"

	"github.com/vstorage-dev/vstorage/query"
	"github.com/vstorage-dev/vstorage/said"
	"github.com/vstorage-dev/vstorage/storable"
	"github.com/vstorage-dev/vstorage/storagetime"
)

// memoryExecutor is an in-memory query.QueryExecutor standing in for a real
// backend, so the repository layer's contract can be exercised without a
// live database connection.
type memoryExecutor struct {
	rows map[string][]map[string]any
}

func newMemoryExecutor() *memoryExecutor {
	return &memoryExecutor{rows: map[string][]map[string]any{}}
}

func (m *memoryExecutor) RunQuery(ctx context.Context, table string, q any) ([]map[string]any, error) {
	shape := q.(query.Shape)
	var out []map[string]any
	for _, row := range m.rows[table] {
		if matches(row, shape.Filters()) {
			out = append(out, row)
		}
	}
	if order := shape.OrderClauses(); len(order) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, o := range order {
				vi, vj := out[i][o.Column], out[j][o.Column]
				if vi == vj {
					continue
				}
				less := fmt.Sprint(vi) < fmt.Sprint(vj)
				if o.Direction == query.Desc {
					return !less
				}
				return less
			}
			return false
		})
	}
	if limit, ok := shape.LimitValue(); ok && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryExecutor) RunInsert(ctx context.Context, table string, row map[string]any) error {
	m.rows[table] = append(m.rows[table], row)
	return nil
}

func (m *memoryExecutor) RunDelete(ctx context.Context, table string, d any) (int64, error) {
	shape := d.(query.DeleteShape)
	kept := m.rows[table][:0]
	var deleted int64
	for _, row := range m.rows[table] {
		if matches(row, shape.Filters()) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	m.rows[table] = kept
	return deleted, nil
}

func matches(row map[string]any, filters []query.Filter) bool {
	for _, f := range filters {
		v := row[f.Column]
		switch f.Op {
		case query.OpEq:
			if fmt.Sprint(v) != fmt.Sprint(f.Value.Native()) {
				return false
			}
		case query.OpNe:
			if fmt.Sprint(v) == fmt.Sprint(f.Value.Native()) {
				return false
			}
		case query.OpIsNull:
			if v != nil {
				return false
			}
		case query.OpIsNotNull:
			if v == nil {
				return false
			}
		}
	}
	return true
}

type asset struct {
	Said    string `vs:"said" json:"said"`
	Name    string `json:"name"`
	OwnerID string `json:"ownerId"`
}

type document struct {
	Said      string               `vs:"said" json:"said"`
	Prefix    string               `vs:"prefix" json:"prefix"`
	Previous  *string              `vs:"previous" json:"previous"`
	Version   uint64               `vs:"version" json:"version"`
	CreatedAt storagetime.Datetime `vs:"created_at" json:"createdAt"`
	Title     string               `json:"title"`
	OwnerID   string               `json:"ownerId"`
}

func init() {
	_ = storable.Register[asset]("assets")
	_ = storable.Register[document]("documents")
}

func TestUnversionedCreateAndGet(t *testing.T) {
	exec := newMemoryExecutor()
	repo, err := NewUnversioned[asset](exec, "assets")
	if err != nil {
		t.Fatal(err)
	}

	created, err := repo.Create(context.Background(), &asset{Name: "widget", OwnerID: uuid.New().String()})
	if err != nil {
		t.Fatal(err)
	}
	if created.Said == "" {
		t.Fatal("expected said to be populated after Create")
	}

	got, err := repo.GetBySaid(context.Background(), created.Said)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "widget" {
		t.Fatalf("Name = %q", got.Name)
	}
}

func TestUnversionedGetBySaidNotFound(t *testing.T) {
	exec := newMemoryExecutor()
	repo, err := NewUnversioned[asset](exec, "assets")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetBySaid(context.Background(), "Emissing"); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestVersionedLineageOfThree(t *testing.T) {
	exec := newMemoryExecutor()
	repo, err := NewVersioned[document](exec, "documents")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	v0, err := repo.Create(ctx, &document{Title: "draft", OwnerID: uuid.New().String()})
	if err != nil {
		t.Fatal(err)
	}
	if v0.Version != 0 || v0.Prefix != v0.Said {
		t.Fatalf("v0 invariant violated: version=%d prefix=%q said=%q", v0.Version, v0.Prefix, v0.Said)
	}

	v1, err := repo.Update(ctx, v0, &document{Title: "revised"})
	if err != nil {
		t.Fatal(err)
	}
	if v1.Version != 1 || v1.Prefix != v0.Prefix {
		t.Fatalf("v1 invariant violated: version=%d prefix=%q", v1.Version, v1.Prefix)
	}

	v2, err := repo.Update(ctx, v1, &document{Title: "final"})
	if err != nil {
		t.Fatal(err)
	}
	if v2.Version != 2 || v2.Prefix != v0.Prefix {
		t.Fatalf("v2 invariant violated: version=%d prefix=%q", v2.Version, v2.Prefix)
	}

	latest, err := repo.GetLatest(ctx, v0.Prefix)
	if err != nil {
		t.Fatal(err)
	}
	if latest.Said != v2.Said {
		t.Fatalf("GetLatest returned %q, want %q", latest.Said, v2.Said)
	}

	history, err := repo.GetHistory(ctx, v0.Prefix)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 versions of history, got %d", len(history))
	}
	for i, rec := range history {
		if rec.Version != uint64(i) {
			t.Fatalf("history[%d].Version = %d, want %d", i, rec.Version, i)
		}
	}

	exists, err := repo.Exists(ctx, v0.Prefix)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("expected Exists true for a populated lineage")
	}
	missing, err := repo.Exists(ctx, "Enonexistent")
	if err != nil {
		t.Fatal(err)
	}
	if missing {
		t.Fatal("expected Exists false for an absent lineage")
	}
}

func TestVersionedUpdateWithUnchangedContentStillWritesNewVersion(t *testing.T) {
	exec := newMemoryExecutor()
	repo, err := NewVersioned[document](exec, "documents")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	v0, err := repo.Create(ctx, &document{Title: "same"})
	if err != nil {
		t.Fatal(err)
	}

	result, err := repo.Update(ctx, v0, &document{Title: "same"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Said == v0.Said || result.Version != 1 {
		t.Fatalf("expected unchanged-content update to still produce a new version, got version=%d said=%q", result.Version, result.Said)
	}
	if result.Previous == nil || *result.Previous != v0.Said {
		t.Fatalf("expected new version's previous to reference v0, got %v", result.Previous)
	}

	history, err := repo.GetHistory(ctx, v0.Prefix)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("expected a new version written, got %d rows", len(history))
	}
}

func TestVerifyUnchangedIsAvailableForCallersToSkipUpdate(t *testing.T) {
	exec := newMemoryExecutor()
	repo, err := NewVersioned[document](exec, "documents")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	v0, err := repo.Create(ctx, &document{Title: "same"})
	if err != nil {
		t.Fatal(err)
	}

	unchanged, err := said.VerifyUnchanged(v0, &document{Title: "same"})
	if err != nil {
		t.Fatal(err)
	}
	if !unchanged {
		t.Fatal("expected VerifyUnchanged to report identical content as unchanged")
	}
}

func TestNewVersionedRejectsUnversionedType(t *testing.T) {
	exec := newMemoryExecutor()
	if _, err := NewVersioned[asset](exec, "assets"); err == nil {
		t.Fatal("expected error constructing Versioned[asset]")
	}
}

func TestNewUnversionedRejectsVersionedType(t *testing.T) {
	exec := newMemoryExecutor()
	if _, err := NewUnversioned[document](exec, "documents"); err == nil {
		t.Fatal("expected error constructing Unversioned[document]")
	}
}
