package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vstorage-dev/vstorage/query"
	"github.com/vstorage-dev/vstorage/said"
	"github.com/vstorage-dev/vstorage/storable"
	"github.com/vstorage-dev/vstorage/vserr"
)

// Versioned synthesizes the create/update/insert/get_by_said/get_latest/
// get_history/exists contract for a versioned record type T.
type Versioned[T any] struct {
	conn  query.QueryExecutor
	table string
	desc  *storable.Descriptor
}

// NewVersioned builds a Versioned[T] repository. T must already be
// registered via storable.Register as a versioned type.
func NewVersioned[T any](conn query.QueryExecutor, table string) (*Versioned[T], error) {
	desc, ok := storable.DescriptorForType[T]()
	if !ok {
		return nil, fmt.Errorf("repository: %T is not registered with storable.Register", *new(T))
	}
	if !desc.IsVersionedRec {
		return nil, fmt.Errorf("repository: %T is unversioned; use NewUnversioned", *new(T))
	}
	return &Versioned[T]{conn: conn, table: table, desc: desc}, nil
}

// Create derives v as version 0 of a new lineage: its said becomes both
// its own said and its prefix.
func (r *Versioned[T]) Create(ctx context.Context, v *T) (*T, error) {
	if err := storable.SetVersion(v, 0); err != nil {
		return nil, err
	}
	var nilPrevious *string
	if err := storable.SetPrevious(v, nilPrevious); err != nil {
		return nil, err
	}

	prefix, err := said.DerivePrefix(v)
	if err != nil {
		return nil, err
	}
	if err := storable.SetPrefix(v, prefix); err != nil {
		return nil, err
	}
	if err := storable.SetSaid(v, prefix); err != nil {
		return nil, err
	}

	return r.Insert(ctx, v)
}

// Update derives the next version of the lineage identified by prev's said
// from candidate's content and persists it, always producing and writing a
// new version regardless of whether candidate's content differs from
// prev's. Callers that want to detect and skip a spurious update
// themselves can call said.VerifyUnchanged before calling Update.
func (r *Versioned[T]) Update(ctx context.Context, prev *T, candidate *T) (*T, error) {
	nextAny, err := said.Increment(prev)
	if err != nil {
		return nil, err
	}
	next := nextAny.(*T)

	if err := copyNonRoleFields(candidate, next, r.desc); err != nil {
		return nil, err
	}

	digest, err := said.Derive(next)
	if err != nil {
		return nil, err
	}
	if err := storable.SetSaid(next, digest); err != nil {
		return nil, err
	}

	return r.Insert(ctx, next)
}

// copyNonRoleFields overwrites next's non-role (non said/prefix/previous/
// version/created_at) fields with candidate's, by merging each record's
// JSON representation on every key the descriptor doesn't mark as a role
// field.
func copyNonRoleFields(candidate, next any, d *storable.Descriptor) error {
	candidateJSON, err := storable.CanonicalJSON(candidate)
	if err != nil {
		return vserr.SerializationError("repository: serialize candidate", err)
	}
	nextJSON, err := storable.CanonicalJSON(next)
	if err != nil {
		return vserr.SerializationError("repository: serialize next", err)
	}

	var candidateMap, nextMap map[string]json.RawMessage
	if err := json.Unmarshal(candidateJSON, &candidateMap); err != nil {
		return vserr.SerializationError("repository: decode candidate", err)
	}
	if err := json.Unmarshal(nextJSON, &nextMap); err != nil {
		return vserr.SerializationError("repository: decode next", err)
	}

	for key, val := range candidateMap {
		if d.RoleJSONKeys[key] {
			continue
		}
		nextMap[key] = val
	}

	merged, err := json.Marshal(nextMap)
	if err != nil {
		return vserr.SerializationError("repository: encode merged record", err)
	}
	if err := json.Unmarshal(merged, next); err != nil {
		return vserr.SerializationError("repository: decode merged record", err)
	}
	return nil
}

// Insert checks v's said against its content (an InvalidSaid error if they
// differ) and then persists v as-is. Its prefix/previous/version linkage to
// earlier versions is not checked.
func (r *Versioned[T]) Insert(ctx context.Context, v *T) (*T, error) {
	if err := said.Verify(v); err != nil {
		return nil, err
	}
	row, err := recordToRow(v, r.desc)
	if err != nil {
		return nil, err
	}
	if err := r.conn.RunInsert(ctx, r.table, row); err != nil {
		return nil, vserr.StorageError("repository: insert", err)
	}
	return v, nil
}

// GetBySaid retrieves the exact version with the given said.
func (r *Versioned[T]) GetBySaid(ctx context.Context, saidValue string) (*T, error) {
	q := query.New[T]().Where(query.Eq("said", query.Text(saidValue)))
	rows, err := r.conn.RunQuery(ctx, r.table, q)
	if err != nil {
		return nil, vserr.StorageError("repository: get_by_said", err)
	}
	if len(rows) == 0 {
		return nil, vserr.NotFoundError(fmt.Sprintf("repository: no record with said %q", saidValue))
	}
	return rowToRecord[T](rows[0], r.desc)
}

// GetLatest retrieves the highest-version record in the lineage identified
// by prefix.
func (r *Versioned[T]) GetLatest(ctx context.Context, prefix string) (*T, error) {
	q := query.New[T]().
		Where(query.Eq("prefix", query.Text(prefix))).
		OrderBy("version", query.Desc).
		Limit(1)
	rows, err := r.conn.RunQuery(ctx, r.table, q)
	if err != nil {
		return nil, vserr.StorageError("repository: get_latest", err)
	}
	if len(rows) == 0 {
		return nil, vserr.NotFoundError(fmt.Sprintf("repository: no lineage with prefix %q", prefix))
	}
	return rowToRecord[T](rows[0], r.desc)
}

// GetHistory retrieves every version in the lineage identified by prefix,
// oldest first.
func (r *Versioned[T]) GetHistory(ctx context.Context, prefix string) ([]*T, error) {
	q := query.New[T]().
		Where(query.Eq("prefix", query.Text(prefix))).
		OrderBy("version", query.Asc)
	rows, err := r.conn.RunQuery(ctx, r.table, q)
	if err != nil {
		return nil, vserr.StorageError("repository: get_history", err)
	}
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		rec, err := rowToRecord[T](row, r.desc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Exists reports whether any version exists for the given prefix.
func (r *Versioned[T]) Exists(ctx context.Context, prefix string) (bool, error) {
	q := query.New[T]().Where(query.Eq("prefix", query.Text(prefix))).Limit(1)
	rows, err := r.conn.RunQuery(ctx, r.table, q)
	if err != nil {
		return false, vserr.StorageError("repository: exists", err)
	}
	return len(rows) > 0, nil
}
