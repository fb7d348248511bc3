package repository

import (
	"context"
	"fmt"

	"github.com/vstorage-dev/vstorage/query"
	"github.com/vstorage-dev/vstorage/said"
	"github.com/vstorage-dev/vstorage/storable"
	"github.com/vstorage-dev/vstorage/vserr"
)

// Unversioned synthesizes the create/insert/get_by_said contract for an
// unversioned record type T, backed by any query.QueryExecutor.
type Unversioned[T any] struct {
	conn  query.QueryExecutor
	table string
	desc  *storable.Descriptor
}

// NewUnversioned builds an Unversioned[T] repository. T must already be
// registered via storable.Register.
func NewUnversioned[T any](conn query.QueryExecutor, table string) (*Unversioned[T], error) {
	desc, ok := storable.DescriptorForType[T]()
	if !ok {
		return nil, fmt.Errorf("repository: %T is not registered with storable.Register", *new(T))
	}
	if desc.IsVersionedRec {
		return nil, fmt.Errorf("repository: %T is versioned; use NewVersioned", *new(T))
	}
	return &Unversioned[T]{conn: conn, table: table, desc: desc}, nil
}

// Create derives v's said, persists the record, and returns the stored
// value (with said populated).
func (r *Unversioned[T]) Create(ctx context.Context, v *T) (*T, error) {
	digest, err := said.Derive(v)
	if err != nil {
		return nil, err
	}
	if err := storable.SetSaid(v, digest); err != nil {
		return nil, err
	}
	return r.Insert(ctx, v)
}

// Insert checks v's said against its content (an InvalidSaid error if they
// differ) and then persists v as-is.
// Callers that built v through Create need not call Insert separately;
// Insert exists for replaying already-derived records (e.g. restoring from
// a backup, or cross-backend migration).
func (r *Unversioned[T]) Insert(ctx context.Context, v *T) (*T, error) {
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

// GetBySaid retrieves the record with the given said, or a NotFound error.
func (r *Unversioned[T]) GetBySaid(ctx context.Context, saidValue string) (*T, error) {
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
