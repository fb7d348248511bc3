package pg

import (
	"context"
	"fmt"

	"github.com/vstorage-dev/vstorage/query"
	"github.com/vstorage-dev/vstorage/vserr"
)

// Begin starts a transaction and returns a Conn scoped to it. All
// RunQuery/RunInsert/RunDelete calls on the returned Conn run inside the
// transaction until Commit or Rollback.
func (c *Conn) Begin(ctx context.Context) (query.TransactionExecutor, error) {
	if c.tx != nil {
		return nil, fmt.Errorf("pg: nested transactions are not supported")
	}
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, vserr.StorageError("pg: begin transaction", err)
	}
	return &Conn{pool: c.pool, tx: tx, tablesVal: c.tables()}, nil
}

func (c *Conn) Commit(ctx context.Context) error {
	if c.tx == nil {
		return fmt.Errorf("pg: Commit called outside a transaction")
	}
	if err := c.tx.Commit(ctx); err != nil {
		return vserr.StorageError("pg: commit", err)
	}
	return nil
}

func (c *Conn) Rollback(ctx context.Context) error {
	if c.tx == nil {
		return fmt.Errorf("pg: Rollback called outside a transaction")
	}
	if err := c.tx.Rollback(ctx); err != nil {
		return vserr.StorageError("pg: rollback", err)
	}
	return nil
}

// AdvisoryLock acquires a transaction-scoped Postgres advisory lock on key,
// released automatically at Commit or Rollback. It must be called within a
// transaction started by Begin.
func (c *Conn) AdvisoryLock(ctx context.Context, key int64) error {
	if c.tx == nil {
		return fmt.Errorf("pg: AdvisoryLock requires an active transaction")
	}
	if _, err := c.tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", key); err != nil {
		return vserr.StorageError("pg: advisory lock", err)
	}
	return nil
}
