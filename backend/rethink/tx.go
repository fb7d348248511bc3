package rethink

import (
	"context"
	"fmt"

	"github.com/vstorage-dev/vstorage/query"
)

// Begin returns the same Conn unchanged: RethinkDB has no multi-statement
// transaction primitive to bind to, so the document backend's "transaction"
// is a pass-through. Each write inside the block remains independently
// atomic at the document level, which is the same guarantee RethinkDB gives
// outside of one.
func (c *Conn) Begin(ctx context.Context) (query.TransactionExecutor, error) {
	return c, nil
}

// Commit is a no-op; see Begin.
func (c *Conn) Commit(ctx context.Context) error { return nil }

// Rollback is a no-op; see Begin. Writes already issued before a Rollback
// call are not undone.
func (c *Conn) Rollback(ctx context.Context) error { return nil }

// AdvisoryLock is unsupported by the document backend: RethinkDB has no
// session-independent advisory lock primitive.
func (c *Conn) AdvisoryLock(ctx context.Context, key int64) error {
	return fmt.Errorf("rethink: advisory locks are not supported by the document backend")
}
