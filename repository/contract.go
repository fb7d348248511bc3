package repository

import (
	"context"

	"github.com/vstorage-dev/vstorage/query"
)

// RepositoryConnection is what a backend package hands back after opening a
// pool: the query algebra's executor plus lifecycle hooks shared by every
// record type stored through it.
type RepositoryConnection interface {
	query.TransactionExecutor
	// Initialize prepares the backend's schema for the given table: both
	// backends create the table if it is absent and, for versioned types,
	// a prefix index.
	Initialize(ctx context.Context, table string, descriptor any) error
	Close() error
}

// rowToRecord and recordToRow are implemented in codec.go, keeping this file
// focused on the connection contract.
