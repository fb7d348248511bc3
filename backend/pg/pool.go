// Package pg is the relational backend: a query.TransactionExecutor and
// repository.RepositoryConnection implementation over a PostgreSQL
// connection pool.
package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vstorage-dev/vstorage/repository"
)

// Conn wraps a pgx connection pool. When tx is non-nil, every operation
// runs against that transaction instead of the pool directly.
type Conn struct {
	pool *pgxpool.Pool
	tx   pgx.Tx

	tablesVal *descriptorTable
}

// Open builds a pgxpool.Pool from cfg and wraps it.
func Open(ctx context.Context, cfg repository.ConnectionConfig) (*Conn, error) {
	dsn := buildDSN(cfg)
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse pool config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpen)
	poolCfg.ConnConfig.ConnectTimeout = cfg.DialTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: open pool: %w", err)
	}
	return &Conn{pool: pool, tablesVal: newDescriptorTable()}, nil
}

func buildDSN(cfg repository.ConnectionConfig) string {
	dsn := fmt.Sprintf("postgresql://%s/%s?sslmode=disable", cfg.Address, cfg.Database)
	if cfg.Username != "" {
		auth := cfg.Username
		if cfg.Password != "" {
			auth += ":" + cfg.Password
		}
		dsn = fmt.Sprintf("postgresql://%s@%s/%s?sslmode=disable", auth, cfg.Address, cfg.Database)
	}
	return dsn
}

// Inner returns the underlying pgx pool for callers that need raw access
// (schema inspection, health checks) without the query algebra.
func (c *Conn) Inner() *pgxpool.Pool { return c.pool }

// Close shuts the pool down. A Conn obtained from Begin ignores Close;
// callers end its lifecycle with Commit or Rollback instead.
func (c *Conn) Close() error {
	if c.tx != nil {
		return nil
	}
	c.pool.Close()
	return nil
}
