package pg

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/vstorage-dev/vstorage/query"
	"github.com/vstorage-dev/vstorage/storable"
	"github.com/vstorage-dev/vstorage/vserr"
)

// queryable abstracts over *pgxpool.Pool and pgx.Tx so Conn and tx share
// the same query/exec methods.
type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
}

type descriptorTable struct {
	mu    sync.RWMutex
	descs map[string]*storable.Descriptor
}

func newDescriptorTable() *descriptorTable {
	return &descriptorTable{descs: map[string]*storable.Descriptor{}}
}

func (d *descriptorTable) put(table string, desc *storable.Descriptor) {
	d.mu.Lock()
	d.descs[table] = desc
	d.mu.Unlock()
}

func (d *descriptorTable) get(table string) (*storable.Descriptor, bool) {
	d.mu.RLock()
	desc, ok := d.descs[table]
	d.mu.RUnlock()
	return desc, ok
}

// Initialize creates table (if absent) with a column per descriptor entry,
// and records the descriptor for later bind/scan type direction.
func (c *Conn) Initialize(ctx context.Context, table string, descriptor any) error {
	desc, ok := descriptor.(*storable.Descriptor)
	if !ok {
		return fmt.Errorf("pg: Initialize requires a *storable.Descriptor")
	}
	c.tables().put(table, desc)

	var cols []string
	for i, col := range desc.Columns {
		cols = append(cols, fmt.Sprintf("%s %s", col, pgColumnType(desc.ColumnTypes[i])))
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s, PRIMARY KEY (said))", table, strings.Join(cols, ", "))
	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return vserr.StorageError("pg: create table", err)
	}
	log.Printf("pg: table ready name=%s columns=%d versioned=%v", table, desc.ColumnCount(), desc.IsVersionedRec)
	if desc.IsVersionedRec {
		idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_prefix_version_idx ON %s (prefix, version)", table, table)
		if _, err := c.pool.Exec(ctx, idx); err != nil {
			return vserr.StorageError("pg: create lineage index", err)
		}
	}
	return nil
}

func pgColumnType(colType string) string {
	switch colType {
	case "text":
		return "text"
	case "datetime":
		return "timestamptz"
	case "bigint":
		return "bigint"
	case "integer":
		return "integer"
	case "boolean":
		return "boolean"
	case "json":
		return "jsonb"
	default:
		return "text"
	}
}

// tables returns the descriptor table shared by a Conn and any transaction
// Conns derived from it via Begin.
func (c *Conn) tables() *descriptorTable {
	return c.tablesVal
}

func (c *Conn) RunQuery(ctx context.Context, table string, q any) ([]map[string]any, error) {
	shape, ok := q.(query.Shape)
	if !ok {
		return nil, fmt.Errorf("pg: RunQuery requires a query.Shape")
	}
	desc, ok := c.tables().get(table)
	if !ok {
		return nil, fmt.Errorf("pg: table %q not initialized", table)
	}
	compiled := compileSelect(table, shape)
	return c.runSelect(ctx, c.exec(), compiled, desc)
}

func (c *Conn) runSelect(ctx context.Context, q queryable, compiled compiledSelect, desc *storable.Descriptor) ([]map[string]any, error) {
	rows, err := q.Query(ctx, compiled.sql, compiled.args...)
	if err != nil {
		return nil, vserr.StorageError("pg: select", err)
	}
	defer rows.Close()

	colTypeByName := make(map[string]string, len(desc.Columns))
	for i, col := range desc.Columns {
		colTypeByName[col] = desc.ColumnTypes[i]
	}

	var out []map[string]any
	for rows.Next() {
		fds := rows.FieldDescriptions()
		vals, err := rows.Values()
		if err != nil {
			return nil, vserr.StorageError("pg: scan row", err)
		}
		row := make(map[string]any, len(vals))
		for i, fd := range fds {
			name := string(fd.Name)
			colType := colTypeByName[name]
			scanned, err := scanColumn(colType, vals[i])
			if err != nil {
				return nil, vserr.StorageError("pg: convert column "+name, err)
			}
			if scanned != nil {
				row[name] = scanned
			}
		}
		out = append(out, row)
	}
	if rows.Err() != nil {
		return nil, vserr.StorageError("pg: iterate rows", rows.Err())
	}
	return out, nil
}

func (c *Conn) RunInsert(ctx context.Context, table string, row map[string]any) error {
	desc, ok := c.tables().get(table)
	if !ok {
		return fmt.Errorf("pg: table %q not initialized", table)
	}
	args := make([]any, len(desc.Columns))
	for i, col := range desc.Columns {
		bound, err := bindColumn(desc.ColumnTypes[i], row[col])
		if err != nil {
			return vserr.StorageError("pg: bind column "+col, err)
		}
		args[i] = bound
	}
	if _, err := c.exec().Exec(ctx, desc.InsertSQL, args...); err != nil {
		return vserr.StorageError("pg: insert", err)
	}
	return nil
}

func (c *Conn) RunDelete(ctx context.Context, table string, d any) (int64, error) {
	shape, ok := d.(query.DeleteShape)
	if !ok {
		return 0, fmt.Errorf("pg: RunDelete requires a query.DeleteShape")
	}
	compiled := compileDelete(table, shape)
	tag, err := c.exec().Exec(ctx, compiled.sql, compiled.args...)
	if err != nil {
		return 0, vserr.StorageError("pg: delete", err)
	}
	return tag.RowsAffected(), nil
}

// exec returns the active transaction's queryable if one is open, or the
// pool otherwise.
func (c *Conn) exec() queryable {
	if c.tx != nil {
		return c.tx
	}
	return c.pool
}
