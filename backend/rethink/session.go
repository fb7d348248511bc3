// Package rethink is the document backend: a query.TransactionExecutor and
// repository.RepositoryConnection implementation over a RethinkDB session,
// compiling the query algebra into ReQL.
package rethink

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	r "gopkg.in/rethinkdb/rethinkdb-go.v6"

	"github.com/vstorage-dev/vstorage/repository"
	"github.com/vstorage-dev/vstorage/storable"
)

// Conn wraps a RethinkDB session scoped to a single logical database.
type Conn struct {
	sess *r.Session
	db   string

	mu    sync.RWMutex
	descs map[string]*storable.Descriptor
}

// Open connects to RethinkDB per cfg and selects database dbName, creating
// it if absent.
func Open(ctx context.Context, cfg repository.ConnectionConfig, dbName string) (*Conn, error) {
	opts := r.ConnectOpts{
		Address:      cfg.Address,
		InitialCap:   5,
		MaxOpen:      cfg.MaxOpen,
		Timeout:      cfg.DialTimeout,
		ReadTimeout:  cfg.DialTimeout,
		WriteTimeout: cfg.DialTimeout,
	}
	if cfg.Username != "" {
		opts.Username = cfg.Username
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	sess, err := r.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("rethink: connect: %w", err)
	}

	cur, err := r.DBList().Run(sess)
	if err != nil {
		return nil, fmt.Errorf("rethink: list databases: %w", err)
	}
	var dbs []string
	if err := cur.All(&dbs); err != nil {
		cur.Close()
		return nil, fmt.Errorf("rethink: decode database list: %w", err)
	}
	cur.Close()

	found := false
	for _, name := range dbs {
		if name == dbName {
			found = true
			break
		}
	}
	if !found {
		if _, err := r.DBCreate(dbName).RunWrite(sess); err != nil {
			return nil, fmt.Errorf("rethink: create database %q: %w", dbName, err)
		}
	}

	return &Conn{sess: sess, db: dbName, descs: map[string]*storable.Descriptor{}}, nil
}

// Inner returns the underlying RethinkDB session for callers that need raw
// access without the query algebra.
func (c *Conn) Inner() *r.Session { return c.sess }

// Close shuts the session down.
func (c *Conn) Close() error {
	if c.sess == nil {
		return nil
	}
	return c.sess.Close()
}

func (c *Conn) database() r.Term { return r.DB(c.db) }

func (c *Conn) descriptor(table string) (*storable.Descriptor, bool) {
	c.mu.RLock()
	desc, ok := c.descs[table]
	c.mu.RUnlock()
	return desc, ok
}

// Initialize creates table (if absent) and, for versioned record types, a
// secondary index on prefix. RunQuery evaluates filters with Filter and does
// not use this index.
func (c *Conn) Initialize(ctx context.Context, table string, descriptor any) error {
	desc, ok := descriptor.(*storable.Descriptor)
	if !ok {
		return fmt.Errorf("rethink: Initialize requires a *storable.Descriptor")
	}
	c.mu.Lock()
	c.descs[table] = desc
	c.mu.Unlock()

	if _, err := c.database().TableCreate(table, r.TableCreateOpts{PrimaryKey: "said"}).RunWrite(c.sess); err != nil && !alreadyExists(err) {
		return fmt.Errorf("rethink: create table %q: %w", table, err)
	}
	if desc.IsVersionedRec {
		if _, err := c.database().Table(table).IndexCreate("prefix").RunWrite(c.sess); err != nil && !alreadyExists(err) {
			return fmt.Errorf("rethink: create prefix index on %q: %w", table, err)
		}
		if err := c.database().Table(table).IndexWait("prefix").Exec(c.sess); err != nil {
			return fmt.Errorf("rethink: wait for prefix index on %q: %w", table, err)
		}
	}
	log.Printf("rethink: table ready name=%s columns=%d versioned=%v", table, desc.ColumnCount(), desc.IsVersionedRec)
	return nil
}

func alreadyExists(err error) bool {
	return err != nil && strings.Contains(err.Error(), "already exists")
}
