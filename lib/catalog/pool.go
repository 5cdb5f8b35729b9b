// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// pool wraps a sqlitex.Pool with the session pragmas every catalog
// connection needs. Connections are prepared once when the pool
// creates them, not on every take.
type pool struct {
	inner  *sqlitex.Pool
	logger *slog.Logger
}

// openPool opens the database at path with up to size connections.
// onConnect runs on each new connection after the pragmas; the
// catalog uses it for schema creation.
func openPool(path string, size int, logger *slog.Logger, onConnect func(*sqlite.Conn) error) (*pool, error) {
	if size <= 0 {
		size = runtime.NumCPU()
		if size < 4 {
			size = 4
		}
	}

	inner, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize: size,
		PrepareConn: func(conn *sqlite.Conn) error {
			return prepareConnection(conn, onConnect)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	logger.Debug("catalog pool opened", "path", path, "pool_size", size)
	return &pool{inner: inner, logger: logger}, nil
}

// prepareConnection applies the session pragmas to a fresh
// connection. WAL keeps readers unblocked during writes; the busy
// timeout covers writer contention between processes sharing one
// catalog file.
func prepareConnection(conn *sqlite.Conn, onConnect func(*sqlite.Conn) error) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("executing %s: %w", pragma, err)
		}
	}
	if onConnect != nil {
		if err := onConnect(conn); err != nil {
			return fmt.Errorf("preparing connection: %w", err)
		}
	}
	return nil
}

// take borrows a connection, blocking until one is free or the
// context is done.
func (p *pool) take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := p.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("take connection: %w", err)
	}
	return conn, nil
}

// put returns a borrowed connection to the pool. Safe on nil.
func (p *pool) put(conn *sqlite.Conn) {
	if conn == nil {
		return
	}
	p.inner.Put(conn)
}

// close closes all connections. Blocks until borrowed connections are
// returned.
func (p *pool) close() error {
	p.logger.Debug("closing catalog pool")
	return p.inner.Close()
}
