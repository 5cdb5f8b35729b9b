// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/fluxkit/lib/clock"
	"github.com/bureau-foundation/fluxkit/lib/flux"
)

// ErrUnknownCapture is returned by Get and Delete when no catalog row
// matches the requested content ID.
var ErrUnknownCapture = errors.New("catalog: unknown capture")

// Entry is one analyzed capture.
type Entry struct {
	// ID is the catalog row ID, assigned by the database. Zero on
	// entries that have not been stored yet.
	ID int64

	// Path is where the capture container lives on disk.
	Path string

	// ContentID is the capture's content hash. Entries are keyed on
	// it: storing an entry whose content ID already exists replaces
	// the older row.
	ContentID flux.ID

	// Cylinders and Heads give the analyzed geometry.
	Cylinders int
	Heads     int

	// Encoding is the modulation the analysis decoded.
	Encoding flux.Encoding

	// Scheme is the detected protection scheme name, empty when the
	// capture looks unprotected.
	Scheme string

	// Confidence is the protection classification confidence, 0-100.
	Confidence int

	// WeakBits is the weak bit total across all tracks.
	WeakBits int

	// Artifacts is the protection artifact total across all tracks.
	Artifacts int

	// AnalyzedAt is when the analysis ran. Put fills it from the
	// catalog's clock when zero.
	AnalyzedAt time.Time
}

// Filter narrows List results. Zero-valued fields are not applied.
type Filter struct {
	Scheme   string         // Exact match on protection scheme.
	Encoding *flux.Encoding // Match on encoding.
	Limit    int            // Maximum entries to return (default 100).
}

// Config holds the parameters for opening a catalog.
type Config struct {
	// Path is the filesystem path of the SQLite database file,
	// created on first open. Required.
	Path string

	// PoolSize is the connection pool size. Defaults to the CPU
	// count, minimum 4, if zero or negative.
	PoolSize int

	// Logger receives pool lifecycle messages. Defaults to a
	// discarding logger.
	Logger *slog.Logger

	// Clock supplies AnalyzedAt for entries stored without one.
	// Defaults to the real clock.
	Clock clock.Clock
}

// Catalog is a SQLite-backed index of analyzed captures. Safe for
// concurrent use.
type Catalog struct {
	pool  *pool
	clock clock.Clock
}

const schema = `
	CREATE TABLE IF NOT EXISTS captures (
		id          INTEGER PRIMARY KEY,
		path        TEXT NOT NULL,
		content_id  BLOB NOT NULL UNIQUE,
		cylinders   INTEGER NOT NULL,
		heads       INTEGER NOT NULL,
		encoding    TEXT NOT NULL,
		scheme      TEXT NOT NULL DEFAULT '',
		confidence  INTEGER NOT NULL DEFAULT 0,
		weak_bits   INTEGER NOT NULL DEFAULT 0,
		artifacts   INTEGER NOT NULL DEFAULT 0,
		analyzed_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_captures_scheme ON captures(scheme);
	CREATE INDEX IF NOT EXISTS idx_captures_encoding ON captures(encoding);
	CREATE INDEX IF NOT EXISTS idx_captures_analyzed ON captures(analyzed_at);
`

// Open opens the catalog database, creating the file and schema if
// they do not exist.
func Open(cfg Config) (*Catalog, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("catalog: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	pool, err := openPool(cfg.Path, cfg.PoolSize, logger, func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteScript(conn, schema, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	return &Catalog{pool: pool, clock: clk}, nil
}

// Close closes the connection pool. Blocks until all borrowed
// connections are returned.
func (c *Catalog) Close() error {
	if err := c.pool.close(); err != nil {
		return fmt.Errorf("catalog: close: %w", err)
	}
	return nil
}

// Put stores an entry, replacing any existing entry with the same
// content ID.
func (c *Catalog) Put(ctx context.Context, entry Entry) error {
	if entry.Path == "" {
		return fmt.Errorf("catalog: put: Path is required")
	}
	if entry.ContentID == (flux.ID{}) {
		return fmt.Errorf("catalog: put: ContentID is required")
	}
	switch entry.Encoding {
	case flux.MFM, flux.FM, flux.GCR:
	default:
		return fmt.Errorf("catalog: put: invalid encoding %s", entry.Encoding)
	}

	analyzedAt := entry.AnalyzedAt
	if analyzedAt.IsZero() {
		analyzedAt = c.clock.Now()
	}

	conn, err := c.pool.take(ctx)
	if err != nil {
		return fmt.Errorf("catalog: put: %w", err)
	}
	defer c.pool.put(conn)

	err = sqlitex.Execute(conn, `INSERT INTO captures
		(path, content_id, cylinders, heads, encoding, scheme,
		 confidence, weak_bits, artifacts, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_id) DO UPDATE SET
			path = excluded.path,
			cylinders = excluded.cylinders,
			heads = excluded.heads,
			encoding = excluded.encoding,
			scheme = excluded.scheme,
			confidence = excluded.confidence,
			weak_bits = excluded.weak_bits,
			artifacts = excluded.artifacts,
			analyzed_at = excluded.analyzed_at`,
		&sqlitex.ExecOptions{
			Args: []any{
				entry.Path,
				entry.ContentID[:],
				entry.Cylinders,
				entry.Heads,
				entry.Encoding.String(),
				entry.Scheme,
				entry.Confidence,
				entry.WeakBits,
				entry.Artifacts,
				analyzedAt.UnixNano(),
			},
		})
	if err != nil {
		return fmt.Errorf("catalog: put %s: %w", flux.FormatRef(entry.ContentID), err)
	}
	return nil
}

// Get returns the entry for a content ID. Returns ErrUnknownCapture
// when the capture has never been cataloged.
func (c *Catalog) Get(ctx context.Context, contentID flux.ID) (Entry, error) {
	conn, err := c.pool.take(ctx)
	if err != nil {
		return Entry{}, fmt.Errorf("catalog: get: %w", err)
	}
	defer c.pool.put(conn)

	var entry Entry
	found := false
	err = sqlitex.Execute(conn, `SELECT id, path, content_id, cylinders,
		heads, encoding, scheme, confidence, weak_bits, artifacts,
		analyzed_at FROM captures WHERE content_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{contentID[:]},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				scanned, err := scanEntry(stmt)
				if err != nil {
					return err
				}
				entry = scanned
				found = true
				return nil
			},
		})
	if err != nil {
		return Entry{}, fmt.Errorf("catalog: get %s: %w", flux.FormatRef(contentID), err)
	}
	if !found {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownCapture, flux.FormatRef(contentID))
	}
	return entry, nil
}

// List returns entries matching the filter, newest analysis first.
func (c *Catalog) List(ctx context.Context, filter Filter) ([]Entry, error) {
	conn, err := c.pool.take(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer c.pool.put(conn)

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	var conditions []string
	var args []any

	if filter.Scheme != "" {
		conditions = append(conditions, "scheme = ?")
		args = append(args, filter.Scheme)
	}
	if filter.Encoding != nil {
		conditions = append(conditions, "encoding = ?")
		args = append(args, filter.Encoding.String())
	}

	query := "SELECT id, path, content_id, cylinders, heads, encoding, " +
		"scheme, confidence, weak_bits, artifacts, analyzed_at FROM captures"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY analyzed_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	var entries []Entry
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			entry, err := scanEntry(stmt)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	return entries, nil
}

// Delete removes the entry for a content ID. Returns
// ErrUnknownCapture when no entry matches.
func (c *Catalog) Delete(ctx context.Context, contentID flux.ID) error {
	conn, err := c.pool.take(ctx)
	if err != nil {
		return fmt.Errorf("catalog: delete: %w", err)
	}
	defer c.pool.put(conn)

	err = sqlitex.Execute(conn, "DELETE FROM captures WHERE content_id = ?",
		&sqlitex.ExecOptions{
			Args: []any{contentID[:]},
		})
	if err != nil {
		return fmt.Errorf("catalog: delete %s: %w", flux.FormatRef(contentID), err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownCapture, flux.FormatRef(contentID))
	}
	return nil
}

// scanEntry reads one captures row. Column order matches the SELECT
// lists in Get and List.
func scanEntry(stmt *sqlite.Stmt) (Entry, error) {
	var entry Entry

	entry.ID = stmt.ColumnInt64(0)
	entry.Path = stmt.ColumnText(1)
	stmt.ColumnBytes(2, entry.ContentID[:])

	entry.Cylinders = stmt.ColumnInt(3)
	entry.Heads = stmt.ColumnInt(4)

	encoding, err := flux.ParseEncoding(stmt.ColumnText(5))
	if err != nil {
		return entry, fmt.Errorf("row %d: %w", entry.ID, err)
	}
	entry.Encoding = encoding

	entry.Scheme = stmt.ColumnText(6)
	entry.Confidence = stmt.ColumnInt(7)
	entry.WeakBits = stmt.ColumnInt(8)
	entry.Artifacts = stmt.ColumnInt(9)
	entry.AnalyzedAt = time.Unix(0, stmt.ColumnInt64(10)).UTC()

	return entry, nil
}
