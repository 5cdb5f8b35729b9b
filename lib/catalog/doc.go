// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog maintains a SQLite index of analyzed flux captures.
//
// Each row records where a capture container lives on disk, its
// content ID, the geometry and encoding the analysis settled on, and
// the protection summary: scheme, classification confidence, weak bit
// and artifact totals. Entries are keyed by content ID, so
// re-analyzing a capture replaces its row instead of accumulating
// duplicates.
//
// The catalog is safe for concurrent use from multiple goroutines and
// multiple processes. Connections run in WAL mode with a busy
// timeout, so commands sharing one catalog file (an analysis in one
// terminal, a list in another) wait on contention instead of failing.
//
// A Path of ":memory:" requires PoolSize 1: each in-memory connection
// is an independent database, so a larger pool would see different
// data per connection.
package catalog
