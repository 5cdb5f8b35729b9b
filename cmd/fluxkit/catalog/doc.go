// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog implements the "fluxkit catalog" command group: a
// SQLite index of analyzed captures.
//
// "add" analyzes a capture container and stores the result; "list",
// "show", and "rm" work the index. Captures are referenced by content
// ID, in full or by unique prefix, with or without the cap- display
// prefix.
package catalog
