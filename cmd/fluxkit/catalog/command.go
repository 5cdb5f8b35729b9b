// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/bureau-foundation/fluxkit/cmd/fluxkit/cli"
	"github.com/bureau-foundation/fluxkit/lib/catalog"
	"github.com/bureau-foundation/fluxkit/lib/flux"
)

// Command returns the "catalog" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "catalog",
		Summary: "Index analyzed captures in a local database",
		Description: `A local SQLite index of analyzed captures. "add" runs protection
analysis on a container and records the result; the other verbs
query and prune the index. The database lives at the configured
catalog path unless --db points elsewhere.`,
		Subcommands: []*cli.Command{
			addCommand(),
			listCommand(),
			showCommand(),
			rmCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Analyze and index a capture",
				Command:     "fluxkit catalog add disk1-t07h0.fluxcap",
			},
			{
				Description: "List indexed captures with a detected scheme",
				Command:     "fluxkit catalog list --scheme Copylock",
			},
			{
				Description: "Show one capture by ID prefix",
				Command:     "fluxkit catalog show cap-a1b2c3",
			},
		},
	}
}

// openCatalog opens the capture index at path, creating it on first
// use.
func openCatalog(path string) (*catalog.Catalog, error) {
	return catalog.Open(catalog.Config{
		Path:   path,
		Logger: cli.NewLogger(),
	})
}

// resolveRefLimit bounds the prefix scan; prefix resolution reads the
// whole index.
const resolveRefLimit = 100000

// resolveRef turns a user-supplied capture reference into a content
// ID. Full 64-digit IDs parse directly; anything shorter is treated
// as a hex prefix, with or without the cap- display prefix, and must
// match exactly one indexed capture.
func resolveRef(ctx context.Context, cat *catalog.Catalog, ref string) (flux.ID, error) {
	if id, err := flux.ParseID(ref); err == nil {
		return id, nil
	}
	prefix := strings.TrimPrefix(strings.ToLower(ref), "cap-")
	if prefix == "" || strings.Trim(prefix, "0123456789abcdef") != "" {
		return flux.ID{}, fmt.Errorf("%q is not a capture ID or ID prefix", ref)
	}

	entries, err := cat.List(ctx, catalog.Filter{Limit: resolveRefLimit})
	if err != nil {
		return flux.ID{}, err
	}
	var matches []flux.ID
	for _, entry := range entries {
		if strings.HasPrefix(flux.FormatID(entry.ContentID), prefix) {
			matches = append(matches, entry.ContentID)
		}
	}
	switch len(matches) {
	case 0:
		return flux.ID{}, fmt.Errorf("no indexed capture matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		return flux.ID{}, fmt.Errorf("%q matches %d captures; give more digits", ref, len(matches))
	}
}
