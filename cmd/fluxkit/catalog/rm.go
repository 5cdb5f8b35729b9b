// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fluxkit/cmd/fluxkit/cli"
	"github.com/bureau-foundation/fluxkit/lib/config"
	"github.com/bureau-foundation/fluxkit/lib/flux"
)

func rmCommand() *cli.Command {
	var dbPath string

	return &cli.Command{
		Name:    "rm",
		Summary: "Remove a capture from the index",
		Description: `Remove one capture's catalog row. The capture container itself is
never touched.`,
		Usage: "fluxkit catalog rm [flags] <id>",
		Flags: func() *pflag.FlagSet {
			cfg := config.Active()
			flagSet := pflag.NewFlagSet("rm", pflag.ContinueOnError)
			flagSet.StringVar(&dbPath, "db", cfg.Catalog.Path, "catalog database file")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("rm takes one capture ID, got %d arguments", len(args))
			}
			if _, err := config.Load(); err != nil {
				return err
			}
			cat, err := openCatalog(dbPath)
			if err != nil {
				return err
			}
			defer cat.Close()

			ctx := context.Background()
			id, err := resolveRef(ctx, cat, args[0])
			if err != nil {
				return err
			}
			if err := cat.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Printf("removed %s\n", flux.FormatRef(id))
			return nil
		},
	}
}
