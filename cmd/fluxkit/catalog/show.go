// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fluxkit/cmd/fluxkit/cli"
	"github.com/bureau-foundation/fluxkit/lib/catalog"
	"github.com/bureau-foundation/fluxkit/lib/config"
	"github.com/bureau-foundation/fluxkit/lib/flux"
)

func showCommand() *cli.Command {
	var (
		jsonOut cli.JSONOutput
		dbPath  string
	)

	return &cli.Command{
		Name:    "show",
		Summary: "Show one indexed capture",
		Usage:   "fluxkit catalog show [flags] <id>",
		Flags: func() *pflag.FlagSet {
			cfg := config.Active()
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			flagSet.StringVar(&dbPath, "db", cfg.Catalog.Path, "catalog database file")
			jsonOut.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("show takes one capture ID, got %d arguments", len(args))
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
			entry, err := cat.Get(ctx, id)
			if err != nil {
				return err
			}

			if emitted, err := jsonOut.EmitJSON(resultFromEntry(entry)); emitted || err != nil {
				return err
			}
			printEntry(os.Stdout, entry)
			return nil
		},
	}
}

func printEntry(w io.Writer, entry catalog.Entry) {
	fmt.Fprintf(w, "capture:    %s (%s)\n",
		flux.FormatRef(entry.ContentID), flux.FormatID(entry.ContentID))
	fmt.Fprintf(w, "path:       %s\n", entry.Path)
	fmt.Fprintf(w, "geometry:   %d cylinders, %d heads\n", entry.Cylinders, entry.Heads)
	fmt.Fprintf(w, "encoding:   %s\n", entry.Encoding)
	if entry.Scheme != "" {
		fmt.Fprintf(w, "scheme:     %s (%d%% confidence)\n", entry.Scheme, entry.Confidence)
	} else {
		fmt.Fprintf(w, "scheme:     none detected\n")
	}
	fmt.Fprintf(w, "weak bits:  %d\n", entry.WeakBits)
	fmt.Fprintf(w, "artifacts:  %d\n", entry.Artifacts)
	if !entry.AnalyzedAt.IsZero() {
		fmt.Fprintf(w, "analyzed:   %s\n", entry.AnalyzedAt.UTC().Format(time.RFC3339))
	}
}
