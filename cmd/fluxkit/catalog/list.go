// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fluxkit/cmd/fluxkit/cli"
	"github.com/bureau-foundation/fluxkit/lib/catalog"
	"github.com/bureau-foundation/fluxkit/lib/config"
	"github.com/bureau-foundation/fluxkit/lib/flux"
)

type entryResult struct {
	Ref        string `json:"ref"`
	ID         string `json:"id"`
	Path       string `json:"path"`
	Cylinders  int    `json:"cylinders"`
	Heads      int    `json:"heads"`
	Encoding   string `json:"encoding"`
	Scheme     string `json:"scheme,omitempty"`
	Confidence int    `json:"confidence,omitempty"`
	WeakBits   int    `json:"weak_bits"`
	Artifacts  int    `json:"artifacts"`
	AnalyzedAt string `json:"analyzed_at,omitempty"`
}

func resultFromEntry(entry catalog.Entry) entryResult {
	res := entryResult{
		Ref:        flux.FormatRef(entry.ContentID),
		ID:         flux.FormatID(entry.ContentID),
		Path:       entry.Path,
		Cylinders:  entry.Cylinders,
		Heads:      entry.Heads,
		Encoding:   entry.Encoding.String(),
		Scheme:     entry.Scheme,
		Confidence: entry.Confidence,
		WeakBits:   entry.WeakBits,
		Artifacts:  entry.Artifacts,
	}
	if !entry.AnalyzedAt.IsZero() {
		res.AnalyzedAt = entry.AnalyzedAt.UTC().Format(time.RFC3339)
	}
	return res
}

func listCommand() *cli.Command {
	var (
		jsonOut      cli.JSONOutput
		dbPath       string
		scheme       string
		encodingName string
		limit        int
	)

	return &cli.Command{
		Name:    "list",
		Summary: "List indexed captures",
		Usage:   "fluxkit catalog list [flags]",
		Flags: func() *pflag.FlagSet {
			cfg := config.Active()
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.StringVar(&dbPath, "db", cfg.Catalog.Path, "catalog database file")
			flagSet.StringVar(&scheme, "scheme", "", "only captures with this protection scheme")
			flagSet.StringVar(&encodingName, "encoding", "", "only captures with this encoding: mfm, fm, or gcr")
			flagSet.IntVar(&limit, "limit", 100, "maximum entries to list")
			jsonOut.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("list takes no arguments, got %d", len(args))
			}
			if _, err := config.Load(); err != nil {
				return err
			}
			filter := catalog.Filter{Scheme: scheme, Limit: limit}
			if encodingName != "" {
				encoding, err := flux.ParseEncoding(encodingName)
				if err != nil {
					return err
				}
				filter.Encoding = &encoding
			}

			cat, err := openCatalog(dbPath)
			if err != nil {
				return err
			}
			defer cat.Close()
			entries, err := cat.List(context.Background(), filter)
			if err != nil {
				return err
			}

			results := make([]entryResult, 0, len(entries))
			for _, entry := range entries {
				results = append(results, resultFromEntry(entry))
			}
			if emitted, err := jsonOut.EmitJSON(results); emitted || err != nil {
				return err
			}
			printEntries(os.Stdout, entries)
			return nil
		},
	}
}

func printEntries(w io.Writer, entries []catalog.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no captures indexed")
		return
	}
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "REF\tENCODING\tSCHEME\tWEAK\tARTIFACTS\tANALYZED\tPATH\n")
	for _, entry := range entries {
		scheme := entry.Scheme
		if scheme == "" {
			scheme = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			flux.FormatRef(entry.ContentID), entry.Encoding, scheme,
			entry.WeakBits, entry.Artifacts,
			entry.AnalyzedAt.UTC().Format("2006-01-02 15:04"), entry.Path)
	}
	tw.Flush()
}
