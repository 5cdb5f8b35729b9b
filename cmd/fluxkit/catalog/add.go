// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fluxkit/cmd/fluxkit/cli"
	"github.com/bureau-foundation/fluxkit/lib/catalog"
	"github.com/bureau-foundation/fluxkit/lib/config"
	"github.com/bureau-foundation/fluxkit/lib/flux"
	"github.com/bureau-foundation/fluxkit/lib/fluxstore"
	"github.com/bureau-foundation/fluxkit/lib/protection"
)

func addCommand() *cli.Command {
	var (
		jsonOut cli.JSONOutput
		dbPath  string
	)

	return &cli.Command{
		Name:    "add",
		Summary: "Analyze a capture and index the result",
		Description: `Run protection analysis on a capture container and store the
summary in the catalog. The platform is classified from the data.
Entries are keyed on the capture content ID, so re-adding the same
capture replaces its older row.`,
		Usage: "fluxkit catalog add [flags] <capture>",
		Flags: func() *pflag.FlagSet {
			cfg := config.Active()
			flagSet := pflag.NewFlagSet("add", pflag.ContinueOnError)
			flagSet.StringVar(&dbPath, "db", cfg.Catalog.Path, "catalog database file")
			jsonOut.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("add takes one capture container, got %d arguments", len(args))
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			capture, err := fluxstore.ReadFile(path)
			if err != nil {
				return err
			}

			opts := protection.DefaultOptions()
			if cfg.Analysis.WeakBitThreshold > 0 {
				opts.WeakBitThreshold = cfg.Analysis.WeakBitThreshold
			}
			if cfg.Analysis.TimingTolerancePct > 0 {
				opts.TimingTolerancePct = cfg.Analysis.TimingTolerancePct
			}
			res, err := protection.NewAnalyzer(opts).AnalyzeCapture(capture, nil)
			if err != nil {
				return err
			}
			entry := entryFromAnalysis(path, capture, res)

			cat, err := openCatalog(dbPath)
			if err != nil {
				return err
			}
			defer cat.Close()
			if err := cat.Put(context.Background(), entry); err != nil {
				return err
			}

			if emitted, err := jsonOut.EmitJSON(resultFromEntry(entry)); emitted || err != nil {
				return err
			}
			if entry.Scheme != "" {
				fmt.Printf("indexed %s: %s (%d%% confidence), %d artifacts\n",
					flux.FormatRef(entry.ContentID), entry.Scheme, entry.Confidence, entry.Artifacts)
			} else {
				fmt.Printf("indexed %s: no protection detected, %d artifacts\n",
					flux.FormatRef(entry.ContentID), entry.Artifacts)
			}
			return nil
		},
	}
}

// entryFromAnalysis builds the index entry for one analyzed capture.
func entryFromAnalysis(path string, capture *flux.Capture, res *protection.CaptureAnalysis) catalog.Entry {
	weakBits := 0
	for _, a := range res.Track.Artifacts {
		if a.Kind == protection.WeakBits {
			weakBits += a.WeakBitCount
		}
	}
	return catalog.Entry{
		Path:       path,
		ContentID:  capture.ContentID(),
		Cylinders:  capture.Cylinder + 1,
		Heads:      capture.Head + 1,
		Encoding:   capture.Encoding,
		Scheme:     res.Scheme,
		Confidence: res.Confidence,
		WeakBits:   weakBits,
		Artifacts:  len(res.Track.Artifacts),
	}
}
