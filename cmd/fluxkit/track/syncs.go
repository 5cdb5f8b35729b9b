// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package track

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fluxkit/cmd/fluxkit/cli"
	"github.com/bureau-foundation/fluxkit/lib/track"
)

type syncsResult struct {
	Pattern string       `json:"pattern"`
	Count   int          `json:"count"`
	Syncs   []syncResult `json:"syncs"`
}

type syncResult struct {
	Offset     int `json:"offset"`
	Shift      int `json:"shift"`
	Confidence int `json:"confidence"`
}

func syncsCommand() *cli.Command {
	var (
		jsonOut cli.JSONOutput
		pattern string
		limit   int
	)

	return &cli.Command{
		Name:    "syncs",
		Summary: "List sync mark positions in a track",
		Description: `Scan decoded track data for a 16-bit sync word and list every hit.

Byte-aligned matches carry full confidence; matches starting mid-byte
lose confidence per shift bit and usually mean the decode lost
framing at some point before them.`,
		Usage: "fluxkit track syncs <input> [flags]",
		Examples: []cli.Example{
			{
				Description: "Find the standard MFM marks",
				Command:     "fluxkit track syncs decoded.fluxcap",
			},
			{
				Description: "Search for an Amiga protection mark",
				Command:     "fluxkit track syncs -p 0x8912 decoded.fluxcap",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("syncs", pflag.ContinueOnError)
			flagSet.StringVarP(&pattern, "pattern", "p", "",
				"sync word to search for, e.g. 0x4489 (default: the encoding's mark)")
			flagSet.IntVar(&limit, "limit", 40, "positions to print (0 for all)")
			jsonOut.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("syncs takes one input file, got %d arguments", len(args))
			}
			data, encoding, err := readInput(args[0])
			if err != nil {
				return err
			}
			word, err := parseSyncWord(pattern, encoding)
			if err != nil {
				return err
			}

			positions := track.FindSyncs(data, word)

			if jsonOut.OutputJSON {
				result := syncsResult{
					Pattern: fmt.Sprintf("%#06x", word),
					Count:   len(positions),
					Syncs:   make([]syncResult, 0, len(positions)),
				}
				for _, p := range positions {
					result.Syncs = append(result.Syncs, syncResult{
						Offset:     p.Offset,
						Shift:      p.Shift,
						Confidence: p.Confidence,
					})
				}
				return cli.WriteJSON(result)
			}

			printSyncs(os.Stdout, word, positions, limit)
			return nil
		},
	}
}

func printSyncs(w io.Writer, pattern uint16, positions []track.SyncPos, limit int) {
	fmt.Fprintf(w, "%d sync marks (%#06x)\n", len(positions), pattern)
	if len(positions) == 0 {
		return
	}

	shown := positions
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "OFFSET\tSHIFT\tCONFIDENCE\n")
	for _, p := range shown {
		fmt.Fprintf(tw, "%d\t%d\t%d\n", p.Offset, p.Shift, p.Confidence)
	}
	tw.Flush()

	if remaining := len(positions) - len(shown); remaining > 0 {
		fmt.Fprintf(w, "... and %d more (use --limit 0 to print all)\n", remaining)
	}
}
