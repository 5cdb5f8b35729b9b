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

type timingResult struct {
	TrackTimeUS    float64        `json:"track_time_us"`
	RPM            float64        `json:"rpm"`
	IndexToFirstUS float64        `json:"index_to_first_us"`
	FirstSector    uint8          `json:"first_sector"`
	Consistent     bool           `json:"consistent"`
	Protection     string         `json:"protection,omitempty"`
	Protected      bool           `json:"protected"`
	Sectors        []sectorResult `json:"sectors"`
}

type sectorResult struct {
	Cylinder   uint8   `json:"cylinder"`
	Head       uint8   `json:"head"`
	Sector     uint8   `json:"sector"`
	SizeCode   uint8   `json:"size_code"`
	RelTimeUS  float64 `json:"rel_time_us"`
	GapAfterUS float64 `json:"gap_after_us"`
	Valid      bool    `json:"valid"`
}

func timingCommand() *cli.Command {
	var (
		jsonOut cli.JSONOutput
		pattern string
		bitTime float64
	)

	return &cli.Command{
		Name:    "timing",
		Summary: "Reconstruct sector timing from a track",
		Description: `Anchor each sector at its sync mark and reconstruct when its header
and data fields pass under the head, relative to the start of the
read.

Gap irregularities and sector layout oddities are classified against
the signatures of common timing-based protection schemes.`,
		Usage: "fluxkit track timing <input> [flags]",
		Examples: []cli.Example{
			{
				Description: "Time a double-density track",
				Command:     "fluxkit track timing decoded.fluxcap",
			},
			{
				Description: "Time a high-density track",
				Command:     "fluxkit track timing --bit-time 2 decoded.fluxcap",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("timing", pflag.ContinueOnError)
			flagSet.StringVarP(&pattern, "pattern", "p", "",
				"sync word anchoring each sector (default: the encoding's mark)")
			flagSet.Float64Var(&bitTime, "bit-time", track.BitTimeDDUS,
				"microseconds per data bit: 4 for double density, 2 for high density")
			jsonOut.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("timing takes one input file, got %d arguments", len(args))
			}
			data, encoding, err := readInput(args[0])
			if err != nil {
				return err
			}
			word, err := parseSyncWord(pattern, encoding)
			if err != nil {
				return err
			}

			timing, err := track.AnalyzeTiming(data, word, bitTime)
			if err != nil {
				return err
			}

			if jsonOut.OutputJSON {
				return cli.WriteJSON(timingToResult(timing))
			}
			printTiming(os.Stdout, timing)
			return nil
		},
	}
}

func timingToResult(t *track.Timing) timingResult {
	result := timingResult{
		TrackTimeUS:    t.TrackTimeUS,
		RPM:            t.RPM,
		IndexToFirstUS: t.IndexToFirstUS,
		FirstSector:    t.FirstSeen,
		Consistent:     t.Consistent,
		Protection:     t.Protection,
		Protected:      t.Protected,
		Sectors:        make([]sectorResult, 0, len(t.Sectors)),
	}
	for _, s := range t.Sectors {
		result.Sectors = append(result.Sectors, sectorResult{
			Cylinder:   s.Cyl,
			Head:       s.Head,
			Sector:     s.Sector,
			SizeCode:   s.SizeCode,
			RelTimeUS:  s.RelTimeUS,
			GapAfterUS: s.GapAfterUS,
			Valid:      s.Valid,
		})
	}
	return result
}

func printTiming(w io.Writer, t *track.Timing) {
	fmt.Fprintf(w, "track time: %.0f us (%.1f RPM)\n", t.TrackTimeUS, t.RPM)
	fmt.Fprintf(w, "sectors:    %d, first seen %d\n", len(t.Sectors), t.FirstSeen)
	if !t.Consistent {
		fmt.Fprintf(w, "gaps:       inconsistent\n")
	}
	if t.Protected {
		fmt.Fprintf(w, "protection: %s\n", t.Protection)
	}

	if len(t.Sectors) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "C\tH\tS\tSIZE\tREL(us)\tGAP(us)\n")
	for _, s := range t.Sectors {
		size := fmt.Sprintf("%d", 128<<min(s.SizeCode, 7))
		if !s.Valid {
			size = "?"
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%.0f\t%.0f\n",
			s.Cyl, s.Head, s.Sector, size, s.RelTimeUS, s.GapAfterUS)
	}
	tw.Flush()
}
