// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package track

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fluxkit/cmd/fluxkit/cli"
	"github.com/bureau-foundation/fluxkit/lib/track"
)

type measureResult struct {
	LengthBytes  int     `json:"length_bytes"`
	LengthBits   int     `json:"length_bits"`
	FirstData    int     `json:"first_data"`
	LastData     int     `json:"last_data"`
	DensityRatio float64 `json:"density_ratio"`
	Valid        bool    `json:"valid"`
}

func measureCommand() *cli.Command {
	var jsonOut cli.JSONOutput

	return &cli.Command{
		Name:    "measure",
		Summary: "Measure the data length of a track read",
		Description: `Locate the span of real data inside a track read and report its
length, position, and density ratio relative to a standard MFM
double-density revolution.

A density ratio above 1.05 usually means a deliberately overlong
track; a length outside the plausible range marks a failed read.`,
		Usage: "fluxkit track measure <input> [flags]",
		Examples: []cli.Example{
			{
				Description: "Measure a decoded capture",
				Command:     "fluxkit track measure decoded.fluxcap",
			},
			{
				Description: "Machine-readable measurement",
				Command:     "fluxkit track measure --json track.bin",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("measure", pflag.ContinueOnError)
			jsonOut.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("measure takes one input file, got %d arguments", len(args))
			}
			data, _, err := readInput(args[0])
			if err != nil {
				return err
			}
			m, err := track.Measure(data)
			if err != nil {
				return err
			}
			if done, err := jsonOut.EmitJSON(measureResult{
				LengthBytes:  m.LengthBytes,
				LengthBits:   m.LengthBits,
				FirstData:    m.FirstData,
				LastData:     m.LastData,
				DensityRatio: m.DensityRatio,
				Valid:        m.Valid,
			}); done || err != nil {
				return err
			}
			printMeasurement(os.Stdout, m)
			return nil
		},
	}
}

func printMeasurement(w io.Writer, m track.Measurement) {
	fmt.Fprintf(w, "length:   %d bytes (%d bits)\n", m.LengthBytes, m.LengthBits)
	fmt.Fprintf(w, "data:     bytes %d..%d\n", m.FirstData, m.LastData)
	fmt.Fprintf(w, "density:  %.3f\n", m.DensityRatio)
	if !m.Valid {
		fmt.Fprintf(w, "warning:  length outside the plausible track range\n")
	}
}
