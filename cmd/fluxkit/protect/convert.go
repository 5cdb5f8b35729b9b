// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package protect

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/bureau-foundation/fluxkit/cmd/fluxkit/cli"
	"github.com/bureau-foundation/fluxkit/lib/codec"
	"github.com/bureau-foundation/fluxkit/lib/protection"
)

type convertResult struct {
	Target  string         `json:"target"`
	Kept    int            `json:"kept"`
	Dropped map[string]int `json:"dropped"`
}

type convertParams struct {
	cli.JSONOutput

	To     string `flag:"to" desc:"target format name"`
	Output string `flag:"output,o" desc:"write the converted map snapshot here"`
	Matrix bool   `flag:"matrix" desc:"print the format support matrix and exit"`
}

func convertCommand() *cli.Command {
	params := &convertParams{}

	return &cli.Command{
		Name:    "convert",
		Summary: "Rewrite a protection map for another disk format",
		Description: `Check what a protection map loses when its disk moves to another
format. Flux containers carry every artifact; bitstream containers
keep what their encoding can express; sector images keep almost
nothing. The input is a map snapshot written by
"protect analyze --save-map".

With --matrix no input is needed: the command prints what every
known format can represent.`,
		Usage: "fluxkit protect convert --to <format> [flags] <map>",
		Examples: []cli.Example{
			{
				Description: "See what an ADF conversion drops",
				Command:     "fluxkit protect convert --to adf game.fluxmap",
			},
			{
				Description: "Convert and save the reduced map",
				Command:     "fluxkit protect convert --to g64 -o g64.fluxmap game.fluxmap",
			},
			{
				Description: "Print the format support matrix",
				Command:     "fluxkit protect convert --matrix",
			},
		},
		Params: params,
		Run: func(args []string) error {
			if params.Matrix {
				printMatrix(os.Stdout)
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("convert takes one map snapshot, got %d arguments", len(args))
			}
			if params.To == "" {
				return fmt.Errorf("--to names the target format; --matrix lists the choices")
			}
			target, err := protection.ParseFormat(params.To)
			if err != nil {
				return err
			}
			m, err := readMapSnapshot(args[0])
			if err != nil {
				return err
			}

			converted, dropped, err := protection.Convert(m, target)
			if err != nil {
				return err
			}
			if params.Output != "" {
				snapshot, err := codec.Marshal(converted)
				if err != nil {
					return err
				}
				if err := os.WriteFile(params.Output, snapshot, 0o644); err != nil {
					return err
				}
			}

			kept := 0
			for i := range converted.Tracks {
				kept += len(converted.Tracks[i].Artifacts)
			}
			res := convertResult{
				Target:  target.String(),
				Kept:    kept,
				Dropped: make(map[string]int, len(dropped)),
			}
			for kind, n := range dropped {
				res.Dropped[kind.String()] = n
			}
			if emitted, err := params.EmitJSON(res); emitted || err != nil {
				return err
			}
			printConversion(os.Stdout, target, kept, dropped)
			if params.Output != "" {
				fmt.Printf("wrote %s\n", params.Output)
			}
			return nil
		},
	}
}

// readMapSnapshot loads a protection map written by analyze
// --save-map.
func readMapSnapshot(path string) (*protection.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m protection.Map
	if err := codec.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s is not a protection map snapshot: %w", path, err)
	}
	if m.Cylinders < 1 || m.Heads < 1 || len(m.Tracks) != m.Cylinders*m.Heads {
		return nil, fmt.Errorf("%s is not a protection map snapshot", path)
	}
	return &m, nil
}

func printConversion(w io.Writer, target protection.Format, kept int, dropped map[protection.ArtifactKind]int) {
	fmt.Fprintf(w, "target: %s\n", target)
	fmt.Fprintf(w, "kept:   %d artifacts\n", kept)
	if len(dropped) == 0 {
		fmt.Fprintf(w, "drops:  none; the conversion is faithful\n")
		return
	}

	kinds := make([]protection.ArtifactKind, 0, len(dropped))
	for kind := range dropped {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, kind := range kinds {
		fmt.Fprintf(w, "drops:  %d x %s\n", dropped[kind], kind)
	}
}

// printMatrix writes what every known format can represent.
func printMatrix(w io.Writer) {
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "FORMAT\tKEEPS\n")
	for _, f := range protection.Formats() {
		fmt.Fprintf(tw, "%s\t%s\n", f, formatKeeps(f))
	}
	tw.Flush()
}

// formatKeeps summarizes a format's representable artifact kinds.
func formatKeeps(f protection.Format) string {
	if f.SupportsArtifact(protection.AllArtifacts) {
		return "everything"
	}
	var kinds []string
	for kind := protection.WeakBits; kind <= protection.DataMark; kind <<= 1 {
		if f.SupportsArtifact(kind) {
			kinds = append(kinds, kind.String())
		}
	}
	if len(kinds) == 0 {
		return "nothing"
	}
	return strings.Join(kinds, ", ")
}
