// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package protect

import (
	"github.com/bureau-foundation/fluxkit/cmd/fluxkit/cli"
)

// Command returns the "protect" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "protect",
		Summary: "Detect and preserve copy protection",
		Description: `Copy protection analysis and preservation. "analyze" runs the full
pipeline on a capture or sector image: weak bits, track length
anomalies, timing signatures, and known scheme detection. "convert"
checks what survives a move to another disk format.`,
		Subcommands: []*cli.Command{
			analyzeCommand(),
			convertCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Analyze a decoded capture and render the track grid",
				Command:     "fluxkit protect analyze --map decoded.fluxcap",
			},
			{
				Description: "Save the protection map for later conversion",
				Command:     "fluxkit protect analyze --save-map game.fluxmap game.adf",
			},
			{
				Description: "See what an ADF image would lose",
				Command:     "fluxkit protect convert --to adf game.fluxmap",
			},
		},
	}
}
