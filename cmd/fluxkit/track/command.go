// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package track

import (
	"github.com/bureau-foundation/fluxkit/cmd/fluxkit/cli"
)

// Command returns the "track" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "track",
		Summary: "Measure and analyze decoded track data",
		Description: `Analysis of decoded track data: length measurement, sync mark
search, sector timing reconstruction, and multi-revolution merging.

Inputs are flux containers (their decoded revolutions) or raw track
dumps. Containers that only hold flux must go through "fluxkit
decode" first.`,
		Subcommands: []*cli.Command{
			measureCommand(),
			syncsCommand(),
			timingCommand(),
			mergeCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Measure the data length of a decoded track",
				Command:     "fluxkit track measure decoded.fluxcap",
			},
			{
				Description: "List sync marks with a non-standard pattern",
				Command:     "fluxkit track syncs -p 0xA1A1 decoded.fluxcap",
			},
			{
				Description: "Merge a five-revolution read into a best-of track",
				Command:     "fluxkit track merge -o track.bin decoded.fluxcap",
			},
		},
	}
}
