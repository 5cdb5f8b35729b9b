// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"github.com/bureau-foundation/fluxkit/cmd/fluxkit/cli"
)

// Command returns the "capture" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "capture",
		Summary: "Inspect, build, and extract capture containers",
		Description: `Work with flux capture containers. "info" shows what a container
holds, "pack" builds one from raw capture files, and "unpack" takes
one apart again.`,
		Subcommands: []*cli.Command{
			infoCommand(),
			packCommand(),
			unpackCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Show a container's header and chunks",
				Command:     "fluxkit capture info disk1-t07h0.fluxcap",
			},
			{
				Description: "Pack three revolutions of raw flux",
				Command:     "fluxkit capture pack --flux r0.flux --flux r1.flux --flux r2.flux --sample-rate 24000000 t07h0.fluxcap",
			},
			{
				Description: "Extract every revolution into a directory",
				Command:     "fluxkit capture unpack -C extracted/ t07h0.fluxcap",
			},
		},
	}
}
