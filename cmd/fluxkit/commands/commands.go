// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete fluxkit CLI command tree.
package commands

import (
	"fmt"

	capturecmd "github.com/bureau-foundation/fluxkit/cmd/fluxkit/capture"
	catalogcmd "github.com/bureau-foundation/fluxkit/cmd/fluxkit/catalog"
	"github.com/bureau-foundation/fluxkit/cmd/fluxkit/cli"
	decodecmd "github.com/bureau-foundation/fluxkit/cmd/fluxkit/decode"
	profilecmd "github.com/bureau-foundation/fluxkit/cmd/fluxkit/profile"
	protectcmd "github.com/bureau-foundation/fluxkit/cmd/fluxkit/protect"
	trackcmd "github.com/bureau-foundation/fluxkit/cmd/fluxkit/track"
	viewcmd "github.com/bureau-foundation/fluxkit/cmd/fluxkit/view"
	"github.com/bureau-foundation/fluxkit/lib/version"
)

// Root builds and returns the complete fluxkit CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "fluxkit",
		Description: `Fluxkit: flux-level floppy disk recovery.

Decode raw flux captures into bitstreams, measure and merge
multi-revolution track reads, analyze copy protection, and keep an
indexed catalog of preserved disks.`,
		Subcommands: []*cli.Command{
			decodecmd.Command(),
			trackcmd.Command(),
			protectcmd.Command(),
			capturecmd.Command(),
			catalogcmd.Command(),
			profilecmd.Command(),
			viewcmd.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("fluxkit %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Pack raw flux reads into a capture container",
				Command:     "fluxkit capture pack --flux rev0.flux --sample-rate 24000000 disk-t0h0.fluxcap",
			},
			{
				Description: "Decode a flux capture into data bytes",
				Command:     "fluxkit decode -o decoded.fluxcap disk-t0h0.fluxcap",
			},
			{
				Description: "Measure a decoded track against its platform profile",
				Command:     "fluxkit track measure decoded.fluxcap",
			},
			{
				Description: "Analyze a disk image for copy protection",
				Command:     "fluxkit protect analyze --map game.adf",
			},
			{
				Description: "Browse a protection map interactively",
				Command:     "fluxkit view game.fluxmap",
			},
			{
				Description: "Index an analyzed capture in the catalog",
				Command:     "fluxkit catalog add decoded.fluxcap",
			},
			{
				Description: "List the built-in platform profiles",
				Command:     "fluxkit profile list",
			},
		},
	}
}
