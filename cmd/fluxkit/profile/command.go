// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"github.com/bureau-foundation/fluxkit/cmd/fluxkit/cli"
	"github.com/bureau-foundation/fluxkit/lib/platform"
)

// Command returns the "profile" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "profile",
		Summary: "List and validate platform profiles",
		Description: `Platform profiles describe the expected track layout of each
supported machine: sync marks, track length windows, and sector
geometry. The builtin table can be extended with a JSONC overrides
file named in the configuration.`,
		Subcommands: []*cli.Command{
			listCommand(),
			showCommand(),
			checkCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "List every known profile",
				Command:     "fluxkit profile list",
			},
			{
				Description: "Show the Amiga DD layout",
				Command:     "fluxkit profile show 'Amiga DD'",
			},
			{
				Description: "Validate an overrides file before configuring it",
				Command:     "fluxkit profile check site-profiles.jsonc",
			},
		},
	}
}

// loadSet returns the builtin profiles with the overrides file merged
// in, when one is configured.
func loadSet(overridesPath string) (*platform.Set, error) {
	set := platform.Builtin()
	if overridesPath != "" {
		if err := set.Load(overridesPath); err != nil {
			return nil, err
		}
	}
	return set, nil
}
