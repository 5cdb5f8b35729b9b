// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"fmt"

	"github.com/bureau-foundation/fluxkit/cmd/fluxkit/cli"
	"github.com/bureau-foundation/fluxkit/lib/platform"
)

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:    "check",
		Summary: "Validate a profile overrides file",
		Description: `Parse and validate a JSONC profile overrides file without merging
it into the builtin table. Nothing loads from a file with any
invalid profile, so this is the whole configuration check.`,
		Usage: "fluxkit profile check <file>",
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("check takes one profiles file, got %d arguments", len(args))
			}
			var set platform.Set
			if err := set.Load(args[0]); err != nil {
				return err
			}
			profiles := set.Profiles()
			fmt.Printf("OK: %d profiles\n", len(profiles))
			for _, p := range profiles {
				fmt.Printf("  %s (%s, %s)\n", p.Name, p.Platform, p.Encoding)
			}
			return nil
		},
	}
}
