// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fluxkit/cmd/fluxkit/cli"
	"github.com/bureau-foundation/fluxkit/lib/config"
	"github.com/bureau-foundation/fluxkit/lib/platform"
)

func listCommand() *cli.Command {
	var (
		jsonOut      cli.JSONOutput
		profilesPath string
	)

	return &cli.Command{
		Name:    "list",
		Summary: "List known platform profiles",
		Usage:   "fluxkit profile list [flags]",
		Flags: func() *pflag.FlagSet {
			cfg := config.Active()
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flagSet.StringVar(&profilesPath, "profiles", cfg.Paths.Profiles,
				"JSONC file of profile overrides")
			jsonOut.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("list takes no arguments, got %d", len(args))
			}
			if _, err := config.Load(); err != nil {
				return err
			}
			set, err := loadSet(profilesPath)
			if err != nil {
				return err
			}
			profiles := set.Profiles()
			if emitted, err := jsonOut.EmitJSON(profiles); emitted || err != nil {
				return err
			}
			printProfiles(os.Stdout, profiles)
			return nil
		},
	}
}

func printProfiles(w io.Writer, profiles []platform.Profile) {
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "NAME\tPLATFORM\tENCODING\tSECTORS\tNOMINAL\tRPM\n")
	for _, p := range profiles {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dx%d\t%d\t%.0f\n",
			p.Name, p.Platform, p.Encoding,
			p.SectorsPerTrack, p.SectorSize,
			p.TrackLengthNominal, p.RPM)
	}
	tw.Flush()
}
