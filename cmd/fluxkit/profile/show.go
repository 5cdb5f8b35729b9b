// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fluxkit/cmd/fluxkit/cli"
	"github.com/bureau-foundation/fluxkit/lib/config"
	"github.com/bureau-foundation/fluxkit/lib/platform"
)

func showCommand() *cli.Command {
	var (
		jsonOut      cli.JSONOutput
		profilesPath string
	)

	return &cli.Command{
		Name:    "show",
		Summary: "Show one platform profile in full",
		Usage:   "fluxkit profile show [flags] <name>",
		Flags: func() *pflag.FlagSet {
			cfg := config.Active()
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			flagSet.StringVar(&profilesPath, "profiles", cfg.Paths.Profiles,
				"JSONC file of profile overrides")
			jsonOut.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("show takes one profile name, got %d arguments", len(args))
			}
			if _, err := config.Load(); err != nil {
				return err
			}
			set, err := loadSet(profilesPath)
			if err != nil {
				return err
			}
			p, ok := set.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown profile %q; \"fluxkit profile list\" names the known ones", args[0])
			}
			if emitted, err := jsonOut.EmitJSON(p); emitted || err != nil {
				return err
			}
			printProfile(os.Stdout, &p)
			return nil
		},
	}
}

func printProfile(w io.Writer, p *platform.Profile) {
	syncs := make([]string, len(p.SyncPatterns))
	for i, pattern := range p.SyncPatterns {
		syncs[i] = pattern.String()
	}

	fmt.Fprintf(w, "name:          %s\n", p.Name)
	fmt.Fprintf(w, "platform:      %s\n", p.Platform)
	fmt.Fprintf(w, "encoding:      %s\n", p.Encoding)
	fmt.Fprintf(w, "sync patterns: %s\n", strings.Join(syncs, ", "))
	fmt.Fprintf(w, "track length:  %d..%d bytes, nominal %d\n",
		p.TrackLengthMin, p.TrackLengthMax, p.TrackLengthNominal)
	fmt.Fprintf(w, "long track:    from %d bytes\n", p.LongTrackThreshold)
	fmt.Fprintf(w, "sectors:       %d x %d bytes, raw %d, tolerance %d\n",
		p.SectorsPerTrack, p.SectorSize, p.SectorRawSize, p.SectorTolerance)
	fmt.Fprintf(w, "data rate:     %.0f kbps at %.0f RPM\n", p.DataRateKbps, p.RPM)
	for _, pattern := range slices.Sorted(maps.Keys(p.Schemes)) {
		fmt.Fprintf(w, "scheme:        %s marks %s\n", pattern, p.Schemes[pattern])
	}
}
