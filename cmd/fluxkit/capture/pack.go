// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fluxkit/cmd/fluxkit/cli"
	"github.com/bureau-foundation/fluxkit/lib/flux"
	"github.com/bureau-foundation/fluxkit/lib/fluxstore"
)

// packInputs is everything the pack command collects from its flags.
type packInputs struct {
	FluxFiles  []string
	DataFiles  []string
	SampleRate float64
	Encoding   string
	Cylinder   int
	Head       int
	Source     string
	Meta       []string
}

func packCommand() *cli.Command {
	var inputs packInputs

	return &cli.Command{
		Name:    "pack",
		Summary: "Build a container from raw capture files",
		Description: `Assemble a capture container from raw per-revolution files. --flux
files hold little-endian 32-bit sample-tick intervals and need
--sample-rate; --data files hold decoded track bytes. Given both,
the lists pair up revolution by revolution and must be the same
length.`,
		Usage: "fluxkit capture pack [flags] <output>",
		Examples: []cli.Example{
			{
				Description: "Pack flux plus its decoded bytes",
				Command:     "fluxkit capture pack --flux r0.flux --data r0.bin --sample-rate 24000000 t00h0.fluxcap",
			},
			{
				Description: "Pack decoded revolutions with position metadata",
				Command:     "fluxkit capture pack --data r0.bin --data r1.bin --cylinder 7 --meta disk=workbench t07h0.fluxcap",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("pack", pflag.ContinueOnError)
			flagSet.StringArrayVar(&inputs.FluxFiles, "flux", nil, "raw flux interval file, once per revolution")
			flagSet.StringArrayVar(&inputs.DataFiles, "data", nil, "decoded track file, once per revolution")
			flagSet.Float64Var(&inputs.SampleRate, "sample-rate", 0, "capture device sample rate in Hz")
			flagSet.StringVar(&inputs.Encoding, "encoding", "mfm", "track encoding: mfm, fm, or gcr")
			flagSet.IntVar(&inputs.Cylinder, "cylinder", 0, "cylinder the track was read from")
			flagSet.IntVar(&inputs.Head, "head", 0, "head the track was read from")
			flagSet.StringVar(&inputs.Source, "source", "", "capture hardware or tool name")
			flagSet.StringArrayVar(&inputs.Meta, "meta", nil, "extra key=value metadata")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("pack takes one output path, got %d arguments", len(args))
			}
			capture, err := buildCapture(inputs)
			if err != nil {
				return err
			}
			if err := fluxstore.WriteFile(args[0], capture); err != nil {
				return err
			}
			fmt.Printf("wrote %s: %s, %d revolutions\n",
				args[0], flux.FormatRef(capture.ContentID()), len(capture.Revolutions))
			return nil
		},
	}
}

// buildCapture reads the input files and assembles the capture.
func buildCapture(inputs packInputs) (*flux.Capture, error) {
	if len(inputs.FluxFiles) == 0 && len(inputs.DataFiles) == 0 {
		return nil, fmt.Errorf("nothing to pack; give --flux or --data files")
	}
	if len(inputs.FluxFiles) > 0 && len(inputs.DataFiles) > 0 &&
		len(inputs.FluxFiles) != len(inputs.DataFiles) {
		return nil, fmt.Errorf("%d flux files but %d data files; the lists pair up per revolution",
			len(inputs.FluxFiles), len(inputs.DataFiles))
	}

	encoding, err := flux.ParseEncoding(inputs.Encoding)
	if err != nil {
		return nil, err
	}

	revolutions := max(len(inputs.FluxFiles), len(inputs.DataFiles))
	capture := &flux.Capture{
		SampleRate:  inputs.SampleRate,
		Encoding:    encoding,
		Cylinder:    inputs.Cylinder,
		Head:        inputs.Head,
		Source:      inputs.Source,
		CapturedAt:  time.Now().UTC(),
		Revolutions: make([]flux.Revolution, revolutions),
	}

	for i, path := range inputs.FluxFiles {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		intervals, err := fluxIntervals(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		capture.Revolutions[i].Flux = intervals
	}
	for i, path := range inputs.DataFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		capture.Revolutions[i].Data = data
	}

	for _, pair := range inputs.Meta {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("bad --meta %q, want key=value", pair)
		}
		if capture.Metadata == nil {
			capture.Metadata = make(map[string]string)
		}
		capture.Metadata[key] = value
	}

	if err := capture.Validate(); err != nil {
		return nil, err
	}
	return capture, nil
}
