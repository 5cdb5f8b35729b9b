// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/fluxkit/cmd/fluxkit/cli"
	"github.com/bureau-foundation/fluxkit/lib/flux"
	"github.com/bureau-foundation/fluxkit/lib/fluxstore"
)

type unpackParams struct {
	OutputDir string `flag:"output-dir,C" default:"." desc:"directory to extract into"`
}

func unpackCommand() *cli.Command {
	params := &unpackParams{}

	return &cli.Command{
		Name:    "unpack",
		Summary: "Extract a container's revolutions into raw files",
		Description: `Write every revolution of a container back out as raw files:
revN.flux for flux intervals (little-endian 32-bit words) and
revN.bin for decoded bytes. Chunk hashes are verified during the
read, so what lands on disk is what was packed.`,
		Usage:  "fluxkit capture unpack [flags] <capture>",
		Params: params,
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("unpack takes one container file, got %d arguments", len(args))
			}
			capture, err := fluxstore.ReadFile(args[0])
			if err != nil {
				return err
			}
			written, err := unpackCapture(capture, params.OutputDir)
			if err != nil {
				return err
			}
			for _, path := range written {
				fmt.Printf("wrote %s\n", path)
			}
			return nil
		},
	}
}

// unpackCapture writes the capture's revolutions into dir and returns
// the paths it wrote, in revolution order.
func unpackCapture(capture *flux.Capture, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	for i, rev := range capture.Revolutions {
		if len(rev.Flux) > 0 {
			path := filepath.Join(dir, fmt.Sprintf("rev%d.flux", i))
			if err := os.WriteFile(path, fluxFileBytes(rev.Flux), 0o644); err != nil {
				return nil, err
			}
			written = append(written, path)
		}
		if len(rev.Data) > 0 {
			path := filepath.Join(dir, fmt.Sprintf("rev%d.bin", i))
			if err := os.WriteFile(path, rev.Data, 0o644); err != nil {
				return nil, err
			}
			written = append(written, path)
		}
	}
	return written, nil
}
