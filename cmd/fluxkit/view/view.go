// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package view implements "fluxkit view", the interactive disk
// surface viewer.
package view

import (
	"bytes"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/fluxkit/cmd/fluxkit/cli"
	"github.com/bureau-foundation/fluxkit/lib/codec"
	"github.com/bureau-foundation/fluxkit/lib/diskui"
	"github.com/bureau-foundation/fluxkit/lib/fluxstore"
	"github.com/bureau-foundation/fluxkit/lib/protection"
)

// Command returns the "view" command.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "view",
		Summary: "Browse a disk's protection map interactively",
		Description: `Open the interactive track viewer on a capture container or a map
snapshot from "protect analyze --save-map". Containers are analyzed
on the fly; snapshots open as saved. Arrow keys move over the disk
surface, the detail pane lists the selected track's artifacts, and
q quits.`,
		Usage: "fluxkit view <capture|map>",
		Examples: []cli.Example{
			{
				Description: "Analyze and browse a capture",
				Command:     "fluxkit view decoded.fluxcap",
			},
			{
				Description: "Browse a saved analysis",
				Command:     "fluxkit view game.fluxmap",
			},
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("view takes one input file, got %d arguments", len(args))
			}
			m, err := loadMap(args[0])
			if err != nil {
				return err
			}
			program := tea.NewProgram(diskui.NewModel(m), tea.WithAltScreen())
			_, err = program.Run()
			return err
		},
	}
}

// loadMap reads the viewer input: a capture container is analyzed
// into a single-track map, anything else must be a map snapshot.
func loadMap(path string) (*protection.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if fluxstore.IsContainer(data) {
		capture, err := fluxstore.Read(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		res, err := protection.NewAnalyzer(protection.DefaultOptions()).AnalyzeCapture(capture, nil)
		if err != nil {
			return nil, err
		}
		return protection.MapForCapture(capture, res)
	}

	var m protection.Map
	if err := codec.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%s is neither a capture container nor a map snapshot: %w", path, err)
	}
	if m.Cylinders < 1 || m.Heads < 1 || len(m.Tracks) != m.Cylinders*m.Heads {
		return nil, fmt.Errorf("%s is neither a capture container nor a map snapshot", path)
	}
	return &m, nil
}
