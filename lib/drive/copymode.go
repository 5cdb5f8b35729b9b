// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package drive

import (
	"strings"

	"github.com/bureau-foundation/fluxkit/lib/track"
)

// CopyMode is a disk-copy strategy, ordered roughly by fidelity: DOS
// copies move decoded sectors, nibble copies move raw track bytes,
// flux copies move transition timing.
type CopyMode uint8

const (
	ModeDOS CopyMode = iota
	ModeBAM
	ModeDOSPlus
	ModeNibble
	ModeOptimize
	ModeFormat
	ModeQuickFormat
	ModeFlux
)

func (m CopyMode) String() string {
	switch m {
	case ModeDOS:
		return "DOS Copy"
	case ModeBAM:
		return "BAM Copy"
	case ModeDOSPlus:
		return "DOS Plus"
	case ModeNibble:
		return "Nibble Copy"
	case ModeOptimize:
		return "Optimized"
	case ModeFormat:
		return "Format"
	case ModeQuickFormat:
		return "Quick Format"
	case ModeFlux:
		return "Flux Copy"
	}
	return "Unknown"
}

// Recommend picks a copy strategy for a disk. Protection that lives
// in timing (unusual gaps, overlong tracks) survives only a flux
// copy; other protection needs at least raw track bytes. Without
// protection the format name decides, and an unrecognized format
// falls back to a sector copy.
func Recommend(formatName string, protected bool, timing *track.Timing) CopyMode {
	if formatName == "" {
		return ModeNibble
	}

	if protected {
		if timing != nil && timing.Protected {
			if strings.Contains(timing.Protection, "Timing") ||
				strings.Contains(timing.Protection, "Long Track") {
				return ModeFlux
			}
		}
		return ModeNibble
	}

	switch {
	case strings.Contains(formatName, "ADF"), strings.Contains(formatName, "Amiga"):
		return ModeDOS
	case strings.Contains(formatName, "D64"), strings.Contains(formatName, "1541"):
		return ModeBAM
	case strings.Contains(formatName, "XDF"), strings.Contains(formatName, "DMF"):
		return ModeNibble
	case strings.Contains(formatName, "Apple"), strings.Contains(formatName, "GCR"):
		return ModeNibble
	case strings.Contains(formatName, "SCP"), strings.Contains(formatName, "Flux"):
		return ModeFlux
	}
	return ModeDOS
}
