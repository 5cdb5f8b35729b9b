// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package diskui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/fluxkit/lib/protection"
)

// Theme defines the color palette for fluxkit's terminal surfaces.
// All colors use lipgloss ANSI 256-color codes for broad terminal
// compatibility.
//
// The fields cover universal chrome (text, selection, borders) and
// the per-track status categories shared by the surface map, the
// interactive viewer, and the report renderer.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected track cell in the interactive viewer.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Track status colors.
	StatusClean      lipgloss.Color
	StatusWeak       lipgloss.Color
	StatusLong       lipgloss.Color
	StatusShort      lipgloss.Color
	StatusProtected  lipgloss.Color
	StatusUnanalyzed lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
}

// statusColor returns the cell color for a track status.
func (theme Theme) statusColor(status trackStatus) lipgloss.Color {
	switch status {
	case statusClean:
		return theme.StatusClean
	case statusWeak:
		return theme.StatusWeak
	case statusLong:
		return theme.StatusLong
	case statusShort:
		return theme.StatusShort
	case statusProtected:
		return theme.StatusProtected
	default:
		return theme.StatusUnanalyzed
	}
}

// artifactColor returns the color for an artifact kind set in the
// detail pane. Weak bits and track length anomalies keep their grid
// cell colors; everything else renders as generic protection.
func (theme Theme) artifactColor(kind protection.ArtifactKind) lipgloss.Color {
	switch {
	case kind.Has(protection.WeakBits):
		return theme.StatusWeak
	case kind.Has(protection.LongTrack):
		return theme.StatusLong
	case kind.Has(protection.ShortTrack):
		return theme.StatusShort
	default:
		return theme.StatusProtected
	}
}

// DefaultTheme is the built-in dark-terminal color scheme. Designed
// for 256-color terminals with a dark background.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	StatusClean:      lipgloss.Color("114"), // green
	StatusWeak:       lipgloss.Color("196"), // red
	StatusLong:       lipgloss.Color("208"), // orange
	StatusShort:      lipgloss.Color("220"), // amber
	StatusProtected:  lipgloss.Color("141"), // light purple
	StatusUnanalyzed: lipgloss.Color("240"), // dim gray

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
}

// newRenderer returns a lipgloss renderer pinned to the ANSI 256-color
// profile. Output from this package is always for terminal display, so
// auto-detection (which produces uncolored output in test environments
// with no TTY) is bypassed. SetColorProfile is required because
// lipgloss.Renderer.ColorProfile() ignores the termenv.Output profile
// and re-detects from the environment unless explicitColorProfile is
// set.
func newRenderer() *lipgloss.Renderer {
	renderer := lipgloss.NewRenderer(os.Stderr, termenv.WithProfile(termenv.ANSI256))
	renderer.SetColorProfile(termenv.ANSI256)
	return renderer
}
