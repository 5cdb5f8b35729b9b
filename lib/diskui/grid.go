// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package diskui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/fluxkit/lib/protection"
)

// trackStatus classifies one track cell for display. When a track
// carries several artifact kinds the highest-signal one wins: weak
// bits over track length anomalies over other protection.
type trackStatus int

const (
	statusUnanalyzed trackStatus = iota
	statusClean
	statusProtected
	statusShort
	statusLong
	statusWeak
)

// classifyTrack maps a track record to its cell status. A track the
// analyzer visited always has a nonzero bit length, so zero length
// with no artifact kinds means the track was never analyzed.
func classifyTrack(track *protection.TrackProtection) trackStatus {
	switch {
	case track.Kinds.Has(protection.WeakBits):
		return statusWeak
	case track.Kinds.Has(protection.LongTrack):
		return statusLong
	case track.Kinds.Has(protection.ShortTrack):
		return statusShort
	case track.Kinds != 0:
		return statusProtected
	case track.TrackLengthBits > 0:
		return statusClean
	default:
		return statusUnanalyzed
	}
}

func (status trackStatus) glyph() string {
	switch status {
	case statusClean:
		return "●"
	case statusWeak:
		return "w"
	case statusLong:
		return "L"
	case statusShort:
		return "s"
	case statusProtected:
		return "◆"
	default:
		return "·"
	}
}

func (status trackStatus) label() string {
	switch status {
	case statusClean:
		return "clean"
	case statusWeak:
		return "weak bits"
	case statusLong:
		return "long track"
	case statusShort:
		return "short track"
	case statusProtected:
		return "protected"
	default:
		return "unanalyzed"
	}
}

// Cell rows carry a "h0 "-style gutter; the tick header numbers every
// tenth cylinder above its column.
const (
	gridGutterWidth = 3
	tickInterval    = 10
)

// RenderGrid renders the per-track surface map of a protection map:
// one cell per track, cylinders running left to right under a
// numbered tick header, one row per head. Maps wider than the given
// width wrap into multiple cylinder bands. A legend follows the last
// band.
func RenderGrid(m *protection.Map, width int) string {
	return renderGrid(m, width, -1, DefaultTheme, newRenderer())
}

// renderGrid is RenderGrid with a cursor: the track at that index in
// m.Tracks renders with the selection colors. The interactive viewer
// passes its cursor; RenderGrid passes -1 for none.
func renderGrid(m *protection.Map, width, cursor int, theme Theme, renderer *lipgloss.Renderer) string {
	if m == nil || m.Cylinders <= 0 || m.Heads <= 0 {
		return ""
	}

	cells := bandCells(m.Cylinders, width)
	faint := renderer.NewStyle().Foreground(theme.FaintText)
	selected := renderer.NewStyle().
		Foreground(theme.SelectedForeground).
		Background(theme.SelectedBackground)

	var lines []string
	for bandStart := 0; bandStart < m.Cylinders; bandStart += cells {
		bandWidth := m.Cylinders - bandStart
		if bandWidth > cells {
			bandWidth = cells
		}

		if bandStart > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, strings.Repeat(" ", gridGutterWidth)+
			faint.Render(cylinderTicks(bandStart, bandWidth)))

		for head := 0; head < m.Heads; head++ {
			var row strings.Builder
			row.WriteString(faint.Render(fmt.Sprintf("h%d ", head)))
			for offset := 0; offset < bandWidth; offset++ {
				index := (bandStart+offset)*m.Heads + head
				status := classifyTrack(&m.Tracks[index])
				style := renderer.NewStyle().Foreground(theme.statusColor(status))
				if index == cursor {
					style = selected
				}
				row.WriteString(style.Render(status.glyph()))
			}
			lines = append(lines, row.String())
		}
	}

	lines = append(lines, "", gridLegend(theme, renderer))
	return strings.Join(lines, "\n")
}

// bandCells returns how many cylinder columns fit in one band at the
// given terminal width. Clamped below so degenerate widths still
// produce a readable (if overflowing) band.
func bandCells(cylinders, width int) int {
	cells := width - gridGutterWidth
	if cells < tickInterval {
		cells = tickInterval
	}
	if cells > cylinders {
		cells = cylinders
	}
	return cells
}

// gridLines returns the line count renderGrid will produce, so the
// viewer can size the panes below the map.
func gridLines(m *protection.Map, width int) int {
	if m == nil || m.Cylinders <= 0 || m.Heads <= 0 {
		return 0
	}
	cells := bandCells(m.Cylinders, width)
	bands := (m.Cylinders + cells - 1) / cells
	return bands*(1+m.Heads) + (bands - 1) + 2
}

// cylinderTicks builds the header for one band: the cylinder number
// above every tickInterval-th column, spaces elsewhere.
func cylinderTicks(start, cells int) string {
	ticks := []byte(strings.Repeat(" ", cells))
	for offset := 0; offset < cells; offset++ {
		cylinder := start + offset
		if cylinder%tickInterval != 0 {
			continue
		}
		label := strconv.Itoa(cylinder)
		if offset+len(label) > cells {
			break
		}
		copy(ticks[offset:], label)
	}
	return string(ticks)
}

func gridLegend(theme Theme, renderer *lipgloss.Renderer) string {
	faint := renderer.NewStyle().Foreground(theme.FaintText)
	statuses := []trackStatus{
		statusClean, statusWeak, statusLong,
		statusShort, statusProtected, statusUnanalyzed,
	}
	parts := make([]string, 0, len(statuses))
	for _, status := range statuses {
		glyph := renderer.NewStyle().
			Foreground(theme.statusColor(status)).
			Render(status.glyph())
		parts = append(parts, glyph+faint.Render(" "+status.label()))
	}
	return strings.Join(parts, "  ")
}
