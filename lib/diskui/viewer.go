// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package diskui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/fluxkit/lib/protection"
)

// Model is the interactive track viewer: the surface map with a
// movable cursor, a detail pane listing the selected track's
// artifacts, and a help bar.
type Model struct {
	protectionMap *protection.Map
	theme         Theme
	keys          KeyMap

	// cursor indexes protectionMap.Tracks (cylinder*Heads + head).
	cursor int

	width  int
	height int
	ready  bool

	help     help.Model
	detail   viewport.Model
	renderer *lipgloss.Renderer
}

// NewModel creates a viewer for the given protection map. The cursor
// starts on track 0.0. Run it under bubbletea:
//
//	program := tea.NewProgram(diskui.NewModel(m), tea.WithAltScreen())
//	_, err := program.Run()
func NewModel(m *protection.Map) Model {
	return Model{
		protectionMap: m,
		theme:         DefaultTheme,
		keys:          DefaultKeyMap,
		help:          help.New(),
		renderer:      newRenderer(),
	}
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.help.Width = message.Width
		model.detail.Width = message.Width
		model.detail.Height = model.detailHeight()
		model.ready = true
		model.refreshDetail()

	case tea.KeyMsg:
		switch {
		case key.Matches(message, model.keys.Quit):
			return model, tea.Quit
		case key.Matches(message, model.keys.Help):
			model.help.ShowAll = !model.help.ShowAll
			model.detail.Height = model.detailHeight()
		case !model.hasTracks():
			// Movement keys need a populated map.
		case key.Matches(message, model.keys.Up):
			model.setCursor(model.cylinder(), model.head()-1)
		case key.Matches(message, model.keys.Down):
			model.setCursor(model.cylinder(), model.head()+1)
		case key.Matches(message, model.keys.Left):
			model.setCursor(model.cylinder()-1, model.head())
		case key.Matches(message, model.keys.Right):
			model.setCursor(model.cylinder()+1, model.head())
		case key.Matches(message, model.keys.Home):
			model.setCursor(0, model.head())
		case key.Matches(message, model.keys.End):
			model.setCursor(model.protectionMap.Cylinders-1, model.head())
		case key.Matches(message, model.keys.PageUp):
			model.detail.HalfViewUp()
		case key.Matches(message, model.keys.PageDown):
			model.detail.HalfViewDown()
		}
	}
	return model, nil
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "Loading..."
	}
	if !model.hasTracks() {
		return "No protection map."
	}

	separator := model.renderer.NewStyle().
		Foreground(model.theme.BorderColor).
		Render(strings.Repeat("─", model.width))

	sections := []string{
		model.renderTitle(),
		renderGrid(model.protectionMap, model.width, model.cursor, model.theme, model.renderer),
		separator,
		model.detail.View(),
		separator,
		model.help.View(model.keys),
	}
	return strings.Join(sections, "\n")
}

func (model Model) hasTracks() bool {
	return model.protectionMap != nil && len(model.protectionMap.Tracks) > 0
}

func (model Model) cylinder() int { return model.cursor / model.protectionMap.Heads }
func (model Model) head() int     { return model.cursor % model.protectionMap.Heads }

// setCursor clamps the target position to the map and refreshes the
// detail pane when the cursor actually moved.
func (model *Model) setCursor(cylinder, head int) {
	m := model.protectionMap
	if cylinder < 0 {
		cylinder = 0
	}
	if cylinder >= m.Cylinders {
		cylinder = m.Cylinders - 1
	}
	if head < 0 {
		head = 0
	}
	if head >= m.Heads {
		head = m.Heads - 1
	}
	index := cylinder*m.Heads + head
	if index == model.cursor {
		return
	}
	model.cursor = index
	model.refreshDetail()
}

// detailHeight returns the lines left for the detail pane after the
// title, the surface map, two separators, and the help bar.
func (model Model) detailHeight() int {
	helpHeight := lipgloss.Height(model.help.View(model.keys))
	used := 1 + gridLines(model.protectionMap, model.width) + 2 + helpHeight
	height := model.height - used
	if height < 3 {
		height = 3
	}
	return height
}

func (model *Model) refreshDetail() {
	if !model.hasTracks() {
		model.detail.SetContent("")
		return
	}
	model.detail.SetContent(model.detailContent())
	model.detail.GotoTop()
}

func (model Model) renderTitle() string {
	m := model.protectionMap
	title := "No protection detected"
	if m.Scheme != "" {
		title = fmt.Sprintf("%s (confidence %d%%)", m.Scheme, m.Confidence)
	}
	bold := model.renderer.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground)
	faint := model.renderer.NewStyle().Foreground(model.theme.FaintText)
	dimensions := fmt.Sprintf("  %d cylinders, %d heads", m.Cylinders, m.Heads)
	return ansi.Truncate(bold.Render(title)+faint.Render(dimensions), model.width, "…")
}

// detailContent renders the selected track: position and status on
// the first line, the bit length line when the track was analyzed,
// then one line per artifact.
func (model Model) detailContent() string {
	track := &model.protectionMap.Tracks[model.cursor]

	normal := model.renderer.NewStyle().Foreground(model.theme.NormalText)
	faint := model.renderer.NewStyle().Foreground(model.theme.FaintText)
	bold := model.renderer.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground)

	status := classifyTrack(track)
	statusGlyph := model.renderer.NewStyle().
		Foreground(model.theme.statusColor(status)).
		Render(status.glyph())

	var lines []string
	lines = append(lines, bold.Render(fmt.Sprintf("Track %d.%d", track.Cylinder, track.Head))+
		"  "+statusGlyph+faint.Render(" "+status.label()))

	if track.TrackLengthBits > 0 {
		length := fmt.Sprintf("%d bits", track.TrackLengthBits)
		if track.ExpectedLengthBits > 0 {
			length += fmt.Sprintf(" (expected %d)", track.ExpectedLengthBits)
		}
		lines = append(lines, faint.Render(length))
	}

	if len(track.Artifacts) == 0 {
		lines = append(lines, faint.Render("No artifacts."))
	}
	for i := range track.Artifacts {
		artifact := &track.Artifacts[i]
		kindStyle := model.renderer.NewStyle().
			Foreground(model.theme.artifactColor(artifact.Kind))
		location := "track"
		if artifact.Sector != protection.TrackLevel {
			location = fmt.Sprintf("sector %d", artifact.Sector)
		}
		line := kindStyle.Render(artifact.Kind.String()) +
			faint.Render(fmt.Sprintf("  %s, %d%%", location, artifact.Confidence))
		if artifact.Description != "" {
			line += normal.Render("  " + artifact.Description)
		}
		lines = append(lines, ansi.Truncate(line, model.width, "…"))
	}
	return strings.Join(lines, "\n")
}
