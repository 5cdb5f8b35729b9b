// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package diskui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the interactive track viewer.
type KeyMap struct {
	// Cursor movement over the surface map.
	Up    key.Binding // Previous head.
	Down  key.Binding // Next head.
	Left  key.Binding // Previous cylinder.
	Right key.Binding // Next cylinder.
	Home  key.Binding
	End   key.Binding

	// Detail pane scrolling.
	PageUp   key.Binding
	PageDown key.Binding

	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set. Vim-style navigation
// (h/j/k/l) alongside standard arrow keys.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "head up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "head down"),
	),
	Left: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h/←", "cylinder left"),
	),
	Right: key.NewBinding(
		key.WithKeys("l", "right"),
		key.WithHelp("l/→", "cylinder right"),
	),
	Home: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "first cylinder"),
	),
	End: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "last cylinder"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("C-u", "scroll detail up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("C-d", "scroll detail down"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap and backs the single-line help bar.
func (keys KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{keys.Left, keys.Right, keys.Up, keys.Down, keys.Help, keys.Quit}
}

// FullHelp implements help.KeyMap and backs the expanded help view.
func (keys KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{keys.Left, keys.Right, keys.Up, keys.Down},
		{keys.Home, keys.End, keys.PageUp, keys.PageDown},
		{keys.Help, keys.Quit},
	}
}
