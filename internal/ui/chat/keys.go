// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/jeranaias/cockpit-tui/internal/commands"
	"github.com/jeranaias/cockpit-tui/internal/ui/components"
)

// =============================================================================
// KEY BINDINGS
// =============================================================================

// KeyMap defines the chat view key bindings. Plain letters stay free
// for typing; app actions live on control chords, except "?" which
// opens help only while the input is empty.
//
// ctrl+a/e/k/u/w are left to the input line for readline-style
// editing. ctrl+s is avoided entirely: terminals eat it for flow
// control.
type KeyMap struct {
	Submit        key.Binding
	Quit          key.Binding
	EmergencyQuit key.Binding
	Help          key.Binding
	Dismiss       key.Binding

	ClearTranscript key.Binding
	CycleMode       key.Binding
	DropRequest     key.Binding

	ToggleQueue     key.Binding
	ToggleTelemetry key.Binding
	OpenDrawer      key.Binding

	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding

	CompleteNext   key.Binding
	CompletePrev   key.Binding
	CompleteAccept key.Binding
}

// DefaultKeyMap returns the default chat key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "submit"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "drop stream / clear / quit"),
		),
		EmergencyQuit: key.NewBinding(
			key.WithKeys("ctrl+q"),
			key.WithHelp("ctrl+q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help (empty input)"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "dismiss / clear"),
		),
		ClearTranscript: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "clear transcript"),
		),
		CycleMode: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "cycle chat mode"),
		),
		DropRequest: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "drop newest pending"),
		),
		ToggleQueue: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "queue panel"),
		),
		ToggleTelemetry: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "telemetry panel"),
		),
		OpenDrawer: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "inspect selected task"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
		Top: key.NewBinding(
			key.WithKeys("home"),
			key.WithHelp("home", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("end"),
			key.WithHelp("end", "bottom"),
		),
		CompleteNext: key.NewBinding(
			key.WithKeys("tab", "ctrl+n"),
			key.WithHelp("tab", "next completion"),
		),
		CompletePrev: key.NewBinding(
			key.WithKeys("shift+tab", "ctrl+p"),
			key.WithHelp("shift+tab", "prev completion"),
		),
		CompleteAccept: key.NewBinding(
			key.WithKeys("enter", "tab"),
			key.WithHelp("enter", "accept completion"),
		),
	}
}

// ShortHelp returns the bindings shown in the one-line help hint.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Help, k.ToggleQueue, k.EmergencyQuit}
}

// FullHelp returns all bindings grouped in columns.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Help, k.Dismiss, k.EmergencyQuit, k.Quit},
		{k.ClearTranscript, k.CycleMode, k.DropRequest},
		{k.ToggleQueue, k.ToggleTelemetry, k.OpenDrawer},
		{k.PageUp, k.PageDown, k.Top, k.Bottom},
	}
}

// =============================================================================
// HELP OVERLAY CONTENT
// =============================================================================

// helpSections builds the help overlay content: key bindings grouped
// by concern, the vim section when vim mode is on, and the registered
// slash commands.
func helpSections(vimEnabled bool, registry *commands.Registry) []components.HelpSection {
	sections := []components.HelpSection{
		{
			Title: "General",
			Bindings: []components.HelpBinding{
				{Key: "enter", Desc: "submit prompt or command"},
				{Key: "?", Desc: "toggle this help (input must be empty)"},
				{Key: "esc", Desc: "close overlay, clear completion, clear input"},
				{Key: "ctrl+r", Desc: "cycle chat mode (direct > normal > complex)"},
				{Key: "ctrl+l", Desc: "clear transcript"},
				{Key: "ctrl+x", Desc: "drop newest pending request"},
				{Key: "ctrl+c", Desc: "drop stream, else clear input, else quit"},
				{Key: "ctrl+q", Desc: "quit immediately"},
			},
		},
		{
			Title: "Panels",
			Bindings: []components.HelpBinding{
				{Key: "ctrl+t", Desc: "toggle queue panel"},
				{Key: "ctrl+g", Desc: "toggle telemetry panel"},
				{Key: "up/down", Desc: "select task (queue panel open)"},
				{Key: "enter", Desc: "inspect selected task (queue panel open)"},
			},
		},
		{
			Title: "Scrolling",
			Bindings: []components.HelpBinding{
				{Key: "pgup/pgdn", Desc: "scroll transcript"},
				{Key: "home/end", Desc: "jump to top / bottom"},
				{Key: "wheel", Desc: "scroll transcript"},
			},
		},
		{
			Title: "Completion",
			Bindings: []components.HelpBinding{
				{Key: "tab", Desc: "next suggestion / accept"},
				{Key: "shift+tab", Desc: "previous suggestion"},
				{Key: "esc", Desc: "dismiss suggestions"},
			},
		},
	}

	if vimEnabled {
		sections = append(sections, components.HelpSection{
			Title: "Vim",
			Bindings: []components.HelpBinding{
				{Key: "esc", Desc: "normal mode"},
				{Key: "i a I A", Desc: "insert mode"},
				{Key: "j k", Desc: "scroll line (counts work: 5j)"},
				{Key: "ctrl+d/u", Desc: "half page down / up"},
				{Key: "gg / G", Desc: "top / bottom"},
				{Key: ":w", Desc: "flush session cache"},
				{Key: ":q", Desc: "quit"},
			},
		})
	}

	if registry != nil {
		bindings := make([]components.HelpBinding, 0, 16)
		for _, cmd := range registry.All() {
			bindings = append(bindings, components.HelpBinding{
				Key:  cmd.Name,
				Desc: cmd.Description,
			})
		}
		if len(bindings) > 0 {
			sections = append(sections, components.HelpSection{
				Title:    "Commands",
				Bindings: bindings,
			})
		}
	}

	return sections
}
