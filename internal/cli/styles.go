// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// SHARED CLI STYLES
// =============================================================================

func init() {
	// Pin the profile before any style renders so NO_COLOR and piped
	// output come out clean.
	lipgloss.SetColorProfile(GetColorProfile())
}

// Shared styles for command output. The full-screen TUI has its own
// theme in internal/ui/styles; these cover the plain-terminal
// commands only.
var (
	// TitleStyle renders command output titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	// SectionStyle renders section headers.
	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("14"))

	// LabelStyle renders field labels in aligned columns.
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Width(20)

	// ValueStyle renders field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15"))

	// SuccessStyle renders healthy / completed states.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	// ErrorStyle renders failures.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	// WarningStyle renders degraded states.
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	// DimStyle renders secondary detail.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
)
