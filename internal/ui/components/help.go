// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cockpit-tui/internal/ui/styles"
)

// =============================================================================
// HELP OVERLAY COMPONENT
// =============================================================================

// HelpBinding is one key-to-action row in the help overlay.
type HelpBinding struct {
	Key  string
	Desc string
}

// HelpSection groups bindings under a heading.
type HelpSection struct {
	Title    string
	Bindings []HelpBinding
}

// HelpOverlay renders a centered help box. The chat model decides which
// sections apply to the current context; the overlay just draws them.
type HelpOverlay struct {
	Title    string
	Sections []HelpSection
	Footer   string
	Width    int
	Height   int
	theme    *styles.Theme
}

// NewHelpOverlay creates a new HelpOverlay.
func NewHelpOverlay(theme *styles.Theme) *HelpOverlay {
	return &HelpOverlay{
		Title:  "Keys",
		Footer: "Press ? or Esc to close",
		Width:  80,
		Height: 24,
		theme:  theme,
	}
}

// SetSize sets the terminal dimensions the overlay centers within.
func (h *HelpOverlay) SetSize(width, height int) {
	if width > 0 {
		h.Width = width
	}
	if height > 0 {
		h.Height = height
	}
}

// SetSections replaces the displayed sections.
func (h *HelpOverlay) SetSections(title string, sections []HelpSection) {
	h.Title = title
	h.Sections = sections
}

// View renders the overlay centered in the configured terminal size.
func (h *HelpOverlay) View() string {
	var sb strings.Builder

	sb.WriteString(h.theme.HelpTitle.Render(h.Title) + "\n")
	sb.WriteString(strings.Repeat("-", 35) + "\n\n")

	hasContent := false
	for _, section := range h.Sections {
		if len(section.Bindings) == 0 {
			continue
		}
		hasContent = true
		sb.WriteString(h.theme.HelpSection.Render(section.Title) + "\n")
		for _, binding := range section.Bindings {
			sb.WriteString("  " +
				h.theme.HelpKey.Render(binding.Key) + "  " +
				h.theme.HelpDesc.Render(binding.Desc) + "\n")
		}
		sb.WriteString("\n")
	}
	if !hasContent {
		sb.WriteString("  No bindings for this mode.\n\n")
	}

	sb.WriteString(strings.Repeat("-", 35) + "\n")
	sb.WriteString(lipgloss.NewStyle().
		Foreground(styles.OverlayDim).
		Render(h.Footer))

	content := sb.String()

	boxWidth := 55
	if boxWidth > h.Width-4 {
		boxWidth = h.Width - 4
	}
	if boxWidth < 30 {
		boxWidth = 30
	}

	contentHeight := strings.Count(content, "\n") + 3
	if contentHeight > h.Height-4 {
		contentHeight = h.Height - 4
	}

	box := h.theme.HelpBox.
		Width(boxWidth).
		MaxHeight(contentHeight).
		Render(content)

	// Center within the terminal.
	marginLeft := (h.Width - lipgloss.Width(box)) / 2
	if marginLeft < 0 {
		marginLeft = 0
	}
	marginTop := (h.Height - lipgloss.Height(box)) / 2
	if marginTop < 0 {
		marginTop = 0
	}

	return lipgloss.NewStyle().
		MarginLeft(marginLeft).
		MarginTop(marginTop).
		Render(box)
}
