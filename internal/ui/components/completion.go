// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cockpit-tui/internal/commands"
	"github.com/jeranaias/cockpit-tui/internal/ui/styles"
	"github.com/jeranaias/cockpit-tui/internal/util"
)

// =============================================================================
// COMPLETION POPUP COMPONENT
// =============================================================================

// CompletionPopup displays slash command and argument suggestions above
// the input line.
type CompletionPopup struct {
	completions []commands.Completion
	selected    int
	maxVisible  int
	width       int
	theme       *styles.Theme
}

// NewCompletionPopup creates a new completion popup.
func NewCompletionPopup(theme *styles.Theme) *CompletionPopup {
	return &CompletionPopup{
		maxVisible: 8,
		width:      50,
		theme:      theme,
	}
}

// SetCompletions sets the completions to display.
func (c *CompletionPopup) SetCompletions(completions []commands.Completion) {
	c.completions = completions
	c.selected = 0
}

// SetSelected sets the selected index.
func (c *CompletionPopup) SetSelected(index int) {
	if index < 0 || index >= len(c.completions) {
		return
	}
	c.selected = index
}

// GetSelected returns the selected index.
func (c *CompletionPopup) GetSelected() int {
	return c.selected
}

// Next selects the next completion, wrapping.
func (c *CompletionPopup) Next() {
	if len(c.completions) == 0 {
		return
	}
	c.selected = (c.selected + 1) % len(c.completions)
}

// Prev selects the previous completion, wrapping.
func (c *CompletionPopup) Prev() {
	if len(c.completions) == 0 {
		return
	}
	c.selected--
	if c.selected < 0 {
		c.selected = len(c.completions) - 1
	}
}

// GetSelectedCompletion returns the currently selected completion, or nil.
func (c *CompletionPopup) GetSelectedCompletion() *commands.Completion {
	if c.selected < 0 || c.selected >= len(c.completions) {
		return nil
	}
	return &c.completions[c.selected]
}

// HasCompletions returns true if there are completions to show.
func (c *CompletionPopup) HasCompletions() bool {
	return len(c.completions) > 0
}

// Clear clears all completions.
func (c *CompletionPopup) Clear() {
	c.completions = nil
	c.selected = 0
}

// SetWidth sets the popup width.
func (c *CompletionPopup) SetWidth(width int) {
	if width < 30 {
		width = 30
	}
	c.width = width
}

// SetMaxVisible sets the maximum number of visible completions.
func (c *CompletionPopup) SetMaxVisible(max int) {
	if max > 0 {
		c.maxVisible = max
	}
}

// View renders the completion popup.
func (c *CompletionPopup) View() string {
	if len(c.completions) == 0 {
		return ""
	}

	// Scrolling window keeping the selection centered.
	start := 0
	end := len(c.completions)
	if len(c.completions) > c.maxVisible {
		start = c.selected - c.maxVisible/2
		if start < 0 {
			start = 0
		}
		end = start + c.maxVisible
		if end > len(c.completions) {
			end = len(c.completions)
			start = end - c.maxVisible
			if start < 0 {
				start = 0
			}
		}
	}

	items := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		items = append(items, c.renderItem(c.completions[i], i == c.selected))
	}

	content := strings.Join(items, "\n")
	if len(c.completions) > c.maxVisible {
		counter := lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Render(fmtNumber(c.selected+1) + "/" + fmtNumber(len(c.completions)))
		content += "\n" + c.renderDivider() + "\n" + counter
	}

	return c.theme.CompletionPopup.
		Width(c.width).
		MaxWidth(c.width).
		Render(content)
}

// renderItem renders a single completion row.
func (c *CompletionPopup) renderItem(comp commands.Completion, isSelected bool) string {
	valueStyle := c.theme.CompletionItem.Width(20)
	descStyle := lipgloss.NewStyle().
		Width(c.width - 24).
		Foreground(styles.TextSecondary)
	if isSelected {
		valueStyle = c.theme.CompletionSelected.Width(20)
		descStyle = descStyle.Foreground(styles.TextPrimary)
	}

	value := comp.Display
	if value == "" {
		value = comp.Value
	}
	// The current value of a setting gets a marker so /theme and
	// friends show where you are.
	if comp.IsCurrent {
		value += " *"
	}
	value = util.TruncateRunes(value, 20)

	desc := util.TruncateRunes(comp.Description, c.width-24)

	indicator := " "
	if isSelected {
		indicator = ">"
	}
	indicatorStyle := lipgloss.NewStyle().
		Width(2).
		Foreground(styles.Cyan)

	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		indicatorStyle.Render(indicator),
		valueStyle.Render(value),
		descStyle.Render(desc),
	)
}

// renderDivider renders a divider line.
func (c *CompletionPopup) renderDivider() string {
	return lipgloss.NewStyle().
		Foreground(styles.OverlayDim).
		Render(strings.Repeat("-", c.width-2))
}

// ViewCompact renders a one-line completion hint for narrow layouts.
func (c *CompletionPopup) ViewCompact() string {
	if len(c.completions) == 0 {
		return ""
	}

	style := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true)

	if len(c.completions) == 1 {
		value := c.completions[0].Display
		if value == "" {
			value = c.completions[0].Value
		}
		return style.Render("Tab: complete \"" + value + "\"")
	}
	return style.Render("Tab: " + fmtNumber(len(c.completions)) + " completions")
}
