// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the cockpit TUI.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cockpit-tui/internal/ui/styles"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// FeedState describes the event feed connection for the header badge.
type FeedState int

const (
	FeedConnected FeedState = iota
	FeedReconnecting
	FeedDisconnected
)

// String returns the display string for the feed state.
func (f FeedState) String() string {
	switch f {
	case FeedConnected:
		return "LIVE"
	case FeedReconnecting:
		return "RECONNECTING"
	case FeedDisconnected:
		return "OFFLINE"
	default:
		return "UNKNOWN"
	}
}

// Header is the top title bar: brand, session, active runtime, and the
// feed connection badge.
type Header struct {
	Title     string // default "cockpit"
	SessionID string
	Runtime   string // active orchestrator runtime name
	Feed      FeedState
	Width     int
	theme     *styles.Theme
}

// NewHeader creates a new Header component with default values.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: "cockpit",
		Feed:  FeedDisconnected,
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetSession updates the session id and active runtime.
func (h *Header) SetSession(sessionID, runtime string) {
	h.SessionID = sessionID
	h.Runtime = runtime
}

// SetFeedState updates the feed connection badge.
func (h *Header) SetFeedState(state FeedState) {
	h.Feed = state
}

// View renders the header as a bordered box for wide layouts.
func (h *Header) View() string {
	width := h.Width
	if width < 40 {
		width = 40
	}
	innerWidth := width - 6

	brandStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.Cyan)
	accentStyle := lipgloss.NewStyle().
		Foreground(styles.Purple)

	brand := accentStyle.Render("< ") +
		brandStyle.Render(h.Title) +
		accentStyle.Render(" >")

	var metaParts []string
	if h.SessionID != "" {
		metaParts = append(metaParts, lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Render(h.SessionID))
	}
	if h.Runtime != "" {
		metaParts = append(metaParts, lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Bold(true).
			Render("@"+h.Runtime))
	}
	metaParts = append(metaParts, h.feedBadge())

	meta := strings.Join(metaParts, " ")

	brandLine := lipgloss.NewStyle().
		Width(innerWidth).
		Align(lipgloss.Center).
		Render(brand)

	metaLine := lipgloss.NewStyle().
		Width(innerWidth).
		Align(lipgloss.Center).
		Foreground(styles.TextMuted).
		Render(meta)

	content := lipgloss.JoinVertical(lipgloss.Center, brandLine, metaLine)

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Purple).
		Background(styles.SurfaceDim).
		Padding(0, 2).
		Width(width).
		Render(content)
}

// ViewCompact renders a single-line header for narrow terminals.
// Format: <cockpit> | sess_xyz | @runtime | [LIVE]
func (h *Header) ViewCompact() string {
	brandStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(styles.Cyan)
	accentStyle := lipgloss.NewStyle().
		Foreground(styles.Purple)

	brand := accentStyle.Render("<") +
		brandStyle.Render(h.Title) +
		accentStyle.Render(">")

	parts := []string{brand}

	if h.SessionID != "" {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Render(shortID(h.SessionID)))
	}
	if h.Runtime != "" {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Render("@"+h.Runtime))
	}
	parts = append(parts, h.feedBadge())

	separator := lipgloss.NewStyle().
		Foreground(styles.Overlay).
		Render(" | ")

	return strings.Join(parts, separator)
}

// feedBadge renders the feed connection state with color and shape.
func (h *Header) feedBadge() string {
	switch h.Feed {
	case FeedConnected:
		return lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Render("[" + h.Feed.String() + "]")
	case FeedReconnecting:
		return lipgloss.NewStyle().
			Foreground(styles.Amber).
			Bold(true).
			Render("[" + h.Feed.String() + "]")
	default:
		return lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true).
			Render("[" + h.Feed.String() + "]")
	}
}
