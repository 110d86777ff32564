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
// STATUS BAR COMPONENT
// =============================================================================

// Status represents the current application status.
type Status int

const (
	StatusReady Status = iota
	StatusStreaming
	StatusWaiting
	StatusError
	StatusIdle
)

// String returns the display string for the status.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusStreaming:
		return "Streaming..."
	case StatusWaiting:
		return "Waiting..."
	case StatusError:
		return "Error"
	case StatusIdle:
		return "Idle"
	default:
		return "Unknown"
	}
}

// Icon returns a shape indicator for the status, distinct without color.
func (s Status) Icon() string {
	switch s {
	case StatusReady:
		return "[OK]"
	case StatusStreaming:
		return "~"
	case StatusWaiting:
		return "[ ]"
	case StatusError:
		return "[X]"
	case StatusIdle:
		return "-"
	default:
		return "?"
	}
}

// StatusBar is the bottom bar: chat mode, queue state, in-flight count,
// latency summary, and keyboard hints on wide layouts.
type StatusBar struct {
	ChatMode    string // direct | normal | complex
	Status      Status
	Width       int
	QueueDepth  int
	QueuePaused bool
	Pending     int // optimistic entries still unresolved
	AvgMs       int64
	P95Ms       int64
	ShowLatency bool
	SessionID   string
	theme       *styles.Theme
}

// NewStatusBar creates a new StatusBar component.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		ChatMode:    "normal",
		Status:      StatusReady,
		Width:       80,
		ShowLatency: true,
		theme:       theme,
	}
}

// SetWidth updates the status bar width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// SetChatMode updates the chat mode segment.
func (s *StatusBar) SetChatMode(mode string) {
	s.ChatMode = mode
}

// SetStatus updates the current status.
func (s *StatusBar) SetStatus(status Status) {
	s.Status = status
}

// SetQueue updates the queue depth and paused flag.
func (s *StatusBar) SetQueue(depth int, paused bool) {
	s.QueueDepth = depth
	s.QueuePaused = paused
}

// SetPending updates the optimistic in-flight count.
func (s *StatusBar) SetPending(n int) {
	s.Pending = n
}

// SetLatency updates the latency summary segment.
func (s *StatusBar) SetLatency(avgMs, p95Ms int64) {
	s.AvgMs = avgMs
	s.P95Ms = p95Ms
}

// SetSession updates the session id segment.
func (s *StatusBar) SetSession(sessionID string) {
	s.SessionID = sessionID
}

// View renders the status bar, choosing a layout for the width.
func (s *StatusBar) View() string {
	if s.Width < 60 {
		return s.viewNarrow()
	}
	if s.Width < 100 {
		return s.viewMedium()
	}
	return s.viewWide()
}

// viewNarrow renders a compact bar: [M] q:2 ~
func (s *StatusBar) viewNarrow() string {
	parts := []string{}

	mode := s.ChatMode
	if mode == "" {
		mode = "normal"
	}
	modeChar := strings.ToUpper(mode[:1])
	parts = append(parts, s.modeStyle().Render("["+modeChar+"]"))

	if s.QueuePaused {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(styles.Amber).
			Bold(true).
			Render("||"))
	} else if s.QueueDepth > 0 {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Render("q:"+fmtNumber(s.QueueDepth)))
	}

	parts = append(parts, s.statusStyle().Render(s.Status.Icon()))

	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Foreground(styles.TextSecondary).
		Width(s.Width).
		Render(strings.Join(parts, " "))
}

// viewMedium renders: MODE | queue | pending | status
func (s *StatusBar) viewMedium() string {
	separator := lipgloss.NewStyle().
		Foreground(styles.Overlay).
		Render(" | ")

	parts := []string{
		s.modeStyle().Render(strings.ToUpper(s.ChatMode)),
		s.queueSegment(),
	}

	if s.Pending > 0 {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(styles.Amber).
			Render("pending:"+fmtNumber(s.Pending)))
	}

	parts = append(parts, s.statusStyle().Render(s.Status.String()))

	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Foreground(styles.TextSecondary).
		Padding(0, 1).
		Width(s.Width).
		Render(strings.Join(parts, separator))
}

// viewWide renders the full bar:
// sess_x | NORMAL | queue: 2 | pending: 1 | avg 820ms p95 2.1s | Ready | ^q quit
func (s *StatusBar) viewWide() string {
	separator := lipgloss.NewStyle().
		Foreground(styles.Overlay).
		Render(" | ")

	parts := []string{}

	if s.SessionID != "" {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Render(shortID(s.SessionID)))
	}

	parts = append(parts, s.modeStyle().Render(strings.ToUpper(s.ChatMode)))
	parts = append(parts, s.queueSegment())

	if s.Pending > 0 {
		parts = append(parts, lipgloss.NewStyle().
			Foreground(styles.Amber).
			Render("pending: "+fmtNumber(s.Pending)))
	}

	if s.ShowLatency && s.AvgMs > 0 {
		latency := "avg " + fmtMs(s.AvgMs)
		if s.P95Ms > 0 {
			latency += " p95 " + fmtMs(s.P95Ms)
		}
		parts = append(parts, lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Render(latency))
	}

	parts = append(parts, s.statusStyle().Render(s.Status.String()))

	left := strings.Join(parts, separator)

	// Right section: keyboard hints.
	keyStyle := lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(styles.TextMuted)
	hints := keyStyle.Render("^b") + descStyle.Render(" queue ") +
		keyStyle.Render("^t") + descStyle.Render(" stats ") +
		keyStyle.Render("F1") + descStyle.Render(" help")

	gap := s.Width - lipgloss.Width(left) - lipgloss.Width(hints) - 2
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Foreground(styles.TextSecondary).
		Padding(0, 1).
		Width(s.Width).
		Render(left + strings.Repeat(" ", gap) + hints)
}

// queueSegment renders the queue state with the paused badge taking
// precedence over the depth count.
func (s *StatusBar) queueSegment() string {
	if s.QueuePaused {
		return lipgloss.NewStyle().
			Foreground(styles.Amber).
			Bold(true).
			Render("|| PAUSED")
	}
	return lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Render("queue: " + fmtNumber(s.QueueDepth))
}

// modeStyle returns the style for the current chat mode.
func (s *StatusBar) modeStyle() lipgloss.Style {
	switch s.ChatMode {
	case "direct":
		return lipgloss.NewStyle().Foreground(styles.Emerald).Bold(true)
	case "complex":
		return lipgloss.NewStyle().Foreground(styles.Purple).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	}
}

// statusStyle returns the style for the current status.
func (s *StatusBar) statusStyle() lipgloss.Style {
	switch s.Status {
	case StatusReady:
		return lipgloss.NewStyle().Foreground(styles.Emerald)
	case StatusStreaming:
		return lipgloss.NewStyle().Foreground(styles.Cyan)
	case StatusWaiting:
		return lipgloss.NewStyle().Foreground(styles.Amber)
	case StatusError:
		return lipgloss.NewStyle().Foreground(styles.Rose).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(styles.TextMuted)
	}
}
