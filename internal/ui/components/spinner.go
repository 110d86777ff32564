// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cockpit-tui/internal/ui/styles"
)

// =============================================================================
// SPINNER MODEL
// =============================================================================

// Spinner wraps the bubbles spinner with cockpit styling and an elapsed
// timer. All frame sets are plain ASCII.
type Spinner struct {
	spinner spinner.Model

	message   string
	detail    string
	startTime time.Time

	isActive  bool
	showTimer bool
}

// SpinnerStyle selects one of the preset frame sets.
type SpinnerStyle int

const (
	SpinnerLine  SpinnerStyle = iota // rotating line
	SpinnerDots                      // walking dots
	SpinnerPulse                     // expanding pulse
)

// bubblesSpinner converts a preset into the bubbles representation.
func bubblesSpinner(cfg styles.SpinnerConfig) spinner.Spinner {
	return spinner.Spinner{
		Frames: cfg.Frames,
		FPS:    cfg.Duration(),
	}
}

// NewSpinner creates a line spinner with the timer enabled.
func NewSpinner() Spinner {
	s := spinner.New()
	s.Spinner = bubblesSpinner(styles.LineSpinner)

	return Spinner{
		spinner:   s,
		message:   "Working",
		showTimer: true,
	}
}

// NewWaitingSpinner creates the spinner shown while a request sits with
// the orchestrator before any output arrives.
func NewWaitingSpinner() Spinner {
	s := NewSpinner()
	s.message = "Waiting on orchestrator"
	return s
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// SetStyle changes the frame set.
func (s *Spinner) SetStyle(style SpinnerStyle) {
	switch style {
	case SpinnerDots:
		s.spinner.Spinner = bubblesSpinner(styles.DotsSpinner)
	case SpinnerPulse:
		s.spinner.Spinner = bubblesSpinner(styles.PulseSpinner)
	default:
		s.spinner.Spinner = bubblesSpinner(styles.LineSpinner)
	}
}

// SetMessage sets the text displayed next to the spinner.
func (s *Spinner) SetMessage(msg string) {
	s.message = msg
}

// SetDetail sets additional detail text below the spinner.
func (s *Spinner) SetDetail(detail string) {
	s.detail = detail
}

// SetShowTimer enables or disables the elapsed time display.
func (s *Spinner) SetShowTimer(show bool) {
	s.showTimer = show
}

// =============================================================================
// STATE MANAGEMENT
// =============================================================================

// Start activates the spinner and records the start time.
func (s *Spinner) Start() tea.Cmd {
	s.isActive = true
	s.startTime = time.Now()
	return s.spinner.Tick
}

// Stop deactivates the spinner.
func (s *Spinner) Stop() {
	s.isActive = false
}

// IsActive returns whether the spinner is currently running.
func (s *Spinner) IsActive() bool {
	return s.isActive
}

// GetElapsed returns the duration since the spinner started.
func (s *Spinner) GetElapsed() time.Duration {
	if s.startTime.IsZero() {
		return 0
	}
	return time.Since(s.startTime)
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init initializes the spinner.
func (s Spinner) Init() tea.Cmd {
	return nil
}

// Update handles messages for the spinner.
func (s Spinner) Update(msg tea.Msg) (Spinner, tea.Cmd) {
	if !s.isActive {
		return s, nil
	}

	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return s, cmd
}

// View renders the spinner line.
func (s Spinner) View() string {
	if !s.isActive {
		return ""
	}

	frame := lipgloss.NewStyle().
		Foreground(styles.Purple).
		Render(s.spinner.View())

	message := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Render(s.message)

	dots := lipgloss.NewStyle().
		Foreground(styles.Purple).
		Render("...")

	result := frame + " " + message + dots

	if s.showTimer && !s.startTime.IsZero() {
		timer := lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Render(" (" + fmtDuration(time.Since(s.startTime)) + ")")
		result += timer
	}

	if s.detail != "" {
		detail := lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			PaddingLeft(2).
			Render(s.detail)
		result += "\n" + detail
	}

	return result
}

// =============================================================================
// WAIT INDICATOR
// =============================================================================

// WaitIndicator is the spinner shown between submission and the first
// streamed token, with a detail line for the current phase.
type WaitIndicator struct {
	spinner   Spinner
	startTime time.Time
}

// NewWaitIndicator creates a new wait indicator.
func NewWaitIndicator() WaitIndicator {
	return WaitIndicator{
		spinner: NewWaitingSpinner(),
	}
}

// Start begins the animation.
func (w *WaitIndicator) Start() tea.Cmd {
	w.startTime = time.Now()
	return w.spinner.Start()
}

// Stop ends the animation.
func (w *WaitIndicator) Stop() {
	w.spinner.Stop()
}

// SetDetail sets the phase text, e.g. "queued behind 3 requests".
func (w *WaitIndicator) SetDetail(detail string) {
	w.spinner.SetDetail(detail)
}

// IsActive returns whether the indicator is running.
func (w *WaitIndicator) IsActive() bool {
	return w.spinner.IsActive()
}

// GetElapsed returns time spent waiting.
func (w *WaitIndicator) GetElapsed() time.Duration {
	if w.startTime.IsZero() {
		return 0
	}
	return time.Since(w.startTime)
}

// Update handles messages.
func (w WaitIndicator) Update(msg tea.Msg) (WaitIndicator, tea.Cmd) {
	var cmd tea.Cmd
	w.spinner, cmd = w.spinner.Update(msg)
	return w, cmd
}

// View renders the indicator.
func (w WaitIndicator) View() string {
	return w.spinner.View()
}

// =============================================================================
// INLINE SPINNER
// =============================================================================

// InlineSpinner is a minimal one-character spinner for status lines.
type InlineSpinner struct {
	spinner spinner.Model
	active  bool
}

// NewInlineSpinner creates a minimal inline spinner.
func NewInlineSpinner() InlineSpinner {
	s := spinner.New()
	s.Spinner = bubblesSpinner(styles.LineSpinner)
	return InlineSpinner{spinner: s}
}

// Start begins the spinner.
func (i *InlineSpinner) Start() tea.Cmd {
	i.active = true
	return i.spinner.Tick
}

// Stop ends the spinner.
func (i *InlineSpinner) Stop() {
	i.active = false
}

// Update handles messages.
func (i InlineSpinner) Update(msg tea.Msg) (InlineSpinner, tea.Cmd) {
	if !i.active {
		return i, nil
	}
	var cmd tea.Cmd
	i.spinner, cmd = i.spinner.Update(msg)
	return i, cmd
}

// View renders just the spinner character.
func (i InlineSpinner) View() string {
	if !i.active {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(styles.Purple).
		Render(i.spinner.View())
}
