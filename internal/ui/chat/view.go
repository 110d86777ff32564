// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cockpit-tui/internal/ui/components"
	"github.com/jeranaias/cockpit-tui/internal/ui/styles"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full cockpit frame: header, transcript with an
// optional side panel, transient chrome, input line, status bar. Help
// and the request drawer replace the frame while open.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 || !m.ready {
		return "starting cockpit..."
	}

	if m.showHelp {
		return m.helpView.View()
	}
	if m.showDrawer {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.drawer.View())
	}

	m.syncChrome()

	header := m.header.View()
	if m.cfg.UI.CompactMode || m.height < 20 {
		header = m.header.ViewCompact()
	}

	main := m.renderMain()
	extras := m.renderExtras()
	inputLine := m.renderInputLine()
	status := m.statusBar.View()

	// The resize-time reserves are estimates; measure the chrome that
	// actually rendered and force the main row to fit what is left.
	chromeH := lipgloss.Height(header) + lipgloss.Height(inputLine) + lipgloss.Height(status)
	for _, ex := range extras {
		chromeH += lipgloss.Height(ex)
	}
	available := m.height - chromeH
	if available < 1 {
		available = 1
	}
	if lipgloss.Height(main) != available {
		main = lipgloss.NewStyle().
			Height(available).
			MaxHeight(available).
			Width(m.width).
			Render(main)
	}

	parts := make([]string, 0, 4+len(extras))
	parts = append(parts, header, main)
	parts = append(parts, extras...)
	parts = append(parts, inputLine, status)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// syncChrome pushes current model state into the chrome components.
// Components are pointers, so a value-receiver View still reaches them.
func (m *Model) syncChrome() {
	sid := m.sess.SessionID()

	m.header.SetSession(sid, m.activeRuntime)
	m.header.SetFeedState(m.feedState)

	m.statusBar.SetSession(sid)
	m.statusBar.SetChatMode(string(m.chatMode))
	m.statusBar.SetStatus(m.uiStatus())
	m.statusBar.SetQueue(m.queueStatus.Depth, m.queueStatus.Paused)
	m.statusBar.SetPending(m.tracker.Len())
	m.statusBar.ShowLatency = m.cfg.UI.ShowLatency
	if m.latency != nil {
		stats := m.latency.SessionStats(sid)
		m.statusBar.SetLatency(stats.AvgDurationMs, stats.P95DurationMs)
	}

	if m.showQueue {
		m.queuePanel.SetTasks(m.board.All())
		m.queuePanel.SetStatus(m.queueStatus)
	}
	if m.showTel && m.latency != nil {
		m.telPanel.SetStats(m.latency.SessionStats(sid))
		m.telPanel.SetRecent(m.latency.Recent(sid, 8))
	}
}

// uiStatus maps model state to the status bar indicator.
func (m *Model) uiStatus() components.Status {
	switch {
	case m.state == StateError:
		return components.StatusError
	case m.state == StateStreaming || m.activeMacro != "":
		return components.StatusStreaming
	case m.tracker.Len() > 0:
		return components.StatusWaiting
	}
	if warn := m.cfg.Session.IdleWarnMinutes; warn > 0 {
		if m.sess.GetStatus().IdleTime >= time.Duration(warn)*time.Minute {
			return components.StatusIdle
		}
	}
	return components.StatusReady
}

// renderMain renders the transcript, joined with the queue or
// telemetry panel when one is open.
func (m Model) renderMain() string {
	transcript := m.viewport.View()
	var panel string
	switch {
	case m.showQueue:
		panel = m.queuePanel.View()
	case m.showTel:
		panel = m.telPanel.View()
	default:
		return transcript
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, transcript, " ", panel)
}

// renderExtras renders the transient lines between transcript and
// input: wait indicator, error banner, completion popup.
func (m Model) renderExtras() []string {
	var extras []string
	if w := m.wait.View(); w != "" {
		extras = append(extras, w)
	}
	if m.lastError != nil {
		extras = append(extras, m.renderErrorBanner())
	}
	if m.completion.Visible && m.popup.HasCompletions() {
		extras = append(extras, m.popup.View())
	}
	return extras
}

// renderInputLine renders the prompt, or the vim chrome replacing it.
func (m Model) renderInputLine() string {
	if m.vim.Enabled() {
		switch m.vim.Mode() {
		case VimCommand:
			return lipgloss.NewStyle().
				Foreground(styles.Amber).
				Render(m.vim.CommandBuffer() + styles.StreamCursor)
		case VimNormal:
			badge := lipgloss.NewStyle().
				Background(styles.Emerald).
				Foreground(styles.TextInverse).
				Bold(true).
				Padding(0, 1).
				Render(m.vim.Mode().String())
			return badge + " " + m.input.View()
		}
	}
	return m.input.View()
}

// renderErrorBanner renders the dismissible error box.
func (m Model) renderErrorBanner() string {
	e := m.lastError

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(styles.Rose).Render(e.Title))
	if e.Message != "" {
		b.WriteString("\n")
		b.WriteString(e.Message)
	}
	if e.Tip != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(styles.TextMuted).Render("tip: " + e.Tip))
	}

	w := m.width - 4
	if w > 76 {
		w = 76
	}
	if w < 20 {
		w = 20
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Rose).
		Padding(0, 1).
		Width(w).
		Render(b.String())
}
