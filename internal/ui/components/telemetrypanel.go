// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cockpit-tui/internal/telemetry"
	"github.com/jeranaias/cockpit-tui/internal/ui/styles"
	"github.com/jeranaias/cockpit-tui/internal/util"
)

// =============================================================================
// TELEMETRY PANEL COMPONENT
// =============================================================================

// TelemetryPanel renders session latency statistics and the most recent
// samples with a relative latency bar.
type TelemetryPanel struct {
	Stats     telemetry.Stats
	Recent    []telemetry.Sample
	Width     int
	MaxRecent int
	theme     *styles.Theme
}

// NewTelemetryPanel creates a new TelemetryPanel.
func NewTelemetryPanel(theme *styles.Theme) *TelemetryPanel {
	return &TelemetryPanel{
		Width:     44,
		MaxRecent: 6,
		theme:     theme,
	}
}

// SetStats sets the aggregate statistics.
func (p *TelemetryPanel) SetStats(stats telemetry.Stats) {
	p.Stats = stats
}

// SetRecent sets the recent samples, newest first.
func (p *TelemetryPanel) SetRecent(samples []telemetry.Sample) {
	p.Recent = samples
}

// SetWidth sets the panel width.
func (p *TelemetryPanel) SetWidth(width int) {
	if width < 30 {
		width = 30
	}
	p.Width = width
}

// View renders the panel.
func (p *TelemetryPanel) View() string {
	var sections []string

	sections = append(sections, p.theme.PanelTitle.Render("LATENCY"))

	if p.Stats.Count == 0 {
		sections = append(sections, p.theme.PanelMuted.Render("no completed requests yet"))
	} else {
		sections = append(sections, p.renderStats()...)
	}

	if len(p.Recent) > 0 {
		sections = append(sections, "")
		sections = append(sections, p.theme.PanelTitle.Render("RECENT"))
		sections = append(sections, p.renderRecent()...)
	}

	body := strings.Join(sections, "\n")
	return p.theme.PanelBox.Width(p.Width).Render(body)
}

// renderStats renders the aggregate block, one labeled row per metric.
func (p *TelemetryPanel) renderStats() []string {
	rows := []string{
		p.statRow("requests", fmtNumber(p.Stats.Count)),
		p.statRow("avg", fmtMs(p.Stats.AvgDurationMs)),
		p.statRow("p50", fmtMs(p.Stats.P50DurationMs)),
		p.statRow("p95", fmtMs(p.Stats.P95DurationMs)),
		p.statRow("max", fmtMs(p.Stats.MaxDurationMs)),
	}
	if p.Stats.AvgTTFTMs > 0 {
		rows = append(rows, p.statRow("avg ttft", fmtMs(p.Stats.AvgTTFTMs)))
	}
	if p.Stats.AvgHistoryMs > 0 {
		rows = append(rows, p.statRow("avg history", fmtMs(p.Stats.AvgHistoryMs)))
	}
	return rows
}

// statRow lines up a label and value in two columns.
func (p *TelemetryPanel) statRow(label, value string) string {
	l := p.theme.StatsLabel.Width(12).Render(label)
	v := p.theme.StatsValue.Render(value)
	return l + " " + v
}

// renderRecent renders one line per sample: duration bar, duration,
// status-colored prompt excerpt. Bars are scaled to the slowest of the
// visible samples so relative cost is readable at a glance.
func (p *TelemetryPanel) renderRecent() []string {
	samples := p.Recent
	if len(samples) > p.MaxRecent {
		samples = samples[:p.MaxRecent]
	}

	var scale int64
	for _, s := range samples {
		if s.DurationMs > scale {
			scale = s.DurationMs
		}
	}

	barWidth := 10
	rows := make([]string, 0, len(samples))
	for _, s := range samples {
		bar := lipgloss.NewStyle().
			Foreground(styles.StatusColor(s.Status)).
			Render(styles.RenderLatencyBar(barWidth, s.DurationMs, scale))

		dur := p.theme.PanelValue.Width(7).Align(lipgloss.Right).Render(fmtMs(s.DurationMs))

		used := barWidth + 7 + 7
		promptWidth := p.Width - used
		if promptWidth < 8 {
			promptWidth = 8
		}
		prompt := p.theme.PanelMuted.Render(
			util.TruncateWidth(strings.ReplaceAll(s.Prompt, "\n", " "), promptWidth))

		rows = append(rows, bar+" "+dur+" "+prompt)
	}
	return rows
}
