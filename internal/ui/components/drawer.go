// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cockpit-tui/internal/queue"
	"github.com/jeranaias/cockpit-tui/internal/telemetry"
	"github.com/jeranaias/cockpit-tui/internal/track"
	"github.com/jeranaias/cockpit-tui/internal/ui/styles"
	"github.com/jeranaias/cockpit-tui/internal/util"
)

// =============================================================================
// REQUEST DRAWER COMPONENT
// =============================================================================

// Drawer renders the detail overlay for one request. Any of the three
// sources may be nil; the drawer shows whatever it was handed.
type Drawer struct {
	Request *track.Request
	Task    *queue.Task
	Sample  *telemetry.Sample
	Width   int
	theme   *styles.Theme
}

// NewDrawer creates a new Drawer.
func NewDrawer(theme *styles.Theme) *Drawer {
	return &Drawer{
		Width: 56,
		theme: theme,
	}
}

// SetRequest sets the optimistic tracker entry to display.
func (d *Drawer) SetRequest(req *track.Request) {
	d.Request = req
}

// SetTask sets the board task to display.
func (d *Drawer) SetTask(task *queue.Task) {
	d.Task = task
}

// SetSample sets the latency sample to display.
func (d *Drawer) SetSample(sample *telemetry.Sample) {
	d.Sample = sample
}

// SetWidth sets the drawer width.
func (d *Drawer) SetWidth(width int) {
	if width < 40 {
		width = 40
	}
	d.Width = width
}

// View renders the drawer.
func (d *Drawer) View() string {
	if d.Request == nil && d.Task == nil {
		return d.theme.DrawerBox.Width(d.Width).Render(
			d.theme.DrawerTitle.Render("REQUEST DETAIL") + "\n" +
				d.theme.PanelMuted.Render("nothing selected"))
	}

	var rows []string
	rows = append(rows, d.theme.DrawerTitle.Render("REQUEST DETAIL"))
	rows = append(rows, d.identityRows()...)
	rows = append(rows, d.lifecycleRows()...)
	if tree := d.timingTree(); tree != "" {
		rows = append(rows, "", tree)
	}
	if errRow := d.errorRow(); errRow != "" {
		rows = append(rows, "", errRow)
	}

	return d.theme.DrawerBox.Width(d.Width).Render(strings.Join(rows, "\n"))
}

// row lines up a label and value using the drawer's fixed label column.
func (d *Drawer) row(label, value string) string {
	return d.theme.DrawerLabel.Render(label) + d.theme.DrawerValue.Render(value)
}

// identityRows covers ids, confirmation and the prompt excerpt.
func (d *Drawer) identityRows() []string {
	var rows []string

	if d.Request != nil {
		rows = append(rows, d.row("client id", d.Request.ClientID))
		reqID := d.Request.RequestID
		if reqID == "" {
			reqID = "(unacknowledged)"
		}
		rows = append(rows, d.row("request id", reqID))

		confirmed := "no"
		if d.Request.Confirmed {
			confirmed = "yes"
		}
		rows = append(rows, d.row("confirmed", confirmed))

		if d.Request.ChatMode != "" {
			rows = append(rows, d.row("mode", string(d.Request.ChatMode)))
		}
		if d.Request.ForcedTool != "" {
			rows = append(rows, d.row("forced tool", d.Request.ForcedTool))
		}
		if d.Request.ForcedProvider != "" {
			rows = append(rows, d.row("provider", d.Request.ForcedProvider))
		}
	} else if d.Task != nil {
		rows = append(rows, d.row("task id", shortID(d.Task.ID)))
		if d.Task.RequestID != "" {
			rows = append(rows, d.row("request id", d.Task.RequestID))
		}
	}

	prompt := d.promptExcerpt()
	if prompt != "" {
		rows = append(rows, d.row("prompt", prompt))
	}
	return rows
}

// lifecycleRows covers status and the board timestamps.
func (d *Drawer) lifecycleRows() []string {
	if d.Task == nil {
		return nil
	}

	var rows []string
	status := string(d.Task.Status)
	badge := lipgloss.NewStyle().
		Foreground(styles.StatusColor(status)).
		Bold(true).
		Render(styles.StatusGlyph(status) + " " + status)
	rows = append(rows, d.row("status", badge))

	if !d.Task.QueuedAt.IsZero() {
		rows = append(rows, d.row("queued", fmtClock(d.Task.QueuedAt)))
	}
	if !d.Task.StartedAt.IsZero() {
		rows = append(rows, d.row("started", fmtClock(d.Task.StartedAt)))
	}
	if !d.Task.FinishedAt.IsZero() {
		rows = append(rows, d.row("finished", fmtClock(d.Task.FinishedAt)))
	}
	if d.Task.Canceled {
		rows = append(rows, d.row("canceled", "locally abandoned"))
	}
	return rows
}

// timingTree renders the latency milestones as a small tree.
func (d *Drawer) timingTree() string {
	if d.Sample == nil {
		return ""
	}

	type milestone struct {
		label string
		ms    int64
	}
	var stones []milestone
	if d.Sample.HistoryMs != nil {
		stones = append(stones, milestone{"history", *d.Sample.HistoryMs})
	}
	if d.Sample.TTFTMs != nil {
		stones = append(stones, milestone{"ttft", *d.Sample.TTFTMs})
	}
	if d.Sample.DurationMs > 0 {
		stones = append(stones, milestone{"total", d.Sample.DurationMs})
	}
	if len(stones) == 0 {
		return ""
	}

	lines := []string{d.theme.DrawerLabel.Render("timing")}
	for i, stone := range stones {
		branch := styles.RenderTreeLine(i == len(stones)-1)
		lines = append(lines,
			d.theme.PanelMuted.Render(branch)+
				d.theme.DrawerValue.Render(stone.label+"  "+fmtMs(stone.ms)))
	}
	return strings.Join(lines, "\n")
}

// errorRow surfaces the failure text for FAILED and LOST tasks.
func (d *Drawer) errorRow() string {
	if d.Task == nil || d.Task.Error == "" {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(styles.ErrorHighContrast).
		Render("error: " + d.Task.Error)
}

// promptExcerpt picks the prompt from whichever source has one.
func (d *Drawer) promptExcerpt() string {
	var prompt string
	switch {
	case d.Request != nil && d.Request.Prompt != "":
		prompt = d.Request.Prompt
	case d.Task != nil && d.Task.Prompt != "":
		prompt = d.Task.Prompt
	case d.Sample != nil:
		prompt = d.Sample.Prompt
	}
	prompt = strings.ReplaceAll(prompt, "\n", " ")
	return util.TruncateRunes(prompt, 36)
}
