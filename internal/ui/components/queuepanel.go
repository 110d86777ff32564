// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/queue"
	"github.com/jeranaias/cockpit-tui/internal/ui/styles"
	"github.com/jeranaias/cockpit-tui/internal/util"
)

// =============================================================================
// QUEUE PANEL COMPONENT
// =============================================================================

// QueuePanel renders the request board as a side panel. Tasks arrive as
// board clones; the panel never touches the live board.
type QueuePanel struct {
	Tasks      []*queue.Task
	Status     api.QueueStatus
	Width      int
	MaxVisible int
	Selected   int
	theme      *styles.Theme
}

// NewQueuePanel creates a new QueuePanel.
func NewQueuePanel(theme *styles.Theme) *QueuePanel {
	return &QueuePanel{
		Width:      44,
		MaxVisible: 10,
		theme:      theme,
	}
}

// SetTasks replaces the displayed tasks, clamping the selection.
func (p *QueuePanel) SetTasks(tasks []*queue.Task) {
	p.Tasks = tasks
	if p.Selected >= len(tasks) {
		p.Selected = len(tasks) - 1
	}
	if p.Selected < 0 {
		p.Selected = 0
	}
}

// SetStatus sets the orchestrator queue status.
func (p *QueuePanel) SetStatus(status api.QueueStatus) {
	p.Status = status
}

// SetWidth sets the panel width.
func (p *QueuePanel) SetWidth(width int) {
	if width < 30 {
		width = 30
	}
	p.Width = width
}

// MoveUp moves the selection up.
func (p *QueuePanel) MoveUp() {
	if p.Selected > 0 {
		p.Selected--
	}
}

// MoveDown moves the selection down.
func (p *QueuePanel) MoveDown() {
	if p.Selected < len(p.Tasks)-1 {
		p.Selected++
	}
}

// SelectedTask returns the task under the cursor, or nil.
func (p *QueuePanel) SelectedTask() *queue.Task {
	if p.Selected < 0 || p.Selected >= len(p.Tasks) {
		return nil
	}
	return p.Tasks[p.Selected]
}

// View renders the panel.
func (p *QueuePanel) View() string {
	var sections []string

	title := p.theme.PanelTitle.Render("REQUEST QUEUE")
	sections = append(sections, title)

	if p.Status.Paused {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(styles.Amber).
			Bold(true).
			Render("|| PAUSED - requests are held"))
	}

	if len(p.Tasks) == 0 {
		sections = append(sections, p.theme.PanelMuted.Render("queue empty"))
	} else {
		sections = append(sections, p.renderRows()...)
	}

	sections = append(sections, p.renderFooter())

	body := strings.Join(sections, "\n")
	return p.theme.PanelBox.Width(p.Width).Render(body)
}

// renderRows renders the visible task window, keeping the selection in
// view the way the completion popup does.
func (p *QueuePanel) renderRows() []string {
	start := 0
	end := len(p.Tasks)
	if end > p.MaxVisible {
		start = p.Selected - p.MaxVisible/2
		if start < 0 {
			start = 0
		}
		end = start + p.MaxVisible
		if end > len(p.Tasks) {
			end = len(p.Tasks)
			start = end - p.MaxVisible
		}
	}

	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, p.renderRow(p.Tasks[i], i == p.Selected))
	}

	if start > 0 {
		rows[0] = p.theme.PanelMuted.Render("^ more") + "\n" + rows[0]
	}
	if end < len(p.Tasks) {
		rows[len(rows)-1] += "\n" + p.theme.PanelMuted.Render("v more")
	}
	return rows
}

// renderRow renders one task line: glyph, id, prompt excerpt, age.
func (p *QueuePanel) renderRow(task *queue.Task, selected bool) string {
	status := string(task.Status)
	glyph := lipgloss.NewStyle().
		Foreground(styles.StatusColor(status)).
		Render(styles.StatusGlyph(status))

	label := task.RequestID
	if label == "" {
		label = task.ID
	}
	id := p.theme.PanelValue.Render(shortID(label))

	age := p.theme.PanelMuted.Render(fmtDuration(task.Duration()))

	// Inner width minus border+padding, glyph, id, age and separators.
	used := lipgloss.Width(glyph) + lipgloss.Width(id) + lipgloss.Width(age) + 7
	promptWidth := p.Width - used
	if promptWidth < 8 {
		promptWidth = 8
	}
	prompt := util.TruncateWidth(strings.ReplaceAll(task.Prompt, "\n", " "), promptWidth)

	row := glyph + " " + id + " " + prompt + " " + age
	if task.Canceled {
		row += " " + p.theme.PanelMuted.Render("(canceled)")
	}

	if selected {
		return p.theme.PanelRowFocus.Render(row)
	}
	return p.theme.PanelRow.Render(row)
}

// renderFooter renders the count summary line.
func (p *QueuePanel) renderFooter() string {
	var active, done, failed int
	for _, task := range p.Tasks {
		switch task.Status {
		case api.StatusCompleted:
			done++
		case api.StatusFailed, api.StatusLost:
			failed++
		default:
			active++
		}
	}

	parts := []string{fmtNumber(active) + " active"}
	if done > 0 {
		parts = append(parts, fmtNumber(done)+" done")
	}
	if failed > 0 {
		parts = append(parts, fmtNumber(failed)+" failed")
	}
	if p.Status.Depth > 0 {
		parts = append(parts, "depth "+fmtNumber(p.Status.Depth))
	}

	return p.theme.PanelMuted.Render(strings.Join(parts, " / "))
}
