// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/cockpit-tui/internal/commands"
	"github.com/jeranaias/cockpit-tui/internal/export"
)

// exportTranscriptCmd renders and writes the transcript off the update
// loop. The transcript is a snapshot; later messages do not leak in.
func exportTranscriptCmd(t *export.Transcript, format string) tea.Cmd {
	return func() tea.Msg {
		path, err := export.ExportToFile(t, format, nil)
		return commands.ExportCompleteMsg{Path: path, Error: err}
	}
}
