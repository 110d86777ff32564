// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/queue"
	"github.com/jeranaias/cockpit-tui/internal/track"
)

// =============================================================================
// INPUT SUBMISSION
// =============================================================================

// submitInput handles enter on the input line: slash commands execute,
// anything else becomes a prompt submission.
func (m Model) submitInput() (tea.Model, tea.Cmd) {
	content := strings.TrimSpace(m.input.Value())
	if content == "" {
		return m, nil
	}
	m.sess.RecordActivity()

	if strings.HasPrefix(content, "/") {
		m.resetInput()
		return m.executeCommand(content)
	}
	return m.submitPrompt(content)
}

// executeCommand parses and runs a slash command.
func (m Model) executeCommand(content string) (tea.Model, tea.Cmd) {
	result := m.parser.Parse(content)
	if !result.IsCommand {
		return m, nil
	}
	if result.Command == nil {
		text := "unknown command: " + result.CommandName
		if result.Suggestion != "" {
			text += " (did you mean " + result.Suggestion + "?)"
		}
		m.addNotice(text)
		return m, nil
	}
	return m, result.Command.Handler(m.cmdCtx, result.Args)
}

// submitPrompt runs the optimistic submission pipeline: enqueue in the
// tracker, render immediately, then hand off to the direct streamer or
// the queued path.
func (m Model) submitPrompt(content string) (tea.Model, tea.Cmd) {
	m.resetInput()
	m.sess.MarkDirty()
	m.clearError()

	direct := m.chatMode == api.ModeDirect
	clientID := m.tracker.Enqueue(content, track.Options{
		ForcedTool:     m.forcedTool,
		ForcedProvider: m.forcedProvider,
		Direct:         direct,
		ChatMode:       m.chatMode,
	})
	m.streams[clientID] = &streamView{}

	sub := api.SubmitRequest{
		SessionID:      m.sess.SessionID(),
		Prompt:         content,
		ChatMode:       m.chatMode,
		ForcedTool:     m.forcedTool,
		ForcedProvider: m.forcedProvider,
	}

	m.refreshTranscript()
	m.viewport.GotoBottom()

	cmds := []tea.Cmd{m.ensureTick(), m.wait.Start()}
	if direct {
		m.state = StateStreaming
		m.wait.SetDetail("waiting for first token")
		m.streamer.Stream(clientID, sub)
	} else {
		task := queue.NewTask(content, m.sess.SessionID())
		task.ClientRef = clientID
		m.board.Add(task)
		m.wait.SetDetail(queueDetail(m.queueStatus))
		cmds = append(cmds, submitQueuedCmd(m.client, clientID, task.ID, sub))
	}
	return m, tea.Batch(cmds...)
}

// resetInput clears the input line and any completion state.
func (m *Model) resetInput() {
	m.input.Reset()
	m.completion.Clear()
	m.popup.Clear()
}

// =============================================================================
// COMPLETION
// =============================================================================

// updateCompletions recomputes suggestions after a keystroke. Only
// slash input completes; plain prompts never pop suggestions.
func (m *Model) updateCompletions() {
	value := m.input.Value()
	if !strings.HasPrefix(value, "/") {
		if m.completion.Visible {
			m.completion.Clear()
			m.popup.Clear()
		}
		return
	}
	completions := m.completer.Complete(value, m.input.Position())
	m.completion.Update(value, completions)
	m.popup.SetCompletions(completions)
	m.popup.SetSelected(m.completion.Selected)
}

// handleCompletionKey captures navigation keys while the popup is
// open. Returns handled=false for keys the popup does not own.
func (m Model) handleCompletionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "tab", "ctrl+n", "down":
		m.completion.Next()
		m.popup.SetSelected(m.completion.Selected)
		return m, nil, true

	case "shift+tab", "ctrl+p", "up":
		m.completion.Prev()
		m.popup.SetSelected(m.completion.Selected)
		return m, nil, true

	case "enter":
		value := m.completion.Accept()
		if value == "" {
			return m, nil, false
		}
		m.input.SetValue(applyCompletion(m.input.Value(), value))
		m.input.CursorEnd()
		m.completion.Clear()
		m.popup.Clear()
		m.updateCompletions()
		return m, nil, true

	case "esc":
		m.completion.Clear()
		m.popup.Clear()
		return m, nil, true
	}
	return m, nil, false
}

// applyCompletion substitutes the accepted value for the token under
// the cursor. Completion values are single tokens ("/mode",
// "direct"), not whole lines. The trailing space arms the next
// argument's suggestions.
func applyCompletion(input, value string) string {
	if input == "" || strings.HasSuffix(input, " ") {
		return input + value + " "
	}
	if i := strings.LastIndexByte(input, ' '); i >= 0 {
		return input[:i+1] + value + " "
	}
	return value + " "
}

// queueDetail describes the wait for a queued submission.
func queueDetail(status api.QueueStatus) string {
	if status.Paused {
		return "queue is paused; /queue resume to drain"
	}
	if status.Depth > 0 {
		return "queued behind " + strconv.Itoa(status.Depth) + " request(s)"
	}
	return "queued"
}
