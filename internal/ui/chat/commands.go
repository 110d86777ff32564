// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/commands"
	"github.com/jeranaias/cockpit-tui/internal/export"
	"github.com/jeranaias/cockpit-tui/internal/history"
	"github.com/jeranaias/cockpit-tui/internal/macro"
	"github.com/jeranaias/cockpit-tui/internal/session"
	"github.com/jeranaias/cockpit-tui/internal/track"
	"github.com/jeranaias/cockpit-tui/internal/ui/components"
	"github.com/jeranaias/cockpit-tui/internal/ui/styles"
)

// macroTimeout bounds a whole macro run. Individual steps share the
// budget; a wedged orchestrator fails the run instead of holding the
// runner forever.
const macroTimeout = 10 * time.Minute

// =============================================================================
// COMMAND MESSAGE DISPATCH
// =============================================================================

// handleCommandMsg applies the messages emitted by slash command
// handlers. Returns handled=false for messages this layer does not
// know, so Update can ignore them.
func (m Model) handleCommandMsg(msg tea.Msg) (Model, tea.Cmd, bool) {
	switch msg := msg.(type) {

	// Navigation.
	case commands.ShowHelpMsg:
		if msg.Topic != "" {
			topic := msg.Topic
			if !strings.HasPrefix(topic, "/") {
				topic = "/" + topic
			}
			if cmd := m.registry.Get(topic); cmd != nil {
				m.addNotice(commandHelpText(cmd))
			} else {
				m.addNotice("no help for: " + msg.Topic)
			}
			return m, nil, true
		}
		m.openHelp()
		return m, nil, true

	// Transcript.
	case commands.ClearTranscriptMsg:
		model, cmd := m.clearTranscript()
		return model, cmd, true

	case commands.ExportTranscriptMsg:
		now := time.Now()
		t := &export.Transcript{
			SessionID:  m.sess.SessionID(),
			Runtime:    m.activeRuntime,
			ChatMode:   string(m.chatMode),
			ExportedAt: now,
			Messages:   m.projectTranscript(now),
		}
		return m, exportTranscriptCmd(t, msg.Format), true

	case commands.ExportCompleteMsg:
		if msg.Error != nil {
			m.setError("Export failed", friendlyError(msg.Error), "")
			return m, nil, true
		}
		m.addNotice("transcript exported to " + msg.Path)
		return m, nil, true

	// Requests.
	case commands.DropRequestMsg:
		if id, ok := m.dropRequest(msg.Target); ok {
			m.addNotice("dropped " + id)
		} else {
			m.addNotice("nothing pending to drop")
		}
		return m, nil, true

	// Sessions.
	case commands.ShowSessionMsg:
		m.addNotice(sessionStatusText(m.sess.GetStatus()))
		return m, nil, true

	case commands.NewSessionMsg:
		model, cmd := m.switchSession("")
		return model, cmd, true

	case commands.SwitchSessionMsg:
		model, cmd := m.switchSession(msg.ID)
		return model, cmd, true

	case commands.ListSessionsMsg:
		m.addNotice("orchestrator client not configured; session list unavailable")
		return m, nil, true

	case commands.SessionListMsg:
		if msg.Error != nil {
			m.setError("Session list failed", friendlyError(msg.Error), submitTip(msg.Error))
			return m, nil, true
		}
		m.syncCompleterSessions(msg.Sessions)
		m.addNotice(sessionListText(msg.Sessions))
		return m, nil, true

	// Modes and runtimes.
	case commands.ModeSwitchMsg:
		if !api.ValidChatMode(msg.Mode) {
			m.setError("Unknown chat mode", msg.Mode, "modes: direct, normal, complex")
			return m, nil, true
		}
		m.chatMode = api.ChatMode(msg.Mode)
		m.cfg.Orchestrator.DefaultMode = msg.Mode
		m.addNotice("chat mode: " + msg.Mode)
		return m, nil, true

	case commands.RuntimeListMsg:
		if msg.Error != nil {
			m.setError("Runtime list failed", friendlyError(msg.Error), submitTip(msg.Error))
			return m, nil, true
		}
		m.runtimes = msg.Runtimes
		for _, rt := range msg.Runtimes {
			if rt.Active {
				m.activeRuntime = rt.Name
				break
			}
		}
		m.syncCompleterRuntimes()
		m.addNotice(runtimesText(msg.Runtimes))
		return m, nil, true

	case commands.RuntimeActivatedMsg:
		if msg.Error != nil {
			m.setError("Runtime activation failed", friendlyError(msg.Error), submitTip(msg.Error))
			return m, nil, true
		}
		m.activeRuntime = msg.Name
		m.header.SetSession(m.sess.SessionID(), msg.Name)
		m.addNotice("runtime: " + msg.Name)
		// Refetch so the active and health flags line up.
		return m, fetchRuntimesCmd(m.client), true

	// Tools.
	case commands.ShowToolsMsg:
		m.addNotice(toolsText(m.forcedTool))
		return m, nil, true

	case commands.ToggleToolMsg:
		return m.toggleTool(msg.Tool, msg.State), nil, true

	// Queue.
	case commands.QueueStatusMsg:
		if msg.Error != nil {
			m.setError("Queue unavailable", friendlyError(msg.Error), submitTip(msg.Error))
			return m, nil, true
		}
		if msg.Status != nil {
			m.queueStatus = *msg.Status
		}
		m.addNotice(queueStatusText(m.queueStatus, m.board.Summary()))
		return m, nil, true

	case commands.QueueActionMsg:
		if msg.Error != nil {
			m.setError("Queue "+msg.Action+" failed", friendlyError(msg.Error), submitTip(msg.Error))
			return m, nil, true
		}
		if msg.Status != nil {
			m.queueStatus = *msg.Status
		}
		m.addNotice("queue " + msg.Action + "d")
		return m, nil, true

	// Macros.
	case commands.MacroListMsg:
		if msg.Error != nil {
			m.setError("Macro list failed", friendlyError(msg.Error), "")
			return m, nil, true
		}
		m.addNotice(macroListText(msg.Macros))
		return m, nil, true

	case commands.RunMacroMsg:
		model, cmd := m.runMacro(msg.Name, msg.Args)
		return model, cmd, true

	// Config.
	case commands.ShowConfigMsg:
		m.addNotice(m.cfg.String())
		return m, nil, true

	case commands.ConfigUpdateMsg:
		return m.applyConfigUpdate(msg), nil, true

	// Status displays.
	case commands.ShowStatusMsg:
		m.addNotice(m.statusText())
		return m, nil, true

	case commands.ShowStatsMsg:
		stats := m.latency.SessionStats(m.sess.SessionID())
		m.addNotice(statsText(stats, m.latency.Slowest(3)))
		return m, nil, true

	case commands.ThemeSwitchMsg:
		switch msg.Theme {
		case styles.ModeDark, styles.ModeLight, styles.ModeAuto:
		default:
			m.setError("Unknown theme", msg.Theme, "themes: dark, light, auto")
			return m, nil, true
		}
		m.cfg.UI.Theme = msg.Theme
		m.applyUIConfig()
		m.addNotice("theme: " + msg.Theme)
		return m, nil, true

	// Generic surface.
	case commands.ErrorMsg:
		m.setError(msg.Title, msg.Message, msg.Tip)
		m.state = StateError
		return m, nil, true

	case commands.SystemMessageMsg:
		m.addNotice(msg.Content)
		return m, nil, true
	}

	return m, nil, false
}

// =============================================================================
// SESSION SWITCHING
// =============================================================================

// switchSession flushes the old session, drops anything still in
// flight, and warm-starts the new one from the session cache. An empty
// id starts a fresh session.
func (m Model) switchSession(id string) (Model, tea.Cmd) {
	for _, req := range m.tracker.Snapshot() {
		m.tracker.Drop(req.ClientID)
		m.buffers.Drop(req.ClientID)
	}
	m.streams = make(map[string]*streamView)
	m.flushCache()

	m.sess.Switch(id)
	sid := m.sess.SessionID()

	m.entries = nil
	m.clearedAt = time.Time{}
	if m.cache != nil {
		if cached := m.cache.Load(sid, m.sess.BootID()); len(cached) > 0 {
			m.entries = history.Merge(cached)
		}
	}

	m.header.SetSession(sid, m.activeRuntime)
	m.addNotice("session: " + sid)
	m.viewport.GotoBottom()
	return m, fetchHistoryCmd(m.client, sid, m.cfg.Orchestrator.HistoryLimit)
}

// syncCompleterSessions feeds fetched sessions into tab completion.
func (m *Model) syncCompleterSessions(sessions []api.SessionInfo) {
	entries := make([]commands.SessionEntry, 0, len(sessions))
	for _, s := range sessions {
		entries = append(entries, commands.SessionEntry{ID: s.SessionID, Title: s.Title})
	}
	m.completer.SessionsFn = func() []commands.SessionEntry { return entries }
}

// =============================================================================
// TOOL OVERRIDES
// =============================================================================

// toggleTool sets or clears the sticky tool override.
func (m Model) toggleTool(tool string, state bool) Model {
	known := false
	for _, t := range knownTools {
		if t == tool {
			known = true
			break
		}
	}
	if !known {
		m.setError("Unknown tool", tool, "known tools: "+strings.Join(knownTools, ", "))
		return m
	}

	if state {
		m.forcedTool = tool
		m.addNotice("forcing tool " + tool + " on every submission")
		return m
	}
	if m.forcedTool == tool {
		m.forcedTool = ""
		m.addNotice("tool override cleared")
	} else {
		m.addNotice(tool + " was not forced")
	}
	return m
}

// =============================================================================
// CONFIG UPDATES
// =============================================================================

// applyConfigUpdate surfaces a /config set result and applies live
// settings. Connection keys take effect on restart.
func (m Model) applyConfigUpdate(msg commands.ConfigUpdateMsg) Model {
	if msg.Error != nil {
		m.setError("Config update failed", friendlyError(msg.Error), "/config lists known keys")
		return m
	}
	m.addNotice(fmt.Sprintf("config %s: %v -> %v", msg.Key, msg.OldValue, msg.Value))
	if strings.HasPrefix(msg.Key, "ui.") {
		m.applyUIConfig()
	}
	if msg.Key == "orchestrator.default_mode" {
		if v, ok := msg.Value.(string); ok && api.ValidChatMode(v) {
			m.chatMode = api.ChatMode(v)
		}
	}
	return m
}

// =============================================================================
// STATUS TEXT
// =============================================================================

// statusText builds the /status block from the model's view of the
// world.
func (m *Model) statusText() string {
	var sb strings.Builder
	sb.WriteString("cockpit status\n")

	if m.orchVersion != "" {
		fmt.Fprintf(&sb, "  orchestrator %s (version %s)\n", m.cfg.Orchestrator.URL, m.orchVersion)
	} else {
		fmt.Fprintf(&sb, "  orchestrator %s (version unknown)\n", m.cfg.Orchestrator.URL)
	}

	feed := "down, polling fallback"
	switch m.feedState {
	case components.FeedConnected:
		feed = "live"
	case components.FeedReconnecting:
		feed = "reconnecting"
	}
	fmt.Fprintf(&sb, "  event feed %s\n", feed)

	status := m.sess.GetStatus()
	fmt.Fprintf(&sb, "  session %s, up %s, %d tracked request(s)\n",
		status.SessionID, session.FormatDuration(status.Duration), m.tracker.Len())

	fmt.Fprintf(&sb, "  mode %s", m.chatMode)
	if ov := overrideSummary(m.forcedTool, m.forcedProvider); ov != "" {
		sb.WriteString("  overrides " + ov)
	}
	sb.WriteString("\n")

	queueState := ""
	if m.queueStatus.Paused {
		queueState = " (paused)"
	}
	fmt.Fprintf(&sb, "  queue depth %d, active %d%s", m.queueStatus.Depth, m.queueStatus.Active, queueState)

	if m.activeRuntime != "" {
		fmt.Fprintf(&sb, "\n  runtime %s", m.activeRuntime)
	}
	return sb.String()
}

// commandHelpText builds the /help <command> block. Command names
// already carry their slash.
func commandHelpText(cmd *commands.Command) string {
	var sb strings.Builder
	sb.WriteString(cmd.Name)
	if len(cmd.Aliases) > 0 {
		sb.WriteString(" (aliases: " + strings.Join(cmd.Aliases, ", ") + ")")
	}
	sb.WriteString("\n  " + cmd.Description)
	if cmd.Usage != "" {
		sb.WriteString("\n  usage: " + cmd.Usage)
	}
	return sb.String()
}

// =============================================================================
// MACRO RUNS
// =============================================================================

// runMacro loads and starts a macro. One run at a time; each step is
// a tracked request so the transcript shows it in flight.
func (m Model) runMacro(name string, args map[string]string) (Model, tea.Cmd) {
	if m.macros == nil {
		m.addNotice("macro store not configured")
		return m, nil
	}
	if m.activeMacro != "" {
		m.setError("Macro already running", m.activeMacro+" has not finished", "ctrl+x drops the in-flight step")
		return m, nil
	}

	mc, err := m.macros.Load(name)
	if err != nil {
		m.setError("Macro not found", friendlyError(err), "/macros lists what is available")
		return m, nil
	}

	missing := missingPlaceholders(mc, args)
	if len(missing) > 0 {
		m.setError("Macro arguments missing", "needs: "+strings.Join(missing, ", "),
			fmt.Sprintf("/macro %s %s=...", mc.Name, missing[0]))
		return m, nil
	}

	m.activeMacro = mc.Name
	m.state = StateStreaming
	m.sess.RecordActivity()
	m.addNotice(fmt.Sprintf("macro %s: %d step(s)", mc.Name, len(mc.Steps)))
	m.wait.SetDetail(fmt.Sprintf("macro %s starting", mc.Name))

	cmd := runMacroCmd(m.streamer, m.tracker, m.sess.SessionID(), m.chatMode, m.forcedProvider, mc, args)
	return m, tea.Batch(m.wait.Start(), cmd, m.ensureTick())
}

// missingPlaceholders lists placeholders the supplied args do not
// cover.
func missingPlaceholders(mc *macro.Macro, args map[string]string) []string {
	var missing []string
	for _, ph := range mc.Placeholders() {
		if _, ok := args[ph]; !ok {
			missing = append(missing, ph)
		}
	}
	return missing
}

// runMacroCmd executes the macro off the update loop. Steps submit
// through the accumulator path; progress lands as MacroStepMsg via the
// program handle.
func runMacroCmd(s *Streamer, tracker *track.Tracker, sessionID string, fallbackMode api.ChatMode, forcedProvider string, mc *macro.Macro, args map[string]string) tea.Cmd {
	return func() tea.Msg {
		runner := macro.NewRunner(func(ctx context.Context, step macro.Step) (string, string, error) {
			mode := fallbackMode
			if step.Mode != "" && api.ValidChatMode(step.Mode) {
				mode = api.ChatMode(step.Mode)
			}

			stepCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			clientID := tracker.Enqueue(step.Prompt, track.Options{
				ForcedTool:     step.Tool,
				ForcedProvider: forcedProvider,
				ChatMode:       mode,
			})
			// Dropping the request cancels the step.
			tracker.BindCancel(clientID, cancel)

			sub := api.SubmitRequest{
				SessionID:      sessionID,
				Prompt:         step.Prompt,
				ChatMode:       mode,
				ForcedTool:     step.Tool,
				ForcedProvider: forcedProvider,
			}
			requestID, content, err := s.StreamToCompletion(stepCtx, sub)
			if err != nil {
				// A failed step never reaches history, so the tracker
				// entry would dangle as pending forever.
				tracker.Drop(clientID)
				return requestID, content, err
			}
			if requestID != "" {
				tracker.Link(clientID, requestID)
			}
			return requestID, content, nil
		})

		runner.SetProgressCallback(func(step, total int, status string) {
			s.Send(MacroStepMsg{Macro: mc.Name, Step: step, Total: total, Status: status})
		})

		ctx, cancel := context.WithTimeout(context.Background(), macroTimeout)
		defer cancel()

		run, err := runner.Run(ctx, mc, args)
		return MacroDoneMsg{Macro: mc.Name, Run: run, Err: err}
	}
}

// handleMacroStep feeds run progress into the wait indicator.
func (m Model) handleMacroStep(msg MacroStepMsg) (tea.Model, tea.Cmd) {
	m.wait.SetDetail(fmt.Sprintf("macro %s %d/%d: %s",
		msg.Macro, msg.Step, msg.Total, strings.ToLower(msg.Status)))
	m.refreshTranscript()
	return m, nil
}

// handleMacroDone closes out a run and confirms its steps against
// history.
func (m Model) handleMacroDone(msg MacroDoneMsg) (tea.Model, tea.Cmd) {
	m.activeMacro = ""
	m.finishIfQuiet()

	if msg.Err != nil {
		m.setError("Macro "+msg.Macro+" failed", friendlyError(msg.Err), "")
		m.state = StateError
	}
	m.addNotice(macroDoneText(msg.Macro, msg.Run, msg.Err))

	var cmd tea.Cmd
	if m.gate.Allow() {
		cmd = fetchHistoryCmd(m.client, m.sess.SessionID(), m.cfg.Orchestrator.HistoryLimit)
	}
	return m, cmd
}

// macroDoneText summarizes a finished run.
func macroDoneText(name string, run *macro.Run, err error) string {
	if run == nil {
		if err != nil {
			return "macro " + name + " failed: " + friendlyError(err)
		}
		return "macro " + name + " finished"
	}

	complete, failed, skipped := 0, 0, 0
	for _, sr := range run.StepResults() {
		switch sr.Status {
		case macro.StepComplete:
			complete++
		case macro.StepFailed:
			failed++
		case macro.StepSkipped:
			skipped++
		}
	}

	elapsed := run.CompletedAt.Sub(run.StartedAt)
	text := fmt.Sprintf("macro %s: %d complete", name, complete)
	if failed > 0 {
		text += fmt.Sprintf(", %d failed", failed)
	}
	if skipped > 0 {
		text += fmt.Sprintf(", %d skipped", skipped)
	}
	if elapsed > 0 {
		text += " in " + fmtMs(elapsed.Milliseconds())
	}
	return text
}
