// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system for the TUI.
package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/config"
	"github.com/jeranaias/cockpit-tui/internal/macro"
)

// fetchTimeout bounds handler-initiated API calls so a dead orchestrator
// cannot wedge the update loop's command queue.
const fetchTimeout = 10 * time.Second

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// These messages are sent by command handlers to update the application state.

// ShowHelpMsg triggers the help display.
type ShowHelpMsg struct {
	Topic string // Optional topic for specific help
}

// ClearTranscriptMsg clears the visible transcript. Tracked requests
// and the session cache are not touched.
type ClearTranscriptMsg struct{}

// DropRequestMsg asks the app to drop a pending request.
type DropRequestMsg struct {
	// Target is a client ID, "last", or "" for the most recent pending.
	Target string
}

// ShowSessionMsg triggers display of the current session info.
type ShowSessionMsg struct{}

// NewSessionMsg starts a fresh session.
type NewSessionMsg struct{}

// SwitchSessionMsg switches to an existing session.
type SwitchSessionMsg struct {
	ID string
}

// ListSessionsMsg triggers showing the session list when no client is wired.
type ListSessionsMsg struct{}

// SessionListMsg carries sessions fetched from the orchestrator.
type SessionListMsg struct {
	Sessions []api.SessionInfo
	Error    error
}

// ModeSwitchMsg indicates a chat mode switch request.
type ModeSwitchMsg struct {
	Mode string // "direct", "normal", "complex"
}

// RuntimeListMsg carries the runtimes known to the orchestrator.
type RuntimeListMsg struct {
	Runtimes []api.Runtime
	Error    error
}

// RuntimeActivatedMsg indicates a runtime activation attempt finished.
type RuntimeActivatedMsg struct {
	Name  string
	Error error
}

// ShowToolsMsg triggers showing the tools list.
type ShowToolsMsg struct{}

// ToggleToolMsg toggles a tool on/off.
type ToggleToolMsg struct {
	Tool  string
	State bool // true = on, false = off
}

// QueueStatusMsg carries the server queue state.
type QueueStatusMsg struct {
	Status *api.QueueStatus
	Error  error
}

// QueueActionMsg indicates a pause/resume attempt finished.
type QueueActionMsg struct {
	Action string // "pause" or "resume"
	Status *api.QueueStatus
	Error  error
}

// MacroListMsg carries the locally stored macros.
type MacroListMsg struct {
	Macros []*macro.Macro
	Error  error
}

// RunMacroMsg asks the app to start a macro run.
type RunMacroMsg struct {
	Name string
	Args map[string]string
}

// ShowConfigMsg triggers showing the full configuration.
type ShowConfigMsg struct{}

// ConfigUpdateMsg indicates a config value was updated.
type ConfigUpdateMsg struct {
	Key      string
	Value    interface{}
	OldValue interface{}
	Error    error
}

// ShowStatusMsg triggers showing detailed status.
type ShowStatusMsg struct{}

// ShowStatsMsg triggers showing latency statistics.
type ShowStatsMsg struct{}

// ThemeSwitchMsg changes the color theme.
type ThemeSwitchMsg struct {
	Theme string
}

// ExportTranscriptMsg triggers exporting the transcript.
type ExportTranscriptMsg struct {
	Format string // "json", "markdown", "txt", "html"
}

// ExportCompleteMsg indicates export completion.
type ExportCompleteMsg struct {
	Path  string
	Error error
}

// ErrorMsg indicates an error occurred.
type ErrorMsg struct {
	Title   string
	Message string
	Tip     string
}

// SystemMessageMsg adds a system message to the chat.
type SystemMessageMsg struct {
	Content string
}

// =============================================================================
// NAVIGATION HANDLERS
// =============================================================================

// HandleHelp shows help information.
func HandleHelp(ctx *Context, args []string) tea.Cmd {
	topic := ""
	if len(args) > 0 {
		topic = strings.ToLower(args[0])
	}
	return func() tea.Msg {
		return ShowHelpMsg{Topic: topic}
	}
}

// HandleQuit exits the application.
func HandleQuit(ctx *Context, args []string) tea.Cmd {
	return tea.Quit
}

// =============================================================================
// CONVERSATION HANDLERS
// =============================================================================

// HandleClear clears the visible transcript.
func HandleClear(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		return ClearTranscriptMsg{}
	}
}

// HandleSession shows, starts, or switches sessions.
func HandleSession(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		return func() tea.Msg {
			return ShowSessionMsg{}
		}
	}
	target := args[0]
	if strings.EqualFold(target, "new") {
		return func() tea.Msg {
			return NewSessionMsg{}
		}
	}
	return func() tea.Msg {
		return SwitchSessionMsg{ID: target}
	}
}

// HandleSessions lists sessions known to the orchestrator.
func HandleSessions(ctx *Context, args []string) tea.Cmd {
	if ctx != nil && ctx.Client != nil {
		client := ctx.Client
		return func() tea.Msg {
			fetchCtx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
			defer cancel()

			sessions, err := client.ListSessions(fetchCtx)
			if err != nil {
				return SessionListMsg{Error: err}
			}
			return SessionListMsg{Sessions: sessions}
		}
	}
	return func() tea.Msg {
		return ListSessionsMsg{}
	}
}

// HandleExport exports the transcript.
func HandleExport(ctx *Context, args []string) tea.Cmd {
	format := "markdown"
	if len(args) > 0 {
		format = strings.ToLower(args[0])
		if format == "md" {
			format = "markdown"
		}
	}

	switch format {
	case "markdown", "json", "txt", "html":
	default:
		return func() tea.Msg {
			return ErrorMsg{
				Title:   "Invalid export format",
				Message: fmt.Sprintf("Unknown format: %s", format),
				Tip:     "Supported formats: markdown, json, txt, html",
			}
		}
	}

	return func() tea.Msg {
		return ExportTranscriptMsg{Format: format}
	}
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// HandleDrop drops a pending request. Without arguments the most recent
// pending request is targeted.
func HandleDrop(ctx *Context, args []string) tea.Cmd {
	target := "last"
	if len(args) > 0 {
		target = args[0]
	}
	return func() tea.Msg {
		return DropRequestMsg{Target: target}
	}
}

// HandleQueue shows the queue, or pauses/resumes it.
func HandleQueue(ctx *Context, args []string) tea.Cmd {
	if ctx == nil || ctx.Client == nil {
		return func() tea.Msg {
			return ErrorMsg{
				Title:   "No orchestrator",
				Message: "Queue commands need a connected orchestrator",
				Tip:     "Check the orchestrator URL with /config orchestrator.url",
			}
		}
	}
	client := ctx.Client

	action := ""
	if len(args) > 0 {
		action = strings.ToLower(args[0])
	}

	switch action {
	case "":
		return func() tea.Msg {
			fetchCtx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
			defer cancel()

			status, err := client.Queue(fetchCtx)
			return QueueStatusMsg{Status: status, Error: err}
		}
	case "pause":
		return func() tea.Msg {
			fetchCtx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
			defer cancel()

			status, err := client.PauseQueue(fetchCtx)
			return QueueActionMsg{Action: "pause", Status: status, Error: err}
		}
	case "resume":
		return func() tea.Msg {
			fetchCtx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
			defer cancel()

			status, err := client.ResumeQueue(fetchCtx)
			return QueueActionMsg{Action: "resume", Status: status, Error: err}
		}
	default:
		return func() tea.Msg {
			return ErrorMsg{
				Title:   "Unknown queue action",
				Message: fmt.Sprintf("Unknown action: %s", action),
				Tip:     "Use /queue, /queue pause, or /queue resume",
			}
		}
	}
}

// HandleMacro runs a macro, or lists macros when called bare.
func HandleMacro(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		return HandleMacros(ctx, args)
	}

	name := args[0]
	kv, positional := ParseKeyValues(args[1:])
	if len(positional) > 0 {
		return func() tea.Msg {
			return ErrorMsg{
				Title:   "Invalid macro arguments",
				Message: fmt.Sprintf("Arguments must be key=value, got: %s", strings.Join(positional, " ")),
				Tip:     "Example: /macro triage service=billing env=prod",
			}
		}
	}

	return func() tea.Msg {
		return RunMacroMsg{Name: name, Args: kv}
	}
}

// HandleMacros lists the locally stored macros.
func HandleMacros(ctx *Context, args []string) tea.Cmd {
	if ctx == nil || ctx.Macros == nil {
		return func() tea.Msg {
			return MacroListMsg{}
		}
	}
	store := ctx.Macros
	return func() tea.Msg {
		macros, err := store.List()
		if err != nil {
			return MacroListMsg{Error: err}
		}
		return MacroListMsg{Macros: macros}
	}
}

// =============================================================================
// RUNTIME HANDLERS
// =============================================================================

// HandleMode switches the chat mode, or shows the current one.
func HandleMode(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		current := ""
		if ctx != nil && ctx.Config != nil {
			current = ctx.Config.Orchestrator.DefaultMode
		}
		return func() tea.Msg {
			var sb strings.Builder
			sb.WriteString("Chat modes:\n\n")
			for _, m := range []struct{ name, desc string }{
				{"direct", "Single-shot, no tool use"},
				{"normal", "Standard tool-assisted chat"},
				{"complex", "Multi-step reasoning with planning"},
			} {
				marker := "  "
				if m.name == current {
					marker = "* "
				}
				sb.WriteString(fmt.Sprintf("  %s%s - %s\n", marker, m.name, m.desc))
			}
			sb.WriteString("\nUsage: /mode <name> to switch")
			return SystemMessageMsg{Content: sb.String()}
		}
	}

	mode := strings.ToLower(args[0])
	return func() tea.Msg {
		return ModeSwitchMsg{Mode: mode}
	}
}

// HandleProvider lists runtimes, or activates the named one.
func HandleProvider(ctx *Context, args []string) tea.Cmd {
	if ctx == nil || ctx.Client == nil {
		return func() tea.Msg {
			return ErrorMsg{
				Title:   "No orchestrator",
				Message: "Runtime commands need a connected orchestrator",
				Tip:     "Check the orchestrator URL with /config orchestrator.url",
			}
		}
	}
	client := ctx.Client

	if len(args) == 0 {
		return func() tea.Msg {
			fetchCtx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
			defer cancel()

			runtimes, err := client.ListRuntimes(fetchCtx)
			return RuntimeListMsg{Runtimes: runtimes, Error: err}
		}
	}

	name := args[0]
	return func() tea.Msg {
		fetchCtx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		err := client.ActivateRuntime(fetchCtx, name)
		return RuntimeActivatedMsg{Name: name, Error: err}
	}
}

// HandleTools shows the tools list.
func HandleTools(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		return ShowToolsMsg{}
	}
}

// HandleTool enables or disables a tool. Without a state argument the
// tool is enabled.
func HandleTool(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		return func() tea.Msg {
			return ErrorMsg{
				Title:   "Missing tool name",
				Message: "Which tool should be toggled?",
				Tip:     "Usage: /tool <name> [on|off]",
			}
		}
	}

	tool := args[0]
	state := true
	if len(args) > 1 {
		state = strings.EqualFold(args[1], "on")
	}

	return func() tea.Msg {
		return ToggleToolMsg{Tool: tool, State: state}
	}
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// HandleConfig shows or edits configuration.
func HandleConfig(ctx *Context, args []string) tea.Cmd {
	if ctx == nil || ctx.Config == nil {
		return func() tea.Msg {
			return ErrorMsg{
				Title:   "No configuration",
				Message: "Configuration is not loaded",
			}
		}
	}
	cfg := ctx.Config

	switch len(args) {
	case 0:
		return func() tea.Msg {
			return ShowConfigMsg{}
		}

	case 1:
		key := args[0]
		return func() tea.Msg {
			value, err := cfg.Get(key)
			if err != nil {
				keys := config.GetAllKeys()
				sort.Strings(keys)
				return ErrorMsg{
					Title:   "Unknown config key",
					Message: fmt.Sprintf("No such key: %s", key),
					Tip:     "Known keys: " + strings.Join(keys, ", "),
				}
			}
			return SystemMessageMsg{Content: fmt.Sprintf("%s = %v", key, value)}
		}

	default:
		key := args[0]
		value := strings.Join(args[1:], " ")
		return func() tea.Msg {
			oldValue, err := cfg.Get(key)
			if err != nil {
				return ConfigUpdateMsg{Key: key, Error: err}
			}
			if err := cfg.Set(key, value); err != nil {
				return ConfigUpdateMsg{Key: key, OldValue: oldValue, Error: err}
			}
			if err := config.Save(cfg); err != nil {
				return ConfigUpdateMsg{Key: key, Value: value, OldValue: oldValue, Error: err}
			}
			return ConfigUpdateMsg{Key: key, Value: value, OldValue: oldValue}
		}
	}
}

// HandleStatus shows detailed status information.
func HandleStatus(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		return ShowStatusMsg{}
	}
}

// HandleStats shows latency statistics.
func HandleStats(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		return ShowStatsMsg{}
	}
}

// HandleTheme changes the color theme.
func HandleTheme(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		current := ""
		if ctx != nil && ctx.Config != nil {
			current = ctx.Config.UI.Theme
		}
		return func() tea.Msg {
			return SystemMessageMsg{Content: fmt.Sprintf("Current theme: %s (dark, light, auto)", current)}
		}
	}
	return func() tea.Msg {
		return ThemeSwitchMsg{Theme: strings.ToLower(args[0])}
	}
}
