// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system for the TUI.
package commands

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/config"
	"github.com/jeranaias/cockpit-tui/internal/macro"
	"github.com/jeranaias/cockpit-tui/internal/session"
	"github.com/jeranaias/cockpit-tui/internal/telemetry"
	"github.com/jeranaias/cockpit-tui/internal/track"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command represents a slash command that can be executed.
type Command struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h", "/?")
	Aliases []string

	// Description is shown in help and completion
	Description string

	// Usage shows argument syntax (e.g., "/mode <name>")
	Usage string

	// Args defines the expected arguments
	Args []ArgDef

	// Handler is the function that executes the command
	Handler func(ctx *Context, args []string) tea.Cmd

	// Hidden commands don't appear in help
	Hidden bool

	// Category for grouping in help display
	Category string
}

// ArgDef defines an argument for a command.
type ArgDef struct {
	// Name of the argument
	Name string

	// Required indicates if the argument must be provided
	Required bool

	// Type determines completion behavior
	Type ArgType

	// Description explains the argument
	Description string

	// Values for enum types
	Values []string

	// Completer for custom completion
	Completer func() []string
}

// ArgType indicates what kind of completion to provide.
type ArgType int

const (
	ArgTypeString   ArgType = iota // Free-form string
	ArgTypeProvider                // Runtime name from the orchestrator
	ArgTypeSession                 // Session ID from the server
	ArgTypeEnum                    // One of predefined values
	ArgTypeTool                    // Tool name
	ArgTypeConfig                  // Config key
	ArgTypeMacro                   // Macro name from the local store
)

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a new command registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns all registered commands.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	return cmds
}

// ByCategory returns commands grouped by category.
func (r *Registry) ByCategory() map[string][]*Command {
	result := make(map[string][]*Command)
	for _, cmd := range r.commands {
		if cmd.Hidden {
			continue
		}
		category := cmd.Category
		if category == "" {
			category = "General"
		}
		result[category] = append(result[category], cmd)
	}
	return result
}

// Suggest returns the closest registered command name for an unknown
// input, or "" when nothing is within typo distance. The threshold
// scales with input length so short commands only match near misses.
func (r *Registry) Suggest(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, "/"))
	if len(name) < 2 {
		return ""
	}

	maxDistance := 1
	if len(name) >= 4 {
		maxDistance = 2
	}
	if len(name) > 8 {
		maxDistance = 3
	}

	bestMatch := ""
	bestDistance := -1
	consider := func(candidate string) {
		bare := strings.TrimPrefix(candidate, "/")
		distance := levenshteinDistance(name, bare)
		if distance == 0 {
			return
		}
		if distance <= maxDistance && (bestDistance == -1 || distance < bestDistance) {
			bestDistance = distance
			bestMatch = candidate
		}
	}

	for cmdName := range r.commands {
		consider(cmdName)
	}
	for alias, cmd := range r.aliases {
		// Suggest the primary name, not the alias itself.
		bare := strings.TrimPrefix(alias, "/")
		distance := levenshteinDistance(name, bare)
		if distance > 0 && distance <= maxDistance && (bestDistance == -1 || distance < bestDistance) {
			bestDistance = distance
			bestMatch = cmd.Name
		}
	}

	return bestMatch
}

// levenshteinDistance calculates the edit distance between two strings.
// This is the minimum number of single-character edits (insertions,
// deletions, or substitutions) required to change one into the other.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	cols := len(s2) + 1
	prev := make([]int, cols)
	curr := make([]int, cols)
	for j := 0; j < cols; j++ {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j < cols; j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			curr[j] = min3(
				prev[j]+1,
				curr[j-1]+1,
				prev[j-1]+cost,
			)
		}
		prev, curr = curr, prev
	}

	return prev[cols-1]
}

func min3(a, b, c int) int {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	// Navigation commands
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show help and available commands",
		Usage:       "/help [category]",
		Args: []ArgDef{
			{
				Name:        "category",
				Required:    false,
				Type:        ArgTypeEnum,
				Values:      []string{"navigation", "conversation", "requests", "runtime", "settings"},
				Description: "Help category",
			},
		},
		Category: "Navigation",
		Handler:  HandleHelp,
	})

	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit cockpit",
		Category:    "Navigation",
		Handler:     HandleQuit,
	})

	// Conversation commands
	r.Register(&Command{
		Name:        "/clear",
		Aliases:     []string{"/c"},
		Description: "Clear the visible transcript",
		Category:    "Conversation",
		Handler:     HandleClear,
	})

	r.Register(&Command{
		Name:        "/session",
		Description: "Show, start, or switch sessions",
		Usage:       "/session [new|<session_id>]",
		Args: []ArgDef{
			{Name: "target", Required: false, Type: ArgTypeSession, Description: "'new' or a session ID"},
		},
		Category: "Conversation",
		Handler:  HandleSession,
	})

	r.Register(&Command{
		Name:        "/sessions",
		Aliases:     []string{"/list"},
		Description: "List sessions known to the orchestrator",
		Category:    "Conversation",
		Handler:     HandleSessions,
	})

	r.Register(&Command{
		Name:        "/export",
		Description: "Export the transcript to a file",
		Usage:       "/export [format]",
		Args: []ArgDef{
			{Name: "format", Required: false, Type: ArgTypeEnum, Values: []string{"json", "md", "txt", "html"}, Description: "Export format"},
		},
		Category: "Conversation",
		Handler:  HandleExport,
	})

	// Request commands
	r.Register(&Command{
		Name:        "/drop",
		Description: "Drop a pending request before the server accepts it",
		Usage:       "/drop [client_id|last]",
		Args: []ArgDef{
			{Name: "target", Required: false, Type: ArgTypeString, Description: "Client ID or 'last'"},
		},
		Category: "Requests",
		Handler:  HandleDrop,
	})

	r.Register(&Command{
		Name:        "/queue",
		Description: "Show, pause, or resume the server queue",
		Usage:       "/queue [pause|resume]",
		Args: []ArgDef{
			{Name: "action", Required: false, Type: ArgTypeEnum, Values: []string{"pause", "resume"}, Description: "Queue action"},
		},
		Category: "Requests",
		Handler:  HandleQueue,
	})

	r.Register(&Command{
		Name:        "/macro",
		Description: "Run a saved macro",
		Usage:       "/macro [name] [key=value ...]",
		Args: []ArgDef{
			{Name: "name", Required: false, Type: ArgTypeMacro, Description: "Macro to run"},
			{Name: "args", Required: false, Type: ArgTypeString, Description: "Placeholder values as key=value"},
		},
		Category: "Requests",
		Handler:  HandleMacro,
	})

	r.Register(&Command{
		Name:        "/macros",
		Description: "List saved macros",
		Category:    "Requests",
		Handler:     HandleMacros,
	})

	// Runtime commands
	r.Register(&Command{
		Name:        "/mode",
		Aliases:     []string{"/m"},
		Description: "Switch chat mode",
		Usage:       "/mode <direct|normal|complex>",
		Args: []ArgDef{
			{Name: "mode", Required: false, Type: ArgTypeEnum, Values: []string{"direct", "normal", "complex"}, Description: "Chat mode"},
		},
		Category: "Runtime",
		Handler:  HandleMode,
	})

	r.Register(&Command{
		Name:        "/provider",
		Aliases:     []string{"/p"},
		Description: "Show runtimes or activate one",
		Usage:       "/provider [name]",
		Args: []ArgDef{
			{Name: "name", Required: false, Type: ArgTypeProvider, Description: "Runtime to activate"},
		},
		Category: "Runtime",
		Handler:  HandleProvider,
	})

	r.Register(&Command{
		Name:        "/tools",
		Description: "List available tools",
		Category:    "Runtime",
		Handler:     HandleTools,
	})

	r.Register(&Command{
		Name:        "/tool",
		Description: "Enable or disable a tool",
		Usage:       "/tool <name> [on|off]",
		Args: []ArgDef{
			{Name: "name", Required: true, Type: ArgTypeTool, Description: "Tool name"},
			{Name: "state", Required: false, Type: ArgTypeEnum, Values: []string{"on", "off"}, Description: "Enable or disable"},
		},
		Category: "Runtime",
		Handler:  HandleTool,
	})

	// Settings commands
	r.Register(&Command{
		Name:        "/config",
		Description: "Show or edit configuration",
		Usage:       "/config [key] [value]",
		Args: []ArgDef{
			{Name: "key", Required: false, Type: ArgTypeConfig, Description: "Config key to show/set"},
			{Name: "value", Required: false, Type: ArgTypeString, Description: "New value"},
		},
		Category: "Settings",
		Handler:  HandleConfig,
	})

	r.Register(&Command{
		Name:        "/status",
		Description: "Show orchestrator and session status",
		Category:    "Settings",
		Handler:     HandleStatus,
	})

	r.Register(&Command{
		Name:        "/stats",
		Description: "Show request latency statistics",
		Category:    "Settings",
		Handler:     HandleStats,
	})

	r.Register(&Command{
		Name:        "/theme",
		Description: "Change color theme",
		Usage:       "/theme [name]",
		Args: []ArgDef{
			{Name: "name", Required: false, Type: ArgTypeEnum, Values: []string{"dark", "light", "auto"}, Description: "Theme name"},
		},
		Category: "Settings",
		Handler:  HandleTheme,
	})
}

// =============================================================================
// CONTEXT TYPE
// =============================================================================

// Context provides access to application state for command handlers.
// It follows the dependency injection pattern, allowing handlers to
// access services without direct coupling to the application structure.
//
// All fields are optional and may be nil - handlers should check before use.
type Context struct {
	// Config provides access to application configuration
	Config *config.Config

	// Client talks to the orchestrator
	Client *api.Client

	// Tracker holds optimistic request state
	Tracker *track.Tracker

	// Session manages the current session state
	Session *session.Manager

	// Macros is the local macro store
	Macros *macro.Store

	// Latency tracks request timing samples
	Latency *telemetry.LatencyTracker
}

// NewContext creates a new command context with the given dependencies.
// All parameters are optional and can be nil.
func NewContext(cfg *config.Config, client *api.Client, tracker *track.Tracker, sess *session.Manager, macros *macro.Store) *Context {
	return &Context{
		Config:  cfg,
		Client:  client,
		Tracker: tracker,
		Session: sess,
		Macros:  macros,
	}
}

// WithLatency attaches a latency tracker to the Context.
func (c *Context) WithLatency(lt *telemetry.LatencyTracker) *Context {
	c.Latency = lt
	return c
}

// RecordActivity records user activity in the session manager if available.
func (c *Context) RecordActivity() {
	if c.Session != nil {
		c.Session.RecordActivity()
	}
}

// MarkDirty marks the session as having unsaved changes.
func (c *Context) MarkDirty() {
	if c.Session != nil {
		c.Session.MarkDirty()
	}
}

// =============================================================================
// COMPLETION TYPE
// =============================================================================

// Completion represents a completion suggestion.
type Completion struct {
	// Value to insert
	Value string

	// Display text (may include formatting)
	Display string

	// Description shown alongside
	Description string

	// Score for ranking (higher = better match)
	Score int

	// IsCurrent indicates this is the current selection
	IsCurrent bool
}
