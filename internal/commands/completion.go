// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system for the TUI.
package commands

import (
	"sort"
	"strings"
)

// =============================================================================
// COMPLETER
// =============================================================================

// Completer handles tab completion for commands and arguments.
type Completer struct {
	registry *Registry

	// Callbacks for dynamic completion
	// These are set by the application to provide context-specific completions
	ProvidersFn func() []string        // Returns runtime names
	SessionsFn  func() []SessionEntry  // Returns known sessions
	ToolsFn     func() []string        // Returns available tools
	ConfigFn    func() []string        // Returns config keys
	MacrosFn    func() []string        // Returns macro names
}

// SessionEntry is one session offered for completion.
type SessionEntry struct {
	ID      string
	Title   string
	Preview string
}

// NewCompleter creates a new completer with the given registry.
func NewCompleter(registry *Registry) *Completer {
	return &Completer{
		registry: registry,
	}
}

// GetCommand returns a command by name from the completer's registry.
func (c *Completer) GetCommand(name string) *Command {
	if c.registry == nil {
		return nil
	}
	return c.registry.Get(name)
}

// Complete returns completions for the given input at the cursor position.
func (c *Completer) Complete(input string, cursorPos int) []Completion {
	// If cursor is not at end, use the portion up to cursor
	if cursorPos < len(input) {
		input = input[:cursorPos]
	}

	trimmed := strings.TrimSpace(input)

	// Plain prompt text gets no completion.
	if !strings.HasPrefix(trimmed, "/") {
		return nil
	}

	parts := splitCommandLine(trimmed)
	if len(parts) == 0 {
		return c.completeCommands("")
	}

	// Still typing the command name?
	if len(parts) == 1 && !strings.HasSuffix(input, " ") {
		return c.completeCommands(parts[0])
	}

	cmd := c.registry.Get(parts[0])
	if cmd == nil {
		return nil
	}

	// Determine which argument we're completing
	argIndex := len(parts) - 2 // -1 for command, -1 for 0-based index
	if strings.HasSuffix(input, " ") {
		argIndex++
	}

	partial := ""
	if !strings.HasSuffix(input, " ") && len(parts) > 1 {
		partial = parts[len(parts)-1]
	}

	return c.completeArg(cmd, argIndex, partial)
}

// =============================================================================
// COMMAND COMPLETION
// =============================================================================

// completeCommands returns completions for command names.
func (c *Completer) completeCommands(partial string) []Completion {
	var completions []Completion

	partial = strings.ToLower(partial)

	for _, cmd := range c.registry.All() {
		if cmd.Hidden {
			continue
		}

		if strings.HasPrefix(strings.ToLower(cmd.Name), partial) {
			score := calculateScore(cmd.Name, partial)
			completions = append(completions, Completion{
				Value:       cmd.Name,
				Display:     cmd.Name,
				Description: cmd.Description,
				Score:       score,
			})
		}

		for _, alias := range cmd.Aliases {
			if strings.HasPrefix(strings.ToLower(alias), partial) {
				score := calculateScore(alias, partial)
				completions = append(completions, Completion{
					Value:       alias,
					Display:     alias + " -> " + cmd.Name,
					Description: cmd.Description,
					Score:       score - 10, // Slightly lower score for aliases
				})
			}
		}
	}

	sortCompletions(completions)

	return completions
}

// =============================================================================
// ARGUMENT COMPLETION
// =============================================================================

// completeArg returns completions for a command argument.
func (c *Completer) completeArg(cmd *Command, argIndex int, partial string) []Completion {
	if argIndex < 0 || argIndex >= len(cmd.Args) {
		return nil
	}

	arg := cmd.Args[argIndex]

	switch arg.Type {
	case ArgTypeProvider:
		return c.completeFromList(c.providers(), partial)
	case ArgTypeSession:
		return c.completeSessions(partial)
	case ArgTypeEnum:
		return c.completeFromList(arg.Values, partial)
	case ArgTypeTool:
		return c.completeFromList(c.tools(), partial)
	case ArgTypeConfig:
		return c.completeFromList(c.configKeys(), partial)
	case ArgTypeMacro:
		return c.completeFromList(c.macros(), partial)
	case ArgTypeString:
		if arg.Completer != nil {
			return c.completeFromList(arg.Completer(), partial)
		}
		return nil
	default:
		return nil
	}
}

func (c *Completer) providers() []string {
	if c.ProvidersFn != nil {
		return c.ProvidersFn()
	}
	return nil
}

func (c *Completer) tools() []string {
	if c.ToolsFn != nil {
		return c.ToolsFn()
	}
	// Default tools mirror the orchestrator's built-in set.
	return []string{"search", "shell", "files", "http"}
}

func (c *Completer) configKeys() []string {
	if c.ConfigFn != nil {
		return c.ConfigFn()
	}
	return []string{
		"orchestrator.url", "orchestrator.default_mode",
		"ui.theme", "ui.show_latency",
	}
}

func (c *Completer) macros() []string {
	if c.MacrosFn != nil {
		return c.MacrosFn()
	}
	return nil
}

// completeSessions returns completions for session IDs.
func (c *Completer) completeSessions(partial string) []Completion {
	var completions []Completion

	partial = strings.ToLower(partial)

	// "new" is always a valid /session target.
	if strings.HasPrefix("new", partial) {
		completions = append(completions, Completion{
			Value:       "new",
			Display:     "new",
			Description: "Start a fresh session",
			Score:       calculateScore("new", partial),
		})
	}

	if c.SessionsFn != nil {
		for _, sess := range c.SessionsFn() {
			idMatch := strings.HasPrefix(strings.ToLower(sess.ID), partial)
			titleMatch := strings.Contains(strings.ToLower(sess.Title), partial)

			if idMatch || titleMatch {
				score := calculateScore(sess.ID, partial)
				if titleMatch && !idMatch {
					score -= 5
				}

				display := sess.ID
				if sess.Title != "" {
					display = sess.ID + " - " + truncate(sess.Title, 30)
				}

				completions = append(completions, Completion{
					Value:       sess.ID,
					Display:     display,
					Description: sess.Preview,
					Score:       score,
				})
			}
		}
	}

	sortCompletions(completions)
	return completions
}

// completeFromList returns completions from a list of strings.
func (c *Completer) completeFromList(values []string, partial string) []Completion {
	var completions []Completion

	partial = strings.ToLower(partial)

	for _, value := range values {
		if strings.HasPrefix(strings.ToLower(value), partial) {
			score := calculateScore(value, partial)
			completions = append(completions, Completion{
				Value:       value,
				Display:     value,
				Description: "",
				Score:       score,
			})
		}
	}

	sortCompletions(completions)
	return completions
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// calculateScore calculates a match score for completion ranking.
// Higher score = better match.
func calculateScore(value, partial string) int {
	value = strings.ToLower(value)
	partial = strings.ToLower(partial)

	score := 100

	// Exact match
	if value == partial {
		return score + 100
	}

	// Prefix match bonus
	if strings.HasPrefix(value, partial) {
		score += 50
		// Bonus for shorter completions
		score += 20 - len(value)
	}

	// Length penalty
	score -= len(value) / 2

	return score
}

// sortCompletions sorts completions by score (descending), then alphabetically.
func sortCompletions(completions []Completion) {
	sort.Slice(completions, func(i, j int) bool {
		if completions[i].Score != completions[j].Score {
			return completions[i].Score > completions[j].Score
		}
		return completions[i].Value < completions[j].Value
	})
}

// truncate truncates a string to maxLen characters.
// Uses rune-based truncation to handle Unicode correctly.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// =============================================================================
// COMPLETION NAVIGATION
// =============================================================================

// CompletionState holds the state for navigating completions.
type CompletionState struct {
	// Original input before completion
	OriginalInput string

	// Current completions
	Completions []Completion

	// Selected index (-1 for none)
	Selected int

	// Visible indicates if completions should be shown
	Visible bool
}

// NewCompletionState creates a new completion state.
func NewCompletionState() *CompletionState {
	return &CompletionState{
		Selected: -1,
	}
}

// Update updates the completion state with new completions.
func (cs *CompletionState) Update(input string, completions []Completion) {
	cs.OriginalInput = input
	cs.Completions = completions
	cs.Selected = 0 // Auto-select the first entry
	cs.Visible = len(completions) > 0
}

// Next moves to the next completion.
func (cs *CompletionState) Next() {
	if len(cs.Completions) == 0 {
		return
	}
	cs.Selected = (cs.Selected + 1) % len(cs.Completions)
}

// Prev moves to the previous completion.
func (cs *CompletionState) Prev() {
	if len(cs.Completions) == 0 {
		return
	}
	cs.Selected--
	if cs.Selected < 0 {
		cs.Selected = len(cs.Completions) - 1
	}
}

// Accept returns the selected completion value, or empty if none selected.
func (cs *CompletionState) Accept() string {
	if cs.Selected < 0 || cs.Selected >= len(cs.Completions) {
		if len(cs.Completions) > 0 {
			return cs.Completions[0].Value
		}
		return ""
	}
	return cs.Completions[cs.Selected].Value
}

// Clear clears the completion state.
func (cs *CompletionState) Clear() {
	cs.OriginalInput = ""
	cs.Completions = nil
	cs.Selected = -1
	cs.Visible = false
}

// GetSelected returns the currently selected completion, or nil.
func (cs *CompletionState) GetSelected() *Completion {
	if cs.Selected < 0 || cs.Selected >= len(cs.Completions) {
		return nil
	}
	return &cs.Completions[cs.Selected]
}
