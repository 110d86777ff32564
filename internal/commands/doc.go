// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system for the TUI.
//
// This package handles parsing and executing slash commands in the chat
// interface, providing autocomplete, typo suggestions, and command
// registration.
//
// # Key Types
//
//   - Registry: Command registry with all available commands
//   - ParseResult: Parsed command with name and arguments
//   - Completer: Tab completion for commands and arguments
//
// # Built-in Commands
//
//   - /help: Show available commands
//   - /mode: Switch chat mode
//   - /provider: Show or activate a runtime
//   - /queue: Inspect, pause, or resume the server queue
//   - /macro: Run a saved macro
//   - /drop: Drop a pending request
//   - /session: Show or switch sessions
//
// # Usage
//
// Parse and execute a command:
//
//	result := parser.Parse(input)
//	if result.IsCommand && result.Command != nil {
//	    return result.Command.Handler(ctx, result.Args)
//	}
//
// Get completions:
//
//	completions := completer.Complete("/ma", 3)
//	// Returns ["/macro", "/macros"]
package commands
