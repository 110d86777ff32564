// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the command-line interface for cockpit.
//
// This package handles argument parsing, command dispatch, and the
// non-interactive command surface: one-shot asks, the plain-terminal
// chat REPL, status and stats reporting, session export, macro
// management, keystore auth, and configuration management. The
// full-screen TUI itself lives in internal/ui and is launched from
// main when no subcommand is given.
//
// # Key Types
//
//   - Command: enumeration of the commands cockpit understands
//   - Args: parsed global flags and per-command arguments
//   - ArgParser: subcommand flag parser used by the handlers
//   - CommandError, ValidationError, NotFoundError: typed errors that
//     map onto process exit codes
//
// # Usage
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdAsk:
//	    cli.HandleAsk(args)
//	case cli.CmdStatus:
//	    cli.HandleStatus(args)
//	}
//
// # Commands Overview
//
//   - cockpit: launch the interactive TUI (default)
//   - cockpit ask "question": one-shot request, renders the answer
//   - cockpit chat: plain-terminal REPL without the full TUI
//   - cockpit status: orchestrator health, queue, and runtime report
//   - cockpit stats: latency statistics from the local archive
//   - cockpit sessions: list and export conversation sessions
//   - cockpit macros: list, show, and run macro templates
//   - cockpit auth: manage orchestrator tokens in the keystore
//   - cockpit config: get and set configuration values
//   - cockpit demo: run the built-in stub orchestrator
//
// All commands accept --json for machine-readable output where it
// makes sense, and respect NO_COLOR / FORCE_COLOR for styling.
package cli
