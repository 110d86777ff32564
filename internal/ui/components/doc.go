// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides the visual UI components for the cockpit TUI.

Each component is a plain renderer: the chat model owns the state, hands
the component a snapshot, and asks for a string. Components never talk to
the network and never mutate domain state, so every one of them can be
tested by calling View and inspecting the output.

# Key Types

  - Header - top bar with brand, session, runtime, and feed state
  - StatusBar - bottom bar with chat mode, queue state, and latency
  - MessageBubble / MessageList - chat transcript rendering
  - CodeBlock - chroma-highlighted fenced code
  - QueuePanel - the queued-request board
  - TelemetryPanel - latency aggregates and recent samples
  - Drawer - per-request detail overlay
  - HelpOverlay - keybindings and slash command reference
  - Spinner - thinking indicator with elapsed time
  - CompletionPopup - slash command completion list

# Usage

	header := components.NewHeader(theme)
	header.SetWidth(120)
	header.SetSession("sess_20260211", "claude-main")
	fmt.Println(header.View())

All components take the active *styles.Theme at construction and size
through SetWidth/SetSize so the chat model can re-layout on resize.
*/
package components
