// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat implements the main cockpit view: the chat transcript,
input line, queue and telemetry panels, and the overlays above them.

The package is a Bubble Tea model wired to an agent orchestrator. The
transcript it renders is a projection: confirmed history fetched from
the orchestrator, merged with optimistic entries for requests still in
flight, so a submitted prompt appears instantly and settles into its
confirmed form once history catches up.

# Key Components

## Model (model.go)

The Model struct holds all chat state and implements the Bubble Tea
contract:
  - Merged transcript entries plus per-request live stream views
  - Optimistic request tracking via the track package
  - Queue board, telemetry, and session wiring
  - Panel, overlay, and error banner state

## Update Loop (update.go, input.go, cancel.go)

Message dispatch and user interaction:
  - Prompt submission on the direct and queued paths
  - Slash command parsing, completion, and execution
  - Layered interrupt handling (drop request, clear input, quit)
  - History reconciliation and optimistic entry pruning

## View Rendering (view.go)

Rendering for the complete frame:
  - Header with session, runtime, and feed state
  - Transcript viewport joined with the queue or telemetry panel
  - Wait indicator, error banner, and completion popup
  - Status bar with mode, queue depth, pending count, and latency

## Streaming (streaming.go)

Flicker-free response streaming:
  - StreamBuffer batches deltas off the UI goroutine
  - Render ticks drain at a capped frame rate
  - Lifecycle transitions arrive as messages; deltas never do

## Commands (commands.go)

Typed handlers for the command layer's messages: session switching,
mode and runtime selection, queue control, config updates, transcript
export, and macro runs.

## Vim Navigation (vim.go)

Optional modal editing:
  - Normal mode for transcript navigation (j/k scroll, gg/G jump)
  - Insert mode for the input line
  - Command mode for ex commands (:q, :w, :drop)

# Usage

Build the dependencies once, then run the model as a Bubble Tea
program:

	model := chat.New(chat.Deps{
		Config:   cfg,
		Client:   client,
		Tracker:  track.New(),
		Board:    queue.NewBoard(cfg.Queue.MaxHistory),
		Session:  sess,
		Latency:  lat,
		Macros:   macros,
		Cache:    cache,
		Streamer: streamer,
		Buffers:  buffers,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())
	streamer.SetProgram(p)
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
*/
package chat
