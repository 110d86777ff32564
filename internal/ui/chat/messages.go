// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/config"
	"github.com/jeranaias/cockpit-tui/internal/events"
	"github.com/jeranaias/cockpit-tui/internal/macro"
	"github.com/jeranaias/cockpit-tui/internal/queue"
)

/*
Message types for the chat model, grouped by origin:

1. SUBMISSION   - queued-path acknowledgements from the orchestrator
2. STREAMING    - direct-path stream lifecycle (deltas bypass messages)
3. FEED         - orchestrator event feed and its connection state
4. DATA         - history, queue, runtime, and health fetch results
5. MACRO        - macro runner progress
6. TICKS        - render flush and poll fallback timers

Stream deltas deliberately do NOT arrive as messages. The reader
goroutine writes them straight into the shared StreamBuffer and the
render tick drains it, so a fast stream costs flushes per second, not
wakeups per token. Only lifecycle transitions go through the program.
*/

// =============================================================================
// SUBMISSION MESSAGES
// =============================================================================

// SubmitAckMsg reports a queued-path submission accepted by the
// orchestrator. ClientID is the optimistic tracker id, TaskID the
// local queue board entry.
type SubmitAckMsg struct {
	ClientID string
	TaskID   string
	Resp     *api.SubmitResponse
}

// SubmitFailedMsg reports a submission the orchestrator rejected or
// that never reached it.
type SubmitFailedMsg struct {
	ClientID string
	TaskID   string
	Err      error
}

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamLinkedMsg carries the server-issued request id announced on a
// direct stream.
type StreamLinkedMsg struct {
	ClientID  string
	RequestID string
}

// StreamFirstByteMsg marks the first delta of a direct stream, for
// time-to-first-token accounting.
type StreamFirstByteMsg struct {
	ClientID string
	At       time.Time
}

// StreamDoneMsg marks a direct stream that completed normally.
type StreamDoneMsg struct {
	ClientID string
}

// StreamFailedMsg marks a direct stream that ended in an error.
type StreamFailedMsg struct {
	ClientID string
	Err      error
}

// =============================================================================
// FEED MESSAGES
// =============================================================================

// FeedEventMsg wraps one orchestrator event from the live feed.
type FeedEventMsg struct {
	Event events.Event
}

// FeedStateMsg reports feed connection transitions: connected after
// the first event, reconnecting on gaps, down when the reconnect
// budget is spent and polling takes over.
type FeedStateMsg struct {
	Connected bool
	Down      bool
	Err       error
}

// =============================================================================
// DATA MESSAGES
// =============================================================================

// HistoryMsg carries the result of a session history fetch.
type HistoryMsg struct {
	SessionID string
	Records   []api.RequestRecord
	Err       error
}

// HealthMsg carries the result of an orchestrator health probe.
type HealthMsg struct {
	Version string
	Err     error
}

// QueueSnapshotMsg carries the orchestrator queue status.
type QueueSnapshotMsg struct {
	Status api.QueueStatus
	Err    error
}

// RuntimesMsg carries the configured runtime list.
type RuntimesMsg struct {
	Runtimes []api.Runtime
	Err      error
}

// TaskNotificationMsg surfaces a queued task reaching a terminal
// status, for the notification line.
type TaskNotificationMsg struct {
	Note queue.Notification
}

// ConfigReloadedMsg carries a config hot-reloaded from disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// =============================================================================
// MACRO MESSAGES
// =============================================================================

// MacroStepMsg reports macro step progress. Step is 1-based.
type MacroStepMsg struct {
	Macro  string
	Step   int
	Total  int
	Status string
}

// MacroDoneMsg reports a finished macro run.
type MacroDoneMsg struct {
	Macro string
	Run   *macro.Run
	Err   error
}

// =============================================================================
// TICK MESSAGES
// =============================================================================

// RenderTickMsg drives stream buffer flushes and grace-window
// re-projection while anything is live.
type RenderTickMsg struct {
	Time time.Time
}

// PollTickMsg drives the history poll fallback when the feed is down.
type PollTickMsg struct {
	Time time.Time
}
