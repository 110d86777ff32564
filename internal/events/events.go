// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package events

import (
	"github.com/jeranaias/cockpit-tui/internal/api"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// EventType names the kind of feed line.
type EventType string

const (
	// EventQueued announces a request accepted onto the orchestrator queue.
	EventQueued EventType = "request_queued"

	// EventStarted announces a request picked up by a worker.
	EventStarted EventType = "request_started"

	// EventDelta carries a token batch from a request in flight.
	EventDelta EventType = "request_delta"

	// EventFinished announces a terminal status for a request.
	EventFinished EventType = "request_finished"

	// EventQueueChanged announces a queue depth or pause change.
	EventQueueChanged EventType = "queue_changed"

	// EventRuntimeChanged announces an active-runtime switch.
	EventRuntimeChanged EventType = "runtime_changed"

	// EventHeartbeat is the orchestrator's keepalive. Carries only seq.
	EventHeartbeat EventType = "heartbeat"
)

// Event is one decoded line of the orchestrator feed. Fields are
// populated according to Type; consumers switch on Type and read the
// fields that kind carries.
type Event struct {
	Seq       int64            `json:"seq,omitempty"`
	Type      EventType        `json:"type"`
	RequestID string           `json:"request_id,omitempty"`
	SessionID string           `json:"session_id,omitempty"`
	Status    api.Status       `json:"status,omitempty"`
	Delta     string           `json:"delta,omitempty"`
	Response  string           `json:"response,omitempty"`
	ErrorMsg  string           `json:"error,omitempty"`
	Queue     *api.QueueStatus `json:"queue,omitempty"`
	Runtime   string           `json:"runtime,omitempty"`

	// Err carries client-side feed failures to consumers; it is never
	// populated from the wire.
	Err error `json:"-"`
}

// IsTerminal reports whether the event closes out its request.
func (e Event) IsTerminal() bool {
	return e.Type == EventFinished && e.Status.IsTerminal()
}

// HasError reports whether the event is a client-side failure marker.
func (e Event) HasError() bool {
	return e.Err != nil
}
