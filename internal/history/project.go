// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history turns orchestrator request records into the message
// list the cockpit displays.
package history

import (
	"time"
)

// =============================================================================
// GRACE WINDOW
// =============================================================================

// GraceWindow bounds how long a request stays "pending" after its
// terminal signal, so the optimistic rendering does not flash away
// before the history rendering of the same content is in place. The
// window scales with response length: 4ms per character, clamped.
// The scaling is display polish, not a contract; both bounds are
// config tunables.
type GraceWindow struct {
	FloorMs   int
	CeilingMs int
}

// DefaultGraceWindow returns the stock 300..1200ms window.
func DefaultGraceWindow() GraceWindow {
	return GraceWindow{FloorMs: 300, CeilingMs: 1200}
}

// Duration returns the grace period for a response of textLen characters.
func (g GraceWindow) Duration(textLen int) time.Duration {
	floor := g.FloorMs
	if floor <= 0 {
		floor = 300
	}
	ceiling := g.CeilingMs
	if ceiling < floor {
		ceiling = 1200
		if ceiling < floor {
			ceiling = floor
		}
	}

	ms := textLen * 4
	if ms < floor {
		ms = floor
	}
	if ms > ceiling {
		ms = ceiling
	}
	return time.Duration(ms) * time.Millisecond
}

// =============================================================================
// LIVE REQUESTS
// =============================================================================

// LiveRequest is the projection's view of one optimistic request: the
// tracker entry joined with its stream state. The UI layer assembles
// these from the tracker snapshot and its per-request stream buffers.
type LiveRequest struct {
	ClientID  string
	RequestID string // effective id: server id once linked, client id before
	Prompt    string
	CreatedAt time.Time

	// Buffer is the streamed-so-far response text (direct path) or the
	// latest task-stream snapshot (queued path). Empty until first output.
	Buffer string

	// Failed marks a terminal stream failure; ErrorText is what the
	// operator sees.
	Failed    bool
	ErrorText string

	// TerminalAt is when the terminal signal (stream done, failure) was
	// observed. Zero while the request is still producing output.
	TerminalAt time.Time
}

// Pending reports whether the request's answer is still pending at now:
// true until a terminal signal has been observed AND the grace window
// has elapsed since it.
func (l LiveRequest) Pending(now time.Time, grace GraceWindow) bool {
	if l.TerminalAt.IsZero() {
		return true
	}
	return now.Sub(l.TerminalAt) < grace.Duration(len(l.Buffer))
}

// =============================================================================
// CHAT MESSAGE PROJECTION
// =============================================================================

// ChatMessage is one renderable message. Derived at render time, never
// stored.
type ChatMessage struct {
	Role      Role
	Content   string
	RequestID string
	Pending   bool
	Failed    bool
	Timestamp time.Time

	// ClientID is set on messages synthesized from optimistic state.
	ClientID string
}

// Project merges confirmed history with the optimistic requests into the
// displayed message list:
//
//  1. history rows whose request is still pending are filtered out, so
//     a half-written history snapshot never fights the richer local copy;
//  2. each optimistic request synthesizes the roles the surviving
//     history rows do not already cover;
//  3. optimistic messages follow history messages.
//
// While a request is pending the list never contains two assistant
// messages for its request id.
func Project(entries []Entry, live []LiveRequest, now time.Time, grace GraceWindow) []ChatMessage {
	pending := make(map[string]bool, len(live))
	for _, l := range live {
		if l.Pending(now, grace) {
			pending[l.RequestID] = true
		}
	}

	out := make([]ChatMessage, 0, len(entries)+2*len(live))

	// Roles already covered by a surviving history row, per request id.
	covered := make(map[string]map[Role]bool)

	for _, e := range entries {
		if e.RequestID != "" && pending[e.RequestID] {
			continue
		}
		out = append(out, ChatMessage{
			Role:      e.Role,
			Content:   e.Content,
			RequestID: e.RequestID,
			Failed:    e.Failed,
			Timestamp: e.Timestamp,
		})
		if e.RequestID != "" {
			if covered[e.RequestID] == nil {
				covered[e.RequestID] = make(map[Role]bool, 2)
			}
			covered[e.RequestID][e.Role] = true
		}
	}

	for _, l := range live {
		isPending := l.Pending(now, grace)

		if !covered[l.RequestID][RoleUser] {
			out = append(out, ChatMessage{
				Role:      RoleUser,
				Content:   l.Prompt,
				RequestID: l.RequestID,
				Pending:   isPending,
				Timestamp: l.CreatedAt,
				ClientID:  l.ClientID,
			})
		}

		if covered[l.RequestID][RoleAssistant] {
			continue
		}
		switch {
		case l.Failed:
			text := l.ErrorText
			if text == "" {
				text = "request failed"
			}
			out = append(out, ChatMessage{
				Role:      RoleAssistant,
				Content:   text,
				RequestID: l.RequestID,
				Pending:   isPending,
				Failed:    true,
				Timestamp: l.CreatedAt,
				ClientID:  l.ClientID,
			})
		case l.Buffer != "":
			out = append(out, ChatMessage{
				Role:      RoleAssistant,
				Content:   l.Buffer,
				RequestID: l.RequestID,
				Pending:   isPending,
				Timestamp: l.CreatedAt,
				ClientID:  l.ClientID,
			})
		}
		// No output yet: the user message alone represents the request;
		// the view layer renders the waiting indicator.
	}

	return out
}
