// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history turns orchestrator request records into the message
// list the cockpit displays.
package history

import (
	"time"

	"github.com/jeranaias/cockpit-tui/internal/api"
)

// Role identifies the author of a history entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"

	// RoleSystem only appears in projected transcripts; the cockpit
	// injects it for local notices, the orchestrator never stores it.
	RoleSystem Role = "system"
)

// Entry is one server-confirmed (or cache-restored) message in a
// session. RequestID correlates it to the optimistic entry that
// produced it; entries imported from outside the cockpit may lack one.
type Entry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id,omitempty"`

	// Failed marks an assistant entry synthesized from a failed request;
	// the content is the error text in that case.
	Failed bool `json:"failed,omitempty"`
}

// FromRecord explodes a request record into its history entries: the
// user prompt, and the assistant response once one exists. A failed
// request yields a failed assistant entry carrying the error text.
func FromRecord(rec api.RequestRecord) []Entry {
	entries := []Entry{{
		Role:      RoleUser,
		Content:   rec.Prompt,
		RequestID: rec.RequestID,
		Timestamp: rec.CreatedAt,
		SessionID: rec.SessionID,
	}}

	finished := rec.CreatedAt
	if rec.FinishedAt != nil {
		finished = *rec.FinishedAt
	}

	switch {
	case rec.Response != "":
		entries = append(entries, Entry{
			Role:      RoleAssistant,
			Content:   rec.Response,
			RequestID: rec.RequestID,
			Timestamp: finished,
			SessionID: rec.SessionID,
		})
	case rec.Status == api.StatusFailed || rec.Status == api.StatusLost:
		text := rec.Error
		if text == "" {
			if rec.Status == api.StatusLost {
				text = "request lost by orchestrator"
			} else {
				text = "request failed"
			}
		}
		entries = append(entries, Entry{
			Role:      RoleAssistant,
			Content:   text,
			RequestID: rec.RequestID,
			Timestamp: finished,
			SessionID: rec.SessionID,
			Failed:    true,
		})
	}

	return entries
}

// FromRecords explodes a history page into entries, preserving record
// order.
func FromRecords(records []api.RequestRecord) []Entry {
	out := make([]Entry, 0, len(records)*2)
	for _, rec := range records {
		out = append(out, FromRecord(rec)...)
	}
	return out
}
