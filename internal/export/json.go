// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports transcripts to JSON format.
// NOTE: JSON exports always include the complete transcript, pending
// messages included, and do not respect filtering options. The exported
// document is a faithful snapshot of what the cockpit held.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter. The options parameter
// is accepted for consistency with other exporters.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// jsonDocument is the stable on-disk schema.
type jsonDocument struct {
	SessionID  string        `json:"session_id"`
	Runtime    string        `json:"runtime,omitempty"`
	ChatMode   string        `json:"chat_mode,omitempty"`
	ExportedAt time.Time     `json:"exported_at"`
	Messages   []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Pending   bool      `json:"pending,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
}

// Export converts a transcript to JSON format.
func (e *JSONExporter) Export(t *Transcript) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	doc := jsonDocument{
		SessionID:  t.SessionID,
		Runtime:    t.Runtime,
		ChatMode:   t.ChatMode,
		ExportedAt: t.ExportedAt,
		Messages:   make([]jsonMessage, 0, len(t.Messages)),
	}
	for _, msg := range t.Messages {
		doc.Messages = append(doc.Messages, jsonMessage{
			Role:      string(msg.Role),
			Content:   msg.Content,
			RequestID: msg.RequestID,
			Timestamp: msg.Timestamp,
			Pending:   msg.Pending,
			Failed:    msg.Failed,
		})
	}

	return json.MarshalIndent(doc, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
