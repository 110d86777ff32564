// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
)

// =============================================================================
// TEXT EXPORTER
// =============================================================================

// TextExporter exports transcripts to plain text, suitable for
// pasting into tickets or email.
type TextExporter struct {
	options *Options
}

// NewTextExporter creates a new plain text exporter.
func NewTextExporter(opts *Options) *TextExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &TextExporter{options: opts}
}

// Export converts a transcript to plain text.
func (e *TextExporter) Export(t *Transcript) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	messages := t.filtered(e.options.IncludePending)
	if len(messages) == 0 {
		return nil, fmt.Errorf("transcript has no confirmed messages")
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("cockpit transcript - session " + t.SessionID + "\n")
		if t.Runtime != "" {
			sb.WriteString("runtime: " + t.Runtime + "\n")
		}
		if t.ChatMode != "" {
			sb.WriteString("mode: " + t.ChatMode + "\n")
		}
		sb.WriteString("exported: " + formatTimestamp(t.ExportedAt) + "\n")
		sb.WriteString(strings.Repeat("-", 60) + "\n\n")
	}

	for _, msg := range messages {
		label := strings.ToLower(roleLabel(msg.Role))
		if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
			fmt.Fprintf(&sb, "[%s] %s:\n", formatShortTimestamp(msg.Timestamp), label)
		} else {
			fmt.Fprintf(&sb, "%s:\n", label)
		}

		content := strings.TrimSpace(msg.Content)
		if content == "" {
			content = "(empty)"
		}
		if msg.Failed {
			content = "[failed] " + content
		}
		for _, line := range strings.Split(content, "\n") {
			sb.WriteString("    " + line + "\n")
		}
		sb.WriteString("\n")
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for plain text.
func (e *TextExporter) FileExtension() string {
	return ".txt"
}

// MimeType returns the MIME type for plain text.
func (e *TextExporter) MimeType() string {
	return "text/plain"
}
