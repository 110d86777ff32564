// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/cockpit-tui/internal/history"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a transcript to Markdown format.
func (e *MarkdownExporter) Export(t *Transcript) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	messages := t.filtered(e.options.IncludePending)
	if len(messages) == 0 {
		return nil, fmt.Errorf("transcript has no confirmed messages")
	}

	var sb strings.Builder

	// YAML frontmatter with metadata
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("session: %s\n", escapeYAML(t.SessionID)))
		if t.Runtime != "" {
			sb.WriteString(fmt.Sprintf("runtime: %s\n", escapeYAML(t.Runtime)))
		}
		if t.ChatMode != "" {
			sb.WriteString(fmt.Sprintf("mode: %s\n", t.ChatMode))
		}
		sb.WriteString(fmt.Sprintf("messages: %d\n", len(messages)))
		sb.WriteString(fmt.Sprintf("exported: %s\n", t.ExportedAt.Format(time.RFC3339)))
		sb.WriteString("generator: cockpit-tui\n")
		sb.WriteString("---\n\n")
	}

	// Title
	sb.WriteString(fmt.Sprintf("# Session %s\n\n", escapeMarkdown(t.SessionID)))

	// Metadata section
	if e.options.IncludeMetadata {
		sb.WriteString("## Session Information\n\n")
		if t.Runtime != "" {
			sb.WriteString(fmt.Sprintf("- **Runtime**: %s\n", t.Runtime))
		}
		if t.ChatMode != "" {
			sb.WriteString(fmt.Sprintf("- **Chat Mode**: %s\n", t.ChatMode))
		}
		sb.WriteString(fmt.Sprintf("- **Messages**: %d\n", len(messages)))
		sb.WriteString(fmt.Sprintf("- **Exported**: %s\n", formatTimestamp(t.ExportedAt)))
		sb.WriteString("\n---\n\n")
	}

	// Transcript messages
	sb.WriteString("## Transcript\n\n")

	for i, msg := range messages {
		label := roleLabel(msg.Role)
		if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
			sb.WriteString(fmt.Sprintf("### [%s] <sub>%s</sub>\n\n",
				label, formatShortTimestamp(msg.Timestamp)))
		} else {
			sb.WriteString(fmt.Sprintf("### [%s]\n\n", label))
		}

		sb.WriteString(e.formatMessageContent(&msg))
		sb.WriteString("\n\n")

		if i < len(messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	// Footer
	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from cockpit on %s*\n",
		t.ExportedAt.Format("January 2, 2006 at 3:04 PM")))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// formatMessageContent renders one message body, marking failures and
// unconfirmed state.
func (e *MarkdownExporter) formatMessageContent(msg *history.ChatMessage) string {
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		content = "(empty)"
	}

	switch {
	case msg.Failed:
		return "> **[failed]** " + strings.ReplaceAll(content, "\n", "\n> ")
	case msg.Pending:
		return content + "\n\n<sub>*unconfirmed at export time*</sub>"
	default:
		return content
	}
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	// Only escape characters that would break formatting in titles/headings
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeYAML escapes special YAML characters in values.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
