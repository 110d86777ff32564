// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders cockpit transcripts into shareable documents.
// Markdown, JSON, plain text, and HTML are supported.
package export

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/jeranaias/cockpit-tui/internal/history"
	"github.com/jeranaias/cockpit-tui/internal/util"
)

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is the export input: a projected conversation plus the
// session context it was captured under.
type Transcript struct {
	SessionID  string
	Runtime    string
	ChatMode   string
	ExportedAt time.Time
	Messages   []history.ChatMessage
}

// filtered returns the exportable messages. Pending messages are
// dropped unless asked for; they have not been confirmed by the
// orchestrator and may still change or vanish.
func (t *Transcript) filtered(includePending bool) []history.ChatMessage {
	if includePending {
		return t.Messages
	}
	out := make([]history.ChatMessage, 0, len(t.Messages))
	for _, msg := range t.Messages {
		if msg.Pending {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// validate rejects transcripts no exporter can do anything with.
func (t *Transcript) validate() error {
	if t == nil {
		return fmt.Errorf("transcript is nil")
	}
	if len(t.Messages) == 0 {
		return fmt.Errorf("transcript has no messages")
	}
	return nil
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for transcript exporters.
type Exporter interface {
	// Export renders the transcript in the target format.
	Export(t *Transcript) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g. ".md").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files are written.
	// Default: current working directory.
	OutputDir string

	// IncludeMetadata includes the session header block.
	IncludeMetadata bool

	// IncludeTimestamps includes per-message timestamps.
	IncludeTimestamps bool

	// IncludePending keeps unconfirmed messages in the output. The
	// JSON exporter always keeps them regardless.
	IncludePending bool

	// Theme for HTML export ("light" or "dark").
	// Default: "dark".
	Theme string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		IncludePending:    false,
		Theme:             "dark",
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ForFormat returns the exporter for a format name.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch format {
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	case "txt", "text":
		return NewTextExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// ExportToFile renders the transcript and writes it next to the
// cockpit. Returns the output file path.
func ExportToFile(t *Transcript, format string, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	exporter, err := ForFormat(format, opts)
	if err != nil {
		return "", err
	}

	content, err := exporter.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("cockpit_%s_%s%s",
		sanitizeFilename(t.SessionID),
		timestamp,
		exporter.FileExtension(),
	)

	outputPath := filepath.Join(opts.OutputDir, filename)
	if err := util.AtomicWriteFileWithDir(outputPath, content, 0644, 0755); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in
// filenames.
func sanitizeFilename(s string) string {
	maxLen := 50
	runes := []rune(s)
	if len(runes) > maxLen {
		s = string(runes[:maxLen])
	}

	replacer := map[rune]rune{
		'/':  '-',
		'\\': '-',
		':':  '-',
		'*':  '-',
		'?':  '-',
		'"':  '-',
		'<':  '-',
		'>':  '-',
		'|':  '-',
		' ':  '_',
		'\t': '_',
		'\n': '_',
		'\r': '_',
	}

	result := []rune{}
	for _, r := range s {
		if replacement, found := replacer[r]; found {
			result = append(result, replacement)
		} else if r < 32 || r == 127 {
			result = append(result, '-')
		} else {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "session"
	}

	return string(result)
}

// roleLabel returns a display label for a message role.
func roleLabel(role history.Role) string {
	switch role {
	case history.RoleUser:
		return "User"
	case history.RoleAssistant:
		return "Assistant"
	case history.RoleSystem:
		return "System"
	default:
		return string(role)
	}
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
