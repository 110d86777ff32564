// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders cockpit transcripts into shareable documents.
//
// The input is a Transcript: the projected conversation the operator
// saw, plus the session context it was captured under. Pending
// messages are dropped by default since the orchestrator has not
// confirmed them; the JSON format keeps everything as a faithful
// snapshot.
//
// # Key Types
//
//   - Transcript: The projected conversation to export
//   - Exporter: Per-format rendering interface
//   - Options: Export configuration
//
// # Supported Formats
//
//   - Markdown: Human-readable with frontmatter metadata
//   - JSON: Machine-readable, complete snapshot
//   - Text: Plain text for tickets and email
//   - HTML: Styled for viewing in browsers
//
// # Usage
//
// Export a transcript to a file in the current directory:
//
//	path, err := export.ExportToFile(transcript, "markdown", nil)
package export
