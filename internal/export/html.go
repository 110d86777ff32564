// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/jeranaias/cockpit-tui/internal/history"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports transcripts to HTML with embedded CSS.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts a transcript to HTML format.
func (e *HTMLExporter) Export(t *Transcript) ([]byte, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}
	messages := t.filtered(e.options.IncludePending)
	if len(messages) == 0 {
		return nil, fmt.Errorf("transcript has no confirmed messages")
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>Session %s</title>\n", html.EscapeString(t.SessionID)))
	sb.WriteString("    <meta name=\"generator\" content=\"cockpit-tui\">\n")
	sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", t.ExportedAt.Format(time.RFC3339)))

	sb.WriteString(e.getCSS())

	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", e.options.Theme))
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(t, len(messages)))
	}

	sb.WriteString("        <main class=\"transcript\">\n")
	for i := range messages {
		sb.WriteString(e.renderMessage(&messages[i]))
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	sb.WriteString(fmt.Sprintf("            <p>Exported from <strong>cockpit</strong> on %s</p>\n",
		t.ExportedAt.Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("        </footer>\n")

	sb.WriteString("    </div>\n")
	sb.WriteString(e.getScript())
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

// renderHeader renders the header section with session metadata.
func (e *HTMLExporter) renderHeader(t *Transcript, messageCount int) string {
	var sb strings.Builder

	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1>Session %s</h1>\n", html.EscapeString(t.SessionID)))
	sb.WriteString("            <div class=\"metadata\">\n")
	if t.Runtime != "" {
		sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Runtime:</strong> %s</span>\n", html.EscapeString(t.Runtime)))
	}
	if t.ChatMode != "" {
		sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Mode:</strong> %s</span>\n", html.EscapeString(t.ChatMode)))
	}
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", messageCount))
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Exported:</strong> %s</span>\n", formatTimestamp(t.ExportedAt)))
	sb.WriteString("                <button class=\"theme-toggle\" onclick=\"toggleTheme()\" title=\"Toggle theme\">[Theme]</button>\n")
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")

	return sb.String()
}

// renderMessage renders a single message block.
func (e *HTMLExporter) renderMessage(msg *history.ChatMessage) string {
	var sb strings.Builder

	classes := "message " + messageClass(msg.Role)
	if msg.Failed {
		classes += " failed"
	}
	if msg.Pending {
		classes += " pending"
	}

	sb.WriteString(fmt.Sprintf("            <div class=\"%s\">\n", classes))
	sb.WriteString("                <div class=\"message-header\">\n")
	sb.WriteString(fmt.Sprintf("                    <span class=\"role\">%s</span>\n", roleLabel(msg.Role)))
	if msg.Failed {
		sb.WriteString("                    <span class=\"badge badge-failed\">failed</span>\n")
	}
	if msg.Pending {
		sb.WriteString("                    <span class=\"badge badge-pending\">unconfirmed</span>\n")
	}
	if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
		sb.WriteString(fmt.Sprintf("                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.Timestamp)))
	}
	sb.WriteString("                </div>\n")
	sb.WriteString("                <div class=\"message-content\">\n")
	sb.WriteString(formatHTMLContent(msg.Content))
	sb.WriteString("\n                </div>\n")
	sb.WriteString("            </div>\n")

	return sb.String()
}

// messageClass maps a role to its CSS class.
func messageClass(role history.Role) string {
	switch role {
	case history.RoleUser:
		return "user"
	case history.RoleAssistant:
		return "assistant"
	default:
		return "system"
	}
}

// codeFenceRe matches fenced code blocks including the optional
// language tag.
var codeFenceRe = regexp.MustCompile("(?s)```([a-zA-Z0-9_+-]*)\n(.*?)```")

// formatHTMLContent escapes message text and converts fenced code
// blocks into pre/code elements.
func formatHTMLContent(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return "<p>(empty)</p>"
	}

	var sb strings.Builder
	last := 0
	for _, loc := range codeFenceRe.FindAllStringSubmatchIndex(content, -1) {
		if loc[0] > last {
			sb.WriteString(renderParagraphs(content[last:loc[0]]))
		}
		lang := content[loc[2]:loc[3]]
		code := content[loc[4]:loc[5]]
		if lang != "" {
			sb.WriteString(fmt.Sprintf("<pre><code class=\"language-%s\">%s</code></pre>\n",
				html.EscapeString(lang), html.EscapeString(code)))
		} else {
			sb.WriteString(fmt.Sprintf("<pre><code>%s</code></pre>\n", html.EscapeString(code)))
		}
		last = loc[1]
	}
	if last < len(content) {
		sb.WriteString(renderParagraphs(content[last:]))
	}

	return strings.TrimRight(sb.String(), "\n")
}

// renderParagraphs escapes plain text and preserves line structure.
func renderParagraphs(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	var sb strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		escaped := html.EscapeString(para)
		escaped = strings.ReplaceAll(escaped, "\n", "<br>\n")
		sb.WriteString("<p>" + escaped + "</p>\n")
	}
	return sb.String()
}

// =============================================================================
// STATIC ASSETS
// =============================================================================

// getCSS returns the embedded stylesheet.
func (e *HTMLExporter) getCSS() string {
	return `    <style>
        :root {
            --bg: #ffffff;
            --fg: #1a1a2e;
            --muted: #6b7280;
            --border: #e5e7eb;
            --user-bg: #eff6ff;
            --user-border: #3b82f6;
            --assistant-bg: #f9fafb;
            --assistant-border: #8b5cf6;
            --system-bg: #fffbeb;
            --system-border: #f59e0b;
            --failed-border: #ef4444;
            --code-bg: #f3f4f6;
        }
        body.dark-theme {
            --bg: #0f1117;
            --fg: #e5e7eb;
            --muted: #9ca3af;
            --border: #1f2937;
            --user-bg: #172136;
            --user-border: #3b82f6;
            --assistant-bg: #161a22;
            --assistant-border: #8b5cf6;
            --system-bg: #1f1a10;
            --system-border: #f59e0b;
            --failed-border: #ef4444;
            --code-bg: #1f2430;
        }
        * { box-sizing: border-box; }
        body {
            margin: 0;
            background: var(--bg);
            color: var(--fg);
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            line-height: 1.6;
        }
        .container { max-width: 860px; margin: 0 auto; padding: 2rem 1rem; }
        .header { border-bottom: 2px solid var(--border); padding-bottom: 1rem; margin-bottom: 2rem; }
        .header h1 { margin: 0 0 0.5rem; font-size: 1.5rem; }
        .metadata { display: flex; flex-wrap: wrap; gap: 1rem; color: var(--muted); font-size: 0.875rem; align-items: center; }
        .theme-toggle { margin-left: auto; background: none; border: 1px solid var(--border); color: var(--muted); border-radius: 4px; padding: 0.25rem 0.5rem; cursor: pointer; }
        .message { border-left: 3px solid var(--border); border-radius: 6px; padding: 0.75rem 1rem; margin-bottom: 1rem; }
        .message.user { background: var(--user-bg); border-left-color: var(--user-border); }
        .message.assistant { background: var(--assistant-bg); border-left-color: var(--assistant-border); }
        .message.system { background: var(--system-bg); border-left-color: var(--system-border); font-size: 0.9rem; }
        .message.failed { border-left-color: var(--failed-border); }
        .message.pending { opacity: 0.7; }
        .message-header { display: flex; gap: 0.5rem; align-items: baseline; margin-bottom: 0.5rem; }
        .role { font-weight: 600; font-size: 0.875rem; }
        .timestamp { color: var(--muted); font-size: 0.75rem; margin-left: auto; }
        .badge { font-size: 0.7rem; border-radius: 3px; padding: 0 0.35rem; text-transform: uppercase; }
        .badge-failed { background: var(--failed-border); color: #fff; }
        .badge-pending { background: var(--border); color: var(--muted); }
        .message-content p { margin: 0 0 0.5rem; }
        .message-content pre { background: var(--code-bg); border-radius: 6px; padding: 0.75rem; overflow-x: auto; }
        .message-content code { font-family: "SF Mono", Menlo, Consolas, monospace; font-size: 0.85rem; }
        .footer { border-top: 1px solid var(--border); margin-top: 2rem; padding-top: 1rem; color: var(--muted); font-size: 0.8rem; }
    </style>
`
}

// getScript returns the theme toggle script.
func (e *HTMLExporter) getScript() string {
	return `    <script>
        function toggleTheme() {
            document.body.classList.toggle("dark-theme");
            document.body.classList.toggle("light-theme");
        }
    </script>
`
}
