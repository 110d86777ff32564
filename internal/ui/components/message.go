// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the cockpit TUI.
package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cockpit-tui/internal/history"
	"github.com/jeranaias/cockpit-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE BUBBLE COMPONENT
// =============================================================================

// MessageBubble renders one projected chat message. The projection
// already decided pending/failed; the bubble only draws it.
type MessageBubble struct {
	Message       history.ChatMessage
	Width         int
	IsLatest      bool
	ShowTimestamp bool
	SyntaxTheme   string
	theme         *styles.Theme
}

// NewMessageBubble creates a new MessageBubble.
func NewMessageBubble(msg history.ChatMessage, theme *styles.Theme) *MessageBubble {
	return &MessageBubble{
		Message:       msg,
		Width:         80,
		ShowTimestamp: true,
		SyntaxTheme:   DefaultSyntaxTheme,
		theme:         theme,
	}
}

// SetWidth sets the bubble width.
func (b *MessageBubble) SetWidth(width int) {
	b.Width = width
}

// SetIsLatest marks this as the latest message.
func (b *MessageBubble) SetIsLatest(latest bool) {
	b.IsLatest = latest
}

// View renders the message bubble.
func (b *MessageBubble) View() string {
	if b.Message.Failed {
		return b.renderFailedBubble()
	}
	switch b.Message.Role {
	case history.RoleUser:
		return b.renderUserBubble()
	case history.RoleAssistant:
		return b.renderAssistantBubble()
	default:
		return b.renderSystemBubble()
	}
}

// ==========================================================================
// USER BUBBLE - blue tones, right-aligned
// ==========================================================================

func (b *MessageBubble) renderUserBubble() string {
	content := b.Message.Content
	if content == "" {
		content = "..."
	}

	maxContentWidth := b.Width - 12
	if maxContentWidth < 20 {
		maxContentWidth = 20
	}
	wrapped := wordWrap(content, maxContentWidth)
	contentWidth := minInt(maxLineWidth(wrapped)+4, b.Width-8)

	bubble := lipgloss.NewStyle().
		Foreground(styles.UserBubbleFg).
		Background(styles.UserBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.UserBubbleBorder).
		Padding(0, 2).
		Width(contentWidth).
		Render(wrapped)

	header := b.renderHeader("you")

	// Right-align with a computed left margin.
	leftMargin := b.Width - contentWidth - 4
	if leftMargin < 0 {
		leftMargin = 0
	}
	marginStyle := lipgloss.NewStyle().MarginLeft(leftMargin)

	return lipgloss.JoinVertical(lipgloss.Right,
		marginStyle.Render(header),
		marginStyle.Render(bubble))
}

// ==========================================================================
// ASSISTANT BUBBLE - purple tones, left-aligned
// ==========================================================================

func (b *MessageBubble) renderAssistantBubble() string {
	content := b.Message.Content

	// Pending messages show the stream cursor after whatever has
	// arrived so far.
	if b.Message.Pending {
		content += b.renderStreamCursor()
	}
	if content == "" {
		content = "..."
	}

	maxContentWidth := b.Width - 12
	if maxContentWidth < 20 {
		maxContentWidth = 20
	}

	// Highlight fenced code before wrapping plain text around it.
	if strings.Contains(content, "```") {
		content = ParseCodeBlocks(content, maxContentWidth, b.SyntaxTheme)
	} else {
		content = wordWrap(content, maxContentWidth)
	}

	contentWidth := minInt(maxLineWidth(content)+4, b.Width-8)

	bubble := lipgloss.NewStyle().
		Foreground(styles.AssistantBubbleFg).
		Background(styles.AssistantBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.AssistantBubbleBorder).
		Padding(0, 2).
		Width(contentWidth).
		MarginRight(4).
		Render(content)

	role := "assistant"
	if b.Message.Pending {
		role = "assistant ~"
	}
	header := b.renderHeader(role)

	return lipgloss.JoinVertical(lipgloss.Left, header, bubble)
}

// ==========================================================================
// SYSTEM BUBBLE - amber tones, centered
// ==========================================================================

func (b *MessageBubble) renderSystemBubble() string {
	content := b.Message.Content
	if content == "" {
		content = "system message"
	}

	maxContentWidth := b.Width - 20
	if maxContentWidth < 30 {
		maxContentWidth = 30
	}
	wrapped := wordWrap(content, maxContentWidth)
	contentWidth := minInt(maxLineWidth(wrapped)+4, b.Width-16)

	bubble := lipgloss.NewStyle().
		Foreground(styles.SystemBubbleFg).
		Background(styles.SystemBubbleBg).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(styles.SystemBubbleBorder).
		Padding(0, 2).
		Width(contentWidth).
		Align(lipgloss.Center).
		Render(wrapped)

	centerStyle := lipgloss.NewStyle().
		Width(b.Width).
		Align(lipgloss.Center)

	return lipgloss.JoinVertical(lipgloss.Center,
		centerStyle.Render(b.renderHeader("system")),
		centerStyle.Render(bubble))
}

// ==========================================================================
// FAILED BUBBLE - rose left border, the error text as content
// ==========================================================================

func (b *MessageBubble) renderFailedBubble() string {
	content := b.Message.Content
	if content == "" {
		content = "request failed"
	}

	maxContentWidth := b.Width - 10
	if maxContentWidth < 30 {
		maxContentWidth = 30
	}
	wrapped := wordWrap(content, maxContentWidth)

	bubble := lipgloss.NewStyle().
		Foreground(styles.FailedBubbleFg).
		Background(styles.FailedBubbleBg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.ErrorHighContrast).
		BorderLeft(true).
		PaddingLeft(2).
		Render(wrapped)

	iconStyle := lipgloss.NewStyle().
		Foreground(styles.ErrorHighContrast).
		Bold(true)

	header := iconStyle.Render("[X]") + " " + b.renderHeader("failed")

	return lipgloss.JoinVertical(lipgloss.Left, header, bubble)
}

// ==========================================================================
// HELPER METHODS
// ==========================================================================

// renderHeader builds the role + timestamp line above a bubble.
func (b *MessageBubble) renderHeader(role string) string {
	roleStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true)

	parts := []string{roleStyle.Render(role)}
	if b.ShowTimestamp {
		if ts := b.renderTimestamp(); ts != "" {
			parts = append(parts, ts)
		}
	}
	return strings.Join(parts, " ")
}

// renderTimestamp renders a dimmed clock time, with the date prepended
// when the message is from another day.
func (b *MessageBubble) renderTimestamp() string {
	ts := b.Message.Timestamp
	if ts.IsZero() {
		return ""
	}

	now := time.Now()
	formatted := fmtClock(ts)
	if ts.Year() != now.Year() || ts.YearDay() != now.YearDay() {
		formatted = ts.Local().Format("Jan 2") + ", " + formatted
	}

	return lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true).
		Render(formatted)
}

// renderStreamCursor renders the in-flight cursor.
func (b *MessageBubble) renderStreamCursor() string {
	return lipgloss.NewStyle().
		Foreground(styles.Purple).
		Blink(true).
		Render(styles.StreamCursor)
}

// =============================================================================
// MESSAGE LIST COMPONENT
// =============================================================================

// MessageList renders a projected transcript.
type MessageList struct {
	Messages       []history.ChatMessage
	Width          int
	ShowTimestamps bool
	SyntaxTheme    string
	theme          *styles.Theme
}

// NewMessageList creates a new MessageList.
func NewMessageList(theme *styles.Theme) *MessageList {
	return &MessageList{
		Width:          80,
		ShowTimestamps: true,
		SyntaxTheme:    DefaultSyntaxTheme,
		theme:          theme,
	}
}

// SetMessages sets the messages to display.
func (ml *MessageList) SetMessages(messages []history.ChatMessage) {
	ml.Messages = messages
}

// SetWidth sets the list width.
func (ml *MessageList) SetWidth(width int) {
	ml.Width = width
}

// SetSyntaxTheme sets the chroma style for code blocks.
func (ml *MessageList) SetSyntaxTheme(name string) {
	if name != "" {
		ml.SyntaxTheme = name
	}
}

// View renders all messages.
func (ml *MessageList) View() string {
	if len(ml.Messages) == 0 {
		return lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Italic(true).
			Width(ml.Width).
			Align(lipgloss.Center).
			Padding(2, 0).
			Render("No messages yet. Type a prompt, or /help for commands.")
	}

	var bubbles []string
	for i, msg := range ml.Messages {
		bubble := NewMessageBubble(msg, ml.theme)
		bubble.SetWidth(ml.Width)
		bubble.ShowTimestamp = ml.ShowTimestamps
		bubble.SyntaxTheme = ml.SyntaxTheme
		bubble.SetIsLatest(i == len(ml.Messages)-1)
		bubbles = append(bubbles, bubble.View())
	}

	return strings.Join(bubbles, "\n")
}
