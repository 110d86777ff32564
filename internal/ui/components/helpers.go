// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the cockpit TUI.
package components

import (
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/cockpit-tui/internal/util"
)

// =============================================================================
// SHARED HELPER FUNCTIONS
// =============================================================================

// fmtNumber formats a number with thousand separators.
func fmtNumber(n int) string {
	if n < 0 {
		return "-" + fmtNumber(-n)
	}

	s := strconv.Itoa(n)
	if n < 1000 {
		return s
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// fmtMs renders a millisecond count for panel display: "824ms" below one
// second, "3.2s" above.
func fmtMs(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	if ms < 1000 {
		return strconv.FormatInt(ms, 10) + "ms"
	}
	whole := ms / 1000
	tenth := (ms % 1000) / 100
	return strconv.FormatInt(whole, 10) + "." + strconv.FormatInt(tenth, 10) + "s"
}

// fmtDuration renders an elapsed duration the way the status surfaces
// show it: "42s", "3m12s", "1h04m".
func fmtDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Seconds())
	switch {
	case secs < 60:
		return strconv.Itoa(secs) + "s"
	case secs < 3600:
		return strconv.Itoa(secs/60) + "m" + pad2(secs%60) + "s"
	default:
		return strconv.Itoa(secs/3600) + "h" + pad2((secs%3600)/60) + "m"
	}
}

// fmtClock renders a timestamp as "15:04:05" local time.
func fmtClock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("15:04:05")
}

// pad2 zero-pads a number below 100 to two digits.
func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// shortID trims an identifier for row display, keeping the prefix that
// tells req_/cli_/sess_ ids apart.
func shortID(id string) string {
	return util.TruncateRunesNoEllipsis(id, 12)
}

// wordWrap wraps text to fit within the specified width, preserving
// existing newlines.
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	lines := strings.Split(text, "\n")

	for lineIdx, line := range lines {
		if lineIdx > 0 {
			result.WriteString("\n")
		}

		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}

		currentLine := words[0]
		for _, word := range words[1:] {
			if util.RuneLen(currentLine)+1+util.RuneLen(word) <= width {
				currentLine += " " + word
			} else {
				result.WriteString(currentLine)
				result.WriteString("\n")
				currentLine = word
			}
		}
		result.WriteString(currentLine)
	}

	return result.String()
}

// maxLineWidth returns the rune width of the longest line.
func maxLineWidth(text string) int {
	maxWidth := 0
	for _, line := range strings.Split(text, "\n") {
		if w := util.RuneLen(line); w > maxWidth {
			maxWidth = w
		}
	}
	return maxWidth
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
