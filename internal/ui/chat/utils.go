// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/macro"
	"github.com/jeranaias/cockpit-tui/internal/queue"
	"github.com/jeranaias/cockpit-tui/internal/session"
	"github.com/jeranaias/cockpit-tui/internal/telemetry"
	"github.com/jeranaias/cockpit-tui/internal/util"
)

// knownTools mirrors the orchestrator's built-in tool set.
var knownTools = []string{"search", "shell", "files", "http"}

// =============================================================================
// ERROR TEXT
// =============================================================================

// friendlyError returns the operator-facing error text.
func friendlyError(err error) string {
	if err == nil {
		return "unknown error"
	}
	return strings.TrimSpace(err.Error())
}

// submitTip maps an error class to a recovery hint.
func submitTip(err error) string {
	switch {
	case api.IsUnavailable(err):
		return "is the orchestrator running? /status checks connectivity"
	case api.IsTimeout(err):
		return "the orchestrator took too long; try again or raise orchestrator.timeout_secs"
	case api.IsUnauthorized(err):
		return "set orchestrator.token with /config set orchestrator.token <value>"
	default:
		return ""
	}
}

// =============================================================================
// DURATION FORMATTING
// =============================================================================

// fmtMs renders milliseconds compactly: 420ms below a second, 1.8s
// above.
func fmtMs(ms int64) string {
	if ms < 0 {
		return "-"
	}
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}

// fmtMsPtr renders an optional milestone.
func fmtMsPtr(ms *int64) string {
	if ms == nil {
		return "-"
	}
	return fmtMs(*ms)
}

// =============================================================================
// NOTICE TEXT BUILDERS
// =============================================================================

// taskNoticeText describes a queued task reaching a terminal status.
func taskNoticeText(note queue.Notification) string {
	excerpt := util.TruncateRunes(note.Prompt, 48)
	switch note.Status {
	case api.StatusCompleted:
		return fmt.Sprintf("task done in %s: %s", fmtMs(note.Duration.Milliseconds()), excerpt)
	case api.StatusFailed:
		text := note.Error
		if text == "" {
			text = excerpt
		}
		return "task failed: " + text
	case api.StatusLost:
		return "task lost by orchestrator: " + excerpt
	default:
		return fmt.Sprintf("task %s: %s", strings.ToLower(string(note.Status)), excerpt)
	}
}

// runtimesText lists the configured runtimes with health markers.
func runtimesText(runtimes []api.Runtime) string {
	if len(runtimes) == 0 {
		return "no runtimes configured"
	}
	var sb strings.Builder
	sb.WriteString("runtimes:\n")
	for _, rt := range runtimes {
		marker := "  "
		if rt.Active {
			marker = "* "
		}
		health := ""
		if !rt.Healthy {
			health = "  [unhealthy]"
		}
		fmt.Fprintf(&sb, "  %s%-14s %s/%s%s\n", marker, rt.Name, rt.Provider, rt.Model, health)
	}
	sb.WriteString("\n/provider <name> activates a runtime")
	return sb.String()
}

// sessionListText lists orchestrator sessions newest-first.
func sessionListText(sessions []api.SessionInfo) string {
	if len(sessions) == 0 {
		return "no sessions on the orchestrator"
	}
	var sb strings.Builder
	sb.WriteString("sessions:\n")
	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&sb, "  %-24s %3d requests  %s  %s\n",
			s.SessionID, s.RequestCount, s.UpdatedAt.Format("Jan 02 15:04"),
			util.TruncateRunes(title, 32))
	}
	sb.WriteString("\n/session <id> switches")
	return sb.String()
}

// macroListText lists the locally stored macros.
func macroListText(macros []*macro.Macro) string {
	if len(macros) == 0 {
		return "no macros defined; drop .toml files into the macro directory"
	}
	var sb strings.Builder
	sb.WriteString("macros:\n")
	for _, mc := range macros {
		desc := mc.Description
		if desc == "" {
			desc = fmt.Sprintf("%d step(s)", len(mc.Steps))
		}
		placeholders := mc.Placeholders()
		args := ""
		if len(placeholders) > 0 {
			args = "  needs: " + strings.Join(placeholders, ", ")
		}
		fmt.Fprintf(&sb, "  %-16s %s%s\n", mc.Name, desc, args)
	}
	sb.WriteString("\n/macro <name> key=value runs one")
	return sb.String()
}

// queueStatusText describes the orchestrator queue plus the local
// board summary.
func queueStatusText(status api.QueueStatus, boardSummary string) string {
	state := "running"
	if status.Paused {
		state = "PAUSED"
	}
	text := fmt.Sprintf("queue %s: depth %d, active %d", state, status.Depth, status.Active)
	if boardSummary != "" {
		text += "\nlocal board: " + boardSummary
	}
	if status.Paused {
		text += "\n/queue resume to drain"
	}
	return text
}

// toolsText lists known tools and the sticky override.
func toolsText(forced string) string {
	var sb strings.Builder
	sb.WriteString("tools:\n")
	for _, tool := range knownTools {
		marker := "  "
		if tool == forced {
			marker = "* "
		}
		fmt.Fprintf(&sb, "  %s%s\n", marker, tool)
	}
	if forced != "" {
		sb.WriteString("\nforcing " + forced + " on every submission; /tool " + forced + " off clears")
	} else {
		sb.WriteString("\n/tool <name> forces one on every submission")
	}
	return sb.String()
}

// statsText renders the latency statistics block.
func statsText(stats telemetry.Stats, slowest []telemetry.Sample) string {
	if stats.Count == 0 {
		return "no completed requests measured yet"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "latency over %d request(s):\n", stats.Count)
	fmt.Fprintf(&sb, "  avg %s   p50 %s   p95 %s   max %s\n",
		fmtMs(stats.AvgDurationMs), fmtMs(stats.P50DurationMs),
		fmtMs(stats.P95DurationMs), fmtMs(stats.MaxDurationMs))
	if stats.AvgTTFTMs > 0 || stats.AvgHistoryMs > 0 {
		fmt.Fprintf(&sb, "  avg first token %s   avg history confirm %s\n",
			fmtMs(stats.AvgTTFTMs), fmtMs(stats.AvgHistoryMs))
	}
	if len(slowest) > 0 {
		sb.WriteString("\nslowest:\n")
		for _, s := range slowest {
			fmt.Fprintf(&sb, "  %7s  %s\n", fmtMs(s.DurationMs), util.TruncateRunes(s.Prompt, 48))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// sessionStatusText renders the /session block.
func sessionStatusText(status session.Status) string {
	dirty := "clean"
	if status.IsDirty {
		dirty = "dirty"
	}
	return fmt.Sprintf(
		"session %s\n  boot %s\n  up %s, idle %s\n  cache %s",
		status.SessionID, status.BootID,
		session.FormatDuration(status.Duration),
		session.FormatDuration(status.IdleTime),
		dirty,
	)
}

// overrideSummary names the sticky submission overrides, empty when
// none are set.
func overrideSummary(tool, provider string) string {
	parts := make([]string, 0, 2)
	if tool != "" {
		parts = append(parts, "tool="+tool)
	}
	if provider != "" {
		parts = append(parts, "provider="+provider)
	}
	return strings.Join(parts, " ")
}

// uptimeClock formats a wall-clock timestamp for status output.
func uptimeClock(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("15:04:05")
}
