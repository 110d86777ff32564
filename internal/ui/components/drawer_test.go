// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/queue"
	"github.com/jeranaias/cockpit-tui/internal/telemetry"
	"github.com/jeranaias/cockpit-tui/internal/track"
	"github.com/jeranaias/cockpit-tui/internal/ui/styles"
)

// =============================================================================
// DRAWER TESTS
// =============================================================================

func TestDrawerEmpty(t *testing.T) {
	theme := styles.NewTheme(styles.ModeDark)
	d := NewDrawer(theme)

	view := d.View()
	if !strings.Contains(view, "REQUEST DETAIL") {
		t.Error("View() missing title")
	}
	if !strings.Contains(view, "nothing selected") {
		t.Error("View() missing empty placeholder")
	}
}

func TestDrawerRequestIdentity(t *testing.T) {
	theme := styles.NewTheme(styles.ModeDark)
	d := NewDrawer(theme)
	d.SetRequest(&track.Request{
		ClientID:  "cli_000000042",
		RequestID: "req_abc123",
		Prompt:    "restart the ingest worker",
		Confirmed: true,
		ChatMode:  api.ModeNormal,
	})

	view := d.View()
	for _, want := range []string{"cli_000000042", "req_abc123", "confirmed", "yes", "restart the ingest worker"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestDrawerUnacknowledgedRequest(t *testing.T) {
	theme := styles.NewTheme(styles.ModeDark)
	d := NewDrawer(theme)
	d.SetRequest(&track.Request{
		ClientID: "cli_000000001",
		Prompt:   "hello",
	})

	view := d.View()
	if !strings.Contains(view, "(unacknowledged)") {
		t.Error("View() should mark a missing request id")
	}
	if strings.Contains(view, "yes") {
		t.Error("View() should not show confirmed: yes before linking")
	}
}

func TestDrawerForcedRouting(t *testing.T) {
	theme := styles.NewTheme(styles.ModeDark)
	d := NewDrawer(theme)
	d.SetRequest(&track.Request{
		ClientID:       "cli_000000002",
		Prompt:         "check dns",
		ForcedTool:     "dig",
		ForcedProvider: "anthropic",
	})

	view := d.View()
	if !strings.Contains(view, "dig") {
		t.Error("View() missing forced tool")
	}
	if !strings.Contains(view, "anthropic") {
		t.Error("View() missing forced provider")
	}
}

func TestDrawerTaskLifecycle(t *testing.T) {
	theme := styles.NewTheme(styles.ModeDark)
	now := time.Now()
	d := NewDrawer(theme)
	d.SetTask(&queue.Task{
		ID:         "task-1",
		RequestID:  "req_xyz",
		Prompt:     "ship it",
		Status:     api.StatusCompleted,
		QueuedAt:   now.Add(-10 * time.Second),
		StartedAt:  now.Add(-8 * time.Second),
		FinishedAt: now,
	})

	view := d.View()
	if !strings.Contains(view, "COMPLETED") {
		t.Error("View() missing status")
	}
	if !strings.Contains(view, styles.StatusGlyph("COMPLETED")) {
		t.Error("View() missing status glyph")
	}
	for _, label := range []string{"queued", "started", "finished"} {
		if !strings.Contains(view, label) {
			t.Errorf("View() missing %q row", label)
		}
	}
}

func TestDrawerTaskError(t *testing.T) {
	theme := styles.NewTheme(styles.ModeDark)
	d := NewDrawer(theme)
	d.SetTask(&queue.Task{
		ID:     "task-2",
		Status: api.StatusFailed,
		Error:  "runtime exited with code 137",
	})

	view := d.View()
	if !strings.Contains(view, "error: runtime exited with code 137") {
		t.Error("View() missing error row")
	}
}

func TestDrawerTimingTree(t *testing.T) {
	theme := styles.NewTheme(styles.ModeDark)
	history := int64(412)
	ttft := int64(907)

	d := NewDrawer(theme)
	d.SetRequest(&track.Request{ClientID: "cli_000000003", Prompt: "x"})
	d.SetSample(&telemetry.Sample{
		RequestID:  "req_1",
		HistoryMs:  &history,
		TTFTMs:     &ttft,
		DurationMs: 3200,
	})

	view := d.View()
	for _, want := range []string{"timing", "history", "412ms", "ttft", "907ms", "total", "3.2s"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
	// Tree branches: middle entries fork, the last one closes.
	if !strings.Contains(view, "+- ") {
		t.Error("View() missing tree fork branch")
	}
	if !strings.Contains(view, "`- ") {
		t.Error("View() missing tree closing branch")
	}
}

func TestDrawerTimingTreePartial(t *testing.T) {
	theme := styles.NewTheme(styles.ModeDark)
	d := NewDrawer(theme)
	d.SetRequest(&track.Request{ClientID: "cli_000000004", Prompt: "x"})
	d.SetSample(&telemetry.Sample{DurationMs: 1500})

	view := d.View()
	if strings.Contains(view, "ttft") {
		t.Error("View() should omit missing milestones")
	}
	if !strings.Contains(view, "total") {
		t.Error("View() missing total row")
	}
}

func TestDrawerPromptTruncated(t *testing.T) {
	theme := styles.NewTheme(styles.ModeDark)
	d := NewDrawer(theme)
	d.SetRequest(&track.Request{
		ClientID: "cli_000000005",
		Prompt:   strings.Repeat("very long prompt text ", 10),
	})

	view := d.View()
	if !strings.Contains(view, "...") {
		t.Error("View() should truncate long prompts")
	}
}
