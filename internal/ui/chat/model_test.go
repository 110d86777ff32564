// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/commands"
	"github.com/jeranaias/cockpit-tui/internal/config"
	"github.com/jeranaias/cockpit-tui/internal/events"
	"github.com/jeranaias/cockpit-tui/internal/history"
	"github.com/jeranaias/cockpit-tui/internal/macro"
	"github.com/jeranaias/cockpit-tui/internal/queue"
	"github.com/jeranaias/cockpit-tui/internal/session"
	"github.com/jeranaias/cockpit-tui/internal/telemetry"
	"github.com/jeranaias/cockpit-tui/internal/track"
	"github.com/jeranaias/cockpit-tui/internal/ui/components"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// newTestModel builds a model with no orchestrator client. Commands
// returned by Update are never executed, so nothing touches the
// network; direct-path submission is exercised by injecting lifecycle
// messages rather than running the streamer.
func newTestModel(t *testing.T) Model {
	t.Helper()

	cfg := config.Default()
	tracker := track.New()
	buffers := NewStreamBuffer()

	m := New(Deps{
		Config:   cfg,
		Tracker:  tracker,
		Board:    queue.NewBoard(50),
		Session:  session.NewManager(session.DefaultConfig()),
		Latency:  telemetry.NewLatencyTracker(nil),
		Streamer: NewStreamer(nil, tracker, buffers),
		Buffers:  buffers,
	})

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

// lastNotice returns the most recent system entry in the transcript.
func lastNotice(m Model) string {
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].Role == history.RoleSystem {
			return m.entries[i].Content
		}
	}
	return ""
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestNewModelDefaults(t *testing.T) {
	m := newTestModel(t)

	if m.state != StateReady {
		t.Errorf("Expected StateReady, got %v", m.state)
	}
	if m.chatMode != api.ModeNormal {
		t.Errorf("Expected default mode normal, got %s", m.chatMode)
	}
	if !m.ready {
		t.Error("Expected model ready after the first resize")
	}
	if m.tracker.Len() != 0 {
		t.Errorf("Expected empty tracker, got %d entries", m.tracker.Len())
	}
}

func TestNewModelInvalidDefaultMode(t *testing.T) {
	cfg := config.Default()
	cfg.Orchestrator.DefaultMode = "warp"
	tracker := track.New()
	buffers := NewStreamBuffer()

	m := New(Deps{
		Config:   cfg,
		Tracker:  tracker,
		Board:    queue.NewBoard(50),
		Session:  session.NewManager(session.DefaultConfig()),
		Latency:  telemetry.NewLatencyTracker(nil),
		Streamer: NewStreamer(nil, tracker, buffers),
		Buffers:  buffers,
	})

	if m.chatMode != api.ModeNormal {
		t.Errorf("Expected invalid configured mode to fall back to normal, got %s", m.chatMode)
	}
}

// =============================================================================
// SUBMISSION
// =============================================================================

func TestSubmitPromptQueuedPath(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("restart the indexer")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	if cmd == nil {
		t.Fatal("Expected a submission command")
	}
	if m.tracker.Len() != 1 {
		t.Fatalf("Expected 1 tracked request, got %d", m.tracker.Len())
	}
	if len(m.streams) != 1 {
		t.Errorf("Expected 1 stream view, got %d", len(m.streams))
	}
	if m.input.Value() != "" {
		t.Errorf("Expected input cleared, got '%s'", m.input.Value())
	}
	if len(m.board.All()) != 1 {
		t.Errorf("Expected 1 queue board task, got %d", len(m.board.All()))
	}
	if !m.wait.IsActive() {
		t.Error("Expected wait indicator active after submission")
	}

	// The prompt renders immediately as a pending message.
	msgs := m.projectTranscript(time.Now())
	found := false
	for _, msg := range msgs {
		if msg.Role == history.RoleUser && msg.Content == "restart the indexer" && msg.Pending {
			found = true
		}
	}
	if !found {
		t.Error("Expected a pending user message in the projection")
	}
}

func TestSubmitEmptyInputIsNoop(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("   ")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	if cmd != nil {
		t.Error("Expected no command for blank input")
	}
	if m.tracker.Len() != 0 {
		t.Errorf("Expected no tracked requests, got %d", m.tracker.Len())
	}
}

func TestSubmitUnknownSlashCommand(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("/bogus")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	if m.tracker.Len() != 0 {
		t.Error("A slash command must never become a prompt submission")
	}
	if !strings.Contains(lastNotice(m), "unknown command: /bogus") {
		t.Errorf("Expected unknown-command notice, got '%s'", lastNotice(m))
	}
}

func TestSubmitAckLinksTrackerAndBoard(t *testing.T) {
	m := newTestModel(t)
	clientID := m.tracker.Enqueue("deploy", track.Options{ChatMode: api.ModeNormal})
	task := queue.NewTask("deploy", m.sess.SessionID())
	task.ClientRef = clientID
	m.board.Add(task)

	updated, _ := m.Update(SubmitAckMsg{
		ClientID: clientID,
		TaskID:   task.ID,
		Resp:     &api.SubmitResponse{RequestID: "req_5", Status: api.StatusPending},
	})
	m = updated.(Model)

	req, ok := m.tracker.Get(clientID)
	if !ok {
		t.Fatal("Expected the tracked request to survive the ack")
	}
	if req.RequestID != "req_5" {
		t.Errorf("Expected request linked to req_5, got '%s'", req.RequestID)
	}

	linked := false
	for _, bt := range m.board.All() {
		if bt.ID == task.ID && bt.RequestID == "req_5" {
			linked = true
		}
	}
	if !linked {
		t.Error("Expected the board task linked to the server request id")
	}
}

func TestSubmitFailedDropsEntry(t *testing.T) {
	m := newTestModel(t)
	clientID := m.tracker.Enqueue("doomed", track.Options{ChatMode: api.ModeNormal})
	m.streams[clientID] = &streamView{}

	updated, _ := m.Update(SubmitFailedMsg{ClientID: clientID, Err: errors.New("connection refused")})
	m = updated.(Model)

	if m.tracker.Len() != 0 {
		t.Error("Expected the optimistic entry dropped after a failed submission")
	}
	if _, ok := m.streams[clientID]; ok {
		t.Error("Expected the stream view removed")
	}
	if m.state != StateError {
		t.Errorf("Expected StateError, got %v", m.state)
	}
	if m.lastError == nil || m.lastError.Title != "submission failed" {
		t.Errorf("Expected the submission-failed banner, got %+v", m.lastError)
	}
	if !strings.Contains(lastNotice(m), "submission failed") {
		t.Errorf("Expected a failure notice, got '%s'", lastNotice(m))
	}
}

// =============================================================================
// STREAM LIFECYCLE
// =============================================================================

func TestStreamLifecycle(t *testing.T) {
	m := newTestModel(t)
	clientID := m.tracker.Enqueue("explain the outage", track.Options{
		Direct:   true,
		ChatMode: api.ModeDirect,
	})
	m.streams[clientID] = &streamView{}
	m.buffers.Write(clientID, "The outage began")

	updated, _ := m.Update(StreamFirstByteMsg{ClientID: clientID, At: time.Now()})
	m = updated.(Model)

	if timing, ok := m.tracker.Timing(clientID); !ok || timing.TTFTMs == nil {
		t.Error("Expected TTFT recorded on first byte")
	}

	updated, cmd := m.Update(StreamDoneMsg{ClientID: clientID})
	m = updated.(Model)

	if cmd == nil {
		t.Error("Expected a follow-up command after stream completion")
	}
	sv := m.streams[clientID]
	if sv == nil {
		t.Fatal("Expected the stream view to survive until history confirms it")
	}
	if sv.terminalAt.IsZero() {
		t.Error("Expected the stream marked terminal")
	}
	if !strings.Contains(sv.visible.String(), "The outage began") {
		t.Errorf("Expected the buffer tail drained into the view, got '%s'", sv.visible.String())
	}

	// The drained content shows as a pending assistant message.
	msgs := m.projectTranscript(time.Now())
	found := false
	for _, msg := range msgs {
		if msg.Role == history.RoleAssistant && strings.Contains(msg.Content, "The outage began") {
			found = true
		}
	}
	if !found {
		t.Error("Expected the streamed content in the projection")
	}
}

func TestStreamFailedShowsError(t *testing.T) {
	m := newTestModel(t)
	clientID := m.tracker.Enqueue("bad", track.Options{Direct: true, ChatMode: api.ModeDirect})
	m.streams[clientID] = &streamView{}

	updated, _ := m.Update(StreamFailedMsg{ClientID: clientID, Err: errors.New("runtime exploded")})
	m = updated.(Model)

	sv := m.streams[clientID]
	if sv == nil || !sv.failed {
		t.Fatal("Expected the stream view marked failed")
	}
	if sv.errorText != "runtime exploded" {
		t.Errorf("Expected error text kept, got '%s'", sv.errorText)
	}
	if m.state != StateError {
		t.Errorf("Expected StateError, got %v", m.state)
	}
}

func TestStreamDoneForUntrackedRequestIgnored(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.Update(StreamDoneMsg{ClientID: "ghost"})
	m = updated.(Model)

	if len(m.streams) != 0 {
		t.Error("A terminal message for an untracked request must not create state")
	}
}

// =============================================================================
// HISTORY RECONCILIATION
// =============================================================================

func TestHandleHistoryMergesAndPrunes(t *testing.T) {
	m := newTestModel(t)
	sid := m.sess.SessionID()

	clientID := m.tracker.Enqueue("deploy it", track.Options{ChatMode: api.ModeNormal})
	m.tracker.Link(clientID, "req_1")
	m.streams[clientID] = &streamView{}

	fin := time.Now()
	records := []api.RequestRecord{{
		RequestID:  "req_1",
		SessionID:  sid,
		Status:     api.StatusCompleted,
		Prompt:     "deploy it",
		Response:   "deployed",
		ChatMode:   api.ModeNormal,
		CreatedAt:  fin.Add(-2 * time.Second),
		FinishedAt: &fin,
	}}

	updated, _ := m.Update(HistoryMsg{SessionID: sid, Records: records})
	m = updated.(Model)

	if m.tracker.Len() != 0 {
		t.Error("Expected the confirmed request pruned from the tracker")
	}
	if _, ok := m.streams[clientID]; ok {
		t.Error("Expected the stream view removed with the tracker entry")
	}

	// History rows landed in the transcript.
	var sawPrompt, sawResponse bool
	for _, e := range m.entries {
		if e.RequestID == "req_1" && e.Role == history.RoleUser && e.Content == "deploy it" {
			sawPrompt = true
		}
		if e.RequestID == "req_1" && e.Role == history.RoleAssistant && e.Content == "deployed" {
			sawResponse = true
		}
	}
	if !sawPrompt || !sawResponse {
		t.Errorf("Expected both history rows merged, got prompt=%v response=%v", sawPrompt, sawResponse)
	}

	// Pruning recorded a telemetry sample with the history timing.
	if m.latency.Count() != 1 {
		t.Fatalf("Expected 1 telemetry sample, got %d", m.latency.Count())
	}
	recent := m.latency.Recent(sid, 1)
	if len(recent) != 1 {
		t.Fatalf("Expected the sample under the session, got %d", len(recent))
	}
	if recent[0].RequestID != "req_1" {
		t.Errorf("Expected sample for req_1, got %s", recent[0].RequestID)
	}
	if recent[0].HistoryMs == nil {
		t.Error("Expected the history timing snapshotted before the prune")
	}
}

func TestHandleHistoryStaleSessionIgnored(t *testing.T) {
	m := newTestModel(t)
	before := len(m.entries)

	updated, _ := m.Update(HistoryMsg{
		SessionID: "sess_other",
		Records:   []api.RequestRecord{{RequestID: "req_x", Status: api.StatusCompleted, Prompt: "p"}},
	})
	m = updated.(Model)

	if len(m.entries) != before {
		t.Error("A fetch for another session must not merge into the transcript")
	}
}

func TestHandleHistoryErrorKeepsState(t *testing.T) {
	m := newTestModel(t)
	clientID := m.tracker.Enqueue("still going", track.Options{ChatMode: api.ModeNormal})

	updated, _ := m.Update(HistoryMsg{SessionID: m.sess.SessionID(), Err: errors.New("timeout")})
	m = updated.(Model)

	if !m.tracker.Has(clientID) {
		t.Error("A failed fetch must not drop tracked requests")
	}
	if m.state == StateError {
		t.Error("A failed background fetch must not raise the error banner")
	}
}

// =============================================================================
// EVENT FEED
// =============================================================================

func TestHandleFeedEventFinished(t *testing.T) {
	m := newTestModel(t)
	clientID := m.tracker.Enqueue("run task", track.Options{ChatMode: api.ModeNormal})
	m.tracker.Link(clientID, "req_9")

	updated, _ := m.Update(FeedEventMsg{Event: events.Event{
		Type:      events.EventFinished,
		RequestID: "req_9",
		Status:    api.StatusCompleted,
		Response:  "whole response",
	}})
	m = updated.(Model)

	sv := m.streams[clientID]
	if sv == nil {
		t.Fatal("Expected a stream view for the finished request")
	}
	// Queued-path responses arrive whole in the finish event.
	if sv.visible.String() != "whole response" {
		t.Errorf("Expected the whole response captured, got '%s'", sv.visible.String())
	}
	if sv.terminalAt.IsZero() {
		t.Error("Expected the request marked terminal")
	}
}

func TestHandleFeedEventFailedStatus(t *testing.T) {
	m := newTestModel(t)
	clientID := m.tracker.Enqueue("run task", track.Options{ChatMode: api.ModeNormal})
	m.tracker.Link(clientID, "req_9")

	updated, _ := m.Update(FeedEventMsg{Event: events.Event{
		Type:      events.EventFinished,
		RequestID: "req_9",
		Status:    api.StatusFailed,
	}})
	m = updated.(Model)

	sv := m.streams[clientID]
	if sv == nil || !sv.failed {
		t.Fatal("Expected the stream view marked failed")
	}
	if sv.errorText != "request failed" {
		t.Errorf("Expected a fallback error text, got '%s'", sv.errorText)
	}
}

func TestHandleFeedEventForeignRequestIgnored(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.Update(FeedEventMsg{Event: events.Event{
		Type:      events.EventDelta,
		RequestID: "req_foreign",
		Delta:     "not ours",
	}})
	m = updated.(Model)

	if len(m.streams) != 0 {
		t.Error("Deltas for requests this client never submitted must be ignored")
	}
	if m.buffers.HasPending() {
		t.Error("Foreign deltas must not land in the stream buffer")
	}
}

func TestHandleFeedEventFlipsFeedState(t *testing.T) {
	m := newTestModel(t)
	m.feedState = components.FeedReconnecting

	updated, _ := m.Update(FeedEventMsg{Event: events.Event{Type: events.EventHeartbeat}})
	m = updated.(Model)

	if m.feedState != components.FeedConnected {
		t.Error("Expected the first feed event to mark the feed connected")
	}
}

func TestHandleFeedStateDown(t *testing.T) {
	m := newTestModel(t)
	m.feedState = components.FeedConnected

	updated, _ := m.Update(FeedStateMsg{Down: true})
	m = updated.(Model)

	if m.feedState != components.FeedDisconnected {
		t.Error("Expected the feed marked down")
	}
	if !strings.Contains(lastNotice(m), "falling back to polling") {
		t.Errorf("Expected a fallback notice, got '%s'", lastNotice(m))
	}
}

// =============================================================================
// INTERRUPT AND CLEAR
// =============================================================================

func TestHandleInterruptLayers(t *testing.T) {
	// Layer 1: a pending request is dropped.
	m := newTestModel(t)
	m.tracker.Enqueue("pending work", track.Options{ChatMode: api.ModeNormal})

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(Model)
	if cmd != nil {
		t.Error("Expected no quit while a request was dropped")
	}
	if m.tracker.Len() != 0 {
		t.Error("Expected ctrl+c to drop the pending request")
	}
	if !strings.Contains(lastNotice(m), "dropped") {
		t.Errorf("Expected a drop notice, got '%s'", lastNotice(m))
	}

	// Layer 2: a draft prompt is cleared.
	m.input.SetValue("half-typed prompt")
	updated, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(Model)
	if cmd != nil {
		t.Error("Expected no quit while the input had content")
	}
	if m.input.Value() != "" {
		t.Errorf("Expected input cleared, got '%s'", m.input.Value())
	}

	// Layer 3: nothing left, quit.
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("Expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("Expected tea.QuitMsg, got %T", cmd())
	}
}

func TestClearTranscriptWatermark(t *testing.T) {
	m := newTestModel(t)
	m.addNotice("old line")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	m = updated.(Model)

	if len(m.visibleEntries()) != 0 {
		t.Errorf("Expected nothing visible after clear, got %d entries", len(m.visibleEntries()))
	}
	if len(m.entries) == 0 {
		t.Error("Clear must hide entries, not destroy them")
	}

	// New activity after the clear is visible again.
	time.Sleep(5 * time.Millisecond)
	m.addNotice("new line")
	visible := m.visibleEntries()
	if len(visible) != 1 || visible[0].Content != "new line" {
		t.Errorf("Expected only the post-clear entry visible, got %d", len(visible))
	}
}

func TestEscDismissesErrorBanner(t *testing.T) {
	m := newTestModel(t)
	m.setError("boom", "it broke", "")
	m.state = StateError

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)

	if m.lastError != nil {
		t.Error("Expected esc to dismiss the error banner")
	}
	if m.state != StateReady {
		t.Errorf("Expected StateReady after dismissal, got %v", m.state)
	}
}

// =============================================================================
// MODE, THEME, AND TOOL COMMANDS
// =============================================================================

func TestCycleMode(t *testing.T) {
	m := newTestModel(t)
	m.chatMode = api.ModeDirect

	for _, want := range []api.ChatMode{api.ModeNormal, api.ModeComplex, api.ModeDirect} {
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
		m = updated.(Model)
		if m.chatMode != want {
			t.Fatalf("Expected mode %s, got %s", want, m.chatMode)
		}
	}
}

func TestModeSwitchCommand(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.Update(commands.ModeSwitchMsg{Mode: "complex"})
	m = updated.(Model)

	if m.chatMode != api.ModeComplex {
		t.Errorf("Expected mode complex, got %s", m.chatMode)
	}
	if m.cfg.Orchestrator.DefaultMode != "complex" {
		t.Errorf("Expected the in-memory default updated, got %s", m.cfg.Orchestrator.DefaultMode)
	}
}

func TestModeSwitchRejectsUnknownMode(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.Update(commands.ModeSwitchMsg{Mode: "turbo"})
	m = updated.(Model)

	if m.chatMode != api.ModeNormal {
		t.Errorf("Expected mode unchanged, got %s", m.chatMode)
	}
	if m.lastError == nil {
		t.Error("Expected an error banner for an unknown mode")
	}
}

func TestThemeSwitchValidation(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.Update(commands.ThemeSwitchMsg{Theme: "light"})
	m = updated.(Model)
	if m.cfg.UI.Theme != "light" {
		t.Errorf("Expected theme light, got %s", m.cfg.UI.Theme)
	}

	updated, _ = m.Update(commands.ThemeSwitchMsg{Theme: "neon"})
	m = updated.(Model)
	if m.cfg.UI.Theme != "light" {
		t.Errorf("Expected theme unchanged after invalid switch, got %s", m.cfg.UI.Theme)
	}
	if m.lastError == nil {
		t.Error("Expected an error banner for an unknown theme")
	}
}

func TestToggleTool(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.Update(commands.ToggleToolMsg{Tool: "shell", State: true})
	m = updated.(Model)
	if m.forcedTool != "shell" {
		t.Errorf("Expected forced tool shell, got '%s'", m.forcedTool)
	}

	updated, _ = m.Update(commands.ToggleToolMsg{Tool: "warp", State: true})
	m = updated.(Model)
	if m.forcedTool != "shell" {
		t.Error("An unknown tool must not change the override")
	}
	if m.lastError == nil {
		t.Error("Expected an error banner for an unknown tool")
	}

	m.clearError()
	updated, _ = m.Update(commands.ToggleToolMsg{Tool: "shell", State: false})
	m = updated.(Model)
	if m.forcedTool != "" {
		t.Errorf("Expected the override cleared, got '%s'", m.forcedTool)
	}
}

// =============================================================================
// HEALTH AND STATUS
// =============================================================================

func TestHandleHealth(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.Update(HealthMsg{Err: errors.New("connection refused")})
	m = updated.(Model)
	if m.lastError == nil || m.lastError.Title != "orchestrator unreachable" {
		t.Fatalf("Expected the unreachable banner, got %+v", m.lastError)
	}

	updated, _ = m.Update(HealthMsg{Version: "1.2.0"})
	m = updated.(Model)
	if m.orchVersion != "1.2.0" {
		t.Errorf("Expected version stored, got '%s'", m.orchVersion)
	}
	if m.lastError != nil {
		t.Error("Expected a successful probe to clear the unreachable banner")
	}
}

func TestUIStatusMapping(t *testing.T) {
	m := newTestModel(t)

	if got := m.uiStatus(); got != components.StatusReady {
		t.Errorf("Expected ready status, got %v", got)
	}

	m.tracker.Enqueue("pending", track.Options{ChatMode: api.ModeNormal})
	if got := m.uiStatus(); got != components.StatusWaiting {
		t.Errorf("Expected waiting status with a pending request, got %v", got)
	}

	m.state = StateStreaming
	if got := m.uiStatus(); got != components.StatusStreaming {
		t.Errorf("Expected streaming status, got %v", got)
	}

	m.state = StateError
	if got := m.uiStatus(); got != components.StatusError {
		t.Errorf("Expected error status, got %v", got)
	}
}

func TestPollIntervalFollowsFeedState(t *testing.T) {
	m := newTestModel(t)

	m.feedState = components.FeedConnected
	if got := m.pollInterval(); got != 15*time.Second {
		t.Errorf("Expected the slow keep-alive cadence, got %v", got)
	}

	m.feedState = components.FeedDisconnected
	if got := m.pollInterval(); got != 3*time.Second {
		t.Errorf("Expected the configured fallback cadence, got %v", got)
	}
}

// =============================================================================
// TEXT HELPERS
// =============================================================================

func TestQueueDetail(t *testing.T) {
	tests := []struct {
		name   string
		status api.QueueStatus
		want   string
	}{
		{"paused", api.QueueStatus{Paused: true, Depth: 4}, "queue is paused; /queue resume to drain"},
		{"deep", api.QueueStatus{Depth: 3}, "queued behind 3 request(s)"},
		{"empty", api.QueueStatus{}, "queued"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := queueDetail(tt.status); got != tt.want {
				t.Errorf("queueDetail() = '%s', want '%s'", got, tt.want)
			}
		})
	}
}

func TestApplyCompletion(t *testing.T) {
	tests := []struct {
		input string
		value string
		want  string
	}{
		{"", "/mode", "/mode "},
		{"/mo", "/mode", "/mode "},
		{"/mode ", "direct", "/mode direct "},
		{"/mode dir", "direct", "/mode direct "},
		{"/export f", "json", "/export json "},
	}

	for _, tt := range tests {
		if got := applyCompletion(tt.input, tt.value); got != tt.want {
			t.Errorf("applyCompletion(%q, %q) = %q, want %q", tt.input, tt.value, got, tt.want)
		}
	}
}

func TestMacroDoneText(t *testing.T) {
	if got := macroDoneText("deploy", nil, errors.New("boom")); got != "macro deploy failed: boom" {
		t.Errorf("macroDoneText() = '%s'", got)
	}

	t0 := time.Now()
	run := &macro.Run{
		Macro:       "deploy",
		StartedAt:   t0,
		CompletedAt: t0.Add(3 * time.Second),
		Steps: []macro.StepResult{
			{Status: macro.StepComplete},
			{Status: macro.StepFailed},
			{Status: macro.StepSkipped},
		},
	}
	want := "macro deploy: 1 complete, 1 failed, 1 skipped in 3.0s"
	if got := macroDoneText("deploy", run, nil); got != want {
		t.Errorf("macroDoneText() = '%s', want '%s'", got, want)
	}
}

func TestFmtMs(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{-1, "-"},
		{0, "0ms"},
		{420, "420ms"},
		{1800, "1.8s"},
	}

	for _, tt := range tests {
		if got := fmtMs(tt.ms); got != tt.want {
			t.Errorf("fmtMs(%d) = '%s', want '%s'", tt.ms, got, tt.want)
		}
	}
}

// =============================================================================
// VIEW SMOKE TESTS
// =============================================================================

func TestViewBeforeResize(t *testing.T) {
	cfg := config.Default()
	tracker := track.New()
	buffers := NewStreamBuffer()
	m := New(Deps{
		Config:   cfg,
		Tracker:  tracker,
		Board:    queue.NewBoard(50),
		Session:  session.NewManager(session.DefaultConfig()),
		Latency:  telemetry.NewLatencyTracker(nil),
		Streamer: NewStreamer(nil, tracker, buffers),
		Buffers:  buffers,
	})

	if got := m.View(); got != "starting cockpit..." {
		t.Errorf("Expected the startup placeholder, got '%s'", got)
	}
}

func TestViewRendersFrame(t *testing.T) {
	m := newTestModel(t)
	m.addNotice("hello operator")

	out := m.View()
	if out == "" {
		t.Fatal("Expected a rendered frame")
	}
	if !strings.Contains(out, "hello operator") {
		t.Error("Expected the transcript content in the frame")
	}
}

func TestViewShowsErrorBanner(t *testing.T) {
	m := newTestModel(t)
	m.setError("submission failed", "connection refused", "is the orchestrator running?")

	out := m.View()
	if !strings.Contains(out, "submission failed") {
		t.Error("Expected the banner title in the frame")
	}
	if !strings.Contains(out, "connection refused") {
		t.Error("Expected the banner message in the frame")
	}
}
