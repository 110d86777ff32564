// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"testing"
	"time"
)

// =============================================================================
// GRACE WINDOW TESTS
// =============================================================================

func TestGraceWindow_Bounds(t *testing.T) {
	g := DefaultGraceWindow()

	tests := []struct {
		name    string
		textLen int
		want    time.Duration
	}{
		{"empty response floors", 0, 300 * time.Millisecond},
		{"short response floors", 50, 300 * time.Millisecond},
		{"mid response scales", 150, 600 * time.Millisecond},
		{"long response ceilings", 1000, 1200 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.Duration(tt.textLen); got != tt.want {
				t.Errorf("Duration(%d) = %v, want %v", tt.textLen, got, tt.want)
			}
		})
	}
}

func TestGraceWindow_ZeroValueUsesDefaults(t *testing.T) {
	var g GraceWindow
	if got := g.Duration(0); got != 300*time.Millisecond {
		t.Errorf("Zero-value floor = %v, want 300ms", got)
	}
	if got := g.Duration(100000); got != 1200*time.Millisecond {
		t.Errorf("Zero-value ceiling = %v, want 1200ms", got)
	}
}

func TestLiveRequest_Pending(t *testing.T) {
	now := ts(30)
	g := DefaultGraceWindow()

	noTerminal := LiveRequest{RequestID: "r1"}
	if !noTerminal.Pending(now, g) {
		t.Error("Request without terminal signal must be pending")
	}

	justFinished := LiveRequest{RequestID: "r1", Buffer: "hi", TerminalAt: now.Add(-100 * time.Millisecond)}
	if !justFinished.Pending(now, g) {
		t.Error("Request inside grace window must be pending")
	}

	settled := LiveRequest{RequestID: "r1", Buffer: "hi", TerminalAt: now.Add(-2 * time.Second)}
	if settled.Pending(now, g) {
		t.Error("Request past grace window must not be pending")
	}
}

// =============================================================================
// PROJECTION TESTS
// =============================================================================

// Mirrors the first-paint flow: enqueue shows the user message alone.
func TestProject_FreshEnqueue(t *testing.T) {
	now := ts(0)
	live := []LiveRequest{{
		ClientID:  "c1",
		RequestID: "c1", // not yet linked
		Prompt:    "hello",
		CreatedAt: now,
	}}

	msgs := Project(nil, live, now, DefaultGraceWindow())

	if len(msgs) != 1 {
		t.Fatalf("Messages = %d, want 1", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != "hello" {
		t.Errorf("Message = %+v", msgs[0])
	}
	if !msgs[0].Pending {
		t.Error("Fresh submission must project as pending")
	}
}

func TestProject_StreamCompletion_GraceThenSettled(t *testing.T) {
	g := DefaultGraceWindow()
	terminal := ts(10)

	live := []LiveRequest{{
		ClientID:   "c1",
		RequestID:  "r1",
		Prompt:     "hello",
		CreatedAt:  ts(9),
		Buffer:     "hi there",
		TerminalAt: terminal,
	}}

	// Inside the grace window: assistant shows, still pending.
	during := Project(nil, live, terminal.Add(100*time.Millisecond), g)
	if len(during) != 2 {
		t.Fatalf("Messages during grace = %d, want 2", len(during))
	}
	asst := during[1]
	if asst.Role != RoleAssistant || asst.Content != "hi there" {
		t.Errorf("Assistant = %+v", asst)
	}
	if !asst.Pending {
		t.Error("Assistant must stay pending inside grace window")
	}

	// After the window: same text, no longer pending.
	after := Project(nil, live, terminal.Add(5*time.Second), g)
	if len(after) != 2 {
		t.Fatalf("Messages after grace = %d, want 2", len(after))
	}
	if after[1].Pending {
		t.Error("Assistant must settle after grace window")
	}
	if after[1].Content != "hi there" {
		t.Errorf("Content = %q, want hi there", after[1].Content)
	}
}

// A dropped request projects nothing: the caller passes no LiveRequest
// for it, and history has no rows.
func TestProject_DroppedBeforeLink(t *testing.T) {
	msgs := Project(nil, nil, ts(0), DefaultGraceWindow())
	if len(msgs) != 0 {
		t.Errorf("Messages = %d, want 0", len(msgs))
	}
}

func TestProject_PendingHidesHistoryRows(t *testing.T) {
	now := ts(20)
	entries := []Entry{
		{Role: RoleUser, Content: "hello", RequestID: "r1", Timestamp: ts(10)},
		{Role: RoleAssistant, Content: "partial history copy", RequestID: "r1", Timestamp: ts(12)},
	}
	live := []LiveRequest{{
		ClientID:  "c1",
		RequestID: "r1",
		Prompt:    "hello",
		CreatedAt: ts(10),
		Buffer:    "richer local copy",
		// no terminal signal: pending
	}}

	msgs := Project(entries, live, now, DefaultGraceWindow())

	var assistants []ChatMessage
	for _, m := range msgs {
		if m.Role == RoleAssistant {
			assistants = append(assistants, m)
		}
	}
	if len(assistants) != 1 {
		t.Fatalf("Assistant messages = %d, want exactly 1 while pending", len(assistants))
	}
	if assistants[0].Content != "richer local copy" {
		t.Errorf("Assistant content = %q, optimistic copy must win while pending", assistants[0].Content)
	}
}

// While the grace window holds, no request id ever shows two assistant
// messages, whatever history contains.
func TestProject_NoDuplicateAssistantDuringGrace(t *testing.T) {
	g := DefaultGraceWindow()
	terminal := ts(15)
	entries := []Entry{
		{Role: RoleUser, Content: "hello", RequestID: "r1", Timestamp: ts(10)},
		{Role: RoleAssistant, Content: "history copy", RequestID: "r1", Timestamp: ts(14)},
	}
	live := []LiveRequest{{
		ClientID:   "c1",
		RequestID:  "r1",
		Prompt:     "hello",
		CreatedAt:  ts(10),
		Buffer:     "stream copy",
		TerminalAt: terminal,
	}}

	for _, offset := range []time.Duration{0, 50 * time.Millisecond, 299 * time.Millisecond} {
		msgs := Project(entries, live, terminal.Add(offset), g)
		count := 0
		for _, m := range msgs {
			if m.Role == RoleAssistant && m.RequestID == "r1" {
				count++
			}
		}
		if count != 1 {
			t.Errorf("At +%v: %d assistant messages for r1, want 1", offset, count)
		}
	}
}

func TestProject_SettledDefersToHistory(t *testing.T) {
	g := DefaultGraceWindow()
	terminal := ts(15)
	entries := []Entry{
		{Role: RoleUser, Content: "hello", RequestID: "r1", Timestamp: ts(10)},
		{Role: RoleAssistant, Content: "authoritative answer", RequestID: "r1", Timestamp: ts(14)},
	}
	live := []LiveRequest{{
		ClientID:   "c1",
		RequestID:  "r1",
		Prompt:     "hello",
		CreatedAt:  ts(10),
		Buffer:     "stream answer",
		TerminalAt: terminal,
	}}

	msgs := Project(entries, live, terminal.Add(10*time.Second), g)

	if len(msgs) != 2 {
		t.Fatalf("Messages = %d, want 2 (history pair only)", len(msgs))
	}
	if msgs[1].Content != "authoritative answer" {
		t.Errorf("Assistant = %q, history must win once settled", msgs[1].Content)
	}
	if msgs[0].ClientID != "" || msgs[1].ClientID != "" {
		t.Error("Settled messages must come from history, not optimistic state")
	}
}

func TestProject_SettledSynthesizesMissingAssistant(t *testing.T) {
	// Terminal + grace elapsed, but history has not caught up yet: the
	// local buffer still supplies the answer, just not pending anymore.
	g := DefaultGraceWindow()
	terminal := ts(15)
	live := []LiveRequest{{
		ClientID:   "c1",
		RequestID:  "r1",
		Prompt:     "hello",
		CreatedAt:  ts(10),
		Buffer:     "hi there",
		TerminalAt: terminal,
	}}

	msgs := Project(nil, live, terminal.Add(10*time.Second), g)
	if len(msgs) != 2 {
		t.Fatalf("Messages = %d, want 2", len(msgs))
	}
	if msgs[1].Pending {
		t.Error("Settled synthesized assistant must not be pending")
	}
	if msgs[1].Content != "hi there" {
		t.Errorf("Content = %q", msgs[1].Content)
	}
}

func TestProject_FailedStream(t *testing.T) {
	now := ts(20)
	live := []LiveRequest{{
		ClientID:   "c1",
		RequestID:  "r1",
		Prompt:     "do something",
		CreatedAt:  ts(10),
		Failed:     true,
		ErrorText:  "connection lost",
		TerminalAt: ts(19),
	}}

	msgs := Project(nil, live, now, DefaultGraceWindow())
	if len(msgs) != 2 {
		t.Fatalf("Messages = %d, want 2", len(msgs))
	}
	if !msgs[1].Failed {
		t.Error("Failure not marked on assistant message")
	}
	if msgs[1].Content != "connection lost" {
		t.Errorf("Content = %q, want error text", msgs[1].Content)
	}
}

func TestProject_HistoryBeforeOptimistic(t *testing.T) {
	now := ts(50)
	entries := []Entry{
		{Role: RoleUser, Content: "old question", RequestID: "r1", Timestamp: ts(1)},
		{Role: RoleAssistant, Content: "old answer", RequestID: "r1", Timestamp: ts(2)},
	}
	live := []LiveRequest{{
		ClientID:  "c2",
		RequestID: "c2",
		Prompt:    "new question",
		CreatedAt: now,
	}}

	msgs := Project(entries, live, now, DefaultGraceWindow())
	if len(msgs) != 3 {
		t.Fatalf("Messages = %d, want 3", len(msgs))
	}
	if msgs[2].Content != "new question" {
		t.Error("Optimistic messages must follow history messages")
	}
}

func TestProject_EntriesWithoutRequestIDSurvivePending(t *testing.T) {
	// Imported entries with no request id can never belong to a pending
	// request; they must not be filtered.
	now := ts(20)
	entries := []Entry{
		{Role: RoleUser, Content: "imported note", Timestamp: ts(1)},
	}
	live := []LiveRequest{{
		ClientID:  "c1",
		RequestID: "c1",
		Prompt:    "live one",
		CreatedAt: now,
	}}

	msgs := Project(entries, live, now, DefaultGraceWindow())
	if len(msgs) != 2 {
		t.Fatalf("Messages = %d, want 2", len(msgs))
	}
	if msgs[0].Content != "imported note" {
		t.Error("Entry without request id was filtered")
	}
}

func TestProject_UserRoleSuppressedWhenHistoryHasIt(t *testing.T) {
	// Settled request whose user row reached history while the
	// assistant row has not: optimistic supplies only the assistant.
	g := DefaultGraceWindow()
	terminal := ts(15)
	entries := []Entry{
		{Role: RoleUser, Content: "hello", RequestID: "r1", Timestamp: ts(10)},
	}
	live := []LiveRequest{{
		ClientID:   "c1",
		RequestID:  "r1",
		Prompt:     "hello",
		CreatedAt:  ts(10),
		Buffer:     "answer",
		TerminalAt: terminal,
	}}

	msgs := Project(entries, live, terminal.Add(10*time.Second), g)
	if len(msgs) != 2 {
		t.Fatalf("Messages = %d, want 2", len(msgs))
	}
	users := 0
	for _, m := range msgs {
		if m.Role == RoleUser {
			users++
		}
	}
	if users != 1 {
		t.Errorf("User messages = %d, want 1 (no duplicate)", users)
	}
}

// =============================================================================
// BENCHMARKS
// =============================================================================

func BenchmarkProject(b *testing.B) {
	now := ts(50)
	var entries []Entry
	for i := 0; i < 200; i++ {
		entries = append(entries, Entry{
			Role: RoleUser, Content: "q", RequestID: "r" + string(rune('a'+i%26)), Timestamp: ts(i % 40),
		})
	}
	live := []LiveRequest{
		{ClientID: "c1", RequestID: "r_live", Prompt: "p", CreatedAt: now, Buffer: "streaming"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Project(entries, live, now, DefaultGraceWindow())
	}
}
