// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jeranaias/cockpit-tui/internal/api"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	archive, err := OpenArchive(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("OpenArchive failed: %v", err)
	}
	t.Cleanup(func() { archive.Close() })
	return archive
}

func TestArchive_OpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "archive.db")
	archive, err := OpenArchive(path)
	if err != nil {
		t.Fatalf("OpenArchive failed: %v", err)
	}
	defer archive.Close()

	n, err := archive.CountRequests()
	if err != nil {
		t.Fatalf("CountRequests failed: %v", err)
	}
	if n != 0 {
		t.Errorf("fresh archive count: got %d, want 0", n)
	}
}

func TestArchive_SaveRecordRoundTrip(t *testing.T) {
	archive := openTestArchive(t)

	created := time.Now().Add(-time.Minute).Truncate(time.Millisecond)
	finished := created.Add(3 * time.Second)
	rec := api.RequestRecord{
		RequestID:  "req_1",
		SessionID:  "sess_a",
		Status:     api.StatusCompleted,
		Prompt:     "summarize the deploy log",
		Response:   "Deploy finished cleanly.",
		Tool:       "code",
		Provider:   "anthropic",
		ChatMode:   api.ModeNormal,
		CreatedAt:  created,
		FinishedAt: &finished,
	}
	if err := archive.SaveRecord(rec); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}

	rows, err := archive.Recent("sess_a", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows: got %d, want 1", len(rows))
	}

	got := rows[0]
	if got.RequestID != "req_1" {
		t.Errorf("request id: got %s, want req_1", got.RequestID)
	}
	if got.Status != api.StatusCompleted {
		t.Errorf("status: got %s, want %s", got.Status, api.StatusCompleted)
	}
	if got.Prompt != rec.Prompt {
		t.Errorf("prompt: got %q, want %q", got.Prompt, rec.Prompt)
	}
	if got.Response != rec.Response {
		t.Errorf("response: got %q, want %q", got.Response, rec.Response)
	}
	if got.Tool != "code" || got.Provider != "anthropic" {
		t.Errorf("tool/provider: got %s/%s", got.Tool, got.Provider)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at: got %v, want %v", got.CreatedAt, created)
	}
	if !got.FinishedAt.Equal(finished) {
		t.Errorf("finished_at: got %v, want %v", got.FinishedAt, finished)
	}
}

func TestArchive_SaveSampleThenRecordPreservesTiming(t *testing.T) {
	archive := openTestArchive(t)

	// Milestones land first, from the live tracker.
	err := archive.SaveSample(Sample{
		RequestID:  "req_1",
		SessionID:  "sess_a",
		Prompt:     "hello",
		DurationMs: 1800,
		HistoryMs:  Int64(950),
		TTFTMs:     Int64(300),
		Timestamp:  time.Now(),
	})
	if err != nil {
		t.Fatalf("SaveSample failed: %v", err)
	}

	// Then the orchestrator history record arrives with the full text.
	finished := time.Now()
	err = archive.SaveRecord(api.RequestRecord{
		RequestID:  "req_1",
		SessionID:  "sess_a",
		Status:     api.StatusCompleted,
		Prompt:     "hello",
		Response:   "hi there",
		CreatedAt:  time.Now().Add(-2 * time.Second),
		FinishedAt: &finished,
	})
	if err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}

	rows, err := archive.Recent("sess_a", 1)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows: got %d, want 1", len(rows))
	}

	got := rows[0]
	if got.Response != "hi there" {
		t.Errorf("response: got %q, want %q", got.Response, "hi there")
	}
	if got.HistoryMs == nil || *got.HistoryMs != 950 {
		t.Errorf("history_ms should survive the record upsert, got %v", got.HistoryMs)
	}
	if got.TTFTMs == nil || *got.TTFTMs != 300 {
		t.Errorf("ttft_ms should survive the record upsert, got %v", got.TTFTMs)
	}
	if got.DurationMs != 1800 {
		t.Errorf("duration_ms: got %d, want 1800", got.DurationMs)
	}
}

func TestArchive_SaveSampleStatus(t *testing.T) {
	archive := openTestArchive(t)

	if err := archive.SaveSample(Sample{RequestID: "req_ok", SessionID: "sess_a"}); err != nil {
		t.Fatalf("SaveSample failed: %v", err)
	}
	if err := archive.SaveSample(Sample{RequestID: "req_bad", SessionID: "sess_a", Status: string(api.StatusFailed)}); err != nil {
		t.Fatalf("SaveSample failed: %v", err)
	}

	rows, err := archive.Recent("sess_a", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}

	byID := make(map[string]api.Status)
	for _, r := range rows {
		byID[r.RequestID] = r.Status
	}
	if byID["req_ok"] != api.StatusCompleted {
		t.Errorf("empty status should default to COMPLETED, got %s", byID["req_ok"])
	}
	if byID["req_bad"] != api.StatusFailed {
		t.Errorf("status: got %s, want %s", byID["req_bad"], api.StatusFailed)
	}
}

func TestArchive_RecentOrderAndLimit(t *testing.T) {
	archive := openTestArchive(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		err := archive.SaveRecord(api.RequestRecord{
			RequestID: fmt.Sprintf("req_%d", i),
			SessionID: "sess_a",
			Status:    api.StatusCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("SaveRecord failed: %v", err)
		}
	}

	rows, err := archive.Recent("sess_a", 3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows: got %d, want 3", len(rows))
	}
	// Newest first.
	if rows[0].RequestID != "req_4" {
		t.Errorf("rows[0]: got %s, want req_4", rows[0].RequestID)
	}
	if rows[2].RequestID != "req_2" {
		t.Errorf("rows[2]: got %s, want req_2", rows[2].RequestID)
	}
}

func TestArchive_RecentSessionIsolation(t *testing.T) {
	archive := openTestArchive(t)

	archive.SaveRecord(api.RequestRecord{RequestID: "req_a", SessionID: "sess_a", Status: api.StatusCompleted, CreatedAt: time.Now()})
	archive.SaveRecord(api.RequestRecord{RequestID: "req_b", SessionID: "sess_b", Status: api.StatusCompleted, CreatedAt: time.Now()})

	rows, err := archive.Recent("sess_a", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(rows) != 1 || rows[0].RequestID != "req_a" {
		t.Errorf("session isolation broken: got %+v", rows)
	}
}

func TestArchive_SessionStats(t *testing.T) {
	archive := openTestArchive(t)

	durations := []int64{100, 200, 300, 400}
	for i, d := range durations {
		err := archive.SaveSample(Sample{
			RequestID:  fmt.Sprintf("req_%d", i),
			SessionID:  "sess_a",
			DurationMs: d,
			TTFTMs:     Int64(d / 2),
			Timestamp:  time.Now(),
		})
		if err != nil {
			t.Fatalf("SaveSample failed: %v", err)
		}
	}

	stats, err := archive.SessionStats("sess_a")
	if err != nil {
		t.Fatalf("SessionStats failed: %v", err)
	}
	if stats.Count != 4 {
		t.Errorf("count: got %d, want 4", stats.Count)
	}
	if stats.AvgDurationMs != 250 {
		t.Errorf("avg: got %d, want 250", stats.AvgDurationMs)
	}
	if stats.MaxDurationMs != 400 {
		t.Errorf("max: got %d, want 400", stats.MaxDurationMs)
	}
	if stats.AvgTTFTMs != 125 {
		t.Errorf("avg ttft: got %d, want 125", stats.AvgTTFTMs)
	}
}

func TestArchive_DeleteBefore(t *testing.T) {
	archive := openTestArchive(t)

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()
	archive.SaveRecord(api.RequestRecord{RequestID: "req_old", SessionID: "sess_a", Status: api.StatusCompleted, CreatedAt: old})
	archive.SaveRecord(api.RequestRecord{RequestID: "req_new", SessionID: "sess_a", Status: api.StatusCompleted, CreatedAt: recent})

	if err := archive.DeleteBefore(time.Now().Add(-24 * time.Hour)); err != nil {
		t.Fatalf("DeleteBefore failed: %v", err)
	}

	n, err := archive.CountRequests()
	if err != nil {
		t.Fatalf("CountRequests failed: %v", err)
	}
	if n != 1 {
		t.Errorf("count after prune: got %d, want 1", n)
	}

	rows, _ := archive.Recent("sess_a", 10)
	if len(rows) != 1 || rows[0].RequestID != "req_new" {
		t.Errorf("survivor: got %+v, want req_new", rows)
	}
}

func TestArchive_ClosedErrors(t *testing.T) {
	archive := openTestArchive(t)
	if err := archive.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := archive.SaveSample(Sample{RequestID: "req_1"}); err != ErrArchiveClosed {
		t.Errorf("SaveSample after close: got %v, want ErrArchiveClosed", err)
	}
	if _, err := archive.Recent("sess_a", 1); err != ErrArchiveClosed {
		t.Errorf("Recent after close: got %v, want ErrArchiveClosed", err)
	}
	if _, err := archive.CountRequests(); err != ErrArchiveClosed {
		t.Errorf("CountRequests after close: got %v, want ErrArchiveClosed", err)
	}

	// Closing twice is harmless.
	if err := archive.Close(); err != nil {
		t.Errorf("second Close: got %v, want nil", err)
	}
}

func TestArchive_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")

	archive, err := OpenArchive(path)
	if err != nil {
		t.Fatalf("OpenArchive failed: %v", err)
	}
	archive.SaveRecord(api.RequestRecord{RequestID: "req_1", SessionID: "sess_a", Status: api.StatusCompleted, CreatedAt: time.Now()})
	archive.Close()

	reopened, err := OpenArchive(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	n, err := reopened.CountRequests()
	if err != nil {
		t.Fatalf("CountRequests failed: %v", err)
	}
	if n != 1 {
		t.Errorf("count after reopen: got %d, want 1", n)
	}
}
