// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestLatencyTracker_Record(t *testing.T) {
	tracker := NewLatencyTracker(nil)

	tracker.Record(Sample{
		RequestID:  "req_1",
		SessionID:  "sess_a",
		Prompt:     "what is the queue depth",
		DurationMs: 1200,
		TTFTMs:     Int64(340),
	})

	if tracker.Count() != 1 {
		t.Errorf("count: got %d, want 1", tracker.Count())
	}

	recent := tracker.Recent("sess_a", 10)
	if len(recent) != 1 {
		t.Fatalf("recent: got %d samples, want 1", len(recent))
	}
	if recent[0].Timestamp.IsZero() {
		t.Error("timestamp should be filled when zero")
	}
	if recent[0].TTFTMs == nil || *recent[0].TTFTMs != 340 {
		t.Errorf("ttft: got %v, want 340", recent[0].TTFTMs)
	}
}

func TestLatencyTracker_TruncatesPrompt(t *testing.T) {
	tracker := NewLatencyTracker(nil)

	long := strings.Repeat("x", 500)
	tracker.Record(Sample{RequestID: "req_1", SessionID: "sess_a", Prompt: long})

	recent := tracker.Recent("sess_a", 1)
	if len(recent) != 1 {
		t.Fatal("expected one sample")
	}
	if len(recent[0].Prompt) != maxPromptLen+3 {
		t.Errorf("prompt length: got %d, want %d", len(recent[0].Prompt), maxPromptLen+3)
	}
	if !strings.HasSuffix(recent[0].Prompt, "...") {
		t.Error("truncated prompt should end with ellipsis")
	}
}

func TestLatencyTracker_WindowBound(t *testing.T) {
	tracker := NewLatencyTracker(nil)

	for i := 0; i < maxLiveSamples+50; i++ {
		tracker.Record(Sample{
			RequestID:  fmt.Sprintf("req_%d", i),
			SessionID:  "sess_a",
			DurationMs: int64(i),
		})
	}

	if tracker.Count() != maxLiveSamples {
		t.Errorf("count: got %d, want %d", tracker.Count(), maxLiveSamples)
	}

	// Oldest samples are evicted first.
	recent := tracker.Recent("sess_a", 0)
	if recent[0].RequestID != "req_50" {
		t.Errorf("oldest survivor: got %s, want req_50", recent[0].RequestID)
	}
}

func TestLatencyTracker_SessionStats(t *testing.T) {
	tracker := NewLatencyTracker(nil)

	durations := []int64{100, 200, 300, 400, 500}
	for i, d := range durations {
		tracker.Record(Sample{
			RequestID:  fmt.Sprintf("req_%d", i),
			SessionID:  "sess_a",
			DurationMs: d,
			TTFTMs:     Int64(d / 10),
		})
	}
	// A different session must not leak into the stats.
	tracker.Record(Sample{RequestID: "req_x", SessionID: "sess_b", DurationMs: 99999})

	stats := tracker.SessionStats("sess_a")
	if stats.Count != 5 {
		t.Errorf("count: got %d, want 5", stats.Count)
	}
	if stats.AvgDurationMs != 300 {
		t.Errorf("avg: got %d, want 300", stats.AvgDurationMs)
	}
	if stats.P50DurationMs != 300 {
		t.Errorf("p50: got %d, want 300", stats.P50DurationMs)
	}
	if stats.P95DurationMs != 500 {
		t.Errorf("p95: got %d, want 500", stats.P95DurationMs)
	}
	if stats.MaxDurationMs != 500 {
		t.Errorf("max: got %d, want 500", stats.MaxDurationMs)
	}
	if stats.AvgTTFTMs != 30 {
		t.Errorf("avg ttft: got %d, want 30", stats.AvgTTFTMs)
	}
}

func TestLatencyTracker_SessionStatsEmpty(t *testing.T) {
	tracker := NewLatencyTracker(nil)

	stats := tracker.SessionStats("sess_missing")
	if stats.Count != 0 {
		t.Errorf("count: got %d, want 0", stats.Count)
	}
	if stats.AvgDurationMs != 0 || stats.MaxDurationMs != 0 {
		t.Error("empty stats should be all zero")
	}
}

func TestLatencyTracker_Slowest(t *testing.T) {
	tracker := NewLatencyTracker(nil)

	tracker.Record(Sample{RequestID: "req_fast", SessionID: "sess_a", DurationMs: 50})
	tracker.Record(Sample{RequestID: "req_slow", SessionID: "sess_a", DurationMs: 5000})
	tracker.Record(Sample{RequestID: "req_mid", SessionID: "sess_a", DurationMs: 800})

	slowest := tracker.Slowest(2)
	if len(slowest) != 2 {
		t.Fatalf("slowest: got %d samples, want 2", len(slowest))
	}
	if slowest[0].RequestID != "req_slow" {
		t.Errorf("slowest[0]: got %s, want req_slow", slowest[0].RequestID)
	}
	if slowest[1].RequestID != "req_mid" {
		t.Errorf("slowest[1]: got %s, want req_mid", slowest[1].RequestID)
	}
}

func TestLatencyTracker_RecentLimit(t *testing.T) {
	tracker := NewLatencyTracker(nil)

	for i := 0; i < 10; i++ {
		tracker.Record(Sample{RequestID: fmt.Sprintf("req_%d", i), SessionID: "sess_a"})
	}

	recent := tracker.Recent("sess_a", 3)
	if len(recent) != 3 {
		t.Fatalf("recent: got %d samples, want 3", len(recent))
	}
	// Newest last.
	if recent[2].RequestID != "req_9" {
		t.Errorf("newest: got %s, want req_9", recent[2].RequestID)
	}
	if recent[0].RequestID != "req_7" {
		t.Errorf("window start: got %s, want req_7", recent[0].RequestID)
	}
}

func TestLatencyTracker_ConcurrentRecord(t *testing.T) {
	tracker := NewLatencyTracker(nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				tracker.Record(Sample{
					RequestID:  fmt.Sprintf("req_%d_%d", n, j),
					SessionID:  "sess_a",
					DurationMs: int64(j),
				})
				tracker.SessionStats("sess_a")
			}
		}(i)
	}
	wg.Wait()

	if tracker.Count() != 200 {
		t.Errorf("count: got %d, want 200", tracker.Count())
	}
}

func TestComputeStats_SingleSample(t *testing.T) {
	stats := computeStats([]int64{750})
	if stats.Count != 1 {
		t.Errorf("count: got %d, want 1", stats.Count)
	}
	if stats.AvgDurationMs != 750 || stats.P50DurationMs != 750 ||
		stats.P95DurationMs != 750 || stats.MaxDurationMs != 750 {
		t.Errorf("single-sample stats should all be 750, got %+v", stats)
	}
}

func TestPercentile(t *testing.T) {
	sorted := []int64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

	tests := []struct {
		p    int
		want int64
	}{
		{50, 50},
		{95, 100},
		{100, 100},
		{1, 10},
	}

	for _, tt := range tests {
		got := percentile(sorted, tt.p)
		if got != tt.want {
			t.Errorf("percentile(%d): got %d, want %d", tt.p, got, tt.want)
		}
	}
}

func TestLatencyTracker_ArchiveForwarding(t *testing.T) {
	tmpDir := t.TempDir()
	archive, err := OpenArchive(tmpDir + "/archive.db")
	if err != nil {
		t.Fatalf("OpenArchive failed: %v", err)
	}
	defer archive.Close()

	tracker := NewLatencyTracker(archive)
	tracker.Record(Sample{
		RequestID:  "req_1",
		SessionID:  "sess_a",
		Prompt:     "hello",
		DurationMs: 420,
		Timestamp:  time.Now(),
	})

	n, err := archive.CountRequests()
	if err != nil {
		t.Fatalf("CountRequests failed: %v", err)
	}
	if n != 1 {
		t.Errorf("archived requests: got %d, want 1", n)
	}
}
