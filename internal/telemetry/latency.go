// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"sort"
	"sync"
	"time"

	"github.com/jeranaias/cockpit-tui/internal/logging"
)

// =============================================================================
// SAMPLES
// =============================================================================

// maxLiveSamples bounds the in-memory sample window.
const maxLiveSamples = 500

// maxPromptLen is how much prompt text a sample keeps.
const maxPromptLen = 100

// Int64 returns a pointer to v, for optional milestone fields.
func Int64(v int64) *int64 {
	return &v
}

// Sample holds the latency milestones for one finished request.
// HistoryMs and TTFTMs are optional; queued-path requests often have no
// first-token time and direct-path requests may never hit history.
type Sample struct {
	RequestID string
	SessionID string
	Prompt    string
	ChatMode  string

	// Status is the terminal status the request reached. Empty is
	// treated as COMPLETED.
	Status string

	// HistoryMs is submission-to-history-visibility latency.
	HistoryMs *int64

	// TTFTMs is submission-to-first-token latency.
	TTFTMs *int64

	// DurationMs is the full round trip, submission to terminal status.
	DurationMs int64

	Timestamp time.Time
}

// Stats is an aggregated latency summary.
type Stats struct {
	Count int

	AvgDurationMs int64
	P50DurationMs int64
	P95DurationMs int64
	MaxDurationMs int64

	// Averages over the samples that carried the milestone.
	AvgTTFTMs    int64
	AvgHistoryMs int64
}

// =============================================================================
// LATENCY TRACKER
// =============================================================================

// LatencyTracker aggregates request latency samples. It keeps a bounded
// in-memory window for the live telemetry panel and forwards every
// sample to the archive when one is attached.
type LatencyTracker struct {
	mu      sync.RWMutex
	samples []Sample
	archive *Archive
}

// NewLatencyTracker creates a tracker. archive may be nil for
// memory-only operation.
func NewLatencyTracker(archive *Archive) *LatencyTracker {
	return &LatencyTracker{
		samples: make([]Sample, 0),
		archive: archive,
	}
}

// Record stores one sample. Archive failures are logged and swallowed;
// telemetry never blocks the request path.
func (lt *LatencyTracker) Record(s Sample) {
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}
	if len(s.Prompt) > maxPromptLen {
		s.Prompt = s.Prompt[:maxPromptLen] + "..."
	}

	lt.mu.Lock()
	lt.samples = append(lt.samples, s)
	if len(lt.samples) > maxLiveSamples {
		lt.samples = lt.samples[len(lt.samples)-maxLiveSamples:]
	}
	archive := lt.archive
	lt.mu.Unlock()

	if archive != nil {
		if err := archive.SaveSample(s); err != nil {
			logging.Debugf("telemetry archive write failed: %v", err)
		}
	}
}

// Count returns how many samples the live window holds.
func (lt *LatencyTracker) Count() int {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	return len(lt.samples)
}

// SessionStats aggregates the live window for one session.
func (lt *LatencyTracker) SessionStats(sessionID string) Stats {
	lt.mu.RLock()
	defer lt.mu.RUnlock()

	var durations []int64
	var ttftSum, ttftCount int64
	var histSum, histCount int64

	for _, s := range lt.samples {
		if s.SessionID != sessionID {
			continue
		}
		durations = append(durations, s.DurationMs)
		if s.TTFTMs != nil {
			ttftSum += *s.TTFTMs
			ttftCount++
		}
		if s.HistoryMs != nil {
			histSum += *s.HistoryMs
			histCount++
		}
	}

	stats := computeStats(durations)
	if ttftCount > 0 {
		stats.AvgTTFTMs = ttftSum / ttftCount
	}
	if histCount > 0 {
		stats.AvgHistoryMs = histSum / histCount
	}
	return stats
}

// Slowest returns the n slowest samples in the live window, slowest
// first.
func (lt *LatencyTracker) Slowest(n int) []Sample {
	lt.mu.RLock()
	out := make([]Sample, len(lt.samples))
	copy(out, lt.samples)
	lt.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DurationMs > out[j].DurationMs
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Recent returns the newest n samples for a session, newest last.
func (lt *LatencyTracker) Recent(sessionID string, n int) []Sample {
	lt.mu.RLock()
	defer lt.mu.RUnlock()

	var out []Sample
	for _, s := range lt.samples {
		if s.SessionID == sessionID {
			out = append(out, s)
		}
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

// =============================================================================
// AGGREGATION
// =============================================================================

// computeStats builds count/avg/p50/p95/max from raw durations.
func computeStats(durations []int64) Stats {
	if len(durations) == 0 {
		return Stats{}
	}

	sorted := make([]int64, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum int64
	for _, d := range sorted {
		sum += d
	}

	return Stats{
		Count:         len(sorted),
		AvgDurationMs: sum / int64(len(sorted)),
		P50DurationMs: percentile(sorted, 50),
		P95DurationMs: percentile(sorted, 95),
		MaxDurationMs: sorted[len(sorted)-1],
	}
}

// percentile returns the pth percentile of sorted values using
// nearest-rank.
func percentile(sorted []int64, p int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
