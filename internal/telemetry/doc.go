// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry provides request latency tracking for the cockpit.
//
// Every request the cockpit submits gets a set of latency milestones:
// time until its row appeared in fetched history, time to first token,
// and full round-trip duration. This package aggregates those samples
// into per-session statistics and archives them to a local SQLite
// database backing the request drawer and `cockpit stats`.
//
// # Key Types
//
//   - Sample: One request's latency milestones
//   - LatencyTracker: In-memory aggregation for the live panel
//   - Stats: Count/avg/p50/p95 summary for a session
//   - Archive: SQLite persistence for past requests
//
// # Usage
//
// Record a completed request:
//
//	tracker.Record(telemetry.Sample{
//	    RequestID:  "req_abc",
//	    SessionID:  sessionID,
//	    DurationMs: 5000,
//	    TTFTMs:     telemetry.Int64(420),
//	})
//
// Get session statistics:
//
//	stats := tracker.SessionStats(sessionID)
//	fmt.Printf("p95: %dms\n", stats.P95DurationMs)
//
// # Privacy
//
// Telemetry is local-only and does not transmit any data. Prompts are
// truncated to their first 100 characters before archiving.
package telemetry
