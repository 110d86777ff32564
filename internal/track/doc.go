// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package track implements the optimistic request tracker.
//
// When the operator submits a prompt, the cockpit shows it immediately,
// before the orchestrator has acknowledged the submission or written it to
// session history. The tracker owns that window: it holds one entry per
// in-flight submission from Enqueue until the entry is dropped, links the
// local client id to the server-issued request id, carries the latency
// milestones for the telemetry panel, and prunes entries once the
// authoritative history shows a terminal status.
//
// # Lifecycle
//
//	clientID := tracker.Enqueue(prompt, opts)   // local only, instant
//	tracker.Link(clientID, requestID)           // after server ack
//	tracker.RecordTiming(requestID, patch)      // milestones as observed
//	tracker.PruneAgainstHistory(records, fn)    // terminal history wins
//	tracker.Drop(clientID)                      // failure or manual discard
//
// Operations on one clientID happen in that order; operations on distinct
// clientIDs interleave freely. Link and Drop are idempotent, and both
// tolerate unknown ids as benign no-ops (late callbacks losing a race with
// a drop are expected, not errors).
//
// All state is guarded by one mutex. Stream readers never mutate the
// tracker directly; they deliver results to the UI loop, which checks
// Has(clientID) before applying late output.
package track
