// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server implements a stub orchestrator for local development
// and tests.
//
// The stub speaks the same wire protocol as a real orchestrator, so the
// TUI, the REPL, and the api client can all run against it with no
// backend configured. Replies come from a pluggable Responder; the
// default one echoes the prompt. Queued requests pass through a single
// worker that publishes lifecycle events on the NDJSON feed, which makes
// the stub good enough to exercise the whole tracker and projection
// path end to end.
//
// # Endpoints
//
//   - GET  /api/v1/health            - Health probe
//   - POST /api/v1/chat              - Submit a request (queued, or NDJSON direct stream)
//   - GET  /api/v1/history           - Per-session request history
//   - GET  /api/v1/queue             - Queue status
//   - POST /api/v1/queue/pause       - Pause the worker
//   - POST /api/v1/queue/resume      - Resume the worker
//   - GET  /api/v1/runtimes          - List runtimes
//   - POST /api/v1/runtimes/activate - Switch the active runtime
//   - GET  /api/v1/sessions          - List session summaries
//   - GET  /api/v1/events            - NDJSON event feed with replay
//   - GET  /api/v1/stats             - Stub usage counters
//
// # Key Types
//
//   - Server: HTTP server, queue worker, and event fan-out
//   - Responder: pluggable reply function driving the stub's output
//   - AuthConfig: optional bearer-token authentication
//
// # Usage
//
//	srv := server.NewServer(0).WithStepDelay(30 * time.Millisecond)
//	defer srv.Close()
//	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
//		log.Fatal(err)
//	}
package server
