// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the agent orchestrator.
//
// The orchestrator exposes a JSON API under /api/v1/ plus two streaming
// surfaces: the direct chat stream (one NDJSON body per submission) and
// the session event feed (a long-lived NDJSON connection consumed by the
// events package). All streaming goes through StreamReader, which decodes
// one JSON object per line and tolerates malformed lines.
//
// # Submission paths
//
// A submission takes one of two paths, chosen by the caller:
//
//   - queued: POST /api/v1/chat with stream=false. The orchestrator
//     returns a request id immediately and executes the task through its
//     queue; progress arrives over the event feed.
//   - direct: POST /api/v1/chat with stream=true. The response body is an
//     NDJSON stream of chunks ending with a done marker.
//
// # Errors
//
// All failures are *ClientError values categorized by ErrorType, with
// sentinels (ErrUnavailable, ErrTimeout, ErrUnauthorized, ErrNotFound)
// for the common cases. Use the IsX helpers rather than string matching.
//
// Example:
//
//	client := api.NewClient()
//	if err := client.CheckHealth(ctx); err != nil {
//	    log.Fatal("orchestrator not reachable:", err)
//	}
//	resp, err := client.Submit(ctx, api.SubmitRequest{SessionID: sid, Prompt: "hello"})
package api
