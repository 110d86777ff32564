// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package events consumes the orchestrator's live event feed.
//
// The orchestrator exposes a long-lived NDJSON endpoint that announces
// request lifecycle changes, queue state and runtime switches as they
// happen. This package implements the feed client with automatic
// reconnection, so the cockpit learns about progress without hammering
// the history endpoint.
//
// # Key Types
//
//   - Event: One decoded feed line (queued, started, delta, finished...)
//   - Feed: The reconnecting feed client
//
// # Usage
//
// Open a feed and range over its events:
//
//	feed := events.NewFeed(client.GetConfig(), sessionID)
//	for ev := range feed.Stream(ctx) {
//	    if ev.Err != nil {
//	        // feed gave up; fall back to polling
//	        break
//	    }
//	    handle(ev)
//	}
//
// The channel closes when the context is cancelled or the feed exhausts
// its reconnection budget. Terminal failures arrive as a final Event
// with Err set.
package events
