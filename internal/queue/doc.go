// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package queue tracks queued-path work as the cockpit sees it.
//
// Queued submissions execute on the orchestrator, not in this process.
// This package keeps the local board of those remote tasks: what was
// submitted, what the orchestrator last said about each request, and
// which ones the operator abandoned. The board is fed by the event feed
// and reconciled against history queries.
//
// # Key Types
//
//   - Task: One remote request with validated status transitions
//   - Board: Thread-safe collection backing the queue panel
//   - Notification: Status-change messages for the status bar
//
// # Usage
//
// Submit, link, then let the feed drive the rest:
//
//	task := queue.NewTask(prompt, sessionID)
//	board.Add(task)
//	board.Link(task.ID, resp.RequestID)
//	...
//	board.ApplyEvent(ev) // from the event feed
package queue
