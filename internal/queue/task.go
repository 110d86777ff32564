// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/cockpit-tui/internal/api"
)

// =============================================================================
// TASK STRUCTURE
// =============================================================================

// Task represents one queued-path request as the board tracks it. The
// work itself runs on the orchestrator; a Task is the cockpit's view of
// it plus the local cancellation token.
type Task struct {
	// ID is the board-local identifier, assigned at creation.
	ID string

	// RequestID is the orchestrator's identifier, empty until linked.
	RequestID string

	// ClientRef ties the task back to the optimistic tracker entry that
	// spawned it, when one exists.
	ClientRef string

	// Prompt is what the operator submitted.
	Prompt string

	// SessionID is the session the task belongs to.
	SessionID string

	// Status is the orchestrator-side lifecycle state.
	Status api.Status

	// QueuedAt is when the task was placed on the board.
	QueuedAt time.Time

	// StartedAt is when the orchestrator picked the task up.
	StartedAt time.Time

	// FinishedAt is when the task reached a terminal status.
	FinishedAt time.Time

	// Response holds the result once the task completes.
	Response string

	// Error is the failure message for FAILED and LOST tasks.
	Error string

	// Canceled marks tasks the operator abandoned locally. The
	// orchestrator may still finish them; the board stops caring.
	Canceled bool

	// cancel is the local cancellation token for any goroutine watching
	// this task (a stream reader, a result waiter).
	cancel context.CancelFunc

	// mu protects concurrent access to the task
	mu sync.RWMutex
}

// NewTask creates a pending task for a fresh submission.
func NewTask(prompt, sessionID string) *Task {
	return &Task{
		ID:        uuid.New().String(),
		Prompt:    prompt,
		SessionID: sessionID,
		Status:    api.StatusPending,
		QueuedAt:  time.Now(),
	}
}

// =============================================================================
// STATUS TRANSITIONS
// =============================================================================

// SetStatus updates the task status (thread-safe).
// Valid transitions: PENDING -> PROCESSING -> COMPLETED/FAILED/LOST,
// with PENDING allowed to jump straight to any terminal status.
func (t *Task) SetStatus(status api.Status) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !validTransition(t.Status, status) {
		return fmt.Errorf("invalid status transition from %s to %s", t.Status, status)
	}

	t.applyStatusLocked(status)
	return nil
}

// validTransition checks if a status transition is allowed.
func validTransition(from, to api.Status) bool {
	// Same status is idempotent; feeds and history polls overlap.
	if from == to {
		return true
	}

	switch from {
	case api.StatusPending:
		return to == api.StatusProcessing || to.IsTerminal()
	case api.StatusProcessing:
		return to.IsTerminal()
	default:
		// Terminal states never change again.
		return false
	}
}

// applyStatusLocked records a validated status and its timestamps.
func (t *Task) applyStatusLocked(status api.Status) {
	t.Status = status
	switch {
	case status == api.StatusProcessing && t.StartedAt.IsZero():
		t.StartedAt = time.Now()
	case status.IsTerminal() && t.FinishedAt.IsZero():
		t.FinishedAt = time.Now()
	}
}

// GetStatus returns the current task status (thread-safe).
func (t *Task) GetStatus() api.Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status
}

// =============================================================================
// TASK METHODS
// =============================================================================

// LinkRequest records the orchestrator's id for this task. The first
// non-empty id wins; later calls with a different id are ignored.
func (t *Task) LinkRequest(requestID string) {
	if requestID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.RequestID == "" {
		t.RequestID = requestID
	}
}

// MarkCompleted records a successful result.
func (t *Task) MarkCompleted(response string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !validTransition(t.Status, api.StatusCompleted) {
		return fmt.Errorf("invalid status transition from %s to %s", t.Status, api.StatusCompleted)
	}
	t.applyStatusLocked(api.StatusCompleted)
	t.Response = response
	return nil
}

// MarkFailed records a failure message.
func (t *Task) MarkFailed(msg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !validTransition(t.Status, api.StatusFailed) {
		return fmt.Errorf("invalid status transition from %s to %s", t.Status, api.StatusFailed)
	}
	t.applyStatusLocked(api.StatusFailed)
	t.Error = msg
	return nil
}

// MarkLost records that the orchestrator forgot the request, usually
// after a restart.
func (t *Task) MarkLost() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !validTransition(t.Status, api.StatusLost) {
		return fmt.Errorf("invalid status transition from %s to %s", t.Status, api.StatusLost)
	}
	t.applyStatusLocked(api.StatusLost)
	if t.Error == "" {
		t.Error = "request lost by orchestrator"
	}
	return nil
}

// BindCancel stores the cancellation token for watchers of this task.
// If the task was already canceled the token fires immediately.
func (t *Task) BindCancel(cancel context.CancelFunc) {
	t.mu.Lock()
	canceled := t.Canceled
	if !canceled {
		t.cancel = cancel
	}
	t.mu.Unlock()

	if canceled && cancel != nil {
		cancel()
	}
}

// Cancel abandons the task locally. Any bound watcher token fires.
// Returns false if the task already reached a terminal status.
func (t *Task) Cancel() bool {
	t.mu.Lock()

	if t.Status.IsTerminal() {
		t.mu.Unlock()
		return false
	}

	t.Canceled = true
	t.applyStatusLocked(api.StatusFailed)
	if t.Error == "" {
		t.Error = "canceled by operator"
	}
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	// Fire outside the lock; the watcher may call back into the task.
	if cancel != nil {
		cancel()
	}
	return true
}

// IsTerminal reports whether the task will never change again.
func (t *Task) IsTerminal() bool {
	return t.GetStatus().IsTerminal()
}

// Duration returns how long the task has been live, or took end to end.
func (t *Task) Duration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	start := t.StartedAt
	if start.IsZero() {
		start = t.QueuedAt
	}
	if start.IsZero() {
		return 0
	}
	if t.FinishedAt.IsZero() {
		return time.Since(start)
	}
	return t.FinishedAt.Sub(start)
}

// Summary returns a one-line summary for logs and the queue panel.
func (t *Task) Summary() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	label := t.RequestID
	if label == "" {
		label = t.ID[:8]
	}
	prompt := t.Prompt
	if len(prompt) > 40 {
		prompt = prompt[:40] + "..."
	}
	return fmt.Sprintf("[%s] %s - %s", label, prompt, t.Status)
}

// Clone creates a thread-safe copy of the task for reading. The
// cancellation token stays with the original.
func (t *Task) Clone() *Task {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return &Task{
		ID:         t.ID,
		RequestID:  t.RequestID,
		ClientRef:  t.ClientRef,
		Prompt:     t.Prompt,
		SessionID:  t.SessionID,
		Status:     t.Status,
		QueuedAt:   t.QueuedAt,
		StartedAt:  t.StartedAt,
		FinishedAt: t.FinishedAt,
		Response:   t.Response,
		Error:      t.Error,
		Canceled:   t.Canceled,
	}
}
