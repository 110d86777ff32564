// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/events"
	"github.com/jeranaias/cockpit-tui/internal/logging"
)

// =============================================================================
// BOARD
// =============================================================================

// Board manages the local view of queued-path tasks with thread-safe
// operations. Tasks enter by local submission or by feed events about
// requests other cockpits submitted.
type Board struct {
	// tasks is the list of all tasks, oldest first
	tasks []*Task

	// byRequest indexes linked tasks by orchestrator request id
	byRequest map[string]*Task

	// maxHistory is the maximum number of terminal tasks to keep
	maxHistory int

	// mu protects concurrent access to the board
	mu sync.RWMutex

	// notifyChan sends notifications when tasks reach terminal status
	notifyChan chan Notification
}

// Notification represents a task reaching a terminal status.
type Notification struct {
	TaskID    string
	RequestID string
	Prompt    string
	Status    api.Status
	Error     string
	Duration  time.Duration
}

// NewBoard creates a task board.
// maxHistory sets the maximum number of terminal tasks to keep (0 = unlimited).
func NewBoard(maxHistory int) *Board {
	return &Board{
		tasks:      make([]*Task, 0),
		byRequest:  make(map[string]*Task),
		maxHistory: maxHistory,
		notifyChan: make(chan Notification, 100),
	}
}

// =============================================================================
// TASK MANAGEMENT
// =============================================================================

// Add places a locally submitted task on the board.
func (b *Board) Add(task *Task) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tasks = append(b.tasks, task)
	if task.RequestID != "" {
		b.byRequest[task.RequestID] = task
	}
}

// Link records the orchestrator's request id for a board task and
// indexes it for feed events.
func (b *Board) Link(taskID, requestID string) bool {
	if requestID == "" {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, task := range b.tasks {
		if task.ID == taskID {
			task.LinkRequest(requestID)
			b.byRequest[requestID] = task
			return true
		}
	}
	return false
}

// Get retrieves a task by board id. Returns nil if not found.
func (b *Board) Get(id string) *Task {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, task := range b.tasks {
		if task.ID == id {
			return task.Clone()
		}
	}
	return nil
}

// GetByRequest retrieves a task by orchestrator request id.
// Returns nil if not found.
func (b *Board) GetByRequest(requestID string) *Task {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if task, ok := b.byRequest[requestID]; ok {
		return task.Clone()
	}
	return nil
}

// Cancel abandons a task by board id or request id.
// Returns true if the task was live and is now canceled.
func (b *Board) Cancel(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if task, ok := b.byRequest[id]; ok {
		return task.Cancel()
	}
	for _, task := range b.tasks {
		if task.ID == id {
			return task.Cancel()
		}
	}
	return false
}

// =============================================================================
// FEED AND HISTORY RECONCILIATION
// =============================================================================

// ApplyEvent advances the board from one feed event. Events for
// canceled tasks are ignored; the operator already walked away.
func (b *Board) ApplyEvent(ev events.Event) {
	if ev.RequestID == "" {
		return
	}

	switch ev.Type {
	case events.EventQueued, events.EventStarted, events.EventFinished:
	default:
		// Deltas belong to the chat stream, heartbeats to the feed.
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	task := b.ensureLocked(ev.RequestID, ev.SessionID)
	if task.Canceled {
		return
	}

	switch ev.Type {
	case events.EventStarted:
		if err := task.SetStatus(api.StatusProcessing); err != nil {
			logging.Debugf("queue board: %v", err)
		}
	case events.EventFinished:
		b.finishLocked(task, ev.Status, ev.Response, ev.ErrorMsg)
	}
}

// ApplyRecord reconciles one history record into the board. History is
// authoritative: it fills prompts the feed never carried and catches
// transitions missed while the feed was down.
func (b *Board) ApplyRecord(rec api.RequestRecord) {
	if rec.RequestID == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	task := b.ensureLocked(rec.RequestID, rec.SessionID)
	if task.Canceled {
		return
	}

	if task.Prompt == "" {
		task.Prompt = rec.Prompt
	}

	switch rec.Status {
	case api.StatusProcessing:
		if err := task.SetStatus(api.StatusProcessing); err != nil {
			logging.Debugf("queue board: %v", err)
		}
	case api.StatusCompleted, api.StatusFailed, api.StatusLost:
		b.finishLocked(task, rec.Status, rec.Response, rec.Error)
	}
}

// ensureLocked returns the task for a request id, creating an external
// placeholder when the board has never seen it.
func (b *Board) ensureLocked(requestID, sessionID string) *Task {
	if task, ok := b.byRequest[requestID]; ok {
		return task
	}

	task := &Task{
		ID:        uuid.New().String(),
		RequestID: requestID,
		SessionID: sessionID,
		Status:    api.StatusPending,
		QueuedAt:  time.Now(),
	}
	b.tasks = append(b.tasks, task)
	b.byRequest[requestID] = task
	return task
}

// finishLocked applies a terminal status and notifies once.
func (b *Board) finishLocked(task *Task, status api.Status, response, errMsg string) {
	if task.IsTerminal() {
		return
	}

	var err error
	switch status {
	case api.StatusCompleted:
		err = task.MarkCompleted(response)
	case api.StatusFailed:
		if errMsg == "" {
			errMsg = "request failed"
		}
		err = task.MarkFailed(errMsg)
	case api.StatusLost:
		err = task.MarkLost()
	default:
		return
	}
	if err != nil {
		logging.Debugf("queue board: %v", err)
		return
	}

	b.notify(Notification{
		TaskID:    task.ID,
		RequestID: task.RequestID,
		Prompt:    task.Prompt,
		Status:    task.GetStatus(),
		Error:     task.Error,
		Duration:  task.Duration(),
	})

	b.cleanupLocked()
}

// =============================================================================
// BOARD QUERIES
// =============================================================================

// All returns a copy of every task, oldest first.
func (b *Board) All() []*Task {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]*Task, len(b.tasks))
	for i, task := range b.tasks {
		result[i] = task.Clone()
	}
	return result
}

// Active returns tasks that have not reached a terminal status.
func (b *Board) Active() []*Task {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]*Task, 0)
	for _, task := range b.tasks {
		if !task.IsTerminal() {
			result = append(result, task.Clone())
		}
	}
	return result
}

// Terminal returns completed, failed and lost tasks.
func (b *Board) Terminal() []*Task {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]*Task, 0)
	for _, task := range b.tasks {
		if task.IsTerminal() {
			result = append(result, task.Clone())
		}
	}
	return result
}

// Count returns the total number of tasks on the board.
func (b *Board) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tasks)
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// Notifications returns the channel of terminal-status notifications.
func (b *Board) Notifications() <-chan Notification {
	return b.notifyChan
}

// notify sends a notification (must be called with lock held).
func (b *Board) notify(notification Notification) {
	select {
	case b.notifyChan <- notification:
	default:
		// Channel full; drop rather than block the feed.
		logging.Warnf("queue board dropped notification for %s (status: %s)",
			notification.RequestID, notification.Status)
	}
}

// =============================================================================
// CLEANUP
// =============================================================================

// cleanupLocked removes old terminal tasks to keep the board small.
// Must be called with lock held. Removal is oldest-first by board
// position.
func (b *Board) cleanupLocked() {
	if b.maxHistory <= 0 {
		return
	}

	terminalCount := 0
	for _, task := range b.tasks {
		if task.IsTerminal() {
			terminalCount++
		}
	}
	if terminalCount <= b.maxHistory {
		return
	}

	toRemove := terminalCount - b.maxHistory
	newTasks := make([]*Task, 0, len(b.tasks)-toRemove)
	for _, task := range b.tasks {
		if task.IsTerminal() && toRemove > 0 {
			toRemove--
			if task.RequestID != "" {
				delete(b.byRequest, task.RequestID)
			}
			continue
		}
		newTasks = append(newTasks, task)
	}
	b.tasks = newTasks
}

// Clear removes all terminal tasks from the board.
func (b *Board) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	newTasks := make([]*Task, 0)
	for _, task := range b.tasks {
		if task.IsTerminal() {
			if task.RequestID != "" {
				delete(b.byRequest, task.RequestID)
			}
			continue
		}
		newTasks = append(newTasks, task)
	}
	b.tasks = newTasks
}

// =============================================================================
// FORMATTING
// =============================================================================

// Summary returns a formatted one-line summary of the board.
func (b *Board) Summary() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	pending := 0
	processing := 0
	completed := 0
	failed := 0

	for _, task := range b.tasks {
		switch task.GetStatus() {
		case api.StatusPending:
			pending++
		case api.StatusProcessing:
			processing++
		case api.StatusCompleted:
			completed++
		case api.StatusFailed, api.StatusLost:
			failed++
		}
	}

	return fmt.Sprintf("Pending: %d | Processing: %d | Completed: %d | Failed: %d",
		pending, processing, completed, failed)
}
