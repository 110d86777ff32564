// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// STREAM BUFFER
// =============================================================================

// StreamBuffer batches stream deltas between renders. Reader goroutines
// write deltas as they arrive; the Update loop drains everything on the
// render tick. Rendering therefore happens at most maxFPS times per
// second no matter how fast deltas arrive.
//
// Keys are optimistic client ids. Several streams can be live at once:
// a direct-path stream plus feed deltas for queued requests all land
// here, so the buffer is keyed rather than single-slot.
//
// Thread safety: Write is called from reader goroutines, DrainAll and
// ForceDrain from the Update loop. All paths take the mutex.
type StreamBuffer struct {
	mu        sync.Mutex
	pending   map[string]*strings.Builder
	tokens    int
	lastDrain time.Time

	batchSize int
	maxFPS    int
	minDrain  time.Duration
}

// Default batching: drain every 15 deltas or at the FPS cap, whichever
// comes first.
const (
	defaultBatchSize = 15
	defaultMaxFPS    = 30
)

// NewStreamBuffer creates a buffer with default batching.
func NewStreamBuffer() *StreamBuffer {
	return NewStreamBufferWithConfig(defaultBatchSize, defaultMaxFPS)
}

// NewStreamBufferWithConfig creates a buffer with custom batching.
// batchSize <= 0 and fps outside (0, 60] fall back to defaults.
func NewStreamBufferWithConfig(batchSize, maxFPS int) *StreamBuffer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = defaultMaxFPS
	}
	return &StreamBuffer{
		pending:   make(map[string]*strings.Builder),
		lastDrain: time.Now(),
		batchSize: batchSize,
		maxFPS:    maxFPS,
		minDrain:  time.Second / time.Duration(maxFPS),
	}
}

// Write appends a delta for the given stream. Returns true when the
// batch threshold is crossed, which tells the caller to nudge the
// program instead of waiting for the next tick.
func (sb *StreamBuffer) Write(key, delta string) bool {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	b, ok := sb.pending[key]
	if !ok {
		b = &strings.Builder{}
		sb.pending[key] = b
	}
	b.WriteString(delta)
	sb.tokens++

	return sb.tokens >= sb.batchSize
}

// DrainAll removes and returns all pending content keyed by stream.
// Returns nil when nothing is pending or the FPS gate has not elapsed;
// the skipped content is picked up by a later tick.
func (sb *StreamBuffer) DrainAll() map[string]string {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if len(sb.pending) == 0 {
		return nil
	}
	since := time.Since(sb.lastDrain)
	if sb.tokens < sb.batchSize && since < sb.minDrain {
		return nil
	}

	out := make(map[string]string, len(sb.pending))
	for key, b := range sb.pending {
		if b.Len() > 0 {
			out[key] = b.String()
		}
	}
	sb.pending = make(map[string]*strings.Builder)
	sb.tokens = 0
	sb.lastDrain = time.Now()

	if len(out) == 0 {
		return nil
	}
	return out
}

// ForceDrain removes and returns pending content for one stream,
// ignoring the FPS gate. Used at stream end so the tail is never
// left behind.
func (sb *StreamBuffer) ForceDrain(key string) (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	b, ok := sb.pending[key]
	if !ok || b.Len() == 0 {
		delete(sb.pending, key)
		return "", false
	}
	content := b.String()
	delete(sb.pending, key)
	return content, true
}

// Drop discards pending content for one stream. Used when a request is
// dropped mid-flight so a late flush cannot resurrect it.
func (sb *StreamBuffer) Drop(key string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	delete(sb.pending, key)
}

// PendingTokens returns the number of undrained deltas across all
// streams.
func (sb *StreamBuffer) PendingTokens() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.tokens
}

// HasPending reports whether any stream has undrained content.
func (sb *StreamBuffer) HasPending() bool {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return len(sb.pending) > 0
}

// SetMaxFPS adjusts the drain rate. Values outside (0, 60] reset to
// the default.
func (sb *StreamBuffer) SetMaxFPS(fps int) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if fps <= 0 || fps > 60 {
		fps = defaultMaxFPS
	}
	sb.maxFPS = fps
	sb.minDrain = time.Second / time.Duration(fps)
}

// Config returns the current batch size and FPS cap.
func (sb *StreamBuffer) Config() (batchSize, maxFPS int) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.batchSize, sb.maxFPS
}

// =============================================================================
// RENDER TICK
// =============================================================================

// renderTickCmd schedules the next buffer drain. The model keeps
// exactly one tick in flight while any stream is live or settling.
func renderTickCmd(fps int) tea.Cmd {
	if fps <= 0 || fps > 60 {
		fps = defaultMaxFPS
	}
	interval := time.Second / time.Duration(fps)
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return RenderTickMsg{Time: t}
	})
}
