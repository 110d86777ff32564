// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package track implements the optimistic request tracker.
package track

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/logging"
)

// =============================================================================
// REQUEST ENTRIES
// =============================================================================

// Options carries the submission options captured at enqueue time.
type Options struct {
	// ForcedTool and ForcedProvider are routing overrides parsed from
	// slash commands; empty means orchestrator default.
	ForcedTool     string
	ForcedProvider string

	// Direct selects the streamed response path instead of the queued
	// task path.
	Direct bool

	// ChatMode is the planning depth label captured for display.
	ChatMode api.ChatMode
}

// Request is one in-flight submission as the cockpit tracks it locally.
type Request struct {
	// ClientID is generated locally at enqueue and never reused.
	ClientID string

	// RequestID is empty until the orchestrator acknowledges the
	// submission. When the ack fails to produce an id it falls back to
	// ClientID so lookups stay stable. Once set it does not change.
	RequestID string

	// Prompt is the submitted text, immutable after creation.
	Prompt string

	CreatedAt time.Time
	// StartedAt is the clock reading duration measurements are based on.
	StartedAt time.Time

	// Confirmed is true once Link ran for this entry.
	Confirmed bool

	ForcedTool     string
	ForcedProvider string
	Direct         bool
	ChatMode       api.ChatMode
}

// EffectiveID returns the stable lookup key for this entry: the server
// request id once linked, the client id before that.
func (r *Request) EffectiveID() string {
	if r.RequestID != "" {
		return r.RequestID
	}
	return r.ClientID
}

// =============================================================================
// CLIENT ID GENERATION
// =============================================================================

var clientIDCounter atomic.Int64

// newClientID generates a unique local id with the cli_ prefix. Server
// request ids use req_, so the two are never confusable in logs.
func newClientID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// Monotonic fallback keeps ids unique within the process even
		// when the entropy source fails.
		n := clientIDCounter.Add(1)
		return "cli_" + strconv.FormatInt(time.Now().UnixNano(), 36) + "_" + strconv.FormatInt(n, 10)
	}
	return "cli_" + hex.EncodeToString(b)
}

// =============================================================================
// TRACKER
// =============================================================================

// Tracker owns the optimistic request entries for one session view.
// All methods are safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*Request // keyed by ClientID
	order   []string            // insertion order of ClientIDs
	timings *TimingStore
	cancels map[string]context.CancelFunc

	now func() time.Time
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{
		entries: make(map[string]*Request),
		timings: NewTimingStore(),
		cancels: make(map[string]context.CancelFunc),
		now:     time.Now,
	}
}

// Enqueue creates a new entry for prompt and returns its client id. This
// is a pure local mutation: it returns immediately and never touches the
// network. The timing entry is started alongside, keyed by the client id.
func (t *Tracker) Enqueue(prompt string, opts Options) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	req := &Request{
		ClientID:       newClientID(),
		Prompt:         prompt,
		CreatedAt:      now,
		StartedAt:      now,
		ForcedTool:     opts.ForcedTool,
		ForcedProvider: opts.ForcedProvider,
		Direct:         opts.Direct,
		ChatMode:       opts.ChatMode,
	}

	t.entries[req.ClientID] = req
	t.order = append(t.order, req.ClientID)
	t.timings.Start(req.ClientID, now.UnixMilli())
	return req.ClientID
}

// Link records the server-issued request id for clientID and re-keys the
// timing entry. An empty requestID falls back to clientID so lookups stay
// stable after a failed ack. Idempotent; unknown clientID is a benign
// no-op (the entry was dropped while the ack was in flight).
func (t *Tracker) Link(clientID, requestID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, ok := t.entries[clientID]
	if !ok {
		logging.WithField("client_id", clientID).Debugf("link for untracked entry ignored")
		return
	}
	if requestID == "" {
		requestID = clientID
	}
	if req.Confirmed {
		return // second link is a no-op
	}
	req.RequestID = requestID
	req.Confirmed = true
	t.timings.Rename(clientID, requestID)
}

// Drop removes the entry for clientID together with its timing data and
// fires its cancellation token. Used on submission failure (immediately)
// and after terminal resolution. Idempotent.
func (t *Tracker) Drop(clientID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(clientID)
}

// removeLocked deletes one entry, its timing, its position in the order
// slice and cancels any bound stream context. Caller holds t.mu.
func (t *Tracker) removeLocked(clientID string) {
	if _, ok := t.entries[clientID]; !ok {
		return
	}
	delete(t.entries, clientID)
	for i, id := range t.order {
		if id == clientID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	t.timings.Delete(clientID)
	if cancel, ok := t.cancels[clientID]; ok {
		delete(t.cancels, clientID)
		cancel()
	}
}

// RecordTiming merges partial milestone fields into the timing entry for
// key, resolving through the clientID -> requestID rename when one
// happened. Samples with no base entry are discarded, not buffered.
func (t *Tracker) RecordTiming(key string, patch TimingPatch) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.timings.Patch(key, patch) {
		logging.WithField("key", key).Debugf("timing sample without base entry discarded")
	}
}

// Timing returns the milestone entry for key under either of its ids.
func (t *Tracker) Timing(key string) (Timing, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timings.Get(key)
}

// PruneAgainstHistory removes every entry whose effective id matches a
// history record with a terminal status, reporting the elapsed duration
// (finished_at, falling back to created_at, minus StartedAt) through
// onDuration. This is how authoritative history supersedes the optimistic
// view even when the live completion event was missed.
func (t *Tracker) PruneAgainstHistory(records []api.RequestRecord, onDuration func(clientID string, d time.Duration)) {
	terminal := make(map[string]api.RequestRecord)
	for _, rec := range records {
		if rec.Status.IsTerminal() {
			terminal[rec.RequestID] = rec
		}
	}
	if len(terminal) == 0 {
		return
	}

	type pruned struct {
		clientID string
		duration time.Duration
	}
	var removed []pruned

	t.mu.Lock()
	for _, id := range append([]string(nil), t.order...) {
		req := t.entries[id]
		rec, ok := terminal[req.EffectiveID()]
		if !ok {
			continue
		}
		end := rec.CreatedAt
		if rec.FinishedAt != nil {
			end = *rec.FinishedAt
		}
		removed = append(removed, pruned{clientID: id, duration: end.Sub(req.StartedAt)})
		t.removeLocked(id)
	}
	t.mu.Unlock()

	// Callbacks run outside the lock.
	if onDuration != nil {
		for _, p := range removed {
			onDuration(p.clientID, p.duration)
		}
	}
}

// =============================================================================
// CANCELLATION
// =============================================================================

// BindCancel registers the cancellation token for clientID's stream read.
// Drop invokes it, so a dropped entry's read stops instead of writing
// into a buffer nobody displays. Binding to an already-dropped entry
// cancels immediately.
func (t *Tracker) BindCancel(clientID string, cancel context.CancelFunc) {
	t.mu.Lock()
	_, live := t.entries[clientID]
	if live {
		t.cancels[clientID] = cancel
	}
	t.mu.Unlock()

	if !live {
		cancel()
	}
}

// =============================================================================
// READ SIDE
// =============================================================================

// Get returns a copy of the entry for clientID.
func (t *Tracker) Get(clientID string) (Request, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	req, ok := t.entries[clientID]
	if !ok {
		return Request{}, false
	}
	return *req, true
}

// Has reports whether clientID is still tracked. Stream readers call
// this before applying late output.
func (t *Tracker) Has(clientID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.entries[clientID]
	return ok
}

// Snapshot returns copies of all entries in insertion order.
func (t *Tracker) Snapshot() []Request {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Request, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.entries[id])
	}
	return out
}

// Len returns the number of tracked entries.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
