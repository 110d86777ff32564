// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package track implements the optimistic request tracker.
package track

// =============================================================================
// TIMING ENTRIES
// =============================================================================

// Timing holds the client-observed latency milestones for one request.
// T0 is the submission instant in epoch milliseconds; HistoryMs and TTFTMs
// are deltas from T0, nil until observed.
type Timing struct {
	T0        int64
	HistoryMs *int64 // first appearance in fetched session history
	TTFTMs    *int64 // first streamed token
}

// TimingPatch carries partial milestone updates. Nil fields are left
// untouched by Patch.
type TimingPatch struct {
	HistoryMs *int64
	TTFTMs    *int64
}

// Ms wraps a millisecond value for use in a TimingPatch.
func Ms(v int64) *int64 {
	return &v
}

// =============================================================================
// TIMING STORE
// =============================================================================

// TimingStore is an identifier-indexed store of Timing entries with an
// explicit rename operation. A request's timing is created under its
// client id and renamed to the server request id on link; the rename
// leaves an alias so samples recorded under the old key still land on the
// one live entry. Exactly one live entry exists per logical request.
//
// The store is not safe for concurrent use; the Tracker serializes access.
type TimingStore struct {
	entries map[string]Timing
	aliases map[string]string // old key -> live key
}

// NewTimingStore creates an empty timing store.
func NewTimingStore() *TimingStore {
	return &TimingStore{
		entries: make(map[string]Timing),
		aliases: make(map[string]string),
	}
}

// resolve follows the alias for key, if any.
func (s *TimingStore) resolve(key string) string {
	if live, ok := s.aliases[key]; ok {
		return live
	}
	return key
}

// Start creates the base entry for key with the given submission instant.
// An existing entry under the same key is left untouched.
func (s *TimingStore) Start(key string, t0 int64) {
	k := s.resolve(key)
	if _, exists := s.entries[k]; exists {
		return
	}
	s.entries[k] = Timing{T0: t0}
}

// Patch merges non-nil fields of patch into the entry for key, resolving
// through the rename alias. Returns false when no base entry exists;
// samples that arrive before Start are discarded, not buffered.
func (s *TimingStore) Patch(key string, patch TimingPatch) bool {
	k := s.resolve(key)
	entry, ok := s.entries[k]
	if !ok {
		return false
	}
	if patch.HistoryMs != nil {
		v := *patch.HistoryMs
		entry.HistoryMs = &v
	}
	if patch.TTFTMs != nil {
		v := *patch.TTFTMs
		entry.TTFTMs = &v
	}
	s.entries[k] = entry
	return true
}

// Rename moves the entry under oldKey to newKey and records an alias so
// later lookups under oldKey reach the same entry. Renaming to the same
// key, or when oldKey has no entry, is a no-op. Idempotent.
func (s *TimingStore) Rename(oldKey, newKey string) {
	if oldKey == newKey || newKey == "" {
		return
	}
	from := s.resolve(oldKey)
	if from == newKey {
		return // already renamed
	}
	entry, ok := s.entries[from]
	if !ok {
		return
	}
	delete(s.entries, from)
	s.entries[newKey] = entry
	s.aliases[oldKey] = newKey
}

// Get returns the entry for key, resolving through the rename alias.
func (s *TimingStore) Get(key string) (Timing, bool) {
	entry, ok := s.entries[s.resolve(key)]
	return entry, ok
}

// Delete removes the entry for key and every alias pointing at it. After
// Delete, the timing is unreachable under both the client id and any
// request id it was renamed to.
func (s *TimingStore) Delete(key string) {
	live := s.resolve(key)
	delete(s.entries, live)
	delete(s.aliases, key)
	for old, target := range s.aliases {
		if target == live {
			delete(s.aliases, old)
		}
	}
}

// Len returns the number of live entries.
func (s *TimingStore) Len() int {
	return len(s.entries)
}
