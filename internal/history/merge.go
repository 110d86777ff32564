// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history turns orchestrator request records into the message
// list the cockpit displays.
package history

import (
	"sort"
)

// DedupKey returns the merge identity of an entry: request id plus role
// when a request id exists, role plus content otherwise. Two entries
// with the same key are the same logical message.
func DedupKey(e Entry) string {
	if e.RequestID != "" {
		return e.RequestID + ":" + string(e.Role)
	}
	return string(e.Role) + ":" + e.Content
}

// Merge de-duplicates entries by DedupKey and returns them ordered by
// timestamp. On a key collision the entry with the later timestamp wins;
// with equal or missing timestamps the later arrival wins, which makes
// re-merging a fresh fetch over cached state idempotent.
func Merge(entries []Entry) []Entry {
	type slot struct {
		entry    Entry
		firstIdx int
	}

	index := make(map[string]int, len(entries))
	slots := make([]slot, 0, len(entries))

	for i, e := range entries {
		key := DedupKey(e)
		at, seen := index[key]
		if !seen {
			index[key] = len(slots)
			slots = append(slots, slot{entry: e, firstIdx: i})
			continue
		}
		slots[at].entry = newerOf(slots[at].entry, e)
	}

	// Timestamp ascending; first appearance breaks ties so order is
	// deterministic across re-merges.
	sort.SliceStable(slots, func(i, j int) bool {
		ti, tj := slots[i].entry.Timestamp, slots[j].entry.Timestamp
		if ti.Equal(tj) {
			return slots[i].firstIdx < slots[j].firstIdx
		}
		return ti.Before(tj)
	})

	out := make([]Entry, len(slots))
	for i, s := range slots {
		out[i] = s.entry
	}
	return out
}

// newerOf picks the surviving entry for a key collision. b arrived later
// in input order.
func newerOf(a, b Entry) Entry {
	if b.Timestamp.IsZero() && !a.Timestamp.IsZero() {
		return a
	}
	if a.Timestamp.IsZero() || !b.Timestamp.Before(a.Timestamp) {
		return b
	}
	return a
}
