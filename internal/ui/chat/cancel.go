// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

// =============================================================================
// REQUEST DROPPING
// =============================================================================

// dropRequest abandons a pending request. Target is a client id, a
// server request id, "last", or empty for the newest pending entry.
// Returns the dropped client id.
//
// Dropping fires the bound stream cancel, discards buffered output,
// and cancels the local queue task. The orchestrator keeps executing
// a queued request; only the cockpit stops waiting for it.
func (m *Model) dropRequest(target string) (string, bool) {
	clientID := ""
	switch target {
	case "", "last":
		clientID = m.newestPending()
	default:
		if m.tracker.Has(target) {
			clientID = target
		} else if resolved, ok := m.clientIDForRequest(target); ok {
			clientID = resolved
		}
	}
	if clientID == "" {
		return "", false
	}

	m.tracker.Drop(clientID)
	m.buffers.Drop(clientID)
	delete(m.streams, clientID)

	for _, task := range m.board.Active() {
		if task.ClientRef == clientID {
			m.board.Cancel(task.ID)
			break
		}
	}

	m.finishIfQuiet()
	m.refreshTranscript()
	return clientID, true
}

// newestPending returns the most recently enqueued tracked request.
func (m *Model) newestPending() string {
	snap := m.tracker.Snapshot()
	if len(snap) == 0 {
		return ""
	}
	return snap[len(snap)-1].ClientID
}
