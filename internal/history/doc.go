// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history turns orchestrator request records into the message
// list the cockpit displays.
//
// Three stages, all pure except the cache:
//
//   - FromRecords explodes request records into role-tagged entries
//     (user prompt, assistant response).
//   - Merge de-duplicates entries. The key is request id plus role;
//     entries with no request id fall back to role plus content. On
//     collision the later timestamp wins.
//   - Project folds merged history together with the still-optimistic
//     requests into the final []ChatMessage: history rows for requests
//     that are still pending are hidden, optimistic messages fill the
//     gap, and once a request leaves its grace window the authoritative
//     history rows take over without the same message rendering twice.
//
// The session cache keeps a JSON tail of merged entries so a restarted
// cockpit paints the conversation before the first history fetch
// returns. It is injected as a small key-value capability (Cache) so
// tests run against memory instead of the filesystem.
package history
