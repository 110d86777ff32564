// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks cockpit session identity and activity.
//
// A session is the conversation thread the orchestrator stores; the
// cockpit joins an existing one or starts a fresh one. On top of the
// session id this package maintains a per-process boot id (so two
// cockpits watching the same session never share cached state),
// activity timestamps for the idle warning, and the periodic
// cache-flush trigger.
//
// # Key Types
//
//   - Manager: Session state with activity tracking and flush hooks
//   - Config: Idle warning and flush tuning
//   - Status: Snapshot for the status bar and session drawer
//
// # Usage
//
// Create a manager and record activity as the operator types:
//
//	mgr := session.NewManager(session.DefaultConfig())
//	mgr.RecordActivity()
//
// Resume an existing session:
//
//	mgr := session.NewManagerForSession("sess_20260212_091500", cfg)
//
// The Bubble Tea integration drives periodic checks:
//
//	cmds = append(cmds, session.TickCmd())
package session
