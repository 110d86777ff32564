// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging provides file-based diagnostics for the cockpit.
//
// A full-screen TUI owns stdout and stderr, so diagnostic output goes to
// ~/.cockpit/cockpit.log instead. Logging is disabled (io.Discard) until
// Init is called, which makes every call site safe in tests and in the
// one-shot CLI verbs.
//
// The level and format come from the [log] config section. The "json"
// format exists for feeding the log into external collectors.
package logging
