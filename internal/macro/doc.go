// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package macro provides named prompt templates and sequential runs.
//
// A macro is a TOML file under ~/.cockpit/macros/ holding one or more
// prompt steps. Prompts may contain {placeholder} markers that are
// filled from arguments at run time. A run submits each expanded step
// through the caller-supplied submit function, exactly as if the
// operator had typed the prompts by hand.
//
// # Key Types
//
//   - Macro: A named template with ordered steps
//   - Store: Loads and saves macros in a directory
//   - Runner: Executes a macro's steps sequentially
//
// # Usage
//
//	store := macro.NewStore(dir)
//	m, err := store.Load("triage")
//	if err != nil {
//	    return err
//	}
//	runner := macro.NewRunner(submitFn)
//	run, err := runner.Run(ctx, m, map[string]string{"service": "billing"})
package macro
