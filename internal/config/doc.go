// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for cockpit.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, validation, and live reload on file change.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - OrchestratorConfig: Connection settings for the agent orchestrator
//   - UIConfig: Terminal UI behavior, including optimistic grace tuning
//   - Watcher: Reloads the config file when it changes on disk
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (COCKPIT_*)
//   - ~/.cockpit/config.toml
//   - ~/.cockpit/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	url := cfg.Orchestrator.URL
//	grace := cfg.UI.GraceFloorMs
package config
