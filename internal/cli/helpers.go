// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"time"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/auth"
	"github.com/jeranaias/cockpit-tui/internal/config"
	"github.com/jeranaias/cockpit-tui/internal/logging"
)

// =============================================================================
// SHARED COMMAND HELPERS
// =============================================================================

// loadConfig loads the cockpit configuration, falling back to
// defaults when no config file exists yet.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapError("config", "load", err)
	}
	return cfg, nil
}

// openKeystore opens and unlocks the token keystore. Returns nil when
// the keystore is unavailable; callers treat that as "no stored
// tokens" and fall back to the config token.
func openKeystore() *auth.Keystore {
	dir, err := auth.DefaultDir()
	if err != nil {
		logging.Debugf("keystore dir unavailable: %v", err)
		return nil
	}
	ks := auth.NewKeystore(dir)
	if err := ks.Unlock(); err != nil {
		logging.Debugf("keystore unlock failed: %v", err)
		return nil
	}
	return ks
}

// buildClient constructs an orchestrator client from config, resolving
// the bearer token through the keystore with the config token as
// fallback.
func buildClient(cfg *config.Config) *api.Client {
	ks := openKeystore()
	token := auth.ResolveToken(ks, cfg.Orchestrator.URL, cfg.Orchestrator.Token)

	clientCfg := api.ClientConfig{
		BaseURL:      cfg.Orchestrator.URL,
		Token:        token,
		Timeout:      cfg.Timeout(),
		HistoryLimit: cfg.Orchestrator.HistoryLimit,
	}
	if api.ValidChatMode(cfg.Orchestrator.DefaultMode) {
		clientCfg.DefaultMode = api.ChatMode(cfg.Orchestrator.DefaultMode)
	}
	return api.NewClientWithConfig(&clientCfg)
}

// formatMs renders a millisecond count for human output.
func formatMs(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}

// formatAge renders how long ago a timestamp was, coarsely.
func formatAge(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// boolYesNo renders a boolean as yes/no.
func boolYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
