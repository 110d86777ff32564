// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the cockpit TUI.

This package defines the color palette, the Theme style catalog, and the
small animation vocabulary used throughout the application. All colors use
Lip Gloss AdaptiveColor so the palette tracks light and dark terminals
automatically; the configured theme mode can force either.

# Color System (colors.go)

Accent colors carry meaning consistently across every surface:

	Purple  - assistant output, selections
	Cyan    - brand, commands, the normal chat mode
	Emerald - completed requests, healthy feed
	Amber   - pending requests, paused queue, warnings
	Rose    - failed requests, errors

Request lifecycle states map to colors and ASCII glyphs through
StatusColor and StatusGlyph, keyed by the wire status strings
(PENDING, PROCESSING, COMPLETED, FAILED, LOST) so this package stays
free of domain imports. Glyphs carry the state on their own; color is
reinforcement for operators who can see it.

# Theme System (theme.go)

The Theme struct is the one style catalog the component renderers pull
from. It is created once at startup from the ui.theme config value:

	theme := styles.NewTheme(cfg.UI.Theme) // "dark", "light", or "auto"
	if theme.IsDark {
		// dark palette active
	}

SetSize and GetLayoutMode support responsive layouts: panels collapse
below 100 columns and the chat view goes single-column below 60.

# Animations (animations.go)

Spinner frame sets, the progress/latency bar renderers, and the tree
connectors the request drawer draws with. All ASCII, deliberately:
cockpit sessions frequently run over plain SSH.

	frame := styles.LineSpinner.Frame(tick)
	bar := styles.RenderLatencyBar(20, sample.DurationMs, 5000)
*/
package styles
