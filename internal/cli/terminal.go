// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TERMINAL DETECTION
// =============================================================================

// IsTTY returns true if stdin is connected to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY returns true if stdout is connected to a terminal.
// When false, output is being piped or redirected and should not
// carry ANSI styling or rendered markdown.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// IsStderrTTY returns true if stderr is connected to a terminal.
func IsStderrTTY() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

const (
	// DefaultTerminalWidth is assumed when the real width is unknown.
	DefaultTerminalWidth = 80
	// MinTerminalWidth is the floor for wrapped output.
	MinTerminalWidth = 40
)

// GetTerminalWidth returns the stdout width, or DefaultTerminalWidth
// when stdout is not a terminal or the size cannot be read.
func GetTerminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return DefaultTerminalWidth
	}
	if w < MinTerminalWidth {
		return MinTerminalWidth
	}
	return w
}

// =============================================================================
// COLOR SUPPORT
// =============================================================================

var (
	colorsOnce    sync.Once
	colorsEnabled bool
	colorsForced  bool
	colorsForceTo bool
)

// ColorsEnabled reports whether styled output should be produced.
// NO_COLOR (any non-empty value) disables colors, FORCE_COLOR enables
// them even when stdout is not a terminal, otherwise colors follow
// stdout TTY detection.
func ColorsEnabled() bool {
	if colorsForced {
		return colorsForceTo
	}
	colorsOnce.Do(func() {
		if os.Getenv("NO_COLOR") != "" {
			colorsEnabled = false
			return
		}
		if os.Getenv("FORCE_COLOR") != "" {
			colorsEnabled = true
			return
		}
		colorsEnabled = IsStdoutTTY()
	})
	return colorsEnabled
}

// ForceColorsEnabled overrides color detection. Used by tests.
func ForceColorsEnabled(enabled bool) {
	colorsForced = true
	colorsForceTo = enabled
}

// ResetColorDetection clears any forced override. Used by tests.
func ResetColorDetection() {
	colorsForced = false
	colorsOnce = sync.Once{}
}

// GetColorProfile returns the termenv profile to use for lipgloss
// rendering, honoring ColorsEnabled.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}

// =============================================================================
// INTERACTIVITY
// =============================================================================

// CanPrompt returns true if the process can interactively prompt the
// user (stdin and stderr both terminals).
func CanPrompt() bool {
	return IsTTY() && IsStderrTTY()
}

// TTYRequiredError indicates an operation needs an interactive
// terminal but none is attached.
type TTYRequiredError struct {
	Operation string
}

func (e *TTYRequiredError) Error() string {
	return fmt.Sprintf("%s requires an interactive terminal", e.Operation)
}

// RequiresTTY returns an error when stdin is not a terminal.
func RequiresTTY(operation string) error {
	if !IsTTY() {
		return &TTYRequiredError{Operation: operation}
	}
	return nil
}
