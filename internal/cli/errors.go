// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/cockpit-tui/internal/api"
)

// =============================================================================
// EXIT CODES
// =============================================================================

// Exit codes returned by cockpit commands. Scripts can branch on
// these instead of parsing error text.
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitAuthError    = 4
	ExitNetworkError = 5
	ExitNotFound     = 6
	ExitTimeout      = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError wraps a failure inside a specific command with enough
// context to print a useful one-line message.
type CommandError struct {
	Command string
	Action  string
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s: %s", e.Command, e.Action, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Command, e.Action, e.Err)
	}
	return fmt.Sprintf("%s %s failed", e.Command, e.Action)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a CommandError wrapping an underlying error.
func NewCommandError(command, action string, err error) *CommandError {
	return &CommandError{Command: command, Action: action, Err: err}
}

// ValidationError indicates user input that could not be accepted.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s", e.Field)
	if e.Value != "" {
		msg += fmt.Sprintf(" %q", e.Value)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// NotFoundError indicates a named resource does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// Common sentinel errors.
var (
	ErrMissingArgument   = errors.New("missing required argument")
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode maps an error onto a process exit code. Typed errors
// from the api client take precedence over message sniffing.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case api.IsUnauthorized(err):
		return ExitAuthError
	case api.IsTimeout(err):
		return ExitTimeout
	case api.IsUnavailable(err):
		return ExitNetworkError
	case api.IsNotFound(err):
		return ExitNotFound
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ExitUsageError
	}
	var notFoundErr *NotFoundError
	if errors.As(err, &notFoundErr) {
		return ExitNotFound
	}
	var ttyErr *TTYRequiredError
	if errors.As(err, &ttyErr) {
		return ExitUsageError
	}
	if errors.Is(err, ErrMissingArgument) || errors.Is(err, ErrUnsupportedFormat) {
		return ExitUsageError
	}

	// Fall back to message inspection for errors that lost their type
	// crossing package boundaries.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "config"):
		return ExitConfigError
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "token"):
		return ExitAuthError
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return ExitTimeout
	case strings.Contains(msg, "connection"), strings.Contains(msg, "unreachable"):
		return ExitNetworkError
	case strings.Contains(msg, "not found"):
		return ExitNotFound
	}

	return ExitGeneralError
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError prints an error to stderr in either human or JSON form.
func DisplayError(err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		DisplayErrorJSON(err)
		return
	}
	fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("Error:"), err)

	// Attach a hint for the failures users hit most.
	switch {
	case api.IsUnavailable(err):
		fmt.Fprintf(os.Stderr, "%s\n", DimStyle.Render("Is the orchestrator running? Try: cockpit status"))
	case api.IsUnauthorized(err):
		fmt.Fprintf(os.Stderr, "%s\n", DimStyle.Render("Try: cockpit auth login"))
	}
}

// DisplayErrorJSON prints the error as a JSON envelope on stderr.
func DisplayErrorJSON(err error) {
	resp := NewJSONErrorResponseStr("", err.Error())
	StderrPrintln(resp.String())
}

// HandleError displays an error and returns its exit code without
// terminating. Returns ExitSuccess for nil.
func HandleError(err error, jsonMode bool) int {
	if err == nil {
		return ExitSuccess
	}
	DisplayError(err, jsonMode)
	return GetExitCode(err)
}

// HandleErrorAndExit displays an error and exits with its code.
// No-op for nil errors.
func HandleErrorAndExit(err error, jsonMode bool) {
	if err == nil {
		return
	}
	DisplayError(err, jsonMode)
	os.Exit(GetExitCode(err))
}

// WrapError adds command context to an error, preserving nil.
func WrapError(command, action string, err error) error {
	if err == nil {
		return nil
	}
	return NewCommandError(command, action, err)
}
