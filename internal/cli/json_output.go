// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// =============================================================================
// JSON RESPONSE ENVELOPE
// =============================================================================

// JSONResponse is the envelope for all --json command output. Every
// command emits the same shape so scripts can share a decoder.
type JSONResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *string     `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
	Command   string      `json:"command,omitempty"`
}

// NewJSONResponse creates a success envelope.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates an error envelope from an error.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	return NewJSONErrorResponseStr(command, err.Error())
}

// NewJSONErrorResponseStr creates an error envelope from a message.
func NewJSONErrorResponseStr(command, message string) *JSONResponse {
	return &JSONResponse{
		Success:   false,
		Error:     &message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the response to stdout with indentation.
func (r *JSONResponse) Print() error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// PrintCompact writes the response to stdout on a single line.
func (r *JSONResponse) PrintCompact() error {
	return json.NewEncoder(os.Stdout).Encode(r)
}

// String renders the response as an indented JSON string.
func (r *JSONResponse) String() string {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Sprintf(`{"success":false,"error":%q}`, err.Error())
	}
	return strings.TrimRight(sb.String(), "\n")
}

// OutputJSON runs a handler and prints its result as a JSON envelope.
// When jsonMode is false it does nothing and returns false, letting
// the caller produce human output instead.
func OutputJSON(jsonMode bool, command string, handler func() (interface{}, error)) bool {
	if !jsonMode {
		return false
	}
	data, err := handler()
	if err != nil {
		resp := NewJSONErrorResponse(command, err)
		resp.Print()
		os.Exit(GetExitCode(err))
	}
	NewJSONResponse(command, data).Print()
	return true
}

// StderrPrintln writes a line to stderr, keeping stdout clean for
// pipeable output.
func StderrPrintln(msg string) {
	fmt.Fprintln(os.Stderr, msg)
}

// =============================================================================
// COMMAND DATA SHAPES
// =============================================================================

// AskData is the --json payload for cockpit ask.
type AskData struct {
	RequestID  string `json:"request_id"`
	SessionID  string `json:"session_id"`
	Prompt     string `json:"prompt"`
	Response   string `json:"response"`
	Status     string `json:"status"`
	ChatMode   string `json:"chat_mode"`
	DurationMs int64  `json:"duration_ms"`
}

// StatusData is the --json payload for cockpit status.
type StatusData struct {
	Reachable  bool          `json:"reachable"`
	URL        string        `json:"url"`
	Version    string        `json:"version,omitempty"`
	Queue      *QueueData    `json:"queue,omitempty"`
	Runtimes   []RuntimeData `json:"runtimes,omitempty"`
	ConfigPath string        `json:"config_path"`
	Error      string        `json:"error,omitempty"`
}

// QueueData summarizes queue state inside StatusData.
type QueueData struct {
	Paused bool `json:"paused"`
	Depth  int  `json:"depth"`
	Active int  `json:"active"`
}

// RuntimeData summarizes a runtime inside StatusData.
type RuntimeData struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Active   bool   `json:"active"`
	Healthy  bool   `json:"healthy"`
}

// StatsData is the --json payload for cockpit stats.
type StatsData struct {
	SessionID     string `json:"session_id,omitempty"`
	Count         int    `json:"count"`
	AvgDurationMs int64  `json:"avg_duration_ms"`
	P50DurationMs int64  `json:"p50_duration_ms"`
	P95DurationMs int64  `json:"p95_duration_ms"`
	MaxDurationMs int64  `json:"max_duration_ms"`
	AvgTTFTMs     int64  `json:"avg_ttft_ms"`
	AvgHistoryMs  int64  `json:"avg_history_ms"`
	ArchivedTotal int    `json:"archived_total"`
}

// SessionListData is the --json payload for cockpit sessions.
type SessionListData struct {
	Sessions []SessionData `json:"sessions"`
	Count    int           `json:"count"`
}

// SessionData summarizes one session.
type SessionData struct {
	SessionID    string `json:"session_id"`
	Title        string `json:"title,omitempty"`
	RequestCount int    `json:"request_count"`
	UpdatedAt    string `json:"updated_at"`
}

// MacroListData is the --json payload for cockpit macros.
type MacroListData struct {
	Macros []MacroData `json:"macros"`
	Count  int         `json:"count"`
	Dir    string      `json:"dir"`
}

// MacroData summarizes one macro.
type MacroData struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Steps        int      `json:"steps"`
	Placeholders []string `json:"placeholders,omitempty"`
}

// VersionData is the --json payload for cockpit version.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}
