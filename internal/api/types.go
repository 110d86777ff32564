// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the agent orchestrator.
package api

import "time"

// =============================================================================
// REQUEST STATUS
// =============================================================================

// Status is the orchestrator-side lifecycle state of a request.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusLost       Status = "LOST"
)

// IsTerminal reports whether the status will never change again.
// LOST means the orchestrator restarted while the request was in flight.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusLost:
		return true
	}
	return false
}

// ChatMode selects the orchestrator's planning depth for a submission.
type ChatMode string

const (
	ModeDirect  ChatMode = "direct"
	ModeNormal  ChatMode = "normal"
	ModeComplex ChatMode = "complex"
)

// ValidChatMode reports whether s names a known chat mode.
func ValidChatMode(s string) bool {
	switch ChatMode(s) {
	case ModeDirect, ModeNormal, ModeComplex:
		return true
	}
	return false
}

// =============================================================================
// SUBMISSION
// =============================================================================

// SubmitRequest is the body of POST /api/v1/chat.
type SubmitRequest struct {
	SessionID      string   `json:"session_id"`
	Prompt         string   `json:"prompt"`
	ChatMode       ChatMode `json:"chat_mode,omitempty"`
	ForcedTool     string   `json:"forced_tool,omitempty"`
	ForcedProvider string   `json:"forced_provider,omitempty"`
	Stream         bool     `json:"stream"`
}

// SubmitResponse is the queued-path acknowledgement carrying the
// server-issued request id.
type SubmitResponse struct {
	RequestID string `json:"request_id"`
	Status    Status `json:"status"`
}

// =============================================================================
// HISTORY
// =============================================================================

// RequestRecord is one request as the orchestrator remembers it. It is
// the unit the history endpoint returns and the tracker prunes against.
type RequestRecord struct {
	RequestID  string     `json:"request_id"`
	SessionID  string     `json:"session_id"`
	Status     Status     `json:"status"`
	Prompt     string     `json:"prompt"`
	Response   string     `json:"response,omitempty"`
	Error      string     `json:"error,omitempty"`
	Tool       string     `json:"tool,omitempty"`
	Provider   string     `json:"provider,omitempty"`
	ChatMode   ChatMode   `json:"chat_mode,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// HistoryResponse is the body of GET /api/v1/history.
type HistoryResponse struct {
	SessionID string          `json:"session_id"`
	Requests  []RequestRecord `json:"requests"`
}

// =============================================================================
// QUEUE
// =============================================================================

// QueueStatus describes the orchestrator's task queue.
type QueueStatus struct {
	Paused bool `json:"paused"`
	Depth  int  `json:"depth"`
	Active int  `json:"active"`
}

// =============================================================================
// RUNTIMES
// =============================================================================

// Runtime is one LLM runtime the orchestrator can route to.
type Runtime struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Active   bool   `json:"active"`
	Healthy  bool   `json:"healthy"`
}

// RuntimeListResponse is the body of GET /api/v1/runtimes.
type RuntimeListResponse struct {
	Runtimes []Runtime `json:"runtimes"`
}

// =============================================================================
// SESSIONS
// =============================================================================

// SessionInfo is a session summary for the resume picker.
type SessionInfo struct {
	SessionID    string    `json:"session_id"`
	Title        string    `json:"title"`
	RequestCount int       `json:"request_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SessionListResponse is the body of GET /api/v1/sessions.
type SessionListResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

// =============================================================================
// STREAM CHUNKS
// =============================================================================

// StreamChunk is one line of a direct-path NDJSON response.
type StreamChunk struct {
	RequestID string `json:"request_id,omitempty"`
	Delta     string `json:"delta,omitempty"`
	Done      bool   `json:"done,omitempty"`
	ErrorMsg  string `json:"error,omitempty"`

	// Error carries client-side stream failures to callbacks; it is never
	// populated from the wire.
	Error error `json:"-"`
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// apiError is the orchestrator's error envelope.
type apiError struct {
	Error string `json:"error"`
}
