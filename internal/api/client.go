// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the agent orchestrator.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the orchestrator client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeUnavailable
	ErrTypeTimeout
	ErrTypeUnauthorized
	ErrTypeNotFound
	ErrTypeBusy
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrUnavailable  = &ClientError{Type: ErrTypeUnavailable, Message: "orchestrator is not reachable"}
	ErrTimeout      = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrUnauthorized = &ClientError{Type: ErrTypeUnauthorized, Message: "orchestrator rejected the API token"}
	ErrNotFound     = &ClientError{Type: ErrTypeNotFound, Message: "not found"}
	ErrBusy         = &ClientError{Type: ErrTypeBusy, Message: "orchestrator queue is not accepting work"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the orchestrator client.
type ClientConfig struct {
	// BaseURL is the orchestrator API base URL (default: http://127.0.0.1:8090)
	// Note: Uses explicit IPv4 address instead of localhost to avoid IPv6
	// resolution issues on Windows
	BaseURL string

	// Token is the bearer token sent as Authorization header. Empty means
	// unauthenticated (local development orchestrator).
	Token string

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration

	// DefaultMode used when a submission carries no chat mode (default: normal)
	DefaultMode ChatMode

	// HistoryLimit is the default page size for history queries (default: 200)
	HistoryLimit int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:      "http://127.0.0.1:8090",
		Timeout:      30 * time.Second,
		DefaultMode:  ModeNormal,
		HistoryLimit: 200,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the orchestrator API.
// It provides health checks, submissions, history queries, queue control
// and runtime management. The Client is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a new orchestrator client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new orchestrator client with custom
// configuration. Zero values are filled with defaults.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8090"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.DefaultMode == "" {
		config.DefaultMode = ModeNormal
	}
	if config.HistoryLimit == 0 {
		config.HistoryLimit = 200
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// GetConfig returns the client configuration.
func (c *Client) GetConfig() *ClientConfig {
	return c.config
}

// BaseURL returns the configured orchestrator base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnavailable, Message: "failed to create request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}
	return req, nil
}

// mapTransportErr converts transport failures to sentinel errors.
func mapTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrTimeout
	}
	return ErrUnavailable
}

// checkStatus maps HTTP error statuses to typed errors, consuming the
// orchestrator's error envelope when present.
func checkStatus(resp *http.Response, action string) error {
	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusAccepted:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return ErrBusy
	}

	var envelope apiError
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error != "" {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: envelope.Error}
	}
	return &ClientError{
		Type:    ErrTypeInvalidResponse,
		Message: action + " failed: " + resp.Status,
	}
}

// getJSON performs a GET and decodes the response body into out.
func (c *Client) getJSON(ctx context.Context, path, action string, out interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return mapTransportErr(err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, action); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// postJSON performs a POST with a JSON body and decodes the response into
// out when out is non-nil.
func (c *Client) postJSON(ctx context.Context, path, action string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		body = bytes.NewReader(raw)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return mapTransportErr(err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, action); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// =============================================================================
// HEALTH
// =============================================================================

// CheckHealth verifies that the orchestrator is reachable.
func (c *Client) CheckHealth(ctx context.Context) error {
	var out HealthResponse
	return c.getJSON(ctx, "/api/v1/health", "health check", &out)
}

// Health returns the orchestrator health payload.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.getJSON(ctx, "/api/v1/health", "health check", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Submit sends a queued-path submission and returns the server-issued
// request id. The orchestrator acknowledges before executing; progress
// arrives via the event feed and history queries.
func (c *Client) Submit(ctx context.Context, sub SubmitRequest) (*SubmitResponse, error) {
	if sub.ChatMode == "" {
		sub.ChatMode = c.config.DefaultMode
	}
	sub.Stream = false

	var out SubmitResponse
	if err := c.postJSON(ctx, "/api/v1/chat", "submit", sub, &out); err != nil {
		return nil, err
	}
	if out.RequestID == "" {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "orchestrator returned no request id"}
	}
	return &out, nil
}

// StreamCallback is called for each chunk received during streaming.
type StreamCallback func(chunk StreamChunk)

// SubmitStream sends a direct-path submission and calls the callback for
// each NDJSON chunk. The callback runs synchronously in arrival order.
// Returns when the stream completes or the context is cancelled.
func (c *Client) SubmitStream(ctx context.Context, sub SubmitRequest, callback StreamCallback) error {
	if sub.ChatMode == "" {
		sub.ChatMode = ModeDirect
	}
	sub.Stream = true

	raw, err := json.Marshal(sub)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	// Streaming uses a client without timeout; lifetime is bounded by ctx.
	streamClient := &http.Client{}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/chat", bytes.NewReader(raw))
	if err != nil {
		return err
	}

	resp, err := streamClient.Do(req)
	if err != nil {
		return mapTransportErr(err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "stream"); err != nil {
		return err
	}

	reader := NewStreamReader(resp.Body)
	return reader.Process(ctx, callback)
}

// =============================================================================
// HISTORY
// =============================================================================

// History fetches the request records for a session, newest last.
// limit <= 0 uses the configured default page size.
func (c *Client) History(ctx context.Context, sessionID string, limit int) ([]RequestRecord, error) {
	if limit <= 0 {
		limit = c.config.HistoryLimit
	}
	path := "/api/v1/history?session_id=" + url.QueryEscape(sessionID) +
		"&limit=" + strconv.Itoa(limit)

	var out HistoryResponse
	if err := c.getJSON(ctx, path, "history query", &out); err != nil {
		return nil, err
	}
	return out.Requests, nil
}

// =============================================================================
// QUEUE CONTROL
// =============================================================================

// Queue returns the current orchestrator queue status.
func (c *Client) Queue(ctx context.Context) (*QueueStatus, error) {
	var out QueueStatus
	if err := c.getJSON(ctx, "/api/v1/queue", "queue status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PauseQueue stops the orchestrator from starting new tasks. In-flight
// tasks run to completion.
func (c *Client) PauseQueue(ctx context.Context) (*QueueStatus, error) {
	var out QueueStatus
	if err := c.postJSON(ctx, "/api/v1/queue/pause", "queue pause", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResumeQueue resumes task dispatch.
func (c *Client) ResumeQueue(ctx context.Context) (*QueueStatus, error) {
	var out QueueStatus
	if err := c.postJSON(ctx, "/api/v1/queue/resume", "queue resume", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// RUNTIMES
// =============================================================================

// ListRuntimes returns the LLM runtimes the orchestrator can route to.
func (c *Client) ListRuntimes(ctx context.Context) ([]Runtime, error) {
	var out RuntimeListResponse
	if err := c.getJSON(ctx, "/api/v1/runtimes", "runtime list", &out); err != nil {
		return nil, err
	}
	return out.Runtimes, nil
}

// ActivateRuntime switches the orchestrator's active runtime.
func (c *Client) ActivateRuntime(ctx context.Context, name string) error {
	in := map[string]string{"name": name}
	return c.postJSON(ctx, "/api/v1/runtimes/activate", "runtime switch", in, nil)
}

// =============================================================================
// SESSIONS
// =============================================================================

// ListSessions returns session summaries for the resume picker,
// most recently updated first.
func (c *Client) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	var out SessionListResponse
	if err := c.getJSON(ctx, "/api/v1/sessions", "session list", &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsUnavailable checks if an error indicates the orchestrator is down.
func IsUnavailable(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeUnavailable
	}
	return errors.Is(err, ErrUnavailable)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout
	}
	return errors.Is(err, ErrTimeout)
}

// IsUnauthorized checks if an error is an authentication failure.
func IsUnauthorized(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeUnauthorized
	}
	return errors.Is(err, ErrUnauthorized)
}

// IsNotFound checks if an error is a missing-resource error.
func IsNotFound(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeNotFound
	}
	return errors.Is(err, ErrNotFound)
}
