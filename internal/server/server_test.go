// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/events"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// newTestServer returns a stub with pacing disabled, closed at test
// cleanup.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(0).WithStepDelay(0)
	t.Cleanup(s.Close)
	return s
}

// submitQueued posts a non-streaming chat request and returns the
// server-issued request id.
func submitQueued(t *testing.T, s *Server, sessionID, prompt string) string {
	t.Helper()

	body := fmt.Sprintf(`{"session_id":%q,"prompt":%q,"chat_mode":"normal","stream":false}`, sessionID, prompt)
	req := httptest.NewRequest("POST", "/api/v1/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("chat status = %d, want %d (body %s)", w.Code, http.StatusAccepted, w.Body.String())
	}

	var resp api.SubmitResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if !strings.HasPrefix(resp.RequestID, "req_") {
		t.Fatalf("request id = %q, want req_ prefix", resp.RequestID)
	}
	return resp.RequestID
}

// getHistory fetches a session's history through the handler.
func getHistory(t *testing.T, s *Server, sessionID string, limit int) []api.RequestRecord {
	t.Helper()

	target := "/api/v1/history?session_id=" + url.QueryEscape(sessionID)
	if limit > 0 {
		target += "&limit=" + strconv.Itoa(limit)
	}
	req := httptest.NewRequest("GET", target, nil)
	w := httptest.NewRecorder()

	s.handleHistory(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp api.HistoryResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	return resp.Requests
}

// waitForRecord polls history until the request reaches a terminal
// status or the deadline passes.
func waitForRecord(t *testing.T, s *Server, sessionID, requestID string) api.RequestRecord {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, rec := range getHistory(t, s, sessionID, 0) {
			if rec.RequestID == requestID && rec.Status.IsTerminal() {
				return rec
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("request %s never reached a terminal status", requestID)
	return api.RequestRecord{}
}

// =============================================================================
// SERVER STATS TESTS
// =============================================================================

func TestNewServerStats(t *testing.T) {
	stats := NewServerStats()

	if stats == nil {
		t.Fatal("NewServerStats() returned nil")
	}
	if stats.TotalRequests != 0 {
		t.Errorf("TotalRequests = %d, want 0", stats.TotalRequests)
	}
	if stats.StartTime.IsZero() {
		t.Error("StartTime should be set")
	}
}

func TestServerStats_RecordRequest(t *testing.T) {
	stats := NewServerStats()

	stats.RecordRequest(false)
	stats.RecordRequest(false)
	stats.RecordRequest(true)
	stats.RecordFailure()

	got := stats.GetStats()
	if got.TotalRequests != 3 {
		t.Errorf("TotalRequests = %d, want 3", got.TotalRequests)
	}
	if got.QueuedRequests != 2 {
		t.Errorf("QueuedRequests = %d, want 2", got.QueuedRequests)
	}
	if got.DirectStreams != 1 {
		t.Errorf("DirectStreams = %d, want 1", got.DirectStreams)
	}
	if got.FailedRequests != 1 {
		t.Errorf("FailedRequests = %d, want 1", got.FailedRequests)
	}
}

func TestServerStats_Uptime(t *testing.T) {
	stats := NewServerStats()

	time.Sleep(10 * time.Millisecond)

	if uptime := stats.Uptime(); uptime < 10*time.Millisecond {
		t.Errorf("Uptime = %v, expected >= 10ms", uptime)
	}
}

// =============================================================================
// SERVER TESTS
// =============================================================================

func TestNewServer(t *testing.T) {
	s := newTestServer(t)

	if s.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", s.Port(), DefaultPort)
	}
}

func TestNewServer_CustomPort(t *testing.T) {
	s := NewServer(9999)
	defer s.Close()

	if s.Port() != 9999 {
		t.Errorf("Port() = %d, want 9999", s.Port())
	}
}

func TestServer_WithMethods(t *testing.T) {
	s := newTestServer(t)

	auth := &AuthConfig{Enabled: true, BearerToken: "tok"}
	got := s.WithResponder(func(prompt string, mode api.ChatMode) (string, error) {
		return "custom", nil
	}).WithStepDelay(time.Millisecond).WithHeartbeatInterval(time.Second).WithAuth(auth)

	if got != s {
		t.Error("With methods should return the same server for chaining")
	}
	if s.auth != auth {
		t.Error("WithAuth did not set the auth config")
	}
	if s.stepDelay != time.Millisecond {
		t.Errorf("stepDelay = %v, want 1ms", s.stepDelay)
	}
}

func TestConstants(t *testing.T) {
	if DefaultPort != 8090 {
		t.Errorf("DefaultPort = %d, want 8090", DefaultPort)
	}
	if MaxPromptLength != 100000 {
		t.Errorf("MaxPromptLength = %d, want 100000", MaxPromptLength)
	}
	if MaxRequestBodySize != 1024*1024 {
		t.Errorf("MaxRequestBodySize = %d, want 1MB", MaxRequestBodySize)
	}
	if Version == "" {
		t.Error("Version should not be empty")
	}
}

// =============================================================================
// HEALTH HANDLER TESTS
// =============================================================================

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()

	s.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp api.HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("Status = %q, want %q", resp.Status, "ok")
	}
	if resp.Version != Version {
		t.Errorf("Version = %q, want %q", resp.Version, Version)
	}
}

// =============================================================================
// CHAT HANDLER TESTS
// =============================================================================

func TestHandleChat_InvalidJSON(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/v1/chat", strings.NewReader(`{invalid json}`))
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleChat_MissingSession(t *testing.T) {
	s := newTestServer(t)

	body := `{"prompt": "hello"}`
	req := httptest.NewRequest("POST", "/api/v1/chat", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleChat_BlankPrompt(t *testing.T) {
	s := newTestServer(t)

	body := `{"session_id": "sess_1", "prompt": "   "}`
	req := httptest.NewRequest("POST", "/api/v1/chat", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleChat_InvalidMode(t *testing.T) {
	s := newTestServer(t)

	body := `{"session_id": "sess_1", "prompt": "hello", "chat_mode": "turbo"}`
	req := httptest.NewRequest("POST", "/api/v1/chat", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleChat_PromptTooLong(t *testing.T) {
	s := newTestServer(t)

	body := fmt.Sprintf(`{"session_id": "sess_1", "prompt": %q}`, strings.Repeat("a", MaxPromptLength+1))
	req := httptest.NewRequest("POST", "/api/v1/chat", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleChat_BodyTooLarge(t *testing.T) {
	s := newTestServer(t)

	body := fmt.Sprintf(`{"session_id": "sess_1", "prompt": %q}`, strings.Repeat("a", MaxRequestBodySize))
	req := httptest.NewRequest("POST", "/api/v1/chat", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestHandleChat_QueuedLifecycle(t *testing.T) {
	s := newTestServer(t)

	reqID := submitQueued(t, s, "sess_q", "summarize the incident")
	rec := waitForRecord(t, s, "sess_q", reqID)

	if rec.Status != api.StatusCompleted {
		t.Errorf("Status = %s, want %s", rec.Status, api.StatusCompleted)
	}
	want := "(normal) summarize the incident"
	if rec.Response != want {
		t.Errorf("Response = %q, want %q", rec.Response, want)
	}
	if rec.FinishedAt == nil {
		t.Error("FinishedAt should be set on a terminal record")
	}
	if rec.ChatMode != api.ModeNormal {
		t.Errorf("ChatMode = %q, want %q", rec.ChatMode, api.ModeNormal)
	}
}

func TestHandleChat_ResponderFailure(t *testing.T) {
	s := newTestServer(t)
	s.WithResponder(func(prompt string, mode api.ChatMode) (string, error) {
		return "", fmt.Errorf("runtime exploded")
	})

	reqID := submitQueued(t, s, "sess_fail", "doomed request")
	rec := waitForRecord(t, s, "sess_fail", reqID)

	if rec.Status != api.StatusFailed {
		t.Errorf("Status = %s, want %s", rec.Status, api.StatusFailed)
	}
	if rec.Error != "runtime exploded" {
		t.Errorf("Error = %q, want %q", rec.Error, "runtime exploded")
	}

	stats := s.stats.GetStats()
	if stats.FailedRequests != 1 {
		t.Errorf("FailedRequests = %d, want 1", stats.FailedRequests)
	}
}

func TestHandleChat_DirectStream(t *testing.T) {
	s := newTestServer(t)

	body := `{"session_id": "sess_ds", "prompt": "stream me please", "chat_mode": "direct", "stream": true}`
	req := httptest.NewRequest("POST", "/api/v1/chat", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("Content-Type = %q, want application/x-ndjson", ct)
	}

	var deltas strings.Builder
	var done bool
	dec := json.NewDecoder(w.Body)
	for {
		var chunk api.StreamChunk
		if err := dec.Decode(&chunk); err != nil {
			break
		}
		if !strings.HasPrefix(chunk.RequestID, "req_") {
			t.Errorf("chunk request id = %q, want req_ prefix", chunk.RequestID)
		}
		deltas.WriteString(chunk.Delta)
		if chunk.Done {
			done = true
			break
		}
	}

	want := "(direct) stream me please"
	if deltas.String() != want {
		t.Errorf("delta concat = %q, want %q", deltas.String(), want)
	}
	if !done {
		t.Error("stream never sent a done chunk")
	}

	recs := getHistory(t, s, "sess_ds", 0)
	if len(recs) != 1 {
		t.Fatalf("history length = %d, want 1", len(recs))
	}
	if recs[0].Status != api.StatusCompleted {
		t.Errorf("record status = %s, want %s", recs[0].Status, api.StatusCompleted)
	}
	if recs[0].Response != want {
		t.Errorf("record response = %q, want %q", recs[0].Response, want)
	}
}

func TestHandleChat_DirectStreamFailure(t *testing.T) {
	s := newTestServer(t)
	s.WithResponder(func(prompt string, mode api.ChatMode) (string, error) {
		return "", fmt.Errorf("no runtime available")
	})

	body := `{"session_id": "sess_dsf", "prompt": "doomed", "stream": true}`
	req := httptest.NewRequest("POST", "/api/v1/chat", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleChat(w, req)

	var sawError string
	dec := json.NewDecoder(w.Body)
	for {
		var chunk api.StreamChunk
		if err := dec.Decode(&chunk); err != nil {
			break
		}
		if chunk.Done {
			sawError = chunk.ErrorMsg
			break
		}
	}
	if sawError != "no runtime available" {
		t.Errorf("done chunk error = %q, want %q", sawError, "no runtime available")
	}

	recs := getHistory(t, s, "sess_dsf", 0)
	if len(recs) != 1 || recs[0].Status != api.StatusFailed {
		t.Fatalf("expected one FAILED record, got %+v", recs)
	}
}

// =============================================================================
// HISTORY HANDLER TESTS
// =============================================================================

func TestHandleHistory_MissingSession(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/history", nil)
	w := httptest.NewRecorder()

	s.handleHistory(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleHistory_BadLimit(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/history?session_id=sess_1&limit=zero", nil)
	w := httptest.NewRecorder()

	s.handleHistory(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleHistory_UnknownSessionEmpty(t *testing.T) {
	s := newTestServer(t)

	recs := getHistory(t, s, "sess_ghost", 0)
	if len(recs) != 0 {
		t.Errorf("history length = %d, want 0", len(recs))
	}
}

func TestHandleHistory_LimitKeepsNewest(t *testing.T) {
	s := newTestServer(t)

	var ids []string
	for i := 0; i < 4; i++ {
		ids = append(ids, submitQueued(t, s, "sess_lim", fmt.Sprintf("request %d", i)))
	}
	waitForRecord(t, s, "sess_lim", ids[3])

	recs := getHistory(t, s, "sess_lim", 2)
	if len(recs) != 2 {
		t.Fatalf("history length = %d, want 2", len(recs))
	}
	if recs[0].RequestID != ids[2] || recs[1].RequestID != ids[3] {
		t.Errorf("limit kept %s,%s, want the newest two %s,%s",
			recs[0].RequestID, recs[1].RequestID, ids[2], ids[3])
	}
}

// =============================================================================
// QUEUE HANDLER TESTS
// =============================================================================

func TestHandleQueue_PauseHoldsWork(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.handleQueuePause(w, httptest.NewRequest("POST", "/api/v1/queue/pause", nil))

	var st api.QueueStatus
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatalf("decode pause response: %v", err)
	}
	if !st.Paused {
		t.Error("queue should report paused")
	}

	reqID := submitQueued(t, s, "sess_pause", "held request")

	// The worker must not touch the request while paused.
	time.Sleep(50 * time.Millisecond)
	recs := getHistory(t, s, "sess_pause", 0)
	if len(recs) != 1 || recs[0].Status != api.StatusPending {
		t.Fatalf("paused record = %+v, want PENDING", recs)
	}

	w = httptest.NewRecorder()
	s.handleQueue(w, httptest.NewRequest("GET", "/api/v1/queue", nil))
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatalf("decode queue response: %v", err)
	}
	if st.Depth != 1 {
		t.Errorf("Depth = %d, want 1", st.Depth)
	}

	w = httptest.NewRecorder()
	s.handleQueueResume(w, httptest.NewRequest("POST", "/api/v1/queue/resume", nil))
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatalf("decode resume response: %v", err)
	}
	if st.Paused {
		t.Error("queue should report resumed")
	}

	rec := waitForRecord(t, s, "sess_pause", reqID)
	if rec.Status != api.StatusCompleted {
		t.Errorf("Status after resume = %s, want %s", rec.Status, api.StatusCompleted)
	}
}

// =============================================================================
// RUNTIME HANDLER TESTS
// =============================================================================

func TestHandleRuntimes(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/runtimes", nil)
	w := httptest.NewRecorder()

	s.handleRuntimes(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp api.RuntimeListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Runtimes) == 0 {
		t.Fatal("expected at least one runtime")
	}

	var activeCount int
	for _, rt := range resp.Runtimes {
		if rt.Active {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Errorf("active runtimes = %d, want exactly 1", activeCount)
	}
}

func TestHandleRuntimeActivate(t *testing.T) {
	s := newTestServer(t)

	body := `{"name": "claude-fast"}`
	req := httptest.NewRequest("POST", "/api/v1/runtimes/activate", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleRuntimeActivate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	w = httptest.NewRecorder()
	s.handleRuntimes(w, httptest.NewRequest("GET", "/api/v1/runtimes", nil))

	var resp api.RuntimeListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	for _, rt := range resp.Runtimes {
		if rt.Name == "claude-fast" && !rt.Active {
			t.Error("claude-fast should be active after activation")
		}
		if rt.Name == "claude-main" && rt.Active {
			t.Error("claude-main should be inactive after switching away")
		}
	}
}

func TestHandleRuntimeActivate_Unknown(t *testing.T) {
	s := newTestServer(t)

	body := `{"name": "gpt-zero"}`
	req := httptest.NewRequest("POST", "/api/v1/runtimes/activate", strings.NewReader(body))
	w := httptest.NewRecorder()

	s.handleRuntimeActivate(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleRuntimeActivate_MissingName(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/v1/runtimes/activate", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	s.handleRuntimeActivate(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// =============================================================================
// SESSION HANDLER TESTS
// =============================================================================

func TestHandleSessions_SortedByRecency(t *testing.T) {
	s := newTestServer(t)

	first := submitQueued(t, s, "sess_old", "older session opener")
	waitForRecord(t, s, "sess_old", first)

	time.Sleep(10 * time.Millisecond)

	second := submitQueued(t, s, "sess_new", "newer session opener")
	waitForRecord(t, s, "sess_new", second)

	req := httptest.NewRequest("GET", "/api/v1/sessions", nil)
	w := httptest.NewRecorder()

	s.handleSessions(w, req)

	var resp api.SessionListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(resp.Sessions))
	}
	if resp.Sessions[0].SessionID != "sess_new" {
		t.Errorf("first session = %s, want sess_new", resp.Sessions[0].SessionID)
	}
	if resp.Sessions[0].Title != "newer session opener" {
		t.Errorf("title = %q, want the opening prompt", resp.Sessions[0].Title)
	}
	if resp.Sessions[0].RequestCount != 1 {
		t.Errorf("request count = %d, want 1", resp.Sessions[0].RequestCount)
	}
	if resp.Sessions[0].UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}
}

func TestSessionTitle(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"fix the login bug", "fix the login bug"},
		{"  padded  ", "padded"},
		{"first line\nsecond line", "first line"},
		{strings.Repeat("x", 60), strings.Repeat("x", 45) + "..."},
	}

	for _, tt := range tests {
		if got := sessionTitle(tt.input); got != tt.want {
			t.Errorf("sessionTitle(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// =============================================================================
// EVENTS FEED TESTS
// =============================================================================

// readFeed opens the events feed against a live test server and pipes
// decoded events to a channel until the connection drops.
func readFeed(t *testing.T, ctx context.Context, ts *httptest.Server, query string) <-chan events.Event {
	t.Helper()

	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/api/v1/events?"+query, nil)
	if err != nil {
		t.Fatalf("build feed request: %v", err)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("open feed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("feed status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	lines := make(chan events.Event, 64)
	go func() {
		defer resp.Body.Close()
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			var ev events.Event
			if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
				continue
			}
			lines <- ev
		}
	}()
	return lines
}

// collectUntilFinished drains feed events until the first terminal one.
func collectUntilFinished(t *testing.T, lines <-chan events.Event) []events.Event {
	t.Helper()

	var got []events.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-lines:
			if !ok {
				t.Fatalf("feed closed before the terminal event; got %d events", len(got))
			}
			got = append(got, ev)
			if ev.Type == events.EventFinished {
				return got
			}
		case <-timeout:
			t.Fatalf("timed out waiting for the terminal event; got %d events", len(got))
		}
	}
}

func TestEventsFeed_QueuedLifecycle(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lines := readFeed(t, ctx, ts, "session_id=sess_feed&after=0")

	body := `{"session_id": "sess_feed", "prompt": "walk the full lifecycle", "stream": false}`
	resp, err := ts.Client().Post(ts.URL+"/api/v1/chat", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}

	got := collectUntilFinished(t, lines)

	if got[0].Type != events.EventQueued {
		t.Errorf("first event = %s, want %s", got[0].Type, events.EventQueued)
	}

	var sawStarted bool
	var deltas strings.Builder
	var lastSeq int64
	for _, ev := range got {
		if ev.Seq <= lastSeq {
			t.Errorf("seq %d not increasing (previous %d)", ev.Seq, lastSeq)
		}
		lastSeq = ev.Seq
		switch ev.Type {
		case events.EventStarted:
			sawStarted = true
		case events.EventDelta:
			deltas.WriteString(ev.Delta)
		}
	}
	if !sawStarted {
		t.Error("feed never announced request_started")
	}

	final := got[len(got)-1]
	if final.Status != api.StatusCompleted {
		t.Errorf("final status = %s, want %s", final.Status, api.StatusCompleted)
	}
	want := "(normal) walk the full lifecycle"
	if final.Response != want {
		t.Errorf("final response = %q, want %q", final.Response, want)
	}
	if deltas.String() != want {
		t.Errorf("delta concat = %q, want %q", deltas.String(), want)
	}
}

func TestEventsFeed_ReplayAndCursor(t *testing.T) {
	s := newTestServer(t)

	first := submitQueued(t, s, "sess_replay", "already finished")
	waitForRecord(t, s, "sess_replay", first)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	// A fresh consumer replays the whole window.
	ctx1, cancel1 := context.WithCancel(context.Background())
	replay := collectUntilFinished(t, readFeed(t, ctx1, ts, "session_id=sess_replay&after=0"))
	cancel1()

	if replay[0].Type != events.EventQueued {
		t.Errorf("replay first event = %s, want %s", replay[0].Type, events.EventQueued)
	}
	cursor := replay[len(replay)-1].Seq
	if cursor == 0 {
		t.Fatal("terminal event should carry a sequence number")
	}

	// Reconnecting past the cursor sees only new activity.
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	lines := readFeed(t, ctx2, ts, fmt.Sprintf("session_id=sess_replay&after=%d", cursor))

	second := submitQueued(t, s, "sess_replay", "fresh request")
	got := collectUntilFinished(t, lines)

	for _, ev := range got {
		if ev.Seq <= cursor {
			t.Errorf("event seq %d should be past cursor %d", ev.Seq, cursor)
		}
		if ev.RequestID == first {
			t.Errorf("replayed event for %s despite cursor", first)
		}
	}
	if final := got[len(got)-1]; final.RequestID != second {
		t.Errorf("final event request = %s, want %s", final.RequestID, second)
	}
}

func TestEventsFeed_SessionFilter(t *testing.T) {
	s := newTestServer(t)

	target := submitQueued(t, s, "sess_mine", "watched session")
	waitForRecord(t, s, "sess_mine", target)
	other := submitQueued(t, s, "sess_other", "unwatched session")
	waitForRecord(t, s, "sess_other", other)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := collectUntilFinished(t, readFeed(t, ctx, ts, "session_id=sess_mine&after=0"))

	for _, ev := range got {
		if ev.SessionID == "sess_other" {
			t.Errorf("feed leaked event for sess_other: %+v", ev)
		}
	}
	if final := got[len(got)-1]; final.RequestID != target {
		t.Errorf("final event request = %s, want %s", final.RequestID, target)
	}
}

func TestEventVisible(t *testing.T) {
	tests := []struct {
		name    string
		event   events.Event
		filter  string
		visible bool
	}{
		{"no filter sees all", events.Event{SessionID: "sess_a"}, "", true},
		{"matching session", events.Event{SessionID: "sess_a"}, "sess_a", true},
		{"other session hidden", events.Event{SessionID: "sess_b"}, "sess_a", false},
		{"global event broadcast", events.Event{Type: events.EventQueueChanged}, "sess_a", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := eventVisible(tt.event, tt.filter); got != tt.visible {
				t.Errorf("eventVisible() = %v, want %v", got, tt.visible)
			}
		})
	}
}

func TestHandleEvents_BadCursor(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/events?after=banana", nil)
	w := httptest.NewRecorder()

	s.handleEvents(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// =============================================================================
// STATS HANDLER TESTS
// =============================================================================

func TestHandleStats(t *testing.T) {
	s := newTestServer(t)

	reqID := submitQueued(t, s, "sess_stats", "count me")
	waitForRecord(t, s, "sess_stats", reqID)

	req := httptest.NewRequest("GET", "/api/v1/stats", nil)
	w := httptest.NewRecorder()

	s.handleStats(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp StatsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.TotalRequests != 1 {
		t.Errorf("TotalRequests = %d, want 1", resp.TotalRequests)
	}
	if resp.QueuedRequests != 1 {
		t.Errorf("QueuedRequests = %d, want 1", resp.QueuedRequests)
	}
	if resp.Sessions != 1 {
		t.Errorf("Sessions = %d, want 1", resp.Sessions)
	}
	if resp.LastSeq == 0 {
		t.Error("LastSeq should advance after a request lifecycle")
	}
}

// =============================================================================
// MIDDLEWARE TESTS
// =============================================================================

func TestValidateBearerToken(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		expected string
		want     bool
	}{
		{"matching tokens", "secret", "secret", true},
		{"mismatched tokens", "wrong", "secret", false},
		{"empty provided", "", "secret", false},
		{"empty expected", "secret", "", false},
		{"both empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateBearerToken(tt.token, tt.expected); got != tt.want {
				t.Errorf("ValidateBearerToken() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("disabled passes through", func(t *testing.T) {
		handler := AuthMiddleware(DefaultAuthConfig())(inner)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/health", nil))
		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("missing header rejected", func(t *testing.T) {
		handler := AuthMiddleware(&AuthConfig{Enabled: true, BearerToken: "secret"})(inner)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/health", nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("wrong token rejected", func(t *testing.T) {
		handler := AuthMiddleware(&AuthConfig{Enabled: true, BearerToken: "secret"})(inner)
		req := httptest.NewRequest("GET", "/api/v1/health", nil)
		req.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("valid token passes", func(t *testing.T) {
		handler := AuthMiddleware(&AuthConfig{Enabled: true, BearerToken: "secret"})(inner)
		req := httptest.NewRequest("GET", "/api/v1/health", nil)
		req.Header.Set("Authorization", "Bearer secret")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}
	})
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(60, 2)

	if !rl.Allow("10.0.0.1") {
		t.Error("first request should pass")
	}
	if !rl.Allow("10.0.0.1") {
		t.Error("second request should pass within burst")
	}
	if rl.Allow("10.0.0.1") {
		t.Error("third request should exhaust the burst")
	}

	// Another IP gets its own bucket.
	if !rl.Allow("10.0.0.2") {
		t.Error("a different ip should pass")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimitMiddleware(NewRateLimiter(60, 1))(inner)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	req.RemoteAddr = "203.0.113.9:4000"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want %d", w.Code, http.StatusOK)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("429 response should carry Retry-After")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler blew up")
	})
	handler := RecoveryMiddleware()(inner)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/health", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(mw("a"), mw("b"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "inner")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	want := []string{"a", "b", "inner"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestResponseWriter_FlushPassthrough(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := newResponseWriter(rec)

	flusher, ok := interface{}(wrapped).(http.Flusher)
	if !ok {
		t.Fatal("wrapped response writer should implement http.Flusher")
	}
	flusher.Flush()

	if !rec.Flushed {
		t.Error("flush should pass through to the underlying writer")
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"direct connection", "203.0.113.7:9999", "", "", "203.0.113.7"},
		{"xff ignored from remote peer", "203.0.113.7:9999", "198.51.100.2", "", "203.0.113.7"},
		{"xff honored from loopback", "127.0.0.1:5000", "198.51.100.2, 10.0.0.1", "", "198.51.100.2"},
		{"x-real-ip honored from loopback", "127.0.0.1:5000", "", "198.51.100.3", "198.51.100.3"},
		{"invalid xff falls back", "127.0.0.1:5000", "not-an-ip", "", "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := GetClientIP(req); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

// =============================================================================
// HELPER TESTS
// =============================================================================

func TestGenerateRequestID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateRequestID()
		if !strings.HasPrefix(id, "req_") {
			t.Fatalf("id = %q, want req_ prefix", id)
		}
		if len(id) != len("req_")+8 {
			t.Fatalf("id length = %d, want %d", len(id), len("req_")+8)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestChunkText(t *testing.T) {
	if got := chunkText(""); len(got) != 0 {
		t.Errorf("chunkText(\"\") = %v, want empty", got)
	}

	if got := chunkText("short"); len(got) != 1 || got[0] != "short" {
		t.Errorf("chunkText(short) = %v, want one chunk", got)
	}

	long := strings.Repeat("abcdefgh", 10) // 80 runes
	chunks := chunkText(long)
	if len(chunks) != 4 {
		t.Errorf("chunk count = %d, want 4", len(chunks))
	}
	if strings.Join(chunks, "") != long {
		t.Error("chunks should reassemble to the original text")
	}

	cjk := strings.Repeat("日本語", 10) // 30 runes
	chunks = chunkText(cjk)
	if strings.Join(chunks, "") != cjk {
		t.Error("rune-based chunking should not split multi-byte characters")
	}
}
