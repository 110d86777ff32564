// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/events"
	"github.com/jeranaias/cockpit-tui/internal/logging"
	"github.com/jeranaias/cockpit-tui/internal/util"
)

// ============================================================================
// HEALTH
// ============================================================================

// handleHealth handles GET /api/v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

// ============================================================================
// CHAT
// ============================================================================

// handleChat handles POST /api/v1/chat. Requests with stream set get an
// NDJSON response on this connection; everything else is queued for the
// worker and acknowledged with 202.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req api.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds maximum size of %d bytes", MaxRequestBodySize))
			return
		}
		// Log the detail, return a generic message.
		logging.Warnf("stub chat: invalid request body: %v", err)
		s.writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	if req.SessionID == "" {
		s.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		s.writeError(w, http.StatusBadRequest, "prompt must not be empty")
		return
	}
	if len(req.Prompt) > MaxPromptLength {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("prompt exceeds maximum length of %d", MaxPromptLength))
		return
	}

	mode := req.ChatMode
	if mode == "" {
		mode = api.ModeNormal
	}
	if !api.ValidChatMode(string(mode)) {
		s.writeError(w, http.StatusBadRequest, "chat_mode must be one of direct, normal, complex")
		return
	}

	rec := &api.RequestRecord{
		RequestID: generateRequestID(),
		SessionID: req.SessionID,
		Prompt:    req.Prompt,
		Tool:      req.ForcedTool,
		Provider:  req.ForcedProvider,
		ChatMode:  mode,
		CreatedAt: time.Now().UTC(),
	}

	if req.Stream {
		s.streamChat(w, r, rec)
		return
	}
	s.enqueueChat(w, rec)
}

// enqueueChat records a PENDING request, hands it to the worker, and
// acknowledges with the server-issued id.
func (s *Server) enqueueChat(w http.ResponseWriter, rec *api.RequestRecord) {
	rec.Status = api.StatusPending

	s.mu.Lock()
	s.appendRecordLocked(rec)
	s.queue = append(s.queue, rec)
	s.publishLocked(events.Event{
		Type:      events.EventQueued,
		RequestID: rec.RequestID,
		SessionID: rec.SessionID,
		Status:    api.StatusPending,
	})
	s.publishLocked(events.Event{
		Type:  events.EventQueueChanged,
		Queue: s.queueStatusLocked(),
	})
	s.mu.Unlock()

	s.stats.RecordRequest(false)
	s.nudgeWorker()

	s.writeJSON(w, http.StatusAccepted, api.SubmitResponse{
		RequestID: rec.RequestID,
		Status:    api.StatusPending,
	})
}

// streamChat runs the responder inline and writes the reply as NDJSON
// chunks on this connection. The record still lands in history so a
// later history merge sees it.
func (s *Server) streamChat(w http.ResponseWriter, r *http.Request, rec *api.RequestRecord) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	rec.Status = api.StatusProcessing
	s.mu.Lock()
	s.appendRecordLocked(rec)
	respond := s.respond
	delay := s.stepDelay
	s.mu.Unlock()
	s.stats.RecordRequest(true)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	text, err := respond(rec.Prompt, rec.ChatMode)

	if err == nil {
		for _, piece := range chunkText(text) {
			if encErr := enc.Encode(api.StreamChunk{RequestID: rec.RequestID, Delta: piece}); encErr != nil {
				// Client went away mid-stream; the record still
				// finalizes below.
				break
			}
			flusher.Flush()

			if delay > 0 {
				select {
				case <-r.Context().Done():
				case <-s.quit:
				case <-time.After(delay):
				}
			}
		}
	}

	now := time.Now().UTC()
	final := api.StreamChunk{RequestID: rec.RequestID, Done: true}

	s.mu.Lock()
	rec.FinishedAt = &now
	if err != nil {
		rec.Status = api.StatusFailed
		rec.Error = err.Error()
		final.ErrorMsg = rec.Error
	} else {
		rec.Status = api.StatusCompleted
		rec.Response = text
	}
	s.publishLocked(events.Event{
		Type:      events.EventFinished,
		RequestID: rec.RequestID,
		SessionID: rec.SessionID,
		Status:    rec.Status,
		Response:  rec.Response,
		ErrorMsg:  rec.Error,
	})
	s.mu.Unlock()

	if err != nil {
		s.stats.RecordFailure()
	}

	if encErr := enc.Encode(final); encErr == nil {
		flusher.Flush()
	}
}

// ============================================================================
// HISTORY
// ============================================================================

// handleHistory handles GET /api/v1/history?session_id=...&limit=N.
// Records come back oldest first; limit keeps the newest N.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	sessionID := q.Get("session_id")
	if sessionID == "" {
		s.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	limit := defaultHistoryLimit
	if v := q.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxHistoryPerSession {
		limit = maxHistoryPerSession
	}

	s.mu.RLock()
	list := s.history[sessionID]
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	out := make([]api.RequestRecord, len(list))
	for i, rec := range list {
		out[i] = *rec
	}
	s.mu.RUnlock()

	s.writeJSON(w, http.StatusOK, api.HistoryResponse{
		SessionID: sessionID,
		Requests:  out,
	})
}

// ============================================================================
// QUEUE
// ============================================================================

// handleQueue handles GET /api/v1/queue.
func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	st := s.queueStatusLocked()
	s.mu.RUnlock()

	s.writeJSON(w, http.StatusOK, st)
}

// handleQueuePause handles POST /api/v1/queue/pause. Idempotent; the
// queue_changed event fires only on a transition.
func (s *Server) handleQueuePause(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if !s.paused {
		s.paused = true
		s.publishLocked(events.Event{
			Type:  events.EventQueueChanged,
			Queue: s.queueStatusLocked(),
		})
	}
	st := s.queueStatusLocked()
	s.mu.Unlock()

	logging.Infof("stub queue paused")
	s.writeJSON(w, http.StatusOK, st)
}

// handleQueueResume handles POST /api/v1/queue/resume.
func (s *Server) handleQueueResume(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.paused {
		s.paused = false
		s.publishLocked(events.Event{
			Type:  events.EventQueueChanged,
			Queue: s.queueStatusLocked(),
		})
	}
	st := s.queueStatusLocked()
	s.mu.Unlock()

	logging.Infof("stub queue resumed")
	s.nudgeWorker()
	s.writeJSON(w, http.StatusOK, st)
}

// ============================================================================
// RUNTIMES
// ============================================================================

// handleRuntimes handles GET /api/v1/runtimes.
func (s *Server) handleRuntimes(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := make([]api.Runtime, len(s.runtimes))
	copy(out, s.runtimes)
	s.mu.RUnlock()

	s.writeJSON(w, http.StatusOK, api.RuntimeListResponse{Runtimes: out})
}

// handleRuntimeActivate handles POST /api/v1/runtimes/activate.
func (s *Server) handleRuntimeActivate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}
	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	s.mu.Lock()
	found := false
	for i := range s.runtimes {
		if s.runtimes[i].Name == req.Name {
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		s.writeError(w, http.StatusNotFound, "unknown runtime: "+req.Name)
		return
	}
	for i := range s.runtimes {
		s.runtimes[i].Active = s.runtimes[i].Name == req.Name
	}
	s.publishLocked(events.Event{
		Type:    events.EventRuntimeChanged,
		Runtime: req.Name,
	})
	s.mu.Unlock()

	logging.Infof("stub runtime activated: %s", req.Name)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ============================================================================
// SESSIONS
// ============================================================================

// handleSessions handles GET /api/v1/sessions, most recently updated
// first.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	infos := make([]api.SessionInfo, 0, len(s.history))
	for id, list := range s.history {
		if len(list) == 0 {
			continue
		}
		last := list[len(list)-1]
		updated := last.CreatedAt
		if last.FinishedAt != nil {
			updated = *last.FinishedAt
		}
		infos = append(infos, api.SessionInfo{
			SessionID:    id,
			Title:        sessionTitle(list[0].Prompt),
			RequestCount: len(list),
			UpdatedAt:    updated,
		})
	}
	s.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})

	s.writeJSON(w, http.StatusOK, api.SessionListResponse{Sessions: infos})
}

// sessionTitle derives a list label from the opening prompt.
func sessionTitle(prompt string) string {
	title := strings.TrimSpace(prompt)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	return util.TruncateRunes(title, 48)
}

// ============================================================================
// EVENTS
// ============================================================================

// handleEvents handles GET /api/v1/events?session_id=...&after=N. The
// response replays buffered events past the cursor, then follows live
// ones as NDJSON until the client disconnects. Heartbeats carry the
// last sequence written on this connection.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	q := r.URL.Query()
	sessionFilter := q.Get("session_id")

	var after int64
	if v := q.Get("after"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "after must be a non-negative integer")
			return
		}
		after = parsed
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Snapshot the backlog and subscribe under one lock acquisition so
	// no event can fall between replay and follow.
	s.mu.Lock()
	var backlog []events.Event
	for _, ev := range s.events {
		if ev.Seq > after && eventVisible(ev, sessionFilter) {
			backlog = append(backlog, ev)
		}
	}
	ch := make(chan events.Event, 64)
	s.subs[ch] = sessionFilter
	heartbeatEvery := s.heartbeatEvery
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}()

	enc := json.NewEncoder(w)
	var lastWritten int64

	write := func(ev events.Event) bool {
		if err := enc.Encode(ev); err != nil {
			return false
		}
		flusher.Flush()
		if ev.Seq > lastWritten {
			lastWritten = ev.Seq
		}
		return true
	}

	for _, ev := range backlog {
		if !write(ev) {
			return
		}
	}

	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			return
		case ev := <-ch:
			if !write(ev) {
				return
			}
		case <-heartbeat.C:
			if !write(events.Event{Type: events.EventHeartbeat, Seq: lastWritten}) {
				return
			}
		}
	}
}

// ============================================================================
// STATS
// ============================================================================

// StatsResponse is the body of GET /api/v1/stats.
type StatsResponse struct {
	TotalRequests  int64 `json:"total_requests"`
	QueuedRequests int64 `json:"queued_requests"`
	DirectStreams  int64 `json:"direct_streams"`
	FailedRequests int64 `json:"failed_requests"`
	UptimeSeconds  int64 `json:"uptime_seconds"`
	QueueDepth     int   `json:"queue_depth"`
	Sessions       int   `json:"sessions"`
	EventsBuffered int   `json:"events_buffered"`
	LastSeq        int64 `json:"last_seq"`
}

// handleStats handles GET /api/v1/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.stats.GetStats()

	s.mu.RLock()
	depth := len(s.queue)
	sessions := len(s.history)
	buffered := len(s.events)
	lastSeq := s.seqCounter
	s.mu.RUnlock()

	s.writeJSON(w, http.StatusOK, StatsResponse{
		TotalRequests:  stats.TotalRequests,
		QueuedRequests: stats.QueuedRequests,
		DirectStreams:  stats.DirectStreams,
		FailedRequests: stats.FailedRequests,
		UptimeSeconds:  int64(stats.Uptime().Seconds()),
		QueueDepth:     depth,
		Sessions:       sessions,
		EventsBuffered: buffered,
		LastSeq:        lastSeq,
	})
}
