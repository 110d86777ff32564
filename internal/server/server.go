// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/events"
	"github.com/jeranaias/cockpit-tui/internal/logging"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultPort is the default port for the stub orchestrator.
	DefaultPort = 8090

	// MaxPromptLength is the maximum accepted prompt length.
	MaxPromptLength = 100000

	// MaxRequestBodySize caps request bodies (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// Version is the stub orchestrator version.
	Version = "0.3.0"

	// defaultHistoryLimit applies when the history query carries no limit.
	defaultHistoryLimit = 50

	// maxHistoryPerSession bounds per-session retention; older records
	// fall off the front.
	maxHistoryPerSession = 500

	// maxEventBuffer bounds the replayable event window. A feed that
	// reconnects with a cursor older than the window silently starts
	// from the window's edge.
	maxEventBuffer = 1024
)

// ============================================================================
// SERVER STATS
// ============================================================================

// ServerStats tracks stub usage counters.
type ServerStats struct {
	TotalRequests  int64     `json:"total_requests"`
	QueuedRequests int64     `json:"queued_requests"`
	DirectStreams  int64     `json:"direct_streams"`
	FailedRequests int64     `json:"failed_requests"`
	StartTime      time.Time `json:"start_time"`
	mu             sync.Mutex
}

// NewServerStats creates a new ServerStats instance.
func NewServerStats() *ServerStats {
	return &ServerStats{StartTime: time.Now()}
}

// RecordRequest counts an accepted request on either submission path.
func (s *ServerStats) RecordRequest(direct bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalRequests++
	if direct {
		s.DirectStreams++
	} else {
		s.QueuedRequests++
	}
}

// RecordFailure counts a request that finished FAILED.
func (s *ServerStats) RecordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailedRequests++
}

// GetStats returns a copy of the current counters.
func (s *ServerStats) GetStats() ServerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ServerStats{
		TotalRequests:  s.TotalRequests,
		QueuedRequests: s.QueuedRequests,
		DirectStreams:  s.DirectStreams,
		FailedRequests: s.FailedRequests,
		StartTime:      s.StartTime,
	}
}

// Uptime returns the time since the stub started.
func (s *ServerStats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// ============================================================================
// RESPONDER
// ============================================================================

// Responder produces the assistant reply for a prompt. A non-nil error
// fails the request with the error's message.
type Responder func(prompt string, mode api.ChatMode) (string, error)

// defaultResponder echoes the prompt so demo sessions have visible
// output without a backend.
func defaultResponder(prompt string, mode api.ChatMode) (string, error) {
	return fmt.Sprintf("(%s) %s", mode, prompt), nil
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the stub orchestrator: an HTTP API, a single queue worker,
// and an event feed with a bounded replay window.
type Server struct {
	port   int
	router *http.ServeMux
	server *http.Server

	stats *ServerStats
	auth  *AuthConfig

	// respond produces replies; swappable in tests and by the demo
	// command.
	respond Responder

	// stepDelay paces delta emission so output looks incremental.
	stepDelay time.Duration

	// heartbeatEvery paces per-connection feed keepalives.
	heartbeatEvery time.Duration

	mu       sync.RWMutex
	paused   bool
	active   string // request id the worker is on, "" when idle
	queue    []*api.RequestRecord
	history  map[string][]*api.RequestRecord
	runtimes []api.Runtime

	seqCounter int64
	events     []events.Event
	subs       map[chan events.Event]string // subscriber -> session filter

	wake chan struct{}
	quit chan struct{}
	wg   sync.WaitGroup

	handler     http.Handler
	handlerOnce sync.Once
	closeOnce   sync.Once
}

// NewServer creates a stub orchestrator and starts its queue worker.
// If port is 0, the default port (8090) is used. Callers must Close the
// server when done with it.
func NewServer(port int) *Server {
	if port == 0 {
		port = DefaultPort
	}

	s := &Server{
		port:           port,
		router:         http.NewServeMux(),
		stats:          NewServerStats(),
		auth:           DefaultAuthConfig(),
		respond:        defaultResponder,
		stepDelay:      40 * time.Millisecond,
		heartbeatEvery: 15 * time.Second,
		history:        make(map[string][]*api.RequestRecord),
		runtimes:       defaultRuntimes(),
		subs:           make(map[chan events.Event]string),
		wake:           make(chan struct{}, 1),
		quit:           make(chan struct{}),
	}

	s.setupRoutes()

	s.wg.Add(1)
	go s.runWorker()

	return s
}

// defaultRuntimes seeds the runtime list the stub reports.
func defaultRuntimes() []api.Runtime {
	return []api.Runtime{
		{Name: "claude-main", Provider: "anthropic", Model: "sonnet", Active: true, Healthy: true},
		{Name: "claude-fast", Provider: "anthropic", Model: "haiku", Active: false, Healthy: true},
		{Name: "local-llama", Provider: "ollama", Model: "llama3.2:3b", Active: false, Healthy: false},
	}
}

// WithResponder sets the reply function.
func (s *Server) WithResponder(fn Responder) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.respond = fn
	return s
}

// WithStepDelay sets the pacing between delta events. Zero disables
// pacing; tests use that.
func (s *Server) WithStepDelay(d time.Duration) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepDelay = d
	return s
}

// WithHeartbeatInterval sets the feed keepalive interval.
func (s *Server) WithHeartbeatInterval(d time.Duration) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heartbeatEvery = d
	return s
}

// WithAuth sets the authentication configuration. Must be called before
// the first Handler or Start call.
func (s *Server) WithAuth(config *AuthConfig) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = config
	return s
}

// Port returns the server port.
func (s *Server) Port() int {
	return s.port
}

// ============================================================================
// ROUTES
// ============================================================================

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.router.HandleFunc("POST /api/v1/chat", s.handleChat)
	s.router.HandleFunc("GET /api/v1/history", s.handleHistory)
	s.router.HandleFunc("GET /api/v1/queue", s.handleQueue)
	s.router.HandleFunc("POST /api/v1/queue/pause", s.handleQueuePause)
	s.router.HandleFunc("POST /api/v1/queue/resume", s.handleQueueResume)
	s.router.HandleFunc("GET /api/v1/runtimes", s.handleRuntimes)
	s.router.HandleFunc("POST /api/v1/runtimes/activate", s.handleRuntimeActivate)
	s.router.HandleFunc("GET /api/v1/sessions", s.handleSessions)
	s.router.HandleFunc("GET /api/v1/events", s.handleEvents)
	s.router.HandleFunc("GET /api/v1/stats", s.handleStats)
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// Handler assembles the middleware chain around the mux. The chain is
// built once; configure auth before the first call. Exported so tests
// can drive the server through httptest without a listener.
func (s *Server) Handler() http.Handler {
	s.handlerOnce.Do(func() {
		s.mu.RLock()
		auth := s.auth
		s.mu.RUnlock()

		h := Chain(
			RecoveryMiddleware(),
			LoggingMiddleware(),
			RateLimitMiddleware(DefaultRateLimiter()),
		)(s.router)
		if auth != nil && auth.Enabled {
			h = AuthMiddleware(auth)(h)
		}
		s.handler = h
	})
	return s.handler
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: the events feed holds its response open
		// indefinitely.
		IdleTimeout: 120 * time.Second,
	}

	logging.Infof("stub orchestrator listening on %s version=%s", addr, Version)
	return s.server.ListenAndServe()
}

// Shutdown stops the worker and gracefully shuts down the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Close()
	if s.server == nil {
		return nil
	}
	logging.Infof("stub orchestrator shutting down")
	return s.server.Shutdown(ctx)
}

// Close stops the queue worker and terminates open event feeds. Tests
// that drive the handler directly use Close alone.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
	})
	s.wg.Wait()
}

// ============================================================================
// STATE HELPERS
// ============================================================================

// appendRecordLocked adds a record to its session's history, trimming
// to the retention bound. Callers must hold s.mu.
func (s *Server) appendRecordLocked(rec *api.RequestRecord) {
	list := append(s.history[rec.SessionID], rec)
	if len(list) > maxHistoryPerSession {
		list = list[len(list)-maxHistoryPerSession:]
	}
	s.history[rec.SessionID] = list
}

// queueStatusLocked snapshots the queue. Callers must hold s.mu in
// either mode.
func (s *Server) queueStatusLocked() *api.QueueStatus {
	st := &api.QueueStatus{Paused: s.paused, Depth: len(s.queue)}
	if s.active != "" {
		st.Active = 1
	}
	return st
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the error envelope the client decodes.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// generateRequestID issues a server-side request id.
func generateRequestID() string {
	bytes := make([]byte, 4)
	rand.Read(bytes)
	return "req_" + hex.EncodeToString(bytes)
}
