// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager tracks the cockpit's session identity and activity state.
type Manager struct {
	mu sync.Mutex

	// Identity
	sessionID string
	bootID    string
	startTime time.Time

	// Activity tracking
	lastActivity time.Time
	warningShown bool

	// Idle warning configuration
	idleWarnAfter time.Duration

	// Cache flush configuration
	flushEnabled  bool
	flushInterval time.Duration
	lastFlush     time.Time
	isDirty       bool

	// Callbacks
	onIdleWarning func(idle time.Duration)
	onFlush       func() error
}

// Config holds configuration for the session manager.
type Config struct {
	// IdleWarnAfter is how long without operator input before the idle
	// warning shows (default: 10 minutes). Zero disables the warning.
	IdleWarnAfter time.Duration

	// FlushEnabled enables periodic session-cache flushes
	FlushEnabled bool

	// FlushInterval is how often to flush dirty state (default: 30 seconds)
	FlushInterval time.Duration
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		IdleWarnAfter: 10 * time.Minute,
		FlushEnabled:  true,
		FlushInterval: 30 * time.Second,
	}
}

// NewManager creates a session manager with a fresh session id.
func NewManager(cfg Config) *Manager {
	return NewManagerForSession(generateSessionID(), cfg)
}

// NewManagerForSession creates a session manager that joins an existing
// session. An empty id starts a fresh session instead.
func NewManagerForSession(sessionID string, cfg Config) *Manager {
	if sessionID == "" {
		sessionID = generateSessionID()
	}
	now := time.Now()
	return &Manager{
		sessionID:     sessionID,
		bootID:        generateBootID(),
		startTime:     now,
		lastActivity:  now,
		idleWarnAfter: cfg.IdleWarnAfter,
		flushEnabled:  cfg.FlushEnabled,
		flushInterval: cfg.FlushInterval,
		lastFlush:     now,
	}
}

// =============================================================================
// SESSION STATE
// =============================================================================

// SessionID returns the current session ID.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// BootID returns this process's boot ID. It never changes for the life
// of the process, even across session switches.
func (m *Manager) BootID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bootID
}

// StartTime returns when this manager started tracking.
func (m *Manager) StartTime() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startTime
}

// Duration returns how long the session has been open in this process.
func (m *Manager) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.startTime)
}

// IdleTime returns how long since last operator activity.
func (m *Manager) IdleTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Since(m.lastActivity)
}

// Switch moves the manager onto another session. The boot id stays;
// activity and dirty state reset.
func (m *Manager) Switch(sessionID string) {
	if sessionID == "" {
		sessionID = generateSessionID()
	}
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionID = sessionID
	m.startTime = now
	m.lastActivity = now
	m.lastFlush = now
	m.warningShown = false
	m.isDirty = false
}

// =============================================================================
// ACTIVITY TRACKING
// =============================================================================

// RecordActivity updates the last activity timestamp.
// This should be called on operator input.
func (m *Manager) RecordActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = time.Now()
	m.warningShown = false
}

// MarkDirty indicates there is session state the cache has not seen.
func (m *Manager) MarkDirty() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isDirty = true
}

// MarkClean indicates the cache is current.
func (m *Manager) MarkClean() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.isDirty = false
	m.lastFlush = time.Now()
}

// IsDirty returns whether there is unflushed session state.
func (m *Manager) IsDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isDirty
}

// =============================================================================
// CALLBACKS
// =============================================================================

// SetIdleWarningCallback sets the function called when the operator has
// been idle past the configured threshold.
func (m *Manager) SetIdleWarningCallback(fn func(idle time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onIdleWarning = fn
}

// SetFlushCallback sets the function called to flush dirty state.
func (m *Manager) SetFlushCallback(fn func() error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFlush = fn
}

// =============================================================================
// PERIODIC CHECKS
// =============================================================================

// ShouldWarnIdle returns true if the idle warning should be shown.
func (m *Manager) ShouldWarnIdle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.warningShown || m.idleWarnAfter <= 0 {
		return false
	}
	return time.Since(m.lastActivity) >= m.idleWarnAfter
}

// ShouldFlush returns true if a cache flush is due.
func (m *Manager) ShouldFlush() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.flushEnabled || !m.isDirty {
		return false
	}
	return time.Since(m.lastFlush) >= m.flushInterval
}

// Check evaluates session state and triggers the registered callbacks.
func (m *Manager) Check() {
	m.mu.Lock()

	shouldWarn := false
	var idle time.Duration
	if !m.warningShown && m.idleWarnAfter > 0 {
		idle = time.Since(m.lastActivity)
		if idle >= m.idleWarnAfter {
			shouldWarn = true
			m.warningShown = true
		}
	}

	shouldFlush := m.flushEnabled && m.isDirty &&
		time.Since(m.lastFlush) >= m.flushInterval

	onIdleWarning := m.onIdleWarning
	onFlush := m.onFlush
	m.mu.Unlock()

	// Execute callbacks outside lock
	if shouldWarn && onIdleWarning != nil {
		onIdleWarning(idle)
	}

	if shouldFlush && onFlush != nil {
		if err := onFlush(); err == nil {
			m.MarkClean()
		}
	}
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// TickMsg is sent periodically to check session state.
type TickMsg struct {
	Time time.Time
}

// IdleWarningMsg indicates the operator has gone quiet.
type IdleWarningMsg struct {
	Idle time.Duration
}

// FlushMsg indicates a cache flush should occur.
type FlushMsg struct{}

// TickCmd returns a command that ticks periodically.
func TickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// HandleTick processes a tick and returns appropriate messages.
func (m *Manager) HandleTick() tea.Cmd {
	var cmds []tea.Cmd

	if m.ShouldWarnIdle() {
		idle := m.IdleTime()
		cmds = append(cmds, func() tea.Msg {
			return IdleWarningMsg{Idle: idle}
		})
		m.mu.Lock()
		m.warningShown = true
		m.mu.Unlock()
	}

	if m.ShouldFlush() {
		cmds = append(cmds, func() tea.Msg {
			return FlushMsg{}
		})
	}

	// Continue ticking
	cmds = append(cmds, TickCmd())

	return tea.Batch(cmds...)
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// SetIdleWarnAfter updates the idle warning threshold.
func (m *Manager) SetIdleWarnAfter(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idleWarnAfter = d
}

// SetFlushEnabled enables or disables periodic flushes.
func (m *Manager) SetFlushEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushEnabled = enabled
}

// SetFlushInterval updates the flush interval.
func (m *Manager) SetFlushInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushInterval = d
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateSessionID creates a unique session ID.
func generateSessionID() string {
	return "sess_" + time.Now().Format("20060102_150405")
}

// generateBootID creates the per-process boot ID.
func generateBootID() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		// RELIABILITY: Timestamp fallback keeps boot ids usable when the
		// entropy source fails.
		return "boot_" + strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return "boot_" + hex.EncodeToString(b)
}

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status represents the current session status.
type Status struct {
	SessionID string
	BootID    string
	StartTime time.Time
	Duration  time.Duration
	IdleTime  time.Duration
	IsDirty   bool
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	return Status{
		SessionID: m.sessionID,
		BootID:    m.bootID,
		StartTime: m.startTime,
		Duration:  now.Sub(m.startTime),
		IdleTime:  now.Sub(m.lastActivity),
		IsDirty:   m.isDirty,
	}
}

// FormatDuration returns a human-readable duration string.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return strconv.Itoa(int(d.Seconds())) + "s"
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return strconv.Itoa(mins) + "m"
	}
	return strconv.Itoa(mins) + "m " + strconv.Itoa(secs) + "s"
}
