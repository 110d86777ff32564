// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/cockpit-tui/internal/api"
)

// =============================================================================
// SCHEMA
// =============================================================================

// archiveSchema creates the request archive tables.
const archiveSchema = `
-- Metadata table for schema version
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- Requests table: one row per request the cockpit saw finish
CREATE TABLE IF NOT EXISTS requests (
    request_id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    prompt TEXT,
    response TEXT,
    status TEXT NOT NULL,
    chat_mode TEXT,
    tool TEXT,
    provider TEXT,
    error TEXT,
    created_at INTEGER NOT NULL,  -- Unix milliseconds
    finished_at INTEGER,          -- Unix milliseconds
    duration_ms INTEGER,
    history_ms INTEGER,
    ttft_ms INTEGER
);

CREATE INDEX IF NOT EXISTS idx_requests_session ON requests(session_id);
CREATE INDEX IF NOT EXISTS idx_requests_created ON requests(created_at);
`

// archiveInitMetadata seeds the metadata table.
const archiveInitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
INSERT OR IGNORE INTO metadata (key, value) VALUES ('created_at', strftime('%s', 'now'));
`

// ErrArchiveClosed indicates use after Close.
var ErrArchiveClosed = errors.New("telemetry archive is closed")

// =============================================================================
// ARCHIVE
// =============================================================================

// Archive is the local SQLite store of finished requests. It backs the
// request drawer and `cockpit stats` across restarts.
type Archive struct {
	db   *sql.DB
	path string
}

// ArchivedRequest is one archived request row.
type ArchivedRequest struct {
	RequestID  string
	SessionID  string
	Prompt     string
	Response   string
	Status     api.Status
	ChatMode   string
	Tool       string
	Provider   string
	Error      string
	CreatedAt  time.Time
	FinishedAt time.Time
	DurationMs int64
	HistoryMs  *int64
	TTFTMs     *int64
}

// OpenArchive opens (creating if needed) the archive database at path.
func OpenArchive(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(archiveSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(archiveInitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &Archive{db: db, path: path}, nil
}

// Close closes the archive database.
func (a *Archive) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// =============================================================================
// WRITES
// =============================================================================

// SaveSample upserts the latency milestones for a request. Fields the
// sample does not carry are left as previously stored.
func (a *Archive) SaveSample(s Sample) error {
	if a.db == nil {
		return ErrArchiveClosed
	}

	status := s.Status
	if status == "" {
		status = string(api.StatusCompleted)
	}

	_, err := a.db.Exec(`
INSERT INTO requests (request_id, session_id, prompt, status, chat_mode, created_at, duration_ms, history_ms, ttft_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(request_id) DO UPDATE SET
    duration_ms = excluded.duration_ms,
    history_ms = COALESCE(excluded.history_ms, requests.history_ms),
    ttft_ms = COALESCE(excluded.ttft_ms, requests.ttft_ms)`,
		s.RequestID, s.SessionID, s.Prompt, status, s.ChatMode,
		s.Timestamp.UnixMilli(), s.DurationMs, optionalMs(s.HistoryMs), optionalMs(s.TTFTMs))
	return err
}

// SaveRecord upserts one orchestrator history record. Timing columns
// already written by SaveSample are preserved.
func (a *Archive) SaveRecord(rec api.RequestRecord) error {
	if a.db == nil {
		return ErrArchiveClosed
	}

	prompt := rec.Prompt
	if len(prompt) > maxPromptLen {
		prompt = prompt[:maxPromptLen] + "..."
	}
	var finished interface{}
	if rec.FinishedAt != nil {
		finished = rec.FinishedAt.UnixMilli()
	}

	_, err := a.db.Exec(`
INSERT INTO requests (request_id, session_id, prompt, response, status, chat_mode, tool, provider, error, created_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(request_id) DO UPDATE SET
    prompt = excluded.prompt,
    response = excluded.response,
    status = excluded.status,
    chat_mode = excluded.chat_mode,
    tool = excluded.tool,
    provider = excluded.provider,
    error = excluded.error,
    finished_at = excluded.finished_at`,
		rec.RequestID, rec.SessionID, prompt, rec.Response, string(rec.Status),
		string(rec.ChatMode), rec.Tool, rec.Provider, rec.Error,
		rec.CreatedAt.UnixMilli(), finished)
	return err
}

// optionalMs converts an optional milestone to a nullable column value.
func optionalMs(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// =============================================================================
// READS
// =============================================================================

// Recent returns the newest limit requests for a session, newest first.
func (a *Archive) Recent(sessionID string, limit int) ([]ArchivedRequest, error) {
	if a.db == nil {
		return nil, ErrArchiveClosed
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := a.db.Query(`
SELECT request_id, session_id, COALESCE(prompt, ''), COALESCE(response, ''), status,
       COALESCE(chat_mode, ''), COALESCE(tool, ''), COALESCE(provider, ''), COALESCE(error, ''),
       created_at, finished_at, duration_ms, history_ms, ttft_ms
FROM requests
WHERE session_id = ?
ORDER BY created_at DESC
LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArchivedRows(rows)
}

// RecentAll returns recent archived requests across all sessions.
func (a *Archive) RecentAll(limit int) ([]ArchivedRequest, error) {
	if a.db == nil {
		return nil, ErrArchiveClosed
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := a.db.Query(`
SELECT request_id, session_id, COALESCE(prompt, ''), COALESCE(response, ''), status,
       COALESCE(chat_mode, ''), COALESCE(tool, ''), COALESCE(provider, ''), COALESCE(error, ''),
       created_at, finished_at, duration_ms, history_ms, ttft_ms
FROM requests
ORDER BY created_at DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArchivedRows(rows)
}

func scanArchivedRows(rows *sql.Rows) ([]ArchivedRequest, error) {
	var out []ArchivedRequest
	for rows.Next() {
		var r ArchivedRequest
		var status string
		var createdMs int64
		var finishedMs, durationMs, historyMs, ttftMs sql.NullInt64

		if err := rows.Scan(&r.RequestID, &r.SessionID, &r.Prompt, &r.Response, &status,
			&r.ChatMode, &r.Tool, &r.Provider, &r.Error,
			&createdMs, &finishedMs, &durationMs, &historyMs, &ttftMs); err != nil {
			return nil, err
		}

		r.Status = api.Status(status)
		r.CreatedAt = time.UnixMilli(createdMs)
		if finishedMs.Valid {
			r.FinishedAt = time.UnixMilli(finishedMs.Int64)
		}
		if durationMs.Valid {
			r.DurationMs = durationMs.Int64
		}
		if historyMs.Valid {
			v := historyMs.Int64
			r.HistoryMs = &v
		}
		if ttftMs.Valid {
			v := ttftMs.Int64
			r.TTFTMs = &v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SessionStats aggregates archived durations for a session.
func (a *Archive) SessionStats(sessionID string) (Stats, error) {
	if a.db == nil {
		return Stats{}, ErrArchiveClosed
	}

	rows, err := a.db.Query(`
SELECT duration_ms, history_ms, ttft_ms
FROM requests
WHERE session_id = ? AND duration_ms IS NOT NULL
ORDER BY duration_ms`, sessionID)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()
	return aggregateStats(rows)
}

// GlobalStats aggregates archived durations across all sessions.
func (a *Archive) GlobalStats() (Stats, error) {
	if a.db == nil {
		return Stats{}, ErrArchiveClosed
	}

	rows, err := a.db.Query(`
SELECT duration_ms, history_ms, ttft_ms
FROM requests
WHERE duration_ms IS NOT NULL
ORDER BY duration_ms`)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()
	return aggregateStats(rows)
}

func aggregateStats(rows *sql.Rows) (Stats, error) {
	var durations []int64
	var ttftSum, ttftCount int64
	var histSum, histCount int64

	for rows.Next() {
		var durationMs int64
		var historyMs, ttftMs sql.NullInt64
		if err := rows.Scan(&durationMs, &historyMs, &ttftMs); err != nil {
			return Stats{}, err
		}
		durations = append(durations, durationMs)
		if ttftMs.Valid {
			ttftSum += ttftMs.Int64
			ttftCount++
		}
		if historyMs.Valid {
			histSum += historyMs.Int64
			histCount++
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	stats := computeStats(durations)
	if ttftCount > 0 {
		stats.AvgTTFTMs = ttftSum / ttftCount
	}
	if histCount > 0 {
		stats.AvgHistoryMs = histSum / histCount
	}
	return stats, nil
}

// CountRequests returns how many requests the archive holds.
func (a *Archive) CountRequests() (int, error) {
	if a.db == nil {
		return 0, ErrArchiveClosed
	}
	var n int
	err := a.db.QueryRow(`SELECT COUNT(*) FROM requests`).Scan(&n)
	return n, err
}

// DeleteBefore removes archived requests created before the cutoff.
func (a *Archive) DeleteBefore(cutoff time.Time) error {
	if a.db == nil {
		return ErrArchiveClosed
	}
	_, err := a.db.Exec(`DELETE FROM requests WHERE created_at < ?`, cutoff.UnixMilli())
	return err
}
