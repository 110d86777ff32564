// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history turns orchestrator request records into the message
// list the cockpit displays.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jeranaias/cockpit-tui/internal/logging"
	"github.com/jeranaias/cockpit-tui/internal/util"
)

// CacheTail is how many merged entries the session cache keeps.
const CacheTail = 200

// =============================================================================
// KV CAPABILITY
// =============================================================================

// Cache is the key-value capability the session cache writes through.
// Implementations are best-effort: a failed Set is silently dropped and
// a missing or unreadable key reads as absent.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Remove(key string)
}

// MemCache is an in-memory Cache for tests and ephemeral sessions.
type MemCache struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemCache creates an empty in-memory cache.
func NewMemCache() *MemCache {
	return &MemCache{data: make(map[string][]byte)}
}

func (m *MemCache) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

func (m *MemCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
}

func (m *MemCache) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

// FileCache stores one file per key under a directory, with atomic
// writes. Keys are sanitized into filenames; write failures are logged
// at debug and otherwise swallowed.
type FileCache struct {
	dir string
}

// NewFileCache creates a file-backed cache rooted at dir.
func NewFileCache(dir string) *FileCache {
	return &FileCache{dir: dir}
}

func (f *FileCache) path(key string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, key)
	return filepath.Join(f.dir, safe+".json")
}

func (f *FileCache) Get(key string) ([]byte, bool) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

func (f *FileCache) Set(key string, value []byte) {
	if err := util.AtomicWriteFileWithDir(f.path(key), value, 0600, 0700); err != nil {
		logging.Debugf("session cache write failed: %v", err)
	}
}

func (f *FileCache) Remove(key string) {
	os.Remove(f.path(key))
}

// =============================================================================
// SESSION CACHE
// =============================================================================

// CacheKey builds the storage key for one session in one cockpit
// process. The boot id isolates concurrent cockpits watching the same
// session from each other's cache writes.
func CacheKey(sessionID, bootID string) string {
	return sessionID + ":" + bootID
}

// SessionCache persists the merged history tail so a reloaded cockpit
// paints the conversation before the first fetch returns.
type SessionCache struct {
	kv Cache
}

// NewSessionCache wraps a KV capability.
func NewSessionCache(kv Cache) *SessionCache {
	return &SessionCache{kv: kv}
}

// Load returns the cached entries for a session, or nil when the cache
// is missing or corrupt. Corruption is not an error; the cache is a
// warm-start hint, never a source of truth.
func (c *SessionCache) Load(sessionID, bootID string) []Entry {
	raw, ok := c.kv.Get(CacheKey(sessionID, bootID))
	if !ok {
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		logging.Debugf("session cache corrupt, starting empty: %v", err)
		return nil
	}
	return entries
}

// Store writes the tail of entries (most recent CacheTail) for the
// session. Failures are swallowed by the underlying cache.
func (c *SessionCache) Store(sessionID, bootID string, entries []Entry) {
	if len(entries) > CacheTail {
		entries = entries[len(entries)-CacheTail:]
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		logging.Debugf("session cache encode failed: %v", err)
		return
	}
	c.kv.Set(CacheKey(sessionID, bootID), raw)
}

// Clear removes the cached tail for the session.
func (c *SessionCache) Clear(sessionID, bootID string) {
	c.kv.Remove(CacheKey(sessionID, bootID))
}
