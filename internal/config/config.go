// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/cockpit-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete cockpit configuration.
type Config struct {
	// General settings
	Version string `toml:"version" json:"version"`

	// Orchestrator connection configuration
	Orchestrator OrchestratorConfig `toml:"orchestrator" json:"orchestrator"`

	// Session lifecycle configuration
	Session SessionConfig `toml:"session" json:"session"`

	// Queue board configuration
	Queue QueueConfig `toml:"queue" json:"queue"`

	// Event feed configuration
	Events EventsConfig `toml:"events" json:"events"`

	// Telemetry configuration
	Telemetry TelemetryConfig `toml:"telemetry" json:"telemetry"`

	// Macro configuration
	Macros MacrosConfig `toml:"macros" json:"macros"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// OrchestratorConfig contains the orchestrator connection settings.
type OrchestratorConfig struct {
	// URL is the base URL of the orchestrator API
	URL string `toml:"url" json:"url"`
	// Token is the bearer token for orchestrator auth. Prefer the
	// encrypted keystore; this field exists for unattended setups.
	Token string `toml:"token" json:"token"`
	// TimeoutSecs is the request timeout in seconds for non-streaming calls
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// HistoryLimit is how many history records to request per fetch
	HistoryLimit int `toml:"history_limit" json:"history_limit"`
	// DefaultMode is the default chat mode: "direct", "normal", "complex"
	// "direct": bypass the queue, orchestrator answers inline
	// "normal" (default): queued single-agent handling
	// "complex": queued multi-step agent handling
	DefaultMode string `toml:"default_mode" json:"default_mode"`
}

// SessionConfig contains session lifecycle settings.
type SessionConfig struct {
	// IdleWarnMinutes is how long without activity before the UI shows
	// an idle warning. 0 disables the warning.
	IdleWarnMinutes int `toml:"idle_warn_minutes" json:"idle_warn_minutes"`
	// FlushIntervalSecs is how often dirty session state is flushed to
	// the cache. 0 disables periodic flushing.
	FlushIntervalSecs int `toml:"flush_interval_secs" json:"flush_interval_secs"`
	// CacheTail is how many chat messages the session cache keeps
	CacheTail int `toml:"cache_tail" json:"cache_tail"`
}

// QueueConfig contains queue board settings.
type QueueConfig struct {
	// MaxHistory is how many terminal tasks the board retains
	MaxHistory int `toml:"max_history" json:"max_history"`
	// Notifications enables status change notices in the status bar
	Notifications bool `toml:"notifications" json:"notifications"`
}

// EventsConfig contains event feed settings.
type EventsConfig struct {
	// Enabled controls whether the live event feed is used at all.
	// When false the UI falls back to polling.
	Enabled bool `toml:"enabled" json:"enabled"`
	// MaxReconnects is how many consecutive failed reconnects are
	// attempted before falling back to polling
	MaxReconnects int `toml:"max_reconnects" json:"max_reconnects"`
	// PollFallbackSecs is the poll interval used when the feed is
	// disabled or exhausted
	PollFallbackSecs int `toml:"poll_fallback_secs" json:"poll_fallback_secs"`
}

// TelemetryConfig contains latency telemetry settings.
type TelemetryConfig struct {
	// Enabled controls whether latency samples are collected
	Enabled bool `toml:"enabled" json:"enabled"`
	// ArchiveEnabled controls whether samples are persisted to SQLite
	ArchiveEnabled bool `toml:"archive_enabled" json:"archive_enabled"`
	// ArchivePath is the archive database path (empty = default ~/.cockpit/archive.db)
	ArchivePath string `toml:"archive_path" json:"archive_path"`
	// RetentionDays is how long archived requests are kept. 0 keeps forever.
	RetentionDays int `toml:"retention_days" json:"retention_days"`
}

// MacrosConfig contains macro settings.
type MacrosConfig struct {
	// Dir is the macro template directory (empty = default ~/.cockpit/macros)
	Dir string `toml:"dir" json:"dir"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// SyntaxTheme is the code highlighting style (chroma style name)
	SyntaxTheme string `toml:"syntax_theme" json:"syntax_theme"`
	// CompactMode uses a more compact UI layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
	// VimMode enables vim-style modal editing
	VimMode bool `toml:"vim_mode" json:"vim_mode"`
	// ShowLatency displays per-request latency in the transcript
	ShowLatency bool `toml:"show_latency" json:"show_latency"`
	// GraceFloorMs is the minimum settle window for optimistic messages
	// after their request finishes
	GraceFloorMs int `toml:"grace_floor_ms" json:"grace_floor_ms"`
	// GraceCeilingMs is the maximum settle window for optimistic messages
	GraceCeilingMs int `toml:"grace_ceiling_ms" json:"grace_ceiling_ms"`
	// StreamFPS caps transcript redraws while a response is streaming
	StreamFPS int `toml:"stream_fps" json:"stream_fps"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Orchestrator: OrchestratorConfig{
			URL:          "http://127.0.0.1:8090",
			Token:        "",
			TimeoutSecs:  30,
			HistoryLimit: 200,
			DefaultMode:  "normal",
		},

		Session: SessionConfig{
			IdleWarnMinutes:   10,
			FlushIntervalSecs: 30,
			CacheTail:         200,
		},

		Queue: QueueConfig{
			MaxHistory:    50,
			Notifications: true,
		},

		Events: EventsConfig{
			Enabled:          true,
			MaxReconnects:    5,
			PollFallbackSecs: 3,
		},

		Telemetry: TelemetryConfig{
			Enabled:        true,
			ArchiveEnabled: true,
			ArchivePath:    "",
			RetentionDays:  30,
		},

		Macros: MacrosConfig{
			Dir: "",
		},

		UI: UIConfig{
			Theme:          "dark",
			SyntaxTheme:    "monokai",
			CompactMode:    false,
			VimMode:        false,
			ShowLatency:    true,
			GraceFloorMs:   300,
			GraceCeilingMs: 1200,
			StreamFPS:      30,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the cockpit configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".cockpit"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) to protect tokens.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err // File doesn't exist or not accessible
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	// Try TOML first
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	// Try JSON as fallback
	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	// Defaults only
	cfg, err = finishLoad(cfg)
	if err != nil {
		return nil, err
	}

	// Return defaults (with any load error for informational purposes)
	return cfg, loadErr
}

// finishLoad applies overrides, migration, defaults, and validation.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := cfg.Migrate(); err != nil {
		return nil, fmt.Errorf("config migration failed: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Permissions might not be fixable on all systems
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Permissions might not be fixable on all systems
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		// Default to TOML
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finishLoad(cfg)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// Ensure permissions are correct even if file already existed
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	// Write header comment
	fmt.Fprintln(file, "# cockpit configuration file")
	fmt.Fprintln(file, "# Generated by cockpit - edit with care")
	fmt.Fprintln(file, "#")
	fmt.Fprintln(file, "# Documentation: https://github.com/jeranaias/cockpit-tui")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// SaveJSON saves the configuration to a JSON file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFileWithDir(path, data, 0600, 0755); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// ==========================================================================
	// Orchestrator Settings Validation
	// ==========================================================================

	if c.Orchestrator.URL != "" {
		u, err := url.Parse(c.Orchestrator.URL)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   "orchestrator.url",
				Message: fmt.Sprintf("invalid URL: %v", err),
			})
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, ValidationError{
				Field:   "orchestrator.url",
				Message: fmt.Sprintf("unsupported scheme '%s', must be http or https", u.Scheme),
			})
		} else if u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "orchestrator.url",
				Message: "missing host",
			})
		}
	}

	if c.Orchestrator.TimeoutSecs < 1 || c.Orchestrator.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "orchestrator.timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 600, got %d", c.Orchestrator.TimeoutSecs),
		})
	}

	if c.Orchestrator.HistoryLimit < 1 || c.Orchestrator.HistoryLimit > 1000 {
		errs = append(errs, ValidationError{
			Field:   "orchestrator.history_limit",
			Message: fmt.Sprintf("must be between 1 and 1000, got %d", c.Orchestrator.HistoryLimit),
		})
	}

	validModes := map[string]bool{"direct": true, "normal": true, "complex": true}
	if !validModes[strings.ToLower(c.Orchestrator.DefaultMode)] {
		errs = append(errs, ValidationError{
			Field:   "orchestrator.default_mode",
			Message: fmt.Sprintf("invalid mode '%s', must be one of: direct, normal, complex", c.Orchestrator.DefaultMode),
		})
	}

	// ==========================================================================
	// Session Settings Validation
	// ==========================================================================

	if c.Session.IdleWarnMinutes < 0 {
		errs = append(errs, ValidationError{
			Field:   "session.idle_warn_minutes",
			Message: "cannot be negative",
		})
	}

	if c.Session.FlushIntervalSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "session.flush_interval_secs",
			Message: "cannot be negative",
		})
	}

	if c.Session.CacheTail < 10 || c.Session.CacheTail > 10000 {
		errs = append(errs, ValidationError{
			Field:   "session.cache_tail",
			Message: fmt.Sprintf("must be between 10 and 10000, got %d", c.Session.CacheTail),
		})
	}

	// ==========================================================================
	// Queue Settings Validation
	// ==========================================================================

	if c.Queue.MaxHistory < 1 || c.Queue.MaxHistory > 1000 {
		errs = append(errs, ValidationError{
			Field:   "queue.max_history",
			Message: fmt.Sprintf("must be between 1 and 1000, got %d", c.Queue.MaxHistory),
		})
	}

	// ==========================================================================
	// Events Settings Validation
	// ==========================================================================

	if c.Events.MaxReconnects < 0 || c.Events.MaxReconnects > 100 {
		errs = append(errs, ValidationError{
			Field:   "events.max_reconnects",
			Message: fmt.Sprintf("must be between 0 and 100, got %d", c.Events.MaxReconnects),
		})
	}

	if c.Events.PollFallbackSecs < 1 || c.Events.PollFallbackSecs > 60 {
		errs = append(errs, ValidationError{
			Field:   "events.poll_fallback_secs",
			Message: fmt.Sprintf("must be between 1 and 60, got %d", c.Events.PollFallbackSecs),
		})
	}

	// ==========================================================================
	// Telemetry Settings Validation
	// ==========================================================================

	if c.Telemetry.RetentionDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "telemetry.retention_days",
			Message: "cannot be negative",
		})
	}

	// ==========================================================================
	// UI Settings Validation
	// ==========================================================================

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if c.UI.GraceFloorMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "ui.grace_floor_ms",
			Message: "cannot be negative",
		})
	}

	// The settle window formula clamps between floor and ceiling, so an
	// inverted pair would silently pin every window to the ceiling.
	if c.UI.GraceCeilingMs < c.UI.GraceFloorMs {
		errs = append(errs, ValidationError{
			Field:   "ui.grace_ceiling_ms",
			Message: fmt.Sprintf("must be >= grace_floor_ms (%d), got %d", c.UI.GraceFloorMs, c.UI.GraceCeilingMs),
		})
	}

	if c.UI.StreamFPS < 1 || c.UI.StreamFPS > 120 {
		errs = append(errs, ValidationError{
			Field:   "ui.stream_fps",
			Message: fmt.Sprintf("must be between 1 and 120, got %d", c.UI.StreamFPS),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value configuration fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	// Orchestrator defaults
	if c.Orchestrator.URL == "" {
		c.Orchestrator.URL = defaults.Orchestrator.URL
	}
	if c.Orchestrator.TimeoutSecs == 0 {
		c.Orchestrator.TimeoutSecs = defaults.Orchestrator.TimeoutSecs
	}
	if c.Orchestrator.HistoryLimit == 0 {
		c.Orchestrator.HistoryLimit = defaults.Orchestrator.HistoryLimit
	}
	if c.Orchestrator.DefaultMode == "" {
		c.Orchestrator.DefaultMode = defaults.Orchestrator.DefaultMode
	}

	// Session defaults
	if c.Session.CacheTail == 0 {
		c.Session.CacheTail = defaults.Session.CacheTail
	}

	// Queue defaults
	if c.Queue.MaxHistory == 0 {
		c.Queue.MaxHistory = defaults.Queue.MaxHistory
	}

	// Events defaults
	if c.Events.MaxReconnects == 0 {
		c.Events.MaxReconnects = defaults.Events.MaxReconnects
	}
	if c.Events.PollFallbackSecs == 0 {
		c.Events.PollFallbackSecs = defaults.Events.PollFallbackSecs
	}

	// UI defaults
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.UI.SyntaxTheme == "" {
		c.UI.SyntaxTheme = defaults.UI.SyntaxTheme
	}
	if c.UI.GraceFloorMs == 0 {
		c.UI.GraceFloorMs = defaults.UI.GraceFloorMs
	}
	if c.UI.GraceCeilingMs == 0 {
		c.UI.GraceCeilingMs = defaults.UI.GraceCeilingMs
	}
	if c.UI.StreamFPS == 0 {
		c.UI.StreamFPS = defaults.UI.StreamFPS
	}
}

// Migrate handles migration from old configuration formats to new ones.
func (c *Config) Migrate() error {
	// Early builds named the chat modes default/deep
	switch strings.ToLower(c.Orchestrator.DefaultMode) {
	case "default":
		c.Orchestrator.DefaultMode = "normal"
	case "deep":
		c.Orchestrator.DefaultMode = "complex"
	}

	// "system" theme was renamed to "auto"
	if strings.ToLower(c.UI.Theme) == "system" {
		c.UI.Theme = "auto"
	}

	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - COCKPIT_URL: overrides orchestrator.url
//   - COCKPIT_TOKEN: overrides orchestrator.token
//   - COCKPIT_MODE: overrides orchestrator.default_mode
//   - COCKPIT_TIMEOUT_SECS: overrides orchestrator.timeout_secs
//   - COCKPIT_THEME: overrides ui.theme
//   - COCKPIT_NO_EVENTS: set to "1" or "true" to disable the event feed
//   - COCKPIT_NO_TELEMETRY: set to "1" or "true" to disable telemetry
//   - COCKPIT_MACRO_DIR: overrides macros.dir
func (c *Config) ApplyEnvOverrides() {
	// COCKPIT_URL
	if u := os.Getenv("COCKPIT_URL"); u != "" {
		c.Orchestrator.URL = u
	}

	// COCKPIT_TOKEN
	if token := os.Getenv("COCKPIT_TOKEN"); token != "" {
		c.Orchestrator.Token = token
	}

	// COCKPIT_MODE
	if mode := os.Getenv("COCKPIT_MODE"); mode != "" {
		c.Orchestrator.DefaultMode = mode
	}

	// COCKPIT_TIMEOUT_SECS
	if secs := os.Getenv("COCKPIT_TIMEOUT_SECS"); secs != "" {
		if v, err := strconv.Atoi(secs); err == nil && v > 0 {
			c.Orchestrator.TimeoutSecs = v
		}
	}

	// COCKPIT_THEME
	if theme := os.Getenv("COCKPIT_THEME"); theme != "" {
		c.UI.Theme = theme
	}

	// COCKPIT_NO_EVENTS
	if noEvents := os.Getenv("COCKPIT_NO_EVENTS"); noEvents != "" {
		if noEvents == "1" || strings.ToLower(noEvents) == "true" {
			c.Events.Enabled = false
		}
	}

	// COCKPIT_NO_TELEMETRY
	if noTelemetry := os.Getenv("COCKPIT_NO_TELEMETRY"); noTelemetry != "" {
		if noTelemetry == "1" || strings.ToLower(noTelemetry) == "true" {
			c.Telemetry.Enabled = false
			c.Telemetry.ArchiveEnabled = false
		}
	}

	// COCKPIT_MACRO_DIR
	if dir := os.Getenv("COCKPIT_MACRO_DIR"); dir != "" {
		c.Macros.Dir = dir
	}
}

// =============================================================================
// RESOLVED PATHS AND DURATIONS
// =============================================================================

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Orchestrator.TimeoutSecs) * time.Second
}

// ResolvedArchivePath returns the archive database path, applying the default
// when unset.
func (c *Config) ResolvedArchivePath() (string, error) {
	if c.Telemetry.ArchivePath != "" {
		return c.Telemetry.ArchivePath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "archive.db"), nil
}

// ResolvedMacroDir returns the macro directory, applying the default when unset.
func (c *Config) ResolvedMacroDir() (string, error) {
	if c.Macros.Dir != "" {
		return c.Macros.Dir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "macros"), nil
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "ui.theme").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		// If this is the last part, return the value
		if i == len(parts)-1 {
			return field.Interface(), nil
		}

		// Otherwise, navigate into the struct
		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set sets a configuration value using dot notation (e.g., "ui.theme").
func (c *Config) Set(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})

		if !field.IsValid() {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		// If this is the last part, set the value
		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("cannot set field: %s", key)
			}
			return setFieldValue(field, value)
		}

		// Otherwise, navigate into the struct
		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}

	return fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}

	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	// Handle string input with type conversion
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("cannot parse '%s' as integer: %w", strVal, err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("cannot parse '%s' as float: %w", strVal, err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				return fmt.Errorf("cannot parse '%s' as boolean: %w", strVal, err)
			}
			field.SetBool(boolVal)
			return nil
		}
	}

	// Direct assignment for matching types
	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}

	// Type conversion for compatible types
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"orchestrator.url",
		"orchestrator.token",
		"orchestrator.timeout_secs",
		"orchestrator.history_limit",
		"orchestrator.default_mode",
		"session.idle_warn_minutes",
		"session.flush_interval_secs",
		"session.cache_tail",
		"queue.max_history",
		"queue.notifications",
		"events.enabled",
		"events.max_reconnects",
		"events.poll_fallback_secs",
		"telemetry.enabled",
		"telemetry.archive_enabled",
		"telemetry.archive_path",
		"telemetry.retention_days",
		"macros.dir",
		"ui.theme",
		"ui.syntax_theme",
		"ui.compact_mode",
		"ui.vim_mode",
		"ui.show_latency",
		"ui.grace_floor_ms",
		"ui.grace_ceiling_ms",
		"ui.stream_fps",
	}
}

// Merge merges another config into this one, overwriting only non-zero values.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Version != "" {
		c.Version = other.Version
	}

	// Orchestrator
	if other.Orchestrator.URL != "" {
		c.Orchestrator.URL = other.Orchestrator.URL
	}
	if other.Orchestrator.Token != "" {
		c.Orchestrator.Token = other.Orchestrator.Token
	}
	if other.Orchestrator.TimeoutSecs != 0 {
		c.Orchestrator.TimeoutSecs = other.Orchestrator.TimeoutSecs
	}
	if other.Orchestrator.HistoryLimit != 0 {
		c.Orchestrator.HistoryLimit = other.Orchestrator.HistoryLimit
	}
	if other.Orchestrator.DefaultMode != "" {
		c.Orchestrator.DefaultMode = other.Orchestrator.DefaultMode
	}

	// Session
	if other.Session.IdleWarnMinutes != 0 {
		c.Session.IdleWarnMinutes = other.Session.IdleWarnMinutes
	}
	if other.Session.FlushIntervalSecs != 0 {
		c.Session.FlushIntervalSecs = other.Session.FlushIntervalSecs
	}
	if other.Session.CacheTail != 0 {
		c.Session.CacheTail = other.Session.CacheTail
	}

	// Queue
	if other.Queue.MaxHistory != 0 {
		c.Queue.MaxHistory = other.Queue.MaxHistory
	}
	if other.Queue.Notifications {
		c.Queue.Notifications = true
	}

	// Events
	if other.Events.Enabled {
		c.Events.Enabled = true
	}
	if other.Events.MaxReconnects != 0 {
		c.Events.MaxReconnects = other.Events.MaxReconnects
	}
	if other.Events.PollFallbackSecs != 0 {
		c.Events.PollFallbackSecs = other.Events.PollFallbackSecs
	}

	// Telemetry
	if other.Telemetry.Enabled {
		c.Telemetry.Enabled = true
	}
	if other.Telemetry.ArchiveEnabled {
		c.Telemetry.ArchiveEnabled = true
	}
	if other.Telemetry.ArchivePath != "" {
		c.Telemetry.ArchivePath = other.Telemetry.ArchivePath
	}
	if other.Telemetry.RetentionDays != 0 {
		c.Telemetry.RetentionDays = other.Telemetry.RetentionDays
	}

	// Macros
	if other.Macros.Dir != "" {
		c.Macros.Dir = other.Macros.Dir
	}

	// UI
	if other.UI.Theme != "" {
		c.UI.Theme = other.UI.Theme
	}
	if other.UI.SyntaxTheme != "" {
		c.UI.SyntaxTheme = other.UI.SyntaxTheme
	}
	if other.UI.CompactMode {
		c.UI.CompactMode = true
	}
	if other.UI.VimMode {
		c.UI.VimMode = true
	}
	if other.UI.ShowLatency {
		c.UI.ShowLatency = true
	}
	if other.UI.GraceFloorMs != 0 {
		c.UI.GraceFloorMs = other.UI.GraceFloorMs
	}
	if other.UI.GraceCeilingMs != 0 {
		c.UI.GraceCeilingMs = other.UI.GraceCeilingMs
	}
	if other.UI.StreamFPS != 0 {
		c.UI.StreamFPS = other.UI.StreamFPS
	}
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
// SECURITY: Redacts the orchestrator token to prevent accidental exposure
// in logs, error messages, or debug output.
func (c *Config) String() string {
	safe := c.Clone()

	if safe.Orchestrator.Token != "" {
		safe.Orchestrator.Token = "[REDACTED]"
	}

	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			// Log but don't fail - use defaults
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
