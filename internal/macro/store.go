// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package macro

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/cockpit-tui/internal/util"
)

// ============================================================================
// MACRO STORE
// ============================================================================

// ErrNotFound is returned when a named macro has no file in the store.
var ErrNotFound = fmt.Errorf("macro not found")

// Store loads and saves macros as individual TOML files in a directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created
// lazily on the first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path a macro with the given name is stored at.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+".toml")
}

// Load reads a single macro by name.
func (s *Store) Load(name string) (*Macro, error) {
	if !nameRe.MatchString(name) {
		return nil, fmt.Errorf("invalid macro name %q", name)
	}
	data, err := os.ReadFile(s.Path(name))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read macro %s: %w", name, err)
	}

	var m Macro
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse macro %s: %w", name, err)
	}
	// The file name is authoritative so that renames on disk behave.
	m.Name = name
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns all macros in the store sorted by name. Files that fail
// to parse are skipped so one bad file cannot hide the rest.
func (s *Store) List() ([]*Macro, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read macro directory: %w", err)
	}

	var macros []*Macro
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".toml")
		m, err := s.Load(name)
		if err != nil {
			continue
		}
		macros = append(macros, m)
	}
	sort.Slice(macros, func(i, j int) bool { return macros[i].Name < macros[j].Name })
	return macros, nil
}

// Names returns the sorted names of all loadable macros.
func (s *Store) Names() ([]string, error) {
	macros, err := s.List()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(macros))
	for i, m := range macros {
		names[i] = m.Name
	}
	return names, nil
}

// Save writes a macro to the store, replacing any existing file with
// the same name.
func (s *Store) Save(m *Macro) error {
	if err := m.Validate(); err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("# cockpit macro file\n")
	buf.WriteString("# each [[steps]] block is submitted in order\n\n")
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return fmt.Errorf("failed to encode macro %s: %w", m.Name, err)
	}
	if err := util.AtomicWriteFileWithDir(s.Path(m.Name), buf.Bytes(), 0644, 0755); err != nil {
		return fmt.Errorf("failed to write macro %s: %w", m.Name, err)
	}
	return nil
}

// Delete removes a macro file. Deleting a macro that does not exist
// returns ErrNotFound.
func (s *Store) Delete(name string) error {
	if !nameRe.MatchString(name) {
		return fmt.Errorf("invalid macro name %q", name)
	}
	err := os.Remove(s.Path(name))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to delete macro %s: %w", name, err)
	}
	return nil
}
