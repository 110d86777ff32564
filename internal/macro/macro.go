// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package macro

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ============================================================================
// MACRO DEFINITION
// ============================================================================

// Step is a single prompt inside a macro. Mode and Tool are optional
// overrides; empty values inherit the session's current settings.
type Step struct {
	Name   string `toml:"name"`
	Prompt string `toml:"prompt"`
	Mode   string `toml:"mode,omitempty"`
	Tool   string `toml:"tool,omitempty"`
}

// Macro is a named sequence of prompt steps loaded from a TOML file.
type Macro struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Steps       []Step `toml:"steps"`
}

// nameRe restricts macro names to characters that are safe as file
// names on every platform we ship to.
var nameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// placeholderRe matches {placeholder} markers inside step prompts.
var placeholderRe = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// Validate checks that the macro is well formed.
func (m *Macro) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("macro name is required")
	}
	if !nameRe.MatchString(m.Name) {
		return fmt.Errorf("invalid macro name %q: use letters, digits, '-' and '_'", m.Name)
	}
	if len(m.Steps) == 0 {
		return fmt.Errorf("macro %q has no steps", m.Name)
	}
	for i, s := range m.Steps {
		if strings.TrimSpace(s.Prompt) == "" {
			return fmt.Errorf("macro %q: step %d has an empty prompt", m.Name, i+1)
		}
		if s.Mode != "" && s.Mode != "direct" && s.Mode != "normal" && s.Mode != "complex" {
			return fmt.Errorf("macro %q: step %d has unknown mode %q", m.Name, i+1, s.Mode)
		}
	}
	return nil
}

// Placeholders returns the sorted set of placeholder names used across
// all steps.
func (m *Macro) Placeholders() []string {
	seen := make(map[string]bool)
	for _, s := range m.Steps {
		for _, match := range placeholderRe.FindAllStringSubmatch(s.Prompt, -1) {
			seen[match[1]] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Expand substitutes args into every step prompt and returns the
// expanded steps. All placeholders must be covered by args; extra args
// are ignored.
func (m *Macro) Expand(args map[string]string) ([]Step, error) {
	var missing []string
	for _, name := range m.Placeholders() {
		if _, ok := args[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("macro %q: missing arguments: %s", m.Name, strings.Join(missing, ", "))
	}

	steps := make([]Step, len(m.Steps))
	for i, s := range m.Steps {
		expanded := placeholderRe.ReplaceAllStringFunc(s.Prompt, func(match string) string {
			name := match[1 : len(match)-1]
			return args[name]
		})
		steps[i] = Step{
			Name:   s.Name,
			Prompt: expanded,
			Mode:   s.Mode,
			Tool:   s.Tool,
		}
	}
	return steps, nil
}

// StepName returns a display name for step i, falling back to a
// positional label when the step is unnamed.
func (m *Macro) StepName(i int) string {
	if i >= 0 && i < len(m.Steps) && m.Steps[i].Name != "" {
		return m.Steps[i].Name
	}
	return fmt.Sprintf("step %d", i+1)
}
