// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// ARGUMENT PARSER
// =============================================================================

// ArgParser provides structured parsing for subcommand arguments.
// It separates flags (--key=value or --key value), boolean flags
// (--verbose), and positional arguments.
type ArgParser struct {
	subcommand string
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
	raw        []string
}

// NewArgParser creates a parser from raw arguments.
// The first non-flag argument is treated as the subcommand.
//
// Example:
//
//	p := NewArgParser([]string{"export", "abc123", "--format=md"})
//	p.Subcommand()       // "export"
//	p.Positional(0)      // "abc123"
//	p.Flag("format")     // "md"
func NewArgParser(args []string) *ArgParser {
	p := &ArgParser{
		flags:      make(map[string]string),
		boolFlags:  make(map[string]bool),
		positional: []string{},
		raw:        args,
	}

	i := 0
	for i < len(args) {
		arg := args[i]

		switch {
		case strings.HasPrefix(arg, "--"):
			name := strings.TrimPrefix(arg, "--")

			if idx := strings.Index(name, "="); idx >= 0 {
				// --flag=value form
				key := name[:idx]
				value := name[idx+1:]
				if value == "true" || value == "false" {
					p.boolFlags[key] = value == "true"
				} else {
					p.flags[key] = value
				}
			} else if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				// --flag value form
				p.flags[name] = args[i+1]
				i++
			} else {
				// bare --flag
				p.boolFlags[name] = true
			}

		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			// short flags are always boolean
			p.boolFlags[strings.TrimPrefix(arg, "-")] = true

		default:
			if p.subcommand == "" && len(p.positional) == 0 {
				p.subcommand = arg
			} else {
				p.positional = append(p.positional, arg)
			}
		}
		i++
	}

	return p
}

// Subcommand returns the parsed subcommand, or empty string.
func (p *ArgParser) Subcommand() string {
	return p.subcommand
}

// Flag returns the value of a string flag and whether it was set.
func (p *ArgParser) Flag(name string) (string, bool) {
	v, ok := p.flags[name]
	return v, ok
}

// FlagOrDefault returns the flag value or a default if unset.
func (p *ArgParser) FlagOrDefault(name, def string) string {
	if v, ok := p.flags[name]; ok {
		return v
	}
	return def
}

// FlagInt parses a flag as an integer.
func (p *ArgParser) FlagInt(name string) (int, bool, error) {
	v, ok := p.flags[name]
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, fmt.Errorf("flag --%s: %q is not a number", name, v)
	}
	return n, true, nil
}

// FlagIntOrDefault parses a flag as an integer, returning a default
// when the flag is unset or malformed.
func (p *ArgParser) FlagIntOrDefault(name string, def int) int {
	n, ok, err := p.FlagInt(name)
	if !ok || err != nil {
		return def
	}
	return n
}

// BoolFlag returns whether a boolean flag was set.
func (p *ArgParser) BoolFlag(name string) bool {
	return p.boolFlags[name]
}

// HasFlag reports whether a flag was provided in either form,
// regardless of its value.
func (p *ArgParser) HasFlag(name string) bool {
	if _, ok := p.flags[name]; ok {
		return true
	}
	_, ok := p.boolFlags[name]
	return ok
}

// Positional returns the positional argument at index, or empty string.
// The subcommand does not count as a positional.
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalFrom returns all positional arguments from index onward.
func (p *ArgParser) PositionalFrom(index int) []string {
	if index < 0 || index >= len(p.positional) {
		return nil
	}
	return p.positional[index:]
}

// PositionalCount returns the number of positional arguments.
func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}

// Raw returns the original argument slice.
func (p *ArgParser) Raw() []string {
	return p.raw
}

// ParseBoolString interprets common boolean spellings used in
// config values: true/false, yes/no, on/off, 1/0.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	default:
		return false, fmt.Errorf("%q is not a boolean value (use true/false)", s)
	}
}
