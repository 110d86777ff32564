// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// =============================================================================
// VERSION
// =============================================================================

// Version information, overridden at build time via ldflags.
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// COMMANDS
// =============================================================================

// Command identifies which cockpit command was requested.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdStatus
	CmdStats
	CmdSessions
	CmdMacros
	CmdAuth
	CmdConfig
	CmdDemo
	CmdVersion
	CmdHelp
)

// Args holds everything parsed from the command line. Global flags
// apply to all commands; the rest are filled per command.
type Args struct {
	// Global flags
	JSON    bool
	Verbose bool
	Plain   bool

	// Request shaping (ask, chat)
	Query     string
	File      string
	SessionID string
	Mode      string
	Tool      string
	Provider  string

	// One-shot behavior
	TimeoutSecs int

	// Config command
	ConfigKey   string
	ConfigValue string

	// Demo command
	Port     int
	Headless bool

	// Subcommand and unconsumed arguments, for commands that do their
	// own parsing with ArgParser.
	Subcommand string
	Raw        []string
}

const usageText = `cockpit - terminal console for the agent orchestrator

Usage:
  cockpit [command] [flags]

Commands:
  (none)            Launch the interactive TUI
  ask <question>    Submit a one-shot request and print the answer
  chat              Plain-terminal chat REPL
  status, s         Orchestrator health, queue, and runtime report
  stats             Latency statistics from the local archive
  sessions          List sessions and export transcripts
  macros            List, show, and run macro templates
  auth              Manage orchestrator tokens in the keystore
  config            Show, get, and set configuration values
  demo              Launch against a built-in stub orchestrator
  version           Show version information
  help              Show this help

Global Flags:
  --json            Machine-readable JSON output
  --verbose         Enable debug logging to stderr
  --plain           Disable markdown rendering in ask output
  --no-color        Disable colored output

Ask / Chat Flags:
  --session <id>    Target an existing session
  --mode <mode>     Chat mode: direct, normal, complex
  --tool <name>     Force a specific tool
  --provider <name> Force a specific provider
  --file <path>     Include a file as context (ask only)
  --timeout <secs>  Wait limit for queued requests (ask only)

Examples:
  cockpit                                     Launch the TUI
  cockpit ask "why is the queue paused?"      One-shot question
  cat crash.log | cockpit ask "what broke?"   Pipe context via stdin
  cockpit chat --mode direct                  REPL without the TUI
  cockpit sessions export 1a2b --format md    Export a transcript
  cockpit macros run triage target=api        Run a macro
  cockpit demo                                TUI against the stub server

Version: %s
`

// PrintUsage writes the usage text to stdout.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion writes human-readable version information to stdout.
func PrintVersion() {
	fmt.Printf("cockpit %s\n", Version)
	fmt.Printf("  commit: %s\n", GitCommit)
	fmt.Printf("  built:  %s\n", BuildDate)
	fmt.Printf("  go:     %s\n", runtime.Version())
}

// =============================================================================
// PARSING
// =============================================================================

// Parse reads os.Args and returns the requested command plus its
// parsed arguments.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses an explicit argument slice. Split out from Parse
// for testing.
func ParseArgs(argv []string) (Command, Args) {
	var parsed Args
	remaining := parseGlobalFlags(argv, &parsed)

	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := strings.ToLower(remaining[0])
	rest := remaining[1:]

	switch cmd {
	case "tui":
		parsed.Raw = rest
		return CmdTUI, parsed
	case "ask", "a":
		parseAskArgs(&parsed, rest)
		return CmdAsk, parsed
	case "chat", "repl":
		parseChatArgs(&parsed, rest)
		return CmdChat, parsed
	case "status", "s":
		parsed.Raw = rest
		return CmdStatus, parsed
	case "stats":
		parsed.Raw = rest
		return CmdStats, parsed
	case "sessions", "session":
		parsed.Raw = rest
		return CmdSessions, parsed
	case "macros", "macro":
		parsed.Raw = rest
		return CmdMacros, parsed
	case "auth":
		parsed.Raw = rest
		return CmdAuth, parsed
	case "config", "cfg":
		parseConfigArgs(&parsed, rest)
		return CmdConfig, parsed
	case "demo":
		parseDemoArgs(&parsed, rest)
		return CmdDemo, parsed
	case "version", "-v", "--version":
		return CmdVersion, parsed
	case "help", "-h", "--help":
		return CmdHelp, parsed
	default:
		// Unrecognized leading word: hand everything to the TUI
		// untouched rather than failing hard.
		parsed.Raw = remaining
		return CmdTUI, parsed
	}
}

// parseGlobalFlags strips flags that apply to every command and
// returns the rest. --session is global because the TUI accepts it
// too.
func parseGlobalFlags(args []string, parsed *Args) []string {
	remaining := make([]string, 0, len(args))
	i := 0
	for i < len(args) {
		arg := args[i]
		switch {
		case arg == "--json":
			parsed.JSON = true
		case arg == "--verbose" || arg == "--debug":
			parsed.Verbose = true
		case arg == "--plain":
			parsed.Plain = true
		case arg == "--no-color":
			ForceColorsEnabled(false)
		case arg == "--session" && i+1 < len(args):
			parsed.SessionID = args[i+1]
			i++
		case strings.HasPrefix(arg, "--session="):
			parsed.SessionID = strings.TrimPrefix(arg, "--session=")
		default:
			remaining = append(remaining, arg)
		}
		i++
	}
	return remaining
}

// parseRequestFlags consumes the flags shared by ask and chat,
// returning indices it handled.
func parseRequestFlags(parsed *Args, args []string, i int) (consumed int, handled bool) {
	arg := args[i]
	next := func() (string, bool) {
		if i+1 < len(args) {
			return args[i+1], true
		}
		return "", false
	}

	switch {
	case arg == "--mode":
		if v, ok := next(); ok {
			parsed.Mode = strings.ToLower(v)
			return 2, true
		}
	case strings.HasPrefix(arg, "--mode="):
		parsed.Mode = strings.ToLower(strings.TrimPrefix(arg, "--mode="))
		return 1, true
	case arg == "--tool":
		if v, ok := next(); ok {
			parsed.Tool = v
			return 2, true
		}
	case strings.HasPrefix(arg, "--tool="):
		parsed.Tool = strings.TrimPrefix(arg, "--tool=")
		return 1, true
	case arg == "--provider":
		if v, ok := next(); ok {
			parsed.Provider = v
			return 2, true
		}
	case strings.HasPrefix(arg, "--provider="):
		parsed.Provider = strings.TrimPrefix(arg, "--provider=")
		return 1, true
	}
	return 0, false
}

// parseAskArgs parses ask's flags; bare words join into the question.
func parseAskArgs(parsed *Args, args []string) {
	var queryParts []string
	i := 0
	for i < len(args) {
		if n, ok := parseRequestFlags(parsed, args, i); ok {
			i += n
			continue
		}
		arg := args[i]
		switch {
		case arg == "--file" && i+1 < len(args):
			parsed.File = args[i+1]
			i++
		case strings.HasPrefix(arg, "--file="):
			parsed.File = strings.TrimPrefix(arg, "--file=")
		case arg == "--timeout" && i+1 < len(args):
			if n, err := strconv.Atoi(args[i+1]); err == nil {
				parsed.TimeoutSecs = n
			}
			i++
		case strings.HasPrefix(arg, "--timeout="):
			if n, err := strconv.Atoi(strings.TrimPrefix(arg, "--timeout=")); err == nil {
				parsed.TimeoutSecs = n
			}
		case strings.HasPrefix(arg, "-"):
			// unknown flag, skip
		default:
			queryParts = append(queryParts, arg)
		}
		i++
	}
	parsed.Query = strings.Join(queryParts, " ")
}

// parseChatArgs parses chat's flags.
func parseChatArgs(parsed *Args, args []string) {
	i := 0
	for i < len(args) {
		if n, ok := parseRequestFlags(parsed, args, i); ok {
			i += n
			continue
		}
		i++
	}
}

// parseConfigArgs parses config subcommands: show, path, keys,
// get <key>, set <key> <value>.
func parseConfigArgs(parsed *Args, args []string) {
	if len(args) == 0 {
		parsed.Subcommand = "show"
		return
	}
	parsed.Subcommand = strings.ToLower(args[0])
	if len(args) > 1 {
		parsed.ConfigKey = args[1]
	}
	if len(args) > 2 {
		parsed.ConfigValue = strings.Join(args[2:], " ")
	}
}

// parseDemoArgs parses demo's flags.
func parseDemoArgs(parsed *Args, args []string) {
	i := 0
	for i < len(args) {
		arg := args[i]
		switch {
		case arg == "--port" && i+1 < len(args):
			if n, err := strconv.Atoi(args[i+1]); err == nil {
				parsed.Port = n
			}
			i++
		case strings.HasPrefix(arg, "--port="):
			if n, err := strconv.Atoi(strings.TrimPrefix(arg, "--port=")); err == nil {
				parsed.Port = n
			}
		case arg == "--headless":
			parsed.Headless = true
		}
		i++
	}
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// HandleAsk runs the ask command and exits on failure.
func HandleAsk(args Args) {
	if err := runAsk(args); err != nil {
		HandleErrorAndExit(err, args.JSON)
	}
}

// HandleChat runs the plain-terminal REPL and exits on failure.
func HandleChat(args Args) {
	if err := runChat(args); err != nil {
		HandleErrorAndExit(err, args.JSON)
	}
}

// HandleStatus runs the status command and exits on failure.
func HandleStatus(args Args) {
	if err := runStatus(args); err != nil {
		HandleErrorAndExit(err, args.JSON)
	}
}

// HandleStats runs the stats command and exits on failure.
func HandleStats(args Args) {
	if err := runStats(args); err != nil {
		HandleErrorAndExit(err, args.JSON)
	}
}

// HandleSessions runs the sessions command and exits on failure.
func HandleSessions(args Args) {
	if err := runSessions(args); err != nil {
		HandleErrorAndExit(err, args.JSON)
	}
}

// HandleMacros runs the macros command and exits on failure.
func HandleMacros(args Args) {
	if err := runMacros(args); err != nil {
		HandleErrorAndExit(err, args.JSON)
	}
}

// HandleAuth runs the auth command and exits on failure.
func HandleAuth(args Args) {
	if err := runAuth(args); err != nil {
		HandleErrorAndExit(err, args.JSON)
	}
}

// HandleConfig runs the config command and exits on failure.
func HandleConfig(args Args) {
	if err := runConfig(args); err != nil {
		HandleErrorAndExit(err, args.JSON)
	}
}

// HandleVersion prints version information.
func HandleVersion(args Args) {
	if OutputJSON(args.JSON, "version", func() (interface{}, error) {
		return VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}, nil
	}) {
		return
	}
	PrintVersion()
}

// HandleHelp prints usage.
func HandleHelp(_ Args) {
	PrintUsage()
}
