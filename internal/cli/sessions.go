// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/export"
	"github.com/jeranaias/cockpit-tui/internal/history"
	"github.com/jeranaias/cockpit-tui/internal/util"
)

// =============================================================================
// SESSIONS COMMAND
// =============================================================================

// runSessions lists known sessions or exports a transcript.
//
//	cockpit sessions                 list sessions
//	cockpit sessions export <id> [--format md|json|txt|html] [--output dir]
func runSessions(args Args) error {
	parser := NewArgParser(args.Raw)
	switch parser.Subcommand() {
	case "", "list":
		return listSessions(args)
	case "export":
		return exportSession(args, parser)
	default:
		return NewValidationError("subcommand", parser.Subcommand(),
			"expected list or export")
	}
}

func listSessions(args Args) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := buildClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()
	sessions, err := client.ListSessions(ctx)
	if err != nil {
		return WrapError("sessions", "list", err)
	}

	if args.JSON {
		data := SessionListData{Count: len(sessions)}
		for _, s := range sessions {
			data.Sessions = append(data.Sessions, SessionData{
				SessionID:    s.SessionID,
				Title:        s.Title,
				RequestCount: s.RequestCount,
				UpdatedAt:    s.UpdatedAt.UTC().Format(time.RFC3339),
			})
		}
		return NewJSONResponse("sessions", data).Print()
	}

	if len(sessions) == 0 {
		fmt.Println(DimStyle.Render("No sessions on the orchestrator yet."))
		return nil
	}

	fmt.Println(TitleStyle.Render("Sessions"))
	fmt.Println()
	fmt.Println(DimStyle.Render(fmt.Sprintf("  %-14s %-32s %8s  %s",
		"ID", "TITLE", "REQUESTS", "UPDATED")))
	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("  %-14s %-32s %8d  %s\n",
			shortID(s.SessionID),
			util.TruncateRunes(title, 30),
			s.RequestCount,
			formatAge(s.UpdatedAt))
	}
	return nil
}

// exportSession pulls a session's history from the orchestrator and
// writes it to a transcript file.
func exportSession(args Args, parser *ArgParser) error {
	sessionID := parser.Positional(0)
	if sessionID == "" {
		return NewValidationError("session", "",
			"usage: cockpit sessions export <session-id>")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := buildClient(cfg)

	format := parser.FlagOrDefault("format", "md")
	limit := parser.FlagIntOrDefault("limit", cfg.Orchestrator.HistoryLimit)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()
	records, err := client.History(ctx, sessionID, limit)
	if err != nil {
		return WrapError("sessions", "fetch history", err)
	}
	if len(records) == 0 {
		return NewNotFoundError("session", sessionID)
	}

	entries := history.Merge(history.FromRecords(records))
	messages := history.Project(entries, nil, time.Now(), history.DefaultGraceWindow())

	transcript := &export.Transcript{
		SessionID:  sessionID,
		Runtime:    activeRuntimeName(client),
		ExportedAt: time.Now(),
		Messages:   messages,
	}

	opts := export.DefaultOptions()
	if dir, ok := parser.Flag("output"); ok {
		opts.OutputDir = dir
	}
	opts.Theme = cfg.UI.Theme

	path, err := export.ExportToFile(transcript, format, opts)
	if err != nil {
		return WrapError("sessions", "export", err)
	}

	if args.JSON {
		return NewJSONResponse("sessions", map[string]interface{}{
			"session_id": sessionID,
			"format":     format,
			"messages":   len(messages),
			"path":       path,
		}).Print()
	}

	fmt.Printf("%s %d messages to %s\n",
		SuccessStyle.Render("Exported"), len(messages), path)
	return nil
}

// activeRuntimeName returns the active runtime's name, best effort.
func activeRuntimeName(client *api.Client) string {
	ctx, cancel := context.WithTimeout(context.Background(), statusProbeTimeout)
	defer cancel()
	runtimes, err := client.ListRuntimes(ctx)
	if err != nil {
		return ""
	}
	for _, rt := range runtimes {
		if rt.Active {
			return rt.Name
		}
	}
	return ""
}
