// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/jeranaias/cockpit-tui/internal/telemetry"
	"github.com/jeranaias/cockpit-tui/internal/util"
)

// =============================================================================
// STATS COMMAND
// =============================================================================

// runStats reports latency statistics from the local request archive.
//
//	cockpit stats                    overall latency summary
//	cockpit stats --session <id>     one session only
//	cockpit stats recent             recent archived requests
//	cockpit stats recent --limit 20
func runStats(args Args) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	path, err := cfg.ResolvedArchivePath()
	if err != nil {
		return WrapError("stats", "resolve archive path", err)
	}
	archive, err := telemetry.OpenArchive(path)
	if err != nil {
		return WrapError("stats", "open archive", err)
	}
	defer archive.Close()

	parser := NewArgParser(args.Raw)
	sessionID, _ := parser.Flag("session")

	if parser.Subcommand() == "recent" {
		limit := parser.FlagIntOrDefault("limit", 10)
		return printRecentRequests(archive, sessionID, limit, args.JSON)
	}

	var stats telemetry.Stats
	if sessionID != "" {
		stats, err = archive.SessionStats(sessionID)
	} else {
		stats, err = archive.GlobalStats()
	}
	if err != nil {
		return WrapError("stats", "query archive", err)
	}
	total, err := archive.CountRequests()
	if err != nil {
		return WrapError("stats", "count requests", err)
	}

	if args.JSON {
		return NewJSONResponse("stats", StatsData{
			SessionID:     sessionID,
			Count:         stats.Count,
			AvgDurationMs: stats.AvgDurationMs,
			P50DurationMs: stats.P50DurationMs,
			P95DurationMs: stats.P95DurationMs,
			MaxDurationMs: stats.MaxDurationMs,
			AvgTTFTMs:     stats.AvgTTFTMs,
			AvgHistoryMs:  stats.AvgHistoryMs,
			ArchivedTotal: total,
		}).Print()
	}

	printStatsReport(stats, sessionID, total)
	return nil
}

func printStatsReport(stats telemetry.Stats, sessionID string, total int) {
	fmt.Println(TitleStyle.Render("cockpit stats"))
	fmt.Println()

	fmt.Println(SectionStyle.Render("Requests"))
	printField("Archived", fmt.Sprintf("%d", total))
	if sessionID != "" {
		printField("Session", sessionID)
	} else {
		printField("Window", "all sessions")
	}
	printField("With timing", fmt.Sprintf("%d", stats.Count))
	fmt.Println()

	if stats.Count == 0 {
		fmt.Println(DimStyle.Render("No timed requests archived yet."))
		return
	}

	fmt.Println(SectionStyle.Render("Latency"))
	printField("Average", formatMs(stats.AvgDurationMs))
	printField("P50", formatMs(stats.P50DurationMs))
	printField("P95", formatMs(stats.P95DurationMs))
	printField("Max", formatMs(stats.MaxDurationMs))
	fmt.Println()

	if stats.AvgTTFTMs > 0 || stats.AvgHistoryMs > 0 {
		fmt.Println(SectionStyle.Render("Milestones"))
		if stats.AvgTTFTMs > 0 {
			printField("Avg first token", formatMs(stats.AvgTTFTMs))
		}
		if stats.AvgHistoryMs > 0 {
			printField("Avg history load", formatMs(stats.AvgHistoryMs))
		}
	}
}

func printRecentRequests(archive *telemetry.Archive, sessionID string, limit int, jsonMode bool) error {
	var records []telemetry.ArchivedRequest
	var err error
	if sessionID != "" {
		records, err = archive.Recent(sessionID, limit)
	} else {
		records, err = archive.RecentAll(limit)
	}
	if err != nil {
		return WrapError("stats", "query archive", err)
	}

	if jsonMode {
		return NewJSONResponse("stats", records).Print()
	}

	if len(records) == 0 {
		fmt.Println(DimStyle.Render("No archived requests."))
		return nil
	}

	fmt.Println(TitleStyle.Render("Recent Requests"))
	fmt.Println()
	fmt.Println(DimStyle.Render(fmt.Sprintf("  %-10s %-11s %-8s %-9s %s",
		"TIME", "STATUS", "MODE", "DURATION", "PROMPT")))
	for _, rec := range records {
		statusStr := string(rec.Status)
		duration := "-"
		if rec.DurationMs > 0 {
			duration = formatMs(rec.DurationMs)
		}
		fmt.Printf("  %-10s %-11s %-8s %-9s %s\n",
			rec.CreatedAt.Format("15:04:05"),
			statusStr,
			rec.ChatMode,
			duration,
			util.TruncateRunes(rec.Prompt, 40))
	}
	return nil
}
