// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/config"
)

// =============================================================================
// STATUS COMMAND
// =============================================================================

// statusProbeTimeout bounds each individual probe so a hung
// orchestrator can't stall the report.
const statusProbeTimeout = 3 * time.Second

func runStatus(args Args) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := buildClient(cfg)

	data := collectStatus(client, cfg)

	if args.JSON {
		if err := NewJSONResponse("status", data).Print(); err != nil {
			return err
		}
	} else {
		printStatus(data)
	}

	// Reflect orchestrator reachability in the exit code so scripts
	// can gate on `cockpit status`.
	if !data.Reachable {
		os.Exit(ExitNetworkError)
	}
	return nil
}

// collectStatus probes the orchestrator and assembles the report.
// Each probe gets its own timeout; partial results are fine.
func collectStatus(client *api.Client, cfg *config.Config) *StatusData {
	data := &StatusData{URL: cfg.Orchestrator.URL}
	if path, err := config.ConfigPathTOML(); err == nil {
		data.ConfigPath = path
	}

	ctx, cancel := context.WithTimeout(context.Background(), statusProbeTimeout)
	defer cancel()
	health, err := client.Health(ctx)
	if err != nil {
		data.Error = err.Error()
		return data
	}
	data.Reachable = true
	data.Version = health.Version

	qctx, qcancel := context.WithTimeout(context.Background(), statusProbeTimeout)
	defer qcancel()
	if q, err := client.Queue(qctx); err == nil {
		data.Queue = &QueueData{Paused: q.Paused, Depth: q.Depth, Active: q.Active}
	}

	rctx, rcancel := context.WithTimeout(context.Background(), statusProbeTimeout)
	defer rcancel()
	if runtimes, err := client.ListRuntimes(rctx); err == nil {
		for _, rt := range runtimes {
			data.Runtimes = append(data.Runtimes, RuntimeData{
				Name:     rt.Name,
				Provider: rt.Provider,
				Model:    rt.Model,
				Active:   rt.Active,
				Healthy:  rt.Healthy,
			})
		}
	}
	return data
}

func printStatus(data *StatusData) {
	fmt.Println(TitleStyle.Render("cockpit status"))
	fmt.Println(DimStyle.Render(strings.Repeat("=", 46)))
	fmt.Println()

	fmt.Println(SectionStyle.Render("Orchestrator"))
	printField("URL", data.URL)
	if data.Reachable {
		printStyledField("Reachable", SuccessStyle.Render("yes"))
		if data.Version != "" {
			printField("Version", data.Version)
		}
	} else {
		printStyledField("Reachable", ErrorStyle.Render("no"))
		if data.Error != "" {
			printStyledField("Error", ErrorStyle.Render(data.Error))
		}
	}
	fmt.Println()

	if data.Queue != nil {
		fmt.Println(SectionStyle.Render("Queue"))
		if data.Queue.Paused {
			printStyledField("Paused", WarningStyle.Render("yes"))
		} else {
			printField("Paused", "no")
		}
		printField("Depth", fmt.Sprintf("%d", data.Queue.Depth))
		printField("Active", fmt.Sprintf("%d", data.Queue.Active))
		fmt.Println()
	}

	if len(data.Runtimes) > 0 {
		fmt.Println(SectionStyle.Render("Runtimes"))
		for _, rt := range data.Runtimes {
			marker := " "
			if rt.Active {
				marker = "*"
			}
			healthStr := SuccessStyle.Render("healthy")
			if !rt.Healthy {
				healthStr = ErrorStyle.Render("unhealthy")
			}
			fmt.Printf("  %s %-16s %-22s %s\n",
				marker, rt.Name, rt.Provider+"/"+rt.Model, healthStr)
		}
		fmt.Println()
	}

	fmt.Println(SectionStyle.Render("Config"))
	printField("Path", data.ConfigPath)
}

// printField prints an aligned label/value pair.
func printField(label, value string) {
	fmt.Printf("  %s%s\n", LabelStyle.Render(label), ValueStyle.Render(value))
}

// printStyledField prints a label with a pre-styled value.
func printStyledField(label, styled string) {
	fmt.Printf("  %s%s\n", LabelStyle.Render(label), styled)
}

// quickHealthProbe is a helper for commands that only need a
// reachable/unreachable answer.
func quickHealthProbe(client *api.Client) bool {
	ctx, cancel := context.WithTimeout(context.Background(), statusProbeTimeout)
	defer cancel()
	return client.CheckHealth(ctx) == nil
}
