// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/config"
	"github.com/jeranaias/cockpit-tui/internal/macro"
	"github.com/jeranaias/cockpit-tui/internal/util"
)

// =============================================================================
// MACROS COMMAND
// =============================================================================

// macroRunTimeout bounds a whole macro run; individual steps share it.
const macroRunTimeout = 10 * time.Minute

// runMacros manages and executes macro templates.
//
//	cockpit macros                     list macros
//	cockpit macros show <name>         show a macro's steps
//	cockpit macros run <name> [k=v ...] [--continue-on-error]
func runMacros(args Args) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir, err := cfg.ResolvedMacroDir()
	if err != nil {
		return WrapError("macros", "resolve macro dir", err)
	}
	store := macro.NewStore(dir)

	parser := NewArgParser(args.Raw)
	switch parser.Subcommand() {
	case "", "list":
		return listMacros(store, args)
	case "show":
		return showMacro(store, parser, args)
	case "run":
		return runMacro(store, cfg, parser, args)
	default:
		return NewValidationError("subcommand", parser.Subcommand(),
			"expected list, show, or run")
	}
}

func listMacros(store *macro.Store, args Args) error {
	macros, err := store.List()
	if err != nil {
		return WrapError("macros", "list", err)
	}

	if args.JSON {
		data := MacroListData{Count: len(macros), Dir: store.Dir()}
		for _, m := range macros {
			data.Macros = append(data.Macros, MacroData{
				Name:         m.Name,
				Description:  m.Description,
				Steps:        len(m.Steps),
				Placeholders: m.Placeholders(),
			})
		}
		return NewJSONResponse("macros", data).Print()
	}

	if len(macros) == 0 {
		fmt.Println(DimStyle.Render("No macros in " + store.Dir()))
		fmt.Println(DimStyle.Render("Drop .toml macro files there to get started."))
		return nil
	}

	fmt.Println(TitleStyle.Render("Macros"))
	fmt.Println(DimStyle.Render(store.Dir()))
	fmt.Println()
	for _, m := range macros {
		line := fmt.Sprintf("  %-20s %d steps", m.Name, len(m.Steps))
		if ph := m.Placeholders(); len(ph) > 0 {
			line += "  {" + strings.Join(ph, "} {") + "}"
		}
		fmt.Println(line)
		if m.Description != "" {
			fmt.Println(DimStyle.Render("    " + m.Description))
		}
	}
	return nil
}

func showMacro(store *macro.Store, parser *ArgParser, args Args) error {
	name := parser.Positional(0)
	if name == "" {
		return NewValidationError("macro", "",
			"usage: cockpit macros show <name>")
	}
	m, err := store.Load(name)
	if err != nil {
		return NewNotFoundError("macro", name)
	}

	if args.JSON {
		return NewJSONResponse("macros", m).Print()
	}

	fmt.Println(TitleStyle.Render(m.Name))
	if m.Description != "" {
		fmt.Println(DimStyle.Render(m.Description))
	}
	if ph := m.Placeholders(); len(ph) > 0 {
		fmt.Printf("placeholders: %s\n", strings.Join(ph, ", "))
	}
	fmt.Println()
	for i, step := range m.Steps {
		label := step.Name
		if label == "" {
			label = fmt.Sprintf("step %d", i+1)
		}
		fmt.Println(SectionStyle.Render(fmt.Sprintf("%d. %s", i+1, label)))
		if step.Mode != "" {
			fmt.Println(DimStyle.Render("   mode: " + step.Mode))
		}
		if step.Tool != "" {
			fmt.Println(DimStyle.Render("   tool: " + step.Tool))
		}
		fmt.Println("   " + util.TruncateRunes(step.Prompt, 100))
	}
	return nil
}

func runMacro(store *macro.Store, cfg *config.Config, parser *ArgParser, args Args) error {
	name := parser.Positional(0)
	if name == "" {
		return NewValidationError("macro", "",
			"usage: cockpit macros run <name> [key=value ...]")
	}
	m, err := store.Load(name)
	if err != nil {
		return NewNotFoundError("macro", name)
	}

	// Remaining positionals are placeholder bindings.
	macroArgs := make(map[string]string)
	for _, pair := range parser.PositionalFrom(1) {
		idx := strings.Index(pair, "=")
		if idx <= 0 {
			return NewValidationError("argument", pair,
				"placeholder bindings use key=value form")
		}
		macroArgs[pair[:idx]] = pair[idx+1:]
	}

	client := buildClient(cfg)
	sessionID := args.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	runner := macro.NewRunner(makeMacroSubmit(client, cfg, sessionID))
	if parser.BoolFlag("continue-on-error") {
		runner.SetContinueOnError(true)
	}
	if !args.JSON {
		runner.SetProgressCallback(func(step, total int, status string) {
			fmt.Printf("  [%d/%d] %s\n", step, total, status)
		})
		fmt.Printf("%s %s (%d steps, session %s)\n",
			TitleStyle.Render("Running"), m.Name, len(m.Steps), shortID(sessionID))
	}

	ctx, cancel := context.WithTimeout(context.Background(), macroRunTimeout)
	defer cancel()
	run, err := runner.Run(ctx, m, macroArgs)
	if err != nil {
		return WrapError("macros", "run", err)
	}

	if args.JSON {
		results := run.StepResults()
		steps := make([]map[string]interface{}, 0, len(results))
		for _, r := range results {
			entry := map[string]interface{}{
				"name":        r.Name,
				"status":      r.Status.String(),
				"request_id":  r.RequestID,
				"duration_ms": r.Duration().Milliseconds(),
			}
			if r.Err != nil {
				entry["error"] = r.Err.Error()
			}
			steps = append(steps, entry)
		}
		return NewJSONResponse("macros", map[string]interface{}{
			"macro":      run.Macro,
			"status":     run.CurrentStatus().String(),
			"session_id": sessionID,
			"steps":      steps,
		}).Print()
	}

	fmt.Println()
	if run.CurrentStatus() == macro.RunComplete {
		fmt.Println(SuccessStyle.Render(run.Summary()))
	} else {
		fmt.Println(ErrorStyle.Render(run.Summary()))
		for _, r := range run.StepResults() {
			if r.Err != nil {
				fmt.Println(DimStyle.Render("  " + r.Name + ": " + r.Err.Error()))
			}
		}
		return NewCommandError("macros", "run", fmt.Errorf("macro %s did not complete", m.Name))
	}
	return nil
}

// makeMacroSubmit builds the runner's submit function. Steps honor
// their own mode; direct steps stream to completion, queued steps
// poll history like ask does.
func makeMacroSubmit(client *api.Client, cfg *config.Config, sessionID string) macro.SubmitFunc {
	return func(ctx context.Context, step macro.Step) (string, string, error) {
		mode := api.ModeNormal
		if api.ValidChatMode(cfg.Orchestrator.DefaultMode) {
			mode = api.ChatMode(cfg.Orchestrator.DefaultMode)
		}
		if step.Mode != "" && api.ValidChatMode(step.Mode) {
			mode = api.ChatMode(step.Mode)
		}

		sub := api.SubmitRequest{
			SessionID:  sessionID,
			Prompt:     step.Prompt,
			ChatMode:   mode,
			ForcedTool: step.Tool,
		}

		if mode == api.ModeDirect {
			acc := api.NewStreamAccumulator()
			if err := client.SubmitStream(ctx, sub, acc.Add); err != nil {
				return "", "", err
			}
			if acc.Err != nil {
				return acc.RequestID, "", acc.Err
			}
			return acc.RequestID, acc.GetContent(), nil
		}
		return askQueued(ctx, client, sub)
	}
}
