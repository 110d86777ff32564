// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/peterh/liner"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/config"
)

// =============================================================================
// LINE EDITOR
// =============================================================================

// ChatCLI wraps the liner line editor with persistent input history.
// It backs the plain-terminal REPL for environments where the
// full-screen TUI is unwanted (ssh sessions, tmux panes, screen
// readers).
type ChatCLI struct {
	line        *liner.State
	historyPath string
}

// NewChatCLI creates a line editor with history loaded from the
// cockpit config directory.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	historyPath := ""
	if dir, err := config.ConfigDir(); err == nil {
		historyPath = filepath.Join(dir, "chat_history")
	}

	c := &ChatCLI{line: line, historyPath: historyPath}
	c.loadHistory()
	return c
}

func (c *ChatCLI) loadHistory() {
	if c.historyPath == "" {
		return
	}
	f, err := os.Open(c.historyPath)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.ReadHistory(f)
}

// SaveHistory persists input history for the next session.
func (c *ChatCLI) SaveHistory() {
	if c.historyPath == "" {
		return
	}
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// ReadInput prompts for one line, recording non-empty input into
// history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT REPL
// =============================================================================

func runChat(args Args) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := buildClient(cfg)

	mode, err := resolveMode(args, cfg)
	if err != nil {
		return err
	}
	sessionID := args.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	repl := NewChatCLI()
	defer repl.Close()

	fmt.Printf("%s %s\n", TitleStyle.Render("cockpit chat"), DimStyle.Render(Version))
	fmt.Printf("%s\n", DimStyle.Render(fmt.Sprintf("session %s  mode %s", shortID(sessionID), mode)))
	fmt.Printf("%s\n\n", DimStyle.Render("/help for commands, /quit or Ctrl+D to exit"))

	for {
		input, err := repl.ReadInput("> ")
		if errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println(DimStyle.Render("(interrupted, /quit to exit)"))
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return NewCommandError("chat", "read input", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, cmdErr := handleChatCommand(input, &mode, sessionID, client)
			if cmdErr != nil {
				fmt.Println(ErrorStyle.Render(cmdErr.Error()))
			}
			if quit {
				return nil
			}
			continue
		}

		if err := submitChatTurn(client, sessionID, mode, input); err != nil {
			fmt.Println(ErrorStyle.Render("error: " + err.Error()))
		}
		fmt.Println()
	}
}

// submitChatTurn sends one prompt and prints the answer. Direct mode
// streams deltas as they arrive; queued modes wait for completion and
// render the result as markdown.
func submitChatTurn(client *api.Client, sessionID string, mode api.ChatMode, prompt string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultAskTimeout)
	defer cancel()

	sub := api.SubmitRequest{
		SessionID: sessionID,
		Prompt:    prompt,
		ChatMode:  mode,
	}

	if mode == api.ModeDirect {
		acc := api.NewStreamAccumulator()
		err := client.SubmitStream(ctx, sub, func(chunk api.StreamChunk) {
			acc.Add(chunk)
			if chunk.Delta != "" {
				fmt.Print(chunk.Delta)
			}
		})
		if err != nil {
			return err
		}
		if acc.Err != nil {
			return acc.Err
		}
		if !strings.HasSuffix(acc.GetContent(), "\n") {
			fmt.Println()
		}
		return nil
	}

	_, response, err := askQueued(ctx, client, sub)
	if err != nil {
		return err
	}
	fmt.Print(renderMarkdown(response))
	return nil
}

// handleChatCommand processes REPL slash commands. Returns true when
// the REPL should exit.
func handleChatCommand(input string, mode *api.ChatMode, sessionID string, client *api.Client) (bool, error) {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/exit", "/q":
		return true, nil

	case "/help", "/?":
		printChatHelp()
		return false, nil

	case "/mode":
		if len(fields) < 2 {
			fmt.Printf("mode: %s\n", *mode)
			return false, nil
		}
		requested := strings.ToLower(fields[1])
		if !api.ValidChatMode(requested) {
			return false, fmt.Errorf("invalid mode %q (direct, normal, complex)", fields[1])
		}
		*mode = api.ChatMode(requested)
		fmt.Printf("mode set to %s\n", *mode)
		return false, nil

	case "/session":
		fmt.Println(sessionID)
		return false, nil

	case "/status":
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		health, err := client.Health(ctx)
		if err != nil {
			return false, err
		}
		line := fmt.Sprintf("orchestrator %s", health.Status)
		if q, err := client.Queue(ctx); err == nil {
			line += fmt.Sprintf("  queue depth %d active %d", q.Depth, q.Active)
			if q.Paused {
				line += "  (paused)"
			}
		}
		fmt.Println(line)
		return false, nil

	case "/clear":
		fmt.Print("\033[2J\033[H")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %s (try /help)", fields[0])
	}
}

func printChatHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /mode [m]   show or set chat mode (direct, normal, complex)")
	fmt.Println("  /status     quick orchestrator health check")
	fmt.Println("  /session    print the session id")
	fmt.Println("  /clear      clear the screen")
	fmt.Println("  /quit       exit the REPL")
}
