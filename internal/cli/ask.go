// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/config"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer renders answers for TTY output. nil when glamour
// could not initialize; output falls back to raw text.
var markdownRenderer *glamour.TermRenderer

func init() {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err == nil {
		markdownRenderer = r
	}
}

// renderMarkdown renders content as terminal markdown, returning the
// raw content when rendering is unavailable or fails.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	out, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return out
}

// =============================================================================
// CONTEXT GATHERING
// =============================================================================

// maxContextFileSize caps file and stdin context at 50KB so a stray
// binary doesn't blow up the prompt.
const maxContextFileSize = 50 * 1024

// readFileForContext reads a file and wraps it in a labeled block for
// inclusion in the prompt.
func readFileForContext(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", NewCommandError("ask", "read file", err)
	}
	if info.Size() > maxContextFileSize {
		return "", NewValidationError("file", path,
			fmt.Sprintf("larger than %dKB limit", maxContextFileSize/1024))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", NewCommandError("ask", "read file", err)
	}
	return fmt.Sprintf("--- File: %s ---\n%s\n--- End File ---",
		filepath.Base(path), strings.TrimRight(string(data), "\n")), nil
}

// readPipedStdin returns piped stdin content, or empty string when
// stdin is a terminal.
func readPipedStdin() string {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return ""
	}
	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(os.Stdin, maxContextFileSize))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// buildPrompt assembles the question plus any file or stdin context.
func buildPrompt(args Args) (string, error) {
	question := strings.TrimSpace(args.Query)
	piped := readPipedStdin()

	// A bare `cockpit ask` with piped input treats the pipe as the
	// question itself.
	if question == "" && piped != "" {
		question = piped
		piped = ""
	}
	if question == "" {
		return "", NewValidationError("question", "",
			`usage: cockpit ask "your question"`)
	}

	parts := []string{question}
	if args.File != "" {
		block, err := readFileForContext(args.File)
		if err != nil {
			return "", err
		}
		parts = append(parts, block)
	}
	if piped != "" {
		parts = append(parts, fmt.Sprintf("--- Context ---\n%s\n--- End Context ---", piped))
	}
	return strings.Join(parts, "\n\n"), nil
}

// =============================================================================
// ASK COMMAND
// =============================================================================

// defaultAskTimeout bounds how long ask waits for a queued request.
const defaultAskTimeout = 120 * time.Second

// resolveMode picks the chat mode from the flag or config default.
func resolveMode(args Args, cfg *config.Config) (api.ChatMode, error) {
	if args.Mode != "" {
		if !api.ValidChatMode(args.Mode) {
			return "", NewValidationError("mode", args.Mode,
				"must be direct, normal, or complex")
		}
		return api.ChatMode(args.Mode), nil
	}
	if api.ValidChatMode(cfg.Orchestrator.DefaultMode) {
		return api.ChatMode(cfg.Orchestrator.DefaultMode), nil
	}
	return api.ModeNormal, nil
}

func runAsk(args Args) error {
	prompt, err := buildPrompt(args)
	if err != nil {
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

	timeout := defaultAskTimeout
	if args.TimeoutSecs > 0 {
		timeout = time.Duration(args.TimeoutSecs) * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sub := api.SubmitRequest{
		SessionID:      sessionID,
		Prompt:         prompt,
		ChatMode:       mode,
		ForcedTool:     args.Tool,
		ForcedProvider: args.Provider,
	}

	start := time.Now()
	var requestID, response string

	if mode == api.ModeDirect {
		requestID, response, err = askDirect(ctx, client, sub, args)
	} else {
		requestID, response, err = askQueued(ctx, client, sub)
	}
	if err != nil {
		return err
	}
	durationMs := time.Since(start).Milliseconds()

	if args.JSON {
		return NewJSONResponse("ask", AskData{
			RequestID:  requestID,
			SessionID:  sessionID,
			Prompt:     args.Query,
			Response:   response,
			Status:     string(api.StatusCompleted),
			ChatMode:   string(mode),
			DurationMs: durationMs,
		}).Print()
	}

	// Direct mode already streamed the raw answer for pipes; TTY output
	// is rendered in full at the end either way.
	useMarkdown := IsStdoutTTY() && !args.Plain
	if useMarkdown {
		fmt.Print(renderMarkdown(response))
	} else if mode != api.ModeDirect {
		fmt.Println(response)
	}

	if IsStderrTTY() {
		StderrPrintln(DimStyle.Render(strings.Repeat("─", 45)))
		StderrPrintln(DimStyle.Render(fmt.Sprintf("request %s  mode %s  %s",
			shortID(requestID), mode, formatMs(durationMs))))
	}
	return nil
}

// askDirect streams the answer over the direct path. For non-TTY
// output deltas go straight to stdout as they arrive; for TTY the
// full answer is collected and rendered by the caller.
func askDirect(ctx context.Context, client *api.Client, sub api.SubmitRequest, args Args) (string, string, error) {
	streamRaw := !args.JSON && (!IsStdoutTTY() || args.Plain)

	acc := api.NewStreamAccumulator()
	err := client.SubmitStream(ctx, sub, func(chunk api.StreamChunk) {
		acc.Add(chunk)
		if streamRaw && chunk.Delta != "" {
			fmt.Print(chunk.Delta)
		}
	})
	if err != nil {
		return "", "", WrapError("ask", "stream", err)
	}
	if acc.Err != nil {
		return acc.RequestID, "", WrapError("ask", "stream", acc.Err)
	}

	content := acc.GetContent()
	if streamRaw && !strings.HasSuffix(content, "\n") {
		fmt.Println()
	}
	return acc.RequestID, content, nil
}

// askQueued submits through the queue and polls history until the
// request reaches a terminal status.
func askQueued(ctx context.Context, client *api.Client, sub api.SubmitRequest) (string, string, error) {
	resp, err := client.Submit(ctx, sub)
	if err != nil {
		return "", "", WrapError("ask", "submit", err)
	}

	if IsStderrTTY() {
		StderrPrintln(DimStyle.Render(fmt.Sprintf("queued as %s, waiting...", shortID(resp.RequestID))))
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return resp.RequestID, "", NewCommandError("ask", "wait", ctx.Err())
		case <-ticker.C:
		}

		records, err := client.History(ctx, sub.SessionID, 20)
		if err != nil {
			// Transient poll failures shouldn't abort the wait.
			continue
		}
		for _, rec := range records {
			if rec.RequestID != resp.RequestID || !rec.Status.IsTerminal() {
				continue
			}
			if rec.Status == api.StatusCompleted {
				return rec.RequestID, rec.Response, nil
			}
			reason := rec.Error
			if reason == "" {
				reason = string(rec.Status)
			}
			return rec.RequestID, "", NewCommandError("ask", "request", fmt.Errorf("%s", reason))
		}
	}
}

// shortID abbreviates a request id for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
