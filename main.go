// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command cockpit is a terminal console for the agent orchestrator.
// Run without arguments for the full-screen TUI, or see `cockpit help`
// for the one-shot commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/cockpit-tui/internal/api"
	"github.com/jeranaias/cockpit-tui/internal/auth"
	"github.com/jeranaias/cockpit-tui/internal/cli"
	"github.com/jeranaias/cockpit-tui/internal/config"
	"github.com/jeranaias/cockpit-tui/internal/events"
	"github.com/jeranaias/cockpit-tui/internal/history"
	"github.com/jeranaias/cockpit-tui/internal/logging"
	"github.com/jeranaias/cockpit-tui/internal/macro"
	"github.com/jeranaias/cockpit-tui/internal/queue"
	"github.com/jeranaias/cockpit-tui/internal/server"
	"github.com/jeranaias/cockpit-tui/internal/session"
	"github.com/jeranaias/cockpit-tui/internal/telemetry"
	"github.com/jeranaias/cockpit-tui/internal/track"
	"github.com/jeranaias/cockpit-tui/internal/ui/chat"
)

// Build metadata, injected via ldflags.
var (
	version   = "0.3.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = gitCommit
	cli.BuildDate = buildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdAsk:
		cli.HandleAsk(args)
	case cli.CmdChat:
		cli.HandleChat(args)
	case cli.CmdStatus:
		cli.HandleStatus(args)
	case cli.CmdStats:
		cli.HandleStats(args)
	case cli.CmdSessions:
		cli.HandleSessions(args)
	case cli.CmdMacros:
		cli.HandleMacros(args)
	case cli.CmdAuth:
		cli.HandleAuth(args)
	case cli.CmdConfig:
		cli.HandleConfig(args)
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp(args)
	case cli.CmdDemo:
		runDemo(args)
	default:
		runTUI(args, "")
	}
}

// =============================================================================
// TUI BOOTSTRAP
// =============================================================================

// runTUI wires every subsystem together and runs the full-screen
// program. urlOverride, when non-empty, replaces the configured
// orchestrator URL (used by demo mode).
func runTUI(args cli.Args, urlOverride string) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitConfigError)
	}
	if urlOverride != "" {
		cfg.Orchestrator.URL = urlOverride
	}

	// Logs go to a file; stderr belongs to the alternate screen.
	if dir, err := config.ConfigDir(); err == nil {
		level := "info"
		if args.Verbose {
			level = "debug"
		}
		if err := logging.Init(filepath.Join(dir, "cockpit.log"), level, "text"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
		}
	}
	logging.Infof("cockpit %s starting, orchestrator %s", version, cfg.Orchestrator.URL)

	clientCfg := api.ClientConfig{
		BaseURL:      cfg.Orchestrator.URL,
		Token:        resolveToken(cfg),
		Timeout:      cfg.Timeout(),
		HistoryLimit: cfg.Orchestrator.HistoryLimit,
	}
	if api.ValidChatMode(cfg.Orchestrator.DefaultMode) {
		clientCfg.DefaultMode = api.ChatMode(cfg.Orchestrator.DefaultMode)
	}
	client := api.NewClientWithConfig(&clientCfg)

	tracker := track.New()
	board := queue.NewBoard(cfg.Queue.MaxHistory)

	sess := session.NewManagerForSession(args.SessionID, session.Config{
		IdleWarnAfter: time.Duration(cfg.Session.IdleWarnMinutes) * time.Minute,
		FlushEnabled:  cfg.Session.FlushIntervalSecs > 0,
		FlushInterval: time.Duration(cfg.Session.FlushIntervalSecs) * time.Second,
	})

	var archive *telemetry.Archive
	if cfg.Telemetry.Enabled && cfg.Telemetry.ArchiveEnabled {
		if path, err := cfg.ResolvedArchivePath(); err == nil {
			archive, err = telemetry.OpenArchive(path)
			if err != nil {
				logging.Warnf("archive disabled: %v", err)
				archive = nil
			}
		}
	}
	if archive != nil && cfg.Telemetry.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -cfg.Telemetry.RetentionDays)
		if err := archive.DeleteBefore(cutoff); err != nil {
			logging.Warnf("archive retention sweep failed: %v", err)
		}
	}
	latency := telemetry.NewLatencyTracker(archive)

	macroDir, err := cfg.ResolvedMacroDir()
	if err != nil {
		macroDir = "macros"
	}
	macros := macro.NewStore(macroDir)

	cache := openSessionCache()

	buffers := chat.NewStreamBufferWithConfig(15, cfg.UI.StreamFPS)
	streamer := chat.NewStreamer(client, tracker, buffers)

	model := chat.New(chat.Deps{
		Config:   cfg,
		Client:   client,
		Tracker:  tracker,
		Board:    board,
		Session:  sess,
		Latency:  latency,
		Macros:   macros,
		Cache:    cache,
		Streamer: streamer,
		Buffers:  buffers,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	streamer.SetProgram(p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Events.Enabled {
		feed := events.NewFeed(&clientCfg, sess.SessionID())
		pump := chat.NewFeedPump(p)
		go pump.Run(ctx, feed)
	}

	var watcher *config.Watcher
	if path, err := config.ConfigPathTOML(); err == nil {
		watcher, err = config.NewWatcher(path, func(reloaded *config.Config) {
			p.Send(chat.ConfigReloadedMsg{Config: reloaded})
		})
		if err == nil {
			if err := watcher.Watch(); err != nil {
				logging.Warnf("config watch failed: %v", err)
			}
		}
	}

	_, runErr := p.Run()

	cancel()
	if watcher != nil {
		watcher.Close()
	}
	if archive != nil {
		archive.Close()
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}

// resolveToken prefers the keystore over the config file token.
func resolveToken(cfg *config.Config) string {
	dir, err := auth.DefaultDir()
	if err != nil {
		return cfg.Orchestrator.Token
	}
	ks := auth.NewKeystore(dir)
	if err := ks.Unlock(); err != nil {
		logging.Debugf("keystore unlock failed: %v", err)
		return cfg.Orchestrator.Token
	}
	return auth.ResolveToken(ks, cfg.Orchestrator.URL, cfg.Orchestrator.Token)
}

// openSessionCache backs the session cache with files under the
// config directory, falling back to memory when that fails.
func openSessionCache() *history.SessionCache {
	dir, err := config.ConfigDir()
	if err != nil {
		return history.NewSessionCache(history.NewMemCache())
	}
	return history.NewSessionCache(history.NewFileCache(filepath.Join(dir, "cache")))
}

// =============================================================================
// DEMO MODE
// =============================================================================

// runDemo starts the stub orchestrator and either serves headless or
// points the TUI at it.
func runDemo(args cli.Args) {
	srv := server.NewServer(args.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	url := fmt.Sprintf("http://127.0.0.1:%d", srv.Port())
	if err := waitForServer(url, errCh); err != nil {
		fmt.Fprintf(os.Stderr, "Error: demo orchestrator failed to start: %v\n", err)
		os.Exit(1)
	}

	if args.Headless {
		fmt.Printf("Demo orchestrator listening on %s (Ctrl+C to stop)\n", url)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sigCh:
		case err := <-errCh:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	} else {
		runTUI(args, url)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: demo shutdown: %v\n", err)
	}
}

// waitForServer polls until the stub orchestrator answers.
func waitForServer(url string, errCh <-chan error) error {
	client := api.NewClientWithConfig(&api.ClientConfig{BaseURL: url, Timeout: time.Second})
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case err := <-errCh:
			return err
		default:
		}
		ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
		err := client.CheckHealth(ctx)
		cancel()
		if err == nil {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("no response from %s", url)
}
