// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jeranaias/cockpit-tui/internal/auth"
)

// =============================================================================
// AUTH COMMAND
// =============================================================================

// runAuth manages orchestrator tokens in the encrypted keystore.
//
//	cockpit auth                     show stored token hosts
//	cockpit auth login [--url u] [--token t]
//	cockpit auth logout [--url u]
func runAuth(args Args) error {
	parser := NewArgParser(args.Raw)
	switch parser.Subcommand() {
	case "", "status":
		return authStatus(args)
	case "login":
		return authLogin(parser, args)
	case "logout":
		return authLogout(parser, args)
	default:
		return NewValidationError("subcommand", parser.Subcommand(),
			"expected status, login, or logout")
	}
}

// mustKeystore opens the keystore or fails with a config error.
func mustKeystore() (*auth.Keystore, error) {
	dir, err := auth.DefaultDir()
	if err != nil {
		return nil, WrapError("auth", "locate keystore", err)
	}
	ks := auth.NewKeystore(dir)
	if err := ks.Unlock(); err != nil {
		return nil, WrapError("auth", "unlock keystore", err)
	}
	return ks, nil
}

func authStatus(args Args) error {
	ks, err := mustKeystore()
	if err != nil {
		return err
	}
	hosts := ks.Hosts()

	if args.JSON {
		return NewJSONResponse("auth", map[string]interface{}{
			"hosts": hosts,
			"count": len(hosts),
		}).Print()
	}

	if len(hosts) == 0 {
		fmt.Println(DimStyle.Render("No stored tokens. Use: cockpit auth login"))
		return nil
	}
	fmt.Println(TitleStyle.Render("Stored Tokens"))
	for _, host := range hosts {
		fmt.Println("  " + host)
	}
	return nil
}

func authLogin(parser *ArgParser, args Args) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rawURL := parser.FlagOrDefault("url", cfg.Orchestrator.URL)
	host := auth.NormalizeHost(rawURL)
	if host == "" {
		return NewValidationError("url", rawURL, "not a usable orchestrator URL")
	}

	token, _ := parser.Flag("token")
	if token == "" {
		token, err = promptToken(host)
		if err != nil {
			return err
		}
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return NewValidationError("token", "", "token cannot be empty")
	}

	ks, err := mustKeystore()
	if err != nil {
		return err
	}
	if err := ks.SetToken(host, token); err != nil {
		return WrapError("auth", "store token", err)
	}

	if args.JSON {
		return NewJSONResponse("auth", map[string]interface{}{
			"host":   host,
			"stored": true,
		}).Print()
	}
	fmt.Printf("%s token for %s\n", SuccessStyle.Render("Stored"), host)

	// Best-effort verification against the orchestrator.
	cfg.Orchestrator.URL = rawURL
	if quickHealthProbe(buildClient(cfg)) {
		fmt.Println(SuccessStyle.Render("Verified: orchestrator accepted the token"))
	} else {
		fmt.Println(WarningStyle.Render("Could not verify: orchestrator unreachable or token rejected"))
	}
	return nil
}

func authLogout(parser *ArgParser, args Args) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rawURL := parser.FlagOrDefault("url", cfg.Orchestrator.URL)
	host := auth.NormalizeHost(rawURL)

	ks, err := mustKeystore()
	if err != nil {
		return err
	}
	if _, err := ks.Token(host); err != nil {
		return NewNotFoundError("token", host)
	}
	if err := ks.DeleteToken(host); err != nil {
		return WrapError("auth", "delete token", err)
	}

	if args.JSON {
		return NewJSONResponse("auth", map[string]interface{}{
			"host":    host,
			"removed": true,
		}).Print()
	}
	fmt.Printf("%s token for %s\n", SuccessStyle.Render("Removed"), host)
	return nil
}

// promptToken reads a token without echo.
func promptToken(host string) (string, error) {
	if err := RequiresTTY("auth login"); err != nil {
		return "", fmt.Errorf("%w (or pass --token)", err)
	}
	fmt.Fprintf(os.Stderr, "Token for %s: ", host)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", NewCommandError("auth", "read token", err)
	}
	return string(raw), nil
}
