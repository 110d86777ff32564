// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/cockpit-tui/internal/config"
)

// =============================================================================
// CONFIG COMMAND
// =============================================================================

// runConfig inspects and edits the cockpit configuration.
//
//	cockpit config show              full config (token redacted)
//	cockpit config get ui.theme
//	cockpit config set ui.theme light
//	cockpit config path
//	cockpit config keys
func runConfig(args Args) error {
	switch args.Subcommand {
	case "show", "":
		return configShow(args)
	case "get":
		return configGet(args)
	case "set":
		return configSet(args)
	case "path":
		return configPath(args)
	case "keys":
		return configKeys(args)
	default:
		return NewValidationError("subcommand", args.Subcommand,
			"expected show, get, set, path, or keys")
	}
}

func configShow(args Args) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if args.JSON {
		return NewJSONResponse("config", cfg).Print()
	}
	fmt.Print(cfg.String())
	return nil
}

func configGet(args Args) error {
	if args.ConfigKey == "" {
		return NewValidationError("key", "",
			"usage: cockpit config get <key> (see: cockpit config keys)")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	value, err := cfg.Get(args.ConfigKey)
	if err != nil {
		return NewValidationError("key", args.ConfigKey, err.Error())
	}

	if args.JSON {
		return NewJSONResponse("config", map[string]interface{}{
			"key":   args.ConfigKey,
			"value": value,
		}).Print()
	}
	fmt.Printf("%v\n", value)
	return nil
}

func configSet(args Args) error {
	if args.ConfigKey == "" || args.ConfigValue == "" {
		return NewValidationError("arguments", "",
			"usage: cockpit config set <key> <value>")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Accept yes/no and on/off where the field is a boolean.
	value := args.ConfigValue
	if cur, getErr := cfg.Get(args.ConfigKey); getErr == nil && isBool(cur) {
		if b, perr := ParseBoolString(value); perr == nil {
			value = fmt.Sprintf("%t", b)
		}
	}

	if err := cfg.Set(args.ConfigKey, value); err != nil {
		return NewValidationError("value", args.ConfigValue, err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return WrapError("config", "validate", err)
	}
	if err := config.Save(cfg); err != nil {
		return WrapError("config", "save", err)
	}

	if args.JSON {
		return NewJSONResponse("config", map[string]interface{}{
			"key":   args.ConfigKey,
			"value": value,
			"saved": true,
		}).Print()
	}
	fmt.Printf("%s %s = %s\n", SuccessStyle.Render("Set"), args.ConfigKey, value)
	return nil
}

func configPath(args Args) error {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return WrapError("config", "resolve path", err)
	}
	if args.JSON {
		return NewJSONResponse("config", map[string]string{"path": path}).Print()
	}
	fmt.Println(path)
	return nil
}

func configKeys(args Args) error {
	keys := config.GetAllKeys()
	if args.JSON {
		return NewJSONResponse("config", map[string]interface{}{
			"keys":  keys,
			"count": len(keys),
		}).Print()
	}
	fmt.Println(strings.Join(keys, "\n"))
	return nil
}

func isBool(v interface{}) bool {
	_, ok := v.(bool)
	return ok
}
