// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth stores orchestrator API tokens encrypted at rest.
//
// Tokens are kept in a small machine-scoped keystore under ~/.cockpit:
// a random machine secret is stretched with PBKDF2-SHA-256 and the token
// map is sealed with AES-256-GCM. The keystore is not a substitute for a
// real secret manager; it keeps tokens out of plaintext config files and
// shell history.
//
// # Key Types
//
//   - Keystore: Encrypted host -> token store
//
// # Usage
//
//	ks := auth.NewKeystore(dir)
//	if err := ks.Unlock(); err != nil {
//	    return err
//	}
//	token, err := ks.Token("orchestrator.example:8090")
package auth
