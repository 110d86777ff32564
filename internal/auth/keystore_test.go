// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// =============================================================================
// KEY DERIVATION TESTS
// =============================================================================

// TestAuth_KeyDerivation tests that PBKDF2 key derivation is deterministic.
func TestAuth_KeyDerivation(t *testing.T) {
	secret := []byte("machine_secret_0")
	salt := []byte("test_salt_value!")

	key1 := DeriveKey(secret, salt)
	key2 := DeriveKey(secret, salt)
	require.True(t, bytes.Equal(key1, key2), "Same secret/salt should derive same key")

	key3 := DeriveKey(secret, []byte("different_salt!!"))
	require.False(t, bytes.Equal(key1, key3), "Different salt should derive different key")
}

// TestAuth_KeyDerivationLength tests that derived keys are the correct length.
func TestAuth_KeyDerivationLength(t *testing.T) {
	key := DeriveKey([]byte("secret"), []byte("salt"))
	require.Equal(t, KeySize, len(key), "Derived key should be %d bytes (256 bits)", KeySize)
}

// =============================================================================
// KEYSTORE TESTS
// =============================================================================

// TestKeystore_UnlockFreshStartsEmpty tests first-use initialization.
func TestKeystore_UnlockFreshStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	ks := NewKeystore(dir)

	require.False(t, ks.IsUnlocked(), "New keystore should start locked")
	require.False(t, ks.Exists(), "Fresh keystore should have no token file")

	require.NoError(t, ks.Unlock())
	require.True(t, ks.IsUnlocked())
	require.Empty(t, ks.Hosts(), "Fresh keystore should hold no tokens")

	// Machine secret and salt must be created owner-only
	for _, name := range []string{secretFile, saltFile} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, "%s should exist after Unlock", name)
		require.Equal(t, os.FileMode(0600), info.Mode().Perm(), "%s permissions", name)
	}
}

// TestKeystore_SetGetRoundTrip tests storing and retrieving a token.
func TestKeystore_SetGetRoundTrip(t *testing.T) {
	ks := NewKeystore(t.TempDir())
	require.NoError(t, ks.Unlock())

	require.NoError(t, ks.SetToken("orchestrator.example:8090", "tok_abc123"))

	token, err := ks.Token("orchestrator.example:8090")
	require.NoError(t, err)
	require.Equal(t, "tok_abc123", token)

	// Host lookup is case-insensitive
	token, err = ks.Token("ORCHESTRATOR.EXAMPLE:8090")
	require.NoError(t, err)
	require.Equal(t, "tok_abc123", token)
}

// TestKeystore_PersistsAcrossInstances tests that tokens survive reopening.
func TestKeystore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	ks := NewKeystore(dir)
	require.NoError(t, ks.Unlock())
	require.NoError(t, ks.SetToken("host-a:8090", "tok_a"))
	require.NoError(t, ks.SetToken("host-b:8090", "tok_b"))
	ks.Lock()

	reopened := NewKeystore(dir)
	require.True(t, reopened.Exists(), "Token file should persist")
	require.NoError(t, reopened.Unlock())

	token, err := reopened.Token("host-a:8090")
	require.NoError(t, err)
	require.Equal(t, "tok_a", token)
	require.Equal(t, []string{"host-a:8090", "host-b:8090"}, reopened.Hosts())
}

// TestKeystore_TokenFileIsOpaque tests that the sealed file leaks nothing.
func TestKeystore_TokenFileIsOpaque(t *testing.T) {
	dir := t.TempDir()
	ks := NewKeystore(dir)
	require.NoError(t, ks.Unlock())
	require.NoError(t, ks.SetToken("host:8090", "visible-secret-token"))

	raw, err := os.ReadFile(filepath.Join(dir, tokensFile))
	require.NoError(t, err)
	require.NotContains(t, string(raw), "visible-secret-token",
		"Token must not appear in plaintext on disk")
	require.NotContains(t, string(raw), "host:8090",
		"Host must not appear in plaintext on disk")
}

// TestKeystore_DeleteToken tests token removal.
func TestKeystore_DeleteToken(t *testing.T) {
	ks := NewKeystore(t.TempDir())
	require.NoError(t, ks.Unlock())
	require.NoError(t, ks.SetToken("host:8090", "tok"))

	require.NoError(t, ks.DeleteToken("host:8090"))
	_, err := ks.Token("host:8090")
	require.ErrorIs(t, err, ErrTokenNotFound)

	// Deleting again is a no-op
	require.NoError(t, ks.DeleteToken("host:8090"))
}

// TestKeystore_LockedOperationsFail tests the locked-state guard.
func TestKeystore_LockedOperationsFail(t *testing.T) {
	ks := NewKeystore(t.TempDir())

	require.ErrorIs(t, ks.SetToken("host", "tok"), ErrLocked)
	_, err := ks.Token("host")
	require.ErrorIs(t, err, ErrLocked)
	require.ErrorIs(t, ks.DeleteToken("host"), ErrLocked)
}

// TestKeystore_TamperedFileFailsDecrypt tests GCM authentication.
func TestKeystore_TamperedFileFailsDecrypt(t *testing.T) {
	dir := t.TempDir()
	ks := NewKeystore(dir)
	require.NoError(t, ks.Unlock())
	require.NoError(t, ks.SetToken("host:8090", "tok"))
	ks.Lock()

	// Flip one ciphertext byte
	path := filepath.Join(dir, tokensFile)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0600))

	tampered := NewKeystore(dir)
	require.ErrorIs(t, tampered.Unlock(), ErrDecryptionFailed,
		"Tampered token file must fail authentication")
}

// TestKeystore_NormalizeHost tests URL to host-key reduction.
func TestKeystore_NormalizeHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://127.0.0.1:8090", "127.0.0.1:8090"},
		{"https://Orchestrator.Example:443", "orchestrator.example:443"},
		{"http://host.example", "host.example"},
		{"plain-host:8090", "plain-host:8090"},
		{"  Raw String  ", "raw string"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, NormalizeHost(tt.in), "NormalizeHost(%q)", tt.in)
	}
}

// TestKeystore_ResolveToken tests the config fallback chain.
func TestKeystore_ResolveToken(t *testing.T) {
	ks := NewKeystore(t.TempDir())
	require.NoError(t, ks.Unlock())
	require.NoError(t, ks.SetToken("127.0.0.1:8090", "keystore-token"))

	// Keystore wins over the fallback
	got := ResolveToken(ks, "http://127.0.0.1:8090", "config-token")
	require.Equal(t, "keystore-token", got)

	// Unknown host falls back
	got = ResolveToken(ks, "http://other-host:8090", "config-token")
	require.Equal(t, "config-token", got)

	// Nil keystore falls back
	got = ResolveToken(nil, "http://127.0.0.1:8090", "config-token")
	require.Equal(t, "config-token", got)
}

// TestKeystore_ZeroBytes tests the zeroing helper.
func TestKeystore_ZeroBytes(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	ZeroBytes(b)
	require.Equal(t, []byte{0, 0, 0, 0}, b)
}
