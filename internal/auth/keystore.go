// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	"github.com/jeranaias/cockpit-tui/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// NonceSize is the size of the nonce/IV for AES-GCM (12 bytes / 96 bits)
const NonceSize = 12

// KeySize is the size of the AES-256 key (32 bytes / 256 bits)
const KeySize = 32

// SaltSize is the size of the salt for key derivation (32 bytes)
const SaltSize = 32

// PBKDF2Iterations is the number of iterations for PBKDF2 key derivation.
// OWASP 2023 recommends 600,000+ for PBKDF2-SHA-256 to provide adequate
// resistance against brute-force attacks with modern hardware.
const PBKDF2Iterations = 600000

// Keystore file names under the base directory.
const (
	secretFile = "keystore.key"
	saltFile   = "keystore.salt"
	tokensFile = "tokens.enc"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrLocked indicates the keystore has not been unlocked
	ErrLocked = errors.New("keystore is locked: call Unlock first")
	// ErrInvalidCiphertext indicates the ciphertext format is invalid
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
	// ErrDecryptionFailed indicates decryption failed (wrong key or tampered data)
	ErrDecryptionFailed = errors.New("decryption failed: authentication tag mismatch")
	// ErrTokenNotFound indicates no token is stored for the host
	ErrTokenNotFound = errors.New("no token stored for host")
)

// =============================================================================
// HELPERS
// =============================================================================

// ZeroBytes securely zeros sensitive byte slices to prevent memory disclosure.
// SECURITY: Zero key material to prevent memory disclosure via crash dumps.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// GenerateSalt generates a cryptographically secure random salt.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey derives an encryption key from a secret and salt using PBKDF2-SHA-256.
func DeriveKey(secret, salt []byte) []byte {
	return pbkdf2.Key(secret, salt, PBKDF2Iterations, KeySize, sha256.New)
}

// NormalizeHost reduces an orchestrator URL to its keystore host key.
// Falls back to the raw string when it does not parse as a URL.
func NormalizeHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSpace(rawURL))
	}
	return strings.ToLower(u.Host)
}

// DefaultDir returns the default keystore directory (~/.cockpit).
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".cockpit"), nil
}

// =============================================================================
// KEYSTORE
// =============================================================================

// Keystore is an encrypted host -> token store. The machine secret and
// salt live next to the sealed token file; all three are owner-only.
type Keystore struct {
	dir string

	mu           sync.RWMutex
	cipher       cipher.AEAD
	tokens       map[string]string
	nonceCounter uint64
}

// NewKeystore creates a keystore rooted at dir. The store starts locked.
func NewKeystore(dir string) *Keystore {
	return &Keystore{dir: dir}
}

// Exists reports whether a sealed token file is present.
func (k *Keystore) Exists() bool {
	_, err := os.Stat(filepath.Join(k.dir, tokensFile))
	return err == nil
}

// IsUnlocked reports whether the keystore is ready for use.
func (k *Keystore) IsUnlocked() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.cipher != nil
}

// Unlock derives the encryption key and loads the token map. On first
// use the machine secret and salt are generated and the store starts
// empty.
func (k *Keystore) Unlock() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	secret, err := k.loadOrCreateSecret()
	if err != nil {
		return err
	}
	// SECURITY: Zero key material to prevent memory disclosure
	defer ZeroBytes(secret)

	salt, err := k.loadOrCreateSalt()
	if err != nil {
		return err
	}

	key := DeriveKey(secret, salt)
	defer ZeroBytes(key)

	if err := k.initCipher(key); err != nil {
		return err
	}

	return k.loadTokensLocked()
}

// Lock discards the cipher and in-memory tokens.
func (k *Keystore) Lock() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.cipher = nil
	k.tokens = nil
}

// loadOrCreateSecret reads the machine secret, generating one on first use.
func (k *Keystore) loadOrCreateSecret() ([]byte, error) {
	path := filepath.Join(k.dir, secretFile)

	secret, err := os.ReadFile(path)
	if err == nil {
		if len(secret) != KeySize {
			return nil, fmt.Errorf("machine secret has wrong size: %d", len(secret))
		}
		return secret, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read machine secret: %w", err)
	}

	secret = make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return nil, fmt.Errorf("failed to generate machine secret: %w", err)
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFileWithDir(path, secret, 0600, 0700); err != nil {
		return nil, fmt.Errorf("failed to save machine secret: %w", err)
	}
	return secret, nil
}

// loadOrCreateSalt reads the derivation salt, generating one on first use.
func (k *Keystore) loadOrCreateSalt() ([]byte, error) {
	path := filepath.Join(k.dir, saltFile)

	salt, err := os.ReadFile(path)
	if err == nil {
		if len(salt) != SaltSize {
			return nil, fmt.Errorf("salt has wrong size: %d", len(salt))
		}
		return salt, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read salt: %w", err)
	}

	salt, err = GenerateSalt()
	if err != nil {
		return nil, err
	}

	if err := util.AtomicWriteFileWithDir(path, salt, 0600, 0700); err != nil {
		return nil, fmt.Errorf("failed to save salt: %w", err)
	}
	return salt, nil
}

// initCipher initializes the AES-GCM cipher with the given key.
func (k *Keystore) initCipher(key []byte) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("failed to create GCM cipher: %w", err)
	}

	k.cipher = gcm
	return nil
}

// loadTokensLocked decrypts the token file into memory. A missing file
// means an empty store. Callers hold k.mu.
func (k *Keystore) loadTokensLocked() error {
	path := filepath.Join(k.dir, tokensFile)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		k.tokens = make(map[string]string)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read token file: %w", err)
	}

	plaintext, err := k.decryptLocked(data)
	if err != nil {
		return err
	}
	defer ZeroBytes(plaintext)

	tokens := make(map[string]string)
	if err := json.Unmarshal(plaintext, &tokens); err != nil {
		return fmt.Errorf("failed to decode token map: %w", err)
	}
	k.tokens = tokens
	return nil
}

// saveTokensLocked encrypts and persists the token map. Callers hold k.mu.
func (k *Keystore) saveTokensLocked() error {
	plaintext, err := json.Marshal(k.tokens)
	if err != nil {
		return fmt.Errorf("failed to encode token map: %w", err)
	}
	defer ZeroBytes(plaintext)

	ciphertext, err := k.encryptLocked(plaintext)
	if err != nil {
		return err
	}

	path := filepath.Join(k.dir, tokensFile)
	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFileWithDir(path, ciphertext, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// =============================================================================
// ENCRYPTION OPERATIONS
// =============================================================================

// generateNonceLocked builds a unique nonce from a counter plus random
// tail. The counter ensures uniqueness within a process; the random part
// ensures unpredictability across restarts. Callers hold k.mu.
func (k *Keystore) generateNonceLocked() ([]byte, error) {
	nonce := make([]byte, NonceSize)

	k.nonceCounter++
	for i := 0; i < 8; i++ {
		nonce[i] = byte(k.nonceCounter >> (i * 8))
	}

	if _, err := io.ReadFull(rand.Reader, nonce[8:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, nil
}

// encryptLocked seals plaintext as nonce || ciphertext || tag. Callers hold k.mu.
func (k *Keystore) encryptLocked(plaintext []byte) ([]byte, error) {
	if k.cipher == nil {
		return nil, ErrLocked
	}

	nonce, err := k.generateNonceLocked()
	if err != nil {
		return nil, err
	}

	return k.cipher.Seal(nonce, nonce, plaintext, nil), nil
}

// decryptLocked opens nonce || ciphertext || tag. Callers hold k.mu.
func (k *Keystore) decryptLocked(ciphertext []byte) ([]byte, error) {
	if k.cipher == nil {
		return nil, ErrLocked
	}
	if len(ciphertext) < NonceSize {
		return nil, ErrInvalidCiphertext
	}

	nonce := ciphertext[:NonceSize]
	plaintext, err := k.cipher.Open(nil, nonce, ciphertext[NonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// =============================================================================
// TOKEN OPERATIONS
// =============================================================================

// SetToken stores a token for a host and persists the keystore.
func (k *Keystore) SetToken(host, token string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.cipher == nil {
		return ErrLocked
	}
	if host == "" {
		return errors.New("host cannot be empty")
	}

	k.tokens[strings.ToLower(host)] = token
	return k.saveTokensLocked()
}

// Token returns the stored token for a host.
func (k *Keystore) Token(host string) (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.cipher == nil {
		return "", ErrLocked
	}

	token, ok := k.tokens[strings.ToLower(host)]
	if !ok {
		return "", ErrTokenNotFound
	}
	return token, nil
}

// DeleteToken removes the token for a host and persists the keystore.
// Deleting an absent host is a no-op.
func (k *Keystore) DeleteToken(host string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.cipher == nil {
		return ErrLocked
	}

	host = strings.ToLower(host)
	if _, ok := k.tokens[host]; !ok {
		return nil
	}
	delete(k.tokens, host)
	return k.saveTokensLocked()
}

// Hosts returns the hosts with stored tokens, sorted.
func (k *Keystore) Hosts() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()

	hosts := make([]string, 0, len(k.tokens))
	for host := range k.tokens {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}

// ResolveToken returns the token to use for an orchestrator URL. The
// keystore wins over the config fallback; a locked or empty keystore
// falls through silently.
func ResolveToken(ks *Keystore, rawURL, fallback string) string {
	if ks != nil {
		if token, err := ks.Token(NormalizeHost(rawURL)); err == nil && token != "" {
			return token
		}
	}
	return fallback
}
