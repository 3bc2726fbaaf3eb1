package credential

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "taskchat"

// ErrNotFound is returned when a credential is absent from the keyring.
var ErrNotFound = keyring.ErrKeyNotFound

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/taskchat/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("taskchat-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Label: serviceName + " " + key,
		Data:  []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// EnvName maps a credential key to its environment variable:
// "gemini-api-key-2" becomes "GEMINI_API_KEY_2".
func EnvName(key string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(key))
}

// Lookup fetches one credential from a secret store.
type Lookup func(key string) (string, error)

// Resolve returns the value of key from the environment, falling back to
// get. Empty values count as absent.
func Resolve(key string, get Lookup) (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvName(key))); v != "" {
		return v, nil
	}
	if get == nil {
		return "", ErrNotFound
	}
	v, err := get(key)
	if err != nil {
		return "", err
	}
	if v = strings.TrimSpace(v); v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

// LoadAPIKeys resolves names in order and returns the keys that were found,
// keeping their order. Missing keys are skipped; other keyring failures are
// logged and skipped too, so one broken entry never hides the rest.
func LoadAPIKeys(names []string, logger *slog.Logger) []string {
	return loadKeys(names, Get, logger)
}

func loadKeys(names []string, get Lookup, logger *slog.Logger) []string {
	keys := make([]string, 0, len(names))
	for _, name := range names {
		v, err := Resolve(name, get)
		if err != nil {
			if !errors.Is(err, ErrNotFound) && logger != nil {
				logger.Warn("credential lookup failed", "key", name, "error", err)
			}
			continue
		}
		keys = append(keys, v)
	}
	return keys
}
