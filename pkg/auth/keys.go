// Package auth manages API keys for the external services the pipeline
// talks to. Keys are stored in the system keychain when available, an
// encrypted file otherwise, with environment variables as a read-only
// last resort.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Key is a stored API key for a named provider
type Key struct {
	Provider     string    `json:"provider"`
	APIKey       string    `json:"api_key"`
	LastModified time.Time `json:"last_modified"`
}

// KeyStore is the interface for storing and retrieving API keys
type KeyStore interface {
	Store(key *Key) error
	Retrieve(provider string) (*Key, error)
	Delete(provider string) error
	Exists(provider string) bool
}

// Manager resolves keys across storage backends in priority order
type Manager struct {
	stores []KeyStore
}

// NewManager builds the backend chain: keychain, encrypted file, environment
func NewManager() (*Manager, error) {
	var stores []KeyStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "keys.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores builds a manager over explicit backends
func NewManagerWithStores(stores ...KeyStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves a key to the first backend that accepts it
func (m *Manager) Store(key *Key) error {
	if key == nil || key.Provider == "" {
		return ErrInvalidKey
	}
	if key.APIKey == "" {
		return errors.New("api key is required")
	}

	key.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(key); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store key: %w", lastErr)
	}
	return errors.New("no available key stores")
}

// Retrieve returns the key from the first backend that has it
func (m *Manager) Retrieve(provider string) (*Key, error) {
	for _, store := range m.stores {
		if key, err := store.Retrieve(provider); err == nil && key != nil {
			return key, nil
		}
	}
	return nil, fmt.Errorf("no api key found for provider: %s", provider)
}

// Delete removes a key from every backend that has it
func (m *Manager) Delete(provider string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(provider); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete key: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("no api key found for provider: %s", provider)
	}
	return nil
}

// Exists reports whether any backend has a key for the provider
func (m *Manager) Exists(provider string) bool {
	for _, store := range m.stores {
		if store.Exists(provider) {
			return true
		}
	}
	return false
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "policypipe")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "policypipe")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "policypipe")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "policypipe")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// MaskKey masks all but the first 4 and last 4 characters of a key
func MaskKey(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrKeyNotFound      = errors.New("api key not found")
	ErrInvalidKey       = errors.New("invalid api key entry")
	ErrStoreUnavailable = errors.New("key store unavailable")
)
