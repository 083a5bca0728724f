package auth

import (
	"os"
	"strings"
	"time"
)

// EnvironmentStore implements KeyStore over environment variables. It is
// read-only: keys come from <PROVIDER>_API_KEY (e.g. GEMINI_API_KEY).
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-backed key store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func envVarName(provider string) string {
	return strings.ToUpper(provider) + "_API_KEY"
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(key *Key) error {
	return ErrStoreUnavailable
}

// Retrieve reads the key from the provider's environment variable
func (e *EnvironmentStore) Retrieve(provider string) (*Key, error) {
	if provider == "" {
		return nil, ErrInvalidKey
	}

	apiKey := os.Getenv(envVarName(provider))
	if apiKey == "" {
		return nil, ErrKeyNotFound
	}

	return &Key{
		Provider:     provider,
		APIKey:       apiKey,
		LastModified: time.Now(),
	}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(provider string) error {
	return ErrStoreUnavailable
}

// Exists checks if the provider's environment variable is set
func (e *EnvironmentStore) Exists(provider string) bool {
	return provider != "" && os.Getenv(envVarName(provider)) != ""
}
