package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements TokenStore over GHMIRROR_TOKEN and
// GITHUB_TOKEN. It is read-only.
type EnvironmentStore struct {
	getenv func(string) string
}

// NewEnvironmentStore creates a new environment-based token store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{getenv: os.Getenv}
}

func (e *EnvironmentStore) Name() string {
	return "environment"
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(*Credential) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment token for any host
func (e *EnvironmentStore) Retrieve(host string) (*Credential, error) {
	token := e.getenv("GHMIRROR_TOKEN")
	if token == "" {
		token = e.getenv("GITHUB_TOKEN")
	}
	if token == "" {
		return nil, ErrTokenNotFound
	}

	return &Credential{
		Host:         host,
		Token:        token,
		LastModified: time.Now(),
	}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(string) error {
	return ErrStoreUnavailable
}
