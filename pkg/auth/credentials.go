package auth

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// DefaultHost is the credential key used for github.com
const DefaultHost = "api.github.com"

// Credential is an access token for one GitHub host
type Credential struct {
	Host         string    `json:"host"`
	Token        string    `json:"token"`
	LastModified time.Time `json:"last_modified"`
}

// TokenStore is the interface for storing and retrieving tokens
type TokenStore interface {
	// Name identifies the store in status output
	Name() string

	// Store saves the credential for its host
	Store(cred *Credential) error

	// Retrieve gets the credential for host
	Retrieve(host string) (*Credential, error)

	// Delete removes the credential for host
	Delete(host string) error
}

// Manager handles token storage with fallback stores
type Manager struct {
	stores []TokenStore
}

// NewManager creates a manager backed by the system keyring when it is
// available, an encrypted file in configDir and the environment
func NewManager(configDir string) (*Manager, error) {
	var stores []TokenStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over the given stores, tried in order
func NewManagerWithStores(stores ...TokenStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves the credential in the first store that accepts it and
// returns that store's name
func (m *Manager) Store(cred *Credential) (string, error) {
	if cred == nil || cred.Host == "" {
		return "", fmt.Errorf("%w: host is required", ErrInvalidCredential)
	}
	if strings.TrimSpace(cred.Token) == "" {
		return "", fmt.Errorf("%w: token is required", ErrInvalidCredential)
	}

	cred.Token = strings.TrimSpace(cred.Token)
	cred.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(cred)
		if err == nil {
			return store.Name(), nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return "", fmt.Errorf("failed to store token: %w", lastErr)
	}
	return "", ErrStoreUnavailable
}

// Retrieve gets the credential for host from the first store that has it,
// along with that store's name
func (m *Manager) Retrieve(host string) (*Credential, string, error) {
	for _, store := range m.stores {
		cred, err := store.Retrieve(host)
		if err == nil && cred != nil {
			return cred, store.Name(), nil
		}
	}
	return nil, "", fmt.Errorf("%w for %s", ErrTokenNotFound, host)
}

// Delete removes the credential for host from every writable store
func (m *Manager) Delete(host string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		err := store.Delete(host)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrTokenNotFound):
		default:
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to delete token: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w for %s", ErrTokenNotFound, host)
	}
	return nil
}

// Resolve returns configured when it is set, otherwise the stored token for
// host. The second result names where the token came from.
func (m *Manager) Resolve(configured, host string) (string, string, error) {
	if configured != "" {
		return configured, "configuration", nil
	}
	cred, source, err := m.Retrieve(host)
	if err != nil {
		return "", "", err
	}
	return cred.Token, source, nil
}

// HostFromEndpoint returns the credential key of a GraphQL endpoint
func HostFromEndpoint(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return DefaultHost
	}
	return u.Host
}

// ConfigDir returns the directory holding ghmirror credentials, creating it
// when needed
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "ghmirror")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "ghmirror")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "ghmirror")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "ghmirror")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// MaskToken masks all but the first 4 and last 4 characters of a token
func MaskToken(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrTokenNotFound     = errors.New("token not found")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrStoreUnavailable  = errors.New("token store unavailable")
)
