package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestManagerStoreAndRetrieve(t *testing.T) {
	primary := newMockStore("primary")
	manager := NewManagerWithStores(primary)

	name, err := manager.Store(&Credential{Host: DefaultHost, Token: "  ghp_abcdef123456  "})
	require.NoError(t, err)
	assert.Equal(t, "primary", name)

	cred, source, err := manager.Retrieve(DefaultHost)
	require.NoError(t, err)
	assert.Equal(t, "primary", source)
	assert.Equal(t, "ghp_abcdef123456", cred.Token)
	assert.False(t, cred.LastModified.IsZero())

	require.NoError(t, manager.Delete(DefaultHost))
	assert.Equal(t, 0, primary.count())

	_, _, err = manager.Retrieve(DefaultHost)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.ErrorIs(t, manager.Delete(DefaultHost), ErrTokenNotFound)
}

func TestManagerStoreValidation(t *testing.T) {
	manager := NewManagerWithStores(newMockStore("primary"))

	_, err := manager.Store(&Credential{Token: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = manager.Store(&Credential{Host: DefaultHost, Token: "   "})
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = NewManagerWithStores().Store(&Credential{Host: DefaultHost, Token: "x"})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestManagerFallsBack(t *testing.T) {
	broken := newMockStore("broken")
	broken.StoreError = errors.New("keyring locked")
	fallback := newMockStore("fallback")
	manager := NewManagerWithStores(broken, fallback)

	name, err := manager.Store(&Credential{Host: DefaultHost, Token: "ghp_token"})
	require.NoError(t, err)
	assert.Equal(t, "fallback", name)

	broken.RetrieveError = errors.New("keyring locked")
	_, source, err := manager.Retrieve(DefaultHost)
	require.NoError(t, err)
	assert.Equal(t, "fallback", source)

	fallback.StoreError = errors.New("disk full")
	_, err = manager.Store(&Credential{Host: DefaultHost, Token: "ghp_token"})
	assert.ErrorContains(t, err, "disk full")
}

func TestManagerDeleteReportsFailures(t *testing.T) {
	store := newMockStore("primary")
	store.DeleteError = errors.New("permission denied")
	manager := NewManagerWithStores(store, &EnvironmentStore{getenv: func(string) string { return "" }})

	assert.ErrorContains(t, manager.Delete(DefaultHost), "permission denied")
}

func TestManagerResolve(t *testing.T) {
	store := newMockStore("primary")
	manager := NewManagerWithStores(store)

	token, source, err := manager.Resolve("ghp_flag", DefaultHost)
	require.NoError(t, err)
	assert.Equal(t, "ghp_flag", token)
	assert.Equal(t, "configuration", source)

	_, _, err = manager.Resolve("", DefaultHost)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	_, err = manager.Store(&Credential{Host: DefaultHost, Token: "ghp_stored"})
	require.NoError(t, err)
	token, source, err = manager.Resolve("", DefaultHost)
	require.NoError(t, err)
	assert.Equal(t, "ghp_stored", token)
	assert.Equal(t, "primary", source)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	_, err = store.Retrieve(DefaultHost)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, store.Store(&Credential{Host: DefaultHost, Token: "ghp_keyring"}))
	cred, err := store.Retrieve(DefaultHost)
	require.NoError(t, err)
	assert.Equal(t, "ghp_keyring", cred.Token)

	require.NoError(t, store.Delete(DefaultHost))
	assert.ErrorIs(t, store.Delete(DefaultHost), ErrTokenNotFound)

	assert.ErrorIs(t, store.Store(&Credential{}), ErrInvalidCredential)
	_, err = store.Retrieve("")
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestKeyringUnavailable(t *testing.T) {
	keyring.MockInitWithError(errors.New("no secret service"))
	t.Cleanup(keyring.MockInit)

	_, err := NewKeyringStore()
	assert.ErrorContains(t, err, "keyring not available")
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(PassphraseEnv, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "creds", "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())

	_, err = store.Retrieve(DefaultHost)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, store.Store(&Credential{Host: DefaultHost, Token: "ghp_secret_value"}))
	require.NoError(t, store.Store(&Credential{Host: "ghe.example.com", Token: "ghp_enterprise"}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "ghp_secret_value")

	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	cred, err := reopened.Retrieve(DefaultHost)
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret_value", cred.Token)

	require.NoError(t, reopened.Delete(DefaultHost))
	require.NoError(t, reopened.Delete("ghe.example.com"))
	assert.NoFileExists(t, path)
	assert.ErrorIs(t, reopened.Delete(DefaultHost), ErrTokenNotFound)
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()

	store, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	require.NoError(t, store.Store(&Credential{Host: DefaultHost, Token: "ghp_x"}))
	assert.FileExists(t, filepath.Join(dir, ".passphrase"))

	reopened, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	cred, err := reopened.Retrieve(DefaultHost)
	require.NoError(t, err)
	assert.Equal(t, "ghp_x", cred.Token)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(PassphraseEnv, "first")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Credential{Host: DefaultHost, Token: "ghp_x"}))

	t.Setenv(PassphraseEnv, "second")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve(DefaultHost)
	assert.ErrorContains(t, err, "failed to decrypt data")
}

func TestEnvironmentStore(t *testing.T) {
	env := map[string]string{}
	store := &EnvironmentStore{getenv: func(k string) string { return env[k] }}

	_, err := store.Retrieve(DefaultHost)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	env["GITHUB_TOKEN"] = "ghp_github"
	cred, err := store.Retrieve(DefaultHost)
	require.NoError(t, err)
	assert.Equal(t, "ghp_github", cred.Token)

	env["GHMIRROR_TOKEN"] = "ghp_mirror"
	cred, err = store.Retrieve(DefaultHost)
	require.NoError(t, err)
	assert.Equal(t, "ghp_mirror", cred.Token)

	assert.ErrorIs(t, store.Store(cred), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete(DefaultHost), ErrStoreUnavailable)
}

func TestHostFromEndpoint(t *testing.T) {
	assert.Equal(t, "api.github.com", HostFromEndpoint("https://api.github.com/graphql"))
	assert.Equal(t, "ghe.example.com", HostFromEndpoint("https://ghe.example.com/api/graphql"))
	assert.Equal(t, DefaultHost, HostFromEndpoint(""))
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "********", MaskToken("short"))
	assert.Equal(t, "ghp_...7890", MaskToken("ghp_abcdef1234567890"))
}
