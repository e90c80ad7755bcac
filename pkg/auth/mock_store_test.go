package auth

import (
	"sync"
)

// mockStore implements TokenStore in memory with error injection
type mockStore struct {
	name  string
	creds map[string]Credential
	mu    sync.Mutex

	StoreError    error
	RetrieveError error
	DeleteError   error
}

func newMockStore(name string) *mockStore {
	return &mockStore{name: name, creds: make(map[string]Credential)}
}

func (m *mockStore) Name() string { return m.name }

func (m *mockStore) Store(cred *Credential) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[cred.Host] = *cred
	return nil
}

func (m *mockStore) Retrieve(host string) (*Credential, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.creds[host]
	if !ok {
		return nil, ErrTokenNotFound
	}
	return &cred, nil
}

func (m *mockStore) Delete(host string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.creds[host]; !ok {
		return ErrTokenNotFound
	}
	delete(m.creds, host)
	return nil
}

func (m *mockStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.creds)
}
