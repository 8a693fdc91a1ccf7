package pin

import (
	"context"
	"sync"
)

// MemoryStore keeps credentials in process memory. It backs tests and
// servers running without a database.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[string]Credential
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creds: make(map[string]Credential)}
}

func (m *MemoryStore) Credential(_ context.Context, userID string) (Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds[userID], nil
}

func (m *MemoryStore) SaveCredential(_ context.Context, userID string, c Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.LockedUntil != nil {
		t := *c.LockedUntil
		c.LockedUntil = &t
	}
	m.creds[userID] = c
	return nil
}

func (m *MemoryStore) ResetCredentials(_ context.Context, userIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range userIDs {
		delete(m.creds, id)
	}
	return nil
}
