// Package settings is the portal-wide key-value configuration, such as
// the company name and logo shown above the explorers.
package settings

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"sync"
)

// Well-known keys.
const (
	KeyCompanyName = "company_name"
	KeyCompanyLogo = "company_logo"
)

var (
	ErrNotFound   = errors.New("setting not found")
	ErrInvalidKey = errors.New("setting keys are 1-64 characters of a-z, 0-9 and underscore")
)

var keyPattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// ValidKey reports whether key may be stored.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

// Store reads and writes settings.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) (map[string]string, error)
}

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates a store seeded with defaults.
func NewMemoryStore(defaults map[string]string) *MemoryStore {
	m := &MemoryStore{values: make(map[string]string, len(defaults))}
	for k, v := range defaults {
		m.values[k] = v
	}
	return m
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) All(_ context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

// Keys returns the keys of a settings map, sorted.
func Keys(all map[string]string) []string {
	out := make([]string, 0, len(all))
	for k := range all {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
