package prefstore

import (
	"errors"
	"sync"
	"time"
)

var errMemoryDisabled = errors.New("storage disabled")

// MemoryStore keeps preferences for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	failing bool
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Fail makes every subsequent operation return ErrUnavailable until
// called again with false.
func (m *MemoryStore) Fail(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

// Get returns the value for key.
func (m *MemoryStore) Get(key string) (string, bool, error) {
	e, ok, err := m.Entry(key)
	return e.Value, ok, err
}

// Entry returns the value for key with its write time.
func (m *MemoryStore) Entry(key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failing {
		return Entry{}, false, unavailable("get", key, errMemoryDisabled)
	}
	e, ok := m.entries[key]
	return e, ok, nil
}

// Set stores value under key.
func (m *MemoryStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return unavailable("set", key, errMemoryDisabled)
	}
	m.entries[key] = Entry{Value: value, UpdatedAt: time.Now()}
	return nil
}

// Clear deletes key.
func (m *MemoryStore) Clear(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return unavailable("clear", key, errMemoryDisabled)
	}
	delete(m.entries, key)
	return nil
}
