package storage

import (
	"context"
	"sync"
)

type memoryEntry struct {
	value   string
	version int64
}

// Memory is an in-memory Store implementation for tests and development.
type Memory struct {
	mu   sync.RWMutex
	data map[string]memoryEntry
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]memoryEntry)}
}

// Get returns the value for key, or ErrNotFound.
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return e.value, nil
}

// GetVersioned returns the value and its version; a missing key yields ("", 0, nil).
func (m *Memory) GetVersioned(_ context.Context, key string) (string, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.data[key]
	if !ok {
		return "", 0, nil
	}
	return e.value, e.version, nil
}

// Set writes the value unconditionally, bumping the version.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.data[key]
	m.data[key] = memoryEntry{value: value, version: e.version + 1}
	return nil
}

// SetVersioned writes the value only if the stored version equals expect.
func (m *Memory) SetVersioned(_ context.Context, key, value string, expect int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[key]
	if !ok {
		if expect != 0 {
			return ErrVersionConflict
		}
		m.data[key] = memoryEntry{value: value, version: 1}
		return nil
	}
	if e.version != expect {
		return ErrVersionConflict
	}
	m.data[key] = memoryEntry{value: value, version: e.version + 1}
	return nil
}

// Delete removes the key. Deleting an absent key is not an error.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
