package blob

import (
	"context"
	"slices"
	"sync"
)

// Memory is a Store kept in a map. Its zero value is not usable, call NewMemory.
type Memory struct {
	mu      sync.RWMutex
	content map[string][]byte
	puts    int
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{content: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.content[name]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

func (m *Memory) Put(_ context.Context, name string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[name] = slices.Clone(payload)
	m.puts++
	return nil
}

func (m *Memory) Exists(_ context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.content[name]
	return ok, nil
}

func (m *Memory) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.content, name)
	return nil
}

// Puts returns the number of successful Put calls, for tests asserting that
// nothing was written.
func (m *Memory) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

func (m *Memory) Close() error { return nil }
