package store

import (
	"slices"
	"sync"

	"github.com/Seeker14491/distancelog/internal/changelist"
	"github.com/Seeker14491/distancelog/internal/level"
)

// MemoryStore is an in-memory implementation of [Store].
//
// MemoryStore is safe for concurrent use. Loads return copies; modifying a
// returned slice does not affect the store. It is used by tests and by
// embedders that persist elsewhere.
type MemoryStore struct {
	mu            sync.RWMutex
	snapshot      []level.Level
	hasSnapshot   bool
	entries       []changelist.Entry
	hasChangelist bool
}

// NewMemoryStore creates an empty [MemoryStore]. Both loads return
// [ErrNotExist] until the first save.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// LoadSnapshot implements [Store].
func (m *MemoryStore) LoadSnapshot() ([]level.Level, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.hasSnapshot {
		return nil, ErrNotExist
	}
	return slices.Clone(m.snapshot), nil
}

// SaveSnapshot implements [Store].
func (m *MemoryStore) SaveSnapshot(levels []level.Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshot = slices.Clone(levels)
	m.hasSnapshot = true
	return nil
}

// LoadChangelist implements [Store].
func (m *MemoryStore) LoadChangelist() ([]changelist.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.hasChangelist {
		return nil, ErrNotExist
	}
	return slices.Clone(m.entries), nil
}

// SaveChangelist implements [Store].
func (m *MemoryStore) SaveChangelist(entries []changelist.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = slices.Clone(entries)
	m.hasChangelist = true
	return nil
}
