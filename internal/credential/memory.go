package credential

import (
	"context"
	"sync"
)

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	records map[string]Credential
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{records: make(map[string]Credential)}
}

func memoryKey(kind, key string) string {
	return kind + "\x00" + key
}

// Load returns the record for (kind, key) or ErrNotFound.
func (m *MemoryCache) Load(_ context.Context, kind, key string) (*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.records[memoryKey(kind, key)]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// Save stores a copy of c, replacing any existing record.
func (m *MemoryCache) Save(_ context.Context, kind, key string, c *Credential) error {
	if c == nil || c.Value == "" {
		return ErrEmptyCredential
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[memoryKey(kind, key)] = *c
	return nil
}

// Delete removes the record if present.
func (m *MemoryCache) Delete(_ context.Context, kind, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, memoryKey(kind, key))
	return nil
}

// Len returns the number of records.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
