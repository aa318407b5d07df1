package kvstore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rzpsarthak13/dynatable/internal/core"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryKVStore is a process-local KV store. It lets a single process run
// with the second-level cache enabled and backs tests.
type MemoryKVStore struct {
	mu     sync.RWMutex
	items  map[string]memoryEntry
	closed bool
	now    func() time.Time
}

// NewMemoryKVStore creates an empty in-memory store.
func NewMemoryKVStore() *MemoryKVStore {
	return &MemoryKVStore{
		items: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

// Get retrieves a value, honoring TTL.
func (m *MemoryKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	entry, ok := m.items[key]
	if !ok || (!entry.expiresAt.IsZero() && m.now().After(entry.expiresAt)) {
		return nil, core.ErrKeyNotFound
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// Set stores a copy of value. A zero ttl never expires.
func (m *MemoryKVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	entry := memoryEntry{value: make([]byte, len(value))}
	copy(entry.value, value)
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}
	m.items[key] = entry
	return nil
}

// Delete removes a key.
func (m *MemoryKVStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.items, key)
	return nil
}

// Close marks the store closed.
func (m *MemoryKVStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// MemoryKVStoreFactory creates process-local stores.
type MemoryKVStoreFactory struct{}

func (f *MemoryKVStoreFactory) Type() string { return "memory" }

func (f *MemoryKVStoreFactory) Validate(Config) error { return nil }

func (f *MemoryKVStoreFactory) Create(_ context.Context, _ Config, _ *slog.Logger) (core.KVStore, error) {
	return NewMemoryKVStore(), nil
}

func init() {
	RegisterFactory(&MemoryKVStoreFactory{})
}
