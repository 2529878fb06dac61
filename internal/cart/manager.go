package cart

import (
	"context"
	"sync"
	"time"

	"github.com/chezmonami/marketplace-server/internal/storage"
)

// ContextStorage is storage that also exposes a change feed, the pair a
// managed store needs.
type ContextStorage interface {
	storage.Store
	storage.Watcher
}

// Manager hands out one Store per device scope and feeds each store the
// storage changes written by other contexts. Stores are created lazily
// and reclaimed when idle; the persisted cart survives in storage and
// is re-read on the next access.
type Manager struct {
	newStorage func(scope string) ContextStorage
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]*managedStore
}

type managedStore struct {
	store    *Store
	stop     func()
	lastUsed time.Time
}

func NewManager(newStorage func(scope string) ContextStorage) *Manager {
	return &Manager{
		newStorage: newStorage,
		now:        time.Now,
		entries:    make(map[string]*managedStore),
	}
}

// Store returns the cart store for the given device scope, creating it
// and starting its inbound change feed on first use.
func (m *Manager) Store(ctx context.Context, scope string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.entries[scope]; ok {
		entry.lastUsed = m.now()
		return entry.store
	}

	st := m.newStorage(scope)
	store := NewStore(st)
	store.Load(ctx)

	changes, stop := st.Watch(context.Background())
	go func() {
		for change := range changes {
			store.HandleStorageChange(change.Key, change.Value)
		}
	}()

	m.entries[scope] = &managedStore{store: store, stop: stop, lastUsed: m.now()}
	return store
}

// Release tears down the store for a scope, stopping its change feed.
func (m *Manager) Release(scope string) {
	m.mu.Lock()
	entry, ok := m.entries[scope]
	if ok {
		delete(m.entries, scope)
	}
	m.mu.Unlock()

	if ok {
		entry.stop()
	}
}

// ReleaseIdle frees every store not accessed within maxIdle, stopping
// its change feed, and reports how many were released. Idle scopes cost
// nothing afterwards; their carts reload from storage on next access.
func (m *Manager) ReleaseIdle(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	var idle []*managedStore
	for scope, entry := range m.entries {
		if !entry.lastUsed.After(cutoff) {
			idle = append(idle, entry)
			delete(m.entries, scope)
		}
	}
	m.mu.Unlock()

	for _, entry := range idle {
		entry.stop()
	}
	return len(idle)
}

// Len reports the number of live managed stores.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close releases every managed store.
func (m *Manager) Close() {
	m.mu.Lock()
	entries := m.entries
	m.entries = make(map[string]*managedStore)
	m.mu.Unlock()

	for _, entry := range entries {
		entry.stop()
	}
}
