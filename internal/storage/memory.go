package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process storage backing shared by one or more
// handles. Each handle models one browsing context: its own writes are
// not echoed back through its watch channel, but every other handle's are.
type MemoryStore struct {
	mu       sync.Mutex
	values   map[string]string
	watchers map[chan Change]string // channel -> origin of the owning handle
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:   make(map[string]string),
		watchers: make(map[chan Change]string),
	}
}

// Handle returns a context-scoped view of the backing store.
func (m *MemoryStore) Handle() *MemoryHandle {
	return &MemoryHandle{
		backing: m,
		origin:  uuid.NewString(),
	}
}

func (m *MemoryStore) get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStore) set(key, value, origin string) {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	m.notify(Change{Key: key, Value: value, Origin: origin})
}

func (m *MemoryStore) remove(key, origin string) {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
	m.notify(Change{Key: key, Origin: origin})
}

func (m *MemoryStore) notify(change Change) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch, origin := range m.watchers {
		if origin == change.Origin {
			continue
		}
		select {
		case ch <- change:
		default:
			// slow watcher, drop rather than block writers
		}
	}
}

func (m *MemoryStore) addWatcher(ch chan Change, origin string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers[ch] = origin
}

func (m *MemoryStore) removeWatcher(ch chan Change) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.watchers[ch]; ok {
		delete(m.watchers, ch)
		close(ch)
	}
}

// MemoryHandle is one context's view of a MemoryStore.
type MemoryHandle struct {
	backing *MemoryStore
	origin  string
}

var _ Store = (*MemoryHandle)(nil)
var _ Watcher = (*MemoryHandle)(nil)

func (h *MemoryHandle) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := h.backing.get(key)
	return v, ok, nil
}

func (h *MemoryHandle) Set(ctx context.Context, key, value string) error {
	h.backing.set(key, value, h.origin)
	return nil
}

func (h *MemoryHandle) Remove(ctx context.Context, key string) error {
	h.backing.remove(key, h.origin)
	return nil
}

func (h *MemoryHandle) Watch(ctx context.Context) (<-chan Change, func()) {
	ch := make(chan Change, 16)
	h.backing.addWatcher(ch, h.origin)

	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			h.backing.removeWatcher(ch)
			close(done)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()

	return ch, stop
}
