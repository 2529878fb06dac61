package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/chezmonami/marketplace-server/internal/audit"
)

// Registry owns one running guard per admin session scope. Guards are
// adopted lazily (a session minted elsewhere is initialized on first
// sight) and their periodic checks run for the life of the session.
type Registry struct {
	factory func(scope string, onEvict func(EvictReason)) *Guard

	mu     sync.Mutex
	guards map[string]*Guard
}

// NewRegistry creates a registry. factory builds a guard over the
// storage scope; the registry supplies the eviction hook that drops the
// guard from the registry.
func NewRegistry(factory func(scope string, onEvict func(EvictReason)) *Guard) *Registry {
	return &Registry{
		factory: factory,
		guards:  make(map[string]*Guard),
	}
}

// Ensure returns the running guard for scope, creating and initializing
// one on first use. The returned status is the initialization or check
// outcome; an invalid status means no guard remains registered.
func (r *Registry) Ensure(ctx context.Context, scope string) (*Guard, Status) {
	r.mu.Lock()
	guard, ok := r.guards[scope]
	r.mu.Unlock()

	if ok {
		return guard, guard.Check(ctx)
	}

	guard = r.factory(scope, func(reason EvictReason) {
		r.drop(scope)
		switch reason {
		case EvictSessionExpired:
			audit.Log(context.Background(), audit.Event{Type: audit.EventSessionExpired, Scope: scope})
		case EvictIdleTimeout:
			audit.Log(context.Background(), audit.Event{Type: audit.EventIdleTimeout, Scope: scope})
		}
		log.Info().Str("reason", string(reason)).Msg("admin session evicted")
	})

	status := guard.Initialize(ctx)
	if !status.Valid {
		return nil, status
	}

	r.mu.Lock()
	// Another request may have registered the scope concurrently.
	if existing, ok := r.guards[scope]; ok {
		r.mu.Unlock()
		guard.Stop()
		return existing, existing.Check(ctx)
	}
	r.guards[scope] = guard
	r.mu.Unlock()

	guard.Start()
	return guard, status
}

// Get returns the running guard for scope, if any.
func (r *Registry) Get(scope string) (*Guard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	guard, ok := r.guards[scope]
	return guard, ok
}

// Count reports the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.guards)
}

func (r *Registry) drop(scope string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.guards, scope)
}

// Close stops every running guard.
func (r *Registry) Close() {
	r.mu.Lock()
	guards := make([]*Guard, 0, len(r.guards))
	for _, g := range r.guards {
		guards = append(guards, g)
	}
	r.guards = make(map[string]*Guard)
	r.mu.Unlock()

	for _, g := range guards {
		g.Stop()
	}
}
