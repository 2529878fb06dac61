package session

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chezmonami/marketplace-server/internal/storage"
)

type registryFixture struct {
	registry *Registry
	backing  *storage.MemoryStore
	now      time.Time
}

func newRegistryFixture(t *testing.T) *registryFixture {
	t.Helper()

	f := &registryFixture{
		backing: storage.NewMemoryStore(),
		now:     time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	f.registry = NewRegistry(func(scope string, onEvict func(EvictReason)) *Guard {
		return NewGuard(f.backing.Handle(), onEvict,
			WithClock(func() time.Time { return f.now }),
			WithCheckInterval(time.Hour))
	})
	t.Cleanup(f.registry.Close)
	return f
}

func (f *registryFixture) mint(t *testing.T, startedAgo time.Duration) {
	t.Helper()
	ctx := context.Background()
	handle := f.backing.Handle()

	blob, err := json.Marshal(Identity{ID: "adm-1", Role: RoleSuperAdmin, Token: "tok"})
	require.NoError(t, err)
	require.NoError(t, handle.Set(ctx, AuthKey, string(blob)))

	stamp := strconv.FormatInt(f.now.Add(-startedAgo).UnixMilli(), 10)
	require.NoError(t, handle.Set(ctx, SessionStartKey, stamp))
	require.NoError(t, handle.Set(ctx, LastActivityKey, stamp))
}

func TestRegistry_Ensure(t *testing.T) {
	ctx := context.Background()

	t.Run("adopts a freshly minted session and starts its checks", func(t *testing.T) {
		f := newRegistryFixture(t)
		f.mint(t, 0)

		guard, status := f.registry.Ensure(ctx, "scope-a")
		require.NotNil(t, guard)
		assert.True(t, status.Valid)
		assert.True(t, guard.Running())
		assert.Equal(t, 1, f.registry.Count())
	})

	t.Run("returns the same guard on subsequent calls", func(t *testing.T) {
		f := newRegistryFixture(t)
		f.mint(t, 0)

		first, _ := f.registry.Ensure(ctx, "scope-a")
		second, status := f.registry.Ensure(ctx, "scope-a")

		assert.Same(t, first, second)
		assert.True(t, status.Valid)
		assert.Equal(t, 1, f.registry.Count())
	})

	t.Run("no credential means no guard is registered", func(t *testing.T) {
		f := newRegistryFixture(t)

		guard, status := f.registry.Ensure(ctx, "scope-a")

		assert.Nil(t, guard)
		assert.False(t, status.Valid)
		assert.Equal(t, EvictUnauthenticated, status.Reason)
		assert.Zero(t, f.registry.Count())
	})

	t.Run("eviction drops the guard from the registry", func(t *testing.T) {
		f := newRegistryFixture(t)
		f.mint(t, 0)

		guard, _ := f.registry.Ensure(ctx, "scope-a")
		require.NotNil(t, guard)

		f.now = f.now.Add(3 * time.Hour)
		status := guard.Check(ctx)

		assert.Equal(t, EvictSessionExpired, status.Reason)
		assert.Zero(t, f.registry.Count())
		_, ok := f.registry.Get("scope-a")
		assert.False(t, ok)
	})

	t.Run("logout drops the guard and stops its checks", func(t *testing.T) {
		f := newRegistryFixture(t)
		f.mint(t, 0)

		guard, _ := f.registry.Ensure(ctx, "scope-a")
		require.NotNil(t, guard)

		guard.Logout(ctx)

		assert.False(t, guard.Running())
		assert.Zero(t, f.registry.Count())
	})
}

func TestRegistry_Close(t *testing.T) {
	ctx := context.Background()
	f := newRegistryFixture(t)
	f.mint(t, 0)

	guard, _ := f.registry.Ensure(ctx, "scope-a")
	require.NotNil(t, guard)

	f.registry.Close()

	assert.False(t, guard.Running())
	assert.Zero(t, f.registry.Count())
}
