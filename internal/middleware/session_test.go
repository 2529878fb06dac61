package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chezmonami/marketplace-server/internal/session"
	"github.com/chezmonami/marketplace-server/internal/storage"
)

func newGuardFixture(t *testing.T) (*AdminGuardMiddleware, map[string]*storage.MemoryStore) {
	t.Helper()

	stores := make(map[string]*storage.MemoryStore)
	backing := func(scope string) *storage.MemoryStore {
		if st, ok := stores[scope]; ok {
			return st
		}
		st := storage.NewMemoryStore()
		stores[scope] = st
		return st
	}

	registry := session.NewRegistry(func(scope string, onEvict func(session.EvictReason)) *session.Guard {
		return session.NewGuard(backing(scope).Handle(), onEvict,
			session.WithCheckInterval(time.Hour))
	})
	t.Cleanup(registry.Close)

	// The scope is the token itself; production derives it with an HMAC.
	m := NewAdminGuardMiddleware(registry, func(token string) string { return token })
	return m, stores
}

func mintSession(t *testing.T, stores map[string]*storage.MemoryStore, scope string, startedAgo time.Duration) {
	t.Helper()
	ctx := context.Background()

	st, ok := stores[scope]
	if !ok {
		st = storage.NewMemoryStore()
		stores[scope] = st
	}
	handle := st.Handle()

	blob, err := json.Marshal(session.Identity{ID: "adm-1", Role: session.RoleAdmin, Token: scope})
	require.NoError(t, err)
	require.NoError(t, handle.Set(ctx, session.AuthKey, string(blob)))

	stamp := strconv.FormatInt(time.Now().Add(-startedAgo).UnixMilli(), 10)
	require.NoError(t, handle.Set(ctx, session.SessionStartKey, stamp))
	require.NoError(t, handle.Set(ctx, session.LastActivityKey, stamp))
}

func TestAdminGuardMiddleware(t *testing.T) {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := GetIdentity(r.Context())
		require.NotNil(t, identity)
		writeJSON(w, http.StatusOK, map[string]string{"id": identity.ID, "scope": GetScope(r.Context())})
	})

	t.Run("valid session passes with identity in context", func(t *testing.T) {
		m, stores := newGuardFixture(t)
		mintSession(t, stores, "tok-1", 0)

		req := httptest.NewRequest(http.MethodGet, "/admin/me", nil)
		req.AddCookie(&http.Cookie{Name: AdminSessionCookie, Value: "tok-1"})
		rec := httptest.NewRecorder()

		m.Handler(echo).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "adm-1", body["id"])
		assert.Equal(t, "tok-1", body["scope"])
	})

	t.Run("missing cookie is unauthorized", func(t *testing.T) {
		m, _ := newGuardFixture(t)

		req := httptest.NewRequest(http.MethodGet, "/admin/me", nil)
		rec := httptest.NewRecorder()

		m.Handler(echo).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired session answers 401 with reason and clears the cookie", func(t *testing.T) {
		m, stores := newGuardFixture(t)
		mintSession(t, stores, "tok-1", 3*time.Hour)

		req := httptest.NewRequest(http.MethodGet, "/admin/me", nil)
		req.AddCookie(&http.Cookie{Name: AdminSessionCookie, Value: "tok-1"})
		rec := httptest.NewRecorder()

		m.Handler(echo).ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "SESSION_EXPIRED")

		var cleared bool
		for _, c := range rec.Result().Cookies() {
			if c.Name == AdminSessionCookie && c.MaxAge < 0 {
				cleared = true
			}
		}
		assert.True(t, cleared)
	})
}

func TestRequireSuperAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("super admin passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/admins", nil)
		ctx := context.WithValue(req.Context(), IdentityContextKey, &session.Identity{Role: session.RoleSuperAdmin})
		rec := httptest.NewRecorder()

		RequireSuperAdmin(next).ServeHTTP(rec, req.WithContext(ctx))

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("plain admin is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/admins", nil)
		ctx := context.WithValue(req.Context(), IdentityContextKey, &session.Identity{Role: session.RoleAdmin})
		rec := httptest.NewRecorder()

		RequireSuperAdmin(next).ServeHTTP(rec, req.WithContext(ctx))

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestDeviceMiddleware(t *testing.T) {
	m := NewDeviceMiddleware(false)
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetDeviceID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("mints an id when the client has none", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		m.Handler(next).ServeHTTP(rec, req)

		require.NotEmpty(t, seen)
		var minted string
		for _, c := range rec.Result().Cookies() {
			if c.Name == DeviceCookie {
				minted = c.Value
			}
		}
		assert.Equal(t, seen, minted)
	})

	t.Run("keeps a valid presented id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(DeviceHeader, "8f14e45f-ceea-4f3a-87f0-9f2c257f6c7e")
		rec := httptest.NewRecorder()

		m.Handler(next).ServeHTTP(rec, req)

		assert.Equal(t, "8f14e45f-ceea-4f3a-87f0-9f2c257f6c7e", seen)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("replaces a malformed id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(DeviceHeader, "not-a-uuid")
		rec := httptest.NewRecorder()

		m.Handler(next).ServeHTTP(rec, req)

		assert.NotEqual(t, "not-a-uuid", seen)
		assert.NotEmpty(t, seen)
	})
}
