package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/chezmonami/marketplace-server/internal/audit"
	"github.com/chezmonami/marketplace-server/internal/errors"
	"github.com/chezmonami/marketplace-server/internal/httputil"
	"github.com/chezmonami/marketplace-server/internal/session"
)

const (
	AdminSessionCookie = "admin_session"
	SessionCookieTTL   = 2 * time.Hour
)

const (
	IdentityContextKey contextKey = "adminIdentity"
	ScopeContextKey    contextKey = "sessionScope"
)

// GetIdentity returns the signed-in admin, or nil outside a guarded route.
func GetIdentity(ctx context.Context) *session.Identity {
	if identity, ok := ctx.Value(IdentityContextKey).(*session.Identity); ok {
		return identity
	}
	return nil
}

// GetScope returns the session storage scope for the request.
func GetScope(ctx context.Context) string {
	if scope, ok := ctx.Value(ScopeContextKey).(string); ok {
		return scope
	}
	return ""
}

// AdminGuardMiddleware resolves the session cookie to a storage scope
// and runs the session guard's check before every admin request. An
// invalid session answers 401 with the eviction reason.
type AdminGuardMiddleware struct {
	registry *session.Registry
	scopeFor func(token string) string
}

func NewAdminGuardMiddleware(registry *session.Registry, scopeFor func(token string) string) *AdminGuardMiddleware {
	return &AdminGuardMiddleware{registry: registry, scopeFor: scopeFor}
}

func (m *AdminGuardMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(AdminSessionCookie)
		if err != nil || cookie.Value == "" {
			httputil.WriteError(w, errors.Unauthorized("Unauthorized"))
			return
		}

		scope := m.scopeFor(cookie.Value)
		guard, status := m.registry.Ensure(r.Context(), scope)
		if guard == nil || !status.Valid {
			// No reason means the check was deferred on a storage
			// failure; the session may still be valid, so the cookie
			// stays.
			if status.Reason == "" {
				httputil.WriteError(w, errors.New(errors.ErrCodeStorage, "Session state unavailable"))
				return
			}
			if status.Reason == session.EvictUnauthenticated {
				audit.Log(r.Context(), audit.Event{Type: audit.EventAuthFailure, Scope: scope, IP: clientIP(r)})
			}
			ClearSessionCookie(w, AdminSessionCookie, "/")
			httputil.WriteError(w, evictionError(status.Reason))
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, IdentityContextKey, status.Identity)
		ctx = context.WithValue(ctx, ScopeContextKey, scope)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSuperAdmin gates a route to the super_admin role. It must run
// inside the guard handler.
func RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := GetIdentity(r.Context())
		if identity == nil || identity.Role != session.RoleSuperAdmin {
			httputil.WriteError(w, errors.Forbidden("Super admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func evictionError(reason session.EvictReason) *errors.AppError {
	switch reason {
	case session.EvictSessionExpired:
		return errors.SessionExpired()
	case session.EvictIdleTimeout:
		return errors.SessionIdle()
	default:
		return errors.Unauthorized("Unauthorized")
	}
}

func SetSessionCookie(w http.ResponseWriter, name, token, path string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     path,
		MaxAge:   int(SessionCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:   name,
		Value:  "",
		Path:   path,
		MaxAge: -1,
	})
}
