package middleware

import (
	"net/http"

	"github.com/chezmonami/marketplace-server/internal/audit"
	"github.com/chezmonami/marketplace-server/internal/util"
)

const (
	CSRFCookieName = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"
)

// CSRF protects state-changing requests with the double-submit cookie
// pattern: the token lives in a JavaScript-readable cookie and must be
// echoed back in the X-CSRF-Token header for POST, PUT, PATCH and
// DELETE.
func CSRF(isProduction bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CSRFCookieName)
			if err != nil || cookie.Value == "" {
				token, err := util.GenerateToken()
				if err != nil {
					writeJSON(w, http.StatusInternalServerError, map[string]string{
						"error": "Failed to generate security token",
					})
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     CSRFCookieName,
					Value:    token,
					Path:     "/",
					MaxAge:   int(SessionCookieTTL.Seconds()),
					HttpOnly: false, // Must be readable by JavaScript to send in header
					Secure:   isProduction,
					SameSite: http.SameSiteLaxMode,
				})
				cookie = &http.Cookie{Value: token}
			}

			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			headerToken := r.Header.Get(CSRFHeaderName)
			if headerToken == "" {
				audit.Log(r.Context(), audit.Event{Type: audit.EventCSRFFailure, IP: clientIP(r)})
				writeJSON(w, http.StatusForbidden, map[string]string{
					"error": "Missing CSRF token",
				})
				return
			}

			if !util.ConstantTimeEqual(cookie.Value, headerToken) {
				audit.Log(r.Context(), audit.Event{Type: audit.EventCSRFFailure, IP: clientIP(r)})
				writeJSON(w, http.StatusForbidden, map[string]string{
					"error": "Invalid CSRF token",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}
