package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	DeviceCookie    = "device_id"
	DeviceHeader    = "X-Device-ID"
	DeviceCookieTTL = 365 * 24 * time.Hour
)

const DeviceContextKey contextKey = "deviceID"

// GetDeviceID returns the device scope minted for the request.
func GetDeviceID(ctx context.Context) string {
	if id, ok := ctx.Value(DeviceContextKey).(string); ok {
		return id
	}
	return ""
}

// DeviceMiddleware assigns every shopper a stable device id. The id
// scopes the persisted cart; a fresh one is minted when the client
// presents none (or an invalid one).
type DeviceMiddleware struct {
	secure bool
}

func NewDeviceMiddleware(secure bool) *DeviceMiddleware {
	return &DeviceMiddleware{secure: secure}
}

func (m *DeviceMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(DeviceHeader)
		if id == "" {
			if cookie, err := r.Cookie(DeviceCookie); err == nil {
				id = cookie.Value
			}
		}

		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     DeviceCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(DeviceCookieTTL.Seconds()),
				HttpOnly: true,
				Secure:   m.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), DeviceContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
