package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/chezmonami/marketplace-server/internal/audit"
	"github.com/chezmonami/marketplace-server/internal/service"
)

// RateLimitMiddleware throttles API traffic per client IP through the
// redis-backed sliding window limiter, so the budget holds across
// server instances.
type RateLimitMiddleware struct {
	limiter     *service.RateLimiter
	limitPerMin int
}

func NewRateLimitMiddleware(limiter *service.RateLimiter, limitPerMin int) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter, limitPerMin: limitPerMin}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		allowed, resetAt := m.limiter.CheckLimit(r.Context(), "ip:"+ip, m.limitPerMin, time.Minute)
		if !allowed {
			audit.Log(r.Context(), audit.Event{Type: audit.EventRateLimitExceed, IP: ip})
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
