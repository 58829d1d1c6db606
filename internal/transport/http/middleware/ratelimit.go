package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/presswire-api/internal/pkg/metrics"
	"github.com/presswire-api/internal/pkg/ratelimit"
)

// Checker decides whether one more request from addr may reach endpoint.
type Checker interface {
	Check(addr, endpoint string) ratelimit.Decision
}

// RateLimit enforces the named endpoint policy per client address.
func RateLimit(c Checker, endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := c.Check(realIP(r), endpoint)
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.ResetAt.IsZero() {
				h.Set("X-RateLimit-Reset", d.ResetAt.UTC().Format(time.RFC3339))
			}

			switch {
			case d.Permanent:
				metrics.RateLimitDecisions.WithLabelValues(endpoint, "blocklisted").Inc()
				writeJSONError(w, http.StatusForbidden, "Access denied")
				return
			case !d.Allowed:
				outcome := "limited"
				if d.Blocked {
					outcome = "blocked"
				}
				metrics.RateLimitDecisions.WithLabelValues(endpoint, outcome).Inc()
				h.Set("Retry-After", strconv.Itoa(d.RetryAfter))
				writeJSONBody(w, http.StatusTooManyRequests, map[string]any{
					"error":      "Too many requests",
					"message":    "Rate limit exceeded. Please try again later.",
					"retryAfter": d.RetryAfter,
				})
				return
			}
			metrics.RateLimitDecisions.WithLabelValues(endpoint, "allowed").Inc()
			next.ServeHTTP(w, r)
		})
	}
}

// realIP returns the client address: first X-Forwarded-For hop, then
// Client-Ip, then X-Real-Ip, then the connection's remote address.
func realIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("Client-Ip")); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-Ip")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
