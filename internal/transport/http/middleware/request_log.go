package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/presswire-api/internal/pkg/metrics"
)

// RequestLogger logs one line per request and records request metrics
// under the matched route pattern.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			latency := time.Since(start)
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(route).Observe(latency.Seconds())

			logger.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.String("client_ip", realIP(r)),
				slog.String("latency", latency.String()),
				slog.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}
