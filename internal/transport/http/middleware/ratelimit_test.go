package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/presswire-api/internal/config"
	"github.com/presswire-api/internal/pkg/clock"
	"github.com/presswire-api/internal/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealIP_XForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 5.6.7.8")
	assert.Equal(t, "1.2.3.4", realIP(req))
}

func TestRealIP_ClientIP_BeforeXRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Client-Ip", "3.3.3.3")
	req.Header.Set("X-Real-Ip", "9.10.11.12")
	assert.Equal(t, "3.3.3.3", realIP(req))
}

func TestRealIP_XRealIP_Fallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-Ip", "9.10.11.12")
	assert.Equal(t, "9.10.11.12", realIP(req))
}

func TestRealIP_RemoteAddr_Fallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:54321"
	assert.Equal(t, "192.168.1.1", realIP(req))
}

func TestRealIP_XForwardedFor_TakesPrecedenceOverXRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.1.1.1")
	req.Header.Set("X-Real-Ip", "2.2.2.2")
	assert.Equal(t, "1.1.1.1", realIP(req))
}

func limited(t *testing.T, permanent ...string) (http.Handler, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	l := ratelimit.New(map[string]config.RateLimitPolicy{
		"verify-domain": {Requests: 2, Window: time.Minute},
	}, permanent, ratelimit.WithClock(clk.Now), ratelimit.WithSweep(func() bool { return false }))
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	return RateLimit(l, "verify-domain")(ok), clk
}

func hit(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Forwarded-For", ip)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_HeadersAndDenial(t *testing.T) {
	h, _ := limited(t)

	rec := hit(h, "7.7.7.7")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "2025-03-01T09:01:00Z", rec.Header().Get("X-RateLimit-Reset"))

	require.Equal(t, http.StatusOK, hit(h, "7.7.7.7").Code)

	rec = hit(h, "7.7.7.7")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Too many requests", body["error"])
	assert.EqualValues(t, 60, body["retryAfter"])

	assert.Equal(t, http.StatusOK, hit(h, "8.8.8.8").Code)
}

func TestRateLimit_PermanentBlocklist(t *testing.T) {
	h, _ := limited(t, "6.6.6.6")
	rec := hit(h, "6.6.6.6")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Access denied"}`, rec.Body.String())
}
