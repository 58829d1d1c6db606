package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/presswire-api/internal/config"
	"github.com/presswire-api/internal/kv"
	"github.com/presswire-api/internal/pkg/dispatch"
	"github.com/presswire-api/internal/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type acceptMX struct{}

func (acceptMX) HasMX(context.Context, string) error { return nil }

type sentMail struct {
	to, subject string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) Send(_ context.Context, to, subject, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject})
	return nil
}

type memContent struct {
	mu    sync.Mutex
	files map[string]string
}

func (c *memContent) PutFile(_ context.Context, filePath, b64, _ string) error {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[filePath] = string(data)
	return nil
}

type testServer struct {
	handler http.Handler
	mailer  *recordingMailer
	content *memContent
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		Mode:              config.ModeDevelopment,
		PublicBaseURL:     "https://presswire.ie",
		AllowedOrigins:    []string{"*"},
		DenylistedDomains: config.DefaultDenylistedDomains,
		TrustedSuffix:     ".ie",
		RateLimits:        config.DefaultRateLimits(),
		AdminToken:        "operator-secret-value",
	}
	ts := &testServer{
		mailer:  &recordingMailer{},
		content: &memContent{files: map[string]string{}},
	}
	services := NewServices(cfg, &Deps{
		Store:      kv.NewMemoryStore(),
		MX:         acceptMX{},
		Mailer:     ts.mailer,
		Content:    ts.content,
		Dispatcher: &dispatch.Immediate{},
	})
	ts.handler = NewRouter(cfg, services, ratelimit.New(cfg.RateLimits, nil))
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, bearer string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.RemoteAddr = "203.0.113.7:40000"
	if bearer != "" {
		r.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, r)
	var out map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	}
	return rr, out
}

func TestRouter_Preflight(t *testing.T) {
	ts := newTestServer(t)
	r := httptest.NewRequest(http.MethodOptions, "/v1/releases", nil)
	r.Header.Set("Origin", "https://presswire.ie")
	r.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, r)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	rr, body := ts.do(t, http.MethodGet, "/v1/health-check/ping", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", body["message"])

	r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mr := httptest.NewRecorder()
	ts.handler.ServeHTTP(mr, r)
	assert.Equal(t, http.StatusOK, mr.Code)
	assert.Contains(t, mr.Body.String(), "presswire_http_requests_total")
}

func TestRouter_ReleasesRequireBearer(t *testing.T) {
	ts := newTestServer(t)
	rr, body := ts.do(t, http.MethodPost, "/v1/releases", "", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "no authorization token provided", body["error"])
}

func TestRouter_AdminRequiresSecret(t *testing.T) {
	ts := newTestServer(t)

	rr, _ := ts.do(t, http.MethodPost, "/v1/admin", "", map[string]any{"action": "get-stats"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, _ = ts.do(t, http.MethodPost, "/v1/admin", "wrong", map[string]any{"action": "get-stats"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRouter_VerifyPublishManage(t *testing.T) {
	ts := newTestServer(t)

	rr, sent := ts.do(t, http.MethodPost, "/v1/verify-domain/send-code", "", map[string]string{"email": "press@acme.ie"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "acme.ie", sent["domain"])
	assert.Equal(t, true, sent["isTrustedTLD"])
	code, _ := sent["demoCode"].(string)
	require.Len(t, code, 6)
	require.NotEmpty(t, ts.mailer.sent)
	assert.Equal(t, "press@acme.ie", ts.mailer.sent[0].to)

	rr, verified := ts.do(t, http.MethodPost, "/v1/verify-domain/verify-code", "", map[string]string{"email": "press@acme.ie", "code": code})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	token, _ := verified["token"].(string)
	require.Len(t, token, 64)

	// A code is single use.
	rr, _ = ts.do(t, http.MethodPost, "/v1/verify-domain/verify-code", "", map[string]string{"email": "press@acme.ie", "code": code})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, published := ts.do(t, http.MethodPost, "/v1/releases", token, map[string]any{
		"company":   map[string]string{"name": "Acme Widgets", "croNumber": "123456"},
		"headline":  "Acme opens Galway plant",
		"summary":   "Acme Widgets is opening a new plant in Galway.",
		"keyPoints": "- 50 new jobs\n- Opening in May",
		"contact":   "press@acme.ie",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	pr := published["pr"].(map[string]any)
	slug := pr["slug"].(string)
	mgmt := pr["managementToken"].(string)
	assert.True(t, strings.HasPrefix(slug, "acme-widgets-123456-"))
	assert.Len(t, mgmt, 64)
	assert.Equal(t, pr["managementUrl"], published["managementLink"])

	page := ts.content.files["news/"+slug+".html"]
	assert.Contains(t, page, "Acme opens Galway plant")
	assert.Contains(t, page, "Verified via @acme.ie")
	assert.Contains(t, ts.content.files, "data/prs/"+slug+".json")

	rr, got := ts.do(t, http.MethodPost, "/v1/manage", "", map[string]any{"action": "get-pr", "managementToken": mgmt})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, slug, got["pr"].(map[string]any)["slug"])

	rr, _ = ts.do(t, http.MethodPost, "/v1/manage", "", map[string]any{
		"action":          "unpublish-pr",
		"managementToken": mgmt,
		"data":            map[string]string{"reason": "duplicate"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, ts.content.files["news/"+slug+".html"], "This press release has been withdrawn")
}
