package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/presswire-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"headline\":\"H\"}"}}]}`))
	}))
	defer srv.Close()

	c := NewClient("key", "test-model", srv.URL, "https://presswire.ie", time.Second)
	out, err := c.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"headline":"H"}`, out)
}

func TestComplete_NoKey(t *testing.T) {
	c := NewClient("", "m", "http://unused", "", time.Second)
	assert.False(t, c.Enabled())
	_, err := c.Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestComplete_Non200IsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient("key", "m", srv.URL, "", time.Second).Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient("key", "m", srv.URL, "", time.Second).Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestComplete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	_, err := NewClient("key", "m", srv.URL, "", 20*time.Millisecond).Complete(context.Background(), "s", "u")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}
