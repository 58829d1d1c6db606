package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/presswire-api/internal/domain"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- verification.Service ---

type mockVerificationSvc struct{ mock.Mock }

func (m *mockVerificationSvc) RequestCode(ctx context.Context, email string) (*domain.CodeIssued, error) {
	args := m.Called(ctx, email)
	if v := args.Get(0); v != nil {
		return v.(*domain.CodeIssued), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockVerificationSvc) SubmitCode(ctx context.Context, email, code string) (*domain.VerifiedIdentity, error) {
	args := m.Called(ctx, email, code)
	if v := args.Get(0); v != nil {
		return v.(*domain.VerifiedIdentity), args.Error(1)
	}
	return nil, args.Error(1)
}

// --- release.Service ---

type mockReleaseSvc struct{ mock.Mock }

func (m *mockReleaseSvc) Issue(ctx context.Context, in domain.ReleaseInput) (*domain.Release, error) {
	args := m.Called(ctx, in)
	if v := args.Get(0); v != nil {
		return v.(*domain.Release), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReleaseSvc) Get(ctx context.Context, token string) (*domain.Release, error) {
	args := m.Called(ctx, token)
	if v := args.Get(0); v != nil {
		return v.(*domain.Release), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReleaseSvc) View(ctx context.Context, token string) (*domain.PublicRelease, error) {
	args := m.Called(ctx, token)
	if v := args.Get(0); v != nil {
		return v.(*domain.PublicRelease), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReleaseSvc) Edit(ctx context.Context, token string, edit domain.ReleaseEdit) (*domain.Release, error) {
	args := m.Called(ctx, token, edit)
	if v := args.Get(0); v != nil {
		return v.(*domain.Release), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReleaseSvc) Unpublish(ctx context.Context, token, reason string) (*domain.Release, error) {
	args := m.Called(ctx, token, reason)
	if v := args.Get(0); v != nil {
		return v.(*domain.Release), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReleaseSvc) Extend(ctx context.Context, token string, days int, paymentProof string) (*domain.Release, error) {
	args := m.Called(ctx, token, days, paymentProof)
	if v := args.Get(0); v != nil {
		return v.(*domain.Release), args.Error(1)
	}
	return nil, args.Error(1)
}

// --- analytics.Service ---

type mockAnalyticsSvc struct{ mock.Mock }

func (m *mockAnalyticsSvc) Track(ctx context.Context, view domain.PageView) (*domain.TrackResult, error) {
	args := m.Called(ctx, view)
	if v := args.Get(0); v != nil {
		return v.(*domain.TrackResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAnalyticsSvc) Report(ctx context.Context, slug string, publishedAt time.Time) (*domain.AnalyticsReport, error) {
	args := m.Called(ctx, slug, publishedAt)
	if v := args.Get(0); v != nil {
		return v.(*domain.AnalyticsReport), args.Error(1)
	}
	return nil, args.Error(1)
}

// --- generate.Service ---

type mockGenerateSvc struct{ mock.Mock }

func (m *mockGenerateSvc) Generate(ctx context.Context, id domain.Identity, req domain.GenerateRequest) (*domain.Publication, error) {
	args := m.Called(ctx, id, req)
	if v := args.Get(0); v != nil {
		return v.(*domain.Publication), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGenerateSvc) Refresh(ctx context.Context, rel *domain.Release) error {
	return m.Called(ctx, rel).Error(0)
}

// --- payment.Service ---

type mockPaymentSvc struct{ mock.Mock }

func (m *mockPaymentSvc) HandleWebhook(ctx context.Context, payload []byte, signature string) (*domain.WebhookAck, error) {
	args := m.Called(ctx, payload, signature)
	if v := args.Get(0); v != nil {
		return v.(*domain.WebhookAck), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPaymentSvc) Claim(ctx context.Context, sessionID string) (*domain.PaymentGrant, error) {
	args := m.Called(ctx, sessionID)
	if v := args.Get(0); v != nil {
		return v.(*domain.PaymentGrant), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPaymentSvc) Redeem(ctx context.Context, sessionID string) (*domain.Payment, error) {
	args := m.Called(ctx, sessionID)
	if v := args.Get(0); v != nil {
		return v.(*domain.Payment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPaymentSvc) Restore(ctx context.Context, redeemed *domain.Payment) error {
	return m.Called(ctx, redeemed).Error(0)
}

// --- draft.Service ---

type mockDraftSvc struct{ mock.Mock }

func (m *mockDraftSvc) Store(ctx context.Context, req domain.GenerateRequest) (*domain.Draft, error) {
	args := m.Called(ctx, req)
	if v := args.Get(0); v != nil {
		return v.(*domain.Draft), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDraftSvc) Get(ctx context.Context, id string) (*domain.Draft, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*domain.Draft), args.Error(1)
	}
	return nil, args.Error(1)
}

// jsonReq builds a request carrying v encoded as JSON.
func jsonReq(t *testing.T, method, target string, v any) *http.Request {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return httptest.NewRequest(method, target, bytes.NewReader(body))
}

// decodeBody decodes the recorder body into a generic map.
func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}
