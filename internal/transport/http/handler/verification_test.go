package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/presswire-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestSendCode_EmptyBody(t *testing.T) {
	h := NewVerificationHandler(&mockVerificationSvc{})
	rr := httptest.NewRecorder()
	h.SendCode(rr, httptest.NewRequest(http.MethodPost, "/v1/verify-domain/send-code", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "request body required", decodeBody(t, rr)["error"])
}

func TestSendCode_FreeProvider(t *testing.T) {
	svc := &mockVerificationSvc{}
	svc.On("RequestCode", mock.Anything, "someone@gmail.com").Return(nil, domain.ErrFreeProviderBlocked)
	h := NewVerificationHandler(svc)

	rr := httptest.NewRecorder()
	h.SendCode(rr, jsonReq(t, http.MethodPost, "/v1/verify-domain/send-code", map[string]string{"email": "someone@gmail.com"}))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "free email providers not allowed", decodeBody(t, rr)["error"])
	svc.AssertExpectations(t)
}

func TestSendCode_DemoCodeEchoed(t *testing.T) {
	svc := &mockVerificationSvc{}
	svc.On("RequestCode", mock.Anything, "press@acme.ie").
		Return(&domain.CodeIssued{Domain: "acme.ie", IsTrustedTLD: true, Code: "123456"}, nil)
	h := NewVerificationHandler(svc)

	rr := httptest.NewRecorder()
	h.SendCode(rr, jsonReq(t, http.MethodPost, "/v1/verify-domain/send-code", map[string]string{"email": "press@acme.ie"}))

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "Verification code sent", body["message"])
	assert.Equal(t, "acme.ie", body["domain"])
	assert.Equal(t, true, body["isTrustedTLD"])
	assert.Equal(t, "123456", body["demoCode"])
}

func TestSendCode_ProductionOmitsCode(t *testing.T) {
	svc := &mockVerificationSvc{}
	svc.On("RequestCode", mock.Anything, "press@acme.com").
		Return(&domain.CodeIssued{Domain: "acme.com"}, nil)
	h := NewVerificationHandler(svc)

	rr := httptest.NewRecorder()
	h.SendCode(rr, jsonReq(t, http.MethodPost, "/v1/verify-domain/send-code", map[string]string{"email": "press@acme.com"}))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, decodeBody(t, rr), "demoCode")
}

func TestVerifyCode_Mismatch(t *testing.T) {
	svc := &mockVerificationSvc{}
	svc.On("SubmitCode", mock.Anything, "press@acme.ie", "000000").Return(nil, domain.ErrCodeMismatch)
	h := NewVerificationHandler(svc)

	rr := httptest.NewRecorder()
	h.VerifyCode(rr, jsonReq(t, http.MethodPost, "/v1/verify-domain/verify-code", map[string]string{"email": "press@acme.ie", "code": "000000"}))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid verification code", decodeBody(t, rr)["error"])
}

func TestVerifyCode_HappyPath(t *testing.T) {
	svc := &mockVerificationSvc{}
	svc.On("SubmitCode", mock.Anything, "press@acme.ie", "123456").
		Return(&domain.VerifiedIdentity{Token: "tok", Domain: "acme.ie", IsTrustedTLD: true}, nil)
	h := NewVerificationHandler(svc)

	rr := httptest.NewRecorder()
	h.VerifyCode(rr, jsonReq(t, http.MethodPost, "/v1/verify-domain/verify-code", map[string]string{"email": "press@acme.ie", "code": "123456"}))

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "tok", body["token"])
	assert.Equal(t, "Domain verified successfully", body["message"])
	svc.AssertExpectations(t)
}
