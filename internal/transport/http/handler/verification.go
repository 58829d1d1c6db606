package handler

import (
	"net/http"

	"github.com/presswire-api/internal/application/verification"
)

// VerificationHandler serves the domain verification endpoints.
type VerificationHandler struct {
	svc verification.Service
}

func NewVerificationHandler(svc verification.Service) *VerificationHandler {
	return &VerificationHandler{svc: svc}
}

type sendCodeRequest struct {
	Email string `json:"email"`
}

type verifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type codeSentResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	Domain       string `json:"domain"`
	IsTrustedTLD bool   `json:"isTrustedTLD"`
	DemoCode     string `json:"demoCode,omitempty"`
}

type verifiedResponse struct {
	Success      bool   `json:"success"`
	Token        string `json:"token"`
	Domain       string `json:"domain"`
	IsTrustedTLD bool   `json:"isTrustedTLD"`
	Message      string `json:"message"`
}

func (h *VerificationHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	issued, err := h.svc.RequestCode(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, codeSentResponse{
		Success:      true,
		Message:      "Verification code sent",
		Domain:       issued.Domain,
		IsTrustedTLD: issued.IsTrustedTLD,
		DemoCode:     issued.Code,
	})
}

func (h *VerificationHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := h.svc.SubmitCode(r.Context(), req.Email, req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifiedResponse{
		Success:      true,
		Token:        id.Token,
		Domain:       id.Domain,
		IsTrustedTLD: id.IsTrustedTLD,
		Message:      "Domain verified successfully",
	})
}
