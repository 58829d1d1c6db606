package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/presswire-api/internal/application/payment"
	"github.com/presswire-api/internal/domain"
)

// maxWebhookBody bounds provider event payloads.
const maxWebhookBody = 64 << 10

// PaymentHandler receives checkout events and exchanges paid sessions.
type PaymentHandler struct {
	svc payment.Service
}

func NewPaymentHandler(svc payment.Service) *PaymentHandler { return &PaymentHandler{svc: svc} }

type claimRequest struct {
	SessionID string `json:"sessionId"`
}

// Webhook verifies the provider signature over the raw body.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, r, fmt.Errorf("read webhook body: %w", domain.ErrBadRequest))
		return
	}
	ack, err := h.svc.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

func (h *PaymentHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := h.svc.Claim(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"token":     g.Token,
		"expiresIn": g.ExpiresIn,
		"email":     g.Email,
		"package":   g.Package,
		"draftId":   g.DraftID,
	})
}
