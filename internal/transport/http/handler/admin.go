package handler

import (
	"fmt"
	"net/http"

	"github.com/presswire-api/internal/application/admin"
	"github.com/presswire-api/internal/application/discount"
	"github.com/presswire-api/internal/domain"
)

// AdminHandler dispatches operator actions. The route is guarded by
// middleware.RequireAdmin.
type AdminHandler struct {
	admin     admin.Service
	discounts discount.Service
}

func NewAdminHandler(a admin.Service, d discount.Service) *AdminHandler {
	return &AdminHandler{admin: a, discounts: d}
}

type revokeData struct {
	TokenCode string `json:"tokenCode"`
}

func (h *AdminHandler) Action(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()

	switch req.Action {
	case "generate-admin-pr-token":
		g, err := h.admin.IssueReleaseGrant(ctx)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"token":     g.Token,
			"expiresAt": g.ExpiresAt,
			"expiresIn": g.ExpiresIn,
			"message":   "Use this token to create one press release without payment",
		})

	case "generate-discount":
		var nd domain.NewDiscount
		if err := decodeData(req.Data, &nd); err != nil {
			writeError(w, r, err)
			return
		}
		d, err := h.discounts.Generate(ctx, nd)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": d})

	case "list-tokens":
		codes, err := h.discounts.List(ctx)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "tokens": codes, "total": len(codes)})

	case "revoke-token":
		var data revokeData
		if err := decodeData(req.Data, &data); err != nil {
			writeError(w, r, err)
			return
		}
		if err := h.discounts.Revoke(ctx, data.TokenCode); err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: fmt.Sprintf("Token %s has been revoked", data.TokenCode)})

	case "get-stats":
		stats, err := h.discounts.Stats(ctx)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})

	default:
		writeError(w, r, unknownAction())
	}
}
