package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/presswire-api/internal/application/draft"
	"github.com/presswire-api/internal/domain"
)

// DraftHandler parks release input ahead of checkout.
type DraftHandler struct {
	svc draft.Service
}

func NewDraftHandler(svc draft.Service) *DraftHandler { return &DraftHandler{svc: svc} }

func (h *DraftHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.svc.Store(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":   true,
		"draftId":   d.ID,
		"expiresAt": d.ExpiresAt,
	})
}

func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "draft": d.Request, "createdAt": d.CreatedAt})
}
