package handler

import (
	"net/http"

	"github.com/presswire-api/internal/application/discount"
)

// DiscountHandler serves public discount validation.
type DiscountHandler struct {
	svc discount.Service
}

func NewDiscountHandler(svc discount.Service) *DiscountHandler { return &DiscountHandler{svc: svc} }

type validateDiscountRequest struct {
	Code string `json:"code"`
}

// Validate answers 200 for both valid and invalid codes; validity is in the body.
func (h *DiscountHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateDiscountRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Validate(r.Context(), req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
