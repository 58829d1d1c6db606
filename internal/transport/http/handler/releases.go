package handler

import (
	"net/http"

	"github.com/presswire-api/internal/application/generate"
	"github.com/presswire-api/internal/domain"
	"github.com/presswire-api/internal/transport/http/middleware"
)

// ReleaseHandler publishes releases for callers admitted by the publish gate.
type ReleaseHandler struct {
	svc generate.Service
}

func NewReleaseHandler(svc generate.Service) *ReleaseHandler { return &ReleaseHandler{svc: svc} }

type publishedResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	PR      *domain.Publication `json:"pr"`
	// ManagementLink repeats pr.managementUrl for older clients.
	ManagementLink string `json:"managementLink"`
}

func (h *ReleaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, domain.ErrTokenMissing)
		return
	}
	var req domain.GenerateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	pub, err := h.svc.Generate(r.Context(), *id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, publishedResponse{
		Success:        true,
		Message:        "Press release generated successfully",
		PR:             pub,
		ManagementLink: pub.ManagementURL,
	})
}
