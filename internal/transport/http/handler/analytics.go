package handler

import (
	"net/http"

	"github.com/presswire-api/internal/application/analytics"
	"github.com/presswire-api/internal/domain"
)

// AnalyticsHandler records page views posted by published release pages.
type AnalyticsHandler struct {
	svc analytics.Service
}

func NewAnalyticsHandler(svc analytics.Service) *AnalyticsHandler { return &AnalyticsHandler{svc: svc} }

func (h *AnalyticsHandler) Track(w http.ResponseWriter, r *http.Request) {
	var view domain.PageView
	if err := decode(r, &view); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.Track(r.Context(), view)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"tracked":      res.Tracked,
		"sessionId":    res.SessionID,
		"isNewVisitor": res.IsNewVisitor,
	})
}
