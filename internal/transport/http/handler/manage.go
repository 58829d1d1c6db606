package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/presswire-api/internal/application/analytics"
	"github.com/presswire-api/internal/application/release"
	"github.com/presswire-api/internal/domain"
)

// ManageHandler dispatches management-token actions.
type ManageHandler struct {
	releases  release.Service
	analytics analytics.Service
}

func NewManageHandler(releases release.Service, views analytics.Service) *ManageHandler {
	return &ManageHandler{releases: releases, analytics: views}
}

type editedPR struct {
	Slug       string     `json:"slug"`
	URL        string     `json:"url"`
	LastEdited *time.Time `json:"lastEdited,omitempty"`
	EditCount  int        `json:"editCount"`
}

type unpublishedPR struct {
	Slug          string     `json:"slug"`
	UnpublishedAt *time.Time `json:"unpublishedAt,omitempty"`
}

type unpublishData struct {
	Reason string `json:"reason"`
}

// extendData also accepts the extensionDays and paymentToken names used by
// older management pages.
type extendData struct {
	Days          int    `json:"days"`
	ExtensionDays int    `json:"extensionDays"`
	PaymentProof  string `json:"paymentProof"`
	PaymentToken  string `json:"paymentToken"`
}

func (d extendData) days() int {
	if d.Days != 0 {
		return d.Days
	}
	if d.ExtensionDays != 0 {
		return d.ExtensionDays
	}
	return release.DefaultExtendDays
}

func (d extendData) proof() string {
	if d.PaymentProof != "" {
		return d.PaymentProof
	}
	return d.PaymentToken
}

func (h *ManageHandler) Action(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ManagementToken == "" {
		writeError(w, r, fmt.Errorf("management token required: %w", domain.ErrUnauthorized))
		return
	}
	ctx := r.Context()
	tok := req.ManagementToken

	switch req.Action {
	case "get-pr":
		pr, err := h.releases.View(ctx, tok)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "pr": pr})

	case "edit-pr":
		var edit domain.ReleaseEdit
		if err := decodeData(req.Data, &edit); err != nil {
			writeError(w, r, err)
			return
		}
		rel, err := h.releases.Edit(ctx, tok, edit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Press release updated successfully",
			"pr":      editedPR{Slug: rel.Slug, URL: rel.URL, LastEdited: rel.LastEdited, EditCount: rel.EditCount},
		})

	case "unpublish-pr":
		var data unpublishData
		if err := decodeData(req.Data, &data); err != nil {
			writeError(w, r, err)
			return
		}
		rel, err := h.releases.Unpublish(ctx, tok, data.Reason)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Press release has been unpublished",
			"pr":      unpublishedPR{Slug: rel.Slug, UnpublishedAt: rel.UnpublishedAt},
		})

	case "get-analytics":
		rel, err := h.releases.Get(ctx, tok)
		if err != nil {
			writeError(w, r, err)
			return
		}
		report, err := h.analytics.Report(ctx, rel.Slug, rel.CreatedAt)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "analytics": report})

	case "extend-pr":
		var data extendData
		if err := decodeData(req.Data, &data); err != nil {
			writeError(w, r, err)
			return
		}
		days := data.days()
		rel, err := h.releases.Extend(ctx, tok, days, data.proof())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"message":   fmt.Sprintf("PR management extended by %d days", days),
			"expiresAt": rel.ExpiresAt,
		})

	default:
		writeError(w, r, unknownAction())
	}
}
