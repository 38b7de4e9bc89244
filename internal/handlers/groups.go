package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eldtechnologies/respoke-chatbot/internal/models"
)

// GroupListResponse represents the groups list response.
type GroupListResponse struct {
	Groups []models.GroupSummary `json:"groups"`
	Total  int                   `json:"total"`
}

// HistoryResponse represents one group's stored history.
type HistoryResponse struct {
	Group    string                 `json:"group"`
	Messages []models.StoredMessage `json:"messages"`
}

// ListGroups lists every group with stored history.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups := h.bot.History().Groups()
	h.JSON(w, http.StatusOK, GroupListResponse{
		Groups: groups,
		Total:  len(groups),
	})
}

// GroupHistory returns the stored history of one group, oldest first.
func (h *Handler) GroupHistory(w http.ResponseWriter, r *http.Request) {
	group := sanitizeID(chi.URLParam(r, "id"))
	if group == "" {
		h.Error(w, http.StatusBadRequest, "group is required")
		return
	}

	h.JSON(w, http.StatusOK, HistoryResponse{
		Group:    group,
		Messages: h.bot.History().Replay(group),
	})
}
