package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	tribedomain "helpem-go/internal/domain/tribe"
	"helpem-go/internal/transport/httpserver/middleware"
)

type createTribeRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type updateTribeRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type tribeResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	OwnerID   string     `json:"owner_id"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

type tribeSummaryResponse struct {
	tribeResponse
	Member           memberResponse `json:"member"`
	PendingProposals int64          `json:"pending_proposals"`
}

func toTribeResponse(t tribedomain.Tribe) tribeResponse {
	return tribeResponse{
		ID:        t.ID,
		Name:      t.Name,
		OwnerID:   t.OwnerID,
		CreatedAt: t.CreatedAt,
		DeletedAt: t.DeletedAt,
	}
}

func toTribeSummaryResponse(s tribedomain.TribeSummary) tribeSummaryResponse {
	return tribeSummaryResponse{
		tribeResponse:    toTribeResponse(s.Tribe),
		Member:           toMemberResponse(s.Member),
		PendingProposals: s.PendingProposals,
	}
}

func (h *Handlers) CreateTribe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	var req createTribeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	result, err := h.Tribes.CreateTribe(r.Context(), user.ID, req.Name)
	if err != nil {
		h.respondDomainError(w, "tribes.create: create failed", err, "user_id", user.ID)
		return
	}

	writeJSON(w, http.StatusCreated, toTribeResponse(*result))
}

func (h *Handlers) ListTribes(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	summaries, err := h.Tribes.ListTribes(r.Context(), user.ID)
	if err != nil {
		h.respondDomainError(w, "tribes.list: list failed", err, "user_id", user.ID)
		return
	}

	response := make([]tribeSummaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		response = append(response, toTribeSummaryResponse(summary))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tribes": response})
}

func (h *Handlers) GetTribe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	tribeID := chi.URLParam(r, "tribe_id")

	summary, err := h.Tribes.GetTribe(r.Context(), tribeID, user.ID)
	if err != nil {
		h.respondDomainError(w, "tribes.get: get failed", err, "user_id", user.ID, "tribe_id", tribeID)
		return
	}

	writeJSON(w, http.StatusOK, toTribeSummaryResponse(*summary))
}

func (h *Handlers) UpdateTribe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	tribeID := chi.URLParam(r, "tribe_id")

	var req updateTribeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	result, err := h.Tribes.UpdateTribe(r.Context(), tribeID, user.ID, req.Name)
	if err != nil {
		h.respondDomainError(w, "tribes.update: update failed", err, "user_id", user.ID, "tribe_id", tribeID)
		return
	}

	writeJSON(w, http.StatusOK, toTribeResponse(*result))
}

func (h *Handlers) DeleteTribe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	tribeID := chi.URLParam(r, "tribe_id")

	if err := h.Tribes.DeleteTribe(r.Context(), tribeID, user.ID); err != nil {
		h.respondDomainError(w, "tribes.delete: delete failed", err, "user_id", user.ID, "tribe_id", tribeID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ListActivity(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	tribeID := chi.URLParam(r, "tribe_id")

	entries, err := h.Tribes.ListActivity(r.Context(), tribeID, user.ID)
	if err != nil {
		h.respondDomainError(w, "tribes.activity: list failed", err, "user_id", user.ID, "tribe_id", tribeID)
		return
	}

	type activityResponse struct {
		ID        string    `json:"id"`
		Type      string    `json:"type"`
		Message   string    `json:"message"`
		CreatedBy *string   `json:"created_by,omitempty"`
		CreatedAt time.Time `json:"created_at"`
	}
	response := make([]activityResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, activityResponse{
			ID:        entry.ID,
			Type:      entry.Type,
			Message:   entry.Message,
			CreatedBy: entry.CreatedBy,
			CreatedAt: entry.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"activity": response})
}
