package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	personaldomain "helpem-go/internal/domain/personal"
	proposaldomain "helpem-go/internal/domain/proposal"
	tribedomain "helpem-go/internal/domain/tribe"
	"helpem-go/internal/transport/httpserver/middleware"
)

type createPersonalItemRequest struct {
	ItemType string          `json:"item_type" validate:"required"`
	Payload  json.RawMessage `json:"payload" validate:"required"`
}

type personalItemResponse struct {
	ID               string          `json:"id"`
	ItemType         string          `json:"item_type"`
	Payload          json.RawMessage `json:"payload"`
	FromTribe        bool            `json:"from_tribe"`
	AddedByTribeID   *string         `json:"added_by_tribe_id,omitempty"`
	AddedByTribeName *string         `json:"added_by_tribe_name,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

type suppressionResponse struct {
	OriginItemID string    `json:"origin_item_id"`
	SuppressedAt time.Time `json:"suppressed_at"`
}

func toPersonalItemResponse(item personaldomain.Item) personalItemResponse {
	return personalItemResponse{
		ID:               item.ID,
		ItemType:         item.ItemType,
		Payload:          json.RawMessage(item.Payload),
		FromTribe:        item.FromTribe(),
		AddedByTribeID:   item.AddedByTribeID,
		AddedByTribeName: item.AddedByTribeName,
		CreatedAt:        item.CreatedAt,
	}
}

func (h *Handlers) CreatePersonalItem(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	var req createPersonalItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "item_type and payload are required")
		return
	}

	// Personal items use the same category payload shapes as shared items.
	category := tribedomain.Category(strings.TrimSpace(req.ItemType))
	payload, err := proposaldomain.DecodePayload(h.validate, category, req.Payload)
	if err != nil {
		h.log.BusinessError("personal.create: invalid payload", err, "user_id", user.ID)
		writeError(w, http.StatusBadRequest, "invalid_payload", err.Error())
		return
	}

	item, err := h.Personal.Create(r.Context(), &personaldomain.Item{
		UserID:   user.ID,
		ItemType: string(category),
		Payload:  payload,
	})
	if err != nil {
		h.respondDomainError(w, "personal.create: create failed", err, "user_id", user.ID)
		return
	}

	writeJSON(w, http.StatusCreated, toPersonalItemResponse(*item))
}

func (h *Handlers) ListPersonalItems(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	items, err := h.Personal.List(r.Context(), user.ID, strings.TrimSpace(r.URL.Query().Get("item_type")))
	if err != nil {
		h.respondDomainError(w, "personal.list: list failed", err, "user_id", user.ID)
		return
	}

	response := make([]personalItemResponse, 0, len(items))
	for _, item := range items {
		response = append(response, toPersonalItemResponse(item))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": response})
}

// DeletePersonalItem deletes silently. For tribe-sourced items this also
// writes the suppression tombstone, which is what keeps the item from ever
// being re-proposed behind the user's back.
func (h *Handlers) DeletePersonalItem(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	itemID := chi.URLParam(r, "item_id")

	if err := h.Personal.Delete(r.Context(), user.ID, itemID); err != nil {
		h.respondDomainError(w, "personal.delete: delete failed", err, "user_id", user.ID, "item_id", itemID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ListSuppressions(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	origins, err := h.Suppression.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.respondDomainError(w, "suppressions.list: list failed", err, "user_id", user.ID)
		return
	}

	response := make([]suppressionResponse, 0, len(origins))
	for _, origin := range origins {
		response = append(response, suppressionResponse{
			OriginItemID: origin.OriginItemID,
			SuppressedAt: origin.SuppressedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"suppressions": response})
}

// Unsuppress removes a tombstone on explicit user request. Nothing else in
// the system ever clears one.
func (h *Handlers) Unsuppress(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	originItemID := chi.URLParam(r, "origin_item_id")

	if err := h.Suppression.Unsuppress(r.Context(), originItemID, user.ID); err != nil {
		h.respondDomainError(w, "suppressions.delete: unsuppress failed", err,
			"user_id", user.ID, "origin_item_id", originItemID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
