package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	proposaldomain "helpem-go/internal/domain/proposal"
	tribedomain "helpem-go/internal/domain/tribe"
	"helpem-go/internal/transport/httpserver/middleware"
)

const idempotencyKeyHeader = "Idempotency-Key"

type createItemRequest struct {
	ItemType         string          `json:"item_type" validate:"required"`
	Payload          json.RawMessage `json:"payload" validate:"required"`
	RecipientUserIDs []string        `json:"recipient_user_ids" validate:"required,min=1,dive,required"`
}

type sharedItemResponse struct {
	ID        string          `json:"id"`
	TribeID   string          `json:"tribe_id"`
	CreatedBy string          `json:"created_by"`
	ItemType  string          `json:"item_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

type proposalResponse struct {
	ID                string    `json:"id"`
	ItemID            string    `json:"item_id"`
	RecipientMemberID string    `json:"recipient_member_id"`
	State             string    `json:"state"`
	CreatedAt         time.Time `json:"created_at"`
	StateChangedAt    time.Time `json:"state_changed_at"`
}

type inboxEntryResponse struct {
	Proposal proposalResponse   `json:"proposal"`
	Item     sharedItemResponse `json:"item"`
}

type inboxResponse struct {
	New      []inboxEntryResponse `json:"new"`
	Later    []inboxEntryResponse `json:"later"`
	Accepted []inboxEntryResponse `json:"accepted"`
}

func toSharedItemResponse(item proposaldomain.SharedItem) sharedItemResponse {
	return sharedItemResponse{
		ID:        item.ID,
		TribeID:   item.TribeID,
		CreatedBy: item.CreatedBy,
		ItemType:  string(item.ItemType),
		Payload:   json.RawMessage(item.Payload),
		CreatedAt: item.CreatedAt,
	}
}

func toProposalResponse(p proposaldomain.Proposal) proposalResponse {
	return proposalResponse{
		ID:                p.ID,
		ItemID:            p.ItemID,
		RecipientMemberID: p.RecipientMemberID,
		State:             string(p.State),
		CreatedAt:         p.CreatedAt,
		StateChangedAt:    p.StateChangedAt,
	}
}

func toInboxEntries(entries []proposaldomain.InboxProposal) []inboxEntryResponse {
	response := make([]inboxEntryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, inboxEntryResponse{
			Proposal: toProposalResponse(entry.Proposal),
			Item:     toSharedItemResponse(entry.Item),
		})
	}
	return response
}

// CreateSharedItem validates the category payload at the boundary and fans
// the item out to every recipient. The optional Idempotency-Key header makes
// the create safely retryable.
func (h *Handlers) CreateSharedItem(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	tribeID := chi.URLParam(r, "tribe_id")

	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "item_type, payload and recipient_user_ids are required")
		return
	}

	category := tribedomain.Category(strings.TrimSpace(req.ItemType))
	payload, err := proposaldomain.DecodePayload(h.validate, category, req.Payload)
	if err != nil {
		h.log.BusinessError("items.create: invalid payload", err, "user_id", user.ID, "tribe_id", tribeID)
		writeError(w, http.StatusBadRequest, "invalid_payload", err.Error())
		return
	}

	result, err := h.Proposals.CreateSharedItem(r.Context(), proposaldomain.CreateItemInput{
		TribeID:          tribeID,
		CreatorUserID:    user.ID,
		ItemType:         category,
		Payload:          payload,
		RecipientUserIDs: req.RecipientUserIDs,
		IdempotencyKey:   r.Header.Get(idempotencyKeyHeader),
	})
	if err != nil {
		h.respondDomainError(w, "items.create: create failed", err, "user_id", user.ID, "tribe_id", tribeID)
		return
	}

	proposals := make([]proposalResponse, 0, len(result.Proposals))
	for _, p := range result.Proposals {
		proposals = append(proposals, toProposalResponse(p))
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"item":      toSharedItemResponse(result.Item),
		"proposals": proposals,
	})
}

func (h *Handlers) GetInbox(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	tribeID := chi.URLParam(r, "tribe_id")

	inbox, err := h.Proposals.GetInbox(r.Context(), tribeID, user.ID)
	if err != nil {
		h.respondDomainError(w, "inbox.get: projection failed", err, "user_id", user.ID, "tribe_id", tribeID)
		return
	}

	writeJSON(w, http.StatusOK, inboxResponse{
		New:      toInboxEntries(inbox.New),
		Later:    toInboxEntries(inbox.Later),
		Accepted: toInboxEntries(inbox.Accepted),
	})
}

func (h *Handlers) AcceptProposal(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, proposaldomain.ActionAccept)
}

func (h *Handlers) NotNowProposal(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, proposaldomain.ActionNotNow)
}

func (h *Handlers) MaybeProposal(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, proposaldomain.ActionMaybe)
}

func (h *Handlers) DismissProposal(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, proposaldomain.ActionDismiss)
}

func (h *Handlers) transition(w http.ResponseWriter, r *http.Request, action proposaldomain.Action) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	tribeID := chi.URLParam(r, "tribe_id")
	proposalID := chi.URLParam(r, "proposal_id")

	result, err := h.Proposals.Transition(r.Context(), proposaldomain.TransitionInput{
		TribeID:         tribeID,
		ProposalID:      proposalID,
		RecipientUserID: user.ID,
		Action:          action,
		IdempotencyKey:  r.Header.Get(idempotencyKeyHeader),
	})
	if err != nil {
		h.respondDomainError(w, "proposals.transition: "+string(action)+" failed", err,
			"user_id", user.ID, "tribe_id", tribeID, "proposal_id", proposalID)
		return
	}

	writeJSON(w, http.StatusOK, toProposalResponse(*result))
}
