package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	tribedomain "helpem-go/internal/domain/tribe"
	"helpem-go/internal/transport/httpserver/middleware"
)

type createInviteLinkRequest struct {
	MaxUses       *int `json:"max_uses,omitempty" validate:"omitempty,min=1"`
	ExpiresInDays *int `json:"expires_in_days,omitempty" validate:"omitempty,min=1"`
}

type inviteLinkResponse struct {
	ID        string     `json:"id"`
	TribeID   string     `json:"tribe_id"`
	Token     string     `json:"token"`
	MaxUses   *int       `json:"max_uses,omitempty"`
	UsedCount int        `json:"used_count"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type inviteLinkPreviewResponse struct {
	TribeID     string `json:"tribe_id"`
	TribeName   string `json:"tribe_name"`
	MemberCount int64  `json:"member_count"`
}

func toInviteLinkResponse(l tribedomain.InviteLink) inviteLinkResponse {
	return inviteLinkResponse{
		ID:        l.ID,
		TribeID:   l.TribeID,
		Token:     l.Token,
		MaxUses:   l.MaxUses,
		UsedCount: l.UsedCount,
		ExpiresAt: l.ExpiresAt,
		CreatedAt: l.CreatedAt,
	}
}

func (h *Handlers) CreateInviteLink(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	tribeID := chi.URLParam(r, "tribe_id")

	// Both fields are optional, so an empty body is a valid request.
	var req createInviteLinkRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
			return
		}
		if err := h.validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "max_uses and expires_in_days must be positive")
			return
		}
	}

	link, err := h.Tribes.CreateInviteLink(r.Context(), tribedomain.CreateLinkInput{
		TribeID:       tribeID,
		CreatorUserID: user.ID,
		MaxUses:       req.MaxUses,
		ExpiresInDays: req.ExpiresInDays,
	})
	if err != nil {
		h.respondDomainError(w, "invite_links.create: create failed", err, "user_id", user.ID, "tribe_id", tribeID)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"invite_link": toInviteLinkResponse(*link)})
}

// GetInviteLinkInfo is the unauthenticated landing check: it tells whoever
// holds the link which tribe they would join, without exposing members.
func (h *Handlers) GetInviteLinkInfo(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	preview, err := h.Tribes.InviteLinkPreview(r.Context(), token)
	if err != nil {
		h.respondDomainError(w, "invite_links.preview: lookup failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tribe": inviteLinkPreviewResponse{
		TribeID:     preview.TribeID,
		TribeName:   preview.TribeName,
		MemberCount: preview.MemberCount,
	}})
}

func (h *Handlers) JoinByInviteLink(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	token := chi.URLParam(r, "token")

	member, err := h.Tribes.RedeemInviteLink(r.Context(), token, user.ID)
	if err != nil {
		h.respondDomainError(w, "invite_links.join: join failed", err, "user_id", user.ID)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"member": toMemberResponse(*member)})
}
