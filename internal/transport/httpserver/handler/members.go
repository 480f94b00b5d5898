package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	tribedomain "helpem-go/internal/domain/tribe"
	"helpem-go/internal/transport/httpserver/middleware"
)

type permissionsPatchRequest struct {
	CanAddTasks           *bool `json:"can_add_tasks,omitempty"`
	CanRemoveTasks        *bool `json:"can_remove_tasks,omitempty"`
	CanAddRoutines        *bool `json:"can_add_routines,omitempty"`
	CanRemoveRoutines     *bool `json:"can_remove_routines,omitempty"`
	CanAddAppointments    *bool `json:"can_add_appointments,omitempty"`
	CanRemoveAppointments *bool `json:"can_remove_appointments,omitempty"`
	CanAddGroceries       *bool `json:"can_add_groceries,omitempty"`
	CanRemoveGroceries    *bool `json:"can_remove_groceries,omitempty"`
}

func (p *permissionsPatchRequest) toPatch() *tribedomain.PermissionsPatch {
	if p == nil {
		return nil
	}
	return &tribedomain.PermissionsPatch{
		CanAddTasks:           p.CanAddTasks,
		CanRemoveTasks:        p.CanRemoveTasks,
		CanAddRoutines:        p.CanAddRoutines,
		CanRemoveRoutines:     p.CanRemoveRoutines,
		CanAddAppointments:    p.CanAddAppointments,
		CanRemoveAppointments: p.CanRemoveAppointments,
		CanAddGroceries:       p.CanAddGroceries,
		CanRemoveGroceries:    p.CanRemoveGroceries,
	}
}

type inviteMemberRequest struct {
	UserID      string                   `json:"user_id" validate:"required"`
	Permissions *permissionsPatchRequest `json:"permissions,omitempty"`
}

type updateMemberRequest struct {
	ManagementScope *string                  `json:"management_scope,omitempty"`
	ProposalNotifs  *bool                    `json:"proposal_notifications,omitempty"`
	DigestNotifs    *bool                    `json:"digest_notifications,omitempty"`
	Permissions     *permissionsPatchRequest `json:"permissions,omitempty"`
}

type permissionsResponse struct {
	CanAddTasks           bool `json:"can_add_tasks"`
	CanRemoveTasks        bool `json:"can_remove_tasks"`
	CanAddRoutines        bool `json:"can_add_routines"`
	CanRemoveRoutines     bool `json:"can_remove_routines"`
	CanAddAppointments    bool `json:"can_add_appointments"`
	CanRemoveAppointments bool `json:"can_remove_appointments"`
	CanAddGroceries       bool `json:"can_add_groceries"`
	CanRemoveGroceries    bool `json:"can_remove_groceries"`
}

type memberResponse struct {
	ID              string              `json:"id"`
	TribeID         string              `json:"tribe_id"`
	UserID          string              `json:"user_id"`
	InvitedBy       string              `json:"invited_by"`
	InvitedAt       time.Time           `json:"invited_at"`
	AcceptedAt      *time.Time          `json:"accepted_at,omitempty"`
	Status          string              `json:"status"`
	ManagementScope string              `json:"management_scope"`
	ProposalNotifs  bool                `json:"proposal_notifications"`
	DigestNotifs    bool                `json:"digest_notifications"`
	Permissions     permissionsResponse `json:"permissions"`
}

type memberRequestResponse struct {
	ID              string     `json:"id"`
	TribeID         string     `json:"tribe_id"`
	RequestedBy     string     `json:"requested_by"`
	RequestedUserID string     `json:"requested_user_id"`
	State           string     `json:"state"`
	CreatedAt       time.Time  `json:"created_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

func toMemberResponse(m tribedomain.Member) memberResponse {
	status := "pending"
	if m.Active() {
		status = "active"
	} else if m.LeftAt != nil {
		status = "left"
	}
	return memberResponse{
		ID:              m.ID,
		TribeID:         m.TribeID,
		UserID:          m.UserID,
		InvitedBy:       m.InvitedBy,
		InvitedAt:       m.InvitedAt,
		AcceptedAt:      m.AcceptedAt,
		Status:          status,
		ManagementScope: string(m.ManagementScope),
		ProposalNotifs:  m.ProposalNotifs,
		DigestNotifs:    m.DigestNotifs,
		Permissions: permissionsResponse{
			CanAddTasks:           m.Permissions.CanAddTasks,
			CanRemoveTasks:        m.Permissions.CanRemoveTasks,
			CanAddRoutines:        m.Permissions.CanAddRoutines,
			CanRemoveRoutines:     m.Permissions.CanRemoveRoutines,
			CanAddAppointments:    m.Permissions.CanAddAppointments,
			CanRemoveAppointments: m.Permissions.CanRemoveAppointments,
			CanAddGroceries:       m.Permissions.CanAddGroceries,
			CanRemoveGroceries:    m.Permissions.CanRemoveGroceries,
		},
	}
}

func toMemberRequestResponse(req tribedomain.MemberRequest) memberRequestResponse {
	return memberRequestResponse{
		ID:              req.ID,
		TribeID:         req.TribeID,
		RequestedBy:     req.RequestedBy,
		RequestedUserID: req.RequestedUserID,
		State:           string(req.State),
		CreatedAt:       req.CreatedAt,
		ResolvedAt:      req.ResolvedAt,
	}
}

// InviteMember either invites directly (owner) or records a member request for
// the owner to resolve (everyone else). The response shape tells the caller
// which one happened.
func (h *Handlers) InviteMember(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	tribeID := chi.URLParam(r, "tribe_id")

	var req inviteMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}

	result, err := h.Tribes.Invite(r.Context(), tribedomain.InviteInput{
		TribeID:       tribeID,
		InviterUserID: user.ID,
		InviteeUserID: req.UserID,
		Permissions:   req.Permissions.toPatch(),
	})
	if err != nil {
		h.respondDomainError(w, "members.invite: invite failed", err,
			"user_id", user.ID, "tribe_id", tribeID, "invitee", req.UserID)
		return
	}

	if result.Member != nil {
		writeJSON(w, http.StatusCreated, map[string]interface{}{"member": toMemberResponse(*result.Member)})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"request": toMemberRequestResponse(*result.Request)})
}

func (h *Handlers) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	tribeID := chi.URLParam(r, "tribe_id")

	member, err := h.Tribes.AcceptInvite(r.Context(), tribeID, user.ID)
	if err != nil {
		h.respondDomainError(w, "members.accept_invite: accept failed", err, "user_id", user.ID, "tribe_id", tribeID)
		return
	}

	writeJSON(w, http.StatusOK, toMemberResponse(*member))
}

func (h *Handlers) LeaveTribe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	tribeID := chi.URLParam(r, "tribe_id")

	if err := h.Tribes.Leave(r.Context(), tribeID, user.ID); err != nil {
		h.respondDomainError(w, "members.leave: leave failed", err, "user_id", user.ID, "tribe_id", tribeID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	tribeID := chi.URLParam(r, "tribe_id")

	members, err := h.Tribes.ListMembers(r.Context(), tribeID, user.ID)
	if err != nil {
		h.respondDomainError(w, "members.list: list failed", err, "user_id", user.ID, "tribe_id", tribeID)
		return
	}

	response := make([]memberResponse, 0, len(members))
	for _, member := range members {
		response = append(response, toMemberResponse(member))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"members": response})
}

func (h *Handlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	tribeID := chi.URLParam(r, "tribe_id")
	memberID := chi.URLParam(r, "member_id")

	if err := h.Tribes.RemoveMember(r.Context(), tribeID, user.ID, memberID); err != nil {
		h.respondDomainError(w, "members.remove: remove failed", err,
			"user_id", user.ID, "tribe_id", tribeID, "member_id", memberID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) UpdateMember(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	tribeID := chi.URLParam(r, "tribe_id")
	memberID := chi.URLParam(r, "member_id")

	var req updateMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	input := tribedomain.UpdateMemberInput{
		TribeID:        tribeID,
		MemberID:       memberID,
		CallerUserID:   user.ID,
		ProposalNotifs: req.ProposalNotifs,
		DigestNotifs:   req.DigestNotifs,
		Permissions:    req.Permissions.toPatch(),
	}
	if req.ManagementScope != nil {
		scope := tribedomain.ManagementScope(*req.ManagementScope)
		input.ManagementScope = &scope
	}

	member, err := h.Tribes.UpdateMember(r.Context(), input)
	if err != nil {
		h.respondDomainError(w, "members.update: update failed", err,
			"user_id", user.ID, "tribe_id", tribeID, "member_id", memberID)
		return
	}

	writeJSON(w, http.StatusOK, toMemberResponse(*member))
}

func (h *Handlers) ListMemberRequests(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	tribeID := chi.URLParam(r, "tribe_id")

	requests, err := h.Tribes.ListRequests(r.Context(), tribeID, user.ID)
	if err != nil {
		h.respondDomainError(w, "member_requests.list: list failed", err, "user_id", user.ID, "tribe_id", tribeID)
		return
	}

	response := make([]memberRequestResponse, 0, len(requests))
	for _, request := range requests {
		response = append(response, toMemberRequestResponse(request))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": response})
}

func (h *Handlers) ApproveMemberRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	tribeID := chi.URLParam(r, "tribe_id")
	requestID := chi.URLParam(r, "request_id")

	member, err := h.Tribes.ApproveRequest(r.Context(), tribeID, user.ID, requestID)
	if err != nil {
		h.respondDomainError(w, "member_requests.approve: approve failed", err,
			"user_id", user.ID, "tribe_id", tribeID, "request_id", requestID)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"member": toMemberResponse(*member)})
}

func (h *Handlers) DenyMemberRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	tribeID := chi.URLParam(r, "tribe_id")
	requestID := chi.URLParam(r, "request_id")

	if err := h.Tribes.DenyRequest(r.Context(), tribeID, user.ID, requestID); err != nil {
		h.respondDomainError(w, "member_requests.deny: deny failed", err,
			"user_id", user.ID, "tribe_id", tribeID, "request_id", requestID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
