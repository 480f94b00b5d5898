package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	personaldomain "helpem-go/internal/domain/personal"
	proposaldomain "helpem-go/internal/domain/proposal"
	suppressiondomain "helpem-go/internal/domain/suppression"
	tribedomain "helpem-go/internal/domain/tribe"
	"helpem-go/pkg/logger"
)

type Handlers struct {
	Tribes      *tribedomain.Service
	Proposals   *proposaldomain.Service
	Personal    *personaldomain.Service
	Suppression *suppressiondomain.Service

	log      logger.Logger
	validate *validator.Validate
}

func New(tribes *tribedomain.Service, proposals *proposaldomain.Service, personal *personaldomain.Service, suppression *suppressiondomain.Service, log logger.Logger) *Handlers {
	return &Handlers{
		Tribes:      tribes,
		Proposals:   proposals,
		Personal:    personal,
		Suppression: suppression,
		log:         log,
		validate:    validator.New(),
	}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondDomainError maps domain sentinels to HTTP responses. Anything
// unrecognized is logged as internal and reported as a 500.
func (h *Handlers) respondDomainError(w http.ResponseWriter, op string, err error, fields ...any) {
	type mapping struct {
		target  error
		status  int
		code    string
		message string
	}

	mappings := []mapping{
		{tribedomain.ErrTribeNotFound, http.StatusNotFound, "tribe_not_found", "tribe not found"},
		{tribedomain.ErrTribeDeleted, http.StatusConflict, "tribe_deleted", "tribe has been deleted"},
		{tribedomain.ErrMemberNotFound, http.StatusNotFound, "member_not_found", "member not found"},
		{tribedomain.ErrRequestNotFound, http.StatusNotFound, "request_not_found", "member request not found"},
		{tribedomain.ErrAlreadyMember, http.StatusConflict, "already_member", "user is already a member or invited"},
		{tribedomain.ErrRequestExists, http.StatusConflict, "request_exists", "a pending request for this user already exists"},
		{tribedomain.ErrRequestResolved, http.StatusConflict, "request_resolved", "member request already resolved"},
		{tribedomain.ErrPermissionDenied, http.StatusForbidden, "permission_denied", "permission denied"},
		{tribedomain.ErrNotOwner, http.StatusForbidden, "not_owner", "only the tribe owner can do this"},
		{tribedomain.ErrOwnerCannotLeave, http.StatusConflict, "owner_cannot_leave", "owner cannot leave the tribe"},
		{tribedomain.ErrInvalidScope, http.StatusBadRequest, "invalid_scope", "invalid management scope"},
		{tribedomain.ErrInvalidCategory, http.StatusBadRequest, "invalid_category", "invalid item category"},
		{tribedomain.ErrInviteNotPending, http.StatusConflict, "invite_not_pending", "invitation is not pending"},
		{tribedomain.ErrCannotEditOwnPerms, http.StatusConflict, "cannot_edit_own_permissions", "owner cannot edit their own permissions"},
		{tribedomain.ErrLinkNotFound, http.StatusNotFound, "invite_link_not_found", "invite link not found"},
		{tribedomain.ErrLinkExpired, http.StatusGone, "invite_link_expired", "invite link has expired"},
		{tribedomain.ErrLinkExhausted, http.StatusGone, "invite_link_exhausted", "invite link has no uses left"},

		{proposaldomain.ErrProposalNotFound, http.StatusNotFound, "proposal_not_found", "proposal not found"},
		{proposaldomain.ErrItemNotFound, http.StatusNotFound, "item_not_found", "shared item not found"},
		{proposaldomain.ErrItemSuppressed, http.StatusConflict, "item_suppressed", "recipient deleted this item; it cannot be re-added"},
		{proposaldomain.ErrNoRecipients, http.StatusBadRequest, "no_recipients", "at least one recipient is required"},
		{proposaldomain.ErrInvalidItemType, http.StatusBadRequest, "invalid_item_type", "invalid item type"},
		{proposaldomain.ErrInvalidState, http.StatusConflict, "invalid_state", "proposal state does not allow this transition"},
		{proposaldomain.ErrInvalidAction, http.StatusBadRequest, "invalid_action", "invalid proposal action"},
		{proposaldomain.ErrKeyRequired, http.StatusBadRequest, "idempotency_key_required", "idempotency key is required"},
		{proposaldomain.ErrKeyPayloadMismatch, http.StatusConflict, "idempotency_key_mismatch", "idempotency key already used with a different request"},
		{proposaldomain.ErrActionInProgress, http.StatusConflict, "action_in_progress", "operation is being processed, retry shortly"},

		{personaldomain.ErrItemNotFound, http.StatusNotFound, "personal_item_not_found", "personal item not found"},
		{personaldomain.ErrNotOwner, http.StatusForbidden, "not_item_owner", "item belongs to another user"},

		{suppressiondomain.ErrOriginRequired, http.StatusBadRequest, "invalid_request", "origin item id is required"},
		{suppressiondomain.ErrUserRequired, http.StatusBadRequest, "invalid_request", "user id is required"},
	}

	for _, m := range mappings {
		if errors.Is(err, m.target) {
			h.log.BusinessError(op, err, fields...)
			writeError(w, m.status, m.code, m.message)
			return
		}
	}

	h.log.InternalError(op, err, fields...)
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
