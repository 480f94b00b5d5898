package tribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const activityFeedLimit = 50

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateTribe(ctx context.Context, ownerID, name string) (*Tribe, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	var result Tribe
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		now := time.Now().UTC()
		created := Tribe{
			ID:      uuid.NewString(),
			Name:    name,
			OwnerID: ownerID,
		}
		if err := tx.CreateTribe(ctx, &created); err != nil {
			return err
		}

		owner := Member{
			ID:              uuid.NewString(),
			TribeID:         created.ID,
			UserID:          ownerID,
			InvitedBy:       ownerID,
			AcceptedAt:      &now,
			ManagementScope: ScopeOnlyShared,
			ProposalNotifs:  true,
			DigestNotifs:    true,
			Permissions:     OwnerPermissions(),
		}
		owner.Permissions.MemberID = owner.ID
		if err := tx.CreateMember(ctx, &owner); err != nil {
			return err
		}

		result = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// ListTribes returns the caller's active memberships with pending proposal
// counts. Soft-deleted tribes are filtered out.
func (s *Service) ListTribes(ctx context.Context, userID string) ([]TribeSummary, error) {
	memberships, err := s.repo.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]TribeSummary, 0, len(memberships))
	for _, member := range memberships {
		if !member.Active() {
			continue
		}
		t, err := s.repo.GetTribe(ctx, member.TribeID)
		if err != nil {
			if errors.Is(err, ErrTribeNotFound) {
				continue
			}
			return nil, err
		}
		if t.Deleted() {
			continue
		}
		pending, err := s.repo.CountPendingProposals(ctx, member.ID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, TribeSummary{
			Tribe:            *t,
			Member:           member,
			PendingProposals: pending,
		})
	}

	return summaries, nil
}

func (s *Service) GetTribe(ctx context.Context, tribeID, userID string) (*TribeSummary, error) {
	t, err := s.repo.GetTribe(ctx, tribeID)
	if err != nil {
		return nil, err
	}

	member, err := s.repo.GetCurrentMember(ctx, tribeID, userID)
	if err != nil {
		return nil, err
	}

	pending, err := s.repo.CountPendingProposals(ctx, member.ID)
	if err != nil {
		return nil, err
	}

	return &TribeSummary{Tribe: *t, Member: *member, PendingProposals: pending}, nil
}

func (s *Service) UpdateTribe(ctx context.Context, tribeID, userID, name string) (*Tribe, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	t, err := s.writableTribeOwnedBy(ctx, tribeID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTribeName(ctx, tribeID, name); err != nil {
		return nil, err
	}

	t.Name = name
	return t, nil
}

// DeleteTribe soft-deletes. Proposals and suppression tombstones referencing
// the tribe's items stay intact; the tribe just becomes read-only.
func (s *Service) DeleteTribe(ctx context.Context, tribeID, userID string) error {
	if _, err := s.writableTribeOwnedBy(ctx, tribeID, userID); err != nil {
		return err
	}
	return s.repo.SoftDeleteTribe(ctx, tribeID)
}

type InviteInput struct {
	TribeID       string
	InviterUserID string
	InviteeUserID string
	Permissions   *PermissionsPatch
}

// InviteResult carries either the pending member row (owner invited directly)
// or the member request created on behalf of a non-owner.
type InviteResult struct {
	Member  *Member
	Request *MemberRequest
}

// Invite adds a pending member when the inviter owns the tribe, or records a
// member request for the owner to resolve otherwise. A former member is
// re-invited with a brand new row; left rows are never reused.
func (s *Service) Invite(ctx context.Context, input InviteInput) (*InviteResult, error) {
	t, err := s.repo.GetTribe(ctx, input.TribeID)
	if err != nil {
		return nil, err
	}
	if t.Deleted() {
		return nil, ErrTribeDeleted
	}

	inviter, err := s.repo.GetCurrentMember(ctx, input.TribeID, input.InviterUserID)
	if err != nil {
		return nil, err
	}
	if !inviter.Active() {
		return nil, ErrMemberNotFound
	}

	if t.OwnerID != input.InviterUserID {
		return s.createMemberRequest(ctx, input)
	}

	var member Member
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		if _, err := tx.GetCurrentMember(ctx, input.TribeID, input.InviteeUserID); err == nil {
			return ErrAlreadyMember
		} else if !errors.Is(err, ErrMemberNotFound) {
			return err
		}

		permissions := DefaultInviteePermissions()
		if input.Permissions != nil {
			input.Permissions.apply(&permissions)
		}

		member = Member{
			ID:              uuid.NewString(),
			TribeID:         input.TribeID,
			UserID:          input.InviteeUserID,
			InvitedBy:       input.InviterUserID,
			ManagementScope: ScopeOnlyShared,
			ProposalNotifs:  true,
			DigestNotifs:    true,
			Permissions:     permissions,
		}
		member.Permissions.MemberID = member.ID
		return tx.CreateMember(ctx, &member)
	})
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, input.TribeID, input.InviterUserID,
		fmt.Sprintf("member %s invited", input.InviteeUserID))

	return &InviteResult{Member: &member}, nil
}

func (s *Service) createMemberRequest(ctx context.Context, input InviteInput) (*InviteResult, error) {
	if _, err := s.repo.GetCurrentMember(ctx, input.TribeID, input.InviteeUserID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, ErrMemberNotFound) {
		return nil, err
	}

	if _, err := s.repo.GetPendingRequest(ctx, input.TribeID, input.InviteeUserID); err == nil {
		return nil, ErrRequestExists
	} else if !errors.Is(err, ErrRequestNotFound) {
		return nil, err
	}

	request := MemberRequest{
		ID:              uuid.NewString(),
		TribeID:         input.TribeID,
		RequestedBy:     input.InviterUserID,
		RequestedUserID: input.InviteeUserID,
		State:           RequestStatePending,
	}
	if err := s.repo.CreateRequest(ctx, &request); err != nil {
		return nil, err
	}

	s.recordActivity(ctx, input.TribeID, input.InviterUserID,
		fmt.Sprintf("member %s requested to add %s", input.InviterUserID, input.InviteeUserID))

	return &InviteResult{Request: &request}, nil
}

// AcceptInvite is idempotent by construction: accepting an already accepted
// membership returns it unchanged.
func (s *Service) AcceptInvite(ctx context.Context, tribeID, userID string) (*Member, error) {
	member, err := s.repo.GetCurrentMember(ctx, tribeID, userID)
	if err != nil {
		return nil, err
	}
	if member.Active() {
		return member, nil
	}
	if !member.Pending() {
		return nil, ErrInviteNotPending
	}

	if err := s.repo.SetMemberAccepted(ctx, member.ID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	member.AcceptedAt = &now
	return member, nil
}

// Leave marks the membership as left. The row is kept: former members stay
// excluded from fan-out and the audit trail survives.
func (s *Service) Leave(ctx context.Context, tribeID, userID string) error {
	t, err := s.repo.GetTribe(ctx, tribeID)
	if err != nil {
		return err
	}
	if t.OwnerID == userID {
		return ErrOwnerCannotLeave
	}

	member, err := s.repo.GetCurrentMember(ctx, tribeID, userID)
	if err != nil {
		return err
	}

	return s.repo.SetMemberLeft(ctx, member.ID)
}

func (s *Service) RemoveMember(ctx context.Context, tribeID, ownerUserID, memberID string) error {
	t, err := s.writableTribeOwnedBy(ctx, tribeID, ownerUserID)
	if err != nil {
		return err
	}

	member, err := s.repo.GetMember(ctx, memberID)
	if err != nil {
		return err
	}
	if member.TribeID != tribeID || member.LeftAt != nil {
		return ErrMemberNotFound
	}
	if member.UserID == t.OwnerID {
		return ErrOwnerCannotLeave
	}

	if err := s.repo.SetMemberLeft(ctx, member.ID); err != nil {
		return err
	}

	s.recordActivity(ctx, tribeID, ownerUserID, fmt.Sprintf("member %s removed", member.UserID))
	return nil
}

func (s *Service) ListMembers(ctx context.Context, tribeID, userID string) ([]Member, error) {
	if _, err := s.ActiveMember(ctx, tribeID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, tribeID)
}

func (s *Service) ListRequests(ctx context.Context, tribeID, userID string) ([]MemberRequest, error) {
	t, err := s.repo.GetTribe(ctx, tribeID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ActiveMember(ctx, tribeID, userID); err != nil {
		return nil, err
	}

	if t.OwnerID == userID {
		return s.repo.ListRequests(ctx, tribeID, true, "")
	}
	return s.repo.ListRequests(ctx, tribeID, false, userID)
}

// ApproveRequest resolves a pending member request and creates the pending
// member row in one transaction.
func (s *Service) ApproveRequest(ctx context.Context, tribeID, ownerUserID, requestID string) (*Member, error) {
	if _, err := s.writableTribeOwnedBy(ctx, tribeID, ownerUserID); err != nil {
		return nil, err
	}

	var member Member
	err := s.repo.Transaction(ctx, func(tx Repository) error {
		request, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if request.TribeID != tribeID {
			return ErrRequestNotFound
		}
		if request.State != RequestStatePending {
			return ErrRequestResolved
		}

		if _, err := tx.GetCurrentMember(ctx, tribeID, request.RequestedUserID); err == nil {
			return ErrAlreadyMember
		} else if !errors.Is(err, ErrMemberNotFound) {
			return err
		}

		now := time.Now().UTC()
		request.State = RequestStateApproved
		request.ResolvedAt = &now
		request.ResolvedBy = &ownerUserID
		if err := tx.ResolveRequest(ctx, request); err != nil {
			return err
		}

		member = Member{
			ID:              uuid.NewString(),
			TribeID:         tribeID,
			UserID:          request.RequestedUserID,
			InvitedBy:       request.RequestedBy,
			ManagementScope: ScopeOnlyShared,
			ProposalNotifs:  true,
			DigestNotifs:    true,
			Permissions:     DefaultInviteePermissions(),
		}
		member.Permissions.MemberID = member.ID
		return tx.CreateMember(ctx, &member)
	})
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, tribeID, ownerUserID, fmt.Sprintf("member request %s approved", requestID))
	return &member, nil
}

func (s *Service) DenyRequest(ctx context.Context, tribeID, ownerUserID, requestID string) error {
	if _, err := s.writableTribeOwnedBy(ctx, tribeID, ownerUserID); err != nil {
		return err
	}

	request, err := s.repo.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if request.TribeID != tribeID {
		return ErrRequestNotFound
	}
	if request.State != RequestStatePending {
		return ErrRequestResolved
	}

	now := time.Now().UTC()
	request.State = RequestStateDenied
	request.ResolvedAt = &now
	request.ResolvedBy = &ownerUserID
	return s.repo.ResolveRequest(ctx, request)
}

type UpdateMemberInput struct {
	TribeID         string
	MemberID        string
	CallerUserID    string
	ManagementScope *ManagementScope
	ProposalNotifs  *bool
	DigestNotifs    *bool
	Permissions     *PermissionsPatch
}

// UpdateMember lets members change their own scope and notification
// preferences, and lets the owner change other members' permissions.
// Permissions are server-authoritative; nobody edits their own.
func (s *Service) UpdateMember(ctx context.Context, input UpdateMemberInput) (*Member, error) {
	t, err := s.repo.GetTribe(ctx, input.TribeID)
	if err != nil {
		return nil, err
	}
	if t.Deleted() {
		return nil, ErrTribeDeleted
	}

	member, err := s.repo.GetMember(ctx, input.MemberID)
	if err != nil {
		return nil, err
	}
	if member.TribeID != input.TribeID {
		return nil, ErrMemberNotFound
	}

	isSelf := member.UserID == input.CallerUserID
	isOwner := t.OwnerID == input.CallerUserID
	if !isSelf && !isOwner {
		return nil, ErrPermissionDenied
	}

	if isSelf {
		if input.ManagementScope != nil {
			scope := *input.ManagementScope
			if scope != ScopeOnlyShared && scope != ScopeSharedAndPersonal {
				return nil, ErrInvalidScope
			}
			member.ManagementScope = scope
		}
		if input.ProposalNotifs != nil {
			member.ProposalNotifs = *input.ProposalNotifs
		}
		if input.DigestNotifs != nil {
			member.DigestNotifs = *input.DigestNotifs
		}
		if err := s.repo.UpdateMemberSettings(ctx, member); err != nil {
			return nil, err
		}
	}

	if input.Permissions != nil {
		if !isOwner {
			return nil, ErrPermissionDenied
		}
		if member.UserID == input.CallerUserID {
			return nil, ErrCannotEditOwnPerms
		}
		permissions := member.Permissions
		permissions.MemberID = member.ID
		input.Permissions.apply(&permissions)
		if err := s.repo.UpsertPermissions(ctx, &permissions); err != nil {
			return nil, err
		}
		member.Permissions = permissions
	}

	return member, nil
}

// CheckPermission resolves the caller to an active member of a live tribe and
// verifies the per-category capability. The owner bypasses capability checks.
func (s *Service) CheckPermission(ctx context.Context, userID, tribeID string, action Action, category Category) (*Member, error) {
	if !category.Valid() {
		return nil, ErrInvalidCategory
	}

	t, err := s.repo.GetTribe(ctx, tribeID)
	if err != nil {
		return nil, err
	}
	if t.Deleted() {
		return nil, ErrTribeDeleted
	}

	member, err := s.ActiveMember(ctx, tribeID, userID)
	if err != nil {
		return nil, err
	}

	if t.OwnerID == userID {
		return member, nil
	}
	if !member.Permissions.Allows(action, category) {
		return nil, ErrPermissionDenied
	}

	return member, nil
}

func (s *Service) ActiveMember(ctx context.Context, tribeID, userID string) (*Member, error) {
	member, err := s.repo.GetCurrentMember(ctx, tribeID, userID)
	if err != nil {
		return nil, err
	}
	if !member.Active() {
		return nil, ErrMemberNotFound
	}
	return member, nil
}

// ActiveMembersByUserIDs resolves every user id to an active member or fails
// wholesale. Fan-out depends on this being all-or-nothing.
func (s *Service) ActiveMembersByUserIDs(ctx context.Context, tribeID string, userIDs []string) ([]Member, error) {
	seen := make(map[string]struct{}, len(userIDs))
	members := make([]Member, 0, len(userIDs))
	for _, userID := range userIDs {
		if _, ok := seen[userID]; ok {
			continue
		}
		seen[userID] = struct{}{}

		member, err := s.ActiveMember(ctx, tribeID, userID)
		if err != nil {
			return nil, err
		}
		members = append(members, *member)
	}
	return members, nil
}

// TribeName reads the display name without a membership check; it backs
// provenance tags on materialized personal items.
func (s *Service) TribeName(ctx context.Context, tribeID string) (string, error) {
	t, err := s.repo.GetTribe(ctx, tribeID)
	if err != nil {
		return "", err
	}
	return t.Name, nil
}

func (s *Service) ListActivity(ctx context.Context, tribeID, userID string) ([]Activity, error) {
	if _, err := s.ActiveMember(ctx, tribeID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListActivity(ctx, tribeID, activityFeedLimit)
}

func (s *Service) writableTribeOwnedBy(ctx context.Context, tribeID, userID string) (*Tribe, error) {
	t, err := s.repo.GetTribe(ctx, tribeID)
	if err != nil {
		return nil, err
	}
	if t.Deleted() {
		return nil, ErrTribeDeleted
	}
	if t.OwnerID != userID {
		return nil, ErrNotOwner
	}
	return t, nil
}

// recordActivity is best effort; a failed audit entry never fails the action.
func (s *Service) recordActivity(ctx context.Context, tribeID, createdBy, message string) {
	_ = s.repo.CreateActivity(ctx, &Activity{
		ID:        uuid.NewString(),
		TribeID:   tribeID,
		Type:      ActivityTypeSystem,
		Message:   message,
		CreatedBy: &createdBy,
	})
}
