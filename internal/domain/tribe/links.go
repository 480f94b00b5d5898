package tribe

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const inviteTokenBytes = 16

type CreateLinkInput struct {
	TribeID       string
	CreatorUserID string
	MaxUses       *int
	ExpiresInDays *int
}

// CreateInviteLink issues a shareable join token. Any active member can
// create one, not just the owner; joins through the link are attributed back
// to the creator.
func (s *Service) CreateInviteLink(ctx context.Context, input CreateLinkInput) (*InviteLink, error) {
	t, err := s.repo.GetTribe(ctx, input.TribeID)
	if err != nil {
		return nil, err
	}
	if t.Deleted() {
		return nil, ErrTribeDeleted
	}
	if _, err := s.ActiveMember(ctx, input.TribeID, input.CreatorUserID); err != nil {
		return nil, err
	}

	token, err := newInviteToken()
	if err != nil {
		return nil, err
	}

	link := InviteLink{
		ID:        uuid.NewString(),
		TribeID:   input.TribeID,
		Token:     token,
		CreatedBy: input.CreatorUserID,
		MaxUses:   input.MaxUses,
	}
	if input.ExpiresInDays != nil {
		expires := time.Now().UTC().AddDate(0, 0, *input.ExpiresInDays)
		link.ExpiresAt = &expires
	}
	if err := s.repo.CreateInviteLink(ctx, &link); err != nil {
		return nil, err
	}

	s.recordActivity(ctx, input.TribeID, input.CreatorUserID, "invite link created")
	return &link, nil
}

// LinkPreview is what the unauthenticated landing page shows before joining.
type LinkPreview struct {
	TribeID     string
	TribeName   string
	MemberCount int64
}

func (s *Service) InviteLinkPreview(ctx context.Context, token string) (*LinkPreview, error) {
	link, t, err := s.usableInviteLink(ctx, token)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountActiveMembers(ctx, link.TribeID)
	if err != nil {
		return nil, err
	}
	return &LinkPreview{TribeID: t.ID, TribeName: t.Name, MemberCount: count}, nil
}

// RedeemInviteLink joins the caller as an immediately active member; there is
// no pending step to accept. A former member rejoins with a brand new row,
// same as a regular re-invite.
func (s *Service) RedeemInviteLink(ctx context.Context, token, userID string) (*Member, error) {
	link, _, err := s.usableInviteLink(ctx, token)
	if err != nil {
		return nil, err
	}

	var member Member
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		if _, err := tx.GetCurrentMember(ctx, link.TribeID, userID); err == nil {
			return ErrAlreadyMember
		} else if !errors.Is(err, ErrMemberNotFound) {
			return err
		}

		// The guarded increment doubles as the max-uses check under
		// concurrent redeems.
		if err := tx.IncrementInviteLinkUses(ctx, link.ID); err != nil {
			return err
		}

		now := time.Now().UTC()
		member = Member{
			ID:              uuid.NewString(),
			TribeID:         link.TribeID,
			UserID:          userID,
			InvitedBy:       link.CreatedBy,
			AcceptedAt:      &now,
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

	s.recordActivity(ctx, link.TribeID, userID,
		fmt.Sprintf("member %s joined via invite link", userID))
	return &member, nil
}

func (s *Service) usableInviteLink(ctx context.Context, token string) (*InviteLink, *Tribe, error) {
	link, err := s.repo.GetInviteLinkByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if link.Expired(time.Now().UTC()) {
		return nil, nil, ErrLinkExpired
	}
	if link.Exhausted() {
		return nil, nil, ErrLinkExhausted
	}

	t, err := s.repo.GetTribe(ctx, link.TribeID)
	if err != nil {
		return nil, nil, err
	}
	if t.Deleted() {
		return nil, nil, ErrTribeDeleted
	}
	return link, t, nil
}

func newInviteToken() (string, error) {
	raw := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate invite token: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
