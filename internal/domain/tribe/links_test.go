package tribe

import (
	"context"
	"errors"
	"testing"
	"time"
)

func createLink(t *testing.T, svc *Service, tribeID, creator string) *InviteLink {
	t.Helper()
	link, err := svc.CreateInviteLink(context.Background(), CreateLinkInput{
		TribeID:       tribeID,
		CreatorUserID: creator,
	})
	if err != nil {
		t.Fatalf("create invite link: %v", err)
	}
	return link
}

func TestCreateInviteLinkByAnyActiveMember(t *testing.T) {
	_, svc, created := setupTribe(t)
	join(t, svc, created.ID, "bob")

	link := createLink(t, svc, created.ID, "bob")
	if link.Token == "" {
		t.Fatalf("link has no token")
	}
	if len(link.Token) != inviteTokenBytes*2 {
		t.Errorf("token length %d, want %d hex chars", len(link.Token), inviteTokenBytes*2)
	}
	if link.CreatedBy != "bob" {
		t.Errorf("link created by %s, want bob", link.CreatedBy)
	}
	if link.MaxUses != nil || link.ExpiresAt != nil {
		t.Errorf("unconstrained link should have no cap or expiry")
	}
}

func TestCreateInviteLinkRequiresActiveMember(t *testing.T) {
	_, svc, created := setupTribe(t)
	invite(t, svc, created.ID, "owner", "bob") // pending, never accepted

	_, err := svc.CreateInviteLink(context.Background(), CreateLinkInput{
		TribeID:       created.ID,
		CreatorUserID: "bob",
	})
	if !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("pending member: expected ErrMemberNotFound, got %v", err)
	}

	_, err = svc.CreateInviteLink(context.Background(), CreateLinkInput{
		TribeID:       created.ID,
		CreatorUserID: "stranger",
	})
	if !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("non-member: expected ErrMemberNotFound, got %v", err)
	}
}

func TestInviteLinkPreviewCountsActiveMembers(t *testing.T) {
	_, svc, created := setupTribe(t)
	join(t, svc, created.ID, "bob")
	invite(t, svc, created.ID, "owner", "carol") // pending does not count

	link := createLink(t, svc, created.ID, "owner")
	preview, err := svc.InviteLinkPreview(context.Background(), link.Token)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if preview.TribeID != created.ID || preview.TribeName != created.Name {
		t.Errorf("preview names wrong tribe: %+v", preview)
	}
	if preview.MemberCount != 2 {
		t.Errorf("member count %d, want 2 (owner and bob)", preview.MemberCount)
	}
}

func TestInviteLinkPreviewUnknownToken(t *testing.T) {
	_, svc, _ := setupTribe(t)

	_, err := svc.InviteLinkPreview(context.Background(), "nope")
	if !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}

func TestRedeemInviteLinkJoinsImmediately(t *testing.T) {
	repo, svc, created := setupTribe(t)
	join(t, svc, created.ID, "bob")
	link := createLink(t, svc, created.ID, "bob")

	member, err := svc.RedeemInviteLink(context.Background(), link.Token, "carol")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if !member.Active() {
		t.Errorf("link join should skip the pending step")
	}
	if member.InvitedBy != "bob" {
		t.Errorf("join attributed to %s, want the link creator bob", member.InvitedBy)
	}
	if !member.Permissions.Allows(ActionAdd, CategoryTask) || member.Permissions.Allows(ActionRemove, CategoryTask) {
		t.Errorf("link join should apply default invitee permissions")
	}
	if repo.links[link.ID].UsedCount != 1 {
		t.Errorf("used count %d, want 1", repo.links[link.ID].UsedCount)
	}
}

func TestRedeemInviteLinkAlreadyMember(t *testing.T) {
	_, svc, created := setupTribe(t)
	join(t, svc, created.ID, "bob")
	link := createLink(t, svc, created.ID, "owner")

	_, err := svc.RedeemInviteLink(context.Background(), link.Token, "bob")
	if !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}

	_, err = svc.RedeemInviteLink(context.Background(), link.Token, "owner")
	if !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("owner: expected ErrAlreadyMember, got %v", err)
	}
}

func TestRedeemInviteLinkMaxUses(t *testing.T) {
	_, svc, created := setupTribe(t)
	one := 1
	link, err := svc.CreateInviteLink(context.Background(), CreateLinkInput{
		TribeID:       created.ID,
		CreatorUserID: "owner",
		MaxUses:       &one,
	})
	if err != nil {
		t.Fatalf("create invite link: %v", err)
	}

	if _, err := svc.RedeemInviteLink(context.Background(), link.Token, "bob"); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	_, err = svc.RedeemInviteLink(context.Background(), link.Token, "carol")
	if !errors.Is(err, ErrLinkExhausted) {
		t.Fatalf("expected ErrLinkExhausted, got %v", err)
	}
}

func TestRedeemInviteLinkExpired(t *testing.T) {
	repo, svc, created := setupTribe(t)
	link := createLink(t, svc, created.ID, "owner")

	stored := repo.links[link.ID]
	past := time.Now().UTC().Add(-time.Hour)
	stored.ExpiresAt = &past
	repo.links[link.ID] = stored

	_, err := svc.RedeemInviteLink(context.Background(), link.Token, "bob")
	if !errors.Is(err, ErrLinkExpired) {
		t.Fatalf("expected ErrLinkExpired, got %v", err)
	}
}

func TestRedeemInviteLinkOnDeletedTribe(t *testing.T) {
	_, svc, created := setupTribe(t)
	link := createLink(t, svc, created.ID, "owner")

	if err := svc.DeleteTribe(context.Background(), created.ID, "owner"); err != nil {
		t.Fatalf("delete tribe: %v", err)
	}

	_, err := svc.RedeemInviteLink(context.Background(), link.Token, "bob")
	if !errors.Is(err, ErrTribeDeleted) {
		t.Fatalf("expected ErrTribeDeleted, got %v", err)
	}
}

func TestRedeemInviteLinkAfterLeaveCreatesNewRow(t *testing.T) {
	_, svc, created := setupTribe(t)
	link := createLink(t, svc, created.ID, "owner")

	first, err := svc.RedeemInviteLink(context.Background(), link.Token, "bob")
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	if err := svc.Leave(context.Background(), created.ID, "bob"); err != nil {
		t.Fatalf("leave: %v", err)
	}

	second, err := svc.RedeemInviteLink(context.Background(), link.Token, "bob")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if second.ID == first.ID {
		t.Errorf("rejoin reused the left member row")
	}
	if !second.Active() {
		t.Errorf("rejoined member should be active")
	}
}
