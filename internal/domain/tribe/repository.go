package tribe

import "context"

type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error

	CreateTribe(ctx context.Context, tribe *Tribe) error
	GetTribe(ctx context.Context, tribeID string) (*Tribe, error)
	UpdateTribeName(ctx context.Context, tribeID, name string) error
	SoftDeleteTribe(ctx context.Context, tribeID string) error

	CreateMember(ctx context.Context, member *Member) error
	GetMember(ctx context.Context, memberID string) (*Member, error)
	// GetCurrentMember returns the single non-left member row for the
	// (tribe, user) pair, pending or active.
	GetCurrentMember(ctx context.Context, tribeID, userID string) (*Member, error)
	ListMembers(ctx context.Context, tribeID string) ([]Member, error)
	ListMembershipsByUser(ctx context.Context, userID string) ([]Member, error)
	SetMemberAccepted(ctx context.Context, memberID string) error
	SetMemberLeft(ctx context.Context, memberID string) error
	UpdateMemberSettings(ctx context.Context, member *Member) error
	UpsertPermissions(ctx context.Context, permissions *Permissions) error

	CreateRequest(ctx context.Context, request *MemberRequest) error
	GetRequest(ctx context.Context, requestID string) (*MemberRequest, error)
	GetPendingRequest(ctx context.Context, tribeID, requestedUserID string) (*MemberRequest, error)
	ListRequests(ctx context.Context, tribeID string, pendingOnly bool, requestedBy string) ([]MemberRequest, error)
	ResolveRequest(ctx context.Context, request *MemberRequest) error

	CreateInviteLink(ctx context.Context, link *InviteLink) error
	GetInviteLinkByToken(ctx context.Context, token string) (*InviteLink, error)
	// IncrementInviteLinkUses bumps used_count only while the link still has
	// uses left, so two racing redeems cannot both consume the last slot.
	IncrementInviteLinkUses(ctx context.Context, linkID string) error
	CountActiveMembers(ctx context.Context, tribeID string) (int64, error)

	CreateActivity(ctx context.Context, activity *Activity) error
	ListActivity(ctx context.Context, tribeID string, limit int) ([]Activity, error)

	CountPendingProposals(ctx context.Context, memberID string) (int64, error)
}
