package proposal

import (
	"context"

	"helpem-go/internal/domain/personal"
)

type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error

	CreateItem(ctx context.Context, item *SharedItem) error
	GetItem(ctx context.Context, itemID string) (*SharedItem, error)

	CreateProposals(ctx context.Context, proposals []Proposal) error
	GetProposal(ctx context.Context, proposalID string) (*Proposal, error)
	// GetProposalForRecipient resolves the proposal only when the user is the
	// recipient member, regardless of membership state.
	GetProposalForRecipient(ctx context.Context, proposalID, userID string) (*Proposal, error)
	UpdateProposalState(ctx context.Context, proposal *Proposal) error
	ListInboxProposals(ctx context.Context, recipientMemberID string) ([]InboxProposal, error)

	// ReserveAction atomically claims (proposalID, idempotencyKey). It returns
	// created=true on a fresh claim, otherwise the existing record (nil while
	// a concurrent claim is still being written).
	ReserveAction(ctx context.Context, record *ActionRecord) (bool, *ActionRecord, error)
	CompleteAction(ctx context.Context, record *ActionRecord) error
	// ReleaseAction drops a pending reservation after a transient failure so
	// a retry with the same key executes again.
	ReleaseAction(ctx context.Context, recordID string) error

	BeginCreation(ctx context.Context, record *CreationRecord) (bool, *CreationRecord, error)
	CompleteCreation(ctx context.Context, record *CreationRecord) error
	// ReleaseCreation drops a pending creation record after a transient
	// failure so a retry with the same key fans out again.
	ReleaseCreation(ctx context.Context, recordID string) error

	// CreatePersonalItem writes the materialized personal item inside the
	// same transaction as the accept transition.
	CreatePersonalItem(ctx context.Context, item *personal.Item) error
}
