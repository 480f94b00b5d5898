package proposal

import (
	"context"
	"sort"
)

// GetInbox projects the caller's proposals into the three inbox buckets.
// The proposal list may come from the cache, but the suppression filter runs
// against the ledger on every call: a stale cache can never resurrect an item
// the user deleted.
func (s *Service) GetInbox(ctx context.Context, tribeID, userID string) (*Inbox, error) {
	member, err := s.membership.ActiveMember(ctx, tribeID, userID)
	if err != nil {
		return nil, err
	}

	proposals, ok := s.cache.Get(ctx, tribeID, member.ID)
	if !ok {
		proposals, err = s.repo.ListInboxProposals(ctx, member.ID)
		if err != nil {
			return nil, err
		}
		s.cache.Set(ctx, tribeID, member.ID, proposals, s.inboxTTL)
	}

	itemIDs := make([]string, 0, len(proposals))
	for _, p := range proposals {
		itemIDs = append(itemIDs, p.Item.ID)
	}
	suppressed, err := s.ledger.SuppressedSet(ctx, userID, itemIDs)
	if err != nil {
		return nil, err
	}

	inbox := &Inbox{
		New:      []InboxProposal{},
		Later:    []InboxProposal{},
		Accepted: []InboxProposal{},
	}
	for _, p := range proposals {
		if _, hidden := suppressed[p.Item.ID]; hidden {
			continue
		}
		if p.Item.DeletedAt != nil {
			continue
		}
		switch p.Proposal.State {
		case StateProposed:
			inbox.New = append(inbox.New, p)
		case StateNotNow, StateMaybe:
			inbox.Later = append(inbox.Later, p)
		case StateAccepted:
			inbox.Accepted = append(inbox.Accepted, p)
		}
	}

	sortByCreated(inbox.New)
	sortByCreated(inbox.Later)
	sortByCreated(inbox.Accepted)
	return inbox, nil
}

// Oldest first, ties broken by id for a stable order.
func sortByCreated(proposals []InboxProposal) {
	sort.SliceStable(proposals, func(i, j int) bool {
		a, b := proposals[i].Proposal, proposals[j].Proposal
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
