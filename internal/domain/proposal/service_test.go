package proposal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"helpem-go/internal/domain/personal"
	"helpem-go/internal/domain/tribe"
)

type fakeRepo struct {
	items     map[string]SharedItem
	proposals map[string]Proposal
	actions   map[string]ActionRecord
	creations map[string]CreationRecord
	personals []personal.Item

	// userID -> memberID, used to resolve recipient proposals.
	memberOf map[string]string

	// when set, the next failTransactions calls to Transaction fail with
	// transactionErr instead of running fn.
	failTransactions int
	transactionErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		items:     make(map[string]SharedItem),
		proposals: make(map[string]Proposal),
		actions:   make(map[string]ActionRecord),
		creations: make(map[string]CreationRecord),
		memberOf:  make(map[string]string),
	}
}

func actionKey(proposalID, idempotencyKey string) string {
	return proposalID + "|" + idempotencyKey
}

func creationKey(tribeID, createdBy, idempotencyKey string) string {
	return tribeID + "|" + createdBy + "|" + idempotencyKey
}

func (r *fakeRepo) Transaction(ctx context.Context, fn func(Repository) error) error {
	if r.failTransactions > 0 {
		r.failTransactions--
		return r.transactionErr
	}
	return fn(r)
}

func (r *fakeRepo) CreateItem(ctx context.Context, item *SharedItem) error {
	item.CreatedAt = time.Now().UTC()
	r.items[item.ID] = *item
	return nil
}

func (r *fakeRepo) GetItem(ctx context.Context, itemID string) (*SharedItem, error) {
	item, ok := r.items[itemID]
	if !ok {
		return nil, ErrItemNotFound
	}
	return &item, nil
}

func (r *fakeRepo) CreateProposals(ctx context.Context, proposals []Proposal) error {
	for i := range proposals {
		proposals[i].CreatedAt = time.Now().UTC()
		r.proposals[proposals[i].ID] = proposals[i]
	}
	return nil
}

func (r *fakeRepo) GetProposal(ctx context.Context, proposalID string) (*Proposal, error) {
	p, ok := r.proposals[proposalID]
	if !ok {
		return nil, ErrProposalNotFound
	}
	return &p, nil
}

func (r *fakeRepo) GetProposalForRecipient(ctx context.Context, proposalID, userID string) (*Proposal, error) {
	p, ok := r.proposals[proposalID]
	if !ok || r.memberOf[userID] != p.RecipientMemberID {
		return nil, ErrProposalNotFound
	}
	return &p, nil
}

func (r *fakeRepo) UpdateProposalState(ctx context.Context, proposal *Proposal) error {
	if _, ok := r.proposals[proposal.ID]; !ok {
		return ErrProposalNotFound
	}
	r.proposals[proposal.ID] = *proposal
	return nil
}

func (r *fakeRepo) ListInboxProposals(ctx context.Context, recipientMemberID string) ([]InboxProposal, error) {
	var result []InboxProposal
	for _, p := range r.proposals {
		if p.RecipientMemberID != recipientMemberID || p.State == StateDismissed {
			continue
		}
		item, ok := r.items[p.ItemID]
		if !ok {
			continue
		}
		result = append(result, InboxProposal{Proposal: p, Item: item})
	}
	return result, nil
}

func (r *fakeRepo) ReserveAction(ctx context.Context, record *ActionRecord) (bool, *ActionRecord, error) {
	k := actionKey(record.ProposalID, record.IdempotencyKey)
	if existing, ok := r.actions[k]; ok {
		return false, &existing, nil
	}
	r.actions[k] = *record
	return true, nil, nil
}

func (r *fakeRepo) CompleteAction(ctx context.Context, record *ActionRecord) error {
	r.actions[actionKey(record.ProposalID, record.IdempotencyKey)] = *record
	return nil
}

func (r *fakeRepo) ReleaseAction(ctx context.Context, recordID string) error {
	for k, record := range r.actions {
		if record.ID == recordID {
			delete(r.actions, k)
		}
	}
	return nil
}

func (r *fakeRepo) BeginCreation(ctx context.Context, record *CreationRecord) (bool, *CreationRecord, error) {
	k := creationKey(record.TribeID, record.CreatedBy, record.IdempotencyKey)
	if existing, ok := r.creations[k]; ok {
		return false, &existing, nil
	}
	r.creations[k] = *record
	return true, nil, nil
}

func (r *fakeRepo) CompleteCreation(ctx context.Context, record *CreationRecord) error {
	r.creations[creationKey(record.TribeID, record.CreatedBy, record.IdempotencyKey)] = *record
	return nil
}

func (r *fakeRepo) ReleaseCreation(ctx context.Context, recordID string) error {
	for k, record := range r.creations {
		if record.ID == recordID && record.Status == RecordStatePending {
			delete(r.creations, k)
		}
	}
	return nil
}

func (r *fakeRepo) CreatePersonalItem(ctx context.Context, item *personal.Item) error {
	r.personals = append(r.personals, *item)
	return nil
}

type fakeMembership struct {
	tribeID string
	name    string
	members map[string]tribe.Member
	denied  bool
}

func newFakeMembership(tribeID string, userIDs ...string) *fakeMembership {
	m := &fakeMembership{
		tribeID: tribeID,
		name:    "The Santos Family",
		members: make(map[string]tribe.Member),
	}
	for i, userID := range userIDs {
		m.members[userID] = tribe.Member{
			ID:      fmt.Sprintf("member-%d", i+1),
			TribeID: tribeID,
			UserID:  userID,
		}
	}
	return m
}

func (m *fakeMembership) CheckPermission(ctx context.Context, userID, tribeID string, action tribe.Action, category tribe.Category) (*tribe.Member, error) {
	if m.denied {
		return nil, tribe.ErrPermissionDenied
	}
	return m.ActiveMember(ctx, tribeID, userID)
}

func (m *fakeMembership) ActiveMember(ctx context.Context, tribeID, userID string) (*tribe.Member, error) {
	member, ok := m.members[userID]
	if !ok || tribeID != m.tribeID {
		return nil, tribe.ErrMemberNotFound
	}
	return &member, nil
}

func (m *fakeMembership) ActiveMembersByUserIDs(ctx context.Context, tribeID string, userIDs []string) ([]tribe.Member, error) {
	members := make([]tribe.Member, 0, len(userIDs))
	for _, userID := range userIDs {
		member, err := m.ActiveMember(ctx, tribeID, userID)
		if err != nil {
			return nil, err
		}
		members = append(members, *member)
	}
	return members, nil
}

func (m *fakeMembership) TribeName(ctx context.Context, tribeID string) (string, error) {
	return m.name, nil
}

type fakeLedger struct {
	tombstones map[string]struct{}
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{tombstones: make(map[string]struct{})}
}

func (l *fakeLedger) suppress(originItemID, userID string) {
	l.tombstones[originItemID+"|"+userID] = struct{}{}
}

func (l *fakeLedger) IsSuppressed(ctx context.Context, originItemID, userID string) (bool, error) {
	_, ok := l.tombstones[originItemID+"|"+userID]
	return ok, nil
}

func (l *fakeLedger) SuppressedSet(ctx context.Context, userID string, originItemIDs []string) (map[string]struct{}, error) {
	result := make(map[string]struct{})
	for _, id := range originItemIDs {
		if _, ok := l.tombstones[id+"|"+userID]; ok {
			result[id] = struct{}{}
		}
	}
	return result, nil
}

type recordingCache struct {
	entries map[string][]InboxProposal
	deletes []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: make(map[string][]InboxProposal)}
}

func cacheKey(tribeID, memberID string) string {
	return tribeID + "|" + memberID
}

func (c *recordingCache) Get(ctx context.Context, tribeID, memberID string) ([]InboxProposal, bool) {
	entry, ok := c.entries[cacheKey(tribeID, memberID)]
	return entry, ok
}

func (c *recordingCache) Set(ctx context.Context, tribeID, memberID string, proposals []InboxProposal, ttl time.Duration) {
	c.entries[cacheKey(tribeID, memberID)] = proposals
}

func (c *recordingCache) Delete(ctx context.Context, tribeID string, memberIDs ...string) {
	for _, memberID := range memberIDs {
		k := cacheKey(tribeID, memberID)
		delete(c.entries, k)
		c.deletes = append(c.deletes, k)
	}
}

type fixture struct {
	repo       *fakeRepo
	membership *fakeMembership
	ledger     *fakeLedger
	cache      *recordingCache
	svc        *Service
}

func newFixture(userIDs ...string) *fixture {
	repo := newFakeRepo()
	membership := newFakeMembership("tribe-1", userIDs...)
	for userID, member := range membership.members {
		repo.memberOf[userID] = member.ID
	}
	ledger := newFakeLedger()
	cache := newRecordingCache()
	return &fixture{
		repo:       repo,
		membership: membership,
		ledger:     ledger,
		cache:      cache,
		svc:        NewService(repo, membership, ledger, cache, time.Minute),
	}
}

func taskPayload(t *testing.T, name string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return payload
}

func (f *fixture) create(t *testing.T, key string, recipients ...string) *CreateResult {
	t.Helper()
	result, err := f.svc.CreateSharedItem(context.Background(), CreateItemInput{
		TribeID:          "tribe-1",
		CreatorUserID:    "alice",
		ItemType:         tribe.CategoryTask,
		Payload:          taskPayload(t, "buy milk"),
		RecipientUserIDs: recipients,
		IdempotencyKey:   key,
	})
	if err != nil {
		t.Fatalf("create shared item: %v", err)
	}
	return result
}

func TestCreateSharedItemFansOutPerRecipient(t *testing.T) {
	f := newFixture("alice", "bob", "carol")

	result := f.create(t, "key-1", "bob", "carol")

	if len(result.Proposals) != 2 {
		t.Fatalf("expected 2 proposals, got %d", len(result.Proposals))
	}
	if len(f.repo.items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(f.repo.items))
	}
	for _, p := range result.Proposals {
		if p.State != StateProposed {
			t.Errorf("proposal %s: expected proposed, got %s", p.ID, p.State)
		}
		if p.ItemID != result.Item.ID {
			t.Errorf("proposal %s references wrong item", p.ID)
		}
	}
	if len(f.cache.deletes) != 2 {
		t.Errorf("expected 2 cache invalidations, got %d", len(f.cache.deletes))
	}
}

func TestCreateSharedItemAllOrNothing(t *testing.T) {
	f := newFixture("alice", "bob")

	_, err := f.svc.CreateSharedItem(context.Background(), CreateItemInput{
		TribeID:          "tribe-1",
		CreatorUserID:    "alice",
		ItemType:         tribe.CategoryTask,
		Payload:          taskPayload(t, "buy milk"),
		RecipientUserIDs: []string{"bob", "stranger"},
		IdempotencyKey:   "key-1",
	})
	if !errors.Is(err, tribe.ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}
	if len(f.repo.items) != 0 || len(f.repo.proposals) != 0 {
		t.Fatalf("partial fan-out leaked: %d items, %d proposals", len(f.repo.items), len(f.repo.proposals))
	}
}

func TestCreateSharedItemWithoutPermission(t *testing.T) {
	f := newFixture("alice", "bob")
	f.membership.denied = true

	_, err := f.svc.CreateSharedItem(context.Background(), CreateItemInput{
		TribeID:          "tribe-1",
		CreatorUserID:    "alice",
		ItemType:         tribe.CategoryTask,
		Payload:          taskPayload(t, "buy milk"),
		RecipientUserIDs: []string{"bob"},
	})
	if !errors.Is(err, tribe.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestCreateSharedItemReplaysSameKey(t *testing.T) {
	f := newFixture("alice", "bob")

	first := f.create(t, "key-1", "bob")
	second := f.create(t, "key-1", "bob")

	if first.Item.ID != second.Item.ID {
		t.Fatalf("replay produced a different item: %s vs %s", first.Item.ID, second.Item.ID)
	}
	if len(f.repo.items) != 1 {
		t.Fatalf("expected 1 item after replay, got %d", len(f.repo.items))
	}
	if len(f.repo.proposals) != 1 {
		t.Fatalf("expected 1 proposal after replay, got %d", len(f.repo.proposals))
	}
}

func TestCreateSharedItemKeyPayloadMismatch(t *testing.T) {
	f := newFixture("alice", "bob")

	f.create(t, "key-1", "bob")

	_, err := f.svc.CreateSharedItem(context.Background(), CreateItemInput{
		TribeID:          "tribe-1",
		CreatorUserID:    "alice",
		ItemType:         tribe.CategoryTask,
		Payload:          taskPayload(t, "something else entirely"),
		RecipientUserIDs: []string{"bob"},
		IdempotencyKey:   "key-1",
	})
	if !errors.Is(err, ErrKeyPayloadMismatch) {
		t.Fatalf("expected ErrKeyPayloadMismatch, got %v", err)
	}
}

func TestTransitionRequiresIdempotencyKey(t *testing.T) {
	f := newFixture("alice", "bob")
	result := f.create(t, "key-1", "bob")

	_, err := f.svc.Transition(context.Background(), TransitionInput{
		TribeID:         "tribe-1",
		ProposalID:      result.Proposals[0].ID,
		RecipientUserID: "bob",
		Action:          ActionAccept,
	})
	if !errors.Is(err, ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired, got %v", err)
	}
}

func TestAcceptMaterializesExactlyOnce(t *testing.T) {
	f := newFixture("alice", "bob")
	result := f.create(t, "key-1", "bob")

	input := TransitionInput{
		TribeID:         "tribe-1",
		ProposalID:      result.Proposals[0].ID,
		RecipientUserID: "bob",
		Action:          ActionAccept,
		IdempotencyKey:  "accept-1",
	}

	first, err := f.svc.Transition(context.Background(), input)
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if first.State != StateAccepted {
		t.Fatalf("expected accepted, got %s", first.State)
	}

	second, err := f.svc.Transition(context.Background(), input)
	if err != nil {
		t.Fatalf("replayed accept failed: %v", err)
	}
	if second.State != StateAccepted {
		t.Fatalf("replay returned state %s", second.State)
	}

	if len(f.repo.personals) != 1 {
		t.Fatalf("expected exactly 1 personal item, got %d", len(f.repo.personals))
	}
	item := f.repo.personals[0]
	if item.UserID != "bob" {
		t.Errorf("personal item owned by %s, want bob", item.UserID)
	}
	if item.OriginTribeItemID == nil || *item.OriginTribeItemID != result.Item.ID {
		t.Errorf("personal item missing origin item provenance")
	}
	if item.AddedByTribeName == nil || *item.AddedByTribeName != "The Santos Family" {
		t.Errorf("personal item missing tribe name provenance")
	}
}

func TestAcceptSuppressedItemFails(t *testing.T) {
	f := newFixture("alice", "bob")
	result := f.create(t, "key-1", "bob")
	f.ledger.suppress(result.Item.ID, "bob")

	input := TransitionInput{
		TribeID:         "tribe-1",
		ProposalID:      result.Proposals[0].ID,
		RecipientUserID: "bob",
		Action:          ActionAccept,
		IdempotencyKey:  "accept-1",
	}

	_, err := f.svc.Transition(context.Background(), input)
	if !errors.Is(err, ErrItemSuppressed) {
		t.Fatalf("expected ErrItemSuppressed, got %v", err)
	}

	// Replaying the same key reports the identical stored outcome.
	_, err = f.svc.Transition(context.Background(), input)
	if !errors.Is(err, ErrItemSuppressed) {
		t.Fatalf("replay: expected ErrItemSuppressed, got %v", err)
	}

	stored := f.repo.proposals[result.Proposals[0].ID]
	if stored.State != StateProposed {
		t.Errorf("failed accept changed state to %s", stored.State)
	}
	if len(f.repo.personals) != 0 {
		t.Errorf("failed accept materialized a personal item")
	}
}

func TestDismissLeavesNoCopyAndNoTombstone(t *testing.T) {
	f := newFixture("alice", "bob")
	result := f.create(t, "key-1", "bob")

	updated, err := f.svc.Transition(context.Background(), TransitionInput{
		TribeID:         "tribe-1",
		ProposalID:      result.Proposals[0].ID,
		RecipientUserID: "bob",
		Action:          ActionDismiss,
		IdempotencyKey:  "dismiss-1",
	})
	if err != nil {
		t.Fatalf("dismiss failed: %v", err)
	}
	if updated.State != StateDismissed {
		t.Fatalf("expected dismissed, got %s", updated.State)
	}
	if len(f.repo.personals) != 0 {
		t.Errorf("dismiss materialized a personal item")
	}
	if len(f.ledger.tombstones) != 0 {
		t.Errorf("dismiss wrote a suppression tombstone")
	}
}

func TestTerminalStateRejectsFurtherActions(t *testing.T) {
	f := newFixture("alice", "bob")
	result := f.create(t, "key-1", "bob")
	proposalID := result.Proposals[0].ID

	if _, err := f.svc.Transition(context.Background(), TransitionInput{
		TribeID: "tribe-1", ProposalID: proposalID, RecipientUserID: "bob",
		Action: ActionAccept, IdempotencyKey: "accept-1",
	}); err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	_, err := f.svc.Transition(context.Background(), TransitionInput{
		TribeID: "tribe-1", ProposalID: proposalID, RecipientUserID: "bob",
		Action: ActionNotNow, IdempotencyKey: "later-1",
	})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestLaterStatesStayActionable(t *testing.T) {
	f := newFixture("alice", "bob")
	result := f.create(t, "key-1", "bob")
	proposalID := result.Proposals[0].ID

	if _, err := f.svc.Transition(context.Background(), TransitionInput{
		TribeID: "tribe-1", ProposalID: proposalID, RecipientUserID: "bob",
		Action: ActionMaybe, IdempotencyKey: "maybe-1",
	}); err != nil {
		t.Fatalf("maybe failed: %v", err)
	}

	updated, err := f.svc.Transition(context.Background(), TransitionInput{
		TribeID: "tribe-1", ProposalID: proposalID, RecipientUserID: "bob",
		Action: ActionAccept, IdempotencyKey: "accept-1",
	})
	if err != nil {
		t.Fatalf("accept after maybe failed: %v", err)
	}
	if updated.State != StateAccepted {
		t.Fatalf("expected accepted, got %s", updated.State)
	}
	if len(f.repo.personals) != 1 {
		t.Fatalf("expected 1 personal item, got %d", len(f.repo.personals))
	}
}

func TestSameKeyDifferentActionMismatches(t *testing.T) {
	f := newFixture("alice", "bob")
	result := f.create(t, "key-1", "bob")
	proposalID := result.Proposals[0].ID

	if _, err := f.svc.Transition(context.Background(), TransitionInput{
		TribeID: "tribe-1", ProposalID: proposalID, RecipientUserID: "bob",
		Action: ActionNotNow, IdempotencyKey: "shared-key",
	}); err != nil {
		t.Fatalf("not_now failed: %v", err)
	}

	_, err := f.svc.Transition(context.Background(), TransitionInput{
		TribeID: "tribe-1", ProposalID: proposalID, RecipientUserID: "bob",
		Action: ActionDismiss, IdempotencyKey: "shared-key",
	})
	if !errors.Is(err, ErrKeyPayloadMismatch) {
		t.Fatalf("expected ErrKeyPayloadMismatch, got %v", err)
	}
}

func TestTransitionByNonRecipient(t *testing.T) {
	f := newFixture("alice", "bob", "carol")
	result := f.create(t, "key-1", "bob")

	_, err := f.svc.Transition(context.Background(), TransitionInput{
		TribeID: "tribe-1", ProposalID: result.Proposals[0].ID, RecipientUserID: "carol",
		Action: ActionAccept, IdempotencyKey: "accept-1",
	})
	if !errors.Is(err, ErrProposalNotFound) {
		t.Fatalf("expected ErrProposalNotFound, got %v", err)
	}
}

func TestCreateSharedItemRetryAfterTransientFailure(t *testing.T) {
	f := newFixture("alice", "bob")
	f.repo.failTransactions = 1
	f.repo.transactionErr = errors.New("connection reset by peer")

	_, err := f.svc.CreateSharedItem(context.Background(), CreateItemInput{
		TribeID:          "tribe-1",
		CreatorUserID:    "alice",
		ItemType:         tribe.CategoryTask,
		Payload:          taskPayload(t, "buy milk"),
		RecipientUserIDs: []string{"bob"},
		IdempotencyKey:   "key-1",
	})
	if err == nil {
		t.Fatalf("expected the first attempt to fail")
	}
	if len(f.repo.creations) != 0 {
		t.Fatalf("transient failure left %d creation records; the key is burned", len(f.repo.creations))
	}

	// The same key must fan out for real on retry, not replay the failure.
	result := f.create(t, "key-1", "bob")
	if len(result.Proposals) != 1 {
		t.Fatalf("retry fanned out %d proposals, want 1", len(result.Proposals))
	}
	if len(f.repo.items) != 1 {
		t.Fatalf("retry created %d items, want 1", len(f.repo.items))
	}
	stored := f.repo.creations[creationKey("tribe-1", "alice", "key-1")]
	if stored.Status != RecordStateCompleted {
		t.Errorf("creation record status %s, want completed", stored.Status)
	}
}

func TestCreateSharedItemReplaysRecipientFailure(t *testing.T) {
	f := newFixture("alice", "bob")

	input := CreateItemInput{
		TribeID:          "tribe-1",
		CreatorUserID:    "alice",
		ItemType:         tribe.CategoryTask,
		Payload:          taskPayload(t, "buy milk"),
		RecipientUserIDs: []string{"bob", "stranger"},
		IdempotencyKey:   "key-1",
	}
	_, err := f.svc.CreateSharedItem(context.Background(), input)
	if !errors.Is(err, tribe.ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}

	// Even if the recipient joins afterwards, the key is bound to the
	// original outcome.
	f.membership.members["stranger"] = tribe.Member{ID: "member-99", TribeID: "tribe-1", UserID: "stranger"}
	_, err = f.svc.CreateSharedItem(context.Background(), input)
	if !errors.Is(err, tribe.ErrMemberNotFound) {
		t.Fatalf("replay: expected ErrMemberNotFound, got %v", err)
	}
	if len(f.repo.items) != 0 {
		t.Fatalf("replayed failure created %d items", len(f.repo.items))
	}
}

func TestTransitionRetryAfterTransientFailure(t *testing.T) {
	f := newFixture("alice", "bob")
	result := f.create(t, "key-1", "bob")

	f.repo.failTransactions = 1
	f.repo.transactionErr = errors.New("connection reset by peer")

	input := TransitionInput{
		TribeID:         "tribe-1",
		ProposalID:      result.Proposals[0].ID,
		RecipientUserID: "bob",
		Action:          ActionAccept,
		IdempotencyKey:  "accept-1",
	}
	_, err := f.svc.Transition(context.Background(), input)
	if err == nil {
		t.Fatalf("expected the first attempt to fail")
	}
	if len(f.repo.actions) != 0 {
		t.Fatalf("transient failure left %d action records; the key is burned", len(f.repo.actions))
	}

	updated, err := f.svc.Transition(context.Background(), input)
	if err != nil {
		t.Fatalf("retry with the same key failed: %v", err)
	}
	if updated.State != StateAccepted {
		t.Fatalf("expected accepted, got %s", updated.State)
	}
	if len(f.repo.personals) != 1 {
		t.Fatalf("expected 1 personal item, got %d", len(f.repo.personals))
	}
}

func TestTransitionRejectsTribeMismatch(t *testing.T) {
	f := newFixture("alice", "bob")
	result := f.create(t, "key-1", "bob")

	_, err := f.svc.Transition(context.Background(), TransitionInput{
		TribeID:         "tribe-2",
		ProposalID:      result.Proposals[0].ID,
		RecipientUserID: "bob",
		Action:          ActionAccept,
		IdempotencyKey:  "accept-1",
	})
	if !errors.Is(err, ErrProposalNotFound) {
		t.Fatalf("expected ErrProposalNotFound, got %v", err)
	}
	if len(f.repo.actions) != 0 {
		t.Errorf("mismatched tribe reserved an action record")
	}
	stored := f.repo.proposals[result.Proposals[0].ID]
	if stored.State != StateProposed {
		t.Errorf("mismatched tribe changed proposal state to %s", stored.State)
	}
}
