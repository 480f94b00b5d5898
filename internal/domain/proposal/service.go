package proposal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"helpem-go/internal/domain/personal"
	"helpem-go/internal/domain/tribe"
)

const defaultInboxTTL = 2 * time.Minute

// Membership is the tribe service as seen from this package.
type Membership interface {
	CheckPermission(ctx context.Context, userID, tribeID string, action tribe.Action, category tribe.Category) (*tribe.Member, error)
	ActiveMember(ctx context.Context, tribeID, userID string) (*tribe.Member, error)
	ActiveMembersByUserIDs(ctx context.Context, tribeID string, userIDs []string) ([]tribe.Member, error)
	TribeName(ctx context.Context, tribeID string) (string, error)
}

// Ledger is the suppression ledger. Both methods read straight from storage;
// the ledger is never cached.
type Ledger interface {
	IsSuppressed(ctx context.Context, originItemID, userID string) (bool, error)
	SuppressedSet(ctx context.Context, userID string, originItemIDs []string) (map[string]struct{}, error)
}

type Service struct {
	repo       Repository
	membership Membership
	ledger     Ledger
	cache      InboxCache
	inboxTTL   time.Duration
}

func NewService(repo Repository, membership Membership, ledger Ledger, cache InboxCache, inboxTTL time.Duration) *Service {
	if cache == nil {
		cache = NoopInboxCache()
	}
	if inboxTTL <= 0 {
		inboxTTL = defaultInboxTTL
	}
	return &Service{
		repo:       repo,
		membership: membership,
		ledger:     ledger,
		cache:      cache,
		inboxTTL:   inboxTTL,
	}
}

type CreateItemInput struct {
	TribeID          string
	CreatorUserID    string
	ItemType         tribe.Category
	Payload          []byte
	RecipientUserIDs []string
	IdempotencyKey   string
}

// CreateSharedItem creates the item and fans out exactly one proposal per
// recipient in a single transaction. If any recipient does not resolve to an
// active member, nothing is created. A replay with the same idempotency key
// returns the stored result instead of fanning out again.
func (s *Service) CreateSharedItem(ctx context.Context, input CreateItemInput) (*CreateResult, error) {
	if !input.ItemType.Valid() {
		return nil, ErrInvalidItemType
	}
	if len(input.RecipientUserIDs) == 0 {
		return nil, ErrNoRecipients
	}
	if len(input.Payload) == 0 {
		return nil, fmt.Errorf("payload is required")
	}

	if _, err := s.membership.CheckPermission(ctx, input.CreatorUserID, input.TribeID, tribe.ActionAdd, input.ItemType); err != nil {
		return nil, err
	}

	requestHash := hashCreateRequest(input)
	key := strings.TrimSpace(input.IdempotencyKey)

	var record *CreationRecord
	if key != "" {
		record = &CreationRecord{
			ID:             uuid.NewString(),
			TribeID:        input.TribeID,
			CreatedBy:      input.CreatorUserID,
			IdempotencyKey: key,
			RequestHash:    requestHash,
			Status:         RecordStatePending,
		}
		created, existing, err := s.repo.BeginCreation(ctx, record)
		if err != nil {
			return nil, err
		}
		if !created {
			return replayCreation(existing, requestHash)
		}
	}

	recipients, err := s.membership.ActiveMembersByUserIDs(ctx, input.TribeID, input.RecipientUserIDs)
	if err != nil {
		s.failCreation(ctx, record, err)
		return nil, err
	}

	now := time.Now().UTC()
	item := SharedItem{
		ID:        uuid.NewString(),
		TribeID:   input.TribeID,
		CreatedBy: input.CreatorUserID,
		ItemType:  input.ItemType,
		Payload:   input.Payload,
	}
	proposals := make([]Proposal, 0, len(recipients))
	memberIDs := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		proposals = append(proposals, Proposal{
			ID:                uuid.NewString(),
			ItemID:            item.ID,
			RecipientMemberID: recipient.ID,
			State:             StateProposed,
			StateChangedAt:    now,
		})
		memberIDs = append(memberIDs, recipient.ID)
	}

	err = s.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.CreateItem(ctx, &item); err != nil {
			return err
		}
		return tx.CreateProposals(ctx, proposals)
	})
	if err != nil {
		s.failCreation(ctx, record, err)
		return nil, err
	}

	result := &CreateResult{Item: item, Proposals: proposals}

	if record != nil {
		if encoded, err := json.Marshal(result); err == nil {
			record.Status = RecordStateCompleted
			record.ResponseJSON = encoded
			_ = s.repo.CompleteCreation(ctx, record)
		}
	}

	s.cache.Delete(ctx, input.TribeID, memberIDs...)
	return result, nil
}

func replayCreation(existing *CreationRecord, requestHash string) (*CreateResult, error) {
	if existing == nil {
		return nil, ErrActionInProgress
	}
	if existing.RequestHash != requestHash {
		return nil, ErrKeyPayloadMismatch
	}
	switch existing.Status {
	case RecordStateCompleted:
		if len(existing.ResponseJSON) > 0 {
			var cached CreateResult
			if err := json.Unmarshal(existing.ResponseJSON, &cached); err == nil {
				return &cached, nil
			}
		}
		return nil, ErrActionInProgress
	case RecordStateFailed:
		if existing.ErrorCode != nil {
			return nil, errorForCreationCode(*existing.ErrorCode)
		}
		return nil, ErrActionInProgress
	default:
		return nil, ErrActionInProgress
	}
}

// failCreation mirrors the transition path: a deterministic rejection is
// stored so a replayed key reports the identical outcome, while a transient
// failure releases the reservation so the same key fans out again on retry.
func (s *Service) failCreation(ctx context.Context, record *CreationRecord, cause error) {
	if record == nil {
		return
	}
	if code, deterministic := creationCodeForError(cause); deterministic {
		record.Status = RecordStateFailed
		record.ErrorCode = &code
		_ = s.repo.CompleteCreation(ctx, record)
		return
	}
	_ = s.repo.ReleaseCreation(ctx, record.ID)
}

type TransitionInput struct {
	TribeID         string
	ProposalID      string
	RecipientUserID string
	Action          Action
	IdempotencyKey  string
}

// Transition applies a recipient action to a proposal with at-most-once
// semantics per idempotency key. An accept checks the suppression ledger
// before anything else and materializes the personal item in the same
// transaction as the state change.
func (s *Service) Transition(ctx context.Context, input TransitionInput) (*Proposal, error) {
	if !input.Action.Valid() {
		return nil, ErrInvalidAction
	}
	key := strings.TrimSpace(input.IdempotencyKey)
	if key == "" {
		return nil, ErrKeyRequired
	}

	prop, err := s.repo.GetProposalForRecipient(ctx, input.ProposalID, input.RecipientUserID)
	if err != nil {
		return nil, err
	}
	item, err := s.repo.GetItem(ctx, prop.ItemID)
	if err != nil {
		return nil, err
	}
	// The URL's tribe id is untrusted input; the item row is authoritative.
	if item.TribeID != input.TribeID {
		return nil, ErrProposalNotFound
	}

	record := &ActionRecord{
		ID:             uuid.NewString(),
		ProposalID:     prop.ID,
		IdempotencyKey: key,
		Action:         input.Action,
		Status:         RecordStatePending,
	}
	created, existing, err := s.repo.ReserveAction(ctx, record)
	if err != nil {
		return nil, err
	}
	if !created {
		return replayAction(existing, input.Action)
	}

	result, err := s.execute(ctx, prop, item, input)
	if err != nil {
		if code, deterministic := codeForError(err); deterministic {
			record.Status = RecordStateFailed
			record.ErrorCode = &code
			_ = s.repo.CompleteAction(ctx, record)
		} else {
			// Transient failure: release the reservation so a client retry
			// with the same key re-executes instead of replaying a failure.
			_ = s.repo.ReleaseAction(ctx, record.ID)
		}
		return nil, err
	}

	record.Status = RecordStateCompleted
	if encoded, err := json.Marshal(result); err == nil {
		record.ResponseJSON = encoded
	}
	_ = s.repo.CompleteAction(ctx, record)

	s.cache.Delete(ctx, item.TribeID, prop.RecipientMemberID)
	return result, nil
}

func (s *Service) execute(ctx context.Context, prop *Proposal, item *SharedItem, input TransitionInput) (*Proposal, error) {
	target := input.Action.targetState()
	if !canTransition(prop.State, target) {
		return nil, ErrInvalidState
	}

	if input.Action == ActionAccept {
		suppressed, err := s.ledger.IsSuppressed(ctx, item.ID, input.RecipientUserID)
		if err != nil {
			return nil, err
		}
		if suppressed {
			return nil, ErrItemSuppressed
		}
	}

	updated := *prop
	updated.State = target
	updated.StateChangedAt = time.Now().UTC()

	err := s.repo.Transaction(ctx, func(tx Repository) error {
		if err := tx.UpdateProposalState(ctx, &updated); err != nil {
			return err
		}
		if input.Action != ActionAccept {
			return nil
		}
		return tx.CreatePersonalItem(ctx, s.materialized(ctx, item, &updated, input.RecipientUserID))
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// materialized builds the recipient's personal copy, tagged with provenance
// so a later deletion can be recorded against the origin item.
func (s *Service) materialized(ctx context.Context, item *SharedItem, prop *Proposal, userID string) *personal.Item {
	tribeName, err := s.membership.TribeName(ctx, item.TribeID)
	if err != nil {
		tribeName = ""
	}

	payload := make([]byte, len(item.Payload))
	copy(payload, item.Payload)

	originItemID := item.ID
	originProposalID := prop.ID
	tribeID := item.TribeID
	result := &personal.Item{
		ID:                    uuid.NewString(),
		UserID:                userID,
		ItemType:              string(item.ItemType),
		Payload:               payload,
		OriginTribeItemID:     &originItemID,
		OriginTribeProposalID: &originProposalID,
		AddedByTribeID:        &tribeID,
	}
	if tribeName != "" {
		result.AddedByTribeName = &tribeName
	}
	return result
}

func replayAction(existing *ActionRecord, action Action) (*Proposal, error) {
	if existing == nil {
		return nil, ErrActionInProgress
	}
	if existing.Action != action {
		return nil, ErrKeyPayloadMismatch
	}

	switch existing.Status {
	case RecordStateCompleted:
		if len(existing.ResponseJSON) > 0 {
			var cached Proposal
			if err := json.Unmarshal(existing.ResponseJSON, &cached); err == nil {
				return &cached, nil
			}
		}
		return nil, ErrActionInProgress
	case RecordStateFailed:
		if existing.ErrorCode != nil {
			return nil, errorForCode(*existing.ErrorCode)
		}
		return nil, ErrActionInProgress
	default:
		return nil, ErrActionInProgress
	}
}

const (
	errCodeInvalidState       = "invalid_state"
	errCodeItemSuppressed     = "item_suppressed"
	errCodeRecipientNotMember = "recipient_not_member"
)

// codeForError classifies failures that are deterministic under retry: the
// stored code lets a replayed key report the identical outcome.
func codeForError(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrInvalidState):
		return errCodeInvalidState, true
	case errors.Is(err, ErrItemSuppressed):
		return errCodeItemSuppressed, true
	default:
		return "", false
	}
}

func errorForCode(code string) error {
	switch code {
	case errCodeInvalidState:
		return ErrInvalidState
	case errCodeItemSuppressed:
		return ErrItemSuppressed
	default:
		return ErrActionInProgress
	}
}

func creationCodeForError(err error) (string, bool) {
	if errors.Is(err, tribe.ErrMemberNotFound) {
		return errCodeRecipientNotMember, true
	}
	return "", false
}

func errorForCreationCode(code string) error {
	switch code {
	case errCodeRecipientNotMember:
		return tribe.ErrMemberNotFound
	default:
		return ErrActionInProgress
	}
}

func hashCreateRequest(input CreateItemInput) string {
	recipients := make([]string, len(input.RecipientUserIDs))
	copy(recipients, input.RecipientUserIDs)
	sort.Strings(recipients)

	h := sha256.New()
	h.Write([]byte(input.TribeID))
	h.Write([]byte{0})
	h.Write([]byte(input.ItemType))
	h.Write([]byte{0})
	h.Write(input.Payload)
	for _, recipient := range recipients {
		h.Write([]byte{0})
		h.Write([]byte(recipient))
	}
	return hex.EncodeToString(h.Sum(nil))
}
