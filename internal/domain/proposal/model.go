package proposal

import (
	"time"

	"helpem-go/internal/domain/tribe"
)

// State of a proposal. Accepted and dismissed are terminal; not_now and maybe
// stay re-actionable. Maybe carries not_now semantics but is stored as its own
// state so appointment recipients can signal uncertainty distinctly.
type State string

const (
	StateProposed  State = "proposed"
	StateAccepted  State = "accepted"
	StateDismissed State = "dismissed"
	StateNotNow    State = "not_now"
	StateMaybe     State = "maybe"
)

// Action is a recipient's state-changing operation on a proposal.
type Action string

const (
	ActionAccept  Action = "accept"
	ActionNotNow  Action = "not_now"
	ActionMaybe   Action = "maybe"
	ActionDismiss Action = "dismiss"
)

func (a Action) Valid() bool {
	switch a {
	case ActionAccept, ActionNotNow, ActionMaybe, ActionDismiss:
		return true
	}
	return false
}

func (a Action) targetState() State {
	switch a {
	case ActionAccept:
		return StateAccepted
	case ActionNotNow:
		return StateNotNow
	case ActionMaybe:
		return StateMaybe
	default:
		return StateDismissed
	}
}

var validTransitions = map[State][]State{
	StateProposed: {StateAccepted, StateNotNow, StateMaybe, StateDismissed},
	StateNotNow:   {StateAccepted, StateMaybe, StateDismissed},
	StateMaybe:    {StateAccepted, StateNotNow, StateDismissed},
}

func canTransition(from, to State) bool {
	for _, state := range validTransitions[from] {
		if state == to {
			return true
		}
	}
	return false
}

// SharedItem is the payload a sender distributes. Immutable once created
// except for soft deletion; proposals reference it by id, never by copy.
type SharedItem struct {
	ID        string         `gorm:"type:uuid;primaryKey"`
	TribeID   string         `gorm:"type:uuid;not null;index"`
	CreatedBy string         `gorm:"type:uuid;not null"`
	ItemType  tribe.Category `gorm:"type:varchar(16);not null"`
	Payload   []byte         `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	DeletedAt *time.Time     ``
}

func (SharedItem) TableName() string {
	return "tribe_items"
}

// Proposal is the per-recipient offer of a SharedItem. Exactly one row exists
// per (item, recipient) pair, enforced at creation time by a unique index.
type Proposal struct {
	ID                string     `gorm:"type:uuid;primaryKey"`
	ItemID            string     `gorm:"type:uuid;not null;uniqueIndex:idx_proposal_item_recipient"`
	RecipientMemberID string     `gorm:"type:uuid;not null;uniqueIndex:idx_proposal_item_recipient;index"`
	State             State      `gorm:"type:varchar(16);not null"`
	CreatedAt         time.Time  `gorm:"autoCreateTime"`
	StateChangedAt    time.Time  `gorm:"not null"`
	NotifiedAt        *time.Time ``
}

func (Proposal) TableName() string {
	return "tribe_proposals"
}

func (p Proposal) Terminal() bool {
	return p.State == StateAccepted || p.State == StateDismissed
}

// ActionRecord reserves one idempotency key for one proposal so a retried
// action executes at most once; completed records replay the stored response.
type ActionRecord struct {
	ID             string      `gorm:"type:uuid;primaryKey"`
	ProposalID     string      `gorm:"type:uuid;not null;uniqueIndex:idx_action_proposal_key"`
	IdempotencyKey string      `gorm:"not null;uniqueIndex:idx_action_proposal_key"`
	Action         Action      `gorm:"type:varchar(16);not null"`
	Status         RecordState `gorm:"type:varchar(16);not null"`
	ErrorCode      *string     `gorm:"type:varchar(64)"`
	ResponseJSON   []byte      `gorm:"type:jsonb"`
	CreatedAt      time.Time   `gorm:"autoCreateTime"`
	UpdatedAt      time.Time   `gorm:"autoUpdateTime"`
}

func (ActionRecord) TableName() string {
	return "tribe_proposal_actions"
}

// CreationRecord is the fan-out analogue of ActionRecord: one idempotency key
// per logical create-shared-item request.
type CreationRecord struct {
	ID             string      `gorm:"type:uuid;primaryKey"`
	TribeID        string      `gorm:"type:uuid;not null;uniqueIndex:idx_creation_tribe_user_key"`
	CreatedBy      string      `gorm:"type:uuid;not null;uniqueIndex:idx_creation_tribe_user_key"`
	IdempotencyKey string      `gorm:"not null;uniqueIndex:idx_creation_tribe_user_key"`
	RequestHash    string      `gorm:"not null"`
	Status         RecordState `gorm:"type:varchar(16);not null"`
	ErrorCode      *string     `gorm:"type:varchar(64)"`
	ResponseJSON   []byte      `gorm:"type:jsonb"`
	CreatedAt      time.Time   `gorm:"autoCreateTime"`
	UpdatedAt      time.Time   `gorm:"autoUpdateTime"`
}

func (CreationRecord) TableName() string {
	return "tribe_item_creations"
}

type RecordState string

const (
	RecordStatePending   RecordState = "pending"
	RecordStateCompleted RecordState = "completed"
	RecordStateFailed    RecordState = "failed"
)

// InboxProposal is a proposal joined with its item for projection.
type InboxProposal struct {
	Proposal Proposal   `json:"proposal"`
	Item     SharedItem `json:"item"`
}

// Inbox is the recipient's bucketed view: proposed items under New, not_now
// and maybe under Later, accepted under Accepted. Dismissed proposals and
// proposals whose origin the user suppressed never appear.
type Inbox struct {
	New      []InboxProposal `json:"new"`
	Later    []InboxProposal `json:"later"`
	Accepted []InboxProposal `json:"accepted"`
}

// CreateResult is what fan-out produces and what an idempotent replay returns.
type CreateResult struct {
	Item      SharedItem `json:"item"`
	Proposals []Proposal `json:"proposals"`
}
