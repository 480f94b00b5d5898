package proposal

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	personaldomain "helpem-go/internal/domain/personal"
	proposaldomain "helpem-go/internal/domain/proposal"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Transaction(ctx context.Context, fn func(proposaldomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRepository{db: tx})
	})
}

func (r *PostgresRepository) CreateItem(ctx context.Context, item *proposaldomain.SharedItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *PostgresRepository) GetItem(ctx context.Context, itemID string) (*proposaldomain.SharedItem, error) {
	var item proposaldomain.SharedItem
	if err := r.db.WithContext(ctx).
		Where("id = ?", itemID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, proposaldomain.ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *PostgresRepository) CreateProposals(ctx context.Context, proposals []proposaldomain.Proposal) error {
	if len(proposals) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&proposals).Error
}

func (r *PostgresRepository) GetProposal(ctx context.Context, proposalID string) (*proposaldomain.Proposal, error) {
	var proposal proposaldomain.Proposal
	if err := r.db.WithContext(ctx).
		Where("id = ?", proposalID).
		First(&proposal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, proposaldomain.ErrProposalNotFound
		}
		return nil, err
	}
	return &proposal, nil
}

func (r *PostgresRepository) GetProposalForRecipient(ctx context.Context, proposalID, userID string) (*proposaldomain.Proposal, error) {
	var proposal proposaldomain.Proposal
	if err := r.db.WithContext(ctx).
		Joins("JOIN tribe_members ON tribe_members.id = tribe_proposals.recipient_member_id").
		Where("tribe_proposals.id = ? AND tribe_members.user_id = ?", proposalID, userID).
		First(&proposal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, proposaldomain.ErrProposalNotFound
		}
		return nil, err
	}
	return &proposal, nil
}

func (r *PostgresRepository) UpdateProposalState(ctx context.Context, proposal *proposaldomain.Proposal) error {
	return r.db.WithContext(ctx).
		Model(&proposaldomain.Proposal{}).
		Where("id = ?", proposal.ID).
		Updates(map[string]interface{}{
			"state":            proposal.State,
			"state_changed_at": proposal.StateChangedAt,
		}).Error
}

func (r *PostgresRepository) ListInboxProposals(ctx context.Context, recipientMemberID string) ([]proposaldomain.InboxProposal, error) {
	var proposals []proposaldomain.Proposal
	if err := r.db.WithContext(ctx).
		Where("recipient_member_id = ? AND state IN ?", recipientMemberID, []proposaldomain.State{
			proposaldomain.StateProposed,
			proposaldomain.StateNotNow,
			proposaldomain.StateMaybe,
			proposaldomain.StateAccepted,
		}).
		Order("created_at asc").
		Find(&proposals).Error; err != nil {
		return nil, err
	}
	if len(proposals) == 0 {
		return []proposaldomain.InboxProposal{}, nil
	}

	itemIDs := make([]string, 0, len(proposals))
	for _, p := range proposals {
		itemIDs = append(itemIDs, p.ItemID)
	}
	var items []proposaldomain.SharedItem
	if err := r.db.WithContext(ctx).
		Where("id IN ?", itemIDs).
		Find(&items).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]proposaldomain.SharedItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	result := make([]proposaldomain.InboxProposal, 0, len(proposals))
	for _, p := range proposals {
		item, ok := byID[p.ItemID]
		if !ok {
			continue
		}
		result = append(result, proposaldomain.InboxProposal{Proposal: p, Item: item})
	}
	return result, nil
}

func (r *PostgresRepository) ReserveAction(ctx context.Context, record *proposaldomain.ActionRecord) (bool, *proposaldomain.ActionRecord, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "proposal_id"},
				{Name: "idempotency_key"},
			},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		return false, nil, result.Error
	}
	if result.RowsAffected == 1 {
		return true, nil, nil
	}

	var existing proposaldomain.ActionRecord
	if err := r.db.WithContext(ctx).
		Where("proposal_id = ? AND idempotency_key = ?", record.ProposalID, record.IdempotencyKey).
		First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil, nil
		}
		return false, nil, err
	}

	return false, &existing, nil
}

func (r *PostgresRepository) CompleteAction(ctx context.Context, record *proposaldomain.ActionRecord) error {
	return r.db.WithContext(ctx).
		Model(&proposaldomain.ActionRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"status":        record.Status,
			"error_code":    record.ErrorCode,
			"response_json": record.ResponseJSON,
		}).Error
}

func (r *PostgresRepository) ReleaseAction(ctx context.Context, recordID string) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND status = ?", recordID, proposaldomain.RecordStatePending).
		Delete(&proposaldomain.ActionRecord{}).Error
}

func (r *PostgresRepository) BeginCreation(ctx context.Context, record *proposaldomain.CreationRecord) (bool, *proposaldomain.CreationRecord, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tribe_id"},
				{Name: "created_by"},
				{Name: "idempotency_key"},
			},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		return false, nil, result.Error
	}
	if result.RowsAffected == 1 {
		return true, nil, nil
	}

	var existing proposaldomain.CreationRecord
	if err := r.db.WithContext(ctx).
		Where("tribe_id = ? AND created_by = ? AND idempotency_key = ?",
			record.TribeID, record.CreatedBy, record.IdempotencyKey).
		First(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil, nil
		}
		return false, nil, err
	}

	return false, &existing, nil
}

func (r *PostgresRepository) CompleteCreation(ctx context.Context, record *proposaldomain.CreationRecord) error {
	return r.db.WithContext(ctx).
		Model(&proposaldomain.CreationRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]interface{}{
			"status":        record.Status,
			"error_code":    record.ErrorCode,
			"response_json": record.ResponseJSON,
		}).Error
}

func (r *PostgresRepository) ReleaseCreation(ctx context.Context, recordID string) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND status = ?", recordID, proposaldomain.RecordStatePending).
		Delete(&proposaldomain.CreationRecord{}).Error
}

func (r *PostgresRepository) CreatePersonalItem(ctx context.Context, item *personaldomain.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}
