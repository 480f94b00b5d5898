package tribe

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	tribedomain "helpem-go/internal/domain/tribe"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Transaction(ctx context.Context, fn func(tribedomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRepository{db: tx})
	})
}

func (r *PostgresRepository) CreateTribe(ctx context.Context, tribe *tribedomain.Tribe) error {
	return r.db.WithContext(ctx).Create(tribe).Error
}

func (r *PostgresRepository) GetTribe(ctx context.Context, tribeID string) (*tribedomain.Tribe, error) {
	var tribe tribedomain.Tribe
	if err := r.db.WithContext(ctx).
		Where("id = ?", tribeID).
		First(&tribe).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tribedomain.ErrTribeNotFound
		}
		return nil, err
	}
	return &tribe, nil
}

func (r *PostgresRepository) UpdateTribeName(ctx context.Context, tribeID, name string) error {
	return r.db.WithContext(ctx).
		Model(&tribedomain.Tribe{}).
		Where("id = ?", tribeID).
		Update("name", name).Error
}

func (r *PostgresRepository) SoftDeleteTribe(ctx context.Context, tribeID string) error {
	return r.db.WithContext(ctx).
		Model(&tribedomain.Tribe{}).
		Where("id = ? AND deleted_at IS NULL", tribeID).
		Update("deleted_at", time.Now().UTC()).Error
}

func (r *PostgresRepository) CreateMember(ctx context.Context, member *tribedomain.Member) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *PostgresRepository) GetMember(ctx context.Context, memberID string) (*tribedomain.Member, error) {
	var member tribedomain.Member
	if err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("id = ?", memberID).
		First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tribedomain.ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

func (r *PostgresRepository) GetCurrentMember(ctx context.Context, tribeID, userID string) (*tribedomain.Member, error) {
	var member tribedomain.Member
	if err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("tribe_id = ? AND user_id = ? AND left_at IS NULL", tribeID, userID).
		First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tribedomain.ErrMemberNotFound
		}
		return nil, err
	}
	return &member, nil
}

func (r *PostgresRepository) ListMembers(ctx context.Context, tribeID string) ([]tribedomain.Member, error) {
	var members []tribedomain.Member
	if err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("tribe_id = ? AND left_at IS NULL", tribeID).
		Order("invited_at asc").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *PostgresRepository) ListMembershipsByUser(ctx context.Context, userID string) ([]tribedomain.Member, error) {
	var members []tribedomain.Member
	if err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("user_id = ? AND left_at IS NULL", userID).
		Order("invited_at asc").
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *PostgresRepository) SetMemberAccepted(ctx context.Context, memberID string) error {
	return r.db.WithContext(ctx).
		Model(&tribedomain.Member{}).
		Where("id = ? AND accepted_at IS NULL AND left_at IS NULL", memberID).
		Update("accepted_at", time.Now().UTC()).Error
}

func (r *PostgresRepository) SetMemberLeft(ctx context.Context, memberID string) error {
	return r.db.WithContext(ctx).
		Model(&tribedomain.Member{}).
		Where("id = ? AND left_at IS NULL", memberID).
		Update("left_at", time.Now().UTC()).Error
}

func (r *PostgresRepository) UpdateMemberSettings(ctx context.Context, member *tribedomain.Member) error {
	return r.db.WithContext(ctx).
		Model(&tribedomain.Member{}).
		Where("id = ?", member.ID).
		Updates(map[string]interface{}{
			"management_scope": member.ManagementScope,
			"proposal_notifs":  member.ProposalNotifs,
			"digest_notifs":    member.DigestNotifs,
		}).Error
}

func (r *PostgresRepository) UpsertPermissions(ctx context.Context, permissions *tribedomain.Permissions) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "member_id"}},
			UpdateAll: true,
		}).
		Create(permissions).Error
}

func (r *PostgresRepository) CreateRequest(ctx context.Context, request *tribedomain.MemberRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *PostgresRepository) GetRequest(ctx context.Context, requestID string) (*tribedomain.MemberRequest, error) {
	var request tribedomain.MemberRequest
	if err := r.db.WithContext(ctx).
		Where("id = ?", requestID).
		First(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tribedomain.ErrRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}

func (r *PostgresRepository) GetPendingRequest(ctx context.Context, tribeID, requestedUserID string) (*tribedomain.MemberRequest, error) {
	var request tribedomain.MemberRequest
	if err := r.db.WithContext(ctx).
		Where("tribe_id = ? AND requested_user_id = ? AND state = ?",
			tribeID, requestedUserID, tribedomain.RequestStatePending).
		First(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tribedomain.ErrRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}

func (r *PostgresRepository) ListRequests(ctx context.Context, tribeID string, pendingOnly bool, requestedBy string) ([]tribedomain.MemberRequest, error) {
	query := r.db.WithContext(ctx).
		Model(&tribedomain.MemberRequest{}).
		Where("tribe_id = ?", tribeID)
	if pendingOnly {
		query = query.Where("state = ?", tribedomain.RequestStatePending)
	}
	if requestedBy != "" {
		query = query.Where("requested_by = ?", requestedBy)
	}

	var requests []tribedomain.MemberRequest
	if err := query.Order("created_at asc").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *PostgresRepository) ResolveRequest(ctx context.Context, request *tribedomain.MemberRequest) error {
	return r.db.WithContext(ctx).
		Model(&tribedomain.MemberRequest{}).
		Where("id = ?", request.ID).
		Updates(map[string]interface{}{
			"state":       request.State,
			"resolved_at": request.ResolvedAt,
			"resolved_by": request.ResolvedBy,
		}).Error
}

func (r *PostgresRepository) CreateInviteLink(ctx context.Context, link *tribedomain.InviteLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *PostgresRepository) GetInviteLinkByToken(ctx context.Context, token string) (*tribedomain.InviteLink, error) {
	var link tribedomain.InviteLink
	if err := r.db.WithContext(ctx).
		Where("token = ?", token).
		First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tribedomain.ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *PostgresRepository) IncrementInviteLinkUses(ctx context.Context, linkID string) error {
	result := r.db.WithContext(ctx).
		Model(&tribedomain.InviteLink{}).
		Where("id = ? AND (max_uses IS NULL OR used_count < max_uses)", linkID).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return tribedomain.ErrLinkExhausted
	}
	return nil
}

func (r *PostgresRepository) CountActiveMembers(ctx context.Context, tribeID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&tribedomain.Member{}).
		Where("tribe_id = ? AND accepted_at IS NOT NULL AND left_at IS NULL", tribeID).
		Count(&count).Error
	return count, err
}

func (r *PostgresRepository) CreateActivity(ctx context.Context, activity *tribedomain.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

func (r *PostgresRepository) ListActivity(ctx context.Context, tribeID string, limit int) ([]tribedomain.Activity, error) {
	var entries []tribedomain.Activity
	if err := r.db.WithContext(ctx).
		Where("tribe_id = ?", tribeID).
		Order("created_at desc").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *PostgresRepository) CountPendingProposals(ctx context.Context, memberID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("tribe_proposals").
		Where("recipient_member_id = ? AND state = ?", memberID, "proposed").
		Count(&count).Error
	return count, err
}
