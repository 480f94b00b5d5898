package personal

import (
	"context"
	"errors"

	"gorm.io/gorm"
	personaldomain "helpem-go/internal/domain/personal"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, item *personaldomain.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *PostgresRepository) Get(ctx context.Context, itemID string) (*personaldomain.Item, error) {
	var item personaldomain.Item
	if err := r.db.WithContext(ctx).
		Where("id = ?", itemID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, personaldomain.ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *PostgresRepository) List(ctx context.Context, userID, itemType string) ([]personaldomain.Item, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if itemType != "" {
		query = query.Where("item_type = ?", itemType)
	}

	var items []personaldomain.Item
	if err := query.Order("created_at desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, itemID string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", itemID).
		Delete(&personaldomain.Item{}).Error
}
