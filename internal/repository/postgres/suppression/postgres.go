package suppression

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	suppressiondomain "helpem-go/internal/domain/suppression"
)

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert swallows the unique violation: a duplicate tombstone is a no-op,
// never an error.
func (r *PostgresRepository) Insert(ctx context.Context, origin *suppressiondomain.SuppressedOrigin) error {
	err := r.db.WithContext(ctx).Create(origin).Error
	if err != nil && isUniqueViolation(err) {
		return nil
	}
	return err
}

func (r *PostgresRepository) Delete(ctx context.Context, originItemID, userID string) error {
	return r.db.WithContext(ctx).
		Where("origin_item_id = ? AND user_id = ?", originItemID, userID).
		Delete(&suppressiondomain.SuppressedOrigin{}).Error
}

func (r *PostgresRepository) Exists(ctx context.Context, originItemID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&suppressiondomain.SuppressedOrigin{}).
		Where("origin_item_id = ? AND user_id = ?", originItemID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *PostgresRepository) ExistingSet(ctx context.Context, userID string, originItemIDs []string) (map[string]struct{}, error) {
	type row struct {
		OriginItemID string `gorm:"column:origin_item_id"`
	}

	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&suppressiondomain.SuppressedOrigin{}).
		Select("origin_item_id").
		Where("user_id = ? AND origin_item_id IN ?", userID, originItemIDs).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	result := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		result[r.OriginItemID] = struct{}{}
	}
	return result, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]suppressiondomain.SuppressedOrigin, error) {
	var origins []suppressiondomain.SuppressedOrigin
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("suppressed_at desc").
		Find(&origins).Error; err != nil {
		return nil, err
	}
	return origins, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
