package suppression

import "time"

// SuppressedOrigin is a permanent tombstone recording that a user deleted a
// tribe-sourced personal item. Once present, the origin item must never be
// silently materialized for that user again. Rows are never expired.
type SuppressedOrigin struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	OriginItemID string    `gorm:"type:uuid;not null;uniqueIndex:idx_suppressed_origin_user"`
	UserID       string    `gorm:"type:uuid;not null;uniqueIndex:idx_suppressed_origin_user;index"`
	SuppressedAt time.Time `gorm:"autoCreateTime"`
}

func (SuppressedOrigin) TableName() string {
	return "suppressed_origins"
}
