package personal

import "time"

// Item is an entry in a user's personal space. Items materialized from an
// accepted tribe proposal carry provenance fields; items the user created
// directly have none.
type Item struct {
	ID       string `gorm:"type:uuid;primaryKey"`
	UserID   string `gorm:"type:uuid;not null;index"`
	ItemType string `gorm:"type:varchar(16);not null"`
	Payload  []byte `gorm:"type:jsonb;not null"`

	OriginTribeItemID     *string `gorm:"type:uuid;index"`
	OriginTribeProposalID *string `gorm:"type:uuid"`
	AddedByTribeID        *string `gorm:"type:uuid"`
	AddedByTribeName      *string ``

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Item) TableName() string {
	return "personal_items"
}

// FromTribe reports whether the item was materialized from a tribe proposal.
func (i Item) FromTribe() bool {
	return i.OriginTribeItemID != nil && *i.OriginTribeItemID != ""
}
