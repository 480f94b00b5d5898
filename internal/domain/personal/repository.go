package personal

import "context"

type Repository interface {
	Create(ctx context.Context, item *Item) error
	Get(ctx context.Context, itemID string) (*Item, error)
	List(ctx context.Context, userID, itemType string) ([]Item, error)
	Delete(ctx context.Context, itemID string) error
}
