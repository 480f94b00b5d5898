package suppression

import "context"

type Repository interface {
	Insert(ctx context.Context, origin *SuppressedOrigin) error
	Delete(ctx context.Context, originItemID, userID string) error
	Exists(ctx context.Context, originItemID, userID string) (bool, error)
	ExistingSet(ctx context.Context, userID string, originItemIDs []string) (map[string]struct{}, error)
	ListByUser(ctx context.Context, userID string) ([]SuppressedOrigin, error)
}
