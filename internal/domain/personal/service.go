package personal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Suppressor is the suppression ledger as seen from this package.
type Suppressor interface {
	Suppress(ctx context.Context, originItemID, userID string) error
}

type Service struct {
	repo       Repository
	suppressor Suppressor
}

func NewService(repo Repository, suppressor Suppressor) *Service {
	return &Service{repo: repo, suppressor: suppressor}
}

func (s *Service) Create(ctx context.Context, item *Item) (*Item, error) {
	if item.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if item.ItemType == "" {
		return nil, fmt.Errorf("item type is required")
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Service) List(ctx context.Context, userID, itemType string) ([]Item, error) {
	return s.repo.List(ctx, userID, itemType)
}

// Delete removes one of the user's items. Deletion is always allowed for the
// owner and completely silent: no tribe activity, no notification to whoever
// proposed the item. When the item carries tribe provenance the origin is
// written to the suppression ledger before the row is removed, so a failure
// can never leave a deleted item unprotected against resurrection.
func (s *Service) Delete(ctx context.Context, userID, itemID string) error {
	item, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return err
	}
	if item.UserID != userID {
		return ErrNotOwner
	}

	if item.FromTribe() {
		if err := s.suppressor.Suppress(ctx, *item.OriginTribeItemID, userID); err != nil {
			return fmt.Errorf("suppress origin: %w", err)
		}
	}

	return s.repo.Delete(ctx, itemID)
}
