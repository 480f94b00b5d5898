package suppression

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Service is the suppression ledger. It is consulted before materializing an
// accepted proposal and when projecting an inbox, and it always reads straight
// from the repository, never through a cache.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Suppress records that the user rejected resurrecting the origin item.
// Duplicate calls are accepted silently.
func (s *Service) Suppress(ctx context.Context, originItemID, userID string) error {
	originItemID, userID, err := normalize(originItemID, userID)
	if err != nil {
		return err
	}

	return s.repo.Insert(ctx, &SuppressedOrigin{
		ID:           uuid.NewString(),
		OriginItemID: originItemID,
		UserID:       userID,
	})
}

func (s *Service) IsSuppressed(ctx context.Context, originItemID, userID string) (bool, error) {
	originItemID, userID, err := normalize(originItemID, userID)
	if err != nil {
		return false, err
	}

	return s.repo.Exists(ctx, originItemID, userID)
}

// SuppressedSet returns the subset of originItemIDs that are suppressed for
// the user, in one round trip.
func (s *Service) SuppressedSet(ctx context.Context, userID string, originItemIDs []string) (map[string]struct{}, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserRequired
	}
	if len(originItemIDs) == 0 {
		return map[string]struct{}{}, nil
	}

	return s.repo.ExistingSet(ctx, userID, originItemIDs)
}

// Unsuppress removes a tombstone. Only ever called on an explicit user
// request, never as part of sync or proposal processing.
func (s *Service) Unsuppress(ctx context.Context, originItemID, userID string) error {
	originItemID, userID, err := normalize(originItemID, userID)
	if err != nil {
		return err
	}

	return s.repo.Delete(ctx, originItemID, userID)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]SuppressedOrigin, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserRequired
	}

	return s.repo.ListByUser(ctx, userID)
}

func normalize(originItemID, userID string) (string, string, error) {
	originItemID = strings.TrimSpace(originItemID)
	userID = strings.TrimSpace(userID)
	if originItemID == "" {
		return "", "", ErrOriginRequired
	}
	if userID == "" {
		return "", "", ErrUserRequired
	}
	return originItemID, userID, nil
}
