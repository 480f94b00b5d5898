package proposal

import (
	"context"
	"time"
)

// InboxCache fronts the per-member proposal fetch. Strictly a performance
// layer: every mutating operation invalidates the affected keys eagerly, and
// suppression filtering always runs after the cache read.
type InboxCache interface {
	Get(ctx context.Context, tribeID, memberID string) ([]InboxProposal, bool)
	Set(ctx context.Context, tribeID, memberID string, proposals []InboxProposal, ttl time.Duration)
	Delete(ctx context.Context, tribeID string, memberIDs ...string)
}

type noopInboxCache struct{}

func (noopInboxCache) Get(context.Context, string, string) ([]InboxProposal, bool) {
	return nil, false
}

func (noopInboxCache) Set(context.Context, string, string, []InboxProposal, time.Duration) {}

func (noopInboxCache) Delete(context.Context, string, ...string) {}

// NoopInboxCache disables inbox caching.
func NoopInboxCache() InboxCache {
	return noopInboxCache{}
}
