package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"helpem-go/internal/domain/proposal"
	"helpem-go/pkg/logger"
)

// RedisInboxCache stores serialized inbox proposal lists keyed by tribe and
// member. Failures degrade to a cache miss; the cache is never authoritative.
type RedisInboxCache struct {
	client *redis.Client
	log    logger.Logger
}

func NewRedisInboxCache(client *redis.Client, log logger.Logger) *RedisInboxCache {
	return &RedisInboxCache{client: client, log: log}
}

func inboxKey(tribeID, memberID string) string {
	return fmt.Sprintf("inbox:%s:%s", tribeID, memberID)
}

func (c *RedisInboxCache) Get(ctx context.Context, tribeID, memberID string) ([]proposal.InboxProposal, bool) {
	raw, err := c.client.Get(ctx, inboxKey(tribeID, memberID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("inbox cache read failed", "error", err)
		}
		return nil, false
	}

	var proposals []proposal.InboxProposal
	if err := json.Unmarshal(raw, &proposals); err != nil {
		c.log.Warn("inbox cache entry corrupt, dropping", "key", inboxKey(tribeID, memberID))
		c.Delete(ctx, tribeID, memberID)
		return nil, false
	}
	return proposals, true
}

func (c *RedisInboxCache) Set(ctx context.Context, tribeID, memberID string, proposals []proposal.InboxProposal, ttl time.Duration) {
	raw, err := json.Marshal(proposals)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, inboxKey(tribeID, memberID), raw, ttl).Err(); err != nil {
		c.log.Warn("inbox cache write failed", "error", err)
	}
}

func (c *RedisInboxCache) Delete(ctx context.Context, tribeID string, memberIDs ...string) {
	if len(memberIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		keys = append(keys, inboxKey(tribeID, memberID))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("inbox cache invalidation failed", "error", err)
	}
}
