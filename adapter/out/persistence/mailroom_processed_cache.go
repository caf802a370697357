package persistence

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"mailroom_server/core/port/out"
)

const (
	seenKeyPrefix  = "mailroom:seen:"
	retryKeyPrefix = "mailroom:retry:"

	retryCounterTTL = 24 * time.Hour
)

// RedisProcessedCache implements out.ProcessedCache. It is the fast path in
// front of the route audit table plus the retry counter for failing messages.
type RedisProcessedCache struct {
	client *redis.Client
}

// NewRedisProcessedCache creates the cache around an existing client.
func NewRedisProcessedCache(client *redis.Client) *RedisProcessedCache {
	return &RedisProcessedCache{client: client}
}

// Seen reports whether the message was routed recently.
func (c *RedisProcessedCache) Seen(ctx context.Context, messageID string) (bool, error) {
	n, err := c.client.Exists(ctx, seenKeyPrefix+messageID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkSeen records a routed message for the given retention window.
func (c *RedisProcessedCache) MarkSeen(ctx context.Context, messageID string, ttl time.Duration) error {
	return c.client.Set(ctx, seenKeyPrefix+messageID, 1, ttl).Err()
}

// IncrRetry bumps and returns the failure count for a message.
func (c *RedisProcessedCache) IncrRetry(ctx context.Context, messageID string) (int64, error) {
	key := retryKeyPrefix + messageID
	n, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		c.client.Expire(ctx, key, retryCounterTTL)
	}
	return n, nil
}

// ClearRetry drops the failure count after a successful route.
func (c *RedisProcessedCache) ClearRetry(ctx context.Context, messageID string) error {
	return c.client.Del(ctx, retryKeyPrefix+messageID).Err()
}

// Ensure interface compliance
var _ out.ProcessedCache = (*RedisProcessedCache)(nil)
