package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockHeld = errors.New("channel lock is held by another operation")

const deletionStatsKey = "deleted_channels:stats"

func channelLockKey(channelID string) string {
	return fmt.Sprintf("channel:%s:deletion_lock", channelID)
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type RedisChannelLock struct {
	redis *redis.Client
}

func NewRedisChannelLock(redisClient *redis.Client) *RedisChannelLock {
	return &RedisChannelLock{redis: redisClient}
}

func (l *RedisChannelLock) Acquire(ctx context.Context, channelID string, ttl time.Duration) (func(context.Context) error, error) {
	key := channelLockKey(channelID)
	token := uuid.NewString()
	ok, err := l.redis.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	release := func(releaseCtx context.Context) error {
		return releaseScript.Run(releaseCtx, l.redis, []string{key}, token).Err()
	}
	return release, nil
}

// NoopChannelLock is used when Redis is disabled; row locks in the database
// still serialize concurrent deletions.
type NoopChannelLock struct{}

func (NoopChannelLock) Acquire(context.Context, string, time.Duration) (func(context.Context) error, error) {
	return func(context.Context) error { return nil }, nil
}

type RedisStatisticsCache struct {
	redis *redis.Client
}

func NewRedisStatisticsCache(redisClient *redis.Client) *RedisStatisticsCache {
	return &RedisStatisticsCache{redis: redisClient}
}

func (c *RedisStatisticsCache) Get(ctx context.Context) (*DeletionStatistics, error) {
	raw, err := c.redis.Get(ctx, deletionStatsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var stats DeletionStatistics
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *RedisStatisticsCache) Set(ctx context.Context, stats DeletionStatistics, ttl time.Duration) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, deletionStatsKey, raw, ttl).Err()
}

func (c *RedisStatisticsCache) Invalidate(ctx context.Context) error {
	return c.redis.Del(ctx, deletionStatsKey).Err()
}

type NoopStatisticsCache struct{}

func (NoopStatisticsCache) Get(context.Context) (*DeletionStatistics, error) { return nil, nil }

func (NoopStatisticsCache) Set(context.Context, DeletionStatistics, time.Duration) error { return nil }

func (NoopStatisticsCache) Invalidate(context.Context) error { return nil }
