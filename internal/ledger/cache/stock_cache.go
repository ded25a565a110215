package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tair/produce-ledger/internal/ledger/domain"
	"github.com/tair/produce-ledger/pkg/logger"
)

// DefaultTTL bounds how stale a cached listing can get if an invalidation is lost.
// It is also how long superseded generations linger in redis.
const DefaultTTL = 30 * time.Second

// RedisStockCache caches AvailableStockMirror listings per partition.
// Redis errors degrade to cache misses; the mirror is always the source.
type RedisStockCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStockCache creates a new stock cache
func NewRedisStockCache(redisClient *redis.Client, ttl time.Duration) *RedisStockCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStockCache{
		redis: redisClient,
		ttl:   ttl,
	}
}

// GenerationKey returns the redis key counting invalidations of partition p.
func GenerationKey(p domain.PartitionKey) string {
	return fmt.Sprintf("ledger:available:%s:gen", p)
}

// Key returns the redis key holding the listing of partition p at generation gen.
// Listings of older generations are never read again and expire after the TTL.
func Key(p domain.PartitionKey, gen domain.CacheGeneration) string {
	return fmt.Sprintf("ledger:available:%s:%d", p, gen)
}

func (c *RedisStockCache) generation(ctx context.Context, p domain.PartitionKey) (domain.CacheGeneration, error) {
	gen, err := c.redis.Get(ctx, GenerationKey(p)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return domain.NoGeneration, err
	}
	return domain.CacheGeneration(gen), nil
}

func (c *RedisStockCache) GetAvailable(ctx context.Context, p domain.PartitionKey) ([]domain.MirrorEntry, domain.CacheGeneration, bool) {
	gen, err := c.generation(ctx, p)
	if err != nil {
		logger.Warn(ctx).Err(err).Str("partition", p.String()).Msg("Stock cache read failed")
		return nil, domain.NoGeneration, false
	}

	raw, err := c.redis.Get(ctx, Key(p, gen)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn(ctx).Err(err).Str("partition", p.String()).Msg("Stock cache read failed")
			return nil, domain.NoGeneration, false
		}
		return nil, gen, false
	}

	var entries []domain.MirrorEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		logger.Warn(ctx).Err(err).Str("partition", p.String()).Msg("Discarding undecodable stock cache entry")
		c.redis.Del(ctx, Key(p, gen))
		return nil, gen, false
	}
	return entries, gen, true
}

// SetAvailable stores entries for generation gen. After an Invalidate the
// write lands on a key no reader looks at, so a listing read before a
// commit cannot shadow the commit.
func (c *RedisStockCache) SetAvailable(ctx context.Context, p domain.PartitionKey, gen domain.CacheGeneration, entries []domain.MirrorEntry) {
	if gen < 0 {
		return
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		logger.Warn(ctx).Err(err).Str("partition", p.String()).Msg("Failed to encode stock cache entry")
		return
	}
	if err := c.redis.Set(ctx, Key(p, gen), raw, c.ttl).Err(); err != nil {
		logger.Warn(ctx).Err(err).Str("partition", p.String()).Msg("Stock cache write failed")
	}
}

// Invalidate moves partition p to a new generation.
func (c *RedisStockCache) Invalidate(ctx context.Context, p domain.PartitionKey) {
	if err := c.redis.Incr(ctx, GenerationKey(p)).Err(); err != nil {
		logger.Warn(ctx).Err(err).Str("partition", p.String()).Msg("Stock cache invalidation failed")
	}
}

// Ping checks redis connectivity.
func (c *RedisStockCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}
