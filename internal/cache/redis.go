package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/amity-social/amity/internal/config"
	"github.com/redis/go-redis/v9"
)

// TTLs. Badge counts are a cache over the unread_matches table and expire
// unless refreshed; presence keys decay on their own (a user is online
// only while the client keeps heartbeating).
const (
	BadgeTTL    = time.Hour
	PresenceTTL = 45 * time.Second
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.Client.Incr(ctx, key).Result()
}

func (c *RedisCache) Decr(ctx context.Context, key string) (int64, error) {
	return c.Client.Decr(ctx, key).Result()
}

// KeyForUnreadMatches generates the Redis key for a user's unread-match badge.
func (c *RedisCache) KeyForUnreadMatches(userID uint64) string {
	return fmt.Sprintf("unread:matches:%d", userID)
}

// UpdateUnreadMatches stores the badge count, refreshing the TTL.
func (c *RedisCache) UpdateUnreadMatches(ctx context.Context, userID uint64, count int64) error {
	return c.Client.Set(ctx, c.KeyForUnreadMatches(userID), count, BadgeTTL).Err()
}

// GetUnreadMatches returns the cached badge count and whether it was present.
// A miss is not an error; callers fall back to the DB.
func (c *RedisCache) GetUnreadMatches(ctx context.Context, userID uint64) (int64, bool, error) {
	key := c.KeyForUnreadMatches(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, BadgeTTL).Err()
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil // treat garbage as a miss
	}
	return n, true, nil
}

// KeyForPresence generates the Redis key for a user's presence heartbeat.
func (c *RedisCache) KeyForPresence(userID uint64) string {
	return fmt.Sprintf("presence:%d", userID)
}

// Heartbeat records that the user is online. Last-write-wins; shares no
// lock with match/request mutations.
func (c *RedisCache) Heartbeat(ctx context.Context, userID uint64) error {
	return c.Client.Set(ctx, c.KeyForPresence(userID), time.Now().Unix(), PresenceTTL).Err()
}

// IsOnline reports whether the user heartbeated within the presence TTL.
func (c *RedisCache) IsOnline(ctx context.Context, userID uint64) (bool, error) {
	n, err := c.Client.Exists(ctx, c.KeyForPresence(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
