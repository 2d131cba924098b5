package redis

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lumenlearn/assessment-backend/internal/platform/logger"
)

// Cache is a read-through JSON cache for immutable content (questions,
// concept graphs). Belief and session rows are never cached; they are
// mutable and read under row locks. A nil Cache is a no-op, so the
// service runs without redis.
type Cache struct {
	rdb *goredis.Client
	ttl time.Duration
	log *logger.Logger
}

func NewCache(addr, password string, db int, ttl time.Duration, baseLog *logger.Logger) *Cache {
	if addr == "" {
		return nil
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Cache{rdb: rdb, ttl: ttl, log: baseLog.With("client", "RedisCache")}
}

// GetJSON loads key into dest, reporting whether it was present. Cache
// failures degrade to a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("cache get failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.log.Warn("cache payload corrupt", "key", key, "error", err)
		return false
	}
	return true
}

// SetJSON stores v under key with the cache TTL, best effort.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("cache set failed", "key", key, "error", err)
	}
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
