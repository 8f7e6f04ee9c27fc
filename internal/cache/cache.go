// Package cache stores decoded AI results in Redis, keyed by the prompt that
// produced them.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type GenerationCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New returns a cache writing entries with the given TTL. A zero TTL or nil
// client disables caching.
func New(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *GenerationCache {
	return &GenerationCache{rdb: rdb, ttl: ttl, logger: logger.Named("cache")}
}

func Key(kind, prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return "gen:" + kind + ":" + hex.EncodeToString(sum[:])
}

func (c *GenerationCache) enabled() bool {
	return c != nil && c.rdb != nil && c.ttl > 0
}

// Get decodes a cached result into dst. It reports false on a miss and on
// any Redis or decode failure.
func (c *GenerationCache) Get(ctx context.Context, kind, prompt string, dst any) bool {
	if !c.enabled() {
		return false
	}

	key := Key(kind, prompt)
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("cache entry unreadable", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *GenerationCache) Set(ctx context.Context, kind, prompt string, v any) {
	if !c.enabled() {
		return
	}

	key := Key(kind, prompt)
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
