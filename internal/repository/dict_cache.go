package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/admin-console-api/pkg/errors"
)

const dictCacheKeyPrefix = "dict:type:"

// DictCache is a read-through Redis cache for per-type dictionary entries.
// Mutations invalidate the affected type; readers repopulate lazily.
type DictCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewDictCache constructs a dictionary cache.
func NewDictCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *DictCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DictCache{client: client, ttl: ttl, logger: logger}
}

// Get retrieves and unmarshals the cached entries for a type.
func (c *DictCache) Get(ctx context.Context, typeCode string, dest interface{}) error {
	if c.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := c.client.Get(ctx, dictCacheKeyPrefix+typeCode).Bytes()
	if err != nil {
		if err == redis.Nil {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis dict get %s: %w", typeCode, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal dict cache for %s: %w", typeCode, err)
	}
	return nil
}

// Set marshals and stores the entries for a type.
func (c *DictCache) Set(ctx context.Context, typeCode string, value interface{}) error {
	if c.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal dict cache for %s: %w", typeCode, err)
	}

	if err := c.client.Set(ctx, dictCacheKeyPrefix+typeCode, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis dict set %s: %w", typeCode, err)
	}
	return nil
}

// Invalidate drops the cached entries for a type.
func (c *DictCache) Invalidate(ctx context.Context, typeCode string) error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, dictCacheKeyPrefix+typeCode).Err(); err != nil {
		c.logger.Warn("dict cache invalidate failed", zap.String("type_code", typeCode), zap.Error(err))
		return fmt.Errorf("redis dict del %s: %w", typeCode, err)
	}
	return nil
}
