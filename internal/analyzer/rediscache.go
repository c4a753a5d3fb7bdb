package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clawsec/core/internal/detect"
)

// RedisCache implements CacheBackend over a shared Redis instance, so a
// fleet of clawsecd processes can share one fingerprint cache instead of
// each holding its own (SPEC_FULL.md §1.2). Keys are namespaced under
// "clawsec:analyzer:" to share a Redis instance safely with other
// subsystems.
type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, prefix: "clawsec:analyzer:"}
}

func (c *RedisCache) Get(ctx context.Context, key string) (detect.AnalysisResult, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return detect.AnalysisResult{}, false, nil
	}
	if err != nil {
		return detect.AnalysisResult{}, false, fmt.Errorf("analyzer: redis cache get: %w", err)
	}
	var result detect.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return detect.AnalysisResult{}, false, fmt.Errorf("analyzer: redis cache decode: %w", err)
	}
	return result, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, result detect.AnalysisResult, ttl time.Duration) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("analyzer: redis cache encode: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("analyzer: redis cache set: %w", err)
	}
	return nil
}
