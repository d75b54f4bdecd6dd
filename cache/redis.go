package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yeremiapane/periodic-tables/utils"
)

// RedisCache shares cached responses between instances. Keys live under
// prefix so Flush only touches this service's entries.
type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "periodic-tables"
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (r *RedisCache) key(k string) string {
	return r.prefix + ":" + k
}

func (r *RedisCache) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	bs, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			utils.ErrorLogger.Warnf("redis cache get %s: %v", key, err)
		}
		return nil, false
	}
	var resp CachedResponse
	if err := json.Unmarshal(bs, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

func (r *RedisCache) Set(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) {
	bs, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, r.key(key), bs, ttl).Err(); err != nil {
		utils.ErrorLogger.Warnf("redis cache set %s: %v", key, err)
	}
}

// Flush deletes every key under the prefix using SCAN so large keyspaces do
// not block the server.
func (r *RedisCache) Flush(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+":*", 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
