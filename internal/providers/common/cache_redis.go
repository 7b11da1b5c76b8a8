package common

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisResponsePrefix = "contentsvc:provider:"

// RedisResponseCache shares provider payloads between sessions and replicas.
// Lookup or write failures degrade to a cache miss.
type RedisResponseCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisResponseCache(client redis.UniversalClient, ttl time.Duration) *RedisResponseCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisResponseCache{client: client, ttl: ttl}
}

func (c *RedisResponseCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, redisResponsePrefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *RedisResponseCache) Set(ctx context.Context, key string, payload []byte) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Set(ctx, redisResponsePrefix+key, payload, c.ttl).Err()
}

func (c *RedisResponseCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
