package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"specado/internal/specs"
)

// redisKeyPrefix namespaces Specado's entries within a shared Redis instance.
const redisKeyPrefix = "specado:providerspec:"

// redisTTL bounds how long a validated ProviderSpec stays cached before the
// next request re-validates it; an operator editing a spec file on disk
// still invalidates immediately because KeyFor is content-addressed.
const redisTTL = 24 * time.Hour

// RedisCache is the multi-instance SpecCache backend: the same content-
// addressed ProviderSpec cache as LRUCache, shared across server replicas.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache dials url (e.g. "redis://localhost:6379/0") and verifies
// connectivity before returning.
func NewRedisCache(url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (*specs.ProviderSpec, bool, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cache entry from redis: %w", err)
	}
	spec, err := specs.DecodeProviderSpec(data)
	if err != nil {
		return nil, false, fmt.Errorf("decode cached provider_spec: %w", err)
	}
	return spec, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, spec *specs.ProviderSpec) error {
	data, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("marshal provider_spec for cache: %w", err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, data, redisTTL).Err(); err != nil {
		return fmt.Errorf("set cache entry in redis: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
