package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/af-corp/showcase-gateway/internal/types"
)

const redisKeyPrefix = "showcase:catalog:"

// CachedCatalog fronts a catalog with a Redis cache. A nil Redis client
// disables caching and every call goes to the source.
type CachedCatalog struct {
	src   Catalog
	redis *redis.Client
	ttl   time.Duration
}

func NewCachedCatalog(src Catalog, rdb *redis.Client, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{src: src, redis: rdb, ttl: ttl}
}

func (c *CachedCatalog) Product(ctx context.Context, id string) (*types.Product, error) {
	key := redisKeyPrefix + "product:" + id
	var cached types.Product
	if c.load(ctx, key, &cached) {
		return &cached, nil
	}

	p, err := c.src.Product(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, p)
	return p, nil
}

// RandomProducts caches the sampled page, so repeated listings within the TTL
// show the same selection until Refresh is called.
func (c *CachedCatalog) RandomProducts(ctx context.Context, n int) ([]types.Product, error) {
	key := redisKeyPrefix + "random:" + strconv.Itoa(n)
	var cached []types.Product
	if c.load(ctx, key, &cached) {
		return cached, nil
	}

	products, err := c.src.RandomProducts(ctx, n)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, products)
	return products, nil
}

// Refresh drops every cached catalog entry.
func (c *CachedCatalog) Refresh(ctx context.Context) error {
	if c.redis == nil {
		return nil
	}
	iter := c.redis.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...).Err()
}

func (c *CachedCatalog) load(ctx context.Context, key string, v any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

func (c *CachedCatalog) store(ctx context.Context, key string, v any) {
	if c.redis == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Warn("catalog cache write failed", "key", key, "error", err)
	}
}
