package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a cache.Cache backed by Redis. Entries expire after ttl.
type Cache struct {
	client *redis.Client
	ctx    context.Context
	ttl    time.Duration
}

func New(addr string, ttl time.Duration) (*Cache, error) {
	const op = "storage.redis.New"

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	ctx := context.Background()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Cache{
		client: rdb,
		ctx:    ctx,
		ttl:    ttl,
	}, nil
}

func (c *Cache) Get(key string) (string, bool) {
	val, err := c.client.Get(c.ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (c *Cache) Set(key string, value string) error {
	return c.client.Set(c.ctx, key, value, c.ttl).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
