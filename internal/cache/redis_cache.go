package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"almacen/backend/internal/domain"
)

type RedisCatalogCache struct {
	client *redis.Client
}

func NewRedisCatalogCache(addr string, password string, db int) *RedisCatalogCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCatalogCache{client: client}
}

func (c *RedisCatalogCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCatalogCache) Close() error {
	return c.client.Close()
}

func (c *RedisCatalogCache) Get(ctx context.Context, key string) ([]domain.Product, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var products []domain.Product
	if err := json.Unmarshal([]byte(val), &products); err != nil {
		return nil, false, err
	}
	return products, true, nil
}

func (c *RedisCatalogCache) Set(ctx context.Context, key string, products []domain.Product, ttl time.Duration) error {
	if products == nil {
		return nil
	}
	payload, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *RedisCatalogCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
