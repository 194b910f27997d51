package ubigeo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

const defaultCacheKey = "ubigeo:rows"

// RedisCache は複数インスタンスで一覧を共有する
type RedisCache struct {
	client *redis.Client
	key    string
}

func NewRedisCache(client *redis.Client, key string) *RedisCache {
	if key == "" {
		key = defaultCacheKey
	}
	return &RedisCache{client: client, key: key}
}

func (c *RedisCache) Get(ctx context.Context) ([]model.Ubigeo, bool, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ubigeo cache: get: %w", err)
	}

	var rows []model.Ubigeo
	if err := json.Unmarshal(raw, &rows); err != nil {
		// 壊れた値は無かったことにする
		return nil, false, fmt.Errorf("ubigeo cache: decode: %w", err)
	}
	return rows, true, nil
}

func (c *RedisCache) Set(ctx context.Context, rows []model.Ubigeo, ttl time.Duration) error {
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("ubigeo cache: encode: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("ubigeo cache: set: %w", err)
	}
	return nil
}

// MemoryCache は Redis がないとき用（プロセス内のみ）
type MemoryCache struct {
	mu        sync.RWMutex
	rows      []model.Ubigeo
	expiresAt time.Time
	now       func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{now: time.Now}
}

func (c *MemoryCache) Get(ctx context.Context) ([]model.Ubigeo, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.rows == nil || !c.now().Before(c.expiresAt) {
		return nil, false, nil
	}
	return c.rows, true, nil
}

func (c *MemoryCache) Set(ctx context.Context, rows []model.Ubigeo, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rows = rows
	c.expiresAt = c.now().Add(ttl)
	return nil
}
