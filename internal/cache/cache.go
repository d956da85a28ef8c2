// Package cache provides a best-effort redis cache for query embeddings.
// Every operation degrades to a miss on error; the cache never blocks the
// search path.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/telcolog/backend/internal/config"
)

type EmbeddingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to redis and verifies the connection. Returns an error when
// redis is unreachable; callers treat a nil cache as disabled.
func New(cfg *config.RedisConfig) (*EmbeddingCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &EmbeddingCache{rdb: rdb, ttl: cfg.TTL}, nil
}

func key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "telcolog:embedding:" + hex.EncodeToString(sum[:])
}

// Get returns the cached vector for text, or nil on miss or any error.
func (c *EmbeddingCache) Get(ctx context.Context, text string) []float32 {
	if c == nil {
		return nil
	}
	raw, err := c.rdb.Get(ctx, key(text)).Bytes()
	if err != nil {
		return nil
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil
	}
	return vec
}

// Put stores a vector for text. Errors are ignored.
func (c *EmbeddingCache) Put(ctx context.Context, text string, vec []float32) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, key(text), raw, c.ttl)
}

func (c *EmbeddingCache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}
