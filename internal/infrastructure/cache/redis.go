package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avoronov/metadoc/internal/core/domain"
)

const (
	keyPrefix  = "metadoc:result:"
	defaultTTL = 24 * time.Hour
)

// ResultCache keeps completed document records keyed by fingerprint so
// repeat uploads skip the pipeline entirely. Failures are logged and
// treated as misses.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewResultCache(redisURL string, logger *slog.Logger) (*ResultCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &ResultCache{client: client, ttl: defaultTTL, logger: logger}, nil
}

func (c *ResultCache) Get(ctx context.Context, fingerprint string) (*domain.DocumentRecord, bool) {
	raw, err := c.client.Get(ctx, keyPrefix+fingerprint).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache get failed", "fingerprint", fingerprint, "error", err)
		}
		return nil, false
	}

	var doc domain.DocumentRecord
	if err := json.Unmarshal(raw, &doc); err != nil {
		c.logger.Warn("cache entry corrupt, dropping", "fingerprint", fingerprint, "error", err)
		_ = c.client.Del(ctx, keyPrefix+fingerprint).Err()
		return nil, false
	}
	return &doc, true
}

func (c *ResultCache) Set(ctx context.Context, fingerprint string, doc *domain.DocumentRecord) {
	raw, err := json.Marshal(doc)
	if err != nil {
		c.logger.Warn("cache marshal failed", "fingerprint", fingerprint, "error", err)
		return
	}
	if err := c.client.Set(ctx, keyPrefix+fingerprint, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", "fingerprint", fingerprint, "error", err)
	}
}

func (c *ResultCache) Close() error {
	return c.client.Close()
}
