package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/FoldlyDev/foldly-server/internal/app/model"
)

const linkCacheTTL = 30 * time.Second

// LinkCache is a short-TTL Redis cache for public link resolution. Misses
// and Redis failures both fall through to Postgres; mutations invalidate.
type LinkCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewLinkCache returns a cache backed by the given Redis client.
func NewLinkCache(client *redis.Client, logger *zap.Logger) *LinkCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkCache{client: client, logger: logger}
}

func linkCacheKey(slug, topic string) string {
	return "link:" + slug + ":" + topic
}

func linkCacheKeyPattern(slug string) string {
	return "link:" + slug + ":*"
}

// Get returns the cached link or nil on miss.
func (c *LinkCache) Get(ctx context.Context, slug, topic string) *model.Link {
	data, err := c.client.Get(ctx, linkCacheKey(slug, topic)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("link cache read failed", zap.Error(err))
		}
		return nil
	}

	var link model.Link
	if err := json.Unmarshal(data, &link); err != nil {
		c.logger.Warn("link cache entry corrupt", zap.Error(err))
		return nil
	}
	return &link
}

// Set stores the link under its slug/topic key.
func (c *LinkCache) Set(ctx context.Context, link *model.Link) {
	data, err := json.Marshal(link)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, linkCacheKey(link.Slug, link.Topic), data, linkCacheTTL).Err(); err != nil {
		c.logger.Warn("link cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cache entry for a slug/topic pair.
func (c *LinkCache) Invalidate(ctx context.Context, slug, topic string) {
	if err := c.client.Del(ctx, linkCacheKey(slug, topic)).Err(); err != nil {
		c.logger.Warn("link cache invalidation failed", zap.Error(err))
	}
}

// InvalidateSlug drops every cached entry under a slug. A base rename
// retargets the topic links too, so their old-slug keys must go with it.
func (c *LinkCache) InvalidateSlug(ctx context.Context, slug string) {
	iter := c.client.Scan(ctx, 0, linkCacheKeyPattern(slug), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("link cache scan failed", zap.String("slug", slug), zap.Error(err))
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("link cache invalidation failed", zap.Error(err))
	}
}
