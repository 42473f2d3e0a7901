package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"venue-backend/metrics"
	"venue-backend/models"
)

// SnapshotCache keeps rebuilt documents keyed by revision. A revision is
// never rewritten, so entries need no invalidation.
type SnapshotCache interface {
	Get(ctx context.Context, revision int64) (*models.Document, bool)
	Set(ctx context.Context, revision int64, doc *models.Document)
}

// RedisSnapshotCache stores snapshots as JSON strings with a TTL. Redis
// failures only cost a cache miss.
type RedisSnapshotCache struct {
	Client *redis.Client
	TTL    time.Duration
	Prefix string
	Log    *zap.Logger
}

func NewRedisSnapshotCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisSnapshotCache {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisSnapshotCache{Client: client, TTL: ttl, Prefix: "venue:document:rev:", Log: log}
}

func (c *RedisSnapshotCache) key(revision int64) string {
	return fmt.Sprintf("%s%d", c.Prefix, revision)
}

func (c *RedisSnapshotCache) Get(ctx context.Context, revision int64) (*models.Document, bool) {
	raw, err := c.Client.Get(ctx, c.key(revision)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.Log.Warn("snapshot cache read failed", zap.Int64("revision", revision), zap.Error(err))
		}
		metrics.SnapshotCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	var doc models.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		c.Log.Warn("snapshot cache entry unreadable", zap.Int64("revision", revision), zap.Error(err))
		metrics.SnapshotCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	doc.Normalize()
	metrics.SnapshotCacheLookups.WithLabelValues("hit").Inc()
	return &doc, true
}

func (c *RedisSnapshotCache) Set(ctx context.Context, revision int64, doc *models.Document) {
	raw, err := json.Marshal(doc)
	if err != nil {
		c.Log.Warn("snapshot cache encode failed", zap.Int64("revision", revision), zap.Error(err))
		return
	}
	if err := c.Client.Set(ctx, c.key(revision), raw, c.TTL).Err(); err != nil {
		c.Log.Warn("snapshot cache write failed", zap.Int64("revision", revision), zap.Error(err))
	}
}
