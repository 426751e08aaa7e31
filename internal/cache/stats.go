// Package cache holds short-lived copies of dashboard aggregates.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/metrics"
	"github.com/videotube/backend/internal/models"
)

// SchemaVersion is embedded in every entry; bump it when ChannelStats changes shape so
// old entries are ignored.
const SchemaVersion = "1"

type statsEntry struct {
	Version string              `json:"version"`
	Stats   models.ChannelStats `json:"stats"`
}

// MemoryStatsCache is an in-process LRU with per-entry expiry.
type MemoryStatsCache struct {
	lru *expirable.LRU[string, statsEntry]
}

// NewMemoryStatsCache creates a cache holding up to size owners for ttl each.
func NewMemoryStatsCache(size int, ttl time.Duration) *MemoryStatsCache {
	if size <= 0 {
		size = 1024
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &MemoryStatsCache{lru: expirable.NewLRU[string, statsEntry](size, nil, ttl)}
}

// Get returns the cached stats for ownerID.
func (c *MemoryStatsCache) Get(_ context.Context, ownerID string) (models.ChannelStats, bool) {
	entry, ok := c.lru.Get(ownerID)
	if !ok || entry.Version != SchemaVersion {
		metrics.StatsCacheLookups.WithLabelValues("miss").Inc()
		return models.ChannelStats{}, false
	}
	metrics.StatsCacheLookups.WithLabelValues("hit").Inc()
	return entry.Stats, true
}

// Set stores stats for ownerID.
func (c *MemoryStatsCache) Set(_ context.Context, ownerID string, stats models.ChannelStats) {
	c.lru.Add(ownerID, statsEntry{Version: SchemaVersion, Stats: stats})
}

// Invalidate drops the entry for ownerID.
func (c *MemoryStatsCache) Invalidate(_ context.Context, ownerID string) {
	c.lru.Remove(ownerID)
}

// RedisStatsCache shares cached stats between instances through Redis. Redis errors are
// logged and treated as misses so the dashboard falls back to the store.
type RedisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStatsCache wraps an existing client.
func NewRedisStatsCache(client *redis.Client, ttl time.Duration) *RedisStatsCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisStatsCache{client: client, ttl: ttl, prefix: "videotube:stats:"}
}

// Get returns the cached stats for ownerID.
func (c *RedisStatsCache) Get(ctx context.Context, ownerID string) (models.ChannelStats, bool) {
	raw, err := c.client.Get(ctx, c.prefix+ownerID).Bytes()
	if err != nil {
		if err != redis.Nil {
			logging.FromContext(ctx).Warn("stats cache read failed", "ownerId", ownerID, "error", err)
		}
		metrics.StatsCacheLookups.WithLabelValues("miss").Inc()
		return models.ChannelStats{}, false
	}

	var entry statsEntry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Version != SchemaVersion {
		metrics.StatsCacheLookups.WithLabelValues("miss").Inc()
		return models.ChannelStats{}, false
	}
	metrics.StatsCacheLookups.WithLabelValues("hit").Inc()
	return entry.Stats, true
}

// Set stores stats for ownerID with the configured TTL.
func (c *RedisStatsCache) Set(ctx context.Context, ownerID string, stats models.ChannelStats) {
	raw, err := json.Marshal(statsEntry{Version: SchemaVersion, Stats: stats})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.prefix+ownerID, raw, c.ttl).Err(); err != nil {
		logging.FromContext(ctx).Warn("stats cache write failed", "ownerId", ownerID, "error", err)
	}
}

// Invalidate drops the entry for ownerID.
func (c *RedisStatsCache) Invalidate(ctx context.Context, ownerID string) {
	if err := c.client.Del(ctx, c.prefix+ownerID).Err(); err != nil {
		logging.FromContext(ctx).Warn("stats cache invalidate failed", "ownerId", ownerID, "error", err)
	}
}

// NewRedisClient connects to addr and verifies it responds to PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
