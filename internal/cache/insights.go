package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/config"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
)

const reportKeyPrefix = "insights:report"

// InsightCache stores computed reports keyed by snapshot and request
// parameters. The engine never reads it; callers decide when to use it.
type InsightCache interface {
	GetReport(ctx context.Context, key string) (*domain.Report, bool, error)
	SetReport(ctx context.Context, key string, report *domain.Report) error
	InvalidateSnapshot(ctx context.Context, snapshot string) error
	InvalidateAll(ctx context.Context) error
}

type redisInsightCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopInsightCache struct{}

func NewInsightCache(cfg config.CacheConfig) (InsightCache, error) {
	if !cfg.Enabled {
		return &noopInsightCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisInsightCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopInsightCache() InsightCache {
	return &noopInsightCache{}
}

func (c *redisInsightCache) GetReport(ctx context.Context, key string) (*domain.Report, bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var report domain.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, false, fmt.Errorf("decode insight report cache: %w", err)
	}

	return &report, true, nil
}

func (c *redisInsightCache) SetReport(ctx context.Context, key string, report *domain.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode insight report cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisInsightCache) InvalidateSnapshot(ctx context.Context, snapshot string) error {
	return deleteKeysWithPrefix(ctx, c.client, snapshotPrefix(snapshot))
}

func (c *redisInsightCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, reportKeyPrefix)
}

func (n *noopInsightCache) GetReport(ctx context.Context, key string) (*domain.Report, bool, error) {
	return nil, false, nil
}

func (n *noopInsightCache) SetReport(ctx context.Context, key string, report *domain.Report) error {
	return nil
}

func (n *noopInsightCache) InvalidateSnapshot(ctx context.Context, snapshot string) error {
	return nil
}

func (n *noopInsightCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func snapshotPrefix(snapshot string) string {
	if snapshot == "" {
		snapshot = "latest"
	}
	return fmt.Sprintf("%s:%s:", reportKeyPrefix, snapshot)
}

// ReportKey builds the cache key for a snapshot and a set of request
// parameters. Parameter order does not matter; empty values are dropped.
func ReportKey(snapshot string, params map[string]string) string {
	var parts []string
	for k, v := range params {
		if v == "" {
			continue
		}
		parts = append(parts, strings.ToLower(k)+"="+v)
	}
	if len(parts) == 0 {
		return snapshotPrefix(snapshot) + "default"
	}

	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	hash := sha1.Sum([]byte(raw))
	return snapshotPrefix(snapshot) + hex.EncodeToString(hash[:])
}
