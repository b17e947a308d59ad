// backend-go/internal/cache/recommendation_cache.go
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

	"github.com/andresuchdata/demandcast/backend-go/internal/config"
	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	recommendationListKeyPrefix    = "recommendation:list"
	recommendationSummaryKeyPrefix = "recommendation:summary"
	recommendationScanBatchSize    = 100
)

// RecommendationCache fronts the recommendation read paths. Every write path
// (regeneration, planner review) must call InvalidateAll.
type RecommendationCache interface {
	GetList(ctx context.Context, filter domain.RecommendationFilter) ([]domain.OrderRecommendation, bool, error)
	SetList(ctx context.Context, filter domain.RecommendationFilter, recs []domain.OrderRecommendation) error
	GetSummary(ctx context.Context, month time.Time) (*domain.RecommendationSummary, bool, error)
	SetSummary(ctx context.Context, month time.Time, summary domain.RecommendationSummary) error
	InvalidateAll(ctx context.Context) error
}

type redisRecommendationCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopRecommendationCache struct{}

func NewRecommendationCache(cfg config.CacheConfig) (RecommendationCache, error) {
	if !cfg.Enabled {
		return &noopRecommendationCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisRecommendationCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopRecommendationCache() RecommendationCache {
	return &noopRecommendationCache{}
}

func (c *redisRecommendationCache) GetList(ctx context.Context, filter domain.RecommendationFilter) ([]domain.OrderRecommendation, bool, error) {
	key := buildRecommendationListKey(filter)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var recs []domain.OrderRecommendation
	if err := json.Unmarshal(payload, &recs); err != nil {
		return nil, false, fmt.Errorf("decode recommendation list cache: %w", err)
	}

	return recs, true, nil
}

func (c *redisRecommendationCache) SetList(ctx context.Context, filter domain.RecommendationFilter, recs []domain.OrderRecommendation) error {
	key := buildRecommendationListKey(filter)
	payload, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode recommendation list cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisRecommendationCache) GetSummary(ctx context.Context, month time.Time) (*domain.RecommendationSummary, bool, error) {
	key := buildRecommendationSummaryKey(month)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var summary domain.RecommendationSummary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, false, fmt.Errorf("decode recommendation summary cache: %w", err)
	}

	return &summary, true, nil
}

func (c *redisRecommendationCache) SetSummary(ctx context.Context, month time.Time, summary domain.RecommendationSummary) error {
	key := buildRecommendationSummaryKey(month)
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode recommendation summary cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisRecommendationCache) InvalidateAll(ctx context.Context) error {
	if err := deleteKeysWithPrefix(ctx, c.client, recommendationListKeyPrefix, recommendationScanBatchSize); err != nil {
		return err
	}
	return deleteKeysWithPrefix(ctx, c.client, recommendationSummaryKeyPrefix, recommendationScanBatchSize)
}

func (n *noopRecommendationCache) GetList(ctx context.Context, filter domain.RecommendationFilter) ([]domain.OrderRecommendation, bool, error) {
	return nil, false, nil
}

func (n *noopRecommendationCache) SetList(ctx context.Context, filter domain.RecommendationFilter, recs []domain.OrderRecommendation) error {
	return nil
}

func (n *noopRecommendationCache) GetSummary(ctx context.Context, month time.Time) (*domain.RecommendationSummary, bool, error) {
	return nil, false, nil
}

func (n *noopRecommendationCache) SetSummary(ctx context.Context, month time.Time, summary domain.RecommendationSummary) error {
	return nil
}

func (n *noopRecommendationCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildRecommendationListKey(filter domain.RecommendationFilter) string {
	return fmt.Sprintf("%s:%s", recommendationListKeyPrefix, recommendationFilterHash(filter))
}

func buildRecommendationSummaryKey(month time.Time) string {
	return fmt.Sprintf("%s:%s", recommendationSummaryKeyPrefix, month.Format("2006-01"))
}

func recommendationFilterHash(filter domain.RecommendationFilter) string {
	parts := []string{
		"month=" + filter.Month.Format("2006-01"),
	}

	if filter.LocationID != "" {
		parts = append(parts, "location="+strings.ToLower(strings.TrimSpace(filter.LocationID)))
	}
	if filter.Urgency != "" {
		parts = append(parts, "urgency="+strings.ToLower(strings.TrimSpace(filter.Urgency)))
	}
	if filter.Page > 0 {
		parts = append(parts, fmt.Sprintf("page=%d", filter.Page))
	}
	if filter.PageSize > 0 {
		parts = append(parts, fmt.Sprintf("page_size=%d", filter.PageSize))
	}

	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
