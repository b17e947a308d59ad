// backend-go/internal/service/recommendation_service.go
package service

import (
	"context"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/cache"
	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/andresuchdata/demandcast/backend-go/internal/replenish"
	"github.com/andresuchdata/demandcast/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

type RecommendationService struct {
	repo      repository.RecommendationRepository
	generator *replenish.Generator
	cache     cache.RecommendationCache
}

func NewRecommendationService(repo repository.RecommendationRepository, cacheImpl cache.RecommendationCache) *RecommendationService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopRecommendationCache()
	}
	return &RecommendationService{
		repo:      repo,
		generator: replenish.NewGenerator(repo),
		cache:     cacheImpl,
	}
}

// Generate recomputes recommendations for every item/location pair for the
// given order month and drops cached reads so clients see the fresh rows.
func (s *RecommendationService) Generate(ctx context.Context, month time.Time) (domain.RecommendationSummary, error) {
	month = normalizeMonth(month)

	summary, err := s.generator.GenerateMonth(ctx, month)
	if err != nil {
		return summary, err
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("recommendation: cache invalidation failed")
	}

	return summary, nil
}

// GeneratePair recomputes a single pair without persisting, for ad-hoc
// inspection of one item's decision.
func (s *RecommendationService) GeneratePair(ctx context.Context, itemID, locationID string, month time.Time) (domain.OrderRecommendation, error) {
	return s.generator.GeneratePair(ctx, itemID, locationID, normalizeMonth(month))
}

func (s *RecommendationService) List(ctx context.Context, filter domain.RecommendationFilter) ([]domain.OrderRecommendation, error) {
	filter.Month = normalizeMonth(filter.Month)

	if recs, ok, err := s.cache.GetList(ctx, filter); err == nil && ok {
		return recs, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("recommendation: cache get list failed")
	}

	recs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetList(ctx, filter, recs); err != nil {
		log.Warn().Err(err).Msg("recommendation: cache set list failed")
	}

	return recs, nil
}

func (s *RecommendationService) Summary(ctx context.Context, month time.Time) (domain.RecommendationSummary, error) {
	month = normalizeMonth(month)

	if summary, ok, err := s.cache.GetSummary(ctx, month); err == nil && ok {
		return *summary, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("recommendation: cache get summary failed")
	}

	summary, err := s.repo.Summary(ctx, month)
	if err != nil {
		return summary, err
	}

	if err := s.cache.SetSummary(ctx, month, summary); err != nil {
		log.Warn().Err(err).Msg("recommendation: cache set summary failed")
	}

	return summary, nil
}

// Review stores a planner's confirmed quantity and lock flag, then drops
// cached reads.
func (s *RecommendationService) Review(ctx context.Context, id int64, confirmedQuantity *float64, locked bool) (*domain.OrderRecommendation, error) {
	rec, err := s.repo.UpdateReview(ctx, id, confirmedQuantity, locked)
	if err != nil || rec == nil {
		return rec, err
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("recommendation: cache invalidation failed")
	}

	return rec, nil
}

// normalizeMonth snaps any timestamp to the first of its calendar month in
// UTC, the grain recommendations are keyed on. A zero time means the current
// month.
func normalizeMonth(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
