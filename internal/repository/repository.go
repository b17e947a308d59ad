// backend-go/internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/andresuchdata/demandcast/backend-go/internal/forecast"
	"github.com/andresuchdata/demandcast/backend-go/internal/replenish"
	"github.com/andresuchdata/demandcast/backend-go/internal/scheduler"
)

// ForecastRepository is the run/detail surface used by the forecast service.
// It extends the scheduler's store with the read paths the API serves.
type ForecastRepository interface {
	scheduler.RunStore

	ListRuns(ctx context.Context, limit int) ([]domain.ForecastRun, error)
	GetDetails(ctx context.Context, runID int64, itemIDs []string) ([]domain.ForecastDetail, error)
	LatestCompletedRunID(ctx context.Context) (int64, error)
}

// RecommendationRepository is the recommendation surface used by the
// recommendation service. It extends the generator's store with listing,
// summary, and planner-review writes.
type RecommendationRepository interface {
	replenish.Store

	List(ctx context.Context, filter domain.RecommendationFilter) ([]domain.OrderRecommendation, error)
	Summary(ctx context.Context, month time.Time) (domain.RecommendationSummary, error)
	UpdateReview(ctx context.Context, id int64, confirmedQuantity *float64, locked bool) (*domain.OrderRecommendation, error)
}

// DemandRepository is the demand-history surface used by the forecaster and
// the scheduler's catalog reads.
type DemandRepository interface {
	forecast.Store
	scheduler.CatalogStore
}
