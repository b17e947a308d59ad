// backend-go/internal/forecast/forecaster.go
package forecast

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	historyLookbackMonths = 36
	forecastHorizonMonths = 12
	similarItemLimit      = 5
)

// Store is the read surface the forecaster needs. The postgres demand
// repository implements it; tests use an in-memory fake.
type Store interface {
	// DemandHistory returns up to months of records in chronological order.
	DemandHistory(ctx context.Context, itemID, locationID string, months int) ([]domain.MonthlyDemandRecord, error)
	SeasonalFactors(ctx context.Context, itemID, locationID string) ([]domain.SeasonalFactor, error)
	SaveSeasonalFactors(ctx context.Context, factors []domain.SeasonalFactor) error
	// CategoryMonthlyTotals returns the category-wide monthly demand series,
	// oldest first, for the category-trend fallback.
	CategoryMonthlyTotals(ctx context.Context, category, locationID string, months int) ([]float64, error)
	CategoryAverageDemand(ctx context.Context, category, locationID string) (float64, error)
	// ShortWindowAverage returns the precomputed own-history weighted
	// average for sparse items, nil when none exists.
	ShortWindowAverage(ctx context.Context, itemID, locationID string) (*float64, error)
	SimilarItems(ctx context.Context, item domain.Item, locationID string, month time.Month, limit int) ([]SimilarItemStats, error)
	PendingUnits(ctx context.Context, itemID, locationID string) (float64, error)
}

// Forecaster turns historical monthly sales into a 12-month demand forecast
// per item/location.
type Forecaster struct {
	store    Store
	seasonal *SeasonalEstimator
	growth   *GrowthEstimator
	sparse   *SparseEstimator
}

// NewForecaster wires the component estimators over a store.
func NewForecaster(store Store) *Forecaster {
	return &Forecaster{
		store:    store,
		seasonal: NewSeasonalEstimator(),
		growth:   NewGrowthEstimator(),
		sparse:   NewSparseEstimator(),
	}
}

// Forecast builds the 12-point detail for one item/location. anchor is the
// catalog-wide latest sales month; the points cover the 12 consecutive months
// starting one month after it, keeping every item on one shared horizon.
func (f *Forecaster) Forecast(ctx context.Context, item domain.Item, locationID string, anchor time.Time, growthOverride *float64) (*domain.ForecastDetail, error) {
	history, err := f.store.DemandHistory(ctx, item.ID, locationID, historyLookbackMonths)
	if err != nil {
		return nil, fmt.Errorf("fetch demand history: %w", err)
	}
	sort.Slice(history, func(i, j int) bool { return history[i].Month.Before(history[j].Month) })

	pattern := f.seasonalPattern(ctx, item, locationID, history)
	variability := recentVariability(history)

	detail := &domain.ForecastDetail{
		ItemID:     item.ID,
		LocationID: locationID,
	}

	var baseDemand float64
	if Sparse(len(history)) {
		result, err := f.sparseBase(ctx, item, locationID, anchor, history)
		if err != nil {
			return nil, err
		}
		baseDemand = result.BaseDemand
		detail.Method = result.Method
		detail.Confidence = result.Confidence
	} else {
		cfg := MethodFor(item.RevenueTier, item.VolatilityTier)
		baseDemand = movingAverageBase(history, cfg)
		detail.Method = methodLabel(cfg)
		detail.Confidence = cfg.BaseConfidence
	}

	growthHistory := history
	if len(growthHistory) > growthWindowMonths {
		growthHistory = growthHistory[len(growthHistory)-growthWindowMonths:]
	}
	categorySeries, err := f.store.CategoryMonthlyTotals(ctx, item.Category, locationID, growthWindowMonths)
	if err != nil {
		log.Warn().Err(err).Str("item_id", item.ID).Msg("forecast: category totals unavailable")
		categorySeries = nil
	}
	growth := f.growth.Estimate(GrowthInput{
		ManualRate:      growthOverride,
		History:         growthHistory,
		CategoryHistory: categorySeries,
		Variability:     variability,
		Seasonal:        pattern,
		VolatilityTier:  item.VolatilityTier,
		GrowthStatus:    item.GrowthStatus,
	})
	detail.GrowthRate = growth.AnnualRate
	detail.GrowthSource = growth.Source

	detail.Points = buildPoints(anchor, baseDemand, pattern, growth.AnnualRate, item.UnitCost)

	return detail, nil
}

// seasonalPattern loads stored factors, estimating and persisting a fresh
// curve when none exist. Items without enough history get the flat curve.
func (f *Forecaster) seasonalPattern(ctx context.Context, item domain.Item, locationID string, history []domain.MonthlyDemandRecord) SeasonalPattern {
	rows, err := f.store.SeasonalFactors(ctx, item.ID, locationID)
	if err != nil {
		log.Warn().Err(err).Str("item_id", item.ID).Msg("forecast: seasonal factor lookup failed")
	}
	if len(rows) > 0 {
		return PatternFromFactors(rows)
	}

	pattern, err := f.seasonal.Estimate(history)
	if err != nil {
		return FlatSeasonalPattern()
	}

	factors := make([]domain.SeasonalFactor, 12)
	for i := range factors {
		factors[i] = domain.SeasonalFactor{
			ItemID:      item.ID,
			LocationID:  locationID,
			MonthOfYear: i + 1,
			Factor:      pattern.Factors[i],
			Pattern:     pattern.Pattern,
			Confidence:  pattern.Confidence,
			Significant: pattern.Significant,
		}
	}
	if err := f.store.SaveSeasonalFactors(ctx, factors); err != nil {
		log.Warn().Err(err).Str("item_id", item.ID).Msg("forecast: persisting seasonal factors failed")
	}

	return pattern
}

func (f *Forecaster) sparseBase(ctx context.Context, item domain.Item, locationID string, anchor time.Time, history []domain.MonthlyDemandRecord) (SparseResult, error) {
	shortAvg, err := f.store.ShortWindowAverage(ctx, item.ID, locationID)
	if err != nil {
		return SparseResult{}, fmt.Errorf("fetch short window average: %w", err)
	}

	currentMonth := anchor.AddDate(0, 1, 0).Month()
	similar, err := f.store.SimilarItems(ctx, item, locationID, currentMonth, similarItemLimit)
	if err != nil {
		return SparseResult{}, fmt.Errorf("fetch similar items: %w", err)
	}

	categoryAvg, err := f.store.CategoryAverageDemand(ctx, item.Category, locationID)
	if err != nil {
		log.Warn().Err(err).Str("item_id", item.ID).Msg("forecast: category average unavailable")
		categoryAvg = 0
	}

	pending, err := f.store.PendingUnits(ctx, item.ID, locationID)
	if err != nil {
		log.Warn().Err(err).Str("item_id", item.ID).Msg("forecast: pending units unavailable")
		pending = 0
	}

	return f.sparse.Estimate(SparseInput{
		History:        history,
		ShortWindowAvg: shortAvg,
		SimilarItems:   similar,
		CategoryAvg:    categoryAvg,
		PendingUnits:   pending,
		GrowthStatus:   item.GrowthStatus,
	}), nil
}

// movingAverageBase computes the classification-driven base demand: the
// recency-weighted blend of the recent and older halves of the window.
func movingAverageBase(history []domain.MonthlyDemandRecord, cfg MethodConfig) float64 {
	window := cfg.WindowMonths
	if window > len(history) {
		window = len(history)
	}
	if window == 0 {
		return 0
	}

	tail := history[len(history)-window:]
	values := make([]float64, len(tail))
	for i, r := range tail {
		values[i] = r.CorrectedDemand
	}

	if cfg.RecencyWeight == 0 || len(values) < 2 {
		return mean(values)
	}

	split := len(values) - (len(values)+1)/2
	older := values[:split]
	recent := values[split:]
	if len(older) == 0 {
		return mean(recent)
	}

	return cfg.RecencyWeight*mean(recent) + (1-cfg.RecencyWeight)*mean(older)
}

func methodLabel(cfg MethodConfig) string {
	if cfg.RecencyWeight == 0 {
		return fmt.Sprintf("simple-ma-%d", cfg.WindowMonths)
	}

	return fmt.Sprintf("weighted-ma-%d", cfg.WindowMonths)
}

// buildPoints expands base demand into the 12-month horizon with seasonality
// and compound monthly growth, floored at zero and rounded to whole units.
func buildPoints(anchor time.Time, baseDemand float64, pattern SeasonalPattern, annualGrowth, unitCost float64) []domain.ForecastPoint {
	monthlyGrowth := annualGrowth / 12

	points := make([]domain.ForecastPoint, 0, forecastHorizonMonths)
	for offset := 1; offset <= forecastHorizonMonths; offset++ {
		month := anchor.AddDate(0, offset, 0)
		qty := baseDemand * pattern.FactorFor(month.Month()) * math.Pow(1+monthlyGrowth, float64(offset))
		if qty < 0 {
			qty = 0
		}
		qty = math.Round(qty)
		points = append(points, domain.ForecastPoint{
			Month:    month,
			Quantity: qty,
			Revenue:  qty * unitCost,
		})
	}

	return points
}

// recentVariability is the coefficient of variation over the trailing year.
func recentVariability(history []domain.MonthlyDemandRecord) float64 {
	start := 0
	if len(history) > growthWindowMonths {
		start = len(history) - growthWindowMonths
	}
	values := make([]float64, 0, len(history)-start)
	for _, r := range history[start:] {
		values = append(values, r.CorrectedDemand)
	}

	return coefficientOfVariation(values)
}
