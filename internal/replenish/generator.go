// backend-go/internal/replenish/generator.go
package replenish

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/andresuchdata/demandcast/backend-go/internal/forecast"
	"github.com/rs/zerolog/log"
)

// PairKey identifies an (item, location) pair.
type PairKey struct {
	ItemID     string
	LocationID string
}

// ItemPosition is an item with its current stock at one location.
type ItemPosition struct {
	Item       domain.Item
	LocationID string
	OnHand     float64
}

// DemandStats is the demand rate context for the order decision: daily demand
// from the latest forecast (falling back to trailing actuals) and the demand
// coefficient of variation.
type DemandStats struct {
	DailyDemand float64
	Variability float64
}

// Store is the data surface for recommendation generation. The batched
// methods feed the bulk path; the *For methods feed the per-pair path.
type Store interface {
	ItemPositions(ctx context.Context) ([]ItemPosition, error)
	OpenOrders(ctx context.Context) (map[PairKey][]domain.PendingOrder, error)
	LeadTimes(ctx context.Context) (map[PairKey]domain.SupplierLeadTime, error)
	StockoutSummaries(ctx context.Context) (map[PairKey]domain.StockoutSummary, error)
	DemandStats(ctx context.Context) (map[PairKey]DemandStats, error)
	SeasonalFactorSets(ctx context.Context) (map[PairKey][]domain.SeasonalFactor, error)
	LockedPairs(ctx context.Context, month time.Time) (map[PairKey]bool, error)
	UpsertRecommendations(ctx context.Context, recs []domain.OrderRecommendation) error

	ItemPositionFor(ctx context.Context, itemID, locationID string) (ItemPosition, error)
	OpenOrdersFor(ctx context.Context, itemID, locationID string) ([]domain.PendingOrder, error)
	LeadTimeFor(ctx context.Context, itemID, locationID string) (domain.SupplierLeadTime, error)
	StockoutSummaryFor(ctx context.Context, itemID, locationID string) (domain.StockoutSummary, error)
	DemandStatsFor(ctx context.Context, itemID, locationID string) (DemandStats, error)
	SeasonalFactorsFor(ctx context.Context, itemID, locationID string) ([]domain.SeasonalFactor, error)
}

// Generator produces monthly order recommendations. The batched path fetches
// all inputs in a fixed number of bulk reads, computes in memory, and writes
// one bulk upsert; the per-pair path reads and computes for a single pair.
// Both paths share the same compute core and produce identical decisions.
type Generator struct {
	store      Store
	pending    *PendingEvaluator
	safety     *SafetyCalculator
	classifier *UrgencyClassifier
	now        func() time.Time
}

// NewGenerator wires the evaluators over a store.
func NewGenerator(store Store) *Generator {
	return &Generator{
		store:      store,
		pending:    NewPendingEvaluator(),
		safety:     NewSafetyCalculator(),
		classifier: NewUrgencyClassifier(),
		now:        time.Now,
	}
}

// GenerateMonth runs the fully batched path for every item/location pair and
// returns the urgency-tier summary. Locked rows are never overwritten.
func (g *Generator) GenerateMonth(ctx context.Context, month time.Time) (domain.RecommendationSummary, error) {
	summary := domain.RecommendationSummary{Month: month}

	positions, err := g.store.ItemPositions(ctx)
	if err != nil {
		return summary, fmt.Errorf("fetch item positions: %w", err)
	}
	orders, err := g.store.OpenOrders(ctx)
	if err != nil {
		return summary, fmt.Errorf("fetch open orders: %w", err)
	}
	leadTimes, err := g.store.LeadTimes(ctx)
	if err != nil {
		return summary, fmt.Errorf("fetch lead times: %w", err)
	}
	stockouts, err := g.store.StockoutSummaries(ctx)
	if err != nil {
		return summary, fmt.Errorf("fetch stockout summaries: %w", err)
	}
	stats, err := g.store.DemandStats(ctx)
	if err != nil {
		return summary, fmt.Errorf("fetch demand stats: %w", err)
	}
	seasonals, err := g.store.SeasonalFactorSets(ctx)
	if err != nil {
		return summary, fmt.Errorf("fetch seasonal factors: %w", err)
	}
	locked, err := g.store.LockedPairs(ctx, month)
	if err != nil {
		return summary, fmt.Errorf("fetch locked pairs: %w", err)
	}

	asOf := g.now()
	recs := make([]domain.OrderRecommendation, 0, len(positions))
	for _, pos := range positions {
		key := PairKey{ItemID: pos.Item.ID, LocationID: pos.LocationID}
		if locked[key] {
			summary.Locked++
			continue
		}

		rec := g.compute(pos, orders[key], leadTimes[key], stockouts[key], stats[key], seasonals[key], month, asOf)
		recs = append(recs, rec)
		tallyUrgency(&summary, rec.Urgency)
	}

	if len(recs) > 0 {
		if err := g.store.UpsertRecommendations(ctx, recs); err != nil {
			return summary, fmt.Errorf("upsert recommendations: %w", err)
		}
	}

	return summary, nil
}

// GeneratePair runs the per-pair path: same compute core, per-item reads.
func (g *Generator) GeneratePair(ctx context.Context, itemID, locationID string, month time.Time) (domain.OrderRecommendation, error) {
	pos, err := g.store.ItemPositionFor(ctx, itemID, locationID)
	if err != nil {
		return domain.OrderRecommendation{}, fmt.Errorf("fetch item position: %w", err)
	}
	orders, err := g.store.OpenOrdersFor(ctx, itemID, locationID)
	if err != nil {
		return domain.OrderRecommendation{}, fmt.Errorf("fetch open orders: %w", err)
	}
	leadTime, err := g.store.LeadTimeFor(ctx, itemID, locationID)
	if err != nil {
		return domain.OrderRecommendation{}, fmt.Errorf("fetch lead time: %w", err)
	}
	stockout, err := g.store.StockoutSummaryFor(ctx, itemID, locationID)
	if err != nil {
		return domain.OrderRecommendation{}, fmt.Errorf("fetch stockout summary: %w", err)
	}
	stat, err := g.store.DemandStatsFor(ctx, itemID, locationID)
	if err != nil {
		return domain.OrderRecommendation{}, fmt.Errorf("fetch demand stats: %w", err)
	}
	seasonal, err := g.store.SeasonalFactorsFor(ctx, itemID, locationID)
	if err != nil {
		log.Warn().Err(err).Str("item_id", itemID).Msg("replenish: seasonal factors unavailable")
		seasonal = nil
	}

	return g.compute(pos, orders, leadTime, stockout, stat, seasonal, month, g.now()), nil
}

// compute is the shared pure core of both generation paths.
func (g *Generator) compute(
	pos ItemPosition,
	orders []domain.PendingOrder,
	leadTime domain.SupplierLeadTime,
	stockout domain.StockoutSummary,
	stats DemandStats,
	seasonalRows []domain.SeasonalFactor,
	month time.Time,
	asOf time.Time,
) domain.OrderRecommendation {
	assessment := g.pending.Evaluate(orders, leadTime, asOf)

	pattern := forecast.FlatSeasonalPattern()
	if len(seasonalRows) > 0 {
		pattern = forecast.PatternFromFactors(seasonalRows)
	}

	safetyStock := g.safety.Calculate(SafetyInput{
		DailyDemand:    stats.DailyDemand,
		Variability:    stats.Variability,
		LeadTimeDays:   leadTime.P95LeadTimeDays,
		RevenueTier:    pos.Item.RevenueTier,
		VolatilityTier: pos.Item.VolatilityTier,
		Seasonal:       pattern,
		OrderMonth:     month.Month(),
	})

	decision := g.classifier.Classify(UrgencyInput{
		CurrentStock:       pos.OnHand,
		EffectivePending:   assessment.EffectivePending,
		DailyDemand:        stats.DailyDemand,
		LeadTimeDays:       leadTime.P95LeadTimeDays,
		SafetyStock:        safetyStock,
		RevenueTier:        pos.Item.RevenueTier,
		Lifecycle:          pos.Item.Lifecycle,
		StockoutFrequency:  stockout.Frequency,
		StockoutConfidence: stockout.Confidence,
	})

	return domain.OrderRecommendation{
		ItemID:            pos.Item.ID,
		LocationID:        pos.LocationID,
		OrderMonth:        month,
		Urgency:           decision.Urgency,
		SuggestedQuantity: decision.Quantity,
		SafetyStock:       safetyStock,
		CoverageDays:      decision.CoverageDays,
		EffectivePending:  assessment.EffectivePending,
	}
}

func tallyUrgency(summary *domain.RecommendationSummary, urgency string) {
	switch urgency {
	case domain.UrgencyMustOrder:
		summary.MustOrder++
	case domain.UrgencyShouldOrder:
		summary.ShouldOrder++
	case domain.UrgencyOptional:
		summary.Optional++
	default:
		summary.Skip++
	}
}
