// backend-go/internal/replenish/generator_test.go
package replenish

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
)

type fakeGenStore struct {
	positions []ItemPosition
	orders    map[PairKey][]domain.PendingOrder
	leadTimes map[PairKey]domain.SupplierLeadTime
	stockouts map[PairKey]domain.StockoutSummary
	stats     map[PairKey]DemandStats
	seasonals map[PairKey][]domain.SeasonalFactor
	locked    map[PairKey]bool

	upserted [][]domain.OrderRecommendation
}

func (s *fakeGenStore) ItemPositions(ctx context.Context) ([]ItemPosition, error) {
	return s.positions, nil
}

func (s *fakeGenStore) OpenOrders(ctx context.Context) (map[PairKey][]domain.PendingOrder, error) {
	return s.orders, nil
}

func (s *fakeGenStore) LeadTimes(ctx context.Context) (map[PairKey]domain.SupplierLeadTime, error) {
	return s.leadTimes, nil
}

func (s *fakeGenStore) StockoutSummaries(ctx context.Context) (map[PairKey]domain.StockoutSummary, error) {
	return s.stockouts, nil
}

func (s *fakeGenStore) DemandStats(ctx context.Context) (map[PairKey]DemandStats, error) {
	return s.stats, nil
}

func (s *fakeGenStore) SeasonalFactorSets(ctx context.Context) (map[PairKey][]domain.SeasonalFactor, error) {
	return s.seasonals, nil
}

func (s *fakeGenStore) LockedPairs(ctx context.Context, month time.Time) (map[PairKey]bool, error) {
	return s.locked, nil
}

func (s *fakeGenStore) UpsertRecommendations(ctx context.Context, recs []domain.OrderRecommendation) error {
	s.upserted = append(s.upserted, recs)
	return nil
}

func (s *fakeGenStore) ItemPositionFor(ctx context.Context, itemID, locationID string) (ItemPosition, error) {
	for _, p := range s.positions {
		if p.Item.ID == itemID && p.LocationID == locationID {
			return p, nil
		}
	}
	return ItemPosition{}, fmt.Errorf("pair %s/%s not found", itemID, locationID)
}

func (s *fakeGenStore) OpenOrdersFor(ctx context.Context, itemID, locationID string) ([]domain.PendingOrder, error) {
	return s.orders[PairKey{ItemID: itemID, LocationID: locationID}], nil
}

func (s *fakeGenStore) LeadTimeFor(ctx context.Context, itemID, locationID string) (domain.SupplierLeadTime, error) {
	return s.leadTimes[PairKey{ItemID: itemID, LocationID: locationID}], nil
}

func (s *fakeGenStore) StockoutSummaryFor(ctx context.Context, itemID, locationID string) (domain.StockoutSummary, error) {
	return s.stockouts[PairKey{ItemID: itemID, LocationID: locationID}], nil
}

func (s *fakeGenStore) DemandStatsFor(ctx context.Context, itemID, locationID string) (DemandStats, error) {
	return s.stats[PairKey{ItemID: itemID, LocationID: locationID}], nil
}

func (s *fakeGenStore) SeasonalFactorsFor(ctx context.Context, itemID, locationID string) ([]domain.SeasonalFactor, error) {
	return s.seasonals[PairKey{ItemID: itemID, LocationID: locationID}], nil
}

func testStore() *fakeGenStore {
	mkItem := func(id, rev, vol string) domain.Item {
		return domain.Item{
			ID:             id,
			Category:       "widgets",
			RevenueTier:    rev,
			VolatilityTier: vol,
			Lifecycle:      domain.LifecycleActive,
		}
	}

	keyA := PairKey{ItemID: "item-a", LocationID: "loc-1"}
	keyB := PairKey{ItemID: "item-b", LocationID: "loc-1"}
	keyC := PairKey{ItemID: "item-c", LocationID: "loc-1"}

	arrival := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	return &fakeGenStore{
		positions: []ItemPosition{
			{Item: mkItem("item-a", domain.RevenueTierA, domain.VolatilityTierX), LocationID: "loc-1", OnHand: 50},
			{Item: mkItem("item-b", domain.RevenueTierB, domain.VolatilityTierY), LocationID: "loc-1", OnHand: 900},
			{Item: mkItem("item-c", domain.RevenueTierC, domain.VolatilityTierZ), LocationID: "loc-1", OnHand: 2000},
		},
		orders: map[PairKey][]domain.PendingOrder{
			keyA: {{
				ItemID: "item-a", LocationID: "loc-1", Quantity: 100,
				OrderDate:       time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
				ExpectedArrival: &arrival,
				DateConfirmed:   true,
				Status:          "open",
			}},
		},
		leadTimes: map[PairKey]domain.SupplierLeadTime{
			keyA: {SupplierID: "sup-1", LocationID: "loc-1", P95LeadTimeDays: 20, Reliability: 0.9},
			keyB: {SupplierID: "sup-2", LocationID: "loc-1", P95LeadTimeDays: 14, Reliability: 0.8},
			keyC: {SupplierID: "sup-2", LocationID: "loc-1", P95LeadTimeDays: 7, Reliability: 0.95},
		},
		stockouts: map[PairKey]domain.StockoutSummary{
			keyB: {ItemID: "item-b", LocationID: "loc-1", Frequency: 80, Confidence: 0.8},
		},
		stats: map[PairKey]DemandStats{
			keyA: {DailyDemand: 12, Variability: 0.25},
			keyB: {DailyDemand: 10, Variability: 0.4},
			keyC: {DailyDemand: 3, Variability: 0.9},
		},
		seasonals: map[PairKey][]domain.SeasonalFactor{},
		locked:    map[PairKey]bool{},
	}
}

func fixedNow() time.Time {
	return time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
}

func TestGenerateMonthAndPairAgree(t *testing.T) {
	store := testStore()
	g := NewGenerator(store)
	g.now = fixedNow

	month := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	summary, err := g.GenerateMonth(context.Background(), month)
	if err != nil {
		t.Fatalf("GenerateMonth: %v", err)
	}
	if summary.Total() != 3 {
		t.Fatalf("summary total = %d, want 3", summary.Total())
	}
	if len(store.upserted) != 1 {
		t.Fatalf("upsert batches = %d, want 1", len(store.upserted))
	}

	batch := store.upserted[0]
	for _, rec := range batch {
		single, err := g.GeneratePair(context.Background(), rec.ItemID, rec.LocationID, month)
		if err != nil {
			t.Fatalf("GeneratePair(%s): %v", rec.ItemID, err)
		}
		if single.Urgency != rec.Urgency {
			t.Errorf("%s urgency: pair %q vs batch %q", rec.ItemID, single.Urgency, rec.Urgency)
		}
		if single.SuggestedQuantity != rec.SuggestedQuantity {
			t.Errorf("%s quantity: pair %v vs batch %v", rec.ItemID, single.SuggestedQuantity, rec.SuggestedQuantity)
		}
		if single.SafetyStock != rec.SafetyStock {
			t.Errorf("%s safety: pair %v vs batch %v", rec.ItemID, single.SafetyStock, rec.SafetyStock)
		}
		if single.EffectivePending != rec.EffectivePending {
			t.Errorf("%s pending: pair %v vs batch %v", rec.ItemID, single.EffectivePending, rec.EffectivePending)
		}
	}
}

func TestGenerateMonthSkipsLockedPairs(t *testing.T) {
	store := testStore()
	store.locked[PairKey{ItemID: "item-a", LocationID: "loc-1"}] = true

	g := NewGenerator(store)
	g.now = fixedNow

	month := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	summary, err := g.GenerateMonth(context.Background(), month)
	if err != nil {
		t.Fatalf("GenerateMonth: %v", err)
	}

	if summary.Locked != 1 {
		t.Errorf("locked count = %d, want 1", summary.Locked)
	}
	if summary.Total() != 2 {
		t.Errorf("summary total = %d, want 2", summary.Total())
	}
	for _, rec := range store.upserted[0] {
		if rec.ItemID == "item-a" {
			t.Error("locked pair must not be written")
		}
	}
}

func TestGenerateMonthIdempotent(t *testing.T) {
	store := testStore()
	g := NewGenerator(store)
	g.now = fixedNow

	month := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	first, err := g.GenerateMonth(context.Background(), month)
	if err != nil {
		t.Fatalf("first GenerateMonth: %v", err)
	}
	second, err := g.GenerateMonth(context.Background(), month)
	if err != nil {
		t.Fatalf("second GenerateMonth: %v", err)
	}

	if first != second {
		t.Errorf("summaries differ: %+v vs %+v", first, second)
	}
	if len(store.upserted) != 2 {
		t.Fatalf("upsert batches = %d, want 2", len(store.upserted))
	}
	for i := range store.upserted[0] {
		a, b := store.upserted[0][i], store.upserted[1][i]
		if a != b {
			t.Errorf("row %d differs between runs: %+v vs %+v", i, a, b)
		}
	}
}

func TestGenerateMonthAssignsUrgencyTiers(t *testing.T) {
	store := testStore()
	g := NewGenerator(store)
	g.now = fixedNow

	month := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	if _, err := g.GenerateMonth(context.Background(), month); err != nil {
		t.Fatalf("GenerateMonth: %v", err)
	}

	byItem := map[string]domain.OrderRecommendation{}
	for _, rec := range store.upserted[0] {
		byItem[rec.ItemID] = rec
	}

	// item-a: 50 on hand plus a 100-unit imminent order against 12/day is
	// deep inside the must-order band.
	if got := byItem["item-a"].Urgency; got != domain.UrgencyMustOrder {
		t.Errorf("item-a urgency = %q, want must-order", got)
	}
	// item-c: 2000 on hand at 3/day covers ~667 days.
	if got := byItem["item-c"].Urgency; got != domain.UrgencySkip {
		t.Errorf("item-c urgency = %q, want skip", got)
	}
	if byItem["item-c"].SuggestedQuantity != 0 {
		t.Errorf("item-c quantity = %v, want 0", byItem["item-c"].SuggestedQuantity)
	}
}
