// backend-go/internal/forecast/sparse_test.go
package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
)

func sparseHistory(demands []float64, stockoutDays []int) []domain.MonthlyDemandRecord {
	start := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	records := make([]domain.MonthlyDemandRecord, len(demands))
	for i := range demands {
		days := 0
		if stockoutDays != nil {
			days = stockoutDays[i]
		}
		records[i] = domain.MonthlyDemandRecord{
			ItemID:          "item-1",
			LocationID:      "loc-1",
			Month:           start.AddDate(0, i, 0),
			RawUnits:        demands[i],
			CorrectedDemand: demands[i],
			StockoutDays:    days,
		}
	}
	return records
}

func TestSparseTriggerBoundary(t *testing.T) {
	if !Sparse(11) {
		t.Error("11 records must route to the sparse estimator")
	}
	if Sparse(12) {
		t.Error("12 records must not route to the sparse estimator")
	}
}

func TestSparseFixedFallback(t *testing.T) {
	e := NewSparseEstimator()
	result := e.Estimate(SparseInput{History: sparseHistory([]float64{0, 0}, nil)})
	if result.Method != MethodSparseDefault {
		t.Errorf("method = %q, want sparse-default", result.Method)
	}
	if result.BaseDemand <= 0 {
		t.Errorf("base demand = %v, want positive fallback", result.BaseDemand)
	}
}

func TestSparseCategoryFallback(t *testing.T) {
	e := NewSparseEstimator()
	result := e.Estimate(SparseInput{
		History:     sparseHistory([]float64{0, 0, 0, 0}, nil),
		CategoryAvg: 40,
	})
	if result.Method != MethodSparseCategory {
		t.Errorf("method = %q, want sparse-category", result.Method)
	}
}

func TestSparseOwnOnly(t *testing.T) {
	own := 25.0
	e := NewSparseEstimator()
	result := e.Estimate(SparseInput{
		History:        sparseHistory([]float64{20, 25, 26, 24, 27, 25}, nil),
		ShortWindowAvg: &own,
	})
	if result.Method != MethodSparseOwn {
		t.Errorf("method = %q, want sparse-own", result.Method)
	}
}

func TestSparseBlendWeightGrowsWithHistory(t *testing.T) {
	own := 10.0
	similar := []SimilarItemStats{{ItemID: "sim-1", MediumWindowAvg: 100}}

	e := NewSparseEstimator()
	young := e.Estimate(SparseInput{
		History:        sparseHistory([]float64{0, 0, 0}, nil),
		ShortWindowAvg: &own,
		SimilarItems:   similar,
	})
	older := e.Estimate(SparseInput{
		History:        sparseHistory([]float64{0, 0, 0, 0, 0, 0, 0, 0, 0}, nil),
		ShortWindowAvg: &own,
		SimilarItems:   similar,
	})
	if young.Method != MethodSparseBlend || older.Method != MethodSparseBlend {
		t.Fatalf("methods = %q, %q, want sparse-blend", young.Method, older.Method)
	}

	// More own history pulls the blend toward the (lower) own average, so
	// the raw blend shrinks. Compare before safety multipliers by dividing
	// them back out.
	youngRaw := young.BaseDemand / young.SafetyMultiplier
	olderRaw := older.BaseDemand / older.SafetyMultiplier
	if olderRaw >= youngRaw {
		t.Errorf("blend with more history = %v, want below %v", olderRaw, youngRaw)
	}
}

func TestSparseLaunchSpikeUsesPatternBaseline(t *testing.T) {
	// One clean month far above the rest flags a launch spike.
	demands := []float64{10, 12, 11, 60}
	e := NewSparseEstimator()
	result := e.Estimate(SparseInput{History: sparseHistory(demands, nil)})
	if result.Method != MethodSparsePattern {
		t.Fatalf("method = %q, want sparse-pattern", result.Method)
	}
	if !result.LaunchPattern || !result.PatternBaseline {
		t.Error("launch spike must flag LaunchPattern and PatternBaseline")
	}
}

func TestSparseEarlyStockoutUplift(t *testing.T) {
	// Hard stockouts in the first months flag suppressed demand.
	demands := []float64{0, 0, 20, 22, 21}
	stockouts := []int{25, 23, 0, 0, 0}

	e := NewSparseEstimator()
	result := e.Estimate(SparseInput{History: sparseHistory(demands, stockouts)})
	if result.Method != MethodSparsePattern {
		t.Fatalf("method = %q, want sparse-pattern", result.Method)
	}
	if !result.LaunchPattern {
		t.Error("early stockouts must flag LaunchPattern")
	}
}

func TestSparsePendingMultiplierRange(t *testing.T) {
	own := 30.0
	base := SparseInput{
		History:        sparseHistory([]float64{25, 26, 27, 28, 27, 26}, nil),
		ShortWindowAvg: &own,
	}
	e := NewSparseEstimator()

	none := base
	none.PendingUnits = 0
	heavy := base
	heavy.PendingUnits = 150

	noneResult := e.Estimate(none)
	heavyResult := e.Estimate(heavy)
	if noneResult.SafetyMultiplier != 1.3 {
		t.Errorf("no-pending multiplier = %v, want 1.3", noneResult.SafetyMultiplier)
	}
	if heavyResult.SafetyMultiplier != 0.9 {
		t.Errorf("heavy-pending multiplier = %v, want 0.9", heavyResult.SafetyMultiplier)
	}
}

func TestSparsePatternBaselineCapsMultiplier(t *testing.T) {
	demands := []float64{10, 12, 11, 60}
	e := NewSparseEstimator()
	result := e.Estimate(SparseInput{History: sparseHistory(demands, nil)})
	if result.SafetyMultiplier > 1.1 {
		t.Errorf("pattern-baseline multiplier = %v, want capped at 1.1", result.SafetyMultiplier)
	}
}

func TestSparseSimilarStockoutRiskBuffer(t *testing.T) {
	similar := []SimilarItemStats{
		{ItemID: "a", MediumWindowAvg: 50, StockoutRisk: 0.8},
		{ItemID: "b", MediumWindowAvg: 50, StockoutRisk: 0.6},
	}
	e := NewSparseEstimator()
	withRisk := e.Estimate(SparseInput{
		History:      sparseHistory([]float64{0, 0, 0, 0}, nil),
		SimilarItems: similar,
	})

	calm := []SimilarItemStats{
		{ItemID: "a", MediumWindowAvg: 50, StockoutRisk: 0.1},
		{ItemID: "b", MediumWindowAvg: 50, StockoutRisk: 0.2},
	}
	withoutRisk := e.Estimate(SparseInput{
		History:      sparseHistory([]float64{0, 0, 0, 0}, nil),
		SimilarItems: calm,
	})

	ratio := withRisk.BaseDemand / withoutRisk.BaseDemand
	if math.Abs(ratio-1.10) > 1e-9 {
		t.Errorf("risk buffer ratio = %v, want 1.10", ratio)
	}
}

func TestSparseRiskBufferNeedsTwoDistinctItems(t *testing.T) {
	// The same analogue repeated (a query fanning out on multiple risk rows)
	// must not count twice.
	duplicated := []SimilarItemStats{
		{ItemID: "a", MediumWindowAvg: 50, StockoutRisk: 0.8},
		{ItemID: "a", MediumWindowAvg: 50, StockoutRisk: 0.6},
	}
	e := NewSparseEstimator()
	withDup := e.Estimate(SparseInput{
		History:      sparseHistory([]float64{0, 0, 0, 0}, nil),
		SimilarItems: duplicated,
	})

	calm := []SimilarItemStats{
		{ItemID: "a", MediumWindowAvg: 50, StockoutRisk: 0.1},
		{ItemID: "a", MediumWindowAvg: 50, StockoutRisk: 0.2},
	}
	baseline := e.Estimate(SparseInput{
		History:      sparseHistory([]float64{0, 0, 0, 0}, nil),
		SimilarItems: calm,
	})

	if math.Abs(withDup.BaseDemand-baseline.BaseDemand) > 1e-9 {
		t.Errorf("base demand with duplicated analogue = %v, want %v (no buffer)", withDup.BaseDemand, baseline.BaseDemand)
	}
}

func TestSparseConfidenceBounds(t *testing.T) {
	e := NewSparseEstimator()
	for months := 0; months < 12; months++ {
		demands := make([]float64, months)
		result := e.Estimate(SparseInput{History: sparseHistory(demands, nil)})
		if result.Confidence < 0.45 || result.Confidence > 0.55 {
			t.Errorf("confidence with %d months = %v, want within [0.45, 0.55]", months, result.Confidence)
		}
	}
}
