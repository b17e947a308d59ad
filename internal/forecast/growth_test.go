// backend-go/internal/forecast/growth_test.go
package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
)

func growthHistory(demands []float64) []domain.MonthlyDemandRecord {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	return monthlyRecords(start, demands)
}

func TestGrowthManualOverrideShortCircuits(t *testing.T) {
	rate := 0.3
	e := NewGrowthEstimator()
	result := e.Estimate(GrowthInput{
		ManualRate:   &rate,
		History:      growthHistory([]float64{1, 2, 3, 4, 5, 6}),
		GrowthStatus: domain.GrowthStatusDeclining,
	})
	if result.Source != domain.GrowthSourceManual {
		t.Errorf("source = %q, want manual", result.Source)
	}
	// Manual rates bypass governance entirely.
	if result.AnnualRate != 0.3 {
		t.Errorf("rate = %v, want 0.3", result.AnnualRate)
	}
}

func TestGrowthRateClampedToHalf(t *testing.T) {
	e := NewGrowthEstimator()

	steep := e.Estimate(GrowthInput{
		History:        growthHistory([]float64{10, 30, 60, 100, 150, 210, 280, 360, 450, 550, 660, 780}),
		VolatilityTier: domain.VolatilityTierX,
	})
	if steep.AnnualRate > 0.5 {
		t.Errorf("steep growth rate = %v, want clamped at 0.5", steep.AnnualRate)
	}

	falling := e.Estimate(GrowthInput{
		History:        growthHistory([]float64{780, 660, 550, 450, 360, 280, 210, 150, 100, 60, 30, 10}),
		VolatilityTier: domain.VolatilityTierX,
	})
	if falling.AnnualRate < -0.5 {
		t.Errorf("falling growth rate = %v, want clamped at -0.5", falling.AnnualRate)
	}
}

func TestGrowthViralFloor(t *testing.T) {
	e := NewGrowthEstimator()
	result := e.Estimate(GrowthInput{
		History:        growthHistory([]float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 100}),
		VolatilityTier: domain.VolatilityTierX,
		GrowthStatus:   domain.GrowthStatusViral,
	})
	if result.AnnualRate < 0.20 {
		t.Errorf("viral rate = %v, want at least 0.20", result.AnnualRate)
	}
	if result.Source != domain.GrowthSourceGrowthStatus {
		t.Errorf("source = %q, want growth-status", result.Source)
	}
}

func TestGrowthDecliningCap(t *testing.T) {
	e := NewGrowthEstimator()
	result := e.Estimate(GrowthInput{
		History:        growthHistory([]float64{100, 105, 110, 115, 120, 125, 130, 135, 140, 145, 150, 155}),
		VolatilityTier: domain.VolatilityTierX,
		GrowthStatus:   domain.GrowthStatusDeclining,
	})
	if result.AnnualRate > -0.10 {
		t.Errorf("declining rate = %v, want capped at -0.10", result.AnnualRate)
	}
	if result.Source != domain.GrowthSourceGrowthStatus {
		t.Errorf("source = %q, want growth-status", result.Source)
	}
}

func TestGrowthThinHistoryFallsBackToCategory(t *testing.T) {
	e := NewGrowthEstimator()
	result := e.Estimate(GrowthInput{
		History:         growthHistory([]float64{5, 0, 3}),
		CategoryHistory: []float64{100, 110, 120, 130, 140, 150},
		VolatilityTier:  domain.VolatilityTierX,
	})
	if result.Source != domain.GrowthSourceCategoryTrend {
		t.Errorf("source = %q, want category-trend", result.Source)
	}
	if result.AnnualRate <= 0 {
		t.Errorf("category trend rate = %v, want positive", result.AnnualRate)
	}
}

func TestGrowthNoHistoryNoCategoryDefaultsToZero(t *testing.T) {
	e := NewGrowthEstimator()
	result := e.Estimate(GrowthInput{History: growthHistory([]float64{2, 0, 0, 1})})
	if result.AnnualRate != 0 {
		t.Errorf("rate = %v, want 0", result.AnnualRate)
	}
	if result.Source != domain.GrowthSourceDefault {
		t.Errorf("source = %q, want default", result.Source)
	}
}

func TestGrowthDeseasonalizesVolatileSeries(t *testing.T) {
	// A flat level modulated by a strong sine curve: deseasonalizing with
	// the matching factors recovers a near-zero underlying trend.
	pattern := FlatSeasonalPattern()
	demands := make([]float64, 12)
	for i := range demands {
		factor := 1 + 0.5*math.Sin(float64(i)*math.Pi/6)
		pattern.Factors[i] = factor
		demands[i] = 100 * factor
	}

	e := NewGrowthEstimator()
	result := e.Estimate(GrowthInput{
		History:        growthHistory(demands),
		Variability:    0.4,
		Seasonal:       pattern,
		VolatilityTier: domain.VolatilityTierX,
	})
	if result.Source != domain.GrowthSourceTrendSeasonal {
		t.Errorf("source = %q, want trend-seasonal", result.Source)
	}
	if math.Abs(result.AnnualRate) > 0.05 {
		t.Errorf("deseasonalized rate = %v, want near zero", result.AnnualRate)
	}
}

func TestRegressionWeightsByTier(t *testing.T) {
	stable := regressionWeights(4, domain.VolatilityTierX)
	if stable[0] != 1 || math.Abs(stable[3]-2) > 1e-9 {
		t.Errorf("stable weights = %v, want linear 1..2", stable)
	}

	moderate := regressionWeights(3, domain.VolatilityTierY)
	if math.Abs(moderate[0]-0.75*0.75) > 1e-9 || moderate[2] != 1 {
		t.Errorf("moderate weights = %v, want 0.75 decay", moderate)
	}

	volatile := regressionWeights(3, domain.VolatilityTierZ)
	if math.Abs(volatile[0]-0.25) > 1e-9 || volatile[2] != 1 {
		t.Errorf("volatile weights = %v, want 0.5 decay", volatile)
	}
}
