// backend-go/internal/forecast/growth.go
package forecast

import (
	"math"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
)

const (
	growthMinNonZeroPoints  = 6
	growthWindowMonths      = 12
	growthClamp             = 0.5
	growthViralFloor        = 0.20
	growthDecliningCap      = -0.10
	deseasonalizeCVTrigger  = 0.25
	stableOutlierSigma      = 2.0
	stableOutlierMinPoints  = 3
	moderateDecay           = 0.75
	volatileDecay           = 0.5
)

// GrowthInput carries everything the estimator needs for one item.
type GrowthInput struct {
	// ManualRate short-circuits all computation when set.
	ManualRate *float64
	// History is up to 12 months in chronological order.
	History []domain.MonthlyDemandRecord
	// CategoryHistory is the category-wide monthly totals used as fallback
	// when the item's own history is too thin.
	CategoryHistory []float64
	// Variability is the item's demand coefficient of variation.
	Variability float64
	// Seasonal is the item's curve, used to deseasonalize volatile series.
	Seasonal       SeasonalPattern
	VolatilityTier string
	GrowthStatus   string
}

// GrowthResult is the annualized growth rate with its provenance tag.
type GrowthResult struct {
	AnnualRate float64
	Source     string
}

// GrowthEstimator computes an annualized growth rate per item via weighted
// linear regression on (optionally deseasonalized) demand.
type GrowthEstimator struct{}

// NewGrowthEstimator returns a ready estimator.
func NewGrowthEstimator() *GrowthEstimator {
	return &GrowthEstimator{}
}

// Estimate resolves the growth rate through the override, trend,
// category-trend and default tiers, then applies growth-status governance.
func (e *GrowthEstimator) Estimate(in GrowthInput) GrowthResult {
	if in.ManualRate != nil {
		return GrowthResult{AnnualRate: *in.ManualRate, Source: domain.GrowthSourceManual}
	}

	result := e.trendRate(in)

	// Governance overrides: viral floors the rate, declining caps it.
	switch in.GrowthStatus {
	case domain.GrowthStatusViral:
		if result.AnnualRate < growthViralFloor {
			result = GrowthResult{AnnualRate: growthViralFloor, Source: domain.GrowthSourceGrowthStatus}
		}
	case domain.GrowthStatusDeclining:
		if result.AnnualRate > growthDecliningCap {
			result = GrowthResult{AnnualRate: growthDecliningCap, Source: domain.GrowthSourceGrowthStatus}
		}
	}

	return result
}

func (e *GrowthEstimator) trendRate(in GrowthInput) GrowthResult {
	values := make([]float64, 0, len(in.History))
	months := make([]int, 0, len(in.History))
	nonZero := 0
	for i, r := range in.History {
		if i >= growthWindowMonths {
			break
		}
		values = append(values, r.CorrectedDemand)
		months = append(months, int(r.Month.Month()))
		if r.CorrectedDemand > 0 {
			nonZero++
		}
	}

	if nonZero < growthMinNonZeroPoints {
		if rate, ok := e.regress(in.CategoryHistory, in.VolatilityTier); ok {
			return GrowthResult{AnnualRate: rate, Source: domain.GrowthSourceCategoryTrend}
		}
		return GrowthResult{AnnualRate: 0, Source: domain.GrowthSourceDefault}
	}

	source := domain.GrowthSourceTrend
	if in.Variability > deseasonalizeCVTrigger {
		for i := range values {
			factor := in.Seasonal.Factors[months[i]-1]
			if factor > 0 {
				values[i] /= factor
			}
		}
		source = domain.GrowthSourceTrendSeasonal
	}

	rate, ok := e.regress(values, in.VolatilityTier)
	if !ok {
		return GrowthResult{AnnualRate: 0, Source: domain.GrowthSourceDefault}
	}

	return GrowthResult{AnnualRate: rate, Source: source}
}

// regress fits a weighted least-squares line over a chronological series and
// returns the clamped annualized rate.
func (e *GrowthEstimator) regress(series []float64, volatilityTier string) (float64, bool) {
	if len(series) < 2 {
		return 0, false
	}

	xs := make([]float64, len(series))
	ys := make([]float64, len(series))
	copy(ys, series)
	for i := range xs {
		xs[i] = float64(i)
	}

	// Stable-tier series additionally drop far outliers before fitting.
	if volatilityTier == domain.VolatilityTierX {
		xs, ys = dropRegressionOutliers(xs, ys)
	}

	weights := regressionWeights(len(ys), volatilityTier)

	slope, weightedMean, ok := weightedLeastSquares(xs, ys, weights)
	if !ok || weightedMean == 0 {
		return 0, false
	}

	monthly := slope / weightedMean
	annual := monthly * 12
	if annual > growthClamp {
		annual = growthClamp
	}
	if annual < -growthClamp {
		annual = -growthClamp
	}

	return annual, true
}

// regressionWeights builds per-point weights by volatility tier: linear
// 1.0->2.0 for stable series, exponential decay otherwise. Index 0 is the
// oldest point.
func regressionWeights(n int, volatilityTier string) []float64 {
	weights := make([]float64, n)
	switch volatilityTier {
	case domain.VolatilityTierY:
		for i := 0; i < n; i++ {
			age := n - 1 - i
			weights[i] = math.Pow(moderateDecay, float64(age))
		}
	case domain.VolatilityTierZ:
		for i := 0; i < n; i++ {
			age := n - 1 - i
			weights[i] = math.Pow(volatileDecay, float64(age))
		}
	default:
		if n == 1 {
			weights[0] = 1
			break
		}
		for i := 0; i < n; i++ {
			weights[i] = 1 + float64(i)/float64(n-1)
		}
	}

	return weights
}

// dropRegressionOutliers removes points beyond 2 standard deviations from the
// mean, keeping the original set when fewer than 3 points would remain.
func dropRegressionOutliers(xs, ys []float64) ([]float64, []float64) {
	m := mean(ys)
	sd := stdDev(ys)
	if sd == 0 {
		return xs, ys
	}

	keptX := make([]float64, 0, len(xs))
	keptY := make([]float64, 0, len(ys))
	for i := range ys {
		if math.Abs(ys[i]-m) <= stableOutlierSigma*sd {
			keptX = append(keptX, xs[i])
			keptY = append(keptY, ys[i])
		}
	}
	if len(keptY) < stableOutlierMinPoints {
		return xs, ys
	}

	return keptX, keptY
}
