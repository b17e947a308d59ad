// backend-go/internal/forecast/sparse.go
package forecast

import (
	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
)

// Sparse-history method tags.
const (
	MethodSparsePattern  = "sparse-pattern"
	MethodSparseBlend    = "sparse-blend"
	MethodSparseOwn      = "sparse-own"
	MethodSparseSimilar  = "sparse-similar"
	MethodSparseCategory = "sparse-category"
	MethodSparseDefault  = "sparse-default"
)

const (
	sparseTriggerMonths = 12

	availabilityHardStockout = 0.0
	availabilityPartial      = 0.3
	availabilityFull         = 1.0
	availabilityUnknown      = 0.5
	cleanAvailabilityMin     = 0.3

	launchSpikeRatio      = 1.3
	spikeBaselineDivisor  = 1.5
	noSpikeDivisor        = 1.2
	stockoutUpliftFactor  = 1.2
	recentCleanWeight     = 0.7
	blendPlainMeanBelow   = 6
	ownWeightFloor        = 0.5
	ownWeightCeiling      = 0.8
	similarRiskThreshold  = 0.5
	similarRiskBufferPct  = 0.10
	sparseFallbackDemand  = 1.0
	sparseConfidenceFloor = 0.45
	sparseConfidenceSpan  = 0.10
)

// Pending-supply netting multipliers. The 1.2/1.5/1.1 family are unverified
// tunables carried over from production behavior; see DESIGN.md.
const (
	pendingHighCoverMultiplier = 0.9
	pendingSomeCoverMultiplier = 1.0
	pendingNoneYoungMultiplier = 1.5
	pendingNoneMultiplier      = 1.3
	patternBaselineCap         = 1.1
)

// SimilarItemStats is a precomputed analogue for a sparse item: same category
// and revenue tier, active lifecycle.
type SimilarItemStats struct {
	ItemID          string  `db:"item_id"`
	MediumWindowAvg float64 `db:"medium_window_avg"`
	SeasonalFactor  float64 `db:"seasonal_factor"`
	StockoutRisk    float64 `db:"stockout_risk"`
}

// SparseInput bundles everything the estimator needs for one sparse item.
type SparseInput struct {
	// History is the item's full monthly history, under 12 records.
	History []domain.MonthlyDemandRecord
	// ShortWindowAvg is the precomputed own-history weighted average, nil
	// when the item has no usable window yet.
	ShortWindowAvg *float64
	// SimilarItems holds up to 5 analogues.
	SimilarItems []SimilarItemStats
	// CategoryAvg is the category-wide average monthly demand.
	CategoryAvg float64
	// PendingUnits is the open supply quantity already on order.
	PendingUnits float64
	GrowthStatus string
}

// SparseResult is the tagged outcome of the sparse-history chain.
type SparseResult struct {
	BaseDemand       float64
	Method           string
	Confidence       float64
	LaunchPattern    bool
	PatternBaseline  bool
	SafetyMultiplier float64
}

// SparseEstimator computes base demand for items with under 12 months of
// history by blending partial own-history with similar-item analogues.
type SparseEstimator struct{}

// NewSparseEstimator returns a ready estimator.
func NewSparseEstimator() *SparseEstimator {
	return &SparseEstimator{}
}

// Sparse reports whether an item's record count routes it into this estimator.
func Sparse(recordCount int) bool {
	return recordCount < sparseTriggerMonths
}

// Estimate runs the four-tier chain: own launch pattern, similar-item blend,
// category average, fixed constant. It never fails outright.
func (e *SparseEstimator) Estimate(in SparseInput) SparseResult {
	clean, spike, earlyStockout := e.detectPattern(in.History)

	result := SparseResult{LaunchPattern: spike || earlyStockout}

	if result.LaunchPattern && len(clean) > 0 {
		result.BaseDemand = patternBaseline(clean, spike, earlyStockout)
		result.Method = MethodSparsePattern
		result.PatternBaseline = true
	} else {
		e.secondaryEstimate(in, &result)
	}

	// Similar-item seasonality only applies when the analogues produced the
	// estimate; a pattern baseline already reflects the item's own months.
	if result.Method == MethodSparseSimilar || result.Method == MethodSparseBlend {
		if factor := e.similarSeasonalFactor(in.SimilarItems); factor > 0 {
			result.BaseDemand *= factor
		}
	}

	switch in.GrowthStatus {
	case domain.GrowthStatusViral:
		result.BaseDemand *= 1.2
	case domain.GrowthStatusDeclining:
		result.BaseDemand *= 0.8
	}

	result.SafetyMultiplier = e.pendingMultiplier(in, result)
	result.BaseDemand *= result.SafetyMultiplier

	if e.similarStockoutRisk(in.SimilarItems) {
		result.BaseDemand *= 1 + similarRiskBufferPct
	}

	monthsAvailable := float64(len(in.History))
	result.Confidence = sparseConfidenceFloor + sparseConfidenceSpan*minFloat(1, monthsAvailable/sparseTriggerMonths)

	return result
}

// detectPattern computes per-month availability from stockout-day buckets,
// keeps clean months, and flags launch-spike / early-stockout signatures.
func (e *SparseEstimator) detectPattern(history []domain.MonthlyDemandRecord) (clean []float64, spike, earlyStockout bool) {
	availabilities := make([]float64, len(history))
	for i, r := range history {
		switch {
		case r.StockoutDays >= 20:
			availabilities[i] = availabilityHardStockout
		case r.StockoutDays >= 10:
			availabilities[i] = availabilityPartial
		case r.RawUnits > 0:
			availabilities[i] = availabilityFull
		default:
			availabilities[i] = availabilityUnknown
		}
		if availabilities[i] >= cleanAvailabilityMin {
			clean = append(clean, r.CorrectedDemand)
		}
	}

	if len(clean) >= 2 {
		maxIdx := 0
		for i, v := range clean {
			if v > clean[maxIdx] {
				maxIdx = i
			}
		}
		rest := make([]float64, 0, len(clean)-1)
		for i, v := range clean {
			if i != maxIdx {
				rest = append(rest, v)
			}
		}
		if restMean := mean(rest); restMean > 0 && clean[maxIdx] > launchSpikeRatio*restMean {
			spike = true
		}
	}

	window := len(history) / 2
	if window < 3 {
		window = 3
	}
	for i := 0; i < len(history) && i < window; i++ {
		if availabilities[i] < cleanAvailabilityMin {
			earlyStockout = true
			break
		}
	}

	return clean, spike, earlyStockout
}

// patternBaseline derives base demand from the clean months of a flagged item.
func patternBaseline(clean []float64, spike, earlyStockout bool) float64 {
	var baseline float64
	if len(clean) <= 3 {
		maxClean := clean[0]
		for _, v := range clean {
			if v > maxClean {
				maxClean = v
			}
		}
		divisor := noSpikeDivisor
		if spike {
			divisor = spikeBaselineDivisor
		}
		baseline = maxClean / divisor
	} else if len(clean) < blendPlainMeanBelow {
		baseline = mean(clean)
	} else {
		recent := clean[len(clean)-3:]
		earlier := clean[:len(clean)-3]
		baseline = recentCleanWeight*mean(recent) + (1-recentCleanWeight)*mean(earlier)
	}

	// Stockouts signal suppressed, not absent, demand.
	if earlyStockout {
		baseline *= stockoutUpliftFactor
	}

	return baseline
}

// secondaryEstimate blends the precomputed own-history average with the
// similar-item average, degrading to category average and a fixed constant.
func (e *SparseEstimator) secondaryEstimate(in SparseInput, result *SparseResult) {
	var similarAvg float64
	var similarCount int
	for _, s := range in.SimilarItems {
		if s.MediumWindowAvg > 0 {
			similarAvg += s.MediumWindowAvg
			similarCount++
		}
	}
	if similarCount > 0 {
		similarAvg /= float64(similarCount)
	}

	hasOwn := in.ShortWindowAvg != nil && *in.ShortWindowAvg > 0
	hasSimilar := similarCount > 0

	switch {
	case hasOwn && hasSimilar:
		ownWeight := ownWeightFloor +
			(ownWeightCeiling-ownWeightFloor)*minFloat(1, float64(len(in.History))/sparseTriggerMonths)
		result.BaseDemand = ownWeight**in.ShortWindowAvg + (1-ownWeight)*similarAvg
		result.Method = MethodSparseBlend
	case hasOwn:
		result.BaseDemand = *in.ShortWindowAvg
		result.Method = MethodSparseOwn
	case hasSimilar:
		result.BaseDemand = similarAvg
		result.Method = MethodSparseSimilar
	case in.CategoryAvg > 0:
		result.BaseDemand = in.CategoryAvg
		result.Method = MethodSparseCategory
	default:
		result.BaseDemand = sparseFallbackDemand
		result.Method = MethodSparseDefault
	}
}

func (e *SparseEstimator) similarSeasonalFactor(similar []SimilarItemStats) float64 {
	sum, count := 0.0, 0
	for _, s := range similar {
		if s.SeasonalFactor > 0 {
			sum += s.SeasonalFactor
			count++
		}
	}
	if count == 0 {
		return 0
	}

	return sum / float64(count)
}

// pendingMultiplier shrinks or boosts the baseline depending on how many
// months of demand open supply already covers.
func (e *SparseEstimator) pendingMultiplier(in SparseInput, result SparseResult) float64 {
	multiplier := pendingNoneMultiplier
	if len(in.History) < 3 {
		multiplier = pendingNoneYoungMultiplier
	}

	if result.BaseDemand > 0 {
		monthsCovered := in.PendingUnits / result.BaseDemand
		if monthsCovered >= 3 {
			multiplier = pendingHighCoverMultiplier
		} else if monthsCovered >= 1.5 {
			multiplier = pendingSomeCoverMultiplier
		}
	}

	// A pattern baseline already carries its own boost.
	if result.PatternBaseline && multiplier > patternBaselineCap {
		multiplier = patternBaselineCap
	}

	return multiplier
}

func (e *SparseEstimator) similarStockoutRisk(similar []SimilarItemStats) bool {
	// Count distinct items so one analogue repeated in the set never
	// satisfies the threshold alone.
	atRisk := map[string]bool{}
	for _, s := range similar {
		if s.StockoutRisk > similarRiskThreshold {
			atRisk[s.ItemID] = true
		}
	}

	return len(atRisk) >= 2
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}

	return b
}
