// backend-go/internal/replenish/safety.go
package replenish

import (
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
	"github.com/andresuchdata/demandcast/backend-go/internal/forecast"
)

const (
	reviewCycleDays        = 30
	leadTimeVariability    = 0.2
	highValueBufferDays    = 7
	volatileMidBufferDays  = 3.5
	seasonalStrongFactor   = 1.3
	seasonalModerateFactor = 1.2
	seasonalWeakFactor     = 1.15
	seasonalStrongMin      = 0.6
	seasonalModerateMin    = 0.45
	seasonalGateStrength   = 0.3
	seasonalGateConfidence = 0.6
)

// serviceFactors maps every (revenue tier, volatility tier) pair to its
// service-level z factor. Exhaustive across all 9 pairs, checked at init.
var serviceFactors = map[forecast.TierKey]float64{
	{Revenue: domain.RevenueTierA, Volatility: domain.VolatilityTierX}: 2.33,
	{Revenue: domain.RevenueTierA, Volatility: domain.VolatilityTierY}: 2.05,
	{Revenue: domain.RevenueTierA, Volatility: domain.VolatilityTierZ}: 1.88,
	{Revenue: domain.RevenueTierB, Volatility: domain.VolatilityTierX}: 1.88,
	{Revenue: domain.RevenueTierB, Volatility: domain.VolatilityTierY}: 1.64,
	{Revenue: domain.RevenueTierB, Volatility: domain.VolatilityTierZ}: 1.28,
	{Revenue: domain.RevenueTierC, Volatility: domain.VolatilityTierX}: 1.28,
	{Revenue: domain.RevenueTierC, Volatility: domain.VolatilityTierY}: 1.04,
	{Revenue: domain.RevenueTierC, Volatility: domain.VolatilityTierZ}: 0.84,
}

func init() {
	if err := ValidateServiceFactors(); err != nil {
		panic(err)
	}
}

// ValidateServiceFactors checks the z-factor table covers all 9 tier pairs.
func ValidateServiceFactors() error {
	for _, rev := range []string{domain.RevenueTierA, domain.RevenueTierB, domain.RevenueTierC} {
		for _, vol := range []string{domain.VolatilityTierX, domain.VolatilityTierY, domain.VolatilityTierZ} {
			factor, ok := serviceFactors[forecast.TierKey{Revenue: rev, Volatility: vol}]
			if !ok {
				return fmt.Errorf("service factor table missing entry for tier pair %s%s", rev, vol)
			}
			if factor <= 0 {
				return fmt.Errorf("service factor table entry %s%s must be positive, got %f", rev, vol, factor)
			}
		}
	}

	return nil
}

// ServiceFactorFor returns the z factor for an item's classification,
// defaulting to the most lenient entry for unknown tiers.
func ServiceFactorFor(revenueTier, volatilityTier string) float64 {
	if factor, ok := serviceFactors[forecast.TierKey{Revenue: revenueTier, Volatility: volatilityTier}]; ok {
		return factor
	}

	return serviceFactors[forecast.TierKey{Revenue: domain.RevenueTierC, Volatility: domain.VolatilityTierZ}]
}

// SafetyInput carries the variability, lead-time and seasonality context for
// one item/location.
type SafetyInput struct {
	DailyDemand    float64
	Variability    float64
	LeadTimeDays   float64
	RevenueTier    string
	VolatilityTier string
	Seasonal       forecast.SeasonalPattern
	OrderMonth     time.Month
}

// SafetyCalculator computes the statistical buffer from demand variability,
// lead-time variability and classification-based service levels.
type SafetyCalculator struct{}

// NewSafetyCalculator returns a ready calculator.
func NewSafetyCalculator() *SafetyCalculator {
	return &SafetyCalculator{}
}

// Calculate returns the safety stock in units, never negative.
func (c *SafetyCalculator) Calculate(in SafetyInput) float64 {
	if in.DailyDemand <= 0 {
		return 0
	}

	factor := ServiceFactorFor(in.RevenueTier, in.VolatilityTier)
	demandStd := in.DailyDemand * in.Variability
	period := in.LeadTimeDays + reviewCycleDays

	safety := factor * math.Sqrt(
		demandStd*demandStd*period+
			in.DailyDemand*in.DailyDemand*leadTimeVariability*leadTimeVariability*period)

	// Flat buffers for the classes where a stockout hurts most.
	if in.RevenueTier == domain.RevenueTierA {
		safety += highValueBufferDays * in.DailyDemand
	} else if in.RevenueTier == domain.RevenueTierB && in.VolatilityTier == domain.VolatilityTierZ {
		safety += volatileMidBufferDays * in.DailyDemand
	}

	safety *= c.seasonalMultiplier(in)

	return math.Max(0, safety)
}

// seasonalMultiplier applies the peak-season uplift only when the pattern is
// strong, confident, statistically significant, and the order month or the
// next one is a detected peak.
func (c *SafetyCalculator) seasonalMultiplier(in SafetyInput) float64 {
	p := in.Seasonal
	if p.Strength <= seasonalGateStrength || p.Confidence <= seasonalGateConfidence || !p.Significant {
		return 1
	}

	next := in.OrderMonth%12 + 1
	inPeak := false
	for _, m := range p.PeakMonths() {
		if m == in.OrderMonth || m == time.Month(next) {
			inPeak = true
			break
		}
	}
	if !inPeak {
		return 1
	}

	switch {
	case p.Strength > seasonalStrongMin:
		return seasonalStrongFactor
	case p.Strength > seasonalModerateMin:
		return seasonalModerateFactor
	default:
		return seasonalWeakFactor
	}
}
