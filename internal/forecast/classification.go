// backend-go/internal/forecast/classification.go
package forecast

import (
	"fmt"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
)

// TierKey indexes per-classification parameters by the item's revenue and
// volatility tiers.
type TierKey struct {
	Revenue    string
	Volatility string
}

// MethodConfig holds the moving-average parameters used for an item class.
// RecencyWeight is the share of the base estimate taken from the most recent
// half of the window; 0 means a plain average across the window.
type MethodConfig struct {
	WindowMonths   int
	RecencyWeight  float64
	BaseConfidence float64
}

// methodTable maps every (revenue tier, volatility tier) pair to its method
// parameters. The table must stay exhaustive across all 9 pairs; init fails
// loudly when an entry is missing.
var methodTable = map[TierKey]MethodConfig{
	{domain.RevenueTierA, domain.VolatilityTierX}: {WindowMonths: 6, RecencyWeight: 0.7, BaseConfidence: 0.90},
	{domain.RevenueTierA, domain.VolatilityTierY}: {WindowMonths: 4, RecencyWeight: 0.6, BaseConfidence: 0.75},
	{domain.RevenueTierA, domain.VolatilityTierZ}: {WindowMonths: 3, RecencyWeight: 0.5, BaseConfidence: 0.55},
	{domain.RevenueTierB, domain.VolatilityTierX}: {WindowMonths: 6, RecencyWeight: 0.6, BaseConfidence: 0.80},
	{domain.RevenueTierB, domain.VolatilityTierY}: {WindowMonths: 4, RecencyWeight: 0.5, BaseConfidence: 0.65},
	{domain.RevenueTierB, domain.VolatilityTierZ}: {WindowMonths: 3, RecencyWeight: 0, BaseConfidence: 0.50},
	{domain.RevenueTierC, domain.VolatilityTierX}: {WindowMonths: 6, RecencyWeight: 0.5, BaseConfidence: 0.70},
	{domain.RevenueTierC, domain.VolatilityTierY}: {WindowMonths: 4, RecencyWeight: 0, BaseConfidence: 0.55},
	{domain.RevenueTierC, domain.VolatilityTierZ}: {WindowMonths: 3, RecencyWeight: 0, BaseConfidence: 0.40},
}

func init() {
	if err := ValidateMethodTable(); err != nil {
		panic(err)
	}
}

// ValidateMethodTable checks that the method table covers every revenue and
// volatility tier combination with sane parameters.
func ValidateMethodTable() error {
	revenues := []string{domain.RevenueTierA, domain.RevenueTierB, domain.RevenueTierC}
	volatilities := []string{domain.VolatilityTierX, domain.VolatilityTierY, domain.VolatilityTierZ}

	for _, rev := range revenues {
		for _, vol := range volatilities {
			cfg, ok := methodTable[TierKey{Revenue: rev, Volatility: vol}]
			if !ok {
				return fmt.Errorf("method table missing entry for tier pair %s%s", rev, vol)
			}
			if cfg.WindowMonths < 1 {
				return fmt.Errorf("method table entry %s%s has invalid window %d", rev, vol, cfg.WindowMonths)
			}
			if cfg.RecencyWeight < 0 || cfg.RecencyWeight > 1 {
				return fmt.Errorf("method table entry %s%s has invalid recency weight %f", rev, vol, cfg.RecencyWeight)
			}
			if cfg.BaseConfidence <= 0 || cfg.BaseConfidence > 1 {
				return fmt.Errorf("method table entry %s%s has invalid confidence %f", rev, vol, cfg.BaseConfidence)
			}
		}
	}

	return nil
}

// MethodFor returns the method parameters for an item's classification.
// Unknown tiers fall back to the most conservative entry (CZ).
func MethodFor(revenueTier, volatilityTier string) MethodConfig {
	if cfg, ok := methodTable[TierKey{Revenue: revenueTier, Volatility: volatilityTier}]; ok {
		return cfg
	}

	return methodTable[TierKey{Revenue: domain.RevenueTierC, Volatility: domain.VolatilityTierZ}]
}
