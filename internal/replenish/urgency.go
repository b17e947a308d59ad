// backend-go/internal/replenish/urgency.go
package replenish

import (
	"math"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
)

const (
	mustOrderSlackDays    = 30
	shouldOrderSlackDays  = 60
	optionalSlackDays     = 90
	targetCoverSlackDays  = 60
	chronicFreqThreshold  = 70
	chronicConfidenceMin  = 0.7
	unboundedCoverageDays = 9999
)

// UrgencyInput is the full stock position context for one item/location.
type UrgencyInput struct {
	CurrentStock       float64
	EffectivePending   float64
	DailyDemand        float64
	LeadTimeDays       float64
	SafetyStock        float64
	RevenueTier        string
	Lifecycle          string
	StockoutFrequency  float64
	StockoutConfidence float64
}

// Decision is the replenishment outcome for one item/location.
type Decision struct {
	Urgency         string
	Quantity        float64
	CoverageDays    float64
	TargetInventory float64
}

// UrgencyClassifier combines projected coverage against lead time to assign
// an urgency tier and recommended order quantity.
type UrgencyClassifier struct{}

// NewUrgencyClassifier returns a ready classifier.
func NewUrgencyClassifier() *UrgencyClassifier {
	return &UrgencyClassifier{}
}

// Classify is a pure function of its input: identical inputs always produce
// identical decisions.
func (c *UrgencyClassifier) Classify(in UrgencyInput) Decision {
	position := in.CurrentStock + in.EffectivePending

	coverage := float64(unboundedCoverageDays)
	if in.DailyDemand > 0 {
		coverage = position / in.DailyDemand
	}

	tier := domain.UrgencySkip
	switch {
	case coverage < in.LeadTimeDays+mustOrderSlackDays:
		tier = domain.UrgencyMustOrder
	case coverage < in.LeadTimeDays+shouldOrderSlackDays:
		tier = domain.UrgencyShouldOrder
	case coverage < in.LeadTimeDays+optionalSlackDays:
		tier = domain.UrgencyOptional
	}

	// Chronic stockouts at high confidence escalate one tier.
	if in.StockoutFrequency > chronicFreqThreshold && in.StockoutConfidence >= chronicConfidenceMin {
		tier = domain.UrgencyForRank(domain.UrgencyRank(tier) + 1)
	}

	// Phase-out items only order when already critical.
	if in.Lifecycle == domain.LifecyclePhaseOut && tier != domain.UrgencyMustOrder {
		tier = domain.UrgencySkip
	}

	// High-value items never sit at optional.
	if in.RevenueTier == domain.RevenueTierA && tier == domain.UrgencyOptional {
		tier = domain.UrgencyShouldOrder
	}

	decision := Decision{Urgency: tier, CoverageDays: coverage}
	if tier == domain.UrgencySkip {
		return decision
	}

	decision.TargetInventory = in.DailyDemand*(in.LeadTimeDays+targetCoverSlackDays) + in.SafetyStock
	decision.Quantity = math.Max(0, math.Ceil(decision.TargetInventory-position))

	return decision
}
