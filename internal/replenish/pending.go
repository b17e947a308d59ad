// backend-go/internal/replenish/pending.go
package replenish

import (
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
)

// Supply buckets for open orders.
const (
	BucketOverdue  = "overdue"
	BucketImminent = "imminent"
	BucketCovered  = "covered"
	BucketFuture   = "future"
)

const (
	imminentWindowDays     = 30
	coveredWindowSlackDays = 30
	confirmedDateBase      = 0.85
	estimatedDateBase      = 0.65
	overdueDiscount        = 0.8
	coveredDistancePenalty = 0.2
)

// EvaluatedOrder is one open order with its bucket and confidence factor.
type EvaluatedOrder struct {
	Order      domain.PendingOrder
	Bucket     string
	ArrivalIn  float64
	Confidence float64
}

// SupplyAssessment is the time-bucketed view of open supply for one
// item/location. Future orders are excluded from coverage math but reported.
type SupplyAssessment struct {
	EffectivePending float64
	Orders           []EvaluatedOrder
	FutureUnits      float64
}

// PendingEvaluator discounts open supplier orders by a confidence factor from
// supplier reliability and date certainty.
type PendingEvaluator struct{}

// NewPendingEvaluator returns a ready evaluator.
func NewPendingEvaluator() *PendingEvaluator {
	return &PendingEvaluator{}
}

// Evaluate buckets each open order against the supplier's lead time and sums
// the confidence-discounted quantities of the non-future buckets.
func (e *PendingEvaluator) Evaluate(orders []domain.PendingOrder, leadTime domain.SupplierLeadTime, asOf time.Time) SupplyAssessment {
	assessment := SupplyAssessment{Orders: make([]EvaluatedOrder, 0, len(orders))}

	horizon := leadTime.P95LeadTimeDays + coveredWindowSlackDays
	for _, order := range orders {
		arrival := e.expectedArrival(order)
		daysOut := arrival.Sub(asOf).Hours() / 24

		base := estimatedDateBase
		if order.DateConfirmed {
			base = confirmedDateBase
		}

		evaluated := EvaluatedOrder{Order: order, ArrivalIn: daysOut}
		switch {
		case daysOut < 0:
			evaluated.Bucket = BucketOverdue
			evaluated.Confidence = overdueDiscount * base
		case daysOut <= imminentWindowDays:
			evaluated.Bucket = BucketImminent
			evaluated.Confidence = base
		case daysOut <= horizon:
			evaluated.Bucket = BucketCovered
			distance := 1.0
			if horizon > 0 {
				distance = 1 - coveredDistancePenalty*daysOut/horizon
			}
			evaluated.Confidence = leadTime.Reliability * distance * base
		default:
			evaluated.Bucket = BucketFuture
			assessment.FutureUnits += order.Quantity
		}

		evaluated.Confidence = clamp01(evaluated.Confidence)
		if evaluated.Bucket != BucketFuture {
			assessment.EffectivePending += order.Quantity * evaluated.Confidence
		}
		assessment.Orders = append(assessment.Orders, evaluated)
	}

	return assessment
}

// expectedArrival falls back to order date plus quoted lead time when no
// arrival date was recorded.
func (e *PendingEvaluator) expectedArrival(order domain.PendingOrder) time.Time {
	if order.ExpectedArrival != nil {
		return *order.ExpectedArrival
	}

	return order.OrderDate.AddDate(0, 0, int(order.LeadTimeDays))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}

	return v
}
