// backend-go/internal/replenish/urgency_test.go
package replenish

import (
	"math"
	"testing"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
)

func baseUrgencyInput() UrgencyInput {
	return UrgencyInput{
		DailyDemand:  10,
		LeadTimeDays: 14,
		SafetyStock:  100,
		RevenueTier:  domain.RevenueTierB,
		Lifecycle:    domain.LifecycleActive,
	}
}

func TestUrgencyTierBoundaries(t *testing.T) {
	// daily 10, lead 14: tier edges sit at 44, 74 and 104 days of coverage.
	cases := []struct {
		name     string
		position float64
		want     string
	}{
		{"just under must-order edge", 439, domain.UrgencyMustOrder},
		{"exactly at must-order edge", 440, domain.UrgencyShouldOrder},
		{"just under should-order edge", 739, domain.UrgencyShouldOrder},
		{"exactly at should-order edge", 740, domain.UrgencyOptional},
		{"just under optional edge", 1039, domain.UrgencyOptional},
		{"exactly at optional edge", 1040, domain.UrgencySkip},
	}

	c := NewUrgencyClassifier()
	for _, tc := range cases {
		in := baseUrgencyInput()
		in.CurrentStock = tc.position
		got := c.Classify(in)
		if got.Urgency != tc.want {
			t.Errorf("%s (position %v): urgency = %q, want %q", tc.name, tc.position, got.Urgency, tc.want)
		}
	}
}

func TestUrgencyZeroDemandSkips(t *testing.T) {
	in := baseUrgencyInput()
	in.DailyDemand = 0
	in.CurrentStock = 0

	got := NewUrgencyClassifier().Classify(in)
	if got.Urgency != domain.UrgencySkip {
		t.Errorf("urgency = %q, want skip for zero demand", got.Urgency)
	}
	if got.CoverageDays != 9999 {
		t.Errorf("coverage = %v, want unbounded sentinel", got.CoverageDays)
	}
	if got.Quantity != 0 {
		t.Errorf("quantity = %v, want 0", got.Quantity)
	}
}

func TestUrgencyPendingCountsTowardPosition(t *testing.T) {
	c := NewUrgencyClassifier()

	bare := baseUrgencyInput()
	bare.CurrentStock = 400
	withPending := bare
	withPending.EffectivePending = 400

	if c.Classify(bare).Urgency != domain.UrgencyMustOrder {
		t.Error("400 units alone must classify must-order")
	}
	if got := c.Classify(withPending).Urgency; got != domain.UrgencyShouldOrder {
		t.Errorf("with pending urgency = %q, want should-order", got)
	}
}

func TestUrgencyChronicStockoutEscalates(t *testing.T) {
	in := baseUrgencyInput()
	in.CurrentStock = 800 // optional band
	in.StockoutFrequency = 80
	in.StockoutConfidence = 0.75

	got := NewUrgencyClassifier().Classify(in)
	if got.Urgency != domain.UrgencyShouldOrder {
		t.Errorf("urgency = %q, want should-order after chronic escalation", got.Urgency)
	}
}

func TestUrgencyChronicStockoutNeedsConfidence(t *testing.T) {
	in := baseUrgencyInput()
	in.CurrentStock = 800
	in.StockoutFrequency = 80
	in.StockoutConfidence = 0.5

	got := NewUrgencyClassifier().Classify(in)
	if got.Urgency != domain.UrgencyOptional {
		t.Errorf("urgency = %q, want optional when stockout confidence is low", got.Urgency)
	}
}

func TestUrgencyChronicEscalationSaturatesAtMustOrder(t *testing.T) {
	in := baseUrgencyInput()
	in.CurrentStock = 100 // already must-order
	in.StockoutFrequency = 90
	in.StockoutConfidence = 0.9

	got := NewUrgencyClassifier().Classify(in)
	if got.Urgency != domain.UrgencyMustOrder {
		t.Errorf("urgency = %q, want must-order (no tier above it)", got.Urgency)
	}
}

func TestUrgencyPhaseOutOnlyOrdersWhenCritical(t *testing.T) {
	c := NewUrgencyClassifier()

	in := baseUrgencyInput()
	in.Lifecycle = domain.LifecyclePhaseOut
	in.CurrentStock = 600 // should-order band for active items
	if got := c.Classify(in).Urgency; got != domain.UrgencySkip {
		t.Errorf("phase-out in should-order band = %q, want skip", got)
	}

	in.CurrentStock = 100 // must-order band
	if got := c.Classify(in).Urgency; got != domain.UrgencyMustOrder {
		t.Errorf("phase-out in must-order band = %q, want must-order", got)
	}
}

func TestUrgencyHighValueNeverOptional(t *testing.T) {
	in := baseUrgencyInput()
	in.RevenueTier = domain.RevenueTierA
	in.CurrentStock = 800 // optional band

	got := NewUrgencyClassifier().Classify(in)
	if got.Urgency != domain.UrgencyShouldOrder {
		t.Errorf("A-tier urgency = %q, want should-order promotion", got.Urgency)
	}
}

func TestUrgencyQuantityArithmetic(t *testing.T) {
	in := baseUrgencyInput()
	in.CurrentStock = 200
	in.EffectivePending = 50

	got := NewUrgencyClassifier().Classify(in)
	// target = 10 x (14 + 60) + 100 = 840; position = 250.
	wantTarget := 840.0
	if math.Abs(got.TargetInventory-wantTarget) > 1e-9 {
		t.Errorf("target inventory = %v, want %v", got.TargetInventory, wantTarget)
	}
	if got.Quantity != 590 {
		t.Errorf("quantity = %v, want 590", got.Quantity)
	}
}

func TestUrgencyQuantityNeverNegative(t *testing.T) {
	in := baseUrgencyInput()
	in.SafetyStock = 0
	in.DailyDemand = 1
	in.CurrentStock = 43 // coverage 43 days: must-order, target 74

	got := NewUrgencyClassifier().Classify(in)
	if got.Quantity != 31 {
		t.Errorf("quantity = %v, want 31", got.Quantity)
	}
	if got.Quantity < 0 {
		t.Errorf("quantity = %v, want non-negative", got.Quantity)
	}
}

func TestUrgencyDeterministic(t *testing.T) {
	in := baseUrgencyInput()
	in.CurrentStock = 321
	in.EffectivePending = 87.5
	in.StockoutFrequency = 71
	in.StockoutConfidence = 0.71

	c := NewUrgencyClassifier()
	first := c.Classify(in)
	for i := 0; i < 5; i++ {
		if got := c.Classify(in); got != first {
			t.Fatalf("classification not deterministic: %+v vs %+v", got, first)
		}
	}
}
