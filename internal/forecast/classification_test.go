// backend-go/internal/forecast/classification_test.go
package forecast

import (
	"testing"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
)

func TestMethodTableCoversAllTierPairs(t *testing.T) {
	if err := ValidateMethodTable(); err != nil {
		t.Fatalf("method table invalid: %v", err)
	}
}

func TestMethodForKnownPairs(t *testing.T) {
	ax := MethodFor(domain.RevenueTierA, domain.VolatilityTierX)
	if ax.WindowMonths != 6 {
		t.Errorf("AX window = %d, want 6", ax.WindowMonths)
	}
	if ax.RecencyWeight != 0.7 {
		t.Errorf("AX recency weight = %v, want 0.7", ax.RecencyWeight)
	}
	if ax.BaseConfidence != 0.90 {
		t.Errorf("AX confidence = %v, want 0.90", ax.BaseConfidence)
	}

	cz := MethodFor(domain.RevenueTierC, domain.VolatilityTierZ)
	if cz.WindowMonths != 3 || cz.RecencyWeight != 0 {
		t.Errorf("CZ config = %+v, want plain 3-month average", cz)
	}
}

func TestMethodForUnknownTierFallsBackToCZ(t *testing.T) {
	got := MethodFor("", "")
	want := MethodFor(domain.RevenueTierC, domain.VolatilityTierZ)
	if got != want {
		t.Errorf("unknown tier config = %+v, want CZ fallback %+v", got, want)
	}
}

func TestMethodConfidenceDecreasesWithVolatility(t *testing.T) {
	for _, rev := range []string{domain.RevenueTierA, domain.RevenueTierB, domain.RevenueTierC} {
		x := MethodFor(rev, domain.VolatilityTierX).BaseConfidence
		y := MethodFor(rev, domain.VolatilityTierY).BaseConfidence
		z := MethodFor(rev, domain.VolatilityTierZ).BaseConfidence
		if !(x > y && y > z) {
			t.Errorf("tier %s confidences not decreasing: X=%v Y=%v Z=%v", rev, x, y, z)
		}
	}
}
