// backend-go/internal/forecast/seasonal_test.go
package forecast

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
)

func monthlyRecords(start time.Time, demands []float64) []domain.MonthlyDemandRecord {
	records := make([]domain.MonthlyDemandRecord, len(demands))
	for i, d := range demands {
		records[i] = domain.MonthlyDemandRecord{
			ItemID:          "item-1",
			LocationID:      "loc-1",
			Month:           start.AddDate(0, i, 0),
			RawUnits:        d,
			CorrectedDemand: d,
		}
	}
	return records
}

func TestSeasonalEstimateRequiresTwelveNonZeroMonths(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	records := monthlyRecords(start, []float64{10, 12, 0, 9, 11, 0, 10, 12, 9, 11, 10})

	e := NewSeasonalEstimator()
	_, err := e.Estimate(records)
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("err = %v, want ErrInsufficientHistory", err)
	}
}

func TestSeasonalEstimateFactorsAreNonNegativeAndComplete(t *testing.T) {
	start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	demands := make([]float64, 24)
	for i := range demands {
		demands[i] = 50 + 30*math.Sin(float64(i)*math.Pi/6)
	}

	e := NewSeasonalEstimator()
	pattern, err := e.Estimate(monthlyRecords(start, demands))
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}

	sum := 0.0
	for i, f := range pattern.Factors {
		if f < 0 {
			t.Errorf("factor for month %d = %v, want non-negative", i+1, f)
		}
		sum += f
	}
	// Factors are ratios to the overall mean, so the curve averages near 1.
	if avg := sum / 12; avg < 0.8 || avg > 1.2 {
		t.Errorf("factor average = %v, want near 1.0", avg)
	}
	if pattern.Confidence < 0 || pattern.Confidence > 1 {
		t.Errorf("confidence = %v, want within [0, 1]", pattern.Confidence)
	}
}

func TestSeasonalEstimateDefaultsMissingMonthsToOne(t *testing.T) {
	// 12 distinct months spread over two calendar years but covering only
	// 10 distinct months-of-year: the uncovered slots default to 1.0.
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	records := monthlyRecords(start, []float64{10, 11, 9, 12, 10, 11, 9, 10, 12, 11})
	more := monthlyRecords(start.AddDate(1, 0, 0), []float64{10, 11})
	records = append(records, more...)

	e := NewSeasonalEstimator()
	pattern, err := e.Estimate(records)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	// November and December never appear in the history.
	if pattern.Factors[10] != 1.0 || pattern.Factors[11] != 1.0 {
		t.Errorf("uncovered months = %v, %v, want 1.0", pattern.Factors[10], pattern.Factors[11])
	}
}

func TestSeasonalEstimateIgnoresRecordsBeyondLookback(t *testing.T) {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	old := monthlyRecords(start, []float64{1000, 1000, 1000})
	recent := monthlyRecords(start.AddDate(4, 0, 0), []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10})

	e := NewSeasonalEstimator()
	pattern, err := e.Estimate(append(old, recent...))
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	for i, f := range pattern.Factors {
		if math.Abs(f-1.0) > 1e-9 {
			t.Errorf("factor for month %d = %v, want 1.0 from flat recent history", i+1, f)
		}
	}
}

func TestSeasonalYearRoundClassification(t *testing.T) {
	start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	demands := make([]float64, 24)
	for i := range demands {
		demands[i] = 100
	}

	e := NewSeasonalEstimator()
	pattern, err := e.Estimate(monthlyRecords(start, demands))
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if pattern.Pattern != PatternYearRound {
		t.Errorf("pattern = %q, want %q", pattern.Pattern, PatternYearRound)
	}
	if pattern.Significant {
		t.Error("year-round pattern must not be significant")
	}
}

func TestSeasonalHolidayClassification(t *testing.T) {
	start := time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)
	demands := make([]float64, 36)
	for i := range demands {
		month := time.Month(i%12 + 1)
		if month == time.November || month == time.December {
			demands[i] = 300
		} else {
			demands[i] = 50
		}
	}

	e := NewSeasonalEstimator()
	pattern, err := e.Estimate(monthlyRecords(start, demands))
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if pattern.Pattern != PatternHoliday {
		t.Errorf("pattern = %q, want %q", pattern.Pattern, PatternHoliday)
	}
	peaks := pattern.PeakMonths()
	found := map[time.Month]bool{}
	for _, m := range peaks {
		found[m] = true
	}
	if !found[time.November] || !found[time.December] {
		t.Errorf("peaks = %v, want November and December", peaks)
	}
}

func TestFlatSeasonalPattern(t *testing.T) {
	p := FlatSeasonalPattern()
	for i, f := range p.Factors {
		if f != 1.0 {
			t.Errorf("flat factor for month %d = %v, want 1.0", i+1, f)
		}
	}
	if len(p.PeakMonths()) != 0 {
		t.Errorf("flat pattern has peaks %v, want none", p.PeakMonths())
	}
}

func TestPatternFromFactorsRoundTrip(t *testing.T) {
	rows := make([]domain.SeasonalFactor, 0, 12)
	for m := 1; m <= 12; m++ {
		factor := 1.0
		if m == 12 {
			factor = 2.0
		}
		rows = append(rows, domain.SeasonalFactor{
			MonthOfYear: m,
			Factor:      factor,
			Pattern:     PatternHoliday,
			Confidence:  0.8,
			Significant: true,
		})
	}

	p := PatternFromFactors(rows)
	if p.FactorFor(time.December) != 2.0 {
		t.Errorf("December factor = %v, want 2.0", p.FactorFor(time.December))
	}
	if p.Pattern != PatternHoliday || !p.Significant || p.Confidence != 0.8 {
		t.Errorf("rebuilt metadata = %+v, want holiday/significant/0.8", p)
	}
}
