// backend-go/internal/forecast/seasonal.go
package forecast

import (
	"errors"
	"math"
	"time"

	"github.com/andresuchdata/demandcast/backend-go/internal/domain"
)

// ErrInsufficientHistory is returned when an item lacks the 12 distinct
// non-zero months required to derive a seasonal curve.
var ErrInsufficientHistory = errors.New("insufficient demand history for seasonal estimation")

// Seasonal pattern labels.
const (
	PatternYearRound    = "year-round"
	PatternHoliday      = "holiday"
	PatternSpringSummer = "spring-summer"
	PatternFallWinter   = "fall-winter"
	PatternUnknown      = "unknown"
)

const (
	seasonalLookbackMonths   = 36
	seasonalMinMonths        = 12
	seasonalOutlierSigma     = 2.5
	yearRoundCVThreshold     = 0.15
	peakFactorThreshold      = 1.2
	holidayCVThreshold       = 0.3
	confidenceTargetPerMonth = 3.0
)

// SeasonalPattern is a 12-slot multiplier curve with its classification.
// Factors[0] corresponds to January; absent months default to 1.0.
type SeasonalPattern struct {
	Factors     [12]float64
	Pattern     string
	Confidence  float64
	Strength    float64
	Significant bool
}

// FactorFor returns the multiplier for a calendar month.
func (p SeasonalPattern) FactorFor(month time.Month) float64 {
	return p.Factors[int(month)-1]
}

// PeakMonths returns the calendar months whose factor exceeds the peak
// threshold over the curve average.
func (p SeasonalPattern) PeakMonths() []time.Month {
	avg := 0.0
	for _, f := range p.Factors {
		avg += f
	}
	avg /= 12

	var peaks []time.Month
	for i, f := range p.Factors {
		if avg > 0 && f > peakFactorThreshold*avg {
			peaks = append(peaks, time.Month(i+1))
		}
	}

	return peaks
}

// FlatSeasonalPattern returns the all-ones curve used when no pattern can be
// derived.
func FlatSeasonalPattern() SeasonalPattern {
	p := SeasonalPattern{Pattern: PatternUnknown}
	for i := range p.Factors {
		p.Factors[i] = 1.0
	}

	return p
}

// SeasonalEstimator derives a seasonal multiplier curve from up to 3 years of
// monthly demand.
type SeasonalEstimator struct {
	FilterOutliers bool
}

// NewSeasonalEstimator returns an estimator with outlier filtering enabled.
func NewSeasonalEstimator() *SeasonalEstimator {
	return &SeasonalEstimator{FilterOutliers: true}
}

// Estimate builds the 12-slot curve from monthly demand records. Records
// outside the 36-month lookback from the newest record are ignored. It fails
// with ErrInsufficientHistory when fewer than 12 distinct calendar months
// carry non-zero corrected demand.
func (e *SeasonalEstimator) Estimate(records []domain.MonthlyDemandRecord) (SeasonalPattern, error) {
	points := e.lookbackPoints(records)

	distinct := make(map[string]struct{}, len(points))
	for _, p := range points {
		distinct[p.month.Format("2006-01")] = struct{}{}
	}
	if len(distinct) < seasonalMinMonths {
		return SeasonalPattern{}, ErrInsufficientHistory
	}

	if e.FilterOutliers {
		points = trimOutliers(points, seasonalOutlierSigma, seasonalMinMonths)
	}

	// Bucket by month-of-year and average.
	var bucketSum, bucketCount [12]float64
	total := 0.0
	for _, p := range points {
		idx := int(p.month.Month()) - 1
		bucketSum[idx] += p.value
		bucketCount[idx]++
		total += p.value
	}
	overall := total / float64(len(points))
	if overall == 0 {
		return SeasonalPattern{}, ErrInsufficientHistory
	}

	pattern := SeasonalPattern{}
	for i := 0; i < 12; i++ {
		if bucketCount[i] == 0 {
			pattern.Factors[i] = 1.0
			continue
		}
		pattern.Factors[i] = (bucketSum[i] / bucketCount[i]) / overall
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.value
	}
	cv := coefficientOfVariation(values)

	pattern.Pattern = classifyPattern(pattern.Factors, cv)
	pattern.Strength = coefficientOfVariation(pattern.Factors[:])
	pattern.Confidence = math.Min(1, float64(len(points))/12/confidenceTargetPerMonth)
	pattern.Significant = pattern.Confidence >= 2.0/confidenceTargetPerMonth &&
		pattern.Pattern != PatternUnknown && pattern.Pattern != PatternYearRound

	return pattern, nil
}

type seasonalPoint struct {
	month time.Time
	value float64
}

// lookbackPoints keeps non-zero corrected demand within the 36-month window
// ending at the newest record.
func (e *SeasonalEstimator) lookbackPoints(records []domain.MonthlyDemandRecord) []seasonalPoint {
	var latest time.Time
	for _, r := range records {
		if r.Month.After(latest) {
			latest = r.Month
		}
	}
	cutoff := latest.AddDate(0, -seasonalLookbackMonths, 0)

	points := make([]seasonalPoint, 0, len(records))
	for _, r := range records {
		if r.CorrectedDemand <= 0 || r.Month.Before(cutoff) {
			continue
		}
		points = append(points, seasonalPoint{month: r.Month, value: r.CorrectedDemand})
	}

	return points
}

// trimOutliers drops points deviating more than sigma standard deviations from
// the sample mean, but only when at least minKeep points survive the trim.
func trimOutliers(points []seasonalPoint, sigma float64, minKeep int) []seasonalPoint {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.value
	}
	m := mean(values)
	sd := stdDev(values)
	if sd == 0 {
		return points
	}

	kept := make([]seasonalPoint, 0, len(points))
	for _, p := range points {
		if math.Abs(p.value-m) <= sigma*sd {
			kept = append(kept, p)
		}
	}
	if len(kept) < minKeep {
		return points
	}

	return kept
}

var springSummerMonths = map[time.Month]bool{
	time.March: true, time.April: true, time.May: true,
	time.June: true, time.July: true, time.August: true,
}

func classifyPattern(factors [12]float64, cv float64) string {
	if cv < yearRoundCVThreshold {
		return PatternYearRound
	}

	avg := 0.0
	for _, f := range factors {
		avg += f
	}
	avg /= 12

	var peaks []time.Month
	for i, f := range factors {
		if f > peakFactorThreshold*avg {
			peaks = append(peaks, time.Month(i+1))
		}
	}
	if len(peaks) == 0 {
		return PatternUnknown
	}

	peakSet := make(map[time.Month]bool, len(peaks))
	for _, m := range peaks {
		peakSet[m] = true
	}
	if peakSet[time.November] && peakSet[time.December] && cv > holidayCVThreshold {
		return PatternHoliday
	}

	springSummer, fallWinter := 0, 0
	for _, m := range peaks {
		if springSummerMonths[m] {
			springSummer++
		} else {
			fallWinter++
		}
	}
	if springSummer > fallWinter {
		return PatternSpringSummer
	}
	if fallWinter > springSummer {
		return PatternFallWinter
	}

	return PatternUnknown
}

// PatternFromFactors rebuilds a SeasonalPattern from persisted factor rows,
// defaulting missing months to 1.0.
func PatternFromFactors(rows []domain.SeasonalFactor) SeasonalPattern {
	pattern := FlatSeasonalPattern()
	for _, row := range rows {
		if row.MonthOfYear < 1 || row.MonthOfYear > 12 {
			continue
		}
		pattern.Factors[row.MonthOfYear-1] = row.Factor
		pattern.Pattern = row.Pattern
		pattern.Confidence = row.Confidence
		pattern.Significant = row.Significant
	}
	pattern.Strength = coefficientOfVariation(pattern.Factors[:])

	return pattern
}
