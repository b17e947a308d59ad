// backend-go/internal/forecast/stats.go
package forecast

import "math"

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}

	return math.Sqrt(sum / float64(n-1))
}

// coefficientOfVariation returns std/mean, or 0 when the mean vanishes.
func coefficientOfVariation(values []float64) float64 {
	m := mean(values)
	if m == 0 {
		return 0
	}

	return stdDev(values) / m
}

// weightedLeastSquares fits y = a + b*x with per-point weights and returns the
// slope together with the weighted mean of y. Returns ok=false when the
// regression denominator vanishes.
func weightedLeastSquares(xs, ys, weights []float64) (slope, weightedMean float64, ok bool) {
	n := len(xs)
	if n < 2 || len(ys) != n || len(weights) != n {
		return 0, 0, false
	}

	var sumW, sumWX, sumWY, sumWXX, sumWXY float64
	for i := 0; i < n; i++ {
		w := weights[i]
		sumW += w
		sumWX += w * xs[i]
		sumWY += w * ys[i]
		sumWXX += w * xs[i] * xs[i]
		sumWXY += w * xs[i] * ys[i]
	}
	if sumW == 0 {
		return 0, 0, false
	}

	denom := sumW*sumWXX - sumWX*sumWX
	if denom == 0 {
		return 0, 0, false
	}

	slope = (sumW*sumWXY - sumWX*sumWY) / denom

	return slope, sumWY / sumW, true
}
