package core

import (
	"math"
	"sort"
)

// -----------------------------------------------------------------------------

// CalculateMeanStd computes mean and standard deviation with the given
// delta degrees of freedom (0 population, 1 sample). Std is NaN when
// len(data) <= ddof.
func CalculateMeanStd(data []float64, ddof int) (float64, float64) {
	if len(data) == 0 {
		return math.NaN(), math.NaN()
	}

	sum := 0.0
	for _, v := range data {
		sum += v
	}
	mean := sum / float64(len(data))

	if len(data) <= ddof {
		return mean, math.NaN()
	}

	varianceSum := 0.0
	for _, v := range data {
		varianceSum += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(varianceSum / float64(len(data)-ddof))
}

// -----------------------------------------------------------------------------

// NanMean is the mean of the non-NaN values, NaN if there are none.
func NanMean(data []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range data {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// -----------------------------------------------------------------------------

// Quantile returns the q-quantile of the non-NaN values using linear
// interpolation between closest ranks. NaN if there are no values.
func Quantile(data []float64, q float64) float64 {
	vals := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)

	pos := q * float64(len(vals)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return vals[lo]
	}
	frac := pos - float64(lo)
	return vals[lo] + (vals[hi]-vals[lo])*frac
}

// -----------------------------------------------------------------------------

// CalculateZScore calculates Z-Score (Standard Score).
func CalculateZScore(value, mean, std float64) float64 {
	if std == 0 || math.IsNaN(std) {
		return 0.0
	}
	return (value - mean) / std
}
