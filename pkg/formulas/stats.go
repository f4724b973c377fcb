package formulas

import (
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Sum calculates the total of a slice of float64 values
func Sum(data []float64) float64 {
	var total float64
	for _, v := range data {
		total += v
	}
	return total
}

// CoefficientOfVariation returns std/mean, or 0 when the mean is not positive.
// Used as a volatility measure for counting stats.
func CoefficientOfVariation(data []float64) float64 {
	m := Mean(data)
	if m <= 0 {
		return 0
	}
	return StdDev(data) / m
}

// Slope returns the least-squares slope of y regressed against its index
// (x = 0, 1, 2, ...). Returns 0 for fewer than 3 points or when y has no
// variance.
func Slope(y []float64) float64 {
	if len(y) < 3 {
		return 0
	}
	if !hasVariance(y) {
		return 0
	}
	x := make([]float64, len(y))
	for i := range x {
		x[i] = float64(i)
	}
	_, slope := stat.LinearRegression(x, y, nil, false)
	return slope
}

func hasVariance(data []float64) bool {
	for _, v := range data[1:] {
		if v != data[0] {
			return true
		}
	}
	return false
}
