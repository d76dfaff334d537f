package stats

import (
	"fmt"
	"math"
)

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Percentile returns the p-th percentile (0-100) of an ascending slice using
// linear interpolation between the two closest ranks. It returns 0 for an
// empty slice.
func Percentile(sorted []float64, p float64) (float64, error) {
	if p < 0 || p > 100 || math.IsNaN(p) {
		return 0, fmt.Errorf("percentile %v out of range [0, 100]", p)
	}
	n := len(sorted)
	if n == 0 {
		return 0, nil
	}

	pos := p / 100 * float64(n-1)
	lower := math.Floor(pos)
	upper := math.Ceil(pos)
	if lower == upper {
		return sorted[int(lower)], nil
	}

	weight := pos - lower
	return sorted[int(lower)]*(1-weight) + sorted[int(upper)]*weight, nil
}

// CountAbove counts values strictly greater than threshold.
func CountAbove(values []float64, threshold float64) int {
	n := 0
	for _, v := range values {
		if v > threshold {
			n++
		}
	}
	return n
}
