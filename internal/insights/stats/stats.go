// Package stats holds the small numeric helpers shared by every insight engine.
// All functions are pure and return well-defined values for degenerate input
// (empty slices, zero variance, zero norms) instead of NaN or Inf.
package stats

import "math"

// Sum adds all values.
func Sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

// PopulationVariance divides by N, treating values as the whole population.
func PopulationVariance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	sq := 0.0
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return sq / float64(len(values))
}

// PopulationStdDev is the square root of PopulationVariance.
func PopulationStdDev(values []float64) float64 {
	return math.Sqrt(PopulationVariance(values))
}

// MeanStdDev returns both moments in one call.
func MeanStdDev(values []float64) (mean, stdDev float64) {
	return Mean(values), PopulationStdDev(values)
}

// EuclideanDistance compares a and b over their common prefix.
func EuclideanDistance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sq := 0.0
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sq += d * d
	}
	return math.Sqrt(sq)
}

// CosineSimilarity returns 0 when either vector has zero norm.
func CosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// LinearRegression fits values against their index 0..n-1 by ordinary least
// squares. A single point (or none) yields a flat line through it.
func LinearRegression(values []float64) (slope, intercept float64) {
	n := len(values)
	switch n {
	case 0:
		return 0, 0
	case 1:
		return 0, values[0]
	}

	xMean := float64(n-1) / 2
	yMean := Mean(values)

	var num, den float64
	for i, y := range values {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0, yMean
	}

	slope = num / den
	return slope, yMean - slope*xMean
}

// MinMaxNormalize rescales every column of vectors into [0,1]. Columns with a
// zero range map to 0. The input is not modified.
func MinMaxNormalize(vectors [][]float64) [][]float64 {
	if len(vectors) == 0 {
		return nil
	}
	dims := len(vectors[0])
	lo := make([]float64, dims)
	hi := make([]float64, dims)
	copy(lo, vectors[0])
	copy(hi, vectors[0])
	for _, v := range vectors[1:] {
		for d := 0; d < dims && d < len(v); d++ {
			lo[d] = math.Min(lo[d], v[d])
			hi[d] = math.Max(hi[d], v[d])
		}
	}

	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		row := make([]float64, dims)
		for d := 0; d < dims && d < len(v); d++ {
			if span := hi[d] - lo[d]; span > 0 {
				row[d] = (v[d] - lo[d]) / span
			}
		}
		out[i] = row
	}
	return out
}

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AllFinite reports whether every value is finite. Sums of large finite
// inputs can still overflow, so callers check derived moments with it.
func AllFinite(values ...float64) bool {
	return FirstNonFinite(values) < 0
}

// FirstNonFinite returns the index of the first NaN or ±Inf value, or -1.
func FirstNonFinite(values []float64) int {
	for i, v := range values {
		if !IsFinite(v) {
			return i
		}
	}
	return -1
}

// Round rounds v to the given number of decimal places.
func Round(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(v)
	}
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}
