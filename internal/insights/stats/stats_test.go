package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanAndStdDev(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		mean   float64
		stdDev float64
	}{
		{name: "empty", values: nil, mean: 0, stdDev: 0},
		{name: "single", values: []float64{42}, mean: 42, stdDev: 0},
		{name: "constant", values: []float64{500, 500, 500, 500}, mean: 500, stdDev: 0},
		{name: "population", values: []float64{2, 4, 4, 4, 5, 5, 7, 9}, mean: 5, stdDev: 2},
		{name: "revenue", values: []float64{1000, 1200, 1100, 1300, 1250, 1400}, mean: 1208.3333, stdDev: 130.4373},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, sd := MeanStdDev(tt.values)
			assert.InDelta(t, tt.mean, mean, 1e-3)
			assert.InDelta(t, tt.stdDev, sd, 1e-3)
		})
	}
}

func TestEuclideanDistance(t *testing.T) {
	assert.InDelta(t, 5.0, EuclideanDistance([]float64{0, 0}, []float64{3, 4}), 1e-9)
	assert.Equal(t, 0.0, EuclideanDistance(nil, nil))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 2}, []float64{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)

	zero := CosineSimilarity([]float64{0, 0}, []float64{1, 1})
	assert.Equal(t, 0.0, zero)
	assert.False(t, math.IsNaN(zero))
}

func TestLinearRegression(t *testing.T) {
	slope, intercept := LinearRegression([]float64{1, 3, 5, 7})
	assert.InDelta(t, 2.0, slope, 1e-9)
	assert.InDelta(t, 1.0, intercept, 1e-9)

	slope, intercept = LinearRegression([]float64{9})
	assert.Equal(t, 0.0, slope)
	assert.Equal(t, 9.0, intercept)

	slope, intercept = LinearRegression(nil)
	assert.Equal(t, 0.0, slope)
	assert.Equal(t, 0.0, intercept)
}

func TestMinMaxNormalize(t *testing.T) {
	in := [][]float64{{0, 10, 5}, {10, 20, 5}, {5, 15, 5}}
	out := MinMaxNormalize(in)

	assert.Equal(t, [][]float64{{0, 0, 0}, {1, 1, 0}, {0.5, 0.5, 0}}, out)
	assert.Equal(t, []float64{0, 10, 5}, in[0], "input must not be modified")
	assert.Nil(t, MinMaxNormalize(nil))
}

func TestFirstNonFinite(t *testing.T) {
	assert.Equal(t, -1, FirstNonFinite([]float64{1, 2, 3}))
	assert.Equal(t, 1, FirstNonFinite([]float64{1, math.NaN(), 3}))
	assert.Equal(t, 2, FirstNonFinite([]float64{1, 2, math.Inf(-1)}))
}

func TestAllFinite(t *testing.T) {
	assert.True(t, AllFinite())
	assert.True(t, AllFinite(1, -1e308, 0))
	assert.False(t, AllFinite(1, math.Inf(1)))
	assert.False(t, AllFinite(Mean([]float64{1e308, 1e308, 0})))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1287.43, Round(1287.4312, 2))
	assert.Equal(t, 3.0, Round(2.5, 0))
}
