package anomaly

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
)

func series(values ...float64) []domain.PeriodPoint {
	start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.PeriodPoint, len(values))
	for i, v := range values {
		out[i] = domain.PeriodPoint{Period: start.AddDate(0, i, 0), Value: v}
	}
	return out
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestDetectSeverityAndKind(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		severity domain.Severity
		kind     domain.AnomalyKind
	}{
		{name: "medium spike", values: append(repeat(100, 10), 1000), severity: domain.SeverityMedium, kind: domain.KindSpike},
		{name: "high spike", values: append(repeat(100, 20), 1000), severity: domain.SeverityHigh, kind: domain.KindSpike},
		{name: "medium drop", values: append(repeat(500, 10), 0), severity: domain.SeverityMedium, kind: domain.KindDrop},
		{name: "low drop", values: []float64{100, 102, 98, 101, 99, 100, 103, 97, 100, 5}, severity: domain.SeverityLow, kind: domain.KindDrop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := series(tt.values...)
			got, err := Detect(in, DefaultThreshold)
			require.NoError(t, err)
			require.Len(t, got, 1)

			a := got[0]
			assert.Equal(t, in[len(in)-1].Period, a.Period)
			assert.Equal(t, tt.values[len(tt.values)-1], a.Observed)
			assert.Equal(t, tt.severity, a.Severity)
			assert.Equal(t, tt.kind, a.Kind)
			assert.Greater(t, a.ZScore, DefaultThreshold)
		})
	}
}

func TestDetectExpectedIsMean(t *testing.T) {
	got, err := Detect(series(append(repeat(100, 10), 1000)...), DefaultThreshold)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 181.818, got[0].Expected, 1e-3)
}

func TestDetectConstantSeries(t *testing.T) {
	got, err := Detect(series(42, 42, 42, 42), 0.1)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestDetectSinglePoint(t *testing.T) {
	got, err := Detect(series(7), DefaultThreshold)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetectThresholdMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		values := make([]float64, 5+rng.Intn(40))
		for i := range values {
			values[i] = rng.NormFloat64()*100 + 1000
			if rng.Intn(10) == 0 {
				values[i] *= 3
			}
		}
		in := series(values...)

		prev := math.MaxInt
		for _, th := range []float64{0.5, 1, 1.5, 2, 2.5, 3, 4} {
			got, err := Detect(in, th)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(got), prev, "threshold %v", th)
			prev = len(got)
		}
	}
}

func TestDetectInvalidInput(t *testing.T) {
	_, err := Detect(nil, DefaultThreshold)
	assert.True(t, domain.IsInvalidInput(err))

	_, err = Detect(series(1, 2), 0)
	assert.True(t, domain.IsInvalidInput(err))

	_, err = Detect(series(1, 2), math.NaN())
	assert.True(t, domain.IsInvalidInput(err))

	_, err = Detect(series(1, math.Inf(1)), DefaultThreshold)
	assert.True(t, domain.IsInvalidInput(err))
}

func TestDetectOverflowingSeries(t *testing.T) {
	anomalies, err := Detect(series(1e308, 1e308, 0), DefaultThreshold)
	require.Error(t, err)
	assert.True(t, domain.IsInvalidInput(err))
	assert.Nil(t, anomalies)
}
