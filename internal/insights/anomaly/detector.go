// Package anomaly flags periods whose value sits too many standard deviations
// away from the series mean.
package anomaly

import (
	"math"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights/stats"
)

const DefaultThreshold = 2.5

// Severity multipliers applied to the threshold.
const (
	highFactor   = 1.5
	mediumFactor = 1.2
)

// Detect returns every point with |value-μ|/σ strictly above threshold, in
// series order. A constant series (σ = 0) never yields anomalies.
func Detect(series []domain.PeriodPoint, threshold float64) ([]domain.Anomaly, error) {
	const op = "anomaly"
	if len(series) == 0 {
		return nil, domain.NewInvalidInput(op, "series", "at least one period is required")
	}
	if !stats.IsFinite(threshold) || threshold <= 0 {
		return nil, domain.NewInvalidInput(op, "threshold", "must be positive, got %v", threshold)
	}

	values := make([]float64, len(series))
	for i, p := range series {
		if !stats.IsFinite(p.Value) {
			return nil, domain.NewInvalidInput(op, "series", "value at index %d is not finite", i)
		}
		values[i] = p.Value
	}

	anomalies := []domain.Anomaly{}
	mean, sd := stats.MeanStdDev(values)
	if !stats.AllFinite(mean, sd) {
		return nil, domain.NewInvalidInput(op, "series", "values overflow")
	}
	if sd == 0 {
		return anomalies, nil
	}

	for _, p := range series {
		z := math.Abs(p.Value-mean) / sd
		if !stats.IsFinite(z) {
			return nil, domain.NewInvalidInput(op, "series", "values overflow")
		}
		if z <= threshold {
			continue
		}
		anomalies = append(anomalies, domain.Anomaly{
			Period:   p.Period,
			Observed: p.Value,
			Expected: mean,
			ZScore:   z,
			Severity: severity(z, threshold),
			Kind:     kind(p.Value, mean),
		})
	}
	return anomalies, nil
}

func severity(z, threshold float64) domain.Severity {
	switch {
	case z > highFactor*threshold:
		return domain.SeverityHigh
	case z > mediumFactor*threshold:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func kind(value, mean float64) domain.AnomalyKind {
	if value > mean {
		return domain.KindSpike
	}
	return domain.KindDrop
}
