// Package forecast projects a period series forward with exponential smoothing
// plus a least-squares trend, banded by the raw series' standard deviation.
package forecast

import (
	"math"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights/stats"
)

const (
	DefaultAlpha   = 0.3
	DefaultHorizon = 3

	// z for a two-sided 95% band
	DefaultZ = 1.96
)

// Options configures a forecast run. Use DefaultOptions and override fields.
type Options struct {
	Alpha       float64
	Horizon     int
	Z           float64
	Granularity domain.Granularity
}

func DefaultOptions() Options {
	return Options{
		Alpha:       DefaultAlpha,
		Horizon:     DefaultHorizon,
		Z:           DefaultZ,
		Granularity: domain.GranularityMonth,
	}
}

// Result is the forecast plus the fitted model it came from.
type Result struct {
	Points    []domain.ForecastPoint
	Smoothed  []float64
	Slope     float64
	Intercept float64
	Mean      float64
	StdDev    float64
}

// Report converts the result into its serializable form.
func (r *Result) Report() *domain.ForecastReport {
	return &domain.ForecastReport{
		Points:    r.Points,
		Smoothed:  r.Smoothed,
		Slope:     r.Slope,
		Intercept: r.Intercept,
		Mean:      r.Mean,
		StdDev:    r.StdDev,
	}
}

// Forecast produces opts.Horizon future points from series.
//
// The last smoothed level is extended by the OLS slope of the smoothed series;
// the band is ±Z·σ of the raw values. All three outputs are clamped at zero.
func Forecast(series []domain.PeriodPoint, opts Options) (*Result, error) {
	if err := validate(series, opts); err != nil {
		return nil, err
	}

	values := make([]float64, len(series))
	for i, p := range series {
		values[i] = p.Value
	}

	smoothed := Smooth(values, opts.Alpha)
	slope, intercept := stats.LinearRegression(smoothed)
	mean, sd := stats.MeanStdDev(values)

	z := opts.Z
	if !stats.IsFinite(z) || z <= 0 {
		z = DefaultZ
	}
	margin := z * sd
	level := smoothed[len(smoothed)-1]
	last := series[len(series)-1].Period
	if !stats.AllFinite(level, slope, intercept, mean, sd, margin) {
		return nil, domain.NewInvalidInput("forecast", "series", "values overflow")
	}

	points := make([]domain.ForecastPoint, opts.Horizon)
	for i := 1; i <= opts.Horizon; i++ {
		predicted := level + slope*float64(i)
		if !stats.AllFinite(predicted-margin, predicted+margin) {
			return nil, domain.NewInvalidInput("forecast", "series", "values overflow at horizon step %d", i)
		}
		points[i-1] = domain.ForecastPoint{
			Period:    opts.Granularity.Advance(last, i),
			Predicted: math.Max(0, predicted),
			Lower:     math.Max(0, predicted-margin),
			Upper:     math.Max(0, predicted+margin),
		}
	}

	return &Result{
		Points:    points,
		Smoothed:  smoothed,
		Slope:     slope,
		Intercept: intercept,
		Mean:      mean,
		StdDev:    sd,
	}, nil
}

// Smooth applies simple exponential smoothing: S[0]=X[0], S[t]=α·X[t]+(1-α)·S[t-1].
// Each step folds the previous level into a new slice element; values is not modified.
func Smooth(values []float64, alpha float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	out := make([]float64, len(values))
	out[0] = values[0]
	for t := 1; t < len(values); t++ {
		out[t] = alpha*values[t] + (1-alpha)*out[t-1]
	}
	return out
}

func validate(series []domain.PeriodPoint, opts Options) error {
	const op = "forecast"
	if len(series) == 0 {
		return domain.NewInvalidInput(op, "series", "at least one period is required")
	}
	if opts.Horizon <= 0 {
		return domain.NewInvalidInput(op, "horizon", "must be positive, got %d", opts.Horizon)
	}
	if !stats.IsFinite(opts.Alpha) || opts.Alpha <= 0 || opts.Alpha > 1 {
		return domain.NewInvalidInput(op, "alpha", "must be in (0,1], got %v", opts.Alpha)
	}
	for i, p := range series {
		if !stats.IsFinite(p.Value) {
			return domain.NewInvalidInput(op, "series", "value at index %d is not finite", i)
		}
	}
	return nil
}
