package service

import (
	"time"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights/anomaly"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights/forecast"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights/recommend"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights/replenishment"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights/segment"
)

// The Compute functions run one analysis on caller-supplied data. They never
// touch the snapshot source or the cache.

func ComputeForecast(series []domain.PeriodPoint, opts forecast.Options) (report *domain.ForecastReport, err error) {
	defer func(start time.Time) { observe("compute_forecast", start, err) }(time.Now())

	res, err := forecast.Forecast(series, opts)
	if err != nil {
		return nil, err
	}
	return res.Report(), nil
}

func ComputeAnomalies(series []domain.PeriodPoint, threshold float64) (found []domain.Anomaly, err error) {
	defer func(start time.Time) { observe("compute_anomalies", start, err) }(time.Now())
	return anomaly.Detect(series, threshold)
}

// ComputeSegments clusters entities and labels the clusters when they carry
// RFM features.
func ComputeSegments(entities []domain.EntityFeatureVector, opts segment.Options, labels segment.LabelThresholds) (report *domain.SegmentReport, err error) {
	defer func(start time.Time) { observe("compute_segments", start, err) }(time.Now())

	res, err := segment.Cluster(entities, opts)
	if err != nil {
		return nil, err
	}
	res.Clusters = segment.LabelRFM(res.Clusters, labels)
	return res.Report(), nil
}

// ComputeRecommendations accepts either a prepared matrix or raw interaction
// lines; lines are folded into the matrix first.
func ComputeRecommendations(matrix domain.RatingMatrix, lines []domain.Interaction, target string, limit int) (recs []domain.Recommendation, err error) {
	defer func(start time.Time) { observe("compute_recommendations", start, err) }(time.Now())

	if len(matrix) == 0 && len(lines) > 0 {
		matrix = recommend.BuildMatrix(lines)
	}
	return recommend.Recommend(matrix, target, limit)
}

func ComputeReplenishment(items []domain.InventoryItem, safetyDays, coverDays float64) (suggestions []domain.ReorderSuggestion, err error) {
	defer func(start time.Time) { observe("compute_replenishment", start, err) }(time.Now())

	calc := replenishment.NewCalculator()
	if safetyDays > 0 {
		calc.SafetyDays = safetyDays
	}
	if coverDays > 0 {
		calc.CoverDays = coverDays
	}
	return calc.Suggest(items)
}

func ComputeABC(items []domain.InventoryItem) (entries []domain.ABCEntry, err error) {
	defer func(start time.Time) { observe("compute_abc", start, err) }(time.Now())
	return replenishment.ClassifyABC(items)
}
