package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/cache"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/snapshot"
)

// ErrPeriodsUnsupported is returned by Periods when the source cannot list
// its history periods.
var ErrPeriodsUnsupported = errors.New("source does not list periods")

// InsightService loads snapshots from its source, runs the engine and caches
// the resulting reports.
type InsightService struct {
	source   snapshot.Source
	engine   *insights.Engine
	cache    cache.InsightCache
	defaults insights.Options
}

func NewInsightService(source snapshot.Source, engine *insights.Engine, cacheImpl cache.InsightCache, defaults insights.Options) *InsightService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopInsightCache()
	}
	if engine == nil {
		engine = insights.NewEngine()
	}
	return &InsightService{
		source:   source,
		engine:   engine,
		cache:    cacheImpl,
		defaults: defaults,
	}
}

// Defaults returns a copy of the configured analysis options.
func (s *InsightService) Defaults() insights.Options {
	opts := s.defaults
	opts.RecommendFor = append([]string(nil), s.defaults.RecommendFor...)
	return opts
}

// Periods lists up to limit history periods of the source, newest first.
func (s *InsightService) Periods(ctx context.Context, limit int) ([]time.Time, error) {
	if limit <= 0 {
		return nil, domain.NewInvalidInput("periods", "limit", "must be positive, got %d", limit)
	}
	lister, ok := s.source.(snapshot.PeriodLister)
	if !ok {
		return nil, ErrPeriodsUnsupported
	}
	periods, err := lister.Periods(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods from %s: %w", s.source.Name(), err)
	}
	if periods == nil {
		periods = []time.Time{}
	}
	return periods, nil
}

// Report returns the full report for opts, from cache when possible.
func (s *InsightService) Report(ctx context.Context, opts insights.Options) (*domain.Report, error) {
	key := cache.ReportKey(s.source.Name(), optionParams(opts, s.defaults))

	if report, ok, err := s.cache.GetReport(ctx, key); err == nil && ok {
		reportCacheTotal.WithLabelValues("hit").Inc()
		return report, nil
	} else if err != nil {
		reportCacheTotal.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("key", key).Msg("insights: cache get report failed")
	} else {
		reportCacheTotal.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	report, err := s.analyze(ctx, opts)
	observe("report", start, err)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("source", s.source.Name()).
		Str("snapshot", report.SnapshotLabel).
		Strs("skipped", report.Skipped).
		Dur("duration", time.Since(start)).
		Msg("insights: report computed")

	if err := s.cache.SetReport(ctx, key, report); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("insights: cache set report failed")
	}

	return report, nil
}

func (s *InsightService) analyze(ctx context.Context, opts insights.Options) (*domain.Report, error) {
	snap, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot from %s: %w", s.source.Name(), err)
	}
	return s.engine.Analyze(ctx, snap, opts)
}

// Invalidate drops every cached report for the service's source.
func (s *InsightService) Invalidate(ctx context.Context) error {
	return s.cache.InvalidateSnapshot(ctx, s.source.Name())
}

func (s *InsightService) Forecast(ctx context.Context, opts insights.Options) (*domain.ForecastReport, error) {
	report, err := s.Report(ctx, opts)
	if err != nil {
		return nil, err
	}
	return report.Forecast, nil
}

func (s *InsightService) Anomalies(ctx context.Context, opts insights.Options) ([]domain.Anomaly, error) {
	report, err := s.Report(ctx, opts)
	if err != nil {
		return nil, err
	}
	return report.Anomalies, nil
}

func (s *InsightService) Segments(ctx context.Context, opts insights.Options) (*domain.SegmentReport, error) {
	report, err := s.Report(ctx, opts)
	if err != nil {
		return nil, err
	}
	return report.Segments, nil
}

// Recommendations returns up to limit items for one entity. An entity with
// no interactions gets an empty list.
func (s *InsightService) Recommendations(ctx context.Context, entity string, limit int) ([]domain.Recommendation, error) {
	opts := s.Defaults()
	opts.RecommendFor = []string{entity}
	opts.RecommendLimit = limit

	report, err := s.Report(ctx, opts)
	if err != nil {
		return nil, err
	}
	if recs, ok := report.Recommendations[entity]; ok && recs != nil {
		return recs, nil
	}
	return []domain.Recommendation{}, nil
}

// Replenishment returns reorder suggestions, optionally only those with the
// given urgency.
func (s *InsightService) Replenishment(ctx context.Context, urgency domain.Urgency) ([]domain.ReorderSuggestion, error) {
	report, err := s.Report(ctx, s.Defaults())
	if err != nil {
		return nil, err
	}
	if urgency == "" {
		return report.Replenishment, nil
	}

	filtered := make([]domain.ReorderSuggestion, 0, len(report.Replenishment))
	for _, sg := range report.Replenishment {
		if sg.Urgency == urgency {
			filtered = append(filtered, sg)
		}
	}
	return filtered, nil
}

// ABC returns the classification, optionally only one class.
func (s *InsightService) ABC(ctx context.Context, class domain.ABCClass) ([]domain.ABCEntry, error) {
	report, err := s.Report(ctx, s.Defaults())
	if err != nil {
		return nil, err
	}
	if class == "" {
		return report.ABC, nil
	}

	filtered := make([]domain.ABCEntry, 0, len(report.ABC))
	for _, e := range report.ABC {
		if e.Classification == class {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// optionParams lists the options that differ from the defaults, so a request
// with default options always maps to the same cache entry.
func optionParams(opts, defaults insights.Options) map[string]string {
	got, base := flatten(opts), flatten(defaults)
	params := make(map[string]string)
	for k, v := range got {
		if base[k] != v {
			params[k] = v
		}
	}
	return params
}

func flatten(opts insights.Options) map[string]string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

	targets := append([]string(nil), opts.RecommendFor...)
	sort.Strings(targets)

	return map[string]string{
		"alpha":           f(opts.Forecast.Alpha),
		"horizon":         strconv.Itoa(opts.Forecast.Horizon),
		"z":               f(opts.Forecast.Z),
		"granularity":     string(opts.Forecast.Granularity),
		"threshold":       f(opts.AnomalyThreshold),
		"k":               strconv.Itoa(opts.Segment.K),
		"max_iterations":  strconv.Itoa(opts.Segment.MaxIterations),
		"normalize":       strconv.FormatBool(opts.Segment.Normalize),
		"recent_days":     f(opts.Labels.RecentDays),
		"lapsed_days":     f(opts.Labels.LapsedDays),
		"high_monetary":   f(opts.Labels.HighMonetary),
		"frequent_orders": f(opts.Labels.FrequentOrders),
		"limit":           strconv.Itoa(opts.RecommendLimit),
		"recommend_for":   strings.Join(targets, ","),
		"safety_days":     f(opts.SafetyDays),
		"cover_days":      f(opts.CoverDays),
	}
}
