// Package insights runs every analysis over one snapshot and bundles the
// results into a report.
package insights

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights/anomaly"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights/forecast"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights/recommend"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights/replenishment"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights/segment"
)

// Report sections, also used in Report.Skipped.
const (
	SectionForecast        = "forecast"
	SectionAnomalies       = "anomalies"
	SectionSegments        = "segments"
	SectionRecommendations = "recommendations"
	SectionReplenishment   = "replenishment"
	SectionABC             = "abc"
)

// Options tunes every analysis in a report run.
type Options struct {
	Forecast         forecast.Options
	AnomalyThreshold float64
	Segment          segment.Options
	Labels           segment.LabelThresholds
	RecommendLimit   int
	// RecommendFor restricts recommendations to these entities. Empty means
	// every entity in the interaction matrix.
	RecommendFor []string
	SafetyDays   float64
	CoverDays    float64
}

func DefaultOptions() Options {
	return Options{
		Forecast:         forecast.DefaultOptions(),
		AnomalyThreshold: anomaly.DefaultThreshold,
		Segment:          segment.DefaultOptions(),
		Labels:           segment.DefaultLabelThresholds(),
		RecommendLimit:   recommend.DefaultLimit,
		SafetyDays:       replenishment.DefaultSafetyDays,
		CoverDays:        replenishment.DefaultCoverDays,
	}
}

// Engine computes reports. It holds no state between calls.
type Engine struct {
	now   func() time.Time
	newID func() string
}

func NewEngine() *Engine {
	return &Engine{
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Analyze runs the analyses concurrently over snap. Sections whose input is
// empty are listed in Report.Skipped instead of failing the run. The first
// invalid-input error cancels the remaining sections.
func (e *Engine) Analyze(ctx context.Context, snap *domain.Snapshot, opts Options) (*domain.Report, error) {
	if snap == nil {
		return nil, domain.NewInvalidInput("analyze", "snapshot", "snapshot is required")
	}

	report := &domain.Report{
		ID:            e.newID(),
		SnapshotLabel: snap.Label,
		GeneratedAt:   e.now().UTC(),
		Anomalies:     []domain.Anomaly{},
		Replenishment: []domain.ReorderSuggestion{},
		ABC:           []domain.ABCEntry{},
	}

	var skipped []string
	skip := func(section string) { skipped = append(skipped, section) }

	g, gctx := errgroup.WithContext(ctx)
	run := func(section string, fn func() error) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(); err != nil {
				return fmt.Errorf("%s: %w", section, err)
			}
			return nil
		})
	}

	if len(snap.Revenue) == 0 {
		skip(SectionForecast)
		skip(SectionAnomalies)
	} else {
		run(SectionForecast, func() error {
			res, err := forecast.Forecast(snap.Revenue, opts.Forecast)
			if err != nil {
				return err
			}
			report.Forecast = res.Report()
			return nil
		})
		run(SectionAnomalies, func() error {
			found, err := anomaly.Detect(snap.Revenue, opts.AnomalyThreshold)
			if err != nil {
				return err
			}
			report.Anomalies = found
			return nil
		})
	}

	if len(snap.Customers) == 0 {
		skip(SectionSegments)
	} else {
		run(SectionSegments, func() error {
			segOpts := opts.Segment
			if segOpts.K > len(snap.Customers) {
				segOpts.K = len(snap.Customers)
			}
			res, err := segment.Cluster(snap.Customers, segOpts)
			if err != nil {
				return err
			}
			res.Clusters = segment.LabelRFM(res.Clusters, opts.Labels)
			report.Segments = res.Report()
			return nil
		})
	}

	if len(snap.Interactions) == 0 {
		skip(SectionRecommendations)
	} else {
		run(SectionRecommendations, func() error {
			recs, err := RecommendAll(gctx, snap.Interactions, opts.RecommendFor, opts.RecommendLimit)
			if err != nil {
				return err
			}
			report.Recommendations = recs
			return nil
		})
	}

	if len(snap.Inventory) == 0 {
		skip(SectionReplenishment)
		skip(SectionABC)
	} else {
		calc := &replenishment.Calculator{SafetyDays: opts.SafetyDays, CoverDays: opts.CoverDays}
		run(SectionReplenishment, func() error {
			suggestions, err := calc.Suggest(snap.Inventory)
			if err != nil {
				return err
			}
			report.Replenishment = suggestions
			return nil
		})
		run(SectionABC, func() error {
			entries, err := replenishment.ClassifyABC(snap.Inventory)
			if err != nil {
				return err
			}
			report.ABC = entries
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(skipped)
	report.Skipped = skipped
	return report, nil
}

// RecommendAll computes recommendations for each target, or for every entity
// in the matrix when targets is empty.
func RecommendAll(ctx context.Context, matrix domain.RatingMatrix, targets []string, limit int) (map[string][]domain.Recommendation, error) {
	if len(targets) == 0 {
		targets = recommend.Entities(matrix)
	}
	out := make(map[string][]domain.Recommendation, len(targets))
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs, err := recommend.Recommend(matrix, target, limit)
		if err != nil {
			return nil, err
		}
		out[target] = recs
	}
	return out, nil
}
