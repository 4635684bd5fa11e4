package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/config"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/pipeline"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/repository"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/service"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/snapshot"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/storage"
	"github.com/andresuchdata/autopo-insights/backend-go/pkg/logger"
)

// prepare loads the environment config, the analysis options and the
// snapshot every single-analysis command needs.
func prepare(c *cli.Context) (*domain.Snapshot, insights.Options, error) {
	cfg := config.Load()
	opts, err := options(c, cfg)
	if err != nil {
		return nil, opts, err
	}
	snap, err := loadSnapshot(c, cfg)
	if err != nil {
		return nil, opts, err
	}
	logger.Log.Debug().
		Str("snapshot", snap.Label).
		Int("periods", len(snap.Revenue)).
		Int("customers", len(snap.Customers)).
		Int("items", len(snap.Inventory)).
		Msg("snapshot loaded")
	return snap, opts, nil
}

func runForecast(c *cli.Context) error {
	snap, opts, err := prepare(c)
	if err != nil {
		return err
	}
	report, err := service.ComputeForecast(snap.Revenue, opts.Forecast)
	if err != nil {
		return err
	}
	return writeJSON(c, report)
}

func runAnomalies(c *cli.Context) error {
	snap, opts, err := prepare(c)
	if err != nil {
		return err
	}
	anomalies, err := service.ComputeAnomalies(snap.Revenue, opts.AnomalyThreshold)
	if err != nil {
		return err
	}
	return writeJSON(c, anomalies)
}

func runSegments(c *cli.Context) error {
	snap, opts, err := prepare(c)
	if err != nil {
		return err
	}
	report, err := service.ComputeSegments(snap.Customers, opts.Segment, opts.Labels)
	if err != nil {
		return err
	}
	return writeJSON(c, report)
}

func runRecommend(c *cli.Context) error {
	snap, opts, err := prepare(c)
	if err != nil {
		return err
	}

	if entity := c.String("entity"); entity != "" {
		recs, err := service.ComputeRecommendations(snap.Interactions, nil, entity, opts.RecommendLimit)
		if err != nil {
			return err
		}
		return writeJSON(c, map[string][]domain.Recommendation{entity: recs})
	}

	all, err := insights.RecommendAll(c.Context, snap.Interactions, nil, opts.RecommendLimit)
	if err != nil {
		return err
	}
	return writeJSON(c, all)
}

func runReplenish(c *cli.Context) error {
	snap, opts, err := prepare(c)
	if err != nil {
		return err
	}
	suggestions, err := service.ComputeReplenishment(snap.Inventory, opts.SafetyDays, opts.CoverDays)
	if err != nil {
		return err
	}

	if raw := c.String("urgency"); raw != "" {
		urgency, ok := domain.ParseUrgency(raw)
		if !ok {
			return fmt.Errorf("unknown urgency %q", raw)
		}
		filtered := suggestions[:0]
		for _, sg := range suggestions {
			if sg.Urgency == urgency {
				filtered = append(filtered, sg)
			}
		}
		suggestions = filtered
	}
	return writeJSON(c, suggestions)
}

func runABC(c *cli.Context) error {
	snap, _, err := prepare(c)
	if err != nil {
		return err
	}
	entries, err := service.ComputeABC(snap.Inventory)
	if err != nil {
		return err
	}

	if raw := c.String("class"); raw != "" {
		class, ok := domain.ParseABCClass(raw)
		if !ok {
			return fmt.Errorf("unknown class %q", raw)
		}
		filtered := entries[:0]
		for _, e := range entries {
			if e.Classification == class {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	return writeJSON(c, entries)
}

func runReport(c *cli.Context) error {
	snap, opts, err := prepare(c)
	if err != nil {
		return err
	}
	report, err := insights.NewEngine().Analyze(c.Context, snap, opts)
	if err != nil {
		return err
	}
	return writeJSON(c, report)
}

func runPeriods(c *cli.Context) error {
	url := c.String("db-url")
	if url == "" {
		return fmt.Errorf("--db-url is required")
	}
	granularity, ok := domain.ParseGranularity(c.String("granularity"))
	if !ok {
		return fmt.Errorf("unknown granularity %q", c.String("granularity"))
	}

	cfg := config.Load()
	db, err := postgres.Open(dbDriver, url, cfg.Database.MaxConcurrency)
	if err != nil {
		return err
	}
	defer db.Close()

	src := repository.SnapshotSource{
		Repo:   postgres.NewSnapshotRepository(db),
		Filter: repository.SnapshotFilter{Granularity: granularity},
	}
	periods, err := src.Periods(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}

	labels := make([]string, len(periods))
	for i, p := range periods {
		labels[i] = p.Format(dateLayout)
	}
	return writeJSON(c, labels)
}

func runBatch(c *cli.Context) error {
	cfg := config.Load()
	opts, err := options(c, cfg)
	if err != nil {
		return err
	}

	var store storage.ObjectStorage
	if c.Bool("upload") || c.String("root-prefix") != "" {
		if store, err = openStorage(cfg); err != nil {
			return err
		}
	}

	var sources []snapshot.Source
	switch {
	case c.String("root-dir") != "":
		sources, err = pipeline.DiscoverDirs(c.String("root-dir"))
	case c.String("root-prefix") != "":
		sources, err = pipeline.DiscoverBucket(c.Context, store, c.String("root-prefix"), c.String("work-dir"))
	default:
		return fmt.Errorf("one of --root-dir or --root-prefix is required")
	}
	if err != nil {
		return err
	}

	pcfg := pipeline.DefaultConfig()
	pcfg.WorkerCount = cfg.Insights.WorkerCount
	if c.IsSet("workers") {
		pcfg.WorkerCount = c.Int("workers")
	}
	pcfg.RetryAttempts = c.Int("retries")
	pcfg.OutputDir = c.String("output-dir")
	pcfg.UploadPrefix = c.String("upload-prefix")

	var uploader storage.ObjectStorage
	if c.Bool("upload") {
		uploader = store
	}

	run, runErr := pipeline.NewRunner(insights.NewEngine(), opts, pcfg, uploader).Run(c.Context, sources)
	if err := writeJSON(c, run); err != nil {
		return err
	}
	return runErr
}

func writeJSON(c *cli.Context, v interface{}) error {
	var w io.Writer = os.Stdout
	if path := c.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
