package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/config"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/drive"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/repository"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/snapshot"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/storage"
)

const dateLayout = "2006-01-02"

// dbDriver is the database/sql driver used for --db-url.
var dbDriver = "pgx"

func sourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "dir",
			Usage: "Snapshot directory (CSV/XLSX tables or snapshot.json)",
		},
		&cli.StringFlag{
			Name:    "db-url",
			Usage:   "Database connection string",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:  "bucket-prefix",
			Usage: "Object storage prefix holding the snapshot files (STORAGE_* env configures the bucket)",
		},
		&cli.StringFlag{
			Name:  "drive-folder",
			Usage: "Google Drive folder path holding the snapshot files",
		},
		&cli.StringFlag{
			Name:    "drive-credentials",
			Usage:   "Service account credentials JSON for Google Drive",
			EnvVars: []string{"DRIVE_CREDENTIALS_FILE"},
			Value:   "credentials.json",
		},
		&cli.StringFlag{
			Name:  "work-dir",
			Usage: "Scratch directory for downloaded snapshot files",
			Value: "./data/work",
		},
		&cli.StringFlag{
			Name:  "as-of",
			Usage: "Database snapshot upper bound (YYYY-MM-DD, exclusive)",
		},
		&cli.StringFlag{
			Name:  "since",
			Usage: "Database history lower bound (YYYY-MM-DD)",
		},
	}
}

func forecastFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{Name: "alpha", Usage: "Smoothing factor in (0,1]"},
		&cli.IntFlag{Name: "horizon", Usage: "Number of periods to forecast"},
		&cli.StringFlag{Name: "granularity", Usage: "Period length (day, week, month, quarter, year)"},
	}
}

func anomalyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{Name: "threshold", Usage: "Z-score threshold"},
	}
}

func segmentFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "k", Usage: "Number of clusters"},
		&cli.IntFlag{Name: "max-iterations", Usage: "Iteration cap"},
		&cli.BoolFlag{Name: "normalize", Usage: "Min-max normalize features before clustering"},
	}
}

func inventoryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{Name: "safety-days", Usage: "Days of sales held as safety stock"},
		&cli.Float64Flag{Name: "cover-days", Usage: "Days of sales an order covers beyond lead time"},
	}
}

func reportFlags() []cli.Flag {
	flags := append(forecastFlags(), anomalyFlags()...)
	flags = append(flags, segmentFlags()...)
	flags = append(flags, inventoryFlags()...)
	return append(flags, &cli.IntFlag{Name: "limit", Usage: "Maximum recommendations per entity"})
}

func periodFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db-url",
			Usage:   "Database connection string",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{Name: "granularity", Usage: "Period length (day, week, month, quarter, year)", Value: "month"},
		&cli.IntFlag{Name: "limit", Usage: "Number of most recent periods", Value: 12},
	}
}

func batchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "root-dir", Usage: "Directory whose subdirectories are snapshots"},
		&cli.StringFlag{Name: "root-prefix", Usage: "Bucket prefix whose sub-prefixes are snapshots"},
		&cli.StringFlag{Name: "work-dir", Usage: "Scratch directory for downloaded snapshot files", Value: "./data/work"},
		&cli.StringFlag{Name: "output-dir", Usage: "Write one report JSON per snapshot here"},
		&cli.BoolFlag{Name: "upload", Usage: "Upload report JSON to object storage"},
		&cli.StringFlag{Name: "upload-prefix", Usage: "Object storage prefix for uploaded reports", Value: "reports"},
		&cli.IntFlag{Name: "workers", Usage: "Concurrent snapshot jobs"},
		&cli.IntFlag{Name: "retries", Usage: "Attempts per snapshot job", Value: 3},
	}
}

// options overlays the flags that were set on the environment defaults.
func options(c *cli.Context, cfg *config.Config) (insights.Options, error) {
	opts := cfg.Insights.Options()

	if c.IsSet("alpha") {
		opts.Forecast.Alpha = c.Float64("alpha")
	}
	if c.IsSet("horizon") {
		opts.Forecast.Horizon = c.Int("horizon")
	}
	if c.IsSet("granularity") {
		g, ok := domain.ParseGranularity(c.String("granularity"))
		if !ok {
			return opts, fmt.Errorf("unknown granularity %q", c.String("granularity"))
		}
		opts.Forecast.Granularity = g
	}
	if c.IsSet("threshold") {
		opts.AnomalyThreshold = c.Float64("threshold")
	}
	if c.IsSet("k") {
		opts.Segment.K = c.Int("k")
	}
	if c.IsSet("max-iterations") {
		opts.Segment.MaxIterations = c.Int("max-iterations")
	}
	if c.IsSet("normalize") {
		opts.Segment.Normalize = c.Bool("normalize")
	}
	if c.IsSet("limit") {
		opts.RecommendLimit = c.Int("limit")
	}
	if c.IsSet("safety-days") {
		opts.SafetyDays = c.Float64("safety-days")
	}
	if c.IsSet("cover-days") {
		opts.CoverDays = c.Float64("cover-days")
	}
	return opts, nil
}

// openSource builds the snapshot source selected by exactly one of --dir,
// --db-url, --bucket-prefix and --drive-folder.
func openSource(c *cli.Context, cfg *config.Config) (snapshot.Source, func(), error) {
	noop := func() {}

	var selected []string
	for _, name := range []string{"dir", "db-url", "bucket-prefix", "drive-folder"} {
		if c.String(name) != "" {
			selected = append(selected, name)
		}
	}
	switch len(selected) {
	case 0:
		return nil, nil, fmt.Errorf("one of --dir, --db-url, --bucket-prefix or --drive-folder is required")
	case 1:
	default:
		return nil, nil, fmt.Errorf("only one snapshot source may be given, got %v", selected)
	}

	switch selected[0] {
	case "dir":
		return snapshot.DirSource{Dir: c.String("dir")}, noop, nil

	case "db-url":
		db, err := postgres.Open(dbDriver, c.String("db-url"), cfg.Database.MaxConcurrency)
		if err != nil {
			return nil, nil, err
		}
		filter, err := dbFilter(c)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		src := repository.SnapshotSource{Repo: postgres.NewSnapshotRepository(db), Filter: filter}
		return src, func() { db.Close() }, nil

	case "bucket-prefix":
		store, err := openStorage(cfg)
		if err != nil {
			return nil, nil, err
		}
		return snapshot.BucketSource{Store: store, Prefix: c.String("bucket-prefix"), WorkDir: c.String("work-dir")}, noop, nil

	default:
		creds, err := os.ReadFile(c.String("drive-credentials"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read drive credentials: %w", err)
		}
		svc, err := drive.NewService(c.Context, creds)
		if err != nil {
			return nil, nil, err
		}
		return drive.NewSource(svc, c.String("drive-folder"), c.String("work-dir")), noop, nil
	}
}

func dbFilter(c *cli.Context) (repository.SnapshotFilter, error) {
	filter := repository.SnapshotFilter{Granularity: domain.GranularityMonth}
	if c.IsSet("granularity") {
		filter.Granularity = domain.Granularity(c.String("granularity"))
	}
	for _, f := range []struct {
		name string
		dst  *time.Time
	}{{"as-of", &filter.AsOf}, {"since", &filter.Since}} {
		raw := c.String(f.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, fmt.Errorf("invalid --%s: %w", f.name, err)
		}
		*f.dst = t
	}
	return filter, nil
}

func openStorage(cfg *config.Config) (storage.ObjectStorage, error) {
	return storage.NewMinioClient(storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		UseSSL:    cfg.Storage.UseSSL,
	})
}

func loadSnapshot(c *cli.Context, cfg *config.Config) (*domain.Snapshot, error) {
	src, closeSource, err := openSource(c, cfg)
	if err != nil {
		return nil, err
	}
	defer closeSource()

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	snap, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot from %s: %w", src.Name(), err)
	}
	return snap, nil
}
