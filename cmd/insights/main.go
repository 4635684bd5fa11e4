package main

import (
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/autopo-insights/backend-go/pkg/logger"
)

func main() {
	_ = godotenv.Load(".env")

	if err := newApp().Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("insights failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "insights",
		Usage: "Run forecasting, segmentation, anomaly, recommendation and replenishment analyses on a snapshot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Write JSON output to this file instead of stdout",
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetOutput(os.Stderr, true)
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "forecast",
				Usage:  "Forecast the revenue series",
				Flags:  append(sourceFlags(), forecastFlags()...),
				Action: runForecast,
			},
			{
				Name:   "anomalies",
				Usage:  "Flag anomalous revenue periods",
				Flags:  append(sourceFlags(), anomalyFlags()...),
				Action: runAnomalies,
			},
			{
				Name:   "segments",
				Usage:  "Cluster customers by their feature vectors",
				Flags:  append(sourceFlags(), segmentFlags()...),
				Action: runSegments,
			},
			{
				Name:  "recommend",
				Usage: "Recommend items for one entity, or for every entity when --entity is omitted",
				Flags: append(sourceFlags(),
					&cli.StringFlag{Name: "entity", Usage: "Target entity ID"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum recommendations per entity"},
				),
				Action: runRecommend,
			},
			{
				Name:  "replenish",
				Usage: "List items at or below their reorder point",
				Flags: append(sourceFlags(), append(inventoryFlags(),
					&cli.StringFlag{Name: "urgency", Usage: "Only show this urgency (critical, high, medium)"},
				)...),
				Action: runReplenish,
			},
			{
				Name:  "abc",
				Usage: "Classify inventory items into A/B/C value classes",
				Flags: append(sourceFlags(),
					&cli.StringFlag{Name: "class", Usage: "Only show this class (A, B, C)"},
				),
				Action: runABC,
			},
			{
				Name:   "report",
				Usage:  "Run every analysis and print the combined report",
				Flags:  append(sourceFlags(), reportFlags()...),
				Action: runReport,
			},
			{
				Name:   "periods",
				Usage:  "List the most recent history periods in the database, to pick an --as-of",
				Flags:  periodFlags(),
				Action: runPeriods,
			},
			{
				Name:   "batch",
				Usage:  "Compute reports for every snapshot under a directory or bucket prefix",
				Flags:  append(batchFlags(), reportFlags()...),
				Action: runBatch,
			},
		},
	}
}
