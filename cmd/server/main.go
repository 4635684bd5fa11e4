package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/api"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/cache"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/config"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/drive"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/repository"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/service"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/snapshot"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/storage"
	"github.com/andresuchdata/autopo-insights/backend-go/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Configure(cfg.Server.Mode, cfg.Server.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Initialize snapshot source
	source, closeSource, err := buildSource(ctx, cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("source", cfg.Snapshot.Source).Msg("Failed to initialize snapshot source")
	}
	defer closeSource()

	// Initialize cache
	insightCache, err := cache.NewInsightCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Cache unavailable, continuing without cache")
		insightCache = cache.NewNoopInsightCache()
	}

	// Initialize services
	insightService := service.NewInsightService(source, insights.NewEngine(), insightCache, cfg.Insights.Options())

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{InsightService: insightService}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().
			Str("port", cfg.Server.Port).
			Str("source", source.Name()).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

// buildSource wires the configured snapshot source. The returned func
// releases whatever the source holds open.
func buildSource(ctx context.Context, cfg *config.Config) (snapshot.Source, func(), error) {
	noop := func() {}

	switch cfg.Snapshot.Source {
	case "dir":
		return snapshot.DirSource{Dir: cfg.Snapshot.Dir}, noop, nil

	case "bucket":
		store, err := storage.NewMinioClient(storage.Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			return nil, nil, err
		}
		return snapshot.BucketSource{Store: store, Prefix: cfg.Snapshot.Prefix, WorkDir: cfg.Snapshot.WorkDir}, noop, nil

	case "drive":
		creds, err := os.ReadFile(cfg.Drive.CredentialsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read drive credentials: %w", err)
		}
		svc, err := drive.NewService(ctx, creds)
		if err != nil {
			return nil, nil, err
		}
		return drive.NewSource(svc, cfg.Drive.FolderPath, cfg.Drive.DownloadDir), noop, nil

	case "db", "":
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		filter := repository.SnapshotFilter{Granularity: domain.Granularity(cfg.Snapshot.Granularity)}
		src := &sinceSource{
			SnapshotSource: repository.SnapshotSource{Repo: postgres.NewSnapshotRepository(db), Filter: filter},
			sinceDays:      cfg.Snapshot.SinceDays,
		}
		return src, func() { db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown snapshot source %q", cfg.Snapshot.Source)
	}
}

// sinceSource re-anchors the lower history bound on every load so a
// long-running server keeps a rolling window.
type sinceSource struct {
	repository.SnapshotSource
	sinceDays int
}

func (s *sinceSource) Load(ctx context.Context) (*domain.Snapshot, error) {
	src := s.SnapshotSource
	if s.sinceDays > 0 {
		src.Filter.Since = time.Now().AddDate(0, 0, -s.sinceDays)
	}
	return src.Load(ctx)
}
