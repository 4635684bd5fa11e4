package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/insights"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/snapshot"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/storage"
)

// Runner computes one report per snapshot source with a bounded worker pool
type Runner struct {
	engine *insights.Engine
	opts   insights.Options
	cfg    Config
	store  storage.ObjectStorage
	newID  func() string
	mu     sync.Mutex
}

// NewRunner creates a batch runner. store may be nil, in which case reports
// are only written to cfg.OutputDir.
func NewRunner(engine *insights.Engine, opts insights.Options, cfg Config, store storage.ObjectStorage) *Runner {
	if engine == nil {
		engine = insights.NewEngine()
	}
	return &Runner{
		engine: engine,
		opts:   opts,
		cfg:    cfg,
		store:  store,
		newID:  uuid.NewString,
	}
}

// Run processes every source. Individual job failures do not stop the batch;
// the run is marked failed and an error is returned once all jobs finish.
func (r *Runner) Run(ctx context.Context, sources []snapshot.Source) (*Run, error) {
	run := &Run{
		ID:        r.newID(),
		Status:    StatusPending,
		TotalJobs: len(sources),
		StartedAt: time.Now(),
		Jobs:      make([]*Job, len(sources)),
	}
	for i, src := range sources {
		run.Jobs[i] = &Job{ID: i + 1, Source: src.Name(), Status: JobStatusQueued}
	}

	log.Info().Str("run", run.ID).Int("jobs", run.TotalJobs).Msg("pipeline: batch started")

	run.Status = StatusProcessing
	err := r.processParallel(ctx, run, sources)

	now := time.Now()
	run.CompletedAt = &now
	switch {
	case err != nil:
		run.Status = StatusFailed
		run.ErrorMessage = err.Error()
	case run.Failed > 0:
		run.Status = StatusFailed
		err = fmt.Errorf("%d of %d jobs failed", run.Failed, run.TotalJobs)
		run.ErrorMessage = err.Error()
	default:
		run.Status = StatusCompleted
	}

	log.Info().
		Str("run", run.ID).
		Str("status", string(run.Status)).
		Int("completed", run.Completed).
		Int("failed", run.Failed).
		Dur("duration", now.Sub(run.StartedAt)).
		Msg("pipeline: batch finished")

	return run, err
}

type task struct {
	job    *Job
	source snapshot.Source
}

// processParallel processes jobs using a worker pool
func (r *Runner) processParallel(ctx context.Context, run *Run, sources []snapshot.Source) error {
	workerCount := r.cfg.WorkerCount
	if workerCount < 1 {
		workerCount = 1
	}

	taskChan := make(chan task, len(sources))
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for t := range taskChan {
				if err := r.processJob(ctx, t.job, t.source); err != nil {
					log.Error().Err(err).
						Int("worker", workerID).
						Str("source", t.job.Source).
						Msg("pipeline: job failed")
					r.record(run, false)
					continue
				}
				r.record(run, true)
			}
		}(i)
	}

	// Enqueue jobs
	var enqueueErr error
	for i, src := range sources {
		if err := ctx.Err(); err != nil {
			enqueueErr = err
			break
		}
		taskChan <- task{job: run.Jobs[i], source: src}
	}
	close(taskChan)

	// Wait for all workers
	wg.Wait()

	if enqueueErr != nil {
		return enqueueErr
	}
	return ctx.Err()
}

func (r *Runner) record(run *Run, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok {
		run.Completed++
	} else {
		run.Failed++
	}
}

// processJob runs one job, retrying transient failures. Invalid input is
// never retried.
func (r *Runner) processJob(ctx context.Context, job *Job, src snapshot.Source) error {
	start := time.Now()
	job.Status = JobStatusProcessing

	attempts := r.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			job.RetryCount++
			log.Warn().Err(err).
				Str("source", job.Source).
				Int("attempt", attempt).
				Int("max_attempts", attempts).
				Msg("pipeline: retrying job")
			if waitErr := wait(ctx, r.cfg.RetryBackoff); waitErr != nil {
				err = waitErr
				break
			}
		}

		err = r.compute(ctx, job, src)
		if err == nil || domain.IsInvalidInput(err) || ctx.Err() != nil {
			break
		}
	}

	now := time.Now()
	job.ProcessedAt = &now
	job.Duration = now.Sub(start).String()

	if err != nil {
		job.Status = JobStatusFailed
		job.ErrorMessage = err.Error()
		return err
	}

	job.Status = JobStatusCompleted
	log.Debug().
		Str("source", job.Source).
		Str("snapshot", job.SnapshotLabel).
		Str("duration", job.Duration).
		Msg("pipeline: job completed")
	return nil
}

func (r *Runner) compute(ctx context.Context, job *Job, src snapshot.Source) error {
	snap, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	report, err := r.engine.Analyze(ctx, snap, r.opts)
	if err != nil {
		return fmt.Errorf("failed to analyze snapshot %s: %w", snap.Label, err)
	}

	job.SnapshotLabel = report.SnapshotLabel
	job.ReportID = report.ID
	job.Skipped = report.Skipped

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	name := reportFileName(report.SnapshotLabel, job.ID)

	if r.cfg.OutputDir != "" {
		path := filepath.Join(r.cfg.OutputDir, name)
		if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		job.OutputPath = path
	}

	if r.store != nil {
		key := storage.ResolveObjectKey(r.cfg.UploadPrefix, name)
		if err := r.store.UploadObject(ctx, key, payload); err != nil {
			return fmt.Errorf("failed to upload report: %w", err)
		}
		job.ObjectKey = key
	}

	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// reportFileName derives a file name from the snapshot label, falling back
// to the job number.
func reportFileName(label string, jobID int) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, strings.Trim(label, "./ "))
	if clean == "" {
		return fmt.Sprintf("snapshot-%d.json", jobID)
	}
	return clean + ".json"
}
