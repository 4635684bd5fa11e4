package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
)

// SnapshotFilter bounds the history read into a snapshot.
type SnapshotFilter struct {
	// AsOf is the exclusive upper bound; zero means now.
	AsOf time.Time
	// Since is the inclusive lower bound for sales history; zero means all.
	Since       time.Time
	Granularity domain.Granularity
}

// SnapshotRepository reads a consistent, read-only view of the business
// records the analyses run on.
type SnapshotRepository interface {
	LoadSnapshot(ctx context.Context, filter SnapshotFilter) (*domain.Snapshot, error)
	AvailablePeriods(ctx context.Context, granularity domain.Granularity, limit int) ([]time.Time, error)
}

// SnapshotSource adapts a repository to the snapshot source contract used by
// the batch runner and the CLI.
type SnapshotSource struct {
	Repo   SnapshotRepository
	Filter SnapshotFilter
	Label  string
}

func (s SnapshotSource) Name() string {
	if s.Label != "" {
		return "db:" + s.Label
	}
	return "db"
}

// Periods lists the most recent history periods at the filter's granularity.
func (s SnapshotSource) Periods(ctx context.Context, limit int) ([]time.Time, error) {
	return s.Repo.AvailablePeriods(ctx, s.Filter.Granularity, limit)
}

func (s SnapshotSource) Load(ctx context.Context) (*domain.Snapshot, error) {
	snap, err := s.Repo.LoadSnapshot(ctx, s.Filter)
	if err != nil {
		return nil, err
	}
	if s.Label != "" {
		snap.Label = s.Label
	}
	return snap, nil
}
