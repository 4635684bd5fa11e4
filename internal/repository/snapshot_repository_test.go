package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
)

type stubRepo struct {
	snap   *domain.Snapshot
	err    error
	filter SnapshotFilter
}

func (s *stubRepo) LoadSnapshot(ctx context.Context, filter SnapshotFilter) (*domain.Snapshot, error) {
	s.filter = filter
	return s.snap, s.err
}

func (s *stubRepo) AvailablePeriods(ctx context.Context, g domain.Granularity, limit int) ([]time.Time, error) {
	return nil, nil
}

func TestSnapshotSource(t *testing.T) {
	repo := &stubRepo{snap: &domain.Snapshot{Label: "2024-07-01"}}
	filter := SnapshotFilter{Granularity: domain.GranularityWeek}

	src := SnapshotSource{Repo: repo, Filter: filter, Label: "weekly"}
	snap, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "weekly", snap.Label)
	assert.Equal(t, filter, repo.filter)
	assert.Equal(t, "db:weekly", src.Name())
	assert.Equal(t, "db", SnapshotSource{Repo: repo}.Name())
}

func TestSnapshotSourceError(t *testing.T) {
	src := SnapshotSource{Repo: &stubRepo{err: errors.New("down")}}
	_, err := src.Load(context.Background())
	assert.EqualError(t, err, "down")
}
