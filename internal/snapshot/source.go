package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/storage"
)

// Source yields one consistent snapshot per call.
type Source interface {
	Name() string
	Load(ctx context.Context) (*domain.Snapshot, error)
}

// PeriodLister is implemented by sources that can enumerate the history
// periods they hold, newest first.
type PeriodLister interface {
	Periods(ctx context.Context, limit int) ([]time.Time, error)
}

// DirSource reads a local snapshot directory.
type DirSource struct {
	Dir string
}

func (s DirSource) Name() string { return "dir:" + s.Dir }

func (s DirSource) Load(ctx context.Context) (*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadDir(s.Dir)
}

// BucketSource downloads the snapshot files under Prefix into a fresh
// directory below WorkDir on every load and removes it afterwards, so objects
// deleted from the bucket never linger and concurrent loads never share files.
type BucketSource struct {
	Store   storage.ObjectStorage
	Prefix  string
	WorkDir string
}

func (s BucketSource) Name() string { return "bucket:" + s.Prefix }

func (s BucketSource) Load(ctx context.Context) (*domain.Snapshot, error) {
	dest, cleanup, err := TempDir(s.WorkDir, sanitize(s.Prefix))
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if _, err := storage.DownloadPrefix(ctx, s.Store, s.Prefix, dest, ".csv", ".xlsx", ".json"); err != nil {
		return nil, err
	}

	snap, err := LoadDir(dest)
	if err != nil {
		return nil, err
	}
	if label := strings.Trim(s.Prefix, "/"); label != "" {
		snap.Label = filepath.Base(label)
	} else if snap.Label == filepath.Base(dest) {
		snap.Label = sanitize(s.Prefix)
	}
	return snap, nil
}

// StaticSource returns a snapshot already in memory.
type StaticSource struct {
	Snapshot *domain.Snapshot
}

func (s StaticSource) Name() string { return "static:" + s.Snapshot.Label }

func (s StaticSource) Load(ctx context.Context) (*domain.Snapshot, error) {
	return s.Snapshot, ctx.Err()
}

// TempDir creates a per-load scratch directory below workDir. The returned
// func removes it.
func TempDir(workDir, name string) (string, func(), error) {
	if workDir == "" {
		workDir = os.TempDir()
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to prepare %s: %w", workDir, err)
	}
	dir, err := os.MkdirTemp(workDir, name+"-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create scratch dir in %s: %w", workDir, err)
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}

func sanitize(prefix string) string {
	p := strings.Trim(prefix, "/")
	if p == "" {
		return "root"
	}
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(p)
}
