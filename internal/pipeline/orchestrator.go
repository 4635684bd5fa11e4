package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/snapshot"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/storage"
)

// DiscoverDirs treats every immediate subdirectory of root as one snapshot.
// When root has no subdirectories it is itself the only snapshot.
func DiscoverDirs(root string) ([]snapshot.Source, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", root, err)
	}

	var sources []snapshot.Source
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			sources = append(sources, snapshot.DirSource{Dir: filepath.Join(root, e.Name())})
		}
	}
	if len(sources) == 0 {
		sources = append(sources, snapshot.DirSource{Dir: root})
	}
	return sources, nil
}

// DiscoverBucket groups the objects under root by their first path segment
// and returns one bucket source per group, sorted by prefix. Objects sitting
// directly under root form a snapshot of their own.
func DiscoverBucket(ctx context.Context, store storage.ObjectStorage, root, workDir string) ([]snapshot.Source, error) {
	objects, err := store.ListObjects(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}

	prefixes := make(map[string]struct{})
	for _, obj := range objects {
		rel := storage.ObjectRelativePath(root, obj.Key)
		dir, _, nested := strings.Cut(rel, "/")
		if nested {
			prefixes[storage.ResolveObjectKey(root, dir)] = struct{}{}
		} else {
			prefixes[strings.TrimSpace(root)] = struct{}{}
		}
	}

	keys := make([]string, 0, len(prefixes))
	for p := range prefixes {
		keys = append(keys, p)
	}
	sort.Strings(keys)

	sources := make([]snapshot.Source, len(keys))
	for i, p := range keys {
		sources[i] = snapshot.BucketSource{Store: store, Prefix: p, WorkDir: workDir}
	}
	return sources, nil
}
