package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DownloadPrefix copies every object under prefix whose extension is in exts
// into destDir, keeping the path relative to prefix. It returns the local
// paths in sorted order.
func DownloadPrefix(ctx context.Context, client ObjectStorage, prefix, destDir string, exts ...string) ([]string, error) {
	listPrefix := strings.TrimSpace(prefix)
	objects, err := client.ListObjects(ctx, listPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects for prefix %s: %w", listPrefix, err)
	}

	var keys []string
	for _, obj := range objects {
		if hasExt(obj.Key, exts) {
			keys = append(keys, obj.Key)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no snapshot files found for prefix %s", prefix)
	}

	localPaths := make([]string, 0, len(keys))
	for _, key := range keys {
		localPath := filepath.Join(destDir, ObjectRelativePath(prefix, key))
		if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to prepare directory for %s: %w", localPath, err)
		}
		if err := client.DownloadObject(ctx, key, localPath); err != nil {
			return nil, err
		}
		localPaths = append(localPaths, localPath)
	}

	sort.Strings(localPaths)
	return localPaths, nil
}

func hasExt(key string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(key))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// ResolveObjectKey joins prefix and name unless name already starts with prefix.
func ResolveObjectKey(prefix, name string) string {
	if name == "" {
		return strings.TrimSpace(prefix)
	}
	if prefix == "" {
		return strings.TrimPrefix(name, "/")
	}

	prefixTrimmed := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	nameTrimmed := strings.TrimPrefix(strings.TrimSpace(name), "/")

	if strings.HasPrefix(nameTrimmed, prefixTrimmed) {
		return nameTrimmed
	}
	return fmt.Sprintf("%s/%s", prefixTrimmed, nameTrimmed)
}

// ObjectRelativePath strips prefix from key.
func ObjectRelativePath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	prefixTrimmed := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	rel := strings.TrimPrefix(key, prefixTrimmed+"/")
	if rel == "" {
		return filepath.Base(key)
	}
	return rel
}
