package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStorage struct {
	objects map[string][]byte
	listErr error
}

func (m *memoryStorage) ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []ObjectInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (m *memoryStorage) DownloadObject(ctx context.Context, key, destPath string) error {
	return os.WriteFile(destPath, m.objects[key], 0o644)
}

func (m *memoryStorage) UploadObject(ctx context.Context, key string, data []byte) error {
	m.objects[key] = data
	return nil
}

func TestDownloadPrefix(t *testing.T) {
	store := &memoryStorage{objects: map[string][]byte{
		"snapshots/2024-06/revenue.csv":   []byte("period,value\n"),
		"snapshots/2024-06/inventory.csv": []byte("id\n"),
		"snapshots/2024-06/notes.txt":     []byte("ignore"),
		"snapshots/2024-05/revenue.csv":   []byte("old"),
	}}
	dir := t.TempDir()

	paths, err := DownloadPrefix(context.Background(), store, "snapshots/2024-06/", dir, ".csv")
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "inventory.csv"),
		filepath.Join(dir, "revenue.csv"),
	}, paths)

	data, err := os.ReadFile(filepath.Join(dir, "revenue.csv"))
	require.NoError(t, err)
	assert.Equal(t, "period,value\n", string(data))
}

func TestDownloadPrefixErrors(t *testing.T) {
	empty := &memoryStorage{objects: map[string][]byte{"a/readme.md": nil}}
	_, err := DownloadPrefix(context.Background(), empty, "a/", t.TempDir(), ".csv")
	assert.ErrorContains(t, err, "no snapshot files")

	broken := &memoryStorage{listErr: errors.New("denied")}
	_, err = DownloadPrefix(context.Background(), broken, "a/", t.TempDir())
	assert.ErrorContains(t, err, "denied")
}

func TestResolveObjectKey(t *testing.T) {
	assert.Equal(t, "reports", ResolveObjectKey("reports", ""))
	assert.Equal(t, "r.json", ResolveObjectKey("", "/r.json"))
	assert.Equal(t, "reports/r.json", ResolveObjectKey("reports/", "r.json"))
	assert.Equal(t, "reports/r.json", ResolveObjectKey("reports", "/reports/r.json"))
}

func TestObjectRelativePath(t *testing.T) {
	assert.Equal(t, "a/b.csv", ObjectRelativePath("", "a/b.csv"))
	assert.Equal(t, "b.csv", ObjectRelativePath("a/", "a/b.csv"))
	assert.Equal(t, "x/b.csv", ObjectRelativePath("a", "a/x/b.csv"))
}

func TestSplitEndpoint(t *testing.T) {
	host, secure := splitEndpoint("https://s3.example.com/", false)
	assert.Equal(t, "s3.example.com", host)
	assert.True(t, secure)

	host, secure = splitEndpoint("http://localhost:9000", true)
	assert.Equal(t, "localhost:9000", host)
	assert.False(t, secure)

	host, secure = splitEndpoint("minio:9000", true)
	assert.Equal(t, "minio:9000", host)
	assert.True(t, secure)
}

func TestNewMinioClientValidation(t *testing.T) {
	_, err := NewMinioClient(Config{})
	assert.Error(t, err)

	_, err = NewMinioClient(Config{Endpoint: "localhost:9000", Bucket: "b"})
	assert.ErrorContains(t, err, "credentials")

	_, err = NewMinioClient(Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"})
	assert.ErrorContains(t, err, "bucket")

	c, err := NewMinioClient(Config{Endpoint: "http://localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "b"})
	require.NoError(t, err)
	assert.Equal(t, "b", c.bucket)
}
