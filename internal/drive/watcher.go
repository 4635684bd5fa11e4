package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-insights/backend-go/internal/snapshot"
)

// FileSource is the subset of Service the downloader needs.
type FileSource interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
	FindFolderByPath(ctx context.Context, path string) (string, error)
}

var _ FileSource = (*Service)(nil)

// DownloadOptions controls how files are pulled from Google Drive.
type DownloadOptions struct {
	FolderID    string
	DownloadDir string
}

// Downloader wraps a FileSource to pull snapshot tables from a folder.
type Downloader struct {
	files FileSource
}

// NewDownloader creates a new Downloader.
func NewDownloader(files FileSource) *Downloader {
	return &Downloader{files: files}
}

// DownloadSnapshot downloads the CSV, XLSX and JSON files of a Drive folder
// into DownloadDir and returns the local paths.
//
//   - CSV and JSON files are downloaded as-is.
//   - XLSX files are downloaded to a temporary .xlsx, then the first sheet is
//     converted to CSV and the temporary file removed.
func (d *Downloader) DownloadSnapshot(ctx context.Context, opts DownloadOptions) ([]string, error) {
	if opts.DownloadDir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(opts.DownloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	files, err := d.files.ListFiles(ctx, opts.FolderID)
	if err != nil {
		return nil, err
	}

	var localPaths []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ext := strings.ToLower(filepath.Ext(f.Name))
		if ext != ".csv" && ext != ".xlsx" && ext != ".json" {
			continue
		}

		localPath := filepath.Join(opts.DownloadDir, filepath.Base(f.Name))
		if err := d.download(ctx, f, localPath); err != nil {
			return nil, err
		}
		if ext != ".xlsx" {
			localPaths = append(localPaths, localPath)
			continue
		}

		csvPath := strings.TrimSuffix(localPath, filepath.Ext(localPath)) + ".csv"
		if err := convertXLSXToCSV(localPath, csvPath); err != nil {
			return nil, fmt.Errorf("failed to convert %s to csv: %w", f.Name, err)
		}
		_ = os.Remove(localPath)
		localPaths = append(localPaths, csvPath)
	}

	return localPaths, nil
}

func (d *Downloader) download(ctx context.Context, f *File, localPath string) error {
	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	defer out.Close()

	if err := d.files.DownloadFile(ctx, f.ID, out); err != nil {
		return fmt.Errorf("failed to download %s: %w", f.Name, err)
	}
	return nil
}

// Source loads a snapshot from a Drive folder path.
type Source struct {
	Downloader *Downloader
	Files      FileSource
	FolderPath string
	WorkDir    string
}

var _ snapshot.Source = (*Source)(nil)

func (s *Source) Name() string { return "drive:" + s.FolderPath }

func (s *Source) Load(ctx context.Context) (*domain.Snapshot, error) {
	folderID, err := s.Files.FindFolderByPath(ctx, s.FolderPath)
	if err != nil {
		return nil, err
	}

	dir, cleanup, err := snapshot.TempDir(s.WorkDir, "drive-"+folderID)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if _, err := s.Downloader.DownloadSnapshot(ctx, DownloadOptions{FolderID: folderID, DownloadDir: dir}); err != nil {
		return nil, err
	}

	snap, err := snapshot.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	if base := filepath.Base(strings.Trim(s.FolderPath, "/")); base != "." && base != "" {
		snap.Label = base
	} else if snap.Label == filepath.Base(dir) {
		snap.Label = folderID
	}
	return snap, nil
}

// NewSource wires a Drive folder as a snapshot source.
func NewSource(files FileSource, folderPath, workDir string) *Source {
	return &Source{
		Downloader: NewDownloader(files),
		Files:      files,
		FolderPath: folderPath,
		WorkDir:    workDir,
	}
}
