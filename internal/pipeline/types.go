package pipeline

import (
	"time"
)

// Config holds configuration for a batch run
type Config struct {
	WorkerCount   int           // Number of concurrent workers
	RetryAttempts int           // Attempts per job, first one included
	RetryBackoff  time.Duration // Backoff between attempts
	OutputDir     string        // Local directory for report JSON, empty to skip
	UploadPrefix  string        // Object storage prefix for report JSON
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		WorkerCount:   4,
		RetryAttempts: 3,
		RetryBackoff:  2 * time.Second,
		UploadPrefix:  "reports",
	}
}

// RunStatus represents the current state of a batch run
type RunStatus string

const (
	StatusPending    RunStatus = "pending"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// JobStatus represents the state of a single snapshot job
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Run tracks a single batch execution
type Run struct {
	ID           string     `json:"id"`
	Status       RunStatus  `json:"status"`
	TotalJobs    int        `json:"total_jobs"`
	Completed    int        `json:"completed"`
	Failed       int        `json:"failed"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Jobs         []*Job     `json:"jobs"`
}

// Job tracks the report computation for one snapshot source
type Job struct {
	ID            int        `json:"id"`
	Source        string     `json:"source"`
	Status        JobStatus  `json:"status"`
	SnapshotLabel string     `json:"snapshot_label,omitempty"`
	ReportID      string     `json:"report_id,omitempty"`
	OutputPath    string     `json:"output_path,omitempty"`
	ObjectKey     string     `json:"object_key,omitempty"`
	Skipped       []string   `json:"skipped,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	RetryCount    int        `json:"retry_count"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	Duration      string     `json:"duration,omitempty"`
}
