package engine

import (
	"time"
)

// Kind selects the per-kind transfer policy of a job.
type Kind string

const (
	// KindBackup copies files sequentially; failed files are skipped and
	// the run is logged to the history log.
	KindBackup Kind = "backup"

	// KindDelivery copies files sequentially under an optional naming
	// template and writes a manifest; any file failure fails the job.
	KindDelivery Kind = "delivery"

	// KindArchive moves a source tree; any file failure fails the job and
	// the source is only removed after full success.
	KindArchive Kind = "archive"

	// KindCopy is a generic copy that fans files out in parallel; failed
	// files are skipped.
	KindCopy Kind = "copy"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusFailed     Status = "Failed"
	StatusCancelled  Status = "Cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// JobSpec describes a requested transfer. All fields are immutable after
// submission.
type JobSpec struct {
	Kind        Kind     `json:"kind"`
	Project     string   `json:"project,omitempty"`
	Sources     []string `json:"sources"`
	Destination string   `json:"destination"`

	// NameTemplate renames delivered files using {index}, {name} and
	// {ext} placeholders. Delivery jobs only.
	NameTemplate string `json:"name_template,omitempty"`

	// Compress is declared but unsupported; submission fails with
	// ErrUnimplemented when set.
	Compress bool `json:"compress,omitempty"`
}

// Job is one tracked transfer operation. The store owns the canonical copy;
// values handed out are snapshots.
type Job struct {
	ID   string  `json:"id"`
	Spec JobSpec `json:"spec"`

	Status       Status `json:"status"`
	FilesTotal   int    `json:"files_total"`
	FilesDone    int    `json:"files_done"`
	FilesSkipped int    `json:"files_skipped"`
	BytesTotal   int64  `json:"bytes_total"`
	BytesDone    int64  `json:"bytes_done"`

	CreatedAt   time.Time `json:"created_at"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`

	Error string `json:"error,omitempty"`

	// seq is assigned by the store at submission; listings sort on it so
	// newest-first ordering is exact even when CreatedAt values collide.
	seq uint64
}

// TransferUnit is one source file being copied as part of a job. Units are
// transient; they exist only for the duration of a run.
type TransferUnit struct {
	SourcePath string
	DestPath   string
	Size       int64
}

// HistoryRecord is a terminal snapshot of a job, appended to the durable
// history log when a backup run finishes.
type HistoryRecord struct {
	JobID        string    `json:"job_id"`
	Kind         Kind      `json:"kind"`
	Project      string    `json:"project,omitempty"`
	Destination  string    `json:"destination"`
	Status       Status    `json:"status"`
	FilesTotal   int       `json:"files_total"`
	FilesDone    int       `json:"files_done"`
	FilesSkipped int       `json:"files_skipped"`
	BytesDone    int64     `json:"bytes_done"`
	CompletedAt  time.Time `json:"completed_at"`
	Error        string    `json:"error,omitempty"`
}

// snapshotRecord projects a terminal job into its history form.
func snapshotRecord(job Job) HistoryRecord {
	return HistoryRecord{
		JobID:        job.ID,
		Kind:         job.Spec.Kind,
		Project:      job.Spec.Project,
		Destination:  job.Spec.Destination,
		Status:       job.Status,
		FilesTotal:   job.FilesTotal,
		FilesDone:    job.FilesDone,
		FilesSkipped: job.FilesSkipped,
		BytesDone:    job.BytesDone,
		CompletedAt:  job.CompletedAt,
		Error:        job.Error,
	}
}
