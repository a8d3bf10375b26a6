package engine

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Sample is a point-in-time projection of a running job's counters. It is
// derived, never stored: every emission recomputes it from the job state.
type Sample struct {
	JobID        string  `json:"job_id"`
	FileName     string  `json:"file_name"`
	FileIndex    int     `json:"file_index"`
	FilesTotal   int     `json:"files_total"`
	FilesDone    int     `json:"files_done"`
	FilesSkipped int     `json:"files_skipped"`
	BytesDone    int64   `json:"bytes_done"`
	BytesTotal   int64   `json:"bytes_total"`
	Speed        float64 `json:"speed_bytes_per_sec"`
	ETASeconds   float64 `json:"eta_seconds"`
}

// Reporter publishes progress to an external observer. Emission is
// fire-and-forget: implementations must never block the transfer path, and
// observer failures are swallowed by the caller.
type Reporter interface {
	Emit(sample Sample)
	EmitError(jobID string, msg string)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) Emit(Sample)              {}
func (NopReporter) EmitError(string, string) {}

// LogReporter publishes progress as structured log lines; used for headless
// operation.
type LogReporter struct {
	Log *logrus.Logger
}

func (r *LogReporter) Emit(s Sample) {
	r.Log.WithFields(logrus.Fields{
		"job_id":     s.JobID,
		"file":       s.FileName,
		"files_done": s.FilesDone,
		"files":      s.FilesTotal,
		"bytes_done": s.BytesDone,
		"bytes":      s.BytesTotal,
		"speed_bps":  s.Speed,
		"eta_sec":    s.ETASeconds,
	}).Debug("transfer progress")
}

func (r *LogReporter) EmitError(jobID string, msg string) {
	r.Log.WithField("job_id", jobID).Error(msg)
}

// computeSample derives throughput and ETA from a job snapshot, the total
// transferred byte count, and elapsed wall time. Speed is 0 before any time
// has elapsed; ETA is 0 when speed is 0 and saturates at 0 when counters run
// ahead of the estimate.
func computeSample(job Job, fileName string, fileIndex int, bytesDone int64, elapsed time.Duration) Sample {
	var speed float64
	if secs := elapsed.Seconds(); secs > 0 {
		speed = float64(bytesDone) / secs
	}

	var remaining int64
	if job.BytesTotal > bytesDone {
		remaining = job.BytesTotal - bytesDone
	}

	var eta float64
	if speed > 0 {
		eta = float64(remaining) / speed
	}

	return Sample{
		JobID:        job.ID,
		FileName:     fileName,
		FileIndex:    fileIndex,
		FilesTotal:   job.FilesTotal,
		FilesDone:    job.FilesDone,
		FilesSkipped: job.FilesSkipped,
		BytesDone:    bytesDone,
		BytesTotal:   job.BytesTotal,
		Speed:        speed,
		ETASeconds:   eta,
	}
}
