package media

import (
	"time"

	"compositor/internal/services"
)

// JobKind identifies what an orchestrated job does.
type JobKind string

const (
	KindTranscode JobKind = "transcode"
	KindConcat    JobKind = "concat"
	KindMix       JobKind = "mix"
	KindProbe     JobKind = "probe"
	KindThumbnail JobKind = "thumbnail"
	KindBlank     JobKind = "blank-generate"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
	StatusTimedOut  JobStatus = "timed_out"
)

// Terminal reports whether no further transitions can happen.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled, StatusTimedOut:
		return true
	default:
		return false
	}
}

// JobResult is the terminal descriptor of a job. OutputPath is only set when
// Status is StatusSucceeded; failures carry ErrorKind and Diagnostic instead.
type JobResult struct {
	JobID           int64              `json:"job_id"`
	CorrelationID   string             `json:"correlation_id"`
	Kind            JobKind            `json:"kind"`
	Status          JobStatus          `json:"status"`
	OutputPath      string             `json:"output_path,omitempty"`
	SizeBytes       int64              `json:"size_bytes,omitempty"`
	DurationSeconds float64            `json:"duration_seconds,omitempty"`
	Width           int                `json:"width,omitempty"`
	Height          int                `json:"height,omitempty"`
	ErrorKind       services.ErrorKind `json:"error_kind,omitempty"`
	Diagnostic      string             `json:"diagnostic,omitempty"`
	Warnings        []string           `json:"warnings,omitempty"`
	QueuedFor       time.Duration      `json:"queued_for"`
	RanFor          time.Duration      `json:"ran_for"`
}

// Succeeded reports whether the job completed and produced its output.
func (r JobResult) Succeeded() bool {
	return r.Status == StatusSucceeded
}
