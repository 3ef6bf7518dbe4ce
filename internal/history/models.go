package history

import (
	"time"

	"compositor/internal/media"
	"compositor/internal/services"
)

// Record is one ledger row.
type Record struct {
	CorrelationID   string             `json:"correlation_id"`
	JobID           int64              `json:"job_id"`
	Kind            media.JobKind      `json:"kind"`
	Status          media.JobStatus    `json:"status"`
	OutputPath      string             `json:"output_path,omitempty"`
	SizeBytes       int64              `json:"size_bytes,omitempty"`
	DurationSeconds float64            `json:"duration_seconds,omitempty"`
	Width           int                `json:"width,omitempty"`
	Height          int                `json:"height,omitempty"`
	ErrorKind       services.ErrorKind `json:"error_kind,omitempty"`
	Diagnostic      string             `json:"diagnostic,omitempty"`
	Warnings        []string           `json:"warnings,omitempty"`
	QueuedAt        time.Time          `json:"queued_at"`
	StartedAt       time.Time          `json:"started_at,omitzero"`
	FinishedAt      time.Time          `json:"finished_at,omitzero"`
	QueuedFor       time.Duration      `json:"queued_for"`
	RanFor          time.Duration      `json:"ran_for"`
}

// Terminal reports whether the job had finished when the row was read.
func (r Record) Terminal() bool {
	return r.Status.Terminal()
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Kinds    []media.JobKind
	Statuses []media.JobStatus
	Since    time.Time
	// Limit caps the number of rows; zero means DefaultListLimit.
	Limit int
}

// DefaultListLimit is applied when Filter.Limit is zero.
const DefaultListLimit = 50
