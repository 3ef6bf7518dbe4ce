package logging

import (
	"context"
	"log/slog"

	"compositor/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized structured logging key for orchestrator job identifiers.
	FieldJobID = "job_id"
	// FieldJobKind is the standardized structured logging key for the job kind (transcode, concat, ...).
	FieldJobKind = "job_kind"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a log line so it can be filtered without parsing the message.
	FieldEventType = "event_type"
	// FieldErrorKind carries the error taxonomy kind of a failed operation.
	FieldErrorKind = "error_kind"
	// FieldErrorHint suggests the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldProgressPercent reports job completion as 0-100.
	FieldProgressPercent = "percent"
)

// ContextFields extracts the job identity stored by services.WithJob as
// slog attributes.
func ContextFields(ctx context.Context) []slog.Attr {
	job, ok := services.JobFromContext(ctx)
	if !ok {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if job.ID != 0 {
		fields = append(fields, slog.Int64(FieldJobID, job.ID))
	}
	if job.Kind != "" {
		fields = append(fields, slog.String(FieldJobKind, job.Kind))
	}
	if job.CorrelationID != "" {
		fields = append(fields, slog.String(FieldCorrelationID, job.CorrelationID))
	}
	return fields
}

// WithContext returns logger tagged with the job identity carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(toArgs(fields)...)
}
