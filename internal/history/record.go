package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"compositor/internal/media"
	"compositor/internal/orchestrator"
)

func (s *Store) recordQueued(ctx context.Context, evt orchestrator.Event) error {
	// Duplicate deliveries keep the first row.
	return s.exec(ctx,
		`INSERT INTO jobs (correlation_id, job_id, kind, status, output_path, queued_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(correlation_id) DO NOTHING`,
		evt.CorrelationID,
		evt.JobID,
		string(evt.Kind),
		string(media.StatusQueued),
		nullableString(evt.Output),
		formatTime(evt.At),
	)
}

func (s *Store) recordStarted(ctx context.Context, evt orchestrator.Event) error {
	return s.exec(ctx,
		`UPDATE jobs SET status = ?, started_at = ? WHERE correlation_id = ?`,
		string(media.StatusRunning),
		formatTime(evt.At),
		evt.CorrelationID,
	)
}

func (s *Store) recordFinished(ctx context.Context, evt orchestrator.Event) error {
	if evt.Result == nil {
		return fmt.Errorf("finished event for job %d carries no result", evt.JobID)
	}
	res := evt.Result
	var warnings any
	if len(res.Warnings) > 0 {
		data, err := json.Marshal(res.Warnings)
		if err != nil {
			return fmt.Errorf("marshal warnings: %w", err)
		}
		warnings = string(data)
	}
	// Jobs cancelled before they were queued still get a row.
	return s.exec(ctx,
		`INSERT INTO jobs (
            correlation_id, job_id, kind, status, output_path, size_bytes,
            duration_seconds, width, height, error_kind, diagnostic, warnings_json,
            queued_at, finished_at, queued_ms, ran_ms
         ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(correlation_id) DO UPDATE SET
            status = excluded.status,
            output_path = COALESCE(excluded.output_path, jobs.output_path),
            size_bytes = excluded.size_bytes,
            duration_seconds = excluded.duration_seconds,
            width = excluded.width,
            height = excluded.height,
            error_kind = excluded.error_kind,
            diagnostic = excluded.diagnostic,
            warnings_json = excluded.warnings_json,
            finished_at = excluded.finished_at,
            queued_ms = excluded.queued_ms,
            ran_ms = excluded.ran_ms`,
		evt.CorrelationID,
		evt.JobID,
		string(evt.Kind),
		string(res.Status),
		nullableString(res.OutputPath),
		res.SizeBytes,
		res.DurationSeconds,
		res.Width,
		res.Height,
		nullableString(string(res.ErrorKind)),
		nullableString(res.Diagnostic),
		warnings,
		formatTime(evt.At.Add(-res.QueuedFor-res.RanFor)),
		formatTime(evt.At),
		res.QueuedFor.Milliseconds(),
		res.RanFor.Milliseconds(),
	)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}
