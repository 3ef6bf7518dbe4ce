package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"compositor/internal/media"
	"compositor/internal/services"
)

const jobColumns = "correlation_id, job_id, kind, status, output_path, size_bytes, duration_seconds, width, height, error_kind, diagnostic, warnings_json, queued_at, started_at, finished_at, queued_ms, ran_ms"

// Get returns the row for correlationID.
func (s *Store) Get(ctx context.Context, correlationID string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE correlation_id = ?",
		strings.TrimSpace(correlationID),
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, correlationID)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get job: %w", err)
	}
	return rec, nil
}

// List returns rows matching filter, newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Record, error) {
	var (
		clauses []string
		args    []any
	)
	if len(filter.Kinds) > 0 {
		clauses = append(clauses, "kind IN ("+placeholders(len(filter.Kinds))+")")
		for _, kind := range filter.Kinds {
			args = append(args, string(kind))
		}
	}
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, "status IN ("+placeholders(len(filter.Statuses))+")")
		for _, status := range filter.Statuses {
			args = append(args, string(status))
		}
	}
	if !filter.Since.IsZero() {
		clauses = append(clauses, "queued_at >= ?")
		args = append(args, formatTime(filter.Since))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := "SELECT " + jobColumns + " FROM jobs"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY queued_at DESC, job_id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return records, nil
}

// Prune deletes terminal rows that finished before cutoff and returns how
// many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM jobs WHERE finished_at IS NOT NULL AND finished_at < ?`,
			formatTime(cutoff),
		)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return removed, nil
}

// Counts returns the number of rows per status.
func (s *Store) Counts(ctx context.Context) (map[media.JobStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM jobs GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[media.JobStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[media.JobStatus(status)] = n
	}
	return counts, rows.Err()
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		rec        Record
		kind       string
		status     string
		output     sql.NullString
		errorKind  sql.NullString
		diagnostic sql.NullString
		warnings   sql.NullString
		queuedRaw  string
		startedRaw sql.NullString
		finishRaw  sql.NullString
		queuedMS   int64
		ranMS      int64
	)
	if err := scanner.Scan(
		&rec.CorrelationID,
		&rec.JobID,
		&kind,
		&status,
		&output,
		&rec.SizeBytes,
		&rec.DurationSeconds,
		&rec.Width,
		&rec.Height,
		&errorKind,
		&diagnostic,
		&warnings,
		&queuedRaw,
		&startedRaw,
		&finishRaw,
		&queuedMS,
		&ranMS,
	); err != nil {
		return Record{}, err
	}

	rec.Kind = media.JobKind(kind)
	rec.Status = media.JobStatus(status)
	rec.OutputPath = output.String
	rec.ErrorKind = services.ErrorKind(errorKind.String)
	rec.Diagnostic = diagnostic.String
	if warnings.Valid && warnings.String != "" {
		if err := json.Unmarshal([]byte(warnings.String), &rec.Warnings); err != nil {
			return Record{}, fmt.Errorf("decode warnings: %w", err)
		}
	}
	rec.QueuedAt = parseTime(queuedRaw)
	rec.StartedAt = parseTime(startedRaw.String)
	rec.FinishedAt = parseTime(finishRaw.String)
	rec.QueuedFor = time.Duration(queuedMS) * time.Millisecond
	rec.RanFor = time.Duration(ranMS) * time.Millisecond
	return rec, nil
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
