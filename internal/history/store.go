package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"compositor/internal/config"
	"compositor/internal/logging"
	"compositor/internal/orchestrator"
)

// ErrNotFound is returned by Get for unknown correlation IDs.
var ErrNotFound = errors.New("job not found in history")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	writeTimeout = 5 * time.Second
)

// Store is the SQLite job ledger.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open initializes or connects to the ledger at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, logger: logging.NewComponentLogger(logger, "history")}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// OpenFromConfig opens the ledger configured in cfg. It returns nil without
// error when history is disabled.
func OpenFromConfig(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if cfg == nil || !cfg.History.Enabled {
		return nil, nil
	}
	return Open(cfg.HistoryPath(), logger)
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// JobEvent implements orchestrator.Observer.
func (s *Store) JobEvent(evt orchestrator.Event) {
	if s == nil || s.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	switch evt.Type {
	case orchestrator.EventQueued:
		err = s.recordQueued(ctx, evt)
	case orchestrator.EventStarted:
		err = s.recordStarted(ctx, evt)
	case orchestrator.EventFinished:
		err = s.recordFinished(ctx, evt)
	default:
		return
	}
	if err != nil {
		logging.WarnWithContext(s.logger, "history write failed", "history_write_failed",
			logging.Int64(logging.FieldJobID, evt.JobID),
			logging.String(logging.FieldCorrelationID, evt.CorrelationID),
			logging.String("event", string(evt.Type)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "job history is incomplete"),
			logging.String(logging.FieldErrorHint, "check the history database path and permissions"),
		)
	}
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}
