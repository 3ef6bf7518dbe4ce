// Package logging assembles structured slog loggers and formatting helpers used
// across the compositor.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so engine code can tag log lines with job
// IDs, job kinds, and correlation IDs without threading them by hand. A no-op
// logger is provided for tests and wiring code that cannot fail.
package logging
