package main

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"compositor/internal/media"
	"compositor/internal/services"
)

var titleCaser = cases.Title(language.Und)

// humanLabel turns identifiers such as "timed_out" or "blank-generate" into
// "Timed Out" and "Blank Generate".
func humanLabel(value string) string {
	value = strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(value))
	if value == "" {
		return "-"
	}
	return titleCaser.String(value)
}

func statusKindFor(status media.JobStatus) statusKind {
	switch status {
	case media.StatusSucceeded:
		return statusOK
	case media.StatusCancelled:
		return statusWarn
	case media.StatusFailed, media.StatusTimedOut:
		return statusError
	default:
		return statusInfo
	}
}

func errorKindLabel(kind services.ErrorKind) string {
	if kind == "" {
		return "-"
	}
	return humanLabel(string(kind))
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	return formatDuration(time.Duration(seconds * float64(time.Second)))
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func formatSize(bytes int64) string {
	if bytes <= 0 {
		return "-"
	}
	return humanize.IBytes(uint64(bytes))
}

// formatAge renders t relative to now, e.g. "3 minutes ago".
func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
