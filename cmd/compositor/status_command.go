package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"compositor/internal/deps"
	"compositor/internal/history"
	"compositor/internal/media"
	"compositor/internal/workdir"
)

type statusReport struct {
	Dependencies   []deps.Status           `json:"dependencies"`
	MissingFilters []string                `json:"missing_filters,omitempty"`
	FilterError    string                  `json:"filter_error,omitempty"`
	History        string                  `json:"history,omitempty"`
	HistoryError   string                  `json:"history_error,omitempty"`
	JobCounts      map[media.JobStatus]int `json:"job_counts,omitempty"`
	MaxConcurrent  int                     `json:"max_concurrent"`
	WorkDir        string                  `json:"work_dir"`
	LeftoverDirs   int                     `json:"leftover_job_dirs"`
	LeftoverBytes  int64                   `json:"leftover_bytes"`
	Notifications  string                  `json:"notifications,omitempty"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check ffmpeg, ffprobe, and the job history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := statusReport{
				Dependencies:  deps.Check(cmd.Context(), deps.Requirements(cfg)),
				MaxConcurrent: cfg.Engine.MaxConcurrent,
				WorkDir:       cfg.Paths.WorkDir,
				Notifications: cfg.Notifications.NtfyTopic,
			}
			if dirs, err := workdir.List(cfg.Paths.WorkDir); err == nil {
				report.LeftoverDirs = len(dirs)
				for _, dir := range dirs {
					report.LeftoverBytes += dir.Size
				}
			}
			if report.Dependencies[0].Available {
				missing, err := deps.MissingFilters(cmd.Context(), cfg.FFmpegBinary(), deps.RequiredFilters)
				if err != nil {
					report.FilterError = err.Error()
				}
				report.MissingFilters = missing
			}
			if cfg.History.Enabled {
				report.History = cfg.HistoryPath()
				if err := ctx.withHistory(func(store *history.Store) error {
					counts, err := store.Counts(cmd.Context())
					report.JobCounts = counts
					return err
				}); err != nil {
					report.HistoryError = err.Error()
				}
			}

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printStatus(cmd, report)
			}
			for _, dep := range report.Dependencies {
				if !dep.Available && !dep.Optional {
					return fmt.Errorf("%s is unavailable: %s", dep.Name, dep.Detail)
				}
			}
			return nil
		},
	}
}

func printStatus(cmd *cobra.Command, report statusReport) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Dependencies", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, dep := range report.Dependencies {
		switch {
		case dep.Available && dep.Version != "":
			fmt.Fprintln(out, renderStatusLine(dep.Name, statusOK, dep.Version+" ("+dep.Command+")", colorize))
		case dep.Available:
			fmt.Fprintln(out, renderStatusLine(dep.Name, statusWarn, dep.Detail, colorize))
		default:
			fmt.Fprintln(out, renderStatusLine(dep.Name, statusError, dep.Detail, colorize))
		}
	}
	switch {
	case report.FilterError != "":
		fmt.Fprintln(out, renderStatusLine("Filters", statusWarn, report.FilterError, colorize))
	case len(report.MissingFilters) > 0:
		fmt.Fprintln(out, renderStatusLine("Filters", statusError, "missing "+strings.Join(report.MissingFilters, ", "), colorize))
	case report.Dependencies[0].Available:
		fmt.Fprintln(out, renderStatusLine("Filters", statusOK, strconv.Itoa(len(deps.RequiredFilters))+" required filters present", colorize))
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Engine", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Concurrency", statusInfo, strconv.Itoa(report.MaxConcurrent)+" job(s)", colorize))
	fmt.Fprintln(out, renderStatusLine("Work dir", statusInfo, report.WorkDir, colorize))
	if report.LeftoverDirs > 0 {
		detail := fmt.Sprintf("%d job dir(s), %s", report.LeftoverDirs, formatSize(report.LeftoverBytes))
		fmt.Fprintln(out, renderStatusLine("Leftovers", statusWarn, detail, colorize))
	}
	if report.Notifications != "" {
		fmt.Fprintln(out, renderStatusLine("Notifications", statusInfo, report.Notifications, colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Notifications", statusInfo, "disabled", colorize))
	}
	if report.History == "" {
		fmt.Fprintln(out, renderStatusLine("History", statusInfo, "disabled", colorize))
		return
	}
	if report.HistoryError != "" {
		fmt.Fprintln(out, renderStatusLine("History", statusError, report.HistoryError, colorize))
		return
	}
	fmt.Fprintln(out, renderStatusLine("History", statusInfo, report.History, colorize))
	statuses := make([]string, 0, len(report.JobCounts))
	for status := range report.JobCounts {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		count := report.JobCounts[media.JobStatus(status)]
		fmt.Fprintln(out, renderStatusLine(humanLabel(status), statusKindFor(media.JobStatus(status)), strconv.Itoa(count), colorize))
	}
}
