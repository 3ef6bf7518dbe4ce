package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"compositor/internal/history"
	"compositor/internal/media"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the job history ledger",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsPruneCommand(ctx))
	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var (
		kinds    []string
		statuses []string
		since    time.Duration
		limit    int
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent jobs, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := history.Filter{Limit: limit}
			for _, kind := range kinds {
				filter.Kinds = append(filter.Kinds, media.JobKind(strings.TrimSpace(kind)))
			}
			for _, status := range statuses {
				filter.Statuses = append(filter.Statuses, media.JobStatus(strings.TrimSpace(status)))
			}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}
			return ctx.withHistory(func(store *history.Store) error {
				records, err := store.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					if records == nil {
						records = []history.Record{}
					}
					return writeJSON(cmd, records)
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No jobs recorded")
					return nil
				}
				fmt.Fprintln(out, renderJobsTable(records))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "Filter by job kind (transcode, concat, mix, probe, thumbnail, blank-generate)")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (queued, running, succeeded, failed, cancelled, timed_out)")
	cmd.Flags().DurationVar(&since, "since", 0, "Only jobs queued within this window")
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultListLimit, "Maximum rows")
	return cmd
}

func renderJobsTable(records []history.Record) string {
	headers := []string{"Correlation", "Job", "Kind", "Status", "Queued", "Ran", "Size", "Output"}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		status := humanLabel(string(rec.Status))
		if rec.ErrorKind != "" {
			status += " (" + errorKindLabel(rec.ErrorKind) + ")"
		}
		rows = append(rows, []string{
			shortID(rec.CorrelationID),
			"#" + strconv.FormatInt(rec.JobID, 10),
			humanLabel(string(rec.Kind)),
			status,
			formatAge(rec.QueuedAt),
			formatDuration(rec.RanFor),
			formatSize(rec.SizeBytes),
			rec.OutputPath,
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show CORRELATION_ID",
		Short: "Show one job, matched by full or leading correlation ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				rec, err := findRecord(cmd, store, args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, rec)
				}
				printRecord(cmd, rec)
				return nil
			})
		},
	}
}

// findRecord resolves a full correlation ID or a unique prefix of one among
// recent jobs.
func findRecord(cmd *cobra.Command, store *history.Store, id string) (history.Record, error) {
	id = strings.TrimSpace(id)
	rec, err := store.Get(cmd.Context(), id)
	if err == nil {
		return rec, nil
	}
	recent, listErr := store.List(cmd.Context(), history.Filter{Limit: 500})
	if listErr != nil {
		return history.Record{}, listErr
	}
	var matches []history.Record
	for _, candidate := range recent {
		if strings.HasPrefix(candidate.CorrelationID, id) {
			matches = append(matches, candidate)
		}
	}
	switch len(matches) {
	case 0:
		return history.Record{}, err
	case 1:
		return matches[0], nil
	default:
		return history.Record{}, fmt.Errorf("correlation prefix %q matches %d jobs", id, len(matches))
	}
}

func printRecord(cmd *cobra.Command, rec history.Record) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader("Job "+rec.CorrelationID, colorize) {
		fmt.Fprintln(out, line)
	}
	field := func(label, value string) {
		fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, label+":", value)
	}
	fmt.Fprintln(out, renderStatusLine("Status", statusKindFor(rec.Status), humanLabel(string(rec.Status)), colorize))
	field("Job", "#"+strconv.FormatInt(rec.JobID, 10))
	field("Kind", humanLabel(string(rec.Kind)))
	field("Output", valueOrDash(rec.OutputPath))
	field("Size", formatSize(rec.SizeBytes))
	field("Duration", formatSeconds(rec.DurationSeconds))
	if rec.Width > 0 {
		field("Resolution", fmt.Sprintf("%dx%d", rec.Width, rec.Height))
	}
	field("Queued", formatTimestamp(rec.QueuedAt))
	field("Started", formatTimestamp(rec.StartedAt))
	field("Finished", formatTimestamp(rec.FinishedAt))
	field("Waited", formatDuration(rec.QueuedFor))
	field("Ran", formatDuration(rec.RanFor))
	if rec.ErrorKind != "" {
		field("Error", errorKindLabel(rec.ErrorKind))
	}
	for _, warning := range rec.Warnings {
		fmt.Fprintln(out, renderStatusLine("Warning", statusWarn, warning, colorize))
	}
	if rec.Diagnostic != "" {
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader("Diagnostic", colorize) {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out, strings.TrimRight(rec.Diagnostic, "\n"))
	}
}

func valueOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func newJobsPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished jobs older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			return ctx.withHistory(func(store *history.Store) error {
				removed, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s)\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age cutoff")
	return cmd
}
