package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"compositor/internal/logging"
	"compositor/internal/orchestrator"
	"compositor/internal/services"
)

// Exit codes by failure class. Anything unclassified exits 1.
const (
	exitFailure   = 1
	exitUsage     = 2
	exitTimeout   = 3
	exitCancelled = 130
)

func exitCode(err error) int {
	switch services.KindOf(err) {
	case services.KindInvalidSpec, services.KindInputNotFound:
		return exitUsage
	case services.KindTimeout:
		return exitTimeout
	case services.KindCancelled:
		return exitCancelled
	default:
		return exitFailure
	}
}

// jobError is returned after a job result has already been printed, so main
// only needs the exit code.
type jobError struct {
	err error
}

func (e *jobError) Error() string { return e.err.Error() }

func (e *jobError) Unwrap() error { return e.err }

// printResult writes res to stdout and returns err for the exit status.
func printResult(ctx *commandContext, cmd *cobra.Command, res orchestrator.Result, err error) error {
	if ctx.jsonOutput() {
		if encErr := writeJSON(cmd, res.JobResult); encErr != nil {
			return encErr
		}
	} else {
		printResultText(cmd, res)
	}
	if err == nil {
		return nil
	}
	return &jobError{err: err}
}

func printResultText(cmd *cobra.Command, res orchestrator.Result) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	subject := logging.FormatSubject(strconv.FormatInt(res.JobID, 10), string(res.Kind))
	if res.JobID == 0 {
		subject = humanLabel(string(res.Kind))
	}
	fmt.Fprintln(out, renderStatusLine(subject, statusKindFor(res.Status), humanLabel(string(res.Status)), colorize))

	if res.Succeeded() {
		fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Output:", res.OutputPath)
		details := []string{formatSize(res.SizeBytes)}
		if res.DurationSeconds > 0 {
			details = append(details, formatSeconds(res.DurationSeconds))
		}
		if res.Width > 0 && res.Height > 0 {
			details = append(details, fmt.Sprintf("%dx%d", res.Width, res.Height))
		}
		fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Details:", strings.Join(details, ", "))
		if res.RanFor > 0 {
			fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Elapsed:", formatDuration(res.RanFor))
		}
	} else {
		fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, "Error:", errorKindLabel(res.ErrorKind))
		if res.Diagnostic != "" {
			errOut := cmd.ErrOrStderr()
			fmt.Fprintln(errOut, "ffmpeg said:")
			for line := range strings.SplitSeq(strings.TrimRight(res.Diagnostic, "\n"), "\n") {
				fmt.Fprintln(errOut, "  "+line)
			}
		}
	}
	for _, warning := range res.Warnings {
		fmt.Fprintln(out, renderStatusLine("Warning", statusWarn, warning, colorize))
	}
}

// isJobError reports whether err was already rendered as a job result.
func isJobError(err error) bool {
	var je *jobError
	return errors.As(err, &je)
}
