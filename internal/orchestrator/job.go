package orchestrator

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"compositor/internal/media"
	"compositor/internal/services"
)

// Placeholders substituted into Job.Args when the job starts.
const (
	// OutputPlaceholder is replaced by the staging file inside the job work
	// directory. The orchestrator moves it to Job.Output on success.
	OutputPlaceholder = "{output}"
	// WorkDirPlaceholder is replaced by the job work directory.
	WorkDirPlaceholder = "{workdir}"
)

// Job describes one external process invocation.
type Job struct {
	Kind   media.JobKind
	Binary string
	Args   []string
	// Output is the final destination. Jobs without an output file (probes)
	// leave it empty and succeed on exit status alone.
	Output string
	// Timeout overrides Config.DefaultTimeout when positive.
	Timeout time.Duration
	// CaptureStdout keeps process stdout in Result.Stdout instead of parsing
	// it as -progress output.
	CaptureStdout bool
	// ExpectedSeconds is the expected output duration, used to turn progress
	// timestamps into a percentage.
	ExpectedSeconds float64
	// Artifacts are extra paths removed when the job reaches a terminal state.
	Artifacts []string
	// Warnings are copied into the result.
	Warnings []string
	// FailureKind replaces the generic decode and encode classifications for
	// jobs that are not encodes (probes report ProbeFailed).
	FailureKind services.ErrorKind
}

// Result is the terminal outcome of a job.
type Result struct {
	media.JobResult
	// Stdout holds process stdout for jobs submitted with CaptureStdout.
	Stdout []byte `json:"-"`
	// Err is nil on success and a *services.Error otherwise.
	Err error `json:"-"`
}

// Handle tracks a submitted job.
type Handle struct {
	e *entry
}

// ID returns the job identifier.
func (h *Handle) ID() int64 { return h.e.id }

// CorrelationID returns the job correlation identifier.
func (h *Handle) CorrelationID() string { return h.e.correlationID }

// Done is closed once the job reaches a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.e.done }

// Wait blocks until the job finishes or ctx ends. Abandoning the wait does not
// cancel the job.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case <-h.e.done:
		return h.e.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Await blocks until the job reaches a terminal state and returns its result.
func (h *Handle) Await() Result {
	<-h.e.done
	return h.e.result
}

// Result returns the terminal result, or false when the job is still active.
func (h *Handle) Result() (Result, bool) {
	select {
	case <-h.e.done:
		return h.e.result, true
	default:
		return Result{}, false
	}
}

type entry struct {
	id            int64
	correlationID string
	job           Job

	ctx       context.Context
	cancel    context.CancelCauseFunc
	stopTimer context.CancelFunc
	stopWatch func() bool

	lock *flock.Flock

	// guarded by Orchestrator.mu
	state       media.JobStatus
	submittedAt time.Time
	startedAt   time.Time

	progress atomic.Uint64 // math.Float64bits of percent

	done   chan struct{}
	result Result
}

func (e *entry) args(staging, workDir string) []string {
	out := make([]string, len(e.job.Args))
	for i, arg := range e.job.Args {
		arg = strings.ReplaceAll(arg, OutputPlaceholder, staging)
		out[i] = strings.ReplaceAll(arg, WorkDirPlaceholder, workDir)
	}
	return out
}

func hasOutputPlaceholder(args []string) bool {
	for _, arg := range args {
		if strings.Contains(arg, OutputPlaceholder) {
			return true
		}
	}
	return false
}
