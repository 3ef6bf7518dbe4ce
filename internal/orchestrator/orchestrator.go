package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"compositor/internal/fileutil"
	"compositor/internal/logging"
	"compositor/internal/media"
	"compositor/internal/services"
	"compositor/internal/workdir"
)

// Config bounds the orchestrator.
type Config struct {
	// MaxConcurrent is the number of processes allowed to run at once.
	MaxConcurrent int
	// QueueLimit caps waiting jobs; zero means unbounded.
	QueueLimit int
	// WorkRoot holds one work directory per running job.
	WorkRoot string
	// DefaultTimeout applies to jobs without their own timeout; zero disables.
	DefaultTimeout time.Duration
	// MinFreeBytes rejects submissions when WorkRoot has less free space.
	MinFreeBytes uint64
	// TailLines is the number of stderr lines kept as a diagnostic.
	TailLines int
}

var (
	errCancelRequested = services.Wrap(services.KindCancelled, "", "cancelled by request", context.Canceled)
	errDeadline        = services.Wrap(services.KindTimeout, "", "deadline exceeded", context.DeadlineExceeded)
	errClosed          = services.Wrap(services.KindCancelled, "", "orchestrator closed", context.Canceled)
)

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver registers an observer for lifecycle events.
func WithObserver(observer Observer) Option {
	return func(o *Orchestrator) {
		if observer != nil {
			o.observers = append(o.observers, observer)
		}
	}
}

// Orchestrator schedules and supervises jobs.
type Orchestrator struct {
	cfg       Config
	exec      Executor
	logger    *slog.Logger
	observers []Observer
	freeSpace func(string) (uint64, error)

	nextID atomic.Int64
	wg     sync.WaitGroup

	mu        sync.Mutex
	running   int
	queue     []*entry
	jobs      map[int64]*entry
	reserved  map[string]int64
	completed int
	closed    bool
}

// New constructs an orchestrator. A nil executor uses ExecExecutor.
func New(cfg Config, executor Executor, opts ...Option) (*Orchestrator, error) {
	if cfg.MaxConcurrent <= 0 {
		return nil, fmt.Errorf("max concurrent must be positive, got %d", cfg.MaxConcurrent)
	}
	if cfg.QueueLimit < 0 {
		return nil, fmt.Errorf("queue limit must be >= 0, got %d", cfg.QueueLimit)
	}
	if cfg.WorkRoot == "" {
		return nil, errors.New("work root is required")
	}
	if cfg.TailLines <= 0 {
		cfg.TailLines = DefaultTailLines
	}
	if executor == nil {
		executor = ExecExecutor{}
	}
	o := &Orchestrator{
		cfg:       cfg,
		exec:      executor,
		logger:    logging.NewNop(),
		freeSpace: freeBytes,
		jobs:      make(map[int64]*entry),
		reserved:  make(map[string]int64),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "orchestrator")
	return o, nil
}

// Submit validates and enqueues a job. The job is bound to ctx: when ctx ends
// the job is cancelled. Errors are returned only when the job is rejected at
// admission; everything after admission is reported through the Handle.
func (o *Orchestrator) Submit(ctx context.Context, job Job) (*Handle, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	const op = "submit job"
	if job.Kind == "" {
		return nil, services.Invalid(op, "job kind is required")
	}
	if job.Binary == "" {
		return nil, services.Invalid(op, "binary is required")
	}
	if job.Output != "" {
		abs, err := filepath.Abs(job.Output)
		if err != nil {
			return nil, services.Wrap(services.KindInvalidSpec, op, "resolve output path", err)
		}
		job.Output = abs
		if !hasOutputPlaceholder(job.Args) {
			return nil, services.Invalid(op, "arguments must reference %s", OutputPlaceholder)
		}
	}
	if err := o.checkFreeSpace(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, errClosed
	}
	if o.cfg.QueueLimit > 0 && o.running >= o.cfg.MaxConcurrent && len(o.queue) >= o.cfg.QueueLimit {
		o.mu.Unlock()
		return nil, services.Wrap(services.KindResourceExhausted, op,
			fmt.Sprintf("queue is full (%d waiting)", len(o.queue)), nil)
	}
	if owner, taken := o.reserved[job.Output]; job.Output != "" && taken {
		o.mu.Unlock()
		return nil, services.Invalid(op, "output %s is already reserved by job %d", job.Output, owner)
	}
	e := &entry{
		id:            o.nextID.Add(1),
		correlationID: uuid.NewString(),
		job:           job,
		state:         media.StatusQueued,
		submittedAt:   time.Now(),
		done:          make(chan struct{}),
	}
	e.progress.Store(math.Float64bits(-1))
	if job.Output != "" {
		fl, err := reserveOutput(job.Output)
		if err != nil {
			o.mu.Unlock()
			return nil, services.Wrap(services.KindInvalidSpec, op, "reserve output", err)
		}
		e.lock = fl
		o.reserved[job.Output] = e.id
	}

	base, cancel := context.WithCancelCause(ctx)
	e.ctx, e.cancel, e.stopTimer = base, cancel, func() {}
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = o.cfg.DefaultTimeout
	}
	if timeout > 0 {
		e.ctx, e.stopTimer = context.WithTimeoutCause(base, timeout, errDeadline)
	}
	o.jobs[e.id] = e
	o.mu.Unlock()

	// The entry joins the queue only after observers have seen it queued, so
	// no started or finished event can overtake this one.
	o.logFor(e).Info("job queued",
		logging.String("output", job.Output),
		logging.Duration("timeout", timeout),
	)
	o.notify(e, EventQueued, nil)

	o.mu.Lock()
	o.queue = append(o.queue, e)
	e.stopWatch = context.AfterFunc(e.ctx, func() { o.abortQueued(e) })
	o.dispatchLocked()
	o.mu.Unlock()
	return &Handle{e: e}, nil
}

// Run submits job and waits for its result. The returned error equals
// Result.Err, or the admission error when the job was rejected.
func (o *Orchestrator) Run(ctx context.Context, job Job) (Result, error) {
	handle, err := o.Submit(ctx, job)
	if err != nil {
		return RejectedResult(job, err), err
	}
	<-handle.Done()
	res, _ := handle.Result()
	return res, res.Err
}

// Cancel stops a job. Queued jobs are removed without spawning a process;
// running jobs have their process terminated. Cancelling a job that already
// finished is a no-op; only ids never issued are an error.
func (o *Orchestrator) Cancel(id int64) error {
	o.mu.Lock()
	e, ok := o.jobs[id]
	o.mu.Unlock()
	if !ok {
		if id > 0 && id <= o.nextID.Load() {
			return nil
		}
		return fmt.Errorf("job %d is unknown", id)
	}
	e.cancel(errCancelRequested)
	return nil
}

// JobInfo describes an active job.
type JobInfo struct {
	ID              int64
	CorrelationID   string
	Kind            media.JobKind
	Status          media.JobStatus
	Output          string
	SubmittedAt     time.Time
	StartedAt       time.Time
	ProgressPercent float64
}

// Stats is a point-in-time view of the orchestrator.
type Stats struct {
	MaxConcurrent int
	Running       int
	Queued        int
	Completed     int
	Jobs          []JobInfo
}

// Snapshot reports current load. Jobs are ordered by ID.
func (o *Orchestrator) Snapshot() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	stats := Stats{
		MaxConcurrent: o.cfg.MaxConcurrent,
		Running:       o.running,
		Queued:        len(o.queue),
		Completed:     o.completed,
		Jobs:          make([]JobInfo, 0, len(o.jobs)),
	}
	for _, e := range o.jobs {
		stats.Jobs = append(stats.Jobs, JobInfo{
			ID:              e.id,
			CorrelationID:   e.correlationID,
			Kind:            e.job.Kind,
			Status:          e.state,
			Output:          e.job.Output,
			SubmittedAt:     e.submittedAt,
			StartedAt:       e.startedAt,
			ProgressPercent: math.Float64frombits(e.progress.Load()),
		})
	}
	sort.Slice(stats.Jobs, func(i, j int) bool { return stats.Jobs[i].ID < stats.Jobs[j].ID })
	return stats
}

// Close rejects new submissions, cancels every active job, and waits for
// running processes to exit.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	active := make([]*entry, 0, len(o.jobs))
	for _, e := range o.jobs {
		active = append(active, e)
	}
	o.mu.Unlock()
	for _, e := range active {
		e.cancel(errClosed)
	}
	o.wg.Wait()
	for _, e := range active {
		<-e.done
	}
}

func (o *Orchestrator) checkFreeSpace() error {
	if o.cfg.MinFreeBytes == 0 {
		return nil
	}
	if err := os.MkdirAll(o.cfg.WorkRoot, 0o755); err != nil {
		return services.Wrap(services.KindResourceExhausted, "submit job", "ensure work root", err)
	}
	free, err := o.freeSpace(o.cfg.WorkRoot)
	if err != nil {
		o.logger.Debug("free space check skipped", logging.Error(err))
		return nil
	}
	if free < o.cfg.MinFreeBytes {
		return services.Wrap(services.KindResourceExhausted, "submit job",
			fmt.Sprintf("%d bytes free under %s, need %d", free, o.cfg.WorkRoot, o.cfg.MinFreeBytes), nil)
	}
	return nil
}

// dispatchLocked starts queued jobs while slots are free. Caller holds o.mu.
func (o *Orchestrator) dispatchLocked() {
	if o.closed {
		return
	}
	for o.running < o.cfg.MaxConcurrent && len(o.queue) > 0 {
		e := o.queue[0]
		o.queue[0] = nil
		o.queue = o.queue[1:]
		e.state = media.StatusRunning
		e.startedAt = time.Now()
		o.running++
		o.wg.Add(1)
		go o.execute(e)
	}
}

// abortQueued finishes a job whose context ended before it left the queue.
func (o *Orchestrator) abortQueued(e *entry) {
	o.mu.Lock()
	if e.state != media.StatusQueued {
		o.mu.Unlock()
		return
	}
	for i, queued := range o.queue {
		if queued == e {
			o.queue = append(o.queue[:i], o.queue[i+1:]...)
			break
		}
	}
	o.mu.Unlock()

	res := o.baseResult(e)
	o.applyStop(&res, e, "")
	o.finish(e, res, false)
}

func (o *Orchestrator) execute(e *entry) {
	defer o.wg.Done()
	logger := o.logFor(e)
	res := o.baseResult(e)

	if err := e.ctx.Err(); err != nil {
		o.applyStop(&res, e, "")
		o.finish(e, res, true)
		return
	}

	workDir := filepath.Join(o.cfg.WorkRoot, workdir.JobDirName(e.id, e.correlationID))
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		o.applyFailure(&res, e, services.KindResourceExhausted, "create work directory", err, "")
		o.finish(e, res, true)
		return
	}

	staging := ""
	if e.job.Output != "" {
		staging = filepath.Join(workDir, "output"+filepath.Ext(e.job.Output))
	}
	cmd := Command{Binary: e.job.Binary, Args: e.args(staging, workDir), Dir: workDir}

	o.notify(e, EventStarted, nil)
	logger.Info("job started", logging.String("binary", cmd.Binary), logging.String("work_dir", workDir))
	logger.Debug("job command", logging.Command(cmd.Binary, cmd.Args))

	stderrTail := newTail(o.cfg.TailLines)
	stderr := newLineWriter(func(line string) {
		stderrTail.add(line)
		logger.Debug("process stderr", logging.String("line", line))
	})
	var stdoutBuf bytes.Buffer
	var stdout io.Writer = &stdoutBuf
	var progress *lineWriter
	if !e.job.CaptureStdout {
		progress = o.progressWriter(e, logger)
		stdout = progress
	}

	runErr := o.exec.Run(e.ctx, cmd, stdout, stderr)
	stderr.Flush()
	if progress != nil {
		progress.Flush()
	}
	diagnostic := stderrTail.String()

	switch {
	case e.ctx.Err() != nil:
		o.applyStop(&res, e, diagnostic)
	case runErr != nil:
		kind := services.ClassifyDiagnostic(diagnostic)
		message := "process failed"
		if code, exited := ExitCode(runErr); exited {
			message = fmt.Sprintf("process exited with status %d", code)
		} else if errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, os.ErrNotExist) {
			kind = services.KindEncodeFailed
			message = "start process"
		}
		if e.job.FailureKind != "" && (kind == services.KindEncodeFailed || kind == services.KindDecodeFailed) {
			kind = e.job.FailureKind
		}
		o.applyFailure(&res, e, kind, message, runErr, diagnostic)
	default:
		if e.job.CaptureStdout {
			res.Stdout = append([]byte(nil), stdoutBuf.Bytes()...)
		}
		if e.job.Output != "" {
			size, err := finalizeOutput(staging, e.job.Output)
			if err != nil {
				kind := e.job.FailureKind
				if kind == "" {
					kind = services.KindEncodeFailed
				}
				o.applyFailure(&res, e, kind, "finalize output", err, diagnostic)
				break
			}
			res.OutputPath = e.job.Output
			res.SizeBytes = size
		}
		res.Status = media.StatusSucceeded
	}
	o.cleanup(e, workDir)
	o.finish(e, res, true)
}

// finalizeOutput checks the staging file and moves it to dest.
func finalizeOutput(staging, dest string) (int64, error) {
	info, err := os.Stat(staging)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, errors.New("process exited 0 but produced no output file")
		}
		return 0, err
	}
	if info.Size() == 0 {
		return 0, errors.New("process exited 0 but output file is empty")
	}
	return fileutil.MoveFile(staging, dest)
}

func (o *Orchestrator) cleanup(e *entry, workDir string) {
	if err := os.RemoveAll(workDir); err != nil {
		o.logFor(e).Warn("remove work directory failed", logging.String("work_dir", workDir), logging.Error(err))
	}
}

func (o *Orchestrator) removeArtifacts(e *entry) {
	for _, path := range e.job.Artifacts {
		if path == "" {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			o.logFor(e).Warn("remove artifact failed", logging.String("path", path), logging.Error(err))
		}
	}
}

func (o *Orchestrator) progressWriter(e *entry, logger *slog.Logger) *lineWriter {
	sampler := logging.NewProgressSampler(10, 30*time.Second)
	parser := &progressParser{emit: func(update progressUpdate) {
		pct := percentOf(update.OutTime, e.job.ExpectedSeconds)
		if pct >= 0 {
			e.progress.Store(math.Float64bits(pct))
		}
		if !update.Done && !sampler.ShouldLog(pct, time.Now()) {
			return
		}
		attrs := []logging.Attr{
			logging.Duration("out_time", update.OutTime),
			logging.String("speed", update.Speed),
		}
		if pct >= 0 {
			attrs = append([]logging.Attr{logging.Float64(logging.FieldProgressPercent, math.Round(pct*10)/10)}, attrs...)
		}
		logger.LogAttrs(context.Background(), slog.LevelInfo, "job progress", attrs...)
	}}
	return newLineWriter(parser.line)
}

func (o *Orchestrator) baseResult(e *entry) Result {
	return Result{JobResult: media.JobResult{
		JobID:         e.id,
		CorrelationID: e.correlationID,
		Kind:          e.job.Kind,
		Warnings:      append([]string(nil), e.job.Warnings...),
	}}
}

// applyStop records a cancellation or timeout using the context cause.
func (o *Orchestrator) applyStop(res *Result, e *entry, diagnostic string) {
	cause := context.Cause(e.ctx)
	kind := services.KindOf(cause)
	status := media.StatusCancelled
	if kind == services.KindTimeout {
		status = media.StatusTimedOut
	} else {
		kind = services.KindCancelled
	}
	res.Status = status
	res.ErrorKind = kind
	res.Diagnostic = diagnostic
	res.Err = &services.Error{Kind: kind, Op: string(e.job.Kind), Message: fmt.Sprintf("job %d stopped", e.id), Diagnostic: diagnostic, Err: cause}
}

func (o *Orchestrator) applyFailure(res *Result, e *entry, kind services.ErrorKind, message string, err error, diagnostic string) {
	res.Status = media.StatusFailed
	res.ErrorKind = kind
	res.Diagnostic = diagnostic
	res.Err = &services.Error{Kind: kind, Op: string(e.job.Kind), Message: message, Diagnostic: diagnostic, Err: err}
}

// finish publishes the terminal result and frees the job slot.
func (o *Orchestrator) finish(e *entry, res Result, started bool) {
	if e.stopWatch != nil {
		e.stopWatch()
	}
	e.stopTimer()
	e.cancel(nil)
	o.removeArtifacts(e)

	now := time.Now()
	o.mu.Lock()
	if started {
		res.QueuedFor = e.startedAt.Sub(e.submittedAt)
		res.RanFor = now.Sub(e.startedAt)
		o.running--
	} else {
		res.QueuedFor = now.Sub(e.submittedAt)
	}
	e.state = res.Status
	delete(o.jobs, e.id)
	if e.job.Output != "" && o.reserved[e.job.Output] == e.id {
		delete(o.reserved, e.job.Output)
	}
	o.completed++
	o.dispatchLocked()
	o.mu.Unlock()

	releaseOutput(e.lock)
	e.result = res
	// Observers see the terminal event before waiters are released.
	jr := res.JobResult
	o.notify(e, EventFinished, &jr)
	close(e.done)

	logger := o.logFor(e)
	if res.Succeeded() {
		logger.Info("job succeeded",
			logging.String("output", res.OutputPath),
			logging.Int64("size_bytes", res.SizeBytes),
			logging.Duration("ran_for", res.RanFor),
		)
	} else {
		logging.WarnWithContext(logger, "job did not succeed", "job_"+string(res.Status),
			logging.String(logging.FieldErrorKind, string(res.ErrorKind)),
			logging.String(logging.FieldErrorHint, hintFor(res.ErrorKind)),
			logging.String(logging.FieldImpact, "no output was produced"),
			logging.Error(res.Err),
		)
	}
}

func (o *Orchestrator) notify(e *entry, typ EventType, res *media.JobResult) {
	if len(o.observers) == 0 {
		return
	}
	evt := Event{
		Type:          typ,
		JobID:         e.id,
		CorrelationID: e.correlationID,
		Kind:          e.job.Kind,
		Output:        e.job.Output,
		At:            time.Now(),
		Result:        res,
	}
	for _, obs := range o.observers {
		obs.JobEvent(evt)
	}
}

func (o *Orchestrator) logFor(e *entry) *slog.Logger {
	ctx := services.WithJob(context.Background(), services.JobContext{
		ID:            e.id,
		Kind:          string(e.job.Kind),
		CorrelationID: e.correlationID,
	})
	return logging.WithContext(ctx, o.logger)
}

func hintFor(kind services.ErrorKind) string {
	switch kind {
	case services.KindDecodeFailed:
		return "check that the input file is a readable media file"
	case services.KindResourceExhausted:
		return "free disk space or lower engine.max_concurrent"
	case services.KindTimeout:
		return "raise engine.job_timeout_seconds or shorten the input"
	case services.KindCancelled:
		return "job was cancelled"
	case services.KindProbeFailed:
		return "run ffprobe on the input to inspect it"
	default:
		return "inspect the diagnostic for the ffmpeg error"
	}
}

// RejectedResult describes a job refused before it was queued.
func RejectedResult(job Job, err error) Result {
	return Result{
		JobResult: media.JobResult{
			Kind:       job.Kind,
			Status:     media.StatusFailed,
			ErrorKind:  services.KindOf(err),
			Diagnostic: services.DiagnosticOf(err),
			Warnings:   append([]string(nil), job.Warnings...),
		},
		Err: err,
	}
}
