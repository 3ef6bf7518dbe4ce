package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"compositor/internal/audiomix"
	"compositor/internal/concat"
	"compositor/internal/config"
	"compositor/internal/history"
	"compositor/internal/logging"
	"compositor/internal/media"
	"compositor/internal/media/ffprobe"
	"compositor/internal/media/generate"
	"compositor/internal/notifications"
	"compositor/internal/orchestrator"
	"compositor/internal/transcode"
	"compositor/internal/workdir"
)

// Options customize a Composer beyond what configuration covers.
type Options struct {
	Logger *slog.Logger
	// Executor replaces the process executor; tests script ffmpeg with it.
	Executor orchestrator.Executor
	// Observers receive every job lifecycle event.
	Observers []orchestrator.Observer
	// DisableHistory skips the ledger even when configuration enables it.
	DisableHistory bool
}

// Composer wires the engines onto a shared orchestrator.
type Composer struct {
	cfg       *config.Config
	logger    *slog.Logger
	orch      *orchestrator.Orchestrator
	history   *history.Store
	notifier  *notifications.Notifier
	prober    *ffprobe.Prober
	transcode *transcode.Engine
	concat    *concat.Engine
	mix       *audiomix.Engine
	generate  *generate.Generator
}

// New validates cfg, prepares its directories, and starts an orchestrator.
func New(cfg *config.Config, opts Options) (*Composer, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	workdir.Sweep(context.Background(), cfg.Paths.WorkDir, cfg.StaleWorkAge(), logger)

	var store *history.Store
	if !opts.DisableHistory {
		var err error
		store, err = history.OpenFromConfig(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
	}

	executor := opts.Executor
	if executor == nil {
		executor = orchestrator.ExecExecutor{GracePeriod: cfg.GracePeriod()}
	}
	orchOpts := []orchestrator.Option{orchestrator.WithLogger(logger)}
	if store != nil {
		orchOpts = append(orchOpts, orchestrator.WithObserver(store))
	}
	notifier := notifications.New(cfg, logger)
	if notifier != nil {
		orchOpts = append(orchOpts, orchestrator.WithObserver(notifier))
	}
	for _, obs := range opts.Observers {
		orchOpts = append(orchOpts, orchestrator.WithObserver(obs))
	}
	orch, err := orchestrator.New(orchestrator.Config{
		MaxConcurrent:  cfg.Engine.MaxConcurrent,
		QueueLimit:     cfg.Engine.QueueLimit,
		WorkRoot:       cfg.Paths.WorkDir,
		DefaultTimeout: cfg.JobTimeout(),
		MinFreeBytes:   cfg.MinFreeBytes(),
	}, executor, orchOpts...)
	if err != nil {
		notifier.Close(context.Background())
		_ = store.Close()
		return nil, fmt.Errorf("start orchestrator: %w", err)
	}

	prober := ffprobe.NewProber(cfg.FFprobeBinary(), orch)
	c := &Composer{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "composer"),
		orch:      orch,
		history:   store,
		notifier:  notifier,
		prober:    prober,
		transcode: transcode.New(cfg, orch, prober, logger),
		concat:    concat.New(concat.OptionsFromConfig(cfg), orch, prober, logger),
		mix:       audiomix.New(audiomix.OptionsFromConfig(cfg), orch, prober, logger),
		generate:  generate.New(cfg, orch, prober, logger),
	}
	c.logger.Debug("composer ready",
		logging.Int("max_concurrent", cfg.Engine.MaxConcurrent),
		logging.String("work_dir", cfg.Paths.WorkDir),
		logging.Bool("history", store != nil),
		logging.Bool("notifications", notifier != nil),
	)
	return c, nil
}

// Config returns the configuration the composer was built with.
func (c *Composer) Config() *config.Config { return c.cfg }

// History returns the job ledger, or nil when history is disabled.
func (c *Composer) History() *history.Store { return c.history }

// Probe returns normalized metadata for path.
func (c *Composer) Probe(ctx context.Context, path string) (ffprobe.Info, error) {
	return c.prober.Probe(ctx, path)
}

// Transcode re-encodes a single input and waits for the result.
func (c *Composer) Transcode(ctx context.Context, spec media.TranscodeSpec) (orchestrator.Result, error) {
	return c.transcode.Transcode(ctx, spec)
}

// SubmitTranscode queues a transcode.
func (c *Composer) SubmitTranscode(ctx context.Context, spec media.TranscodeSpec) (*orchestrator.Handle, error) {
	return c.transcode.Submit(ctx, spec)
}

// Concat joins clips in order and waits for the result.
func (c *Composer) Concat(ctx context.Context, spec media.ConcatSpec) (orchestrator.Result, error) {
	return c.concat.Concat(ctx, spec)
}

// SubmitConcat queues a concatenation.
func (c *Composer) SubmitConcat(ctx context.Context, spec media.ConcatSpec) (*orchestrator.Handle, error) {
	return c.concat.Submit(ctx, spec)
}

// Mix layers audio tracks under a video and waits for the result.
func (c *Composer) Mix(ctx context.Context, spec media.MixSpec) (orchestrator.Result, error) {
	return c.mix.Mix(ctx, spec)
}

// SubmitMix queues a mix.
func (c *Composer) SubmitMix(ctx context.Context, spec media.MixSpec) (*orchestrator.Handle, error) {
	return c.mix.Submit(ctx, spec)
}

// Thumbnail extracts one frame and waits for the result.
func (c *Composer) Thumbnail(ctx context.Context, spec media.ThumbnailSpec) (orchestrator.Result, error) {
	return c.generate.Thumbnail(ctx, spec)
}

// SubmitThumbnail queues a thumbnail extraction.
func (c *Composer) SubmitThumbnail(ctx context.Context, spec media.ThumbnailSpec) (*orchestrator.Handle, error) {
	return c.generate.SubmitThumbnail(ctx, spec)
}

// Blank generates a placeholder clip and waits for the result.
func (c *Composer) Blank(ctx context.Context, spec media.BlankSpec) (orchestrator.Result, error) {
	return c.generate.Blank(ctx, spec)
}

// SubmitBlank queues a placeholder clip.
func (c *Composer) SubmitBlank(ctx context.Context, spec media.BlankSpec) (*orchestrator.Handle, error) {
	return c.generate.SubmitBlank(ctx, spec)
}

// Cancel stops a queued or running job.
func (c *Composer) Cancel(id int64) error {
	return c.orch.Cancel(id)
}

// Snapshot reports orchestrator load.
func (c *Composer) Snapshot() orchestrator.Stats {
	return c.orch.Snapshot()
}

// Close cancels active jobs, waits for their processes, flushes pending
// notifications, and closes the ledger.
func (c *Composer) Close() error {
	c.orch.Close()
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.NotifyTimeout()+time.Second)
	defer cancel()
	c.notifier.Close(ctx)
	return c.history.Close()
}
