package transcode

import (
	"context"
	"log/slog"
	"math"

	"compositor/internal/config"
	"compositor/internal/ffmpeg"
	"compositor/internal/filtergraph"
	"compositor/internal/logging"
	"compositor/internal/media"
	"compositor/internal/media/ffprobe"
	"compositor/internal/orchestrator"
	"compositor/internal/services"
)

// Quality bounds accepted for the CRF-style quality value.
const (
	MinQuality = 0
	MaxQuality = 51
)

// Runner schedules orchestrated jobs. *orchestrator.Orchestrator satisfies it.
type Runner interface {
	Submit(ctx context.Context, job orchestrator.Job) (*orchestrator.Handle, error)
}

// Engine builds and runs transcode jobs.
type Engine struct {
	binary  string
	encoder ffmpeg.Encoder
	runner  Runner
	prober  *ffprobe.Prober
	logger  *slog.Logger
}

// New constructs an Engine. prober may be nil, in which case results are not
// annotated with probed output metadata.
func New(cfg *config.Config, runner Runner, prober *ffprobe.Prober, logger *slog.Logger) *Engine {
	binary := "ffmpeg"
	if cfg != nil && cfg.FFmpegBinary() != "" {
		binary = cfg.FFmpegBinary()
	}
	return &Engine{
		binary:  binary,
		encoder: ffmpeg.EncoderFromConfig(cfg),
		runner:  runner,
		prober:  prober,
		logger:  logging.NewComponentLogger(logger, "transcode"),
	}
}

// Validate checks spec without touching the filesystem.
func Validate(spec media.TranscodeSpec) error {
	const op = "transcode"
	if spec.Quality != nil && (*spec.Quality < MinQuality || *spec.Quality > MaxQuality) {
		return services.Invalid(op, "quality %d outside [%d, %d]", *spec.Quality, MinQuality, MaxQuality)
	}
	if (spec.Width == 0) != (spec.Height == 0) {
		return services.Invalid(op, "width and height must be given together (got %dx%d)", spec.Width, spec.Height)
	}
	if spec.Width < 0 || spec.Height < 0 {
		return services.Invalid(op, "dimensions must be positive (got %dx%d)", spec.Width, spec.Height)
	}
	if spec.FPS < 0 || math.IsNaN(spec.FPS) || math.IsInf(spec.FPS, 0) {
		return services.Invalid(op, "fps %v must be positive", spec.FPS)
	}
	if spec.Preset != media.PresetNone {
		if _, ok := Lookup(spec.Preset); !ok {
			return services.Invalid(op, "unknown preset %q", spec.Preset)
		}
	}
	return nil
}

// Plan validates spec and builds its job. No process is spawned and nothing
// is written to disk.
func (e *Engine) Plan(spec media.TranscodeSpec) (orchestrator.Job, error) {
	const op = "transcode"
	if err := Validate(spec); err != nil {
		return orchestrator.Job{}, err
	}
	if err := media.CheckInput(op, "input", spec.Input); err != nil {
		return orchestrator.Job{}, err
	}
	if err := media.CheckOutput(op, spec.Output, spec.Input); err != nil {
		return orchestrator.Job{}, err
	}

	settings := Resolve(spec, e.encoder.Quality, e.encoder.AudioBitrate)
	encoder := e.encoder
	encoder.Quality = settings.Quality
	encoder.AudioBitrate = settings.AudioBitrate

	var filters []filtergraph.Filter
	if spec.Width > 0 {
		filters = append(filters, filtergraph.Scale{Width: spec.Width, Height: spec.Height})
	}
	if settings.FPS > 0 {
		filters = append(filters, filtergraph.FPS{Rate: settings.FPS})
	}

	cmd := ffmpeg.NewCommand()
	cmd.Input(spec.Input)
	cmd.VideoFilter(filters...)
	cmd.MapStream("0:v:0")
	cmd.MapStream("0:a?")
	cmd.Arg(encoder.VideoArgs()...)
	cmd.Arg(encoder.AudioArgs()...)
	cmd.Arg(ffmpeg.FastStart()...)

	e.logger.Debug("transcode settings resolved",
		logging.String("input", spec.Input),
		logging.String("preset", string(spec.Preset)),
		logging.Int("quality", settings.Quality),
		logging.String("quality_source", settings.QualitySource),
		logging.Float64("fps", settings.FPS),
	)

	return orchestrator.Job{
		Kind:    media.KindTranscode,
		Binary:  e.binary,
		Args:    cmd.Args(),
		Output:  spec.Output,
		Timeout: spec.Timeout,
	}, nil
}

// Submit plans spec and queues it, returning immediately.
func (e *Engine) Submit(ctx context.Context, spec media.TranscodeSpec) (*orchestrator.Handle, error) {
	job, err := e.Plan(spec)
	if err != nil {
		e.logger.Info("transcode rejected", logging.String(logging.FieldErrorKind, string(services.KindOf(err))), logging.Error(err))
		return nil, err
	}
	return e.runner.Submit(ctx, job)
}

// Transcode runs spec to completion. The returned error equals Result.Err.
func (e *Engine) Transcode(ctx context.Context, spec media.TranscodeSpec) (orchestrator.Result, error) {
	handle, err := e.Submit(ctx, spec)
	if err != nil {
		return orchestrator.RejectedResult(orchestrator.Job{Kind: media.KindTranscode}, err), err
	}
	res := handle.Await()
	e.prober.Annotate(ctx, &res)
	return res, res.Err
}
