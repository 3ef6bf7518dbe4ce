package concat

import (
	"context"
	"fmt"
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

const op = "concat"

// Runner schedules orchestrated jobs. *orchestrator.Orchestrator satisfies it.
type Runner interface {
	Submit(ctx context.Context, job orchestrator.Job) (*orchestrator.Handle, error)
}

// Options are the concat defaults drawn from configuration.
type Options struct {
	Binary            string
	Encoder           ffmpeg.Encoder
	DefaultFPS        float64
	DefaultResolution media.Resolution
	StrictProbe       bool
	SynthesizeSilence bool
	SampleRate        int
}

// OptionsFromConfig maps cfg onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	encoder := ffmpeg.EncoderFromConfig(cfg)
	if cfg.Concat.Quality > 0 {
		encoder.Quality = cfg.Concat.Quality
	}
	res, _ := media.ParseResolution(cfg.Concat.DefaultResolution)
	return Options{
		Binary:            cfg.FFmpegBinary(),
		Encoder:           encoder,
		DefaultFPS:        cfg.Concat.DefaultFPS,
		DefaultResolution: res,
		StrictProbe:       cfg.Concat.StrictProbe,
		SynthesizeSilence: cfg.Concat.SynthesizeSilence,
		SampleRate:        cfg.Mix.SampleRate,
	}
}

// Engine builds and runs concat jobs.
type Engine struct {
	opts   Options
	runner Runner
	prober *ffprobe.Prober
	logger *slog.Logger
}

// New constructs an Engine. prober is required for strict mode and for
// silence synthesis.
func New(opts Options, runner Runner, prober *ffprobe.Prober, logger *slog.Logger) *Engine {
	if opts.Binary == "" {
		opts.Binary = "ffmpeg"
	}
	return &Engine{
		opts:   opts,
		runner: runner,
		prober: prober,
		logger: logging.NewComponentLogger(logger, "concat"),
	}
}

// Validate checks the structure of spec without touching the filesystem.
// Positions, when given, must increase in slice order: clips are never
// reordered.
func Validate(spec media.ConcatSpec) error {
	if len(spec.Clips) == 0 {
		return services.Invalid(op, "at least one clip is required")
	}
	positioned := false
	for i, clip := range spec.Clips {
		if clip.Duration <= 0 || math.IsNaN(clip.Duration) || math.IsInf(clip.Duration, 0) {
			return services.Invalid(op, "clip %d duration %v must be positive", i, clip.Duration)
		}
		if clip.Position != 0 {
			positioned = true
		}
	}
	if positioned {
		for i := 1; i < len(spec.Clips); i++ {
			if spec.Clips[i].Position <= spec.Clips[i-1].Position {
				return services.Invalid(op, "clip %d position %d does not follow position %d", i, spec.Clips[i].Position, spec.Clips[i-1].Position)
			}
		}
	}
	if spec.Resolution != (media.Resolution{}) && !spec.Resolution.Valid() {
		return services.Invalid(op, "resolution %s must be positive", spec.Resolution)
	}
	if spec.FPS < 0 || math.IsNaN(spec.FPS) || math.IsInf(spec.FPS, 0) {
		return services.Invalid(op, "fps %v must be positive", spec.FPS)
	}
	return nil
}

// Plan validates spec and builds its job. Clips are probed first in strict
// mode, and whenever silence synthesis needs to know which clips lack audio.
// Probing runs probe jobs but never the encode.
func (e *Engine) Plan(ctx context.Context, spec media.ConcatSpec) (orchestrator.Job, error) {
	if err := Validate(spec); err != nil {
		return orchestrator.Job{}, err
	}
	paths := make([]string, 0, len(spec.Clips))
	for i, clip := range spec.Clips {
		if err := media.CheckInput(op, fmt.Sprintf("clip %d", i), clip.Path); err != nil {
			return orchestrator.Job{}, err
		}
		paths = append(paths, clip.Path)
	}
	if err := media.CheckOutput(op, spec.Output, paths...); err != nil {
		return orchestrator.Job{}, err
	}

	res := spec.Resolution
	if res == (media.Resolution{}) {
		res = e.opts.DefaultResolution
	}
	if !res.Valid() {
		return orchestrator.Job{}, services.Invalid(op, "no target resolution given and no default configured")
	}
	fps := spec.FPS
	if fps == 0 {
		fps = e.opts.DefaultFPS
	}
	if fps <= 0 {
		return orchestrator.Job{}, services.Invalid(op, "no frame rate given and no default configured")
	}

	segments := make([]filtergraph.ConcatSegment, len(spec.Clips))
	for i, clip := range spec.Clips {
		segments[i] = filtergraph.ConcatSegment{Input: i, Duration: clip.Duration, HasAudio: true}
	}
	strict := spec.Strict || e.opts.StrictProbe
	withAudio := true
	var warnings []string
	if strict || (e.opts.SynthesizeSilence && e.prober != nil) {
		silent, err := e.probeClips(ctx, spec.Clips, fps, segments, strict)
		if err != nil {
			return orchestrator.Job{}, err
		}
		if silent > 0 && !e.opts.SynthesizeSilence {
			withAudio = false
			warnings = append(warnings, fmt.Sprintf("%d clip(s) without audio; output has no audio track", silent))
		}
	}

	graph, videoOut, audioOut, err := filtergraph.BuildConcat(segments, filtergraph.NormalizeTarget{
		Width:       res.Width,
		Height:      res.Height,
		FPS:         fps,
		PixelFormat: e.opts.Encoder.PixelFormat,
		SampleRate:  e.opts.SampleRate,
		Audio:       withAudio,
	})
	if err != nil {
		return orchestrator.Job{}, services.Wrap(services.KindInvalidSpec, op, "build filter graph", err)
	}

	cmd := ffmpeg.NewCommand()
	for _, clip := range spec.Clips {
		cmd.Input(clip.Path, "-t", ffmpeg.Seconds(clip.Duration))
	}
	cmd.FilterComplex(graph)
	cmd.Map(videoOut)
	if audioOut != "" {
		cmd.Map(audioOut)
	}
	cmd.Arg(e.opts.Encoder.VideoArgs()...)
	if audioOut != "" {
		cmd.Arg(e.opts.Encoder.AudioArgs()...)
	}
	cmd.Arg(ffmpeg.FastStart()...)

	total := spec.TotalDuration()
	e.logger.Debug("concat planned",
		logging.Int("clips", len(spec.Clips)),
		logging.String("resolution", res.String()),
		logging.Float64("fps", fps),
		logging.Float64("duration", total),
		logging.Bool("strict", strict),
	)

	return orchestrator.Job{
		Kind:            media.KindConcat,
		Binary:          e.opts.Binary,
		Args:            cmd.Args(),
		Output:          spec.Output,
		Timeout:         spec.Timeout,
		ExpectedSeconds: total,
		Warnings:        warnings,
	}, nil
}

// probeClips inspects every clip and marks silent segments. In strict mode it
// also rejects clips whose media is shorter than declared by more than one
// frame; otherwise declared durations stand as given.
func (e *Engine) probeClips(ctx context.Context, clips []media.Clip, fps float64, segments []filtergraph.ConcatSegment, strict bool) (int, error) {
	if e.prober == nil {
		return 0, services.Wrap(services.KindProbeFailed, op, "strict mode requires a prober", nil)
	}
	tolerance := 1 / fps
	silent := 0
	for i, clip := range clips {
		info, err := e.prober.Probe(ctx, clip.Path)
		if err != nil {
			return 0, err
		}
		if strict && info.DurationSeconds+tolerance < clip.Duration {
			return 0, services.Invalid(op, "clip %d declares %.3fs but %s holds %.3fs", i, clip.Duration, clip.Path, info.DurationSeconds)
		}
		if !info.HasAudio {
			segments[i].HasAudio = false
			silent++
		}
	}
	return silent, nil
}

// Submit plans spec and queues it, returning immediately.
func (e *Engine) Submit(ctx context.Context, spec media.ConcatSpec) (*orchestrator.Handle, error) {
	job, err := e.Plan(ctx, spec)
	if err != nil {
		e.logger.Info("concat rejected", logging.String(logging.FieldErrorKind, string(services.KindOf(err))), logging.Error(err))
		return nil, err
	}
	return e.runner.Submit(ctx, job)
}

// Concat runs spec to completion. The returned error equals Result.Err.
func (e *Engine) Concat(ctx context.Context, spec media.ConcatSpec) (orchestrator.Result, error) {
	handle, err := e.Submit(ctx, spec)
	if err != nil {
		return orchestrator.RejectedResult(orchestrator.Job{Kind: media.KindConcat}, err), err
	}
	res := handle.Await()
	e.prober.Annotate(ctx, &res)
	return res, res.Err
}
