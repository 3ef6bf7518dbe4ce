package audiomix

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

const op = "mix"

// WarningDuckingIgnored is attached to results of specs that request ducking.
const WarningDuckingIgnored = "ducking ignored"

// Runner schedules orchestrated jobs. *orchestrator.Orchestrator satisfies it.
type Runner interface {
	Submit(ctx context.Context, job orchestrator.Job) (*orchestrator.Handle, error)
}

// Options are the mix defaults drawn from configuration.
type Options struct {
	Binary       string
	AudioCodec   string
	AudioBitrate string
	SampleRate   int
}

// OptionsFromConfig maps cfg onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	return Options{
		Binary:       cfg.FFmpegBinary(),
		AudioCodec:   cfg.Mix.AudioCodec,
		AudioBitrate: cfg.Mix.AudioBitrate,
		SampleRate:   cfg.Mix.SampleRate,
	}
}

// Engine builds and runs mix jobs.
type Engine struct {
	opts   Options
	runner Runner
	prober *ffprobe.Prober
	logger *slog.Logger
}

// New constructs an Engine. prober may be nil.
func New(opts Options, runner Runner, prober *ffprobe.Prober, logger *slog.Logger) *Engine {
	if opts.Binary == "" {
		opts.Binary = "ffmpeg"
	}
	if opts.AudioCodec == "" {
		opts.AudioCodec = "aac"
	}
	return &Engine{
		opts:   opts,
		runner: runner,
		prober: prober,
		logger: logging.NewComponentLogger(logger, "audiomix"),
	}
}

// Validate checks the structure of spec without touching the filesystem.
// Out-of-range volumes are InvalidSpec errors that also match
// services.ErrInvalidTrackVolume; they are never clamped.
func Validate(spec media.MixSpec) error {
	if len(spec.Tracks) == 0 {
		return services.Invalid(op, "at least one track is required")
	}
	for i, track := range spec.Tracks {
		if !track.Kind.Valid() {
			return services.Invalid(op, "track %d has unknown kind %q", i, track.Kind)
		}
		if track.StartTime < 0 || math.IsNaN(track.StartTime) || math.IsInf(track.StartTime, 0) {
			return services.Invalid(op, "track %d start time %v must be >= 0", i, track.StartTime)
		}
		if track.Volume != nil {
			v := *track.Volume
			if math.IsNaN(v) || v < 0 || v > 1 {
				return services.Wrap(services.KindInvalidSpec, op,
					fmt.Sprintf("track %d volume %v outside [0, 1]", i, v), services.ErrInvalidTrackVolume)
			}
		}
		if track.Duration != nil {
			d := *track.Duration
			if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
				return services.Invalid(op, "track %d duration %v must be positive", i, d)
			}
		}
	}
	return nil
}

// Plan validates spec and builds its job.
func (e *Engine) Plan(spec media.MixSpec) (orchestrator.Job, error) {
	if err := Validate(spec); err != nil {
		return orchestrator.Job{}, err
	}
	if err := media.CheckInput(op, "video", spec.VideoPath); err != nil {
		return orchestrator.Job{}, err
	}
	inputs := []string{spec.VideoPath}
	for i, track := range spec.Tracks {
		if err := media.CheckInput(op, fmt.Sprintf("track %d", i), track.Path); err != nil {
			return orchestrator.Job{}, err
		}
		inputs = append(inputs, track.Path)
	}
	if err := media.CheckOutput(op, spec.Output, inputs...); err != nil {
		return orchestrator.Job{}, err
	}

	cmd := ffmpeg.NewCommand()
	cmd.Input(spec.VideoPath)
	mixTracks := make([]filtergraph.MixTrack, len(spec.Tracks))
	for i, track := range spec.Tracks {
		mixTracks[i] = filtergraph.MixTrack{
			Input:     cmd.Input(track.Path),
			StartTime: track.StartTime,
			Duration:  track.Duration,
			Volume:    track.Volume,
		}
	}
	graph, out, err := filtergraph.BuildMix(mixTracks, filtergraph.MixOptions{
		Duration: filtergraph.MixLongest,
		Pad:      true,
	})
	if err != nil {
		return orchestrator.Job{}, services.Wrap(services.KindInvalidSpec, op, "build filter graph", err)
	}
	cmd.FilterComplex(graph)
	cmd.MapStream("0:v:0")
	cmd.Map(out)
	cmd.Arg("-c:v", "copy", "-c:a", e.opts.AudioCodec)
	if e.opts.AudioBitrate != "" {
		cmd.Arg("-b:a", e.opts.AudioBitrate)
	}
	if e.opts.SampleRate > 0 {
		cmd.Arg("-ar", fmt.Sprint(e.opts.SampleRate))
	}
	cmd.Arg("-shortest")
	cmd.Arg(ffmpeg.FastStart()...)

	var warnings []string
	if spec.Ducking != nil && spec.Ducking.Enabled {
		warnings = append(warnings, WarningDuckingIgnored)
		logging.WarnWithContext(e.logger, "ducking requested but not applied", "mix_ducking_ignored",
			logging.String("output", spec.Output),
			logging.String("target", string(spec.Ducking.Target)),
			logging.String(logging.FieldImpact, "tracks are mixed at their static volumes"),
			logging.String(logging.FieldErrorHint, "lower background track volumes explicitly"),
		)
	}

	e.logger.Debug("mix planned",
		logging.Int("tracks", len(spec.Tracks)),
		logging.String("graph", graph.Render()),
	)

	return orchestrator.Job{
		Kind:     media.KindMix,
		Binary:   e.opts.Binary,
		Args:     cmd.Args(),
		Output:   spec.Output,
		Timeout:  spec.Timeout,
		Warnings: warnings,
	}, nil
}

// Submit plans spec and queues it, returning immediately.
func (e *Engine) Submit(ctx context.Context, spec media.MixSpec) (*orchestrator.Handle, error) {
	job, err := e.Plan(spec)
	if err != nil {
		e.logger.Info("mix rejected", logging.String(logging.FieldErrorKind, string(services.KindOf(err))), logging.Error(err))
		return nil, err
	}
	return e.runner.Submit(ctx, job)
}

// Mix runs spec to completion. The returned error equals Result.Err.
func (e *Engine) Mix(ctx context.Context, spec media.MixSpec) (orchestrator.Result, error) {
	handle, err := e.Submit(ctx, spec)
	if err != nil {
		return orchestrator.RejectedResult(orchestrator.Job{Kind: media.KindMix}, err), err
	}
	res := handle.Await()
	e.prober.Annotate(ctx, &res)
	return res, res.Err
}
