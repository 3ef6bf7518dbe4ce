package generate

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"compositor/internal/config"
	"compositor/internal/ffmpeg"
	"compositor/internal/filtergraph"
	"compositor/internal/logging"
	"compositor/internal/media"
	"compositor/internal/media/ffprobe"
	"compositor/internal/orchestrator"
	"compositor/internal/services"
)

const (
	opThumbnail = "thumbnail"
	opBlank     = "blank"

	// DefaultColor fills blank clips when the spec names none.
	DefaultColor = "black"
	// DefaultSampleRate is the silent track rate for blank clips.
	DefaultSampleRate = 48000

	thumbnailQuality = "2"
)

// Runner schedules orchestrated jobs. *orchestrator.Orchestrator satisfies it.
type Runner interface {
	Submit(ctx context.Context, job orchestrator.Job) (*orchestrator.Handle, error)
}

// Generator plans and runs thumbnail and blank clip jobs.
type Generator struct {
	binary     string
	encoder    ffmpeg.Encoder
	defaultFPS float64
	defaultRes media.Resolution
	sampleRate int
	runner     Runner
	prober     *ffprobe.Prober
	logger     *slog.Logger
}

// New constructs a Generator. Blank clips fall back to the concat defaults for
// resolution and frame rate.
func New(cfg *config.Config, runner Runner, prober *ffprobe.Prober, logger *slog.Logger) *Generator {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	res, err := media.ParseResolution(cfg.Concat.DefaultResolution)
	if err != nil {
		res = media.Resolution{}
	}
	rate := cfg.Mix.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	binary := cfg.FFmpegBinary()
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Generator{
		binary:     binary,
		encoder:    ffmpeg.EncoderFromConfig(cfg),
		defaultFPS: cfg.Concat.DefaultFPS,
		defaultRes: res,
		sampleRate: rate,
		runner:     runner,
		prober:     prober,
		logger:     logging.NewComponentLogger(logger, "generate"),
	}
}

// ValidateThumbnail checks spec without touching the filesystem.
func ValidateThumbnail(spec media.ThumbnailSpec) error {
	if spec.At < 0 || math.IsNaN(spec.At) || math.IsInf(spec.At, 0) {
		return services.Invalid(opThumbnail, "timestamp %v must be >= 0", spec.At)
	}
	if spec.Width < 0 || spec.Height < 0 {
		return services.Invalid(opThumbnail, "dimensions must be positive (got %dx%d)", spec.Width, spec.Height)
	}
	if spec.Height > 0 && spec.Width == 0 {
		return services.Invalid(opThumbnail, "height requires a width")
	}
	return nil
}

// PlanThumbnail builds a single-frame extraction job. A zero Height keeps the
// source aspect ratio.
func (g *Generator) PlanThumbnail(spec media.ThumbnailSpec) (orchestrator.Job, error) {
	if err := ValidateThumbnail(spec); err != nil {
		return orchestrator.Job{}, err
	}
	if err := media.CheckInput(opThumbnail, "input", spec.Input); err != nil {
		return orchestrator.Job{}, err
	}
	if err := media.CheckOutput(opThumbnail, spec.Output, spec.Input); err != nil {
		return orchestrator.Job{}, err
	}

	cmd := ffmpeg.NewCommand()
	cmd.Input(spec.Input, "-ss", ffmpeg.Seconds(spec.At))
	if spec.Width > 0 {
		height := spec.Height
		if height == 0 {
			height = -2
		}
		cmd.VideoFilter(filtergraph.Scale{Width: spec.Width, Height: height})
	}
	cmd.MapStream("0:v:0")
	cmd.Arg("-frames:v", "1")
	if isJPEG(spec.Output) {
		cmd.Arg("-q:v", thumbnailQuality)
	}

	return orchestrator.Job{
		Kind:    media.KindThumbnail,
		Binary:  g.binary,
		Args:    cmd.Args(),
		Output:  spec.Output,
		Timeout: spec.Timeout,
	}, nil
}

// SubmitThumbnail plans spec and queues it.
func (g *Generator) SubmitThumbnail(ctx context.Context, spec media.ThumbnailSpec) (*orchestrator.Handle, error) {
	job, err := g.PlanThumbnail(spec)
	if err != nil {
		g.rejected(opThumbnail, err)
		return nil, err
	}
	return g.runner.Submit(ctx, job)
}

// Thumbnail runs spec to completion. A timestamp past the end of the input
// produces no frame and fails with EncodeFailed.
func (g *Generator) Thumbnail(ctx context.Context, spec media.ThumbnailSpec) (orchestrator.Result, error) {
	handle, err := g.SubmitThumbnail(ctx, spec)
	if err != nil {
		return orchestrator.RejectedResult(orchestrator.Job{Kind: media.KindThumbnail}, err), err
	}
	res := handle.Await()
	return res, res.Err
}

// ValidateBlank checks spec without touching the filesystem.
func ValidateBlank(spec media.BlankSpec) error {
	if spec.Duration <= 0 || math.IsNaN(spec.Duration) || math.IsInf(spec.Duration, 0) {
		return services.Invalid(opBlank, "duration %v must be positive", spec.Duration)
	}
	if spec.Resolution != (media.Resolution{}) && !spec.Resolution.Valid() {
		return services.Invalid(opBlank, "invalid resolution %s", spec.Resolution)
	}
	if spec.FPS < 0 || math.IsNaN(spec.FPS) || math.IsInf(spec.FPS, 0) {
		return services.Invalid(opBlank, "fps %v must be positive", spec.FPS)
	}
	return nil
}

// PlanBlank builds a solid colour clip with a silent stereo track of exactly
// spec.Duration seconds.
func (g *Generator) PlanBlank(spec media.BlankSpec) (orchestrator.Job, error) {
	if err := ValidateBlank(spec); err != nil {
		return orchestrator.Job{}, err
	}
	if err := media.CheckOutput(opBlank, spec.Output); err != nil {
		return orchestrator.Job{}, err
	}
	res := spec.Resolution
	if !res.Valid() {
		res = g.defaultRes
	}
	if !res.Valid() {
		return orchestrator.Job{}, services.Invalid(opBlank, "resolution is required")
	}
	fps := spec.FPS
	if fps == 0 {
		fps = g.defaultFPS
	}
	if fps <= 0 {
		return orchestrator.Job{}, services.Invalid(opBlank, "fps is required")
	}
	color := strings.TrimSpace(spec.Color)
	if color == "" {
		color = DefaultColor
	}

	video := filtergraph.Render(filtergraph.Color{Color: color, Width: res.Width, Height: res.Height, Rate: fps})
	audio := filtergraph.Render(filtergraph.ANullSrc{SampleRate: g.sampleRate, ChannelLayout: "stereo"})

	cmd := ffmpeg.NewCommand()
	cmd.Input(video, "-f", "lavfi")
	cmd.Input(audio, "-f", "lavfi")
	cmd.MapStream("0:v:0")
	cmd.MapStream("1:a:0")
	cmd.Arg("-t", ffmpeg.Seconds(spec.Duration))
	cmd.Arg(g.encoder.VideoArgs()...)
	cmd.Arg(g.encoder.AudioArgs()...)
	cmd.Arg(ffmpeg.FastStart()...)

	return orchestrator.Job{
		Kind:            media.KindBlank,
		Binary:          g.binary,
		Args:            cmd.Args(),
		Output:          spec.Output,
		Timeout:         spec.Timeout,
		ExpectedSeconds: spec.Duration,
	}, nil
}

// SubmitBlank plans spec and queues it.
func (g *Generator) SubmitBlank(ctx context.Context, spec media.BlankSpec) (*orchestrator.Handle, error) {
	job, err := g.PlanBlank(spec)
	if err != nil {
		g.rejected(opBlank, err)
		return nil, err
	}
	return g.runner.Submit(ctx, job)
}

// Blank runs spec to completion.
func (g *Generator) Blank(ctx context.Context, spec media.BlankSpec) (orchestrator.Result, error) {
	handle, err := g.SubmitBlank(ctx, spec)
	if err != nil {
		return orchestrator.RejectedResult(orchestrator.Job{Kind: media.KindBlank}, err), err
	}
	res := handle.Await()
	g.prober.Annotate(ctx, &res)
	return res, res.Err
}

func (g *Generator) rejected(op string, err error) {
	g.logger.Info(op+" rejected",
		logging.String(logging.FieldErrorKind, string(services.KindOf(err))),
		logging.Error(err),
	)
}

func isJPEG(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg")
}
