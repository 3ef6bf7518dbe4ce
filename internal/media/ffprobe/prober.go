package ffprobe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"compositor/internal/media"
	"compositor/internal/orchestrator"
	"compositor/internal/services"
)

// Runner executes orchestrated jobs. *orchestrator.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, job orchestrator.Job) (orchestrator.Result, error)
}

// Info is the normalized metadata of a media file.
type Info struct {
	Path            string  `json:"path"`
	ContainerFormat string  `json:"container_format"`
	DurationSeconds float64 `json:"duration_seconds"`
	SizeBytes       int64   `json:"size_bytes"`
	BitRate         int64   `json:"bit_rate,omitempty"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	FrameRate       float64 `json:"frame_rate"`
	VideoCodec      string  `json:"video_codec"`
	PixelFormat     string  `json:"pixel_format,omitempty"`
	HasAudio        bool    `json:"has_audio"`
	AudioCodec      string  `json:"audio_codec,omitempty"`
}

// Prober inspects media files through a Runner.
type Prober struct {
	Binary  string
	Runner  Runner
	Timeout time.Duration
}

// NewProber returns a Prober using binary, defaulting to "ffprobe".
func NewProber(binary string, runner Runner) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{Binary: binary, Runner: runner, Timeout: time.Minute}
}

// Inspect runs ffprobe against path and returns the parsed output.
func (p *Prober) Inspect(ctx context.Context, path string) (Result, error) {
	const op = "probe"
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, services.Invalid(op, "empty path")
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, services.Wrap(services.KindInputNotFound, op, path, err)
		}
		return Result{}, services.Wrap(services.KindProbeFailed, op, "stat "+path, err)
	}
	if p.Runner == nil {
		return Result{}, services.Wrap(services.KindProbeFailed, op, "no runner configured", nil)
	}
	res, err := p.Runner.Run(ctx, orchestrator.Job{
		Kind:          media.KindProbe,
		Binary:        p.Binary,
		Args:          Args(path),
		Timeout:       p.Timeout,
		CaptureStdout: true,
		FailureKind:   services.KindProbeFailed,
	})
	if err != nil {
		return Result{}, err
	}
	parsed, err := Parse(res.Stdout)
	if err != nil {
		return Result{}, services.Wrap(services.KindProbeFailed, op, path, err)
	}
	return parsed, nil
}

// Probe inspects path and normalizes the result. A file without a video
// stream or without a positive duration is a ProbeFailed error.
func (p *Prober) Probe(ctx context.Context, path string) (Info, error) {
	result, err := p.Inspect(ctx, path)
	if err != nil {
		return Info{}, err
	}
	return InfoFromResult(path, result)
}

// InfoFromResult normalizes a parsed ffprobe result.
func InfoFromResult(path string, result Result) (Info, error) {
	const op = "probe"
	video, ok := result.VideoStream()
	if !ok {
		return Info{}, services.Wrap(services.KindProbeFailed, op, fmt.Sprintf("%s has no video stream", path), nil)
	}
	duration := result.DurationSeconds()
	if math.IsNaN(duration) || duration <= 0 {
		if streamDuration := parseFloat(video.Duration); !math.IsNaN(streamDuration) && streamDuration > 0 {
			duration = streamDuration
		} else {
			return Info{}, services.Wrap(services.KindProbeFailed, op, fmt.Sprintf("%s has no usable duration", path), nil)
		}
	}
	info := Info{
		Path:            path,
		ContainerFormat: result.Format.FormatName,
		DurationSeconds: duration,
		SizeBytes:       result.SizeBytes(),
		BitRate:         result.BitRate(),
		Width:           video.Width,
		Height:          video.Height,
		FrameRate:       video.FrameRate(),
		VideoCodec:      video.CodecName,
		PixelFormat:     video.PixFmt,
	}
	if audio, ok := result.AudioStream(); ok {
		info.HasAudio = true
		info.AudioCodec = audio.CodecName
	}
	return info, nil
}

// Annotate records probed metadata of a successful result's output file.
// Probe failures become warnings: the job itself already succeeded.
func (p *Prober) Annotate(ctx context.Context, res *orchestrator.Result) {
	if p == nil || p.Runner == nil || res == nil || !res.Succeeded() || res.OutputPath == "" {
		return
	}
	info, err := p.Probe(ctx, res.OutputPath)
	if err != nil {
		res.Warnings = append(res.Warnings, "probe output: "+err.Error())
		return
	}
	res.DurationSeconds = info.DurationSeconds
	res.Width = info.Width
	res.Height = info.Height
}
