package main

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"compositor/internal/composer"
	"compositor/internal/media"
)

func newTranscodeCommand(ctx *commandContext) *cobra.Command {
	var (
		width, height int
		fps           float64
		quality       int
		preset        string
		timeout       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "transcode INPUT OUTPUT",
		Short: "Re-encode one file, optionally scaling and applying a delivery preset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := media.TranscodeSpec{
				Input:   args[0],
				Output:  args[1],
				Width:   width,
				Height:  height,
				FPS:     fps,
				Preset:  media.Preset(strings.ToLower(strings.TrimSpace(preset))),
				Timeout: timeout,
			}
			if cmd.Flags().Changed("quality") {
				spec.Quality = &quality
			}
			return ctx.withComposer(func(c *composer.Composer) error {
				res, err := c.Transcode(cmd.Context(), spec)
				return printResult(ctx, cmd, res, err)
			})
		},
	}
	cmd.Flags().IntVar(&width, "width", 0, "Output width (requires --height)")
	cmd.Flags().IntVar(&height, "height", 0, "Output height (requires --width)")
	cmd.Flags().Float64Var(&fps, "fps", 0, "Output frame rate")
	cmd.Flags().IntVarP(&quality, "quality", "q", 0, "CRF quality (0-51, lower is better); overrides the preset")
	cmd.Flags().StringVarP(&preset, "preset", "p", "", "Delivery preset (see `compositor presets`)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Job deadline (default engine.job_timeout_seconds)")
	return cmd
}

func newConcatCommand(ctx *commandContext) *cobra.Command {
	var (
		clips      []string
		resolution string
		fps        float64
		strict     bool
		specPath   string
		timeout    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "concat OUTPUT --clip PATH=SECONDS...",
		Short: "Join clips in order, normalizing resolution, frame rate, and audio",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var spec media.ConcatSpec
			if specPath != "" {
				if err := loadSpec(specPath, &spec); err != nil {
					return err
				}
			}
			for _, value := range clips {
				clip, err := parseClip(value, 0)
				if err != nil {
					return err
				}
				spec.Clips = append(spec.Clips, clip)
			}
			if len(args) == 1 {
				spec.Output = args[0]
			}
			if spec.Output == "" {
				return errors.New("output path is required")
			}
			if resolution != "" {
				res, err := media.ParseResolution(resolution)
				if err != nil {
					return err
				}
				spec.Resolution = res
			}
			if fps > 0 {
				spec.FPS = fps
			}
			spec.Strict = spec.Strict || strict
			spec.Timeout = timeout
			return ctx.withComposer(func(c *composer.Composer) error {
				res, err := c.Concat(cmd.Context(), spec)
				return printResult(ctx, cmd, res, err)
			})
		},
	}
	cmd.Flags().StringArrayVar(&clips, "clip", nil, "Clip as PATH=SECONDS, in playback order (repeatable)")
	cmd.Flags().StringVarP(&resolution, "resolution", "r", "", "Target WIDTHxHEIGHT (default concat.default_resolution)")
	cmd.Flags().Float64Var(&fps, "fps", 0, "Target frame rate (default concat.default_fps)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Probe every clip before encoding")
	cmd.Flags().StringVar(&specPath, "spec", "", "JSON concat spec file")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Job deadline (default engine.job_timeout_seconds)")
	return cmd
}

func newMixCommand(ctx *commandContext) *cobra.Command {
	var (
		video    string
		tracks   []string
		duck     bool
		specPath string
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "mix OUTPUT --video PATH --track KIND=PATH[,start=S][,volume=V][,duration=D]...",
		Short: "Replace a video's audio with a mix of timed tracks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var spec media.MixSpec
			if specPath != "" {
				if err := loadSpec(specPath, &spec); err != nil {
					return err
				}
			}
			if video != "" {
				spec.VideoPath = video
			}
			for _, value := range tracks {
				track, err := parseTrack(value)
				if err != nil {
					return err
				}
				spec.Tracks = append(spec.Tracks, track)
			}
			if len(args) == 1 {
				spec.Output = args[0]
			}
			if spec.Output == "" {
				return errors.New("output path is required")
			}
			if duck && spec.Ducking == nil {
				spec.Ducking = &media.DuckingIntent{Enabled: true, Target: media.TrackMusic, Key: media.TrackNarration}
			}
			spec.Timeout = timeout
			return ctx.withComposer(func(c *composer.Composer) error {
				res, err := c.Mix(cmd.Context(), spec)
				return printResult(ctx, cmd, res, err)
			})
		},
	}
	cmd.Flags().StringVar(&video, "video", "", "Source video; its audio is replaced")
	cmd.Flags().StringArrayVar(&tracks, "track", nil, "Audio track (repeatable); kinds: narration, music, sfx")
	cmd.Flags().BoolVar(&duck, "duck", false, "Request music ducking under narration (accepted, not applied)")
	cmd.Flags().StringVar(&specPath, "spec", "", "JSON mix spec file")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Job deadline (default engine.job_timeout_seconds)")
	return cmd
}

func newThumbnailCommand(ctx *commandContext) *cobra.Command {
	var (
		at            float64
		width, height int
	)
	cmd := &cobra.Command{
		Use:   "thumbnail INPUT OUTPUT",
		Short: "Extract a single frame as an image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := media.ThumbnailSpec{Input: args[0], Output: args[1], At: at, Width: width, Height: height}
			return ctx.withComposer(func(c *composer.Composer) error {
				res, err := c.Thumbnail(cmd.Context(), spec)
				return printResult(ctx, cmd, res, err)
			})
		},
	}
	cmd.Flags().Float64Var(&at, "at", 0, "Timestamp in seconds")
	cmd.Flags().IntVar(&width, "width", 0, "Scale to this width")
	cmd.Flags().IntVar(&height, "height", 0, "Scale to this height (default keeps aspect ratio)")
	return cmd
}

func newBlankCommand(ctx *commandContext) *cobra.Command {
	var (
		duration   float64
		resolution string
		fps        float64
		color      string
	)
	cmd := &cobra.Command{
		Use:   "blank OUTPUT",
		Short: "Generate a solid colour clip with silent audio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := media.BlankSpec{Output: args[0], Duration: duration, FPS: fps, Color: color}
			if resolution != "" {
				res, err := media.ParseResolution(resolution)
				if err != nil {
					return err
				}
				spec.Resolution = res
			}
			return ctx.withComposer(func(c *composer.Composer) error {
				res, err := c.Blank(cmd.Context(), spec)
				return printResult(ctx, cmd, res, err)
			})
		},
	}
	cmd.Flags().Float64VarP(&duration, "duration", "d", 0, "Clip length in seconds")
	cmd.Flags().StringVarP(&resolution, "resolution", "r", "", "WIDTHxHEIGHT (default concat.default_resolution)")
	cmd.Flags().Float64Var(&fps, "fps", 0, "Frame rate (default concat.default_fps)")
	cmd.Flags().StringVar(&color, "color", "", "Fill colour name or hex (default black)")
	return cmd
}
