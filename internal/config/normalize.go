package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEngine()
	c.normalizeTranscode()
	c.normalizeConcat()
	c.normalizeMix()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.History.Path, err = expandPath(strings.TrimSpace(c.History.Path)); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

// normalizeEngine applies environment fallbacks for the binaries. Explicit
// config values win over the environment, which wins over the PATH default.
func (c *Config) normalizeEngine() {
	c.Engine.FFmpegBinary = strings.TrimSpace(c.Engine.FFmpegBinary)
	if c.Engine.FFmpegBinary == "" || c.Engine.FFmpegBinary == defaultFFmpegBinary {
		if value, ok := os.LookupEnv("COMPOSITOR_FFMPEG"); ok && strings.TrimSpace(value) != "" {
			c.Engine.FFmpegBinary = strings.TrimSpace(value)
		}
	}
	if c.Engine.FFmpegBinary == "" {
		c.Engine.FFmpegBinary = defaultFFmpegBinary
	}
	c.Engine.FFprobeBinary = strings.TrimSpace(c.Engine.FFprobeBinary)
	if c.Engine.FFprobeBinary == "" || c.Engine.FFprobeBinary == defaultFFprobeBinary {
		if value, ok := os.LookupEnv("COMPOSITOR_FFPROBE"); ok && strings.TrimSpace(value) != "" {
			c.Engine.FFprobeBinary = strings.TrimSpace(value)
		}
	}
	if c.Engine.FFprobeBinary == "" {
		c.Engine.FFprobeBinary = defaultFFprobeBinary
	}
	for _, binary := range []*string{&c.Engine.FFmpegBinary, &c.Engine.FFprobeBinary} {
		if strings.HasPrefix(*binary, "~") {
			if expanded, err := expandPath(*binary); err == nil {
				*binary = expanded
			}
		}
	}
	if c.Engine.GraceSeconds <= 0 {
		c.Engine.GraceSeconds = defaultGraceSeconds
	}
}

func (c *Config) normalizeTranscode() {
	c.Transcode.VideoCodec = defaultString(c.Transcode.VideoCodec, defaultVideoCodec)
	c.Transcode.EncoderPreset = defaultString(c.Transcode.EncoderPreset, defaultEncoderPreset)
	c.Transcode.PixelFormat = defaultString(c.Transcode.PixelFormat, defaultPixelFormat)
	c.Transcode.AudioCodec = defaultString(c.Transcode.AudioCodec, defaultAudioCodec)
	c.Transcode.AudioBitrate = defaultString(c.Transcode.AudioBitrate, defaultAudioBitrate)
}

func (c *Config) normalizeConcat() {
	c.Concat.DefaultResolution = strings.ToLower(defaultString(c.Concat.DefaultResolution, defaultConcatResolution))
	if c.Concat.DefaultFPS == 0 {
		c.Concat.DefaultFPS = defaultConcatFPS
	}
	if c.Concat.Quality == 0 {
		c.Concat.Quality = c.Transcode.DefaultQuality
	}
}

func (c *Config) normalizeMix() {
	c.Mix.AudioCodec = defaultString(c.Mix.AudioCodec, defaultAudioCodec)
	c.Mix.AudioBitrate = defaultString(c.Mix.AudioBitrate, defaultAudioBitrate)
	if c.Mix.SampleRate == 0 {
		c.Mix.SampleRate = defaultSampleRate
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func defaultString(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
