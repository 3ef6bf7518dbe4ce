package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateTranscode(); err != nil {
		return err
	}
	if err := c.validateConcat(); err != nil {
		return err
	}
	if err := c.validateMix(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateEngine() error {
	if strings.TrimSpace(c.Engine.FFmpegBinary) == "" {
		return errors.New("engine.ffmpeg_binary must be set")
	}
	if strings.TrimSpace(c.Engine.FFprobeBinary) == "" {
		return errors.New("engine.ffprobe_binary must be set")
	}
	if err := ensurePositiveMap(map[string]int{
		"engine.max_concurrent": c.Engine.MaxConcurrent,
		"engine.grace_seconds":  c.Engine.GraceSeconds,
	}); err != nil {
		return err
	}
	if c.Engine.QueueLimit < 0 {
		return errors.New("engine.queue_limit must be >= 0 (0 disables the limit)")
	}
	if c.Engine.JobTimeoutSeconds < 0 {
		return errors.New("engine.job_timeout_seconds must be >= 0 (0 disables the timeout)")
	}
	if c.Engine.StaleWorkHours < 0 {
		return errors.New("engine.stale_work_hours must be >= 0 (0 disables the sweep)")
	}
	if c.Engine.MinFreeMiB < 0 {
		return errors.New("engine.min_free_mib must be >= 0")
	}
	return nil
}

func (c *Config) validateTranscode() error {
	if err := validateQuality("transcode.default_quality", c.Transcode.DefaultQuality); err != nil {
		return err
	}
	if err := validateBitrate("transcode.audio_bitrate", c.Transcode.AudioBitrate); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateConcat() error {
	if c.Concat.DefaultFPS <= 0 {
		return errors.New("concat.default_fps must be positive")
	}
	width, height, ok := parseResolution(c.Concat.DefaultResolution)
	if !ok || width <= 0 || height <= 0 {
		return fmt.Errorf("concat.default_resolution must look like WIDTHxHEIGHT, got %q", c.Concat.DefaultResolution)
	}
	return validateQuality("concat.quality", c.Concat.Quality)
}

func (c *Config) validateMix() error {
	if c.Mix.SampleRate <= 0 {
		return errors.New("mix.sample_rate must be positive")
	}
	return validateBitrate("mix.audio_bitrate", c.Mix.AudioBitrate)
}

func (c *Config) validateNotifications() error {
	topic := strings.TrimSpace(c.Notifications.NtfyTopic)
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) URL, got %q", topic)
	}
	if c.Notifications.RequestTimeoutSeconds < 0 {
		return errors.New("notifications.request_timeout_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

func validateQuality(key string, value int) error {
	if value < 0 || value > 51 {
		return fmt.Errorf("%s must be between 0 and 51", key)
	}
	return nil
}

// validateBitrate accepts ffmpeg style bitrates such as 128k or 2M.
func validateBitrate(key, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s must be set", key)
	}
	digits := strings.TrimRight(trimmed, "kKmM")
	if n, err := strconv.Atoi(digits); err != nil || n <= 0 {
		return fmt.Errorf("%s must be a positive bitrate like 192k, got %q", key, value)
	}
	return nil
}

func parseResolution(value string) (int, int, bool) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(value)), "x")
	if !ok {
		return 0, 0, false
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return 0, 0, false
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return 0, 0, false
	}
	return width, height, true
}

// ensurePositiveMap reports the first non-positive key in sorted order so the
// message is stable.
func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
