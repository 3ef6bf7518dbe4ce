package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
}

// Engine contains external binary and scheduling configuration.
type Engine struct {
	FFmpegBinary      string `toml:"ffmpeg_binary"`
	FFprobeBinary     string `toml:"ffprobe_binary"`
	MaxConcurrent     int    `toml:"max_concurrent"`
	QueueLimit        int    `toml:"queue_limit"`
	JobTimeoutSeconds int    `toml:"job_timeout_seconds"`
	MinFreeMiB        int    `toml:"min_free_mib"`
	GraceSeconds      int    `toml:"grace_seconds"`
	StaleWorkHours    int    `toml:"stale_work_hours"`
}

// Transcode contains encode defaults for transcode jobs. Presets may raise
// the quality; an explicit per-job quality always wins.
type Transcode struct {
	DefaultQuality int    `toml:"default_quality"`
	VideoCodec     string `toml:"video_codec"`
	EncoderPreset  string `toml:"encoder_preset"`
	PixelFormat    string `toml:"pixel_format"`
	AudioCodec     string `toml:"audio_codec"`
	AudioBitrate   string `toml:"audio_bitrate"`
}

// Concat contains defaults for concatenation jobs.
type Concat struct {
	DefaultFPS        float64 `toml:"default_fps"`
	DefaultResolution string  `toml:"default_resolution"`
	StrictProbe       bool    `toml:"strict_probe"`
	SynthesizeSilence bool    `toml:"synthesize_silence"`
	Quality           int     `toml:"quality"`
}

// Mix contains defaults for audio mix jobs.
type Mix struct {
	AudioCodec   string `toml:"audio_codec"`
	AudioBitrate string `toml:"audio_bitrate"`
	SampleRate   int    `toml:"sample_rate"`
}

// History contains configuration for the job ledger.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Notifications contains ntfy delivery settings. An empty topic disables
// notifications.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	NotifySuccess         bool   `toml:"notify_success"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for the compositor.
//
// Configuration sections by subsystem:
//   - Paths: work, log, and state directories
//   - Engine: ffmpeg/ffprobe binaries, concurrency cap, timeouts, free space
//   - Transcode: encoder defaults for transcode jobs
//   - Concat: normalization defaults for concatenation
//   - Mix: audio encode settings for mix jobs
//   - History: sqlite job ledger
//   - Notifications: ntfy topic for finished jobs
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Engine        Engine        `toml:"engine"`
	Transcode     Transcode     `toml:"transcode"`
	Concat        Concat        `toml:"concat"`
	Mix           Mix           `toml:"mix"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("compositor.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work, log, and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the configured ffmpeg executable.
func (c *Config) FFmpegBinary() string {
	return c.Engine.FFmpegBinary
}

// FFprobeBinary returns the configured ffprobe executable.
func (c *Config) FFprobeBinary() string {
	return c.Engine.FFprobeBinary
}

// JobTimeout returns the default per-job deadline; zero disables it.
func (c *Config) JobTimeout() time.Duration {
	if c.Engine.JobTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Engine.JobTimeoutSeconds) * time.Second
}

// GracePeriod returns how long a cancelled process may take to exit.
func (c *Config) GracePeriod() time.Duration {
	return time.Duration(c.Engine.GraceSeconds) * time.Second
}

// MinFreeBytes returns the free-space floor for the work directory.
func (c *Config) MinFreeBytes() uint64 {
	if c.Engine.MinFreeMiB <= 0 {
		return 0
	}
	return uint64(c.Engine.MinFreeMiB) << 20
}

// StaleWorkAge returns the age after which leftover job directories are
// swept; zero disables the sweep.
func (c *Config) StaleWorkAge() time.Duration {
	if c.Engine.StaleWorkHours <= 0 {
		return 0
	}
	return time.Duration(c.Engine.StaleWorkHours) * time.Hour
}

// NotifyTimeout returns the per-request ntfy timeout.
func (c *Config) NotifyTimeout() time.Duration {
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		return time.Duration(defaultNotifyTimeoutSeconds) * time.Second
	}
	return time.Duration(c.Notifications.RequestTimeoutSeconds) * time.Second
}

// HistoryPath returns the job ledger database path.
func (c *Config) HistoryPath() string {
	if strings.TrimSpace(c.History.Path) != "" {
		return c.History.Path
	}
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LogRetention returns how long rotated logs are kept; zero keeps them forever.
func (c *Config) LogRetention() time.Duration {
	if c.Logging.RetentionDays <= 0 {
		return 0
	}
	return time.Duration(c.Logging.RetentionDays) * 24 * time.Hour
}

// LogPath returns the log file path.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "compositor.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
