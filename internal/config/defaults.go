package config

const (
	defaultConfigPath           = "~/.config/compositor/config.toml"
	defaultWorkDir              = "~/.local/share/compositor/work"
	defaultLogDir               = "~/.local/share/compositor/logs"
	defaultStateDir             = "~/.local/share/compositor"
	defaultFFmpegBinary         = "ffmpeg"
	defaultFFprobeBinary        = "ffprobe"
	defaultMaxConcurrent        = 2
	defaultQueueLimit           = 64
	defaultJobTimeoutSeconds    = 3600
	defaultMinFreeMiB           = 512
	defaultGraceSeconds         = 5
	defaultStaleWorkHours       = 24
	defaultNotifyTimeoutSeconds = 10
	defaultQuality              = 23
	defaultVideoCodec           = "libx264"
	defaultEncoderPreset        = "medium"
	defaultPixelFormat          = "yuv420p"
	defaultAudioCodec           = "aac"
	defaultAudioBitrate         = "192k"
	defaultConcatFPS            = 30
	defaultConcatResolution     = "1080x1920"
	defaultSampleRate           = 48000
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Engine: Engine{
			FFmpegBinary:      defaultFFmpegBinary,
			FFprobeBinary:     defaultFFprobeBinary,
			MaxConcurrent:     defaultMaxConcurrent,
			QueueLimit:        defaultQueueLimit,
			JobTimeoutSeconds: defaultJobTimeoutSeconds,
			MinFreeMiB:        defaultMinFreeMiB,
			GraceSeconds:      defaultGraceSeconds,
			StaleWorkHours:    defaultStaleWorkHours,
		},
		Transcode: Transcode{
			DefaultQuality: defaultQuality,
			VideoCodec:     defaultVideoCodec,
			EncoderPreset:  defaultEncoderPreset,
			PixelFormat:    defaultPixelFormat,
			AudioCodec:     defaultAudioCodec,
			AudioBitrate:   defaultAudioBitrate,
		},
		Concat: Concat{
			DefaultFPS:        defaultConcatFPS,
			DefaultResolution: defaultConcatResolution,
			SynthesizeSilence: true,
			Quality:           defaultQuality,
		},
		Mix: Mix{
			AudioCodec:   defaultAudioCodec,
			AudioBitrate: defaultAudioBitrate,
			SampleRate:   defaultSampleRate,
		},
		History: History{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeoutSeconds,
			NotifySuccess:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
