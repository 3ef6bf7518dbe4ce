package ffmpeg

import (
	"strconv"
	"strings"

	"compositor/internal/config"
)

const defaultPixelFormat = "yuv420p"

// Encoder carries the codec settings applied to re-encoded outputs.
type Encoder struct {
	VideoCodec   string
	Preset       string
	Quality      int
	PixelFormat  string
	AudioCodec   string
	AudioBitrate string
}

// EncoderFromConfig returns the transcode defaults from cfg.
func EncoderFromConfig(cfg *config.Config) Encoder {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	return Encoder{
		VideoCodec:   cfg.Transcode.VideoCodec,
		Preset:       cfg.Transcode.EncoderPreset,
		Quality:      cfg.Transcode.DefaultQuality,
		PixelFormat:  cfg.Transcode.PixelFormat,
		AudioCodec:   cfg.Transcode.AudioCodec,
		AudioBitrate: cfg.Transcode.AudioBitrate,
	}
}

// VideoArgs returns the video codec flags. The pixel format is always set so
// outputs play on hardware decoders.
func (e Encoder) VideoArgs() []string {
	args := []string{"-c:v", e.VideoCodec}
	if preset := strings.TrimSpace(e.Preset); preset != "" {
		args = append(args, "-preset", preset)
	}
	args = append(args, "-crf", strconv.Itoa(e.Quality))
	pixFmt := strings.TrimSpace(e.PixelFormat)
	if pixFmt == "" {
		pixFmt = defaultPixelFormat
	}
	return append(args, "-pix_fmt", pixFmt)
}

// AudioArgs returns the audio codec flags.
func (e Encoder) AudioArgs() []string {
	args := []string{"-c:a", e.AudioCodec}
	if bitrate := strings.TrimSpace(e.AudioBitrate); bitrate != "" {
		args = append(args, "-b:a", bitrate)
	}
	return args
}
