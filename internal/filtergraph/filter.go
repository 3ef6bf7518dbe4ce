package filtergraph

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Filter is a single node of a chain. The set of implementations is closed.
type Filter interface {
	// Name is the ffmpeg filter name.
	Name() string
	options() []option
}

type option struct {
	key   string
	value string
}

// Render returns the filter in name=k=v:k=v form.
func Render(f Filter) string {
	opts := f.options()
	if len(opts) == 0 {
		return f.Name()
	}
	parts := make([]string, 0, len(opts))
	for _, opt := range opts {
		if opt.key == "" {
			parts = append(parts, opt.value)
			continue
		}
		parts = append(parts, opt.key+"="+opt.value)
	}
	return f.Name() + "=" + strings.Join(parts, ":")
}

// Delay shifts an audio stream later by Millis milliseconds on all channels.
type Delay struct {
	Millis int64
}

func (Delay) Name() string { return "adelay" }

func (d Delay) options() []option {
	return []option{{value: strconv.FormatInt(d.Millis, 10)}, {key: "all", value: "1"}}
}

// DelayFromSeconds converts a second offset to a millisecond Delay.
func DelayFromSeconds(seconds float64) Delay {
	return Delay{Millis: int64(math.Round(seconds * 1000))}
}

// Volume applies a unitless linear gain. The value is rendered exactly as
// given; callers validate the range.
type Volume struct {
	Gain float64
}

func (Volume) Name() string { return "volume" }

func (v Volume) options() []option {
	return []option{{value: formatFloat(v.Gain)}}
}

// ATrim keeps the first Duration seconds of an audio stream.
type ATrim struct {
	Duration float64
}

func (ATrim) Name() string { return "atrim" }

func (t ATrim) options() []option {
	return []option{{key: "duration", value: formatFloat(t.Duration)}}
}

// MixDuration selects how amix decides its output length.
type MixDuration string

const (
	MixFirst    MixDuration = "first"
	MixLongest  MixDuration = "longest"
	MixShortest MixDuration = "shortest"
)

// Mix sums Inputs audio streams. Normalize is off by default so declared
// track volumes are not rescaled by the input count.
type Mix struct {
	Inputs    int
	Duration  MixDuration
	Normalize bool
}

func (Mix) Name() string { return "amix" }

func (m Mix) options() []option {
	duration := m.Duration
	if duration == "" {
		duration = MixFirst
	}
	normalize := "0"
	if m.Normalize {
		normalize = "1"
	}
	return []option{
		{key: "inputs", value: strconv.Itoa(m.Inputs)},
		{key: "duration", value: string(duration)},
		{key: "dropout_transition", value: "0"},
		{key: "normalize", value: normalize},
	}
}

// APad extends an audio stream with silence indefinitely.
type APad struct{}

func (APad) Name() string { return "apad" }

func (APad) options() []option { return nil }

// ANull passes audio through unchanged.
type ANull struct{}

func (ANull) Name() string { return "anull" }

func (ANull) options() []option { return nil }

// AResample converts audio to SampleRate.
type AResample struct {
	SampleRate int
}

func (AResample) Name() string { return "aresample" }

func (r AResample) options() []option {
	return []option{{value: strconv.Itoa(r.SampleRate)}}
}

// AFormat pins the channel layout.
type AFormat struct {
	ChannelLayout string
}

func (AFormat) Name() string { return "aformat" }

func (f AFormat) options() []option {
	return []option{{key: "channel_layouts", value: escapeValue(f.ChannelLayout)}}
}

// ANullSrc is a silent audio source.
type ANullSrc struct {
	SampleRate    int
	ChannelLayout string
}

func (ANullSrc) Name() string { return "anullsrc" }

func (s ANullSrc) options() []option {
	return []option{
		{key: "r", value: strconv.Itoa(s.SampleRate)},
		{key: "cl", value: escapeValue(s.ChannelLayout)},
	}
}

// Scale resizes video. With Fit set the aspect ratio is preserved and the
// result fits inside Width x Height.
type Scale struct {
	Width  int
	Height int
	Fit    bool
}

func (Scale) Name() string { return "scale" }

func (s Scale) options() []option {
	opts := []option{{value: strconv.Itoa(s.Width)}, {value: strconv.Itoa(s.Height)}}
	if s.Fit {
		opts = append(opts, option{key: "force_original_aspect_ratio", value: "decrease"})
	}
	return opts
}

// Pad centres video on a Width x Height canvas.
type Pad struct {
	Width  int
	Height int
	Color  string
}

func (Pad) Name() string { return "pad" }

func (p Pad) options() []option {
	opts := []option{
		{value: strconv.Itoa(p.Width)},
		{value: strconv.Itoa(p.Height)},
		{value: "(ow-iw)/2"},
		{value: "(oh-ih)/2"},
	}
	if p.Color != "" {
		opts = append(opts, option{key: "color", value: escapeValue(p.Color)})
	}
	return opts
}

// SetSAR forces square pixels.
type SetSAR struct{}

func (SetSAR) Name() string { return "setsar" }

func (SetSAR) options() []option { return []option{{value: "1"}} }

// FPS resamples video to Rate frames per second.
type FPS struct {
	Rate float64
}

func (FPS) Name() string { return "fps" }

func (f FPS) options() []option {
	return []option{{value: formatFloat(f.Rate)}}
}

// Format converts video to PixelFormat.
type Format struct {
	PixelFormat string
}

func (Format) Name() string { return "format" }

func (f Format) options() []option {
	return []option{{value: escapeValue(f.PixelFormat)}}
}

// SetPTS rewrites video timestamps to start at zero.
type SetPTS struct{}

func (SetPTS) Name() string { return "setpts" }

func (SetPTS) options() []option { return []option{{value: "PTS-STARTPTS"}} }

// ASetPTS rewrites audio timestamps to start at zero.
type ASetPTS struct{}

func (ASetPTS) Name() string { return "asetpts" }

func (ASetPTS) options() []option { return []option{{value: "PTS-STARTPTS"}} }

// Concat joins Segments segments each carrying Video video and Audio audio
// streams, in input order.
type Concat struct {
	Segments int
	Video    int
	Audio    int
}

func (Concat) Name() string { return "concat" }

func (c Concat) options() []option {
	return []option{
		{key: "n", value: strconv.Itoa(c.Segments)},
		{key: "v", value: strconv.Itoa(c.Video)},
		{key: "a", value: strconv.Itoa(c.Audio)},
	}
}

// Color is a solid colour video source, used with -f lavfi.
type Color struct {
	Color    string
	Width    int
	Height   int
	Rate     float64
	Duration float64
}

func (Color) Name() string { return "color" }

func (c Color) options() []option {
	color := c.Color
	if color == "" {
		color = "black"
	}
	opts := []option{
		{key: "c", value: escapeValue(color)},
		{key: "s", value: fmt.Sprintf("%dx%d", c.Width, c.Height)},
		{key: "r", value: formatFloat(c.Rate)},
	}
	if c.Duration > 0 {
		opts = append(opts, option{key: "d", value: formatFloat(c.Duration)})
	}
	return opts
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// escapeValue backslash-escapes the characters that delimit options, filters,
// chains, and labels in filter graph syntax.
func escapeValue(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch r {
		case '\\', '\'', ':', ',', ';', '[', ']', '=':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
