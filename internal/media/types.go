package media

import (
	"fmt"
	"strings"
	"time"
)

// Clip is one entry of a concatenation sequence. Duration is authoritative and
// is not re-probed unless the engine runs in strict mode.
type Clip struct {
	Path     string  `json:"path"`
	Duration float64 `json:"duration"`
	Position int     `json:"position"`
}

// TrackKind labels what an audio track carries.
type TrackKind string

const (
	TrackNarration TrackKind = "narration"
	TrackMusic     TrackKind = "music"
	TrackSFX       TrackKind = "sfx"
)

// Valid reports whether k is one of the known track kinds.
func (k TrackKind) Valid() bool {
	switch k {
	case TrackNarration, TrackMusic, TrackSFX:
		return true
	default:
		return false
	}
}

// ParseTrackKind normalizes a user supplied kind.
func ParseTrackKind(value string) (TrackKind, error) {
	kind := TrackKind(strings.ToLower(strings.TrimSpace(value)))
	if !kind.Valid() {
		return "", fmt.Errorf("unknown track kind %q (want narration, music, or sfx)", value)
	}
	return kind, nil
}

// DefaultVolume is the gain applied when a track declares none.
const DefaultVolume = 1.0

// AudioTrack is one layer of a mix. StartTime is an offset in seconds from the
// start of the video. Duration and Volume are optional.
type AudioTrack struct {
	Path      string    `json:"path"`
	Kind      TrackKind `json:"kind"`
	StartTime float64   `json:"start_time"`
	Duration  *float64  `json:"duration,omitempty"`
	Volume    *float64  `json:"volume,omitempty"`
}

// EffectiveVolume returns the declared volume or DefaultVolume.
func (t AudioTrack) EffectiveVolume() float64 {
	if t.Volume == nil {
		return DefaultVolume
	}
	return *t.Volume
}

// Resolution is a normalization target shared by every clip of a job.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (r Resolution) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// ParseResolution accepts "WIDTHxHEIGHT".
func ParseResolution(value string) (Resolution, error) {
	var res Resolution
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if _, err := fmt.Sscanf(trimmed, "%dx%d", &res.Width, &res.Height); err != nil {
		return Resolution{}, fmt.Errorf("parse resolution %q: want WIDTHxHEIGHT", value)
	}
	if !res.Valid() {
		return Resolution{}, fmt.Errorf("parse resolution %q: dimensions must be positive", value)
	}
	return res, nil
}

// Preset names a bundle of delivery defaults.
type Preset string

const (
	PresetNone      Preset = ""
	PresetGeneric   Preset = "generic"
	PresetPlatformA Preset = "platform-a"
	PresetPlatformB Preset = "platform-b"
	PresetPlatformC Preset = "platform-c"
)

// TranscodeSpec describes a single-input re-encode.
type TranscodeSpec struct {
	Input   string  `json:"input"`
	Output  string  `json:"output"`
	Width   int     `json:"width,omitempty"`
	Height  int     `json:"height,omitempty"`
	FPS     float64 `json:"fps,omitempty"`
	Quality *int    `json:"quality,omitempty"`
	Preset  Preset  `json:"preset,omitempty"`
	// Timeout overrides the orchestrator default deadline when positive.
	Timeout time.Duration `json:"-"`
}

// ConcatSpec describes an ordered join of clips normalized to one resolution.
type ConcatSpec struct {
	Clips      []Clip     `json:"clips"`
	Resolution Resolution `json:"resolution"`
	FPS        float64    `json:"fps,omitempty"`
	Output     string     `json:"output"`
	// Strict re-probes every clip before spawning the encode.
	Strict  bool          `json:"strict,omitempty"`
	Timeout time.Duration `json:"-"`
}

// TotalDuration returns the sum of the declared clip durations.
func (s ConcatSpec) TotalDuration() float64 {
	var total float64
	for _, clip := range s.Clips {
		total += clip.Duration
	}
	return total
}

// DuckingIntent records a request to lower background tracks under speech.
// It is accepted but not applied; see the audiomix package.
type DuckingIntent struct {
	Enabled bool `json:"enabled"`
	// Target is the kind that should be ducked, usually music.
	Target TrackKind `json:"target,omitempty"`
	// Key is the kind whose presence triggers ducking, usually narration.
	Key   TrackKind `json:"key,omitempty"`
	Level float64   `json:"level,omitempty"`
}

// MixSpec layers audio tracks under a video. Track order defines input order.
type MixSpec struct {
	VideoPath string         `json:"video_path"`
	Tracks    []AudioTrack   `json:"tracks"`
	Output    string         `json:"output"`
	Ducking   *DuckingIntent `json:"ducking,omitempty"`
	Timeout   time.Duration  `json:"-"`
}

// ThumbnailSpec extracts a single still frame.
type ThumbnailSpec struct {
	Input  string  `json:"input"`
	Output string  `json:"output"`
	At     float64 `json:"at"`
	Width  int     `json:"width,omitempty"`
	// Height is derived from Width when zero.
	Height  int           `json:"height,omitempty"`
	Timeout time.Duration `json:"-"`
}

// BlankSpec generates a solid colour clip with a silent audio track.
type BlankSpec struct {
	Output     string        `json:"output"`
	Duration   float64       `json:"duration"`
	Resolution Resolution    `json:"resolution"`
	FPS        float64       `json:"fps,omitempty"`
	Color      string        `json:"color,omitempty"`
	Timeout    time.Duration `json:"-"`
}
