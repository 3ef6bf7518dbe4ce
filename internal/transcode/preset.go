package transcode

import (
	"sort"

	"compositor/internal/media"
)

// Profile is the bundle of delivery defaults behind a preset name.
type Profile struct {
	Name media.Preset
	// Quality is the CRF used when the caller does not force one.
	Quality int
	// FPS is the output frame rate used when the caller does not set one.
	FPS float64
	// AudioBitrate replaces the configured audio bitrate.
	AudioBitrate string
}

var profiles = map[media.Preset]Profile{
	media.PresetGeneric:   {Name: media.PresetGeneric, Quality: 20, AudioBitrate: "192k"},
	media.PresetPlatformA: {Name: media.PresetPlatformA, Quality: 18, FPS: 30, AudioBitrate: "128k"},
	media.PresetPlatformB: {Name: media.PresetPlatformB, Quality: 19, FPS: 60, AudioBitrate: "192k"},
	media.PresetPlatformC: {Name: media.PresetPlatformC, Quality: 17, FPS: 30, AudioBitrate: "256k"},
}

// Lookup returns the profile for name.
func Lookup(name media.Preset) (Profile, bool) {
	p, ok := profiles[name]
	return p, ok
}

// Profiles lists every preset sorted by name.
func Profiles() []Profile {
	out := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Quality sources reported by Resolve.
const (
	SourceExplicit = "explicit"
	SourcePreset   = "preset"
	SourceDefault  = "default"
)

// Settings are the resolved encode parameters of one transcode.
type Settings struct {
	Quality       int
	QualitySource string
	FPS           float64
	AudioBitrate  string
}

// Resolve applies the preset policy to spec. An unknown preset is treated as
// none; callers validate names first.
func Resolve(spec media.TranscodeSpec, defaultQuality int, defaultBitrate string) Settings {
	settings := Settings{
		Quality:       defaultQuality,
		QualitySource: SourceDefault,
		FPS:           spec.FPS,
		AudioBitrate:  defaultBitrate,
	}
	if profile, ok := Lookup(spec.Preset); ok {
		settings.Quality = profile.Quality
		settings.QualitySource = SourcePreset
		if settings.FPS <= 0 {
			settings.FPS = profile.FPS
		}
		if profile.AudioBitrate != "" {
			settings.AudioBitrate = profile.AudioBitrate
		}
	}
	if spec.Quality != nil {
		settings.Quality = *spec.Quality
		settings.QualitySource = SourceExplicit
	}
	return settings
}
