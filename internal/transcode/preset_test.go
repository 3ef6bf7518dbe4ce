package transcode

import (
	"testing"

	"compositor/internal/media"
)

func intPtr(v int) *int { return &v }

func TestResolveQualityPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		spec       media.TranscodeSpec
		wantQ      int
		wantSource string
	}{
		{"default", media.TranscodeSpec{}, 23, SourceDefault},
		{"preset beats default", media.TranscodeSpec{Preset: media.PresetPlatformA}, 18, SourcePreset},
		{"explicit beats preset", media.TranscodeSpec{Preset: media.PresetPlatformA, Quality: intPtr(30)}, 30, SourceExplicit},
		{"explicit without preset", media.TranscodeSpec{Quality: intPtr(0)}, 0, SourceExplicit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.spec, 23, "192k")
			if got.Quality != tt.wantQ || got.QualitySource != tt.wantSource {
				t.Fatalf("Resolve = %+v, want quality %d from %s", got, tt.wantQ, tt.wantSource)
			}
		})
	}
}

func TestResolvePresetDefaults(t *testing.T) {
	got := Resolve(media.TranscodeSpec{Preset: media.PresetPlatformC}, 23, "192k")
	if got.FPS != 30 || got.AudioBitrate != "256k" {
		t.Fatalf("preset defaults not applied: %+v", got)
	}

	got = Resolve(media.TranscodeSpec{Preset: media.PresetPlatformC, FPS: 24}, 23, "192k")
	if got.FPS != 24 {
		t.Fatalf("explicit fps should win, got %v", got.FPS)
	}

	got = Resolve(media.TranscodeSpec{}, 23, "160k")
	if got.FPS != 0 || got.AudioBitrate != "160k" {
		t.Fatalf("no preset should keep defaults, got %+v", got)
	}
}

func TestPresetQualityBeatsDefault(t *testing.T) {
	for _, p := range Profiles() {
		if p.Quality >= 23 {
			t.Errorf("preset %s quality %d should be higher quality than the default", p.Name, p.Quality)
		}
	}
	if len(Profiles()) != 4 {
		t.Fatalf("expected four presets, got %d", len(Profiles()))
	}
}
