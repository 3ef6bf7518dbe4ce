package filtergraph

import (
	"strings"
	"testing"
)

func ptr(v float64) *float64 { return &v }

func TestRenderFilters(t *testing.T) {
	cases := []struct {
		name   string
		filter Filter
		want   string
	}{
		{"delay", Delay{Millis: 2000}, "adelay=2000:all=1"},
		{"delay from seconds", DelayFromSeconds(2.75), "adelay=2750:all=1"},
		{"volume", Volume{Gain: 0.3}, "volume=0.3"},
		{"volume zero", Volume{Gain: 0}, "volume=0"},
		{"trim", ATrim{Duration: 2.5}, "atrim=duration=2.5"},
		{"mix default", Mix{Inputs: 3}, "amix=inputs=3:duration=first:dropout_transition=0:normalize=0"},
		{"mix longest", Mix{Inputs: 2, Duration: MixLongest}, "amix=inputs=2:duration=longest:dropout_transition=0:normalize=0"},
		{"scale fit", Scale{Width: 720, Height: 1280, Fit: true}, "scale=720:1280:force_original_aspect_ratio=decrease"},
		{"scale", Scale{Width: 640, Height: 360}, "scale=640:360"},
		{"pad", Pad{Width: 720, Height: 1280, Color: "black"}, "pad=720:1280:(ow-iw)/2:(oh-ih)/2:color=black"},
		{"fps", FPS{Rate: 29.97}, "fps=29.97"},
		{"format", Format{PixelFormat: "yuv420p"}, "format=yuv420p"},
		{"concat", Concat{Segments: 3, Video: 1, Audio: 1}, "concat=n=3:v=1:a=1"},
		{"anullsrc", ANullSrc{SampleRate: 48000, ChannelLayout: "stereo"}, "anullsrc=r=48000:cl=stereo"},
		{"color", Color{Width: 320, Height: 240, Rate: 30, Duration: 5}, "color=c=black:s=320x240:r=30:d=5"},
		{"apad", APad{}, "apad"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Render(tc.filter); got != tc.want {
				t.Fatalf("Render() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRenderEscapesValues(t *testing.T) {
	got := Render(Color{Color: "red:0.5", Width: 2, Height: 2, Rate: 1})
	if !strings.Contains(got, `c=red\:0.5`) {
		t.Fatalf("expected escaped colour, got %q", got)
	}
}

func TestVolumeEmbedsExactValue(t *testing.T) {
	for _, v := range []float64{0, 0.05, 0.25, 0.3, 0.5, 0.75, 0.999, 1} {
		want := "volume=" + formatFloat(v)
		if got := Render(Volume{Gain: v}); got != want {
			t.Fatalf("volume %v rendered %q, want %q", v, got, want)
		}
	}
}

func TestBuildMixDelayPrecedesVolume(t *testing.T) {
	graph, out, err := BuildMix([]MixTrack{
		{Input: 1, StartTime: 2.0, Volume: ptr(0.3)},
	}, MixOptions{})
	if err != nil {
		t.Fatalf("BuildMix: %v", err)
	}
	if out != DefaultMixOutput {
		t.Fatalf("unexpected output label %q", out)
	}
	want := "[1:a]adelay=2000:all=1,volume=0.3[t0];[t0]anull[aout]"
	if got := graph.Render(); got != want {
		t.Fatalf("render mismatch\n got: %s\nwant: %s", got, want)
	}
}

func TestBuildMixMultipleTracks(t *testing.T) {
	graph, _, err := BuildMix([]MixTrack{
		{Input: 1, Volume: ptr(1.0)},
		{Input: 2, StartTime: 0.5, Duration: ptr(3), Volume: ptr(0.2)},
		{Input: 3},
	}, MixOptions{Duration: MixLongest, Pad: true})
	if err != nil {
		t.Fatalf("BuildMix: %v", err)
	}
	want := "[1:a]volume=1[t0];" +
		"[2:a]atrim=duration=3,adelay=500:all=1,volume=0.2[t1];" +
		"[t0][t1][3:a]amix=inputs=3:duration=longest:dropout_transition=0:normalize=0,apad[aout]"
	if got := graph.Render(); got != want {
		t.Fatalf("render mismatch\n got: %s\nwant: %s", got, want)
	}
	if err := graph.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestBuildMixPassthroughTrack(t *testing.T) {
	graph, _, err := BuildMix([]MixTrack{{Input: 1}}, MixOptions{Pad: true})
	if err != nil {
		t.Fatalf("BuildMix: %v", err)
	}
	if got := graph.Render(); got != "[1:a]apad[aout]" {
		t.Fatalf("unexpected graph %q", got)
	}
}

func TestBuildMixIsDeterministic(t *testing.T) {
	tracks := []MixTrack{
		{Input: 1, StartTime: 1, Volume: ptr(0.4)},
		{Input: 2, StartTime: 3.25, Volume: ptr(0.9)},
	}
	first, _, err := BuildMix(tracks, MixOptions{Duration: MixLongest, Pad: true})
	if err != nil {
		t.Fatalf("BuildMix: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _, _ := BuildMix(tracks, MixOptions{Duration: MixLongest, Pad: true})
		if again.Render() != first.Render() {
			t.Fatalf("render differs on iteration %d", i)
		}
	}
}

func TestBuildMixRejectsBadInput(t *testing.T) {
	if _, _, err := BuildMix(nil, MixOptions{}); err == nil {
		t.Fatal("expected error for empty track list")
	}
	if _, _, err := BuildMix([]MixTrack{{Input: 1, StartTime: -1}}, MixOptions{}); err == nil {
		t.Fatal("expected error for negative start")
	}
	if _, _, err := BuildMix([]MixTrack{{Input: 1, Duration: ptr(0)}}, MixOptions{}); err == nil {
		t.Fatal("expected error for zero duration")
	}
}

func TestBuildMixDoesNotClampVolume(t *testing.T) {
	graph, _, err := BuildMix([]MixTrack{{Input: 1, Volume: ptr(1.5)}}, MixOptions{})
	if err != nil {
		t.Fatalf("BuildMix: %v", err)
	}
	if !strings.Contains(graph.Render(), "volume=1.5") {
		t.Fatalf("volume was altered: %s", graph.Render())
	}
}

func TestBuildConcat(t *testing.T) {
	graph, video, audio, err := BuildConcat([]ConcatSegment{
		{Input: 0, Duration: 2, HasAudio: true},
		{Input: 1, Duration: 3},
	}, NormalizeTarget{Width: 720, Height: 1280, FPS: 30, Audio: true})
	if err != nil {
		t.Fatalf("BuildConcat: %v", err)
	}
	if video != DefaultConcatVideo || audio != DefaultConcatAudio {
		t.Fatalf("unexpected labels %q %q", video, audio)
	}
	norm := "scale=720:1280:force_original_aspect_ratio=decrease,pad=720:1280:(ow-iw)/2:(oh-ih)/2:color=black,setsar=1,fps=30,format=yuv420p,setpts=PTS-STARTPTS"
	want := "[0:v]" + norm + "[v0];" +
		"[0:a]aresample=48000,aformat=channel_layouts=stereo,asetpts=PTS-STARTPTS[a0];" +
		"[1:v]" + norm + "[v1];" +
		"anullsrc=r=48000:cl=stereo,atrim=duration=3[a1];" +
		"[v0][a0][v1][a1]concat=n=2:v=1:a=1[vout][aout]"
	if got := graph.Render(); got != want {
		t.Fatalf("render mismatch\n got: %s\nwant: %s", got, want)
	}
	if err := graph.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestBuildConcatVideoOnly(t *testing.T) {
	graph, _, audio, err := BuildConcat([]ConcatSegment{{Input: 0}, {Input: 1}},
		NormalizeTarget{Width: 640, Height: 360, FPS: 24})
	if err != nil {
		t.Fatalf("BuildConcat: %v", err)
	}
	if audio != "" {
		t.Fatalf("expected no audio label, got %q", audio)
	}
	if !strings.HasSuffix(graph.Render(), "[v0][v1]concat=n=2:v=1:a=0[vout]") {
		t.Fatalf("unexpected graph %s", graph.Render())
	}
}

func TestBuildConcatRejectsBadTarget(t *testing.T) {
	seg := []ConcatSegment{{Input: 0, HasAudio: true}}
	if _, _, _, err := BuildConcat(seg, NormalizeTarget{Width: 0, Height: 10, FPS: 30}); err == nil {
		t.Fatal("expected resolution error")
	}
	if _, _, _, err := BuildConcat(seg, NormalizeTarget{Width: 10, Height: 10}); err == nil {
		t.Fatal("expected fps error")
	}
	if _, _, _, err := BuildConcat([]ConcatSegment{{Input: 0}}, NormalizeTarget{Width: 10, Height: 10, FPS: 1, Audio: true}); err == nil {
		t.Fatal("expected error for silent segment without duration")
	}
}

func TestValidateDetectsDanglingLabel(t *testing.T) {
	g := Graph{Chains: []Chain{{Inputs: []Label{"missing"}, Filters: []Filter{ANull{}}, Outputs: []Label{"out"}}}}
	if err := g.Validate(); err == nil {
		t.Fatal("expected dangling label error")
	}
	g = Graph{Chains: []Chain{{Inputs: []Label{InputAudio(0)}, Outputs: []Label{"out"}}}}
	if err := g.Validate(); err == nil {
		t.Fatal("expected empty chain error")
	}
}
