package ffmpeg

import (
	"strings"
	"testing"

	"compositor/internal/config"
	"compositor/internal/filtergraph"
	"compositor/internal/orchestrator"
)

func TestCommandOrdersArguments(t *testing.T) {
	cmd := NewCommand()
	if idx := cmd.Input("a.mp4", "-t", "2"); idx != 0 {
		t.Fatalf("first input index = %d", idx)
	}
	if idx := cmd.Input("b.wav"); idx != 1 {
		t.Fatalf("second input index = %d", idx)
	}
	cmd.VideoFilter(filtergraph.Scale{Width: 640, Height: 360}, filtergraph.FPS{Rate: 24})
	cmd.Map("aout")
	cmd.MapStream("0:v:0")
	cmd.Arg(FastStart()...)

	got := strings.Join(cmd.Args(), " ")
	want := "-y -hide_banner -nostdin -loglevel error -progress pipe:1 -nostats " +
		"-t 2 -i a.mp4 -i b.wav -vf scale=640:360,fps=24 -map [aout] -map 0:v:0 -movflags +faststart " +
		orchestrator.OutputPlaceholder
	if got != want {
		t.Fatalf("args:\n got %s\nwant %s", got, want)
	}
	if cmd.Inputs() != 2 {
		t.Fatalf("inputs = %d", cmd.Inputs())
	}
}

func TestArgsDoesNotAlias(t *testing.T) {
	cmd := NewCommand()
	first := cmd.Args()
	first[0] = "mutated"
	if cmd.Args()[0] != "-y" {
		t.Fatal("Args must return a copy")
	}
}

func TestVideoFilterSkipsEmptyChain(t *testing.T) {
	cmd := NewCommand()
	cmd.VideoFilter()
	if strings.Contains(strings.Join(cmd.Args(), " "), "-vf") {
		t.Fatal("empty chain should not add -vf")
	}
}

func TestEncoderArgs(t *testing.T) {
	cfg := config.Default()
	enc := EncoderFromConfig(&cfg)
	enc.Quality = 18

	if got := strings.Join(enc.VideoArgs(), " "); got != "-c:v libx264 -preset medium -crf 18 -pix_fmt yuv420p" {
		t.Fatalf("video args = %q", got)
	}
	if got := strings.Join(enc.AudioArgs(), " "); got != "-c:a aac -b:a 192k" {
		t.Fatalf("audio args = %q", got)
	}

	enc.PixelFormat = ""
	enc.Preset = ""
	if got := strings.Join(enc.VideoArgs(), " "); got != "-c:v libx264 -crf 18 -pix_fmt yuv420p" {
		t.Fatalf("video args without preset = %q", got)
	}
}

func TestSeconds(t *testing.T) {
	cases := map[float64]string{2: "2", 2.5: "2.5", 0.04: "0.04"}
	for in, want := range cases {
		if got := Seconds(in); got != want {
			t.Errorf("Seconds(%v) = %q, want %q", in, got, want)
		}
	}
}
