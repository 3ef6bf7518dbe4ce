package audiomix

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"compositor/internal/media"
	"compositor/internal/media/ffprobe"
	"compositor/internal/services"
	"compositor/internal/testsupport"
)

func f64(v float64) *float64 { return &v }

type harness struct {
	engine *Engine
	exec   *testsupport.Executor
	dir    string
	logs   *bytes.Buffer
}

func newHarness(t *testing.T) harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	exec := &testsupport.Executor{ProbeOutput: testsupport.ProbeJSON(1080, 1920, 5, true)}
	orch := testsupport.NewOrchestrator(t, cfg, exec)
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return harness{
		engine: New(OptionsFromConfig(cfg), orch, ffprobe.NewProber(cfg.FFprobeBinary(), orch), logger),
		exec:   exec,
		dir:    testsupport.BaseDir(cfg),
		logs:   logs,
	}
}

func (h harness) file(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	testsupport.WriteFile(t, path, 64)
	return path
}

func TestMixScenario(t *testing.T) {
	h := newHarness(t)
	spec := media.MixSpec{
		VideoPath: h.file(t, "video.mp4"),
		Tracks: []media.AudioTrack{
			{Path: h.file(t, "a.wav"), Kind: media.TrackNarration, StartTime: 0, Volume: f64(1.0)},
			{Path: h.file(t, "b.mp3"), Kind: media.TrackMusic, StartTime: 2, Volume: f64(0.3)},
		},
		Output: filepath.Join(h.dir, "mixed.mp4"),
	}

	res, err := h.engine.Mix(context.Background(), spec)
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if res.DurationSeconds != 5 {
		t.Fatalf("output duration = %v, want the 5s video length", res.DurationSeconds)
	}

	encodes := h.exec.EncodeCommands()
	if len(encodes) != 1 {
		t.Fatalf("expected one encode, got %d", len(encodes))
	}
	args := strings.Join(encodes[0].Args, " ")
	wantGraph := "-filter_complex [1:a]volume=1[t0];[2:a]adelay=2000:all=1,volume=0.3[t1];" +
		"[t0][t1]amix=inputs=2:duration=longest:dropout_transition=0:normalize=0,apad[aout]"
	if !strings.Contains(args, wantGraph) {
		t.Fatalf("graph mismatch:\n%s", args)
	}
	for _, want := range []string{
		"-i " + spec.VideoPath + " -i " + spec.Tracks[0].Path + " -i " + spec.Tracks[1].Path,
		"-map 0:v:0 -map [aout]",
		"-c:v copy -c:a aac",
		"-shortest",
		"-movflags +faststart",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q:\n%s", want, args)
		}
	}
	if strings.Contains(args, "[0:a]") {
		t.Fatal("original video audio must be dropped")
	}
}

func TestSingleTrackSkipsAmix(t *testing.T) {
	h := newHarness(t)
	job, err := h.engine.Plan(media.MixSpec{
		VideoPath: h.file(t, "v.mp4"),
		Tracks:    []media.AudioTrack{{Path: h.file(t, "n.wav"), Kind: media.TrackNarration, Duration: f64(3)}},
		Output:    filepath.Join(h.dir, "one.mp4"),
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	args := strings.Join(job.Args, " ")
	if !strings.Contains(args, "[1:a]atrim=duration=3[t0];[t0]apad[aout]") || strings.Contains(args, "amix") {
		t.Fatalf("unexpected single-track graph:\n%s", args)
	}
}

func TestVolumeOutOfRangeRejectedBeforeSpawn(t *testing.T) {
	h := newHarness(t)
	spec := media.MixSpec{
		VideoPath: h.file(t, "v.mp4"),
		Tracks:    []media.AudioTrack{{Path: h.file(t, "loud.wav"), Kind: media.TrackSFX, Volume: f64(1.5)}},
		Output:    filepath.Join(h.dir, "loud.mp4"),
	}

	res, err := h.engine.Mix(context.Background(), spec)
	if !errors.Is(err, services.ErrInvalidSpec) || !errors.Is(err, services.ErrInvalidTrackVolume) {
		t.Fatalf("expected InvalidSpec/InvalidTrackVolume, got %v", err)
	}
	if res.ErrorKind != services.KindInvalidSpec {
		t.Fatalf("error kind = %q", res.ErrorKind)
	}
	if len(h.exec.Commands()) != 0 {
		t.Fatal("no process may be spawned for an invalid volume")
	}
}

func TestValidate(t *testing.T) {
	track := func(mut func(*media.AudioTrack)) media.MixSpec {
		tr := media.AudioTrack{Path: "a.wav", Kind: media.TrackMusic}
		mut(&tr)
		return media.MixSpec{Tracks: []media.AudioTrack{tr}}
	}
	cases := map[string]media.MixSpec{
		"no tracks":       {},
		"negative start":  track(func(tr *media.AudioTrack) { tr.StartTime = -0.1 }),
		"negative volume": track(func(tr *media.AudioTrack) { tr.Volume = f64(-0.01) }),
		"zero duration":   track(func(tr *media.AudioTrack) { tr.Duration = f64(0) }),
		"unknown kind":    track(func(tr *media.AudioTrack) { tr.Kind = "foley" }),
	}
	for name, spec := range cases {
		if err := Validate(spec); !errors.Is(err, services.ErrInvalidSpec) {
			t.Errorf("%s: expected InvalidSpec, got %v", name, err)
		}
	}
	for _, v := range []float64{0, 0.5, 1} {
		if err := Validate(track(func(tr *media.AudioTrack) { tr.Volume = f64(v) })); err != nil {
			t.Errorf("volume %v rejected: %v", v, err)
		}
	}
}

func TestMissingTrackIsInputNotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.engine.Mix(context.Background(), media.MixSpec{
		VideoPath: h.file(t, "v.mp4"),
		Tracks:    []media.AudioTrack{{Path: filepath.Join(h.dir, "gone.wav"), Kind: media.TrackMusic}},
		Output:    filepath.Join(h.dir, "o.mp4"),
	})
	if !errors.Is(err, services.ErrInputNotFound) {
		t.Fatalf("expected InputNotFound, got %v", err)
	}
}

func TestDuckingIsIgnoredWithWarning(t *testing.T) {
	h := newHarness(t)
	spec := media.MixSpec{
		VideoPath: h.file(t, "v.mp4"),
		Tracks: []media.AudioTrack{
			{Path: h.file(t, "n.wav"), Kind: media.TrackNarration},
			{Path: h.file(t, "m.wav"), Kind: media.TrackMusic, Volume: f64(0.8)},
		},
		Output:  filepath.Join(h.dir, "ducked.mp4"),
		Ducking: &media.DuckingIntent{Enabled: true, Target: media.TrackMusic, Key: media.TrackNarration, Level: 0.2},
	}

	res, err := h.engine.Mix(context.Background(), spec)
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if len(res.Warnings) == 0 || res.Warnings[0] != WarningDuckingIgnored {
		t.Fatalf("warnings = %v", res.Warnings)
	}
	args := strings.Join(h.exec.EncodeCommands()[0].Args, " ")
	if strings.Contains(args, "sidechaincompress") || !strings.Contains(args, "volume=0.8") {
		t.Fatalf("ducking must not change the graph:\n%s", args)
	}
	if !strings.Contains(h.logs.String(), `"level":"WARN"`) || !strings.Contains(h.logs.String(), "mix_ducking_ignored") {
		t.Fatalf("expected a warn log, got %s", h.logs.String())
	}
}
