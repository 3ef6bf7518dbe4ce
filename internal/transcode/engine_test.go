package transcode

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"compositor/internal/media"
	"compositor/internal/media/ffprobe"
	"compositor/internal/orchestrator"
	"compositor/internal/services"
	"compositor/internal/testsupport"
)

type harness struct {
	engine *Engine
	exec   *testsupport.Executor
	dir    string
}

func newHarness(t *testing.T) harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	exec := &testsupport.Executor{ProbeOutput: testsupport.ProbeJSON(640, 360, 3, true)}
	orch := testsupport.NewOrchestrator(t, cfg, exec)
	prober := ffprobe.NewProber(cfg.FFprobeBinary(), orch)
	return harness{
		engine: New(cfg, orch, prober, nil),
		exec:   exec,
		dir:    testsupport.BaseDir(cfg),
	}
}

func (h harness) input(t *testing.T) string {
	t.Helper()
	path := filepath.Join(h.dir, "a.mp4")
	testsupport.WriteFile(t, path, 128)
	return path
}

func TestTranscodeScenario(t *testing.T) {
	h := newHarness(t)
	spec := media.TranscodeSpec{
		Input:  h.input(t),
		Output: filepath.Join(h.dir, "out", "a-640.mp4"),
		Width:  640,
		Height: 360,
		FPS:    24,
	}

	res, err := h.engine.Transcode(context.Background(), spec)
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if !res.Succeeded() || res.OutputPath != spec.Output {
		t.Fatalf("unexpected result %+v", res.JobResult)
	}
	if res.Width != 640 || res.Height != 360 {
		t.Fatalf("probed output %dx%d, want 640x360", res.Width, res.Height)
	}
	if _, err := os.Stat(spec.Output); err != nil {
		t.Fatalf("output missing: %v", err)
	}

	encodes := h.exec.EncodeCommands()
	if len(encodes) != 1 {
		t.Fatalf("expected one encode, got %d", len(encodes))
	}
	args := strings.Join(encodes[0].Args, " ")
	for _, want := range []string{
		"-vf scale=640:360,fps=24",
		"-crf 23",
		"-pix_fmt yuv420p",
		"-movflags +faststart",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q: %s", want, args)
		}
	}
}

func TestPlanPresetAndExplicitQuality(t *testing.T) {
	h := newHarness(t)
	in := h.input(t)
	q := 28

	job, err := h.engine.Plan(media.TranscodeSpec{Input: in, Output: filepath.Join(h.dir, "p.mp4"), Preset: media.PresetPlatformA})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	args := strings.Join(job.Args, " ")
	if !strings.Contains(args, "-crf 18") || !strings.Contains(args, "-vf fps=30") || !strings.Contains(args, "-b:a 128k") {
		t.Fatalf("preset not applied: %s", args)
	}

	job, err = h.engine.Plan(media.TranscodeSpec{Input: in, Output: filepath.Join(h.dir, "q.mp4"), Preset: media.PresetPlatformA, Quality: &q})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !strings.Contains(strings.Join(job.Args, " "), "-crf 28") {
		t.Fatalf("explicit quality should beat preset: %v", job.Args)
	}
	if job.Args[len(job.Args)-1] != orchestrator.OutputPlaceholder {
		t.Fatalf("output placeholder must be last: %v", job.Args)
	}
}

func TestTranscodeMissingInputSpawnsNothing(t *testing.T) {
	h := newHarness(t)
	spec := media.TranscodeSpec{Input: filepath.Join(h.dir, "missing.mp4"), Output: filepath.Join(h.dir, "out.mp4")}

	res, err := h.engine.Transcode(context.Background(), spec)
	if !errors.Is(err, services.ErrInputNotFound) {
		t.Fatalf("expected InputNotFound, got %v", err)
	}
	if res.ErrorKind != services.KindInputNotFound || res.Status != media.StatusFailed {
		t.Fatalf("unexpected result %+v", res.JobResult)
	}
	if len(h.exec.Commands()) != 0 {
		t.Fatal("no process may be spawned for a missing input")
	}
	if _, err := os.Stat(filepath.Join(h.dir, "work")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("work directory must not be created, stat err = %v", err)
	}
}

func TestValidateRejectsBadSpecs(t *testing.T) {
	bad := func(v int) *int { return &v }
	cases := map[string]media.TranscodeSpec{
		"quality low":    {Quality: bad(-1)},
		"quality high":   {Quality: bad(52)},
		"width only":     {Width: 640},
		"height only":    {Height: 360},
		"negative size":  {Width: -640, Height: -360},
		"negative fps":   {FPS: -1},
		"unknown preset": {Preset: "platform-z"},
	}
	for name, spec := range cases {
		if err := Validate(spec); !errors.Is(err, services.ErrInvalidSpec) {
			t.Errorf("%s: expected InvalidSpec, got %v", name, err)
		}
	}
	if err := Validate(media.TranscodeSpec{Width: 640, Height: 360, Quality: bad(51)}); err != nil {
		t.Fatalf("valid spec rejected: %v", err)
	}
}

func TestTranscodeDecodeFailure(t *testing.T) {
	h := newHarness(t)
	h.exec.Handler = func(_ context.Context, _ orchestrator.Command, _, stderr io.Writer) error {
		_, _ = io.WriteString(stderr, "[mov,mp4,m4a,3gp,3g2,mj2 @ 0x1] moov atom not found\n")
		return errors.New("exit status 1")
	}

	res, err := h.engine.Transcode(context.Background(), media.TranscodeSpec{Input: h.input(t), Output: filepath.Join(h.dir, "bad.mp4")})
	if !errors.Is(err, services.ErrDecodeFailed) {
		t.Fatalf("expected DecodeFailed, got %v", err)
	}
	if !strings.Contains(res.Diagnostic, "moov atom not found") {
		t.Fatalf("diagnostic not attached: %q", res.Diagnostic)
	}
	if res.OutputPath != "" {
		t.Fatal("failed results carry no output path")
	}
}

func TestSubmitReturnsHandle(t *testing.T) {
	h := newHarness(t)
	handle, err := h.engine.Submit(context.Background(), media.TranscodeSpec{Input: h.input(t), Output: filepath.Join(h.dir, "async.mp4")})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	res, err := handle.Wait(context.Background())
	if err != nil || !res.Succeeded() {
		t.Fatalf("async transcode failed: %v %+v", err, res.JobResult)
	}
	if res.Kind != media.KindTranscode {
		t.Fatalf("kind = %q", res.Kind)
	}
}
