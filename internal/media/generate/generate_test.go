package generate_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"compositor/internal/media"
	"compositor/internal/media/ffprobe"
	"compositor/internal/media/generate"
	"compositor/internal/orchestrator"
	"compositor/internal/services"
	"compositor/internal/testsupport"
)

func newGenerator(t *testing.T, exec *testsupport.Executor) (*generate.Generator, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	orch := testsupport.NewOrchestrator(t, cfg, exec)
	return generate.New(cfg, orch, ffprobe.NewProber(cfg.FFprobeBinary(), orch), nil), testsupport.BaseDir(cfg)
}

func TestThumbnailSeeksBeforeInput(t *testing.T) {
	exec := &testsupport.Executor{}
	gen, dir := newGenerator(t, exec)
	input := filepath.Join(dir, "in.mp4")
	testsupport.WriteFile(t, input, 32)

	res, err := gen.Thumbnail(context.Background(), media.ThumbnailSpec{
		Input: input, Output: filepath.Join(dir, "thumb.jpg"), At: 1.5, Width: 320,
	})
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if res.Kind != media.KindThumbnail || res.Status != media.StatusSucceeded {
		t.Fatalf("unexpected result %+v", res)
	}
	args := strings.Join(exec.EncodeCommands()[0].Args, " ")
	for _, want := range []string{"-ss 1.5 -i " + input, "-vf scale=320:-2", "-frames:v 1", "-q:v 2"} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q:\n%s", want, args)
		}
	}
	if strings.Contains(args, "-c:v") {
		t.Fatal("thumbnails use the image muxer defaults")
	}
}

func TestThumbnailPastEndFails(t *testing.T) {
	exec := &testsupport.Executor{Handler: func(context.Context, orchestrator.Command, io.Writer, io.Writer) error {
		return nil
	}}
	gen, dir := newGenerator(t, exec)
	input := filepath.Join(dir, "short.mp4")
	testsupport.WriteFile(t, input, 32)

	_, err := gen.Thumbnail(context.Background(), media.ThumbnailSpec{
		Input: input, Output: filepath.Join(dir, "late.jpg"), At: 99,
	})
	if !errors.Is(err, services.ErrEncodeFailed) {
		t.Fatalf("expected EncodeFailed for an empty output, got %v", err)
	}
}

func TestThumbnailValidation(t *testing.T) {
	cases := map[string]media.ThumbnailSpec{
		"negative timestamp": {At: -1},
		"height only":        {Height: 100},
		"negative width":     {Width: -4},
	}
	for name, spec := range cases {
		if err := generate.ValidateThumbnail(spec); !errors.Is(err, services.ErrInvalidSpec) {
			t.Errorf("%s: expected InvalidSpec, got %v", name, err)
		}
	}
}

func TestBlankClip(t *testing.T) {
	exec := &testsupport.Executor{ProbeOutput: testsupport.ProbeJSON(1280, 720, 3, true)}
	gen, dir := newGenerator(t, exec)

	res, err := gen.Blank(context.Background(), media.BlankSpec{
		Output:     filepath.Join(dir, "gap.mp4"),
		Duration:   3,
		Resolution: media.Resolution{Width: 1280, Height: 720},
		FPS:        25,
		Color:      "white",
	})
	if err != nil {
		t.Fatalf("Blank: %v", err)
	}
	if res.Kind != media.KindBlank || res.DurationSeconds != 3 || res.Width != 1280 {
		t.Fatalf("unexpected result %+v", res)
	}
	args := strings.Join(exec.EncodeCommands()[0].Args, " ")
	for _, want := range []string{
		"-f lavfi -i color=c=white:s=1280x720:r=25",
		"-f lavfi -i anullsrc=r=48000:cl=stereo",
		"-map 0:v:0 -map 1:a:0 -t 3",
		"-pix_fmt yuv420p",
		"-movflags +faststart",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q:\n%s", want, args)
		}
	}
}

func TestBlankDefaultsFromConfig(t *testing.T) {
	gen, dir := newGenerator(t, &testsupport.Executor{})
	job, err := gen.PlanBlank(media.BlankSpec{Output: filepath.Join(dir, "b.mp4"), Duration: 1})
	if err != nil {
		t.Fatalf("PlanBlank: %v", err)
	}
	args := strings.Join(job.Args, " ")
	if !strings.Contains(args, "color=c=black:s=1080x1920:r=30") {
		t.Fatalf("expected config defaults:\n%s", args)
	}
	if job.ExpectedSeconds != 1 {
		t.Fatalf("expected seconds = %v", job.ExpectedSeconds)
	}
}

func TestBlankValidation(t *testing.T) {
	cases := map[string]media.BlankSpec{
		"zero duration":  {Output: "x.mp4"},
		"bad resolution": {Output: "x.mp4", Duration: 1, Resolution: media.Resolution{Width: 10}},
		"negative fps":   {Output: "x.mp4", Duration: 1, FPS: -1},
	}
	for name, spec := range cases {
		if err := generate.ValidateBlank(spec); !errors.Is(err, services.ErrInvalidSpec) {
			t.Errorf("%s: expected InvalidSpec, got %v", name, err)
		}
	}
}
