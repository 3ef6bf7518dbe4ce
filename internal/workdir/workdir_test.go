package workdir

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"compositor/internal/logging"
)

func makeDir(t *testing.T, root, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	if age > 0 {
		stamp := time.Now().Add(-age)
		if err := os.Chtimes(path, stamp, stamp); err != nil {
			t.Fatalf("set time: %v", err)
		}
	}
	return path
}

func TestJobDirName(t *testing.T) {
	if got := JobDirName(7, "0123456789abcdef"); got != "job-7-01234567" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := JobDirName(3, "abc"); got != "job-3-abc" {
		t.Fatalf("short correlation: %q", got)
	}
}

func TestSweepInvalidInputs(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := Sweep(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
	root := t.TempDir()
	old := makeDir(t, root, "job-1-aaaaaaaa", 48*time.Hour)
	if result := Sweep(context.Background(), root, 0, nil); len(result.Removed) != 0 {
		t.Fatal("zero age must disable the sweep")
	}
	if _, err := os.Stat(old); err != nil {
		t.Fatal("directory removed with sweep disabled")
	}
}

func TestSweepRemovesOnlyOldJobDirectories(t *testing.T) {
	root := t.TempDir()
	old := makeDir(t, root, "job-1-aaaaaaaa", 2*time.Hour)
	recent := makeDir(t, root, "job-2-bbbbbbbb", 0)
	foreign := makeDir(t, root, "keep-me", 2*time.Hour)

	result := Sweep(context.Background(), root, time.Hour, logging.NewNop())
	if len(result.Removed) != 1 || result.Removed[0] != old {
		t.Fatalf("expected only %s removed, got %v", old, result.Removed)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old job directory should be gone")
	}
	for _, keep := range []string{recent, foreign} {
		if _, err := os.Stat(keep); err != nil {
			t.Errorf("%s should still exist", keep)
		}
	}
}

func TestSweepStopsOnCancelledContext(t *testing.T) {
	root := t.TempDir()
	makeDir(t, root, "job-1-aaaaaaaa", 2*time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if result := Sweep(ctx, root, time.Hour, nil); len(result.Removed) != 0 {
		t.Fatalf("cancelled sweep removed %v", result.Removed)
	}
}

func TestListReportsSizesOldestFirst(t *testing.T) {
	root := t.TempDir()
	newer := makeDir(t, root, "job-2-bbbbbbbb", time.Hour)
	older := makeDir(t, root, "job-1-aaaaaaaa", 3*time.Hour)
	makeDir(t, root, "other", 5*time.Hour)
	if err := os.WriteFile(filepath.Join(newer, "output.mp4"), []byte("12345"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	dirs, err := List(root)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(dirs) != 2 {
		t.Fatalf("expected 2 job directories, got %+v", dirs)
	}
	if dirs[0].Path != older || dirs[1].Path != newer {
		t.Fatalf("unexpected order: %+v", dirs)
	}
	if dirs[1].Size != 5 {
		t.Fatalf("expected size 5, got %d", dirs[1].Size)
	}

	missing, err := List(filepath.Join(root, "absent"))
	if err != nil || missing != nil {
		t.Fatalf("missing root: %v %v", missing, err)
	}
}
