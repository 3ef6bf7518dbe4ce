package media

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"compositor/internal/services"
)

func TestCheckInput(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CheckInput("op", "input", file); err != nil {
		t.Fatalf("existing file rejected: %v", err)
	}
	if err := CheckInput("op", "input", filepath.Join(dir, "missing.mp4")); !errors.Is(err, services.ErrInputNotFound) {
		t.Fatalf("missing file: got %v", err)
	}
	if err := CheckInput("op", "input", " "); !errors.Is(err, services.ErrInvalidSpec) {
		t.Fatalf("empty path: got %v", err)
	}
	if err := CheckInput("op", "input", dir); !errors.Is(err, services.ErrInvalidSpec) {
		t.Fatalf("directory: got %v", err)
	}
}

func TestCheckOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.mp4")

	if err := CheckOutput("op", filepath.Join(dir, "out.mp4"), in); err != nil {
		t.Fatalf("valid output rejected: %v", err)
	}
	for name, path := range map[string]string{
		"empty":        "",
		"no extension": filepath.Join(dir, "out"),
		"overwrite":    in,
	} {
		if err := CheckOutput("op", path, in); !errors.Is(err, services.ErrInvalidSpec) {
			t.Errorf("%s: expected InvalidSpec, got %v", name, err)
		}
	}
}
