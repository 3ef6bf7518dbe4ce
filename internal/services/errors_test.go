package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"compositor/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.KindEncodeFailed, "transcode", "ffmpeg exited 1", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrEncodeFailed) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"encode failed", "transcode", "ffmpeg exited 1", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want services.ErrorKind
	}{
		{"nil", nil, ""},
		{"typed", services.Invalid("mix", "no tracks"), services.KindInvalidSpec},
		{"wrapped typed", fmt.Errorf("outer: %w", services.Wrap(services.KindProbeFailed, "probe", "", nil)), services.KindProbeFailed},
		{"marker", fmt.Errorf("queue: %w", services.ErrResourceExhausted), services.KindResourceExhausted},
		{"deadline", context.DeadlineExceeded, services.KindTimeout},
		{"canceled", context.Canceled, services.KindCancelled},
		{"unknown", errors.New("mystery"), services.KindEncodeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.KindOf(tt.err); got != tt.want {
				t.Fatalf("KindOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInvalidTrackVolumeIsInvalidSpec(t *testing.T) {
	err := services.Wrap(services.KindInvalidSpec, "mix", "track 1 volume 1.5", services.ErrInvalidTrackVolume)
	if !errors.Is(err, services.ErrInvalidSpec) || !errors.Is(err, services.ErrInvalidTrackVolume) {
		t.Fatalf("expected both markers, got %v", err)
	}
	if !services.Rejected(err) {
		t.Fatal("expected invalid spec to count as a pre-flight rejection")
	}
}

func TestWithDiagnosticPreservesKind(t *testing.T) {
	err := services.WithDiagnostic(services.Wrap(services.KindDecodeFailed, "concat", "", nil), "moov atom not found")
	if services.KindOf(err) != services.KindDecodeFailed {
		t.Fatalf("unexpected kind %q", services.KindOf(err))
	}
	if services.DiagnosticOf(err) != "moov atom not found" {
		t.Fatalf("unexpected diagnostic %q", services.DiagnosticOf(err))
	}
	if services.WithDiagnostic(nil, "x") != nil {
		t.Fatal("expected nil passthrough")
	}
}

func TestClassifyDiagnostic(t *testing.T) {
	tests := []struct {
		stderr string
		want   services.ErrorKind
	}{
		{"[mov,mp4] moov atom not found\nin.mp4: Invalid data found when processing input", services.KindDecodeFailed},
		{"in.mp4: No such file or directory", services.KindInputNotFound},
		{"av_interleaved_write_frame(): No space left on device", services.KindResourceExhausted},
		{"Unknown encoder 'libfoo'", services.KindEncodeFailed},
		{"Stream specifier ':a' in filtergraph description [0:a]anull[a0] matches no streams.", services.KindEncodeFailed},
		{"", services.KindEncodeFailed},
	}
	for _, tt := range tests {
		if got := services.ClassifyDiagnostic(tt.stderr); got != tt.want {
			t.Errorf("ClassifyDiagnostic(%q) = %q, want %q", tt.stderr, got, tt.want)
		}
	}
}
