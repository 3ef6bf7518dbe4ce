package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestTeeHandlerCollapses(t *testing.T) {
	if _, ok := TeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("all-nil handlers should produce a noop handler")
	}
	single := slog.NewTextHandler(&bytes.Buffer{}, nil)
	if got := TeeHandler(nil, single); got != single {
		t.Fatal("a single handler should be returned unwrapped")
	}
}

func TestTeeHandlerRespectsEachLevel(t *testing.T) {
	var console, file bytes.Buffer
	consoleHandler := slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn})
	fileHandler := slog.NewTextHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(TeeHandler(consoleHandler, fileHandler)).With(String(FieldComponent, "orchestrator"))

	logger.Debug("job command")
	logger.Warn("job did not succeed")

	if strings.Contains(console.String(), "job command") {
		t.Fatal("console handler received a debug record")
	}
	if !strings.Contains(console.String(), "job did not succeed") {
		t.Fatal("console handler missed the warning")
	}
	for _, want := range []string{"job command", "job did not succeed", "component=orchestrator"} {
		if !strings.Contains(file.String(), want) {
			t.Fatalf("file handler missing %q:\n%s", want, file.String())
		}
	}
}

func TestJSONHandlerRendersDurationsAsSeconds(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, lvl, false))
	logger.Info("job succeeded", Duration("ran_for", 1500*time.Millisecond), Int64("size_bytes", 10))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record["ran_for"] != 1.5 {
		t.Fatalf("ran_for = %v", record["ran_for"])
	}
	if record["level"] != "info" {
		t.Fatalf("level = %v", record["level"])
	}
	ts, ok := record["ts"].(string)
	if !ok {
		t.Fatalf("missing ts: %v", record)
	}
	if _, err := time.Parse(jsonTimestampLayout, ts); err != nil {
		t.Fatalf("ts %q does not parse: %v", ts, err)
	}
}

func TestConsoleProgressStaysOnOneLine(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false)).With(Int64(FieldJobID, 5), String(FieldJobKind, "concat"))
	logger.LogAttrs(context.Background(), slog.LevelInfo, "job progress",
		Float64(FieldProgressPercent, 42),
		Duration("out_time", 12*time.Second),
		String("speed", "2.1x"),
	)

	out := buf.String()
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected a single line, got %q", out)
	}
	if !strings.Contains(out, "Job #5 (concat) - job progress 42.0% (Position: 12s, Speed: 2.1x)") {
		t.Fatalf("unexpected progress line %q", out)
	}
}

func TestConsoleHidesRepeatedInfoFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, lvl, false)).With(Int64(FieldJobID, 9))
	logger.Info("job queued", String("output", "/renders/a.mp4"))
	logger.Info("job succeeded", String("output", "/renders/a.mp4"), Int64("size_bytes", 4096))

	out := buf.String()
	if strings.Count(out, "Output: /renders/a.mp4") != 1 {
		t.Fatalf("expected output field once:\n%s", out)
	}
	if !strings.Contains(out, "Size: 4.0 KiB") {
		t.Fatalf("missing size:\n%s", out)
	}
}

func TestCommandQuotesFiltergraphs(t *testing.T) {
	attr := Command("ffmpeg", []string{"-i", "my clip.mp4", "-filter_complex", "[0:a]volume=1[aout]", "-y", "out.mp4"})
	want := "ffmpeg -i 'my clip.mp4' -filter_complex '[0:a]volume=1[aout]' -y out.mp4"
	if attr.Key != "command" || attr.Value.String() != want {
		t.Fatalf("Command = %q", attr.Value.String())
	}
	if got := shellQuote("it's"); got != `"it's"` {
		t.Fatalf("shellQuote = %q", got)
	}
	if got := shellQuote(""); got != "''" {
		t.Fatalf("empty arg = %q", got)
	}
}
