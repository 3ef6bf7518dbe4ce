package testsupport

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"compositor/internal/config"
	"compositor/internal/orchestrator"
)

// Handler scripts one fake process run.
type Handler func(ctx context.Context, cmd orchestrator.Command, stdout, stderr io.Writer) error

// Executor is a scripted orchestrator.Executor that records every command.
// Without a Handler, ffprobe commands print ProbeOutput and every other
// command writes a small file to its output path.
type Executor struct {
	Handler     Handler
	ProbeOutput string

	mu       sync.Mutex
	commands []orchestrator.Command
}

// Run implements orchestrator.Executor.
func (e *Executor) Run(ctx context.Context, cmd orchestrator.Command, stdout, stderr io.Writer) error {
	e.mu.Lock()
	e.commands = append(e.commands, cmd)
	handler := e.Handler
	e.mu.Unlock()
	if handler != nil {
		return handler(ctx, cmd, stdout, stderr)
	}
	if IsProbe(cmd) {
		_, err := io.WriteString(stdout, e.ProbeOutput)
		return err
	}
	return WriteOutput(cmd, "media")
}

// Commands returns the commands run so far.
func (e *Executor) Commands() []orchestrator.Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]orchestrator.Command(nil), e.commands...)
}

// EncodeCommands returns the non-probe commands run so far.
func (e *Executor) EncodeCommands() []orchestrator.Command {
	var out []orchestrator.Command
	for _, cmd := range e.Commands() {
		if !IsProbe(cmd) {
			out = append(out, cmd)
		}
	}
	return out
}

// IsProbe reports whether cmd invokes ffprobe.
func IsProbe(cmd orchestrator.Command) bool {
	return strings.Contains(filepath.Base(cmd.Binary), "ffprobe")
}

// OutputPath returns the file an ffmpeg command writes, its last argument.
func OutputPath(cmd orchestrator.Command) string {
	if len(cmd.Args) == 0 {
		return ""
	}
	return cmd.Args[len(cmd.Args)-1]
}

// WriteOutput fills the command's output path with data.
func WriteOutput(cmd orchestrator.Command, data string) error {
	return os.WriteFile(OutputPath(cmd), []byte(data), 0o644)
}

// ProbeJSON renders ffprobe -of json output for a clip.
func ProbeJSON(width, height int, duration float64, withAudio bool) string {
	audio := ""
	if withAudio {
		audio = `,{"index":1,"codec_type":"audio","codec_name":"aac","channels":2}`
	}
	return fmt.Sprintf(`{"streams":[{"index":0,"codec_type":"video","codec_name":"h264","width":%d,"height":%d,"avg_frame_rate":"30/1","pix_fmt":"yuv420p"}%s],`+
		`"format":{"format_name":"mov,mp4,m4a,3gp,3g2,mj2","duration":"%g","size":"1024","bit_rate":"8000"}}`,
		width, height, audio, duration)
}

// NewOrchestrator builds an orchestrator over exec using the engine section
// of cfg and registers cleanup.
func NewOrchestrator(t testing.TB, cfg *config.Config, exec orchestrator.Executor, opts ...orchestrator.Option) *orchestrator.Orchestrator {
	t.Helper()
	o, err := orchestrator.New(orchestrator.Config{
		MaxConcurrent:  cfg.Engine.MaxConcurrent,
		QueueLimit:     cfg.Engine.QueueLimit,
		WorkRoot:       cfg.Paths.WorkDir,
		DefaultTimeout: cfg.JobTimeout(),
		MinFreeBytes:   cfg.MinFreeBytes(),
	}, exec, opts...)
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	t.Cleanup(o.Close)
	return o
}
