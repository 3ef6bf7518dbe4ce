package orchestrator

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"
)

// Command is a single process invocation.
type Command struct {
	Binary string
	Args   []string
	Dir    string
}

// Executor spawns a process and blocks until it exits. Implementations must
// terminate the process when ctx ends.
type Executor interface {
	Run(ctx context.Context, cmd Command, stdout, stderr io.Writer) error
}

// DefaultGracePeriod is how long a cancelled process gets to exit after the
// interrupt before it is killed.
const DefaultGracePeriod = 5 * time.Second

// ExecExecutor runs commands with os/exec. On cancellation the process is sent
// an interrupt so ffmpeg can close its output, then killed after GracePeriod.
type ExecExecutor struct {
	GracePeriod time.Duration
}

// Run implements Executor.
func (e ExecExecutor) Run(ctx context.Context, cmd Command, stdout, stderr io.Writer) error {
	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...)
	c.Dir = cmd.Dir
	c.Stdout = stdout
	c.Stderr = stderr
	c.Stdin = nil
	c.Cancel = func() error {
		if err := c.Process.Signal(os.Interrupt); err != nil {
			return c.Process.Kill()
		}
		return nil
	}
	grace := e.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	c.WaitDelay = grace
	return c.Run()
}

// ExitCode extracts the process exit status from an Executor error.
func ExitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return 0, false
}
