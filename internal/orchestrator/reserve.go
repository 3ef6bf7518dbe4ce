package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// lockPath is the cross-process reservation file for an output destination.
func lockPath(output string) string {
	return output + ".lock"
}

// reserveOutput takes a non-blocking flock on the destination so two processes
// never write the same file.
func reserveOutput(output string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return nil, fmt.Errorf("ensure output directory: %w", err)
	}
	lock := flock.New(lockPath(output))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock output: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("output %s is reserved by another process", output)
	}
	return lock, nil
}

func releaseOutput(lock *flock.Flock) {
	if lock == nil {
		return
	}
	_ = lock.Unlock()
	_ = os.Remove(lock.Path())
}
