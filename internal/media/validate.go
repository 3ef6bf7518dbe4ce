package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"compositor/internal/services"
)

// CheckInput verifies that path names an existing regular file. A missing
// file is InputNotFound; anything else unusable is InvalidSpec.
func CheckInput(op, label, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return services.Invalid(op, "%s path is required", label)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.KindInputNotFound, op, fmt.Sprintf("%s %s", label, path), err)
		}
		return services.Wrap(services.KindInvalidSpec, op, fmt.Sprintf("stat %s %s", label, path), err)
	}
	if info.IsDir() {
		return services.Invalid(op, "%s %s is a directory", label, path)
	}
	return nil
}

// CheckOutput verifies that path is usable as a destination: non-empty, with
// a container extension, and distinct from every input.
func CheckOutput(op, path string, inputs ...string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return services.Invalid(op, "output path is required")
	}
	if filepath.Ext(path) == "" {
		return services.Invalid(op, "output %s needs a file extension", path)
	}
	out, err := filepath.Abs(path)
	if err != nil {
		return services.Wrap(services.KindInvalidSpec, op, "resolve output path", err)
	}
	for _, input := range inputs {
		in, err := filepath.Abs(strings.TrimSpace(input))
		if err == nil && in == out {
			return services.Invalid(op, "output %s would overwrite an input", path)
		}
	}
	return nil
}
