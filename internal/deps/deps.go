package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strings"
	"time"

	"compositor/internal/config"
)

// Requirement defines an external dependency the compositor relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Version     string
	Detail      string
}

// RequiredFilters are the ffmpeg filters the filter graph builder emits.
var RequiredFilters = []string{
	"adelay", "aformat", "amix", "anull", "anullsrc", "apad", "aresample",
	"asetpts", "atrim", "color", "concat", "format", "fps", "pad", "scale",
	"setpts", "setsar", "volume",
}

const versionTimeout = 5 * time.Second

// Requirements returns the binaries configured in cfg.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.FFmpegBinary(), Description: "Runs every encode job"},
		{Name: "FFprobe", Command: cfg.FFprobeBinary(), Description: "Inspects inputs and outputs"},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Check resolves every requirement and, for available binaries, records the
// reported version.
func Check(ctx context.Context, requirements []Requirement) []Status {
	results := CheckBinaries(requirements)
	for i := range results {
		if !results[i].Available {
			continue
		}
		version, err := Version(ctx, results[i].Command)
		if err != nil {
			results[i].Detail = err.Error()
			continue
		}
		results[i].Version = version
	}
	return results
}

var versionPattern = regexp.MustCompile(`^\S+ version (\S+)`)

// Version runs "binary -version" and returns the version token from the
// first line.
func Version(ctx context.Context, binary string) (string, error) {
	out, err := run(ctx, binary, "-version")
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(out), "\n")
	match := versionPattern.FindStringSubmatch(strings.TrimSpace(line))
	if match == nil {
		return "", fmt.Errorf("unrecognised version output %q", strings.TrimSpace(line))
	}
	return match[1], nil
}

// MissingFilters lists the required filters that ffmpeg does not report.
func MissingFilters(ctx context.Context, ffmpegBinary string, required []string) ([]string, error) {
	out, err := run(ctx, ffmpegBinary, "-hide_banner", "-filters")
	if err != nil {
		return nil, err
	}
	available := parseFilters(out)
	var missing []string
	for _, name := range required {
		if !available[name] {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing, nil
}

// parseFilters reads "ffmpeg -filters" output. Filter rows are a flag column,
// the filter name, and an input->output signature.
func parseFilters(out []byte) map[string]bool {
	names := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || !strings.Contains(fields[2], "->") {
			continue
		}
		names[fields[1]] = true
	}
	return names
}

func run(ctx context.Context, binary string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("%s %s: %s", binary, strings.Join(args, " "), detail)
	}
	return stdout.Bytes(), nil
}
