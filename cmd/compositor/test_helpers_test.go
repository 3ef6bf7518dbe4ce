package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"compositor/internal/config"
	"compositor/internal/deps"
	"compositor/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

// fakeToolScript answers -version and -filters, prints probe JSON when run
// as ffprobe, and otherwise writes a small file to its last argument.
func fakeToolScript() string {
	var filters strings.Builder
	for _, name := range deps.RequiredFilters {
		filters.WriteString(" ... " + name + "  A->A  test filter\n")
	}
	return `name=$(basename "$0")
if [ "$1" = "-version" ]; then
  echo "$name version 7.1-test Copyright (c) the FFmpeg developers"
  exit 0
fi
if [ "$2" = "-filters" ]; then
  cat <<'LIST'
Filters:
` + filters.String() + `LIST
  exit 0
fi
case "$name" in
  *ffprobe*)
    cat <<'JSON'
` + testsupport.ProbeJSON(640, 360, 6, true) + `
JSON
    ;;
  *)
    for arg in "$@"; do last="$arg"; done
    printf 'media' > "$last"
    ;;
esac`
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(fakeToolScript()))
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "compositor.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--log-level", "error"}
	if env != nil {
		flags = append(flags, "--config", env.configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
