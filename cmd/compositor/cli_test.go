package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"compositor/internal/history"
	"compositor/internal/media"
	"compositor/internal/services"
	"compositor/internal/testsupport"
)

func TestTranscodeCommandWritesOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "in.mp4")
	testsupport.WriteFile(t, input, 64)
	output := filepath.Join(env.baseDir, "out", "final.mp4")

	out, _, err := runCLI(t, env, "transcode", input, output, "--preset", "platform-a", "--width", "640", "--height", "360")
	if err != nil {
		t.Fatalf("transcode: %v", err)
	}
	requireContains(t, out, "Job #1 (transcode)")
	requireContains(t, out, "Succeeded")
	requireContains(t, out, "640x360")
	if info, err := os.Stat(output); err != nil || info.Size() == 0 {
		t.Fatalf("expected non-empty output, got %v", err)
	}
}

func TestTranscodeCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "in.mp4")
	testsupport.WriteFile(t, input, 64)

	out, _, err := runCLI(t, env, "--json", "transcode", input, filepath.Join(env.baseDir, "o.mp4"), "-q", "22")
	if err != nil {
		t.Fatalf("transcode: %v", err)
	}
	var res media.JobResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode result: %v\n%s", err, out)
	}
	if res.Status != media.StatusSucceeded || res.DurationSeconds != 6 || res.CorrelationID == "" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestMixCommandRejectsLoudTrack(t *testing.T) {
	env := setupCLITestEnv(t)
	video := filepath.Join(env.baseDir, "v.mp4")
	music := filepath.Join(env.baseDir, "m.mp3")
	testsupport.WriteFile(t, video, 16)
	testsupport.WriteFile(t, music, 16)
	output := filepath.Join(env.baseDir, "mixed.mp4")

	out, _, err := runCLI(t, env, "mix", output, "--video", video, "--track", "music="+music+",volume=1.5")
	if !errors.Is(err, services.ErrInvalidTrackVolume) {
		t.Fatalf("expected invalid volume, got %v", err)
	}
	if exitCode(err) != exitUsage {
		t.Fatalf("exit code = %d", exitCode(err))
	}
	requireContains(t, out, "Invalid Spec")
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Fatal("rejected mix must not create an output")
	}
}

func TestMixCommandDuckingWarns(t *testing.T) {
	env := setupCLITestEnv(t)
	video := filepath.Join(env.baseDir, "v.mp4")
	voice := filepath.Join(env.baseDir, "voice.wav")
	testsupport.WriteFile(t, video, 16)
	testsupport.WriteFile(t, voice, 16)

	out, _, err := runCLI(t, env, "mix", filepath.Join(env.baseDir, "ducked.mp4"),
		"--video", video, "--track", "narration="+voice+",start=2,volume=0.3", "--duck")
	if err != nil {
		t.Fatalf("mix: %v", err)
	}
	requireContains(t, out, "ducking ignored")
}

func TestConcatCommandAndJobsLedger(t *testing.T) {
	env := setupCLITestEnv(t)
	var args []string
	for i, d := range []string{"2", "4", "2"} {
		clip := filepath.Join(env.baseDir, "clip"+string(rune('1'+i))+".mp4")
		testsupport.WriteFile(t, clip, 16)
		args = append(args, "--clip", clip+"="+d)
	}
	output := filepath.Join(env.baseDir, "joined.mp4")
	if _, _, err := runCLI(t, env, append([]string{"concat", output, "-r", "720x1280"}, args...)...); err != nil {
		t.Fatalf("concat: %v", err)
	}

	out, _, err := runCLI(t, env, "--json", "jobs", "list", "--kind", "concat")
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	var records []history.Record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode records: %v\n%s", err, out)
	}
	if len(records) != 1 || records[0].OutputPath != output || records[0].Status != media.StatusSucceeded {
		t.Fatalf("unexpected ledger %+v", records)
	}

	out, _, err = runCLI(t, env, "jobs", "show", records[0].CorrelationID[:8])
	if err != nil {
		t.Fatalf("jobs show: %v", err)
	}
	requireContains(t, out, records[0].CorrelationID)
	requireContains(t, out, "Concat")

	out, _, err = runCLI(t, env, "jobs", "list")
	if err != nil {
		t.Fatalf("jobs list table: %v", err)
	}
	requireContains(t, out, "Succeeded")
}

func TestThumbnailAndBlankCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "in.mp4")
	testsupport.WriteFile(t, input, 16)

	if _, _, err := runCLI(t, env, "thumbnail", input, filepath.Join(env.baseDir, "t.jpg"), "--at", "1.5", "--width", "320"); err != nil {
		t.Fatalf("thumbnail: %v", err)
	}
	out, _, err := runCLI(t, env, "blank", filepath.Join(env.baseDir, "gap.mp4"), "-d", "3", "-r", "1280x720")
	if err != nil {
		t.Fatalf("blank: %v", err)
	}
	requireContains(t, out, "Blank Generate")
}

func TestProbeCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	input := filepath.Join(env.baseDir, "in.mp4")
	testsupport.WriteFile(t, input, 16)

	out, _, err := runCLI(t, env, "probe", input)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	requireContains(t, out, "640x360")

	_, _, err = runCLI(t, env, "probe", filepath.Join(env.baseDir, "missing.mp4"))
	if !errors.Is(err, services.ErrInputNotFound) {
		t.Fatalf("expected InputNotFound, got %v", err)
	}
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "7.1-test")
	requireContains(t, out, "required filters present")
	requireContains(t, out, "History")
	requireContains(t, out, "Notifications")
}

func TestStatusReportsLeftoverJobDirectories(t *testing.T) {
	env := setupCLITestEnv(t)
	leftover := filepath.Join(env.cfg.Paths.WorkDir, "job-9-deadbeef")
	if err := os.MkdirAll(leftover, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(leftover, "output.mp4"), []byte("partial"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, _, err := runCLI(t, env, "--json", "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if report.LeftoverDirs != 1 || report.LeftoverBytes != int64(len("partial")) {
		t.Fatalf("unexpected leftovers: %+v", report)
	}
}

func TestTestNotifyCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "test-notify"); err == nil || !strings.Contains(err.Error(), "ntfy_topic") {
		t.Fatalf("expected missing topic error, got %v", err)
	}

	var gotTitle, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotTitle = r.Header.Get("Title")
		gotBody = string(body)
	}))
	defer server.Close()

	env.cfg.Notifications.NtfyTopic = server.URL + "/renders"
	writeTestConfig(t, env.configPath, env.cfg)
	out, _, err := runCLI(t, env, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Test notification sent")
	if gotTitle != "compositor - Test" || gotBody != "Notification system test" {
		t.Fatalf("unexpected request: %q %q", gotTitle, gotBody)
	}
}

func TestPresetsCommand(t *testing.T) {
	out, _, err := runCLI(t, nil, "presets")
	if err != nil {
		t.Fatalf("presets: %v", err)
	}
	for _, name := range []string{"generic", "platform-a", "platform-b", "platform-c"} {
		requireContains(t, out, name)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse to overwrite")
	}
}

func TestParseTrack(t *testing.T) {
	track, err := parseTrack("music=/media/bed.mp3,start=2,volume=0.3,duration=4.5")
	if err != nil {
		t.Fatalf("parseTrack: %v", err)
	}
	if track.Kind != media.TrackMusic || track.Path != "/media/bed.mp3" || track.StartTime != 2 {
		t.Fatalf("unexpected track %+v", track)
	}
	if track.Volume == nil || *track.Volume != 0.3 || track.Duration == nil || *track.Duration != 4.5 {
		t.Fatalf("unexpected optional fields %+v", track)
	}
	for _, bad := range []string{"voice.wav", "foley=x.wav", "sfx=x.wav,pan=1", "sfx=x.wav,start"} {
		if _, err := parseTrack(bad); err == nil {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}

func TestParseClip(t *testing.T) {
	clip, err := parseClip("/a=b/intro.mp4=2.5", 3)
	if err != nil {
		t.Fatalf("parseClip: %v", err)
	}
	if clip.Path != "/a=b/intro.mp4" || clip.Duration != 2.5 || clip.Position != 3 {
		t.Fatalf("unexpected clip %+v", clip)
	}
	for _, bad := range []string{"intro.mp4", "=2", "intro.mp4=", "intro.mp4=two"} {
		if _, err := parseClip(bad, 0); err == nil {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}

func TestHumanLabel(t *testing.T) {
	cases := map[string]string{
		"timed_out":      "Timed Out",
		"blank-generate": "Blank Generate",
		"invalid_spec":   "Invalid Spec",
		"":               "-",
	}
	for in, want := range cases {
		if got := humanLabel(in); got != want {
			t.Errorf("humanLabel(%q) = %q, want %q", in, got, want)
		}
	}
	if !strings.HasPrefix(formatSize(2048), "2.0 KiB") {
		t.Fatalf("formatSize = %q", formatSize(2048))
	}
}
