package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"compositor/internal/config"
	"compositor/internal/media"
	"compositor/internal/notifications"
	"compositor/internal/orchestrator"
	"compositor/internal/services"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

type recorder struct {
	mu       sync.Mutex
	requests []captured
	status   int
}

func (r *recorder) handler(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.requests = append(r.requests, captured{
		title:    req.Header.Get("Title"),
		tags:     req.Header.Get("Tags"),
		priority: req.Header.Get("Priority"),
		body:     string(body),
	})
	status := r.status
	r.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte("nope"))
}

func (r *recorder) snapshot() []captured {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]captured(nil), r.requests...)
}

func newNotifier(t *testing.T, notifySuccess bool) (*notifications.Notifier, *recorder) {
	t.Helper()
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(rec.handler))
	t.Cleanup(server.Close)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL + "/renders"
	cfg.Notifications.NotifySuccess = notifySuccess
	n := notifications.New(&cfg, nil)
	if n == nil {
		t.Fatal("expected notifier for configured topic")
	}
	return n, rec
}

func finished(res media.JobResult) orchestrator.Event {
	return orchestrator.Event{
		Type:          orchestrator.EventFinished,
		JobID:         res.JobID,
		CorrelationID: res.CorrelationID,
		Kind:          res.Kind,
		At:            time.Now(),
		Result:        &res,
	}
}

func closeNotifier(t *testing.T, n *notifications.Notifier) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n.Close(ctx)
}

func TestNewReturnsNilWithoutTopic(t *testing.T) {
	cfg := config.Default()
	n := notifications.New(&cfg, nil)
	if n != nil {
		t.Fatal("expected nil notifier without topic")
	}
	// A nil notifier is safe to use.
	n.JobEvent(finished(media.JobResult{Kind: media.KindConcat, Status: media.StatusFailed}))
	if err := n.Test(context.Background()); err != nil {
		t.Fatalf("nil Test: %v", err)
	}
	n.Close(context.Background())
}

func TestFailureIsSentWithHighPriority(t *testing.T) {
	n, rec := newNotifier(t, false)
	n.JobEvent(finished(media.JobResult{
		JobID:      4,
		Kind:       media.KindConcat,
		Status:     media.StatusFailed,
		ErrorKind:  services.KindDecodeFailed,
		Diagnostic: "clip2.mp4: Invalid data found when processing input",
	}))
	closeNotifier(t, n)

	reqs := rec.snapshot()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	got := reqs[0]
	if got.title != "compositor - Job Failed" || got.priority != "high" {
		t.Fatalf("unexpected headers: %+v", got)
	}
	if got.tags != "compositor,concat,error" {
		t.Fatalf("unexpected tags %q", got.tags)
	}
	want := "concat job 4 failed (decode_failed): clip2.mp4: Invalid data found when processing input"
	if got.body != want {
		t.Fatalf("body = %q, want %q", got.body, want)
	}
}

func TestSuccessRespectsNotifySuccess(t *testing.T) {
	success := media.JobResult{
		JobID:           2,
		Kind:            media.KindMix,
		Status:          media.StatusSucceeded,
		OutputPath:      "/renders/final.mp4",
		DurationSeconds: 12.5,
	}

	quiet, quietRec := newNotifier(t, false)
	quiet.JobEvent(finished(success))
	closeNotifier(t, quiet)
	if n := len(quietRec.snapshot()); n != 0 {
		t.Fatalf("expected no success notification, got %d", n)
	}

	loud, loudRec := newNotifier(t, true)
	loud.JobEvent(finished(success))
	closeNotifier(t, loud)
	reqs := loudRec.snapshot()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	if reqs[0].body != "mix finished: final.mp4 (12.5s)" {
		t.Fatalf("unexpected body %q", reqs[0].body)
	}
	if reqs[0].priority != "" {
		t.Fatalf("success should use default priority, got %q", reqs[0].priority)
	}
}

func TestIgnoredEvents(t *testing.T) {
	n, rec := newNotifier(t, true)
	n.JobEvent(orchestrator.Event{Type: orchestrator.EventQueued, Kind: media.KindConcat})
	n.JobEvent(orchestrator.Event{Type: orchestrator.EventStarted, Kind: media.KindConcat})
	n.JobEvent(finished(media.JobResult{Kind: media.KindProbe, Status: media.StatusFailed}))
	n.JobEvent(finished(media.JobResult{Kind: media.KindTranscode, Status: media.StatusCancelled}))
	closeNotifier(t, n)
	if got := len(rec.snapshot()); got != 0 {
		t.Fatalf("expected no requests, got %d", got)
	}
}

func TestTestNotificationReportsHTTPErrors(t *testing.T) {
	n, rec := newNotifier(t, true)
	defer closeNotifier(t, n)
	if err := n.Test(context.Background()); err != nil {
		t.Fatalf("Test: %v", err)
	}
	if reqs := rec.snapshot(); len(reqs) != 1 || reqs[0].priority != "low" {
		t.Fatalf("unexpected requests %+v", reqs)
	}

	rec.mu.Lock()
	rec.status = http.StatusForbidden
	rec.mu.Unlock()
	err := n.Test(context.Background())
	if err == nil || !strings.Contains(err.Error(), "ntfy returned 403: nope") {
		t.Fatalf("expected status error, got %v", err)
	}
}
