package notifications

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"compositor/internal/config"
	"compositor/internal/logging"
	"compositor/internal/media"
	"compositor/internal/orchestrator"
)

const userAgent = "compositor/0.1.0"

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

// Notifier posts job outcomes to an ntfy topic.
type Notifier struct {
	endpoint      string
	client        *http.Client
	notifySuccess bool
	logger        *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns a Notifier for the configured topic, or nil when no topic is
// set. A nil Notifier ignores every call.
func New(cfg *config.Config, logger *slog.Logger) *Notifier {
	if cfg == nil {
		return nil
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return nil
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Notifier{
		endpoint:      topic,
		client:        &http.Client{Timeout: cfg.NotifyTimeout()},
		notifySuccess: cfg.Notifications.NotifySuccess,
		logger:        logging.NewComponentLogger(logger, "notifications"),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// JobEvent implements orchestrator.Observer.
func (n *Notifier) JobEvent(evt orchestrator.Event) {
	if n == nil || evt.Type != orchestrator.EventFinished || evt.Result == nil {
		return
	}
	data, ok := n.payloadFor(*evt.Result)
	if !ok {
		return
	}
	n.wg.Go(func() {
		if err := n.send(n.ctx, data); err != nil {
			logging.WarnWithContext(n.logger, "job notification failed", "notification_failed",
				logging.Int64(logging.FieldJobID, evt.JobID),
				logging.String(logging.FieldCorrelationID, evt.CorrelationID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
				logging.String(logging.FieldImpact, "job outcome not announced"),
			)
		}
	})
}

// Test sends a low priority message so users can verify the topic.
func (n *Notifier) Test(ctx context.Context) error {
	if n == nil {
		return nil
	}
	return n.send(ctx, payload{
		title:    "compositor - Test",
		message:  "Notification system test",
		tags:     []string{"compositor", "test"},
		priority: "low",
	})
}

// Close waits for pending notifications. Requests still running once ctx
// expires are abandoned.
func (n *Notifier) Close(ctx context.Context) {
	if n == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		n.cancel()
		<-done
	}
	n.cancel()
}

func (n *Notifier) payloadFor(res media.JobResult) (payload, bool) {
	if res.Kind == media.KindProbe {
		return payload{}, false
	}
	label := string(res.Kind)
	switch res.Status {
	case media.StatusSucceeded:
		if !n.notifySuccess {
			return payload{}, false
		}
		msg := fmt.Sprintf("%s finished: %s", label, filepath.Base(res.OutputPath))
		if res.DurationSeconds > 0 {
			msg += fmt.Sprintf(" (%.1fs)", res.DurationSeconds)
		}
		if len(res.Warnings) > 0 {
			msg += fmt.Sprintf("\n%d warning(s): %s", len(res.Warnings), res.Warnings[0])
		}
		return payload{
			title:   "compositor - Job Complete",
			message: msg,
			tags:    []string{"compositor", label, "completed"},
		}, true
	case media.StatusFailed, media.StatusTimedOut:
		var builder strings.Builder
		fmt.Fprintf(&builder, "%s job %d failed", label, res.JobID)
		if res.ErrorKind != "" {
			fmt.Fprintf(&builder, " (%s)", res.ErrorKind)
		}
		if diag := strings.TrimSpace(res.Diagnostic); diag != "" {
			builder.WriteString(": ")
			builder.WriteString(truncate(diag, 400))
		}
		return payload{
			title:    "compositor - Job Failed",
			message:  builder.String(),
			tags:     []string{"compositor", label, "error"},
			priority: "high",
		}, true
	default:
		return payload{}, false
	}
}

func (n *Notifier) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "..."
}
