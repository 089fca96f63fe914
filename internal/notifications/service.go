package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelforge/internal/config"
)

const userAgent = "Reelforge-Go/0.1.0"

// Event identifies a notification-worthy moment in the daemon lifecycle.
type Event string

const (
	EventJobComplete   Event = "job_complete"
	EventJobFailed     Event = "job_failed"
	EventBatchComplete Event = "batch_complete"
	EventDaemonStarted Event = "daemon_started"
	EventDaemonStopped Event = "daemon_stopped"
	EventTest          Event = "test"
)

// Payload carries the event's display values. Missing keys render as empty
// strings; producers and the formatting table agree on key names.
type Payload map[string]string

// Service publishes lifecycle events. Implementations must be safe for
// concurrent use by the worker pool.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		jobs:     cfg.Notifications.Jobs,
		batch:    cfg.Notifications.Batch,
		errors:   cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	jobs     bool
	batch    bool
	errors   bool
}

// Publish formats and delivers one event. Events whose class is disabled in
// configuration are dropped silently; unknown events are ignored.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventJobComplete:
		return n.jobs
	case EventJobFailed:
		return n.errors
	case EventBatchComplete:
		return n.batch
	default:
		return true
	}
}

func render(event Event, payload Payload) (message, bool) {
	get := func(key string) string {
		return strings.TrimSpace(payload[key])
	}
	switch event {
	case EventJobComplete:
		body := fmt.Sprintf("🎬 Video ready: %s", get("topic"))
		if output := get("output"); output != "" {
			body += "\nOutput: " + output
		}
		return message{
			title: "Reelforge - Video Ready",
			body:  body,
			tags:  []string{"reelforge", "job", "completed"},
		}, true
	case EventJobFailed:
		return message{
			title:    "Reelforge - Job Failed",
			body:     fmt.Sprintf("❌ %s: %s", get("topic"), get("error")),
			tags:     []string{"reelforge", "job", "failed"},
			priority: "high",
		}, true
	case EventBatchComplete:
		return message{
			title: "Reelforge - Batch Complete",
			body:  fmt.Sprintf("📦 Batch complete: %s succeeded, %s failed", get("succeeded"), get("failed")),
			tags:  []string{"reelforge", "batch", "completed"},
		}, true
	case EventDaemonStarted:
		return message{
			title: "Reelforge - Daemon",
			body:  fmt.Sprintf("🚀 Daemon started with %s workers", get("workers")),
			tags:  []string{"reelforge", "daemon", "started"},
		}, true
	case EventDaemonStopped:
		return message{
			title: "Reelforge - Daemon",
			body:  "🛑 Daemon stopped",
			tags:  []string{"reelforge", "daemon", "stopped"},
		}, true
	case EventTest:
		return message{
			title: "Reelforge - Test",
			body:  "Test notification from reelforge",
			tags:  []string{"reelforge", "test"},
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
