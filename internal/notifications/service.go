package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"slate/internal/config"
)

const userAgent = "Slate/0.1.0"

// Service defines the notification surface exposed to the publish pipeline
// and the jobs worker.
type Service interface {
	NotifyPublishCompleted(ctx context.Context, name, path string, version int) error
	NotifyRenderQueued(ctx context.Context, take string, cameras int) error
	NotifyRenderSubmitted(ctx context.Context, take string) error
	NotifyError(ctx context.Context, err error, operation string) error
	TestNotification(ctx context.Context) error
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
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		publishes: cfg.Notifications.Publishes,
		renders:   cfg.Notifications.Renders,
		errors:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	publishes bool
	renders   bool
	errors    bool
}

func (n *ntfyService) NotifyPublishCompleted(ctx context.Context, name, path string, version int) error {
	if !n.publishes {
		return nil
	}
	message := fmt.Sprintf("Published: %s\n%s", strings.TrimSpace(name), strings.TrimSpace(path))
	if version > 0 {
		message = fmt.Sprintf("Published: %s v%d\n%s", strings.TrimSpace(name), version, strings.TrimSpace(path))
	}
	data := payload{
		title:   "Slate - Publish Complete",
		message: message,
		tags:    []string{"slate", "publish", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRenderQueued(ctx context.Context, take string, cameras int) error {
	if !n.renders {
		return nil
	}
	data := payload{
		title:   "Slate - Render Queued",
		message: fmt.Sprintf("Render queued: %s (%d cameras)", strings.TrimSpace(take), cameras),
		tags:    []string{"slate", "render", "queued"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRenderSubmitted(ctx context.Context, take string) error {
	if !n.renders {
		return nil
	}
	data := payload{
		title:   "Slate - Render Submitted",
		message: fmt.Sprintf("Render submitted to farm: %s", strings.TrimSpace(take)),
		tags:    []string{"slate", "render", "submitted"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, operation string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if operation = strings.TrimSpace(operation); operation != "" {
		builder.WriteString(" during ")
		builder.WriteString(operation)
	}
	if err != nil {
		builder.WriteString(": ")
		builder.WriteString(err.Error())
	}
	data := payload{
		title:    "Slate - Error",
		message:  builder.String(),
		tags:     []string{"slate", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Slate - Test",
		message:  "Notification system test",
		tags:     []string{"slate", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

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

type noopService struct{}

func (noopService) NotifyPublishCompleted(context.Context, string, string, int) error { return nil }
func (noopService) NotifyRenderQueued(context.Context, string, int) error             { return nil }
func (noopService) NotifyRenderSubmitted(context.Context, string) error               { return nil }
func (noopService) NotifyError(context.Context, error, string) error                  { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
