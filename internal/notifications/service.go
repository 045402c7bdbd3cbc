package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"upkeep/internal/config"
	"upkeep/internal/stream"
)

const userAgent = "Upkeep/0.1.0"

// Service defines the notification surface exposed to the coordinator.
type Service interface {
	NotifyRunStarted(ctx context.Context, operations int) error
	NotifyRunCompleted(ctx context.Context, summary stream.Summary, duration time.Duration) error
	NotifyOperationFailed(ctx context.Context, operationID string, exitStatus int) error
	NotifyWorkerStalled(ctx context.Context, operationID string) error
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
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, operations int) error {
	data := payload{
		title:   "Upkeep - Run Started",
		message: fmt.Sprintf("Maintenance run started (%d operations)", operations),
		tags:    []string{"upkeep", "run", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, summary stream.Summary, duration time.Duration) error {
	message := fmt.Sprintf("Maintenance finished in %s: %d succeeded, %d failed, %d skipped",
		duration.Round(time.Second), summary.Succeeded, summary.Failed, summary.Skipped)
	if summary.Incomplete > 0 {
		message += fmt.Sprintf(", %d incomplete (verify manually)", summary.Incomplete)
	}
	data := payload{
		title:   "Upkeep - Run Complete",
		message: message,
		tags:    []string{"upkeep", "run", "complete"},
	}
	if summary.Failed > 0 || summary.Incomplete > 0 {
		data.priority = "high"
		data.tags = []string{"upkeep", "run", "attention"}
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyOperationFailed(ctx context.Context, operationID string, exitStatus int) error {
	data := payload{
		title:    "Upkeep - Operation Failed",
		message:  fmt.Sprintf("%s exited with status %d", operationID, exitStatus),
		tags:     []string{"upkeep", "operation", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyWorkerStalled(ctx context.Context, operationID string) error {
	data := payload{
		title:    "Upkeep - Worker Stalled",
		message:  fmt.Sprintf("No output from %s; the worker may be wedged", operationID),
		tags:     []string{"upkeep", "worker", "stalled"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Upkeep - Test",
		message:  "Notification system test",
		tags:     []string{"upkeep", "test"},
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

func (noopService) NotifyRunStarted(context.Context, int) error { return nil }
func (noopService) NotifyRunCompleted(context.Context, stream.Summary, time.Duration) error {
	return nil
}
func (noopService) NotifyOperationFailed(context.Context, string, int) error { return nil }
func (noopService) NotifyWorkerStalled(context.Context, string) error        { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
