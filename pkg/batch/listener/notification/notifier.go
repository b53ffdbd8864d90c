package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	port "github.com/tigerroll/nameforge/pkg/batch/core/application/port"
	model "github.com/tigerroll/nameforge/pkg/batch/core/domain/model"
	"github.com/tigerroll/nameforge/pkg/batch/support/util/logger"
)

// LogNotifier is a notifier that only logs notifications.
type LogNotifier struct{}

// NewLogNotifier creates a new instance of LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// NotifyRunCompletion logs a one-line run notification.
func (n *LogNotifier) NotifyRunCompletion(ctx context.Context, summary *model.RunSummary) error {
	message := fmt.Sprintf(
		"Run Notification: run %s finished. Succeeded: %d, Failed: %d, Skipped: %d, Remaining: %d. Duration: %s",
		summary.RunID,
		summary.Succeeded,
		summary.Failed,
		summary.Skipped,
		summary.Remaining,
		summary.Duration(),
	)
	if summary.Failed == 0 && !summary.StoppedEarly {
		logger.Infof("%s", message)
	} else {
		logger.Warnf("%s", message)
	}
	return nil
}

var _ port.Notifier = (*LogNotifier)(nil)

// defaultWebhookTimeout bounds one webhook POST.
const defaultWebhookTimeout = 10 * time.Second

// WebhookNotifier POSTs the run summary as JSON to a URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a WebhookNotifier. A nil client gets a client with a 10s timeout.
func NewWebhookNotifier(url string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: defaultWebhookTimeout}
	}
	return &WebhookNotifier{url: url, client: client}
}

// NotifyRunCompletion implements port.Notifier.
func (n *WebhookNotifier) NotifyRunCompletion(ctx context.Context, summary *model.RunSummary) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode run summary: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post run summary: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post run summary: unexpected status %s", resp.Status)
	}
	return nil
}

var _ port.Notifier = (*WebhookNotifier)(nil)

// NotificationRunListener sends the summary through a Notifier when a run ends. Delivery is best effort.
type NotificationRunListener struct {
	notifier port.Notifier
}

// NewNotificationRunListener creates a new instance of NotificationRunListener.
func NewNotificationRunListener(notifier port.Notifier) *NotificationRunListener {
	return &NotificationRunListener{notifier: notifier}
}

// BeforeRun exists to satisfy RunListener requirements but does nothing.
func (l *NotificationRunListener) BeforeRun(ctx context.Context, summary *model.RunSummary) {}

// BeforeRetryPass exists to satisfy RunListener requirements but does nothing.
func (l *NotificationRunListener) BeforeRetryPass(ctx context.Context, summary *model.RunSummary, candidates int) {
}

// AfterRun sends the notification and logs delivery failures.
func (l *NotificationRunListener) AfterRun(ctx context.Context, summary *model.RunSummary) {
	if err := l.notifier.NotifyRunCompletion(ctx, summary); err != nil {
		logger.Warnf("Notification: failed to deliver run summary: %v", err)
	}
}

var _ port.RunListener = (*NotificationRunListener)(nil)
