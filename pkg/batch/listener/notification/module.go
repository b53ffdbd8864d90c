package notification

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/nameforge/pkg/batch/core/application/port"
	config "github.com/tigerroll/nameforge/pkg/batch/core/config"
)

// NewNotifier returns a WebhookNotifier when a webhook URL is configured, otherwise a LogNotifier.
func NewNotifier(cfg *config.Config) port.Notifier {
	if url := cfg.Nameforge.Notification.WebhookURL; url != "" {
		return NewWebhookNotifier(url, nil)
	}
	return NewLogNotifier()
}

// Module provides the Notifier and registers the notification listener.
var Module = fx.Options(
	fx.Provide(NewNotifier),
	fx.Provide(fx.Annotate(NewNotificationRunListener, fx.As(new(port.RunListener)), fx.ResultTags(port.RunListenerGroup))),
)
