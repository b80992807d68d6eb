package alert

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Notifier delivers an alert payload to a subscriber. Failed deliveries are
// not retried by the sweep.
type Notifier interface {
	Deliver(ctx context.Context, subscriberID int64, payload string) error
}

// LogNotifier writes payloads to the log. Used when no bot token is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Deliver(ctx context.Context, subscriberID int64, payload string) error {
	log.WithField("subscriber_id", subscriberID).Infof("[notify] %s", payload)
	return nil
}
