// File: internal/notify/notify.go
// Description: Fire-and-forget notification sinks. Delivery failures are
// logged and swallowed: notifications never affect pipeline outcome.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Event is what happened, used by sinks to pick urgency and formatting.
type Event string

const (
	EventSuccess       Event = "success"
	EventFailure       Event = "failure"
	EventCaptcha       Event = "captcha"
	EventLowConfidence Event = "low_confidence"
)

// Notifier delivers a short human-readable message about a pipeline event.
type Notifier interface {
	Notify(ctx context.Context, event Event, message string) error
}

// Multi fans one notification out to every configured sink. A sink failure is
// logged and does not stop delivery to the others.
type Multi struct {
	sinks []Notifier
	log   *zap.Logger
}

// NewMulti creates a fan-out notifier over the given sinks.
func NewMulti(logger *zap.Logger, sinks ...Notifier) *Multi {
	return &Multi{sinks: sinks, log: logger.Named("notify")}
}

// Notify implements Notifier. Always returns nil: delivery is best-effort.
func (m *Multi) Notify(ctx context.Context, event Event, message string) error {
	for _, sink := range m.sinks {
		if err := sink.Notify(ctx, event, message); err != nil {
			m.log.Warn("Notification delivery failed.",
				zap.String("event", string(event)), zap.Error(err))
		}
	}
	return nil
}

// LogNotifier writes notifications to the application log. Always configured,
// so every event leaves a trace even with no external sink set up.
type LogNotifier struct {
	log *zap.Logger
}

// NewLogNotifier creates the log sink.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{log: logger.Named("notify")}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(_ context.Context, event Event, message string) error {
	switch event {
	case EventSuccess:
		n.log.Info("Notification.", zap.String("event", string(event)), zap.String("message", message))
	default:
		n.log.Warn("Notification.", zap.String("event", string(event)), zap.String("message", message))
	}
	return nil
}
