package reminder

import "go.uber.org/zap"

// Notifier delivers a fired reminder to the user. Delivery failures are
// reported but never block the reminder host.
type Notifier interface {
	Notify(event Event) error
}

// LogNotifier prints reminders through the logger. It is the default
// delivery channel when no external one is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(event Event) error {
	n.logger.Info("time to follow up",
		zap.String("contact", event.ContactLabel),
		zap.String("record_id", event.RecordID),
		zap.String("link", event.Payload),
	)

	return nil
}
