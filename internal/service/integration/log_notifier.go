package integration

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/attempt-service/internal/models"
)

// logNotifier only writes notifications to the log. It stands in when no broker is configured.
type logNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Emit(_ context.Context, notification *models.Notification) error {
	event := n.logger.Info().
		Str("kind", string(notification.Kind)).
		Str("recipient_id", notification.RecipientID).
		Str("link", notification.Link)
	if notification.SenderID != nil {
		event = event.Str("sender_id", *notification.SenderID)
	}
	event.Msg(notification.Message)
	return nil
}

func (n *logNotifier) Close() error {
	return nil
}
