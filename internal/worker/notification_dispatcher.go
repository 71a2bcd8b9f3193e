package worker

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/attempt-service/internal/models"
	"github.com/RubachokBoss/attempt-service/internal/service/integration"
)

// NotificationDispatcher emits notifications on the worker pool so callers never wait on
// delivery. Failures are logged and dropped.
type NotificationDispatcher struct {
	pool     *WorkerPool
	notifier integration.Notifier
	logger   zerolog.Logger
}

func NewNotificationDispatcher(pool *WorkerPool, notifier integration.Notifier, logger zerolog.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{
		pool:     pool,
		notifier: notifier,
		logger:   logger,
	}
}

func (d *NotificationDispatcher) Dispatch(_ context.Context, notification *models.Notification) {
	log := d.logger.With().
		Str("kind", string(notification.Kind)).
		Str("recipient_id", notification.RecipientID).
		Logger()

	accepted := d.pool.Submit(func(ctx context.Context) {
		if err := d.notifier.Emit(ctx, notification); err != nil {
			log.Error().Err(err).Msg("Failed to emit notification")
			return
		}
		log.Debug().Msg("Notification emitted")
	})
	if !accepted {
		log.Error().Msg("Notification dropped")
	}
}
