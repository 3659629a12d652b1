package events

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillswap/service-booking/internal/application"
	"github.com/skillswap/service-booking/pkg/kafka"
)

// EventPublisher is the part of kafka.Producer the notifier needs.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, ce kafka.CloudEvent) error
}

// KafkaNotifier delivers booking notifications as CloudEvents keyed by recipient.
type KafkaNotifier struct {
	publisher EventPublisher
	topic     string
	logger    *zap.Logger
}

// NewKafkaNotifier creates a notifier publishing to TopicBookingNotifications.
func NewKafkaNotifier(publisher EventPublisher, logger *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{publisher: publisher, topic: TopicBookingNotifications, logger: logger}
}

// Notify publishes one notification for userID.
func (n *KafkaNotifier) Notify(ctx context.Context, userID uuid.UUID, event string, payload map[string]interface{}) error {
	ce, err := kafka.NewCloudEvent(EventSource, event, NotificationEvent{
		UserID:  userID,
		Event:   event,
		Payload: payload,
	})
	if err != nil {
		return err
	}
	if id, ok := payload["booking_id"].(string); ok {
		ce.Subject = id
	}

	if err := n.publisher.PublishEvent(ctx, n.topic, userID.String(), ce); err != nil {
		return err
	}
	n.logger.Debug("notification queued",
		zap.String("user_id", userID.String()),
		zap.String("event_type", event),
	)
	return nil
}

var _ application.Notifier = (*KafkaNotifier)(nil)
