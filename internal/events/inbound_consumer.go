package events

import (
	"context"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/skillswap/service-booking/internal/application"
	"github.com/skillswap/service-booking/pkg/domain"
	"github.com/skillswap/service-booking/pkg/kafka"
)

// BookingCompleter completes a booking on behalf of one of its parties.
type BookingCompleter interface {
	CompleteBooking(ctx context.Context, bookingID, actorID uuid.UUID) (*application.BookingDTO, error)
}

// SkillSyncer keeps the local skill projection current.
type SkillSyncer interface {
	SyncSkill(ctx context.Context, req application.SyncSkillRequest) (*application.SkillDTO, error)
}

// InboundConsumer handles session and catalog events from other services.
type InboundConsumer struct {
	consumer *kafka.Consumer
	bookings BookingCompleter
	skills   SkillSyncer
	logger   *zap.Logger
}

// NewInboundConsumer creates a consumer subscribed to the session and catalog topics.
func NewInboundConsumer(
	brokers []string,
	groupID string,
	bookings BookingCompleter,
	skills SkillSyncer,
	logger *zap.Logger,
) *InboundConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, []string{TopicSessionEvents, TopicCatalogEvents}, logger)
	return &InboundConsumer{
		consumer: consumer,
		bookings: bookings,
		skills:   skills,
		logger:   logger,
	}
}

// Start begins consuming. This blocks until the context is cancelled.
func (c *InboundConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *InboundConsumer) Close() error {
	return c.consumer.Close()
}

func (c *InboundConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	ce, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event",
			zap.String("topic", msg.Topic),
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch ce.Type {
	case SessionEnded:
		return c.handleSessionEnded(ctx, ce)
	case SkillUpserted:
		return c.handleSkillUpserted(ctx, ce)
	default:
		c.logger.Debug("ignoring unhandled event type",
			zap.String("topic", msg.Topic),
			zap.String("event_type", ce.Type),
		)
		return nil
	}
}

func (c *InboundConsumer) handleSessionEnded(ctx context.Context, ce kafka.CloudEvent) error {
	var evt SessionEndedEvent
	if err := ce.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse SessionEndedEvent data", zap.Error(err))
		return nil
	}
	if evt.BookingID == uuid.Nil || evt.EndedBy == uuid.Nil {
		c.logger.Error("session.ended without booking or actor", zap.String("event_id", ce.ID))
		return nil
	}

	if _, err := c.bookings.CompleteBooking(ctx, evt.BookingID, evt.EndedBy); err != nil {
		return c.settle(err, "failed to complete booking after session end",
			zap.String("booking_id", evt.BookingID.String()),
			zap.String("user_id", evt.EndedBy.String()),
		)
	}

	c.logger.Info("booking completed after session end",
		zap.String("booking_id", evt.BookingID.String()),
	)
	return nil
}

func (c *InboundConsumer) handleSkillUpserted(ctx context.Context, ce kafka.CloudEvent) error {
	var evt SkillUpsertedEvent
	if err := ce.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse SkillUpsertedEvent data", zap.Error(err))
		return nil
	}

	_, err := c.skills.SyncSkill(ctx, application.SyncSkillRequest{
		SkillID:        evt.SkillID,
		ProviderID:     evt.ProviderID,
		Title:          evt.Title,
		CreditsPerHour: evt.CreditsPerHour,
		DurationHours:  evt.DurationHours,
		IsActive:       evt.IsActive,
	})
	if err != nil {
		return c.settle(err, "failed to sync skill", zap.String("skill_id", evt.SkillID.String()))
	}
	return nil
}

// settle drops messages the domain rejected and hands infrastructure errors back for retry.
func (c *InboundConsumer) settle(err error, msg string, fields ...zap.Field) error {
	fields = append(fields, zap.Error(err))
	if isDomainRejection(err) {
		c.logger.Warn(msg+", skipping", fields...)
		return nil
	}
	c.logger.Error(msg, fields...)
	return err
}

// Conflicts come from concurrent writers and are worth another attempt.
func isDomainRejection(err error) bool {
	return domain.IsDomainError(err) && !domain.IsConflict(err)
}
