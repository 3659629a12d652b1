package application

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notification event names.
const (
	EventBookingRequested           = "booking.requested"
	EventBookingConfirmed           = "booking.confirmed"
	EventBookingRejected            = "booking.rejected"
	EventBookingCancelled           = "booking.cancelled"
	EventBookingExpired             = "booking.expired"
	EventBookingCompleted           = "booking.completed"
	EventReviewEligible             = "review.eligible"
	EventBookingRescheduleRequested = "booking.reschedule_requested"
	EventBookingRescheduleAccepted  = "booking.reschedule_accepted"
	EventBookingRescheduleDeclined  = "booking.reschedule_declined"
)

// Notifier delivers a user-facing notification. It is only ever called after the
// transaction that produced the event has committed.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, payload map[string]interface{}) error
}

type notification struct {
	userID  uuid.UUID
	event   string
	payload map[string]interface{}
}

// dispatch sends notifications best-effort. Failures are logged and never returned.
func dispatch(ctx context.Context, notifier Notifier, logger *zap.Logger, notes []notification) {
	if notifier == nil {
		return
	}
	for _, n := range notes {
		if err := notifier.Notify(ctx, n.userID, n.event, n.payload); err != nil {
			logger.Warn("failed to send notification",
				zap.String("user_id", n.userID.String()),
				zap.String("event_type", n.event),
				zap.Error(err),
			)
		}
	}
}
