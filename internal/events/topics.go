package events

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// TopicBookingNotifications carries user-facing booking notifications.
	TopicBookingNotifications = "booking.notifications"
	// TopicSessionEvents carries session lifecycle events from the session service.
	TopicSessionEvents = "session.events"
	// TopicCatalogEvents carries skill catalog changes.
	TopicCatalogEvents = "catalog.events"

	SessionEnded  = "session.ended"
	SkillUpserted = "skill.upserted"

	// EventSource is the CloudEvent source of everything this service publishes.
	EventSource = "service-booking"
)

// SessionEndedEvent is published when a live session finishes.
type SessionEndedEvent struct {
	BookingID uuid.UUID `json:"booking_id"`
	EndedBy   uuid.UUID `json:"ended_by"`
}

// SkillUpsertedEvent is a catalog create or update.
type SkillUpsertedEvent struct {
	SkillID        uuid.UUID       `json:"skill_id"`
	ProviderID     uuid.UUID       `json:"provider_id"`
	Title          string          `json:"title"`
	CreditsPerHour decimal.Decimal `json:"credits_per_hour"`
	DurationHours  decimal.Decimal `json:"duration_hours"`
	IsActive       bool            `json:"is_active"`
}

// NotificationEvent is the payload of every message on TopicBookingNotifications.
type NotificationEvent struct {
	UserID  uuid.UUID              `json:"user_id"`
	Event   string                 `json:"event"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}
