package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/skillswap/service-booking/internal/domain/ledger"
	"github.com/skillswap/service-booking/pkg/domain"
)

const bookingNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CutoffWindow is how close to the session start cancellations and reschedule requests are
// still accepted.
const CutoffWindow = 15 * time.Minute

// ReasonExpired is the cancellation reason recorded on bookings that were never answered.
const ReasonExpired = "expired"

// Party identifies which side of a booking an actor is on.
type Party string

const (
	PartyLearner  Party = "learner"
	PartyProvider Party = "provider"
	// PartySystem marks transitions made by the service itself, such as expiry.
	PartySystem Party = "system"
)

// Other returns the opposite side of the booking.
func (p Party) Other() Party {
	switch p {
	case PartyLearner:
		return PartyProvider
	case PartyProvider:
		return PartyLearner
	default:
		return ""
	}
}

// IsValid returns true for learner and provider.
func (p Party) IsValid() bool {
	return p == PartyLearner || p == PartyProvider
}

// Booking is the aggregate root for the booking domain.
type Booking struct {
	id            uuid.UUID
	bookingNumber string
	skillID       uuid.UUID
	providerID    uuid.UUID
	learnerID     uuid.UUID
	status        BookingStatus
	slot          TimeSlot

	sessionCost    decimal.Decimal
	escrowHold     ledger.Allocation
	escrowReleased bool

	reschedule      *RescheduleInfo
	rejectionReason string
	cancelledReason string
	cancelledBy     Party
	reviewEligible  bool

	confirmedAt *time.Time
	completedAt *time.Time
	cancelledAt *time.Time

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// generateBookingNumber creates a booking number in the format "BK-XXXXXX".
func generateBookingNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(bookingNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking number: %w", err)
		}
		result[i] = bookingNumberChars[n.Int64()]
	}
	return "BK-" + string(result), nil
}

// NewBooking creates a new Booking aggregate with status=pending. hold is the split already
// debited from the learner and must add up to sessionCost.
func NewBooking(
	skillID uuid.UUID,
	providerID uuid.UUID,
	learnerID uuid.UUID,
	slot TimeSlot,
	sessionCost decimal.Decimal,
	hold ledger.Allocation,
	now time.Time,
) (*Booking, error) {
	if skillID == uuid.Nil {
		return nil, domain.NewValidationError("skill ID is required")
	}
	if providerID == uuid.Nil || learnerID == uuid.Nil {
		return nil, domain.NewValidationError("learner and provider are required")
	}
	if learnerID == providerID {
		return nil, domain.NewValidationError("cannot book your own skill")
	}
	if !slot.EndAt.After(slot.StartAt) {
		return nil, domain.NewValidationError("session end must be after its start")
	}
	if !slot.StartAt.After(now) {
		return nil, domain.NewValidationError("session must be scheduled in the future")
	}
	if sessionCost.IsNegative() {
		return nil, domain.NewValidationError("session cost cannot be negative")
	}
	if !hold.Total().Equal(sessionCost) {
		return nil, domain.NewValidationError("escrow hold does not match session cost")
	}

	bookingNumber, err := generateBookingNumber()
	if err != nil {
		return nil, err
	}

	now = now.UTC()
	return &Booking{
		id:            uuid.New(),
		bookingNumber: bookingNumber,
		skillID:       skillID,
		providerID:    providerID,
		learnerID:     learnerID,
		status:        StatusPending,
		slot:          slot,
		sessionCost:   sessionCost,
		escrowHold:    hold,
		version:       1,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	bookingNumber string,
	skillID uuid.UUID,
	providerID uuid.UUID,
	learnerID uuid.UUID,
	status BookingStatus,
	slot TimeSlot,
	sessionCost decimal.Decimal,
	escrowHold ledger.Allocation,
	escrowReleased bool,
	reschedule *RescheduleInfo,
	rejectionReason string,
	cancelledReason string,
	cancelledBy Party,
	reviewEligible bool,
	confirmedAt *time.Time,
	completedAt *time.Time,
	cancelledAt *time.Time,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:              id,
		bookingNumber:   bookingNumber,
		skillID:         skillID,
		providerID:      providerID,
		learnerID:       learnerID,
		status:          status,
		slot:            slot,
		sessionCost:     sessionCost,
		escrowHold:      escrowHold,
		escrowReleased:  escrowReleased,
		reschedule:      reschedule,
		rejectionReason: rejectionReason,
		cancelledReason: cancelledReason,
		cancelledBy:     cancelledBy,
		reviewEligible:  reviewEligible,
		confirmedAt:     confirmedAt,
		completedAt:     completedAt,
		cancelledAt:     cancelledAt,
		version:         version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// BookingNumber returns the human-readable booking number.
func (b *Booking) BookingNumber() string { return b.bookingNumber }

// SkillID returns the booked skill.
func (b *Booking) SkillID() uuid.UUID { return b.skillID }

// ProviderID returns the user teaching the session.
func (b *Booking) ProviderID() uuid.UUID { return b.providerID }

// LearnerID returns the user paying for the session.
func (b *Booking) LearnerID() uuid.UUID { return b.learnerID }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// Slot returns the scheduled time slot.
func (b *Booking) Slot() TimeSlot { return b.slot }

// SessionCost returns the price fixed at creation.
func (b *Booking) SessionCost() decimal.Decimal { return b.sessionCost }

// EscrowHold returns the bucket split debited from the learner.
func (b *Booking) EscrowHold() ledger.Allocation { return b.escrowHold }

// EscrowReleased reports whether the provider has been credited.
func (b *Booking) EscrowReleased() bool { return b.escrowReleased }

// Reschedule returns the open reschedule proposal, or nil.
func (b *Booking) Reschedule() *RescheduleInfo { return b.reschedule }

// RejectionReason returns the reason given when the booking or a proposal was declined.
func (b *Booking) RejectionReason() string { return b.rejectionReason }

// CancelledReason returns the cancellation reason.
func (b *Booking) CancelledReason() string { return b.cancelledReason }

// CancelledBy returns who cancelled the booking.
func (b *Booking) CancelledBy() Party { return b.cancelledBy }

// ReviewEligible reports whether the parties may review each other.
func (b *Booking) ReviewEligible() bool { return b.reviewEligible }

// ConfirmedAt returns the time the provider confirmed.
func (b *Booking) ConfirmedAt() *time.Time { return b.confirmedAt }

// CompletedAt returns the time the session was completed.
func (b *Booking) CompletedAt() *time.Time { return b.completedAt }

// CancelledAt returns the time the booking was cancelled.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// --- Guards ---

// PartyOf returns which side userID is on.
func (b *Booking) PartyOf(userID uuid.UUID) (Party, bool) {
	switch userID {
	case b.learnerID:
		return PartyLearner, true
	case b.providerID:
		return PartyProvider, true
	default:
		return "", false
	}
}

// IsParticipant reports whether userID is the learner or the provider.
func (b *Booking) IsParticipant(userID uuid.UUID) bool {
	_, ok := b.PartyOf(userID)
	return ok
}

// CanBeAccepted returns true if the provider can still confirm the booking.
func (b *Booking) CanBeAccepted() bool { return b.status == StatusPending }

// CanBeRejected returns true if the provider can still reject the booking.
func (b *Booking) CanBeRejected() bool { return b.status == StatusPending }

// CanBeCancelled returns true if the booking is in a cancellable status.
func (b *Booking) CanBeCancelled() bool { return b.status.CanTransitionTo(StatusCancelled) }

// CanBeCompleted returns true if the session can be marked as held.
func (b *Booking) CanBeCompleted() bool { return b.status == StatusConfirmed }

// CanBeRescheduled returns true if a new slot can be proposed.
func (b *Booking) CanBeRescheduled() bool { return b.status == StatusConfirmed }

// WithinCutoff reports whether the session starts less than CutoffWindow after now.
func (b *Booking) WithinCutoff(now time.Time) bool {
	return b.slot.StartAt.Sub(now) < CutoffWindow
}

// IsExpired reports whether a pending booking went unanswered: either its start has passed
// or it has been pending for at least ttl. A non-positive ttl disables the age rule.
func (b *Booking) IsExpired(now time.Time, ttl time.Duration) bool {
	if b.status != StatusPending {
		return false
	}
	if !b.slot.StartAt.After(now) {
		return true
	}
	return ttl > 0 && !b.createdAt.Add(ttl).After(now)
}

func (b *Booking) requireParty(actor uuid.UUID) (Party, error) {
	party, ok := b.PartyOf(actor)
	if !ok {
		return "", domain.NewForbiddenError("not a participant of this booking")
	}
	return party, nil
}

// --- Behavior ---

// Confirm transitions a pending booking to confirmed. Only the provider may confirm, and
// not once the booking has expired under pendingTTL. The caller credits the provider in
// the same unit of work.
func (b *Booking) Confirm(actor uuid.UUID, now time.Time, pendingTTL time.Duration) error {
	party, err := b.requireParty(actor)
	if err != nil {
		return err
	}
	if party != PartyProvider {
		return domain.NewForbiddenError("only the provider can confirm a booking")
	}
	if !b.CanBeAccepted() {
		return domain.NewInvalidStateError(string(b.status), string(StatusConfirmed))
	}
	if b.IsExpired(now, pendingTTL) {
		return domain.NewValidationError("booking has expired")
	}
	now = now.UTC()
	b.status = StatusConfirmed
	b.escrowReleased = true
	b.confirmedAt = &now
	b.updatedAt = now
	return nil
}

// Reject declines a pending booking. Only the provider may reject.
func (b *Booking) Reject(actor uuid.UUID, reason string, now time.Time) error {
	party, err := b.requireParty(actor)
	if err != nil {
		return err
	}
	if party != PartyProvider {
		return domain.NewForbiddenError("only the provider can reject a booking")
	}
	if !b.CanBeRejected() {
		return domain.NewInvalidStateError(string(b.status), string(StatusRejected))
	}
	b.status = StatusRejected
	b.rejectionReason = reason
	b.updatedAt = now.UTC()
	return nil
}

// Cancel transitions the booking to cancelled. Either party may cancel while the session is
// outside the cutoff window. An open reschedule proposal is discarded.
func (b *Booking) Cancel(actor uuid.UUID, reason string, now time.Time) error {
	party, err := b.requireParty(actor)
	if err != nil {
		return err
	}
	if !b.CanBeCancelled() {
		return domain.NewInvalidStateError(string(b.status), string(StatusCancelled))
	}
	if b.WithinCutoff(now) {
		return domain.NewValidationError(fmt.Sprintf("cannot cancel less than %s before the session starts", CutoffWindow))
	}
	b.markCancelled(party, reason, now)
	return nil
}

// Expire cancels a pending booking that went unanswered. It bypasses the cutoff window.
func (b *Booking) Expire(now time.Time, ttl time.Duration) error {
	if b.status != StatusPending {
		return domain.NewInvalidStateError(string(b.status), string(StatusCancelled))
	}
	if !b.IsExpired(now, ttl) {
		return domain.NewValidationError("booking has not expired")
	}
	b.markCancelled(PartySystem, ReasonExpired, now)
	return nil
}

func (b *Booking) markCancelled(by Party, reason string, now time.Time) {
	now = now.UTC()
	b.status = StatusCancelled
	b.cancelledReason = reason
	b.cancelledBy = by
	b.cancelledAt = &now
	b.reschedule = nil
	b.updatedAt = now
}

// Complete marks a confirmed session as held. Either party may complete it. This is the only
// transition that makes the booking review-eligible.
func (b *Booking) Complete(actor uuid.UUID, now time.Time) error {
	if _, err := b.requireParty(actor); err != nil {
		return err
	}
	if !b.CanBeCompleted() {
		return domain.NewInvalidStateError(string(b.status), string(StatusCompleted))
	}
	now = now.UTC()
	b.status = StatusCompleted
	b.reviewEligible = true
	b.completedAt = &now
	b.updatedAt = now
	return nil
}

// RequestReschedule records a proposal to move a confirmed session to newSlot.
func (b *Booking) RequestReschedule(actor uuid.UUID, newSlot TimeSlot, reason string, now time.Time) error {
	party, err := b.requireParty(actor)
	if err != nil {
		return err
	}
	if !b.CanBeRescheduled() {
		return domain.NewInvalidStateError(string(b.status), string(StatusRescheduleRequested))
	}
	if b.WithinCutoff(now) {
		return domain.NewValidationError(fmt.Sprintf("cannot reschedule less than %s before the session starts", CutoffWindow))
	}
	if !newSlot.EndAt.After(newSlot.StartAt) {
		return domain.NewValidationError("session end must be after its start")
	}
	if !newSlot.StartAt.After(now) {
		return domain.NewValidationError("new session time must be in the future")
	}
	if newSlot.Equal(b.slot) {
		return domain.NewValidationError("new session time is the same as the current one")
	}
	now = now.UTC()
	b.reschedule = &RescheduleInfo{
		NewSlot:     newSlot,
		Reason:      reason,
		RequestedBy: party,
		RequestedAt: now,
	}
	b.status = StatusRescheduleRequested
	b.updatedAt = now
	return nil
}

// CheckRescheduleResponder verifies that actor may answer the open proposal, which only the
// party that did not propose it can do.
func (b *Booking) CheckRescheduleResponder(actor uuid.UUID) error {
	party, err := b.requireParty(actor)
	if err != nil {
		return err
	}
	if b.status != StatusRescheduleRequested || b.reschedule == nil {
		return domain.NewInvalidStateError(string(b.status), string(StatusConfirmed))
	}
	if party == b.reschedule.RequestedBy {
		return domain.NewForbiddenError("the party that proposed a reschedule cannot answer it")
	}
	return nil
}

// AcceptReschedule moves the session to the proposed slot and returns to confirmed. The
// caller must have re-checked the new interval for conflicts in the same unit of work.
func (b *Booking) AcceptReschedule(actor uuid.UUID, now time.Time) error {
	if err := b.CheckRescheduleResponder(actor); err != nil {
		return err
	}
	if !b.reschedule.NewSlot.StartAt.After(now) {
		return domain.NewValidationError("proposed session time has already passed")
	}
	b.slot = b.reschedule.NewSlot
	b.reschedule = nil
	b.status = StatusConfirmed
	b.updatedAt = now.UTC()
	return nil
}

// DeclineReschedule drops the proposal and returns to confirmed on the original slot.
func (b *Booking) DeclineReschedule(actor uuid.UUID, reason string, now time.Time) error {
	if err := b.CheckRescheduleResponder(actor); err != nil {
		return err
	}
	b.reschedule = nil
	b.rejectionReason = reason
	b.status = StatusConfirmed
	b.updatedAt = now.UTC()
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
}
