package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/skillswap/service-booking/internal/domain/booking"
)

// ProposeReschedule records a request by either party to move a confirmed session. No credits
// move. The new slot is checked against the provider's calendar, but it is not reserved until
// the other party accepts.
func (s *BookingService) ProposeReschedule(ctx context.Context, bookingID, actorID uuid.UUID, req ProposeRescheduleRequest) (*BookingDTO, error) {
	now := s.clock.Now()

	bk, err := s.mutate(ctx, bookingID, func(tx Tx, bk *bookingDomain.Booking) error {
		sk, err := tx.Skills().FindByID(ctx, bk.SkillID())
		if err != nil {
			return err
		}
		newSlot, err := bookingDomain.NewTimeSlot(req.NewDate, req.NewTime, sk.Duration(), s.policy.Location)
		if err != nil {
			return err
		}
		if err := bk.RequestReschedule(actorID, newSlot, req.Reason, now); err != nil {
			return err
		}
		id := bk.ID()
		return s.ensureSlotFree(ctx, tx, bk.ProviderID(), newSlot, &id)
	})
	if err != nil {
		return nil, err
	}

	info := bk.Reschedule()
	s.logger.Info("reschedule requested",
		zap.String("booking_id", bk.ID().String()),
		zap.String("requested_by", string(info.RequestedBy)),
	)
	s.notifyParties(ctx, bk, EventBookingRescheduleRequested, info.Responder())

	result := toBookingDTO(bk)
	return &result, nil
}

// AcceptReschedule moves the session to the proposed slot. The slot is re-checked under the
// provider's schedule lock because bookings may have been made since the proposal; on conflict
// the booking stays in reschedule_requested.
func (s *BookingService) AcceptReschedule(ctx context.Context, bookingID, actorID uuid.UUID) (*BookingDTO, error) {
	now := s.clock.Now()

	// The provider is needed to take the schedule lock before the booking row lock.
	current, err := s.uow.Bookings().FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := current.CheckRescheduleResponder(actorID); err != nil {
		return nil, err
	}

	var requestedBy bookingDomain.Party
	var bk *bookingDomain.Booking
	err = runInTx(ctx, s.uow, func(tx Tx) error {
		if err := tx.LockProviderSchedule(ctx, current.ProviderID()); err != nil {
			return fmt.Errorf("failed to lock provider schedule: %w", err)
		}
		bk, err = tx.Bookings().FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := bk.CheckRescheduleResponder(actorID); err != nil {
			return err
		}
		requestedBy = bk.Reschedule().RequestedBy
		id := bk.ID()
		if err := s.ensureSlotFree(ctx, tx, bk.ProviderID(), bk.Reschedule().NewSlot, &id); err != nil {
			return err
		}
		if err := bk.AcceptReschedule(actorID, now); err != nil {
			return err
		}
		bk.IncrementVersion()
		if err := tx.Bookings().Update(ctx, bk); err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reschedule accepted",
		zap.String("booking_id", bk.ID().String()),
		zap.Time("start_at", bk.Slot().StartAt),
	)
	s.notifyParties(ctx, bk, EventBookingRescheduleAccepted, requestedBy)

	result := toBookingDTO(bk)
	return &result, nil
}

// DeclineReschedule drops the proposal and keeps the original slot.
func (s *BookingService) DeclineReschedule(ctx context.Context, bookingID, actorID uuid.UUID, reason string) (*BookingDTO, error) {
	now := s.clock.Now()

	var requestedBy bookingDomain.Party
	bk, err := s.mutate(ctx, bookingID, func(tx Tx, bk *bookingDomain.Booking) error {
		if info := bk.Reschedule(); info != nil {
			requestedBy = info.RequestedBy
		}
		return bk.DeclineReschedule(actorID, reason, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reschedule declined", zap.String("booking_id", bk.ID().String()))
	s.notifyParties(ctx, bk, EventBookingRescheduleDeclined, requestedBy)

	result := toBookingDTO(bk)
	return &result, nil
}
