package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/skillswap/service-booking/internal/domain/booking"
	"github.com/skillswap/service-booking/internal/domain/ledger"
	"github.com/skillswap/service-booking/pkg/domain"
)

// Policy holds the scheduling rules the booking use cases apply.
type Policy struct {
	// OverlapBuffer pads every session on both sides when checking for conflicts.
	OverlapBuffer time.Duration
	// Location is the time zone preferred dates and times are expressed in.
	Location *time.Location
	// PendingTTL is how long a booking may wait for the provider before it expires.
	PendingTTL time.Duration
	// ExpiryBatchSize caps how many bookings one expiry sweep handles.
	ExpiryBatchSize int
}

// DefaultPolicy returns the rules used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		Location:        time.UTC,
		PendingTTL:      48 * time.Hour,
		ExpiryBatchSize: 100,
	}
}

// BookingService is the application service orchestrating booking use cases. Every
// mutating use case runs in one transaction and notifies only after commit.
type BookingService struct {
	uow      UnitOfWork
	pricing  bookingDomain.PricingStrategy
	notifier Notifier
	clock    Clock
	policy   Policy
	logger   *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	uow UnitOfWork,
	pricing bookingDomain.PricingStrategy,
	notifier Notifier,
	clock Clock,
	policy Policy,
	logger *zap.Logger,
) *BookingService {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &BookingService{
		uow:      uow,
		pricing:  pricing,
		notifier: notifier,
		clock:    clock,
		policy:   policy,
		logger:   logger,
	}
}

// CreateBooking reserves a slot for learnerID and holds the session cost in escrow.
func (s *BookingService) CreateBooking(ctx context.Context, learnerID uuid.UUID, req CreateBookingRequest) (*BookingDTO, error) {
	now := s.clock.Now()

	sk, err := s.uow.Skills().FindByID(ctx, req.SkillID)
	if err != nil {
		return nil, err
	}
	if req.ProviderID != nil && *req.ProviderID != sk.ProviderID() {
		return nil, domain.NewValidationError("skill is not offered by this provider")
	}
	if sk.ProviderID() == learnerID {
		return nil, domain.NewValidationError("cannot book your own skill")
	}
	if !sk.IsBookable() {
		return nil, domain.NewValidationError("skill is not available for booking")
	}
	slot, err := bookingDomain.NewTimeSlot(req.PreferredDate, req.PreferredTime, sk.Duration(), s.policy.Location)
	if err != nil {
		return nil, err
	}
	if !slot.StartAt.After(now) {
		return nil, domain.NewValidationError("session must be scheduled in the future")
	}
	cost, err := s.pricing.Calculate(bookingDomain.PricingParams{
		CreditsPerHour: sk.CreditsPerHour(),
		DurationHours:  sk.DurationHours(),
	})
	if err != nil {
		return nil, err
	}

	// Fail fast on an unfunded learner before taking the provider lock.
	learner, err := s.uow.Accounts().FindByUserID(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	if learner.Credits().LessThan(cost) {
		return nil, domain.NewValidationError(fmt.Sprintf(
			"insufficient credits: balance %s, required %s", learner.Credits().StringFixed(2), cost.StringFixed(2)))
	}

	var bk *bookingDomain.Booking
	err = runInTx(ctx, s.uow, func(tx Tx) error {
		if err := tx.LockProviderSchedule(ctx, sk.ProviderID()); err != nil {
			return fmt.Errorf("failed to lock provider schedule: %w", err)
		}
		if err := s.ensureSlotFree(ctx, tx, sk.ProviderID(), slot, nil); err != nil {
			return err
		}

		accounts, err := tx.Accounts().FindForUpdate(ctx, learnerID)
		if err != nil {
			return err
		}
		acct := accounts[learnerID]
		previous := acct.Credits()
		hold, err := acct.Hold(cost, now)
		if err != nil {
			return err
		}

		bk, err = bookingDomain.NewBooking(sk.ID(), sk.ProviderID(), learnerID, slot, cost, hold, now)
		if err != nil {
			return err
		}
		if err := tx.Bookings().Save(ctx, bk); err != nil {
			return fmt.Errorf("failed to save booking: %w", err)
		}

		if cost.IsZero() {
			return nil
		}
		id := bk.ID()
		return recordLedger(ctx, tx, acct, previous, ledger.TypePayment, &id,
			fmt.Sprintf("Escrow hold for booking %s", bk.BookingNumber()), allocationMetadata(hold), now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		zap.String("booking_id", bk.ID().String()),
		zap.String("learner_id", learnerID.String()),
		zap.String("provider_id", bk.ProviderID().String()),
		zap.String("session_cost", cost.String()),
	)
	s.notifyParties(ctx, bk, EventBookingRequested, bookingDomain.PartyProvider)

	result := toBookingDTO(bk)
	return &result, nil
}

// ConfirmBooking accepts a pending booking and pays the provider out of escrow.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID, actorID uuid.UUID) (*BookingDTO, error) {
	now := s.clock.Now()

	bk, err := s.mutate(ctx, bookingID, func(tx Tx, bk *bookingDomain.Booking) error {
		if err := bk.Confirm(actorID, now, s.policy.PendingTTL); err != nil {
			return err
		}
		if bk.SessionCost().IsZero() {
			return nil
		}
		if err := ensureAccount(ctx, tx, bk.ProviderID(), now); err != nil {
			return err
		}
		accounts, err := tx.Accounts().FindForUpdate(ctx, bk.ProviderID())
		if err != nil {
			return err
		}
		provider := accounts[bk.ProviderID()]
		previous := provider.Credits()
		if err := provider.Deposit(ledger.BucketEarned, bk.SessionCost(), now); err != nil {
			return err
		}
		id := bk.ID()
		return recordLedger(ctx, tx, provider, previous, ledger.TypeEarning, &id,
			fmt.Sprintf("Earning for booking %s", bk.BookingNumber()), nil, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking confirmed", zap.String("booking_id", bk.ID().String()))
	s.notifyParties(ctx, bk, EventBookingConfirmed, bookingDomain.PartyLearner, bookingDomain.PartyProvider)

	result := toBookingDTO(bk)
	return &result, nil
}

// RejectBooking declines a pending booking and refunds the learner's hold.
func (s *BookingService) RejectBooking(ctx context.Context, bookingID, actorID uuid.UUID, reason string) (*BookingDTO, error) {
	now := s.clock.Now()

	bk, err := s.mutate(ctx, bookingID, func(tx Tx, bk *bookingDomain.Booking) error {
		if err := bk.Reject(actorID, reason, now); err != nil {
			return err
		}
		return s.settleCancellation(ctx, tx, bk, false, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking rejected", zap.String("booking_id", bk.ID().String()))
	s.notifyParties(ctx, bk, EventBookingRejected, bookingDomain.PartyLearner)

	result := toBookingDTO(bk)
	return &result, nil
}

// CancelBooking cancels a live booking, refunding the learner and clawing back the provider's
// payout if it was already made.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, actorID uuid.UUID, reason string) (*BookingDTO, error) {
	now := s.clock.Now()

	bk, err := s.mutate(ctx, bookingID, func(tx Tx, bk *bookingDomain.Booking) error {
		released := bk.EscrowReleased()
		if err := bk.Cancel(actorID, reason, now); err != nil {
			return err
		}
		return s.settleCancellation(ctx, tx, bk, released, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking cancelled",
		zap.String("booking_id", bk.ID().String()),
		zap.String("cancelled_by", string(bk.CancelledBy())),
	)
	s.notifyParties(ctx, bk, EventBookingCancelled, bookingDomain.PartyLearner, bookingDomain.PartyProvider)

	result := toBookingDTO(bk)
	return &result, nil
}

// CompleteBooking marks a confirmed session as held. No credits move; both parties' session
// counters and the skill's counter are incremented.
func (s *BookingService) CompleteBooking(ctx context.Context, bookingID, actorID uuid.UUID) (*BookingDTO, error) {
	now := s.clock.Now()

	bk, err := s.mutate(ctx, bookingID, func(tx Tx, bk *bookingDomain.Booking) error {
		if err := bk.Complete(actorID, now); err != nil {
			return err
		}
		if err := ensureAccount(ctx, tx, bk.ProviderID(), now); err != nil {
			return err
		}
		accounts, err := tx.Accounts().FindForUpdate(ctx, bk.LearnerID(), bk.ProviderID())
		if err != nil {
			return err
		}
		learner, provider := accounts[bk.LearnerID()], accounts[bk.ProviderID()]
		learner.RecordLearnerSession(now)
		provider.RecordProviderSession(now)
		for _, acct := range []*ledger.Account{learner, provider} {
			acct.IncrementVersion()
			if err := tx.Accounts().Update(ctx, acct); err != nil {
				return fmt.Errorf("failed to update credit account: %w", err)
			}
		}
		if err := tx.Skills().IncrementTotalSessions(ctx, bk.SkillID()); err != nil && !domain.IsNotFound(err) {
			return fmt.Errorf("failed to update skill sessions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking completed", zap.String("booking_id", bk.ID().String()))
	s.notifyParties(ctx, bk, EventBookingCompleted, bookingDomain.PartyLearner, bookingDomain.PartyProvider)
	s.notifyParties(ctx, bk, EventReviewEligible, bookingDomain.PartyLearner, bookingDomain.PartyProvider)

	result := toBookingDTO(bk)
	return &result, nil
}

// ExpireStalePending cancels pending bookings the provider never answered and refunds their
// learners. Each booking is expired in its own transaction; a failure is logged and the sweep
// moves on. It returns how many bookings were expired.
func (s *BookingService) ExpireStalePending(ctx context.Context) (int, error) {
	now := s.clock.Now()
	// zero disables the age rule: only bookings whose start has passed qualify
	var createdBefore time.Time
	if s.policy.PendingTTL > 0 {
		createdBefore = now.Add(-s.policy.PendingTTL)
	}
	limit := s.policy.ExpiryBatchSize
	if limit <= 0 {
		limit = 100
	}

	candidates, err := s.uow.Bookings().FindExpiredPending(ctx, now, createdBefore, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to find expired bookings: %w", err)
	}

	expired := 0
	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		skipped := false
		bk, err := s.mutate(ctx, candidate.ID(), func(tx Tx, bk *bookingDomain.Booking) error {
			// answered since the candidate was read
			if !bk.IsExpired(now, s.policy.PendingTTL) {
				skipped = true
				return errUnchanged
			}
			if err := bk.Expire(now, s.policy.PendingTTL); err != nil {
				return err
			}
			return s.settleCancellation(ctx, tx, bk, false, now)
		})
		if err != nil {
			s.logger.Error("failed to expire booking",
				zap.String("booking_id", candidate.ID().String()),
				zap.Error(err),
			)
			continue
		}
		if skipped {
			continue
		}
		expired++
		s.notifyParties(ctx, bk, EventBookingExpired, bookingDomain.PartyLearner, bookingDomain.PartyProvider)
	}

	if expired > 0 {
		s.logger.Info("expired pending bookings", zap.Int("count", expired))
	}
	return expired, nil
}

// GetBooking retrieves a single booking. Only its parties and admins may read it.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, actorID uuid.UUID, isAdmin bool) (*BookingDTO, error) {
	bk, err := s.uow.Bookings().FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !bk.IsParticipant(actorID) {
		return nil, domain.NewForbiddenError("not a participant of this booking")
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// ListBookings retrieves paginated bookings of userID, either as learner or as provider.
func (s *BookingService) ListBookings(ctx context.Context, userID uuid.UUID, as bookingDomain.Party, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	var (
		bookings []*bookingDomain.Booking
		total    int64
		err      error
	)
	switch as {
	case bookingDomain.PartyProvider:
		bookings, total, err = s.uow.Bookings().FindByProviderID(ctx, userID, page, limit)
	case bookingDomain.PartyLearner, "":
		bookings, total, err = s.uow.Bookings().FindByLearnerID(ctx, userID, page, limit)
	default:
		return nil, domain.NewValidationError(fmt.Sprintf("invalid role filter: %s", as))
	}
	if err != nil {
		return nil, err
	}

	result := domain.NewPaginatedResult(toBookingDTOs(bookings), total, page, limit)
	return &result, nil
}

// --- Admin methods ---

// ListAllBookings returns a paginated list of all bookings (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, page, limit int) ([]BookingDTO, int64, error) {
	bookings, total, err := s.uow.Bookings().ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return toBookingDTOs(bookings), total, nil
}

// GetBookingStats returns aggregate booking statistics (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.uow.Bookings().CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &BookingStatsDTO{
		TotalBookings: total,
		ByStatus:      counts,
	}, nil
}

// --- Helpers ---

// errUnchanged lets a mutate callback end the transaction without writing the booking.
var errUnchanged = errors.New("booking unchanged")

// mutate loads a booking under a row lock, applies fn and persists the result, all in one
// transaction.
func (s *BookingService) mutate(
	ctx context.Context,
	bookingID uuid.UUID,
	fn func(tx Tx, bk *bookingDomain.Booking) error,
) (*bookingDomain.Booking, error) {
	var bk *bookingDomain.Booking
	err := runInTx(ctx, s.uow, func(tx Tx) error {
		var err error
		bk, err = tx.Bookings().FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := fn(tx, bk); err != nil {
			if errors.Is(err, errUnchanged) {
				return nil
			}
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
	return bk, nil
}

// settleCancellation returns the learner's hold and, when the provider was already paid,
// reverses that payout. Zero-cost sessions move nothing.
func (s *BookingService) settleCancellation(ctx context.Context, tx Tx, bk *bookingDomain.Booking, providerPaid bool, now time.Time) error {
	if bk.SessionCost().IsZero() {
		return nil
	}
	ids := []uuid.UUID{bk.LearnerID()}
	if providerPaid {
		ids = append(ids, bk.ProviderID())
	}
	accounts, err := tx.Accounts().FindForUpdate(ctx, ids...)
	if err != nil {
		return err
	}
	id := bk.ID()

	learner := accounts[bk.LearnerID()]
	previous := learner.Credits()
	if err := learner.Release(bk.EscrowHold(), now); err != nil {
		return err
	}
	if err := recordLedger(ctx, tx, learner, previous, ledger.TypeRefund, &id,
		fmt.Sprintf("Refund for booking %s", bk.BookingNumber()), allocationMetadata(bk.EscrowHold()), now); err != nil {
		return err
	}

	if !providerPaid {
		return nil
	}
	provider := accounts[bk.ProviderID()]
	previous = provider.Credits()
	if err := provider.ReverseEarning(bk.SessionCost(), now); err != nil {
		return err
	}
	return recordLedger(ctx, tx, provider, previous, ledger.TypeReversal, &id,
		fmt.Sprintf("Reversal of earning for booking %s", bk.BookingNumber()), nil, now)
}

// ensureSlotFree fails with a conflict when the provider already has a booking overlapping slot.
func (s *BookingService) ensureSlotFree(ctx context.Context, repos Repositories, providerID uuid.UUID, slot bookingDomain.TimeSlot, excludeID *uuid.UUID) error {
	window := bookingDomain.ConflictWindow(slot.Interval(), s.policy.OverlapBuffer)
	n, err := repos.Bookings().CountOverlapping(ctx, providerID, window.Start, window.End, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check schedule: %w", err)
	}
	if n > 0 {
		return domain.NewConflictError("the provider already has a session booked in this time slot")
	}
	return nil
}

func (s *BookingService) notifyParties(ctx context.Context, bk *bookingDomain.Booking, event string, parties ...bookingDomain.Party) {
	notes := make([]notification, 0, len(parties))
	for _, p := range parties {
		userID := bk.LearnerID()
		if p == bookingDomain.PartyProvider {
			userID = bk.ProviderID()
		}
		notes = append(notes, notification{userID: userID, event: event, payload: bookingPayload(bk, event)})
	}
	dispatch(ctx, s.notifier, s.logger, notes)
}

func bookingPayload(bk *bookingDomain.Booking, event string) map[string]interface{} {
	payload := map[string]interface{}{
		"booking_id":     bk.ID().String(),
		"booking_number": bk.BookingNumber(),
		"skill_id":       bk.SkillID().String(),
		"learner_id":     bk.LearnerID().String(),
		"provider_id":    bk.ProviderID().String(),
		"status":         string(bk.Status()),
		"start_at":       bk.Slot().StartAt.Format(time.RFC3339),
		"end_at":         bk.Slot().EndAt.Format(time.RFC3339),
		"session_cost":   bk.SessionCost().String(),
	}
	if reason := eventReason(bk, event); reason != "" {
		payload["reason"] = reason
	}
	if info := bk.Reschedule(); info != nil {
		payload["new_start_at"] = info.NewSlot.StartAt.Format(time.RFC3339)
		payload["new_end_at"] = info.NewSlot.EndAt.Format(time.RFC3339)
		payload["requested_by"] = string(info.RequestedBy)
	}
	return payload
}

// eventReason picks the reason that belongs to the event being sent.
func eventReason(bk *bookingDomain.Booking, event string) string {
	switch event {
	case EventBookingCancelled, EventBookingExpired:
		return bk.CancelledReason()
	case EventBookingRejected, EventBookingRescheduleDeclined:
		return bk.RejectionReason()
	case EventBookingRescheduleRequested:
		if info := bk.Reschedule(); info != nil {
			return info.Reason
		}
	}
	return ""
}
