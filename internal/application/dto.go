package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	bookingDomain "github.com/skillswap/service-booking/internal/domain/booking"
	"github.com/skillswap/service-booking/internal/domain/ledger"
	"github.com/skillswap/service-booking/internal/domain/skill"
)

// CreateBookingRequest holds the data needed to request a session.
type CreateBookingRequest struct {
	SkillID uuid.UUID `json:"skill_id" binding:"required"`
	// ProviderID is optional; when set it must match the skill's provider.
	ProviderID    *uuid.UUID `json:"provider_id"`
	PreferredDate string     `json:"preferred_date" binding:"required"`
	PreferredTime string     `json:"preferred_time" binding:"required"`
}

// ReasonRequest carries the free-text reason of a reject, cancel or decline.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// ProposeRescheduleRequest holds a proposed new slot.
type ProposeRescheduleRequest struct {
	NewDate string `json:"new_date" binding:"required"`
	NewTime string `json:"new_time" binding:"required"`
	Reason  string `json:"reason"`
}

// RescheduleDTO is the response representation of an open reschedule proposal.
type RescheduleDTO struct {
	NewDate     string    `json:"new_date"`
	NewTime     string    `json:"new_time"`
	NewStartAt  time.Time `json:"new_start_at"`
	NewEndAt    time.Time `json:"new_end_at"`
	Reason      string    `json:"reason,omitempty"`
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// AllocationDTO is the bucket split of an escrow hold.
type AllocationDTO struct {
	Earned    decimal.Decimal `json:"earned"`
	Purchased decimal.Decimal `json:"purchased"`
	Bonus     decimal.Decimal `json:"bonus"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID              uuid.UUID       `json:"id"`
	BookingNumber   string          `json:"booking_number"`
	SkillID         uuid.UUID       `json:"skill_id"`
	ProviderID      uuid.UUID       `json:"provider_id"`
	LearnerID       uuid.UUID       `json:"learner_id"`
	Status          string          `json:"status"`
	PreferredDate   string          `json:"preferred_date"`
	PreferredTime   string          `json:"preferred_time"`
	StartAt         time.Time       `json:"start_at"`
	EndAt           time.Time       `json:"end_at"`
	SessionCost     decimal.Decimal `json:"session_cost"`
	EscrowHold      AllocationDTO   `json:"escrow_hold"`
	EscrowReleased  bool            `json:"escrow_released"`
	Reschedule      *RescheduleDTO  `json:"reschedule,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	CancelledReason string          `json:"cancelled_reason,omitempty"`
	CancelledBy     string          `json:"cancelled_by,omitempty"`
	ReviewEligible  bool            `json:"review_eligible"`
	ConfirmedAt     *time.Time      `json:"confirmed_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	Version         int64           `json:"version"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// WalletDTO is a user's credit balance.
type WalletDTO struct {
	UserID             uuid.UUID       `json:"user_id"`
	Credits            decimal.Decimal `json:"credits"`
	EarnedCredits      decimal.Decimal `json:"earned_credits"`
	PurchasedCredits   decimal.Decimal `json:"purchased_credits"`
	BonusCredits       decimal.Decimal `json:"bonus_credits"`
	SessionsAsLearner  int64           `json:"sessions_as_learner"`
	SessionsAsProvider int64           `json:"sessions_as_provider"`
}

// WalletTransactionDTO is one audit row of a user's wallet history.
type WalletTransactionDTO struct {
	ID              uuid.UUID              `json:"id"`
	BookingID       *uuid.UUID             `json:"booking_id,omitempty"`
	Type            string                 `json:"type"`
	Amount          decimal.Decimal        `json:"amount"`
	PreviousBalance decimal.Decimal        `json:"previous_balance"`
	NewBalance      decimal.Decimal        `json:"new_balance"`
	Status          string                 `json:"status"`
	Description     string                 `json:"description,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// GrantCreditsRequest is an admin top-up of a user's purchased or bonus credits.
type GrantCreditsRequest struct {
	Bucket string          `json:"bucket" binding:"required,oneof=purchased bonus"`
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

// SyncSkillRequest is a catalog update for the local skill projection.
type SyncSkillRequest struct {
	SkillID        uuid.UUID       `json:"skill_id"`
	ProviderID     uuid.UUID       `json:"provider_id"`
	Title          string          `json:"title"`
	CreditsPerHour decimal.Decimal `json:"credits_per_hour"`
	DurationHours  decimal.Decimal `json:"duration_hours"`
	IsActive       bool            `json:"is_active"`
}

// SkillDTO is the response representation of a skill projection.
type SkillDTO struct {
	ID             uuid.UUID       `json:"id"`
	ProviderID     uuid.UUID       `json:"provider_id"`
	Title          string          `json:"title"`
	CreditsPerHour decimal.Decimal `json:"credits_per_hour"`
	DurationHours  decimal.Decimal `json:"duration_hours"`
	Status         string          `json:"status"`
	TotalSessions  int64           `json:"total_sessions"`
}

// --- Mappers ---

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	hold := bk.EscrowHold()
	dto := BookingDTO{
		ID:              bk.ID(),
		BookingNumber:   bk.BookingNumber(),
		SkillID:         bk.SkillID(),
		ProviderID:      bk.ProviderID(),
		LearnerID:       bk.LearnerID(),
		Status:          string(bk.Status()),
		PreferredDate:   bk.Slot().Date,
		PreferredTime:   bk.Slot().Time,
		StartAt:         bk.Slot().StartAt,
		EndAt:           bk.Slot().EndAt,
		SessionCost:     bk.SessionCost(),
		EscrowHold:      AllocationDTO{Earned: hold.Earned, Purchased: hold.Purchased, Bonus: hold.Bonus},
		EscrowReleased:  bk.EscrowReleased(),
		RejectionReason: bk.RejectionReason(),
		CancelledReason: bk.CancelledReason(),
		CancelledBy:     string(bk.CancelledBy()),
		ReviewEligible:  bk.ReviewEligible(),
		ConfirmedAt:     bk.ConfirmedAt(),
		CompletedAt:     bk.CompletedAt(),
		CancelledAt:     bk.CancelledAt(),
		Version:         bk.Version(),
		CreatedAt:       bk.CreatedAt(),
		UpdatedAt:       bk.UpdatedAt(),
	}
	if info := bk.Reschedule(); info != nil {
		dto.Reschedule = &RescheduleDTO{
			NewDate:     info.NewSlot.Date,
			NewTime:     info.NewSlot.Time,
			NewStartAt:  info.NewSlot.StartAt,
			NewEndAt:    info.NewSlot.EndAt,
			Reason:      info.Reason,
			RequestedBy: string(info.RequestedBy),
			RequestedAt: info.RequestedAt,
		}
	}
	return dto
}

func toBookingDTOs(bookings []*bookingDomain.Booking) []BookingDTO {
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return dtos
}

func toWalletDTO(acct *ledger.Account) WalletDTO {
	return WalletDTO{
		UserID:             acct.UserID(),
		Credits:            acct.Credits(),
		EarnedCredits:      acct.EarnedCredits(),
		PurchasedCredits:   acct.PurchasedCredits(),
		BonusCredits:       acct.BonusCredits(),
		SessionsAsLearner:  acct.SessionsAsLearner(),
		SessionsAsProvider: acct.SessionsAsProvider(),
	}
}

func toWalletTransactionDTO(txn *ledger.WalletTransaction) WalletTransactionDTO {
	return WalletTransactionDTO{
		ID:              txn.ID,
		BookingID:       txn.BookingID,
		Type:            string(txn.Type),
		Amount:          txn.Amount,
		PreviousBalance: txn.PreviousBalance,
		NewBalance:      txn.NewBalance,
		Status:          string(txn.Status),
		Description:     txn.Description,
		Metadata:        txn.Metadata,
		CreatedAt:       txn.CreatedAt,
	}
}

func toSkillDTO(s *skill.Skill) SkillDTO {
	return SkillDTO{
		ID:             s.ID(),
		ProviderID:     s.ProviderID(),
		Title:          s.Title(),
		CreditsPerHour: s.CreditsPerHour(),
		DurationHours:  s.DurationHours(),
		Status:         string(s.Status()),
		TotalSessions:  s.TotalSessions(),
	}
}
