package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	bookingDomain "github.com/skillswap/service-booking/internal/domain/booking"
	"github.com/skillswap/service-booking/internal/domain/ledger"
	"github.com/skillswap/service-booking/pkg/domain"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	BookingNumber string    `gorm:"uniqueIndex;not null;size:20"`
	SkillID       uuid.UUID `gorm:"type:uuid;index;not null"`
	ProviderID    uuid.UUID `gorm:"type:uuid;index:idx_bookings_provider_schedule,priority:1;not null"`
	LearnerID     uuid.UUID `gorm:"type:uuid;index;not null"`
	Status        string    `gorm:"not null;size:30;index"`
	PreferredDate string    `gorm:"not null;size:10"`
	PreferredTime string    `gorm:"not null;size:5"`
	StartAt       time.Time `gorm:"not null;index:idx_bookings_provider_schedule,priority:2"`
	EndAt         time.Time `gorm:"not null"`

	SessionCost    decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	HoldEarned     decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	HoldPurchased  decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	HoldBonus      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	EscrowReleased bool            `gorm:"not null;default:false"`

	RescheduleNewDate     *string    `gorm:"size:10"`
	RescheduleNewTime     *string    `gorm:"size:5"`
	RescheduleNewStartAt  *time.Time `gorm:""`
	RescheduleNewEndAt    *time.Time `gorm:""`
	RescheduleReason      *string    `gorm:"size:500"`
	RescheduleRequestedBy *string    `gorm:"size:20"`
	RescheduleRequestedAt *time.Time `gorm:""`

	RejectionReason string `gorm:"size:500"`
	CancelledReason string `gorm:"size:500"`
	CancelledBy     string `gorm:"size:20"`
	ReviewEligible  bool   `gorm:"not null;default:false"`

	ConfirmedAt *time.Time     `gorm:""`
	CompletedAt *time.Time     `gorm:""`
	CancelledAt *time.Time     `gorm:""`
	Version     int64          `gorm:"not null;default:1"`
	CreatedAt   time.Time      `gorm:"not null"`
	UpdatedAt   time.Time      `gorm:"not null"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository. db may be a transaction.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	return r.findOne(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate retrieves a booking with SELECT ... FOR UPDATE.
func (r *GormBookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormBookingRepository) findOne(db *gorm.DB, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByLearnerID retrieves bookings made by a learner with pagination.
func (r *GormBookingRepository) FindByLearnerID(ctx context.Context, learnerID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.findPage(ctx, page, limit, func(db *gorm.DB) *gorm.DB {
		return db.Where("learner_id = ?", learnerID)
	})
}

// FindByProviderID retrieves bookings of a provider's skills with pagination.
func (r *GormBookingRepository) FindByProviderID(ctx context.Context, providerID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.findPage(ctx, page, limit, func(db *gorm.DB) *gorm.DB {
		return db.Where("provider_id = ?", providerID)
	})
}

// ListAll retrieves all bookings with pagination (admin).
func (r *GormBookingRepository) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.findPage(ctx, page, limit, func(db *gorm.DB) *gorm.DB { return db })
}

func (r *GormBookingRepository) findPage(ctx context.Context, page, limit int, scope func(*gorm.DB) *gorm.DB) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Scopes(scope).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find bookings: %w", err)
	}

	bookings, err := toDomainBookings(models)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// CountOverlapping counts the provider's slot-holding bookings intersecting [from, to).
func (r *GormBookingRepository) CountOverlapping(ctx context.Context, providerID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) (int64, error) {
	statuses := make([]string, len(bookingDomain.SlotHoldingStatuses))
	for i, s := range bookingDomain.SlotHoldingStatuses {
		statuses[i] = string(s)
	}

	query := r.db.WithContext(ctx).Model(&BookingModel{}).
		Where("provider_id = ?", providerID).
		Where("status IN ?", statuses).
		Where("start_at < ? AND end_at > ?", to, from)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count overlapping bookings: %w", err)
	}
	return count, nil
}

// FindExpiredPending returns pending bookings whose start has passed or that were created
// at or before createdBefore, oldest first.
func (r *GormBookingRepository) FindExpiredPending(ctx context.Context, now, createdBefore time.Time, limit int) ([]*bookingDomain.Booking, error) {
	var models []BookingModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(bookingDomain.StatusPending)).
		Where("start_at <= ? OR created_at <= ?", now, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find expired bookings: %w", err)
	}
	return toDomainBookings(models)
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	model := toBookingModel(bk)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model := toBookingModel(bk)

	// IncrementVersion was called, so the stored row carries the previous version.
	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":                  model.Status,
			"preferred_date":          model.PreferredDate,
			"preferred_time":          model.PreferredTime,
			"start_at":                model.StartAt,
			"end_at":                  model.EndAt,
			"escrow_released":         model.EscrowReleased,
			"reschedule_new_date":     model.RescheduleNewDate,
			"reschedule_new_time":     model.RescheduleNewTime,
			"reschedule_new_start_at": model.RescheduleNewStartAt,
			"reschedule_new_end_at":   model.RescheduleNewEndAt,
			"reschedule_reason":       model.RescheduleReason,
			"reschedule_requested_by": model.RescheduleRequestedBy,
			"reschedule_requested_at": model.RescheduleRequestedAt,
			"rejection_reason":        model.RejectionReason,
			"cancelled_reason":        model.CancelledReason,
			"cancelled_by":            model.CancelledBy,
			"review_eligible":         model.ReviewEligible,
			"confirmed_at":            model.ConfirmedAt,
			"completed_at":            model.CompletedAt,
			"cancelled_at":            model.CancelledAt,
			"version":                 model.Version,
			"updated_at":              model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}

	return nil
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) *BookingModel {
	slot := bk.Slot()
	hold := bk.EscrowHold()
	model := &BookingModel{
		ID:              bk.ID(),
		BookingNumber:   bk.BookingNumber(),
		SkillID:         bk.SkillID(),
		ProviderID:      bk.ProviderID(),
		LearnerID:       bk.LearnerID(),
		Status:          string(bk.Status()),
		PreferredDate:   slot.Date,
		PreferredTime:   slot.Time,
		StartAt:         slot.StartAt,
		EndAt:           slot.EndAt,
		SessionCost:     bk.SessionCost(),
		HoldEarned:      hold.Earned,
		HoldPurchased:   hold.Purchased,
		HoldBonus:       hold.Bonus,
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
		requestedBy := string(info.RequestedBy)
		requestedAt := info.RequestedAt
		newStart, newEnd := info.NewSlot.StartAt, info.NewSlot.EndAt
		model.RescheduleNewDate = &info.NewSlot.Date
		model.RescheduleNewTime = &info.NewSlot.Time
		model.RescheduleNewStartAt = &newStart
		model.RescheduleNewEndAt = &newEnd
		model.RescheduleReason = &info.Reason
		model.RescheduleRequestedBy = &requestedBy
		model.RescheduleRequestedAt = &requestedAt
	}
	return model
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}

	var reschedule *bookingDomain.RescheduleInfo
	if m.RescheduleNewStartAt != nil && m.RescheduleNewEndAt != nil {
		reschedule = &bookingDomain.RescheduleInfo{
			NewSlot: bookingDomain.TimeSlot{
				Date:    deref(m.RescheduleNewDate),
				Time:    deref(m.RescheduleNewTime),
				StartAt: m.RescheduleNewStartAt.UTC(),
				EndAt:   m.RescheduleNewEndAt.UTC(),
			},
			Reason:      deref(m.RescheduleReason),
			RequestedBy: bookingDomain.Party(deref(m.RescheduleRequestedBy)),
		}
		if m.RescheduleRequestedAt != nil {
			reschedule.RequestedAt = m.RescheduleRequestedAt.UTC()
		}
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.BookingNumber,
		m.SkillID,
		m.ProviderID,
		m.LearnerID,
		status,
		bookingDomain.TimeSlot{
			Date:    m.PreferredDate,
			Time:    m.PreferredTime,
			StartAt: m.StartAt.UTC(),
			EndAt:   m.EndAt.UTC(),
		},
		m.SessionCost,
		ledger.Allocation{Earned: m.HoldEarned, Purchased: m.HoldPurchased, Bonus: m.HoldBonus},
		m.EscrowReleased,
		reschedule,
		m.RejectionReason,
		m.CancelledReason,
		bookingDomain.Party(m.CancelledBy),
		m.ReviewEligible,
		m.ConfirmedAt,
		m.CompletedAt,
		m.CancelledAt,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toDomainBookings(models []BookingModel) ([]*bookingDomain.Booking, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, err
		}
		bookings[i] = bk
	}
	return bookings, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
