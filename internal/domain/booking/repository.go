package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByIDForUpdate retrieves a booking and locks its row until the surrounding
	// transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByLearnerID retrieves bookings made by a learner with pagination.
	FindByLearnerID(ctx context.Context, learnerID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// FindByProviderID retrieves bookings of a provider's skills with pagination.
	FindByProviderID(ctx context.Context, providerID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// ListAll retrieves all bookings with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Booking, int64, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// CountOverlapping counts the provider's slot-holding bookings whose interval intersects
	// [from, to), optionally ignoring one booking. Callers pass ConflictWindow bounds.
	CountOverlapping(ctx context.Context, providerID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) (int64, error)

	// FindExpiredPending returns up to limit pending bookings that started at or before now
	// or were created at or before createdBefore, oldest first.
	FindExpiredPending(ctx context.Context, now, createdBefore time.Time, limit int) ([]*Booking, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, booking *Booking) error
}
