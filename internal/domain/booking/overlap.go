package booking

import (
	"time"

	"github.com/skillswap/service-booking/pkg/domain"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval validates that end is strictly after start.
func NewInterval(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, domain.NewValidationError("session end must be after its start")
	}
	return Interval{Start: start.UTC(), End: end.UTC()}, nil
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether a and b conflict when each is padded by buffer on both sides:
// max(a.Start-buffer, b.Start-buffer) < min(a.End+buffer, b.End+buffer).
// Touching intervals (a.End == b.Start) do not conflict when buffer is zero.
func Overlaps(a, b Interval, buffer time.Duration) bool {
	lo := maxTime(a.Start.Add(-buffer), b.Start.Add(-buffer))
	hi := minTime(a.End.Add(buffer), b.End.Add(buffer))
	return lo.Before(hi)
}

// ConflictWindow returns the range that an existing booking must intersect (half-open, zero
// buffer) to conflict with candidate under buffer. Stores query this window with
// "start_at < window.End AND end_at > window.Start", which is equivalent to Overlaps.
func ConflictWindow(candidate Interval, buffer time.Duration) Interval {
	return Interval{
		Start: candidate.Start.Add(-2 * buffer),
		End:   candidate.End.Add(2 * buffer),
	}
}

// FindConflicts returns the bookings among existing that still hold their slot and overlap
// candidate. The booking with id exclude, if any, is skipped.
func FindConflicts(existing []*Booking, candidate Interval, buffer time.Duration, exclude *Booking) []*Booking {
	var conflicts []*Booking
	for _, b := range existing {
		if exclude != nil && b.ID() == exclude.ID() {
			continue
		}
		if !b.Status().HoldsSlot() {
			continue
		}
		if Overlaps(b.Slot().Interval(), candidate, buffer) {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
