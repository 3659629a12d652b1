package booking

import (
	"fmt"
	"time"

	"github.com/skillswap/service-booking/pkg/domain"
)

const (
	// DateLayout is the wire format of a preferred date.
	DateLayout = "2006-01-02"
	// ClockLayout is the wire format of a preferred time of day.
	ClockLayout = "15:04"
)

// TimeSlot is the scheduled interval of a session together with the date and time the
// requester asked for.
type TimeSlot struct {
	Date    string
	Time    string
	StartAt time.Time
	EndAt   time.Time
}

// NewTimeSlot resolves date and clock in loc and derives the end from duration.
func NewTimeSlot(date, clock string, duration time.Duration, loc *time.Location) (TimeSlot, error) {
	if loc == nil {
		loc = time.UTC
	}
	if duration <= 0 {
		return TimeSlot{}, domain.NewValidationError("session duration must be positive")
	}
	start, err := time.ParseInLocation(DateLayout+" "+ClockLayout, date+" "+clock, loc)
	if err != nil {
		return TimeSlot{}, domain.NewValidationError(fmt.Sprintf("invalid date/time %q %q: expected YYYY-MM-DD and HH:MM", date, clock))
	}
	iv, err := NewInterval(start, start.Add(duration))
	if err != nil {
		return TimeSlot{}, err
	}
	return TimeSlot{Date: date, Time: clock, StartAt: iv.Start, EndAt: iv.End}, nil
}

// Interval returns the half-open range the slot occupies.
func (s TimeSlot) Interval() Interval {
	return Interval{Start: s.StartAt, End: s.EndAt}
}

// Duration returns the session length.
func (s TimeSlot) Duration() time.Duration {
	return s.EndAt.Sub(s.StartAt)
}

// Equal reports whether both slots cover the same instants.
func (s TimeSlot) Equal(other TimeSlot) bool {
	return s.StartAt.Equal(other.StartAt) && s.EndAt.Equal(other.EndAt)
}

// IsZero reports whether the slot is unset.
func (s TimeSlot) IsZero() bool {
	return s.StartAt.IsZero() && s.EndAt.IsZero()
}
