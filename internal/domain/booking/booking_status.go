package booking

import "fmt"

// BookingStatus represents the current state of a booking in its lifecycle.
type BookingStatus string

const (
	StatusPending             BookingStatus = "pending"
	StatusConfirmed           BookingStatus = "confirmed"
	StatusRejected            BookingStatus = "rejected"
	StatusRescheduleRequested BookingStatus = "reschedule_requested"
	StatusCompleted           BookingStatus = "completed"
	StatusCancelled           BookingStatus = "cancelled"
)

// validTransitions defines the state machine for booking status transitions.
var validTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:             {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed:           {StatusRescheduleRequested, StatusCancelled, StatusCompleted},
	StatusRescheduleRequested: {StatusConfirmed, StatusCancelled},
	StatusCompleted:           {},
	StatusCancelled:           {},
	StatusRejected:            {},
}

// SlotHoldingStatuses are the statuses whose bookings occupy their time slot on the
// provider's calendar.
var SlotHoldingStatuses = []BookingStatus{StatusPending, StatusConfirmed, StatusRescheduleRequested}

// IsValid returns true if the status is a recognized booking status.
func (s BookingStatus) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s BookingStatus) IsTerminal() bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return true
	}
	return len(allowed) == 0
}

// HoldsSlot returns true if a booking in this status blocks its interval for other bookings.
func (s BookingStatus) HoldsSlot() bool {
	for _, h := range SlotHoldingStatuses {
		if h == s {
			return true
		}
	}
	return false
}

// String returns the string representation of the status.
func (s BookingStatus) String() string {
	return string(s)
}

// ParseBookingStatus converts a string to a BookingStatus, returning an error if invalid.
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}
