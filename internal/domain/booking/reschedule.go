package booking

import "time"

// RescheduleInfo is a pending proposal to move a confirmed session. It exists only while the
// booking is in StatusRescheduleRequested.
type RescheduleInfo struct {
	NewSlot     TimeSlot
	Reason      string
	RequestedBy Party
	RequestedAt time.Time
}

// Responder returns the party expected to accept or decline the proposal.
func (r RescheduleInfo) Responder() Party {
	return r.RequestedBy.Other()
}
