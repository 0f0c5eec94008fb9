package models

import "time"

// Reschedule request lifecycle. Transitions are monotonic: a request leaves
// Pending exactly once and never returns.
const (
	RequestStatusPending  = "Pending"
	RequestStatusApproved = "Approved"
	RequestStatusRejected = "Rejected"
)

// Admin actions on a pending request.
const (
	RequestActionApprove = "Approve"
	RequestActionReject  = "Reject"
)

// RescheduleRequest asks to move an existing presentation to a new slot.
type RescheduleRequest struct {
	ID              string    `db:"id" json:"id"`
	PresentationID  string    `db:"presentation_id" json:"presentation_id"`
	RequestedByID   string    `db:"requested_by_id" json:"requested_by_id"`
	RequestedByRole string    `db:"requested_by_role" json:"requested_by_role"`
	RequestorEmail  string    `db:"requestor_email" json:"requestor_email"`
	RequestedDate   string    `db:"requested_date" json:"requested_date"`
	RequestedStart  string    `db:"requested_start" json:"requested_start"`
	RequestedEnd    string    `db:"requested_end" json:"requested_end"`
	RequestedVenue  string    `db:"requested_venue" json:"requested_venue"`
	Reason          string    `db:"reason" json:"reason"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// RequestedRange returns the requested time range.
func (r RescheduleRequest) RequestedRange() TimeRange {
	return TimeRange{Start: r.RequestedStart, End: r.RequestedEnd}
}
