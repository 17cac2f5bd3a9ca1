package model

import "time"

// Reservation statuses.  CONFIRMED covers both seated and waitlisted
// bookings; the Waitlisted flag tells them apart.  CANCELLED, ATTENDED
// and NO_SHOW are terminal.
const (
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
	StatusAttended  = "ATTENDED"
	StatusNoShow    = "NO_SHOW"
)

// Reservation records one member's booking attempt for one session
// occurrence.  Rows are never deleted; cancellation is a status change
// so booking history survives.  While Waitlisted is true the
// WaitlistPosition orders the queue: lower positions are promoted
// first.  Positions are assigned monotonically on insert and never
// renumbered, so gaps left by cancellations are expected.
//
// Fields:
//
//	ID               – primary key identifier.
//	MemberID         – member who made the booking.
//	SessionID        – session being booked.
//	OccurrenceDate   – calendar date (YYYY-MM-DD) of the occurrence.
//	Status           – CONFIRMED, CANCELLED, ATTENDED or NO_SHOW.
//	Waitlisted       – true while the booking waits for a seat.
//	WaitlistPosition – queue position; nil once seated or when never waitlisted.
//	Reminder24hSent  – 24-hour reminder already dispatched.
//	Reminder2hSent   – 2-hour reminder already dispatched.
//	CreatedAt        – creation timestamp.
//	UpdatedAt        – last update timestamp.
type Reservation struct {
	ID               uint64    // reservations.id
	MemberID         uint64    // reservations.member_id
	SessionID        uint64    // reservations.session_id
	OccurrenceDate   string    // reservations.occurrence_date (DATE, UTC)
	Status           string    // reservations.status
	Waitlisted       bool      // reservations.waitlisted
	WaitlistPosition *uint32   // reservations.waitlist_position (nullable)
	Reminder24hSent  bool      // reservations.reminder_24h_sent
	Reminder2hSent   bool      // reservations.reminder_2h_sent
	CreatedAt        time.Time // reservations.created_at
	UpdatedAt        time.Time // reservations.updated_at
}

// Seated reports whether the reservation currently holds a confirmed
// seat counted against the session's capacity.
func (r *Reservation) Seated() bool {
	return r.Status == StatusConfirmed && !r.Waitlisted
}

// Terminal reports whether the reservation has reached a final state.
func (r *Reservation) Terminal() bool {
	switch r.Status {
	case StatusCancelled, StatusAttended, StatusNoShow:
		return true
	}
	return false
}
