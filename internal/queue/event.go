// Package queue defines message payloads exchanged over the message broker.
package queue

// Notification kinds emitted by the booking service and the sweeper.
const (
	KindWaitlistPromoted = "WAITLIST_PROMOTED"
	KindReminder24h      = "CLASS_REMINDER_24H"
	KindReminder2h       = "CLASS_REMINDER_2H"
)

// NotificationEvent is published whenever a member should be notified:
// a waitlist promotion or an upcoming-class reminder. It carries enough
// information for downstream consumers to render a message without
// querying the primary database.
type NotificationEvent struct {
	MemberID       uint64 `json:"member_id"`
	Kind           string `json:"kind"`
	ReservationID  uint64 `json:"reservation_id"`
	SessionID      uint64 `json:"session_id"`
	SessionName    string `json:"session_name"`
	OccurrenceDate string `json:"occurrence_date"`
	StartsAt       string `json:"starts_at"`
	SentAt         string `json:"sent_at"`
}
