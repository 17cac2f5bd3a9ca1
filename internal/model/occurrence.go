package model

// Occurrence is one bookable date of a session: the row that carries
// the live seat count for that date.  A row is materialized on the
// first booking of the date and mutated exclusively through
// OccurrenceRepo.IncrementTx / DecrementTx so Occupied can never drift
// outside [0, Capacity].  Different dates of the same session occupy
// seats independently.
//
// Fields:
//
//	SessionID – owning session.
//	Date      – calendar date, YYYY-MM-DD (see OccurrenceDateLayout).
//	Occupied  – count of currently confirmed, non-waitlisted seats on
//	            this date.
type Occurrence struct {
	SessionID uint64 // occurrences.session_id
	Date      string // occurrences.occurrence_date
	Occupied  uint32 // occurrences.occupied
}

// SeatsLeft reports how many confirmed seats remain against the given
// session capacity.
func (o *Occurrence) SeatsLeft(capacity uint32) uint32 {
	if o.Occupied >= capacity {
		return 0
	}
	return capacity - o.Occupied
}
