package model

import "time"

// Session represents a class session on the weekly timetable: a named
// activity that recurs on a fixed weekday with a fixed seat capacity.
// Each calendar date on which the session runs is a distinct bookable
// occurrence with its own seat count; see Occurrence for where the
// live occupancy lives.
//
// Fields:
//
//	ID          – primary key identifier.
//	Name        – activity name (e.g. "Spin 45", "Yoga Basics").
//	Description – free-form description shown to members.
//	Capacity    – maximum number of confirmed seats per occurrence.
//	Active      – whether the session is bookable.
//	Weekday     – weekday on which the session recurs (0 = Sunday).
//	StartsAt    – start timestamp of the reference occurrence; only the
//	              clock time is combined with an occurrence date.
//	EndsAt      – end timestamp of the reference occurrence.
//	CreatedAt   – creation timestamp.
//	UpdatedAt   – last update timestamp.
type Session struct {
	ID          uint64    // sessions.id
	Name        string    // sessions.name
	Description string    // sessions.description
	Capacity    uint32    // sessions.capacity
	Active      bool      // sessions.is_active
	Weekday     uint8     // sessions.weekday (0 = Sunday .. 6 = Saturday)
	StartsAt    time.Time // sessions.starts_at
	EndsAt      time.Time // sessions.ends_at
	CreatedAt   time.Time // sessions.created_at
	UpdatedAt   time.Time // sessions.updated_at
}

// OccursOn reports whether the session runs on the given calendar date.
func (s *Session) OccursOn(date time.Time) bool {
	return uint8(date.Weekday()) == s.Weekday
}

// OccurrenceStart combines an occurrence date with the session's start
// clock time.  The date's year/month/day and the session's
// hour/minute/second form the concrete start timestamp in UTC.
func (s *Session) OccurrenceStart(date time.Time) time.Time {
	h, m, sec := s.StartsAt.UTC().Clock()
	y, mo, d := date.UTC().Date()
	return time.Date(y, mo, d, h, m, sec, 0, time.UTC)
}

// OccurrenceEnd is like OccurrenceStart but for the end time.  Sessions
// that run past midnight end on the following calendar day.
func (s *Session) OccurrenceEnd(date time.Time) time.Time {
	h, m, sec := s.EndsAt.UTC().Clock()
	y, mo, d := date.UTC().Date()
	end := time.Date(y, mo, d, h, m, sec, 0, time.UTC)
	if end.Before(s.OccurrenceStart(date)) {
		end = end.Add(24 * time.Hour)
	}
	return end
}

// OccurrenceDateLayout is the wire and storage format for occurrence
// dates.  An occurrence date is a plain calendar date; clock time comes
// from the session itself.
const OccurrenceDateLayout = "2006-01-02"

// ParseOccurrenceDate parses a YYYY-MM-DD occurrence date in UTC.
func ParseOccurrenceDate(s string) (time.Time, error) {
	return time.ParseInLocation(OccurrenceDateLayout, s, time.UTC)
}
