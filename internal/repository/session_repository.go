package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/gym-class-booking/internal/model"
)

// dbTimeLayout is the DATETIME format used by MySQL columns.  All
// timestamps are stored in UTC; see database.Open which forces loc=UTC.
const dbTimeLayout = "2006-01-02 15:04:05"

// SessionRepo manages persistence for class sessions: the timetable
// entries carrying name, weekday, schedule and seat capacity.  Live
// seat counts are per occurrence and live in OccurrenceRepo.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo constructs a SessionRepo with the given DB handle.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *SessionRepo) DB() *sql.DB {
	return r.db
}

const sessionCols = `id, name, description, capacity, is_active, weekday, starts_at, ends_at, created_at, updated_at`

func scanSession(row *sql.Row) (*model.Session, error) {
	var s model.Session
	var startStr, endStr string
	err := row.Scan(
		&s.ID, &s.Name, &s.Description, &s.Capacity,
		&s.Active, &s.Weekday, &startStr, &endStr, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if s.StartsAt, err = time.ParseInLocation(dbTimeLayout, startStr, time.UTC); err != nil {
		return nil, err
	}
	if s.EndsAt, err = time.ParseInLocation(dbTimeLayout, endStr, time.UTC); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID returns a session by its primary key or ErrSessionNotFound.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	const q = `SELECT ` + sessionCols + ` FROM sessions WHERE id = ?`
	return scanSession(r.db.QueryRowContext(ctx, q, id))
}

// List returns all sessions ordered by weekday and start time.  Pass
// activeOnly=true to hide deactivated sessions from public listings.
func (r *SessionRepo) List(ctx context.Context, activeOnly bool) ([]model.Session, error) {
	q := `SELECT ` + sessionCols + ` FROM sessions`
	if activeOnly {
		q += ` WHERE is_active = 1`
	}
	q += ` ORDER BY weekday, starts_at, id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Session, 0)
	for rows.Next() {
		var s model.Session
		var startStr, endStr string
		if err := rows.Scan(
			&s.ID, &s.Name, &s.Description, &s.Capacity,
			&s.Active, &s.Weekday, &startStr, &endStr, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if s.StartsAt, err = time.ParseInLocation(dbTimeLayout, startStr, time.UTC); err != nil {
			return nil, err
		}
		if s.EndsAt, err = time.ParseInLocation(dbTimeLayout, endStr, time.UTC); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Create inserts a new session and assigns the generated ID back to
// the struct.  The inserted row is queried back to populate DB
// defaults.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	const q = `INSERT INTO sessions (name, description, capacity, is_active, weekday, starts_at, ends_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		s.Name, s.Description, s.Capacity, s.Active, s.Weekday,
		s.StartsAt.UTC().Format(dbTimeLayout), s.EndsAt.UTC().Format(dbTimeLayout),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	fresh, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *fresh
	return nil
}

// Update modifies the mutable metadata fields of a session (name,
// description, capacity, weekday, schedule).  Capacity may be raised
// freely; lowering it below the occupied count of any upcoming
// occurrence is rejected in SQL so the occupancy invariant cannot be
// broken by an edit.  Returns ErrSessionNotFound when no row matches,
// ErrInvalidState when an upcoming occurrence holds more seats than
// the new capacity.
func (r *SessionRepo) Update(ctx context.Context, s *model.Session) error {
	const q = `UPDATE sessions
	           SET name = ?, description = ?, capacity = ?, weekday = ?, starts_at = ?, ends_at = ?
	           WHERE id = ? AND NOT EXISTS (
	               SELECT 1 FROM occurrences
	               WHERE session_id = ? AND occurrence_date >= UTC_DATE() AND occupied > ?)`
	res, err := r.db.ExecContext(ctx, q,
		s.Name, s.Description, s.Capacity, s.Weekday,
		s.StartsAt.UTC().Format(dbTimeLayout), s.EndsAt.UTC().Format(dbTimeLayout),
		s.ID, s.ID, s.Capacity,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, s.ID); err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}

// SetActive toggles whether a session accepts new bookings.
func (r *SessionRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
