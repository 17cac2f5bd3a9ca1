package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/gym-class-booking/internal/model"
)

// ReservationRepo provides CRUD operations for the reservation ledger.
// One row exists per (member, session, occurrence date) booking attempt.
// Rows are never physically deleted: cancellation, attendance and
// no-show are status transitions, so the ledger doubles as booking
// history.  All timestamp fields are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationCols = `id, member_id, session_id, occurrence_date, status, waitlisted, waitlist_position, reminder_24h_sent, reminder_2h_sent, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(sc rowScanner) (*model.Reservation, error) {
	var res model.Reservation
	var pos sql.NullInt64
	err := sc.Scan(
		&res.ID, &res.MemberID, &res.SessionID, &res.OccurrenceDate,
		&res.Status, &res.Waitlisted, &pos,
		&res.Reminder24hSent, &res.Reminder2hSent,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if pos.Valid {
		p := uint32(pos.Int64)
		res.WaitlistPosition = &p
	}
	// MySQL DATE columns scan as "2006-01-02" strings with parseTime
	// only applying to DATETIME; normalize a possible time suffix.
	if len(res.OccurrenceDate) > len(model.OccurrenceDateLayout) {
		res.OccurrenceDate = res.OccurrenceDate[:len(model.OccurrenceDateLayout)]
	}
	return &res, nil
}

// GetByID returns a reservation by its primary key or ErrReservationNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	return res, err
}

// GetByIDTx is like GetByID but runs inside the caller's transaction
// with a row lock so a cancellation cannot race another transition of
// the same reservation.
func (r *ReservationRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id = ? FOR UPDATE`
	res, err := scanReservation(tx.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrReservationNotFound
	}
	return res, err
}

// FindActiveTx returns the member's non-cancelled reservation for the
// given session occurrence, or nil when none exists.  It is used to
// reject duplicate bookings and to resolve check-ins, and must run
// under the session row lock so the duplicate check is atomic with the
// subsequent insert.
func (r *ReservationRepo) FindActiveTx(ctx context.Context, tx *sql.Tx, memberID, sessionID uint64, occurrenceDate string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
	           WHERE member_id = ? AND session_id = ? AND occurrence_date = ? AND status != ?
	           LIMIT 1`
	res, err := scanReservation(tx.QueryRowContext(ctx, q, memberID, sessionID, occurrenceDate, model.StatusCancelled))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return res, err
}

// CreateTx inserts a new reservation within the scope of an existing
// transaction and populates the generated ID plus DB-default fields on
// the provided struct.  When Waitlisted is true the caller must have
// already computed WaitlistPosition via MaxWaitlistPositionTx inside
// the same transaction; that is what keeps positions collision-free.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (member_id, session_id, occurrence_date, status, waitlisted, waitlist_position)
	           VALUES (?, ?, ?, ?, ?, ?)`
	var pos interface{}
	if res.WaitlistPosition != nil {
		pos = *res.WaitlistPosition
	}
	result, err := tx.ExecContext(ctx, q,
		res.MemberID, res.SessionID, res.OccurrenceDate, res.Status, res.Waitlisted, pos,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	// Query back the full row to populate timestamps and defaults.
	const sel = `SELECT ` + reservationCols + ` FROM reservations WHERE id = ?`
	fresh, err := scanReservation(tx.QueryRowContext(ctx, sel, res.ID))
	if err != nil {
		return err
	}
	*res = *fresh
	return nil
}

// MaxWaitlistPositionTx returns the highest waitlist position ever
// assigned for a session occurrence, or -1 when no waitlisted row
// exists.  Cancelled rows are included on purpose: positions are never
// reused, only ever incremented, so relative ordering stays stable.
func (r *ReservationRepo) MaxWaitlistPositionTx(ctx context.Context, tx *sql.Tx, sessionID uint64, occurrenceDate string) (int64, error) {
	const q = `SELECT COALESCE(MAX(waitlist_position), -1) FROM reservations
	           WHERE session_id = ? AND occurrence_date = ? AND waitlist_position IS NOT NULL`
	var max int64
	if err := tx.QueryRowContext(ctx, q, sessionID, occurrenceDate).Scan(&max); err != nil {
		return 0, err
	}
	return max, nil
}

// NextWaitlistedTx returns the confirmed, waitlisted reservation with
// the smallest waitlist position for the occurrence, or nil when the
// waitlist is empty.  Gaps left by cancelled waitlisted rows are
// skipped naturally because only CONFIRMED rows qualify.
func (r *ReservationRepo) NextWaitlistedTx(ctx context.Context, tx *sql.Tx, sessionID uint64, occurrenceDate string) (*model.Reservation, error) {
	const q = `SELECT ` + reservationCols + ` FROM reservations
	           WHERE session_id = ? AND occurrence_date = ? AND status = ? AND waitlisted = 1
	           ORDER BY waitlist_position ASC
	           LIMIT 1 FOR UPDATE`
	res, err := scanReservation(tx.QueryRowContext(ctx, q, sessionID, occurrenceDate, model.StatusConfirmed))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return res, err
}

// PromoteTx moves a waitlisted reservation into a confirmed seat:
// waitlisted is cleared and the position is nulled while the status
// stays CONFIRMED.  The caller is responsible for incrementing the
// occurrence's occupied counter in the same transaction.
func (r *ReservationRepo) PromoteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	const q = `UPDATE reservations SET waitlisted = 0, waitlist_position = NULL
	           WHERE id = ? AND waitlisted = 1 AND status = ?`
	res, err := tx.ExecContext(ctx, q, id, model.StatusConfirmed)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// SetStatusTx updates the reservation status within the caller's transaction.
func (r *ReservationRepo) SetStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	res, err := tx.ExecContext(ctx, `UPDATE reservations SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// BookingDetail is a reservation joined with its session metadata for
// display to members.  StartsAt/EndsAt are the concrete occurrence
// timestamps, not the session's reference schedule.
type BookingDetail struct {
	ID               uint64  `json:"id"`
	SessionID        uint64  `json:"session_id"`
	SessionName      string  `json:"session_name"`
	OccurrenceDate   string  `json:"occurrence_date"`
	StartsAt         string  `json:"starts_at"`
	EndsAt           string  `json:"ends_at"`
	Status           string  `json:"status"`
	Waitlisted       bool    `json:"waitlisted"`
	WaitlistPosition *uint32 `json:"waitlist_position,omitempty"`
}

// ListByMember returns all reservations of a member together with
// session details, newest first.  When no reservations exist an empty
// slice is returned.
func (r *ReservationRepo) ListByMember(ctx context.Context, memberID uint64) ([]BookingDetail, error) {
	const q = `SELECT res.id, res.session_id, s.name, res.occurrence_date,
	                  TIMESTAMP(res.occurrence_date, TIME(s.starts_at)),
	                  TIMESTAMP(res.occurrence_date, TIME(s.ends_at)),
	                  res.status, res.waitlisted, res.waitlist_position
	           FROM reservations res
	           JOIN sessions s ON s.id = res.session_id
	           WHERE res.member_id = ?
	           ORDER BY res.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]BookingDetail, 0)
	for rows.Next() {
		var d BookingDetail
		var pos sql.NullInt64
		var startStr, endStr sql.NullString
		if err := rows.Scan(&d.ID, &d.SessionID, &d.SessionName, &d.OccurrenceDate,
			&startStr, &endStr, &d.Status, &d.Waitlisted, &pos); err != nil {
			return nil, err
		}
		if len(d.OccurrenceDate) > len(model.OccurrenceDateLayout) {
			d.OccurrenceDate = d.OccurrenceDate[:len(model.OccurrenceDateLayout)]
		}
		if pos.Valid {
			p := uint32(pos.Int64)
			d.WaitlistPosition = &p
		}
		// Convert DB timestamps to RFC3339 in UTC for clients.
		if startStr.Valid {
			if t, err2 := time.ParseInLocation(dbTimeLayout, startStr.String, time.UTC); err2 == nil {
				d.StartsAt = t.Format(time.RFC3339)
			}
		}
		if endStr.Valid {
			if t, err2 := time.ParseInLocation(dbTimeLayout, endStr.String, time.UTC); err2 == nil {
				d.EndsAt = t.Format(time.RFC3339)
			}
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// ReminderCandidate is one confirmed seated reservation whose
// occurrence start falls in a sweeper reminder window.
type ReminderCandidate struct {
	ReservationID  uint64
	MemberID       uint64
	SessionID      uint64
	SessionName    string
	OccurrenceDate string
	StartsAt       time.Time
}

// Reminder kinds accepted by ListDueReminders and MarkReminderSent.
const (
	Reminder24h = "24h"
	Reminder2h  = "2h"
)

func reminderColumn(kind string) (string, error) {
	switch kind {
	case Reminder24h:
		return "reminder_24h_sent", nil
	case Reminder2h:
		return "reminder_2h_sent", nil
	}
	return "", fmt.Errorf("unknown reminder kind %q", kind)
}

// ListDueReminders selects confirmed, non-waitlisted reservations whose
// occurrence start falls in [from, to) and whose reminder flag for the
// given kind is still unset.  The flag is what makes sweeper runs
// idempotent: a crashed run simply re-scans and skips flagged rows.
func (r *ReservationRepo) ListDueReminders(ctx context.Context, kind string, from, to time.Time) ([]ReminderCandidate, error) {
	col, err := reminderColumn(kind)
	if err != nil {
		return nil, err
	}
	q := `SELECT res.id, res.member_id, res.session_id, s.name, res.occurrence_date,
	             TIMESTAMP(res.occurrence_date, TIME(s.starts_at)) AS occ_start
	      FROM reservations res
	      JOIN sessions s ON s.id = res.session_id
	      WHERE res.status = ? AND res.waitlisted = 0 AND res.` + col + ` = 0
	        AND TIMESTAMP(res.occurrence_date, TIME(s.starts_at)) >= ?
	        AND TIMESTAMP(res.occurrence_date, TIME(s.starts_at)) < ?
	      ORDER BY occ_start, res.id`
	rows, err := r.db.QueryContext(ctx, q, model.StatusConfirmed,
		from.UTC().Format(dbTimeLayout), to.UTC().Format(dbTimeLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ReminderCandidate, 0)
	for rows.Next() {
		var c ReminderCandidate
		var startStr string
		if err := rows.Scan(&c.ReservationID, &c.MemberID, &c.SessionID, &c.SessionName, &c.OccurrenceDate, &startStr); err != nil {
			return nil, err
		}
		if len(c.OccurrenceDate) > len(model.OccurrenceDateLayout) {
			c.OccurrenceDate = c.OccurrenceDate[:len(model.OccurrenceDateLayout)]
		}
		if c.StartsAt, err = time.ParseInLocation(dbTimeLayout, startStr, time.UTC); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkReminderSent sets the reminder flag of the given kind.  The flag
// write is deliberately a separate statement per reservation so one
// failed notification does not block flagging the rest of the batch.
func (r *ReservationRepo) MarkReminderSent(ctx context.Context, id uint64, kind string) error {
	col, err := reminderColumn(kind)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `UPDATE reservations SET `+col+` = 1 WHERE id = ?`, id)
	return err
}

// SweepNoShows transitions every confirmed, non-waitlisted reservation
// whose occurrence has already ended to NO_SHOW and returns how many
// rows changed.  The transition is one-way and never touches the
// occurrence's occupied counter: the seat was consumed by an occurrence
// that already happened.
func (r *ReservationRepo) SweepNoShows(ctx context.Context, before time.Time) (int64, error) {
	const q = `UPDATE reservations res
	           JOIN sessions s ON s.id = res.session_id
	           SET res.status = ?
	           WHERE res.status = ? AND res.waitlisted = 0
	             AND TIMESTAMP(res.occurrence_date, TIME(s.ends_at)) < ?`
	result, err := r.db.ExecContext(ctx, q, model.StatusNoShow, model.StatusConfirmed,
		before.UTC().Format(dbTimeLayout))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
