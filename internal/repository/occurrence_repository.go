package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/gym-class-booking/internal/model"
)

// OccurrenceRepo manages the per-date seat counters.  One row exists
// per (session, occurrence date) that has ever been booked; the row is
// materialized lazily by LockTx on the first booking of the date.  The
// occupied counter must only ever change through IncrementTx and
// DecrementTx, inside the same transaction as the reservation write
// they account for, while the lock from LockTx is held.
type OccurrenceRepo struct {
	db *sql.DB
}

// NewOccurrenceRepo constructs an OccurrenceRepo with the given DB handle.
func NewOccurrenceRepo(db *sql.DB) *OccurrenceRepo {
	return &OccurrenceRepo{db: db}
}

func scanOccurrence(row *sql.Row) (*model.Occurrence, error) {
	var o model.Occurrence
	if err := row.Scan(&o.SessionID, &o.Date, &o.Occupied); err != nil {
		return nil, err
	}
	// MySQL DATE columns can scan with a midnight time suffix depending
	// on the driver's parseTime handling; normalize to YYYY-MM-DD.
	if len(o.Date) > len(model.OccurrenceDateLayout) {
		o.Date = o.Date[:len(model.OccurrenceDateLayout)]
	}
	return &o, nil
}

// LockTx loads the counter row for one occurrence with an exclusive
// row lock held until the transaction ends, inserting a zero row first
// if the date has never been booked.  Holding the lock serializes
// every booking and cancellation touching this occurrence, which is
// what keeps the capacity re-check and the counter mutation one
// indivisible unit.  Other dates of the same session lock different
// rows and proceed in parallel.
func (r *OccurrenceRepo) LockTx(ctx context.Context, tx *sql.Tx, sessionID uint64, date string) (*model.Occurrence, error) {
	const ins = `INSERT INTO occurrences (session_id, occurrence_date, occupied)
	             VALUES (?, ?, 0)
	             ON DUPLICATE KEY UPDATE session_id = session_id`
	if _, err := tx.ExecContext(ctx, ins, sessionID, date); err != nil {
		return nil, err
	}
	const q = `SELECT session_id, occurrence_date, occupied FROM occurrences
	           WHERE session_id = ? AND occurrence_date = ? FOR UPDATE`
	return scanOccurrence(tx.QueryRowContext(ctx, q, sessionID, date))
}

// IncrementTx adds one confirmed seat to the occurrence's occupied
// counter within the caller's transaction.  The `occupied < capacity`
// guard joins the live session capacity, making the increment atomic
// with the capacity check at the SQL level: when the guard fails no
// row is affected and ErrCapacityExceeded is returned.
func (r *OccurrenceRepo) IncrementTx(ctx context.Context, tx *sql.Tx, sessionID uint64, date string) error {
	const q = `UPDATE occurrences o
	           JOIN sessions s ON s.id = o.session_id
	           SET o.occupied = o.occupied + 1
	           WHERE o.session_id = ? AND o.occurrence_date = ? AND o.occupied < s.capacity`
	res, err := tx.ExecContext(ctx, q, sessionID, date)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCapacityExceeded
	}
	return nil
}

// DecrementTx releases one confirmed seat within the caller's
// transaction.  The `occupied > 0` guard keeps the counter from going
// negative; a failed guard returns ErrInvalidState.
func (r *OccurrenceRepo) DecrementTx(ctx context.Context, tx *sql.Tx, sessionID uint64, date string) error {
	const q = `UPDATE occurrences SET occupied = occupied - 1
	           WHERE session_id = ? AND occurrence_date = ? AND occupied > 0`
	res, err := tx.ExecContext(ctx, q, sessionID, date)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInvalidState
	}
	return nil
}

// OccupiedOn returns the occupied count for one occurrence outside any
// transaction.  Dates that were never booked have no row and report
// zero.
func (r *OccurrenceRepo) OccupiedOn(ctx context.Context, sessionID uint64, date string) (uint32, error) {
	const q = `SELECT COALESCE(MAX(occupied), 0) FROM occurrences
	           WHERE session_id = ? AND occurrence_date = ?`
	var n uint32
	if err := r.db.QueryRowContext(ctx, q, sessionID, date).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
