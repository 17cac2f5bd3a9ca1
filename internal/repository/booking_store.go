package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/gym-class-booking/internal/model"
)

// BookingStore is the datastore boundary of the booking service.  The
// service depends on this interface rather than on *sql.DB so its state
// machine can be exercised against an in-memory store in tests.
type BookingStore interface {
	// GetSession returns a session or ErrSessionNotFound.
	GetSession(ctx context.Context, id uint64) (*model.Session, error)
	// GetReservation returns a reservation or ErrReservationNotFound.
	GetReservation(ctx context.Context, id uint64) (*model.Reservation, error)
	// Atomic runs fn inside one transaction.  Everything fn does either
	// commits together or rolls back together; combined with the
	// occurrence row lock taken by BookingTx.LockOccurrence this is the
	// serialization unit the capacity invariant depends on.
	Atomic(ctx context.Context, fn func(BookingTx) error) error
}

// BookingTx is the set of ledger and counter operations available
// inside one atomic booking unit.
type BookingTx interface {
	// LockOccurrence loads the seat counter for one (session, date)
	// with an exclusive row lock held until the transaction ends,
	// materializing a zero row on the first booking of the date.  Every
	// capacity decision must read occupancy through this method.
	LockOccurrence(ctx context.Context, sessionID uint64, date string) (*model.Occurrence, error)
	IncrementOccupied(ctx context.Context, sessionID uint64, date string) error
	DecrementOccupied(ctx context.Context, sessionID uint64, date string) error

	GetReservation(ctx context.Context, id uint64) (*model.Reservation, error)
	FindActive(ctx context.Context, memberID, sessionID uint64, occurrenceDate string) (*model.Reservation, error)
	InsertReservation(ctx context.Context, res *model.Reservation) error
	MaxWaitlistPosition(ctx context.Context, sessionID uint64, occurrenceDate string) (int64, error)
	NextWaitlisted(ctx context.Context, sessionID uint64, occurrenceDate string) (*model.Reservation, error)
	Promote(ctx context.Context, reservationID uint64) error
	SetStatus(ctx context.Context, reservationID uint64, status string) error
}

// bookingStore implements BookingStore over MySQL by delegating to the
// session, occurrence and reservation repositories within a shared
// transaction.
type bookingStore struct {
	db           *sql.DB
	sessions     *SessionRepo
	occurrences  *OccurrenceRepo
	reservations *ReservationRepo
}

// NewBookingStore wires the repositories behind the BookingStore
// interface consumed by the booking service.
func NewBookingStore(db *sql.DB, sessions *SessionRepo, occurrences *OccurrenceRepo, reservations *ReservationRepo) BookingStore {
	return &bookingStore{db: db, sessions: sessions, occurrences: occurrences, reservations: reservations}
}

func (s *bookingStore) GetSession(ctx context.Context, id uint64) (*model.Session, error) {
	return s.sessions.GetByID(ctx, id)
}

func (s *bookingStore) GetReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	return s.reservations.GetByID(ctx, id)
}

func (s *bookingStore) Atomic(ctx context.Context, fn func(BookingTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&bookingTx{tx: tx, occurrences: s.occurrences, reservations: s.reservations}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// bookingTx adapts the repositories' *sql.Tx methods to the BookingTx interface.
type bookingTx struct {
	tx           *sql.Tx
	occurrences  *OccurrenceRepo
	reservations *ReservationRepo
}

func (t *bookingTx) LockOccurrence(ctx context.Context, sessionID uint64, date string) (*model.Occurrence, error) {
	return t.occurrences.LockTx(ctx, t.tx, sessionID, date)
}

func (t *bookingTx) IncrementOccupied(ctx context.Context, sessionID uint64, date string) error {
	return t.occurrences.IncrementTx(ctx, t.tx, sessionID, date)
}

func (t *bookingTx) DecrementOccupied(ctx context.Context, sessionID uint64, date string) error {
	return t.occurrences.DecrementTx(ctx, t.tx, sessionID, date)
}

func (t *bookingTx) GetReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	return t.reservations.GetByIDTx(ctx, t.tx, id)
}

func (t *bookingTx) FindActive(ctx context.Context, memberID, sessionID uint64, occurrenceDate string) (*model.Reservation, error) {
	return t.reservations.FindActiveTx(ctx, t.tx, memberID, sessionID, occurrenceDate)
}

func (t *bookingTx) InsertReservation(ctx context.Context, res *model.Reservation) error {
	return t.reservations.CreateTx(ctx, t.tx, res)
}

func (t *bookingTx) MaxWaitlistPosition(ctx context.Context, sessionID uint64, occurrenceDate string) (int64, error) {
	return t.reservations.MaxWaitlistPositionTx(ctx, t.tx, sessionID, occurrenceDate)
}

func (t *bookingTx) NextWaitlisted(ctx context.Context, sessionID uint64, occurrenceDate string) (*model.Reservation, error) {
	return t.reservations.NextWaitlistedTx(ctx, t.tx, sessionID, occurrenceDate)
}

func (t *bookingTx) Promote(ctx context.Context, reservationID uint64) error {
	return t.reservations.PromoteTx(ctx, t.tx, reservationID)
}

func (t *bookingTx) SetStatus(ctx context.Context, reservationID uint64, status string) error {
	return t.reservations.SetStatusTx(ctx, t.tx, reservationID, status)
}
