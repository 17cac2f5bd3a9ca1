// Package service implements the booking coordinator: the one place
// that decides seated vs waitlisted, mutates the per-occurrence
// occupancy counter in lockstep with reservation writes, and promotes
// the head of the waitlist when a seat frees up.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/iliyamo/gym-class-booking/internal/model"
	"github.com/iliyamo/gym-class-booking/internal/monitoring"
	"github.com/iliyamo/gym-class-booking/internal/queue"
	"github.com/iliyamo/gym-class-booking/internal/repository"
)

// CancelCutoff is how long before the occurrence start a confirmed
// booking can still be cancelled. It is a business policy constant,
// not a per-call parameter.
const CancelCutoff = 2 * time.Hour

// Policy violations reported to the caller and never retried. Handlers
// map these to 4xx responses via errors.Is.
var (
	ErrSessionInactive  = errors.New("session is not active")
	ErrSessionInPast    = errors.New("session occurrence already started")
	ErrWrongWeekday     = errors.New("session does not run on this date")
	ErrDuplicateBooking = errors.New("active booking already exists for this occurrence")
	ErrNotOwner         = errors.New("reservation belongs to another member")
	ErrAlreadyCancelled = errors.New("reservation already cancelled")
	ErrNotCancellable   = errors.New("reservation is in a terminal state")
	ErrTooLateToCancel  = errors.New("cancellation window has closed")
	ErrStillWaitlisted  = errors.New("reservation is still waitlisted")
	ErrAlreadyAttended  = errors.New("reservation already checked in")
)

// Notifier dispatches member notifications. Dispatch is best-effort:
// the booking service logs failures and never lets them affect the
// committed reservation state.
type Notifier interface {
	Notify(ctx context.Context, event queue.NotificationEvent) error
}

// BookingService coordinates bookings, cancellations with waitlist
// promotion, and check-ins over a BookingStore. The now func is
// injectable so cutoff behaviour is testable.
type BookingService struct {
	store    repository.BookingStore
	notifier Notifier
	now      func() time.Time
}

// NewBookingService constructs a BookingService. notifier may be nil,
// in which case promotion notifications are skipped.
func NewBookingService(store repository.BookingStore, notifier Notifier) *BookingService {
	if store == nil {
		panic("nil store passed to NewBookingService")
	}
	return &BookingService{store: store, notifier: notifier, now: func() time.Time { return time.Now().UTC() }}
}

// Book reserves a seat in the session occurrence for the member, or
// joins the waitlist when the occurrence is full. The capacity
// re-check, the counter increment and the reservation insert run as
// one atomic unit under the occurrence row lock, so two concurrent
// requests can never both take the last seat. Different dates of the
// same session hold separate counters and never contend. Losing the
// capacity race is an expected outcome, not an error: the loser is
// waitlisted.
func (s *BookingService) Book(ctx context.Context, memberID, sessionID uint64, occurrenceDate string) (*model.Reservation, error) {
	started := s.now()
	defer func() { monitoring.ObserveBookingDuration(s.now().Sub(started).Seconds()) }()

	date, err := model.ParseOccurrenceDate(occurrenceDate)
	if err != nil {
		return nil, err
	}

	// Cheap validations first, outside the transaction. Everything that
	// matters for correctness is re-checked under the lock below.
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Active {
		monitoring.RecordBooking(monitoring.OutcomeRejected)
		return nil, ErrSessionInactive
	}
	if !sess.OccursOn(date) {
		monitoring.RecordBooking(monitoring.OutcomeRejected)
		return nil, ErrWrongWeekday
	}
	if !sess.OccurrenceStart(date).After(s.now()) {
		monitoring.RecordBooking(monitoring.OutcomeRejected)
		return nil, ErrSessionInPast
	}

	var res *model.Reservation
	err = s.store.Atomic(ctx, func(tx repository.BookingTx) error {
		occ, err := tx.LockOccurrence(ctx, sessionID, occurrenceDate)
		if err != nil {
			return err
		}
		if dup, err := tx.FindActive(ctx, memberID, sessionID, occurrenceDate); err != nil {
			return err
		} else if dup != nil {
			return ErrDuplicateBooking
		}

		res = &model.Reservation{
			MemberID:       memberID,
			SessionID:      sessionID,
			OccurrenceDate: occurrenceDate,
			Status:         model.StatusConfirmed,
		}
		seated := occ.Occupied < sess.Capacity
		if seated {
			switch err := tx.IncrementOccupied(ctx, sessionID, occurrenceDate); {
			case errors.Is(err, repository.ErrCapacityExceeded):
				// Capacity shrank between the pre-read and the guarded
				// increment; fall through to the waitlist.
				seated = false
			case err != nil:
				return err
			}
		}
		if seated {
			return tx.InsertReservation(ctx, res)
		}
		// Full: append to the waitlist. Positions only ever grow, so
		// MAX+1 under the occurrence lock cannot collide.
		max, err := tx.MaxWaitlistPosition(ctx, sessionID, occurrenceDate)
		if err != nil {
			return err
		}
		pos := uint32(max + 1)
		res.Waitlisted = true
		res.WaitlistPosition = &pos
		return tx.InsertReservation(ctx, res)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateBooking) {
			monitoring.RecordBooking(monitoring.OutcomeRejected)
		}
		return nil, err
	}

	if res.Waitlisted {
		monitoring.RecordBooking(monitoring.OutcomeWaitlisted)
	} else {
		monitoring.RecordBooking(monitoring.OutcomeSeated)
	}
	return res, nil
}

// Cancel cancels a member's reservation. When the reservation held a
// confirmed seat, the occurrence's occupied counter is decremented
// and, if a member waits on that date, the head of the waitlist is
// promoted and the counter incremented again, keeping it a truthful
// live count at every step. Both halves run in one atomic unit under
// the occurrence row lock so a promotion can never race a fresh
// booking for the same freed seat.
func (s *BookingService) Cancel(ctx context.Context, reservationID, memberID uint64) (*model.Reservation, error) {
	res, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.MemberID != memberID {
		return nil, ErrNotOwner
	}
	if res.Status == model.StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if res.Terminal() {
		return nil, ErrNotCancellable
	}

	sess, err := s.store.GetSession(ctx, res.SessionID)
	if err != nil {
		return nil, err
	}
	date, err := model.ParseOccurrenceDate(res.OccurrenceDate)
	if err != nil {
		return nil, err
	}
	if s.now().After(sess.OccurrenceStart(date).Add(-CancelCutoff)) {
		return nil, ErrTooLateToCancel
	}

	var promoted *model.Reservation
	err = s.store.Atomic(ctx, func(tx repository.BookingTx) error {
		// Lock order: occurrence row first, then the reservation row.
		if _, err := tx.LockOccurrence(ctx, res.SessionID, res.OccurrenceDate); err != nil {
			return err
		}
		cur, err := tx.GetReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if cur.Status == model.StatusCancelled {
			return ErrAlreadyCancelled
		}
		if cur.Terminal() {
			return ErrNotCancellable
		}

		promoted = nil
		if cur.Seated() {
			if err := tx.DecrementOccupied(ctx, res.SessionID, res.OccurrenceDate); err != nil {
				return err
			}
			next, err := tx.NextWaitlisted(ctx, res.SessionID, res.OccurrenceDate)
			if err != nil {
				return err
			}
			if next != nil {
				if err := tx.Promote(ctx, next.ID); err != nil {
					return err
				}
				if err := tx.IncrementOccupied(ctx, res.SessionID, res.OccurrenceDate); err != nil {
					return err
				}
				promoted = next
			}
		}
		// Waitlisted cancellations change no counters; the position gap
		// left behind is tolerated and never renumbered.
		return tx.SetStatus(ctx, reservationID, model.StatusCancelled)
	})
	if err != nil {
		return nil, err
	}

	monitoring.RecordCancellation(promoted != nil)
	if promoted != nil {
		s.notifyPromotion(ctx, sess, promoted, date)
	}
	res.Status = model.StatusCancelled
	return res, nil
}

// notifyPromotion emits a WAITLIST_PROMOTED notification after the
// promotion has committed. Failures are logged, never propagated: the
// counter and status change are already the source of truth.
func (s *BookingService) notifyPromotion(ctx context.Context, sess *model.Session, promoted *model.Reservation, date time.Time) {
	if s.notifier == nil {
		return
	}
	ev := queue.NotificationEvent{
		MemberID:       promoted.MemberID,
		Kind:           queue.KindWaitlistPromoted,
		ReservationID:  promoted.ID,
		SessionID:      sess.ID,
		SessionName:    sess.Name,
		OccurrenceDate: promoted.OccurrenceDate,
		StartsAt:       sess.OccurrenceStart(date).Format(time.RFC3339),
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		log.Printf("booking: promotion notification failed for member %d: %v", promoted.MemberID, err)
	}
}

// Get returns a reservation if it belongs to the member.
func (s *BookingService) Get(ctx context.Context, reservationID, memberID uint64) (*model.Reservation, error) {
	res, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.MemberID != memberID {
		return nil, ErrNotOwner
	}
	return res, nil
}

// CheckIn marks the member's confirmed seat for today's occurrence of
// the session as ATTENDED. Waitlisted members cannot check in; a seat
// never materialized for them.
func (s *BookingService) CheckIn(ctx context.Context, memberID, sessionID uint64) (*model.Reservation, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	today := s.now().Format(model.OccurrenceDateLayout)

	var res *model.Reservation
	err := s.store.Atomic(ctx, func(tx repository.BookingTx) error {
		found, err := tx.FindActive(ctx, memberID, sessionID, today)
		if err != nil {
			return err
		}
		if found == nil {
			return repository.ErrReservationNotFound
		}
		if found.Status == model.StatusAttended {
			return ErrAlreadyAttended
		}
		if found.Waitlisted {
			return ErrStillWaitlisted
		}
		if found.Status != model.StatusConfirmed {
			return repository.ErrReservationNotFound
		}
		if err := tx.SetStatus(ctx, found.ID, model.StatusAttended); err != nil {
			return err
		}
		found.Status = model.StatusAttended
		res = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	monitoring.RecordCheckIn()
	return res, nil
}
