package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iliyamo/gym-class-booking/internal/model"
	"github.com/iliyamo/gym-class-booking/internal/queue"
	"github.com/iliyamo/gym-class-booking/internal/repository"
)

// memStore is an in-memory BookingStore for exercising the coordinator
// without a database. A single mutex held for the whole of Atomic
// models the per-occurrence row lock: coarser than MySQL's, but it
// gives the same guarantee the service relies on, namely that capacity
// check, counter mutation and ledger write are one serialized unit. On
// error the staged snapshot is restored, mirroring a rollback.
type memStore struct {
	mu           sync.Mutex
	sessions     map[uint64]*model.Session
	occurrences  map[string]*model.Occurrence
	reservations map[uint64]*model.Reservation
	nextID       uint64
}

func newMemStore() *memStore {
	return &memStore{
		sessions:     make(map[uint64]*model.Session),
		occurrences:  make(map[string]*model.Occurrence),
		reservations: make(map[uint64]*model.Reservation),
	}
}

func occKey(sessionID uint64, date string) string {
	return fmt.Sprintf("%d|%s", sessionID, date)
}

func (m *memStore) addSession(s model.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := s
	m.sessions[s.ID] = &cp
}

func copyReservation(r *model.Reservation) *model.Reservation {
	cp := *r
	if r.WaitlistPosition != nil {
		p := *r.WaitlistPosition
		cp.WaitlistPosition = &p
	}
	return &cp
}

func (m *memStore) snapshot() (map[uint64]*model.Session, map[string]*model.Occurrence, map[uint64]*model.Reservation) {
	ss := make(map[uint64]*model.Session, len(m.sessions))
	for id, s := range m.sessions {
		cp := *s
		ss[id] = &cp
	}
	oo := make(map[string]*model.Occurrence, len(m.occurrences))
	for k, o := range m.occurrences {
		cp := *o
		oo[k] = &cp
	}
	rr := make(map[uint64]*model.Reservation, len(m.reservations))
	for id, r := range m.reservations {
		rr[id] = copyReservation(r)
	}
	return ss, oo, rr
}

func (m *memStore) GetSession(_ context.Context, id uint64) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) GetReservation(_ context.Context, id uint64) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	return copyReservation(r), nil
}

func (m *memStore) Atomic(_ context.Context, fn func(repository.BookingTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ss, oo, rr := m.snapshot()
	if err := fn(&memTx{store: m}); err != nil {
		m.sessions, m.occurrences, m.reservations = ss, oo, rr
		return err
	}
	return nil
}

// countSeated returns (occupied, seated-row count) for an occurrence so
// tests can assert the counter never drifts from the ledger. Dates
// that were never booked count as empty.
func (m *memStore) countSeated(sessionID uint64, date string) (uint32, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.reservations {
		if r.SessionID == sessionID && r.OccurrenceDate == date &&
			r.Status != model.StatusCancelled && !r.Waitlisted {
			n++
		}
	}
	occupied := uint32(0)
	if o, ok := m.occurrences[occKey(sessionID, date)]; ok {
		occupied = o.Occupied
	}
	return occupied, n
}

type memTx struct {
	store *memStore
}

func (t *memTx) LockOccurrence(_ context.Context, sessionID uint64, date string) (*model.Occurrence, error) {
	if _, ok := t.store.sessions[sessionID]; !ok {
		return nil, repository.ErrSessionNotFound
	}
	k := occKey(sessionID, date)
	o, ok := t.store.occurrences[k]
	if !ok {
		o = &model.Occurrence{SessionID: sessionID, Date: date}
		t.store.occurrences[k] = o
	}
	cp := *o
	return &cp, nil
}

func (t *memTx) IncrementOccupied(_ context.Context, sessionID uint64, date string) error {
	s := t.store.sessions[sessionID]
	o := t.store.occurrences[occKey(sessionID, date)]
	if o == nil || o.Occupied >= s.Capacity {
		return repository.ErrCapacityExceeded
	}
	o.Occupied++
	return nil
}

func (t *memTx) DecrementOccupied(_ context.Context, sessionID uint64, date string) error {
	o := t.store.occurrences[occKey(sessionID, date)]
	if o == nil || o.Occupied == 0 {
		return repository.ErrInvalidState
	}
	o.Occupied--
	return nil
}

func (t *memTx) GetReservation(_ context.Context, id uint64) (*model.Reservation, error) {
	r, ok := t.store.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	return copyReservation(r), nil
}

func (t *memTx) FindActive(_ context.Context, memberID, sessionID uint64, date string) (*model.Reservation, error) {
	for _, r := range t.store.reservations {
		if r.MemberID == memberID && r.SessionID == sessionID &&
			r.OccurrenceDate == date && r.Status != model.StatusCancelled {
			return copyReservation(r), nil
		}
	}
	return nil, nil
}

func (t *memTx) InsertReservation(_ context.Context, res *model.Reservation) error {
	t.store.nextID++
	res.ID = t.store.nextID
	res.CreatedAt = time.Now().UTC()
	res.UpdatedAt = res.CreatedAt
	t.store.reservations[res.ID] = copyReservation(res)
	return nil
}

func (t *memTx) MaxWaitlistPosition(_ context.Context, sessionID uint64, date string) (int64, error) {
	max := int64(-1)
	for _, r := range t.store.reservations {
		if r.SessionID == sessionID && r.OccurrenceDate == date && r.WaitlistPosition != nil {
			if p := int64(*r.WaitlistPosition); p > max {
				max = p
			}
		}
	}
	return max, nil
}

func (t *memTx) NextWaitlisted(_ context.Context, sessionID uint64, date string) (*model.Reservation, error) {
	var best *model.Reservation
	for _, r := range t.store.reservations {
		if r.SessionID == sessionID && r.OccurrenceDate == date &&
			r.Status == model.StatusConfirmed && r.Waitlisted {
			if best == nil || *r.WaitlistPosition < *best.WaitlistPosition {
				best = r
			}
		}
	}
	if best == nil {
		return nil, nil
	}
	return copyReservation(best), nil
}

func (t *memTx) Promote(_ context.Context, reservationID uint64) error {
	r, ok := t.store.reservations[reservationID]
	if !ok || !r.Waitlisted || r.Status != model.StatusConfirmed {
		return repository.ErrReservationNotFound
	}
	r.Waitlisted = false
	r.WaitlistPosition = nil
	return nil
}

func (t *memTx) SetStatus(_ context.Context, reservationID uint64, status string) error {
	r, ok := t.store.reservations[reservationID]
	if !ok {
		return repository.ErrReservationNotFound
	}
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// recordingNotifier captures events the service emits; failErr, when
// set, makes every Notify call fail.
type recordingNotifier struct {
	mu      sync.Mutex
	events  []queue.NotificationEvent
	failErr error
}

func (n *recordingNotifier) Notify(_ context.Context, ev queue.NotificationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failErr != nil {
		return n.failErr
	}
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) sent() []queue.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]queue.NotificationEvent, len(n.events))
	copy(out, n.events)
	return out
}
