package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/gym-class-booking/internal/model"
	"github.com/iliyamo/gym-class-booking/internal/queue"
	"github.com/iliyamo/gym-class-booking/internal/repository"
)

// The reference timetable used throughout: a Monday evening class, with
// "now" fixed to the morning of the occurrence so bookings are always
// well ahead of the cancellation cutoff unless a test moves the clock.
const occurrence = "2025-03-10" // a Monday

var testNow = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func testSession(id uint64, capacity uint32) model.Session {
	return model.Session{
		ID:       id,
		Name:     "Spin 45",
		Capacity: capacity,
		Active:   true,
		Weekday:  uint8(time.Monday),
		StartsAt: time.Date(2025, 1, 6, 18, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2025, 1, 6, 18, 45, 0, 0, time.UTC),
	}
}

func newTestService(store *memStore, n Notifier) *BookingService {
	svc := NewBookingService(store, n)
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestBookSeatsUntilFullThenWaitlists(t *testing.T) {
	store := newMemStore()
	store.addSession(testSession(1, 2))
	svc := newTestService(store, nil)
	ctx := context.Background()

	a, err := svc.Book(ctx, 101, 1, occurrence)
	require.NoError(t, err)
	assert.True(t, a.Seated())

	b, err := svc.Book(ctx, 102, 1, occurrence)
	require.NoError(t, err)
	assert.True(t, b.Seated())

	c, err := svc.Book(ctx, 103, 1, occurrence)
	require.NoError(t, err)
	assert.True(t, c.Waitlisted)
	require.NotNil(t, c.WaitlistPosition)
	assert.Equal(t, uint32(0), *c.WaitlistPosition)

	d, err := svc.Book(ctx, 104, 1, occurrence)
	require.NoError(t, err)
	require.NotNil(t, d.WaitlistPosition)
	assert.Equal(t, uint32(1), *d.WaitlistPosition)

	occupied, seated := store.countSeated(1, occurrence)
	assert.Equal(t, uint32(2), occupied)
	assert.Equal(t, 2, seated)
}

func TestOccurrencesSeatIndependently(t *testing.T) {
	// Capacity 1 and two different Mondays: each date carries its own
	// seat count, so a seat taken on one date must not consume capacity
	// on the other.
	const nextOccurrence = "2025-03-17"
	store := newMemStore()
	store.addSession(testSession(1, 1))
	notifier := &recordingNotifier{}
	svc := newTestService(store, notifier)
	ctx := context.Background()

	first, err := svc.Book(ctx, 101, 1, occurrence)
	require.NoError(t, err)
	assert.True(t, first.Seated())

	second, err := svc.Book(ctx, 102, 1, nextOccurrence)
	require.NoError(t, err)
	assert.True(t, second.Seated())
	assert.False(t, second.Waitlisted)

	occupied, seated := store.countSeated(1, occurrence)
	assert.Equal(t, uint32(1), occupied)
	assert.Equal(t, 1, seated)
	occupied, seated = store.countSeated(1, nextOccurrence)
	assert.Equal(t, uint32(1), occupied)
	assert.Equal(t, 1, seated)

	// The waitlist is per date too: a member queued on the later date
	// is promoted only when that date's seat frees up.
	third, err := svc.Book(ctx, 103, 1, nextOccurrence)
	require.NoError(t, err)
	require.True(t, third.Waitlisted)

	_, err = svc.Cancel(ctx, first.ID, 101)
	require.NoError(t, err)
	thirdNow, err := store.GetReservation(ctx, third.ID)
	require.NoError(t, err)
	assert.True(t, thirdNow.Waitlisted)

	_, err = svc.Cancel(ctx, second.ID, 102)
	require.NoError(t, err)
	thirdNow, err = store.GetReservation(ctx, third.ID)
	require.NoError(t, err)
	assert.True(t, thirdNow.Seated())

	events := notifier.sent()
	require.Len(t, events, 1)
	assert.Equal(t, uint64(103), events[0].MemberID)
	assert.Equal(t, nextOccurrence, events[0].OccurrenceDate)
}

func TestConcurrentBookingNeverOverbooks(t *testing.T) {
	const capacity, members = 5, 20
	store := newMemStore()
	store.addSession(testSession(1, capacity))
	svc := newTestService(store, nil)

	var wg sync.WaitGroup
	results := make([]*model.Reservation, members)
	errs := make([]error, members)
	for i := 0; i < members; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Book(context.Background(), uint64(1000+i), 1, occurrence)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "member %d", i)
	}

	seated, waitlisted := 0, 0
	positions := make(map[uint32]bool)
	for _, r := range results {
		if r.Seated() {
			seated++
			continue
		}
		waitlisted++
		require.NotNil(t, r.WaitlistPosition)
		assert.False(t, positions[*r.WaitlistPosition], "duplicate waitlist position %d", *r.WaitlistPosition)
		positions[*r.WaitlistPosition] = true
	}
	assert.Equal(t, capacity, seated)
	assert.Equal(t, members-capacity, waitlisted)
	for p := uint32(0); p < uint32(members-capacity); p++ {
		assert.True(t, positions[p], "missing waitlist position %d", p)
	}

	occupied, seatedRows := store.countSeated(1, occurrence)
	assert.Equal(t, uint32(capacity), occupied)
	assert.Equal(t, capacity, seatedRows)
}

func TestBookRejectsDuplicateUntilCancelled(t *testing.T) {
	store := newMemStore()
	store.addSession(testSession(1, 10))
	svc := newTestService(store, nil)
	ctx := context.Background()

	first, err := svc.Book(ctx, 7, 1, occurrence)
	require.NoError(t, err)

	_, err = svc.Book(ctx, 7, 1, occurrence)
	assert.ErrorIs(t, err, ErrDuplicateBooking)

	_, err = svc.Cancel(ctx, first.ID, 7)
	require.NoError(t, err)

	second, err := svc.Book(ctx, 7, 1, occurrence)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.True(t, second.Seated())
}

func TestBookValidations(t *testing.T) {
	store := newMemStore()
	active := testSession(1, 5)
	store.addSession(active)
	inactive := testSession(2, 5)
	inactive.Active = false
	store.addSession(inactive)
	svc := newTestService(store, nil)
	ctx := context.Background()

	_, err := svc.Book(ctx, 1, 99, occurrence)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)

	_, err = svc.Book(ctx, 1, 2, occurrence)
	assert.ErrorIs(t, err, ErrSessionInactive)

	_, err = svc.Book(ctx, 1, 1, "2025-03-11") // a Tuesday
	assert.ErrorIs(t, err, ErrWrongWeekday)

	_, err = svc.Book(ctx, 1, 1, "2025-03-03") // previous Monday, already past
	assert.ErrorIs(t, err, ErrSessionInPast)

	_, err = svc.Book(ctx, 1, 1, "10-03-2025")
	assert.Error(t, err)
}

func TestCancelPromotesWaitlistInOrder(t *testing.T) {
	// Capacity 2: A and B seated, C and D waitlisted at positions 0 and 1.
	store := newMemStore()
	store.addSession(testSession(1, 2))
	notifier := &recordingNotifier{}
	svc := newTestService(store, notifier)
	ctx := context.Background()

	a, _ := svc.Book(ctx, 201, 1, occurrence)
	b, _ := svc.Book(ctx, 202, 1, occurrence)
	c, _ := svc.Book(ctx, 203, 1, occurrence)
	d, _ := svc.Book(ctx, 204, 1, occurrence)
	require.True(t, c.Waitlisted)
	require.True(t, d.Waitlisted)

	// Cancelling B promotes C; occupied stays 2, D keeps its position.
	_, err := svc.Cancel(ctx, b.ID, 202)
	require.NoError(t, err)

	cNow, err := store.GetReservation(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, cNow.Seated())
	assert.Nil(t, cNow.WaitlistPosition)

	dNow, _ := store.GetReservation(ctx, d.ID)
	assert.True(t, dNow.Waitlisted)
	require.NotNil(t, dNow.WaitlistPosition)
	assert.Equal(t, uint32(1), *dNow.WaitlistPosition)

	occupied, seated := store.countSeated(1, occurrence)
	assert.Equal(t, uint32(2), occupied)
	assert.Equal(t, 2, seated)

	// Cancelling A promotes D.
	_, err = svc.Cancel(ctx, a.ID, 201)
	require.NoError(t, err)
	dNow, _ = store.GetReservation(ctx, d.ID)
	assert.True(t, dNow.Seated())

	occupied, seated = store.countSeated(1, occurrence)
	assert.Equal(t, uint32(2), occupied)
	assert.Equal(t, 2, seated)

	events := notifier.sent()
	require.Len(t, events, 2)
	assert.Equal(t, queue.KindWaitlistPromoted, events[0].Kind)
	assert.Equal(t, uint64(203), events[0].MemberID)
	assert.Equal(t, uint64(204), events[1].MemberID)
}

func TestCancelWithEmptyWaitlistReleasesSeat(t *testing.T) {
	store := newMemStore()
	store.addSession(testSession(1, 3))
	notifier := &recordingNotifier{}
	svc := newTestService(store, notifier)
	ctx := context.Background()

	res, _ := svc.Book(ctx, 301, 1, occurrence)
	occupied, _ := store.countSeated(1, occurrence)
	require.Equal(t, uint32(1), occupied)

	_, err := svc.Cancel(ctx, res.ID, 301)
	require.NoError(t, err)

	occupied, seated := store.countSeated(1, occurrence)
	assert.Equal(t, uint32(0), occupied)
	assert.Equal(t, 0, seated)
	assert.Empty(t, notifier.sent())
}

func TestCancelWaitlistedLeavesCounterAlone(t *testing.T) {
	store := newMemStore()
	store.addSession(testSession(1, 1))
	svc := newTestService(store, nil)
	ctx := context.Background()

	svc.Book(ctx, 401, 1, occurrence)
	wl, _ := svc.Book(ctx, 402, 1, occurrence)
	require.True(t, wl.Waitlisted)

	_, err := svc.Cancel(ctx, wl.ID, 402)
	require.NoError(t, err)

	occupied, seated := store.countSeated(1, occurrence)
	assert.Equal(t, uint32(1), occupied)
	assert.Equal(t, 1, seated)
}

func TestCancelCutoffEnforcement(t *testing.T) {
	store := newMemStore()
	store.addSession(testSession(1, 5))
	svc := newTestService(store, nil)
	ctx := context.Background()

	res, err := svc.Book(ctx, 501, 1, occurrence)
	require.NoError(t, err)

	// One hour before the 18:00 start: inside the cutoff.
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC) }
	_, err = svc.Cancel(ctx, res.ID, 501)
	assert.ErrorIs(t, err, ErrTooLateToCancel)

	// Three hours before: allowed.
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC) }
	cancelled, err := svc.Cancel(ctx, res.ID, 501)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
}

func TestCancelOwnershipAndRepeat(t *testing.T) {
	store := newMemStore()
	store.addSession(testSession(1, 5))
	svc := newTestService(store, nil)
	ctx := context.Background()

	res, _ := svc.Book(ctx, 601, 1, occurrence)

	_, err := svc.Cancel(ctx, res.ID, 999)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = svc.Cancel(ctx, res.ID, 601)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, res.ID, 601)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)

	_, err = svc.Cancel(ctx, 12345, 601)
	assert.ErrorIs(t, err, repository.ErrReservationNotFound)
}

func TestNotifierFailureDoesNotFailCancellation(t *testing.T) {
	store := newMemStore()
	store.addSession(testSession(1, 1))
	notifier := &recordingNotifier{failErr: errors.New("broker down")}
	svc := newTestService(store, notifier)
	ctx := context.Background()

	seatHolder, _ := svc.Book(ctx, 701, 1, occurrence)
	waiting, _ := svc.Book(ctx, 702, 1, occurrence)
	require.True(t, waiting.Waitlisted)

	_, err := svc.Cancel(ctx, seatHolder.ID, 701)
	require.NoError(t, err) // notification failure is swallowed

	promoted, _ := store.GetReservation(ctx, waiting.ID)
	assert.True(t, promoted.Seated())
	occupied, _ := store.countSeated(1, occurrence)
	assert.Equal(t, uint32(1), occupied)
}

func TestCheckInTransitions(t *testing.T) {
	store := newMemStore()
	sess := testSession(1, 1)
	store.addSession(sess)
	svc := newTestService(store, nil)
	ctx := context.Background()

	seatHolder, _ := svc.Book(ctx, 801, 1, occurrence)
	waiting, _ := svc.Book(ctx, 802, 1, occurrence)
	require.True(t, waiting.Waitlisted)

	// testNow falls on the occurrence date, so CheckIn resolves it.
	res, err := svc.CheckIn(ctx, 801, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAttended, res.Status)
	assert.Equal(t, seatHolder.ID, res.ID)

	_, err = svc.CheckIn(ctx, 801, 1)
	assert.ErrorIs(t, err, ErrAlreadyAttended)

	_, err = svc.CheckIn(ctx, 802, 1)
	assert.ErrorIs(t, err, ErrStillWaitlisted)

	_, err = svc.CheckIn(ctx, 888, 1)
	assert.ErrorIs(t, err, repository.ErrReservationNotFound)

	_, err = svc.CheckIn(ctx, 801, 42)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)

	// A check-in never touches the occupancy counter.
	occupied, _ := store.countSeated(1, occurrence)
	assert.Equal(t, uint32(1), occupied)
}

func TestGetEnforcesOwnership(t *testing.T) {
	store := newMemStore()
	store.addSession(testSession(1, 2))
	svc := newTestService(store, &recordingNotifier{})
	ctx := context.Background()

	res, err := svc.Book(ctx, 700, 1, occurrence)
	require.NoError(t, err)

	got, err := svc.Get(ctx, res.ID, 700)
	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)

	_, err = svc.Get(ctx, res.ID, 701)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = svc.Get(ctx, 9999, 700)
	assert.ErrorIs(t, err, repository.ErrReservationNotFound)
}

func TestConcurrentBookAndCancelKeepsCounterTruthful(t *testing.T) {
	// Half the members book while earlier seat holders cancel; whatever
	// interleaving happens, the counter must match the seated rows and
	// never exceed capacity.
	const capacity = 3
	store := newMemStore()
	store.addSession(testSession(1, capacity))
	svc := newTestService(store, &recordingNotifier{})
	ctx := context.Background()

	seeds := make([]*model.Reservation, capacity)
	for i := 0; i < capacity; i++ {
		r, err := svc.Book(ctx, uint64(9000+i), 1, occurrence)
		require.NoError(t, err)
		seeds[i] = r
	}

	var wg sync.WaitGroup
	cancelErrs := make([]error, capacity)
	bookErrs := make([]error, 10)
	for i := 0; i < capacity; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, cancelErrs[i] = svc.Cancel(ctx, seeds[i].ID, uint64(9000+i))
		}(i)
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, bookErrs[i] = svc.Book(ctx, uint64(9100+i), 1, occurrence)
		}(i)
	}
	wg.Wait()
	for i, err := range cancelErrs {
		require.NoError(t, err, "cancel %d", i)
	}
	for i, err := range bookErrs {
		require.NoError(t, err, "book %d", i)
	}

	occupied, seated := store.countSeated(1, occurrence)
	assert.Equal(t, uint32(seated), occupied)
	assert.LessOrEqual(t, occupied, uint32(capacity))
}
