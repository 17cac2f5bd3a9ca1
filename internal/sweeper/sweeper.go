// Package sweeper runs the background passes that keep reservations
// honest between requests: upcoming-class reminders and end-of-day
// no-show marking.
package sweeper

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/gym-class-booking/internal/monitoring"
	"github.com/iliyamo/gym-class-booking/internal/queue"
	"github.com/iliyamo/gym-class-booking/internal/repository"
)

// Ledger is the slice of the reservation store the sweeper reads and
// flags. *repository.ReservationRepo satisfies it.
type Ledger interface {
	ListDueReminders(ctx context.Context, kind string, from, to time.Time) ([]repository.ReminderCandidate, error)
	MarkReminderSent(ctx context.Context, id uint64, kind string) error
	SweepNoShows(ctx context.Context, before time.Time) (int64, error)
}

// Notifier delivers reminder events to members.
type Notifier interface {
	Notify(ctx context.Context, event queue.NotificationEvent) error
}

// TokenPurger drops expired refresh tokens; the sweeper runs it on the
// daily no-show cadence. *repository.TokenRepo satisfies it.
type TokenPurger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// Config holds the tick intervals for the three passes.
// Fields:
//   - Reminder24hEvery: how often the day-before reminder pass runs.
//   - Reminder2hEvery:  how often the same-day reminder pass runs.
//   - NoShowEvery:      how often unattended seats are swept to NO_SHOW.
type Config struct {
	Reminder24hEvery time.Duration
	Reminder2hEvery  time.Duration
	NoShowEvery      time.Duration
}

// DefaultConfig returns the production cadence: hourly 24h reminders,
// half-hourly 2h reminders, daily no-show sweep.
func DefaultConfig() Config {
	return Config{
		Reminder24hEvery: time.Hour,
		Reminder2hEvery:  30 * time.Minute,
		NoShowEvery:      24 * time.Hour,
	}
}

// Sweeper scans the reservation ledger on a timer. Reminder passes are
// idempotent through the per-row sent flags, so overlapping or restarted
// runs never double-notify; the no-show pass is a bulk status update
// that only ever moves rows forward.
type Sweeper struct {
	ledger   Ledger
	notifier Notifier
	tokens   TokenPurger
	cfg      Config
	now      func() time.Time
}

// New builds a Sweeper. A zero interval in cfg falls back to the
// DefaultConfig value for that pass.
func New(ledger Ledger, notifier Notifier, cfg Config) *Sweeper {
	def := DefaultConfig()
	if cfg.Reminder24hEvery <= 0 {
		cfg.Reminder24hEvery = def.Reminder24hEvery
	}
	if cfg.Reminder2hEvery <= 0 {
		cfg.Reminder2hEvery = def.Reminder2hEvery
	}
	if cfg.NoShowEvery <= 0 {
		cfg.NoShowEvery = def.NoShowEvery
	}
	return &Sweeper{ledger: ledger, notifier: notifier, cfg: cfg, now: time.Now}
}

// WithTokenPurger adds refresh-token housekeeping to the no-show pass.
// Without one the pass only sweeps reservations.
func (s *Sweeper) WithTokenPurger(p TokenPurger) *Sweeper {
	s.tokens = p
	return s
}

// Run blocks until ctx is cancelled, driving all three passes on their
// own tickers. Each pass also fires once immediately so a freshly
// started instance catches up without waiting a full interval.
func (s *Sweeper) Run(ctx context.Context) {
	t24 := time.NewTicker(s.cfg.Reminder24hEvery)
	t2 := time.NewTicker(s.cfg.Reminder2hEvery)
	tns := time.NewTicker(s.cfg.NoShowEvery)
	defer t24.Stop()
	defer t2.Stop()
	defer tns.Stop()

	s.runAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t24.C:
			sent, err := s.SweepReminders(ctx, repository.Reminder24h)
			s.logPass(repository.Reminder24h, sent, err)
		case <-t2.C:
			sent, err := s.SweepReminders(ctx, repository.Reminder2h)
			s.logPass(repository.Reminder2h, sent, err)
		case <-tns.C:
			s.dailyPass(ctx)
		}
	}
}

func (s *Sweeper) runAll(ctx context.Context) {
	sent, err := s.SweepReminders(ctx, repository.Reminder24h)
	s.logPass(repository.Reminder24h, sent, err)
	sent, err = s.SweepReminders(ctx, repository.Reminder2h)
	s.logPass(repository.Reminder2h, sent, err)
	s.dailyPass(ctx)
}

func (s *Sweeper) dailyPass(ctx context.Context) {
	if n, err := s.SweepNoShows(ctx); err != nil {
		log.Printf("sweeper: no-show pass failed: %v", err)
	} else if n > 0 {
		log.Printf("sweeper: marked %d reservations NO_SHOW", n)
	}
	if n, err := s.PurgeTokens(ctx); err != nil {
		log.Printf("sweeper: token purge failed: %v", err)
	} else if n > 0 {
		log.Printf("sweeper: purged %d expired refresh tokens", n)
	}
}

func (s *Sweeper) logPass(kind string, sent int, err error) {
	if err != nil {
		log.Printf("sweeper: %s reminder pass failed: %v", kind, err)
		return
	}
	if sent > 0 {
		log.Printf("sweeper: sent %d %s reminders", sent, kind)
	}
}

// reminderWindow returns the occurrence-start window a pass scans.
// The windows are wider than the tick interval so a missed or slow
// tick cannot leave a gap; the sent flags absorb the overlap.
func reminderWindow(kind string, now time.Time) (from, to time.Time, err error) {
	switch kind {
	case repository.Reminder24h:
		return now.Add(23 * time.Hour), now.Add(25 * time.Hour), nil
	case repository.Reminder2h:
		return now.Add(90 * time.Minute), now.Add(150 * time.Minute), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("unknown reminder kind %q", kind)
}

func eventKind(kind string) string {
	if kind == repository.Reminder2h {
		return queue.KindReminder2h
	}
	return queue.KindReminder24h
}

// SweepReminders runs one reminder pass for the given kind and returns
// how many reminders went out. A row is flagged only after its
// notification succeeds; a failed notification is logged and retried on
// the next tick. One bad row never aborts the batch.
func (s *Sweeper) SweepReminders(ctx context.Context, kind string) (int, error) {
	from, to, err := reminderWindow(kind, s.now())
	if err != nil {
		return 0, err
	}
	due, err := s.ledger.ListDueReminders(ctx, kind, from, to)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, c := range due {
		ev := queue.NotificationEvent{
			MemberID:       c.MemberID,
			Kind:           eventKind(kind),
			ReservationID:  c.ReservationID,
			SessionID:      c.SessionID,
			SessionName:    c.SessionName,
			OccurrenceDate: c.OccurrenceDate,
			StartsAt:       c.StartsAt.Format(time.RFC3339),
		}
		if err := s.notifier.Notify(ctx, ev); err != nil {
			log.Printf("sweeper: %s reminder for reservation %d failed: %v", kind, c.ReservationID, err)
			continue
		}
		if err := s.ledger.MarkReminderSent(ctx, c.ReservationID, kind); err != nil {
			log.Printf("sweeper: could not flag reservation %d: %v", c.ReservationID, err)
			continue
		}
		monitoring.RecordReminder(kind)
		sent++
	}
	return sent, nil
}

// SweepNoShows marks every confirmed seat whose occurrence has already
// ended as NO_SHOW and returns the number of rows changed.
func (s *Sweeper) SweepNoShows(ctx context.Context) (int64, error) {
	n, err := s.ledger.SweepNoShows(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		monitoring.RecordNoShows(n)
	}
	return n, nil
}

// PurgeTokens deletes refresh tokens that have already expired. A
// sweeper without a token purger reports zero and does nothing.
func (s *Sweeper) PurgeTokens(ctx context.Context) (int64, error) {
	if s.tokens == nil {
		return 0, nil
	}
	return s.tokens.PurgeExpired(ctx, s.now())
}
