// Package payday computes the next payday of each user, decides whether a
// reminder is due and runs the daily reminder sweep.
package payday

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mmynk/finduo/internal/domain"
	"github.com/mmynk/finduo/internal/metrics"
	"github.com/mmynk/finduo/internal/models"
)

// ReminderKind tells how close the payday is.
type ReminderKind string

const (
	KindToday    ReminderKind = "today"
	KindTomorrow ReminderKind = "tomorrow"
	KindInDays   ReminderKind = "in_days"
)

// KindFor returns the reminder kind for a number of days until payday.
func KindFor(days int) ReminderKind {
	switch days {
	case 0:
		return KindToday
	case 1:
		return KindTomorrow
	}
	return KindInDays
}

// ErrNoNotifier is returned by Sweep when the scheduler has nowhere to send reminders.
var ErrNoNotifier = errors.New("payday sweep: no notifier configured")

// Reminder is the payday status of one user.
type Reminder struct {
	UserID int64
	Kind   ReminderKind
	Days   int
	Date   time.Time
}

// Notifier delivers payday reminders.
type Notifier interface {
	Dispatch(ctx context.Context, userID int64, kind ReminderKind, date time.Time) error
}

// Scheduler works on the payday schedules held by the domain store.
type Scheduler struct {
	store    *domain.Store
	notifier Notifier
	logger   *slog.Logger
	metrics  metrics.Recorder
}

// NewScheduler creates a Scheduler. notifier may be nil when only the
// computations are needed.
func NewScheduler(store *domain.Store, notifier Notifier, logger *slog.Logger, rec metrics.Recorder) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Scheduler{
		store:    store,
		notifier: notifier,
		logger:   logger,
		metrics:  rec,
	}
}

// SetPaydayDate stores a yearly payday on day/month.
func (s *Scheduler) SetPaydayDate(ctx context.Context, userID int64, day, month int) (*models.PaydaySchedule, error) {
	if err := ValidateDayMonth(day, month); err != nil {
		return nil, err
	}
	return s.save(ctx, userID, day, month)
}

// SetMonthlyPayday stores a legacy payday that recurs every month on day.
func (s *Scheduler) SetMonthlyPayday(ctx context.Context, userID int64, day int) (*models.PaydaySchedule, error) {
	if err := ValidateDay(day); err != nil {
		return nil, err
	}
	return s.save(ctx, userID, day, 0)
}

func (s *Scheduler) save(ctx context.Context, userID int64, day, month int) (*models.PaydaySchedule, error) {
	var p *models.PaydaySchedule
	err := s.store.Atomically(ctx, func(tx *domain.Tx) error {
		now := tx.Now()
		p = &models.PaydaySchedule{UserID: userID, Day: day, Month: month, UpdatedAt: now}
		p.NextPayday = Next(p, now)
		return tx.SavePayday(p)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("payday set",
		"user_id", userID,
		"day", day,
		"month", month,
		"next_payday", p.NextPayday.Format(models.DateLayout),
	)
	return p, nil
}

// NextPayday returns the user's next payday, recomputing and persisting the
// cached value when it lies before today. The boolean is false when the
// user has no payday.
func (s *Scheduler) NextPayday(ctx context.Context, userID int64) (time.Time, bool) {
	var (
		next time.Time
		ok   bool
	)
	_ = s.store.Atomically(ctx, func(tx *domain.Tx) error {
		next, ok = nextPayday(tx, userID)
		return nil
	})
	return next, ok
}

func nextPayday(tx *domain.Tx, userID int64) (time.Time, bool) {
	p := tx.Payday(userID)
	if p == nil {
		return time.Time{}, false
	}

	now := tx.Now()
	today := models.Midnight(now)
	if !p.NextPayday.IsZero() && !models.Midnight(p.NextPayday.In(now.Location())).Before(today) {
		return p.NextPayday, true
	}

	p.NextPayday = Next(p, today)
	p.UpdatedAt = now
	_ = tx.SavePayday(p)
	return p.NextPayday, true
}

// Reminder returns the payday status of the user. The boolean is false when
// the user has no payday.
func (s *Scheduler) Reminder(ctx context.Context, userID int64) (Reminder, bool) {
	var (
		r  Reminder
		ok bool
	)
	_ = s.store.Atomically(ctx, func(tx *domain.Tx) error {
		r, ok = reminder(tx, userID)
		return nil
	})
	return r, ok
}

func reminder(tx *domain.Tx, userID int64) (Reminder, bool) {
	next, ok := nextPayday(tx, userID)
	if !ok {
		return Reminder{}, false
	}
	days := models.DaysBetween(tx.Now(), next)
	return Reminder{UserID: userID, Kind: KindFor(days), Days: days, Date: next}, true
}

// ShouldSendReminder reports whether the user wants payday reminders and the
// next payday is between 0 and the user's lead days away.
func (s *Scheduler) ShouldSendReminder(ctx context.Context, userID int64) bool {
	var send bool
	_ = s.store.Atomically(ctx, func(tx *domain.Tx) error {
		_, send = eligible(tx, userID)
		return nil
	})
	return send
}

func eligible(tx *domain.Tx, userID int64) (Reminder, bool) {
	u := tx.User(userID)
	if u == nil || !u.Preferences.PaydayReminders {
		return Reminder{}, false
	}
	r, ok := reminder(tx, userID)
	if !ok {
		return Reminder{}, false
	}
	lead := u.Preferences.ReminderLeadDays
	if lead < 0 {
		lead = models.DefaultReminderLeadDays
	}
	return r, r.Days >= 0 && r.Days <= lead
}

// Sweep evaluates every known user and dispatches one reminder to each
// eligible user. Eligibility is decided under the store lock; dispatch
// happens after it is released. It returns the number of reminders sent.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	if s.notifier == nil {
		return 0, ErrNoNotifier
	}
	start := time.Now()

	var due []Reminder
	_ = s.store.Atomically(ctx, func(tx *domain.Tx) error {
		for _, u := range tx.Users() {
			if r, ok := eligible(tx, u.ID); ok {
				due = append(due, r)
			}
		}
		return nil
	})

	sent := 0
	for _, r := range due {
		if err := s.notifier.Dispatch(ctx, r.UserID, r.Kind, r.Date); err != nil {
			s.logger.Warn("failed to dispatch payday reminder",
				"user_id", r.UserID,
				"kind", r.Kind,
				"error", err,
			)
			continue
		}
		s.metrics.RecordReminder(string(r.Kind))
		sent++
	}

	s.logger.Info("payday sweep finished",
		"eligible", len(due),
		"sent", sent,
		"duration", time.Since(start),
	)
	return sent, nil
}

// Run sweeps once a day at hour:minute in the store's time zone until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context, hour, minute int) {
	s.logger.Info("payday scheduler started",
		slog.Int("hour", hour),
		slog.Int("minute", minute),
	)

	for {
		now := s.store.Now()
		wait := nextRun(now, hour, minute).Sub(now)
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("payday scheduler stopped")
			return
		case <-timer.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("payday sweep failed", "error", err)
			}
		}
	}
}
