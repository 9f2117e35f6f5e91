// Package domain holds the in-memory domain store: users, family groups,
// budgets, goals, payday schedules and custom categories.
//
// The store is the source of truth for the lifetime of the process. It is
// loaded once from the tabular store at start and every mutation is written
// back with upsert-by-scan. A failed write is logged and counted; the
// in-memory change is kept.
//
// All access goes through Atomically, which holds the store's single mutex
// for the duration of the callback. Managers that need read-then-write
// sequences (family groups, paydays, the reminder sweep) run them inside one
// Atomically call.
package domain

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/finduo/internal/metrics"
	"github.com/mmynk/finduo/internal/models"
	"github.com/mmynk/finduo/internal/storage"
)

// DefaultTimeout bounds every tabular store call when Options.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// Options configures a Store. Zero values select defaults.
type Options struct {
	// Location is the time zone used for calendar dates. Defaults to time.Local.
	Location *time.Location

	// Timeout bounds each call to the tabular store.
	Timeout time.Duration

	// Defaults are the preferences given to newly registered users.
	Defaults models.Preferences

	Logger  *slog.Logger
	Metrics metrics.Recorder

	// Now overrides the clock. Tests use it to pin "today".
	Now func() time.Time
}

// Store is the domain store.
type Store struct {
	mu sync.Mutex

	tab      storage.Tabular
	loc      *time.Location
	timeout  time.Duration
	defaults models.Preferences
	logger   *slog.Logger
	metrics  metrics.Recorder
	now      func() time.Time

	users      map[int64]*models.User
	groups     map[string]*models.FamilyGroup
	userGroup  map[int64]string
	budgets    map[int64]map[string]float64
	goals      map[int64][]models.Goal
	categories map[int64]map[models.RecordType][]string
	paydays    map[int64]*models.PaydaySchedule
}

// New creates an empty Store backed by tab. Call Load to populate it.
func New(tab storage.Tabular, opts Options) *Store {
	s := &Store{
		tab:        tab,
		loc:        opts.Location,
		timeout:    opts.Timeout,
		defaults:   opts.Defaults,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		now:        opts.Now,
		users:      make(map[int64]*models.User),
		groups:     make(map[string]*models.FamilyGroup),
		userGroup:  make(map[int64]string),
		budgets:    make(map[int64]map[string]float64),
		goals:      make(map[int64][]models.Goal),
		categories: make(map[int64]map[models.RecordType][]string),
		paydays:    make(map[int64]*models.PaydaySchedule),
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.defaults == (models.Preferences{}) {
		s.defaults = models.DefaultPreferences("CLP", "es", models.DefaultReminderLeadDays)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Now returns the current time in the store's location.
func (s *Store) Now() time.Time {
	return s.now().In(s.loc)
}

// Location returns the time zone used for calendar dates.
func (s *Store) Location() *time.Location {
	return s.loc
}

// Atomically runs fn while holding the store's mutex. Every read and write
// made through tx is serialized with all other Atomically calls.
// The error returned by fn is passed through unchanged.
func (s *Store) Atomically(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{s: s, ctx: ctx}
	return fn(tx)
}

// Tx gives access to the store inside Atomically. It must not be kept or
// used after the callback returns.
type Tx struct {
	s   *Store
	ctx context.Context
}

// Now returns the current time in the store's location.
func (tx *Tx) Now() time.Time {
	return tx.s.Now()
}

// RegisterUser returns the user with the given id, creating it with default
// preferences when it does not exist. An empty name stores the placeholder.
// The boolean reports whether the user was created.
func (s *Store) RegisterUser(ctx context.Context, id int64, name string) (*models.User, bool, error) {
	var (
		u       *models.User
		created bool
	)
	err := s.Atomically(ctx, func(tx *Tx) error {
		var err error
		u, created, err = tx.RegisterUser(id, name)
		return err
	})
	return u, created, err
}

// User returns a copy of the user, or nil when unknown.
func (s *Store) User(ctx context.Context, id int64) *models.User {
	var u *models.User
	_ = s.Atomically(ctx, func(tx *Tx) error {
		u = tx.User(id)
		return nil
	})
	return u
}

// SaveUser stores u and persists it.
func (s *Store) SaveUser(ctx context.Context, u *models.User) error {
	return s.Atomically(ctx, func(tx *Tx) error {
		return tx.SaveUser(u)
	})
}

// SetBudget stores the budget for (userID, category), replacing any previous amount.
func (s *Store) SetBudget(ctx context.Context, userID int64, category string, amount float64) error {
	return s.Atomically(ctx, func(tx *Tx) error {
		return tx.SetBudget(userID, category, amount)
	})
}

// Budgets returns the budgets of a user that are set (amount > 0).
func (s *Store) Budgets(ctx context.Context, userID int64) map[string]float64 {
	var out map[string]float64
	_ = s.Atomically(ctx, func(tx *Tx) error {
		out = tx.Budgets(userID)
		return nil
	})
	return out
}

// AddGoal appends a goal for the user.
func (s *Store) AddGoal(ctx context.Context, userID int64, g models.Goal) error {
	return s.Atomically(ctx, func(tx *Tx) error {
		return tx.AddGoal(userID, g)
	})
}

// Goals returns the user's goals in creation order.
func (s *Store) Goals(ctx context.Context, userID int64) []models.Goal {
	var out []models.Goal
	_ = s.Atomically(ctx, func(tx *Tx) error {
		out = tx.Goals(userID)
		return nil
	})
	return out
}

// AddCustomCategory appends a custom category for the user and record type.
func (s *Store) AddCustomCategory(ctx context.Context, userID int64, t models.RecordType, name string) error {
	return s.Atomically(ctx, func(tx *Tx) error {
		return tx.AddCustomCategory(userID, t, name)
	})
}

// UserCategories returns the built-in categories of t followed by the
// user's custom ones.
func (s *Store) UserCategories(ctx context.Context, userID int64, t models.RecordType) []string {
	var out []string
	_ = s.Atomically(ctx, func(tx *Tx) error {
		out = tx.UserCategories(userID, t)
		return nil
	})
	return out
}

// GroupOf returns a copy of the user's group, or nil.
func (s *Store) GroupOf(ctx context.Context, userID int64) *models.FamilyGroup {
	var g *models.FamilyGroup
	_ = s.Atomically(ctx, func(tx *Tx) error {
		g = tx.GroupOf(userID)
		return nil
	})
	return g
}

// Payday returns a copy of the user's stored schedule, or nil.
func (s *Store) Payday(ctx context.Context, userID int64) *models.PaydaySchedule {
	var p *models.PaydaySchedule
	_ = s.Atomically(ctx, func(tx *Tx) error {
		p = tx.Payday(userID)
		return nil
	})
	return p
}
