// Package analyzer aggregates ledger records into monthly summaries,
// spending trends, budget analyses and goal progress. It never mutates
// anything.
//
// A ledger that cannot be read and a ledger with no matching records are
// reported the same way: the boolean result is false. The read failure is
// logged.
package analyzer

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmynk/finduo/internal/domain"
	"github.com/mmynk/finduo/internal/ledger"
	"github.com/mmynk/finduo/internal/models"
)

// DefaultTrendMonths is the number of months shown by callers of SpendingTrends.
const DefaultTrendMonths = 6

// Analyzer reads the ledger and the domain store.
type Analyzer struct {
	ledger ledger.Ledger
	store  *domain.Store
	logger *slog.Logger
}

// New creates an Analyzer.
func New(l ledger.Ledger, store *domain.Store, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{ledger: l, store: store, logger: logger}
}

func (a *Analyzer) records(ctx context.Context, op string) ([]models.Record, bool) {
	records, err := a.ledger.Records(ctx)
	if err != nil {
		a.logger.Warn("ledger unavailable, reporting no data", "op", op, "error", err)
		return nil, false
	}
	return records, true
}

// userName resolves the display name that ledger records carry.
// A userID of 0 means every user and yields "".
func (a *Analyzer) userName(ctx context.Context, userID int64) (string, bool) {
	if userID == 0 {
		return "", true
	}
	u := a.store.User(ctx, userID)
	if u == nil {
		return "", false
	}
	return u.DisplayName, true
}

// MonthlySummary aggregates the current calendar month. userID 0 covers
// every user.
func (a *Analyzer) MonthlySummary(ctx context.Context, userID int64) (*Summary, bool) {
	name, ok := a.userName(ctx, userID)
	if !ok {
		return nil, false
	}
	records, ok := a.records(ctx, "monthly_summary")
	if !ok {
		return nil, false
	}
	return Summarize(records, a.store.Now(), name)
}

// SpendingTrends buckets the whole expense history by month and category.
// monthsWindow is advisory: every month is returned and callers slice with
// Trends.Recent.
func (a *Analyzer) SpendingTrends(ctx context.Context, userID int64, monthsWindow int) (Trends, bool) {
	name, ok := a.userName(ctx, userID)
	if !ok {
		return Trends{}, false
	}
	records, ok := a.records(ctx, "spending_trends")
	if !ok {
		return Trends{}, false
	}
	t, ok := SpendingTrends(records, a.store.Location(), name)
	if ok {
		a.logger.Debug("spending trends computed",
			"user_id", userID,
			"months", len(t.Months),
			"window", monthsWindow,
		)
	}
	return t, ok
}

// BudgetAnalysis compares the user's budgets with this month's expenses.
// It reports no data when the user has no budgets.
func (a *Analyzer) BudgetAnalysis(ctx context.Context, userID int64) ([]BudgetStatus, bool) {
	budgets := a.store.Budgets(ctx, userID)
	if len(budgets) == 0 {
		return nil, false
	}
	name, ok := a.userName(ctx, userID)
	if !ok {
		return nil, false
	}
	records, ok := a.records(ctx, "budget_analysis")
	if !ok {
		return nil, false
	}
	return AnalyzeBudgets(records, budgets, a.store.Now(), name), true
}

// GoalProgress computes the progress of g as of today.
func (a *Analyzer) GoalProgress(g models.Goal) GoalProgress {
	return ProgressOf(g, a.store.Now())
}

// Goals returns the progress of every goal of the user in creation order.
func (a *Analyzer) Goals(ctx context.Context, userID int64) []GoalProgress {
	goals := a.store.Goals(ctx, userID)
	now := a.store.Now()
	out := make([]GoalProgress, len(goals))
	for i, g := range goals {
		out[i] = ProgressOf(g, now)
	}
	return out
}

// History returns the user's most recent records, newest first.
func (a *Analyzer) History(ctx context.Context, userID int64, limit int) ([]models.Record, bool) {
	name, ok := a.userName(ctx, userID)
	if !ok || name == "" {
		return nil, false
	}
	records, ok := a.records(ctx, "history")
	if !ok {
		return nil, false
	}
	h := History(records, name, limit)
	return h, len(h) > 0
}

// Statement is everything needed to export a user's ledger.
type Statement struct {
	UserName    string
	GeneratedAt time.Time
	Totals      Totals
	Records     []models.Record
}

// Statement collects every record of the user, oldest first.
func (a *Analyzer) Statement(ctx context.Context, userID int64) (*Statement, bool) {
	name, ok := a.userName(ctx, userID)
	if !ok || name == "" {
		return nil, false
	}
	records, ok := a.records(ctx, "statement")
	if !ok {
		return nil, false
	}
	var mine []models.Record
	for _, r := range records {
		if r.UserName == name {
			mine = append(mine, r)
		}
	}
	if len(mine) == 0 {
		return nil, false
	}
	return &Statement{
		UserName:    name,
		GeneratedAt: a.store.Now(),
		Totals:      TotalsFor(records, name),
		Records:     mine,
	}, true
}
