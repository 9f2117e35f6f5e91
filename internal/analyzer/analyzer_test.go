package analyzer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mmynk/finduo/internal/domain"
	"github.com/mmynk/finduo/internal/ledger"
	"github.com/mmynk/finduo/internal/models"
	"github.com/mmynk/finduo/internal/storage/memory"
)

func newTestAnalyzer(t *testing.T) (*Analyzer, *domain.Store, *ledger.Book, *memory.Store, *bytes.Buffer) {
	t.Helper()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	tab := memory.New()
	store := domain.New(tab, domain.Options{
		Location: time.UTC,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:      func() time.Time { return january },
	})
	book := ledger.NewBook(tab, time.UTC, time.Second, logger)
	if err := book.EnsureHeaders(context.Background()); err != nil {
		t.Fatalf("EnsureHeaders failed: %v", err)
	}
	return New(book, store, logger), store, book, tab, &logs
}

func TestAnalyzer(t *testing.T) {
	ctx := context.Background()
	a, store, book, tab, logs := newTestAnalyzer(t)

	_, _, _ = store.RegisterUser(ctx, 1, "Ana")
	_ = book.Append(ctx, models.Record{
		Timestamp: time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC),
		UserName:  "Ana",
		Type:      models.RecordExpense,
		Amount:    90,
		Category:  "Food",
	})

	t.Run("monthly summary", func(t *testing.T) {
		s, ok := a.MonthlySummary(ctx, 1)
		if !ok || s.TotalExpenses != 90 || s.SavingsRate != 0 {
			t.Errorf("Unexpected summary %+v", s)
		}
		if _, ok := a.MonthlySummary(ctx, 99); ok {
			t.Error("Expected no data for unknown user")
		}
	})

	t.Run("budget analysis needs budgets", func(t *testing.T) {
		if _, ok := a.BudgetAnalysis(ctx, 1); ok {
			t.Error("Expected no data without budgets")
		}
		_ = store.SetBudget(ctx, 1, "Food", 100)
		got, ok := a.BudgetAnalysis(ctx, 1)
		if !ok || len(got) != 1 || got[0].Status != StatusWarning {
			t.Errorf("Unexpected analysis %+v", got)
		}
	})

	t.Run("goal progress end to end", func(t *testing.T) {
		err := store.AddGoal(ctx, 1, models.Goal{
			Name:         "Vacation",
			TargetAmount: 100000,
			TargetDate:   models.Midnight(january).AddDate(0, 0, 30),
		})
		if err != nil {
			t.Fatalf("AddGoal failed: %v", err)
		}
		goals := a.Goals(ctx, 1)
		if len(goals) != 1 {
			t.Fatalf("Expected one goal, got %d", len(goals))
		}
		p := goals[0]
		if p.Goal.SavedAmount != 0 || p.DaysUntilTarget != 30 {
			t.Errorf("Unexpected progress %+v", p)
		}
		if d := p.DailyRequired - 100000.0/30; d > 0.01 || d < -0.01 {
			t.Errorf("DailyRequired = %v, want ~3333.33", p.DailyRequired)
		}
	})

	t.Run("statement", func(t *testing.T) {
		st, ok := a.Statement(ctx, 1)
		if !ok || st.UserName != "Ana" || len(st.Records) != 1 || st.Totals.Expenses != 90 {
			t.Errorf("Unexpected statement %+v", st)
		}
	})

	t.Run("unreachable ledger reports no data", func(t *testing.T) {
		tab.FailWith(errors.New("offline"))
		defer tab.FailWith(nil)

		if _, ok := a.MonthlySummary(ctx, 1); ok {
			t.Error("Expected no data from MonthlySummary")
		}
		if _, ok := a.SpendingTrends(ctx, 1, DefaultTrendMonths); ok {
			t.Error("Expected no data from SpendingTrends")
		}
		if !strings.Contains(logs.String(), "ledger unavailable") {
			t.Error("Expected the failure to be logged")
		}
	})
}
