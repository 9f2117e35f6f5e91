package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/mmynk/finduo/internal/analyzer"
	"github.com/mmynk/finduo/internal/domain"
	"github.com/mmynk/finduo/internal/export"
	"github.com/mmynk/finduo/internal/family"
	"github.com/mmynk/finduo/internal/ledger"
	"github.com/mmynk/finduo/internal/models"
	"github.com/mmynk/finduo/internal/payday"
	"github.com/mmynk/finduo/internal/storage/memory"
)

var today = time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type harness struct {
	engine *Engine
	store  *domain.Store
	book   *ledger.Book
}

func newHarness(t *testing.T, l ledger.Ledger) *harness {
	t.Helper()
	ctx := context.Background()

	tab := memory.New()
	store := domain.New(tab, domain.Options{
		Location: time.UTC,
		Logger:   discard,
		Now:      func() time.Time { return today },
	})
	if err := store.EnsureHeaders(ctx); err != nil {
		t.Fatalf("EnsureHeaders failed: %v", err)
	}
	book := ledger.NewBook(tab, time.UTC, time.Second, discard)
	if err := book.EnsureHeaders(ctx); err != nil {
		t.Fatalf("EnsureHeaders failed: %v", err)
	}
	if l == nil {
		l = book
	}

	fm := family.NewManager(store, discard, family.WithCodeGenerator(func() (string, error) {
		return "ABCD1234", nil
	}))
	engine := NewEngine(Deps{
		Store:    store,
		Family:   fm,
		Payday:   payday.NewScheduler(store, nil, discard, nil),
		Analyzer: analyzer.New(l, store, discard),
		Ledger:   l,
		Logger:   discard,
	})
	return &harness{engine: engine, store: store, book: book}
}

func (h *harness) register(t *testing.T, userID int64, name string) {
	t.Helper()
	if _, _, err := h.store.RegisterUser(context.Background(), userID, name); err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}
}

func (h *harness) send(t *testing.T, userID int64, ev Event) Result {
	t.Helper()
	res, err := h.engine.Dispatch(context.Background(), userID, ev)
	if err != nil {
		t.Fatalf("Dispatch(%+v) failed: %v", ev, err)
	}
	return res
}

func text(s string) Event   { return Event{Text: s} }
func choice(s string) Event { return Event{Choice: s} }

func expect(t *testing.T, res Result, state, kind, errClass string) {
	t.Helper()
	if res.State != state {
		t.Errorf("Expected state %s, got %s", state, res.State)
	}
	if res.Prompt.Kind != kind {
		t.Errorf("Expected prompt %s, got %s", kind, res.Prompt.Kind)
	}
	if res.Prompt.Error != errClass {
		t.Errorf("Expected error %q, got %q", errClass, res.Prompt.Error)
	}
}

type failingLedger struct{}

var errLedgerDown = fmt.Errorf("sheet offline: %w", models.ErrBackendUnavailable)

func (failingLedger) Append(context.Context, models.Record) error { return errLedgerDown }

func (failingLedger) Records(context.Context) ([]models.Record, error) { return nil, errLedgerDown }

func TestDispatchRejectsInvalidUser(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.engine.Dispatch(context.Background(), 0, choice(ChoiceStart))
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}

func TestRegistration(t *testing.T) {
	h := newHarness(t, nil)

	expect(t, h.send(t, 1, choice(ChoiceStart)), "typing_username", KindAskUsername, "")
	expect(t, h.send(t, 1, text("A")), "typing_username", KindAskUsername, "too_short")
	expect(t, h.send(t, 1, text("Ana 2")), "typing_username", KindAskUsername, "not_alphabetic")
	expect(t, h.send(t, 1, text("Ana María")), "choosing_registration_type", KindChooseRegistrationType, "")
	expect(t, h.send(t, 1, text("solo")), "choosing_registration_type", KindChooseRegistrationType, ErrClassUnknownChoice)

	res := h.send(t, 1, choice(ChoiceRegistrationSolo))
	expect(t, res, "idle", KindRegistrationComplete, "")
	if p := res.Prompt.Payload.(MenuPayload); p.UserName != "Ana María" {
		t.Errorf("Expected name Ana María, got %s", p.UserName)
	}

	u := h.store.User(context.Background(), 1)
	if !u.IsRegistered() || u.DisplayName != "Ana María" {
		t.Errorf("Expected registered user Ana María, got %+v", u)
	}

	expect(t, h.send(t, 1, choice(ChoiceStart)), "idle", KindMainMenu, "")
}

func TestUnregisteredUserIsSentToRegistration(t *testing.T) {
	h := newHarness(t, nil)
	expect(t, h.send(t, 7, text("hola")), "typing_username", KindAskUsername, "")
	expect(t, h.send(t, 7, choice(ChoiceMenuExpense)), "typing_username", KindAskUsername, "")
}

func TestExpenseFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.register(t, 1, "Ana")

	expect(t, h.send(t, 1, choice(ChoiceMenuExpense)), "typing_amount", KindAskAmount, "")
	expect(t, h.send(t, 1, text("abc")), "typing_amount", KindAskAmount, "not_a_number")
	expect(t, h.send(t, 1, text("0")), "typing_amount", KindAskAmount, "not_positive")

	res := h.send(t, 1, text("$1,500"))
	expect(t, res, "typing_category", KindChooseCategory, "")
	if !slices.Contains(res.Prompt.Options, CategoryChoice("Groceries")) {
		t.Errorf("Expected Groceries among %v", res.Prompt.Options)
	}
	if !slices.Contains(res.Prompt.Options, ChoiceCustomCategory) {
		t.Errorf("Expected the custom category option among %v", res.Prompt.Options)
	}

	expect(t, h.send(t, 1, choice(CategoryChoice("Yachts"))), "typing_category", KindChooseCategory, ErrClassUnknownCategory)
	expect(t, h.send(t, 1, text("groceries")), "typing_description", KindAskDescription, "")

	res = h.send(t, 1, text("-"))
	expect(t, res, "idle", KindTransactionSaved, "")

	records, err := h.book.Records(ctx)
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.UserName != "Ana" || r.Type != models.RecordExpense || r.Amount != 1500 ||
		r.Category != "Groceries" || r.Description != "" || r.Status != models.RecordStatusCompleted {
		t.Errorf("Unexpected record %+v", r)
	}
	if _, ok := h.engine.State(1).(Idle); !ok {
		t.Errorf("Expected Idle after commit, got %T", h.engine.State(1))
	}
}

func TestAmountsOutOfRangeReprompt(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.register(t, 1, "Ana")

	expect(t, h.send(t, 1, choice(ChoiceMenuIncome)), "typing_amount", KindAskAmount, "")
	expect(t, h.send(t, 1, text("0.001")), "typing_amount", KindAskAmount, "not_positive")
	expect(t, h.send(t, 1, text("1e400")), "typing_amount", KindAskAmount, "too_large")
	expect(t, h.send(t, 1, choice(ChoiceCancel)), "idle", KindCancelled, "")

	expect(t, h.send(t, 1, choice(ChoiceBudgetCreate)), "choosing_budget_category", KindChooseBudgetCategory, "")
	expect(t, h.send(t, 1, choice(CategoryChoice("Groceries"))), "setting_budget", KindAskBudgetAmount, "")
	expect(t, h.send(t, 1, text("1e400")), "setting_budget", KindAskBudgetAmount, "too_large")
	expect(t, h.send(t, 1, choice(ChoiceCancel)), "idle", KindCancelled, "")

	expect(t, h.send(t, 1, choice(ChoiceGoalCreate)), "setting_goal_name", KindAskGoalName, "")
	expect(t, h.send(t, 1, text("Vacation")), "setting_goal_amount", KindAskGoalAmount, "")
	expect(t, h.send(t, 1, text("1e-9")), "setting_goal_amount", KindAskGoalAmount, "not_positive")

	records, err := h.book.Records(ctx)
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no records, got %d", len(records))
	}
	if len(h.store.Budgets(ctx, 1)) != 0 || len(h.store.Goals(ctx, 1)) != 0 {
		t.Error("Expected no budget or goal to be stored")
	}
}

func TestDebtFlowWithCustomCategory(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.register(t, 1, "Ana")

	h.send(t, 1, choice(ChoiceMenuDebt))
	h.send(t, 1, text("2000"))
	expect(t, h.send(t, 1, choice(ChoiceCustomCategory)), "typing_custom_category", KindAskCustomCategory, "")
	expect(t, h.send(t, 1, text("X")), "typing_custom_category", KindAskCustomCategory, "too_short")
	expect(t, h.send(t, 1, text("Tía")), "typing_description", KindAskDescription, "")
	expect(t, h.send(t, 1, text("<b>préstamo</b>")), "typing_due_date", KindAskDueDate, "")
	expect(t, h.send(t, 1, text("31/02/2024")), "typing_due_date", KindAskDueDate, "bad_format")
	expect(t, h.send(t, 1, text("15/02/2024")), "idle", KindTransactionSaved, "")

	records, _ := h.book.Records(ctx)
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if r := records[0]; r.Category != "Tía" || r.Description != "préstamo" || r.DueDate != "15/02/2024" {
		t.Errorf("Unexpected record %+v", r)
	}

	categories := h.store.UserCategories(ctx, 1, models.RecordDebt)
	if categories[len(categories)-1] != "Tía" {
		t.Errorf("Expected custom category last, got %v", categories)
	}
}

func TestCommitFailureReturnsToIdle(t *testing.T) {
	h := newHarness(t, failingLedger{})
	h.register(t, 1, "Ana")

	h.send(t, 1, choice(ChoiceMenuIncome))
	h.send(t, 1, text("100"))
	h.send(t, 1, choice(CategoryChoice("Salary")))
	expect(t, h.send(t, 1, text("enero")), "idle", KindMainMenu, ErrClassCommitFailed)
}

func TestCancelDropsDraft(t *testing.T) {
	h := newHarness(t, nil)
	h.register(t, 1, "Ana")

	h.send(t, 1, choice(ChoiceMenuIncome))
	h.send(t, 1, text("100"))
	expect(t, h.send(t, 1, choice(ChoiceCancel)), "idle", KindCancelled, "")

	// A new flow starts from scratch.
	res := h.send(t, 1, choice(ChoiceMenuExpense))
	if p := res.Prompt.Payload.(TransactionPayload); p.Amount != 0 || p.Type != models.RecordExpense {
		t.Errorf("Expected a fresh expense draft, got %+v", p)
	}
}

func TestMenuChoiceAbandonsFlow(t *testing.T) {
	h := newHarness(t, nil)
	h.register(t, 1, "Ana")

	h.send(t, 1, choice(ChoiceMenuIncome))
	expect(t, h.send(t, 1, choice(ChoiceMenuGoals)), "idle", KindGoalList, "")
	expect(t, h.send(t, 1, choice("menu:unknown")), "idle", KindMainMenu, ErrClassUnknownChoice)
}

func TestTextStateRejectsChoices(t *testing.T) {
	h := newHarness(t, nil)
	h.register(t, 1, "Ana")

	h.send(t, 1, choice(ChoiceMenuIncome))
	expect(t, h.send(t, 1, choice(ChoiceGoalCreate)), "typing_amount", KindAskAmount, ErrClassUnknownChoice)
}

func TestGoalFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.register(t, 1, "Ana")

	expect(t, h.send(t, 1, choice(ChoiceGoalCreate)), "setting_goal_name", KindAskGoalName, "")
	expect(t, h.send(t, 1, text("Va")), "setting_goal_name", KindAskGoalName, "too_short")
	expect(t, h.send(t, 1, text("Vacation")), "setting_goal_amount", KindAskGoalAmount, "")
	expect(t, h.send(t, 1, text("-1")), "setting_goal_amount", KindAskGoalAmount, "not_positive")
	expect(t, h.send(t, 1, text("100000")), "setting_goal_date", KindAskGoalDate, "")
	expect(t, h.send(t, 1, text("2024-02-19")), "setting_goal_date", KindAskGoalDate, "bad_format")
	expect(t, h.send(t, 1, text("20/01/2024")), "setting_goal_date", KindAskGoalDate, "not_in_future")

	target := today.AddDate(0, 0, 30).Format(models.InputDateLayout)
	res := h.send(t, 1, text(target))
	expect(t, res, "idle", KindGoalCreated, "")

	p := res.Prompt.Payload.(GoalPayload)
	if p.SavedAmount != 0 || p.DaysUntilTarget != 30 {
		t.Errorf("Expected saved 0 and 30 days, got %+v", p)
	}
	if math.Abs(p.DailyRequired-3333.33) > 0.01 {
		t.Errorf("Expected daily required 3333.33, got %f", p.DailyRequired)
	}

	goals := h.store.Goals(ctx, 1)
	if len(goals) != 1 || goals[0].Name != "Vacation" || goals[0].TargetAmount != 100000 {
		t.Errorf("Unexpected goals %+v", goals)
	}
}

func TestBudgetFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.register(t, 1, "Ana")

	set := func(amount string) {
		t.Helper()
		res := h.send(t, 1, choice(ChoiceBudgetCreate))
		expect(t, res, "choosing_budget_category", KindChooseBudgetCategory, "")
		if !slices.Contains(res.Prompt.Options, CategoryChoice("Food")) {
			t.Fatalf("Expected Food among %v", res.Prompt.Options)
		}
		expect(t, h.send(t, 1, choice(CategoryChoice("Food"))), "setting_budget", KindAskBudgetAmount, "")
		expect(t, h.send(t, 1, text(amount)), "idle", KindBudgetSet, "")
	}

	set("100")
	set("150")

	budgets := h.store.Budgets(ctx, 1)
	if len(budgets) != 1 || budgets["Food"] != 150 {
		t.Errorf("Expected {Food: 150}, got %v", budgets)
	}

	h.send(t, 1, choice(ChoiceBudgetCreate))
	expect(t, h.send(t, 1, text("Yachts")), "choosing_budget_category", KindChooseBudgetCategory, ErrClassUnknownCategory)
	h.send(t, 1, text("food"))
	expect(t, h.send(t, 1, text("-5")), "setting_budget", KindAskBudgetAmount, "not_positive")
	h.send(t, 1, choice(ChoiceCancel))

	res := h.send(t, 1, choice(ChoiceBudgetAnalysis))
	expect(t, res, "idle", KindBudgetAnalysis, "")
	statuses := res.Prompt.Payload.([]analyzer.BudgetStatus)
	if len(statuses) != 1 || statuses[0].Status != analyzer.StatusGood {
		t.Errorf("Unexpected budget analysis %+v", statuses)
	}
}

func TestPaydayFlow(t *testing.T) {
	h := newHarness(t, nil)
	h.register(t, 1, "Ana")

	t.Run("yearly", func(t *testing.T) {
		expect(t, h.send(t, 1, choice(ChoiceSettingsPaydayDate)), "setting_payday_day", KindAskPaydayDay, "")
		expect(t, h.send(t, 1, text("32")), "setting_payday_day", KindAskPaydayDay, "out_of_range")
		expect(t, h.send(t, 1, text("31")), "setting_payday_month", KindAskPaydayMonth, "")
		expect(t, h.send(t, 1, text("4")), "setting_payday_month", KindAskPaydayMonth, "invalid_date")

		res := h.send(t, 1, text("1"))
		expect(t, res, "idle", KindPaydaySet, "")
		p := res.Prompt.Payload.(PaydayPayload)
		if p.NextPayday != "2024-01-31" || p.DaysUntil != 11 || p.Monthly || p.Reminder != string(payday.KindInDays) {
			t.Errorf("Unexpected payday %+v", p)
		}
		if p.Eligible {
			t.Error("Expected no reminder 11 days ahead")
		}
	})

	t.Run("monthly", func(t *testing.T) {
		h.send(t, 1, choice(ChoiceSettingsPaydayDay))
		expect(t, h.send(t, 1, text("0")), "setting_monthly_payday", KindAskMonthlyPayday, "out_of_range")

		res := h.send(t, 1, text("21"))
		expect(t, res, "idle", KindPaydaySet, "")
		p := res.Prompt.Payload.(PaydayPayload)
		if p.NextPayday != "2024-01-21" || !p.Monthly || p.Reminder != string(payday.KindTomorrow) || !p.Eligible {
			t.Errorf("Unexpected payday %+v", p)
		}
	})

	t.Run("status", func(t *testing.T) {
		res := h.send(t, 1, choice(ChoiceMenuReminders))
		expect(t, res, "idle", KindPaydayStatus, "")
		if p := res.Prompt.Payload.(PaydayPayload); p.Day != 21 {
			t.Errorf("Expected day 21, got %+v", p)
		}
	})

	t.Run("toggle reminders", func(t *testing.T) {
		res := h.send(t, 1, choice(ChoiceSettingsToggleReminders))
		expect(t, res, "idle", KindProfile, "")
		if p := res.Prompt.Payload.(ProfilePayload); p.Preferences.PaydayReminders {
			t.Error("Expected reminders disabled")
		}
		p := h.send(t, 1, choice(ChoiceMenuReminders)).Prompt.Payload.(PaydayPayload)
		if p.Eligible {
			t.Error("Expected no reminder once disabled")
		}
	})
}

func TestFamilyFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	h.send(t, 1, choice(ChoiceStart))
	h.send(t, 1, text("Ana"))
	h.send(t, 1, choice(ChoiceRegistrationCreate))
	expect(t, h.send(t, 1, text("Yo")), "typing_group_name", KindAskGroupName, "too_short")

	res := h.send(t, 1, text("Los Pérez"))
	expect(t, res, "idle", KindGroupCreated, "")
	if g := res.Prompt.Payload.(*GroupPayload); g.InvitationCode != "ABCD1234" || g.Name != "Los Pérez" {
		t.Errorf("Unexpected group %+v", g)
	}

	h.send(t, 2, choice(ChoiceStart))
	h.send(t, 2, text("Luis"))
	h.send(t, 2, choice(ChoiceRegistrationJoin))
	expect(t, h.send(t, 2, text("abc")), "typing_invitation_code", KindAskInvitationCode, "wrong_length")
	expect(t, h.send(t, 2, text("ZZZZ9999")), "typing_invitation_code", KindAskInvitationCode, ErrClassInvalidCode)

	res = h.send(t, 2, text(" abcd1234 "))
	expect(t, res, "idle", KindGroupJoined, "")
	if g := res.Prompt.Payload.(*GroupPayload); !slices.Equal(g.Members, []string{"Ana", "Luis"}) {
		t.Errorf("Expected members [Ana Luis], got %v", g.Members)
	}

	expect(t, h.send(t, 1, choice(ChoiceFamilyCreate)), "idle", KindFamilyStatus, ErrClassAlreadyInGroup)
	expect(t, h.send(t, 2, choice(ChoiceFamilyJoin)), "idle", KindFamilyStatus, ErrClassAlreadyInGroup)

	res = h.send(t, 2, choice(ChoiceMenuFamily))
	if p := res.Prompt.Payload.(FamilyStatusPayload); !p.Grouped || p.Group.CreatorID != 1 {
		t.Errorf("Unexpected family status %+v", p)
	}

	if g := h.store.GroupOf(ctx, 2); g == nil || !g.HasMember(1) {
		t.Errorf("Expected user 2 grouped with user 1, got %+v", g)
	}
}

func TestInfoActions(t *testing.T) {
	h := newHarness(t, nil)
	h.register(t, 1, "Ana")

	for _, c := range []string{ChoiceMenuAnalysis, ChoiceMenuTrends, ChoiceMenuHistory, ChoiceMenuExport} {
		expect(t, h.send(t, 1, choice(c)), "idle", KindNoData, "")
	}

	h.send(t, 1, choice(ChoiceMenuIncome))
	h.send(t, 1, text("1000"))
	h.send(t, 1, choice(CategoryChoice("Salary")))
	h.send(t, 1, text("-"))
	h.send(t, 1, choice(ChoiceMenuExpense))
	h.send(t, 1, text("250"))
	h.send(t, 1, choice(CategoryChoice("Food")))
	h.send(t, 1, text("almuerzo"))

	t.Run("analysis", func(t *testing.T) {
		res := h.send(t, 1, choice(ChoiceMenuAnalysis))
		expect(t, res, "idle", KindMonthlyAnalysis, "")
		s := res.Prompt.Payload.(*analyzer.Summary)
		if s.Balance != 750 || s.SavingsRate != 75 || s.TransactionCount != 2 {
			t.Errorf("Unexpected summary %+v", s)
		}
		if !slices.Equal(s.TopCategories, []string{"Salary", "Food"}) {
			t.Errorf("Unexpected top categories %v", s.TopCategories)
		}
	})

	t.Run("trends", func(t *testing.T) {
		res := h.send(t, 1, choice(ChoiceMenuTrends))
		expect(t, res, "idle", KindSpendingTrends, "")
		tr := res.Prompt.Payload.(analyzer.Trends)
		if len(tr.Months) != 1 || tr.Months[0].Total != 250 {
			t.Fatalf("Unexpected trends %+v", tr)
		}
		if !slices.Equal(tr.Months[0].TopCategories, []string{"Food"}) {
			t.Errorf("Unexpected top categories %v", tr.Months[0].TopCategories)
		}
	})

	t.Run("history", func(t *testing.T) {
		res := h.send(t, 1, choice(ChoiceMenuHistory))
		expect(t, res, "idle", KindHistory, "")
		hist := res.Prompt.Payload.([]RecordPayload)
		if len(hist) != 2 || hist[0].Description != "almuerzo" {
			t.Errorf("Expected newest first, got %+v", hist)
		}
	})

	t.Run("export", func(t *testing.T) {
		res := h.send(t, 1, choice(ChoiceMenuExport))
		expect(t, res, "idle", KindExport, "")
		a := res.Prompt.Attachment
		if a == nil || a.ContentType != export.ContentType || !bytes.HasPrefix(a.Data, []byte("%PDF-")) {
			t.Fatalf("Expected a PDF attachment, got %+v", a)
		}
	})
}

func TestLedgerDownReportsNoData(t *testing.T) {
	h := newHarness(t, failingLedger{})
	h.register(t, 1, "Ana")
	expect(t, h.send(t, 1, choice(ChoiceMenuAnalysis)), "idle", KindNoData, "")
}

func TestSessionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)

	const users = 8
	for id := int64(1); id <= users; id++ {
		h.register(t, id, fmt.Sprintf("User %c", 'A'+rune(id)))
	}

	var wg sync.WaitGroup
	for id := int64(1); id <= users; id++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			steps := []Event{
				choice(ChoiceMenuExpense),
				text(fmt.Sprint(id * 100)),
				choice(CategoryChoice("Transport")),
				text("-"),
			}
			for _, ev := range steps {
				if _, err := h.engine.Dispatch(ctx, id, ev); err != nil {
					t.Errorf("Dispatch failed: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	records, _ := h.book.Records(ctx)
	if len(records) != users {
		t.Fatalf("Expected %d records, got %d", users, len(records))
	}
	for _, r := range records {
		// Names are "User B" for id 1, "User C" for id 2 and so on.
		id := int64([]rune(r.UserName)[5] - 'A')
		if r.Amount != float64(id*100) {
			t.Errorf("Record of %s has amount %v, want %d", r.UserName, r.Amount, id*100)
		}
	}
}
